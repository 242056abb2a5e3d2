package lint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/ppiankov/arealint/internal/model"
)

// rulesVersion is baked into every fingerprint so cached results computed
// under an older rule registry never read as current.
const rulesVersion = "v1"

// Fingerprint returns a deterministic hash of a normalized record's
// content. Two records with the same logical tag content produce the same
// fingerprint regardless of map iteration order: canonical renders every
// map with its keys sorted, at every nesting level.
func Fingerprint(rec *model.NormalizedRecord) string {
	h := sha256.New()
	fmt.Fprintf(h, "arealint:%s:%s:%s:", rulesVersion, rec.Type, rec.ID)
	fmt.Fprintf(h, "%s:", rec.UpdatedAt)

	keys := make([]string, 0, len(rec.Tags))
	for k := range rec.Tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(h, "%s=%s;", k, canonical(rec.Tags[k]))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// canonical renders a tag value in a stable form. json.Marshal would do,
// but %v is stable for every value a normalized record can hold and never
// errors.
func canonical(v any) string {
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := "{"
		for _, k := range keys {
			out += k + ":" + canonical(t[k]) + ","
		}
		return out + "}"
	case []any:
		out := "["
		for _, e := range t {
			out += canonical(e) + ","
		}
		return out + "]"
	default:
		return fmt.Sprintf("%v", v)
	}
}
