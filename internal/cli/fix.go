package cli

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/arealint/internal/lint"
	"github.com/ppiankov/arealint/internal/model"
	"github.com/ppiankov/arealint/internal/rpc"
	"github.com/ppiankov/arealint/internal/validate"
)

var (
	fixRule    string
	fixDryRun  bool
	fixTimeout time.Duration
)

// iconHTTPClient downloads legacy icons during migrate-icon fixes
var iconHTTPClient = &http.Client{Timeout: 30 * time.Second}

// iconExtensions maps icon content types to file extensions
var iconExtensions = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpg",
	"image/jpg":  "jpg",
	"image/webp": "webp",
	"image/gif":  "gif",
}

// fixCmd represents the fix command
var fixCmd = &cobra.Command{
	Use:   "fix <area-id>",
	Short: "Apply machine fixes for an area's lint issues",
	Long: `Fix fetches one area from the store, lints it, applies the machine
fix for every fixable finding (or for a single rule via --rule), and writes
the changes back.

Tag fixes are applied in memory; the migrate-icon action downloads the
legacy icon and re-uploads it to the store's standard location. The fixed
record is then re-run through the full validation and lint pipeline, and
nothing is written unless it comes back valid. Use --dry-run to see the
changes without writing them.`,
	Args: cobra.ExactArgs(1),
	RunE: runFix,
}

func init() {
	rootCmd.AddCommand(fixCmd)

	fixCmd.Flags().StringVar(&fixRule, "rule", "", "fix only this rule")
	fixCmd.Flags().BoolVar(&fixDryRun, "dry-run", false, "show changes without writing them")
	fixCmd.Flags().DurationVar(&fixTimeout, "timeout", time.Minute, "overall fix timeout")
}

func runFix(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	areaID := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), fixTimeout)
	defer cancel()

	client := rpc.NewClient(cfg.API)
	area, err := client.GetArea(ctx, areaID)
	if err != nil {
		return fmt.Errorf("fetch area %s: %w", areaID, err)
	}
	if area.Deleted() {
		return fmt.Errorf("area %s is deleted", areaID)
	}

	record, errs := validate.Record(*area)
	if len(errs) > 0 {
		fmt.Printf("✗ Area %s has %d validation error(s); fix those first:\n", areaID, len(errs))
		for _, verr := range errs {
			fmt.Printf("  - %s: %s (%s)\n", verr.Field, verr.Message, verr.Kind)
		}
		return fmt.Errorf("record is invalid")
	}

	rules := lint.DefaultRules()
	fixed, applied, iconURL, err := applyFixes(rules, record, fixRule)
	if err != nil {
		return err
	}

	var iconBase64, iconExt string
	if iconURL != "" {
		if fixDryRun {
			fmt.Printf("Would migrate icon from %s\n", iconURL)
		} else {
			iconBase64, iconExt, err = fetchIcon(ctx, iconURL)
			if err != nil {
				return fmt.Errorf("download legacy icon: %w", err)
			}
			fixed.Tags["icon:square"] = canonicalIconURL(areaID, iconExt)
			applied = append(applied, "icon-legacy-url")
			fmt.Printf("Applied icon-legacy-url (migrate-icon, .%s)\n", iconExt)
		}
	}
	for _, id := range applied {
		if id != "icon-legacy-url" {
			fmt.Printf("Applied %s\n", id)
		}
	}
	if len(applied) == 0 && iconURL == "" {
		fmt.Printf("✓ Area %s has nothing to fix\n", areaID)
		return nil
	}

	// The full pipeline runs over the fixed record before anything is
	// written: a fix is never trusted without re-validation.
	cache := lint.NewCache(rules, cfg.Cache.TTL, cfg.Cache.CleanupInterval)
	remaining, err := recheckRecord(cache, fixed)
	if err != nil {
		return err
	}

	changes := diffTags(record.Tags, fixed.Tags)
	for _, name := range changes {
		fmt.Printf("  %s: %v -> %v\n", name, record.Tags[name], fixed.Tags[name])
	}
	if fixDryRun {
		fmt.Println("Dry run, nothing written")
		return nil
	}

	written := 0
	if iconBase64 != "" {
		if err := client.SetAreaIcon(ctx, areaID, iconBase64, iconExt); err != nil {
			return fmt.Errorf("upload icon: %w", err)
		}
		written++
	}
	for _, name := range changes {
		// The icon write went through set_area_icon; the store owns the tag.
		if name == "icon:square" && iconBase64 != "" {
			continue
		}
		if err := client.SetAreaTag(ctx, areaID, name, fixed.Tags[name]); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
		written++
	}

	fmt.Printf("✓ Wrote %d change(s) to area %s, %d issue(s) remain\n", written, areaID, len(remaining))
	return nil
}

// applyFixes runs the rule set over a valid record and applies every
// matching in-core fix, each checked to clear its own finding. The returned
// iconURL is non-empty when a migrate-icon action is due; that fix needs
// network I/O and is the caller's job. The input record is never mutated.
func applyFixes(rules *lint.RuleSet, record *model.NormalizedRecord, only string) (*model.NormalizedRecord, []string, string, error) {
	issues, err := rules.Evaluate(record)
	if err != nil {
		return nil, nil, "", fmt.Errorf("lint area %s: %w", record.ID, err)
	}

	fixed := record
	var applied []string
	var iconURL string
	for _, issue := range issues {
		if only != "" && issue.RuleID != only {
			continue
		}
		rule, ok := rules.Find(issue.RuleID)
		switch {
		case ok && rule.Fix != nil:
			candidate := rule.Fix(fixed)
			if rule.Check(candidate) != nil {
				return nil, nil, "", fmt.Errorf("fix for rule %s did not clear its finding", rule.ID)
			}
			fixed = candidate
			applied = append(applied, rule.ID)
		case ok && rule.FixAction == "migrate-icon":
			iconURL = issue.CurrentValue
		default:
			if only != "" {
				return nil, nil, "", fmt.Errorf("rule %s has no machine fix", issue.RuleID)
			}
		}
	}
	if fixed == record {
		fixed = record.Clone()
	}
	return fixed, applied, iconURL, nil
}

// recheckRecord re-runs the full validation and lint pipeline over a fixed
// record and returns the remaining lint issues. Normalized tag values round
// trip through the schema validator unchanged, so a fix that only a
// normalized record would accept cannot slip through.
func recheckRecord(cache *lint.Cache, rec *model.NormalizedRecord) ([]model.LintIssue, error) {
	raw := model.AreaRecord{
		ID:        rec.ID,
		Tags:      rec.Tags,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}
	revalidated, errs := validate.Record(raw)
	if len(errs) > 0 {
		return nil, fmt.Errorf("fix produced an invalid record: %v", errs[0])
	}
	issues, err := cache.GetOrCompute(rec.ID, revalidated)
	if err != nil {
		return nil, fmt.Errorf("re-lint area %s: %w", rec.ID, err)
	}
	return issues, nil
}

// fetchIcon downloads a legacy icon and returns it base64-encoded with the
// extension derived from the Content-Type (png when unrecognized).
func fetchIcon(ctx context.Context, rawURL string) (string, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", "", err
	}
	resp, err := iconHTTPClient.Do(req)
	if err != nil {
		return "", "", err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("http %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", "", err
	}
	if len(data) == 0 {
		return "", "", fmt.Errorf("empty icon response")
	}

	contentType := strings.TrimSpace(strings.Split(resp.Header.Get("Content-Type"), ";")[0])
	ext, ok := iconExtensions[contentType]
	if !ok {
		ext = "png"
	}
	return base64.StdEncoding.EncodeToString(data), ext, nil
}

// canonicalIconURL is where the store hosts an area's icon after upload
func canonicalIconURL(areaID, ext string) string {
	return fmt.Sprintf("https://static.btcmap.org/images/areas/%s.%s", areaID, ext)
}

// diffTags returns the sorted names of tags whose values differ
func diffTags(before, after map[string]any) []string {
	var names []string
	for name, value := range after {
		if old, ok := before[name]; !ok || !reflect.DeepEqual(old, value) {
			names = append(names, name)
		}
	}
	for name := range before {
		if _, ok := after[name]; !ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
