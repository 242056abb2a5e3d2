package lint

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/ppiankov/arealint/internal/model"
)

// ErrRuleFault marks a lint rule that faulted during evaluation. A faulting
// rule is a programming defect, not a reportable lint condition, and must
// never be mistaken for a clean "no issues" result.
var ErrRuleFault = errors.New("lint rule fault")

// nowFunc is the clock used by time-based rules (injectable for tests)
var nowFunc = time.Now

const (
	verifiedStaleAfter   = 365 * 24 * time.Hour
	populationStaleAfter = 5 * 365 * 24 * time.Hour
)

// Rule is a single named lint check. Check must be pure and total over any
// well-formed normalized record. Fix, when set, returns a corrected copy of
// the record; it never mutates its input and its output must be re-validated
// by the caller before being trusted. Corpus-level rules carry a nil Check
// and are evaluated by the audit runner across records.
type Rule struct {
	ID          string
	Description string
	Severity    model.Severity
	FixAction   string // hint for fixes applied by the external adapter
	Check       func(rec *model.NormalizedRecord) *model.LintIssue
	Fix         func(rec *model.NormalizedRecord) *model.NormalizedRecord
}

// Fixable reports whether the rule carries a machine-applicable fix, either
// an in-core Fix or a FixAction performed by the external adapter.
func (r Rule) Fixable() bool {
	return r.Fix != nil || r.FixAction != ""
}

// RuleSet is an ordered, fixed registry of lint rules. It is built once at
// process start; evaluation order is registry order so results are
// reproducible.
type RuleSet struct {
	rules []Rule
}

// NewRuleSet builds a rule set from an explicit rule list
func NewRuleSet(rules []Rule) *RuleSet {
	return &RuleSet{rules: rules}
}

// DefaultRules returns the standard area lint registry
func DefaultRules() *RuleSet {
	return NewRuleSet([]Rule{
		{
			ID:          "icon-missing",
			Description: "No icon:square tag is set for this area",
			Severity:    model.SeverityError,
			Check:       checkIconMissing,
		},
		{
			ID:          "icon-legacy-url",
			Description: "Icon is not hosted on the standard static.btcmap.org location",
			Severity:    model.SeverityWarning,
			FixAction:   "migrate-icon",
			Check:       checkIconLegacyURL,
		},
		{
			ID:          "verified-stale",
			Description: "Area has not been verified in over 12 months",
			Severity:    model.SeverityWarning,
			FixAction:   "bump-verified",
			Check:       checkVerifiedStale,
			Fix:         fixBumpVerified,
		},
		{
			ID:          "population-stale",
			Description: "Population figure is more than 5 years old",
			Severity:    model.SeverityInfo,
			Check:       checkPopulationStale,
		},
		{
			ID:          "missing-boundary",
			Description: "Area has no geo_json boundary",
			Severity:    model.SeverityWarning,
			Check:       checkMissingBoundary,
		},
		{
			// Cross-record rule: duplicate url_alias values can only be seen
			// with the whole corpus in hand, so the audit runner owns the
			// check and this entry supplies its metadata.
			ID:          "url-alias-clash",
			Description: "Multiple areas share the same url_alias",
			Severity:    model.SeverityError,
		},
	})
}

// Rules returns the registry in evaluation order
func (s *RuleSet) Rules() []Rule {
	return s.rules
}

// Find returns the rule with the given id
func (s *RuleSet) Find(id string) (Rule, bool) {
	for _, r := range s.rules {
		if r.ID == id {
			return r, true
		}
	}
	return Rule{}, false
}

// Evaluate applies every per-record rule in registry order and collects the
// non-empty results. A rule that panics aborts the evaluation with an error
// wrapping ErrRuleFault; partial results are discarded.
func (s *RuleSet) Evaluate(rec *model.NormalizedRecord) ([]model.LintIssue, error) {
	issues := make([]model.LintIssue, 0)
	for _, rule := range s.rules {
		if rule.Check == nil {
			continue
		}
		issue, err := runCheck(rule, rec)
		if err != nil {
			return nil, err
		}
		if issue != nil {
			issues = append(issues, *issue)
		}
	}
	return issues, nil
}

// runCheck runs one rule and converts a panic into a rule-fault error
func runCheck(rule Rule, rec *model.NormalizedRecord) (issue *model.LintIssue, err error) {
	defer func() {
		if r := recover(); r != nil {
			issue = nil
			err = fmt.Errorf("%w: rule %q panicked on area %s: %v", ErrRuleFault, rule.ID, rec.ID, r)
		}
	}()
	issue = rule.Check(rec)
	if issue != nil {
		issue.RuleID = rule.ID
		issue.AreaID = rec.ID
		issue.Severity = rule.Severity
		issue.Fixable = rule.Fixable()
		issue.FixAction = rule.FixAction
	}
	return issue, nil
}

func checkIconMissing(rec *model.NormalizedRecord) *model.LintIssue {
	icon, _ := rec.Tags["icon:square"].(string)
	if icon == "" || icon == "pending-upload" {
		return &model.LintIssue{Message: "No icon is set for this area"}
	}
	return nil
}

func checkIconLegacyURL(rec *model.NormalizedRecord) *model.LintIssue {
	icon, _ := rec.Tags["icon:square"].(string)
	if icon == "" || icon == "pending-upload" {
		return nil // covered by icon-missing
	}
	expected := regexp.MustCompile(`^https://static\.btcmap\.org/images/areas/` + regexp.QuoteMeta(rec.ID) + `\.\w+$`)
	if !expected.MatchString(icon) {
		return &model.LintIssue{
			Message:      "Icon URL does not match the expected format",
			CurrentValue: icon,
		}
	}
	return nil
}

func checkVerifiedStale(rec *model.NormalizedRecord) *model.LintIssue {
	verified, raw := verificationDate(rec)
	if verified == nil {
		return &model.LintIssue{Message: "No verification date found"}
	}
	if nowFunc().Sub(*verified) > verifiedStaleAfter {
		return &model.LintIssue{
			Message:      fmt.Sprintf("Last verified %s, over 12 months ago", verified.Format("2006-01-02")),
			CurrentValue: raw,
		}
	}
	return nil
}

// verificationDate resolves the verified:date tag, falling back to the
// record's updated_at timestamp
func verificationDate(rec *model.NormalizedRecord) (*time.Time, string) {
	if s, ok := rec.Tags["verified:date"].(string); ok && s != "" {
		if t, err := time.Parse("2006-01-02", s); err == nil {
			return &t, s
		}
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return &t, s
		}
	}
	if rec.UpdatedAt != "" {
		if t, err := time.Parse(time.RFC3339, rec.UpdatedAt); err == nil {
			return &t, rec.UpdatedAt
		}
	}
	return nil, ""
}

func fixBumpVerified(rec *model.NormalizedRecord) *model.NormalizedRecord {
	fixed := rec.Clone()
	fixed.Tags["verified:date"] = nowFunc().Format("2006-01-02")
	return fixed
}

func checkPopulationStale(rec *model.NormalizedRecord) *model.LintIssue {
	s, ok := rec.Tags["population:date"].(string)
	if !ok || s == "" {
		return nil // absence is a schema concern, not a lint one
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil
	}
	if nowFunc().Sub(t) > populationStaleAfter {
		return &model.LintIssue{
			Message:      fmt.Sprintf("Population dated %s, more than 5 years old", s),
			CurrentValue: s,
		}
	}
	return nil
}

func checkMissingBoundary(rec *model.NormalizedRecord) *model.LintIssue {
	if _, ok := rec.Tags["geo_json"]; !ok {
		return &model.LintIssue{Message: "Area has no boundary geometry"}
	}
	return nil
}
