package audit

import (
	"fmt"
	"path"

	"github.com/ppiankov/arealint/internal/model"
)

// Filter narrows audit results. Zero value passes everything except
// deleted areas and areas without issues.
type Filter struct {
	Rule           string            // keep only issues from this rule
	Severity       model.Severity    // keep only issues of this severity
	Type           model.AreaType    // keep only areas of this type
	IncludeDeleted bool              // keep deleted areas
	IncludeClean   bool              // keep areas with no matching issues
	Tags           map[string]string // tag filters; "" matches any value, * wildcards allowed
}

// Apply returns the results matching the filter. Issue lists are filtered
// copies; the input is not modified.
func Apply(results []AreaResult, f Filter) []AreaResult {
	filtered := make([]AreaResult, 0, len(results))
	for _, res := range results {
		if res.Deleted && !f.IncludeDeleted {
			continue
		}
		if f.Type != "" && res.Type != f.Type {
			continue
		}
		if !matchTags(res.Tags, f.Tags) {
			continue
		}

		issues := make([]model.LintIssue, 0, len(res.Issues))
		for _, issue := range res.Issues {
			if f.Rule != "" && issue.RuleID != f.Rule {
				continue
			}
			if f.Severity != "" && issue.Severity != f.Severity {
				continue
			}
			issues = append(issues, issue)
		}
		if len(issues) == 0 && len(res.Errors) == 0 && !f.IncludeClean {
			continue
		}

		res.Issues = issues
		filtered = append(filtered, res)
	}
	return filtered
}

// matchTags checks every tag filter against the area's tags. A filter value
// of "" requires only that the tag exists; otherwise the value must match,
// with shell-style * wildcards supported.
func matchTags(tags map[string]any, filters map[string]string) bool {
	for name, want := range filters {
		got, ok := tags[name]
		if !ok {
			return false
		}
		if want == "" {
			continue
		}
		gotStr := fmt.Sprint(got)
		if matched, err := path.Match(want, gotStr); err != nil || !matched {
			if gotStr != want {
				return false
			}
		}
	}
	return true
}

// Summary aggregates counts over a set of (already filtered) results
type Summary struct {
	TotalAreas       int                    `json:"total_areas"`
	DeletedAreas     int                    `json:"deleted_areas"`
	AreasWithIssues  int                    `json:"areas_with_issues"`
	AreasWithErrors  int                    `json:"areas_with_errors"`
	TotalIssues      int                    `json:"total_issues"`
	IssuesByRule     map[string]int         `json:"issues_by_rule"`
	IssuesBySeverity map[model.Severity]int `json:"issues_by_severity"`
	AreasByType      map[model.AreaType]int `json:"areas_by_type"`

	// CommunitiesByCountry counts communities per derived country name
	CommunitiesByCountry map[string]int `json:"communities_by_country,omitempty"`
}

// Summarize computes summary statistics
func Summarize(results []AreaResult) Summary {
	s := Summary{
		IssuesByRule: make(map[string]int),
		IssuesBySeverity: map[model.Severity]int{
			model.SeverityError:   0,
			model.SeverityWarning: 0,
			model.SeverityInfo:    0,
		},
		AreasByType: make(map[model.AreaType]int),
	}
	for _, res := range results {
		s.TotalAreas++
		if res.Deleted {
			s.DeletedAreas++
		}
		s.AreasByType[res.Type]++
		if len(res.Errors) > 0 {
			s.AreasWithErrors++
		}
		if len(res.Issues) > 0 {
			s.AreasWithIssues++
		}
		if res.Type == model.AreaTypeCommunity && res.CountryName != "" {
			if s.CommunitiesByCountry == nil {
				s.CommunitiesByCountry = make(map[string]int)
			}
			s.CommunitiesByCountry[res.CountryName]++
		}
		for _, issue := range res.Issues {
			s.TotalIssues++
			s.IssuesByRule[issue.RuleID]++
			s.IssuesBySeverity[issue.Severity]++
		}
	}
	return s
}
