// Package audit batch-runs the validation and lint pipeline over a corpus
// of area records and aggregates the findings.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/ppiankov/arealint/internal/lint"
	"github.com/ppiankov/arealint/internal/model"
	"github.com/ppiankov/arealint/internal/validate"
	"github.com/ppiankov/arealint/internal/worker"
)

// Source supplies the corpus to audit
type Source interface {
	ListAreas(ctx context.Context) ([]model.AreaRecord, error)
}

// FileSource reads a corpus from a JSON file: either a bare array of area
// records or an object with an "areas" key.
type FileSource struct {
	Path string
}

// ListAreas implements Source
func (s FileSource) ListAreas(ctx context.Context) ([]model.AreaRecord, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("read corpus: %w", err)
	}
	var areas []model.AreaRecord
	if err := json.Unmarshal(data, &areas); err == nil {
		return areas, nil
	}
	var wrapped struct {
		Areas []model.AreaRecord `json:"areas"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("parse corpus: %w", err)
	}
	return wrapped.Areas, nil
}

// AreaResult is the audit outcome for one area. Errors holds schema
// validation failures; Issues holds lint findings and is empty whenever the
// record did not normalize.
type AreaResult struct {
	AreaID      string                  `json:"area_id"`
	Name        string                  `json:"area_name"`
	Type        model.AreaType          `json:"area_type"`
	Deleted     bool                    `json:"is_deleted"`
	CountryID   string                  `json:"country_id,omitempty"`
	CountryName string                  `json:"country_name,omitempty"`
	Tags        map[string]any          `json:"tags,omitempty"`
	Errors      []model.ValidationError `json:"errors,omitempty"`
	Issues      []model.LintIssue       `json:"issues"`
}

// Runner audits a corpus through the worker pool
type Runner struct {
	rules   *lint.RuleSet
	cache   *lint.Cache
	workers int
}

// NewRunner creates an audit runner
func NewRunner(rules *lint.RuleSet, cache *lint.Cache, workers int) *Runner {
	return &Runner{rules: rules, cache: cache, workers: workers}
}

// Run validates and lints every area concurrently, then applies the
// cross-record checks. A rule fault aborts the whole audit; it is a defect,
// not a finding.
func (r *Runner) Run(ctx context.Context, areas []model.AreaRecord) ([]AreaResult, error) {
	if len(areas) == 0 {
		return []AreaResult{}, nil
	}

	pool := worker.NewPool(r.workers)
	pool.Start()
	for _, area := range areas {
		pool.Submit(&auditJob{area: area, rules: r.rules, cache: r.cache})
	}

	poolResults := pool.Wait()
	results := make([]AreaResult, 0, len(poolResults))
	for _, pr := range poolResults {
		jr := pr.(*jobResult)
		if jr.err != nil {
			return nil, jr.err
		}
		results = append(results, jr.result)
	}

	// Completion order is nondeterministic; reports are not.
	sort.Slice(results, func(i, j int) bool {
		return results[i].AreaID < results[j].AreaID
	})

	deriveCountries(results)
	r.detectURLAliasClashes(results)
	return results, nil
}

// auditJob audits one area
type auditJob struct {
	area  model.AreaRecord
	rules *lint.RuleSet
	cache *lint.Cache
}

type jobResult struct {
	result AreaResult
	err    error
}

func (r *jobResult) GetError() error { return r.err }

// Execute implements worker.Job
func (j *auditJob) Execute(ctx context.Context) worker.Result {
	out := AreaResult{
		AreaID:  j.area.ID,
		Name:    j.area.Name(),
		Type:    j.area.Type(),
		Deleted: j.area.Deleted(),
		Tags:    j.area.Tags,
		Issues:  []model.LintIssue{},
	}

	// Deleted areas stay in the report for bookkeeping but are not linted.
	if out.Deleted {
		return &jobResult{result: out}
	}

	normalized, errs := validate.Record(j.area)
	if len(errs) > 0 {
		out.Errors = errs
		return &jobResult{result: out}
	}
	out.Tags = normalized.Tags

	issues, err := j.cache.GetOrCompute(j.area.ID, normalized)
	if err != nil {
		return &jobResult{err: fmt.Errorf("lint area %s: %w", j.area.ID, err)}
	}
	out.Issues = issues
	return &jobResult{result: out}
}

// detectURLAliasClashes appends a clash issue to every non-deleted area
// whose url_alias is shared with another area.
func (r *Runner) detectURLAliasClashes(results []AreaResult) {
	rule, ok := r.rules.Find("url-alias-clash")
	if !ok {
		return
	}

	byAlias := make(map[string][]int)
	for i, res := range results {
		if res.Deleted {
			continue
		}
		alias, _ := res.Tags["url_alias"].(string)
		if alias != "" {
			byAlias[alias] = append(byAlias[alias], i)
		}
	}

	for alias, indexes := range byAlias {
		if len(indexes) < 2 {
			continue
		}
		for _, i := range indexes {
			var clashIDs, clashNames []string
			for _, other := range indexes {
				if other == i {
					continue
				}
				clashIDs = append(clashIDs, results[other].AreaID)
				clashNames = append(clashNames, results[other].Name)
			}
			results[i].Issues = append(results[i].Issues, model.LintIssue{
				RuleID:       rule.ID,
				AreaID:       results[i].AreaID,
				Severity:     rule.Severity,
				Message:      fmt.Sprintf("Duplicate url_alias shared by %d areas", len(indexes)),
				CurrentValue: alias,
				Extra: map[string]any{
					"clashing_area_ids":   clashIDs,
					"clashing_area_names": clashNames,
				},
			})
		}
	}
}
