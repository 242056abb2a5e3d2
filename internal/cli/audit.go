package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/arealint/internal/audit"
	"github.com/ppiankov/arealint/internal/lint"
	"github.com/ppiankov/arealint/internal/model"
	"github.com/ppiankov/arealint/internal/rpc"
)

var (
	auditInput      string
	auditOutJSON    string
	auditRule       string
	auditSeverity   string
	auditType       string
	auditTagFilters []string
	auditAll        bool
	auditClean      bool
	auditTimeout    time.Duration
)

// auditCmd represents the audit command
var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Audit a corpus of areas and report lint issues",
	Long: `Audit validates and lints every area in a corpus and prints a
summary plus the per-area findings.

The corpus comes from --input (a JSON file) or, when omitted, from the
configured area store API. Results are cached per area fingerprint, so
repeated audits of an unchanged corpus do not re-evaluate rules.

Example:
  arealint audit --input areas.json
  arealint audit --rule icon-missing --severity error
  arealint audit --type community --tag "continent=europe" --json report.json`,
	RunE: runAudit,
}

func init() {
	rootCmd.AddCommand(auditCmd)

	auditCmd.Flags().StringVar(&auditInput, "input", "", "corpus JSON file (default: fetch from the API)")
	auditCmd.Flags().StringVar(&auditOutJSON, "json", "", "write the full report to this path")
	auditCmd.Flags().StringVar(&auditRule, "rule", "", "only issues from this rule")
	auditCmd.Flags().StringVar(&auditSeverity, "severity", "", "only issues of this severity (error, warning, info)")
	auditCmd.Flags().StringVar(&auditType, "type", "", "only areas of this type (community, country)")
	auditCmd.Flags().StringArrayVar(&auditTagFilters, "tag", nil, "tag filter name=value (value supports *), repeatable")
	auditCmd.Flags().BoolVar(&auditAll, "all", false, "include deleted areas")
	auditCmd.Flags().BoolVar(&auditClean, "clean", false, "include areas without findings")
	auditCmd.Flags().DurationVar(&auditTimeout, "timeout", 5*time.Minute, "overall audit timeout")
}

func runAudit(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	ctx, cancel := context.WithTimeout(context.Background(), auditTimeout)
	defer cancel()

	var source audit.Source
	if auditInput != "" {
		source = audit.FileSource{Path: auditInput}
	} else {
		source = rpc.NewClient(cfg.API)
	}

	areas, err := source.ListAreas(ctx)
	if err != nil {
		return fmt.Errorf("load corpus: %w", err)
	}
	if cfg.Output.Verbose {
		fmt.Fprintf(os.Stderr, "Loaded %d areas\n", len(areas))
	}

	rules := lint.DefaultRules()
	cache := lint.NewCache(rules, cfg.Cache.TTL, cfg.Cache.CleanupInterval)
	runner := audit.NewRunner(rules, cache, cfg.Audit.Workers)

	results, err := runner.Run(ctx, areas)
	if err != nil {
		return fmt.Errorf("audit: %w", err)
	}

	filter, err := buildFilter()
	if err != nil {
		return err
	}
	filtered := audit.Apply(results, filter)
	summary := audit.Summarize(filtered)

	printSummary(summary)
	printResults(filtered)

	if cfg.Output.Verbose {
		stats := cache.Stats()
		fmt.Fprintf(os.Stderr, "Cache: %d hits, %d misses, %d evaluations\n",
			stats.Hits, stats.Misses, stats.Evaluations)
	}

	if auditOutJSON != "" {
		report := struct {
			Summary audit.Summary      `json:"summary"`
			Areas   []audit.AreaResult `json:"areas"`
		}{summary, filtered}
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal report: %w", err)
		}
		if err := os.WriteFile(auditOutJSON, data, 0644); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		fmt.Printf("\nReport written to %s\n", auditOutJSON)
	}
	return nil
}

func buildFilter() (audit.Filter, error) {
	filter := audit.Filter{
		Rule:           auditRule,
		Severity:       model.Severity(auditSeverity),
		Type:           model.AreaType(auditType),
		IncludeDeleted: auditAll,
		IncludeClean:   auditClean,
	}
	if len(auditTagFilters) > 0 {
		filter.Tags = make(map[string]string, len(auditTagFilters))
		for _, raw := range auditTagFilters {
			name, value, _ := strings.Cut(raw, "=")
			if name == "" {
				return audit.Filter{}, fmt.Errorf("invalid tag filter %q", raw)
			}
			filter.Tags[name] = value
		}
	}
	return filter, nil
}

func printSummary(s audit.Summary) {
	fmt.Printf("Areas audited: %d (%d with issues, %d with validation errors)\n",
		s.TotalAreas, s.AreasWithIssues, s.AreasWithErrors)
	fmt.Printf("Total issues:  %d (error: %d, warning: %d, info: %d)\n",
		s.TotalIssues,
		s.IssuesBySeverity[model.SeverityError],
		s.IssuesBySeverity[model.SeverityWarning],
		s.IssuesBySeverity[model.SeverityInfo])

	if len(s.IssuesByRule) > 0 {
		rules := make([]string, 0, len(s.IssuesByRule))
		for id := range s.IssuesByRule {
			rules = append(rules, id)
		}
		sort.Strings(rules)
		fmt.Println("By rule:")
		for _, id := range rules {
			fmt.Printf("  %-20s %d\n", id, s.IssuesByRule[id])
		}
	}
}

func printResults(results []audit.AreaResult) {
	for _, res := range results {
		if len(res.Errors) == 0 && len(res.Issues) == 0 {
			continue
		}
		header := fmt.Sprintf("%s (%s, %s)", res.Name, res.AreaID, res.Type)
		if res.CountryName != "" {
			header += " in " + res.CountryName
		}
		fmt.Printf("\n%s\n", header)
		for _, verr := range res.Errors {
			fmt.Printf("  [invalid] %s: %s\n", verr.Field, verr.Message)
		}
		for _, issue := range res.Issues {
			fixable := ""
			if issue.Fixable {
				fixable = " (fixable)"
			}
			fmt.Printf("  [%s] %s: %s%s\n", issue.Severity, issue.RuleID, issue.Message, fixable)
		}
	}
}
