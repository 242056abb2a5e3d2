package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/arealint/internal/lint"
)

// rulesCmd represents the rules command
var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List the lint rule registry",
	Run: func(cmd *cobra.Command, args []string) {
		for _, rule := range lint.DefaultRules().Rules() {
			fixable := ""
			if rule.Fixable() {
				fixable = " [fixable]"
			}
			fmt.Printf("%-20s %-8s %s%s\n", rule.ID, rule.Severity, rule.Description, fixable)
		}
	},
}

func init() {
	rootCmd.AddCommand(rulesCmd)
}
