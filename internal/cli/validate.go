package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/arealint/internal/model"
	"github.com/ppiankov/arealint/internal/validate"
)

var validateOutJSON string

// validateCmd represents the validate command
var validateCmd = &cobra.Command{
	Use:   "validate <record.json>",
	Short: "Validate a single area record against its type schema",
	Long: `Validate reads one area record (JSON file, or "-" for stdin),
checks every tag against the field schema for the record's area type, and
prints either the full list of field errors or the normalized record.

Geometry is validated and rewound, and area_km2 is recomputed from it, so
the printed record is exactly what a conforming store should hold.

Example:
  arealint validate area.json
  cat area.json | arealint validate - --json normalized.json`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().StringVar(&validateOutJSON, "json", "", "write the normalized record to this path")
}

func runValidate(cmd *cobra.Command, args []string) error {
	record, err := readRecord(args[0])
	if err != nil {
		return err
	}

	normalized, errs := validate.Record(*record)
	if len(errs) > 0 {
		fmt.Printf("✗ %d validation error(s):\n", len(errs))
		for _, verr := range errs {
			fmt.Printf("  - %s: %s (%s)\n", verr.Field, verr.Message, verr.Kind)
		}
		return fmt.Errorf("record is invalid")
	}

	fmt.Printf("✓ Record %s (%s) is valid\n", normalized.ID, normalized.Type)
	if area, ok := normalized.Tags["area_km2"].(float64); ok {
		fmt.Printf("  area_km2: %.2f\n", area)
	}

	if validateOutJSON != "" {
		data, err := json.MarshalIndent(normalized, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal normalized record: %w", err)
		}
		if err := os.WriteFile(validateOutJSON, data, 0644); err != nil {
			return fmt.Errorf("write normalized record: %w", err)
		}
		fmt.Printf("  normalized record written to %s\n", validateOutJSON)
	}
	return nil
}

// readRecord loads an area record from a file path or stdin ("-")
func readRecord(path string) (*model.AreaRecord, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read record: %w", err)
	}

	var record model.AreaRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("parse record: %w", err)
	}
	return &record, nil
}
