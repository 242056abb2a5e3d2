package validate

import (
	"math"
	"testing"

	"github.com/ppiankov/arealint/internal/model"
)

func TestField_Text(t *testing.T) {
	spec := model.FieldSpec{Key: "name", Kind: model.KindText}

	value, verr := Field(spec, "  Lisbon  ")
	if verr != nil {
		t.Fatalf("Expected valid text, got %v", verr)
	}
	if value != "Lisbon" {
		t.Errorf("Expected trimmed value %q, got %q", "Lisbon", value)
	}

	if _, verr := Field(spec, "   "); verr == nil || verr.Kind != model.ErrFormatInvalid {
		t.Errorf("Expected format_invalid for blank text, got %v", verr)
	}
	if _, verr := Field(spec, 42); verr == nil || verr.Kind != model.ErrTypeMismatch {
		t.Errorf("Expected type_mismatch for non-string, got %v", verr)
	}
}

func TestField_Integer(t *testing.T) {
	spec := model.FieldSpec{Key: "population", Kind: model.KindInteger}

	tests := []struct {
		raw      any
		expected int64
		errKind  model.ErrorKind
		desc     string
	}{
		{raw: 0, expected: 0, desc: "zero is in range"},
		{raw: int64(500000), expected: 500000, desc: "plain int64"},
		{raw: float64(1200), expected: 1200, desc: "whole JSON number"},
		{raw: "8500000", expected: 8500000, desc: "digit string"},
		{raw: float64(1_000_000_000), expected: 1_000_000_000, desc: "upper bound inclusive"},
		{raw: float64(1_000_000_001), errKind: model.ErrOutOfRange, desc: "above upper bound"},
		{raw: -5, errKind: model.ErrOutOfRange, desc: "negative"},
		{raw: "-5", errKind: model.ErrTypeMismatch, desc: "negative string fails the digit pattern"},
		{raw: 12.5, errKind: model.ErrTypeMismatch, desc: "fractional number"},
		{raw: "12.5", errKind: model.ErrTypeMismatch, desc: "fractional string"},
		{raw: "abc", errKind: model.ErrTypeMismatch, desc: "non-numeric string"},
		{raw: "99999999999999999999", errKind: model.ErrOutOfRange, desc: "digit string overflowing int64"},
		{raw: true, errKind: model.ErrTypeMismatch, desc: "bool"},
	}

	for _, tt := range tests {
		value, verr := Field(spec, tt.raw)
		if tt.errKind != "" {
			if verr == nil || verr.Kind != tt.errKind {
				t.Errorf("%s: expected %s, got %v", tt.desc, tt.errKind, verr)
			}
			continue
		}
		if verr != nil {
			t.Errorf("%s: unexpected error %v", tt.desc, verr)
			continue
		}
		if value != tt.expected {
			t.Errorf("%s: expected %d, got %v", tt.desc, tt.expected, value)
		}
	}
}

func TestField_Number(t *testing.T) {
	spec := model.FieldSpec{Key: "area_km2", Kind: model.KindNumber}

	tests := []struct {
		raw      any
		expected float64
		errKind  model.ErrorKind
		desc     string
	}{
		{raw: float64(0), expected: 0, desc: "zero"},
		{raw: 12.346, expected: 12.35, desc: "rounded up"},
		{raw: 12.344, expected: 12.34, desc: "rounded down"},
		{raw: 0.125, expected: 0.13, desc: "exact half rounds away from zero"},
		{raw: "99.5", expected: 99.5, desc: "numeric string"},
		{raw: int64(7), expected: 7, desc: "integer input"},
		{raw: float64(1_000_000_000), expected: 1_000_000_000, desc: "upper bound inclusive"},
		{raw: float64(1_000_000_000.5), errKind: model.ErrOutOfRange, desc: "above upper bound"},
		{raw: -0.1, errKind: model.ErrOutOfRange, desc: "negative"},
		{raw: "1e3", errKind: model.ErrTypeMismatch, desc: "scientific notation rejected"},
		{raw: math.NaN(), errKind: model.ErrTypeMismatch, desc: "NaN rejected"},
		{raw: math.Inf(1), errKind: model.ErrOutOfRange, desc: "positive infinity"},
		{raw: math.Inf(-1), errKind: model.ErrOutOfRange, desc: "negative infinity"},
		{raw: []string{"x"}, errKind: model.ErrTypeMismatch, desc: "non-scalar"},
	}

	for _, tt := range tests {
		value, verr := Field(spec, tt.raw)
		if tt.errKind != "" {
			if verr == nil || verr.Kind != tt.errKind {
				t.Errorf("%s: expected %s, got %v", tt.desc, tt.errKind, verr)
			}
			continue
		}
		if verr != nil {
			t.Errorf("%s: unexpected error %v", tt.desc, verr)
			continue
		}
		if value != tt.expected {
			t.Errorf("%s: expected %v, got %v", tt.desc, tt.expected, value)
		}
	}
}

func TestField_Date(t *testing.T) {
	spec := model.FieldSpec{Key: "verified:date", Kind: model.KindDate}

	if value, verr := Field(spec, "2024-06-15"); verr != nil || value != "2024-06-15" {
		t.Errorf("Expected valid date, got %v / %v", value, verr)
	}

	invalid := []string{"2024-02-30", "2024-13-01", "15-06-2024", "2024/06/15", "yesterday", ""}
	for _, raw := range invalid {
		if _, verr := Field(spec, raw); verr == nil || verr.Kind != model.ErrFormatInvalid {
			t.Errorf("Expected format_invalid for %q, got %v", raw, verr)
		}
	}

	if _, verr := Field(spec, 20240615); verr == nil || verr.Kind != model.ErrTypeMismatch {
		t.Errorf("Expected type_mismatch for numeric date, got %v", verr)
	}
}

func TestField_URL(t *testing.T) {
	spec := model.FieldSpec{Key: "contact:website", Kind: model.KindURL}

	if value, verr := Field(spec, "https://example.org/path"); verr != nil || value != "https://example.org/path" {
		t.Errorf("Expected valid URL, got %v / %v", value, verr)
	}

	invalid := []string{"example.org", "/relative/path", "https://", ""}
	for _, raw := range invalid {
		if _, verr := Field(spec, raw); verr == nil || verr.Kind != model.ErrFormatInvalid {
			t.Errorf("Expected format_invalid for %q, got %v", raw, verr)
		}
	}
}

func TestField_Email(t *testing.T) {
	spec := model.FieldSpec{Key: "contact:email", Kind: model.KindEmail}

	if value, verr := Field(spec, " hello@example.org "); verr != nil || value != "hello@example.org" {
		t.Errorf("Expected valid email, got %v / %v", value, verr)
	}

	invalid := []string{"hello@", "@example.org", "hello example@x.org", "plainstring"}
	for _, raw := range invalid {
		if _, verr := Field(spec, raw); verr == nil || verr.Kind != model.ErrFormatInvalid {
			t.Errorf("Expected format_invalid for %q, got %v", raw, verr)
		}
	}
}

func TestField_Phone(t *testing.T) {
	spec := model.FieldSpec{Key: "contact:phone", Kind: model.KindPhone}

	tests := []struct {
		raw      string
		expected string
		valid    bool
	}{
		{raw: "+351 912 345 678", expected: "+351912345678", valid: true},
		{raw: "(555) 123-4567.89", expected: "555123456789", valid: true},
		{raw: "+3519123456789012345", valid: false},
		{raw: "12345", valid: false},
		{raw: "call-me-maybe", valid: false},
	}

	for _, tt := range tests {
		value, verr := Field(spec, tt.raw)
		if !tt.valid {
			if verr == nil {
				t.Errorf("Expected error for %q, got value %v", tt.raw, value)
			}
			continue
		}
		if verr != nil {
			t.Errorf("Unexpected error for %q: %v", tt.raw, verr)
			continue
		}
		if value != tt.expected {
			t.Errorf("Expected %q stripped to %q, got %q", tt.raw, tt.expected, value)
		}
	}
}

func TestField_Select(t *testing.T) {
	spec := model.FieldSpec{
		Key:           "continent",
		Kind:          model.KindSelect,
		AllowedValues: model.Continents,
	}

	// Matching is case-insensitive but the registry casing wins.
	value, verr := Field(spec, "EUROPE")
	if verr != nil {
		t.Fatalf("Expected valid continent, got %v", verr)
	}
	if value != "europe" {
		t.Errorf("Expected canonical casing %q, got %q", "europe", value)
	}

	if _, verr := Field(spec, "atlantis"); verr == nil || verr.Kind != model.ErrNotAllowed {
		t.Errorf("Expected not_allowed for unknown continent, got %v", verr)
	}
}
