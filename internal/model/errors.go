package model

import "fmt"

// ErrorKind classifies a field validation failure
type ErrorKind string

const (
	ErrMissing         ErrorKind = "missing"
	ErrTypeMismatch    ErrorKind = "type_mismatch"
	ErrOutOfRange      ErrorKind = "out_of_range"
	ErrFormatInvalid   ErrorKind = "format_invalid"
	ErrGeometryInvalid ErrorKind = "geometry_invalid"
	ErrNotAllowed      ErrorKind = "not_allowed"
)

// ValidationError is a user-input-shaped failure. It is always returned as
// a value, never raised: malformed input is a reportable condition, not a
// fault.
type ValidationError struct {
	Field   string    `json:"field"`
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (%s)", e.Field, e.Message, e.Kind)
}

// Severity ranks a lint issue
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// LintIssue is a single finding from a lint rule against one area
type LintIssue struct {
	RuleID       string         `json:"rule_id"`
	AreaID       string         `json:"area_id"`
	Severity     Severity       `json:"severity"`
	Message      string         `json:"message"`
	Fixable      bool           `json:"fixable"`
	FixAction    string         `json:"fix_action,omitempty"`
	CurrentValue string         `json:"current_value,omitempty"`
	Extra        map[string]any `json:"extra,omitempty"`
}
