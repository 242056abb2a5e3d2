package validate

import (
	"fmt"
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ppiankov/arealint/internal/model"
)

// MaxNumeric is the upper bound for integer and number tags. Anything above
// it is treated as overflow or garbage input.
const MaxNumeric = 1_000_000_000

var (
	integerRe = regexp.MustCompile(`^\d+$`)
	numberRe  = regexp.MustCompile(`^\d+(\.\d+)?$`)
	emailRe   = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phoneRe   = regexp.MustCompile(`^\+?\d{9,15}$`)
)

// phoneStripper removes formatting punctuation before phone matching
var phoneStripper = strings.NewReplacer(" ", "", "-", "", ".", "", "(", "", ")", "")

// Field validates a single tag value against its spec and returns the
// canonical typed value. Malformed input is always a ValidationError,
// never a panic. Geometry-kind specs are handled by Geometry, not here.
func Field(spec model.FieldSpec, raw any) (any, *model.ValidationError) {
	switch spec.Kind {
	case model.KindText:
		return validateText(spec, raw)
	case model.KindInteger:
		return validateInteger(spec, raw)
	case model.KindNumber:
		return validateNumber(spec, raw)
	case model.KindDate:
		return validateDate(spec, raw)
	case model.KindURL:
		return validateURL(spec, raw)
	case model.KindEmail:
		return validateEmail(spec, raw)
	case model.KindPhone:
		return validatePhone(spec, raw)
	case model.KindSelect:
		return validateSelect(spec, raw)
	default:
		return nil, &model.ValidationError{
			Field:   spec.Key,
			Kind:    model.ErrTypeMismatch,
			Message: fmt.Sprintf("unsupported value kind %q", spec.Kind),
		}
	}
}

func validateText(spec model.FieldSpec, raw any) (any, *model.ValidationError) {
	s, ok := raw.(string)
	if !ok {
		return nil, typeMismatch(spec.Key, "value must be a string")
	}
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return nil, &model.ValidationError{
			Field:   spec.Key,
			Kind:    model.ErrFormatInvalid,
			Message: "value cannot be empty",
		}
	}
	return trimmed, nil
}

func validateInteger(spec model.FieldSpec, raw any) (any, *model.ValidationError) {
	var n int64
	switch v := raw.(type) {
	case int:
		n = int64(v)
	case int64:
		n = v
	case float64:
		// JSON numbers decode as float64; only whole values qualify.
		if v != math.Trunc(v) {
			return nil, typeMismatch(spec.Key, "value must be a non-negative integer")
		}
		n = int64(v)
	case string:
		if !integerRe.MatchString(v) {
			return nil, typeMismatch(spec.Key, "value must be a non-negative integer")
		}
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			// Digit strings only fail to parse when they overflow int64.
			return nil, outOfRange(spec.Key)
		}
		n = parsed
	default:
		return nil, typeMismatch(spec.Key, "value must be a non-negative integer")
	}
	if n < 0 || n > MaxNumeric {
		return nil, outOfRange(spec.Key)
	}
	return n, nil
}

func validateNumber(spec model.FieldSpec, raw any) (any, *model.ValidationError) {
	var f float64
	switch v := raw.(type) {
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case float64:
		f = v
	case string:
		if !numberRe.MatchString(v) {
			return nil, typeMismatch(spec.Key, "value must be a non-negative number")
		}
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, typeMismatch(spec.Key, "value must be a non-negative number")
		}
		f = parsed
	default:
		return nil, typeMismatch(spec.Key, "value must be a non-negative number")
	}
	// NaN compares false against both bounds, so it needs its own check.
	if math.IsNaN(f) {
		return nil, typeMismatch(spec.Key, "value must be a non-negative number")
	}
	if f < 0 || f > MaxNumeric {
		return nil, outOfRange(spec.Key)
	}
	return round2(f), nil
}

func validateDate(spec model.FieldSpec, raw any) (any, *model.ValidationError) {
	s, ok := raw.(string)
	if !ok {
		return nil, typeMismatch(spec.Key, "value must be a YYYY-MM-DD string")
	}
	// time.Parse rejects impossible calendar dates such as 2024-02-30.
	if _, err := time.Parse("2006-01-02", s); err != nil {
		return nil, &model.ValidationError{
			Field:   spec.Key,
			Kind:    model.ErrFormatInvalid,
			Message: "invalid date format, use YYYY-MM-DD",
		}
	}
	return s, nil
}

func validateURL(spec model.FieldSpec, raw any) (any, *model.ValidationError) {
	s, ok := raw.(string)
	if !ok {
		return nil, typeMismatch(spec.Key, "value must be a URL string")
	}
	s = strings.TrimSpace(s)
	parsed, err := url.Parse(s)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, &model.ValidationError{
			Field:   spec.Key,
			Kind:    model.ErrFormatInvalid,
			Message: "invalid URL format",
		}
	}
	return s, nil
}

func validateEmail(spec model.FieldSpec, raw any) (any, *model.ValidationError) {
	s, ok := raw.(string)
	if !ok {
		return nil, typeMismatch(spec.Key, "value must be an email string")
	}
	s = strings.TrimSpace(s)
	if !emailRe.MatchString(s) {
		return nil, &model.ValidationError{
			Field:   spec.Key,
			Kind:    model.ErrFormatInvalid,
			Message: "invalid email format",
		}
	}
	return s, nil
}

func validatePhone(spec model.FieldSpec, raw any) (any, *model.ValidationError) {
	s, ok := raw.(string)
	if !ok {
		return nil, typeMismatch(spec.Key, "value must be a phone number string")
	}
	stripped := phoneStripper.Replace(strings.TrimSpace(s))
	if !phoneRe.MatchString(stripped) {
		return nil, &model.ValidationError{
			Field:   spec.Key,
			Kind:    model.ErrFormatInvalid,
			Message: "invalid phone number format",
		}
	}
	return stripped, nil
}

func validateSelect(spec model.FieldSpec, raw any) (any, *model.ValidationError) {
	s, ok := raw.(string)
	if !ok {
		return nil, typeMismatch(spec.Key, "value must be a string")
	}
	for _, allowed := range spec.AllowedValues {
		if strings.EqualFold(s, allowed) {
			// Canonical registry casing, not the caller's.
			return allowed, nil
		}
	}
	return nil, &model.ValidationError{
		Field:   spec.Key,
		Kind:    model.ErrNotAllowed,
		Message: fmt.Sprintf("invalid value, choose from: %s", strings.Join(spec.AllowedValues, ", ")),
	}
}

// round2 rounds to 2 decimal places, half away from zero. The mode is fixed
// so derived values reproduce across runs.
func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

func typeMismatch(field, msg string) *model.ValidationError {
	return &model.ValidationError{Field: field, Kind: model.ErrTypeMismatch, Message: msg}
}

func outOfRange(field string) *model.ValidationError {
	return &model.ValidationError{
		Field:   field,
		Kind:    model.ErrOutOfRange,
		Message: fmt.Sprintf("value must be between 0 and %d", MaxNumeric),
	}
}
