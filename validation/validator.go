package validation

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = time.RFC3339
)

// Errors maps a field name to a human-readable message.
type Errors map[string]string

func (e Errors) Error() string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// AsErrors extracts field errors from err.
func AsErrors(err error) (Errors, bool) {
	var fe Errors
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

// Validate evaluates every field of schema against input and collects all
// failures. It returns nil when input is valid.
func Validate(schema Schema, input map[string]any) Errors {
	errs := Errors{}
	for field, rules := range schema {
		value, present := input[field]
		if msg, ok := evaluate(field, rules, value, present, input, false); !ok {
			errs[field] = msg
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// ValidatePartial validates an update. Only fields present in patch are checked
// against their own rules; cross-field rules are always evaluated against the
// merged view of existing and patch so an update cannot leave the stored record
// inconsistent.
func ValidatePartial(schema Schema, patch, existing map[string]any) Errors {
	errs := Errors{}
	for field, rules := range schema {
		value, present := patch[field]
		if !present {
			continue
		}
		if msg, ok := evaluate(field, rules, value, true, patch, true); !ok {
			errs[field] = msg
		}
	}

	merged := MergeForValidation(existing, patch)
	for field, rules := range schema {
		if _, failed := errs[field]; failed {
			continue
		}
		value, present := merged[field]
		if isEmpty(value, present) {
			continue
		}
		for _, rule := range rules {
			if rule.Kind != KindCustom || rule.Check == nil {
				continue
			}
			if msg, ok := rule.Check(merged); !ok {
				errs[field] = msg
				break
			}
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

// MergeForValidation returns the candidate record an update would produce:
// patch values where provided, existing values otherwise.
func MergeForValidation(existing, patch map[string]any) map[string]any {
	merged := make(map[string]any, len(existing)+len(patch))
	for k, v := range existing {
		merged[k] = v
	}
	for k, v := range patch {
		merged[k] = v
	}
	return merged
}

func evaluate(field string, rules []Rule, value any, present bool, input map[string]any, skipCustom bool) (string, bool) {
	empty := isEmpty(value, present)
	for _, rule := range rules {
		if rule.Kind == KindRequired && empty {
			return field + " is required", false
		}
	}
	if empty {
		return "", true
	}

	for _, rule := range rules {
		if rule.Kind == KindRequired {
			continue
		}
		if rule.Kind == KindCustom && skipCustom {
			continue
		}
		if msg, ok := apply(field, rule, value, input); !ok {
			return msg, false
		}
	}
	return "", true
}

func isEmpty(value any, present bool) bool {
	if !present || value == nil {
		return true
	}
	if s, ok := value.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}

func apply(field string, rule Rule, value any, input map[string]any) (string, bool) {
	switch rule.Kind {
	case KindType:
		return checkType(field, rule.Type, value)
	case KindMinLength:
		s, ok := value.(string)
		if !ok {
			return "", true
		}
		if validate.Var(s, fmt.Sprintf("min=%d", rule.N)) != nil {
			return fmt.Sprintf("%s must be at least %d characters long", field, rule.N), false
		}
	case KindMaxLength:
		s, ok := value.(string)
		if !ok {
			return "", true
		}
		if validate.Var(s, fmt.Sprintf("max=%d", rule.N)) != nil {
			return fmt.Sprintf("%s must be at most %d characters long", field, rule.N), false
		}
	case KindMinItems:
		items, ok := asSlice(value)
		if ok && len(items) < rule.N {
			return fmt.Sprintf("%s must contain at least %d items", field, rule.N), false
		}
	case KindMaxItems:
		items, ok := asSlice(value)
		if ok && len(items) > rule.N {
			return fmt.Sprintf("%s must contain at most %d items", field, rule.N), false
		}
	case KindEnum:
		s, ok := value.(string)
		if !ok || !contains(rule.Values, s) {
			return fmt.Sprintf("%s must be one of: %s", field, strings.Join(rule.Values, ", ")), false
		}
	case KindEmail:
		s, ok := value.(string)
		if !ok || validate.Var(s, "email") != nil {
			return field + " must be a valid email address", false
		}
	case KindCustom:
		if rule.Check != nil {
			return rule.Check(input)
		}
	}
	return "", true
}

func checkType(field string, t FieldType, value any) (string, bool) {
	switch t {
	case TypeString:
		if _, ok := value.(string); !ok {
			return field + " must be a string", false
		}
	case TypeArray:
		if _, ok := asSlice(value); !ok {
			return field + " must be an array", false
		}
	case TypeDate:
		s, ok := value.(string)
		if !ok || validate.Var(s, "datetime="+dateLayout) != nil {
			return field + " must be a date in YYYY-MM-DD format", false
		}
	case TypeDateTime:
		s, ok := value.(string)
		if !ok || validate.Var(s, "datetime="+dateTimeLayout) != nil {
			return field + " must be an ISO 8601 date-time", false
		}
	case TypeTime:
		s, ok := value.(string)
		if !ok || validate.Var(s, "datetime=15:04|datetime=15:04:05") != nil {
			return field + " must be a time in HH:MM or HH:MM:SS format", false
		}
	case TypeInteger:
		if _, ok := AsInt(value); !ok {
			return field + " must be an integer", false
		}
	}
	return "", true
}

func contains(values []string, s string) bool {
	for _, v := range values {
		if v == s {
			return true
		}
	}
	return false
}

func asSlice(value any) ([]any, bool) {
	switch v := value.(type) {
	case []any:
		return v, true
	case []string:
		out := make([]any, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out, true
	default:
		return nil, false
	}
}

// AsInt accepts JSON numbers without a fractional part and decimal strings.
func AsInt(value any) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) {
			return 0, false
		}
		return int(v), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (civil.Date, error) {
	return civil.ParseDate(strings.TrimSpace(s))
}

// ParseTime parses HH:MM or HH:MM:SS.
func ParseTime(s string) (civil.Time, error) {
	s = strings.TrimSpace(s)
	if len(s) == len("15:04") {
		s += ":00"
	}
	return civil.ParseTime(s)
}

// ParseDateTime parses an RFC 3339 timestamp.
func ParseDateTime(s string) (time.Time, error) {
	return time.Parse(dateTimeLayout, strings.TrimSpace(s))
}

func compareTyped(a, b string, t FieldType) (int, error) {
	switch t {
	case TypeDate:
		da, err := ParseDate(a)
		if err != nil {
			return 0, err
		}
		db, err := ParseDate(b)
		if err != nil {
			return 0, err
		}
		return compareDates(da, db), nil
	case TypeTime:
		ta, err := ParseTime(a)
		if err != nil {
			return 0, err
		}
		tb, err := ParseTime(b)
		if err != nil {
			return 0, err
		}
		return compareTimes(ta, tb), nil
	case TypeDateTime:
		ta, err := ParseDateTime(a)
		if err != nil {
			return 0, err
		}
		tb, err := ParseDateTime(b)
		if err != nil {
			return 0, err
		}
		return ta.Compare(tb), nil
	default:
		return strings.Compare(a, b), nil
	}
}

func compareDates(a, b civil.Date) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	default:
		return 0
	}
}

func compareTimes(a, b civil.Time) int {
	av := ((a.Hour*60+a.Minute)*60+a.Second)*1_000_000_000 + a.Nanosecond
	bv := ((b.Hour*60+b.Minute)*60+b.Second)*1_000_000_000 + b.Nanosecond
	switch {
	case av < bv:
		return -1
	case av > bv:
		return 1
	default:
		return 0
	}
}
