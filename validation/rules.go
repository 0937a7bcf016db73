package validation

import (
	"fmt"
	"strings"
)

// Kind enumerates the closed set of rule primitives the evaluator understands.
type Kind int

const (
	KindRequired Kind = iota
	KindType
	KindMinLength
	KindMaxLength
	KindMinItems
	KindMaxItems
	KindEnum
	KindEmail
	KindCustom
)

func (k Kind) String() string {
	switch k {
	case KindRequired:
		return "required"
	case KindType:
		return "type"
	case KindMinLength:
		return "minLength"
	case KindMaxLength:
		return "maxLength"
	case KindMinItems:
		return "minItems"
	case KindMaxItems:
		return "maxItems"
	case KindEnum:
		return "enum"
	case KindEmail:
		return "email"
	case KindCustom:
		return "custom"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// FieldType is the expected shape of a field value.
type FieldType string

const (
	TypeString   FieldType = "string"
	TypeArray    FieldType = "array"
	TypeDate     FieldType = "date"     // YYYY-MM-DD
	TypeDateTime FieldType = "datetime" // ISO 8601 / RFC 3339
	TypeTime     FieldType = "time"     // HH:MM or HH:MM:SS
	TypeInteger  FieldType = "integer"
)

// CrossFieldCheck inspects the whole input and returns a message when the
// field it is attached to is inconsistent with the rest of the input.
type CrossFieldCheck func(input map[string]any) (message string, ok bool)

// Rule is one tagged rule. Only the members relevant to Kind are set.
type Rule struct {
	Kind   Kind
	Type   FieldType
	N      int
	Values []string
	Check  CrossFieldCheck
}

// Schema maps a field name to the rules evaluated for it, in order.
type Schema map[string][]Rule

func Required() Rule { return Rule{Kind: KindRequired} }
func Type(t FieldType) Rule { return Rule{Kind: KindType, Type: t} }
func MinLength(n int) Rule { return Rule{Kind: KindMinLength, N: n} }
func MaxLength(n int) Rule { return Rule{Kind: KindMaxLength, N: n} }
func MinItems(n int) Rule { return Rule{Kind: KindMinItems, N: n} }
func MaxItems(n int) Rule { return Rule{Kind: KindMaxItems, N: n} }
func Enum(values ...string) Rule { return Rule{Kind: KindEnum, Values: values} }
func Email() Rule { return Rule{Kind: KindEmail} }
func Custom(c CrossFieldCheck) Rule { return Rule{Kind: KindCustom, Check: c} }

// After builds a cross-field rule requiring the field to be later than other.
// Both values are parsed as t; when other is absent or unparsable the rule passes,
// since other's own rules report that problem. With orEqual, equal values pass.
func After(field, other string, t FieldType, orEqual bool) Rule {
	return Custom(func(input map[string]any) (string, bool) {
		cur, ok := input[field].(string)
		if !ok {
			return "", true
		}
		prev, ok := input[other].(string)
		if !ok || strings.TrimSpace(prev) == "" {
			return "", true
		}
		cmp, err := compareTyped(cur, prev, t)
		if err != nil {
			return "", true
		}
		if cmp > 0 || (orEqual && cmp == 0) {
			return "", true
		}
		if orEqual {
			return fmt.Sprintf("%s must be on or after %s", field, other), false
		}
		return fmt.Sprintf("%s must be after %s", field, other), false
	})
}

// EachString requires every element of an array field to be a non-blank string
// of at most maxLen characters.
func EachString(field string, maxLen int) Rule {
	return Custom(func(input map[string]any) (string, bool) {
		items, ok := asSlice(input[field])
		if !ok {
			return "", true
		}
		for _, item := range items {
			s, ok := item.(string)
			if !ok || strings.TrimSpace(s) == "" {
				return fmt.Sprintf("%s must contain only non-empty strings", field), false
			}
			if maxLen > 0 && len([]rune(s)) > maxLen {
				return fmt.Sprintf("%s entries must be at most %d characters long", field, maxLen), false
			}
		}
		return "", true
	})
}
