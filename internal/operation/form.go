package operation

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// FormErrors maps a field key to its validation message.
type FormErrors map[string]string

// Error joins the field messages in key order.
func (e FormErrors) Error() string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e[k]))
	}
	return strings.Join(parts, "; ")
}

// ValidateForm checks submitted values against the field schema of op and
// returns the cleaned values to persist. Number fields are converted to int
// (or nil when left empty); text fields become strings. Unknown keys are dropped.
func ValidateForm(op Operation, values map[string]any) (map[string]any, FormErrors) {
	cleaned := make(map[string]any, len(op.Fields))
	errs := FormErrors{}

	for _, field := range op.Fields {
		raw := values[field.Key]
		if field.Type == FieldNumber {
			n, present, valid := formNumber(raw)
			if !present {
				cleaned[field.Key] = nil
				if field.Required {
					errs[field.Key] = "This field is required."
				}
				continue
			}
			if !valid {
				errs[field.Key] = "Enter a valid number."
				continue
			}
			if field.Min != nil && n < *field.Min {
				errs[field.Key] = fmt.Sprintf("Must be at least %d.", *field.Min)
				continue
			}
			if field.Max != nil && n > *field.Max {
				errs[field.Key] = fmt.Sprintf("Must be at most %d.", *field.Max)
				continue
			}
			cleaned[field.Key] = n
			continue
		}

		s := stringValue(raw)
		if field.Required && strings.TrimSpace(s) == "" {
			errs[field.Key] = "This field is required."
			continue
		}
		cleaned[field.Key] = s
	}

	if len(errs) == 0 {
		return cleaned, nil
	}
	return cleaned, errs
}

// formNumber reports the value of raw, whether anything was entered, and
// whether the entry is a whole number in the int32 range.
func formNumber(raw any) (int, bool, bool) {
	var f float64
	switch t := raw.(type) {
	case nil:
		return 0, false, false
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case float64:
		f = t
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, false, false
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, true, false
		}
		f = parsed
	default:
		return 0, true, false
	}
	n, ok := wholeNumber(f)
	return n, true, ok
}
