package schema

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Record is a validated, typed input produced from raw form values.
// String fields hold string, number fields hold float64.
type Record map[string]any

// StringVar returns the string representation of a field for prompt
// interpolation. Numbers are rendered without a trailing exponent.
func (r Record) StringVar(name string) string {
	v, ok := r[name]
	if !ok {
		return ""
	}
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprint(val)
	}
}

// FieldErrors indexes validation messages by field name. It is both
// the validator's failure value and an error so callers can pass it
// across boundaries without losing per-field detail.
type FieldErrors map[string][]string

func (e FieldErrors) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}
	names := make([]string, 0, len(e))
	for name := range e {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %s", name, strings.Join(e[name], "; ")))
	}
	return "invalid input: " + strings.Join(parts, ", ")
}

func (e FieldErrors) Add(field, message string) {
	e[field] = append(e[field], message)
}

// Validate checks raw form values against the contract and produces a
// typed record containing exactly the declared fields. It is a pure
// function: malformed input yields FieldErrors, never a panic or a
// provider call.
func (c *Contract) Validate(values map[string]string) (Record, FieldErrors) {
	errs := FieldErrors{}
	record := Record{}
	for _, f := range c.Input {
		raw, present := values[f.Name]
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			if f.Required {
				errs.Add(f.Name, "is required")
			}
			continue
		}
		if !present {
			continue
		}
		if f.MinLength > 0 && len([]rune(trimmed)) < f.MinLength {
			errs.Add(f.Name, fmt.Sprintf("must be at least %d characters", f.MinLength))
			continue
		}
		if len(f.Enum) > 0 && !contains(f.Enum, trimmed) {
			errs.Add(f.Name, fmt.Sprintf("must be one of: %s", strings.Join(f.Enum, ", ")))
			continue
		}
		switch f.Type {
		case FieldNumber:
			n, err := strconv.ParseFloat(trimmed, 64)
			if err != nil {
				errs.Add(f.Name, "must be a number")
				continue
			}
			record[f.Name] = n
		default:
			record[f.Name] = trimmed
		}
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return record, nil
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
