package processmap

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
)

// Severity is the weight of a validation finding.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// ValidationResult is a single pass/fail finding produced by checking data
// against a schema. Check is "required:<field>" or "type:<field>".
type ValidationResult struct {
	Check    string   `json:"check"`
	Passed   bool     `json:"passed"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// HasValidationErrors returns true if any finding failed with error severity
func HasValidationErrors(results []ValidationResult) bool {
	for _, result := range results {
		if !result.Passed && result.Severity == SeverityError {
			return true
		}
	}
	return false
}

// ValidateSchema checks data against a schema. Missing or null required
// fields are errors. Type mismatches of described properties are warnings
// only. Fields the schema does not describe produce no findings.
func ValidateSchema(data map[string]any, schema *Schema) []ValidationResult {
	if schema == nil {
		return nil
	}
	var results []ValidationResult

	for _, name := range schema.Required {
		value, exists := data[name]
		if exists && value != nil {
			results = append(results, ValidationResult{
				Check:    "required:" + name,
				Passed:   true,
				Severity: SeverityInfo,
				Message:  fmt.Sprintf("required field %q is present", name),
			})
		} else {
			results = append(results, ValidationResult{
				Check:    "required:" + name,
				Passed:   false,
				Severity: SeverityError,
				Message:  fmt.Sprintf("required field %q is missing", name),
			})
		}
	}

	names := make([]string, 0, len(schema.Properties))
	for name := range schema.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		propSchema := schema.Properties[name]
		value, exists := data[name]
		if !exists || propSchema == nil || propSchema.Type == "" {
			continue
		}
		actual := valueType(value)
		if typeMatches(propSchema.Type, actual, value) {
			results = append(results, ValidationResult{
				Check:    "type:" + name,
				Passed:   true,
				Severity: SeverityInfo,
				Message:  fmt.Sprintf("field %q has expected type %s", name, propSchema.Type),
			})
		} else {
			results = append(results, ValidationResult{
				Check:    "type:" + name,
				Passed:   false,
				Severity: SeverityWarning,
				Message:  fmt.Sprintf("field %q expected type %s but got %s", name, propSchema.Type, actual),
			})
		}
	}
	return results
}

func typeMatches(expected, actual string, value any) bool {
	if expected == actual {
		return true
	}
	if expected == "integer" && actual == "number" {
		f, ok := toFloat(value)
		return ok && f == math.Trunc(f)
	}
	return false
}

// valueType names the JSON type of a runtime value.
func valueType(value any) string {
	if value == nil {
		return "null"
	}
	if _, ok := value.(json.Number); ok {
		return "number"
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Bool:
		return "boolean"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return "number"
	case reflect.String:
		return "string"
	case reflect.Slice, reflect.Array:
		return "array"
	case reflect.Map, reflect.Struct:
		return "object"
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return "null"
		}
		return valueType(rv.Elem().Interface())
	}
	return rv.Kind().String()
}

func toFloat(value any) (float64, bool) {
	if n, ok := value.(json.Number); ok {
		f, err := n.Float64()
		return f, err == nil
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}
