package dispatch

import (
	"fmt"

	"mcphub/internal/api"
)

// validateArgs checks call arguments against a tool's input schema:
// required fields must be present and non-null, typed properties must
// match, and extra properties are rejected when the schema forbids them.
func validateArgs(schema api.InputSchema, args map[string]interface{}) error {
	for _, name := range schema.Required {
		v, ok := args[name]
		if !ok || v == nil {
			return &api.ValidationError{Reason: fmt.Sprintf("Missing required argument: %s", name)}
		}
	}

	for name, raw := range schema.Properties {
		v, ok := args[name]
		if !ok || v == nil {
			continue
		}
		prop, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		declaredType, _ := prop["type"].(string)
		if declaredType == "" {
			continue
		}
		if !typeMatches(declaredType, v) {
			return &api.ValidationError{Reason: fmt.Sprintf(
				"Invalid type for argument '%s': expected %s", name, declaredType)}
		}
	}

	if schema.AdditionalProperties != nil && !*schema.AdditionalProperties && len(schema.Properties) > 0 {
		for name := range args {
			if _, declared := schema.Properties[name]; !declared {
				return &api.ValidationError{Reason: fmt.Sprintf("Unexpected argument: %s", name)}
			}
		}
	}

	return nil
}

// typeMatches maps JSON schema primitive types onto the dynamic types
// produced by encoding/json unmarshalling.
func typeMatches(declaredType string, v interface{}) bool {
	switch declaredType {
	case "string":
		_, ok := v.(string)
		return ok
	case "number":
		return isNumber(v)
	case "integer":
		switch n := v.(type) {
		case int, int32, int64:
			return true
		case float64:
			return n == float64(int64(n))
		case float32:
			return n == float32(int64(n))
		default:
			return false
		}
	case "boolean":
		_, ok := v.(bool)
		return ok
	case "array":
		_, ok := v.([]interface{})
		return ok
	case "object":
		_, ok := v.(map[string]interface{})
		return ok
	default:
		// Unknown declared types pass; the upstream server re-validates.
		return true
	}
}

func isNumber(v interface{}) bool {
	switch v.(type) {
	case int, int32, int64, float32, float64:
		return true
	default:
		return false
	}
}
