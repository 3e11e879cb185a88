package dispatch

import (
	"encoding/json"
	"fmt"

	"mcphub/internal/api"
)

// Normalize rewrites an arbitrary execution outcome into the canonical
// tool result shape:
//
//   - an already-canonical *api.ToolResult passes through untouched
//   - a map with a non-empty "error" field becomes an error result
//   - plain maps and slices become one pretty-printed JSON text item
//   - scalars become their stringified value
//   - nil becomes the literal "null"
func Normalize(v interface{}) *api.ToolResult {
	switch t := v.(type) {
	case nil:
		return api.TextResult("null")
	case *api.ToolResult:
		if t == nil {
			return api.TextResult("null")
		}
		return t
	case api.ToolResult:
		return &t
	case map[string]interface{}:
		if errVal, ok := t["error"]; ok && errVal != nil && errVal != "" {
			return api.ErrorResult("Error: %s", formatValue(errVal))
		}
		return api.TextResult(prettyJSON(t))
	case []interface{}:
		return api.TextResult(prettyJSON(t))
	case string:
		return api.TextResult(t)
	case bool:
		return api.TextResult(fmt.Sprintf("%t", t))
	case error:
		return api.ErrorResult("Error: %s", t.Error())
	default:
		if isNumber(t) {
			return api.TextResult(formatValue(t))
		}
		return api.TextResult(prettyJSON(t))
	}
}

func prettyJSON(v interface{}) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

func formatValue(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		// Trim the trailing ".0" JSON numbers pick up through float64.
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%v", t)
	default:
		return fmt.Sprintf("%v", t)
	}
}
