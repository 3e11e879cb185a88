package apitools

import (
	"fmt"
	"os"
	"regexp"
)

// substitutionPattern matches ${data.KEY} and ${env.KEY} placeholders.
var substitutionPattern = regexp.MustCompile(`\$\{(data|env)\.([A-Za-z0-9_.-]+)\}`)

// substitute renders a template string. Call arguments resolve under
// data.*, process environment under env.*. Unresolved variables render as
// empty strings so templates can probe optional arguments.
func substitute(template string, args map[string]interface{}) string {
	return substitutionPattern.ReplaceAllStringFunc(template, func(match string) string {
		groups := substitutionPattern.FindStringSubmatch(match)
		source, key := groups[1], groups[2]
		switch source {
		case "data":
			if v, ok := args[key]; ok && v != nil {
				return stringify(v)
			}
			return ""
		case "env":
			return os.Getenv(key)
		}
		return ""
	})
}

// substituteMap renders every value of a template map.
func substituteMap(templates map[string]string, args map[string]interface{}) map[string]string {
	if len(templates) == 0 {
		return nil
	}
	out := make(map[string]string, len(templates))
	for k, v := range templates {
		out[k] = substitute(v, args)
	}
	return out
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprintf("%v", t)
	}
}
