package pool

import (
	"github.com/mark3labs/mcp-go/mcp"

	"mcphub/internal/api"
)

// normalizeMCPResult flattens an upstream mcp.CallToolResult into the
// hub's canonical tool result. Only text content survives the crossing;
// each non-text item is replaced by a fixed placeholder text so callers
// can tell something was dropped.
func normalizeMCPResult(result *mcp.CallToolResult) *api.ToolResult {
	if result == nil {
		return api.TextResult("null")
	}

	out := &api.ToolResult{IsError: result.IsError}
	for _, content := range result.Content {
		switch c := content.(type) {
		case mcp.TextContent:
			out.Content = append(out.Content, api.ContentItem{Type: "text", Text: c.Text})
		case *mcp.TextContent:
			out.Content = append(out.Content, api.ContentItem{Type: "text", Text: c.Text})
		default:
			out.Content = append(out.Content, api.ContentItem{Type: "text", Text: "[non-text content omitted]"})
		}
	}
	if len(out.Content) == 0 {
		out.Content = []api.ContentItem{{Type: "text", Text: ""}}
	}
	return out
}
