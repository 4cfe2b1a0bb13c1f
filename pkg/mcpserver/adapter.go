package mcpserver

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/JoshuaSeth/concurrent-browser-mcp/pkg/tools"
)

// adaptDefinition converts a registry tool definition into an mcp-go tool
// plus a handler that dispatches through the registry. Tool outcomes are
// returned as JSON text content; a failed outcome becomes an MCP tool
// error, never a protocol error.
func adaptDefinition(registry *tools.Registry, def tools.Definition) (mcp.Tool, server.ToolHandlerFunc) {
	rawSchema, err := json.Marshal(def.Parameters)
	if err != nil {
		// Schemas are static structs; this cannot happen at runtime.
		rawSchema = []byte(`{"type":"object"}`)
	}
	tool := mcp.NewToolWithRawSchema(def.Name, def.Description, rawSchema)

	handler := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result := registry.Execute(ctx, def.Name, request.GetArguments())
		if !result.Success {
			return mcp.NewToolResultError(result.Error), nil
		}
		payload, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return mcp.NewToolResultError("marshal tool result: " + err.Error()), nil
		}
		return mcp.NewToolResultText(string(payload)), nil
	}
	return tool, handler
}
