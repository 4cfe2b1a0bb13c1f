package mcpserver

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoshuaSeth/concurrent-browser-mcp/pkg/tools"
)

func callRequest(name string, args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func TestAdaptDefinitionSuccessPayload(t *testing.T) {
	r := tools.NewRegistry(nil)
	def := tools.Definition{
		Name:        "browser_get_page_info",
		Description: "page info",
		Parameters: tools.ObjectSchema(map[string]tools.Property{
			"instanceId": tools.StringProperty("Target instance"),
		}, "instanceId"),
		Handler: func(_ context.Context, args map[string]any) *tools.Result {
			return tools.Ok(map[string]any{"url": "https://example.com", "echo": args["instanceId"]})
		},
	}
	r.MustRegister(def)

	tool, handler := adaptDefinition(r, def)
	assert.Equal(t, "browser_get_page_info", tool.Name)

	res, err := handler(context.Background(), callRequest(def.Name, map[string]any{"instanceId": "inst-1"}))
	require.NoError(t, err)
	require.False(t, res.IsError)
	require.Len(t, res.Content, 1)

	text, ok := mcp.AsTextContent(res.Content[0])
	require.True(t, ok)
	var decoded tools.Result
	require.NoError(t, json.Unmarshal([]byte(text.Text), &decoded))
	assert.True(t, decoded.Success)
	payload := decoded.Data.(map[string]any)
	assert.Equal(t, "https://example.com", payload["url"])
	assert.Equal(t, "inst-1", payload["echo"])
}

func TestAdaptDefinitionFailureBecomesToolError(t *testing.T) {
	r := tools.NewRegistry(nil)
	def := tools.Definition{
		Name:        "browser_click",
		Description: "click",
		Parameters:  tools.ObjectSchema(nil),
		Handler: func(context.Context, map[string]any) *tools.Result {
			return tools.Errf("element %q not found", "#missing")
		},
	}
	r.MustRegister(def)

	_, handler := adaptDefinition(r, def)
	res, err := handler(context.Background(), callRequest(def.Name, nil))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestAdaptDefinitionSchemaRoundTrips(t *testing.T) {
	def := tools.Definition{
		Name:        "browser_navigate",
		Description: "navigate",
		Parameters: tools.ObjectSchema(map[string]tools.Property{
			"instanceId": tools.StringProperty("Target instance"),
			"url":        tools.StringProperty("URL to open"),
		}, "instanceId", "url"),
		Handler: func(context.Context, map[string]any) *tools.Result { return tools.Ok(nil) },
	}
	r := tools.NewRegistry(nil)
	r.MustRegister(def)

	tool, _ := adaptDefinition(r, def)
	var schema map[string]any
	require.NoError(t, json.Unmarshal(tool.RawInputSchema, &schema))
	assert.Equal(t, "object", schema["type"])
	assert.ElementsMatch(t, []any{"instanceId", "url"}, schema["required"])
}
