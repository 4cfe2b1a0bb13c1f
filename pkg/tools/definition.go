package tools

import (
	"context"
	"fmt"
)

// Result is the uniform outcome shape every tool returns. Failures travel
// in Error with Success false; tools never panic across the registry
// boundary.
type Result struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Ok creates a successful result carrying the given payload.
func Ok(data any) *Result {
	return &Result{Success: true, Data: data}
}

// Errf creates a failed result with a formatted message.
func Errf(format string, args ...any) *Result {
	return &Result{Success: false, Error: fmt.Sprintf(format, args...)}
}

// Handler executes one tool invocation against the live browser surface.
type Handler func(ctx context.Context, args map[string]any) *Result

// Definition describes a tool exposed on the automation surface.
type Definition struct {
	// Name is the tool identifier (e.g. "browser_navigate").
	Name string `json:"name"`

	// Description explains what the tool does (shown to the calling agent).
	Description string `json:"description"`

	// Parameters defines the JSON schema for tool arguments.
	Parameters Schema `json:"parameters"`

	// Recordable marks tools whose invocations are appended to the
	// owning instance's session log. Session-management tools are not
	// recorded into the logs they operate on.
	Recordable bool `json:"-"`

	// Handler runs the tool.
	Handler Handler `json:"-"`
}

// String returns an argument as a string, with ok reporting presence.
func String(args map[string]any, key string) (string, bool) {
	v, ok := args[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Bool returns an argument as a bool, falling back to def when absent.
func Bool(args map[string]any, key string, def bool) bool {
	if v, ok := args[key].(bool); ok {
		return v
	}
	return def
}

// Int returns an argument as an int, falling back to def when absent.
// JSON numbers decode as float64, so both forms are accepted.
func Int(args map[string]any, key string, def int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return def
}
