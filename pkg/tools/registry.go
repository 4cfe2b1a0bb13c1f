package tools

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/JoshuaSeth/concurrent-browser-mcp/pkg/session"
)

// Registry manages tool definitions and dispatches invocations. Every
// execution of a recordable tool is appended to the owning instance's
// session log; recording is best-effort and never fails the call it
// observes.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Definition

	recorder *session.Store
}

// NewRegistry creates an empty tool registry. The recorder may be nil, in
// which case nothing is recorded.
func NewRegistry(recorder *session.Store) *Registry {
	return &Registry{
		tools:    make(map[string]Definition),
		recorder: recorder,
	}
}

// Register adds a tool definition to the registry.
// Returns an error if a tool with the same name already exists.
func (r *Registry) Register(def Definition) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if def.Name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}
	if def.Handler == nil {
		return fmt.Errorf("tool %q has no handler", def.Name)
	}
	if _, exists := r.tools[def.Name]; exists {
		return fmt.Errorf("tool %q already registered", def.Name)
	}

	r.tools[def.Name] = def
	return nil
}

// MustRegister adds a tool definition and panics on error.
// Use this for static tool definitions at startup.
func (r *Registry) MustRegister(def Definition) {
	if err := r.Register(def); err != nil {
		panic(err)
	}
}

// Get returns a tool definition by name.
func (r *Registry) Get(name string) (Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.tools[name]
	return def, ok
}

// List returns all registered tool definitions sorted by name.
func (r *Registry) List() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]Definition, 0, len(r.tools))
	for _, def := range r.tools {
		defs = append(defs, def)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// Execute runs a tool by name and records the invocation. Unknown tools
// produce a failed Result, not an error; the registry boundary only speaks
// the uniform outcome shape.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) *Result {
	def, ok := r.Get(name)
	if !ok {
		return Errf("unknown tool: %s", name)
	}

	start := time.Now()
	result := def.Handler(ctx, args)
	elapsed := time.Since(start)
	if result == nil {
		result = Errf("tool %s returned no result", name)
	}

	observeExecution(name, result.Success, elapsed)

	if def.Recordable && r.recorder != nil {
		if instanceID := instanceIDFor(args, result); instanceID != "" {
			r.recorder.RecordAction(instanceID, session.Action{
				Tool:       name,
				Parameters: args,
				Result:     successPayload(result),
				Error:      result.Error,
				Duration:   elapsed,
			})
		}
	}
	return result
}

// instanceIDFor resolves the instance a call belongs to. Most tools carry
// an instanceId argument; instance creation only knows the id afterwards,
// from its own result payload.
func instanceIDFor(args map[string]any, result *Result) string {
	if id, ok := String(args, "instanceId"); ok && id != "" {
		return id
	}
	if data, ok := result.Data.(map[string]any); ok {
		if id, ok := data["instanceId"].(string); ok {
			return id
		}
	}
	return ""
}

func successPayload(result *Result) any {
	if !result.Success {
		return nil
	}
	return result.Data
}
