// Package tools defines the tool interface consumed by the execution engine
// and the built-in file and shell tools. Every tool carries a static
// permission level; the permission gate reads those levels from the registry
// before any tool runs.
package tools

import (
	"context"
	"fmt"
	"sync"

	"github.com/floyd-ai/floyd/internal/permission"
)

// Tool is one operation the agent can invoke.
type Tool interface {
	// Name returns the unique tool name.
	Name() string
	// Description returns a human-readable summary, shown in permission
	// prompts.
	Description() string
	// Parameters returns the JSON-schema style parameter description.
	Parameters() map[string]interface{}
	// PermissionLevel returns the static risk classification. This is an
	// intrinsic property of the tool and never changes at runtime.
	PermissionLevel() permission.Level
	// Execute runs the tool. Implementations must observe ctx so cooperative
	// cancellation works; there is no preemption.
	Execute(ctx context.Context, params map[string]interface{}) *Result
}

// Result is the outcome of a tool execution.
type Result struct {
	Result interface{} `json:"result"`
	Error  string      `json:"error,omitempty"`
}

// Errorf builds an error result.
func Errorf(format string, args ...interface{}) *Result {
	return &Result{Error: fmt.Sprintf(format, args...)}
}

// Registry holds the available tools.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool, replacing any existing tool of the same name.
func (r *Registry) Register(tool Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[tool.Name()] = tool
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	return tool, ok
}

// List returns all registered tools.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]Tool, 0, len(r.tools))
	for _, tool := range r.tools {
		list = append(list, tool)
	}
	return list
}

// ExportPermissions registers every tool's static metadata with the
// permission registry so the gate can classify calls.
func (r *Registry) ExportPermissions(reg *permission.Registry) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, tool := range r.tools {
		reg.Register(permission.ToolInfo{
			Name:        tool.Name(),
			Description: tool.Description(),
			Level:       tool.PermissionLevel(),
		})
	}
}

// stringParam extracts a required string parameter.
func stringParam(params map[string]interface{}, key string) (string, error) {
	value, ok := params[key]
	if !ok {
		return "", fmt.Errorf("missing required parameter %q", key)
	}
	s, ok := value.(string)
	if !ok || s == "" {
		return "", fmt.Errorf("parameter %q must be a non-empty string", key)
	}
	return s, nil
}
