package permission

import "sync"

// ToolInfo holds the static permission metadata for a registered tool.
type ToolInfo struct {
	Name        string
	Description string
	Level       Level
}

// Registry maps tool names to their permission metadata. Tools register
// themselves at startup; lookups are read-heavy afterwards.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]ToolInfo
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]ToolInfo),
	}
}

// Register adds or replaces the metadata for a tool.
func (r *Registry) Register(info ToolInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[info.Name] = info
}

// Lookup returns the metadata for a tool name and whether it is known.
func (r *Registry) Lookup(name string) (ToolInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	info, ok := r.tools[name]
	return info, ok
}

// Names returns all registered tool names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	return names
}
