package tools

import (
	"fmt"
	"sync"
)

// Registry holds concrete Tool instances addressable by name. Grounded on
// the teacher's mcp.go Registry (a mutex-protected map keyed by tool name,
// with package-level convenience wrappers over one global instance) rather
// than its separate ToolProvider/ToolFactory machinery, which exists there
// to lazily construct per-container tool instances this domain has no
// analogue for — every tool here is scoped to one workDir for one run.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds tool under its own Name(). It is an error to register the
// same name twice.
func (r *Registry) Register(tool Tool) error {
	if tool == nil {
		return fmt.Errorf("tool cannot be nil")
	}
	name := tool.Name()
	if name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool %s already registered", name)
	}
	r.tools[name] = tool
	return nil
}

// Get retrieves a tool by name.
func (r *Registry) Get(name string) (Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("tool %s not registered", name)
	}
	return tool, nil
}

// Definitions returns the ToolDefinition for each name, in the order given,
// for composing one stage's tool set into an LLM request. An unknown name
// is an error — stage tool sets are a fixed, hand-written list in the
// pipeline driver, so a miss here means a typo, not a runtime condition to
// degrade gracefully from.
func (r *Registry) Definitions(names []string) ([]ToolDefinition, error) {
	defs := make([]ToolDefinition, 0, len(names))
	for _, name := range names {
		tool, err := r.Get(name)
		if err != nil {
			return nil, err
		}
		defs = append(defs, tool.Definition())
	}
	return defs, nil
}

// Subset returns a Registry exposing only the named tools, used to scope
// what a given pipeline stage may call.
func (r *Registry) Subset(names []string) (*Registry, error) {
	sub := NewRegistry()
	for _, name := range names {
		tool, err := r.Get(name)
		if err != nil {
			return nil, err
		}
		sub.tools[name] = tool
	}
	return sub, nil
}
