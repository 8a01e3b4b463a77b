package tool

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
)

// Options are handed to every Factory when a tool set is built.
type Options struct {
	// Provider is the name of the model provider the tools are built for.
	// Some tools declare provider-specific parameters.
	Provider string
	Logger   *slog.Logger
}

// Factory creates a fresh tool instance.
type Factory func(opts Options) Tool

// Registry maps tool names to factories. It is built explicitly at
// startup and passed to whatever assembles an agent's tool list.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory under name.
func (r *Registry) Register(name string, f Factory) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyToolName
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTool, name)
	}
	r.factories[name] = f
	return nil
}

// Build instantiates the named tools in order.
func (r *Registry) Build(names []string, opts Options) ([]Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tools := make([]Tool, 0, len(names))
	for _, name := range names {
		f, ok := r.factories[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
		}
		tools = append(tools, f(opts))
	}
	return tools, nil
}

// Names returns all registered names sorted alphabetically.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
