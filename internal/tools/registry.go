// internal/tools/registry.go
package tools

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"sync"
)

// ErrToolNotFound is returned when a task names an unregistered tool.
var ErrToolNotFound = errors.New("tool not found")

var toolNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_-]*$`)

// Validate checks the descriptor once, at registration.
func (d Descriptor) Validate() error {
	if !toolNamePattern.MatchString(d.Name) {
		return fmt.Errorf("invalid tool name %q: must match %s", d.Name, toolNamePattern)
	}
	if d.Description == "" {
		return fmt.Errorf("tool %q has no description", d.Name)
	}
	if d.Version == "" {
		return fmt.Errorf("tool %q has no version", d.Name)
	}
	return nil
}

// Registration pairs a validated descriptor with its factory.
type Registration struct {
	Descriptor Descriptor
	Factory    Factory
}

// Registry holds the tools available to a task manager.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Registration
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Registration)}
}

// Register adds a tool. Names must be unique.
func (r *Registry) Register(desc Descriptor, factory Factory) error {
	if err := desc.Validate(); err != nil {
		return err
	}
	if factory == nil {
		return fmt.Errorf("tool %q registered without a factory", desc.Name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[desc.Name]; exists {
		return fmt.Errorf("tool %q already registered", desc.Name)
	}
	r.tools[desc.Name] = Registration{Descriptor: desc, Factory: factory}
	return nil
}

// Get returns the registration for name.
func (r *Registry) Get(name string) (Registration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.tools[name]
	if !ok {
		return Registration{}, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	return reg, nil
}

// List returns every descriptor sorted by name.
func (r *Registry) List() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Descriptor, 0, len(r.tools))
	for _, reg := range r.tools {
		out = append(out, reg.Descriptor)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
