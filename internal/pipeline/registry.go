package pipeline

import (
	"fmt"
	"sort"
	"sync"
)

// Factory builds a layer bound to the parameter and image slots it will
// consume. Factories validate their expected arity so misconfigured specs
// fail at build time, not mid-run.
type Factory func(paramIndices, imageIndices []int) (Layer, error)

// Registry maps transform names to layer factories. The closed set of
// built-in transforms registers here; callers may add their own.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

func (r *Registry) Register(name string, factory Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if name == "" {
		return fmt.Errorf("transform name must not be empty")
	}
	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("transform already registered: %s", name)
	}

	r.factories[name] = factory
	return nil
}

func (r *Registry) Build(name string, paramIndices, imageIndices []int) (Layer, error) {
	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown transform: %s", name)
	}

	return factory(paramIndices, imageIndices)
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
