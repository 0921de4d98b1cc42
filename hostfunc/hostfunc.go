package hostfunc

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/tetratelabs/wazero/api"
)

// Func implements a host function. Arguments arrive in stack in parameter
// order, encoded as wazero stack values; results are written back into
// stack starting at index 0. A returned error traps the calling module.
type Func func(ctx context.Context, stack []uint64) error

// Binding is a host implementation for one module import.
type Binding struct {
	Module  string
	Name    string
	Params  []api.ValueType
	Results []api.ValueType
	Fn      Func
}

// Key returns "module.name".
func (b Binding) Key() string { return key(b.Module, b.Name) }

// Signature renders the declared types, e.g. "(i32) -> ()".
func (b Binding) Signature() string { return Signature(b.Params, b.Results) }

// Signature renders parameter and result types as "(i32) -> (i32)".
func Signature(params, results []api.ValueType) string {
	return "(" + typeList(params) + ") -> (" + typeList(results) + ")"
}

func typeList(ts []api.ValueType) string {
	s := ""
	for i, t := range ts {
		if i > 0 {
			s += ", "
		}
		s += api.ValueTypeName(t)
	}
	return s
}

func key(module, name string) string { return module + "." + name }

// Registry holds bindings keyed by (module, name).
type Registry struct {
	mu       sync.RWMutex
	bindings map[string]Binding
}

func NewRegistry() *Registry {
	return &Registry{bindings: make(map[string]Binding)}
}

// Register adds b, replacing any binding with the same module and name.
func (r *Registry) Register(b Binding) error {
	if b.Module == "" || b.Name == "" {
		return fmt.Errorf("binding needs a module and a name, got %q", b.Key())
	}
	if b.Fn == nil {
		return fmt.Errorf("binding %s has no function", b.Key())
	}
	r.mu.Lock()
	r.bindings[b.Key()] = b
	r.mu.Unlock()
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(b Binding) *Registry {
	if err := r.Register(b); err != nil {
		panic(err)
	}
	return r
}

func (r *Registry) Get(module, name string) (Binding, bool) {
	r.mu.RLock()
	b, ok := r.bindings[key(module, name)]
	r.mu.RUnlock()
	return b, ok
}

// List returns all bindings sorted by module then name.
func (r *Registry) List() []Binding {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Binding, 0, len(r.bindings))
	for _, b := range r.bindings {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

// Clone returns an independent copy of the registry.
func (r *Registry) Clone() *Registry {
	c := NewRegistry()
	r.mu.RLock()
	for k, b := range r.bindings {
		c.bindings[k] = b
	}
	r.mu.RUnlock()
	return c
}
