// Package stdlib provides the native procedures of the standard environment.
package stdlib

import (
	"sort"

	"github.com/thomasrohde/minischeme/pkg/heap"
)

// Registry holds registered native procedures and constants.
type Registry struct {
	fns       map[string]*heap.Native
	constants map[string]float64
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		fns:       make(map[string]*heap.Native),
		constants: make(map[string]float64),
	}
}

// Register adds a native procedure to the registry.
func (r *Registry) Register(fn heap.Native) {
	r.fns[fn.Name] = &fn
}

// RegisterConstant adds a numeric binding.
func (r *Registry) RegisterConstant(name string, value float64) {
	r.constants[name] = value
}

// Get retrieves a native procedure by name.
func (r *Registry) Get(name string) *heap.Native {
	return r.fns[name]
}

// All returns all registered native procedures.
func (r *Registry) All() map[string]*heap.Native {
	return r.fns
}

// Names returns every name the registry binds, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.fns)+len(r.constants))
	for name := range r.fns {
		names = append(names, name)
	}
	for name := range r.constants {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Install defines every registered name in env. env must be on the
// active-environment stack.
func (r *Registry) Install(h *heap.Heap, env *heap.Env) {
	for _, name := range r.Names() {
		var value heap.Exp
		if fn, ok := r.fns[name]; ok {
			value = heap.NativeExp(fn)
		} else {
			value = heap.Number(r.constants[name])
		}
		h.Define(env, h.NewSymbol(name), value)
	}
}
