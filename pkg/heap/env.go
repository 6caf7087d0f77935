package heap

import "sort"

// Env is one lexical frame: a heap scope table plus a fixed link to the
// enclosing frame. Frames are not heap objects themselves; their tables are,
// and a frame stays alive as long as a root or a closure reaches it.
type Env struct {
	scope Handle
	outer *Env
}

// Outer returns the enclosing frame, or nil for the global frame.
func (e *Env) Outer() *Env {
	return e.outer
}

// NewScope allocates a frame whose bindings shadow those of outer.
// The caller must pin the returned frame with PushEnv, or store it in a
// closure, before the next allocation.
func (h *Heap) NewScope(outer *Env) *Env {
	g := h.PushEnv(outer)
	hd := h.newTable()
	g.Release()
	return &Env{scope: hd, outer: outer}
}

// Resolve returns the innermost frame, starting at env, that binds name.
func (h *Heap) Resolve(env *Env, name string) (*Env, bool) {
	for e := env; e != nil; e = e.outer {
		if _, ok := h.table(e.scope).lookup(name); ok {
			return e, true
		}
	}
	return nil, false
}

// Lookup returns the value bound to name in env or the nearest enclosing frame.
func (h *Heap) Lookup(env *Env, name string) (Exp, bool) {
	for e := env; e != nil; e = e.outer {
		if v, ok := h.table(e.scope).lookup(name); ok {
			return v, true
		}
	}
	return Empty, false
}

// Define binds the symbol key in env's own frame, shadowing any outer
// binding of the same name. It reports whether the binding is new.
func (h *Heap) Define(env *Env, key, value Exp) bool {
	return h.tableInstall(env.scope, key, value)
}

// Assign overwrites the binding of key in the frame that owns it.
// It reports false if key is unbound.
func (h *Heap) Assign(env *Env, key, value Exp) bool {
	owner, ok := h.Resolve(env, h.SymbolName(key))
	if !ok {
		return false
	}
	h.tableInstall(owner.scope, key, value)
	return true
}

// Unbind removes name from env's own frame.
func (h *Heap) Unbind(env *Env, name string) bool {
	return h.table(env.scope).delete(name)
}

// Names returns the names bound in env's own frame, sorted.
func (h *Heap) Names(env *Env) []string {
	t := h.table(env.scope)
	names := make([]string, 0, t.live)
	for i := range t.entries {
		if t.entries[i].isLive() {
			names = append(names, t.entries[i].name)
		}
	}
	sort.Strings(names)
	return names
}
