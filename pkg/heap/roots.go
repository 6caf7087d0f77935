package heap

type rootStack uint8

const (
	saveStack rootStack = iota
	envStack
)

// Guard releases a pin taken with Save or PushEnv. Guards must be released in
// reverse order of acquisition, which a deferred Release guarantees.
type Guard struct {
	h     *Heap
	stack rootStack
	base  int
	top   int
}

// Save pins values on the save stack until the returned guard is released.
// Anything built across several allocations must be saved right after its
// own allocation and before the next one.
func (h *Heap) Save(es ...Exp) Guard {
	base := len(h.saves)
	h.saves = append(h.saves, es...)
	return Guard{h: h, stack: saveStack, base: base, top: len(h.saves)}
}

// PushEnv pins an environment frame, and through it every enclosing frame,
// on the active-environment stack.
func (h *Heap) PushEnv(env *Env) Guard {
	base := len(h.envs)
	if env != nil {
		h.envs = append(h.envs, env)
	}
	return Guard{h: h, stack: envStack, base: base, top: len(h.envs)}
}

// Release pops the pinned entries.
func (g Guard) Release() {
	if g.h == nil {
		return
	}
	switch g.stack {
	case saveStack:
		if len(g.h.saves) != g.top {
			panic("heap: save stack released out of order")
		}
		clear(g.h.saves[g.base:g.top])
		g.h.saves = g.h.saves[:g.base]
	case envStack:
		if len(g.h.envs) != g.top {
			panic("heap: environment stack released out of order")
		}
		clear(g.h.envs[g.base:g.top])
		g.h.envs = g.h.envs[:g.base]
	}
}

// SaveDepth returns the number of values pinned on the save stack.
func (h *Heap) SaveDepth() int {
	return len(h.saves)
}

// EnvDepth returns the number of frames on the active-environment stack.
func (h *Heap) EnvDepth() int {
	return len(h.envs)
}
