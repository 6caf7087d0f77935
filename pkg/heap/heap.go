package heap

import (
	"errors"
	"fmt"
)

// ErrStaleHandle is the panic value raised when a handle outlives the object
// it referred to. It always indicates a missing pin, never a user error.
var ErrStaleHandle = errors.New("heap: stale handle")

// DefaultThreshold is the number of allocated bytes that triggers the first collection.
const DefaultThreshold = 8192

// DefaultGrowth scales the live byte count into the next collection threshold.
const DefaultGrowth = 2.0

type config struct {
	threshold int
	growth    float64
	stress    bool
	trace     func(Event)
}

// Option configures a Heap.
type Option func(*config)

// WithThreshold sets the initial collection threshold in bytes.
func WithThreshold(bytes int) Option {
	return func(c *config) {
		if bytes > 0 {
			c.threshold = bytes
		}
	}
}

// WithGrowth sets the factor applied to the surviving bytes to compute the
// next threshold after a collection.
func WithGrowth(factor float64) Option {
	return func(c *config) {
		if factor > 1 {
			c.growth = factor
		}
	}
}

// WithStress makes every allocation collect first.
func WithStress(on bool) Option {
	return func(c *config) {
		c.stress = on
	}
}

// WithTrace installs a callback receiving collector events.
func WithTrace(fn func(Event)) Option {
	return func(c *config) {
		c.trace = fn
	}
}

// Heap owns every composite value, the two root stacks and the allocation
// counter. It is not safe for concurrent use.
//
// Allocation policy is collect-then-allocate: when a request would push the
// allocated byte count past the threshold, a full collection runs before the
// request is satisfied, and the threshold is then reset to the surviving
// bytes times the growth factor (never below the initial threshold).
type Heap struct {
	cfg config

	slots []object
	free  []int32
	head  int32
	live  int

	bytes int
	next  int

	saves []Exp
	envs  []*Env

	collections int
	freedTotal  int
	collecting  bool
}

// New creates an empty heap.
func New(opts ...Option) *Heap {
	cfg := config{threshold: DefaultThreshold, growth: DefaultGrowth}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Heap{
		cfg:  cfg,
		head: nilIndex,
		next: cfg.threshold,
	}
}

// reserve charges n bytes, collecting first if the threshold would be crossed.
// Anything the caller still needs must be reachable from a root before calling.
func (h *Heap) reserve(n int) {
	if h.cfg.stress || h.bytes+n > h.next {
		h.Collect()
	}
	h.bytes += n
}

// newObject reserves the header plus extra payload bytes, then links a fresh
// slot at the head of the object list.
func (h *Heap) newObject(kind objKind, extra int) Handle {
	h.reserve(objectSize + extra)

	var idx int32
	if n := len(h.free); n > 0 {
		idx = h.free[n-1]
		h.free = h.free[:n-1]
	} else {
		h.slots = append(h.slots, object{gen: 1})
		idx = int32(len(h.slots) - 1)
	}

	o := &h.slots[idx]
	*o = object{kind: kind, gen: o.gen, next: h.head}
	h.head = idx
	h.live++
	return Handle{index: uint32(idx), gen: o.gen}
}

func (h *Heap) deref(hd Handle) *object {
	if int(hd.index) >= len(h.slots) {
		panic(ErrStaleHandle)
	}
	o := &h.slots[hd.index]
	if o.gen != hd.gen || o.kind == objFree {
		panic(ErrStaleHandle)
	}
	return o
}

func (h *Heap) object(e Exp, want objKind) *object {
	o := h.deref(e.Ref)
	if o.kind != want {
		panic(fmt.Sprintf("heap: %v handle used as %v", o.kind, want))
	}
	return o
}

// Valid reports whether a heap value still refers to a live object.
// Inline values are always valid.
func (h *Heap) Valid(e Exp) bool {
	if !e.IsHeap() {
		return true
	}
	if int(e.Ref.index) >= len(h.slots) {
		return false
	}
	o := &h.slots[e.Ref.index]
	return o.gen == e.Ref.gen && o.kind != objFree
}

// NewSymbol allocates a symbol holding its own copy of name.
func (h *Heap) NewSymbol(name string) Exp {
	hd := h.newObject(objSymbol, len(name))
	h.slots[hd.index].name = string([]byte(name))
	return Exp{Kind: KindSymbol, Ref: hd}
}

// SymbolName returns the name of a symbol.
func (h *Heap) SymbolName(e Exp) string {
	return h.object(e, objSymbol).name
}

// NewList allocates an empty list with room for capacity elements.
func (h *Heap) NewList(capacity int) Exp {
	if capacity < 0 {
		capacity = 0
	}
	hd := h.newObject(objList, capacity*expSize)
	h.slots[hd.index].items = make([]Exp, 0, capacity)
	return Exp{Kind: KindList, Ref: hd}
}

// NewListOf allocates a list holding items. The items are pinned for the
// duration of the allocation.
func (h *Heap) NewListOf(items ...Exp) Exp {
	g := h.Save(items...)
	list := h.NewList(len(items))
	g.Release()
	o := h.object(list, objList)
	o.items = append(o.items, items...)
	return list
}

// Slice allocates a new list holding elements [from, to) of list.
// The source list must be reachable from a root.
func (h *Heap) Slice(list Exp, from, to int) Exp {
	out := h.NewList(to - from)
	src := h.object(list, objList).items[from:to]
	o := h.object(out, objList)
	o.items = append(o.items, src...)
	return out
}

// Append adds e to the end of list, growing the backing array when full.
// Both list and e are pinned while the growth is charged.
func (h *Heap) Append(list, e Exp) {
	o := h.object(list, objList)
	if len(o.items) == cap(o.items) {
		oldCap := cap(o.items)
		newCap := growCap(oldCap)
		g := h.Save(list, e)
		h.reserve((newCap - oldCap) * expSize)
		g.Release()

		o = h.object(list, objList)
		items := make([]Exp, len(o.items), newCap)
		copy(items, o.items)
		o.items = items
	}
	o.items = append(o.items, e)
}

// Len returns the number of elements of a list.
func (h *Heap) Len(list Exp) int {
	return len(h.object(list, objList).items)
}

// At returns element i of a list.
func (h *Heap) At(list Exp, i int) Exp {
	return h.object(list, objList).items[i]
}

// NewProcedure allocates a closure over env. params must be a list of
// symbols and body a list of expressions evaluated in order.
func (h *Heap) NewProcedure(params, body Exp, env *Env) Exp {
	g := h.Save(params, body)
	eg := h.PushEnv(env)
	hd := h.newObject(objProcedure, 0)
	eg.Release()
	g.Release()

	h.slots[hd.index].proc = procedure{params: params, body: body, env: env}
	return Exp{Kind: KindProcedure, Ref: hd}
}

// Procedure returns the parts of a closure.
func (h *Heap) Procedure(e Exp) (params, body Exp, env *Env) {
	p := h.object(e, objProcedure).proc
	return p.params, p.body, p.env
}

func growCap(c int) int {
	if c < 8 {
		return 8
	}
	return c * 2
}
