package heap

// EventKind identifies a collector event.
type EventKind string

const (
	EventGCStart EventKind = "gc_start"
	EventGCEnd   EventKind = "gc_end"
)

// Event describes the heap at the start or end of a collection.
type Event struct {
	Kind       EventKind `json:"event"`
	Collection int       `json:"collection"`
	Live       int       `json:"live"`
	Bytes      int       `json:"bytes"`
	Freed      int       `json:"freed"`
	Threshold  int       `json:"threshold"`
}

// Stats is a snapshot of heap counters.
type Stats struct {
	Live        int `json:"live"`
	Bytes       int `json:"bytes"`
	Threshold   int `json:"threshold"`
	Collections int `json:"collections"`
	Freed       int `json:"freed"`
	SaveDepth   int `json:"saveDepth"`
	EnvDepth    int `json:"envDepth"`
}

// Stats returns the current counters.
func (h *Heap) Stats() Stats {
	return Stats{
		Live:        h.live,
		Bytes:       h.bytes,
		Threshold:   h.next,
		Collections: h.collections,
		Freed:       h.freedTotal,
		SaveDepth:   len(h.saves),
		EnvDepth:    len(h.envs),
	}
}

func (h *Heap) emit(kind EventKind, freed int) {
	if h.cfg.trace == nil {
		return
	}
	h.cfg.trace(Event{
		Kind:       kind,
		Collection: h.collections,
		Live:       h.live,
		Bytes:      h.bytes,
		Freed:      freed,
		Threshold:  h.next,
	})
}

// Collect runs a full mark-sweep cycle rooted at the save stack and the
// active-environment stack.
func (h *Heap) Collect() {
	if h.collecting {
		return
	}
	h.collecting = true
	defer func() { h.collecting = false }()

	h.collections++
	h.emit(EventGCStart, 0)

	h.mark()
	freed := h.sweep()
	h.freedTotal += freed

	h.next = int(float64(h.bytes) * h.cfg.growth)
	if h.next < h.cfg.threshold {
		h.next = h.cfg.threshold
	}
	h.emit(EventGCEnd, freed)
}

// mark flags every object reachable from the roots. Objects are flagged when
// first discovered, so each is scanned at most once and cycles terminate.
func (h *Heap) mark() {
	var work []int32
	for _, e := range h.saves {
		work = h.shadeExp(work, e)
	}
	for _, env := range h.envs {
		work = h.shadeEnv(work, env)
	}

	for len(work) > 0 {
		idx := work[len(work)-1]
		work = work[:len(work)-1]

		o := &h.slots[idx]
		switch o.kind {
		case objList:
			for _, item := range o.items {
				work = h.shadeExp(work, item)
			}
		case objProcedure:
			work = h.shadeExp(work, o.proc.params)
			work = h.shadeExp(work, o.proc.body)
			work = h.shadeEnv(work, o.proc.env)
		case objTable:
			for i := range o.table.entries {
				e := &o.table.entries[i]
				if !e.isLive() {
					continue
				}
				work = h.shadeExp(work, e.key)
				work = h.shadeExp(work, e.value)
			}
		}
	}
}

func (h *Heap) shadeExp(work []int32, e Exp) []int32 {
	if !e.IsHeap() {
		return work
	}
	return h.shade(work, e.Ref)
}

// shadeEnv flags the tables of env and its enclosing frames. A flagged table
// means its ancestors were flagged along with it, so the walk stops there.
func (h *Heap) shadeEnv(work []int32, env *Env) []int32 {
	for e := env; e != nil; e = e.outer {
		if h.deref(e.scope).marked {
			break
		}
		work = h.shade(work, e.scope)
	}
	return work
}

func (h *Heap) shade(work []int32, hd Handle) []int32 {
	o := h.deref(hd)
	if o.marked {
		return work
	}
	o.marked = true
	return append(work, int32(hd.index))
}

// sweep walks the object list once, unlinking and releasing every unmarked
// object and clearing the mark on survivors. Freed slots get a new
// generation and go on the free list.
func (h *Heap) sweep() int {
	freed := 0
	prev := nilIndex
	for cur := h.head; cur != nilIndex; {
		o := &h.slots[cur]
		next := o.next
		if o.marked {
			o.marked = false
			prev = cur
		} else {
			if prev == nilIndex {
				h.head = next
			} else {
				h.slots[prev].next = next
			}
			h.bytes -= o.size()
			*o = object{gen: o.gen + 1, next: nilIndex}
			h.free = append(h.free, cur)
			h.live--
			freed++
		}
		cur = next
	}
	return freed
}
