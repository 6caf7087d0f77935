package heap_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/thomasrohde/minischeme/pkg/heap"
)

// --- helpers ---

func expectLive(t *testing.T, h *heap.Heap, want int) {
	t.Helper()
	if got := h.Stats().Live; got != want {
		t.Errorf("live objects = %d, want %d", got, want)
	}
}

func expectPanicStale(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		err, ok := r.(error)
		if !ok || !errors.Is(err, heap.ErrStaleHandle) {
			t.Fatalf("expected ErrStaleHandle panic, got %v", r)
		}
	}()
	fn()
}

func TestInlineValuesAreNotAllocated(t *testing.T) {
	h := heap.New()
	_ = heap.Number(3)
	_ = heap.NativeExp(&heap.Native{Name: "f"})
	expectLive(t, h, 0)
	if h.Stats().Bytes != 0 {
		t.Errorf("bytes = %d, want 0", h.Stats().Bytes)
	}
}

func TestCollectFreesUnreachable(t *testing.T) {
	h := heap.New()
	keep := h.NewSymbol("keep")
	g := h.Save(keep)
	drop := h.NewSymbol("drop")
	expectLive(t, h, 2)

	h.Collect()
	expectLive(t, h, 1)
	if !h.Valid(keep) {
		t.Error("pinned symbol was collected")
	}
	if h.Valid(drop) {
		t.Error("unpinned symbol survived")
	}
	if h.SymbolName(keep) != "keep" {
		t.Errorf("name = %q", h.SymbolName(keep))
	}

	g.Release()
	h.Collect()
	expectLive(t, h, 0)
	if h.Stats().Bytes != 0 {
		t.Errorf("bytes = %d after freeing everything", h.Stats().Bytes)
	}
}

func TestStaleHandlePanics(t *testing.T) {
	h := heap.New()
	sym := h.NewSymbol("gone")
	h.Collect()
	expectPanicStale(t, func() { h.SymbolName(sym) })

	// The slot is recycled with a new generation; the old handle stays stale.
	fresh := h.NewSymbol("fresh")
	if h.Valid(sym) {
		t.Error("stale handle became valid after slot reuse")
	}
	if !h.Valid(fresh) {
		t.Error("fresh symbol invalid")
	}
}

func TestReachabilityThroughLists(t *testing.T) {
	h := heap.New()
	outer := h.NewList(0)
	g := h.Save(outer)
	for i := 0; i < 5; i++ {
		inner := h.NewListOf(h.NewSymbol(fmt.Sprintf("s%d", i)), heap.Number(float64(i)))
		h.Append(outer, inner)
	}
	_ = h.NewSymbol("garbage")

	h.Collect()
	// outer + 5 inner lists + 5 symbols
	expectLive(t, h, 11)
	for i := 0; i < 5; i++ {
		inner := h.At(outer, i)
		if name := h.SymbolName(h.At(inner, 0)); name != fmt.Sprintf("s%d", i) {
			t.Errorf("element %d name = %q", i, name)
		}
	}

	g.Release()
	h.Collect()
	expectLive(t, h, 0)
}

func TestBaselineAfterRootsPopped(t *testing.T) {
	h := heap.New(heap.WithThreshold(512))
	global := h.NewScope(nil)
	eg := h.PushEnv(global)
	h.Define(global, h.NewSymbol("x"), heap.Number(1))
	h.Collect()
	baseline := h.Stats().Live

	list := h.NewList(0)
	g := h.Save(list)
	for i := 0; i < 200; i++ {
		h.Append(list, h.NewSymbol(fmt.Sprintf("tmp%d", i)))
	}
	frame := h.NewScope(global)
	fg := h.PushEnv(frame)
	h.Define(frame, h.NewSymbol("y"), list)
	fg.Release()
	g.Release()

	h.Collect()
	expectLive(t, h, baseline)
	if h.SaveDepth() != 0 || h.EnvDepth() != 1 {
		t.Errorf("root depths = %d/%d, want 0/1", h.SaveDepth(), h.EnvDepth())
	}
	eg.Release()
	h.Collect()
	expectLive(t, h, 0)
}

func TestConstructionSurvivesCollections(t *testing.T) {
	tests := []struct {
		name string
		opts []heap.Option
		n    int
	}{
		{"threshold", []heap.Option{heap.WithThreshold(1024)}, 10000},
		{"stress", []heap.Option{heap.WithStress(true)}, 1000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := heap.New(tt.opts...)
			list := h.NewList(0)
			g := h.Save(list)
			defer g.Release()
			for i := 0; i < tt.n; i++ {
				h.Append(list, h.NewListOf(h.NewSymbol(fmt.Sprintf("e%d", i)), heap.Number(float64(i))))
			}
			if h.Stats().Collections < 3 {
				t.Fatalf("only %d collections ran", h.Stats().Collections)
			}
			if got := h.Len(list); got != tt.n {
				t.Fatalf("length = %d, want %d", got, tt.n)
			}
			for i := 0; i < tt.n; i++ {
				pair := h.At(list, i)
				if h.SymbolName(h.At(pair, 0)) != fmt.Sprintf("e%d", i) || h.At(pair, 1).Num != float64(i) {
					t.Fatalf("element %d corrupted", i)
				}
			}
		})
	}
}

func TestClosureInOwnFrameTerminates(t *testing.T) {
	h := heap.New()
	global := h.NewScope(nil)
	eg := h.PushEnv(global)
	defer eg.Release()

	frame := h.NewScope(global)
	fg := h.PushEnv(frame)
	params := h.NewList(0)
	pg := h.Save(params)
	body := h.NewListOf(h.NewSymbol("self"))
	pg.Release()
	proc := h.NewProcedure(params, body, frame)
	procGuard := h.Save(proc)
	// frame -> self -> proc -> frame
	h.Define(frame, h.NewSymbol("self"), proc)
	h.Define(global, h.NewSymbol("keep"), proc)
	procGuard.Release()
	fg.Release()

	h.Collect()
	if !h.Valid(proc) {
		t.Fatal("closure reachable from global was collected")
	}
	got, ok := h.Lookup(frame, "self")
	if !ok || got != proc {
		t.Fatal("self binding lost")
	}

	h.Unbind(global, "keep")
	h.Collect()
	if h.Valid(proc) {
		t.Error("unreachable cycle survived")
	}
}

func TestClosureKeepsAncestorFrames(t *testing.T) {
	h := heap.New()
	outer := h.NewScope(nil)
	og := h.PushEnv(outer)
	h.Define(outer, h.NewSymbol("a"), heap.Number(1))
	inner := h.NewScope(outer)
	ig := h.PushEnv(inner)
	h.Define(inner, h.NewSymbol("b"), heap.Number(2))
	params := h.NewList(0)
	pg := h.Save(params)
	proc := h.NewProcedure(params, h.NewList(0), inner)
	pg.Release()
	g := h.Save(proc)
	ig.Release()
	og.Release()

	h.Collect()
	_, _, env := h.Procedure(proc)
	if v, ok := h.Lookup(env, "a"); !ok || v.Num != 1 {
		t.Errorf("ancestor binding a = %v, %v", v, ok)
	}
	g.Release()
}

func TestGuardReleaseOutOfOrderPanics(t *testing.T) {
	h := heap.New()
	a := h.Save(heap.Number(1))
	b := h.Save(heap.Number(2))
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
		b.Release()
		a.Release()
	}()
	a.Release()
}

func TestTraceEvents(t *testing.T) {
	var events []heap.Event
	h := heap.New(heap.WithStress(true), heap.WithTrace(func(e heap.Event) {
		events = append(events, e)
	}))
	h.NewSymbol("a")
	h.NewSymbol("b")
	if len(events) != 4 {
		t.Fatalf("got %d events, want 4", len(events))
	}
	if events[0].Kind != heap.EventGCStart || events[1].Kind != heap.EventGCEnd {
		t.Errorf("unexpected event order: %v, %v", events[0].Kind, events[1].Kind)
	}
	if events[3].Freed != 1 {
		t.Errorf("second collection freed %d, want 1", events[3].Freed)
	}
}

func TestThresholdGrowth(t *testing.T) {
	h := heap.New(heap.WithThreshold(1000), heap.WithGrowth(2))
	list := h.NewList(0)
	g := h.Save(list)
	defer g.Release()
	for i := 0; i < 100; i++ {
		h.Append(list, h.NewSymbol("x"))
	}
	st := h.Stats()
	if st.Collections == 0 {
		t.Fatal("no collection ran")
	}
	if st.Threshold < 1000 {
		t.Errorf("threshold %d fell below initial", st.Threshold)
	}
	if st.Bytes > st.Threshold {
		t.Errorf("bytes %d above threshold %d", st.Bytes, st.Threshold)
	}
}

func TestTruthy(t *testing.T) {
	tests := []struct {
		value    heap.Exp
		expected bool
	}{
		{heap.Number(0), false},
		{heap.Number(1), true},
		{heap.Number(-1), true},
		{heap.Void, true},
		{heap.Empty, true},
		{heap.EOF, true},
	}
	for i, tt := range tests {
		if got := heap.Truthy(tt.value); got != tt.expected {
			t.Errorf("test %d: Truthy(%v) = %v, want %v", i, tt.value.Kind, got, tt.expected)
		}
	}
}
