package stdlib

import (
	"github.com/thomasrohde/minischeme/pkg/diagnostics"
	"github.com/thomasrohde/minischeme/pkg/evaluator"
	"github.com/thomasrohde/minischeme/pkg/heap"
)

// list { ... } → fresh list of the arguments
func stdlibList(c heap.Caller, args heap.Exp) (heap.Exp, error) {
	h := c.Heap()
	return h.Slice(args, 0, h.Len(args)), nil
}

// cons { x, lst } → lst with x prepended
func stdlibCons(c heap.Caller, args heap.Exp) (heap.Exp, error) {
	h := c.Heap()
	if err := exactly(h, "cons", args, 2); err != nil {
		return heap.Empty, err
	}
	tail, err := list(h, "cons", args, 1)
	if err != nil {
		return heap.Empty, err
	}
	n := h.Len(tail)
	out := h.NewList(n + 1)
	g := h.Save(out)
	defer g.Release()
	h.Append(out, h.At(args, 0))
	for i := 0; i < n; i++ {
		h.Append(out, h.At(tail, i))
	}
	return out, nil
}

// car { lst } → first element
func stdlibCar(c heap.Caller, args heap.Exp) (heap.Exp, error) {
	h := c.Heap()
	if err := exactly(h, "car", args, 1); err != nil {
		return heap.Empty, err
	}
	lst, err := list(h, "car", args, 0)
	if err != nil {
		return heap.Empty, err
	}
	if h.Len(lst) == 0 {
		return heap.Empty, evaluator.Errorf(diagnostics.EType, "car: empty list")
	}
	return h.At(lst, 0), nil
}

// cdr { lst } → every element but the first
func stdlibCdr(c heap.Caller, args heap.Exp) (heap.Exp, error) {
	h := c.Heap()
	if err := exactly(h, "cdr", args, 1); err != nil {
		return heap.Empty, err
	}
	lst, err := list(h, "cdr", args, 0)
	if err != nil {
		return heap.Empty, err
	}
	n := h.Len(lst)
	if n == 0 {
		return heap.Empty, evaluator.Errorf(diagnostics.EType, "cdr: empty list")
	}
	return h.Slice(lst, 1, n), nil
}

// length { lst } → element count
func stdlibLength(c heap.Caller, args heap.Exp) (heap.Exp, error) {
	h := c.Heap()
	if err := exactly(h, "length", args, 1); err != nil {
		return heap.Empty, err
	}
	lst, err := list(h, "length", args, 0)
	if err != nil {
		return heap.Empty, err
	}
	return heap.Number(float64(h.Len(lst))), nil
}

// append { lst, ... } → concatenation into a fresh list
func stdlibAppend(c heap.Caller, args heap.Exp) (heap.Exp, error) {
	h := c.Heap()
	n := h.Len(args)
	total := 0
	for i := 0; i < n; i++ {
		lst, err := list(h, "append", args, i)
		if err != nil {
			return heap.Empty, err
		}
		total += h.Len(lst)
	}
	out := h.NewList(total)
	g := h.Save(out)
	defer g.Release()
	for i := 0; i < n; i++ {
		lst := h.At(args, i)
		for j, m := 0, h.Len(lst); j < m; j++ {
			h.Append(out, h.At(lst, j))
		}
	}
	return out, nil
}

// apply { proc, lst } → proc called with the elements of lst
func stdlibApply(c heap.Caller, args heap.Exp) (heap.Exp, error) {
	h := c.Heap()
	if err := exactly(h, "apply", args, 2); err != nil {
		return heap.Empty, err
	}
	proc := h.At(args, 0)
	if proc.Kind != heap.KindNative && proc.Kind != heap.KindProcedure {
		return heap.Empty, evaluator.Errorf(diagnostics.ENotProc, "apply: argument 1 is not a procedure (got %s)", proc.Kind)
	}
	lst, err := list(h, "apply", args, 1)
	if err != nil {
		return heap.Empty, err
	}
	// The callee owns its argument list, so hand it a copy.
	callArgs := h.Slice(lst, 0, h.Len(lst))
	g := h.Save(callArgs)
	defer g.Release()
	return c.Apply(proc, callArgs)
}
