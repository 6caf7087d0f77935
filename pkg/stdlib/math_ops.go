package stdlib

import (
	"math"

	"github.com/thomasrohde/minischeme/pkg/diagnostics"
	"github.com/thomasrohde/minischeme/pkg/evaluator"
	"github.com/thomasrohde/minischeme/pkg/heap"
)

func fold(name string, c heap.Caller, args heap.Exp, acc float64, op func(acc, x float64) float64) (heap.Exp, error) {
	h := c.Heap()
	for i, n := 0, h.Len(args); i < n; i++ {
		x, err := number(h, name, args, i)
		if err != nil {
			return heap.Empty, err
		}
		acc = op(acc, x)
	}
	return heap.Number(acc), nil
}

// + { ... } → sum, 0 for no arguments
func stdlibAdd(c heap.Caller, args heap.Exp) (heap.Exp, error) {
	return fold("+", c, args, 0, func(acc, x float64) float64 { return acc + x })
}

// * { ... } → product, 1 for no arguments
func stdlibMul(c heap.Caller, args heap.Exp) (heap.Exp, error) {
	return fold("*", c, args, 1, func(acc, x float64) float64 { return acc * x })
}

// - { a } → -a; - { a, b, ... } → a - b - ...
func stdlibSub(c heap.Caller, args heap.Exp) (heap.Exp, error) {
	h := c.Heap()
	if err := atLeast(h, "-", args, 1); err != nil {
		return heap.Empty, err
	}
	first, err := number(h, "-", args, 0)
	if err != nil {
		return heap.Empty, err
	}
	n := h.Len(args)
	if n == 1 {
		return heap.Number(-first), nil
	}
	for i := 1; i < n; i++ {
		x, err := number(h, "-", args, i)
		if err != nil {
			return heap.Empty, err
		}
		first -= x
	}
	return heap.Number(first), nil
}

// / { a } → 1/a; / { a, b, ... } → a / b / ...
func stdlibDiv(c heap.Caller, args heap.Exp) (heap.Exp, error) {
	h := c.Heap()
	if err := atLeast(h, "/", args, 1); err != nil {
		return heap.Empty, err
	}
	acc, err := number(h, "/", args, 0)
	if err != nil {
		return heap.Empty, err
	}
	n := h.Len(args)
	if n == 1 {
		if acc == 0 {
			return heap.Empty, evaluator.Errorf(diagnostics.EType, "/: division by zero")
		}
		return heap.Number(1 / acc), nil
	}
	for i := 1; i < n; i++ {
		x, err := number(h, "/", args, i)
		if err != nil {
			return heap.Empty, err
		}
		if x == 0 {
			return heap.Empty, evaluator.Errorf(diagnostics.EType, "/: division by zero")
		}
		acc /= x
	}
	return heap.Number(acc), nil
}

// abs { x } → |x|
func stdlibAbs(c heap.Caller, args heap.Exp) (heap.Exp, error) {
	h := c.Heap()
	if err := exactly(h, "abs", args, 1); err != nil {
		return heap.Empty, err
	}
	x, err := number(h, "abs", args, 0)
	if err != nil {
		return heap.Empty, err
	}
	return heap.Number(math.Abs(x)), nil
}

// compare builds a chained numeric comparison: the result is 1 when op holds
// for every adjacent pair of arguments.
func compare(name string, op func(a, b float64) bool) heap.NativeFunc {
	return func(c heap.Caller, args heap.Exp) (heap.Exp, error) {
		h := c.Heap()
		if err := atLeast(h, name, args, 1); err != nil {
			return heap.Empty, err
		}
		prev, err := number(h, name, args, 0)
		if err != nil {
			return heap.Empty, err
		}
		holds := true
		for i, n := 1, h.Len(args); i < n; i++ {
			x, err := number(h, name, args, i)
			if err != nil {
				return heap.Empty, err
			}
			holds = holds && op(prev, x)
			prev = x
		}
		return boolean(holds), nil
	}
}
