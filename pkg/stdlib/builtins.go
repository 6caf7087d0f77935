package stdlib

import (
	"fmt"
	"math"

	"github.com/thomasrohde/minischeme/pkg/diagnostics"
	"github.com/thomasrohde/minischeme/pkg/evaluator"
	"github.com/thomasrohde/minischeme/pkg/heap"
)

// RegisterDefaults adds the standard environment.
func RegisterDefaults(r *Registry) {
	// Arithmetic
	r.Register(heap.Native{Name: "+", Fn: stdlibAdd})
	r.Register(heap.Native{Name: "-", Fn: stdlibSub})
	r.Register(heap.Native{Name: "*", Fn: stdlibMul})
	r.Register(heap.Native{Name: "/", Fn: stdlibDiv})
	r.Register(heap.Native{Name: "abs", Fn: stdlibAbs})

	// Comparison
	r.Register(heap.Native{Name: "=", Fn: compare("=", func(a, b float64) bool { return a == b })})
	r.Register(heap.Native{Name: "<", Fn: compare("<", func(a, b float64) bool { return a < b })})
	r.Register(heap.Native{Name: ">", Fn: compare(">", func(a, b float64) bool { return a > b })})
	r.Register(heap.Native{Name: "<=", Fn: compare("<=", func(a, b float64) bool { return a <= b })})
	r.Register(heap.Native{Name: ">=", Fn: compare(">=", func(a, b float64) bool { return a >= b })})

	// Lists
	r.Register(heap.Native{Name: "list", Fn: stdlibList})
	r.Register(heap.Native{Name: "cons", Fn: stdlibCons})
	r.Register(heap.Native{Name: "car", Fn: stdlibCar})
	r.Register(heap.Native{Name: "cdr", Fn: stdlibCdr})
	r.Register(heap.Native{Name: "length", Fn: stdlibLength})
	r.Register(heap.Native{Name: "append", Fn: stdlibAppend})
	r.Register(heap.Native{Name: "apply", Fn: stdlibApply})

	// Predicates
	r.Register(heap.Native{Name: "null?", Fn: stdlibNull})
	r.Register(heap.Native{Name: "list?", Fn: kindPredicate("list?", heap.KindList)})
	r.Register(heap.Native{Name: "number?", Fn: kindPredicate("number?", heap.KindNumber)})
	r.Register(heap.Native{Name: "symbol?", Fn: kindPredicate("symbol?", heap.KindSymbol)})
	r.Register(heap.Native{Name: "procedure?", Fn: stdlibProcedureP})
	r.Register(heap.Native{Name: "eq?", Fn: stdlibEqP})
	r.Register(heap.Native{Name: "equal?", Fn: stdlibEqualP})
	r.Register(heap.Native{Name: "not", Fn: stdlibNot})
	r.Register(heap.Native{Name: "and", Fn: stdlibAnd})
	r.Register(heap.Native{Name: "or", Fn: stdlibOr})

	// Control
	r.Register(heap.Native{Name: "begin", Fn: stdlibBegin})
	r.Register(heap.Native{Name: "gc", Fn: stdlibGC})

	r.RegisterConstant("pi", math.Pi)
}

// NewDefault returns a registry holding the standard environment.
func NewDefault() *Registry {
	r := NewRegistry()
	RegisterDefaults(r)
	return r
}

// --- argument helpers ---

func arityError(name, want string, got int) error {
	return evaluator.Errorf(diagnostics.EArity, "%s: expects %s, got %d", name, want, got)
}

func exactly(h *heap.Heap, name string, args heap.Exp, n int) error {
	if got := h.Len(args); got != n {
		plural := "s"
		if n == 1 {
			plural = ""
		}
		return arityError(name, fmt.Sprintf("%d argument%s", n, plural), got)
	}
	return nil
}

func atLeast(h *heap.Heap, name string, args heap.Exp, n int) error {
	if got := h.Len(args); got < n {
		return arityError(name, fmt.Sprintf("at least %d", n), got)
	}
	return nil
}

func number(h *heap.Heap, name string, args heap.Exp, i int) (float64, error) {
	v := h.At(args, i)
	if v.Kind != heap.KindNumber {
		return 0, evaluator.Errorf(diagnostics.EType, "%s: argument %d is not a number (got %s)", name, i+1, v.Kind)
	}
	return v.Num, nil
}

func list(h *heap.Heap, name string, args heap.Exp, i int) (heap.Exp, error) {
	v := h.At(args, i)
	if v.Kind != heap.KindList {
		return heap.Empty, evaluator.Errorf(diagnostics.EType, "%s: argument %d is not a list (got %s)", name, i+1, v.Kind)
	}
	return v, nil
}

func boolean(b bool) heap.Exp {
	if b {
		return heap.Number(1)
	}
	return heap.Number(0)
}

// begin { ... } → last argument
func stdlibBegin(c heap.Caller, args heap.Exp) (heap.Exp, error) {
	h := c.Heap()
	if err := atLeast(h, "begin", args, 1); err != nil {
		return heap.Empty, err
	}
	return h.At(args, h.Len(args)-1), nil
}

// gc → live object count after a full collection
func stdlibGC(c heap.Caller, args heap.Exp) (heap.Exp, error) {
	h := c.Heap()
	if err := exactly(h, "gc", args, 0); err != nil {
		return heap.Empty, err
	}
	h.Collect()
	return heap.Number(float64(h.Stats().Live)), nil
}
