package stdlib

import (
	"github.com/thomasrohde/minischeme/pkg/heap"
)

func kindPredicate(name string, kind heap.Kind) heap.NativeFunc {
	return func(c heap.Caller, args heap.Exp) (heap.Exp, error) {
		h := c.Heap()
		if err := exactly(h, name, args, 1); err != nil {
			return heap.Empty, err
		}
		return boolean(h.At(args, 0).Kind == kind), nil
	}
}

// null? { x } → 1 for the empty list
func stdlibNull(c heap.Caller, args heap.Exp) (heap.Exp, error) {
	h := c.Heap()
	if err := exactly(h, "null?", args, 1); err != nil {
		return heap.Empty, err
	}
	v := h.At(args, 0)
	return boolean(v.Kind == heap.KindList && h.Len(v) == 0), nil
}

// procedure? { x } → 1 for native and user procedures
func stdlibProcedureP(c heap.Caller, args heap.Exp) (heap.Exp, error) {
	h := c.Heap()
	if err := exactly(h, "procedure?", args, 1); err != nil {
		return heap.Empty, err
	}
	k := h.At(args, 0).Kind
	return boolean(k == heap.KindNative || k == heap.KindProcedure), nil
}

// Eq reports identity: numbers by value, symbols by name, natives by
// pointer, lists and procedures by handle.
func Eq(h *heap.Heap, a, b heap.Exp) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case heap.KindNumber:
		return a.Num == b.Num
	case heap.KindSymbol:
		return h.SymbolName(a) == h.SymbolName(b)
	case heap.KindNative:
		return a.Native == b.Native
	case heap.KindList, heap.KindProcedure:
		return a.Ref == b.Ref
	}
	return true
}

// Equal reports structural equality: lists compare element-wise, everything
// else as Eq.
func Equal(h *heap.Heap, a, b heap.Exp) bool {
	if a.Kind != heap.KindList || b.Kind != heap.KindList {
		return Eq(h, a, b)
	}
	n := h.Len(a)
	if n != h.Len(b) {
		return false
	}
	for i := 0; i < n; i++ {
		if !Equal(h, h.At(a, i), h.At(b, i)) {
			return false
		}
	}
	return true
}

// eq? { a, b } → identity
func stdlibEqP(c heap.Caller, args heap.Exp) (heap.Exp, error) {
	h := c.Heap()
	if err := exactly(h, "eq?", args, 2); err != nil {
		return heap.Empty, err
	}
	return boolean(Eq(h, h.At(args, 0), h.At(args, 1))), nil
}

// equal? { a, b } → structural equality
func stdlibEqualP(c heap.Caller, args heap.Exp) (heap.Exp, error) {
	h := c.Heap()
	if err := exactly(h, "equal?", args, 2); err != nil {
		return heap.Empty, err
	}
	return boolean(Equal(h, h.At(args, 0), h.At(args, 1))), nil
}

// not { x } → 1 when x is falsy
func stdlibNot(c heap.Caller, args heap.Exp) (heap.Exp, error) {
	h := c.Heap()
	if err := exactly(h, "not", args, 1); err != nil {
		return heap.Empty, err
	}
	return boolean(!heap.Truthy(h.At(args, 0))), nil
}

// and { ... } → last argument if all are truthy, else 0. Arguments are
// already evaluated, so there is no short circuit.
func stdlibAnd(c heap.Caller, args heap.Exp) (heap.Exp, error) {
	h := c.Heap()
	result := heap.Number(1)
	for i, n := 0, h.Len(args); i < n; i++ {
		result = h.At(args, i)
		if !heap.Truthy(result) {
			return heap.Number(0), nil
		}
	}
	return result, nil
}

// or { ... } → first truthy argument, else 0
func stdlibOr(c heap.Caller, args heap.Exp) (heap.Exp, error) {
	h := c.Heap()
	for i, n := 0, h.Len(args); i < n; i++ {
		if v := h.At(args, i); heap.Truthy(v) {
			return v, nil
		}
	}
	return heap.Number(0), nil
}
