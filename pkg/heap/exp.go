// Package heap implements the interpreter's value model, its garbage-collected
// object arena, environment frames and the mark-sweep collector.
//
// Composite values (symbols, lists, procedures and the scope tables behind
// environment frames) live in a Heap and are addressed through
// generation-checked handles. Numbers and native procedures are carried
// inline in an Exp and never touch the heap.
package heap

// Kind tags the variant held by an Exp.
type Kind uint8

const (
	KindEmpty Kind = iota
	KindVoid
	KindNumber
	KindSymbol
	KindList
	KindNative
	KindProcedure
	KindEOF
)

var kindNames = [...]string{
	KindEmpty:     "empty",
	KindVoid:      "void",
	KindNumber:    "number",
	KindSymbol:    "symbol",
	KindList:      "list",
	KindNative:    "native",
	KindProcedure: "procedure",
	KindEOF:       "eof",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Handle addresses a heap object. A handle is only valid while the
// generation it carries matches the slot's generation; sweeping a slot bumps
// its generation so stale handles are detected instead of aliasing a new object.
type Handle struct {
	index uint32
	gen   uint32
}

// Exp is a tagged value. Num is set for KindNumber, Native for KindNative and
// Ref for the heap-backed kinds (symbol, list, procedure).
type Exp struct {
	Kind   Kind
	Num    float64
	Native *Native
	Ref    Handle
}

var (
	// Empty is the zero Exp. Scope tables use it to mark unused slots.
	Empty = Exp{}
	// Void is the result of define and set!.
	Void = Exp{Kind: KindVoid}
	// EOF signals that the reader ran out of input.
	EOF = Exp{Kind: KindEOF}
)

// Number creates a numeric value.
func Number(n float64) Exp {
	return Exp{Kind: KindNumber, Num: n}
}

// NativeExp wraps a native procedure as a value.
func NativeExp(n *Native) Exp {
	return Exp{Kind: KindNative, Native: n}
}

// IsHeap reports whether the value refers to a heap object.
func (e Exp) IsHeap() bool {
	return e.Kind == KindSymbol || e.Kind == KindList || e.Kind == KindProcedure
}

// Truthy returns the boolean interpretation of a value.
// The number 0 is the only falsy value.
func Truthy(e Exp) bool {
	return !(e.Kind == KindNumber && e.Num == 0)
}

// Caller is what a native procedure sees of the running interpreter.
type Caller interface {
	Heap() *Heap
	Apply(proc, args Exp) (Exp, error)
}

// NativeFunc is the signature of a native procedure. args is a list value
// that stays pinned for the duration of the call.
type NativeFunc func(c Caller, args Exp) (Exp, error)

// Native is a procedure implemented in Go.
type Native struct {
	Name string
	Fn   NativeFunc
}
