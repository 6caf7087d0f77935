// Package evaluator implements the recursive eval/apply core over heap values.
//
// Every value the evaluator holds across an allocation is either reachable
// from a pinned root or pinned explicitly with heap.Save; every procedure
// frame is pushed on the active-environment stack for the duration of its
// body.
package evaluator

import (
	"errors"
	"fmt"

	"github.com/thomasrohde/minischeme/pkg/diagnostics"
	"github.com/thomasrohde/minischeme/pkg/formatter"
	"github.com/thomasrohde/minischeme/pkg/heap"
)

// RuntimeError represents a fatal error during evaluation.
type RuntimeError struct {
	Code    string
	Message string
}

func (e *RuntimeError) Error() string {
	return e.Message
}

// Diagnostic converts the error for reporting.
func (e *RuntimeError) Diagnostic() diagnostics.Diagnostic {
	return diagnostics.MakeDiag(e.Code, e.Message, nil, "")
}

// Errorf builds a RuntimeError with a formatted message.
func Errorf(code, format string, args ...any) *RuntimeError {
	return &RuntimeError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithMaxDepth sets the nesting limit; 0 disables it.
func WithMaxDepth(n int) Option {
	return func(ev *Evaluator) {
		ev.budget.MaxDepth = n
	}
}

// WithArityCheck controls whether calling a user procedure with the wrong
// number of arguments is an error. When off, surplus arguments are ignored
// and missing parameters stay unbound.
func WithArityCheck(on bool) Option {
	return func(ev *Evaluator) {
		ev.checkArity = on
	}
}

// Evaluator evaluates expressions against a heap. It is not safe for
// concurrent use.
type Evaluator struct {
	heap       *heap.Heap
	budget     Budget
	tracker    Tracker
	checkArity bool
}

// New creates an evaluator over h.
func New(h *heap.Heap, opts ...Option) *Evaluator {
	ev := &Evaluator{
		heap:       h,
		budget:     Budget{MaxDepth: DefaultMaxDepth},
		checkArity: true,
	}
	for _, opt := range opts {
		opt(ev)
	}
	return ev
}

// Heap returns the heap the evaluator allocates from.
func (ev *Evaluator) Heap() *heap.Heap {
	return ev.heap
}

// Stats returns the evaluator's consumption counters.
func (ev *Evaluator) Stats() Tracker {
	return ev.tracker
}

// Eval evaluates x in env. x must be reachable from a root and env must be
// on the active-environment stack. The result is not pinned.
func (ev *Evaluator) Eval(x heap.Exp, env *heap.Env) (heap.Exp, error) {
	if err := ev.enter(); err != nil {
		return heap.Empty, err
	}
	defer ev.leave()

	switch x.Kind {
	case heap.KindSymbol:
		name := ev.heap.SymbolName(x)
		v, ok := ev.heap.Lookup(env, name)
		if !ok {
			return heap.Empty, Errorf(diagnostics.EUnbound, "unbound symbol '%s'", name)
		}
		return v, nil
	case heap.KindList:
		return ev.evalList(x, env)
	default:
		return x, nil
	}
}

func (ev *Evaluator) evalList(x heap.Exp, env *heap.Env) (heap.Exp, error) {
	h := ev.heap
	n := h.Len(x)
	if n == 0 {
		return heap.Empty, Errorf(diagnostics.ESyntax, "cannot evaluate the empty list")
	}

	if head := h.At(x, 0); head.Kind == heap.KindSymbol {
		switch h.SymbolName(head) {
		case "quote":
			return ev.evalQuote(x, n)
		case "if":
			return ev.evalIf(x, n, env)
		case "define":
			return ev.evalDefine(x, n, env)
		case "set!":
			return ev.evalSet(x, n, env)
		case "lambda":
			return ev.evalLambda(x, n, env)
		}
	}
	return ev.evalApplication(x, n, env)
}

func (ev *Evaluator) evalQuote(x heap.Exp, n int) (heap.Exp, error) {
	if n != 2 {
		return heap.Empty, Errorf(diagnostics.ESyntax, "quote expects 1 operand, got %d", n-1)
	}
	return ev.heap.At(x, 1), nil
}

func (ev *Evaluator) evalIf(x heap.Exp, n int, env *heap.Env) (heap.Exp, error) {
	if n != 3 && n != 4 {
		return heap.Empty, Errorf(diagnostics.ESyntax, "if expects 2 or 3 operands, got %d", n-1)
	}
	cond, err := ev.Eval(ev.heap.At(x, 1), env)
	if err != nil {
		return heap.Empty, err
	}
	if heap.Truthy(cond) {
		return ev.Eval(ev.heap.At(x, 2), env)
	}
	if n == 4 {
		return ev.Eval(ev.heap.At(x, 3), env)
	}
	return heap.Void, nil
}

func (ev *Evaluator) bindingTarget(form string, x heap.Exp, n int) (heap.Exp, error) {
	if n != 3 {
		return heap.Empty, Errorf(diagnostics.ESyntax, "%s expects 2 operands, got %d", form, n-1)
	}
	target := ev.heap.At(x, 1)
	if target.Kind != heap.KindSymbol {
		return heap.Empty, Errorf(diagnostics.ESyntax, "%s target must be a symbol, got %s", form, target.Kind)
	}
	return target, nil
}

func (ev *Evaluator) evalDefine(x heap.Exp, n int, env *heap.Env) (heap.Exp, error) {
	target, err := ev.bindingTarget("define", x, n)
	if err != nil {
		return heap.Empty, err
	}
	value, err := ev.Eval(ev.heap.At(x, 2), env)
	if err != nil {
		return heap.Empty, err
	}
	ev.heap.Define(env, target, value)
	return heap.Void, nil
}

func (ev *Evaluator) evalSet(x heap.Exp, n int, env *heap.Env) (heap.Exp, error) {
	target, err := ev.bindingTarget("set!", x, n)
	if err != nil {
		return heap.Empty, err
	}
	value, err := ev.Eval(ev.heap.At(x, 2), env)
	if err != nil {
		return heap.Empty, err
	}
	if !ev.heap.Assign(env, target, value) {
		return heap.Empty, Errorf(diagnostics.EUnbound, "set! of unbound symbol '%s'", ev.heap.SymbolName(target))
	}
	return heap.Void, nil
}

func (ev *Evaluator) evalLambda(x heap.Exp, n int, env *heap.Env) (heap.Exp, error) {
	h := ev.heap
	if n < 3 {
		return heap.Empty, Errorf(diagnostics.ESyntax, "lambda expects a parameter list and a body")
	}
	params := h.At(x, 1)
	if params.Kind != heap.KindList {
		return heap.Empty, Errorf(diagnostics.ESyntax, "lambda parameters must be a list, got %s", params.Kind)
	}
	for i, m := 0, h.Len(params); i < m; i++ {
		if p := h.At(params, i); p.Kind != heap.KindSymbol {
			return heap.Empty, Errorf(diagnostics.ESyntax, "lambda parameter %d must be a symbol, got %s", i+1, p.Kind)
		}
	}
	body := h.Slice(x, 2, n)
	return h.NewProcedure(params, body, env), nil
}

func (ev *Evaluator) evalApplication(x heap.Exp, n int, env *heap.Env) (heap.Exp, error) {
	h := ev.heap
	proc, err := ev.Eval(h.At(x, 0), env)
	if err != nil {
		return heap.Empty, err
	}
	if proc.Kind != heap.KindNative && proc.Kind != heap.KindProcedure {
		return heap.Empty, Errorf(diagnostics.ENotProc, "not a procedure: %s", formatter.Format(h, proc))
	}
	pg := h.Save(proc)
	defer pg.Release()

	args := h.NewList(n - 1)
	ag := h.Save(args)
	defer ag.Release()
	for i := 1; i < n; i++ {
		v, err := ev.Eval(h.At(x, i), env)
		if err != nil {
			return heap.Empty, err
		}
		h.Append(args, v)
	}
	return ev.Apply(proc, args)
}

// Apply calls proc with the argument list args. Both must be reachable from
// a root for the duration of the call.
func (ev *Evaluator) Apply(proc, args heap.Exp) (heap.Exp, error) {
	h := ev.heap
	switch proc.Kind {
	case heap.KindNative:
		v, err := proc.Native.Fn(ev, args)
		if err != nil {
			var rerr *RuntimeError
			if errors.As(err, &rerr) {
				return heap.Empty, rerr
			}
			return heap.Empty, Errorf(diagnostics.EFn, "%s: %s", proc.Native.Name, err.Error())
		}
		return v, nil
	case heap.KindProcedure:
		return ev.call(proc, args)
	}
	return heap.Empty, Errorf(diagnostics.ENotProc, "not a procedure: %s", formatter.Format(h, proc))
}

func (ev *Evaluator) call(proc, args heap.Exp) (heap.Exp, error) {
	h := ev.heap
	params, body, captured := h.Procedure(proc)
	np, na := h.Len(params), h.Len(args)
	if ev.checkArity && np != na {
		return heap.Empty, Errorf(diagnostics.EArity, "procedure %s expects %d arguments, got %d",
			formatter.Format(h, params), np, na)
	}
	ev.tracker.Calls++

	g := h.Save(proc, args)
	defer g.Release()
	frame := h.NewScope(captured)
	fg := h.PushEnv(frame)
	defer fg.Release()

	for i := 0; i < np && i < na; i++ {
		h.Define(frame, h.At(params, i), h.At(args, i))
	}

	result := heap.Void
	for i, m := 0, h.Len(body); i < m; i++ {
		v, err := ev.Eval(h.At(body, i), frame)
		if err != nil {
			return heap.Empty, err
		}
		result = v
	}
	return result, nil
}
