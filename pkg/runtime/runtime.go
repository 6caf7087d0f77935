// Package runtime provides the top-level interpreter orchestrator: one heap,
// one persistent global environment and the evaluator over them.
package runtime

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/thomasrohde/minischeme/pkg/diagnostics"
	"github.com/thomasrohde/minischeme/pkg/evaluator"
	"github.com/thomasrohde/minischeme/pkg/formatter"
	"github.com/thomasrohde/minischeme/pkg/heap"
	"github.com/thomasrohde/minischeme/pkg/lexer"
	"github.com/thomasrohde/minischeme/pkg/reader"
	"github.com/thomasrohde/minischeme/pkg/stdlib"
	"github.com/thomasrohde/minischeme/pkg/validator"
)

// TraceEventType identifies the type of a trace event.
type TraceEventType string

const (
	TraceRunStart TraceEventType = "run_start"
	TraceRunEnd   TraceEventType = "run_end"
	TraceGCStart  TraceEventType = "gc_start"
	TraceGCEnd    TraceEventType = "gc_end"
)

// TraceEvent represents a single trace event emitted during execution.
type TraceEvent struct {
	Timestamp string         `json:"ts"`
	RunID     string         `json:"runId"`
	Event     TraceEventType `json:"event"`
	Data      map[string]any `json:"data,omitempty"`
}

// Result holds the outcome of evaluating a source text.
type Result struct {
	// Value is the last form's value. It is not pinned and is only valid
	// until the next allocation on the runtime's heap.
	Value heap.Exp
	// Text is Value rendered right after evaluation.
	Text string
	// Forms is the number of top-level forms evaluated.
	Forms int
}

// Runtime wires together the interpreter components.
type Runtime struct {
	stdlib   *stdlib.Registry
	runID    string
	trace    func(event TraceEvent)
	heapOpts []heap.Option
	evalOpts []evaluator.Option

	heap   *heap.Heap
	global *heap.Env
	ev     *evaluator.Evaluator
}

// Option is a functional option for configuring the Runtime.
type Option func(*Runtime)

// WithStdlib sets the registry installed in the global environment.
func WithStdlib(r *stdlib.Registry) Option {
	return func(rt *Runtime) {
		rt.stdlib = r
	}
}

// WithRunID sets the run ID for trace events.
func WithRunID(id string) Option {
	return func(rt *Runtime) {
		rt.runID = id
	}
}

// WithTrace sets the trace callback. Collector events are forwarded to it.
func WithTrace(fn func(event TraceEvent)) Option {
	return func(rt *Runtime) {
		rt.trace = fn
	}
}

// WithHeapOptions configures the heap.
func WithHeapOptions(opts ...heap.Option) Option {
	return func(rt *Runtime) {
		rt.heapOpts = append(rt.heapOpts, opts...)
	}
}

// WithEvaluatorOptions configures the evaluator.
func WithEvaluatorOptions(opts ...evaluator.Option) Option {
	return func(rt *Runtime) {
		rt.evalOpts = append(rt.evalOpts, opts...)
	}
}

// New creates a Runtime with the given options. By default the standard
// library is installed.
func New(opts ...Option) *Runtime {
	rt := &Runtime{
		stdlib: stdlib.NewDefault(),
		runID:  "cli",
	}
	for _, opt := range opts {
		opt(rt)
	}

	heapOpts := rt.heapOpts
	if rt.trace != nil {
		heapOpts = append(heapOpts, heap.WithTrace(rt.forwardGC))
	}
	rt.heap = heap.New(heapOpts...)
	rt.global = rt.heap.NewScope(nil)
	// The global frame stays on the active-environment stack for the
	// runtime's lifetime.
	rt.heap.PushEnv(rt.global)
	rt.stdlib.Install(rt.heap, rt.global)
	rt.ev = evaluator.New(rt.heap, rt.evalOpts...)
	return rt
}

func (rt *Runtime) emit(event TraceEventType, data map[string]any) {
	if rt.trace != nil {
		rt.trace(TraceEvent{
			Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
			RunID:     rt.runID,
			Event:     event,
			Data:      data,
		})
	}
}

func (rt *Runtime) forwardGC(e heap.Event) {
	kind := TraceGCStart
	if e.Kind == heap.EventGCEnd {
		kind = TraceGCEnd
	}
	rt.emit(kind, map[string]any{
		"collection": e.Collection,
		"live":       e.Live,
		"bytes":      e.Bytes,
		"freed":      e.Freed,
		"threshold":  e.Threshold,
	})
}

// Heap returns the runtime's heap.
func (rt *Runtime) Heap() *heap.Heap {
	return rt.heap
}

// Global returns the persistent global environment.
func (rt *Runtime) Global() *heap.Env {
	return rt.global
}

// Names returns the names bound in the global environment.
func (rt *Runtime) Names() []string {
	return rt.heap.Names(rt.global)
}

// read tokenizes and reads every form of source, converting failures into
// diagnostics. The returned list is pinned by the returned guard.
func (rt *Runtime) read(source, filename string) (heap.Exp, []diagnostics.Span, heap.Guard, error) {
	r, err := reader.New(rt.heap, source, filename)
	if err != nil {
		return heap.Empty, nil, heap.Guard{}, asDiagnosticError(err)
	}
	forms, err := r.ReadAll()
	if err != nil {
		return heap.Empty, nil, heap.Guard{}, asDiagnosticError(err)
	}
	return forms, r.FormSpans(), rt.heap.Save(forms), nil
}

// Run reads source and evaluates each top-level form in order against the
// global environment. Read failures are returned as *DiagnosticError,
// evaluation failures as *evaluator.RuntimeError; definitions made before a
// failing form persist.
func (rt *Runtime) Run(source, filename string) (*Result, error) {
	forms, _, g, err := rt.read(source, filename)
	if err != nil {
		return nil, err
	}
	defer g.Release()

	n := rt.heap.Len(forms)
	rt.emit(TraceRunStart, map[string]any{"file": filename, "forms": n})
	res := &Result{Value: heap.Void, Text: formatter.Format(rt.heap, heap.Void)}
	for i := 0; i < n; i++ {
		v, err := rt.ev.Eval(rt.heap.At(forms, i), rt.global)
		if err != nil {
			rt.emit(TraceRunEnd, rt.endData(res.Forms, err))
			return res, err
		}
		res.Value = v
		res.Text = formatter.Format(rt.heap, v)
		res.Forms++
	}
	rt.emit(TraceRunEnd, rt.endData(res.Forms, nil))
	return res, nil
}

func (rt *Runtime) endData(forms int, err error) map[string]any {
	st := rt.heap.Stats()
	ev := rt.ev.Stats()
	data := map[string]any{
		"forms":       forms,
		"live":        st.Live,
		"bytes":       st.Bytes,
		"collections": st.Collections,
		"freed":       st.Freed,
		"peakDepth":   ev.PeakDepth,
		"calls":       ev.Calls,
	}
	if err != nil {
		var rerr *evaluator.RuntimeError
		if errors.As(err, &rerr) {
			data["error"] = rerr.Code
		}
	}
	return data
}

// Check reads and validates source without evaluating it. Names already
// bound in the global environment count as defined.
func (rt *Runtime) Check(source, filename string) []diagnostics.Diagnostic {
	forms, spans, g, err := rt.read(source, filename)
	if err != nil {
		var derr *DiagnosticError
		if errors.As(err, &derr) {
			return derr.Diagnostics
		}
		return []diagnostics.Diagnostic{diagnostics.MakeDiag(diagnostics.EParse, err.Error(), nil, "")}
	}
	defer g.Release()
	return validator.Validate(rt.heap, forms, validator.Options{
		Spans: spans,
		Globals: func(name string) bool {
			_, ok := rt.heap.Lookup(rt.global, name)
			return ok
		},
	})
}

// Format reads source and pretty-prints its forms.
func (rt *Runtime) Format(source, filename string) (string, error) {
	forms, _, g, err := rt.read(source, filename)
	if err != nil {
		return "", err
	}
	defer g.Release()
	return formatter.FormatForms(rt.heap, forms), nil
}

func asDiagnosticError(err error) error {
	var lerr *lexer.LexError
	if errors.As(err, &lerr) {
		return &DiagnosticError{Diagnostics: []diagnostics.Diagnostic{lerr.Diag}}
	}
	var perr *reader.ParseError
	if errors.As(err, &perr) {
		return &DiagnosticError{Diagnostics: []diagnostics.Diagnostic{perr.Diagnostic()}, Incomplete: perr.Incomplete}
	}
	return err
}

// DiagnosticError wraps diagnostics as an error.
type DiagnosticError struct {
	Diagnostics []diagnostics.Diagnostic
	// Incomplete is set when the source ended inside a datum.
	Incomplete bool
}

func (e *DiagnosticError) Error() string {
	msgs := make([]string, len(e.Diagnostics))
	for i, d := range e.Diagnostics {
		msgs[i] = fmt.Sprintf("%s: %s", d.Code, d.Message)
	}
	return strings.Join(msgs, "; ")
}
