package runtime_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/thomasrohde/minischeme/pkg/evaluator"
	"github.com/thomasrohde/minischeme/pkg/heap"
	"github.com/thomasrohde/minischeme/pkg/runtime"
)

func TestRunPersistsGlobals(t *testing.T) {
	rt := runtime.New()
	if _, err := rt.Run("(define x 5)", "a.scm"); err != nil {
		t.Fatal(err)
	}
	res, err := rt.Run("(set! x (+ x 1)) x", "b.scm")
	if err != nil {
		t.Fatal(err)
	}
	if res.Text != "6" || res.Forms != 2 {
		t.Errorf("result = %+v", res)
	}
}

func TestRunUnicodeSource(t *testing.T) {
	tests := []struct {
		src, want string
	}{
		{"; café comment\n(+ 1 2)", "3"},
		{"(define λ 3) λ", "3"},
		{"(define 1_000 7) (+ 1_000 1)", "8"},
	}
	for _, tt := range tests {
		res, err := runtime.New().Run(tt.src, "u.scm")
		if err != nil {
			t.Errorf("Run(%q): %v", tt.src, err)
			continue
		}
		if res.Text != tt.want {
			t.Errorf("Run(%q) = %s, want %s", tt.src, res.Text, tt.want)
		}
	}
}

func TestRunEmptySource(t *testing.T) {
	res, err := runtime.New().Run("; nothing\n", "empty.scm")
	if err != nil {
		t.Fatal(err)
	}
	if res.Forms != 0 || res.Text != "<void>" {
		t.Errorf("result = %+v", res)
	}
}

func TestRunParseErrors(t *testing.T) {
	tests := []struct {
		src        string
		code       string
		incomplete bool
	}{
		{"(+ 1", "E_PARSE", true},
		{")", "E_PARSE", false},
		{"(a \x02)", "E_LEX", false},
	}
	for _, tt := range tests {
		_, err := runtime.New().Run(tt.src, "bad.scm")
		var derr *runtime.DiagnosticError
		if !errors.As(err, &derr) {
			t.Fatalf("%q: expected DiagnosticError, got %v", tt.src, err)
		}
		if derr.Diagnostics[0].Code != tt.code || derr.Incomplete != tt.incomplete {
			t.Errorf("%q: got %s incomplete=%v", tt.src, derr.Diagnostics[0].Code, derr.Incomplete)
		}
	}
}

func TestRunRuntimeErrorKeepsEarlierDefinitions(t *testing.T) {
	rt := runtime.New()
	res, err := rt.Run("(define a 1) (car '()) (define b 2)", "err.scm")
	var rerr *evaluator.RuntimeError
	if !errors.As(err, &rerr) || rerr.Code != "E_TYPE" {
		t.Fatalf("got %v", err)
	}
	if res.Forms != 1 {
		t.Errorf("forms evaluated = %d, want 1", res.Forms)
	}
	if got, err := rt.Run("a", "x.scm"); err != nil || got.Text != "1" {
		t.Errorf("a = %v, %v", got, err)
	}
	if _, err := rt.Run("b", "x.scm"); err == nil {
		t.Error("b should be unbound")
	}
	if d := rt.Heap().SaveDepth(); d != 0 {
		t.Errorf("save depth = %d", d)
	}
}

func TestTraceEvents(t *testing.T) {
	var events []runtime.TraceEvent
	rt := runtime.New(
		runtime.WithRunID("test-run"),
		runtime.WithHeapOptions(heap.WithThreshold(1024)),
		runtime.WithTrace(func(e runtime.TraceEvent) { events = append(events, e) }),
	)
	if _, err := rt.Run("(define build (lambda (n) (if (= n 0) '() (cons n (build (- n 1)))))) (length (build 50))", "t.scm"); err != nil {
		t.Fatal(err)
	}
	counts := make(map[runtime.TraceEventType]int)
	for _, e := range events {
		if e.RunID != "test-run" || e.Timestamp == "" {
			t.Fatalf("bad event header: %+v", e)
		}
		counts[e.Event]++
	}
	if counts[runtime.TraceRunStart] != 1 || counts[runtime.TraceRunEnd] != 1 {
		t.Errorf("run events = %v", counts)
	}
	if counts[runtime.TraceGCStart] == 0 || counts[runtime.TraceGCStart] != counts[runtime.TraceGCEnd] {
		t.Errorf("gc events = %v", counts)
	}
	last := events[len(events)-1]
	if last.Event != runtime.TraceRunEnd || last.Data["forms"] != 2 {
		t.Errorf("last event = %+v", last)
	}
}

func TestCheck(t *testing.T) {
	rt := runtime.New()
	if diags := rt.Check("(define f (lambda (x) (+ x 1))) (f 2)", "ok.scm"); len(diags) != 0 {
		t.Errorf("unexpected diagnostics: %v", diags)
	}
	diags := rt.Check("(g 1)", "bad.scm")
	if len(diags) != 1 || diags[0].Code != "E_UNBOUND" {
		t.Errorf("diagnostics = %v", diags)
	}
	diags = rt.Check("(", "bad.scm")
	if len(diags) != 1 || diags[0].Code != "E_PARSE" {
		t.Errorf("diagnostics = %v", diags)
	}
	// Check never evaluates.
	rt.Check("(define never 1)", "x.scm")
	if _, err := rt.Run("never", "x.scm"); err == nil {
		t.Error("check evaluated its input")
	}
}

func TestCheckSeesRuntimeGlobals(t *testing.T) {
	rt := runtime.New()
	if _, err := rt.Run("(define helper 1)", "a.scm"); err != nil {
		t.Fatal(err)
	}
	if diags := rt.Check("helper", "b.scm"); len(diags) != 0 {
		t.Errorf("unexpected diagnostics: %v", diags)
	}
}

func TestFormat(t *testing.T) {
	out, err := runtime.New().Format("(define   x   '(1  2))\n(  display x )", "f.scm")
	if err != nil {
		t.Fatal(err)
	}
	if out != "(define x '(1 2))\n\n(display x)\n" {
		t.Errorf("got %q", out)
	}
}

func TestStressedRuntime(t *testing.T) {
	rt := runtime.New(runtime.WithHeapOptions(heap.WithStress(true)))
	res, err := rt.Run(`
(define x 1)
(define f (lambda () x))
((lambda () (define x 99) (f)))`, "s.scm")
	if err != nil {
		t.Fatal(err)
	}
	if res.Text != "1" {
		t.Errorf("got %s", res.Text)
	}
}

func TestEvaluatorOptions(t *testing.T) {
	rt := runtime.New(runtime.WithEvaluatorOptions(evaluator.WithMaxDepth(50)))
	_, err := rt.Run("(define f (lambda (n) (f n))) (f 1)", "d.scm")
	if err == nil || !strings.Contains(err.Error(), "depth") {
		t.Errorf("got %v", err)
	}
}

func TestNamesIncludeStdlib(t *testing.T) {
	names := runtime.New().Names()
	joined := " " + strings.Join(names, " ") + " "
	for _, want := range []string{"car", "cdr", "pi", "gc"} {
		if !strings.Contains(joined, " "+want+" ") {
			t.Errorf("missing %s in %v", want, names)
		}
	}
}
