package formatter_test

import (
	"strings"
	"testing"

	"github.com/thomasrohde/minischeme/pkg/formatter"
	"github.com/thomasrohde/minischeme/pkg/heap"
	"github.com/thomasrohde/minischeme/pkg/reader"
)

func read(t *testing.T, h *heap.Heap, src string) heap.Exp {
	t.Helper()
	e, err := reader.Parse(h, src, "test.scm")
	if err != nil {
		t.Fatalf("parse %q: %v", src, err)
	}
	return e
}

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{42, "42"},
		{-7, "-7"},
		{3.5, "3.5"},
		{1e20, "1e+20"},
	}
	for _, tt := range tests {
		if got := formatter.FormatNumber(tt.in); got != tt.want {
			t.Errorf("FormatNumber(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatValues(t *testing.T) {
	h := heap.New()
	tests := []struct {
		src  string
		want string
	}{
		{"x", "x"},
		{"(1 2 3)", "(1 2 3)"},
		{"()", "()"},
		{"(a (b (c)) d)", "(a (b (c)) d)"},
		{"'x", "(quote x)"},
	}
	for _, tt := range tests {
		if got := formatter.Format(h, read(t, h, tt.src)); got != tt.want {
			t.Errorf("Format(%s) = %q, want %q", tt.src, got, tt.want)
		}
	}
	if got := formatter.Format(h, heap.Void); got != "<void>" {
		t.Errorf("void = %q", got)
	}
	if got := formatter.Format(h, heap.NativeExp(&heap.Native{Name: "+"})); got != "<native +>" {
		t.Errorf("native = %q", got)
	}
}

func TestPrettyKeepsShortFormsOnOneLine(t *testing.T) {
	h := heap.New()
	e := read(t, h, "(define   x\n  '(1 2))")
	if got := formatter.Pretty(h, e, formatter.DefaultWidth); got != "(define x '(1 2))" {
		t.Errorf("got %q", got)
	}
}

func TestPrettyBreaksLongForms(t *testing.T) {
	h := heap.New()
	e := read(t, h, "(define f (lambda (a b) (if (> a b) (+ a b) (* a b))))")
	got := formatter.Pretty(h, e, 30)
	want := "(define f\n  (lambda (a b)\n    (if (> a b)\n      (+ a b)\n      (* a b))))"
	if got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
	// Output must read back to the same structure.
	back := read(t, h, got)
	if formatter.Format(h, back) != formatter.Format(h, e) {
		t.Error("pretty output does not round-trip")
	}
}

func TestFormatForms(t *testing.T) {
	h := heap.New()
	r, err := reader.New(h, "(define x 1) x", "test.scm")
	if err != nil {
		t.Fatal(err)
	}
	forms, err := r.ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if got := formatter.FormatForms(h, forms); got != "(define x 1)\n\nx\n" {
		t.Errorf("got %q", got)
	}
}

func TestToJSON(t *testing.T) {
	h := heap.New()
	b, err := formatter.ToJSON(h, read(t, h, "(1 2.5 x (y))"))
	if err != nil {
		t.Fatal(err)
	}
	if got := string(b); got != `[1,2.5,"x",["y"]]` {
		t.Errorf("got %s", got)
	}
	b, _ = formatter.ToJSON(h, heap.Void)
	if string(b) != "null" {
		t.Errorf("void = %s", b)
	}
}

func TestHasComments(t *testing.T) {
	if !formatter.HasComments("(a) ; note") {
		t.Error("comment not detected")
	}
	if formatter.HasComments(strings.Repeat("(a)", 3)) {
		t.Error("false positive")
	}
}
