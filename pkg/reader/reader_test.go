package reader_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/thomasrohde/minischeme/pkg/formatter"
	"github.com/thomasrohde/minischeme/pkg/heap"
	"github.com/thomasrohde/minischeme/pkg/lexer"
	"github.com/thomasrohde/minischeme/pkg/reader"
)

func TestReadData(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"42", "42"},
		{"-3.5", "-3.5"},
		{"foo", "foo"},
		{"(1 2 3)", "(1 2 3)"},
		{"(a (b c) ())", "(a (b c) ())"},
		{"'x", "(quote x)"},
		{"'(1 'y)", "(quote (1 (quote y)))"},
		{"  ; leading comment\n(+ 1 2) ; trailing", "(+ 1 2)"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			h := heap.New()
			e, err := reader.Parse(h, tt.src, "test.scm")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := formatter.Format(h, e); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		text string
		want float64
		ok   bool
	}{
		{"0", 0, true},
		{"17", 17, true},
		{"-4", -4, true},
		{"+4", 4, true},
		{"2.5e3", 2500, true},
		{"0x10", 16, true},
		{"inf", 0, false},
		{"-nan", 0, false},
		{"+", 0, false},
		{"-", 0, false},
		{"1+", 0, false},
		{"abc", 0, false},
		{"1_000", 0, false},
		{"0x1_0", 0, false},
	}
	for _, tt := range tests {
		got, ok := reader.ParseNumber(tt.text)
		if ok != tt.ok || (ok && got != tt.want) {
			t.Errorf("ParseNumber(%q) = %v, %v; want %v, %v", tt.text, got, ok, tt.want, tt.ok)
		}
	}
}

func TestReadEOF(t *testing.T) {
	h := heap.New()
	r, err := reader.New(h, "  ; only a comment\n", "test.scm")
	if err != nil {
		t.Fatal(err)
	}
	e, err := r.Read()
	if err != nil {
		t.Fatal(err)
	}
	if e.Kind != heap.KindEOF {
		t.Errorf("kind = %v, want eof", e.Kind)
	}
}

func TestReadErrors(t *testing.T) {
	tests := []struct {
		src        string
		msg        string
		incomplete bool
	}{
		{")", "unexpected ')'", false},
		{"(1 2", "unterminated list", true},
		{"((a)", "unterminated list", true},
		{"'", "after quote", true},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			h := heap.New()
			_, err := reader.Parse(h, tt.src, "test.scm")
			var pe *reader.ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("expected *ParseError, got %v", err)
			}
			if !strings.Contains(pe.Message, tt.msg) {
				t.Errorf("message %q does not contain %q", pe.Message, tt.msg)
			}
			if pe.Incomplete != tt.incomplete {
				t.Errorf("incomplete = %v, want %v", pe.Incomplete, tt.incomplete)
			}
			if d := pe.Diagnostic(); d.Code != "E_PARSE" {
				t.Errorf("code = %s", d.Code)
			}
		})
	}
}

func TestReadLexError(t *testing.T) {
	h := heap.New()
	_, err := reader.Parse(h, "(a \x01)", "test.scm")
	var le *lexer.LexError
	if !errors.As(err, &le) {
		t.Fatalf("expected *lexer.LexError, got %v", err)
	}
}

func TestReadAll(t *testing.T) {
	h := heap.New()
	r, err := reader.New(h, "(define x 1)\n'x\n7", "test.scm")
	if err != nil {
		t.Fatal(err)
	}
	forms, err := r.ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if got := formatter.Format(h, forms); got != "((define x 1) (quote x) 7)" {
		t.Errorf("got %s", got)
	}
}

// Reading a long literal allocates well past the collection threshold; the
// partially built list must survive every collection.
func TestReadLargeLiteralUnderCollection(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("(")
	for i := 0; i < 10000; i++ {
		sb.WriteString(" s")
		sb.WriteString(strings.Repeat("x", i%7))
	}
	sb.WriteString(")")
	src := sb.String()

	tests := []struct {
		name string
		opts []heap.Option
	}{
		{"low threshold", []heap.Option{heap.WithThreshold(2048)}},
		{"stress", []heap.Option{heap.WithStress(true)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := heap.New(tt.opts...)
			e, err := reader.Parse(h, src, "big.scm")
			if err != nil {
				t.Fatal(err)
			}
			g := h.Save(e)
			defer g.Release()
			if h.Stats().Collections == 0 {
				t.Fatal("no collection ran")
			}
			if n := h.Len(e); n != 10000 {
				t.Fatalf("length = %d", n)
			}
			for i := 0; i < 10000; i++ {
				want := "s" + strings.Repeat("x", i%7)
				if got := h.SymbolName(h.At(e, i)); got != want {
					t.Fatalf("element %d = %q, want %q", i, got, want)
				}
			}
			if h.SaveDepth() != 1 {
				t.Errorf("save depth = %d, want 1", h.SaveDepth())
			}
		})
	}
}

func TestIncomplete(t *testing.T) {
	tests := []struct {
		src  string
		want bool
	}{
		{"(define x", true},
		{"(a (b)", true},
		{"'", true},
		{"(a)", false},
		{"x", false},
		{")(", false},
		{"(a ; )", true},
	}
	for _, tt := range tests {
		if got := reader.Incomplete(tt.src); got != tt.want {
			t.Errorf("Incomplete(%q) = %v, want %v", tt.src, got, tt.want)
		}
	}
}
