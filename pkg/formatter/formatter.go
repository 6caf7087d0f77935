// Package formatter renders heap values as S-expressions and pretty-prints
// source forms.
package formatter

import (
	"math"
	"strconv"
	"strings"

	"github.com/thomasrohde/minischeme/pkg/heap"
)

const indent = "  "

// DefaultWidth is the line width Pretty tries to stay within.
const DefaultWidth = 72

// FormatNumber prints integral values without a decimal point.
func FormatNumber(n float64) string {
	if n == math.Trunc(n) && math.Abs(n) < 1e15 {
		return strconv.FormatInt(int64(n), 10)
	}
	return strconv.FormatFloat(n, 'g', -1, 64)
}

// Format renders a value on one line.
func Format(h *heap.Heap, e heap.Exp) string {
	var sb strings.Builder
	write(&sb, h, e, false)
	return sb.String()
}

func write(sb *strings.Builder, h *heap.Heap, e heap.Exp, quoteSugar bool) {
	switch e.Kind {
	case heap.KindEmpty:
	case heap.KindVoid:
		sb.WriteString("<void>")
	case heap.KindEOF:
		sb.WriteString("<eof>")
	case heap.KindNumber:
		sb.WriteString(FormatNumber(e.Num))
	case heap.KindSymbol:
		sb.WriteString(h.SymbolName(e))
	case heap.KindNative:
		sb.WriteString("<native ")
		sb.WriteString(e.Native.Name)
		sb.WriteString(">")
	case heap.KindProcedure:
		params, _, _ := h.Procedure(e)
		sb.WriteString("<procedure ")
		write(sb, h, params, false)
		sb.WriteString(">")
	case heap.KindList:
		if quoteSugar {
			if datum, ok := quoted(h, e); ok {
				sb.WriteString("'")
				write(sb, h, datum, true)
				return
			}
		}
		sb.WriteString("(")
		for i, n := 0, h.Len(e); i < n; i++ {
			if i > 0 {
				sb.WriteString(" ")
			}
			write(sb, h, h.At(e, i), quoteSugar)
		}
		sb.WriteString(")")
	}
}

// quoted recognizes (quote datum).
func quoted(h *heap.Heap, e heap.Exp) (heap.Exp, bool) {
	if h.Len(e) != 2 {
		return heap.Empty, false
	}
	head := h.At(e, 0)
	if head.Kind != heap.KindSymbol || h.SymbolName(head) != "quote" {
		return heap.Empty, false
	}
	return h.At(e, 1), true
}

// Pretty renders a source form, breaking lists that do not fit in width
// columns onto indented lines. (quote x) is printed as 'x.
func Pretty(h *heap.Heap, e heap.Exp, width int) string {
	var sb strings.Builder
	pretty(&sb, h, e, 0, width)
	return sb.String()
}

func flat(h *heap.Heap, e heap.Exp) string {
	var sb strings.Builder
	write(&sb, h, e, true)
	return sb.String()
}

func pretty(sb *strings.Builder, h *heap.Heap, e heap.Exp, depth, width int) {
	one := flat(h, e)
	if e.Kind != heap.KindList || len(one)+depth*len(indent) <= width || h.Len(e) < 2 {
		sb.WriteString(one)
		return
	}
	if datum, ok := quoted(h, e); ok {
		sb.WriteString("'")
		pretty(sb, h, datum, depth, width)
		return
	}

	// Keep the head and, for binding forms, the first operand on the opening line.
	head := h.At(e, 0)
	inline := 1
	if head.Kind == heap.KindSymbol {
		switch h.SymbolName(head) {
		case "define", "set!", "lambda", "if":
			inline = 2
		}
	}
	if inline > h.Len(e) {
		inline = h.Len(e)
	}

	sb.WriteString("(")
	for i := 0; i < inline; i++ {
		if i > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString(flat(h, h.At(e, i)))
	}
	pad := strings.Repeat(indent, depth+1)
	for i := inline; i < h.Len(e); i++ {
		sb.WriteString("\n")
		sb.WriteString(pad)
		pretty(sb, h, h.At(e, i), depth+1, width)
	}
	sb.WriteString(")")
}

// FormatForms pretty-prints a list of top-level forms, one per paragraph,
// with a trailing newline.
func FormatForms(h *heap.Heap, forms heap.Exp) string {
	n := h.Len(forms)
	parts := make([]string, n)
	for i := 0; i < n; i++ {
		parts[i] = Pretty(h, h.At(forms, i), DefaultWidth)
	}
	if n == 0 {
		return ""
	}
	return strings.Join(parts, "\n\n") + "\n"
}

// HasComments reports whether source contains comments, which the
// formatter does not preserve.
func HasComments(source string) bool {
	return strings.Contains(source, ";")
}
