// Package reader turns source text into heap expressions.
//
// Lists under construction are pinned on the heap's save stack for as long
// as they are being filled, so a collection triggered by a nested allocation
// never reclaims a partially read datum.
package reader

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/thomasrohde/minischeme/pkg/diagnostics"
	"github.com/thomasrohde/minischeme/pkg/heap"
	"github.com/thomasrohde/minischeme/pkg/lexer"
)

// ParseError reports malformed input.
type ParseError struct {
	Message string
	Span    diagnostics.Span
	// Incomplete is set when the input ended inside a datum.
	Incomplete bool
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Span, e.Message)
}

// Diagnostic converts the error into an E_PARSE diagnostic.
func (e *ParseError) Diagnostic() diagnostics.Diagnostic {
	span := e.Span
	return diagnostics.MakeDiag(diagnostics.EParse, e.Message, &span, "")
}

// Reader reads successive data from one source text.
type Reader struct {
	h      *heap.Heap
	tokens []lexer.Token
	pos    int
	spans  []diagnostics.Span
}

// New tokenizes source. Lexing failures are returned as *lexer.LexError.
func New(h *heap.Heap, source, filename string) (*Reader, error) {
	tokens, err := lexer.Tokenize(source, filename)
	if err != nil {
		return nil, err
	}
	return &Reader{h: h, tokens: tokens}, nil
}

func (r *Reader) peek() lexer.Token {
	return r.tokens[r.pos]
}

func (r *Reader) next() lexer.Token {
	tok := r.tokens[r.pos]
	if tok.Type != lexer.TokEOF {
		r.pos++
	}
	return tok
}

// Read returns the next datum, or heap.EOF once the input is exhausted.
// The result is not pinned; callers must save it before allocating.
func (r *Reader) Read() (heap.Exp, error) {
	tok := r.next()
	switch tok.Type {
	case lexer.TokEOF:
		return heap.EOF, nil
	case lexer.TokRParen:
		return heap.Empty, &ParseError{Message: "unexpected ')'", Span: tok.Span}
	case lexer.TokLParen:
		return r.readList(tok)
	case lexer.TokQuote:
		return r.readQuoted(tok)
	default:
		return r.atom(tok), nil
	}
}

func (r *Reader) readList(open lexer.Token) (heap.Exp, error) {
	list := r.h.NewList(0)
	g := r.h.Save(list)
	defer g.Release()

	for {
		switch tok := r.peek(); tok.Type {
		case lexer.TokEOF:
			return heap.Empty, &ParseError{
				Message:    "unexpected end of input: unterminated list",
				Span:       open.Span,
				Incomplete: true,
			}
		case lexer.TokRParen:
			r.next()
			return list, nil
		}
		item, err := r.Read()
		if err != nil {
			return heap.Empty, err
		}
		r.h.Append(list, item)
	}
}

// readQuoted expands 'datum into (quote datum).
func (r *Reader) readQuoted(quote lexer.Token) (heap.Exp, error) {
	if r.peek().Type == lexer.TokEOF {
		return heap.Empty, &ParseError{
			Message:    "unexpected end of input after quote",
			Span:       quote.Span,
			Incomplete: true,
		}
	}
	datum, err := r.Read()
	if err != nil {
		return heap.Empty, err
	}
	g := r.h.Save(datum)
	defer g.Release()
	return r.h.NewListOf(r.h.NewSymbol("quote"), datum), nil
}

func (r *Reader) atom(tok lexer.Token) heap.Exp {
	if n, ok := ParseNumber(tok.Value); ok {
		return heap.Number(n)
	}
	return r.h.NewSymbol(tok.Value)
}

// ParseNumber reports whether text is a numeric literal. Integers accept the
// 0x/0o/0b prefixes; a letter after the optional sign rules a number out, so
// inf and -nan stay symbols.
func ParseNumber(text string) (float64, bool) {
	digits := strings.TrimLeft(text, "+-")
	if first, _ := utf8.DecodeRuneInString(digits); first == utf8.RuneError || unicode.IsLetter(first) {
		return 0, false
	}
	// strconv accepts digit separators; a numeric literal here does not.
	if strings.ContainsRune(text, '_') {
		return 0, false
	}
	if i, err := strconv.ParseInt(text, 0, 64); err == nil {
		return float64(i), true
	}
	if f, err := strconv.ParseFloat(text, 64); err == nil {
		return f, true
	}
	return 0, false
}

// ReadAll reads every remaining datum into a new list.
func (r *Reader) ReadAll() (heap.Exp, error) {
	forms := r.h.NewList(0)
	g := r.h.Save(forms)
	defer g.Release()
	for {
		start := r.peek().Span
		form, err := r.Read()
		if err != nil {
			return heap.Empty, err
		}
		if form.Kind == heap.KindEOF {
			return forms, nil
		}
		r.spans = append(r.spans, start)
		r.h.Append(forms, form)
	}
}

// FormSpans returns the start position of each datum ReadAll returned.
func (r *Reader) FormSpans() []diagnostics.Span {
	return r.spans
}

// Parse reads the first datum of source.
func Parse(h *heap.Heap, source, filename string) (heap.Exp, error) {
	r, err := New(h, source, filename)
	if err != nil {
		return heap.Empty, err
	}
	return r.Read()
}

// Incomplete reports whether source ends inside an unterminated datum, which
// an interactive prompt answers by asking for another line.
func Incomplete(source string) bool {
	tokens, err := lexer.Tokenize(source, "")
	if err != nil {
		return false
	}
	depth := 0
	for i, tok := range tokens {
		switch tok.Type {
		case lexer.TokLParen:
			depth++
		case lexer.TokRParen:
			depth--
			if depth < 0 {
				return false
			}
		case lexer.TokQuote:
			if tokens[i+1].Type == lexer.TokEOF {
				return true
			}
		}
	}
	return depth > 0
}
