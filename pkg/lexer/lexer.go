// Package lexer implements the S-expression tokenizer.
package lexer

import (
	"strings"

	plexer "github.com/alecthomas/participle/lexer"
	"github.com/alecthomas/participle/lexer/ebnf"

	"github.com/thomasrohde/minischeme/pkg/diagnostics"
)

// TokenType identifies the type of a lexer token.
type TokenType int

const (
	TokLParen TokenType = iota // (
	TokRParen                  // )
	TokQuote                   // '
	TokAtom                    // number or symbol text
	TokEOF
)

var tokenNames = map[TokenType]string{
	TokLParen: "'('",
	TokRParen: "')'",
	TokQuote:  "quote",
	TokAtom:   "atom",
	TokEOF:    "end of input",
}

func (t TokenType) String() string {
	return tokenNames[t]
}

// Token represents a single lexer token.
type Token struct {
	Type  TokenType
	Value string
	Span  diagnostics.Span
}

// Atoms are runs of printable ASCII other than parentheses, quote and ';',
// plus any non-ASCII rune. Comments run from ';' to the end of the line.
var definition = plexer.Must(ebnf.New(`
	Whitespace = ( " " | "\t" | "\n" | "\r" ) { " " | "\t" | "\n" | "\r" } .
	Comment = ";" { commentchar } .
	LParen = "(" .
	RParen = ")" .
	Quote = "'" .
	Atom = atomchar { atomchar } .
	commentchar = " "…"~" | "\t" | "\u0080"…"\U0010FFFF" .
	atomchar = "!"…"&" | "*"…":" | "<"…"~" | "\u0080"…"\U0010FFFF" .
`))

var (
	symbols       = definition.Symbols()
	symWhitespace = symbols["Whitespace"]
	symComment    = symbols["Comment"]
	symLParen     = symbols["LParen"]
	symRParen     = symbols["RParen"]
	symQuote      = symbols["Quote"]
	symAtom       = symbols["Atom"]
)

// LexError wraps a diagnostic for lex errors.
type LexError struct {
	Diag diagnostics.Diagnostic
}

func (e *LexError) Error() string {
	return e.Diag.Message
}

func lexError(span diagnostics.Span, msg string) error {
	return &LexError{Diag: diagnostics.MakeDiag(diagnostics.ELex, msg, &span, "")}
}

// Tokenize breaks source code into a slice of tokens ending with TokEOF.
// Whitespace and comments are dropped.
func Tokenize(source, filename string) ([]Token, error) {
	lex, err := definition.Lex(strings.NewReader(source))
	if err != nil {
		return nil, lexError(diagnostics.Span{File: filename, Line: 1, Col: 1}, err.Error())
	}

	var tokens []Token
	last := diagnostics.Span{File: filename, Line: 1, Col: 1}
	for {
		tok, err := lex.Next()
		if err != nil {
			return nil, lexError(last, err.Error())
		}
		span := diagnostics.Span{File: filename, Line: tok.Pos.Line, Col: tok.Pos.Column}
		last = span

		var typ TokenType
		switch tok.Type {
		case plexer.EOF:
			return append(tokens, Token{Type: TokEOF, Span: span}), nil
		case symWhitespace, symComment:
			continue
		case symLParen:
			typ = TokLParen
		case symRParen:
			typ = TokRParen
		case symQuote:
			typ = TokQuote
		case symAtom:
			typ = TokAtom
		default:
			return nil, lexError(span, "unexpected token "+tok.Value)
		}
		tokens = append(tokens, Token{Type: typ, Value: tok.Value, Span: span})
	}
}
