// Package diagnostics defines the error codes and diagnostic formatting shared
// by the reader, validator, evaluator and CLI.
package diagnostics

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Diagnostic code constants.
const (
	ELex        = "E_LEX"
	EParse      = "E_PARSE"
	ESyntax     = "E_SYNTAX"
	EUnbound    = "E_UNBOUND"
	EDupBinding = "E_DUP_BINDING"
	EType       = "E_TYPE"
	ENotProc    = "E_NOT_PROC"
	EArity      = "E_ARITY"
	EFn         = "E_FN"
	EDepth      = "E_DEPTH"
	EIO         = "E_IO"
)

// Span locates a diagnostic in source text. Lines and columns are 1-based.
type Span struct {
	File string `json:"file"`
	Line int    `json:"line"`
	Col  int    `json:"col"`
}

func (s Span) String() string {
	return fmt.Sprintf("%s:%d:%d", s.File, s.Line, s.Col)
}

// Diagnostic represents a parse, validation, or runtime diagnostic.
type Diagnostic struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Span    *Span  `json:"span,omitempty"`
	Hint    string `json:"hint,omitempty"`
}

// MakeDiag creates a new Diagnostic.
func MakeDiag(code, message string, span *Span, hint string) Diagnostic {
	return Diagnostic{
		Code:    code,
		Message: message,
		Span:    span,
		Hint:    hint,
	}
}

// FormatDiagnostic formats a single diagnostic for display.
func FormatDiagnostic(d Diagnostic, pretty bool) string {
	if !pretty {
		b, _ := json.Marshal(d)
		return string(b)
	}
	loc := "<unknown>"
	if d.Span != nil {
		loc = d.Span.String()
	}
	out := fmt.Sprintf("error[%s]: %s\n  --> %s", d.Code, d.Message, loc)
	if d.Hint != "" {
		out += fmt.Sprintf("\n  hint: %s", d.Hint)
	}
	return out
}

// FormatDiagnostics formats a slice of diagnostics for display.
func FormatDiagnostics(diags []Diagnostic, pretty bool) string {
	if !pretty {
		b, _ := json.Marshal(diags)
		return string(b)
	}
	parts := make([]string, len(diags))
	for i, d := range diags {
		parts[i] = FormatDiagnostic(d, true)
	}
	return strings.Join(parts, "\n\n")
}
