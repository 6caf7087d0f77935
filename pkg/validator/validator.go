// Package validator implements static checks over read source forms.
package validator

import (
	"fmt"

	"github.com/thomasrohde/minischeme/pkg/diagnostics"
	"github.com/thomasrohde/minischeme/pkg/formatter"
	"github.com/thomasrohde/minischeme/pkg/heap"
)

// Options configures validation.
type Options struct {
	// Spans holds the start position of each top-level form, if known.
	Spans []diagnostics.Span
	// Globals reports names already bound in the environment the forms will
	// be evaluated in.
	Globals func(name string) bool
}

// scope tracks one body: bound holds names bound so far, declared every name
// the body defines anywhere. Nested lambdas run later, so they may refer to
// declared names; the body itself only to bound ones.
type scope struct {
	bound    map[string]bool
	declared map[string]bool
	parent   *scope
}

func newScope(parent *scope) *scope {
	return &scope{bound: make(map[string]bool), declared: make(map[string]bool), parent: parent}
}

func (s *scope) has(name string) bool {
	if s.bound[name] {
		return true
	}
	for p := s.parent; p != nil; p = p.parent {
		if p.bound[name] || p.declared[name] {
			return true
		}
	}
	return false
}

type validator struct {
	h       *heap.Heap
	opts    Options
	diags   []diagnostics.Diagnostic
	current *diagnostics.Span
}

// Validate checks forms, a list of top-level data, without evaluating them.
func Validate(h *heap.Heap, forms heap.Exp, opts Options) []diagnostics.Diagnostic {
	v := &validator{h: h, opts: opts}
	top := newScope(nil)
	v.declare(top, forms, 0)
	for i, n := 0, h.Len(forms); i < n; i++ {
		v.current = nil
		if i < len(opts.Spans) {
			span := opts.Spans[i]
			v.current = &span
		}
		v.walk(h.At(forms, i), top)
	}
	return v.diags
}

func (v *validator) addDiag(code, msg string) {
	v.diags = append(v.diags, diagnostics.MakeDiag(code, msg, v.current, ""))
}

func (v *validator) isForm(x heap.Exp, name string) bool {
	if x.Kind != heap.KindList || v.h.Len(x) == 0 {
		return false
	}
	head := v.h.At(x, 0)
	return head.Kind == heap.KindSymbol && v.h.SymbolName(head) == name
}

// declare records the define targets among body[from:].
func (v *validator) declare(s *scope, body heap.Exp, from int) {
	for i, n := from, v.h.Len(body); i < n; i++ {
		form := v.h.At(body, i)
		if v.isForm(form, "define") && v.h.Len(form) >= 2 {
			if target := v.h.At(form, 1); target.Kind == heap.KindSymbol {
				s.declared[v.h.SymbolName(target)] = true
			}
		}
	}
}

func (v *validator) resolves(name string, s *scope) bool {
	if s.has(name) {
		return true
	}
	return v.opts.Globals != nil && v.opts.Globals(name)
}

func (v *validator) walk(x heap.Exp, s *scope) {
	h := v.h
	switch x.Kind {
	case heap.KindSymbol:
		if name := h.SymbolName(x); !v.resolves(name, s) {
			v.addDiag(diagnostics.EUnbound, fmt.Sprintf("unbound symbol '%s'", name))
		}
		return
	case heap.KindList:
	default:
		return
	}

	n := h.Len(x)
	if n == 0 {
		v.addDiag(diagnostics.ESyntax, "cannot evaluate the empty list")
		return
	}
	if head := h.At(x, 0); head.Kind == heap.KindSymbol {
		switch h.SymbolName(head) {
		case "quote":
			if n != 2 {
				v.addDiag(diagnostics.ESyntax, fmt.Sprintf("quote expects 1 operand, got %d", n-1))
			}
			return
		case "if":
			if n != 3 && n != 4 {
				v.addDiag(diagnostics.ESyntax, fmt.Sprintf("if expects 2 or 3 operands, got %d", n-1))
			}
			v.walkFrom(x, 1, s)
			return
		case "define":
			v.walkDefine(x, n, s)
			return
		case "set!":
			v.walkSet(x, n, s)
			return
		case "lambda":
			v.walkLambda(x, n, s)
			return
		}
	}
	v.walkFrom(x, 0, s)
}

func (v *validator) walkFrom(x heap.Exp, from int, s *scope) {
	for i, n := from, v.h.Len(x); i < n; i++ {
		v.walk(v.h.At(x, i), s)
	}
}

func (v *validator) target(form string, x heap.Exp, n int) (string, bool) {
	if n != 3 {
		v.addDiag(diagnostics.ESyntax, fmt.Sprintf("%s expects 2 operands, got %d", form, n-1))
	}
	if n < 2 {
		return "", false
	}
	t := v.h.At(x, 1)
	if t.Kind != heap.KindSymbol {
		v.addDiag(diagnostics.ESyntax, fmt.Sprintf("%s target must be a symbol, got %s", form, formatter.Format(v.h, t)))
		return "", false
	}
	return v.h.SymbolName(t), true
}

func (v *validator) walkDefine(x heap.Exp, n int, s *scope) {
	name, ok := v.target("define", x, n)
	v.walkFrom(x, 2, s)
	if ok {
		s.bound[name] = true
	}
}

func (v *validator) walkSet(x heap.Exp, n int, s *scope) {
	name, ok := v.target("set!", x, n)
	if ok && !v.resolves(name, s) {
		v.addDiag(diagnostics.EUnbound, fmt.Sprintf("set! of unbound symbol '%s'", name))
	}
	v.walkFrom(x, 2, s)
}

func (v *validator) walkLambda(x heap.Exp, n int, s *scope) {
	h := v.h
	if n < 3 {
		v.addDiag(diagnostics.ESyntax, "lambda expects a parameter list and a body")
	}
	if n < 2 {
		return
	}
	body := newScope(s)
	params := h.At(x, 1)
	if params.Kind != heap.KindList {
		v.addDiag(diagnostics.ESyntax, fmt.Sprintf("lambda parameters must be a list, got %s", formatter.Format(h, params)))
	} else {
		for i, m := 0, h.Len(params); i < m; i++ {
			p := h.At(params, i)
			if p.Kind != heap.KindSymbol {
				v.addDiag(diagnostics.ESyntax, fmt.Sprintf("lambda parameter %d must be a symbol, got %s", i+1, formatter.Format(h, p)))
				continue
			}
			name := h.SymbolName(p)
			if body.bound[name] {
				v.addDiag(diagnostics.EDupBinding, fmt.Sprintf("duplicate parameter '%s'", name))
			}
			body.bound[name] = true
		}
	}
	v.declare(body, x, 2)
	v.walkFrom(x, 2, body)
}
