// Package help holds the reference text printed by the help command.
package help

import (
	"fmt"
	"sort"
	"strings"

	"github.com/thomasrohde/minischeme/pkg/stdlib"
)

// Version is the language reference version.
const Version = "v0.1"

// QUICKREF is the one-screen overview printed by a bare help command.
var QUICKREF = `minischeme ` + Version + ` quick reference

Values: numbers, symbols, lists, procedures. 0 is the only false value.

Special forms:
  (quote x) 'x        literal datum
  (if t a [b])        a when t is not 0, else b (or <void>)
  (define name expr)  bind in the current frame
  (set! name expr)    rebind in the frame that owns name
  (lambda (p...) body...)

Commands:
  minischeme                  interactive prompt
  minischeme run <file>       evaluate a file (-f <file>)
  minischeme eval <source>    evaluate a string (-s <source>)
  minischeme check <file>     validate without evaluating
  minischeme fmt <file>       pretty-print [--write]
  minischeme trace <jsonl>    summarize a --trace file
  minischeme config           show the config file in effect (.minischeme.json)

Topics: ` + strings.Join(TopicList, ", ") + `
Run 'minischeme help <topic>' for details.
`

// TopicList is the ordered list of help topics.
var TopicList = []string{"syntax", "forms", "stdlib", "gc", "diagnostics", "examples"}

// Topics maps topic names to their text.
var Topics = map[string]string{
	"syntax": `SYNTAX

  ( )        delimit a list
  'datum     shorthand for (quote datum)
  ; text     comment to end of line

An atom that reads as a number (integer, 0x/0o/0b prefixed integer or
decimal float) is a number; any other atom is a symbol. inf and nan are
symbols.
`,
	"forms": `SPECIAL FORMS

  (quote datum)              returns datum unevaluated
  (if test then)             <void> when test is 0
  (if test then else)
  (define name expr)         binds name in the current frame, returns <void>
  (set! name expr)           rebinds name where it is bound; unbound is E_UNBOUND
  (lambda (params...) body...)
                             closure over the current frame; the body forms
                             run in order and the last value is returned

Everything else is an application: the head is evaluated to a procedure,
then each argument left to right. Calling a lambda with the wrong number
of arguments is E_ARITY.
`,
	"stdlib": `STANDARD LIBRARY

Arithmetic   + - * / abs
Comparison   = < > <= >=        chained; 1 or 0
Lists        list cons car cdr length append apply
Predicates   null? list? number? symbol? procedure? eq? equal? not and or
Control      begin gc
Constants    pi

Run 'minischeme help stdlib --index' for the full list.
`,
	"gc": `GARBAGE COLLECTION

Symbols, lists, procedures and environment frames live on a mark-sweep
heap. A collection runs before an allocation that would take the heap past
its threshold; afterwards the threshold is reset to twice the surviving
bytes, never below the initial value.

  --gc-threshold N   initial threshold in bytes (default 8192)
  --gc-stress        collect before every allocation
  (gc)               collect now and return the live object count

The same settings can be kept in .minischeme.json (project) or
~/.minischeme/config.json (user): gcThreshold, gcGrowth, gcStress,
maxDepth, arityCheck. Flags override the file.
`,
	"diagnostics": `DIAGNOSTICS

  E_LEX          invalid character                      exit 2
  E_PARSE        stray ')' or unterminated list         exit 2
  E_SYNTAX       malformed special form                 exit 2 (check) / 4
  E_UNBOUND      unbound symbol                         exit 2 (check) / 4
  E_DUP_BINDING  repeated lambda parameter              exit 2
  E_TYPE         wrong argument type, division by zero  exit 4
  E_NOT_PROC     application of a non-procedure        exit 4
  E_ARITY        wrong number of arguments              exit 4
  E_FN           native procedure failure               exit 4
  E_DEPTH        evaluation nested too deeply           exit 4
  E_IO           file could not be read or written      exit 1
`,
	"examples": `EXAMPLES

  (define fact (lambda (n) (if (<= n 1) 1 (* n (fact (- n 1))))))
  (fact 10)                                 ; 3628800

  (define make-counter
    (lambda ()
      (define n 0)
      (lambda () (set! n (+ n 1)) n)))
  (define c (make-counter))
  (c) (c)                                   ; 2

  (define x 1)
  (define f (lambda () x))
  ((lambda () (define x 99) (f)))           ; 1, scope is lexical
`,
}

// MatchTopic resolves a topic name or unique prefix.
func MatchTopic(query string) (string, string, error) {
	if content, ok := Topics[query]; ok {
		return query, content, nil
	}
	var matches []string
	for _, name := range TopicList {
		if query != "" && strings.HasPrefix(name, query) {
			matches = append(matches, name)
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], Topics[matches[0]], nil
	case 0:
		return "", "", fmt.Errorf("unknown help topic '%s'", query)
	default:
		return "", "", fmt.Errorf("ambiguous help topic '%s': %s", query, strings.Join(matches, ", "))
	}
}

// StdlibIndex lists every name the standard environment binds.
func StdlibIndex() string {
	reg := stdlib.NewDefault()
	names := reg.Names()
	sort.Strings(names)

	var sb strings.Builder
	sb.WriteString("STANDARD LIBRARY INDEX\n\n")
	fns := 0
	for _, name := range names {
		kind := "constant"
		if reg.Get(name) != nil {
			kind = "procedure"
			fns++
		}
		fmt.Fprintf(&sb, "  %-12s %s\n", name, kind)
	}
	fmt.Fprintf(&sb, "\nTotal: %d functions, %d constants\n", fns, len(names)-fns)
	return sb.String()
}
