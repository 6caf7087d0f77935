package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/peterh/liner"

	"github.com/thomasrohde/minischeme/pkg/heap"
	"github.com/thomasrohde/minischeme/pkg/reader"
	"github.com/thomasrohde/minischeme/pkg/runtime"
)

const (
	prompt         = "minischeme> "
	continuePrompt = "...> "
)

func cmdRepl(args []string) int {
	f, err := parseRunFlags(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		return 1
	}
	if len(f.positional) > 0 {
		fmt.Fprintln(os.Stderr, usage)
		return 1
	}
	rt, closeTrace, err := f.newRuntime()
	if err != nil {
		reportIO(fmt.Sprintf("cannot create trace file: %s", f.tracePath), f.pretty)
		return 1
	}
	defer closeTrace()

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)
	line.SetTabCompletionStyle(liner.TabPrints)
	line.SetWordCompleter(completer(rt))

	return repl(line, rt, f)
}

// prompter is the part of liner.State the loop uses.
type prompter interface {
	Prompt(p string) (string, error)
	AppendHistory(item string)
}

// repl reads forms until end of input. An error is reported and the loop
// continues with the global environment as the failing form left it.
func repl(in prompter, rt *runtime.Runtime, f *runFlags) int {
	var buf strings.Builder
	for {
		p := prompt
		if buf.Len() > 0 {
			p = continuePrompt
		}
		input, err := in.Prompt(p)
		if errors.Is(err, liner.ErrPromptAborted) {
			buf.Reset()
			continue
		}
		if errors.Is(err, io.EOF) {
			fmt.Println()
			return 0
		}
		if err != nil {
			reportIO(err.Error(), f.pretty)
			return 1
		}

		buf.WriteString(input)
		buf.WriteString("\n")
		src := buf.String()
		if reader.Incomplete(src) {
			continue
		}
		buf.Reset()
		if strings.TrimSpace(src) == "" {
			continue
		}
		in.AppendHistory(strings.TrimSpace(src))

		result, err := rt.Run(src, "<repl>")
		if err != nil {
			reportError(err, f.pretty)
			continue
		}
		if result.Forms == 0 || result.Value.Kind == heap.KindVoid {
			continue
		}
		printResult(rt, result, f.json)
	}
}

// completer completes the word under the cursor from the global bindings.
func completer(rt *runtime.Runtime) liner.WordCompleter {
	return func(line string, pos int) (string, []string, string) {
		head, tail := line[:pos], line[pos:]
		start := strings.LastIndexAny(head, " \t()'") + 1
		word := head[start:]
		if word == "" {
			return head, nil, tail
		}

		var completions []string
		for _, name := range rt.Names() {
			if strings.HasPrefix(name, word) {
				completions = append(completions, name)
			}
		}
		sort.Strings(completions)
		return head[:start], completions, tail
	}
}
