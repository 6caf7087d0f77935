// Command minischeme is the interpreter's CLI entry point.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/thomasrohde/minischeme/pkg/config"
	"github.com/thomasrohde/minischeme/pkg/diagnostics"
	"github.com/thomasrohde/minischeme/pkg/evaluator"
	"github.com/thomasrohde/minischeme/pkg/formatter"
	"github.com/thomasrohde/minischeme/pkg/heap"
	"github.com/thomasrohde/minischeme/pkg/help"
	"github.com/thomasrohde/minischeme/pkg/runtime"
)

const usage = "usage: minischeme [run <file> | eval <source> | check <file> | fmt <file> | config | trace <file.jsonl> | help [topic]]"

func main() {
	os.Exit(dispatch(os.Args[1:]))
}

func dispatch(args []string) int {
	if len(args) == 0 {
		return cmdRepl(nil)
	}
	switch cmd := args[0]; cmd {
	case "run", "-f":
		return cmdRun(args[1:], false)
	case "eval", "-s":
		return cmdRun(args[1:], true)
	case "repl":
		return cmdRepl(args[1:])
	case "check":
		return cmdCheck(args[1:])
	case "fmt":
		return cmdFmt(args[1:])
	case "trace":
		return cmdTrace(args[1:])
	case "config":
		return cmdConfig()
	case "help", "--help", "-h":
		return cmdHelp(args[1:])
	default:
		if strings.HasPrefix(cmd, "-") {
			// Flags without a command configure the prompt.
			return cmdRepl(args)
		}
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n%s\n", cmd, usage)
		return 1
	}
}

// runFlags are the options shared by run, eval and repl.
type runFlags struct {
	pretty     bool
	json       bool
	stress     bool
	threshold  int
	maxDepth   int
	noArity    bool
	tracePath  string
	positional []string
}

func parseRunFlags(args []string) (*runFlags, error) {
	f := &runFlags{maxDepth: -1}
	intArg := func(i *int, name string) (int, error) {
		if *i+1 >= len(args) {
			return 0, fmt.Errorf("%s requires a value", name)
		}
		*i++
		n, err := strconv.Atoi(args[*i])
		if err != nil || n < 0 {
			return 0, fmt.Errorf("%s: invalid value %q", name, args[*i])
		}
		return n, nil
	}

	for i := 0; i < len(args); i++ {
		var err error
		switch args[i] {
		case "--pretty":
			f.pretty = true
		case "--json":
			f.json = true
		case "--gc-stress":
			f.stress = true
		case "--gc-threshold":
			f.threshold, err = intArg(&i, "--gc-threshold")
		case "--max-depth":
			f.maxDepth, err = intArg(&i, "--max-depth")
		case "--no-arity-check":
			f.noArity = true
		case "--trace":
			if i+1 >= len(args) {
				return nil, errors.New("--trace requires a path")
			}
			i++
			f.tracePath = args[i]
		default:
			if args[i] != "-" && strings.HasPrefix(args[i], "-") {
				return nil, fmt.Errorf("unknown flag %s", args[i])
			}
			f.positional = append(f.positional, args[i])
		}
		if err != nil {
			return nil, err
		}
	}
	return f, nil
}

// newRuntime builds a runtime from the config file and the flags, flags
// taking precedence. The returned closer flushes the trace file, if any.
func (f *runFlags) newRuntime() (*runtime.Runtime, func(), error) {
	cfg, _ := config.Load(".")
	opts := cfg.RuntimeOptions()
	var heapOpts []heap.Option
	var evalOpts []evaluator.Option
	if f.stress {
		heapOpts = append(heapOpts, heap.WithStress(true))
	}
	if f.threshold > 0 {
		heapOpts = append(heapOpts, heap.WithThreshold(f.threshold))
	}
	if f.maxDepth >= 0 {
		evalOpts = append(evalOpts, evaluator.WithMaxDepth(f.maxDepth))
	}
	if f.noArity {
		evalOpts = append(evalOpts, evaluator.WithArityCheck(false))
	}
	opts = append(opts, runtime.WithHeapOptions(heapOpts...), runtime.WithEvaluatorOptions(evalOpts...))

	closer := func() {}
	if f.tracePath != "" {
		tf, err := os.Create(f.tracePath)
		if err != nil {
			return nil, nil, err
		}
		enc := json.NewEncoder(tf)
		opts = append(opts, runtime.WithTrace(func(ev runtime.TraceEvent) {
			_ = enc.Encode(ev)
		}))
		closer = func() { tf.Close() }
	}
	return runtime.New(opts...), closer, nil
}

func cmdRun(args []string, inline bool) int {
	f, err := parseRunFlags(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		return 1
	}
	if len(f.positional) != 1 {
		if inline {
			fmt.Fprintln(os.Stderr, "usage: minischeme eval <source> [--pretty] [--json] [--gc-stress] [--gc-threshold N] [--max-depth N] [--trace PATH]")
		} else {
			fmt.Fprintln(os.Stderr, "usage: minischeme run <file> [--pretty] [--json] [--gc-stress] [--gc-threshold N] [--max-depth N] [--trace PATH]")
		}
		return 1
	}

	source, filename := f.positional[0], "<eval>"
	if !inline {
		var code int
		source, filename, code = readSource(f.positional[0], f.pretty)
		if code != 0 {
			return code
		}
	}

	rt, closeTrace, err := f.newRuntime()
	if err != nil {
		reportIO(fmt.Sprintf("cannot create trace file: %s", f.tracePath), f.pretty)
		return 1
	}
	defer closeTrace()

	result, runErr := rt.Run(source, filename)
	if runErr != nil {
		return reportError(runErr, f.pretty)
	}
	return printResult(rt, result, f.json)
}

func printResult(rt *runtime.Runtime, result *runtime.Result, asJSON bool) int {
	if asJSON {
		b, err := formatter.ToJSON(rt.Heap(), result.Value)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error serializing result: %s\n", err)
			return 4
		}
		fmt.Println(string(b))
		return 0
	}
	fmt.Println(result.Text)
	return 0
}

// reportError prints err and returns the exit code for it.
func reportError(err error, pretty bool) int {
	var diagErr *runtime.DiagnosticError
	if errors.As(err, &diagErr) {
		fmt.Fprintln(os.Stderr, diagnostics.FormatDiagnostics(diagErr.Diagnostics, pretty))
		return 2
	}
	var rtErr *evaluator.RuntimeError
	if errors.As(err, &rtErr) {
		fmt.Fprintln(os.Stderr, diagnostics.FormatDiagnostics([]diagnostics.Diagnostic{rtErr.Diagnostic()}, pretty))
		return 4
	}
	fmt.Fprintln(os.Stderr, err.Error())
	return 4
}

func reportIO(msg string, pretty bool) {
	diag := diagnostics.MakeDiag(diagnostics.EIO, msg, nil, "")
	fmt.Fprintln(os.Stderr, diagnostics.FormatDiagnostics([]diagnostics.Diagnostic{diag}, pretty))
}

func cmdCheck(args []string) int {
	var file string
	pretty := false

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--pretty":
			pretty = true
		default:
			if args[i] == "-" || !strings.HasPrefix(args[i], "-") {
				file = args[i]
			}
		}
	}

	if file == "" {
		fmt.Fprintln(os.Stderr, "usage: minischeme check <file> [--pretty]")
		return 1
	}

	source, filename, exitCode := readSource(file, pretty)
	if exitCode != 0 {
		return exitCode
	}

	rt := runtime.New()
	diags := rt.Check(source, filename)
	if len(diags) > 0 {
		fmt.Fprintln(os.Stderr, diagnostics.FormatDiagnostics(diags, pretty))
		return 2
	}

	if pretty {
		fmt.Println("No errors found.")
	} else {
		fmt.Println("[]")
	}
	return 0
}

func cmdFmt(args []string) int {
	var file string
	write := false

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--write":
			write = true
		default:
			if !strings.HasPrefix(args[i], "-") {
				file = args[i]
			}
		}
	}

	if file == "" {
		fmt.Fprintln(os.Stderr, "usage: minischeme fmt <file> [--write]")
		return 1
	}

	sourceBytes, err := os.ReadFile(file)
	if err != nil {
		reportIO(fmt.Sprintf("cannot read file: %s", file), false)
		return 1
	}
	source := string(sourceBytes)

	rt := runtime.New()
	formatted, fmtErr := rt.Format(source, file)
	if fmtErr != nil {
		reportError(fmtErr, false)
		return 2
	}

	if formatter.HasComments(source) {
		fmt.Fprintln(os.Stderr, "warning: comments are not preserved by the formatter")
	}

	if write {
		if err := os.WriteFile(file, []byte(formatted), 0644); err != nil {
			reportIO(fmt.Sprintf("cannot write file: %s", file), false)
			return 1
		}
	} else {
		fmt.Print(formatted)
	}
	return 0
}

// cmdConfig prints the config file in effect.
func cmdConfig() int {
	cfg, path := config.Load(".")
	if path == "" {
		path = "(none)"
	}
	fmt.Printf("config: %s\n", path)
	out, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Println(string(out))
	return 0
}

func cmdHelp(args []string) int {
	showIndex := false
	topic := ""
	for _, arg := range args {
		if arg == "--index" {
			showIndex = true
		} else if !strings.HasPrefix(arg, "-") {
			topic = arg
		}
	}

	if showIndex {
		if topic != "stdlib" {
			fmt.Fprintln(os.Stderr, "error: --index is only supported for the stdlib topic")
			return 1
		}
		fmt.Print(help.StdlibIndex())
		return 0
	}

	if topic == "" {
		fmt.Print(help.QUICKREF)
		return 0
	}

	_, content, err := help.MatchTopic(topic)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\nAvailable topics: %s\n", err, strings.Join(help.TopicList, ", "))
		return 1
	}
	fmt.Print(content)
	return 0
}

func readSource(file string, pretty bool) (string, string, int) {
	if file == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			reportIO(fmt.Sprintf("error reading stdin: %s", err), pretty)
			return "", "", 1
		}
		return string(data), "<stdin>", 0
	}

	source, err := os.ReadFile(file)
	if err != nil {
		reportIO(fmt.Sprintf("cannot read file: %s", file), pretty)
		return "", "", 1
	}
	return string(source), file, 0
}
