package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/lhaig/modc/internal/ast"
	"github.com/lhaig/modc/internal/backend"
	"github.com/lhaig/modc/internal/compiler"
	"github.com/lhaig/modc/internal/formatter"
	"github.com/lhaig/modc/internal/lexer"
	"github.com/lhaig/modc/internal/parser"
	"github.com/lhaig/modc/internal/vm"
)

const usage = `modc - compiler for module source files

Usage:
  modc build [--emit=listing|image] [--out DIR] <files...>   Compile modules to bytecode units
  modc check <files...>                                     Parse and analyze only
  modc lint <files...>                                      Run style and best-practice checks
  modc fmt [-w] <files...>                                  Print sources in canonical form
  modc run --entry Module.function <files...> [-- args...]  Compile and invoke a function
  modc tokens <file>                                        Print the token stream
  modc ast <file>                                           Print the syntax tree

Options:
  --emit=FORMAT   Output format for build: listing (default) or image
  --out DIR       Directory for emitted units (default: current directory)
  --entry M.f     Function to invoke for run; arguments after -- are ints
  -w              For fmt: rewrite files in place instead of printing

Examples:
  modc build app.mod lib.mod              Write App.lst and Lib.lst
  modc build --emit=image --out bin *.mod Write one .mdc image per module into bin/
  modc check app.mod lib.mod              Report diagnostics without generating code
  modc run --entry App.main app.mod lib.mod -- 3 4
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "build":
		handleBuild(os.Args[2:])
	case "check":
		handleCheck(os.Args[2:])
	case "lint":
		handleLint(os.Args[2:])
	case "fmt":
		handleFmt(os.Args[2:])
	case "run":
		handleRun(os.Args[2:])
	case "tokens":
		handleTokens(os.Args[2:])
	case "ast":
		handleAST(os.Args[2:])
	case "help", "--help", "-h":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
}

func handleBuild(args []string) {
	emit := "listing"
	outDir := "."
	var files []string

	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case strings.HasPrefix(arg, "--emit="):
			emit = strings.TrimPrefix(arg, "--emit=")
		case arg == "--out":
			if i+1 >= len(args) {
				fmt.Fprintln(os.Stderr, "Error: --out requires a directory")
				os.Exit(1)
			}
			i++
			outDir = args[i]
		case strings.HasPrefix(arg, "-"):
			fmt.Fprintf(os.Stderr, "Unknown option: %s\n", arg)
			os.Exit(1)
		default:
			files = append(files, arg)
		}
	}

	emitter, err := backend.Lookup(emit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}

	res := compile(files)
	paths, err := compiler.EmitUnits(res.Units, emitter, outDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
	for _, path := range paths {
		fmt.Printf("Wrote %s\n", path)
	}
}

func handleCheck(args []string) {
	sources := readSources(args)
	diag := compiler.Check(sources)
	if diag.HasErrors() {
		fmt.Fprintln(os.Stderr, diag.Format("input"))
		os.Exit(1)
	}
	printWarnings(diag.Format("input"), diag.WarningCount())
	fmt.Println("No errors found.")
}

func handleLint(args []string) {
	sources := readSources(args)
	diag := compiler.Lint(sources)
	if diag.HasErrors() {
		fmt.Fprintln(os.Stderr, diag.Format("input"))
		os.Exit(1)
	}
	if diag.Count() == 0 {
		fmt.Println("No lint warnings.")
		return
	}
	fmt.Println(diag.Format("input"))
	fmt.Printf("%d warning(s) found.\n", diag.WarningCount())
}

func handleFmt(args []string) {
	write := false
	var files []string
	for _, arg := range args {
		switch {
		case arg == "-w":
			write = true
		case strings.HasPrefix(arg, "-"):
			fmt.Fprintf(os.Stderr, "Unknown option: %s\n", arg)
			os.Exit(1)
		default:
			files = append(files, arg)
		}
	}

	failed := false
	for _, src := range readSources(files) {
		out, err := formatter.Source(src.Text)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %s\n", src.Name, err)
			failed = true
			continue
		}
		if !write {
			fmt.Print(out)
			continue
		}
		if out == src.Text {
			continue
		}
		if err := os.WriteFile(src.Name, []byte(out), 0644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing file: %s\n", err)
			failed = true
			continue
		}
		fmt.Printf("Formatted %s\n", src.Name)
	}
	if failed {
		os.Exit(1)
	}
}

func handleRun(args []string) {
	var entry string
	var files []string
	var rawArgs []string

	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--":
			rawArgs = args[i+1:]
			i = len(args)
		case arg == "--entry":
			if i+1 >= len(args) {
				fmt.Fprintln(os.Stderr, "Error: --entry requires Module.function")
				os.Exit(1)
			}
			i++
			entry = args[i]
		case strings.HasPrefix(arg, "--entry="):
			entry = strings.TrimPrefix(arg, "--entry=")
		case strings.HasPrefix(arg, "-"):
			fmt.Fprintf(os.Stderr, "Unknown option: %s\n", arg)
			os.Exit(1)
		default:
			files = append(files, arg)
		}
	}

	unit, fn, ok := strings.Cut(entry, ".")
	if !ok || unit == "" || fn == "" {
		fmt.Fprintln(os.Stderr, "Error: --entry must name Module.function")
		os.Exit(1)
	}

	values := make([]vm.Value, 0, len(rawArgs))
	for _, raw := range rawArgs {
		n, err := strconv.ParseInt(raw, 10, 32)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: argument %q is not an int\n", raw)
			os.Exit(1)
		}
		values = append(values, int32(n))
	}

	res := compile(files)
	loader := vm.NewLoader()
	if err := loader.Load(res.Units...); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
	result, err := loader.Invoke(unit, fn, values...)
	if err != nil {
		var rerr *vm.RuntimeError
		if errors.As(err, &rerr) {
			fmt.Fprintf(os.Stderr, "Runtime error: %s\n", err)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(1)
	}
	fmt.Println(formatValue(result))
}

func handleTokens(args []string) {
	source := readSingle(args)
	failed := false
	for tok, err := range lexer.New(source).All() {
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %s\n", err)
			failed = true
			continue
		}
		fmt.Printf("%d:%d\t%-12s %q\n", tok.Line, tok.Column, tok.Type, tok.Literal)
	}
	if failed {
		os.Exit(1)
	}
}

func handleAST(args []string) {
	source := readSingle(args)
	p := parser.New(source)
	mod, err := p.Parse()
	for _, le := range p.LexErrors() {
		fmt.Fprintf(os.Stderr, "error: %s\n", le)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(1)
	}
	fmt.Print(ast.Print(mod))
}

// compile builds files and exits on any error, printing warnings first
func compile(files []string) *compiler.Result {
	sources := readSources(files)
	res := compiler.Compile(sources, compiler.Options{})
	if res.Diagnostics.HasErrors() {
		fmt.Fprintln(os.Stderr, res.Diagnostics.Format("input"))
		os.Exit(1)
	}
	printWarnings(res.Diagnostics.Format("input"), res.Diagnostics.WarningCount())
	return res
}

func printWarnings(formatted string, count int) {
	if count > 0 {
		fmt.Println(formatted)
	}
}

func readSources(files []string) []compiler.Source {
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "Error: no input files specified")
		os.Exit(1)
	}
	sources, err := compiler.ReadSources(files)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading file: %s\n", err)
		os.Exit(1)
	}
	return sources
}

func readSingle(args []string) string {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "Error: expected exactly one input file")
		os.Exit(1)
	}
	source, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading file: %s\n", err)
		os.Exit(1)
	}
	return string(source)
}

func formatValue(v vm.Value) string {
	switch v := v.(type) {
	case nil:
		return "null"
	case string:
		return strconv.Quote(v)
	case *vm.Array:
		if v == nil {
			return "null"
		}
		parts := make([]string, len(v.Data))
		for i, el := range v.Data {
			parts[i] = formatValue(el)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return fmt.Sprint(v)
	}
}
