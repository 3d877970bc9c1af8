// Package compiler drives the pipeline: parse every source, analyze the
// whole program, then generate bytecode units.
package compiler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lhaig/modc/internal/ast"
	"github.com/lhaig/modc/internal/backend"
	"github.com/lhaig/modc/internal/bytecode"
	"github.com/lhaig/modc/internal/checker"
	"github.com/lhaig/modc/internal/codegen"
	"github.com/lhaig/modc/internal/diagnostic"
	"github.com/lhaig/modc/internal/linter"
	"github.com/lhaig/modc/internal/vm"
)

// Options tunes a compilation
type Options struct {
	Jobs int // concurrent parses; zero means GOMAXPROCS
}

// Result holds the output of a compilation. Units is nil whenever
// Diagnostics has errors.
type Result struct {
	Program     *ast.Program
	Info        *checker.Info
	Units       []*bytecode.Unit
	Diagnostics *diagnostic.Diagnostics
}

// Error wraps the diagnostics of a failed compilation
type Error struct {
	Diagnostics *diagnostic.Diagnostics
}

func (e *Error) Error() string {
	return fmt.Sprintf("compilation failed with %d error(s):\n%s",
		e.Diagnostics.ErrorCount(), e.Diagnostics.Format("input"))
}

// Compile runs the full pipeline: parse -> analyze -> codegen
func Compile(sources []Source, opts Options) *Result {
	return CompileContext(context.Background(), sources, opts)
}

// CompileContext is Compile with a context that can cancel parsing
func CompileContext(ctx context.Context, sources []Source, opts Options) *Result {
	res := analyze(ctx, sources, opts)
	if res.Diagnostics.HasErrors() {
		return res
	}

	units, err := codegen.Generate(res.Program, res.Info)
	if err != nil {
		res.Diagnostics.ErrorfInFile("", diagnostic.Internal, 0, 0, "%s", err)
		return res
	}
	res.Units = units
	return res
}

// Check runs parse + analysis only (no codegen)
func Check(sources []Source) *diagnostic.Diagnostics {
	return analyze(context.Background(), sources, Options{}).Diagnostics
}

// Lint runs parse + analysis and, when the program checks cleanly, appends
// the linter's style warnings
func Lint(sources []Source) *diagnostic.Diagnostics {
	res := analyze(context.Background(), sources, Options{})
	if res.Diagnostics.HasErrors() {
		return res.Diagnostics
	}
	res.Diagnostics.Merge(linter.Lint(res.Program, res.Info), "")
	return res.Diagnostics
}

// analyze parses all sources and, when they parse cleanly, runs the three
// semantic passes over the assembled program
func analyze(ctx context.Context, sources []Source, opts Options) *Result {
	res := &Result{}

	registry := NewModuleRegistry(sources, opts.Jobs)
	if err := registry.ParseAll(ctx); err != nil {
		res.Diagnostics = diagnostic.New()
		res.Diagnostics.ErrorfInFile("", diagnostic.Syntax, 0, 0, "parsing interrupted: %s", err)
		return res
	}
	res.Diagnostics = registry.Diagnostics()
	res.Program = registry.Program()
	if res.Diagnostics.HasErrors() {
		return res
	}

	a := checker.NewAnalyzer(res.Program)
	res.Diagnostics.Merge(a.Run(), "")
	res.Info = a.Info()
	return res
}

// Run compiles sources, loads the units into a fresh loader, and invokes
// unit.fn with args
func Run(sources []Source, unit, fn string, args ...vm.Value) (vm.Value, error) {
	res := Compile(sources, Options{})
	if res.Diagnostics.HasErrors() {
		return nil, &Error{Diagnostics: res.Diagnostics}
	}
	l := vm.NewLoader()
	if err := l.Load(res.Units...); err != nil {
		return nil, err
	}
	return l.Invoke(unit, fn, args...)
}

// EmitUnits writes each unit to outDir using the emitter and returns the
// written paths
func EmitUnits(units []*bytecode.Unit, e backend.Emitter, outDir string) ([]string, error) {
	if outDir != "" && outDir != "." {
		if err := os.MkdirAll(outDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create output dir: %w", err)
		}
	}

	var written []string
	for _, u := range units {
		data, err := e.Emit(u)
		if err != nil {
			return written, err
		}
		outPath := filepath.Join(outDir, u.Name+e.Ext())
		if err := os.WriteFile(outPath, data, 0644); err != nil {
			return written, fmt.Errorf("failed to write output file: %w", err)
		}
		written = append(written, outPath)
	}
	return written, nil
}
