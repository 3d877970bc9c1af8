package compiler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/lhaig/modc/internal/ast"
	"github.com/lhaig/modc/internal/diagnostic"
	"github.com/lhaig/modc/internal/parser"
)

// Source is one compilation unit: a display name (usually a file path) and its text
type Source struct {
	Name string
	Text string
}

// ReadSources loads each path from disk
func ReadSources(paths []string) ([]Source, error) {
	sources := make([]Source, 0, len(paths))
	for _, path := range paths {
		text, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		sources = append(sources, Source{Name: path, Text: string(text)})
	}
	return sources, nil
}

// ModuleRegistry parses a set of sources and assembles the modules that
// parsed into a program. Sources are independent, so they are parsed in
// parallel; results keep the input order.
type ModuleRegistry struct {
	sources []Source
	modules []*ast.Module // nil where parsing failed
	diags   []*diagnostic.Diagnostics
	jobs    int
}

// NewModuleRegistry creates a registry over sources. jobs bounds the number
// of concurrent parses; zero or less means GOMAXPROCS.
func NewModuleRegistry(sources []Source, jobs int) *ModuleRegistry {
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	return &ModuleRegistry{
		sources: sources,
		modules: make([]*ast.Module, len(sources)),
		diags:   make([]*diagnostic.Diagnostics, len(sources)),
		jobs:    jobs,
	}
}

// ParseAll parses every source. Lexical and syntax problems become
// diagnostics; the returned error is only non-nil when ctx is cancelled.
func (r *ModuleRegistry) ParseAll(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.jobs)
	for i, src := range r.sources {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			r.modules[i], r.diags[i] = parseSource(src)
			return nil
		})
	}
	return g.Wait()
}

// parseSource parses one source, recording every lexical error and the
// first syntax error against the source name
func parseSource(src Source) (*ast.Module, *diagnostic.Diagnostics) {
	diag := diagnostic.New()
	p := parser.New(src.Text)
	mod, err := p.Parse()

	for _, le := range p.LexErrors() {
		diag.ErrorfInFile(src.Name, diagnostic.Lexical, le.Line, le.Column, "%s", le.Message)
	}
	if err != nil {
		var se *parser.SyntaxError
		if errors.As(err, &se) {
			diag.ErrorfInFile(src.Name, diagnostic.Syntax, se.Line, se.Column, "%s", se.Message)
		} else {
			diag.ErrorfInFile(src.Name, diagnostic.Syntax, 0, 0, "%s", err)
		}
		return nil, diag
	}
	mod.File = src.Name
	return mod, diag
}

// Diagnostics returns the parse diagnostics of all sources in input order
func (r *ModuleRegistry) Diagnostics() *diagnostic.Diagnostics {
	all := diagnostic.New()
	for i, d := range r.diags {
		if d != nil {
			all.Merge(d, r.sources[i].Name)
		}
	}
	return all
}

// Program assembles the parsed modules in input order
func (r *ModuleRegistry) Program() *ast.Program {
	prog := &ast.Program{}
	for _, mod := range r.modules {
		if mod != nil {
			prog.Modules = append(prog.Modules, mod)
		}
	}
	return prog
}

// Module returns the parsed module declared with name, or nil
func (r *ModuleRegistry) Module(name string) *ast.Module {
	for _, mod := range r.modules {
		if mod != nil && mod.Name == name {
			return mod
		}
	}
	return nil
}
