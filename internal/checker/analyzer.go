package checker

import (
	"fmt"

	"github.com/lhaig/modc/internal/ast"
	"github.com/lhaig/modc/internal/diagnostic"
)

// ModuleScope holds the module-level declarations of one module
type ModuleScope struct {
	Name    string
	Node    *ast.Module
	Types   *Scope // type aliases
	Values  *Scope // fields and functions
	Imports []*ModuleScope
}

// Info holds the annotations the passes attach to the tree. Every table is
// keyed by node identity; the tree itself is never modified.
type Info struct {
	Bindings  map[ast.Expression]*Symbol // *ast.Identifier and *ast.CallExpr
	Types     map[ast.Expression]*Type
	Decls     map[ast.Node]*Symbol // declaring nodes: TypeDecl, FieldDecl, FunctionDecl, Param, VarDecl
	DeclTypes map[*ast.TypeRef]*Type
	Modules   map[string]*ModuleScope
}

func newInfo() *Info {
	return &Info{
		Bindings:  make(map[ast.Expression]*Symbol),
		Types:     make(map[ast.Expression]*Type),
		Decls:     make(map[ast.Node]*Symbol),
		DeclTypes: make(map[*ast.TypeRef]*Type),
		Modules:   make(map[string]*ModuleScope),
	}
}

// TypeOf returns the type recorded for expr, or nil
func (i *Info) TypeOf(expr ast.Expression) *Type {
	return i.Types[expr]
}

// BindingOf returns the symbol an identifier or call resolved to, or nil
func (i *Info) BindingOf(expr ast.Expression) *Symbol {
	return i.Bindings[expr]
}

// DeclOf returns the symbol introduced by a declaring node, or nil
func (i *Info) DeclOf(node ast.Node) *Symbol {
	return i.Decls[node]
}

// Analyzer runs the semantic passes over a whole program. Each pass records
// diagnostics instead of stopping at the first problem.
type Analyzer struct {
	prog     *ast.Program
	diag     *diagnostic.Diagnostics
	info     *Info
	resolved bool

	// per-module and per-function context
	module    *ModuleScope
	fn        *Symbol
	loopDepth int
}

// NewAnalyzer creates an analyzer for prog
func NewAnalyzer(prog *ast.Program) *Analyzer {
	return &Analyzer{
		prog: prog,
		diag: diagnostic.New(),
		info: newInfo(),
	}
}

// Run resets any previous results and runs name resolution, type checking
// and flow checking in order. It returns the accumulated diagnostics.
func (a *Analyzer) Run() *diagnostic.Diagnostics {
	a.ResolveNames()
	a.CheckTypes()
	a.CheckFlow()
	return a.diag
}

// HasErrors reports whether any pass recorded an error
func (a *Analyzer) HasErrors() bool {
	return a.diag.HasErrors()
}

// Diagnostics returns the accumulated diagnostics
func (a *Analyzer) Diagnostics() *diagnostic.Diagnostics {
	return a.diag
}

// Info returns the annotations recorded so far
func (a *Analyzer) Info() *Info {
	return a.info
}

// enterModule sets the module context for reporting and lookup
func (a *Analyzer) enterModule(ms *ModuleScope) {
	a.module = ms
}

// modules returns the scopes of the registered modules in program order
func (a *Analyzer) modules() []*ModuleScope {
	var out []*ModuleScope
	for _, mod := range a.prog.Modules {
		if ms, ok := a.info.Modules[mod.Name]; ok && ms.Node == mod {
			out = append(out, ms)
		}
	}
	return out
}

func (a *Analyzer) report(sev diagnostic.Severity, kind diagnostic.Kind, node ast.Node, msg, hint string) {
	line, col := node.Pos()
	file := ""
	if a.module != nil {
		file = a.module.Node.File
	}
	a.diag.Add(diagnostic.Diagnostic{
		Severity: sev,
		Kind:     kind,
		Message:  msg,
		Line:     line,
		Column:   col,
		File:     file,
		Hint:     hint,
		Node:     node,
	})
}

func (a *Analyzer) errorf(kind diagnostic.Kind, node ast.Node, format string, args ...any) {
	a.report(diagnostic.Error, kind, node, fmt.Sprintf(format, args...), "")
}

func (a *Analyzer) warningf(kind diagnostic.Kind, node ast.Node, format string, args ...any) {
	a.report(diagnostic.Warning, kind, node, fmt.Sprintf(format, args...), "")
}
