// Package linter reports style and best-practice findings on an analyzed
// program. Findings are always warnings.
package linter

import (
	"unicode"
	"unicode/utf8"

	"github.com/lhaig/modc/internal/ast"
	"github.com/lhaig/modc/internal/checker"
	"github.com/lhaig/modc/internal/diagnostic"
)

// Linter performs style and best-practice checks on an analyzed program.
type Linter struct {
	prog *ast.Program
	info *checker.Info
	diag *diagnostic.Diagnostics

	// per-module usage, filled by collectUsage
	read     map[*checker.Symbol]bool
	assigned map[*checker.Symbol]bool
	imported map[string]bool
}

// Lint runs all lint rules on prog. info must come from a run of the
// analyzer over the same program without errors.
func Lint(prog *ast.Program, info *checker.Info) *diagnostic.Diagnostics {
	l := &Linter{
		prog: prog,
		info: info,
		diag: diagnostic.New(),
	}
	for _, mod := range prog.Modules {
		ms := info.Modules[mod.Name]
		if ms == nil || ms.Node != mod {
			continue
		}
		modDiag := diagnostic.New()
		l.lintModule(ms, modDiag)
		l.diag.Merge(modDiag, mod.File)
	}
	return l.diag
}

func (l *Linter) lintModule(ms *checker.ModuleScope, diag *diagnostic.Diagnostics) {
	mod := ms.Node
	l.collectUsage(ms)

	if !startsUpper(mod.Name) {
		diag.Warningf(diagnostic.Style, mod, "module '%s' should start with an uppercase letter", mod.Name)
	}
	for _, imp := range mod.Imports {
		if !l.imported[imp.Name] {
			diag.Warningf(diagnostic.Style, imp, "import '%s' is never used", imp.Name)
		}
	}

	for _, d := range mod.Decls {
		switch d := d.(type) {
		case *ast.FieldDecl:
			l.checkNaming(diag, d)
			if sym := l.info.DeclOf(d); sym != nil && !sym.Public && !l.read[sym] {
				diag.Warningf(diagnostic.Style, d, "field '%s' is not public and never read", d.Name)
			}
		case *ast.FunctionDecl:
			l.lintFunction(diag, d)
		}
	}
}

func (l *Linter) lintFunction(diag *diagnostic.Diagnostics, fn *ast.FunctionDecl) {
	l.checkNaming(diag, fn)
	if sym := l.info.DeclOf(fn); sym != nil && !sym.Public && !l.read[sym] {
		diag.Warningf(diagnostic.Style, fn, "function '%s' is not public and never called", fn.Name)
	}
	if fn.ReturnType.Kind == ast.TypeVoid && len(fn.Body.Statements) == 0 {
		diag.Warningf(diagnostic.Style, fn, "function '%s' has an empty body", fn.Name)
	}

	for _, p := range fn.Params {
		l.checkNaming(diag, p)
		if sym := l.info.DeclOf(p); sym != nil && !l.read[sym] {
			diag.Warningf(diagnostic.Style, p, "parameter '%s' of '%s' is never used", p.Name, fn.Name)
		}
	}

	ast.Inspect(fn.Body, func(n ast.Node) bool {
		v, ok := n.(*ast.VarDecl)
		if !ok {
			return true
		}
		l.checkNaming(diag, v)
		sym := l.info.DeclOf(v)
		switch {
		case sym == nil:
		case !l.read[sym]:
			diag.Warningf(diagnostic.Style, v, "local variable '%s' is declared but never used", v.Name)
		case v.Init == nil && !l.assigned[sym]:
			diag.Warningf(diagnostic.Style, v, "local variable '%s' is read but never assigned", v.Name)
		}
		return true
	})
}

// checkNaming warns when a value declaration does not start with a lowercase letter
func (l *Linter) checkNaming(diag *diagnostic.Diagnostics, decl ast.Node) {
	sym := l.info.DeclOf(decl)
	if sym == nil || startsLower(sym.Name) {
		return
	}
	diag.Warningf(diagnostic.Style, decl, "%s '%s' should start with a lowercase letter", sym.Kind, sym.Name)
}

// --- usage collection ---

// collectUsage walks a module and records which symbols are read, which
// locals are assigned, and which imported modules are referenced.
func (l *Linter) collectUsage(ms *checker.ModuleScope) {
	l.read = make(map[*checker.Symbol]bool)
	l.assigned = make(map[*checker.Symbol]bool)
	l.imported = make(map[string]bool)
	targets := make(map[*ast.Identifier]bool)

	ast.Inspect(ms.Node, func(n ast.Node) bool {
		switch n := n.(type) {
		case *ast.AssignStmt:
			if ident, ok := n.Target.(*ast.Identifier); ok {
				targets[ident] = true
			}
		case *ast.Identifier:
			l.noteBinding(ms, n, targets[n])
		case *ast.CallExpr:
			l.noteBinding(ms, n, false)
		case *ast.TypeRef:
			if n.Kind == ast.TypeNamed {
				l.noteTypeName(ms, n.Name)
			}
		}
		return true
	})
}

func (l *Linter) noteBinding(ms *checker.ModuleScope, expr ast.Expression, isTarget bool) {
	sym := l.info.BindingOf(expr)
	if sym == nil {
		return
	}
	if isTarget {
		l.assigned[sym] = true
	} else {
		l.read[sym] = true
	}
	if sym.Module != "" && sym.Module != ms.Name {
		l.imported[sym.Module] = true
	}
}

// noteTypeName credits the import that supplies a type alias the module
// does not declare itself
func (l *Linter) noteTypeName(ms *checker.ModuleScope, name string) {
	if ms.Types.ResolveLocal(name) != nil {
		return
	}
	for _, imp := range ms.Imports {
		if sym := imp.Types.ResolveLocal(name); sym != nil && sym.Public {
			l.imported[imp.Name] = true
		}
	}
}

// --- naming helpers ---

func startsLower(name string) bool {
	r, _ := utf8.DecodeRuneInString(name)
	return unicode.IsLower(r)
}

func startsUpper(name string) bool {
	r, _ := utf8.DecodeRuneInString(name)
	return unicode.IsUpper(r)
}
