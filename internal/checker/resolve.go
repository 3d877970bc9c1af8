package checker

import (
	"fmt"
	"strings"

	"github.com/lhaig/modc/internal/ast"
	"github.com/lhaig/modc/internal/diagnostic"
)

// ResolveNames builds one symbol table per module, validates imports, resolves
// every declared type and binds every identifier and call to its declaration.
// Lookup order is block, enclosing blocks, parameters, module, then the public
// declarations of imported modules.
//
// ResolveNames starts a fresh analysis: it discards earlier diagnostics and
// results. CheckTypes and CheckFlow append to what it leaves.
func (a *Analyzer) ResolveNames() {
	a.diag.Clear()
	a.info = newInfo()
	a.resolved = true

	a.registerModules()
	mods := a.modules()

	for _, ms := range mods {
		a.enterModule(ms)
		a.declareTypes(ms)
	}
	for _, ms := range mods {
		a.enterModule(ms)
		a.resolveImports(ms)
	}
	a.checkImportCycles(mods)
	for _, ms := range mods {
		a.enterModule(ms)
		a.declareValues(ms)
	}
	for _, ms := range mods {
		a.enterModule(ms)
		for _, fn := range ms.Node.Functions() {
			a.resolveFunction(fn)
		}
	}
	a.module = nil
}

// registerModules creates an empty scope for every module name
func (a *Analyzer) registerModules() {
	for _, mod := range a.prog.Modules {
		if prev, exists := a.info.Modules[mod.Name]; exists {
			a.enterModule(&ModuleScope{Name: mod.Name, Node: mod})
			hint := ""
			if prev.Node.File != "" {
				hint = "first declared in " + prev.Node.File
			}
			a.report(diagnostic.Error, diagnostic.Name, mod, fmt.Sprintf("module '%s' is declared more than once", mod.Name), hint)
			continue
		}
		a.info.Modules[mod.Name] = &ModuleScope{
			Name:   mod.Name,
			Node:   mod,
			Types:  NewScope(nil),
			Values: NewScope(nil),
		}
	}
}

// declareTypes registers the type aliases of a module
func (a *Analyzer) declareTypes(ms *ModuleScope) {
	for _, d := range ms.Node.Decls {
		td, ok := d.(*ast.TypeDecl)
		if !ok {
			continue
		}
		if td.Descriptor == "" {
			a.errorf(diagnostic.Type, td, "type '%s' has an empty host descriptor", td.Name)
		}
		sym := &Symbol{
			Name:   td.Name,
			Kind:   SymTypeAlias,
			Module: ms.Name,
			Public: td.Public,
			Type:   HostType(td.Name, td.Descriptor),
			Node:   td,
		}
		if err := ms.Types.Define(td.Name, sym); err != nil {
			a.errorf(diagnostic.Name, td, "type '%s' is already declared in module %s", td.Name, ms.Name)
			continue
		}
		a.info.Decls[td] = sym
	}
}

// resolveImports links a module to the modules it imports
func (a *Analyzer) resolveImports(ms *ModuleScope) {
	seen := make(map[string]bool)
	for _, imp := range ms.Node.Imports {
		switch {
		case imp.Name == ms.Name:
			a.errorf(diagnostic.Import, imp, "module %s cannot import itself", ms.Name)
		case seen[imp.Name]:
			a.errorf(diagnostic.Import, imp, "module %s is imported more than once", imp.Name)
		default:
			target, ok := a.info.Modules[imp.Name]
			if !ok {
				a.errorf(diagnostic.Import, imp, "unknown module '%s'", imp.Name)
				break
			}
			ms.Imports = append(ms.Imports, target)
		}
		seen[imp.Name] = true
	}
}

const (
	unvisited = iota
	visiting
	visited
)

// checkImportCycles reports every import that closes a cycle in the import
// graph, using an in-progress marker per module
func (a *Analyzer) checkImportCycles(mods []*ModuleScope) {
	state := make(map[*ModuleScope]int)
	var path []*ModuleScope

	var visit func(ms *ModuleScope)
	visit = func(ms *ModuleScope) {
		state[ms] = visiting
		path = append(path, ms)

		seen := make(map[string]bool)
		for _, imp := range ms.Node.Imports {
			target, ok := a.info.Modules[imp.Name]
			if !ok || target == ms || seen[imp.Name] {
				continue
			}
			seen[imp.Name] = true

			switch state[target] {
			case visiting:
				a.enterModule(ms)
				a.errorf(diagnostic.Import, imp, "import cycle: %s", cyclePath(path, target))
			case unvisited:
				visit(target)
			}
		}

		path = path[:len(path)-1]
		state[ms] = visited
	}

	for _, ms := range mods {
		if state[ms] == unvisited {
			visit(ms)
		}
	}
}

func cyclePath(path []*ModuleScope, target *ModuleScope) string {
	var names []string
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == target {
			for _, ms := range path[i:] {
				names = append(names, ms.Name)
			}
			break
		}
	}
	names = append(names, target.Name)
	return strings.Join(names, " -> ")
}

// declareValues registers the fields and functions of a module. Fields and
// functions share one namespace.
func (a *Analyzer) declareValues(ms *ModuleScope) {
	for _, d := range ms.Node.Decls {
		switch d := d.(type) {
		case *ast.FieldDecl:
			typ := a.resolveTypeRef(d.Type)
			if typ != nil && typ.Kind == KindVoid {
				a.errorf(diagnostic.Type, d, "field '%s' cannot have type void", d.Name)
				typ = nil
			}
			a.defineValue(ms, d, &Symbol{
				Name:   d.Name,
				Kind:   SymField,
				Module: ms.Name,
				Public: d.Public,
				Type:   typ,
				Node:   d,
			})

		case *ast.FunctionDecl:
			ret := a.resolveTypeRef(d.ReturnType)
			params := make([]*Type, len(d.Params))
			for i, p := range d.Params {
				params[i] = a.resolveTypeRef(p.Type)
				if params[i] != nil && params[i].Kind == KindVoid {
					a.errorf(diagnostic.Type, p, "parameter '%s' cannot have type void", p.Name)
					params[i] = nil
				}
			}
			a.defineValue(ms, d, &Symbol{
				Name:   d.Name,
				Kind:   SymFunction,
				Module: ms.Name,
				Public: d.Public,
				Params: params,
				Return: ret,
				Node:   d,
			})
		}
	}
}

func (a *Analyzer) defineValue(ms *ModuleScope, decl ast.Decl, sym *Symbol) {
	if err := ms.Values.Define(sym.Name, sym); err != nil {
		prev := ms.Values.ResolveLocal(sym.Name)
		a.errorf(diagnostic.Name, decl, "'%s' is already declared as a %s in module %s", sym.Name, prev.Kind, ms.Name)
	}
	a.info.Decls[decl] = sym
}

// resolveTypeRef resolves a written type and records the result
func (a *Analyzer) resolveTypeRef(ref *ast.TypeRef) *Type {
	var t *Type
	switch ref.Kind {
	case ast.TypeInt:
		t = TypeInt
	case ast.TypeBoolean:
		t = TypeBoolean
	case ast.TypeVoid:
		t = TypeVoid
	case ast.TypeArray:
		elem := a.resolveTypeRef(ref.Elem)
		if elem == nil {
			return nil
		}
		if elem.Kind == KindVoid {
			a.errorf(diagnostic.Type, ref, "array element type cannot be void")
			return nil
		}
		t = ArrayOf(elem)
	case ast.TypeNamed:
		sym := a.lookupType(ref)
		if sym == nil {
			return nil
		}
		t = sym.Type
	}
	a.info.DeclTypes[ref] = t
	return t
}

func (a *Analyzer) lookupType(ref *ast.TypeRef) *Symbol {
	if sym := a.module.Types.ResolveLocal(ref.Name); sym != nil {
		return sym
	}
	sym, reported := a.lookupImported(ref, ref.Name, func(ms *ModuleScope) *Scope { return ms.Types })
	if sym == nil && !reported {
		a.errorf(diagnostic.Name, ref, "unknown type '%s'", ref.Name)
	}
	return sym
}

func (a *Analyzer) lookupValue(node ast.Node, name string, scope *Scope) *Symbol {
	if sym := scope.Resolve(name); sym != nil {
		return sym
	}
	if sym := a.module.Values.ResolveLocal(name); sym != nil {
		return sym
	}
	sym, reported := a.lookupImported(node, name, func(ms *ModuleScope) *Scope { return ms.Values })
	if sym == nil && !reported {
		a.errorf(diagnostic.Name, node, "undefined name '%s'", name)
	}
	return sym
}

// lookupImported searches the imports of the current module. The second
// result reports whether a diagnostic was already recorded for the name.
func (a *Analyzer) lookupImported(node ast.Node, name string, table func(*ModuleScope) *Scope) (*Symbol, bool) {
	var public []*Symbol
	var hidden *Symbol
	for _, imp := range a.module.Imports {
		sym := table(imp).ResolveLocal(name)
		switch {
		case sym == nil:
		case sym.Public:
			public = append(public, sym)
		case hidden == nil:
			hidden = sym
		}
	}

	switch {
	case len(public) == 1:
		return public[0], false
	case len(public) > 1:
		a.errorf(diagnostic.Name, node, "'%s' is ambiguous: declared public in modules %s and %s", name, public[0].Module, public[1].Module)
		return nil, true
	case hidden != nil:
		a.report(diagnostic.Error, diagnostic.Name, node,
			fmt.Sprintf("%s '%s' of module %s is not public", hidden.Kind, name, hidden.Module),
			fmt.Sprintf("declare it 'public' in module %s", hidden.Module))
		return nil, true
	}
	return nil, false
}

// resolveFunction binds the parameters and body of one function
func (a *Analyzer) resolveFunction(fn *ast.FunctionDecl) {
	fnSym := a.info.Decls[fn]
	params := NewScope(nil)
	for i, p := range fn.Params {
		sym := &Symbol{
			Name:   p.Name,
			Kind:   SymParam,
			Module: a.module.Name,
			Type:   fnSym.Params[i],
			Node:   p,
		}
		if err := params.Define(p.Name, sym); err != nil {
			a.errorf(diagnostic.Name, p, "duplicate parameter '%s' in function '%s'", p.Name, fn.Name)
		}
		a.info.Decls[p] = sym
	}
	a.resolveBlock(fn.Body, params)
}

func (a *Analyzer) resolveBlock(block *ast.Block, parent *Scope) {
	scope := NewScope(parent)
	for _, stmt := range block.Statements {
		a.resolveStmt(stmt, scope)
	}
}

// resolveBody resolves the body of an if or while in its own scope
func (a *Analyzer) resolveBody(stmt ast.Statement, parent *Scope) {
	if block, ok := stmt.(*ast.Block); ok {
		a.resolveBlock(block, parent)
		return
	}
	a.resolveStmt(stmt, NewScope(parent))
}

func (a *Analyzer) resolveStmt(stmt ast.Statement, scope *Scope) {
	switch s := stmt.(type) {
	case *ast.Block:
		a.resolveBlock(s, scope)

	case *ast.VarDecl:
		typ := a.resolveTypeRef(s.Type)
		if typ != nil && typ.Kind == KindVoid {
			a.errorf(diagnostic.Type, s, "variable '%s' cannot have type void", s.Name)
			typ = nil
		}
		// the initializer cannot see the variable it initializes
		if s.Init != nil {
			a.resolveExpr(s.Init, scope)
		}
		sym := &Symbol{
			Name:   s.Name,
			Kind:   SymLocal,
			Module: a.module.Name,
			Type:   typ,
			Node:   s,
		}
		if err := scope.Define(s.Name, sym); err != nil {
			a.errorf(diagnostic.Name, s, "'%s' is already declared in this block", s.Name)
		}
		a.info.Decls[s] = sym

	case *ast.AssignStmt:
		a.resolveExpr(s.Target, scope)
		a.resolveExpr(s.Value, scope)

	case *ast.IfStmt:
		a.resolveExpr(s.Condition, scope)
		a.resolveBody(s.Then, scope)
		if s.Else != nil {
			a.resolveBody(s.Else, scope)
		}

	case *ast.WhileStmt:
		a.resolveExpr(s.Condition, scope)
		a.resolveBody(s.Body, scope)

	case *ast.ReturnStmt:
		if s.Value != nil {
			a.resolveExpr(s.Value, scope)
		}

	case *ast.ExprStmt:
		a.resolveExpr(s.Expr, scope)
	}
}

func (a *Analyzer) resolveExpr(expr ast.Expression, scope *Scope) {
	switch e := expr.(type) {
	case *ast.Identifier:
		sym := a.lookupValue(e, e.Name, scope)
		if sym == nil {
			return
		}
		if sym.Kind == SymFunction {
			a.errorf(diagnostic.Name, e, "function '%s' cannot be used as a value", e.Name)
			return
		}
		a.info.Bindings[e] = sym

	case *ast.CallExpr:
		sym := a.lookupValue(e, e.Callee, scope)
		if sym != nil && sym.Kind != SymFunction {
			a.errorf(diagnostic.Name, e, "'%s' is a %s, not a function", e.Callee, sym.Kind)
			sym = nil
		}
		if sym != nil {
			a.info.Bindings[e] = sym
		}
		for _, arg := range e.Args {
			a.resolveExpr(arg, scope)
		}

	case *ast.IndexExpr:
		a.resolveExpr(e.Array, scope)
		a.resolveExpr(e.Index, scope)

	case *ast.BinaryExpr:
		a.resolveExpr(e.Left, scope)
		a.resolveExpr(e.Right, scope)

	case *ast.UnaryExpr:
		a.resolveExpr(e.Operand, scope)

	case *ast.ArrayLit:
		for _, el := range e.Elements {
			a.resolveExpr(el, scope)
		}
	}
}
