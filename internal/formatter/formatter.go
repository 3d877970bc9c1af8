// Package formatter prints modules back as canonical source text.
package formatter

import (
	"fmt"
	"strings"

	"github.com/lhaig/modc/internal/ast"
	"github.com/lhaig/modc/internal/lexer"
	"github.com/lhaig/modc/internal/parser"
)

// Format takes a parsed module and returns canonical source code.
// Comments are not part of the tree and are not reproduced.
func Format(mod *ast.Module) string {
	f := &formatter{}
	f.formatModule(mod)
	return f.sb.String()
}

// Source parses src and returns it formatted. Lexical errors are reported
// even when the parser recovered past them.
func Source(src string) (string, error) {
	p := parser.New(src)
	mod, err := p.Parse()
	if err != nil {
		return "", err
	}
	if errs := p.LexErrors(); len(errs) > 0 {
		return "", errs[0]
	}
	return Format(mod), nil
}

type formatter struct {
	sb     strings.Builder
	indent int
}

// --- helpers ---

func (f *formatter) emit(s string) {
	f.sb.WriteString(s)
}

func (f *formatter) emitf(format string, args ...any) {
	fmt.Fprintf(&f.sb, format, args...)
}

func (f *formatter) emitLinef(format string, args ...any) {
	f.sb.WriteString(f.indentStr())
	fmt.Fprintf(&f.sb, format, args...)
	f.sb.WriteString("\n")
}

func (f *formatter) incIndent() { f.indent++ }
func (f *formatter) decIndent() { f.indent-- }

func (f *formatter) indentStr() string {
	return strings.Repeat("    ", f.indent)
}

func (f *formatter) blankLine() {
	f.sb.WriteString("\n")
}

// --- module-level ---

func (f *formatter) formatModule(mod *ast.Module) {
	f.emitLinef("module %s {", mod.Name)
	f.incIndent()

	for _, imp := range mod.Imports {
		f.emitLinef("import %s;", imp.Name)
	}

	// functions are separated by blank lines; runs of types and fields stay together
	prevFunc := false
	for i, d := range mod.Decls {
		_, isFunc := d.(*ast.FunctionDecl)
		if (i == 0 && len(mod.Imports) > 0) || (i > 0 && (isFunc || prevFunc)) {
			f.blankLine()
		}
		f.formatDecl(d)
		prevFunc = isFunc
	}

	f.decIndent()
	f.emitLinef("}")
}

func visibility(public bool) string {
	if public {
		return "public "
	}
	return ""
}

func (f *formatter) formatDecl(d ast.Decl) {
	switch d := d.(type) {
	case *ast.TypeDecl:
		f.emitLinef("%stype %s = \"%s\";", visibility(d.Public), d.Name, d.Descriptor)
	case *ast.FieldDecl:
		f.emitLinef("%s%s %s;", visibility(d.Public), d.Type, d.Name)
	case *ast.FunctionDecl:
		f.formatFunctionDecl(d)
	}
}

func (f *formatter) formatFunctionDecl(fn *ast.FunctionDecl) {
	params := make([]string, len(fn.Params))
	for i, p := range fn.Params {
		params[i] = fmt.Sprintf("%s %s", p.Type, p.Name)
	}
	f.emit(f.indentStr())
	f.emitf("%s%s %s(%s)", visibility(fn.Public), fn.ReturnType, fn.Name, strings.Join(params, ", "))
	f.formatBody(fn.Body)
	f.emit("\n")
}

// --- statements ---

// formatBody writes a statement body after its header. A block opens on the
// header line and leaves its closing brace unterminated, returning true.
// Any other statement goes on its own indented line.
func (f *formatter) formatBody(s ast.Statement) bool {
	if b, ok := s.(*ast.Block); ok {
		f.emit(" {\n")
		f.incIndent()
		for _, inner := range b.Statements {
			f.formatStmt(inner)
		}
		f.decIndent()
		f.emit(f.indentStr() + "}")
		return true
	}
	f.emit("\n")
	f.incIndent()
	f.formatStmt(s)
	f.decIndent()
	return false
}

func (f *formatter) formatStmt(s ast.Statement) {
	switch s := s.(type) {
	case *ast.Block:
		f.emitLinef("{")
		f.incIndent()
		for _, inner := range s.Statements {
			f.formatStmt(inner)
		}
		f.decIndent()
		f.emitLinef("}")
	case *ast.VarDecl:
		if s.Init != nil {
			f.emitLinef("%s %s = %s;", s.Type, s.Name, f.formatExpr(s.Init))
		} else {
			f.emitLinef("%s %s;", s.Type, s.Name)
		}
	case *ast.AssignStmt:
		f.emitLinef("%s = %s;", f.formatExpr(s.Target), f.formatExpr(s.Value))
	case *ast.IfStmt:
		f.emit(f.indentStr())
		f.formatIfChain(s)
	case *ast.WhileStmt:
		f.emit(f.indentStr())
		f.emitf("while (%s)", f.formatExpr(s.Condition))
		if f.formatBody(s.Body) {
			f.emit("\n")
		}
	case *ast.BreakStmt:
		f.emitLinef("break;")
	case *ast.ReturnStmt:
		if s.Value != nil {
			f.emitLinef("return %s;", f.formatExpr(s.Value))
		} else {
			f.emitLinef("return;")
		}
	case *ast.ExprStmt:
		f.emitLinef("%s;", f.formatExpr(s.Expr))
	}
}

func (f *formatter) formatIfChain(stmt *ast.IfStmt) {
	then := stmt.Then
	if stmt.Else != nil && endsWithOpenIf(then) {
		// the else would otherwise attach to the inner if
		line, col := then.Pos()
		then = &ast.Block{Statements: []ast.Statement{then}, Line: line, Column: col}
	}

	f.emitf("if (%s)", f.formatExpr(stmt.Condition))
	braced := f.formatBody(then)
	if stmt.Else == nil {
		if braced {
			f.emit("\n")
		}
		return
	}

	if braced {
		f.emit(" else")
	} else {
		f.emit(f.indentStr() + "else")
	}
	if elseIf, ok := stmt.Else.(*ast.IfStmt); ok {
		f.emit(" ")
		f.formatIfChain(elseIf)
		return
	}
	if f.formatBody(stmt.Else) {
		f.emit("\n")
	}
}

// endsWithOpenIf reports whether s ends in an if statement without an else
func endsWithOpenIf(s ast.Statement) bool {
	switch s := s.(type) {
	case *ast.IfStmt:
		if s.Else == nil {
			return true
		}
		return endsWithOpenIf(s.Else)
	case *ast.WhileStmt:
		return endsWithOpenIf(s.Body)
	default:
		return false
	}
}

// --- expressions ---

const (
	precLowest = iota
	precEquality
	precComparison
	precAdditive
	precMulti
	precUnary
	precPostfix
)

func precedence(op lexer.TokenType) int {
	switch op {
	case lexer.EQ, lexer.NEQ:
		return precEquality
	case lexer.LT, lexer.GT, lexer.LEQ, lexer.GEQ:
		return precComparison
	case lexer.PLUS, lexer.MINUS:
		return precAdditive
	case lexer.STAR, lexer.SLASH, lexer.PERCENT:
		return precMulti
	default:
		return precLowest
	}
}

func (f *formatter) formatExpr(e ast.Expression) string {
	return f.formatExprPrec(e, precLowest)
}

// formatExprPrec renders e, parenthesized when it binds looser than parentPrec.
// Binary operators are left-associative, so a right operand of equal
// precedence is rendered with parentPrec one higher.
func (f *formatter) formatExprPrec(e ast.Expression, parentPrec int) string {
	switch e := e.(type) {
	case *ast.IntLit:
		return e.Value
	case *ast.StringLit:
		return `"` + e.Value + `"`
	case *ast.BoolLit:
		if e.Value {
			return "true"
		}
		return "false"
	case *ast.Identifier:
		return e.Name
	case *ast.ArrayLit:
		return "[" + f.formatList(e.Elements) + "]"
	case *ast.CallExpr:
		return e.Callee + "(" + f.formatList(e.Args) + ")"
	case *ast.IndexExpr:
		return f.formatExprPrec(e.Array, precPostfix) + "[" + f.formatExpr(e.Index) + "]"
	case *ast.UnaryExpr:
		s := e.Op.Symbol() + f.formatExprPrec(e.Operand, precUnary)
		if precUnary < parentPrec {
			return "(" + s + ")"
		}
		return s
	case *ast.BinaryExpr:
		prec := precedence(e.Op)
		s := fmt.Sprintf("%s %s %s",
			f.formatExprPrec(e.Left, prec),
			e.Op.Symbol(),
			f.formatExprPrec(e.Right, prec+1))
		if prec < parentPrec {
			return "(" + s + ")"
		}
		return s
	default:
		return fmt.Sprintf("<unknown %T>", e)
	}
}

func (f *formatter) formatList(exprs []ast.Expression) string {
	parts := make([]string, len(exprs))
	for i, e := range exprs {
		parts[i] = f.formatExpr(e)
	}
	return strings.Join(parts, ", ")
}
