package checker

import (
	"math"
	"strconv"

	"github.com/lhaig/modc/internal/ast"
	"github.com/lhaig/modc/internal/diagnostic"
	"github.com/lhaig/modc/internal/lexer"
)

// CheckTypes assigns a type to every expression bottom-up and checks every
// statement against the types involved. Expressions whose names did not
// resolve get no type and raise no further errors.
func (a *Analyzer) CheckTypes() {
	if !a.resolved {
		a.ResolveNames()
	}
	a.info.Types = make(map[ast.Expression]*Type)

	for _, ms := range a.modules() {
		a.enterModule(ms)
		for _, fn := range ms.Node.Functions() {
			a.fn = a.info.Decls[fn]
			a.checkBlock(fn.Body)
		}
	}
	a.module, a.fn = nil, nil
}

// checkBlock checks a block of statements
func (a *Analyzer) checkBlock(block *ast.Block) {
	for _, stmt := range block.Statements {
		a.checkStatement(stmt)
	}
}

// checkStatement checks a statement
func (a *Analyzer) checkStatement(stmt ast.Statement) {
	switch s := stmt.(type) {
	case *ast.Block:
		a.checkBlock(s)

	case *ast.VarDecl:
		if s.Init == nil {
			return
		}
		declared := a.info.Decls[s].Type
		a.checkAssignable(s.Init, declared, a.checkExpression(s.Init, declared))

	case *ast.AssignStmt:
		target := a.checkExpression(s.Target, nil)
		a.checkAssignable(s.Value, target, a.checkExpression(s.Value, target))

	case *ast.IfStmt:
		a.checkCondition(s.Condition, "if")
		a.checkStatement(s.Then)
		if s.Else != nil {
			a.checkStatement(s.Else)
		}

	case *ast.WhileStmt:
		a.checkCondition(s.Condition, "while")
		a.checkStatement(s.Body)

	case *ast.ReturnStmt:
		a.checkReturnStmt(s)

	case *ast.ExprStmt:
		a.checkExpression(s.Expr, nil)
		if _, ok := s.Expr.(*ast.CallExpr); !ok {
			a.warningf(diagnostic.Type, s, "expression value is not used")
		}
	}
}

// checkAssignable reports a mismatch between a value and the type it flows into
func (a *Analyzer) checkAssignable(expr ast.Expression, want, got *Type) {
	if want == nil || got == nil || want.Equal(got) {
		return
	}
	a.errorf(diagnostic.Type, expr, "type mismatch: cannot use %s value as %s", got, want)
}

func (a *Analyzer) checkCondition(cond ast.Expression, what string) {
	t := a.checkExpression(cond, TypeBoolean)
	if t != nil && t.Kind != KindBoolean {
		a.errorf(diagnostic.Type, cond, "%s condition must be boolean, got %s", what, t)
	}
}

// checkReturnStmt checks a return against the enclosing function's return type
func (a *Analyzer) checkReturnStmt(stmt *ast.ReturnStmt) {
	var ret *Type
	name := ""
	if a.fn != nil {
		ret, name = a.fn.Return, a.fn.Name
	}

	if stmt.Value == nil {
		if ret != nil && ret.Kind != KindVoid {
			a.errorf(diagnostic.Type, stmt, "missing return value: function '%s' returns %s", name, ret)
		}
		return
	}

	got := a.checkExpression(stmt.Value, ret)
	if ret == nil {
		return
	}
	if ret.Kind == KindVoid {
		a.errorf(diagnostic.Type, stmt, "void function '%s' cannot return a value", name)
		return
	}
	a.checkAssignable(stmt.Value, ret, got)
}

// storeExprType stores the type of an expression for later use by codegen
func (a *Analyzer) storeExprType(expr ast.Expression, t *Type) *Type {
	if t != nil {
		a.info.Types[expr] = t
	}
	return t
}

// checkExpression checks an expression and returns its type. expected is the
// type the context wants, used only to type empty array literals.
func (a *Analyzer) checkExpression(expr ast.Expression, expected *Type) *Type {
	switch e := expr.(type) {
	case *ast.IntLit:
		a.checkIntLit(e, false)
		return a.storeExprType(expr, TypeInt)
	case *ast.StringLit:
		return a.storeExprType(expr, TypeString)
	case *ast.BoolLit:
		return a.storeExprType(expr, TypeBoolean)
	case *ast.Identifier:
		if sym := a.info.Bindings[e]; sym != nil {
			return a.storeExprType(expr, sym.Type)
		}
		return nil
	case *ast.ArrayLit:
		return a.storeExprType(expr, a.checkArrayLit(e, expected))
	case *ast.IndexExpr:
		return a.storeExprType(expr, a.checkIndexExpr(e))
	case *ast.BinaryExpr:
		return a.storeExprType(expr, a.checkBinaryExpr(e))
	case *ast.UnaryExpr:
		return a.storeExprType(expr, a.checkUnaryExpr(e))
	case *ast.CallExpr:
		return a.storeExprType(expr, a.checkCallExpr(e))
	default:
		return nil
	}
}

// checkIntLit reports literals outside the 32-bit range. Under unary minus
// the literal may be one larger, so that the minimum int can be written.
func (a *Analyzer) checkIntLit(lit *ast.IntLit, negated bool) {
	limit := int64(math.MaxInt32)
	if negated {
		limit++
	}
	v, err := strconv.ParseInt(lit.Value, 10, 64)
	if err != nil || v > limit {
		a.errorf(diagnostic.Type, lit, "integer literal %s is out of range for int", lit.Value)
	}
}

// checkArrayLit checks that all elements share one element type
func (a *Analyzer) checkArrayLit(lit *ast.ArrayLit, expected *Type) *Type {
	var elem *Type
	if expected != nil && expected.Kind == KindArray {
		elem = expected.Elem
	}

	if len(lit.Elements) == 0 {
		if elem == nil {
			a.errorf(diagnostic.Type, lit, "cannot infer the element type of an empty array literal")
			return nil
		}
		return ArrayOf(elem)
	}

	ok := true
	for _, el := range lit.Elements {
		t := a.checkExpression(el, elem)
		switch {
		case t == nil:
			ok = false
		case t.Kind == KindVoid:
			a.errorf(diagnostic.Type, el, "void value cannot be an array element")
			ok = false
		case elem == nil:
			elem = t
		case !elem.Equal(t):
			a.errorf(diagnostic.Type, el, "array element has type %s, expected %s", t, elem)
			ok = false
		}
	}
	if !ok || elem == nil {
		return nil
	}
	return ArrayOf(elem)
}

// checkIndexExpr checks array[index]
func (a *Analyzer) checkIndexExpr(expr *ast.IndexExpr) *Type {
	arrType := a.checkExpression(expr.Array, nil)
	idxType := a.checkExpression(expr.Index, TypeInt)

	if idxType != nil && idxType.Kind != KindInt {
		a.errorf(diagnostic.Type, expr.Index, "array index must be int, got %s", idxType)
	}
	if arrType == nil {
		return nil
	}
	if arrType.Kind != KindArray {
		a.errorf(diagnostic.Type, expr.Array, "cannot index a value of type %s", arrType)
		return nil
	}
	return arrType.Elem
}

// checkBinaryExpr checks a binary expression
func (a *Analyzer) checkBinaryExpr(expr *ast.BinaryExpr) *Type {
	equality := expr.Op == lexer.EQ || expr.Op == lexer.NEQ

	leftType := a.checkExpression(expr.Left, nil)
	var rightExpected *Type
	if equality {
		rightExpected = leftType
	}
	rightType := a.checkExpression(expr.Right, rightExpected)

	if leftType == nil || rightType == nil {
		return nil
	}

	op := expr.Op.Symbol()
	switch expr.Op {
	case lexer.PLUS, lexer.MINUS, lexer.STAR, lexer.SLASH, lexer.PERCENT:
		if leftType.Kind == KindInt && rightType.Kind == KindInt {
			return TypeInt
		}
		a.errorf(diagnostic.Type, expr, "operator '%s' requires int operands, got %s and %s", op, leftType, rightType)
		return nil

	case lexer.LT, lexer.GT, lexer.LEQ, lexer.GEQ:
		if leftType.Kind == KindInt && rightType.Kind == KindInt {
			return TypeBoolean
		}
		a.errorf(diagnostic.Type, expr, "operator '%s' requires int operands, got %s and %s", op, leftType, rightType)
		return nil

	case lexer.EQ, lexer.NEQ:
		if leftType.Kind == KindVoid || rightType.Kind == KindVoid {
			a.errorf(diagnostic.Type, expr, "operator '%s' cannot compare void values", op)
			return nil
		}
		if leftType.Equal(rightType) {
			return TypeBoolean
		}
		a.errorf(diagnostic.Type, expr, "operator '%s' requires operands of the same type, got %s and %s", op, leftType, rightType)
		return nil

	default:
		a.errorf(diagnostic.Type, expr, "unknown binary operator '%s'", op)
		return nil
	}
}

// checkUnaryExpr checks a unary expression
func (a *Analyzer) checkUnaryExpr(expr *ast.UnaryExpr) *Type {
	if lit, ok := expr.Operand.(*ast.IntLit); ok && expr.Op == lexer.MINUS {
		a.checkIntLit(lit, true)
		a.storeExprType(lit, TypeInt)
		return TypeInt
	}

	operandType := a.checkExpression(expr.Operand, nil)
	if operandType == nil {
		return nil
	}

	switch expr.Op {
	case lexer.MINUS:
		if operandType.Kind == KindInt {
			return TypeInt
		}
		a.errorf(diagnostic.Type, expr, "operator '-' requires an int operand, got %s", operandType)
		return nil

	case lexer.NOT:
		if operandType.Kind == KindBoolean {
			return TypeBoolean
		}
		a.errorf(diagnostic.Type, expr, "operator '!' requires a boolean operand, got %s", operandType)
		return nil

	default:
		a.errorf(diagnostic.Type, expr, "unknown unary operator '%s'", expr.Op.Symbol())
		return nil
	}
}

// checkCallExpr checks arity and argument types against the callee
func (a *Analyzer) checkCallExpr(expr *ast.CallExpr) *Type {
	sym := a.info.Bindings[expr]
	if sym == nil {
		for _, arg := range expr.Args {
			a.checkExpression(arg, nil)
		}
		return nil
	}

	if len(expr.Args) != len(sym.Params) {
		a.errorf(diagnostic.Type, expr, "function '%s' expects %d argument(s), got %d", sym.Name, len(sym.Params), len(expr.Args))
		for _, arg := range expr.Args {
			a.checkExpression(arg, nil)
		}
		return sym.Return
	}

	for i, arg := range expr.Args {
		a.checkAssignable(arg, sym.Params[i], a.checkExpression(arg, sym.Params[i]))
	}
	return sym.Return
}
