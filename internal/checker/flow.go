package checker

import (
	"github.com/lhaig/modc/internal/ast"
	"github.com/lhaig/modc/internal/diagnostic"
)

// CheckFlow checks that every non-void function returns a value on every
// path and that break only appears inside a while body. Statements that can
// never run are reported as warnings.
func (a *Analyzer) CheckFlow() {
	if !a.resolved {
		a.ResolveNames()
	}
	for _, ms := range a.modules() {
		a.enterModule(ms)
		for _, fn := range ms.Node.Functions() {
			a.loopDepth = 0
			if a.flowBlock(fn.Body) && fn.ReturnType.Kind != ast.TypeVoid {
				a.errorf(diagnostic.Flow, fn, "missing return: function '%s' can reach its end without returning a value", fn.Name)
			}
		}
	}
	a.module = nil
}

// flowBlock reports whether execution can fall off the end of the block
func (a *Analyzer) flowBlock(block *ast.Block) bool {
	reachable, warned := true, false
	for _, stmt := range block.Statements {
		if !reachable && !warned {
			a.warningf(diagnostic.Flow, stmt, "unreachable statement")
			warned = true
		}
		if !a.flowStatement(stmt) {
			reachable = false
		}
	}
	return reachable
}

// flowStatement reports whether the statement can complete normally
func (a *Analyzer) flowStatement(stmt ast.Statement) bool {
	switch s := stmt.(type) {
	case *ast.Block:
		return a.flowBlock(s)

	case *ast.ReturnStmt:
		return false

	case *ast.BreakStmt:
		if a.loopDepth == 0 {
			a.errorf(diagnostic.Flow, s, "break outside of a while loop")
			return true
		}
		return false

	case *ast.IfStmt:
		thenCompletes := a.flowStatement(s.Then)
		if s.Else == nil {
			return true
		}
		elseCompletes := a.flowStatement(s.Else)
		return thenCompletes || elseCompletes

	case *ast.WhileStmt:
		// the condition may be false on entry, so a loop never guarantees a return
		a.loopDepth++
		a.flowStatement(s.Body)
		a.loopDepth--
		return true

	default:
		return true
	}
}
