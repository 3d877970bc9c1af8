// Package codegen lowers a checked program to bytecode units, one per module.
package codegen

import (
	"fmt"
	"strconv"

	"github.com/lhaig/modc/internal/ast"
	"github.com/lhaig/modc/internal/bytecode"
	"github.com/lhaig/modc/internal/checker"
	"github.com/lhaig/modc/internal/lexer"
)

// Generate produces one unit per module in program order. The program must
// have passed semantic analysis; info supplies the bindings and types the
// analyzer recorded.
func Generate(prog *ast.Program, info *checker.Info) ([]*bytecode.Unit, error) {
	units := make([]*bytecode.Unit, 0, len(prog.Modules))
	for _, mod := range prog.Modules {
		g := &generator{info: info, mod: mod}
		u, err := g.generateModule()
		if err != nil {
			return nil, err
		}
		units = append(units, u)
	}
	return units, nil
}

type generator struct {
	info *checker.Info
	mod  *ast.Module
}

func (g *generator) generateModule() (*bytecode.Unit, error) {
	u := &bytecode.Unit{Name: g.mod.Name}

	for _, f := range g.mod.Fields() {
		sym := g.info.DeclOf(f)
		if sym == nil {
			return nil, g.errorf(f, "field '%s' was not resolved", f.Name)
		}
		u.Fields = append(u.Fields, &bytecode.Field{
			Public: f.Public,
			Name:   f.Name,
			Desc:   descriptor(sym.Type),
		})
	}

	for _, fn := range g.mod.Functions() {
		m, err := g.generateFunction(fn)
		if err != nil {
			return nil, err
		}
		u.Methods = append(u.Methods, m)
	}
	return u, nil
}

func (g *generator) errorf(node ast.Node, format string, args ...any) error {
	line, col := node.Pos()
	return fmt.Errorf("codegen %s %d:%d: %s", g.mod.Name, line, col, fmt.Sprintf(format, args...))
}

// descriptor maps a resolved type to its field descriptor
func descriptor(t *checker.Type) string {
	switch t.Kind {
	case checker.KindInt:
		return bytecode.DescInt
	case checker.KindBoolean:
		return bytecode.DescBoolean
	case checker.KindString:
		return bytecode.DescString
	case checker.KindVoid:
		return bytecode.DescVoid
	case checker.KindArray:
		return bytecode.ArrayDesc(descriptor(t.Elem))
	default:
		return bytecode.HostDesc(t.Descriptor)
	}
}

func methodDescriptor(sym *checker.Symbol) string {
	params := make([]string, len(sym.Params))
	for i, p := range sym.Params {
		params[i] = descriptor(p)
	}
	return bytecode.MethodDesc(params, descriptor(sym.Return))
}

// funcGen holds the state for lowering a single function body
type funcGen struct {
	g      *generator
	fn     *ast.FunctionDecl
	sym    *checker.Symbol
	asm    *bytecode.Assembler
	slots  map[*checker.Symbol]int
	next   int
	breaks []bytecode.Label
}

func (g *generator) generateFunction(fn *ast.FunctionDecl) (*bytecode.Method, error) {
	sym := g.info.DeclOf(fn)
	if sym == nil {
		return nil, g.errorf(fn, "function '%s' was not resolved", fn.Name)
	}
	f := &funcGen{
		g:     g,
		fn:    fn,
		sym:   sym,
		asm:   bytecode.NewAssembler(),
		slots: make(map[*checker.Symbol]int),
	}
	for _, p := range fn.Params {
		ps := g.info.DeclOf(p)
		if ps == nil {
			return nil, g.errorf(p, "parameter '%s' was not resolved", p.Name)
		}
		f.alloc(ps)
	}

	if err := f.genBlock(fn.Body); err != nil {
		return nil, err
	}
	if f.asm.Reachable() {
		if sym.Return.Kind != checker.KindVoid {
			return nil, g.errorf(fn, "function '%s' can reach its end without returning a value", fn.Name)
		}
		f.asm.Op(bytecode.RETURN)
	}

	code, err := f.asm.Finish()
	if err != nil {
		return nil, g.errorf(fn, "function '%s': %v", fn.Name, err)
	}
	m := &bytecode.Method{
		Public:    fn.Public,
		Name:      fn.Name,
		Desc:      methodDescriptor(sym),
		Code:      code,
		MaxLocals: f.next,
	}
	if m.MaxStack, err = bytecode.Verify(m); err != nil {
		return nil, g.errorf(fn, "%v", err)
	}
	return m, nil
}

// alloc gives sym the next free local slot. Slots are never reused.
func (f *funcGen) alloc(sym *checker.Symbol) int {
	slot := f.next
	f.slots[sym] = slot
	f.next++
	return slot
}

// Statements

func (f *funcGen) genBlock(block *ast.Block) error {
	for _, stmt := range block.Statements {
		if !f.asm.Reachable() {
			break
		}
		if err := f.genStatement(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (f *funcGen) genStatement(stmt ast.Statement) error {
	if !f.asm.Reachable() {
		return nil
	}
	switch s := stmt.(type) {
	case *ast.Block:
		return f.genBlock(s)
	case *ast.VarDecl:
		return f.genVarDecl(s)
	case *ast.AssignStmt:
		return f.genAssign(s)
	case *ast.IfStmt:
		return f.genIf(s)
	case *ast.WhileStmt:
		return f.genWhile(s)
	case *ast.BreakStmt:
		if len(f.breaks) == 0 {
			return f.g.errorf(s, "break outside of a loop")
		}
		f.asm.Jump(bytecode.GOTO, f.breaks[len(f.breaks)-1])
		return nil
	case *ast.ReturnStmt:
		return f.genReturn(s)
	case *ast.ExprStmt:
		if err := f.genExpr(s.Expr); err != nil {
			return err
		}
		if t := f.g.info.TypeOf(s.Expr); t != nil && t.Kind != checker.KindVoid {
			f.asm.Op(bytecode.POP)
		}
		return nil
	default:
		return f.g.errorf(stmt, "unsupported statement %T", stmt)
	}
}

// genVarDecl stores the initializer, or the zero value of the type, into a
// fresh slot
func (f *funcGen) genVarDecl(s *ast.VarDecl) error {
	sym := f.g.info.DeclOf(s)
	if sym == nil {
		return f.g.errorf(s, "variable '%s' was not resolved", s.Name)
	}
	if s.Init != nil {
		if err := f.genExpr(s.Init); err != nil {
			return err
		}
	} else if sym.Type.IsReference() {
		f.asm.Op(bytecode.ACONST_NULL)
	} else {
		f.asm.Emit(bytecode.Instruction{Op: bytecode.ICONST, Int: 0})
	}
	slot := f.alloc(sym)
	f.asm.Emit(bytecode.Instruction{Op: storeOp(sym.Type), Int: int32(slot)})
	return nil
}

func (f *funcGen) genAssign(s *ast.AssignStmt) error {
	switch target := s.Target.(type) {
	case *ast.Identifier:
		sym := f.g.info.BindingOf(target)
		if sym == nil {
			return f.g.errorf(target, "'%s' was not resolved", target.Name)
		}
		if err := f.genExpr(s.Value); err != nil {
			return err
		}
		return f.store(target, sym)

	case *ast.IndexExpr:
		if err := f.genExpr(target.Array); err != nil {
			return err
		}
		if err := f.genExpr(target.Index); err != nil {
			return err
		}
		if err := f.genExpr(s.Value); err != nil {
			return err
		}
		elem := f.g.info.TypeOf(target)
		if elem == nil {
			return f.g.errorf(target, "array element type was not recorded")
		}
		f.asm.Op(arrayStoreOp(elem))
		return nil

	default:
		return f.g.errorf(s, "cannot assign to %T", s.Target)
	}
}

func (f *funcGen) genIf(s *ast.IfStmt) error {
	elseLabel := f.asm.NewLabel()
	if err := f.genJump(s.Condition, elseLabel, false); err != nil {
		return err
	}
	if err := f.genStatement(s.Then); err != nil {
		return err
	}
	if s.Else == nil {
		f.asm.Place(elseLabel)
		return nil
	}

	end := f.asm.NewLabel()
	if f.asm.Reachable() {
		f.asm.Jump(bytecode.GOTO, end)
	}
	f.asm.Place(elseLabel)
	if err := f.genStatement(s.Else); err != nil {
		return err
	}
	f.asm.Place(end)
	return nil
}

func (f *funcGen) genWhile(s *ast.WhileStmt) error {
	top := f.asm.NewLabel()
	end := f.asm.NewLabel()

	f.asm.Place(top)
	if err := f.genJump(s.Condition, end, false); err != nil {
		return err
	}
	f.breaks = append(f.breaks, end)
	err := f.genStatement(s.Body)
	f.breaks = f.breaks[:len(f.breaks)-1]
	if err != nil {
		return err
	}
	if f.asm.Reachable() {
		f.asm.Jump(bytecode.GOTO, top)
	}
	f.asm.Place(end)
	return nil
}

func (f *funcGen) genReturn(s *ast.ReturnStmt) error {
	if s.Value == nil {
		f.asm.Op(bytecode.RETURN)
		return nil
	}
	if err := f.genExpr(s.Value); err != nil {
		return err
	}
	if f.sym.Return.IsReference() {
		f.asm.Op(bytecode.ARETURN)
	} else {
		f.asm.Op(bytecode.IRETURN)
	}
	return nil
}

// Conditions

// genJump emits a branch to target taken when cond evaluates to jumpIf.
// Comparisons branch directly instead of producing a boolean value.
func (f *funcGen) genJump(cond ast.Expression, target bytecode.Label, jumpIf bool) error {
	switch e := cond.(type) {
	case *ast.UnaryExpr:
		if e.Op == lexer.NOT {
			return f.genJump(e.Operand, target, !jumpIf)
		}
	case *ast.BinaryExpr:
		if op, ok := f.compareOp(e); ok {
			if err := f.genExpr(e.Left); err != nil {
				return err
			}
			if err := f.genExpr(e.Right); err != nil {
				return err
			}
			if !jumpIf {
				op = op.Negate()
			}
			f.asm.Jump(op, target)
			return nil
		}
	}

	if err := f.genExpr(cond); err != nil {
		return err
	}
	if jumpIf {
		f.asm.Jump(bytecode.IFNE, target)
	} else {
		f.asm.Jump(bytecode.IFEQ, target)
	}
	return nil
}

// compareOp returns the two-operand branch that is taken when the
// comparison holds
func (f *funcGen) compareOp(e *ast.BinaryExpr) (bytecode.Opcode, bool) {
	switch e.Op {
	case lexer.LT:
		return bytecode.IF_ICMPLT, true
	case lexer.LEQ:
		return bytecode.IF_ICMPLE, true
	case lexer.GT:
		return bytecode.IF_ICMPGT, true
	case lexer.GEQ:
		return bytecode.IF_ICMPGE, true
	case lexer.EQ, lexer.NEQ:
		ref := false
		if t := f.g.info.TypeOf(e.Left); t != nil {
			ref = t.IsReference()
		}
		switch {
		case e.Op == lexer.EQ && ref:
			return bytecode.IF_ACMPEQ, true
		case e.Op == lexer.EQ:
			return bytecode.IF_ICMPEQ, true
		case ref:
			return bytecode.IF_ACMPNE, true
		default:
			return bytecode.IF_ICMPNE, true
		}
	}
	return 0, false
}

// materialize pushes 1 or 0 for a boolean expression used as a value
func (f *funcGen) materialize(cond ast.Expression) error {
	yes := f.asm.NewLabel()
	end := f.asm.NewLabel()
	if err := f.genJump(cond, yes, true); err != nil {
		return err
	}
	f.asm.Emit(bytecode.Instruction{Op: bytecode.ICONST, Int: 0})
	f.asm.Jump(bytecode.GOTO, end)
	f.asm.Place(yes)
	f.asm.Emit(bytecode.Instruction{Op: bytecode.ICONST, Int: 1})
	f.asm.Place(end)
	return nil
}

// Expressions

func (f *funcGen) genExpr(expr ast.Expression) error {
	switch e := expr.(type) {
	case *ast.IntLit:
		return f.genIntLit(e, false)

	case *ast.StringLit:
		f.asm.Emit(bytecode.Instruction{Op: bytecode.LDC, Str: e.Value})
		return nil

	case *ast.BoolLit:
		var v int32
		if e.Value {
			v = 1
		}
		f.asm.Emit(bytecode.Instruction{Op: bytecode.ICONST, Int: v})
		return nil

	case *ast.ArrayLit:
		return f.genArrayLit(e)

	case *ast.Identifier:
		sym := f.g.info.BindingOf(e)
		if sym == nil {
			return f.g.errorf(e, "'%s' was not resolved", e.Name)
		}
		return f.load(e, sym)

	case *ast.IndexExpr:
		if err := f.genExpr(e.Array); err != nil {
			return err
		}
		if err := f.genExpr(e.Index); err != nil {
			return err
		}
		elem := f.g.info.TypeOf(e)
		if elem == nil {
			return f.g.errorf(e, "array element type was not recorded")
		}
		f.asm.Op(arrayLoadOp(elem))
		return nil

	case *ast.BinaryExpr:
		return f.genBinary(e)

	case *ast.UnaryExpr:
		switch e.Op {
		case lexer.MINUS:
			if lit, ok := e.Operand.(*ast.IntLit); ok {
				return f.genIntLit(lit, true)
			}
			if err := f.genExpr(e.Operand); err != nil {
				return err
			}
			f.asm.Op(bytecode.INEG)
			return nil
		case lexer.NOT:
			return f.materialize(e)
		}
		return f.g.errorf(e, "unsupported unary operator %s", e.Op.Symbol())

	case *ast.CallExpr:
		return f.genCall(e)

	default:
		return f.g.errorf(expr, "unsupported expression %T", expr)
	}
}

// genIntLit pushes a literal, folding a preceding unary minus so that the
// minimum int needs no overflowing positive constant
func (f *funcGen) genIntLit(lit *ast.IntLit, negate bool) error {
	v, err := strconv.ParseInt(lit.Value, 10, 64)
	if err != nil {
		return f.g.errorf(lit, "invalid integer literal %s", lit.Value)
	}
	if negate {
		v = -v
	}
	f.asm.Emit(bytecode.Instruction{Op: bytecode.ICONST, Int: int32(v)})
	return nil
}

func (f *funcGen) genArrayLit(lit *ast.ArrayLit) error {
	t := f.g.info.TypeOf(lit)
	if t == nil || t.Kind != checker.KindArray {
		return f.g.errorf(lit, "array literal type was not recorded")
	}
	f.asm.Emit(bytecode.Instruction{Op: bytecode.ICONST, Int: int32(len(lit.Elements))})
	f.asm.Emit(bytecode.Instruction{Op: bytecode.NEWARRAY, Desc: descriptor(t.Elem)})
	for i, el := range lit.Elements {
		f.asm.Op(bytecode.DUP)
		f.asm.Emit(bytecode.Instruction{Op: bytecode.ICONST, Int: int32(i)})
		if err := f.genExpr(el); err != nil {
			return err
		}
		f.asm.Op(arrayStoreOp(t.Elem))
	}
	return nil
}

var arithmeticOps = map[lexer.TokenType]bytecode.Opcode{
	lexer.PLUS:    bytecode.IADD,
	lexer.MINUS:   bytecode.ISUB,
	lexer.STAR:    bytecode.IMUL,
	lexer.SLASH:   bytecode.IDIV,
	lexer.PERCENT: bytecode.IREM,
}

func (f *funcGen) genBinary(e *ast.BinaryExpr) error {
	op, ok := arithmeticOps[e.Op]
	if !ok {
		if _, cmp := f.compareOp(e); cmp {
			return f.materialize(e)
		}
		return f.g.errorf(e, "unsupported binary operator %s", e.Op.Symbol())
	}
	if err := f.genExpr(e.Left); err != nil {
		return err
	}
	if err := f.genExpr(e.Right); err != nil {
		return err
	}
	f.asm.Op(op)
	return nil
}

func (f *funcGen) genCall(e *ast.CallExpr) error {
	sym := f.g.info.BindingOf(e)
	if sym == nil || sym.Kind != checker.SymFunction {
		return f.g.errorf(e, "call to '%s' was not resolved", e.Callee)
	}
	for _, arg := range e.Args {
		if err := f.genExpr(arg); err != nil {
			return err
		}
	}
	f.asm.Emit(bytecode.Instruction{
		Op:    bytecode.INVOKESTATIC,
		Owner: sym.Module,
		Name:  sym.Name,
		Desc:  methodDescriptor(sym),
	})
	return nil
}

// Variables

func (f *funcGen) load(node ast.Node, sym *checker.Symbol) error {
	if sym.Kind == checker.SymField {
		f.asm.Emit(bytecode.Instruction{Op: bytecode.GETSTATIC, Owner: sym.Module, Name: sym.Name, Desc: descriptor(sym.Type)})
		return nil
	}
	slot, ok := f.slots[sym]
	if !ok {
		return f.g.errorf(node, "'%s' has no local slot", sym.Name)
	}
	f.asm.Emit(bytecode.Instruction{Op: loadOp(sym.Type), Int: int32(slot)})
	return nil
}

func (f *funcGen) store(node ast.Node, sym *checker.Symbol) error {
	if sym.Kind == checker.SymField {
		f.asm.Emit(bytecode.Instruction{Op: bytecode.PUTSTATIC, Owner: sym.Module, Name: sym.Name, Desc: descriptor(sym.Type)})
		return nil
	}
	slot, ok := f.slots[sym]
	if !ok {
		return f.g.errorf(node, "'%s' has no local slot", sym.Name)
	}
	f.asm.Emit(bytecode.Instruction{Op: storeOp(sym.Type), Int: int32(slot)})
	return nil
}

func loadOp(t *checker.Type) bytecode.Opcode {
	if t.IsReference() {
		return bytecode.ALOAD
	}
	return bytecode.ILOAD
}

func storeOp(t *checker.Type) bytecode.Opcode {
	if t.IsReference() {
		return bytecode.ASTORE
	}
	return bytecode.ISTORE
}

func arrayLoadOp(elem *checker.Type) bytecode.Opcode {
	switch {
	case elem.IsReference():
		return bytecode.AALOAD
	case elem.Kind == checker.KindBoolean:
		return bytecode.BALOAD
	default:
		return bytecode.IALOAD
	}
}

func arrayStoreOp(elem *checker.Type) bytecode.Opcode {
	switch {
	case elem.IsReference():
		return bytecode.AASTORE
	case elem.Kind == checker.KindBoolean:
		return bytecode.BASTORE
	default:
		return bytecode.IASTORE
	}
}
