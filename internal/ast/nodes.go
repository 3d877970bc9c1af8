package ast

import "github.com/lhaig/modc/internal/lexer"

// Node is the base interface for all AST nodes
type Node interface {
	Pos() (line, col int)
}

// Decl nodes appear at module level
type Decl interface {
	Node
	declNode()
	IsPublic() bool
	DeclName() string
}

// Statement nodes
type Statement interface {
	Node
	stmtNode()
}

// Expression nodes
type Expression interface {
	Node
	exprNode()
}

// Program is the whole program: every module taking part in one compilation
type Program struct {
	Modules []*Module
}

func (p *Program) Pos() (int, int) { return 0, 0 }

// Module returns the module with the given name, or nil
func (p *Program) Module(name string) *Module {
	for _, m := range p.Modules {
		if m.Name == name {
			return m
		}
	}
	return nil
}

// Module is a single compilation unit
type Module struct {
	Name    string
	Imports []*Import
	Decls   []Decl
	File    string // source name, set by the driver
	Line    int
	Column  int
}

func (m *Module) Pos() (int, int) { return m.Line, m.Column }

// Functions returns the function declarations in source order
func (m *Module) Functions() []*FunctionDecl {
	var fns []*FunctionDecl
	for _, d := range m.Decls {
		if fn, ok := d.(*FunctionDecl); ok {
			fns = append(fns, fn)
		}
	}
	return fns
}

// Fields returns the field declarations in source order
func (m *Module) Fields() []*FieldDecl {
	var fields []*FieldDecl
	for _, d := range m.Decls {
		if f, ok := d.(*FieldDecl); ok {
			fields = append(fields, f)
		}
	}
	return fields
}

// Import names another module whose public declarations become visible
type Import struct {
	Name   string
	Line   int
	Column int
}

func (i *Import) Pos() (int, int) { return i.Line, i.Column }

// TypeDecl binds an alias to a host type descriptor: type string = "java.lang.String";
type TypeDecl struct {
	Public     bool
	Name       string
	Descriptor string
	Line       int
	Column     int
}

func (t *TypeDecl) Pos() (int, int)  { return t.Line, t.Column }
func (t *TypeDecl) declNode()        {}
func (t *TypeDecl) IsPublic() bool   { return t.Public }
func (t *TypeDecl) DeclName() string { return t.Name }

// FieldDecl is a module-level variable
type FieldDecl struct {
	Public bool
	Type   *TypeRef
	Name   string
	Line   int
	Column int
}

func (f *FieldDecl) Pos() (int, int)  { return f.Line, f.Column }
func (f *FieldDecl) declNode()        {}
func (f *FieldDecl) IsPublic() bool   { return f.Public }
func (f *FieldDecl) DeclName() string { return f.Name }

// FunctionDecl represents a function declaration
type FunctionDecl struct {
	Public     bool
	ReturnType *TypeRef
	Name       string
	Params     []*Param
	Body       *Block
	Line       int
	Column     int
}

func (f *FunctionDecl) Pos() (int, int)  { return f.Line, f.Column }
func (f *FunctionDecl) declNode()        {}
func (f *FunctionDecl) IsPublic() bool   { return f.Public }
func (f *FunctionDecl) DeclName() string { return f.Name }

// Param represents a function parameter
type Param struct {
	Type   *TypeRef
	Name   string
	Line   int
	Column int
}

func (p *Param) Pos() (int, int) { return p.Line, p.Column }

// TypeKind tags the shape of a declared type
type TypeKind int

const (
	TypeInt TypeKind = iota
	TypeBoolean
	TypeVoid
	TypeArray
	TypeNamed
)

// TypeRef is a type as written in source. Named types refer to a type alias
// and are resolved during name resolution.
type TypeRef struct {
	Kind   TypeKind
	Elem   *TypeRef // element type when Kind == TypeArray
	Name   string   // alias name when Kind == TypeNamed
	Line   int
	Column int
}

func (t *TypeRef) Pos() (int, int) { return t.Line, t.Column }

// String renders the type the way it is written in source
func (t *TypeRef) String() string {
	if t == nil {
		return "<nil>"
	}
	switch t.Kind {
	case TypeInt:
		return "int"
	case TypeBoolean:
		return "boolean"
	case TypeVoid:
		return "void"
	case TypeArray:
		return t.Elem.String() + "[]"
	default:
		return t.Name
	}
}

// Block represents a block of statements with its own scope
type Block struct {
	Statements []Statement
	Line       int
	Column     int
}

func (b *Block) Pos() (int, int) { return b.Line, b.Column }
func (b *Block) stmtNode()       {}

// VarDecl declares a block-local variable, optionally initialized
type VarDecl struct {
	Type   *TypeRef
	Name   string
	Init   Expression // nil when absent
	Line   int
	Column int
}

func (v *VarDecl) Pos() (int, int) { return v.Line, v.Column }
func (v *VarDecl) stmtNode()       {}

// AssignStmt stores Value into Target, which is an Identifier or an IndexExpr
type AssignStmt struct {
	Target Expression
	Value  Expression
	Line   int
	Column int
}

func (a *AssignStmt) Pos() (int, int) { return a.Line, a.Column }
func (a *AssignStmt) stmtNode()       {}

// IfStmt represents an if statement with an optional else branch
type IfStmt struct {
	Condition Expression
	Then      Statement
	Else      Statement // nil when absent
	Line      int
	Column    int
}

func (i *IfStmt) Pos() (int, int) { return i.Line, i.Column }
func (i *IfStmt) stmtNode()       {}

// WhileStmt represents a while loop
type WhileStmt struct {
	Condition Expression
	Body      Statement
	Line      int
	Column    int
}

func (w *WhileStmt) Pos() (int, int) { return w.Line, w.Column }
func (w *WhileStmt) stmtNode()       {}

// BreakStmt represents a break statement
type BreakStmt struct {
	Line   int
	Column int
}

func (b *BreakStmt) Pos() (int, int) { return b.Line, b.Column }
func (b *BreakStmt) stmtNode()       {}

// ReturnStmt represents a return statement
type ReturnStmt struct {
	Value  Expression // nil for a bare return
	Line   int
	Column int
}

func (r *ReturnStmt) Pos() (int, int) { return r.Line, r.Column }
func (r *ReturnStmt) stmtNode()       {}

// ExprStmt evaluates an expression for its side effects
type ExprStmt struct {
	Expr   Expression
	Line   int
	Column int
}

func (e *ExprStmt) Pos() (int, int) { return e.Line, e.Column }
func (e *ExprStmt) stmtNode()       {}

// IntLit keeps the literal digits as written; range checks happen later
type IntLit struct {
	Value  string
	Line   int
	Column int
}

func (i *IntLit) Pos() (int, int) { return i.Line, i.Column }
func (i *IntLit) exprNode()       {}

// StringLit holds the verbatim body between the quotes
type StringLit struct {
	Value  string
	Line   int
	Column int
}

func (s *StringLit) Pos() (int, int) { return s.Line, s.Column }
func (s *StringLit) exprNode()       {}

// BoolLit represents true or false
type BoolLit struct {
	Value  bool
	Line   int
	Column int
}

func (b *BoolLit) Pos() (int, int) { return b.Line, b.Column }
func (b *BoolLit) exprNode()       {}

// ArrayLit represents [e1, e2, ...]
type ArrayLit struct {
	Elements []Expression
	Line     int
	Column   int
}

func (a *ArrayLit) Pos() (int, int) { return a.Line, a.Column }
func (a *ArrayLit) exprNode()       {}

// Identifier references a field, parameter or local variable
type Identifier struct {
	Name   string
	Line   int
	Column int
}

func (i *Identifier) Pos() (int, int) { return i.Line, i.Column }
func (i *Identifier) exprNode()       {}

// IndexExpr represents array[index]
type IndexExpr struct {
	Array  Expression
	Index  Expression
	Line   int
	Column int
}

func (i *IndexExpr) Pos() (int, int) { return i.Line, i.Column }
func (i *IndexExpr) exprNode()       {}

// BinaryExpr represents left op right
type BinaryExpr struct {
	Op     lexer.TokenType
	Left   Expression
	Right  Expression
	Line   int
	Column int
}

func (b *BinaryExpr) Pos() (int, int) { return b.Line, b.Column }
func (b *BinaryExpr) exprNode()       {}

// UnaryExpr represents -x (lexer.MINUS) or !x (lexer.NOT)
type UnaryExpr struct {
	Op      lexer.TokenType
	Operand Expression
	Line    int
	Column  int
}

func (u *UnaryExpr) Pos() (int, int) { return u.Line, u.Column }
func (u *UnaryExpr) exprNode()       {}

// CallExpr represents callee(args...)
type CallExpr struct {
	Callee string
	Args   []Expression
	Line   int
	Column int
}

func (c *CallExpr) Pos() (int, int) { return c.Line, c.Column }
func (c *CallExpr) exprNode()       {}
