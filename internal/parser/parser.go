package parser

import (
	"github.com/lhaig/modc/internal/ast"
	"github.com/lhaig/modc/internal/lexer"
)

// Parser holds the parser state. Tokens are pulled from the lexer on demand
// into a small lookahead buffer; lexical errors are set aside as they are
// encountered and never reach the grammar.
type Parser struct {
	lex     *lexer.Lexer
	buf     []lexer.Token
	lexErrs []*lexer.Error
	err     *SyntaxError
}

// New creates a parser over source text
func New(source string) *Parser {
	return NewFromLexer(lexer.New(source))
}

// NewFromLexer creates a parser that consumes tokens from l
func NewFromLexer(l *lexer.Lexer) *Parser {
	return &Parser{lex: l}
}

// LexErrors returns the lexical errors seen in the input. After Parse returns
// the whole input has been scanned, so the list is complete.
func (p *Parser) LexErrors() []*lexer.Error {
	return p.lexErrs
}

// Parse parses exactly one module. On the first syntax error it returns a
// *SyntaxError and no tree.
func (p *Parser) Parse() (mod *ast.Module, err error) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(bailout); !ok {
				panic(r)
			}
			p.drain()
			mod, err = nil, p.err
		}
	}()
	return p.parseModule(), nil
}

// drain scans the rest of the input so every lexical error gets reported
func (p *Parser) drain() {
	for {
		tok, err := p.lex.NextToken()
		if err != nil {
			p.lexErrs = append(p.lexErrs, err.(*lexer.Error))
			continue
		}
		if tok.Type == lexer.EOF {
			return
		}
	}
}

// peekAt returns the token n positions ahead without consuming it
func (p *Parser) peekAt(n int) lexer.Token {
	for len(p.buf) <= n {
		tok, err := p.lex.NextToken()
		if err != nil {
			p.lexErrs = append(p.lexErrs, err.(*lexer.Error))
			continue
		}
		p.buf = append(p.buf, tok)
	}
	return p.buf[n]
}

// current returns the current token
func (p *Parser) current() lexer.Token {
	return p.peekAt(0)
}

// advance moves to the next token and returns the consumed token
func (p *Parser) advance() lexer.Token {
	tok := p.current()
	if tok.Type != lexer.EOF {
		p.buf = p.buf[1:]
	}
	return tok
}

// expect consumes the current token if it matches the expected type,
// otherwise aborts with a syntax error
func (p *Parser) expect(tt lexer.TokenType, what string) lexer.Token {
	tok := p.current()
	if tok.Type != tt {
		p.fail(tok, "expected %s, found %s", what, describe(tok))
	}
	return p.advance()
}

// check returns true if the current token is of the given type
func (p *Parser) check(tt lexer.TokenType) bool {
	return p.current().Type == tt
}

// match consumes the current token if it matches, returns true if consumed
func (p *Parser) match(tt lexer.TokenType) bool {
	if p.check(tt) {
		p.advance()
		return true
	}
	return false
}

// parseModule parses: module <name> { decl* }
func (p *Parser) parseModule() *ast.Module {
	tok := p.expect(lexer.MODULE, "'module'")
	name := p.expect(lexer.IDENT, "module name")
	p.expect(lexer.LBRACE, "'{'")

	mod := &ast.Module{
		Name:   name.Literal,
		Line:   tok.Line,
		Column: tok.Column,
	}

	for !p.check(lexer.RBRACE) {
		p.parseDecl(mod)
	}
	p.expect(lexer.RBRACE, "'}'")
	p.expect(lexer.EOF, "end of input after module")
	return mod
}

// parseDecl parses one module-level declaration and adds it to mod
func (p *Parser) parseDecl(mod *ast.Module) {
	start := p.current()
	public := p.match(lexer.PUBLIC)

	switch p.current().Type {
	case lexer.IMPORT:
		if public {
			p.fail(start, "'public' cannot be applied to an import")
		}
		mod.Imports = append(mod.Imports, p.parseImport())
	case lexer.TYPE:
		mod.Decls = append(mod.Decls, p.parseTypeDecl(start, public))
	case lexer.EOF:
		p.fail(p.current(), "expected '}' to close module %s, found end of input", mod.Name)
	default:
		typ := p.parseType()
		name := p.expect(lexer.IDENT, "declaration name")
		if p.check(lexer.LPAREN) {
			mod.Decls = append(mod.Decls, p.parseFunctionRest(start, public, typ, name))
			return
		}
		p.expect(lexer.SEMICOLON, "';' after field declaration")
		mod.Decls = append(mod.Decls, &ast.FieldDecl{
			Public: public,
			Type:   typ,
			Name:   name.Literal,
			Line:   start.Line,
			Column: start.Column,
		})
	}
}

// parseImport parses: import <name>;
func (p *Parser) parseImport() *ast.Import {
	tok := p.expect(lexer.IMPORT, "'import'")
	name := p.expect(lexer.IDENT, "module name after 'import'")
	p.expect(lexer.SEMICOLON, "';' after import")
	return &ast.Import{Name: name.Literal, Line: tok.Line, Column: tok.Column}
}

// parseTypeDecl parses: type <name> = "<descriptor>";
func (p *Parser) parseTypeDecl(start lexer.Token, public bool) *ast.TypeDecl {
	p.expect(lexer.TYPE, "'type'")
	name := p.expect(lexer.IDENT, "type name")
	p.expect(lexer.ASSIGN, "'='")
	desc := p.expect(lexer.STRING_LIT, "host type descriptor string")
	p.expect(lexer.SEMICOLON, "';' after type declaration")
	return &ast.TypeDecl{
		Public:     public,
		Name:       name.Literal,
		Descriptor: desc.Literal,
		Line:       start.Line,
		Column:     start.Column,
	}
}

// parseFunctionRest parses the parameter list and body after `type name`
func (p *Parser) parseFunctionRest(start lexer.Token, public bool, ret *ast.TypeRef, name lexer.Token) *ast.FunctionDecl {
	p.expect(lexer.LPAREN, "'('")
	params := p.parseParamList()
	p.expect(lexer.RPAREN, "')' after parameters")
	body := p.parseBlock()
	return &ast.FunctionDecl{
		Public:     public,
		ReturnType: ret,
		Name:       name.Literal,
		Params:     params,
		Body:       body,
		Line:       start.Line,
		Column:     start.Column,
	}
}

// parseParamList parses a comma-separated list of parameters
func (p *Parser) parseParamList() []*ast.Param {
	var params []*ast.Param
	if p.check(lexer.RPAREN) {
		return params
	}

	params = append(params, p.parseParam())
	for p.match(lexer.COMMA) {
		params = append(params, p.parseParam())
	}
	return params
}

// parseParam parses: <type> <name>
func (p *Parser) parseParam() *ast.Param {
	typ := p.parseType()
	name := p.expect(lexer.IDENT, "parameter name")
	return &ast.Param{
		Type:   typ,
		Name:   name.Literal,
		Line:   typ.Line,
		Column: typ.Column,
	}
}

// parseType parses a base type followed by any number of [] suffixes
func (p *Parser) parseType() *ast.TypeRef {
	tok := p.current()
	var typ *ast.TypeRef
	switch tok.Type {
	case lexer.INT:
		typ = &ast.TypeRef{Kind: ast.TypeInt}
	case lexer.BOOLEAN:
		typ = &ast.TypeRef{Kind: ast.TypeBoolean}
	case lexer.VOID:
		typ = &ast.TypeRef{Kind: ast.TypeVoid}
	case lexer.IDENT:
		typ = &ast.TypeRef{Kind: ast.TypeNamed, Name: tok.Literal}
	default:
		p.fail(tok, "expected type, found %s", describe(tok))
	}
	p.advance()
	typ.Line, typ.Column = tok.Line, tok.Column

	for p.check(lexer.LBRACKET) && p.peekAt(1).Type == lexer.RBRACKET {
		p.advance()
		p.advance()
		typ = &ast.TypeRef{Kind: ast.TypeArray, Elem: typ, Line: tok.Line, Column: tok.Column}
	}
	return typ
}

// parseBlock parses: { statement* }
func (p *Parser) parseBlock() *ast.Block {
	tok := p.expect(lexer.LBRACE, "'{'")
	block := &ast.Block{
		Line:   tok.Line,
		Column: tok.Column,
	}
	for !p.check(lexer.RBRACE) {
		if p.check(lexer.EOF) {
			p.fail(p.current(), "expected '}' to close block, found end of input")
		}
		block.Statements = append(block.Statements, p.parseStatement())
	}
	p.expect(lexer.RBRACE, "'}'")
	return block
}

// parseStatement parses a statement
func (p *Parser) parseStatement() ast.Statement {
	switch p.current().Type {
	case lexer.LBRACE:
		return p.parseBlock()
	case lexer.IF:
		return p.parseIfStmt()
	case lexer.WHILE:
		return p.parseWhileStmt()
	case lexer.BREAK:
		return p.parseBreakStmt()
	case lexer.RETURN:
		return p.parseReturnStmt()
	case lexer.INT, lexer.BOOLEAN, lexer.VOID:
		return p.parseVarDecl()
	case lexer.IDENT:
		if p.startsVarDecl() {
			return p.parseVarDecl()
		}
	}
	return p.parseExprStmtOrAssign()
}

// startsVarDecl reports whether an identifier at the current position begins
// a declaration with a named type: `T x` or `T[] x`
func (p *Parser) startsVarDecl() bool {
	next := p.peekAt(1).Type
	return next == lexer.IDENT || next == lexer.LBRACKET && p.peekAt(2).Type == lexer.RBRACKET
}

// parseVarDecl parses: <type> <name> [= <expr>];
func (p *Parser) parseVarDecl() *ast.VarDecl {
	typ := p.parseType()
	name := p.expect(lexer.IDENT, "variable name")
	var init ast.Expression
	if p.match(lexer.ASSIGN) {
		init = p.parseExpression()
	}
	p.expect(lexer.SEMICOLON, "';' after variable declaration")
	return &ast.VarDecl{
		Type:   typ,
		Name:   name.Literal,
		Init:   init,
		Line:   typ.Line,
		Column: typ.Column,
	}
}

// parseIfStmt parses: if (<expr>) <stmt> [else <stmt>]
func (p *Parser) parseIfStmt() *ast.IfStmt {
	tok := p.expect(lexer.IF, "'if'")
	p.expect(lexer.LPAREN, "'(' after 'if'")
	condition := p.parseExpression()
	p.expect(lexer.RPAREN, "')' after condition")
	then := p.parseStatement()

	var elseStmt ast.Statement
	if p.match(lexer.ELSE) {
		elseStmt = p.parseStatement()
	}

	return &ast.IfStmt{
		Condition: condition,
		Then:      then,
		Else:      elseStmt,
		Line:      tok.Line,
		Column:    tok.Column,
	}
}

// parseWhileStmt parses: while (<expr>) <stmt>
func (p *Parser) parseWhileStmt() *ast.WhileStmt {
	tok := p.expect(lexer.WHILE, "'while'")
	p.expect(lexer.LPAREN, "'(' after 'while'")
	condition := p.parseExpression()
	p.expect(lexer.RPAREN, "')' after condition")
	body := p.parseStatement()

	return &ast.WhileStmt{
		Condition: condition,
		Body:      body,
		Line:      tok.Line,
		Column:    tok.Column,
	}
}

// parseBreakStmt parses: break;
func (p *Parser) parseBreakStmt() *ast.BreakStmt {
	tok := p.expect(lexer.BREAK, "'break'")
	p.expect(lexer.SEMICOLON, "';' after 'break'")
	return &ast.BreakStmt{Line: tok.Line, Column: tok.Column}
}

// parseReturnStmt parses: return [<expr>];
func (p *Parser) parseReturnStmt() *ast.ReturnStmt {
	tok := p.expect(lexer.RETURN, "'return'")
	var value ast.Expression
	if !p.check(lexer.SEMICOLON) {
		value = p.parseExpression()
	}
	p.expect(lexer.SEMICOLON, "';' after return")
	return &ast.ReturnStmt{Value: value, Line: tok.Line, Column: tok.Column}
}

// parseExprStmtOrAssign parses an expression statement or assignment
func (p *Parser) parseExprStmtOrAssign() ast.Statement {
	tok := p.current()
	expr := p.parseExpression()

	if p.check(lexer.ASSIGN) {
		eq := p.advance()
		switch expr.(type) {
		case *ast.Identifier, *ast.IndexExpr:
		default:
			p.fail(eq, "left side of '=' must be a variable or an array element")
		}
		value := p.parseExpression()
		p.expect(lexer.SEMICOLON, "';' after assignment")
		return &ast.AssignStmt{
			Target: expr,
			Value:  value,
			Line:   tok.Line,
			Column: tok.Column,
		}
	}

	p.expect(lexer.SEMICOLON, "';' after expression")
	return &ast.ExprStmt{
		Expr:   expr,
		Line:   tok.Line,
		Column: tok.Column,
	}
}

// Expression parsing - precedence climbing

// Precedence levels (lowest to highest):
// 1. == !=        (left-associative)
// 2. < > <= >=    (left-associative)
// 3. + -          (left-associative)
// 4. * / %        (left-associative)
// 5. unary (- !)
// 6. postfix ([] ())

const (
	precNone       = 0
	precEquality   = 1
	precComparison = 2
	precAdditive   = 3
	precMulti      = 4
)

func tokenPrecedence(tt lexer.TokenType) int {
	switch tt {
	case lexer.EQ, lexer.NEQ:
		return precEquality
	case lexer.LT, lexer.GT, lexer.LEQ, lexer.GEQ:
		return precComparison
	case lexer.PLUS, lexer.MINUS:
		return precAdditive
	case lexer.STAR, lexer.SLASH, lexer.PERCENT:
		return precMulti
	default:
		return precNone
	}
}

func (p *Parser) parseExpression() ast.Expression {
	return p.parsePrecedence(precEquality)
}

func (p *Parser) parsePrecedence(minPrec int) ast.Expression {
	left := p.parseUnary()

	for {
		prec := tokenPrecedence(p.current().Type)
		if prec == precNone || prec < minPrec {
			break
		}

		op := p.advance()
		right := p.parsePrecedence(prec + 1)
		left = &ast.BinaryExpr{
			Op:     op.Type,
			Left:   left,
			Right:  right,
			Line:   op.Line,
			Column: op.Column,
		}
	}

	return left
}

func (p *Parser) parseUnary() ast.Expression {
	if p.check(lexer.MINUS) || p.check(lexer.NOT) {
		op := p.advance()
		operand := p.parseUnary()
		return &ast.UnaryExpr{
			Op:      op.Type,
			Operand: operand,
			Line:    op.Line,
			Column:  op.Column,
		}
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() ast.Expression {
	expr := p.parsePrimary()
	line, col := expr.Pos()

	for {
		switch {
		case p.check(lexer.LBRACKET):
			p.advance()
			index := p.parseExpression()
			p.expect(lexer.RBRACKET, "']' after index")
			expr = &ast.IndexExpr{
				Array:  expr,
				Index:  index,
				Line:   line,
				Column: col,
			}
		case p.check(lexer.LPAREN):
			// only a bare name can be called
			ident, ok := expr.(*ast.Identifier)
			if !ok {
				return expr
			}
			p.advance()
			args := p.parseArgList()
			p.expect(lexer.RPAREN, "')' after arguments")
			expr = &ast.CallExpr{
				Callee: ident.Name,
				Args:   args,
				Line:   ident.Line,
				Column: ident.Column,
			}
		default:
			return expr
		}
	}
}

func (p *Parser) parsePrimary() ast.Expression {
	tok := p.current()

	switch tok.Type {
	case lexer.INT_LIT:
		p.advance()
		return &ast.IntLit{Value: tok.Literal, Line: tok.Line, Column: tok.Column}
	case lexer.STRING_LIT:
		p.advance()
		return &ast.StringLit{Value: tok.Literal, Line: tok.Line, Column: tok.Column}
	case lexer.TRUE:
		p.advance()
		return &ast.BoolLit{Value: true, Line: tok.Line, Column: tok.Column}
	case lexer.FALSE:
		p.advance()
		return &ast.BoolLit{Value: false, Line: tok.Line, Column: tok.Column}
	case lexer.IDENT:
		p.advance()
		return &ast.Identifier{Name: tok.Literal, Line: tok.Line, Column: tok.Column}
	case lexer.LPAREN:
		p.advance()
		expr := p.parseExpression()
		p.expect(lexer.RPAREN, "')'")
		return expr
	case lexer.LBRACKET:
		return p.parseArrayLit()
	default:
		p.fail(tok, "expected expression, found %s", describe(tok))
		return nil
	}
}

func (p *Parser) parseArgList() []ast.Expression {
	var args []ast.Expression
	if p.check(lexer.RPAREN) {
		return args
	}
	args = append(args, p.parseExpression())
	for p.match(lexer.COMMA) {
		args = append(args, p.parseExpression())
	}
	return args
}

func (p *Parser) parseArrayLit() *ast.ArrayLit {
	tok := p.expect(lexer.LBRACKET, "'['")
	var elements []ast.Expression

	if !p.check(lexer.RBRACKET) {
		elements = append(elements, p.parseExpression())
		for p.match(lexer.COMMA) {
			elements = append(elements, p.parseExpression())
		}
	}
	p.expect(lexer.RBRACKET, "']' to close array literal")

	return &ast.ArrayLit{
		Elements: elements,
		Line:     tok.Line,
		Column:   tok.Column,
	}
}
