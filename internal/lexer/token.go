package lexer

import "fmt"

// TokenType represents the type of a token
type TokenType int

const (
	// Special tokens
	EOF TokenType = iota

	// Literals
	IDENT      // x, y, myVariable
	INT_LIT    // 123, 0090
	STRING_LIT // "hello"

	// Keywords
	BOOLEAN
	BREAK
	ELSE
	FALSE
	IF
	IMPORT
	INT
	MODULE
	PUBLIC
	RETURN
	TRUE
	TYPE
	VOID
	WHILE

	// Operators
	PLUS    // +
	MINUS   // -
	STAR    // *
	SLASH   // /
	PERCENT // %
	EQ      // ==
	NEQ     // !=
	LT      // <
	GT      // >
	LEQ     // <=
	GEQ     // >=
	ASSIGN  // =
	NOT     // !

	// Delimiters
	LPAREN    // (
	RPAREN    // )
	LBRACE    // {
	RBRACE    // }
	LBRACKET  // [
	RBRACKET  // ]
	COMMA     // ,
	SEMICOLON // ;
)

var tokenNames = [...]string{
	EOF:        "EOF",
	IDENT:      "IDENT",
	INT_LIT:    "INT_LIT",
	STRING_LIT: "STRING_LIT",
	BOOLEAN:    "BOOLEAN",
	BREAK:      "BREAK",
	ELSE:       "ELSE",
	FALSE:      "FALSE",
	IF:         "IF",
	IMPORT:     "IMPORT",
	INT:        "INT",
	MODULE:     "MODULE",
	PUBLIC:     "PUBLIC",
	RETURN:     "RETURN",
	TRUE:       "TRUE",
	TYPE:       "TYPE",
	VOID:       "VOID",
	WHILE:      "WHILE",
	PLUS:       "PLUS",
	MINUS:      "MINUS",
	STAR:       "STAR",
	SLASH:      "SLASH",
	PERCENT:    "PERCENT",
	EQ:         "EQ",
	NEQ:        "NEQ",
	LT:         "LT",
	GT:         "GT",
	LEQ:        "LEQ",
	GEQ:        "GEQ",
	ASSIGN:     "ASSIGN",
	NOT:        "NOT",
	LPAREN:     "LPAREN",
	RPAREN:     "RPAREN",
	LBRACE:     "LBRACE",
	RBRACE:     "RBRACE",
	LBRACKET:   "LBRACKET",
	RBRACKET:   "RBRACKET",
	COMMA:      "COMMA",
	SEMICOLON:  "SEMICOLON",
}

// String returns a string representation of the token type
func (t TokenType) String() string {
	if t >= 0 && int(t) < len(tokenNames) && tokenNames[t] != "" {
		return tokenNames[t]
	}
	return fmt.Sprintf("TokenType(%d)", t)
}

// Token represents a lexical token. Line and Column are 0-based and point at
// the first character of the lexeme. Tokens compare structurally with ==.
type Token struct {
	Type    TokenType
	Literal string
	Line    int
	Column  int
}

// IsEOF reports whether the token terminates the stream
func (t Token) IsEOF() bool {
	return t.Type == EOF
}

func (t Token) String() string {
	return fmt.Sprintf("%s(%d:%d %q)", t.Type, t.Line, t.Column, t.Literal)
}

// keywords maps reserved words to their token types
var keywords = map[string]TokenType{
	"boolean": BOOLEAN,
	"break":   BREAK,
	"else":    ELSE,
	"false":   FALSE,
	"if":      IF,
	"import":  IMPORT,
	"int":     INT,
	"module":  MODULE,
	"public":  PUBLIC,
	"return":  RETURN,
	"true":    TRUE,
	"type":    TYPE,
	"void":    VOID,
	"while":   WHILE,
}

// LookupIdent checks if an identifier is a keyword
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return IDENT
}

// IsKeyword reports whether the token type is a reserved word
func (t TokenType) IsKeyword() bool {
	return t >= BOOLEAN && t <= WHILE
}

var operatorSymbols = map[TokenType]string{
	PLUS:    "+",
	MINUS:   "-",
	STAR:    "*",
	SLASH:   "/",
	PERCENT: "%",
	EQ:      "==",
	NEQ:     "!=",
	LT:      "<",
	GT:      ">",
	LEQ:     "<=",
	GEQ:     ">=",
	ASSIGN:  "=",
	NOT:     "!",
}

// Symbol returns the source spelling of an operator token type, or its name
// for anything else
func (t TokenType) Symbol() string {
	if s, ok := operatorSymbols[t]; ok {
		return s
	}
	return t.String()
}
