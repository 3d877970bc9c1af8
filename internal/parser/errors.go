package parser

import (
	"fmt"

	"github.com/lhaig/modc/internal/lexer"
)

// SyntaxError reports the first token that could not extend any production.
// Parsing stops there; no partial tree is returned.
type SyntaxError struct {
	Line    int
	Column  int
	Token   lexer.Token
	Message string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Column, e.Message)
}

// bailout unwinds the recursive descent after the first syntax error
type bailout struct{}

// fail records a syntax error at tok and aborts the parse
func (p *Parser) fail(tok lexer.Token, format string, args ...any) {
	p.err = &SyntaxError{
		Line:    tok.Line,
		Column:  tok.Column,
		Token:   tok,
		Message: fmt.Sprintf(format, args...),
	}
	panic(bailout{})
}

// describe renders a token for an error message
func describe(tok lexer.Token) string {
	switch tok.Type {
	case lexer.EOF:
		return "end of input"
	case lexer.IDENT:
		return fmt.Sprintf("identifier %q", tok.Literal)
	case lexer.INT_LIT:
		return fmt.Sprintf("integer literal %s", tok.Literal)
	case lexer.STRING_LIT:
		return fmt.Sprintf("string literal %q", tok.Literal)
	default:
		return fmt.Sprintf("'%s'", tok.Literal)
	}
}
