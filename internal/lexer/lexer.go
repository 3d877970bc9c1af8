package lexer

import (
	"fmt"
	"iter"
	"unicode/utf8"
)

const eof = -1

// Error is a lexical error. It never aborts the token stream: the lexer
// skips the offending input and keeps going.
type Error struct {
	Line    int
	Column  int
	Lexeme  string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Column, e.Message)
}

// Lexer scans source text and produces tokens on demand
type Lexer struct {
	input  string
	offset int  // byte offset of ch
	width  int  // byte width of ch
	ch     rune // current character, eof at end of input
	line   int
	column int
}

// cursor is a saved lexer position, used to back out of a bad string literal
type cursor struct {
	offset, line, column int
}

// New creates a new Lexer instance
func New(input string) *Lexer {
	l := &Lexer{input: input}
	l.decode()
	return l
}

func (l *Lexer) decode() {
	if l.offset >= len(l.input) {
		l.ch = eof
		l.width = 0
		return
	}
	r, w := utf8.DecodeRuneInString(l.input[l.offset:])
	l.ch = r
	l.width = w
}

// advance moves past the current character, keeping line/column in step.
// \n, \r, \f and \v all terminate a line; \r\n counts once.
func (l *Lexer) advance() {
	if l.ch == eof {
		return
	}
	switch l.ch {
	case '\n', '\f', '\v':
		l.line++
		l.column = 0
	case '\r':
		if l.peekChar() == '\n' {
			l.column++
		} else {
			l.line++
			l.column = 0
		}
	default:
		l.column++
	}
	l.offset += l.width
	l.decode()
}

// peekChar returns the character after the current one without advancing
func (l *Lexer) peekChar() rune {
	next := l.offset + l.width
	if next >= len(l.input) {
		return eof
	}
	r, _ := utf8.DecodeRuneInString(l.input[next:])
	return r
}

func (l *Lexer) save() cursor {
	return cursor{offset: l.offset, line: l.line, column: l.column}
}

func (l *Lexer) restore(c cursor) {
	l.offset, l.line, l.column = c.offset, c.line, c.column
	l.decode()
}

func (l *Lexer) errorf(line, col int, lexeme, format string, args ...any) *Error {
	return &Error{Line: line, Column: col, Lexeme: lexeme, Message: fmt.Sprintf(format, args...)}
}

// skipTrivia skips whitespace and comments. An unterminated block comment
// is reported once and swallows the rest of the input.
func (l *Lexer) skipTrivia() *Error {
	for {
		switch {
		case isSpace(l.ch):
			l.advance()
		case l.ch == '/' && l.peekChar() == '/':
			for l.ch != eof && l.ch != '\n' && l.ch != '\r' {
				l.advance()
			}
		case l.ch == '/' && l.peekChar() == '*':
			line, col := l.line, l.column
			l.advance()
			l.advance()
			for !(l.ch == '*' && l.peekChar() == '/') {
				if l.ch == eof {
					return l.errorf(line, col, "/*", "unterminated comment")
				}
				l.advance()
			}
			l.advance()
			l.advance()
		default:
			return nil
		}
	}
}

// NextToken returns the next token, or a lexical error describing input that
// could not be tokenized. Exactly one of the two results is meaningful. Once
// the EOF token has been produced every further call produces it again.
func (l *Lexer) NextToken() (Token, error) {
	if err := l.skipTrivia(); err != nil {
		return Token{}, err
	}

	line, col, start := l.line, l.column, l.offset
	emit := func(tt TokenType) (Token, error) {
		return Token{Type: tt, Literal: l.input[start:l.offset], Line: line, Column: col}, nil
	}

	switch {
	case l.ch == eof:
		return Token{Type: EOF, Literal: "", Line: line, Column: col}, nil
	case isLetter(l.ch):
		for isLetter(l.ch) || isDigit(l.ch) || l.ch == '_' {
			l.advance()
		}
		return emit(LookupIdent(l.input[start:l.offset]))
	case isDigit(l.ch):
		for isDigit(l.ch) {
			l.advance()
		}
		return emit(INT_LIT)
	case l.ch == '"':
		return l.readString(line, col)
	}

	ch := l.ch
	l.advance()
	switch ch {
	case '=':
		if l.ch == '=' {
			l.advance()
			return emit(EQ)
		}
		return emit(ASSIGN)
	case '!':
		if l.ch == '=' {
			l.advance()
			return emit(NEQ)
		}
		return emit(NOT)
	case '<':
		if l.ch == '=' {
			l.advance()
			return emit(LEQ)
		}
		return emit(LT)
	case '>':
		if l.ch == '=' {
			l.advance()
			return emit(GEQ)
		}
		return emit(GT)
	case '+':
		return emit(PLUS)
	case '-':
		return emit(MINUS)
	case '*':
		return emit(STAR)
	case '/':
		return emit(SLASH)
	case '%':
		return emit(PERCENT)
	case '(':
		return emit(LPAREN)
	case ')':
		return emit(RPAREN)
	case '{':
		return emit(LBRACE)
	case '}':
		return emit(RBRACE)
	case '[':
		return emit(LBRACKET)
	case ']':
		return emit(RBRACKET)
	case ',':
		return emit(COMMA)
	case ';':
		return emit(SEMICOLON)
	}

	lexeme := l.input[start:l.offset]
	if ch == utf8.RuneError && len(lexeme) == 1 {
		return Token{}, l.errorf(line, col, lexeme, "invalid UTF-8 byte 0x%02x", lexeme[0])
	}
	return Token{}, l.errorf(line, col, lexeme, "invalid character %q", ch)
}

// readString reads a string literal starting at the opening quote. The body
// is kept verbatim; escape sequences are not interpreted. If the literal is
// broken by a raw line break or the end of input, only the opening quote is
// consumed and scanning resumes right after it.
func (l *Lexer) readString(line, col int) (Token, error) {
	l.advance() // opening quote
	afterQuote := l.save()
	start := l.offset

	for l.ch != '"' {
		switch l.ch {
		case eof:
			l.restore(afterQuote)
			return Token{}, l.errorf(line, col, `"`, "unterminated string literal")
		case '\n', '\r':
			l.restore(afterQuote)
			return Token{}, l.errorf(line, col, `"`, "line break in string literal")
		}
		l.advance()
	}

	body := l.input[start:l.offset]
	l.advance() // closing quote
	return Token{Type: STRING_LIT, Literal: body, Line: line, Column: col}, nil
}

// All returns the token stream as a lazy sequence. Each step yields either a
// token or a lexical error; the sequence ends after the EOF token.
func (l *Lexer) All() iter.Seq2[Token, error] {
	return func(yield func(Token, error) bool) {
		for {
			tok, err := l.NextToken()
			if !yield(tok, err) {
				return
			}
			if err == nil && tok.Type == EOF {
				return
			}
		}
	}
}

// Tokenize returns all tokens from the input along with every lexical error
func (l *Lexer) Tokenize() ([]Token, []*Error) {
	var tokens []Token
	var errs []*Error
	for tok, err := range l.All() {
		if err != nil {
			errs = append(errs, err.(*Error))
			continue
		}
		tokens = append(tokens, tok)
	}
	return tokens, errs
}

// Helper functions

func isLetter(ch rune) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z'
}

func isDigit(ch rune) bool {
	return '0' <= ch && ch <= '9'
}

func isSpace(ch rune) bool {
	switch ch {
	case ' ', '\t', '\n', '\r', '\f', '\v':
		return true
	}
	return false
}
