package lexer

import (
	"testing"
)

// step is one expected element of the stream: a token, or a lexical error
// at the given position when isErr is set.
type step struct {
	tok   Token
	isErr bool
	line  int
	col   int
}

func tk(tt TokenType, line, col int, lit string) step {
	return step{tok: Token{Type: tt, Literal: lit, Line: line, Column: col}}
}

func lexErr(line, col int) step {
	return step{isErr: true, line: line, col: col}
}

func runLexer(t *testing.T, input string, expected ...step) {
	t.Helper()
	l := New(input)
	i := 0
	for tok, err := range l.All() {
		if i >= len(expected) {
			t.Fatalf("more output than expected: tok=%v err=%v", tok, err)
		}
		want := expected[i]
		i++
		if want.isErr {
			if err == nil {
				t.Fatalf("step %d: expected lexical error at %d:%d, got token %v", i-1, want.line, want.col, tok)
			}
			lerr := err.(*Error)
			if lerr.Line != want.line || lerr.Column != want.col {
				t.Errorf("step %d: error at %d:%d, expected %d:%d (%s)", i-1, lerr.Line, lerr.Column, want.line, want.col, lerr.Message)
			}
			continue
		}
		if err != nil {
			t.Fatalf("step %d: unexpected error %v, expected %v", i-1, err, want.tok)
		}
		if tok != want.tok {
			t.Errorf("step %d: got %v, expected %v", i-1, tok, want.tok)
		}
	}
	if i != len(expected) {
		t.Fatalf("stream ended after %d steps, expected %d", i, len(expected))
	}
}

func TestKeywordsAndPositions(t *testing.T) {
	runLexer(t, "module false return while",
		tk(MODULE, 0, 0, "module"),
		tk(FALSE, 0, 7, "false"),
		tk(RETURN, 0, 13, "return"),
		tk(WHILE, 0, 20, "while"),
		tk(EOF, 0, 25, ""),
	)
}

func TestAllKeywordsAcrossLineTerminators(t *testing.T) {
	runLexer(t, "boolean break\nelse\tfalse\rif\fimport int module public return true type void while",
		tk(BOOLEAN, 0, 0, "boolean"),
		tk(BREAK, 0, 8, "break"),
		tk(ELSE, 1, 0, "else"),
		tk(FALSE, 1, 5, "false"),
		tk(IF, 2, 0, "if"),
		tk(IMPORT, 3, 0, "import"),
		tk(INT, 3, 7, "int"),
		tk(MODULE, 3, 11, "module"),
		tk(PUBLIC, 3, 18, "public"),
		tk(RETURN, 3, 25, "return"),
		tk(TRUE, 3, 32, "true"),
		tk(TYPE, 3, 37, "type"),
		tk(VOID, 3, 42, "void"),
		tk(WHILE, 3, 47, "while"),
		tk(EOF, 3, 52, ""),
	)
}

func TestCarriageReturnLineFeedCountsOnce(t *testing.T) {
	runLexer(t, "a\r\nb",
		tk(IDENT, 0, 0, "a"),
		tk(IDENT, 1, 0, "b"),
		tk(EOF, 1, 1, ""),
	)
}

func TestPunctuation(t *testing.T) {
	runLexer(t, ", [] { } ( );",
		tk(COMMA, 0, 0, ","),
		tk(LBRACKET, 0, 2, "["),
		tk(RBRACKET, 0, 3, "]"),
		tk(LBRACE, 0, 5, "{"),
		tk(RBRACE, 0, 7, "}"),
		tk(LPAREN, 0, 9, "("),
		tk(RPAREN, 0, 11, ")"),
		tk(SEMICOLON, 0, 12, ";"),
		tk(EOF, 0, 13, ""),
	)
}

func TestOperatorsMaximalMunch(t *testing.T) {
	runLexer(t, "/=== >>====<=<-!==+*",
		tk(SLASH, 0, 0, "/"),
		tk(EQ, 0, 1, "=="),
		tk(ASSIGN, 0, 3, "="),
		tk(GT, 0, 5, ">"),
		tk(GEQ, 0, 6, ">="),
		tk(EQ, 0, 8, "=="),
		tk(ASSIGN, 0, 10, "="),
		tk(LEQ, 0, 11, "<="),
		tk(LT, 0, 13, "<"),
		tk(MINUS, 0, 14, "-"),
		tk(NEQ, 0, 15, "!="),
		tk(ASSIGN, 0, 17, "="),
		tk(PLUS, 0, 18, "+"),
		tk(STAR, 0, 19, "*"),
		tk(EOF, 0, 20, ""),
	)
}

func TestNotAndPercent(t *testing.T) {
	runLexer(t, "!x % 2",
		tk(NOT, 0, 0, "!"),
		tk(IDENT, 0, 1, "x"),
		tk(PERCENT, 0, 3, "%"),
		tk(INT_LIT, 0, 5, "2"),
		tk(EOF, 0, 6, ""),
	)
}

func TestIdentifiers(t *testing.T) {
	runLexer(t, "ijkb Boolean sc4242 breaker true sc_89yzW _uiux 67M",
		tk(IDENT, 0, 0, "ijkb"),
		tk(IDENT, 0, 5, "Boolean"),
		tk(IDENT, 0, 13, "sc4242"),
		tk(IDENT, 0, 20, "breaker"),
		tk(TRUE, 0, 28, "true"),
		tk(IDENT, 0, 33, "sc_89yzW"),
		lexErr(0, 42),
		tk(IDENT, 0, 43, "uiux"),
		tk(INT_LIT, 0, 48, "67"),
		tk(IDENT, 0, 50, "M"),
		tk(EOF, 0, 51, ""),
	)
}

func TestIntegerLiteralKeepsLeadingZeros(t *testing.T) {
	runLexer(t, "-0090",
		tk(MINUS, 0, 0, "-"),
		tk(INT_LIT, 0, 1, "0090"),
		tk(EOF, 0, 5, ""),
	)
}

func TestIntegerLiteralHasNoLengthLimit(t *testing.T) {
	runLexer(t, "123456789012345678901234567890",
		tk(INT_LIT, 0, 0, "123456789012345678901234567890"),
		tk(EOF, 0, 30, ""),
	)
}

func TestStringLiterals(t *testing.T) {
	tests := []struct {
		name  string
		input string
		lit   string
		end   int
	}{
		{"plain", `"56 apples"`, "56 apples", 11},
		{"escape kept verbatim", `"\n"`, `\n`, 4},
		{"empty", `""`, "", 2},
		{"backslash before quote", `"a\"`, `a\`, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runLexer(t, tt.input,
				tk(STRING_LIT, 0, 0, tt.lit),
				tk(EOF, 0, tt.end, ""),
			)
		})
	}
}

func TestStringLiteralFollowedByStrayQuote(t *testing.T) {
	runLexer(t, `"""`,
		tk(STRING_LIT, 0, 0, ""),
		lexErr(0, 2),
		tk(EOF, 0, 3, ""),
	)
}

func TestStringLiteralBrokenByNewline(t *testing.T) {
	runLexer(t, "\n\"\n\"",
		lexErr(1, 0),
		lexErr(2, 0),
		tk(EOF, 2, 1, ""),
	)
}

func TestBrokenStringBodyIsRelexed(t *testing.T) {
	runLexer(t, "\"abc x\ny",
		lexErr(0, 0),
		tk(IDENT, 0, 1, "abc"),
		tk(IDENT, 0, 5, "x"),
		tk(IDENT, 1, 0, "y"),
		tk(EOF, 1, 1, ""),
	)
}

func TestInvalidCharacterConsumesOneCharacter(t *testing.T) {
	runLexer(t, "a@b",
		tk(IDENT, 0, 0, "a"),
		lexErr(0, 1),
		tk(IDENT, 0, 2, "b"),
		tk(EOF, 0, 3, ""),
	)
}

func TestComments(t *testing.T) {
	runLexer(t, "a // line\n/* block\n */ b",
		tk(IDENT, 0, 0, "a"),
		tk(IDENT, 2, 4, "b"),
		tk(EOF, 2, 5, ""),
	)
}

func TestUnterminatedComment(t *testing.T) {
	runLexer(t, "x /* never closed",
		tk(IDENT, 0, 0, "x"),
		lexErr(0, 2),
		tk(EOF, 0, 17, ""),
	)
}

func TestEOFIsSticky(t *testing.T) {
	l := New("x")
	l.NextToken()
	for i := 0; i < 3; i++ {
		tok, err := l.NextToken()
		if err != nil || tok.Type != EOF {
			t.Fatalf("call %d: expected EOF, got %v %v", i, tok, err)
		}
	}
}

func TestTokenize(t *testing.T) {
	tokens, errs := New("int _x = 1 @;").Tokenize()
	if len(errs) != 2 {
		t.Fatalf("expected 2 errors, got %d", len(errs))
	}
	want := []TokenType{INT, IDENT, ASSIGN, INT_LIT, SEMICOLON, EOF}
	if len(tokens) != len(want) {
		t.Fatalf("expected %d tokens, got %d: %v", len(want), len(tokens), tokens)
	}
	for i, tt := range want {
		if tokens[i].Type != tt {
			t.Errorf("token[%d]: expected %s, got %s", i, tt, tokens[i].Type)
		}
	}
}

func TestLookupIdent(t *testing.T) {
	for word, tt := range keywords {
		if LookupIdent(word) != tt {
			t.Errorf("keyword %q not recognized", word)
		}
		if !tt.IsKeyword() {
			t.Errorf("%s should report IsKeyword", tt)
		}
	}
	if LookupIdent("string") != IDENT {
		t.Error("'string' is not reserved")
	}
}
