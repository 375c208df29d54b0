package lexer

import (
	"testing"

	"github.com/zurustar/tinyscript/pkg/compiler/token"
	"github.com/zurustar/tinyscript/pkg/diag"
)

func TestNextToken(t *testing.T) {
	input := `
	x := 1.5 + 2 * 3
	# comment until end of line
	if x ~= 4 and ~done then println 'a\'b' end -- trailing comment
	func f(a, b) ret a % b ^ 2 end
	while i <= 10 do i := i - 1 end;
	for k := 1, 5, 2 do print "k" end
	`

	tests := []struct {
		expectedType    token.TokenType
		expectedLiteral string
	}{
		{token.IDENT, "x"},
		{token.ASSIGN, ":="},
		{token.FLOAT, "1.5"},
		{token.PLUS, "+"},
		{token.INT, "2"},
		{token.ASTERISK, "*"},
		{token.INT, "3"},

		{token.IF, "if"},
		{token.IDENT, "x"},
		{token.NOT_EQ, "~="},
		{token.INT, "4"},
		{token.AND, "and"},
		{token.TILDE, "~"},
		{token.IDENT, "done"},
		{token.THEN, "then"},
		{token.PRINTLN, "println"},
		{token.STRING, `a\'b`},
		{token.END, "end"},

		{token.FUNC, "func"},
		{token.IDENT, "f"},
		{token.LPAREN, "("},
		{token.IDENT, "a"},
		{token.COMMA, ","},
		{token.IDENT, "b"},
		{token.RPAREN, ")"},
		{token.RET, "ret"},
		{token.IDENT, "a"},
		{token.PERCENT, "%"},
		{token.IDENT, "b"},
		{token.CARET, "^"},
		{token.INT, "2"},
		{token.END, "end"},

		{token.WHILE, "while"},
		{token.IDENT, "i"},
		{token.LTE, "<="},
		{token.INT, "10"},
		{token.DO, "do"},
		{token.IDENT, "i"},
		{token.ASSIGN, ":="},
		{token.IDENT, "i"},
		{token.MINUS, "-"},
		{token.INT, "1"},
		{token.END, "end"},
		{token.SEMICOLON, ";"},

		{token.FOR, "for"},
		{token.IDENT, "k"},
		{token.ASSIGN, ":="},
		{token.INT, "1"},
		{token.COMMA, ","},
		{token.INT, "5"},
		{token.COMMA, ","},
		{token.INT, "2"},
		{token.DO, "do"},
		{token.PRINT, "print"},
		{token.STRING, "k"},
		{token.END, "end"},
		{token.EOF, ""},
	}

	l := New(input)

	for i, tt := range tests {
		tok := l.NextToken()

		if tok.Type != tt.expectedType {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%q, got=%q",
				i, tt.expectedType, tok.Type)
		}

		if tok.Literal != tt.expectedLiteral {
			t.Fatalf("tests[%d] - literal wrong. expected=%q, got=%q",
				i, tt.expectedLiteral, tok.Literal)
		}
	}

	if err := l.Err(); err != nil {
		t.Fatalf("unexpected lexer error: %v", err)
	}
}

func TestTokenPositions(t *testing.T) {
	l := New("x := 1\n  println x")

	want := []struct {
		typ    token.TokenType
		line   int
		column int
	}{
		{token.IDENT, 1, 1},
		{token.ASSIGN, 1, 3},
		{token.INT, 1, 6},
		{token.PRINTLN, 2, 3},
		{token.IDENT, 2, 11},
		{token.EOF, 2, 12},
	}

	for i, w := range want {
		tok := l.NextToken()
		if tok.Type != w.typ || tok.Line != w.line || tok.Column != w.column {
			t.Errorf("token[%d] = %s at %d:%d, want %s at %d:%d",
				i, tok.Type, tok.Line, tok.Column, w.typ, w.line, w.column)
		}
	}
}

func TestLexErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"unterminated double quote", `println "abc`},
		{"unterminated single quote", "x := 'abc\n"},
		{"lone colon", "x : 1"},
		{"lone equals", "x = 1"},
		{"unknown character", "x := 1 $ 2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			toks := New(tt.input).Tokens()
			last := toks[len(toks)-1]
			if last.Type != token.ILLEGAL {
				t.Fatalf("expected ILLEGAL token, got %s", last.Type)
			}

			l := New(tt.input)
			l.Tokens()
			if !diag.Is(l.Err(), diag.LexError) {
				t.Errorf("expected LexError, got %v", l.Err())
			}
		})
	}
}
