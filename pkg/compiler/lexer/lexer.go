package lexer

import (
	"github.com/zurustar/tinyscript/pkg/compiler/token"
	"github.com/zurustar/tinyscript/pkg/diag"
)

// Lexer tokenizes tinyscript source code.
type Lexer struct {
	input        string
	position     int  // current position in input
	readPosition int  // current reading position (after current char)
	ch           byte // current char
	line         int  // line of ch
	column       int  // column of ch
	err          *diag.Error
}

// New creates a new Lexer.
func New(input string) *Lexer {
	l := &Lexer{
		input:  input,
		line:   1,
		column: 0,
	}
	l.readChar()
	return l
}

// Err returns the first lexical error encountered, if any.
// The token that triggered it is returned as ILLEGAL.
func (l *Lexer) Err() *diag.Error {
	return l.err
}

// NextToken returns the next token.
func (l *Lexer) NextToken() token.Token {
	l.skipWhitespaceAndComments()

	line, column := l.line, l.column

	var tok token.Token
	switch l.ch {
	case ':':
		if l.peekChar() == '=' {
			l.readChar()
			tok = l.makeToken(token.ASSIGN, ":=", line, column)
		} else {
			tok = l.illegal(line, column, "unexpected character ':' (did you mean ':='?)")
		}
	case '=':
		if l.peekChar() == '=' {
			l.readChar()
			tok = l.makeToken(token.EQ, "==", line, column)
		} else {
			tok = l.illegal(line, column, "unexpected character '=' (did you mean ':=' or '=='?)")
		}
	case '~':
		if l.peekChar() == '=' {
			l.readChar()
			tok = l.makeToken(token.NOT_EQ, "~=", line, column)
		} else {
			tok = l.makeToken(token.TILDE, "~", line, column)
		}
	case '<':
		if l.peekChar() == '=' {
			l.readChar()
			tok = l.makeToken(token.LTE, "<=", line, column)
		} else {
			tok = l.makeToken(token.LT, "<", line, column)
		}
	case '>':
		if l.peekChar() == '=' {
			l.readChar()
			tok = l.makeToken(token.GTE, ">=", line, column)
		} else {
			tok = l.makeToken(token.GT, ">", line, column)
		}
	case '+':
		tok = l.makeToken(token.PLUS, "+", line, column)
	case '-':
		tok = l.makeToken(token.MINUS, "-", line, column)
	case '*':
		tok = l.makeToken(token.ASTERISK, "*", line, column)
	case '/':
		tok = l.makeToken(token.SLASH, "/", line, column)
	case '%':
		tok = l.makeToken(token.PERCENT, "%", line, column)
	case '^':
		tok = l.makeToken(token.CARET, "^", line, column)
	case ',':
		tok = l.makeToken(token.COMMA, ",", line, column)
	case ';':
		tok = l.makeToken(token.SEMICOLON, ";", line, column)
	case '(':
		tok = l.makeToken(token.LPAREN, "(", line, column)
	case ')':
		tok = l.makeToken(token.RPAREN, ")", line, column)
	case '"', '\'':
		return l.readString(line, column)
	case 0:
		return token.Token{Type: token.EOF, Literal: "", Line: line, Column: column}
	default:
		if isLetter(l.ch) {
			literal := l.readIdentifier()
			return token.Token{Type: token.LookupIdent(literal), Literal: literal, Line: line, Column: column}
		} else if isDigit(l.ch) {
			return l.readNumber(line, column)
		}
		tok = l.illegal(line, column, "unexpected character %q", l.ch)
	}

	l.readChar()
	return tok
}

// Tokens drains the lexer. The returned slice always ends with EOF or ILLEGAL.
func (l *Lexer) Tokens() []token.Token {
	var toks []token.Token
	for {
		tok := l.NextToken()
		toks = append(toks, tok)
		if tok.Type == token.EOF || tok.Type == token.ILLEGAL {
			return toks
		}
	}
}

// readChar reads the next character.
func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.column = 0
	}

	if l.readPosition >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPosition]
	}
	l.position = l.readPosition
	l.readPosition++
	l.column++
}

// peekChar returns the next character without advancing.
func (l *Lexer) peekChar() byte {
	if l.readPosition >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition]
}

// readIdentifier reads an identifier.
func (l *Lexer) readIdentifier() string {
	position := l.position
	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	return l.input[position:l.position]
}

// readNumber reads an integer or float literal.
func (l *Lexer) readNumber(line, column int) token.Token {
	position := l.position
	isFloat := false

	for isDigit(l.ch) {
		l.readChar()
	}

	if l.ch == '.' && isDigit(l.peekChar()) {
		isFloat = true
		l.readChar() // consume '.'
		for isDigit(l.ch) {
			l.readChar()
		}
	}

	literal := l.input[position:l.position]
	if isFloat {
		return token.Token{Type: token.FLOAT, Literal: literal, Line: line, Column: column}
	}
	return token.Token{Type: token.INT, Literal: literal, Line: line, Column: column}
}

// readString reads a string literal delimited by the current quote character.
// Escape sequences are kept raw; a backslash only protects the next
// character from terminating the literal.
func (l *Lexer) readString(line, column int) token.Token {
	quote := l.ch
	l.readChar() // consume opening quote
	position := l.position
	for l.ch != quote {
		if l.ch == 0 {
			return l.illegal(line, column, "unterminated string literal")
		}
		if l.ch == '\\' && l.peekChar() != 0 {
			l.readChar()
		}
		l.readChar()
	}
	literal := l.input[position:l.position]
	l.readChar() // consume closing quote
	return token.Token{Type: token.STRING, Literal: literal, Line: line, Column: column}
}

// skipWhitespaceAndComments skips blanks, '#' comments and '--' comments.
func (l *Lexer) skipWhitespaceAndComments() {
	for {
		switch {
		case l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r':
			l.readChar()
		case l.ch == '#', l.ch == '-' && l.peekChar() == '-':
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
		default:
			return
		}
	}
}

func (l *Lexer) makeToken(tokenType token.TokenType, literal string, line, column int) token.Token {
	return token.Token{Type: tokenType, Literal: literal, Line: line, Column: column}
}

// illegal records the first lexical error and returns an ILLEGAL token.
func (l *Lexer) illegal(line, column int, format string, args ...any) token.Token {
	e := diag.New(diag.LexError, line, column, format, args...)
	if l.err == nil {
		l.err = e
	}
	return token.Token{Type: token.ILLEGAL, Literal: e.Message, Line: line, Column: column}
}

// isLetter checks if a character can start an identifier.
func isLetter(ch byte) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || ch == '_' || ch >= 0x80
}

// isDigit checks if a character is a digit.
func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}

// GetSource returns the source code as a string
func (l *Lexer) GetSource() string {
	return l.input
}
