package token

type TokenType string

type Token struct {
	Type    TokenType
	Literal string
	Line    int
	Column  int
}

const (
	ILLEGAL = "ILLEGAL"
	EOF     = "EOF"

	// Identifiers + Literals
	IDENT  = "IDENT"  // fact, theChar
	INT    = "INT"    // 123
	FLOAT  = "FLOAT"  // 1.25
	STRING = "STRING" // "abc", 'abc'

	// Operators and Delimiters
	ASSIGN    = ":="
	PLUS      = "+"
	MINUS     = "-"
	ASTERISK  = "*"
	SLASH     = "/"
	PERCENT   = "%"
	CARET     = "^"
	COMMA     = ","
	SEMICOLON = ";"
	LPAREN    = "("
	RPAREN    = ")"

	TILDE  = "~"
	EQ     = "=="
	NOT_EQ = "~="
	LT     = "<"
	GT     = ">"
	LTE    = "<="
	GTE    = ">="

	// Keywords
	IF      = "IF"
	THEN    = "THEN"
	ELSE    = "ELSE"
	END     = "END"
	WHILE   = "WHILE"
	DO      = "DO"
	FOR     = "FOR"
	FUNC    = "FUNC"
	RET     = "RET"
	PRINT   = "PRINT"
	PRINTLN = "PRINTLN"
	TRUE    = "TRUE"
	FALSE   = "FALSE"
	AND     = "AND"
	OR      = "OR"
)

var keywords = map[string]TokenType{
	"if":      IF,
	"then":    THEN,
	"else":    ELSE,
	"end":     END,
	"while":   WHILE,
	"do":      DO,
	"for":     FOR,
	"func":    FUNC,
	"ret":     RET,
	"print":   PRINT,
	"println": PRINTLN,
	"true":    TRUE,
	"false":   FALSE,
	"and":     AND,
	"or":      OR,
}

// LookupIdent returns the keyword type for ident, or IDENT.
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return IDENT
}
