// Package parser implements the lexer, AST, and recursive-descent parser for
// the flint component dialect: a JavaScript subset extended with JSX markup
// and the reactive primitives signal, memo, and effect.
package parser

import "fmt"

// Type identifies the kind of a lexical token.
type Type int

const (
	EOF Type = iota
	ILLEGAL

	IDENT
	NUMBER
	STRING   // "..." or '...' with the quotes stripped
	TEMPLATE // `...` raw body with the backticks stripped
	JSXTEXT  // raw text between JSX tags, only produced in JSX mode

	// Punctuation
	LPAREN
	RPAREN
	LBRACE
	RBRACE
	LBRACKET
	RBRACKET
	COMMA
	SEMICOLON
	COLON
	DOT
	ELLIPSIS
	QUESTION
	ARROW

	// Operators
	ASSIGN
	PLUSASSIGN
	MINUSASSIGN
	OPTCHAIN // ?.
	PLUS
	MINUS
	STAR
	SLASH
	PERCENT
	BANG
	LT
	GT
	LE
	GE
	EQ   // ==
	NEQ  // !=
	SEQ  // ===
	SNEQ // !==
	AND  // &&
	OR   // ||
	NULLISH

	// Keywords
	IMPORT
	EXPORT
	DEFAULT
	FUNCTION
	CONST
	LET
	VAR
	RETURN
	IF
	ELSE
	TRUE
	FALSE
	NULL
	UNDEFINED
	FROM
)

var keywords = map[string]Type{
	"import":    IMPORT,
	"export":    EXPORT,
	"default":   DEFAULT,
	"function":  FUNCTION,
	"const":     CONST,
	"let":       LET,
	"var":       VAR,
	"return":    RETURN,
	"if":        IF,
	"else":      ELSE,
	"true":      TRUE,
	"false":     FALSE,
	"null":      NULL,
	"undefined": UNDEFINED,
	"from":      FROM,
}

var tokenNames = map[Type]string{
	EOF:       "end of file",
	ILLEGAL:   "illegal token",
	IDENT:     "identifier",
	NUMBER:    "number",
	STRING:    "string",
	TEMPLATE:  "template literal",
	JSXTEXT:   "JSX text",
	LPAREN:    "'('",
	RPAREN:    "')'",
	LBRACE:    "'{'",
	RBRACE:    "'}'",
	LBRACKET:  "'['",
	RBRACKET:  "']'",
	COMMA:     "','",
	SEMICOLON: "';'",
	COLON:     "':'",
	DOT:       "'.'",
	ELLIPSIS:  "'...'",
	QUESTION:  "'?'",
	ARROW:     "'=>'",
	ASSIGN:      "'='",
	PLUSASSIGN:  "'+='",
	MINUSASSIGN: "'-='",
	OPTCHAIN:    "'?.'",
	PLUS:      "'+'",
	MINUS:     "'-'",
	STAR:      "'*'",
	SLASH:     "'/'",
	PERCENT:   "'%'",
	BANG:      "'!'",
	LT:        "'<'",
	GT:        "'>'",
	LE:        "'<='",
	GE:        "'>='",
	EQ:        "'=='",
	NEQ:       "'!='",
	SEQ:       "'==='",
	SNEQ:      "'!=='",
	AND:       "'&&'",
	OR:        "'||'",
	NULLISH:   "'??'",
	IMPORT:    "'import'",
	EXPORT:    "'export'",
	DEFAULT:   "'default'",
	FUNCTION:  "'function'",
	CONST:     "'const'",
	LET:       "'let'",
	VAR:       "'var'",
	RETURN:    "'return'",
	IF:        "'if'",
	ELSE:      "'else'",
	TRUE:      "'true'",
	FALSE:     "'false'",
	NULL:      "'null'",
	UNDEFINED: "'undefined'",
	FROM:      "'from'",
}

func (t Type) String() string {
	if s, ok := tokenNames[t]; ok {
		return s
	}
	return fmt.Sprintf("token(%d)", int(t))
}

// Token is one lexical token with its position in the source (1-indexed).
type Token struct {
	Type    Type
	Literal string
	Line    int
	Col     int
}
