package parser

import (
	"testing"

	"github.com/nalgeon/be"
)

func lexAll(src string) []Token {
	l := NewLexer(src)
	var toks []Token
	for {
		tok := l.Next()
		toks = append(toks, tok)
		if tok.Type == EOF || tok.Type == ILLEGAL {
			return toks
		}
	}
}

func TestNumberLiterals(t *testing.T) {
	l := NewLexer("42 3.14 1e3")
	tok := l.Next()
	be.Equal(t, tok.Type, NUMBER)
	be.Equal(t, tok.Literal, "42")
	tok = l.Next()
	be.Equal(t, tok.Type, NUMBER)
	be.Equal(t, tok.Literal, "3.14")
	tok = l.Next()
	be.Equal(t, tok.Type, NUMBER)
	be.Equal(t, tok.Literal, "1e3")
}

func TestStringLiterals(t *testing.T) {
	l := NewLexer(`"hello" 'world' "a\nb"`)
	tok := l.Next()
	be.Equal(t, tok.Type, STRING)
	be.Equal(t, tok.Literal, "hello")
	tok = l.Next()
	be.Equal(t, tok.Type, STRING)
	be.Equal(t, tok.Literal, "world")
	tok = l.Next()
	be.Equal(t, tok.Type, STRING)
	be.Equal(t, tok.Literal, "a\nb")
}

func TestKeywordsAndIdentifiers(t *testing.T) {
	l := NewLexer("const signal effect return undefined")
	be.Equal(t, l.Next().Type, CONST)
	tok := l.Next()
	be.Equal(t, tok.Type, IDENT) // signal is not a keyword, just a known callee
	be.Equal(t, tok.Literal, "signal")
	be.Equal(t, l.Next().Type, IDENT)
	be.Equal(t, l.Next().Type, RETURN)
	be.Equal(t, l.Next().Type, UNDEFINED)
}

func TestOperators(t *testing.T) {
	tests := []struct {
		input string
		typ   Type
	}{
		{"=>", ARROW},
		{"===", SEQ},
		{"!==", SNEQ},
		{"==", EQ},
		{"!=", NEQ},
		{"<=", LE},
		{">=", GE},
		{"&&", AND},
		{"||", OR},
		{"??", NULLISH},
		{"?.", OPTCHAIN},
		{"...", ELLIPSIS},
		{"+=", PLUSASSIGN},
		{"-=", MINUSASSIGN},
		{"?", QUESTION},
		{"%", PERCENT},
	}
	for _, tt := range tests {
		l := NewLexer(tt.input)
		tok := l.Next()
		be.Equal(t, tok.Type, tt.typ)
	}
}

func TestComments(t *testing.T) {
	toks := lexAll("a // line comment\n/* block */ b")
	be.Equal(t, len(toks), 3)
	be.Equal(t, toks[0].Literal, "a")
	be.Equal(t, toks[1].Literal, "b")
	be.Equal(t, toks[2].Type, EOF)
}

func TestLineTracking(t *testing.T) {
	l := NewLexer("a\n  b\nc")
	a := l.Next()
	b := l.Next()
	c := l.Next()
	be.Equal(t, a.Line, 1)
	be.Equal(t, b.Line, 2)
	be.Equal(t, b.Col, 3)
	be.Equal(t, c.Line, 3)
}

func TestTemplateLiteral(t *testing.T) {
	l := NewLexer("`hello ${name} and ${a + b}`")
	tok := l.Next()
	be.Equal(t, tok.Type, TEMPLATE)
	be.Equal(t, tok.Literal, "hello ${name} and ${a + b}")
}

func TestTemplateLiteralNestedBraces(t *testing.T) {
	l := NewLexer("`v: ${obj.get({ key: 1 })}`")
	tok := l.Next()
	be.Equal(t, tok.Type, TEMPLATE)
	be.Equal(t, tok.Literal, "v: ${obj.get({ key: 1 })}")
}

func TestUnterminatedString(t *testing.T) {
	l := NewLexer(`"abc`)
	tok := l.Next()
	be.Equal(t, tok.Type, ILLEGAL)
}

func TestJSXText(t *testing.T) {
	l := NewLexer("hello world <span>")
	tok := l.NextJSXText()
	be.Equal(t, tok.Type, JSXTEXT)
	be.Equal(t, tok.Literal, "hello world ")
	be.Equal(t, l.peek(), byte('<'))
}

func TestJSXTextStopsAtBrace(t *testing.T) {
	l := NewLexer("count is {n}")
	tok := l.NextJSXText()
	be.Equal(t, tok.Literal, "count is ")
	be.Equal(t, l.peek(), byte('{'))
}

func TestJSXName(t *testing.T) {
	l := NewLexer("data-testid=")
	tok := l.NextJSXName()
	be.Equal(t, tok.Type, IDENT)
	be.Equal(t, tok.Literal, "data-testid")
}

func TestCaptureBalanced(t *testing.T) {
	// Positioned after an opening brace: capture to the matching close.
	l := NewLexer(`() => setOn({ a: "}" , b: { c: 1 } })} trailing`)
	inner, ok := l.CaptureBalanced()
	be.True(t, ok)
	be.Equal(t, inner, `() => setOn({ a: "}" , b: { c: 1 } })`)
}

func TestCheckpointRestore(t *testing.T) {
	l := NewLexer("a b c")
	l.Next()
	cp := l.Checkpoint()
	be.Equal(t, l.Next().Literal, "b")
	be.Equal(t, l.Next().Literal, "c")
	l.Restore(cp)
	be.Equal(t, l.Next().Literal, "b")
}
