package parser

import "strings"

// Lexer is a hand-written scanner over a single component source file. The
// parser drives it mode-by-mode: Next for ordinary JavaScript tokens,
// NextJSXText and NextJSXName while inside markup. A Lexer value can be
// copied to checkpoint the scan position and restored by assignment.
type Lexer struct {
	src  string
	pos  int
	line int
	col  int
}

// NewLexer returns a lexer positioned at the start of src.
func NewLexer(src string) *Lexer {
	return &Lexer{src: src, pos: 0, line: 1, col: 1}
}

// Checkpoint captures the current scan state for later rollback.
func (l *Lexer) Checkpoint() Lexer { return *l }

// Restore rewinds the lexer to a previously captured state.
func (l *Lexer) Restore(cp Lexer) { *l = cp }

func (l *Lexer) peek() byte {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

func (l *Lexer) peekAt(off int) byte {
	if l.pos+off >= len(l.src) {
		return 0
	}
	return l.src[l.pos+off]
}

func (l *Lexer) advance() byte {
	if l.pos >= len(l.src) {
		return 0
	}
	ch := l.src[l.pos]
	l.pos++
	if ch == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return ch
}

func (l *Lexer) skipWhitespaceAndComments() {
	for l.pos < len(l.src) {
		ch := l.peek()
		switch {
		case ch == ' ' || ch == '\t' || ch == '\r' || ch == '\n':
			l.advance()
		case ch == '/' && l.peekAt(1) == '/':
			for l.pos < len(l.src) && l.peek() != '\n' {
				l.advance()
			}
		case ch == '/' && l.peekAt(1) == '*':
			l.advance()
			l.advance()
			for l.pos < len(l.src) && !(l.peek() == '*' && l.peekAt(1) == '/') {
				l.advance()
			}
			l.advance()
			l.advance()
		default:
			return
		}
	}
}

func isIdentStart(ch byte) bool {
	return ch == '_' || ch == '$' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isIdentPart(ch byte) bool {
	return isIdentStart(ch) || (ch >= '0' && ch <= '9')
}

func isDigit(ch byte) bool { return ch >= '0' && ch <= '9' }

// Next scans the next token in JavaScript mode.
func (l *Lexer) Next() Token {
	l.skipWhitespaceAndComments()
	tok := Token{Line: l.line, Col: l.col}
	if l.pos >= len(l.src) {
		tok.Type = EOF
		return tok
	}

	ch := l.peek()

	if isIdentStart(ch) {
		start := l.pos
		for l.pos < len(l.src) && isIdentPart(l.peek()) {
			l.advance()
		}
		tok.Literal = l.src[start:l.pos]
		if kw, ok := keywords[tok.Literal]; ok {
			tok.Type = kw
		} else {
			tok.Type = IDENT
		}
		return tok
	}

	if isDigit(ch) || (ch == '.' && isDigit(l.peekAt(1))) {
		return l.scanNumber(tok)
	}

	switch ch {
	case '"', '\'':
		return l.scanString(tok, ch)
	case '`':
		return l.scanTemplate(tok)
	}

	// Punctuation and operators, longest match first.
	two := ""
	three := ""
	if l.pos+2 <= len(l.src) {
		two = l.src[l.pos : l.pos+2]
	}
	if l.pos+3 <= len(l.src) {
		three = l.src[l.pos : l.pos+3]
	}

	switch three {
	case "===":
		return l.emit(tok, SEQ, 3)
	case "!==":
		return l.emit(tok, SNEQ, 3)
	case "...":
		return l.emit(tok, ELLIPSIS, 3)
	}
	switch two {
	case "=>":
		return l.emit(tok, ARROW, 2)
	case "==":
		return l.emit(tok, EQ, 2)
	case "!=":
		return l.emit(tok, NEQ, 2)
	case "<=":
		return l.emit(tok, LE, 2)
	case ">=":
		return l.emit(tok, GE, 2)
	case "&&":
		return l.emit(tok, AND, 2)
	case "||":
		return l.emit(tok, OR, 2)
	case "??":
		return l.emit(tok, NULLISH, 2)
	case "?.":
		return l.emit(tok, OPTCHAIN, 2)
	case "+=":
		return l.emit(tok, PLUSASSIGN, 2)
	case "-=":
		return l.emit(tok, MINUSASSIGN, 2)
	}

	single := map[byte]Type{
		'(': LPAREN, ')': RPAREN, '{': LBRACE, '}': RBRACE,
		'[': LBRACKET, ']': RBRACKET, ',': COMMA, ';': SEMICOLON,
		':': COLON, '.': DOT, '?': QUESTION, '=': ASSIGN,
		'+': PLUS, '-': MINUS, '*': STAR, '/': SLASH, '%': PERCENT,
		'!': BANG, '<': LT, '>': GT,
	}
	if t, ok := single[ch]; ok {
		return l.emit(tok, t, 1)
	}

	tok.Type = ILLEGAL
	tok.Literal = string(ch)
	l.advance()
	return tok
}

func (l *Lexer) emit(tok Token, t Type, width int) Token {
	tok.Type = t
	tok.Literal = l.src[l.pos : l.pos+width]
	for i := 0; i < width; i++ {
		l.advance()
	}
	return tok
}

func (l *Lexer) scanNumber(tok Token) Token {
	start := l.pos
	for l.pos < len(l.src) && isDigit(l.peek()) {
		l.advance()
	}
	if l.peek() == '.' && isDigit(l.peekAt(1)) {
		l.advance()
		for l.pos < len(l.src) && isDigit(l.peek()) {
			l.advance()
		}
	}
	if l.peek() == 'e' || l.peek() == 'E' {
		save := *l
		l.advance()
		if l.peek() == '+' || l.peek() == '-' {
			l.advance()
		}
		if isDigit(l.peek()) {
			for l.pos < len(l.src) && isDigit(l.peek()) {
				l.advance()
			}
		} else {
			*l = save
		}
	}
	tok.Type = NUMBER
	tok.Literal = l.src[start:l.pos]
	return tok
}

func (l *Lexer) scanString(tok Token, quote byte) Token {
	l.advance() // opening quote
	var sb strings.Builder
	for l.pos < len(l.src) && l.peek() != quote {
		ch := l.advance()
		if ch == '\\' && l.pos < len(l.src) {
			esc := l.advance()
			switch esc {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			case '\\', '\'', '"', '`':
				sb.WriteByte(esc)
			default:
				sb.WriteByte('\\')
				sb.WriteByte(esc)
			}
			continue
		}
		if ch == '\n' {
			tok.Type = ILLEGAL
			tok.Literal = "unterminated string literal"
			return tok
		}
		sb.WriteByte(ch)
	}
	if l.pos >= len(l.src) {
		tok.Type = ILLEGAL
		tok.Literal = "unterminated string literal"
		return tok
	}
	l.advance() // closing quote
	tok.Type = STRING
	tok.Literal = sb.String()
	return tok
}

// scanTemplate consumes a template literal and returns its raw body with the
// backticks stripped. Interpolations are kept verbatim; the parser splits
// them out with balanced-brace scanning.
func (l *Lexer) scanTemplate(tok Token) Token {
	l.advance() // opening backtick
	start := l.pos
	depth := 0
	for l.pos < len(l.src) {
		ch := l.peek()
		if ch == '\\' {
			l.advance()
			l.advance()
			continue
		}
		if ch == '$' && l.peekAt(1) == '{' {
			depth++
			l.advance()
			l.advance()
			continue
		}
		if ch == '}' && depth > 0 {
			depth--
			l.advance()
			continue
		}
		if ch == '`' && depth == 0 {
			tok.Type = TEMPLATE
			tok.Literal = l.src[start:l.pos]
			l.advance() // closing backtick
			return tok
		}
		l.advance()
	}
	tok.Type = ILLEGAL
	tok.Literal = "unterminated template literal"
	return tok
}

// NextJSXText scans raw markup text up to the next '<' or '{'. The returned
// token may be empty when the scanner is already positioned at a delimiter.
func (l *Lexer) NextJSXText() Token {
	tok := Token{Type: JSXTEXT, Line: l.line, Col: l.col}
	start := l.pos
	for l.pos < len(l.src) && l.peek() != '<' && l.peek() != '{' {
		l.advance()
	}
	tok.Literal = l.src[start:l.pos]
	return tok
}

// CaptureBalanced scans from the current position (just past an opening '{')
// to the matching '}' and returns the enclosed source text. String, template,
// and comment contents do not affect the brace depth. Returns false when the
// closing brace is missing.
func (l *Lexer) CaptureBalanced() (string, bool) {
	start := l.pos
	depth := 0
	for l.pos < len(l.src) {
		ch := l.peek()
		switch ch {
		case '{':
			depth++
			l.advance()
		case '}':
			if depth == 0 {
				inner := l.src[start:l.pos]
				l.advance()
				return inner, true
			}
			depth--
			l.advance()
		case '"', '\'', '`':
			quote := ch
			l.advance()
			for l.pos < len(l.src) && l.peek() != quote {
				if l.peek() == '\\' {
					l.advance()
				}
				l.advance()
			}
			l.advance()
		case '/':
			if l.peekAt(1) == '/' {
				for l.pos < len(l.src) && l.peek() != '\n' {
					l.advance()
				}
			} else if l.peekAt(1) == '*' {
				l.advance()
				l.advance()
				for l.pos < len(l.src) && !(l.peek() == '*' && l.peekAt(1) == '/') {
					l.advance()
				}
				l.advance()
				l.advance()
			} else {
				l.advance()
			}
		default:
			l.advance()
		}
	}
	return "", false
}

// NextJSXName scans a JSX tag or attribute name, which unlike a JS identifier
// may contain '-' (e.g. data-testid, aria-label).
func (l *Lexer) NextJSXName() Token {
	l.skipWhitespaceAndComments()
	tok := Token{Line: l.line, Col: l.col}
	if !isIdentStart(l.peek()) {
		tok.Type = ILLEGAL
		tok.Literal = string(l.peek())
		return tok
	}
	start := l.pos
	for l.pos < len(l.src) && (isIdentPart(l.peek()) || l.peek() == '-') {
		l.advance()
	}
	tok.Type = IDENT
	tok.Literal = l.src[start:l.pos]
	return tok
}
