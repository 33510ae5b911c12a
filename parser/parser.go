package parser

import (
	"fmt"
	"strconv"
	"strings"
)

// SyntaxError is a structured parse diagnostic.
type SyntaxError struct {
	Path string
	Line int
	Col  int
	Msg  string
}

func (e *SyntaxError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%d:%d: %s", e.Line, e.Col, e.Msg)
	}
	return fmt.Sprintf("%s:%d:%d: %s", e.Path, e.Line, e.Col, e.Msg)
}

// Parser is a recursive-descent parser with Pratt expression parsing. It
// reuses one token of lookahead; JSX subtrees are scanned character-level on
// the underlying lexer because markup text must not pass through the
// whitespace-skipping JS tokenizer.
type Parser struct {
	path string
	lex  *Lexer
	tok  Token
}

// Parse parses one component source file.
func Parse(path, src string) (file *File, err error) {
	p := &Parser{path: path, lex: NewLexer(src)}
	defer func() {
		if r := recover(); r != nil {
			if se, ok := r.(*SyntaxError); ok {
				err = se
				return
			}
			panic(r)
		}
	}()
	p.next()
	file = &File{Path: path}
	for p.tok.Type != EOF {
		file.Stmts = append(file.Stmts, p.parseStmt())
	}
	return file, nil
}

// ParseExpr parses a standalone expression (used for JSX interpolations and
// template literal parts) and requires the source to be fully consumed.
func ParseExpr(src string) (e Expr, err error) {
	p := &Parser{lex: NewLexer(src)}
	defer func() {
		if r := recover(); r != nil {
			if se, ok := r.(*SyntaxError); ok {
				err = se
				return
			}
			panic(r)
		}
	}()
	p.next()
	e = p.parseExpr()
	if p.tok.Type != EOF {
		return nil, &SyntaxError{Line: p.tok.Line, Col: p.tok.Col,
			Msg: fmt.Sprintf("unexpected %s after expression", p.tok.Type)}
	}
	return e, nil
}

func (p *Parser) next() { p.tok = p.lex.Next() }

func (p *Parser) fail(format string, args ...any) {
	panic(&SyntaxError{Path: p.path, Line: p.tok.Line, Col: p.tok.Col,
		Msg: fmt.Sprintf(format, args...)})
}

func (p *Parser) expect(t Type) Token {
	if p.tok.Type != t {
		p.fail("expected %s, found %s", t, p.tok.Type)
	}
	tok := p.tok
	p.next()
	return tok
}

func (p *Parser) accept(t Type) bool {
	if p.tok.Type == t {
		p.next()
		return true
	}
	return false
}

type checkpoint struct {
	lex Lexer
	tok Token
}

func (p *Parser) save() checkpoint      { return checkpoint{lex: p.lex.Checkpoint(), tok: p.tok} }
func (p *Parser) restore(cp checkpoint) { p.lex.Restore(cp.lex); p.tok = cp.tok }

// --- Statements ---

func (p *Parser) parseStmt() Stmt {
	switch p.tok.Type {
	case IMPORT:
		return p.parseImport()
	case EXPORT:
		line := p.tok.Line
		p.next()
		p.expect(DEFAULT)
		if p.tok.Type != FUNCTION {
			p.fail("only 'export default function' is supported")
		}
		fn := p.parseFunc()
		return &SExportDefault{Fn: fn, Line: line}
	case FUNCTION:
		return p.parseFunc()
	case CONST, LET, VAR:
		return p.parseVar()
	case RETURN:
		return p.parseReturn()
	case IF:
		return p.parseIf()
	case SEMICOLON:
		p.next()
		return p.parseStmt()
	default:
		line := p.tok.Line
		e := p.parseExpr()
		p.accept(SEMICOLON)
		return &SExpr{Value: e, Line: line}
	}
}

func (p *Parser) parseImport() Stmt {
	imp := &SImport{Line: p.tok.Line}
	p.next()
	if p.tok.Type == STRING {
		imp.Path = p.tok.Literal
		p.next()
		p.accept(SEMICOLON)
		return imp
	}
	if p.tok.Type == IDENT {
		imp.Default = p.tok.Literal
		p.next()
		p.accept(COMMA)
	}
	if p.accept(LBRACE) {
		for p.tok.Type != RBRACE {
			imp.Names = append(imp.Names, p.expect(IDENT).Literal)
			if !p.accept(COMMA) {
				break
			}
		}
		p.expect(RBRACE)
	}
	p.expect(FROM)
	imp.Path = p.expect(STRING).Literal
	p.accept(SEMICOLON)
	return imp
}

func (p *Parser) parseVar() Stmt {
	v := &SVar{Kind: p.tok.Literal, Line: p.tok.Line}
	p.next()
	v.Pattern = p.parsePattern()
	p.expect(ASSIGN)
	v.Init = p.parseExpr()
	p.accept(SEMICOLON)
	return v
}

func (p *Parser) parsePattern() Pattern {
	switch p.tok.Type {
	case IDENT:
		name := p.tok.Literal
		p.next()
		return &PIdent{Name: name}
	case LBRACKET:
		p.next()
		pat := &PArray{}
		for p.tok.Type != RBRACKET {
			pat.Elems = append(pat.Elems, p.expect(IDENT).Literal)
			if !p.accept(COMMA) {
				break
			}
		}
		p.expect(RBRACKET)
		return pat
	case LBRACE:
		p.next()
		pat := &PObject{}
		for p.tok.Type != RBRACE {
			var prop ObjectPatternProp
			if p.accept(ELLIPSIS) {
				prop.Rest = true
				prop.Name = p.expect(IDENT).Literal
			} else {
				prop.Name = p.expect(IDENT).Literal
				if p.accept(COLON) {
					prop.Alias = p.expect(IDENT).Literal
				}
				if p.accept(ASSIGN) {
					prop.Default = p.parseAssign()
				}
			}
			pat.Props = append(pat.Props, prop)
			if !p.accept(COMMA) {
				break
			}
		}
		p.expect(RBRACE)
		return pat
	}
	p.fail("expected binding pattern, found %s", p.tok.Type)
	return nil
}

func (p *Parser) parseFunc() *SFunc {
	fn := &SFunc{Line: p.tok.Line}
	p.expect(FUNCTION)
	fn.Name = p.expect(IDENT).Literal
	p.expect(LPAREN)
	for p.tok.Type != RPAREN {
		fn.Params = append(fn.Params, p.parsePattern())
		if !p.accept(COMMA) {
			break
		}
	}
	p.expect(RPAREN)
	fn.Body = p.parseBlock()
	return fn
}

func (p *Parser) parseBlock() []Stmt {
	p.expect(LBRACE)
	var stmts []Stmt
	for p.tok.Type != RBRACE && p.tok.Type != EOF {
		stmts = append(stmts, p.parseStmt())
	}
	p.expect(RBRACE)
	return stmts
}

func (p *Parser) parseReturn() Stmt {
	ret := &SReturn{Line: p.tok.Line}
	p.next()
	if p.tok.Type != SEMICOLON && p.tok.Type != RBRACE && p.tok.Type != EOF {
		ret.Value = p.parseExpr()
	}
	p.accept(SEMICOLON)
	return ret
}

func (p *Parser) parseIf() Stmt {
	s := &SIf{Line: p.tok.Line}
	p.next()
	p.expect(LPAREN)
	s.Cond = p.parseExpr()
	p.expect(RPAREN)
	if p.tok.Type == LBRACE {
		s.Then = p.parseBlock()
	} else {
		s.Then = []Stmt{p.parseStmt()}
	}
	if p.accept(ELSE) {
		if p.tok.Type == IF {
			s.Else = []Stmt{p.parseIf()}
		} else if p.tok.Type == LBRACE {
			s.Else = p.parseBlock()
		} else {
			s.Else = []Stmt{p.parseStmt()}
		}
	}
	return s
}

// --- Expressions ---

func (p *Parser) parseExpr() Expr { return p.parseAssign() }

func (p *Parser) parseAssign() Expr {
	left := p.parseTernary()
	switch p.tok.Type {
	case ASSIGN, PLUSASSIGN, MINUSASSIGN:
		op := p.tok.Literal
		p.next()
		right := p.parseAssign()
		return &EAssign{Target: left, Op: op, Value: right}
	}
	return left
}

func (p *Parser) parseTernary() Expr {
	cond := p.parseBinary(precOr)
	if p.tok.Type != QUESTION {
		return cond
	}
	p.next()
	then := p.parseAssign()
	p.expect(COLON)
	els := p.parseAssign()
	return &ETernary{Cond: cond, Then: then, Else: els}
}

func tokenPrec(t Type) int {
	switch t {
	case OR, NULLISH:
		return precOr
	case AND:
		return precAnd
	case EQ, NEQ, SEQ, SNEQ:
		return precEquality
	case LT, GT, LE, GE:
		return precCompare
	case PLUS, MINUS:
		return precAdd
	case STAR, SLASH, PERCENT:
		return precMul
	}
	return 0
}

func (p *Parser) parseBinary(minPrec int) Expr {
	left := p.parseUnary()
	for {
		prec := tokenPrec(p.tok.Type)
		if prec == 0 || prec < minPrec {
			return left
		}
		op := p.tok.Literal
		p.next()
		right := p.parseBinary(prec + 1)
		left = &EBinary{Op: op, Left: left, Right: right}
	}
}

func (p *Parser) parseUnary() Expr {
	switch p.tok.Type {
	case BANG, MINUS, PLUS:
		op := p.tok.Literal
		p.next()
		return &EUnary{Op: op, Operand: p.parseUnary()}
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() Expr {
	e := p.parsePrimary()
	for {
		switch p.tok.Type {
		case DOT:
			p.next()
			e = &EMember{Obj: e, Prop: p.parsePropName()}
		case OPTCHAIN:
			p.next()
			e = &EMember{Obj: e, Prop: p.parsePropName(), Optional: true}
		case LBRACKET:
			p.next()
			idx := p.parseExpr()
			p.expect(RBRACKET)
			e = &EIndex{Obj: e, Index: idx}
		case LPAREN:
			p.next()
			call := &ECall{Callee: e}
			for p.tok.Type != RPAREN {
				if p.accept(ELLIPSIS) {
					call.Args = append(call.Args, &ESpread{Value: p.parseAssign()})
				} else {
					call.Args = append(call.Args, p.parseAssign())
				}
				if !p.accept(COMMA) {
					break
				}
			}
			p.expect(RPAREN)
			e = call
		default:
			return e
		}
	}
}

// parsePropName accepts identifiers and keywords after '.', since property
// names like .default or .from are legal JavaScript.
func (p *Parser) parsePropName() string {
	if p.tok.Type == IDENT || isKeywordToken(p.tok.Type) {
		name := p.tok.Literal
		p.next()
		return name
	}
	p.fail("expected property name, found %s", p.tok.Type)
	return ""
}

func isKeywordToken(t Type) bool {
	return t >= IMPORT && t <= FROM
}

func (p *Parser) parsePrimary() Expr {
	switch p.tok.Type {
	case NUMBER:
		raw := p.tok.Literal
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			p.fail("malformed number %q", raw)
		}
		p.next()
		return &ENumber{Value: v, Raw: raw}
	case STRING:
		s := p.tok.Literal
		p.next()
		return &EString{Value: s}
	case TEMPLATE:
		raw := p.tok.Literal
		p.next()
		return parseTemplateParts(raw)
	case TRUE:
		p.next()
		return &EBool{Value: true}
	case FALSE:
		p.next()
		return &EBool{Value: false}
	case NULL:
		p.next()
		return &ENull{}
	case UNDEFINED:
		p.next()
		return &EUndefined{}
	case IDENT:
		name := p.tok.Literal
		p.next()
		if p.tok.Type == ARROW {
			p.next()
			return p.parseArrowBody([]string{name})
		}
		return &EIdent{Name: name}
	case LPAREN:
		if params, ok := p.tryArrowParams(); ok {
			return p.parseArrowBody(params)
		}
		p.next()
		e := p.parseExpr()
		p.expect(RPAREN)
		return e
	case LBRACKET:
		p.next()
		arr := &EArray{}
		for p.tok.Type != RBRACKET {
			if p.accept(ELLIPSIS) {
				arr.Items = append(arr.Items, &ESpread{Value: p.parseAssign()})
			} else {
				arr.Items = append(arr.Items, p.parseAssign())
			}
			if !p.accept(COMMA) {
				break
			}
		}
		p.expect(RBRACKET)
		return arr
	case LBRACE:
		return p.parseObjectLiteral()
	case LT:
		node := p.parseJSX()
		p.next()
		return &EJSX{Node: node}
	}
	p.fail("unexpected %s in expression", p.tok.Type)
	return nil
}

// tryArrowParams speculatively scans '(' ident, ... ')' '=>'. On success the
// parser is positioned after the arrow; on failure it is rolled back.
func (p *Parser) tryArrowParams() ([]string, bool) {
	cp := p.save()
	p.next() // consume '('
	params := []string{}
	for p.tok.Type != RPAREN {
		if p.tok.Type != IDENT {
			p.restore(cp)
			return nil, false
		}
		params = append(params, p.tok.Literal)
		p.next()
		if !p.accept(COMMA) {
			break
		}
	}
	if p.tok.Type != RPAREN {
		p.restore(cp)
		return nil, false
	}
	p.next()
	if p.tok.Type != ARROW {
		p.restore(cp)
		return nil, false
	}
	p.next()
	return params, true
}

func (p *Parser) parseArrowBody(params []string) Expr {
	if p.tok.Type == LBRACE {
		return &EArrow{Params: params, BlockBody: p.parseBlock()}
	}
	return &EArrow{Params: params, Body: p.parseAssign()}
}

func (p *Parser) parseObjectLiteral() Expr {
	p.expect(LBRACE)
	obj := &EObject{}
	for p.tok.Type != RBRACE {
		var f ObjectField
		if p.accept(ELLIPSIS) {
			f.Spread = true
			f.Value = p.parseAssign()
		} else {
			switch p.tok.Type {
			case IDENT, STRING, NUMBER:
				f.Key = p.tok.Literal
				p.next()
			default:
				if isKeywordToken(p.tok.Type) {
					f.Key = p.tok.Literal
					p.next()
				} else {
					p.fail("expected object key, found %s", p.tok.Type)
				}
			}
			if p.accept(COLON) {
				f.Value = p.parseAssign()
			} else {
				f.Shorthand = true
				f.Value = &EIdent{Name: f.Key}
			}
		}
		obj.Fields = append(obj.Fields, f)
		if !p.accept(COMMA) {
			break
		}
	}
	p.expect(RBRACE)
	return obj
}

// parseTemplateParts splits a raw template body on balanced ${...}
// interpolations and sub-parses each one. Unparseable interpolations fall
// back to opaque expressions rather than failing the file.
func parseTemplateParts(raw string) Expr {
	tpl := &ETemplate{}
	text := strings.Builder{}
	i := 0
	for i < len(raw) {
		if raw[i] == '\\' && i+1 < len(raw) {
			text.WriteByte(raw[i])
			text.WriteByte(raw[i+1])
			i += 2
			continue
		}
		if raw[i] == '$' && i+1 < len(raw) && raw[i+1] == '{' {
			if text.Len() > 0 {
				tpl.Parts = append(tpl.Parts, TemplatePart{Text: unescapeTemplateText(text.String())})
				text.Reset()
			}
			sub := NewLexer(raw[i+2:])
			inner, ok := sub.CaptureBalanced()
			if !ok {
				tpl.Parts = append(tpl.Parts, TemplatePart{Expr: &EOpaque{Source: raw[i:]}})
				return tpl
			}
			tpl.Parts = append(tpl.Parts, TemplatePart{Expr: subParseExpr(inner)})
			i += 2 + len(inner) + 1
			continue
		}
		text.WriteByte(raw[i])
		i++
	}
	if text.Len() > 0 {
		tpl.Parts = append(tpl.Parts, TemplatePart{Text: unescapeTemplateText(text.String())})
	}
	return tpl
}

func unescapeTemplateText(s string) string {
	s = strings.ReplaceAll(s, "\\`", "`")
	s = strings.ReplaceAll(s, "\\${", "${")
	s = strings.ReplaceAll(s, "\\\\", "\\")
	return s
}

// subParseExpr parses an embedded expression, degrading to an opaque node on
// failure so unknown shapes classify as dynamic instead of killing the build.
func subParseExpr(src string) Expr {
	src = strings.TrimSpace(src)
	e, err := ParseExpr(src)
	if err != nil {
		return &EOpaque{Source: src}
	}
	return e
}

// --- JSX ---

// parseJSX is entered with the current token being '<' (the lexer is
// positioned just past it). On return the lexer is positioned just past the
// element's closing '>'; the caller re-primes the token buffer.
func (p *Parser) parseJSX() JSXNode {
	l := p.lex
	l.skipWhitespaceAndComments()
	if l.peek() == '>' {
		l.advance()
		frag := &JSXFragment{}
		frag.Children = p.parseJSXChildren("")
		return frag
	}
	return p.parseJSXElement()
}

func (p *Parser) parseJSXElement() JSXNode {
	l := p.lex
	nameTok := l.NextJSXName()
	if nameTok.Type != IDENT {
		p.failAt(nameTok, "expected a tag name after '<'")
	}
	el := &JSXElement{Tag: nameTok.Literal, Line: nameTok.Line}

	for {
		l.skipWhitespaceAndComments()
		switch {
		case l.peek() == 0:
			p.failAt(nameTok, "unterminated <%s> tag", el.Tag)
		case l.peek() == '/':
			l.advance()
			if l.peek() != '>' {
				p.failAt(nameTok, "expected '>' after '/' in <%s>", el.Tag)
			}
			l.advance()
			el.SelfClosing = true
			return el
		case l.peek() == '>':
			l.advance()
			el.Children = p.parseJSXChildren(el.Tag)
			return el
		case l.peek() == '{':
			l.advance()
			raw, ok := l.CaptureBalanced()
			if !ok {
				p.failAt(nameTok, "unterminated spread attribute in <%s>", el.Tag)
			}
			trimmed := strings.TrimSpace(raw)
			if !strings.HasPrefix(trimmed, "...") {
				p.failAt(nameTok, "braced attribute in <%s> must be a {...spread}", el.Tag)
			}
			el.Attrs = append(el.Attrs, JSXAttr{
				Spread: true,
				Value:  subParseExpr(strings.TrimPrefix(trimmed, "...")),
			})
		default:
			el.Attrs = append(el.Attrs, p.parseJSXAttr(el.Tag))
		}
	}
}

func (p *Parser) parseJSXAttr(tag string) JSXAttr {
	l := p.lex
	nameTok := l.NextJSXName()
	if nameTok.Type != IDENT {
		p.failAt(nameTok, "malformed attribute in <%s>", tag)
	}
	attr := JSXAttr{Name: nameTok.Literal}
	l.skipWhitespaceAndComments()
	if l.peek() != '=' {
		return attr // bare attribute, e.g. <input disabled>
	}
	l.advance()
	l.skipWhitespaceAndComments()
	switch ch := l.peek(); {
	case ch == '"' || ch == '\'':
		quote := l.advanceQuote()
		attr.Value = &EString{Value: quote}
	case ch == '{':
		l.advance()
		raw, ok := l.CaptureBalanced()
		if !ok {
			p.failAt(nameTok, "unterminated expression for attribute %q", attr.Name)
		}
		attr.Value = subParseExpr(raw)
	default:
		p.failAt(nameTok, "attribute %q needs a quoted string or {expression} value", attr.Name)
	}
	return attr
}

// advanceQuote scans a quoted JSX attribute value. JSX attribute strings have
// no escape sequences; the value runs to the matching quote.
func (l *Lexer) advanceQuote() string {
	quote := l.advance()
	start := l.pos
	for l.pos < len(l.src) && l.peek() != quote {
		l.advance()
	}
	val := l.src[start:l.pos]
	l.advance() // closing quote
	return val
}

// parseJSXChildren consumes children until the matching close tag. closeTag
// is "" for fragments, closed by </>.
func (p *Parser) parseJSXChildren(closeTag string) []JSXNode {
	l := p.lex
	var children []JSXNode
	for {
		txt := l.NextJSXText()
		if txt.Literal != "" {
			children = append(children, &JSXText{Value: txt.Literal})
		}
		switch {
		case l.peek() == 0:
			p.failAt(txt, "missing closing tag %s", closeTagName(closeTag))
		case l.peek() == '{':
			exprLine := l.line
			l.advance()
			raw, ok := l.CaptureBalanced()
			if !ok {
				p.failAt(txt, "unterminated {expression} in markup")
			}
			trimmed := strings.TrimSpace(raw)
			if trimmed == "" || isPureComment(trimmed) {
				continue // {/* comment */} or empty braces render nothing
			}
			children = append(children, &JSXExpr{Value: subParseExpr(raw), Line: exprLine})
		case l.peek() == '<':
			l.advance()
			if l.peek() == '/' {
				l.advance()
				l.skipWhitespaceAndComments()
				if closeTag == "" {
					if l.peek() != '>' {
						p.failAt(txt, "expected '</>' to close fragment")
					}
					l.advance()
					return children
				}
				nameTok := l.NextJSXName()
				if nameTok.Literal != closeTag {
					p.failAt(nameTok, "mismatched closing tag </%s>, expected </%s>", nameTok.Literal, closeTag)
				}
				l.skipWhitespaceAndComments()
				if l.peek() != '>' {
					p.failAt(nameTok, "expected '>' in closing tag </%s>", closeTag)
				}
				l.advance()
				return children
			}
			children = append(children, p.parseJSX())
		}
	}
}

func closeTagName(tag string) string {
	if tag == "" {
		return "</>"
	}
	return "</" + tag + ">"
}

func isPureComment(s string) bool {
	return strings.HasPrefix(s, "/*") && strings.HasSuffix(s, "*/")
}

func (p *Parser) failAt(tok Token, format string, args ...any) {
	panic(&SyntaxError{Path: p.path, Line: tok.Line, Col: tok.Col,
		Msg: fmt.Sprintf(format, args...)})
}
