package parser

import (
	"testing"

	"github.com/nalgeon/be"
)

func mustParseExpr(t *testing.T, src string) Expr {
	t.Helper()
	e, err := ParseExpr(src)
	be.Err(t, err, nil)
	return e
}

func TestParseBinaryPrecedence(t *testing.T) {
	e := mustParseExpr(t, "1 + 2 * 3")
	bin, ok := e.(*EBinary)
	be.True(t, ok)
	be.Equal(t, bin.Op, "+")
	right, ok := bin.Right.(*EBinary)
	be.True(t, ok)
	be.Equal(t, right.Op, "*")
}

func TestParseTernary(t *testing.T) {
	e := mustParseExpr(t, "on() ? 'ON' : 'OFF'")
	tern, ok := e.(*ETernary)
	be.True(t, ok)
	call, ok := tern.Cond.(*ECall)
	be.True(t, ok)
	be.Equal(t, call.Callee.(*EIdent).Name, "on")
	be.Equal(t, tern.Then.(*EString).Value, "ON")
	be.Equal(t, tern.Else.(*EString).Value, "OFF")
}

func TestParseMemberChain(t *testing.T) {
	e := mustParseExpr(t, "items().filter(x => x.done).map(f)")
	outer, ok := e.(*ECall)
	be.True(t, ok)
	mapMember, ok := outer.Callee.(*EMember)
	be.True(t, ok)
	be.Equal(t, mapMember.Prop, "map")
}

func TestParseArrowForms(t *testing.T) {
	// Bare parameter
	e := mustParseExpr(t, "x => x + 1")
	arrow, ok := e.(*EArrow)
	be.True(t, ok)
	be.Equal(t, arrow.Params, []string{"x"})

	// Parenthesized parameters
	e = mustParseExpr(t, "(a, b) => a * b")
	arrow = e.(*EArrow)
	be.Equal(t, arrow.Params, []string{"a", "b"})

	// Empty parameters with block body
	e = mustParseExpr(t, "() => { setCount(count() + 1); }")
	arrow = e.(*EArrow)
	be.Equal(t, len(arrow.Params), 0)
	be.Equal(t, len(arrow.BlockBody), 1)
}

func TestParenthesizedExprIsNotArrow(t *testing.T) {
	e := mustParseExpr(t, "(a + b) * c")
	bin, ok := e.(*EBinary)
	be.True(t, ok)
	be.Equal(t, bin.Op, "*")
}

func TestParseObjectAndArrayLiterals(t *testing.T) {
	e := mustParseExpr(t, "{ id: 1, text, ...rest }")
	obj, ok := e.(*EObject)
	be.True(t, ok)
	be.Equal(t, len(obj.Fields), 3)
	be.Equal(t, obj.Fields[0].Key, "id")
	be.True(t, obj.Fields[1].Shorthand)
	be.True(t, obj.Fields[2].Spread)

	e = mustParseExpr(t, "[1, 'two', ...more]")
	arr := e.(*EArray)
	be.Equal(t, len(arr.Items), 3)
	_, isSpread := arr.Items[2].(*ESpread)
	be.True(t, isSpread)
}

func TestParseTemplateLiteral(t *testing.T) {
	e := mustParseExpr(t, "`total: ${count()} items`")
	tpl, ok := e.(*ETemplate)
	be.True(t, ok)
	be.Equal(t, len(tpl.Parts), 3)
	be.Equal(t, tpl.Parts[0].Text, "total: ")
	_, isCall := tpl.Parts[1].Expr.(*ECall)
	be.True(t, isCall)
	be.Equal(t, tpl.Parts[2].Text, " items")
}

func TestParseJSXElement(t *testing.T) {
	e := mustParseExpr(t, `<div class="card"><p>{count()}</p></div>`)
	jsx, ok := e.(*EJSX)
	be.True(t, ok)
	el, ok := jsx.Node.(*JSXElement)
	be.True(t, ok)
	be.Equal(t, el.Tag, "div")
	be.Equal(t, el.Attrs[0].Name, "class")
	be.Equal(t, el.Attrs[0].Value.(*EString).Value, "card")

	// The whitespace-free <p> child holds one interpolation.
	var pEl *JSXElement
	for _, c := range el.Children {
		if child, ok := c.(*JSXElement); ok {
			pEl = child
		}
	}
	be.True(t, pEl != nil)
	be.Equal(t, pEl.Tag, "p")
	_, isExpr := pEl.Children[0].(*JSXExpr)
	be.True(t, isExpr)
}

func TestParseJSXSelfClosingAndBareAttrs(t *testing.T) {
	e := mustParseExpr(t, `<input disabled type="text" value={name()} />`)
	el := e.(*EJSX).Node.(*JSXElement)
	be.True(t, el.SelfClosing)
	be.Equal(t, len(el.Attrs), 3)
	be.True(t, el.Attrs[0].Value == nil)
	_, isCall := el.Attrs[2].Value.(*ECall)
	be.True(t, isCall)
}

func TestParseJSXFragment(t *testing.T) {
	e := mustParseExpr(t, "<><h1>A</h1><p>B</p></>")
	frag, ok := e.(*EJSX).Node.(*JSXFragment)
	be.True(t, ok)
	count := 0
	for _, c := range frag.Children {
		if _, ok := c.(*JSXElement); ok {
			count++
		}
	}
	be.Equal(t, count, 2)
}

func TestParseJSXSpreadAttr(t *testing.T) {
	e := mustParseExpr(t, "<Child {...props} extra={1} />")
	el := e.(*EJSX).Node.(*JSXElement)
	be.True(t, el.Attrs[0].Spread)
	be.Equal(t, el.Attrs[0].Value.(*EIdent).Name, "props")
	be.Equal(t, el.Attrs[1].Name, "extra")
}

func TestParseJSXEventHandler(t *testing.T) {
	e := mustParseExpr(t, "<button onClick={() => setCount(count() + 1)}>+</button>")
	el := e.(*EJSX).Node.(*JSXElement)
	be.Equal(t, el.Attrs[0].Name, "onClick")
	_, isArrow := el.Attrs[0].Value.(*EArrow)
	be.True(t, isArrow)
}

func TestParseJSXDashedAttrName(t *testing.T) {
	e := mustParseExpr(t, `<div data-testid="row" aria-label="x" />`)
	el := e.(*EJSX).Node.(*JSXElement)
	be.Equal(t, el.Attrs[0].Name, "data-testid")
	be.Equal(t, el.Attrs[1].Name, "aria-label")
}

func TestParseJSXCommentChildIsDropped(t *testing.T) {
	e := mustParseExpr(t, "<div>{/* nothing */}<span>x</span></div>")
	el := e.(*EJSX).Node.(*JSXElement)
	for _, c := range el.Children {
		_, isExpr := c.(*JSXExpr)
		be.True(t, !isExpr)
	}
}

func TestUnparseableInterpolationFailsSoft(t *testing.T) {
	// yield is outside the grammar: the interpolation degrades to an opaque
	// expression instead of failing the parse.
	e := mustParseExpr(t, "<div>{yield foo}</div>")
	el := e.(*EJSX).Node.(*JSXElement)
	var opaque *EOpaque
	for _, c := range el.Children {
		if ex, ok := c.(*JSXExpr); ok {
			opaque, _ = ex.Value.(*EOpaque)
		}
	}
	be.True(t, opaque != nil)
	be.Equal(t, opaque.Source, "yield foo")
}

func TestMismatchedClosingTag(t *testing.T) {
	_, err := ParseExpr("<div><span>x</div></span>")
	be.Err(t, err)
}

func TestParseComponentFile(t *testing.T) {
	src := `
import { ItemRow } from "./itemrow";

const LIMIT = 10;

export default function Counter({ label, start = 0 }) {
  const [count, setCount] = signal(start);
  const double = memo(() => count() * 2);
  effect(() => { document.title = label + count(); });
  function step(n) { setCount(count() + n); }
  return (
    <div>
      <p>{count()}</p>
      <button onClick={() => step(1)}>+</button>
    </div>
  );
}
`
	file, err := Parse("counter.jsx", src)
	be.Err(t, err, nil)
	be.Equal(t, len(file.Stmts), 3)

	imp, ok := file.Stmts[0].(*SImport)
	be.True(t, ok)
	be.Equal(t, imp.Names, []string{"ItemRow"})
	be.Equal(t, imp.Path, "./itemrow")

	fn := file.DefaultExport()
	be.True(t, fn != nil)
	be.Equal(t, fn.Name, "Counter")
	pat, ok := fn.Params[0].(*PObject)
	be.True(t, ok)
	be.Equal(t, pat.Props[0].Name, "label")
	be.Equal(t, pat.Props[1].Name, "start")
	be.True(t, pat.Props[1].Default != nil)
	be.Equal(t, len(fn.Body), 5)
}

func TestParseReportsPosition(t *testing.T) {
	_, err := Parse("bad.jsx", "const = 1;")
	se, ok := err.(*SyntaxError)
	be.True(t, ok)
	be.Equal(t, se.Path, "bad.jsx")
	be.Equal(t, se.Line, 1)
}

func TestPrintRoundTrip(t *testing.T) {
	// Printing is normalization: parsing the printed form prints identically.
	sources := []string{
		"count() + 1",
		"a && b || !c",
		"on() ? \"ON\" : \"OFF\"",
		"items().filter(i => i.done).map(i => i.id)",
		"{ id: 1, text: \"x\", ...rest }",
		"`n = ${n()}`",
		"(a, b) => a + b",
		"obj?.field[2]",
	}
	for _, src := range sources {
		first := Print(mustParseExpr(t, src))
		second := Print(mustParseExpr(t, first))
		be.Equal(t, second, first)
	}
}

func TestPrintSynthesizedNumbers(t *testing.T) {
	// Numbers without a Raw form print the way JS stringifies them: plain
	// decimal up to 1e21, never premature exponent notation.
	cases := []struct {
		in   float64
		want string
	}{
		{1.5, "1.5"},
		{10000000, "10000000"},
		{1e21, "1e+21"},
		{1e-7, "1e-7"},
	}
	for _, c := range cases {
		be.Equal(t, Print(&ENumber{Value: c.in}), c.want)
	}
}
