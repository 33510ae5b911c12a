package compiler

import (
	"testing"

	"github.com/flintjs/flint/parser"
)

func classifyScope(t *testing.T) *Scope {
	t.Helper()
	src := analyzeSource(t, `
export default function Sample() {
	const [count, setCount] = signal(2);
	const doubled = memo(() => count() * 2);
	const greeting = "hi";
	const cfg = { mode: "fast", retries: 3 };
	return <p>x</p>;
}
`)
	return NewScope(src)
}

func classifySource(t *testing.T, scope *Scope, src string) ExprInfo {
	t.Helper()
	e, err := parser.ParseExpr(src)
	if err != nil {
		t.Fatalf("parse %q: %v", src, err)
	}
	return classify(e, scope)
}

func TestClassifyStaticFolding(t *testing.T) {
	scope := classifyScope(t)
	cases := []struct {
		in    string
		value any
		out   string
	}{
		{`1 + 2 * 3`, float64(7), "7"},
		{`greeting + "!"`, "hi!", `"hi!"`},
		{`[1, 2, 3].length`, float64(3), "3"},
		{`cfg.mode`, "fast", `"fast"`},
		{`cfg.retries > 2 ? "many" : "few"`, "many", `"many"`},
		{`!false`, true, "true"},
		{"`n=${2 + 3}`", "n=5", `"n=5"`},
		{`null ?? "fallback"`, "fallback", `"fallback"`},
		{`"a" + 1`, "a1", `"a1"`},
		{`7 % 2`, float64(1), "1"},
		{`5.5 % 2`, float64(1.5), "1.5"},
		{`0 - 5 % 3`, float64(-2), "-2"},
	}
	for _, c := range cases {
		info := classifySource(t, scope, c.in)
		if info.Class != Static {
			t.Errorf("%s: class = %v, want static", c.in, info.Class)
			continue
		}
		if info.Value != c.value {
			t.Errorf("%s: value = %v, want %v", c.in, info.Value, c.value)
		}
		if info.Source != c.out {
			t.Errorf("%s: source = %q, want %q", c.in, info.Source, c.out)
		}
	}
}

func TestClassifyDynamicOnGetterCall(t *testing.T) {
	scope := classifyScope(t)
	for _, in := range []string{
		`count()`,
		`count() + 1`,
		`doubled() > 4`,
		"`total: ${count()}`",
		`greeting + count()`,
		`[count()]`,
	} {
		info := classifySource(t, scope, in)
		if info.Class != Dynamic {
			t.Errorf("%s: class = %v, want dynamic", in, info.Class)
		}
	}
}

func TestClassifyGetterNameAloneIsDynamic(t *testing.T) {
	scope := classifyScope(t)
	if info := classifySource(t, scope, `count`); info.Class != Dynamic {
		t.Errorf("bare getter reference: class = %v, want dynamic", info.Class)
	}
}

func TestClassifyUnknownName(t *testing.T) {
	scope := classifyScope(t)
	if info := classifySource(t, scope, `mystery`); info.Class != Unknown {
		t.Errorf("class = %v, want unknown", info.Class)
	}
}

func TestClassifyStaticTernaryPicksBranch(t *testing.T) {
	scope := classifyScope(t)
	info := classifySource(t, scope, `true ? a() : b()`)
	if info.Class != Dynamic {
		t.Fatalf("class = %v, want dynamic", info.Class)
	}
	if info.Source != "a()" {
		t.Errorf("source = %q, want the live branch only", info.Source)
	}
}

func TestClassifyDynamicTernaryKeepsReducedBranches(t *testing.T) {
	scope := classifyScope(t)
	info := classifySource(t, scope, `count() ? 1 + 1 : 2 + 2`)
	if info.Class != Dynamic {
		t.Fatalf("class = %v, want dynamic", info.Class)
	}
	if info.Source != "count() ? 2 : 4" {
		t.Errorf("source = %q, want reduced branches", info.Source)
	}
}

func TestEvalInitialSubstitutesDeclarations(t *testing.T) {
	scope := classifyScope(t)
	cases := []struct {
		in   string
		want any
	}{
		{`count()`, float64(2)},
		{`count() * 10`, float64(20)},
		{`doubled()`, float64(4)},
		{`count() ? "on" : "off"`, "on"},
		{"`c=${count()}`", "c=2"},
	}
	for _, c := range cases {
		e, err := parser.ParseExpr(c.in)
		if err != nil {
			t.Fatalf("parse %q: %v", c.in, err)
		}
		got, ok := evalInitial(e, scope)
		if !ok {
			t.Errorf("%s: initial evaluation failed", c.in)
			continue
		}
		if got != c.want {
			t.Errorf("%s: initial = %v, want %v", c.in, got, c.want)
		}
	}
}

// classification soundness: an expression over literals and folded constants
// classifies Static and its value equals runtime evaluation; any expression
// reading a getter classifies Dynamic, never Static.
func TestClassifySoundness(t *testing.T) {
	scope := classifyScope(t)
	static := []string{`1`, `greeting`, `cfg.retries + 1`, `"x" + greeting`}
	for _, in := range static {
		if info := classifySource(t, scope, in); info.Class != Static {
			t.Errorf("%s: class = %v, want static", in, info.Class)
		}
	}
	reactive := []string{`count()`, `doubled()`, `cfg.retries + count()`, `(count())`}
	for _, in := range reactive {
		if info := classifySource(t, scope, in); info.Class == Static {
			t.Errorf("%s: reactive expression classified static", in)
		}
	}
}

func TestClassifyShadowedArrowParam(t *testing.T) {
	scope := classifyScope(t)
	// The arrow's own greeting shadows the folded constant; the body must
	// not reduce to a literal.
	info := classifySource(t, scope, `(greeting) => greeting + "!"`)
	if info.Source != `(greeting) => greeting + "!"` {
		t.Errorf("source = %q, shadowed name was substituted", info.Source)
	}
}

func TestTextOf(t *testing.T) {
	cases := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{undefinedVal{}, ""},
		{true, "true"},
		{float64(5), "5"},
		{"s", "s"},
		{[]any{float64(1), nil, "x"}, "1,,x"},
	}
	for _, c := range cases {
		if got := textOf(c.in); got != c.want {
			t.Errorf("textOf(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestJSNumberToString(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{1.5, "1.5"},
		{10000000, "10000000"},
		{1e20, "100000000000000000000"},
		{1e21, "1e+21"},
		{0.000001, "0.000001"},
		{1e-7, "1e-7"},
		{-2, "-2"},
		{0, "0"},
	}
	for _, c := range cases {
		if got := jsToString(c.in); got != c.want {
			t.Errorf("jsToString(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}
