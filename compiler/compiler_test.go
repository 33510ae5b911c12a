package compiler

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/tools/txtar"
)

func readerFor(files map[string]string) ReadFunc {
	return func(path string) (string, error) {
		src, ok := files[path]
		if !ok {
			return "", fmt.Errorf("no such file: %s", path)
		}
		return src, nil
	}
}

func compileFixture(t *testing.T, files map[string]string, entry string) *Artifact {
	t.Helper()
	c := New(Options{Read: readerFor(files)})
	art, diag := c.Compile(entry)
	if diag != nil {
		t.Fatalf("compile %s: %v", entry, diag)
	}
	return art
}

func parseBody(t *testing.T, markup string) []*html.Node {
	t.Helper()
	ctx := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(markup), ctx)
	if err != nil {
		t.Fatalf("parse markup: %v", err)
	}
	return nodes
}

func findAll(nodes []*html.Node, tag string) []*html.Node {
	var out []*html.Node
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == tag {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range nodes {
		walk(n)
	}
	return out
}

func attrOf(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

func TestCounterTextBinding(t *testing.T) {
	art := compileFixture(t, map[string]string{
		"Counter.jsx": `
export default function Counter() {
	const [count, setCount] = signal(0);
	return <p>{count()}</p>;
}
`,
	}, "Counter.jsx")

	want := `<p data-flint-scope="Counter">0</p>`
	if art.Markup != want {
		t.Errorf("markup = %q, want %q", art.Markup, want)
	}
	if !art.HasClient {
		t.Fatal("expected a client script")
	}
	for _, frag := range []string{
		`const [count, setCount] = signal(0);`,
		`const t0 = scope;`,
		`t0.textContent`,
		`const v = count();`,
	} {
		if !strings.Contains(art.Client, frag) {
			t.Errorf("client missing %q\n%s", frag, art.Client)
		}
	}
}

func TestTernaryInitialRender(t *testing.T) {
	art := compileFixture(t, map[string]string{
		"Toggle.jsx": `
export default function Toggle() {
	const [on, setOn] = signal(false);
	return <p>{on() ? "ON" : "OFF"}</p>;
}
`,
	}, "Toggle.jsx")

	if want := `<p data-flint-scope="Toggle">OFF</p>`; art.Markup != want {
		t.Errorf("markup = %q, want %q", art.Markup, want)
	}
}

func TestKeyedList(t *testing.T) {
	art := compileFixture(t, map[string]string{
		"TodoList.jsx": `
export default function TodoList() {
	const [items, setItems] = signal([{ id: 1, text: "a" }, { id: 2, text: "b" }]);
	return <ul>{items().map((item) => <li key={item.id}>{item.text}</li>)}</ul>;
}
`,
	}, "TodoList.jsx")

	lis := findAll(parseBody(t, art.Markup), "li")
	if len(lis) != 2 {
		t.Fatalf("li count = %d, want 2\n%s", len(lis), art.Markup)
	}
	for i, li := range lis {
		if got := attrOf(li, "data-index"); got != itoa(i) {
			t.Errorf("row %d data-index = %q", i, got)
		}
		if attrOf(li, "key") != "" {
			t.Errorf("key attribute leaked into markup")
		}
	}
	for _, frag := range []string{
		`reconcile(l0, items_l0(), row_l0, (item, _index) => item.id);`,
		"const row_l0 = (item, _index) => `<li data-index=\"${_index}\">${esc(item.text)}</li>`;",
		`const items_l0 = () => items();`,
	} {
		if !strings.Contains(art.Client, frag) {
			t.Errorf("client missing %q\n%s", frag, art.Client)
		}
	}
}

func TestDelegatedRowEvents(t *testing.T) {
	art := compileFixture(t, map[string]string{
		"Actions.jsx": `
export default function Actions() {
	const [items, setItems] = signal([{ id: 1, label: "a" }]);
	function up(id) { return id; }
	function down(id) { return id; }
	return <ul>{items().map((item) => <li key={item.id}><button onClick={() => up(item.id)}>+</button><button onClick={() => down(item.id)}>-</button></li>)}</ul>;
}
`,
	}, "Actions.jsx")

	buttons := findAll(parseBody(t, art.Markup), "button")
	if len(buttons) != 2 {
		t.Fatalf("button count = %d\n%s", len(buttons), art.Markup)
	}
	first, second := attrOf(buttons[0], "data-event-id"), attrOf(buttons[1], "data-event-id")
	if first == second || first == "" || second == "" {
		t.Errorf("event ids = %q, %q, want two distinct ids", first, second)
	}
	lis := findAll(parseBody(t, art.Markup), "li")
	if len(lis) != 1 || attrOf(lis[0], "data-index") != "0" {
		t.Errorf("row index attribute missing\n%s", art.Markup)
	}

	// One delegated listener on the list root dispatches both handlers.
	if n := strings.Count(art.Client, "addEventListener"); n != 1 {
		t.Errorf("listener count = %d, want 1\n%s", n, art.Client)
	}
	for _, frag := range []string{`ids.includes("e0")`, `ids.includes("e1")`} {
		if !strings.Contains(art.Client, frag) {
			t.Errorf("client missing %q", frag)
		}
	}
}

func TestIdempotence(t *testing.T) {
	files := map[string]string{
		"App.jsx": `
import Child from "./Child";
export default function App() {
	const [n, setN] = signal(1);
	return <div><p>{n()}</p><Child/></div>;
}
`,
		"Child.jsx": `
export default function Child() {
	const [c, setC] = signal(2);
	return <span>{c()}</span>;
}
`,
	}
	a := compileFixture(t, files, "App.jsx")
	b := compileFixture(t, files, "App.jsx")
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("independent runs differ (-first +second):\n%s", diff)
	}
}

func TestStaticInlining(t *testing.T) {
	art := compileFixture(t, map[string]string{
		"Page.jsx": `
import Badge from "./Badge";
export default function Page() {
	return <div><Badge label="hot"/></div>;
}
`,
		"Badge.jsx": `
export default function Badge({ label = "new" }) {
	return <span class="badge">{label}</span>;
}
`,
	}, "Page.jsx")

	want := `<div data-flint-scope="Page"><span class="badge">hot</span></div>`
	if art.Markup != want {
		t.Errorf("markup = %q, want %q", art.Markup, want)
	}
	if art.HasClient {
		t.Errorf("fully static inline produced a client script:\n%s", art.Client)
	}
}

func TestInlineWithDynamicProps(t *testing.T) {
	art := compileFixture(t, map[string]string{
		"App.jsx": `
import Label from "./Label";
export default function App() {
	const [name, setName] = signal("sam");
	return <div><Label text={name()}/></div>;
}
`,
		"Label.jsx": `
export default function Label({ text }) {
	return <span class="label">{text}</span>;
}
`,
	}, "App.jsx")

	want := `<div data-flint-scope="App"><span class="label">sam</span></div>`
	if art.Markup != want {
		t.Errorf("markup = %q, want %q", art.Markup, want)
	}
	// The child's binding became an ordinary parent binding: no child
	// initialization, just a text slot reading the parent signal.
	if strings.Contains(art.Client, "hydrateLabel") {
		t.Errorf("stateless child was kept opaque:\n%s", art.Client)
	}
	for _, frag := range []string{`const t0 = scope.firstElementChild;`, `const v = name();`} {
		if !strings.Contains(art.Client, frag) {
			t.Errorf("client missing %q\n%s", frag, art.Client)
		}
	}
}

func TestGuardedChildInline(t *testing.T) {
	files := map[string]string{
		"Maybe.jsx": `
export default function Maybe({ show = false }) {
	if (!show) { return null; }
	return <p>shown</p>;
}
`,
		"On.jsx": `
import Maybe from "./Maybe";
export default function On() {
	return <div><Maybe show={true}/></div>;
}
`,
		"Off.jsx": `
import Maybe from "./Maybe";
export default function Off() {
	return <div><Maybe show={false}/></div>;
}
`,
	}
	on := compileFixture(t, files, "On.jsx")
	if want := `<div data-flint-scope="On"><p>shown</p></div>`; on.Markup != want {
		t.Errorf("markup = %q, want %q", on.Markup, want)
	}
	off := compileFixture(t, files, "Off.jsx")
	if want := `<div data-flint-scope="Off"></div>`; off.Markup != want {
		t.Errorf("markup = %q, want %q", off.Markup, want)
	}
}

func TestCycleDetection(t *testing.T) {
	c := New(Options{Read: readerFor(map[string]string{
		"A.jsx": `
import B from "./B";
export default function A() {
	const [x, setX] = signal(1);
	return <div><B/></div>;
}
`,
		"B.jsx": `
import A from "./A";
export default function B() {
	const [y, setY] = signal(2);
	return <div><A/></div>;
}
`,
	})})
	_, diag := c.Compile("A.jsx")
	if diag == nil || diag.Kind != DiagCycle {
		t.Fatalf("diag = %v, want cycle error", diag)
	}
	if !strings.Contains(diag.Message, "A.jsx") || !strings.Contains(diag.Message, "B.jsx") {
		t.Errorf("cycle message does not name the cycle: %s", diag.Message)
	}
}

func TestSlotFallbackAfterComponent(t *testing.T) {
	art := compileFixture(t, map[string]string{
		"Mixed.jsx": `
import Child from "./Child";
export default function Mixed() {
	const [n, setN] = signal(1);
	return <div><Child label={n()}/><p>{n()}</p></div>;
}
`,
		"Child.jsx": `
export default function Child({ label = "x" }) {
	const [c, setC] = signal(5);
	return <p>{c()}</p>;
}
`,
	}, "Mixed.jsx")

	// The p follows a component sibling, so its position is unknown and it
	// carries the slot attribute.
	ps := findAll(parseBody(t, art.Markup), "p")
	if len(ps) != 2 {
		t.Fatalf("p count = %d\n%s", len(ps), art.Markup)
	}
	if got := attrOf(ps[0], "data-flint-scope"); got != "i0" {
		t.Errorf("child scope attr = %q, want i0", got)
	}
	if got := attrOf(ps[1], "data-flint-slot"); got != "t0" {
		t.Errorf("slot attr = %q, want t0", got)
	}

	for _, frag := range []string{
		`const t0 = slot("t0");`,
		`from "./Child.`,
		`const i0_scope = scope.querySelector('[data-flint-scope="i0"]');`,
		// A reactive prop re-initializes the child on change.
		`effect(() => { hydrateChild(i0_scope, { label: n() }); });`,
	} {
		if !strings.Contains(art.Client, frag) {
			t.Errorf("client missing %q\n%s", frag, art.Client)
		}
	}
}

func TestConditionalElementSwap(t *testing.T) {
	art := compileFixture(t, map[string]string{
		"Switch.jsx": `
export default function Switch() {
	const [on, setOn] = signal(false);
	return <div>{on() ? <b>yes</b> : <i>no</i>}</div>;
}
`,
	}, "Switch.jsx")

	if want := `<div data-flint-scope="Switch"><i>no</i></div>`; art.Markup != want {
		t.Errorf("markup = %q, want %q", art.Markup, want)
	}
	for _, frag := range []string{`let c0_el = scope.firstElementChild;`, `replaceWith`} {
		if !strings.Contains(art.Client, frag) {
			t.Errorf("client missing %q\n%s", frag, art.Client)
		}
	}
}

func TestConditionalMarkerRegion(t *testing.T) {
	art := compileFixture(t, map[string]string{
		"Flag.jsx": `
export default function Flag() {
	const [on, setOn] = signal(false);
	return <div>{on() ? <b>yes</b> : null}</div>;
}
`,
	}, "Flag.jsx")

	// The null branch renders as an empty marker region, never omitted.
	if want := `<div data-flint-scope="Flag"><!--flint:c0--><!--/flint:c0--></div>`; art.Markup != want {
		t.Errorf("markup = %q, want %q", art.Markup, want)
	}
	if !strings.Contains(art.Client, `swapRegion(scope, "c0"`) {
		t.Errorf("client missing region swap\n%s", art.Client)
	}
}

func TestBooleanAttributeBinding(t *testing.T) {
	art := compileFixture(t, map[string]string{
		"Check.jsx": `
export default function Check() {
	const [on, setOn] = signal(true);
	return <input type="checkbox" checked={on()}/>;
}
`,
	}, "Check.jsx")

	if !strings.Contains(art.Markup, " checked") {
		t.Errorf("truthy boolean attribute missing from markup: %q", art.Markup)
	}
	for _, frag := range []string{`const a0 = scope;`, `a0.checked = !!v;`} {
		if !strings.Contains(art.Client, frag) {
			t.Errorf("client missing %q\n%s", frag, art.Client)
		}
	}
}

func TestSiblingPaths(t *testing.T) {
	art := compileFixture(t, map[string]string{
		"Pair.jsx": `
export default function Pair() {
	const [a, setA] = signal(1);
	const [b, setB] = signal(2);
	return <div><p>{a()}</p><p>{b()}</p></div>;
}
`,
	}, "Pair.jsx")

	for _, frag := range []string{
		`const t0 = scope.firstElementChild;`,
		`const t1 = scope.firstElementChild.nextElementSibling;`,
	} {
		if !strings.Contains(art.Client, frag) {
			t.Errorf("client missing %q\n%s", frag, art.Client)
		}
	}
	if strings.Contains(art.Markup, slotAttr) {
		t.Errorf("deterministic siblings should not need slot attributes: %q", art.Markup)
	}
}

func TestStaticListNoClient(t *testing.T) {
	art := compileFixture(t, map[string]string{
		"Palette.jsx": `
const COLORS = ["red", "green"];

export default function Palette() {
	return <ul>{COLORS.map((c) => <li>{c}</li>)}</ul>;
}
`,
	}, "Palette.jsx")

	if want := `<ul data-flint-scope="Palette"><li>red</li><li>green</li></ul>`; art.Markup != want {
		t.Errorf("markup = %q, want %q", art.Markup, want)
	}
	if art.HasClient {
		t.Errorf("static list produced a client script:\n%s", art.Client)
	}
}

func TestFilterSortChain(t *testing.T) {
	art := compileFixture(t, map[string]string{
		"Sorted.jsx": `
export default function Sorted() {
	const [nums, setNums] = signal([3, 1, 2]);
	return <ul>{nums().filter((n) => n > 1).sort((a, b) => a - b).map((n) => <li>{n}</li>)}</ul>;
}
`,
	}, "Sorted.jsx")

	lis := findAll(parseBody(t, art.Markup), "li")
	if len(lis) != 2 {
		t.Fatalf("li count = %d, want filtered rows\n%s", len(lis), art.Markup)
	}
	got := []string{lis[0].FirstChild.Data, lis[1].FirstChild.Data}
	if got[0] != "2" || got[1] != "3" {
		t.Errorf("initial rows = %v, want sorted [2 3]", got)
	}
	want := `const items_l0 = () => nums().filter((n) => n > 1).slice().sort((a, b) => a - b);`
	if !strings.Contains(art.Client, want) {
		t.Errorf("client missing %q\n%s", want, art.Client)
	}
}

func TestUnsupportedListChain(t *testing.T) {
	c := New(Options{Read: readerFor(map[string]string{
		"Bad.jsx": `
export default function Bad() {
	const [nums, setNums] = signal([1]);
	return <ul>{nums().filter((n) => n).filter((n) => n).map((n) => <li>{n}</li>)}</ul>;
}
`,
	})})
	_, diag := c.Compile("Bad.jsx")
	if diag == nil || diag.Kind != DiagShape {
		t.Fatalf("diag = %v, want shape error", diag)
	}
	if !strings.Contains(diag.Message, "list chain") {
		t.Errorf("message = %q", diag.Message)
	}
	if diag.Line != 4 {
		t.Errorf("line = %d, want 4 (the interpolation's line)", diag.Line)
	}
}

func TestGuardedHandlers(t *testing.T) {
	art := compileFixture(t, map[string]string{
		"Tasks.jsx": `
export default function Tasks() {
	const [items, setItems] = signal([{ id: 1, done: false }]);
	function toggle(id) { return id; }
	return <ul>{items().map((item) => <li key={item.id}><button onClick={() => !item.done && toggle(item.id)}>t</button></li>)}</ul>;
}
`,
	}, "Tasks.jsx")

	// `cond && action` compiles to an if statement, not a bare expression.
	if !strings.Contains(art.Client, `if (!item.done) { toggle(item.id); }`) {
		t.Errorf("guarded dispatch missing:\n%s", art.Client)
	}
}

func TestDirectGuardedHandler(t *testing.T) {
	art := compileFixture(t, map[string]string{
		"Dismiss.jsx": `
export default function Dismiss() {
	const [open, setOpen] = signal(true);
	return <button onClick={() => open() && setOpen(false)}>close</button>;
}
`,
	}, "Dismiss.jsx")

	if !strings.Contains(art.Client, `v0.addEventListener("click", () => { if (open()) { setOpen(false); } });`) {
		t.Errorf("guarded listener missing:\n%s", art.Client)
	}
}

func TestCaptureForNonBubblingEvents(t *testing.T) {
	art := compileFixture(t, map[string]string{
		"Field.jsx": `
export default function Field() {
	const [text, setText] = signal("");
	function note() { return 1; }
	return <input onBlur={() => note()} value={text()}/>;
}
`,
	}, "Field.jsx")

	if !strings.Contains(art.Client, `addEventListener("blur", () => note(), true);`) {
		t.Errorf("blur listener not capture-phase:\n%s", art.Client)
	}
}

func TestReadFailureReportsChain(t *testing.T) {
	c := New(Options{Read: readerFor(map[string]string{
		"Top.jsx": `
import Gone from "./Gone";
export default function Top() {
	const [x, setX] = signal(1);
	return <div><Gone/></div>;
}
`,
	})})
	_, diag := c.Compile("Top.jsx")
	if diag == nil || diag.Kind != DiagRead {
		t.Fatalf("diag = %v, want read error", diag)
	}
	wantChain := []string{"Top.jsx", "Gone.jsx"}
	if diff := cmp.Diff(wantChain, diag.Chain); diff != "" {
		t.Errorf("chain mismatch (-want +got):\n%s", diff)
	}
}

func TestTxtarProject(t *testing.T) {
	archive := txtar.Parse([]byte(`Two-component project exercising an opaque child.
-- App.jsx --
import Button from "./Button";
export default function App() {
	const [msg, setMsg] = signal("hi");
	return <main><h1>{msg()}</h1><Button label={msg()}/></main>;
}
-- Button.jsx --
export default function Button({ label = "go" }) {
	const [clicks, setClicks] = signal(0);
	return <button onClick={() => setClicks(clicks() + 1)}>{label}</button>;
}
`))
	files := make(map[string]string, len(archive.Files))
	for _, f := range archive.Files {
		files[f.Name] = string(f.Data)
	}
	art := compileFixture(t, files, "App.jsx")
	if !strings.Contains(art.Markup, `data-flint-scope="i0"`) {
		t.Errorf("child scope missing from markup: %q", art.Markup)
	}
	if !strings.Contains(art.Client, "hydrateButton(") {
		t.Errorf("child initialization missing:\n%s", art.Client)
	}
}

func TestDelegatedHandlerEventParam(t *testing.T) {
	art := compileFixture(t, map[string]string{
		"Marks.jsx": `
export default function Marks() {
	const [items, setItems] = signal([{ id: 1, done: false }]);
	function mark(ev) { return ev; }
	return <ul>{items().map((item) => <li key={item.id}><button onClick={(ev) => !item.done && mark(ev)}>m</button></li>)}</ul>;
}
`,
	}, "Marks.jsx")

	// The delegation listener's own parameter is e; the handler's declared
	// parameter must be bound to it, guard or no guard.
	want := `((ev) => { if (!item.done) { mark(ev); } })(e);`
	if !strings.Contains(art.Client, want) {
		t.Errorf("client missing %q\n%s", want, art.Client)
	}
}

func TestFragmentRootDynamicSibling(t *testing.T) {
	c := New(Options{Read: readerFor(map[string]string{
		"Bare.jsx": `
export default function Bare() {
	const [items, setItems] = signal(["a"]);
	return <>{items().map((item) => <li>{item}</li>)}</>;
}
`,
	})})
	_, diag := c.Compile("Bare.jsx")
	if diag == nil || diag.Kind != DiagShape {
		t.Fatalf("diag = %v, want shape error", diag)
	}
	if !strings.Contains(diag.Message, "fragment root") {
		t.Errorf("message = %q", diag.Message)
	}

	// Static siblings of the scope element stay legal.
	art := compileFixture(t, map[string]string{
		"Framed.jsx": `
export default function Framed() {
	const [n, setN] = signal(1);
	return <><div><p>{n()}</p></div><footer>fin</footer></>;
}
`,
	}, "Framed.jsx")
	want := `<div data-flint-scope="Framed"><p>1</p></div><footer>fin</footer>`
	if art.Markup != want {
		t.Errorf("markup = %q, want %q", art.Markup, want)
	}
}

func TestDevModeAnnotations(t *testing.T) {
	files := map[string]string{
		"Counter.jsx": `
export default function Counter() {
	const [count, setCount] = signal(0);
	return <p>{count()}</p>;
}
`,
	}
	c := New(Options{Read: readerFor(files), Dev: true})
	art, diag := c.Compile("Counter.jsx")
	if diag != nil {
		t.Fatalf("compile: %v", diag)
	}
	if !strings.Contains(art.Client, "// t0: {count()}") {
		t.Errorf("dev build missing binding annotation:\n%s", art.Client)
	}

	plain := compileFixture(t, files, "Counter.jsx")
	if strings.Contains(plain.Client, "// t0") {
		t.Errorf("default build carries dev annotations:\n%s", plain.Client)
	}
}
