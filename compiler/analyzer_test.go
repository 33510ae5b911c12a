package compiler

import (
	"testing"

	"github.com/flintjs/flint/parser"
)

func analyzeSource(t *testing.T, src string) *ComponentSource {
	t.Helper()
	file, err := parser.Parse("test.jsx", src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	out, diag := Analyze(file)
	if diag != nil {
		t.Fatalf("analyze: %v", diag)
	}
	return out
}

func TestAnalyzeFullComponent(t *testing.T) {
	src := analyzeSource(t, `
import Badge from "./Badge";
import { format } from "date-fns";

const LIMIT = 10;

export default function Panel({ title, count = 0, ...rest }) {
	const [open, setOpen] = signal(false);
	const upper = memo(() => title);
	const doubled = 2 * 2;
	function describe(n) { return n + "!"; }
	effect(() => { console.log(open()); });
	return <div>{title}</div>;
}
`)

	if src.Name != "Panel" {
		t.Errorf("name = %q, want Panel", src.Name)
	}
	if len(src.Imports) != 2 {
		t.Fatalf("imports = %d, want 2", len(src.Imports))
	}
	if !src.Imports[0].Local || src.Imports[0].Default != "Badge" {
		t.Errorf("first import not recognized as local default: %+v", src.Imports[0])
	}
	if src.Imports[1].Local {
		t.Errorf("package import marked local: %+v", src.Imports[1])
	}
	if len(src.ModuleConsts) != 1 {
		t.Errorf("module consts = %d, want 1", len(src.ModuleConsts))
	}

	if len(src.Props) != 2 {
		t.Fatalf("props = %d, want 2", len(src.Props))
	}
	if src.Props[0].Name != "title" || src.Props[0].Optional {
		t.Errorf("title prop = %+v", src.Props[0])
	}
	if src.Props[1].Name != "count" || !src.Props[1].Optional || src.Props[1].Type != "number" {
		t.Errorf("count prop = %+v", src.Props[1])
	}
	if src.RestProp != "rest" {
		t.Errorf("rest prop = %q, want rest", src.RestProp)
	}

	if len(src.Signals) != 1 {
		t.Fatalf("signals = %d, want 1", len(src.Signals))
	}
	if src.Signals[0].Getter != "open" || src.Signals[0].Setter != "setOpen" {
		t.Errorf("signal = %+v", src.Signals[0])
	}
	if len(src.Memos) != 1 || src.Memos[0].Name != "upper" {
		t.Errorf("memos = %+v", src.Memos)
	}
	if len(src.Effects) != 1 {
		t.Errorf("effects = %d, want 1", len(src.Effects))
	}
	if len(src.Helpers) != 2 {
		t.Errorf("helpers = %d, want 2", len(src.Helpers))
	}
	if src.Markup == nil {
		t.Error("markup not captured")
	}
}

func TestAnalyzeSignalShapesFailSoft(t *testing.T) {
	src := analyzeSource(t, `
export default function Odd() {
	const [a, b, c] = signal(1);
	const single = signal(2);
	const [x, setX] = notSignal(3);
	return <p>ok</p>;
}
`)
	if len(src.Signals) != 0 {
		t.Errorf("unrecognized shapes recorded as signals: %+v", src.Signals)
	}
	// Every rejected shape must survive as an ordinary helper.
	if len(src.Helpers) != 3 {
		t.Errorf("helpers = %d, want 3", len(src.Helpers))
	}
}

func TestAnalyzeSignalOrderIndependent(t *testing.T) {
	src := analyzeSource(t, `
export default function Late() {
	const greeting = "hi";
	function helper() { return 1; }
	const [n, setN] = signal(5);
	return <p>{n()}</p>;
}
`)
	if len(src.Signals) != 1 || src.Signals[0].Getter != "n" {
		t.Fatalf("signal declared after helpers not found: %+v", src.Signals)
	}
}

func TestAnalyzeMissingExport(t *testing.T) {
	file, err := parser.Parse("broken.jsx", `const x = 1;`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	_, diag := Analyze(file)
	if diag == nil || diag.Kind != DiagShape {
		t.Fatalf("diag = %v, want shape error", diag)
	}
}

func TestAnalyzeMissingMarkup(t *testing.T) {
	file, err := parser.Parse("broken.jsx", `export default function NoMarkup() { const x = 1; }`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	_, diag := Analyze(file)
	if diag == nil || diag.Kind != DiagShape {
		t.Fatalf("diag = %v, want shape error", diag)
	}
}

func TestAnalyzeGuards(t *testing.T) {
	src := analyzeSource(t, `
export default function Guarded({ hidden = false }) {
	if (hidden) { return null; }
	return <p>body</p>;
}
`)
	if len(src.Guards) != 1 {
		t.Fatalf("guards = %d, want 1", len(src.Guards))
	}
}
