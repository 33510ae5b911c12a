package compiler

import (
	"fmt"
	"html"
	"strings"

	"github.com/flintjs/flint/parser"
)

// Loop codegen. A reactive list region gets a keyed row template, one
// reconciling binding on the list root, and one delegated listener per
// event name. A static list region is server-rendered and hydrated once;
// no reconciliation machinery is emitted for it.

func rowFnName(id string) string    { return "row_" + id }
func rowsFnName(id string) string   { return "rows_" + id }
func itemsFnName(id string) string  { return "items_" + id }
func regionFnName(id string) string { return "region_" + id }

// emitLoopTemplates declares the region's item chain and row template
// functions. Declarations for every region come before any binding
// installs, since effects run immediately and may render nested regions.
func emitLoopTemplates(w *jsWriter, l loopPlan) {
	region := l.Region
	needsTemplates := region.Reactive || l.InTemplate
	if !needsTemplates && len(region.Events) == 0 {
		return
	}
	itemVar, indexVar := region.ItemVar, region.IndexVar
	if indexVar == "" {
		indexVar = "_index"
	}
	w.linef("const %s = () => %s;", itemsFnName(region.ID), loopItemsJS(region))
	if needsTemplates {
		w.linef("const %s = (%s, %s) => `%s`;",
			rowFnName(region.ID), itemVar, indexVar, rowTemplateJS(region, indexVar))
		w.linef("const %s = () => %s().map(%s).join(\"\");",
			rowsFnName(region.ID), itemsFnName(region.ID), rowFnName(region.ID))
	}
}

// emitLoopBindings installs the reconciling binding and the delegated
// listeners for a top-level region. Nested regions re-render through their
// enclosing region's template and get neither.
func emitLoopBindings(w *jsWriter, l loopPlan) {
	region := l.Region
	if l.InTemplate {
		return
	}
	if region.Reactive {
		w.note("%s: {%s.map(...)}", region.ID, loopItemsJS(region))
		w.line("effect(() => {")
		w.in()
		w.linef("reconcile(%s, %s(), %s, %s);",
			region.ID, itemsFnName(region.ID), rowFnName(region.ID), keyFnJS(region))
		w.out()
		w.line("});")
	}
	emitLoopDelegation(w, region)
}

// loopItemsJS reconstructs the live list chain: the source array expression
// with its filter and sort stages in their declared order. Sorting runs on
// a copy so the source array is never mutated in place.
func loopItemsJS(region *LoopRegion) string {
	out := parser.Print(region.Array.Expr)
	filter := ""
	if region.Filter != nil {
		filter = ".filter(" + parser.Print(region.Filter) + ")"
	}
	sorted := ""
	if region.Sort != nil {
		if _, bare := region.Sort.(*parser.EUndefined); bare {
			sorted = ".slice().sort()"
		} else {
			sorted = ".slice().sort(" + parser.Print(region.Sort) + ")"
		}
	}
	if region.FilterFirst {
		return out + filter + sorted
	}
	return out + sorted + filter
}

// keyFnJS renders the reconciliation key extractor. Without a declared key
// the row index is the identity, which degrades to rebuild-on-reorder.
func keyFnJS(region *LoopRegion) string {
	if region.KeyExpr == nil {
		return "(_, i) => i"
	}
	indexVar := region.IndexVar
	if indexVar == "" {
		indexVar = "_index"
	}
	return fmt.Sprintf("(%s, %s) => %s", region.ItemVar, indexVar, parser.Print(region.KeyExpr))
}

// rowTemplateJS renders one row as a template literal body. The row root
// carries the index attribute tying the DOM back to the array position.
func rowTemplateJS(region *LoopRegion, indexVar string) string {
	var sb strings.Builder
	el := region.Body
	sb.WriteByte('<')
	sb.WriteString(el.Tag)
	if region.Reactive || len(region.Events) > 0 {
		sb.WriteString(` ` + indexAttr + `="${` + indexVar + `}"`)
	}
	templateAttrs(&sb, el)
	sb.WriteByte('>')
	for _, c := range el.Children {
		templateNode(&sb, c)
	}
	sb.WriteString("</" + el.Tag + ">")
	return sb.String()
}

// templateNode renders an IR subtree into a JS template literal body, with
// dynamic expressions interpolated live. Used for loop rows and conditional
// branches, both of which are re-rendered from strings at runtime.
func templateNode(sb *strings.Builder, n *IRNode) {
	if n == nil {
		return
	}
	switch n.Kind {
	case IRText:
		if n.Raw {
			sb.WriteString(escapeTemplateLit(n.Text))
		} else {
			sb.WriteString(escapeTemplateLit(html.EscapeString(n.Text)))
		}
	case IRExpr:
		if n.Expr.Class == Static {
			sb.WriteString(escapeTemplateLit(html.EscapeString(textOf(n.Expr.Value))))
		} else {
			sb.WriteString("${esc(" + parser.Print(n.Expr.Expr) + ")}")
		}
	case IRElement:
		sb.WriteByte('<')
		sb.WriteString(n.Tag)
		templateAttrs(sb, n)
		if voidElements[n.Tag] {
			sb.WriteString("/>")
			return
		}
		sb.WriteByte('>')
		for _, c := range n.Children {
			templateNode(sb, c)
		}
		sb.WriteString("</" + n.Tag + ">")
	case IRFragment:
		for _, c := range n.Children {
			templateNode(sb, c)
		}
	case IRLoop:
		sb.WriteString("${" + rowsFnName(n.Loop.ID) + "()}")
	case IRConditional:
		sb.WriteString("${" + regionFnName(n.Cond.ID) + "()}")
	case IRComponent:
		// An opaque child inside re-rendered markup keeps its initial
		// server markup; re-initializing swapped-in children is not
		// supported.
		sb.WriteString(escapeTemplateLit(n.Comp.Markup))
	}
}

func templateAttrs(sb *strings.Builder, el *IRNode) {
	for _, a := range el.Attrs {
		if a.Info.Class == Static {
			if a.Bool {
				if truthy(a.Info.Value) {
					sb.WriteString(" " + a.Name)
				}
				continue
			}
			if isNullish(a.Info.Value) {
				continue
			}
			sb.WriteString(" " + a.Name + `="` + escapeTemplateLit(html.EscapeString(jsToString(a.Info.Value))) + `"`)
			continue
		}
		expr := parser.Print(a.Info.Expr)
		if a.Bool {
			sb.WriteString("${" + expr + ` ? " ` + a.Name + `" : ""}`)
			continue
		}
		sb.WriteString("${attrStr(" + quoteJSString(a.Name) + ", " + expr + ")}")
	}
	if ids := eventIDs(el.Events); len(ids) > 0 {
		sb.WriteString(" " + eventIDAttr + `="` + strings.Join(ids, " ") + `"`)
	}
}

func emitLoopDelegation(w *jsWriter, region *LoopRegion) {
	if len(region.Events) == 0 {
		return
	}
	indexVar := region.IndexVar
	if indexVar == "" {
		indexVar = "_index"
	}
	byName := map[string][]EventBinding{}
	var order []string
	for _, ev := range region.Events {
		if _, seen := byName[ev.Event]; !seen {
			order = append(order, ev.Event)
		}
		byName[ev.Event] = append(byName[ev.Event], ev)
	}
	for _, name := range order {
		group := byName[name]
		capture := ""
		if group[0].Capture {
			capture = ", true"
		}
		w.linef("%s.addEventListener(%q, (e) => {", region.ID, name)
		w.in()
		w.line("const el = e.target.closest(\"[" + eventIDAttr + "]\");")
		w.linef("if (!el || !%s.contains(el)) return;", region.ID)
		w.line("const ids = el.getAttribute(\"" + eventIDAttr + "\").split(\" \");")
		w.line("const rowEl = el.closest(\"[" + indexAttr + "]\");")
		w.linef("const %s = rowEl ? Number(rowEl.getAttribute(\"%s\")) : -1;", indexVar, indexAttr)
		w.linef("const %s = %s()[%s];", region.ItemVar, itemsFnName(region.ID), indexVar)
		w.linef("if (%s === undefined) return;", region.ItemVar)
		for _, ev := range group {
			w.linef("if (ids.includes(%q)) {", ev.ID)
			w.in()
			emitDelegatedDispatch(w, ev, nil)
			w.out()
			w.line("}")
		}
		w.out()
		w.linef("}%s);", capture)
	}
}

// escapeTemplateLit escapes text for inclusion inside a JS template
// literal: backslashes, backticks, and interpolation openers.
func escapeTemplateLit(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "`", "\\`")
	s = strings.ReplaceAll(s, "${", "\\${")
	return s
}

func quoteJSString(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}
