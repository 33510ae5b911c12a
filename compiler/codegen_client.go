package compiler

import (
	"fmt"
	"strings"

	"github.com/flintjs/flint/parser"
)

// jsWriter accumulates generated JavaScript with indentation tracking. In
// dev mode each binding is annotated with the source expression it serves.
type jsWriter struct {
	sb     strings.Builder
	indent int
	dev    bool
}

// note emits a source-expression comment, dev builds only.
func (w *jsWriter) note(format string, args ...any) {
	if w.dev {
		w.linef("// "+format, args...)
	}
}

func (w *jsWriter) line(s string) {
	if s != "" {
		for i := 0; i < w.indent; i++ {
			w.sb.WriteByte('\t')
		}
		w.sb.WriteString(s)
	}
	w.sb.WriteByte('\n')
}

func (w *jsWriter) linef(format string, args ...any) {
	w.line(fmt.Sprintf(format, args...))
}

func (w *jsWriter) in()  { w.indent++ }
func (w *jsWriter) out() { w.indent-- }

// clientPlan is everything the generated script must wire up, gathered in
// one walk over the finished IR. Loop bodies and dynamic conditional
// branches live inside re-rendered templates, so their inner slots are not
// bound individually; their regions and delegated events are.
type clientPlan struct {
	texts  []textBinding
	attrs  []attrBinding
	events []eventTarget
	loops  []loopPlan
	conds  []condPlan
	comps  []*ComponentUse
}

type textBinding struct {
	Slot string
	Info *ExprInfo
}

type attrBinding struct {
	Slot  string
	Attrs []IRAttr
}

type eventTarget struct {
	Slot   string
	Events []EventBinding
}

type loopPlan struct {
	Region     *LoopRegion
	InTemplate bool // nested inside another region's re-rendered markup
}

type condPlan struct {
	Region     *CondRegion
	InTemplate bool
}

func collectPlan(root *IRNode) *clientPlan {
	p := &clientPlan{}
	p.visit(root, false)
	return p
}

func (p *clientPlan) visit(n *IRNode, inTemplate bool) {
	if n == nil {
		return
	}
	switch n.Kind {
	case IRElement:
		if !inTemplate {
			if n.TextSlot != "" && len(n.Children) == 1 && n.Children[0].Kind == IRExpr {
				p.texts = append(p.texts, textBinding{Slot: n.TextSlot, Info: n.Children[0].Expr})
			}
			if n.AttrSlot != "" {
				var dyn []IRAttr
				for _, a := range n.Attrs {
					if a.Info.Class != Static {
						dyn = append(dyn, a)
					}
				}
				p.attrs = append(p.attrs, attrBinding{Slot: n.AttrSlot, Attrs: dyn})
			}
			if n.EventSlot != "" {
				p.events = append(p.events, eventTarget{Slot: n.EventSlot, Events: n.Events})
			}
		}
	case IRLoop:
		p.loops = append(p.loops, loopPlan{Region: n.Loop, InTemplate: inTemplate})
		p.visit(n.Loop.Body, true)
		return
	case IRConditional:
		p.conds = append(p.conds, condPlan{Region: n.Cond, InTemplate: inTemplate})
		p.visit(n.Cond.Then, true)
		p.visit(n.Cond.Else, true)
		return
	case IRComponent:
		if !inTemplate {
			p.comps = append(p.comps, n.Comp)
		}
		return
	}
	for _, c := range n.Children {
		p.visit(c, inTemplate)
	}
}

func (p *clientPlan) reactiveLoops() bool {
	for _, l := range p.loops {
		if l.Region.Reactive {
			return true
		}
	}
	return false
}

func (p *clientPlan) markerConds() bool {
	for _, c := range p.conds {
		if !c.InTemplate && !elementSwapMode(c.Region) {
			return true
		}
	}
	return false
}

// delegatedEvents gathers every event definition handled through the scope
// root rather than its own element: conditional-branch events always, and
// nested-template loop events whose own root is re-rendered away.
func (p *clientPlan) delegatedScopeEvents() []EventBinding {
	var out []EventBinding
	for _, c := range p.conds {
		out = append(out, c.Region.Events...)
	}
	for _, l := range p.loops {
		if l.InTemplate {
			out = append(out, l.Region.Events...)
		}
	}
	return out
}

func (p *clientPlan) needsClient(src *ComponentSource) bool {
	if len(p.texts) > 0 || len(p.attrs) > 0 || len(p.events) > 0 ||
		len(p.conds) > 0 || len(p.comps) > 0 || p.reactiveLoops() ||
		len(src.Effects) > 0 {
		return true
	}
	for _, l := range p.loops {
		if len(l.Region.Events) > 0 {
			return true
		}
	}
	return false
}

// generateClient emits the hydration script for one compiled component: an
// ES module exporting hydrate<Name>(scope, props). Every slot resolves to a
// DOM node exactly once, then one reactive binding installs per dynamic
// text, attribute, list, and conditional region.
func generateClient(u *unit, opts Options) string {
	src := u.Source
	plan := collectPlan(u.IR)
	if !plan.needsClient(src) {
		return ""
	}
	w := &jsWriter{dev: opts.Dev}
	emitImports(w, src, plan, opts)
	w.line("")
	for _, mc := range src.ModuleConsts {
		w.line(parser.PrintStmt(mc))
	}
	if len(src.ModuleConsts) > 0 {
		w.line("")
	}
	emitMarkupHelpers(w, plan)

	w.linef("export function hydrate%s(scope, props) {", src.Name)
	w.in()
	emitPropsDestructure(w, src)
	for _, sig := range src.Signals {
		w.linef("const [%s, %s] = signal(%s);", sig.Getter, sig.Setter, parser.Print(sig.Init))
	}
	for _, m := range src.Memos {
		w.linef("const %s = memo(() => %s);", m.Name, parser.Print(m.Body))
	}
	for _, h := range src.Helpers {
		w.line(parser.PrintStmt(h))
	}
	emitSlotResolution(w, u, plan)
	for _, l := range plan.loops {
		emitLoopTemplates(w, l)
	}
	for _, c := range plan.conds {
		emitCondTemplates(w, c)
	}
	emitTextBindings(w, plan)
	emitAttrBindings(w, plan)
	emitDirectEvents(w, plan)
	for _, l := range plan.loops {
		emitLoopBindings(w, l)
	}
	for _, c := range plan.conds {
		emitCondBindings(w, u, c)
	}
	emitScopeDelegation(w, plan)
	emitChildInits(w, plan)
	for _, eff := range src.Effects {
		w.linef("effect(%s);", parser.Print(eff.Body))
	}
	w.out()
	w.line("}")
	return w.sb.String()
}

func emitImports(w *jsWriter, src *ComponentSource, plan *clientPlan, opts Options) {
	var names []string
	if len(src.Signals) > 0 {
		names = append(names, "signal")
	}
	if len(src.Memos) > 0 {
		names = append(names, "memo")
	}
	if len(plan.texts) > 0 || len(plan.attrs) > 0 || len(plan.conds) > 0 ||
		plan.reactiveLoops() || len(src.Effects) > 0 || reactiveComps(plan.comps) {
		names = append(names, "effect")
	}
	if plan.reactiveLoops() {
		names = append(names, "reconcile")
	}
	if plan.markerConds() {
		names = append(names, "swapRegion")
	}
	if len(names) > 0 {
		w.linef("import { %s } from %q;", strings.Join(names, ", "), opts.RuntimeModule)
	}
	for _, imp := range src.Imports {
		if !imp.Local {
			w.line(printImport(imp))
		}
	}
	for _, comp := range plan.comps {
		w.linef("import { hydrate%s } from %q;", comp.Name, comp.Module)
	}
}

func reactiveComps(comps []*ComponentUse) bool {
	for _, c := range comps {
		if c.Reactive {
			return true
		}
	}
	return false
}

func printImport(imp ImportDecl) string {
	var clauses []string
	if imp.Default != "" {
		clauses = append(clauses, imp.Default)
	}
	if len(imp.Names) > 0 {
		clauses = append(clauses, "{ "+strings.Join(imp.Names, ", ")+" }")
	}
	return fmt.Sprintf("import %s from %q;", strings.Join(clauses, ", "), imp.Path)
}

// emitMarkupHelpers defines the escaping helpers shared by every template
// function in the module. Emitted only when some region re-renders markup.
func emitMarkupHelpers(w *jsWriter, plan *clientPlan) {
	if len(plan.loops) == 0 && len(plan.conds) == 0 {
		return
	}
	w.line(`const esc = (v) => v == null ? "" : String(v).replace(/[&<>"]/g, (c) => ({ "&": "&amp;", "<": "&lt;", ">": "&gt;", '"': "&quot;" })[c]);`)
	w.line("const attrStr = (n, v) => v == null || v === false ? \"\" : ` ${n}=\"${esc(v === true ? n : v)}\"`;")
	w.line("")
}

func emitPropsDestructure(w *jsWriter, src *ComponentSource) {
	if len(src.Props) == 0 && src.RestProp == "" {
		return
	}
	var parts []string
	for _, p := range src.Props {
		if p.Default != nil {
			parts = append(parts, p.Name+" = "+parser.Print(p.Default))
		} else {
			parts = append(parts, p.Name)
		}
	}
	if src.RestProp != "" {
		parts = append(parts, "..."+src.RestProp)
	}
	w.linef("const { %s } = props ?? {};", strings.Join(parts, ", "))
}

// emitSlotResolution resolves every addressed node exactly once. Known
// paths compile to property chains from the scope element; unknown paths
// fall back to a scoped slot-attribute lookup.
func emitSlotResolution(w *jsWriter, u *unit, plan *clientPlan) {
	var ids []string
	for _, t := range plan.texts {
		ids = append(ids, t.Slot)
	}
	for _, a := range plan.attrs {
		ids = append(ids, a.Slot)
	}
	for _, e := range plan.events {
		ids = append(ids, e.Slot)
	}
	for _, l := range plan.loops {
		if !l.InTemplate && (l.Region.Reactive || len(l.Region.Events) > 0) {
			ids = append(ids, l.Region.ID)
		}
	}
	if len(ids) == 0 {
		return
	}
	needFallback := false
	for _, id := range ids {
		if !u.Paths[id].Known {
			needFallback = true
		}
	}
	if needFallback {
		w.line("const slot = (id) => scope.matches(`[" + slotAttr + "~=\"${id}\"]`) ? scope : scope.querySelector(`[" + slotAttr + "~=\"${id}\"]`);")
	}
	for _, id := range ids {
		if p := u.Paths[id]; p.Known {
			w.linef("const %s = %s;", id, p.JS("scope"))
		} else {
			w.linef("const %s = slot(%q);", id, id)
		}
	}
}

func emitTextBindings(w *jsWriter, plan *clientPlan) {
	for _, t := range plan.texts {
		w.note("%s: {%s}", t.Slot, parser.Print(t.Info.Expr))
		w.line("effect(() => {")
		w.in()
		w.linef("const v = %s;", parser.Print(t.Info.Expr))
		w.line("if (v === undefined) return;")
		w.linef("%s.textContent = v == null ? \"\" : v;", t.Slot)
		w.out()
		w.line("});")
	}
}

func emitAttrBindings(w *jsWriter, plan *clientPlan) {
	for _, b := range plan.attrs {
		for _, a := range b.Attrs {
			w.note("%s: %s={%s}", b.Slot, a.Name, parser.Print(a.Info.Expr))
			w.line("effect(() => {")
			w.in()
			w.linef("const v = %s;", parser.Print(a.Info.Expr))
			w.line("if (v === undefined) return;")
			w.line(attrWrite(b.Slot, a))
			w.out()
			w.line("});")
		}
	}
}

// attrWrite picks the write form per attribute: boolean attributes and the
// value of form controls go through properties, class through className,
// everything else through set/removeAttribute.
func attrWrite(slot string, a IRAttr) string {
	switch {
	case a.Bool:
		return fmt.Sprintf("%s.%s = !!v;", slot, propertyName(a.Name))
	case a.Name == "value":
		return fmt.Sprintf("%s.value = v == null ? \"\" : v;", slot)
	case a.Name == "class":
		return fmt.Sprintf("%s.className = v == null ? \"\" : v;", slot)
	case a.Name == "style":
		return fmt.Sprintf("if (v == null) { %s.removeAttribute(\"style\"); } else { %s.setAttribute(\"style\", v); }", slot, slot)
	default:
		return fmt.Sprintf("if (v == null || v === false) { %s.removeAttribute(%q); } else { %s.setAttribute(%q, v); }", slot, a.Name, slot, a.Name)
	}
}

// propertyName maps a boolean attribute to its DOM property.
func propertyName(attr string) string {
	if attr == "readonly" {
		return "readOnly"
	}
	return attr
}

func emitDirectEvents(w *jsWriter, plan *clientPlan) {
	for _, t := range plan.events {
		for _, ev := range t.Events {
			listener := handlerJS(ev)
			if ev.Capture {
				w.linef("%s.addEventListener(%q, %s, true);", t.Slot, ev.Event, listener)
			} else {
				w.linef("%s.addEventListener(%q, %s);", t.Slot, ev.Event, listener)
			}
		}
	}
}

// handlerJS renders one listener expression. A recorded `cond && action`
// body compiles to an if statement so the condition's value never leaks as
// an expression result.
func handlerJS(ev EventBinding) string {
	if ev.Guard == nil {
		return parser.Print(ev.Handler)
	}
	params := "()"
	if arrow, ok := ev.Handler.(*parser.EArrow); ok && len(arrow.Params) > 0 {
		params = "(" + strings.Join(arrow.Params, ", ") + ")"
	}
	return fmt.Sprintf("%s => { if (%s) { %s; } }", params, parser.Print(ev.Guard), parser.Print(ev.Action))
}

// emitScopeDelegation installs one listener per event name on the scope
// root for events whose elements live inside re-rendered markup and cannot
// hold direct listeners.
func emitScopeDelegation(w *jsWriter, plan *clientPlan) {
	events := plan.delegatedScopeEvents()
	if len(events) == 0 {
		return
	}
	byName := map[string][]EventBinding{}
	var order []string
	for _, ev := range events {
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
		w.linef("scope.addEventListener(%q, (e) => {", name)
		w.in()
		w.line("const el = e.target.closest(\"[" + eventIDAttr + "]\");")
		w.line("if (!el || !scope.contains(el)) return;")
		w.line("const ids = el.getAttribute(\"" + eventIDAttr + "\").split(\" \");")
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

// emitDelegatedDispatch runs one delegated handler. Loop dispatch binds the
// row's item and index first; rowVars carries those statements. The handler
// is always invoked with the delegation event so its declared parameter
// stays bound, guarded or not.
func emitDelegatedDispatch(w *jsWriter, ev EventBinding, rowVars []string) {
	for _, v := range rowVars {
		w.line(v)
	}
	w.linef("(%s)(e);", handlerJS(ev))
}

// emitChildInits initializes opaque child components with their resolved
// props: once when every prop is settled, inside an effect when any prop is
// reactive.
func emitChildInits(w *jsWriter, plan *clientPlan) {
	for _, comp := range plan.comps {
		scopeVar := comp.Instance + "_scope"
		w.linef("const %s = scope.querySelector('[%s=%q]');", scopeVar, scopeAttr, comp.Instance)
		call := fmt.Sprintf("hydrate%s(%s, %s);", comp.Name, scopeVar, propsObjectJS(comp.Props))
		if comp.Reactive {
			w.linef("effect(() => { %s });", call)
		} else {
			w.line(call)
		}
	}
}

func propsObjectJS(props []ComponentProp) string {
	if len(props) == 0 {
		return "{}"
	}
	var parts []string
	for _, p := range props {
		if p.Spread {
			parts = append(parts, "..."+parser.Print(p.Value))
			continue
		}
		parts = append(parts, p.Name+": "+parser.Print(p.Value))
	}
	return "{ " + strings.Join(parts, ", ") + " }"
}
