package compiler

import (
	"html"
	"sort"
	"strings"

	"github.com/flintjs/flint/parser"
)

// Wire-format attribute and marker names shared by the markup renderer and
// the generated client script.
const (
	scopeAttr   = "data-flint-scope"
	slotAttr    = "data-flint-slot"
	indexAttr   = "data-index"
	eventIDAttr = "data-event-id"
	markerName  = "flint"
)

// markupRenderer renders a finished IR as initial markup. Reactive
// expressions render as their initial values: signal getters fold to their
// declared initial value, memos to their computation over those initials.
type markupRenderer struct {
	sb      strings.Builder
	scope   *Scope
	paths   map[string]DOMPath
	scopeID string
	scoped  bool // scope attribute emitted
	inLoop  bool
	rowIdx  int
}

// renderMarkup renders the initial markup of one compiled component. The
// scope id lands on the root element (or the first element child of a
// fragment root) and binds the subtree to a component instance.
func renderMarkup(ir *IRNode, scope *Scope, paths map[string]DOMPath, scopeID string) string {
	r := &markupRenderer{scope: scope, paths: paths, scopeID: scopeID}
	r.node(ir)
	return r.sb.String()
}

func (r *markupRenderer) node(n *IRNode) {
	if n == nil {
		return
	}
	switch n.Kind {
	case IRText:
		if n.Raw {
			r.sb.WriteString(n.Text)
		} else {
			r.sb.WriteString(html.EscapeString(n.Text))
		}
	case IRExpr:
		r.expr(n.Expr)
	case IRElement:
		r.element(n)
	case IRFragment:
		for _, c := range n.Children {
			r.node(c)
		}
	case IRLoop:
		r.loop(n.Loop)
	case IRConditional:
		r.conditional(n.Cond)
	case IRComponent:
		r.sb.WriteString(n.Comp.Markup)
	}
}

func (r *markupRenderer) expr(info *ExprInfo) {
	if info.Class == Static {
		r.sb.WriteString(html.EscapeString(textOf(info.Value)))
		return
	}
	if v, ok := evalInitial(info.Expr, r.scope); ok {
		r.sb.WriteString(html.EscapeString(textOf(v)))
	}
}

func (r *markupRenderer) element(el *IRNode) {
	r.sb.WriteByte('<')
	r.sb.WriteString(el.Tag)
	if !r.scoped && r.scopeID != "" {
		r.attr(scopeAttr, r.scopeID)
		r.scoped = true
	}
	if !r.inLoop {
		// Row internals are regenerated wholesale by the reconciler and
		// never addressed per slot, so rows skip the slot attribute.
		if ids := r.fallbackSlots(el); len(ids) > 0 {
			r.attr(slotAttr, strings.Join(ids, " "))
		}
	}
	for _, a := range el.Attrs {
		r.renderAttr(a)
	}
	if ids := eventIDs(el.Events); len(ids) > 0 {
		r.attr(eventIDAttr, strings.Join(ids, " "))
	}
	if voidElements[el.Tag] {
		r.sb.WriteString("/>")
		return
	}
	r.sb.WriteByte('>')
	for _, c := range el.Children {
		r.node(c)
	}
	r.sb.WriteString("</")
	r.sb.WriteString(el.Tag)
	r.sb.WriteByte('>')
}

// eventIDs collects the delegated event definition ids carried by an
// element. Direct-listener events have no id and contribute nothing.
func eventIDs(events []EventBinding) []string {
	var ids []string
	for _, ev := range events {
		if ev.ID != "" {
			ids = append(ids, ev.ID)
		}
	}
	return ids
}

// fallbackSlots returns the element's slot ids whose DOM path is unknown;
// only those need the slot attribute in the wire format.
func (r *markupRenderer) fallbackSlots(el *IRNode) []string {
	var ids []string
	for _, id := range el.Slots() {
		if !r.paths[id].Known {
			ids = append(ids, id)
		}
	}
	return ids
}

func (r *markupRenderer) renderAttr(a IRAttr) {
	var v any
	if a.Info.Class == Static {
		v = a.Info.Value
	} else {
		initial, ok := evalInitial(a.Info.Expr, r.scope)
		if !ok {
			return
		}
		v = initial
	}
	if a.Bool {
		if truthy(v) {
			r.sb.WriteByte(' ')
			r.sb.WriteString(a.Name)
		}
		return
	}
	if isNullish(v) {
		return
	}
	r.attr(a.Name, jsToString(v))
}

func (r *markupRenderer) attr(name, value string) {
	r.sb.WriteByte(' ')
	r.sb.WriteString(name)
	r.sb.WriteString(`="`)
	r.sb.WriteString(html.EscapeString(value))
	r.sb.WriteByte('"')
}

// loop renders the initial rows. Reactive rows carry the row index so the
// delegated listeners and the reconciler can tie DOM back to the array.
func (r *markupRenderer) loop(region *LoopRegion) {
	items, ok := r.initialItems(region)
	if !ok {
		return
	}
	for i, item := range items {
		row := r.rowScope(region, item, i)
		inner := &markupRenderer{scope: row, paths: r.paths, scoped: true, inLoop: true, rowIdx: i}
		inner.rowRoot(region, i)
		r.sb.WriteString(inner.sb.String())
	}
}

// rowRoot renders one row, stamping the index attribute on the row's root
// element when the region is reactive.
func (r *markupRenderer) rowRoot(region *LoopRegion, index int) {
	el := region.Body
	r.sb.WriteByte('<')
	r.sb.WriteString(el.Tag)
	if region.Reactive || len(region.Events) > 0 {
		r.attr(indexAttr, itoa(index))
	}
	for _, a := range el.Attrs {
		r.renderAttr(a)
	}
	if ids := eventIDs(el.Events); len(ids) > 0 {
		r.attr(eventIDAttr, strings.Join(ids, " "))
	}
	if voidElements[el.Tag] {
		r.sb.WriteString("/>")
		return
	}
	r.sb.WriteByte('>')
	for _, c := range el.Children {
		r.node(c)
	}
	r.sb.WriteString("</")
	r.sb.WriteString(el.Tag)
	r.sb.WriteByte('>')
}

// initialItems evaluates the region's array and applies any foldable filter
// and sort stages in their chained order.
func (r *markupRenderer) initialItems(region *LoopRegion) ([]any, bool) {
	var v any
	var ok bool
	if region.Array.Class == Static {
		v = region.Array.Value
		ok = true
	} else {
		v, ok = evalInitial(region.Array.Expr, r.scope)
	}
	if !ok {
		return nil, false
	}
	items, ok := v.([]any)
	if !ok {
		return nil, false
	}
	out := make([]any, len(items))
	copy(out, items)
	stages := []func([]any) []any{}
	filterStage := func(in []any) []any {
		if region.Filter == nil {
			return in
		}
		var kept []any
		for _, item := range in {
			if keep, ok := r.foldPredicate(region.Filter, item); ok && keep {
				kept = append(kept, item)
			} else if !ok {
				return in
			}
		}
		return kept
	}
	sortStage := func(in []any) []any {
		if region.Sort == nil {
			return in
		}
		sorted := make([]any, len(in))
		copy(sorted, in)
		sort.SliceStable(sorted, func(i, j int) bool {
			return r.foldComparator(region.Sort, sorted[i], sorted[j])
		})
		return sorted
	}
	if region.FilterFirst {
		stages = append(stages, filterStage, sortStage)
	} else {
		stages = append(stages, sortStage, filterStage)
	}
	for _, stage := range stages {
		out = stage(out)
	}
	return out, true
}

func (r *markupRenderer) foldPredicate(pred parser.Expr, item any) (bool, bool) {
	arrow, ok := pred.(*parser.EArrow)
	if !ok || arrow.Body == nil || len(arrow.Params) != 1 {
		return false, false
	}
	bound := r.scope.bindStatic(map[string]any{arrow.Params[0]: item})
	v, ok := fold(arrow.Body, bound, true)
	if !ok {
		return false, false
	}
	return truthy(v), true
}

func (r *markupRenderer) foldComparator(cmp parser.Expr, a, b any) bool {
	arrow, ok := cmp.(*parser.EArrow)
	if !ok || arrow.Body == nil || len(arrow.Params) != 2 {
		// Default sort compares string forms, like Array.prototype.sort.
		return jsToString(a) < jsToString(b)
	}
	bound := r.scope.bindStatic(map[string]any{arrow.Params[0]: a, arrow.Params[1]: b})
	v, ok := fold(arrow.Body, bound, true)
	if !ok {
		return false
	}
	if f, isNum := v.(float64); isNum {
		return f < 0
	}
	return false
}

func (r *markupRenderer) rowScope(region *LoopRegion, item any, index int) *Scope {
	vals := map[string]any{region.ItemVar: item}
	if region.IndexVar != "" {
		vals[region.IndexVar] = float64(index)
	}
	return r.scope.bindStatic(vals)
}

// conditional renders the initially-live branch. Single-element regions swap
// the element in place; every other shape renders between a paired comment
// marker so the region stays addressable even when a branch is empty.
func (r *markupRenderer) conditional(region *CondRegion) {
	live := region.Else
	if v, ok := evalInitial(region.Cond.Expr, r.scope); ok && truthy(v) {
		live = region.Then
	}
	if elementSwapMode(region) {
		r.condElement(region, live)
		return
	}
	r.sb.WriteString("<!--" + markerName + ":" + region.ID + "-->")
	r.node(live)
	r.sb.WriteString("<!--/" + markerName + ":" + region.ID + "-->")
}

// condElement renders a single-element branch with the region id attached,
// so hydration can find the live element when its path is unknown.
func (r *markupRenderer) condElement(region *CondRegion, live *IRNode) {
	if r.paths[region.ID].Known {
		r.node(live)
		return
	}
	el := *live
	r.sb.WriteByte('<')
	r.sb.WriteString(el.Tag)
	r.attr(slotAttr, region.ID)
	for _, a := range el.Attrs {
		r.renderAttr(a)
	}
	r.sb.WriteByte('>')
	for _, c := range el.Children {
		r.node(c)
	}
	r.sb.WriteString("</")
	r.sb.WriteString(el.Tag)
	r.sb.WriteByte('>')
}

// irFullyStatic reports whether a subtree renders without any runtime
// artifact: no events, no dynamic attributes or text, no reactive regions,
// and no opaque children. Fully static subtrees are what compile-time
// component inlining produces.
func irFullyStatic(n *IRNode) bool {
	if n == nil {
		return true
	}
	switch n.Kind {
	case IRText:
		return true
	case IRExpr:
		return n.Expr.Class == Static
	case IRElement:
		if len(n.Events) > 0 || n.AttrSlot != "" || n.TextSlot != "" {
			return false
		}
		for _, a := range n.Attrs {
			if a.Info.Class != Static {
				return false
			}
		}
	case IRFragment:
	case IRLoop:
		if n.Loop.Reactive || len(n.Loop.Events) > 0 {
			return false
		}
		return irFullyStatic(n.Loop.Body)
	case IRConditional, IRComponent:
		return false
	}
	for _, c := range n.Children {
		if !irFullyStatic(c) {
			return false
		}
	}
	return true
}
