package compiler

import (
	"strings"

	"github.com/flintjs/flint/parser"
)

// irBuilder walks a component's returned markup depth-first and produces the
// IR tree. Slot and region ids come from the run's generator in visit order,
// so identical input always produces identical ids.
type irBuilder struct {
	src   *ComponentSource
	scope *Scope
	ids   *idGen
	loop  *LoopRegion // non-nil while building a loop body
	cond  *CondRegion // non-nil while building a dynamic conditional branch
}

// buildIR produces the IR tree for one analyzed component.
func buildIR(src *ComponentSource, scope *Scope, ids *idGen) (*IRNode, *Diagnostic) {
	b := &irBuilder{src: src, scope: scope, ids: ids}
	root, err := b.buildNode(src.Markup)
	if err != nil {
		return nil, err
	}
	if root == nil {
		root = &IRNode{Kind: IRFragment}
	}
	return root, nil
}

// buildNode converts one markup node. A nil result means the node rendered
// to nothing (whitespace-only text, a statically-false conditional with an
// empty branch).
func (b *irBuilder) buildNode(node parser.JSXNode) (*IRNode, *Diagnostic) {
	switch n := node.(type) {
	case *parser.JSXText:
		text := collapseJSXText(n.Value)
		if text == "" {
			return nil, nil
		}
		return &IRNode{Kind: IRText, Text: text}, nil
	case *parser.JSXExpr:
		return b.buildInterpolation(n.Value, n.Line)
	case *parser.JSXElement:
		if isComponentTag(n.Tag) {
			return b.buildComponent(n)
		}
		return b.buildElement(n)
	case *parser.JSXFragment:
		frag := &IRNode{Kind: IRFragment}
		children, err := b.buildChildren(n.Children)
		if err != nil {
			return nil, err
		}
		frag.Children = children
		return frag, nil
	}
	return nil, nil
}

// buildChildren converts a child list and then settles text slots: an
// element whose sole child is one dynamic expression binds its textContent
// directly; a dynamic expression with siblings is wrapped in an addressable
// span so hydration can target it without disturbing the siblings.
func (b *irBuilder) buildChildren(children []parser.JSXNode) ([]*IRNode, *Diagnostic) {
	var out []*IRNode
	for _, child := range children {
		node, err := b.buildNode(child)
		if err != nil {
			return nil, err
		}
		if node != nil {
			out = append(out, node)
		}
	}
	return out, nil
}

// settleTextSlots assigns the text slot for an element's dynamic expression
// children. Called by buildElement after its children are known.
func (b *irBuilder) settleTextSlots(el *IRNode) {
	dynamic := func(n *IRNode) bool {
		return n.Kind == IRExpr && n.Expr.Class != Static
	}
	if len(el.Children) == 1 && dynamic(el.Children[0]) {
		el.TextSlot = b.ids.next("t")
		return
	}
	for i, child := range el.Children {
		if !dynamic(child) {
			continue
		}
		wrap := &IRNode{
			Kind:     IRElement,
			Tag:      "span",
			TextSlot: b.ids.next("t"),
			Children: []*IRNode{child},
		}
		el.Children[i] = wrap
	}
}

func (b *irBuilder) buildElement(n *parser.JSXElement) (*IRNode, *Diagnostic) {
	el := &IRNode{Kind: IRElement, Tag: n.Tag, Line: n.Line}
	hasDynamicAttr := false
	for _, attr := range n.Attrs {
		if attr.Spread {
			return nil, b.fail(n.Line, "spread attributes are only supported on component tags, not <"+n.Tag+">")
		}
		if strings.HasPrefix(attr.Name, "on") && len(attr.Name) > 2 {
			ev, err := b.buildEvent(attr, n.Line)
			if err != nil {
				return nil, err
			}
			el.Events = append(el.Events, *ev)
			continue
		}
		if attr.Name == "key" {
			if b.loop != nil && b.loop.KeyExpr == nil {
				b.loop.KeyExpr = attr.Value
			}
			continue
		}
		ir := IRAttr{Name: attr.Name, Bool: booleanAttrs[attr.Name]}
		if attr.Value == nil {
			ir.Info = ExprInfo{Class: Static, Expr: &parser.EBool{Value: true}, Source: "true", Value: true}
		} else {
			ir.Info = classify(attr.Value, b.scope)
		}
		if ir.Info.Class != Static {
			hasDynamicAttr = true
		}
		el.Attrs = append(el.Attrs, ir)
	}
	if hasDynamicAttr {
		el.AttrSlot = b.ids.next("a")
	}
	if len(el.Events) > 0 && b.loop == nil && b.cond == nil {
		el.EventSlot = b.ids.next("v")
		for i := range el.Events {
			el.Events[i].Slot = el.EventSlot
		}
	}
	children, err := b.buildChildren(n.Children)
	if err != nil {
		return nil, err
	}
	el.Children = children
	b.settleTextSlots(el)
	return el, nil
}

// buildEvent converts an on* attribute. Inside a loop body the binding gets
// an event definition id for delegated dispatch and attaches to the region;
// outside, the element itself becomes the listener target.
func (b *irBuilder) buildEvent(attr parser.JSXAttr, line int) (*EventBinding, *Diagnostic) {
	if attr.Value == nil {
		return nil, b.fail(line, "event attribute "+attr.Name+" needs a handler expression")
	}
	name := strings.ToLower(attr.Name[2:])
	ev := &EventBinding{
		Event:   name,
		Handler: attr.Value,
		Capture: nonBubblingEvents[name],
	}
	if guard, action, ok := splitGuardedHandler(attr.Value); ok {
		ev.Guard = guard
		ev.Action = action
	}
	if b.loop != nil {
		ev.ID = b.ids.next("e")
		b.loop.Events = append(b.loop.Events, *ev)
	} else if b.cond != nil {
		ev.ID = b.ids.next("e")
		b.cond.Events = append(b.cond.Events, *ev)
	}
	return ev, nil
}

// splitGuardedHandler recognizes the `cond && action` handler body. The
// generated listener runs it as `if (cond) { action }` so the condition's
// value never leaks as an expression-statement result.
func splitGuardedHandler(handler parser.Expr) (guard, action parser.Expr, ok bool) {
	arrow, isArrow := handler.(*parser.EArrow)
	if !isArrow {
		return nil, nil, false
	}
	body := arrow.Body
	if body == nil && len(arrow.BlockBody) == 1 {
		if expr, isExpr := arrow.BlockBody[0].(*parser.SExpr); isExpr {
			body = expr.Value
		}
	}
	bin, isBin := body.(*parser.EBinary)
	if !isBin || bin.Op != "&&" {
		return nil, nil, false
	}
	return bin.Left, bin.Right, true
}

// buildInterpolation converts a {expr} child: a list chain becomes a Loop
// region, a markup-level ternary a Conditional region, everything else a
// classified Expression node.
func (b *irBuilder) buildInterpolation(expr parser.Expr, line int) (*IRNode, *Diagnostic) {
	node, err := b.buildInterpolationExpr(expr, line)
	if node != nil && node.Line == 0 {
		node.Line = line
	}
	return node, err
}

func (b *irBuilder) buildInterpolationExpr(expr parser.Expr, line int) (*IRNode, *Diagnostic) {
	if call, ok := expr.(*parser.ECall); ok && isMarkupMap(call) {
		chain, ok := matchLoopChain(call)
		if !ok {
			return nil, b.fail(line, "unsupported list chain: at most one filter and one sort/toSorted may precede map")
		}
		chain.line = line
		return b.buildLoop(chain)
	}
	if tern, ok := expr.(*parser.ETernary); ok && branchesRenderMarkup(tern.Then, tern.Else) {
		return b.buildConditional(tern.Cond, tern.Then, tern.Else)
	}
	if bin, ok := expr.(*parser.EBinary); ok && bin.Op == "&&" {
		if _, isJSX := bin.Right.(*parser.EJSX); isJSX {
			return b.buildConditional(bin.Left, bin.Right, nil)
		}
	}
	if jsx, ok := expr.(*parser.EJSX); ok {
		return b.buildNode(jsx.Node)
	}
	info := classify(expr, b.scope)
	return &IRNode{Kind: IRExpr, Expr: &info}, nil
}

func branchesRenderMarkup(then, els parser.Expr) bool {
	isMarkup := func(e parser.Expr) bool {
		switch e.(type) {
		case *parser.EJSX, *parser.ENull, *parser.EUndefined:
			return true
		}
		return false
	}
	return isMarkup(then) || isMarkup(els)
}

// loopChain is a recognized `.filter()/.sort()/.toSorted()` prefix followed
// by `.map(...)`.
type loopChain struct {
	array       parser.Expr
	filter      parser.Expr
	sort        parser.Expr
	filterFirst bool
	mapFn       *parser.EArrow
	line        int
}

// isMarkupMap reports whether a call is `.map(cb)` with a callback that
// renders markup. Only those calls are list regions; a map producing plain
// values stays an ordinary expression.
func isMarkupMap(call *parser.ECall) bool {
	member, ok := call.Callee.(*parser.EMember)
	if !ok || member.Prop != "map" || len(call.Args) != 1 {
		return false
	}
	arrow, ok := call.Args[0].(*parser.EArrow)
	if !ok || arrow.Body == nil {
		return false
	}
	_, isJSX := arrow.Body.(*parser.EJSX)
	return isJSX
}

// matchLoopChain validates an `array.map(cb)` call's prefix: at most one
// filter and one sort stage in either order. Any other chain shape is a
// compile error rather than a guess.
func matchLoopChain(call *parser.ECall) (*loopChain, bool) {
	member, ok := call.Callee.(*parser.EMember)
	if !ok || member.Prop != "map" || len(call.Args) != 1 {
		return nil, false
	}
	mapFn, ok := call.Args[0].(*parser.EArrow)
	if !ok || len(mapFn.Params) == 0 || len(mapFn.Params) > 2 {
		return nil, false
	}
	chain := &loopChain{mapFn: mapFn}
	cur := member.Obj
	var stages []string
	for {
		stageCall, ok := cur.(*parser.ECall)
		if !ok {
			break
		}
		stageMember, ok := stageCall.Callee.(*parser.EMember)
		if !ok {
			break
		}
		switch stageMember.Prop {
		case "filter":
			if chain.filter != nil || len(stageCall.Args) != 1 {
				return nil, false
			}
			chain.filter = stageCall.Args[0]
			stages = append(stages, "filter")
		case "sort", "toSorted":
			if chain.sort != nil || len(stageCall.Args) > 1 {
				return nil, false
			}
			if len(stageCall.Args) == 1 {
				chain.sort = stageCall.Args[0]
			} else {
				chain.sort = &parser.EUndefined{}
			}
			stages = append(stages, "sort")
		default:
			return nil, false
		}
		cur = stageMember.Obj
	}
	// Stages were collected outside-in; filterFirst means the filter sits
	// closer to the array than the sort.
	if len(stages) == 2 {
		chain.filterFirst = stages[1] == "filter"
	} else if len(stages) == 1 {
		chain.filterFirst = stages[0] == "filter"
	}
	chain.array = cur
	return chain, true
}

func (b *irBuilder) buildLoop(chain *loopChain) (*IRNode, *Diagnostic) {
	region := &LoopRegion{
		ID:          b.ids.next("l"),
		Array:       classify(chain.array, b.scope),
		Filter:      chain.filter,
		Sort:        chain.sort,
		FilterFirst: chain.filterFirst,
		ItemVar:     chain.mapFn.Params[0],
	}
	if len(chain.mapFn.Params) == 2 {
		region.IndexVar = chain.mapFn.Params[1]
	}
	region.Reactive = region.Array.Class != Static ||
		(chain.filter != nil && isReactiveOrRuntime(chain.filter, b.scope)) ||
		(chain.sort != nil && isReactiveOrRuntime(chain.sort, b.scope))

	if chain.mapFn.Body == nil {
		return nil, b.fail(chain.line, "list callbacks must be expression arrows returning markup")
	}
	bodyJSX, ok := chain.mapFn.Body.(*parser.EJSX)
	if !ok {
		return nil, b.fail(chain.line, "list callbacks must return a markup element")
	}

	inner := b.scope.child(region.ItemVar)
	if region.IndexVar != "" {
		inner = inner.child(region.IndexVar)
	}
	loopBuilder := &irBuilder{src: b.src, scope: inner, ids: b.ids, loop: region}
	body, err := loopBuilder.buildNode(bodyJSX.Node)
	if err != nil {
		return nil, err
	}
	if body == nil || body.Kind != IRElement {
		return nil, b.fail(chain.line, "list callbacks must return a single element")
	}
	region.Body = body
	return &IRNode{Kind: IRLoop, Loop: region}, nil
}

// buildConditional resolves markup-level ternaries. A static condition
// compiles away: only the live branch survives and no runtime region exists.
func (b *irBuilder) buildConditional(cond, then, els parser.Expr) (*IRNode, *Diagnostic) {
	info := classify(cond, b.scope)
	if info.Class == Static {
		branch := then
		if !truthy(info.Value) {
			branch = els
		}
		return b.buildBranch(branch)
	}
	region := &CondRegion{ID: b.ids.next("c"), Cond: info}
	branchBuilder := &irBuilder{src: b.src, scope: b.scope, ids: b.ids, loop: b.loop, cond: region}
	var err *Diagnostic
	region.Then, err = branchBuilder.buildBranch(then)
	if err != nil {
		return nil, err
	}
	region.Else, err = branchBuilder.buildBranch(els)
	if err != nil {
		return nil, err
	}
	return &IRNode{Kind: IRConditional, Cond: region}, nil
}

// buildBranch converts one conditional branch. Null and undefined branches
// become nil, which renders as an empty marker region that can still be
// swapped back in later.
func (b *irBuilder) buildBranch(branch parser.Expr) (*IRNode, *Diagnostic) {
	switch e := branch.(type) {
	case nil, *parser.ENull, *parser.EUndefined:
		return nil, nil
	case *parser.EJSX:
		return b.buildNode(e.Node)
	}
	info := classify(branch, b.scope)
	return &IRNode{Kind: IRExpr, Expr: &info}, nil
}

func (b *irBuilder) buildComponent(n *parser.JSXElement) (*IRNode, *Diagnostic) {
	use := &ComponentUse{
		Name:     n.Tag,
		Instance: b.ids.next("i"),
	}
	for _, imp := range b.src.Imports {
		if imp.Local && imp.Default == n.Tag {
			use.Path = imp.Path
		}
	}
	for _, attr := range n.Attrs {
		if attr.Spread {
			use.Props = append(use.Props, ComponentProp{Value: attr.Value, Spread: true})
			if isReactiveOrRuntime(attr.Value, b.scope) {
				use.Reactive = true
			}
			continue
		}
		value := attr.Value
		if value == nil {
			value = &parser.EBool{Value: true}
		}
		use.Props = append(use.Props, ComponentProp{Name: attr.Name, Value: value})
		if isReactive(value, b.scope) {
			use.Reactive = true
		}
	}
	node := &IRNode{Kind: IRComponent, Line: n.Line, Comp: use}
	children, err := b.buildChildren(n.Children)
	if err != nil {
		return nil, err
	}
	node.Children = children
	return node, nil
}

// isReactive reports whether the expression reads a signal or memo getter.
// Unlike isReactiveOrRuntime, plain prop and helper references do not count:
// a runtime-known but non-reactive prop never changes after hydration.
func isReactive(e parser.Expr, scope *Scope) bool {
	found := false
	walkExpr(e, func(n parser.Expr) {
		if call, ok := n.(*parser.ECall); ok {
			if ident, ok := call.Callee.(*parser.EIdent); ok {
				if _, isSig := scope.signals[ident.Name]; isSig {
					found = true
				}
				if _, isMemo := scope.memos[ident.Name]; isMemo {
					found = true
				}
			}
		}
	})
	return found
}

// walkExpr visits every node of an expression tree, including arrow bodies.
func walkExpr(e parser.Expr, visit func(parser.Expr)) {
	if e == nil {
		return
	}
	visit(e)
	switch n := e.(type) {
	case *parser.EUnary:
		walkExpr(n.Operand, visit)
	case *parser.EBinary:
		walkExpr(n.Left, visit)
		walkExpr(n.Right, visit)
	case *parser.ETernary:
		walkExpr(n.Cond, visit)
		walkExpr(n.Then, visit)
		walkExpr(n.Else, visit)
	case *parser.EMember:
		walkExpr(n.Obj, visit)
	case *parser.EIndex:
		walkExpr(n.Obj, visit)
		walkExpr(n.Index, visit)
	case *parser.ECall:
		walkExpr(n.Callee, visit)
		for _, a := range n.Args {
			walkExpr(a, visit)
		}
	case *parser.EAssign:
		walkExpr(n.Target, visit)
		walkExpr(n.Value, visit)
	case *parser.EArrow:
		walkExpr(n.Body, visit)
		for _, s := range n.BlockBody {
			walkStmtExprs(s, visit)
		}
	case *parser.EObject:
		for _, f := range n.Fields {
			walkExpr(f.Value, visit)
		}
	case *parser.EArray:
		for _, item := range n.Items {
			walkExpr(item, visit)
		}
	case *parser.ESpread:
		walkExpr(n.Value, visit)
	case *parser.ETemplate:
		for _, p := range n.Parts {
			if p.Expr != nil {
				walkExpr(p.Expr, visit)
			}
		}
	case *parser.EJSX:
		walkJSXExprs(n.Node, visit)
	}
}

func walkStmtExprs(s parser.Stmt, visit func(parser.Expr)) {
	switch st := s.(type) {
	case *parser.SExpr:
		walkExpr(st.Value, visit)
	case *parser.SReturn:
		walkExpr(st.Value, visit)
	case *parser.SVar:
		walkExpr(st.Init, visit)
	case *parser.SIf:
		walkExpr(st.Cond, visit)
		for _, inner := range st.Then {
			walkStmtExprs(inner, visit)
		}
		for _, inner := range st.Else {
			walkStmtExprs(inner, visit)
		}
	}
}

func walkJSXExprs(node parser.JSXNode, visit func(parser.Expr)) {
	switch n := node.(type) {
	case *parser.JSXExpr:
		walkExpr(n.Value, visit)
	case *parser.JSXElement:
		for _, a := range n.Attrs {
			walkExpr(a.Value, visit)
		}
		for _, c := range n.Children {
			walkJSXExprs(c, visit)
		}
	case *parser.JSXFragment:
		for _, c := range n.Children {
			walkJSXExprs(c, visit)
		}
	}
}

// collapseJSXText applies JSX whitespace rules: text that is only whitespace
// and spans a newline renders as nothing, and interior whitespace runs
// collapse to single spaces.
func collapseJSXText(s string) string {
	if strings.TrimSpace(s) == "" {
		if strings.ContainsAny(s, "\n\r") {
			return ""
		}
		if s == "" {
			return ""
		}
		return " "
	}
	var sb strings.Builder
	space := false
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			space = true
			continue
		}
		if space && sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		space = false
		sb.WriteRune(r)
	}
	// Leading and trailing single spaces survive so inline text around
	// interpolations keeps its separation.
	out := sb.String()
	if startsWithSpace(s) && !strings.ContainsAny(leadingWS(s), "\n\r") {
		out = " " + out
	}
	if endsWithSpace(s) && !strings.ContainsAny(trailingWS(s), "\n\r") {
		out = out + " "
	}
	return out
}

func startsWithSpace(s string) bool {
	return s != "" && (s[0] == ' ' || s[0] == '\t' || s[0] == '\n' || s[0] == '\r')
}

func endsWithSpace(s string) bool {
	return s != "" && (s[len(s)-1] == ' ' || s[len(s)-1] == '\t' || s[len(s)-1] == '\n' || s[len(s)-1] == '\r')
}

func leadingWS(s string) string {
	i := 0
	for i < len(s) && (s[i] == ' ' || s[i] == '\t' || s[i] == '\n' || s[i] == '\r') {
		i++
	}
	return s[:i]
}

func trailingWS(s string) string {
	i := len(s)
	for i > 0 && (s[i-1] == ' ' || s[i-1] == '\t' || s[i-1] == '\n' || s[i-1] == '\r') {
		i--
	}
	return s[i:]
}

func (b *irBuilder) fail(line int, msg string) *Diagnostic {
	return &Diagnostic{Kind: DiagShape, Path: b.src.Path, Line: line, Message: msg}
}
