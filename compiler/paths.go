package compiler

import "strings"

// DOMPath is a compile-time traversal from the component's scope element to
// one addressed node. An unknown path means the node's structural position
// depends on runtime state and hydration must fall back to a scoped
// attribute lookup.
type DOMPath struct {
	Known bool
	Steps []string
}

// JS renders the path as a property chain rooted at the given variable.
func (p DOMPath) JS(root string) string {
	if !p.Known {
		return ""
	}
	if len(p.Steps) == 0 {
		return root
	}
	return root + "." + strings.Join(p.Steps, ".")
}

func (p DOMPath) push(step string) DOMPath {
	steps := make([]string, len(p.Steps), len(p.Steps)+1)
	copy(steps, p.Steps)
	return DOMPath{Known: p.Known, Steps: append(steps, step)}
}

var unknownPath = DOMPath{}

// resolvePaths computes, per slot and region id, the DOM path from the scope
// root. It is a single read-only pass over a finished IR; sibling positions
// that follow a component, a dynamic conditional, or a loop region become
// unknown, since those render a runtime-dependent number of nodes.
func resolvePaths(root *IRNode) map[string]DOMPath {
	r := &pathResolver{paths: make(map[string]DOMPath)}
	scope := DOMPath{Known: true}
	switch root.Kind {
	case IRElement:
		r.visitElement(root, scope)
	case IRFragment:
		// The first element child is the scope; its later siblings are
		// addressed relative to it.
		r.visitSiblings(root.Children, scope)
	}
	return r.paths
}

type pathResolver struct {
	paths map[string]DOMPath
}

func (r *pathResolver) record(id string, p DOMPath) {
	if id != "" {
		r.paths[id] = p
	}
}

// visitElement records the element's own slots at the given path and then
// walks its children one structural level down.
func (r *pathResolver) visitElement(el *IRNode, p DOMPath) {
	for _, id := range el.Slots() {
		r.record(id, p)
	}
	r.visitChildren(el, p)
}

func (r *pathResolver) visitChildren(el *IRNode, p DOMPath) {
	first := true
	known := p.Known
	var cur DOMPath
	advance := func() DOMPath {
		if !known {
			return unknownPath
		}
		if first {
			first = false
			cur = p.push("firstElementChild")
		} else {
			cur = cur.push("nextElementSibling")
		}
		return cur
	}
	r.walkSiblingList(el, el.Children, p, advance, &known)
}

// visitSiblings handles a fragment root, where the first element child is
// itself the scope (empty path) and later elements step from it.
func (r *pathResolver) visitSiblings(children []*IRNode, scope DOMPath) {
	first := true
	known := scope.Known
	var cur DOMPath
	advance := func() DOMPath {
		if !known {
			return unknownPath
		}
		if first {
			first = false
			cur = scope
		} else {
			cur = cur.push("nextElementSibling")
		}
		return cur
	}
	r.walkSiblingList(nil, children, scope, advance, &known)
}

// walkSiblingList drives one sibling level. The advance callback yields the
// path of the next element position; known flips off permanently once a
// runtime-variant sibling has been seen.
func (r *pathResolver) walkSiblingList(parent *IRNode, children []*IRNode, parentPath DOMPath, advance func() DOMPath, known *bool) {
	for _, child := range children {
		switch child.Kind {
		case IRElement:
			p := advance()
			if !*known {
				p = unknownPath
			}
			r.visitElement(child, p)
		case IRFragment:
			// A nested fragment contributes its children at this level.
			r.walkSiblingList(parent, child.Children, parentPath, advance, known)
		case IRLoop:
			// The loop's rows are children of the enclosing element, so the
			// enclosing element is the list root. Row counts vary at
			// runtime, so everything after the loop is unknown.
			if parent != nil {
				r.record(child.Loop.ID, parentPath)
			} else {
				r.record(child.Loop.ID, unknownPath)
			}
			*known = false
		case IRConditional:
			if elementSwapMode(child.Cond) {
				// Both branches are single elements: the region occupies
				// exactly one element position and is addressed directly.
				p := advance()
				if !*known {
					p = unknownPath
				}
				r.record(child.Cond.ID, p)
			}
			// Branch internals are swapped at runtime; their slots always
			// use the scoped fallback.
			r.markBranchUnknown(child.Cond.Then)
			r.markBranchUnknown(child.Cond.Else)
			*known = false
		case IRComponent:
			// Components may render any number of nodes.
			*known = false
		}
	}
}

// markBranchUnknown forces scoped-lookup addressing for every slot inside a
// conditional branch.
func (r *pathResolver) markBranchUnknown(n *IRNode) {
	if n == nil {
		return
	}
	for _, id := range n.Slots() {
		r.record(id, unknownPath)
	}
	if n.Kind == IRConditional {
		r.markBranchUnknown(n.Cond.Then)
		r.markBranchUnknown(n.Cond.Else)
	}
	if n.Kind == IRLoop && n.Loop.Body != nil {
		r.record(n.Loop.ID, unknownPath)
	}
	for _, c := range n.Children {
		r.markBranchUnknown(c)
	}
}

// validateFragmentRoot rejects fragment roots whose dynamic content sits
// outside the scope element. Hydration addresses everything from the first
// element child, which carries the scope attribute; a reactive region,
// component, or dynamic expression that is its sibling has no addressable
// anchor in the wire format.
func validateFragmentRoot(root *IRNode, path string) *Diagnostic {
	if root == nil || root.Kind != IRFragment {
		return nil
	}
	seenScope := false
	for _, c := range root.Children {
		if c.Kind == IRElement && !seenScope {
			seenScope = true
			continue
		}
		if !irFullyStatic(c) {
			return &Diagnostic{
				Kind:    DiagShape,
				Path:    path,
				Line:    c.Line,
				Message: "dynamic content at a fragment root must live inside the component's first element",
			}
		}
	}
	return nil
}

// elementSwapMode reports whether a conditional region swaps a single
// element in place. That needs both branches present and each a lone
// element; every other shape renders between paired comment markers.
func elementSwapMode(region *CondRegion) bool {
	single := func(n *IRNode) bool {
		return n != nil && n.Kind == IRElement
	}
	return single(region.Then) && single(region.Else)
}
