// Package compiler turns flint component sources (JSX extended with the
// reactive primitives signal, memo, and effect) into three coordinated
// artifacts: an intermediate representation of static structure and reactive
// dependencies, initial-render markup, and an imperative client script that
// performs fine-grained DOM updates without a virtual DOM.
package compiler

import (
	"github.com/flintjs/flint/parser"
)

// PropDecl describes one declared component parameter.
type PropDecl struct {
	Name     string
	Type     string // "string", "number", "boolean", "array", "object", "any"
	Optional bool
	Default  parser.Expr // nil when no default
}

// SignalDecl is one `const [get, set] = signal(init)` declaration.
type SignalDecl struct {
	Getter string
	Setter string
	Init   parser.Expr
}

// MemoDecl is one `const name = memo(() => expr)` declaration.
type MemoDecl struct {
	Name string
	Body parser.Expr
}

// EffectDecl is one `effect(() => { ... })` statement.
type EffectDecl struct {
	Body *parser.EArrow
}

// ImportDecl is one import of the component source. Local imports (relative
// paths) are candidate child components; the rest pass through to the
// generated script untouched.
type ImportDecl struct {
	Default string
	Names   []string
	Path    string
	Local   bool
}

// ComponentSource is the analyzed record of one component file. It is
// produced once per file by the source analyzer, never mutated afterwards,
// and consumed by the IR builder.
type ComponentSource struct {
	Path         string
	Name         string
	Props        []PropDecl
	RestProp     string // name of a {...rest} parameter, "" when absent
	Signals      []SignalDecl
	Memos        []MemoDecl
	Effects      []EffectDecl
	Helpers      []parser.Stmt // local functions and constants, source order
	ModuleConsts []*parser.SVar
	Imports      []ImportDecl
	Guards       []*parser.SIf // early-return guards ahead of the markup return
	Markup       parser.JSXNode
}

// Prop looks up a declared prop by name.
func (c *ComponentSource) Prop(name string) *PropDecl {
	for i := range c.Props {
		if c.Props[i].Name == name {
			return &c.Props[i]
		}
	}
	return nil
}

// Class is the compile-time classification of an expression.
type Class int

const (
	// Static expressions reduce to a literal value at compile time.
	Static Class = iota
	// Dynamic expressions depend on reactive or runtime-only values.
	Dynamic
	// Unknown shapes are outside the classifier grammar; they are handled
	// exactly like Dynamic (over-classifying is safe, the reverse is a
	// correctness bug).
	Unknown
)

func (c Class) String() string {
	switch c {
	case Static:
		return "static"
	case Dynamic:
		return "dynamic"
	}
	return "unknown"
}

// ExprInfo is a classified expression: the reduced AST, its printed source,
// and — for Static — its folded value.
type ExprInfo struct {
	Class  Class
	Expr   parser.Expr
	Source string
	Value  any // set only when Class == Static
}

// IRKind tags an IR node.
type IRKind int

const (
	IRElement IRKind = iota
	IRText
	IRExpr
	IRConditional
	IRLoop
	IRComponent
	IRFragment
)

// IRAttr is one attribute of an element IR node.
type IRAttr struct {
	Name string
	Info ExprInfo
	Bool bool // presence-based boolean attribute
}

// EventBinding wires one DOM event to a handler expression.
type EventBinding struct {
	Slot    string // event-element slot id (v<N>); "" for delegated row events
	ID      string // event definition id, used by delegated list dispatch
	Event   string // DOM event name ("click", "blur", ...)
	Handler parser.Expr
	Capture bool        // required for non-bubbling events
	Guard   parser.Expr // non-nil when the handler body was `cond && action`
	Action  parser.Expr // the action of a guarded handler
}

// LoopRegion is a (possibly reactive) list rendering region.
type LoopRegion struct {
	ID          string
	Array       ExprInfo
	Reactive    bool // drives whether reconciliation code is emitted at all
	ItemVar     string
	IndexVar    string // "" when the map callback takes one parameter
	KeyExpr     parser.Expr
	Filter      parser.Expr
	Sort        parser.Expr
	FilterFirst bool // filter chained before sort
	Body        *IRNode
	Events      []EventBinding // delegated to the list root
}

// CondRegion is a conditional rendering region. An empty ID means the
// condition was resolved at compile time and no runtime region exists.
type CondRegion struct {
	ID   string
	Cond ExprInfo
	Then *IRNode // nil renders an empty marker region
	Else *IRNode

	// Events declared inside either branch. Swapping the region's content
	// would drop direct listeners, so these are delegated to the scope root
	// through event definition ids, the same way loop rows delegate.
	Events []EventBinding
}

// ComponentProp is one prop passed at a component use site.
type ComponentProp struct {
	Name   string
	Value  parser.Expr
	Spread bool
}

// ComponentUse is an opaque (runtime-initialized) child component use site.
type ComponentUse struct {
	Name     string
	Path     string // import specifier, resolved to a file by the resolver
	Props    []ComponentProp
	Instance string // per-use-site instance id for the scope attribute
	Reactive bool   // any prop reads a signal or memo: re-init on change

	// Filled by the resolver for opaque children.
	Markup string // child's server markup, embedded under the scope attribute
	Module string // module path of the child's generated client script
}

// IRNode is the tagged IR tree node. The tree is owned strictly top-down:
// parents exclusively own Children and no node points back at an ancestor,
// so the structure is acyclic and serializable as-is. Ancestor-dependent
// questions are answered by traversal passes, never stored pointers.
type IRNode struct {
	Kind     IRKind
	Line     int
	Children []*IRNode

	// IRElement
	Tag       string
	Attrs     []IRAttr
	Events    []EventBinding
	AttrSlot  string // a<N>: element carries dynamic attributes
	TextSlot  string // t<N>: element's text content is one dynamic expression
	EventSlot string // v<N>: element is a direct event target

	// IRText
	Text string
	Raw  bool // pre-rendered markup, emitted without escaping

	// IRExpr
	Expr *ExprInfo

	// IRConditional, IRLoop, IRComponent
	Cond *CondRegion
	Loop *LoopRegion
	Comp *ComponentUse
}

// Slots returns every slot id carried by the node, in a fixed order.
func (n *IRNode) Slots() []string {
	var ids []string
	for _, id := range []string{n.AttrSlot, n.TextSlot, n.EventSlot} {
		if id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// booleanAttrs are rendered presence-based: emitted bare when truthy and
// omitted entirely when falsy.
var booleanAttrs = map[string]bool{
	"disabled":   true,
	"checked":    true,
	"readonly":   true,
	"required":   true,
	"hidden":     true,
	"autofocus":  true,
	"autoplay":   true,
	"controls":   true,
	"loop":       true,
	"muted":      true,
	"selected":   true,
	"multiple":   true,
	"novalidate": true,
	"open":       true,
	"reversed":   true,
	"ismap":      true,
	"default":    true,
}

// voidElements never take children or a closing tag.
var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"param": true, "source": true, "track": true, "wbr": true,
}

// nonBubblingEvents need capture-phase listeners; delegated and direct
// listeners alike would otherwise never fire for them.
var nonBubblingEvents = map[string]bool{
	"focus":        true,
	"blur":         true,
	"mouseenter":   true,
	"mouseleave":   true,
	"pointerenter": true,
	"pointerleave": true,
	"load":         true,
	"unload":       true,
	"scroll":       true,
}

// isComponentTag reports whether a tag names a component rather than an HTML
// element. Component tags start with an uppercase letter.
func isComponentTag(tag string) bool {
	return len(tag) > 0 && tag[0] >= 'A' && tag[0] <= 'Z'
}

// idGen issues slot and region identifiers for one compilation run. Counters
// are owned by the run and threaded through the builder, never shared
// globals, so concurrent compilations cannot interfere and identical input
// always yields identical ids.
type idGen struct {
	counters map[string]int
}

func newIDGen() *idGen {
	return &idGen{counters: make(map[string]int)}
}

// next returns the next id for a purpose prefix: "t" text, "a" attribute,
// "l" list root, "c" conditional region, "v" event element, "e" event
// definition, "i" child instance.
func (g *idGen) next(prefix string) string {
	n := g.counters[prefix]
	g.counters[prefix]++
	return prefix + itoa(n)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [8]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}
