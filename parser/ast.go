package parser

// Expr is the interface implemented by every expression node.
type Expr interface{ exprNode() }

// ENumber is a numeric literal. Raw preserves the source spelling so
// printing round-trips without float formatting drift.
type ENumber struct {
	Value float64
	Raw   string
}

// EString is a string literal (value is unquoted, unescaped).
type EString struct{ Value string }

// EBool is true or false.
type EBool struct{ Value bool }

// ENull is the null literal.
type ENull struct{}

// EUndefined is the undefined literal.
type EUndefined struct{}

// EIdent is a bare identifier reference.
type EIdent struct{ Name string }

// EMember is property access: Obj.Prop (or Obj?.Prop when Optional).
type EMember struct {
	Obj      Expr
	Prop     string
	Optional bool
}

// EIndex is computed element access: Obj[Index].
type EIndex struct{ Obj, Index Expr }

// ECall is a call expression.
type ECall struct {
	Callee Expr
	Args   []Expr
}

// EUnary is a prefix unary expression; Op is one of "!", "-", "+".
type EUnary struct {
	Op      string
	Operand Expr
}

// EBinary is an infix binary expression.
type EBinary struct {
	Op          string
	Left, Right Expr
}

// ETernary is Cond ? Then : Else.
type ETernary struct{ Cond, Then, Else Expr }

// EAssign is an assignment expression; Op is "=", "+=", or "-=". Assignments
// are never static and only appear inside handler and effect bodies.
type EAssign struct {
	Target Expr
	Op     string
	Value  Expr
}

// EArrow is an arrow function. Either Body (expression form) or BlockBody
// (statement form) is set, never both.
type EArrow struct {
	Params    []string
	Body      Expr
	BlockBody []Stmt
}

// ObjectField is one entry of an object literal.
type ObjectField struct {
	Key       string
	Value     Expr
	Spread    bool // {...Value}
	Shorthand bool // {key} — Value is an EIdent of the same name
}

// EObject is an object literal with source-ordered fields.
type EObject struct{ Fields []ObjectField }

// EArray is an array literal.
type EArray struct{ Items []Expr }

// ESpread is a spread element inside an array literal or call arguments.
type ESpread struct{ Value Expr }

// TemplatePart is one segment of a template literal: either raw text or an
// interpolated expression.
type TemplatePart struct {
	Text string
	Expr Expr // nil for text parts
}

// ETemplate is a template literal split into parts.
type ETemplate struct{ Parts []TemplatePart }

// EJSX wraps a markup tree appearing in expression position.
type EJSX struct{ Node JSXNode }

// EOpaque carries source text the parser recognized lexically but not
// grammatically. The classifier treats it as Dynamic (fail soft).
type EOpaque struct{ Source string }

func (*ENumber) exprNode()    {}
func (*EString) exprNode()    {}
func (*EBool) exprNode()      {}
func (*ENull) exprNode()      {}
func (*EUndefined) exprNode() {}
func (*EIdent) exprNode()     {}
func (*EMember) exprNode()    {}
func (*EIndex) exprNode()     {}
func (*ECall) exprNode()      {}
func (*EUnary) exprNode()     {}
func (*EBinary) exprNode()    {}
func (*ETernary) exprNode()   {}
func (*EAssign) exprNode()    {}
func (*EArrow) exprNode()     {}
func (*EObject) exprNode()    {}
func (*EArray) exprNode()     {}
func (*ESpread) exprNode()    {}
func (*ETemplate) exprNode()  {}
func (*EJSX) exprNode()       {}
func (*EOpaque) exprNode()    {}

// JSXNode is the interface implemented by markup tree nodes.
type JSXNode interface{ jsxNode() }

// JSXText is raw text between tags (whitespace not yet trimmed).
type JSXText struct{ Value string }

// JSXExpr is a {expr} interpolation child.
type JSXExpr struct {
	Value Expr
	Line  int
}

// JSXAttr is one attribute on a JSX element.
type JSXAttr struct {
	Name   string
	Value  Expr // nil for bare attributes (<input disabled>)
	Spread bool // {...expr}: Name is "", Value is the spread operand
}

// JSXElement is <tag ...>children</tag>. A capitalized Tag names a component.
type JSXElement struct {
	Tag         string
	Attrs       []JSXAttr
	Children    []JSXNode
	SelfClosing bool
	Line        int
}

// JSXFragment is <>children</>.
type JSXFragment struct{ Children []JSXNode }

func (*JSXText) jsxNode()     {}
func (*JSXExpr) jsxNode()     {}
func (*JSXElement) jsxNode()  {}
func (*JSXFragment) jsxNode() {}

// Stmt is the interface implemented by statement nodes.
type Stmt interface{ stmtNode() }

// Pattern is a binding pattern on the left of a declaration.
type Pattern interface{ patternNode() }

// PIdent binds a single name.
type PIdent struct{ Name string }

// PArray is array destructuring: const [a, b] = ...
type PArray struct{ Elems []string }

// ObjectPatternProp is one property of an object destructuring pattern.
type ObjectPatternProp struct {
	Name    string
	Alias   string // "" when not renamed ({items: list})
	Default Expr   // nil when no default
	Rest    bool   // {...rest}
}

// PObject is object destructuring: function C({title, n = 0, ...rest}).
type PObject struct{ Props []ObjectPatternProp }

func (*PIdent) patternNode()  {}
func (*PArray) patternNode()  {}
func (*PObject) patternNode() {}

// SImport is an import declaration.
type SImport struct {
	Default string   // default import name, "" when absent
	Names   []string // named imports
	Path    string
	Line    int
}

// SVar is a const/let/var declaration with a single declarator.
type SVar struct {
	Kind    string // "const", "let", "var"
	Pattern Pattern
	Init    Expr
	Line    int
}

// SFunc is a function declaration.
type SFunc struct {
	Name   string
	Params []Pattern
	Body   []Stmt
	Line   int
}

// SExpr is an expression statement.
type SExpr struct {
	Value Expr
	Line  int
}

// SReturn is a return statement.
type SReturn struct {
	Value Expr // nil for bare return
	Line  int
}

// SIf is an if statement with optional else branch.
type SIf struct {
	Cond Expr
	Then []Stmt
	Else []Stmt
	Line int
}

// SExportDefault is `export default function ...`.
type SExportDefault struct {
	Fn   *SFunc
	Line int
}

func (*SImport) stmtNode()        {}
func (*SVar) stmtNode()           {}
func (*SFunc) stmtNode()          {}
func (*SExpr) stmtNode()          {}
func (*SReturn) stmtNode()        {}
func (*SIf) stmtNode()            {}
func (*SExportDefault) stmtNode() {}

// File is one parsed component source file.
type File struct {
	Path  string
	Stmts []Stmt
}

// DefaultExport returns the file's `export default function`, or nil.
func (f *File) DefaultExport() *SFunc {
	for _, s := range f.Stmts {
		if ex, ok := s.(*SExportDefault); ok {
			return ex.Fn
		}
	}
	return nil
}
