package compiler

import (
	"math"
	"strconv"
	"strings"

	"github.com/flintjs/flint/parser"
)

// undefinedVal is the compile-time stand-in for JavaScript undefined. JS null
// maps to Go nil.
type undefinedVal struct{}

// objectValue is a folded object literal with source-ordered keys, so that
// printing a folded object is deterministic.
type objectValue struct {
	keys []string
	vals map[string]any
}

func (o *objectValue) get(key string) (any, bool) {
	v, ok := o.vals[key]
	return v, ok
}

func (o *objectValue) set(key string, v any) {
	if _, exists := o.vals[key]; !exists {
		o.keys = append(o.keys, key)
	}
	o.vals[key] = v
}

// Scope carries the names visible to the classifier: reactive getters,
// foldable constants, and names that are only known at runtime.
type Scope struct {
	signals map[string]*SignalDecl // getter name -> declaration
	setters map[string]string      // setter name -> getter name
	memos   map[string]*MemoDecl
	consts  map[string]any  // names folded to compile-time values
	runtime map[string]bool // props, helpers, loop vars: runtime-known
}

// NewScope builds the classifier scope of one component: signals and memos
// register as reactive, props and helpers as runtime names, and module plus
// local constants fold to values where their initializers allow.
func NewScope(src *ComponentSource) *Scope {
	s := &Scope{
		signals: make(map[string]*SignalDecl),
		setters: make(map[string]string),
		memos:   make(map[string]*MemoDecl),
		consts:  make(map[string]any),
		runtime: make(map[string]bool),
	}
	for i := range src.Signals {
		sig := &src.Signals[i]
		s.signals[sig.Getter] = sig
		s.setters[sig.Setter] = sig.Getter
	}
	for i := range src.Memos {
		s.memos[src.Memos[i].Name] = &src.Memos[i]
	}
	for i := range src.Props {
		s.runtime[src.Props[i].Name] = true
	}
	if src.RestProp != "" {
		s.runtime[src.RestProp] = true
	}
	for _, h := range src.Helpers {
		switch st := h.(type) {
		case *parser.SFunc:
			s.runtime[st.Name] = true
		case *parser.SVar:
			if pat, ok := st.Pattern.(*parser.PIdent); ok {
				if v, ok := fold(st.Init, s, false); ok {
					s.consts[pat.Name] = v
				} else {
					s.runtime[pat.Name] = true
				}
			}
		}
	}
	for _, mc := range src.ModuleConsts {
		if pat, ok := mc.Pattern.(*parser.PIdent); ok {
			if v, ok := fold(mc.Init, s, false); ok {
				s.consts[pat.Name] = v
			} else {
				s.runtime[pat.Name] = true
			}
		}
	}
	return s
}

// child returns a copy of the scope with extra runtime names (loop
// variables, arrow parameters) bound.
func (s *Scope) child(names ...string) *Scope {
	c := &Scope{
		signals: s.signals,
		setters: s.setters,
		memos:   s.memos,
		consts:  s.consts,
		runtime: make(map[string]bool, len(s.runtime)+len(names)),
	}
	for k := range s.runtime {
		c.runtime[k] = true
	}
	for _, n := range names {
		c.runtime[n] = true
	}
	return c
}

// shadow returns a copy where names no longer resolve to constants or
// reactive declarations: a shadowed name is a fresh runtime binding.
func (s *Scope) shadow(names []string) *Scope {
	if len(names) == 0 {
		return s
	}
	c := &Scope{
		signals: make(map[string]*SignalDecl, len(s.signals)),
		setters: make(map[string]string, len(s.setters)),
		memos:   make(map[string]*MemoDecl, len(s.memos)),
		consts:  make(map[string]any, len(s.consts)),
		runtime: make(map[string]bool, len(s.runtime)+len(names)),
	}
	shadowed := make(map[string]bool, len(names))
	for _, n := range names {
		shadowed[n] = true
	}
	for k, v := range s.signals {
		if !shadowed[k] {
			c.signals[k] = v
		}
	}
	for k, v := range s.setters {
		if !shadowed[k] {
			c.setters[k] = v
		}
	}
	for k, v := range s.memos {
		if !shadowed[k] {
			c.memos[k] = v
		}
	}
	for k, v := range s.consts {
		if !shadowed[k] {
			c.consts[k] = v
		}
	}
	for k := range s.runtime {
		c.runtime[k] = true
	}
	for _, n := range names {
		c.runtime[n] = true
	}
	return c
}

// bindStatic returns a copy with extra compile-time constant bindings (used
// by the inliner to substitute statically-known props).
func (s *Scope) bindStatic(values map[string]any) *Scope {
	c := s.child()
	c.consts = make(map[string]any, len(s.consts)+len(values))
	for k, v := range s.consts {
		c.consts[k] = v
	}
	for k, v := range values {
		c.consts[k] = v
		delete(c.runtime, k)
	}
	return c
}

// classify decides whether an expression is statically known or reactive.
// Statically-known sub-expressions are partially evaluated; a reactive
// getter call anywhere makes the whole expression Dynamic. Shapes outside
// the grammar classify Unknown and are handled exactly like Dynamic — the
// compiler never silently downgrades a reactive expression to Static.
func classify(e parser.Expr, scope *Scope) ExprInfo {
	if v, ok := fold(e, scope, false); ok {
		lit := valueToExpr(v)
		return ExprInfo{Class: Static, Expr: lit, Source: parser.Print(lit), Value: v}
	}
	reduced := reduce(e, scope)
	cls := Unknown
	if isReactiveOrRuntime(e, scope) {
		cls = Dynamic
	}
	return ExprInfo{Class: cls, Expr: reduced, Source: parser.Print(reduced)}
}

// evalInitial evaluates an expression for the initial render: signal getter
// calls fold to the signal's initial value and memo calls fold to their
// computation over those initial values.
func evalInitial(e parser.Expr, scope *Scope) (any, bool) {
	return fold(e, scope, true)
}

// fold is the constant-folding interpreter over the classifier grammar. It
// never executes host code: only the closed expression grammar is evaluated.
// The initial flag substitutes reactive reads with their initial values.
func fold(e parser.Expr, scope *Scope, initial bool) (any, bool) {
	switch n := e.(type) {
	case *parser.ENumber:
		return n.Value, true
	case *parser.EString:
		return n.Value, true
	case *parser.EBool:
		return n.Value, true
	case *parser.ENull:
		return nil, true
	case *parser.EUndefined:
		return undefinedVal{}, true
	case *parser.EIdent:
		if v, ok := scope.consts[n.Name]; ok {
			return v, true
		}
		return nil, false
	case *parser.EUnary:
		v, ok := fold(n.Operand, scope, initial)
		if !ok {
			return nil, false
		}
		switch n.Op {
		case "!":
			return !truthy(v), true
		case "-":
			if f, ok := v.(float64); ok {
				return -f, true
			}
		case "+":
			if f, ok := v.(float64); ok {
				return f, true
			}
		}
		return nil, false
	case *parser.EBinary:
		l, ok := fold(n.Left, scope, initial)
		if !ok {
			return nil, false
		}
		// Short-circuit forms decide on the left operand alone.
		switch n.Op {
		case "&&":
			if !truthy(l) {
				return l, true
			}
			return fold(n.Right, scope, initial)
		case "||":
			if truthy(l) {
				return l, true
			}
			return fold(n.Right, scope, initial)
		case "??":
			if !isNullish(l) {
				return l, true
			}
			return fold(n.Right, scope, initial)
		}
		r, ok := fold(n.Right, scope, initial)
		if !ok {
			return nil, false
		}
		return foldBinary(n.Op, l, r)
	case *parser.ETernary:
		c, ok := fold(n.Cond, scope, initial)
		if !ok {
			return nil, false
		}
		if truthy(c) {
			return fold(n.Then, scope, initial)
		}
		return fold(n.Else, scope, initial)
	case *parser.EMember:
		obj, ok := fold(n.Obj, scope, initial)
		if !ok {
			return nil, false
		}
		return foldMember(obj, n.Prop)
	case *parser.EIndex:
		obj, ok := fold(n.Obj, scope, initial)
		if !ok {
			return nil, false
		}
		idx, ok := fold(n.Index, scope, initial)
		if !ok {
			return nil, false
		}
		switch o := obj.(type) {
		case []any:
			i, ok := idx.(float64)
			if !ok || i != float64(int(i)) || int(i) < 0 || int(i) >= len(o) {
				return nil, false
			}
			return o[int(i)], true
		case *objectValue:
			key, ok := idx.(string)
			if !ok {
				return nil, false
			}
			if v, found := o.get(key); found {
				return v, true
			}
			return undefinedVal{}, true
		}
		return nil, false
	case *parser.EObject:
		obj := &objectValue{vals: make(map[string]any)}
		for _, f := range n.Fields {
			if f.Spread {
				v, ok := fold(f.Value, scope, initial)
				if !ok {
					return nil, false
				}
				inner, ok := v.(*objectValue)
				if !ok {
					return nil, false
				}
				for _, k := range inner.keys {
					obj.set(k, inner.vals[k])
				}
				continue
			}
			v, ok := fold(f.Value, scope, initial)
			if !ok {
				return nil, false
			}
			obj.set(f.Key, v)
		}
		return obj, true
	case *parser.EArray:
		var arr []any
		for _, item := range n.Items {
			if sp, ok := item.(*parser.ESpread); ok {
				v, ok := fold(sp.Value, scope, initial)
				if !ok {
					return nil, false
				}
				inner, ok := v.([]any)
				if !ok {
					return nil, false
				}
				arr = append(arr, inner...)
				continue
			}
			v, ok := fold(item, scope, initial)
			if !ok {
				return nil, false
			}
			arr = append(arr, v)
		}
		if arr == nil {
			arr = []any{}
		}
		return arr, true
	case *parser.ETemplate:
		var sb strings.Builder
		for _, part := range n.Parts {
			if part.Expr == nil {
				sb.WriteString(part.Text)
				continue
			}
			v, ok := fold(part.Expr, scope, initial)
			if !ok {
				return nil, false
			}
			sb.WriteString(jsToString(v))
		}
		return sb.String(), true
	case *parser.ECall:
		if !initial {
			return nil, false
		}
		ident, ok := n.Callee.(*parser.EIdent)
		if !ok || len(n.Args) != 0 {
			return nil, false
		}
		if sig, ok := scope.signals[ident.Name]; ok {
			return fold(sig.Init, scope, true)
		}
		if memo, ok := scope.memos[ident.Name]; ok {
			return fold(memo.Body, scope, true)
		}
		return nil, false
	}
	return nil, false
}

func foldBinary(op string, l, r any) (any, bool) {
	switch op {
	case "+":
		ls, lIsStr := l.(string)
		rs, rIsStr := r.(string)
		if lIsStr || rIsStr {
			if !lIsStr {
				ls = jsToString(l)
			}
			if !rIsStr {
				rs = jsToString(r)
			}
			return ls + rs, true
		}
		lf, lok := l.(float64)
		rf, rok := r.(float64)
		if lok && rok {
			return lf + rf, true
		}
		return nil, false
	case "-", "*", "/", "%":
		lf, lok := l.(float64)
		rf, rok := r.(float64)
		if !lok || !rok {
			return nil, false
		}
		switch op {
		case "-":
			return lf - rf, true
		case "*":
			return lf * rf, true
		case "/":
			if rf == 0 {
				return nil, false
			}
			return lf / rf, true
		case "%":
			if rf == 0 {
				return nil, false
			}
			// math.Mod keeps the dividend's sign, matching JS `%`.
			return math.Mod(lf, rf), true
		}
	case "<", "<=", ">", ">=":
		if lf, ok := l.(float64); ok {
			if rf, ok := r.(float64); ok {
				return compareNumbers(op, lf, rf), true
			}
		}
		if ls, ok := l.(string); ok {
			if rs, ok := r.(string); ok {
				return compareStrings(op, ls, rs), true
			}
		}
		return nil, false
	case "==", "===", "!=", "!==":
		eq, ok := looseEqual(l, r, op == "==" || op == "!=")
		if !ok {
			return nil, false
		}
		if op == "!=" || op == "!==" {
			return !eq, true
		}
		return eq, true
	}
	return nil, false
}

func compareNumbers(op string, l, r float64) bool {
	switch op {
	case "<":
		return l < r
	case "<=":
		return l <= r
	case ">":
		return l > r
	}
	return l >= r
}

func compareStrings(op string, l, r string) bool {
	switch op {
	case "<":
		return l < r
	case "<=":
		return l <= r
	case ">":
		return l > r
	}
	return l >= r
}

// looseEqual folds equality for same-type primitives, plus the null ==
// undefined special case. Cross-type coercions are not folded; the
// expression simply stays unevaluated.
func looseEqual(l, r any, loose bool) (bool, bool) {
	if loose && isNullish(l) && isNullish(r) {
		return true, true
	}
	switch lv := l.(type) {
	case float64:
		if rv, ok := r.(float64); ok {
			return lv == rv, true
		}
	case string:
		if rv, ok := r.(string); ok {
			return lv == rv, true
		}
	case bool:
		if rv, ok := r.(bool); ok {
			return lv == rv, true
		}
	case nil:
		return r == nil, true
	case undefinedVal:
		_, ok := r.(undefinedVal)
		return ok, true
	}
	if _, ok := r.(undefinedVal); ok {
		return false, true
	}
	if r == nil {
		return false, true
	}
	return false, false
}

func foldMember(obj any, prop string) (any, bool) {
	switch o := obj.(type) {
	case *objectValue:
		if v, found := o.get(prop); found {
			return v, true
		}
		return undefinedVal{}, true
	case string:
		if prop == "length" {
			return float64(len(o)), true
		}
	case []any:
		if prop == "length" {
			return float64(len(o)), true
		}
	}
	return nil, false
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil, undefinedVal:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != ""
	}
	return true
}

func isNullish(v any) bool {
	if v == nil {
		return true
	}
	_, ok := v.(undefinedVal)
	return ok
}

// reduce rebuilds an expression with every foldable subtree replaced by its
// literal value. A ternary whose condition folds reduces to the live branch;
// a dynamic condition keeps both branches in their reduced forms.
func reduce(e parser.Expr, scope *Scope) parser.Expr {
	if v, ok := fold(e, scope, false); ok {
		return valueToExpr(v)
	}
	switch n := e.(type) {
	case *parser.EUnary:
		return &parser.EUnary{Op: n.Op, Operand: reduce(n.Operand, scope)}
	case *parser.EBinary:
		return &parser.EBinary{Op: n.Op, Left: reduce(n.Left, scope), Right: reduce(n.Right, scope)}
	case *parser.ETernary:
		if c, ok := fold(n.Cond, scope, false); ok {
			if truthy(c) {
				return reduce(n.Then, scope)
			}
			return reduce(n.Else, scope)
		}
		return &parser.ETernary{
			Cond: reduce(n.Cond, scope),
			Then: reduce(n.Then, scope),
			Else: reduce(n.Else, scope),
		}
	case *parser.EMember:
		return &parser.EMember{Obj: reduce(n.Obj, scope), Prop: n.Prop, Optional: n.Optional}
	case *parser.EIndex:
		return &parser.EIndex{Obj: reduce(n.Obj, scope), Index: reduce(n.Index, scope)}
	case *parser.ECall:
		call := &parser.ECall{Callee: reduce(n.Callee, scope)}
		for _, a := range n.Args {
			call.Args = append(call.Args, reduce(a, scope))
		}
		return call
	case *parser.EArrow:
		inner := scope.shadow(n.Params)
		if n.Body != nil {
			return &parser.EArrow{Params: n.Params, Body: reduce(n.Body, inner)}
		}
		return n
	case *parser.EObject:
		obj := &parser.EObject{}
		for _, f := range n.Fields {
			nf := f
			nf.Value = reduce(f.Value, scope)
			if nf.Shorthand {
				// The value may have reduced to a literal; keep the explicit
				// key so printing stays valid.
				if _, still := nf.Value.(*parser.EIdent); !still {
					nf.Shorthand = false
				}
			}
			obj.Fields = append(obj.Fields, nf)
		}
		return obj
	case *parser.EArray:
		arr := &parser.EArray{}
		for _, item := range n.Items {
			arr.Items = append(arr.Items, reduce(item, scope))
		}
		return arr
	case *parser.ESpread:
		return &parser.ESpread{Value: reduce(n.Value, scope)}
	case *parser.ETemplate:
		tpl := &parser.ETemplate{}
		for _, p := range n.Parts {
			if p.Expr != nil {
				tpl.Parts = append(tpl.Parts, parser.TemplatePart{Expr: reduce(p.Expr, scope)})
			} else {
				tpl.Parts = append(tpl.Parts, p)
			}
		}
		return tpl
	}
	return e
}

// isReactiveOrRuntime reports whether the expression touches anything only
// known at runtime: a reactive getter, a call (callees are never statically
// resolved), a runtime name, or an assignment.
func isReactiveOrRuntime(e parser.Expr, scope *Scope) bool {
	switch n := e.(type) {
	case *parser.EIdent:
		if scope.runtime[n.Name] {
			return true
		}
		if _, ok := scope.signals[n.Name]; ok {
			return true
		}
		if _, ok := scope.setters[n.Name]; ok {
			return true
		}
		_, ok := scope.memos[n.Name]
		return ok
	case *parser.ECall:
		return true
	case *parser.EAssign:
		return true
	case *parser.EUnary:
		return isReactiveOrRuntime(n.Operand, scope)
	case *parser.EBinary:
		return isReactiveOrRuntime(n.Left, scope) || isReactiveOrRuntime(n.Right, scope)
	case *parser.ETernary:
		return isReactiveOrRuntime(n.Cond, scope) ||
			isReactiveOrRuntime(n.Then, scope) ||
			isReactiveOrRuntime(n.Else, scope)
	case *parser.EMember:
		return isReactiveOrRuntime(n.Obj, scope)
	case *parser.EIndex:
		return isReactiveOrRuntime(n.Obj, scope) || isReactiveOrRuntime(n.Index, scope)
	case *parser.EArrow:
		inner := scope.shadow(n.Params)
		if n.Body != nil {
			return isReactiveOrRuntime(n.Body, inner)
		}
		for _, s := range n.BlockBody {
			if stmtTouchesRuntime(s, inner) {
				return true
			}
		}
		return false
	case *parser.EObject:
		for _, f := range n.Fields {
			if isReactiveOrRuntime(f.Value, scope) {
				return true
			}
		}
	case *parser.EArray:
		for _, item := range n.Items {
			if isReactiveOrRuntime(item, scope) {
				return true
			}
		}
	case *parser.ESpread:
		return isReactiveOrRuntime(n.Value, scope)
	case *parser.ETemplate:
		for _, p := range n.Parts {
			if p.Expr != nil && isReactiveOrRuntime(p.Expr, scope) {
				return true
			}
		}
	}
	return false
}

func stmtTouchesRuntime(s parser.Stmt, scope *Scope) bool {
	switch st := s.(type) {
	case *parser.SExpr:
		return isReactiveOrRuntime(st.Value, scope)
	case *parser.SReturn:
		return st.Value != nil && isReactiveOrRuntime(st.Value, scope)
	case *parser.SVar:
		return isReactiveOrRuntime(st.Init, scope)
	case *parser.SIf:
		if isReactiveOrRuntime(st.Cond, scope) {
			return true
		}
		for _, inner := range st.Then {
			if stmtTouchesRuntime(inner, scope) {
				return true
			}
		}
		for _, inner := range st.Else {
			if stmtTouchesRuntime(inner, scope) {
				return true
			}
		}
	}
	return false
}

// valueToExpr converts a folded value back into a literal AST node.
func valueToExpr(v any) parser.Expr {
	switch t := v.(type) {
	case nil:
		return &parser.ENull{}
	case undefinedVal:
		return &parser.EUndefined{}
	case bool:
		return &parser.EBool{Value: t}
	case float64:
		return &parser.ENumber{Value: t, Raw: formatJSNumber(t)}
	case string:
		return &parser.EString{Value: t}
	case []any:
		arr := &parser.EArray{}
		for _, item := range t {
			arr.Items = append(arr.Items, valueToExpr(item))
		}
		return arr
	case *objectValue:
		obj := &parser.EObject{}
		for _, k := range t.keys {
			obj.Fields = append(obj.Fields, parser.ObjectField{Key: k, Value: valueToExpr(t.vals[k])})
		}
		return obj
	}
	return &parser.EUndefined{}
}

// jsToString mirrors JavaScript string coercion for the folded value types.
func jsToString(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case undefinedVal:
		return "undefined"
	case bool:
		if t {
			return "true"
		}
		return "false"
	case float64:
		return formatJSNumber(t)
	case string:
		return t
	case []any:
		parts := make([]string, len(t))
		for i, item := range t {
			if isNullish(item) {
				parts[i] = ""
			} else {
				parts[i] = jsToString(item)
			}
		}
		return strings.Join(parts, ",")
	case *objectValue:
		return "[object Object]"
	}
	return ""
}

// textOf renders a folded value as markup text: nullish values render as
// nothing, everything else by string coercion.
func textOf(v any) string {
	if isNullish(v) {
		return ""
	}
	return jsToString(v)
}

// formatJSNumber renders a number the way Number.prototype.toString does:
// plain decimal up to 1e21 and down to 1e-6, exponent form with an unpadded
// exponent beyond those bounds.
func formatJSNumber(f float64) string {
	if math.IsNaN(f) {
		return "NaN"
	}
	if math.IsInf(f, 0) {
		if f < 0 {
			return "-Infinity"
		}
		return "Infinity"
	}
	abs := math.Abs(f)
	if abs != 0 && (abs >= 1e21 || abs < 1e-6) {
		return trimExponent(strconv.FormatFloat(f, 'e', -1, 64))
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// trimExponent strips the zero padding Go puts in exponents; JS prints
// "1e+21" and "1e-7", never "1e-07".
func trimExponent(s string) string {
	i := strings.IndexByte(s, 'e')
	if i < 0 {
		return s
	}
	mant, exp := s[:i], s[i+1:]
	sign := "+"
	if exp[0] == '+' || exp[0] == '-' {
		sign = string(exp[0])
		exp = exp[1:]
	}
	exp = strings.TrimLeft(exp, "0")
	if exp == "" {
		exp = "0"
	}
	return mant + "e" + sign + exp
}
