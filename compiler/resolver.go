package compiler

import (
	"path"
	"strings"

	"github.com/flintjs/flint/parser"
)

// resolver walks a built IR and settles every component use site. Per site,
// in priority order: fully evaluate the child at compile time and inline its
// static markup, inline the child's markup with syntax-level prop
// substitution, or keep the child opaque and runtime-initialized. Each
// strategy fails soft to the next weaker one; the resolver never guesses a
// value.
type resolver struct {
	c *Compiler
}

// resolveTree replaces component nodes in place, recursing into loop bodies
// and conditional branches. basePath is the file whose imports produced the
// subtree, so nested specifiers resolve against the right directory.
func (r *resolver) resolveTree(node *IRNode, scope *Scope, ids *idGen, basePath string) (*IRNode, *Diagnostic) {
	if node == nil {
		return nil, nil
	}
	if node.Kind == IRComponent {
		return r.resolveUse(node, scope, ids, basePath)
	}
	for i, child := range node.Children {
		resolved, err := r.resolveTree(child, scope, ids, basePath)
		if err != nil {
			return nil, err
		}
		node.Children[i] = resolved
	}
	if node.Kind == IRLoop && node.Loop.Body != nil {
		body, err := r.resolveTree(node.Loop.Body, scope, ids, basePath)
		if err != nil {
			return nil, err
		}
		node.Loop.Body = body
	}
	if node.Kind == IRConditional {
		var err *Diagnostic
		if node.Cond.Then, err = r.resolveTree(node.Cond.Then, scope, ids, basePath); err != nil {
			return nil, err
		}
		if node.Cond.Else, err = r.resolveTree(node.Cond.Else, scope, ids, basePath); err != nil {
			return nil, err
		}
	}
	return node, nil
}

func (r *resolver) resolveUse(node *IRNode, scope *Scope, ids *idGen, basePath string) (*IRNode, *Diagnostic) {
	use := node.Comp
	if use.Path == "" {
		return nil, &Diagnostic{
			Kind: DiagShape, Path: basePath, Line: node.Line,
			Message: "component <" + use.Name + "> has no local import",
		}
	}
	childPath := resolveImportPath(basePath, use.Path)
	for _, p := range r.c.stack {
		if p == childPath {
			return nil, cycleDiagnostic(append(append([]string{}, r.c.stack...), childPath))
		}
	}
	child, err := r.c.loadSource(childPath)
	if err != nil {
		err.Chain = append(append([]string{}, r.c.stack...), childPath)
		return nil, err
	}

	if inlined, ok := r.tryStaticInline(node, use, child, childPath, scope); ok {
		return inlined, nil
	}
	if inlined, ok, derr := r.tryIRInline(node, use, child, childPath, scope, ids); derr != nil {
		return nil, derr
	} else if ok {
		return inlined, nil
	}
	return r.keepOpaque(node, use, childPath)
}

// tryStaticInline is the strongest strategy: every prop value is static and
// the child holds no reactive state, so the child fully evaluates at compile
// time and its markup lands inline. No runtime artifact remains for the use
// site.
func (r *resolver) tryStaticInline(node *IRNode, use *ComponentUse, child *sourceUnit, childPath string, scope *Scope) (*IRNode, bool) {
	src := child.Source
	if len(src.Signals) > 0 || len(src.Memos) > 0 || len(src.Effects) > 0 || len(node.Children) > 0 {
		return nil, false
	}
	values, ok := r.staticPropValues(use, src, child, scope)
	if !ok {
		return nil, false
	}
	boundScope := child.Scope.bindStatic(values)
	markup, ok := evaluateGuards(src, boundScope)
	if !ok {
		return nil, false
	}
	if markup == nil {
		return &IRNode{Kind: IRText, Raw: true}, true
	}
	shim := &ComponentSource{Path: childPath, Name: src.Name, Imports: src.Imports, Markup: markup}
	childIR, derr := buildIR(shim, boundScope, newIDGen())
	if derr != nil {
		return nil, false
	}
	r.c.stack = append(r.c.stack, childPath)
	childIR, derr = r.resolveTree(childIR, boundScope, newIDGen(), childPath)
	r.c.stack = r.c.stack[:len(r.c.stack)-1]
	if derr != nil || !irFullyStatic(childIR) {
		return nil, false
	}
	rendered := renderMarkup(childIR, boundScope, map[string]DOMPath{}, "")
	return &IRNode{Kind: IRText, Text: rendered, Raw: true}, true
}

// staticPropValues folds every use-site prop, filling in declared defaults
// and expanding a folded spread object into per-prop values.
func (r *resolver) staticPropValues(use *ComponentUse, src *ComponentSource, child *sourceUnit, scope *Scope) (map[string]any, bool) {
	values := make(map[string]any)
	rest := &objectValue{vals: make(map[string]any)}
	for _, p := range use.Props {
		v, ok := fold(p.Value, scope, false)
		if !ok {
			return nil, false
		}
		if p.Spread {
			obj, isObj := v.(*objectValue)
			if !isObj {
				return nil, false
			}
			for _, k := range obj.keys {
				if src.Prop(k) != nil {
					values[k] = obj.vals[k]
				} else {
					rest.set(k, obj.vals[k])
				}
			}
			continue
		}
		if src.Prop(p.Name) != nil {
			values[p.Name] = v
		} else {
			rest.set(p.Name, v)
		}
	}
	for i := range src.Props {
		decl := &src.Props[i]
		if _, passed := values[decl.Name]; passed {
			continue
		}
		if decl.Default == nil {
			values[decl.Name] = undefinedVal{}
			continue
		}
		v, ok := fold(decl.Default, child.Scope, false)
		if !ok {
			return nil, false
		}
		values[decl.Name] = v
	}
	if src.RestProp != "" {
		values[src.RestProp] = rest
	} else if len(rest.keys) > 0 {
		return nil, false
	}
	return values, true
}

// evaluateGuards runs the child's early-return guards under static values.
// A truthy guard returning markup wins; a truthy guard returning null means
// the child renders nothing. An unfoldable condition aborts the strategy.
func evaluateGuards(src *ComponentSource, scope *Scope) (parser.JSXNode, bool) {
	for _, guard := range src.Guards {
		v, ok := fold(guard.Cond, scope, false)
		if !ok {
			return nil, false
		}
		if !truthy(v) {
			continue
		}
		ret := findReturn(guard.Then)
		if ret == nil {
			return nil, false
		}
		switch val := ret.Value.(type) {
		case nil, *parser.ENull, *parser.EUndefined:
			return nil, true
		case *parser.EJSX:
			return val.Node, true
		}
		return nil, false
	}
	return src.Markup, true
}

func findReturn(stmts []parser.Stmt) *parser.SReturn {
	for _, s := range stmts {
		if ret, ok := s.(*parser.SReturn); ok {
			return ret
		}
	}
	return nil
}

// tryIRInline is the middle strategy: the child has no reactive state of its
// own, so its markup inlines into the parent with an AST-level substitution
// of parameter names for the caller's argument expressions. The result is
// built with the parent's id generator and classified in the parent's
// scope, so dynamic props become ordinary parent bindings.
func (r *resolver) tryIRInline(node *IRNode, use *ComponentUse, child *sourceUnit, childPath string, scope *Scope, ids *idGen) (*IRNode, bool, *Diagnostic) {
	src := child.Source
	if len(src.Signals) > 0 || len(src.Memos) > 0 || len(src.Effects) > 0 ||
		len(src.Guards) > 0 || len(node.Children) > 0 {
		return nil, false, nil
	}
	bindings, ok := r.inlineBindings(use, src, child)
	if !ok {
		return nil, false, nil
	}
	substituted := substituteJSX(src.Markup, bindings)
	shim := &ComponentSource{Path: childPath, Name: src.Name, Imports: src.Imports, Markup: substituted}
	childIR, derr := buildIR(shim, scope, ids)
	if derr != nil {
		return nil, false, nil
	}
	r.c.stack = append(r.c.stack, childPath)
	childIR, derr = r.resolveTree(childIR, scope, ids, childPath)
	r.c.stack = r.c.stack[:len(r.c.stack)-1]
	if derr != nil {
		return nil, false, derr
	}
	return childIR, true, nil
}

// inlineBindings maps every name free in the child's markup to a caller
// expression: passed props, declared defaults, spread expansion into
// per-field member reads, and the child's own constants and simple helper
// functions as substitutable expressions.
func (r *resolver) inlineBindings(use *ComponentUse, src *ComponentSource, child *sourceUnit) (map[string]parser.Expr, bool) {
	bindings := make(map[string]parser.Expr)
	var spread parser.Expr
	for _, p := range use.Props {
		if p.Spread {
			if spread != nil {
				return nil, false
			}
			spread = p.Value
			continue
		}
		bindings[p.Name] = p.Value
	}
	for i := range src.Props {
		decl := &src.Props[i]
		if _, passed := bindings[decl.Name]; passed {
			continue
		}
		if spread != nil {
			bindings[decl.Name] = &parser.EMember{Obj: spread, Prop: decl.Name}
			continue
		}
		if decl.Default != nil {
			bindings[decl.Name] = decl.Default
		} else {
			bindings[decl.Name] = &parser.EUndefined{}
		}
	}
	if src.RestProp != "" {
		if spread == nil {
			return nil, false
		}
		bindings[src.RestProp] = spread
	}
	for _, h := range src.Helpers {
		switch st := h.(type) {
		case *parser.SVar:
			pat, ok := st.Pattern.(*parser.PIdent)
			if !ok {
				return nil, false
			}
			if v, folded := fold(st.Init, child.Scope, false); folded {
				bindings[pat.Name] = valueToExpr(v)
			} else {
				return nil, false
			}
		case *parser.SFunc:
			arrow, ok := funcToArrow(st)
			if !ok {
				return nil, false
			}
			bindings[st.Name] = arrow
		default:
			return nil, false
		}
	}
	for _, mc := range src.ModuleConsts {
		pat, ok := mc.Pattern.(*parser.PIdent)
		if !ok {
			return nil, false
		}
		if v, folded := fold(mc.Init, child.Scope, false); folded {
			bindings[pat.Name] = valueToExpr(v)
		} else {
			return nil, false
		}
	}
	return bindings, true
}

// funcToArrow converts a single-return helper function into an expression
// arrow that the substitution pass can beta-reduce at call sites.
func funcToArrow(fn *parser.SFunc) (*parser.EArrow, bool) {
	if len(fn.Body) != 1 {
		return nil, false
	}
	ret, ok := fn.Body[0].(*parser.SReturn)
	if !ok || ret.Value == nil {
		return nil, false
	}
	params := make([]string, len(fn.Params))
	for i, p := range fn.Params {
		ident, ok := p.(*parser.PIdent)
		if !ok {
			return nil, false
		}
		params[i] = ident.Name
	}
	return &parser.EArrow{Params: params, Body: ret.Value}, true
}

// keepOpaque is the weakest strategy: the child compiles independently and
// the use site becomes a runtime initialization record. The child's markup
// embeds under the instance's scope attribute so hydration finds it.
func (r *resolver) keepOpaque(node *IRNode, use *ComponentUse, childPath string) (*IRNode, *Diagnostic) {
	child, err := r.c.compileUnit(childPath)
	if err != nil {
		return nil, err
	}
	use.Path = childPath
	use.Markup = renderMarkup(child.IR, child.Scope, child.Paths, use.Instance)
	use.Module = "./" + child.Filename
	return node, nil
}

// resolveImportPath turns a relative import specifier into a file path,
// appending the source extension when the specifier has none.
func resolveImportPath(basePath, spec string) string {
	resolved := path.Join(path.Dir(basePath), spec)
	if path.Ext(resolved) == "" {
		resolved += ".jsx"
	}
	return resolved
}

func cycleDiagnostic(chain []string) *Diagnostic {
	return &Diagnostic{
		Kind:    DiagCycle,
		Path:    chain[len(chain)-1],
		Message: "circular component import: " + strings.Join(chain, " -> "),
		Chain:   chain,
	}
}
