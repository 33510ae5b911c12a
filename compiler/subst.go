package compiler

import "github.com/flintjs/flint/parser"

// substitute returns a copy of the expression with every free occurrence of
// a bound identifier replaced by its replacement expression. The pass is
// syntax-driven: arrow parameters shadow bindings for their body, and text
// inside string or template literal parts is never touched, so it cannot be
// fooled the way a textual replacement could.
//
// A call whose callee substitutes to an expression arrow is beta-reduced:
// the arrow's parameters bind to the call arguments and the body replaces
// the call. This is what expands inlined "prop call" patterns like
// onToggle() into the caller-provided handler body.
func substitute(e parser.Expr, bindings map[string]parser.Expr) parser.Expr {
	if e == nil || len(bindings) == 0 {
		return e
	}
	switch n := e.(type) {
	case *parser.ENumber, *parser.EString, *parser.EBool, *parser.ENull,
		*parser.EUndefined, *parser.EOpaque:
		return e
	case *parser.EIdent:
		if repl, ok := bindings[n.Name]; ok {
			return repl
		}
		return n
	case *parser.EMember:
		return &parser.EMember{Obj: substitute(n.Obj, bindings), Prop: n.Prop, Optional: n.Optional}
	case *parser.EIndex:
		return &parser.EIndex{Obj: substitute(n.Obj, bindings), Index: substitute(n.Index, bindings)}
	case *parser.ECall:
		callee := substitute(n.Callee, bindings)
		args := make([]parser.Expr, len(n.Args))
		for i, a := range n.Args {
			args[i] = substitute(a, bindings)
		}
		if arrow, ok := callee.(*parser.EArrow); ok && arrow.Body != nil && len(arrow.Params) >= len(args) {
			inner := make(map[string]parser.Expr, len(arrow.Params))
			for i, p := range arrow.Params {
				if i < len(args) {
					inner[p] = args[i]
				} else {
					inner[p] = &parser.EUndefined{}
				}
			}
			return substitute(arrow.Body, inner)
		}
		return &parser.ECall{Callee: callee, Args: args}
	case *parser.EUnary:
		return &parser.EUnary{Op: n.Op, Operand: substitute(n.Operand, bindings)}
	case *parser.EBinary:
		return &parser.EBinary{Op: n.Op, Left: substitute(n.Left, bindings), Right: substitute(n.Right, bindings)}
	case *parser.ETernary:
		return &parser.ETernary{
			Cond: substitute(n.Cond, bindings),
			Then: substitute(n.Then, bindings),
			Else: substitute(n.Else, bindings),
		}
	case *parser.EAssign:
		return &parser.EAssign{
			Target: substitute(n.Target, bindings),
			Op:     n.Op,
			Value:  substitute(n.Value, bindings),
		}
	case *parser.EArrow:
		inner := withoutShadowed(bindings, n.Params)
		out := &parser.EArrow{Params: n.Params}
		if n.Body != nil {
			out.Body = substitute(n.Body, inner)
			return out
		}
		out.BlockBody = make([]parser.Stmt, len(n.BlockBody))
		for i, s := range n.BlockBody {
			out.BlockBody[i] = substituteStmt(s, inner)
		}
		return out
	case *parser.EObject:
		out := &parser.EObject{Fields: make([]parser.ObjectField, len(n.Fields))}
		for i, f := range n.Fields {
			nf := f
			nf.Value = substitute(f.Value, bindings)
			if nf.Shorthand {
				if _, still := nf.Value.(*parser.EIdent); !still {
					nf.Shorthand = false
				}
			}
			out.Fields[i] = nf
		}
		return out
	case *parser.EArray:
		out := &parser.EArray{Items: make([]parser.Expr, len(n.Items))}
		for i, item := range n.Items {
			out.Items[i] = substitute(item, bindings)
		}
		return out
	case *parser.ESpread:
		return &parser.ESpread{Value: substitute(n.Value, bindings)}
	case *parser.ETemplate:
		out := &parser.ETemplate{Parts: make([]parser.TemplatePart, len(n.Parts))}
		for i, p := range n.Parts {
			if p.Expr != nil {
				out.Parts[i] = parser.TemplatePart{Expr: substitute(p.Expr, bindings)}
			} else {
				out.Parts[i] = p
			}
		}
		return out
	case *parser.EJSX:
		return &parser.EJSX{Node: substituteJSX(n.Node, bindings)}
	}
	return e
}

// substituteJSX applies substitute through markup: attribute values and
// interpolation children. Raw text children pass through untouched.
func substituteJSX(node parser.JSXNode, bindings map[string]parser.Expr) parser.JSXNode {
	switch n := node.(type) {
	case *parser.JSXText:
		return n
	case *parser.JSXExpr:
		return &parser.JSXExpr{Value: substitute(n.Value, bindings), Line: n.Line}
	case *parser.JSXElement:
		out := &parser.JSXElement{
			Tag:         n.Tag,
			SelfClosing: n.SelfClosing,
			Line:        n.Line,
			Attrs:       make([]parser.JSXAttr, len(n.Attrs)),
			Children:    make([]parser.JSXNode, len(n.Children)),
		}
		for i, a := range n.Attrs {
			na := a
			na.Value = substitute(a.Value, bindings)
			out.Attrs[i] = na
		}
		for i, c := range n.Children {
			out.Children[i] = substituteJSX(c, bindings)
		}
		return out
	case *parser.JSXFragment:
		out := &parser.JSXFragment{Children: make([]parser.JSXNode, len(n.Children))}
		for i, c := range n.Children {
			out.Children[i] = substituteJSX(c, bindings)
		}
		return out
	}
	return node
}

func substituteStmt(s parser.Stmt, bindings map[string]parser.Expr) parser.Stmt {
	switch st := s.(type) {
	case *parser.SExpr:
		return &parser.SExpr{Value: substitute(st.Value, bindings), Line: st.Line}
	case *parser.SReturn:
		return &parser.SReturn{Value: substitute(st.Value, bindings), Line: st.Line}
	case *parser.SVar:
		out := &parser.SVar{Kind: st.Kind, Pattern: st.Pattern, Init: substitute(st.Init, bindings), Line: st.Line}
		return out
	case *parser.SIf:
		out := &parser.SIf{Cond: substitute(st.Cond, bindings), Line: st.Line}
		for _, inner := range st.Then {
			out.Then = append(out.Then, substituteStmt(inner, bindings))
		}
		for _, inner := range st.Else {
			out.Else = append(out.Else, substituteStmt(inner, bindings))
		}
		return out
	}
	return s
}

// withoutShadowed drops bindings hidden by an inner parameter list.
func withoutShadowed(bindings map[string]parser.Expr, params []string) map[string]parser.Expr {
	shadowed := false
	for _, p := range params {
		if _, ok := bindings[p]; ok {
			shadowed = true
			break
		}
	}
	if !shadowed {
		return bindings
	}
	out := make(map[string]parser.Expr, len(bindings))
	for k, v := range bindings {
		out[k] = v
	}
	for _, p := range params {
		delete(out, p)
	}
	return out
}
