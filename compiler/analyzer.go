package compiler

import (
	"strings"

	"github.com/flintjs/flint/parser"
)

// Analyze extracts the reactive declarations, helpers, props, and markup of
// one parsed component file. Declaration extraction is shape-based and order
// independent: a `const [get, set] = signal(x)` is recognized wherever it
// appears in the body. Shapes outside the recognized grammar are not errors;
// they are kept as ordinary helpers, so the classifier later treats their
// names as plain non-reactive values.
func Analyze(file *parser.File) (*ComponentSource, *Diagnostic) {
	src := &ComponentSource{Path: file.Path}

	var fn *parser.SFunc
	for _, stmt := range file.Stmts {
		switch s := stmt.(type) {
		case *parser.SImport:
			src.Imports = append(src.Imports, ImportDecl{
				Default: s.Default,
				Names:   s.Names,
				Path:    s.Path,
				Local:   isLocalImport(s.Path),
			})
		case *parser.SVar:
			src.ModuleConsts = append(src.ModuleConsts, s)
		case *parser.SExportDefault:
			fn = s.Fn
		}
	}

	if fn == nil {
		return nil, &Diagnostic{
			Kind:    DiagShape,
			Path:    file.Path,
			Message: "component file has no 'export default function'",
		}
	}
	src.Name = fn.Name
	analyzeParams(src, fn)

	for _, stmt := range fn.Body {
		switch s := stmt.(type) {
		case *parser.SVar:
			if sig, ok := matchSignal(s); ok {
				src.Signals = append(src.Signals, sig)
				continue
			}
			if memo, ok := matchMemo(s); ok {
				src.Memos = append(src.Memos, memo)
				continue
			}
			src.Helpers = append(src.Helpers, s)
		case *parser.SFunc:
			src.Helpers = append(src.Helpers, s)
		case *parser.SExpr:
			if eff, ok := matchEffect(s); ok {
				src.Effects = append(src.Effects, eff)
				continue
			}
			src.Helpers = append(src.Helpers, s)
		case *parser.SIf:
			src.Guards = append(src.Guards, s)
		case *parser.SReturn:
			jsx, ok := s.Value.(*parser.EJSX)
			if !ok {
				return nil, &Diagnostic{
					Kind:    DiagShape,
					Path:    file.Path,
					Line:    s.Line,
					Message: "component must return markup",
				}
			}
			src.Markup = jsx.Node
		}
	}

	if src.Markup == nil {
		return nil, &Diagnostic{
			Kind:    DiagShape,
			Path:    file.Path,
			Message: "component " + src.Name + " never returns markup",
		}
	}
	return src, nil
}

func isLocalImport(path string) bool {
	return strings.HasPrefix(path, "./") || strings.HasPrefix(path, "../")
}

func analyzeParams(src *ComponentSource, fn *parser.SFunc) {
	if len(fn.Params) == 0 {
		return
	}
	switch pat := fn.Params[0].(type) {
	case *parser.PIdent:
		// Undestructured props object: individual names are unknown, so the
		// whole object is carried opaquely.
		src.RestProp = pat.Name
	case *parser.PObject:
		for _, prop := range pat.Props {
			if prop.Rest {
				src.RestProp = prop.Name
				continue
			}
			name := prop.Name
			if prop.Alias != "" {
				name = prop.Alias
			}
			src.Props = append(src.Props, PropDecl{
				Name:     name,
				Type:     propType(prop.Default),
				Optional: prop.Default != nil,
				Default:  prop.Default,
			})
		}
	}
}

// propType infers a prop's type tag from its default literal.
func propType(def parser.Expr) string {
	switch def.(type) {
	case *parser.EString, *parser.ETemplate:
		return "string"
	case *parser.ENumber:
		return "number"
	case *parser.EBool:
		return "boolean"
	case *parser.EArray:
		return "array"
	case *parser.EObject:
		return "object"
	}
	return "any"
}

// matchSignal recognizes `const [get, set] = signal(init)`. Any deviation —
// wrong arity, a different callee, extra destructured names — is simply not
// a signal and falls through to the helper list.
func matchSignal(s *parser.SVar) (SignalDecl, bool) {
	pat, ok := s.Pattern.(*parser.PArray)
	if !ok || len(pat.Elems) != 2 {
		return SignalDecl{}, false
	}
	call, ok := s.Init.(*parser.ECall)
	if !ok || !isCallTo(call, "signal") || len(call.Args) > 1 {
		return SignalDecl{}, false
	}
	var init parser.Expr = &parser.EUndefined{}
	if len(call.Args) == 1 {
		init = call.Args[0]
	}
	return SignalDecl{Getter: pat.Elems[0], Setter: pat.Elems[1], Init: init}, true
}

// matchMemo recognizes `const name = memo(() => expr)`.
func matchMemo(s *parser.SVar) (MemoDecl, bool) {
	pat, ok := s.Pattern.(*parser.PIdent)
	if !ok {
		return MemoDecl{}, false
	}
	call, ok := s.Init.(*parser.ECall)
	if !ok || !isCallTo(call, "memo") || len(call.Args) != 1 {
		return MemoDecl{}, false
	}
	arrow, ok := call.Args[0].(*parser.EArrow)
	if !ok || arrow.Body == nil || len(arrow.Params) != 0 {
		return MemoDecl{}, false
	}
	return MemoDecl{Name: pat.Name, Body: arrow.Body}, true
}

// matchEffect recognizes `effect(() => { ... })` statements.
func matchEffect(s *parser.SExpr) (EffectDecl, bool) {
	call, ok := s.Value.(*parser.ECall)
	if !ok || !isCallTo(call, "effect") || len(call.Args) != 1 {
		return EffectDecl{}, false
	}
	arrow, ok := call.Args[0].(*parser.EArrow)
	if !ok || len(arrow.Params) != 0 {
		return EffectDecl{}, false
	}
	return EffectDecl{Body: arrow}, true
}

func isCallTo(call *parser.ECall, name string) bool {
	ident, ok := call.Callee.(*parser.EIdent)
	return ok && ident.Name == name
}
