package parser

import (
	"math"
	"strconv"
	"strings"
)

// Operator precedence levels for printing. Higher binds tighter.
const (
	precLowest   = 0
	precTernary  = 1
	precOr       = 2
	precAnd      = 3
	precEquality = 4
	precCompare  = 5
	precAdd      = 6
	precMul      = 7
	precUnary    = 8
	precCall     = 9
)

func binaryPrec(op string) int {
	switch op {
	case "||", "??":
		return precOr
	case "&&":
		return precAnd
	case "==", "!=", "===", "!==":
		return precEquality
	case "<", "<=", ">", ">=":
		return precCompare
	case "+", "-":
		return precAdd
	case "*", "/", "%":
		return precMul
	}
	return precLowest
}

// Print renders an expression back to JavaScript source. The output is
// normalized (single spaces around binary operators, double-quoted strings)
// so identical ASTs always print identically.
func Print(e Expr) string {
	var sb strings.Builder
	printExpr(&sb, e, precLowest)
	return sb.String()
}

func printExpr(sb *strings.Builder, e Expr, parent int) {
	switch n := e.(type) {
	case *ENumber:
		if n.Raw != "" {
			sb.WriteString(n.Raw)
		} else {
			sb.WriteString(formatNumber(n.Value))
		}
	case *EString:
		sb.WriteString(QuoteJS(n.Value))
	case *EBool:
		if n.Value {
			sb.WriteString("true")
		} else {
			sb.WriteString("false")
		}
	case *ENull:
		sb.WriteString("null")
	case *EUndefined:
		sb.WriteString("undefined")
	case *EIdent:
		sb.WriteString(n.Name)
	case *EMember:
		printExpr(sb, n.Obj, precCall)
		if n.Optional {
			sb.WriteString("?.")
		} else {
			sb.WriteString(".")
		}
		sb.WriteString(n.Prop)
	case *EIndex:
		printExpr(sb, n.Obj, precCall)
		sb.WriteString("[")
		printExpr(sb, n.Index, precLowest)
		sb.WriteString("]")
	case *ECall:
		printExpr(sb, n.Callee, precCall)
		sb.WriteString("(")
		for i, a := range n.Args {
			if i > 0 {
				sb.WriteString(", ")
			}
			printExpr(sb, a, precLowest)
		}
		sb.WriteString(")")
	case *EUnary:
		if parent > precUnary {
			sb.WriteString("(")
		}
		sb.WriteString(n.Op)
		printExpr(sb, n.Operand, precUnary)
		if parent > precUnary {
			sb.WriteString(")")
		}
	case *EBinary:
		p := binaryPrec(n.Op)
		if parent > p {
			sb.WriteString("(")
		}
		printExpr(sb, n.Left, p)
		sb.WriteString(" " + n.Op + " ")
		printExpr(sb, n.Right, p+1)
		if parent > p {
			sb.WriteString(")")
		}
	case *ETernary:
		if parent > precTernary {
			sb.WriteString("(")
		}
		printExpr(sb, n.Cond, precTernary+1)
		sb.WriteString(" ? ")
		printExpr(sb, n.Then, precTernary)
		sb.WriteString(" : ")
		printExpr(sb, n.Else, precTernary)
		if parent > precTernary {
			sb.WriteString(")")
		}
	case *EAssign:
		if parent > precLowest {
			sb.WriteString("(")
		}
		printExpr(sb, n.Target, precCall)
		sb.WriteString(" " + n.Op + " ")
		printExpr(sb, n.Value, precLowest)
		if parent > precLowest {
			sb.WriteString(")")
		}
	case *EArrow:
		if parent > precLowest {
			sb.WriteString("(")
		}
		sb.WriteString("(" + strings.Join(n.Params, ", ") + ") => ")
		if n.BlockBody != nil {
			sb.WriteString("{ ")
			for i, s := range n.BlockBody {
				if i > 0 {
					sb.WriteString(" ")
				}
				sb.WriteString(PrintStmt(s))
			}
			sb.WriteString(" }")
		} else {
			// Parenthesize object-literal bodies, which would otherwise
			// parse as a block.
			if _, isObj := n.Body.(*EObject); isObj {
				sb.WriteString("(")
				printExpr(sb, n.Body, precLowest)
				sb.WriteString(")")
			} else {
				printExpr(sb, n.Body, precLowest)
			}
		}
		if parent > precLowest {
			sb.WriteString(")")
		}
	case *EObject:
		sb.WriteString("{ ")
		for i, f := range n.Fields {
			if i > 0 {
				sb.WriteString(", ")
			}
			if f.Spread {
				sb.WriteString("...")
				printExpr(sb, f.Value, precLowest)
			} else if f.Shorthand {
				sb.WriteString(f.Key)
			} else {
				sb.WriteString(f.Key + ": ")
				printExpr(sb, f.Value, precLowest)
			}
		}
		sb.WriteString(" }")
	case *EArray:
		sb.WriteString("[")
		for i, it := range n.Items {
			if i > 0 {
				sb.WriteString(", ")
			}
			printExpr(sb, it, precLowest)
		}
		sb.WriteString("]")
	case *ESpread:
		sb.WriteString("...")
		printExpr(sb, n.Value, precLowest)
	case *ETemplate:
		sb.WriteString("`")
		for _, p := range n.Parts {
			if p.Expr != nil {
				sb.WriteString("${")
				printExpr(sb, p.Expr, precLowest)
				sb.WriteString("}")
			} else {
				sb.WriteString(escapeTemplateText(p.Text))
			}
		}
		sb.WriteString("`")
	case *EJSX:
		sb.WriteString(printJSX(n.Node))
	case *EOpaque:
		sb.WriteString(n.Source)
	}
}

func escapeTemplateText(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "`", "\\`")
	s = strings.ReplaceAll(s, "${", "\\${")
	return s
}

// QuoteJS renders s as a double-quoted JavaScript string literal.
func QuoteJS(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\t':
			sb.WriteString(`\t`)
		case '\r':
			sb.WriteString(`\r`)
		default:
			sb.WriteByte(c)
		}
	}
	sb.WriteByte('"')
	return sb.String()
}

// formatNumber matches Number.prototype.toString: plain decimal between
// 1e-6 and 1e21, exponent form with an unpadded exponent outside.
func formatNumber(v float64) string {
	abs := math.Abs(v)
	if abs != 0 && (abs >= 1e21 || abs < 1e-6) {
		s := strconv.FormatFloat(v, 'e', -1, 64)
		i := strings.IndexByte(s, 'e')
		mant, exp := s[:i], s[i+1:]
		sign := "+"
		if exp[0] == '+' || exp[0] == '-' {
			sign = string(exp[0])
			exp = exp[1:]
		}
		if t := strings.TrimLeft(exp, "0"); t != "" {
			exp = t
		}
		return mant + "e" + sign + exp
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// PrintStmt renders a statement back to JavaScript source (single line).
func PrintStmt(s Stmt) string {
	switch n := s.(type) {
	case *SVar:
		return n.Kind + " " + printPattern(n.Pattern) + " = " + Print(n.Init) + ";"
	case *SFunc:
		var params []string
		for _, p := range n.Params {
			params = append(params, printPattern(p))
		}
		var sb strings.Builder
		sb.WriteString("function " + n.Name + "(" + strings.Join(params, ", ") + ") { ")
		for i, st := range n.Body {
			if i > 0 {
				sb.WriteString(" ")
			}
			sb.WriteString(PrintStmt(st))
		}
		sb.WriteString(" }")
		return sb.String()
	case *SExpr:
		return Print(n.Value) + ";"
	case *SReturn:
		if n.Value == nil {
			return "return;"
		}
		return "return " + Print(n.Value) + ";"
	case *SIf:
		var sb strings.Builder
		sb.WriteString("if (" + Print(n.Cond) + ") { ")
		for i, st := range n.Then {
			if i > 0 {
				sb.WriteString(" ")
			}
			sb.WriteString(PrintStmt(st))
		}
		sb.WriteString(" }")
		if n.Else != nil {
			sb.WriteString(" else { ")
			for i, st := range n.Else {
				if i > 0 {
					sb.WriteString(" ")
				}
				sb.WriteString(PrintStmt(st))
			}
			sb.WriteString(" }")
		}
		return sb.String()
	case *SImport:
		var parts []string
		if n.Default != "" {
			parts = append(parts, n.Default)
		}
		if len(n.Names) > 0 {
			parts = append(parts, "{ "+strings.Join(n.Names, ", ")+" }")
		}
		if len(parts) == 0 {
			return "import " + QuoteJS(n.Path) + ";"
		}
		return "import " + strings.Join(parts, ", ") + " from " + QuoteJS(n.Path) + ";"
	case *SExportDefault:
		return "export default " + PrintStmt(n.Fn)
	}
	return ""
}

func printPattern(p Pattern) string {
	switch n := p.(type) {
	case *PIdent:
		return n.Name
	case *PArray:
		return "[" + strings.Join(n.Elems, ", ") + "]"
	case *PObject:
		var props []string
		for _, pr := range n.Props {
			s := pr.Name
			if pr.Rest {
				s = "..." + pr.Name
			}
			if pr.Alias != "" {
				s = pr.Name + ": " + pr.Alias
			}
			if pr.Default != nil {
				s += " = " + Print(pr.Default)
			}
			props = append(props, s)
		}
		return "{ " + strings.Join(props, ", ") + " }"
	}
	return ""
}

func printJSX(n JSXNode) string {
	switch j := n.(type) {
	case *JSXText:
		return j.Value
	case *JSXExpr:
		return "{" + Print(j.Value) + "}"
	case *JSXFragment:
		var sb strings.Builder
		sb.WriteString("<>")
		for _, c := range j.Children {
			sb.WriteString(printJSX(c))
		}
		sb.WriteString("</>")
		return sb.String()
	case *JSXElement:
		var sb strings.Builder
		sb.WriteString("<" + j.Tag)
		for _, a := range j.Attrs {
			sb.WriteString(" ")
			if a.Spread {
				sb.WriteString("{..." + Print(a.Value) + "}")
			} else if a.Value == nil {
				sb.WriteString(a.Name)
			} else if s, ok := a.Value.(*EString); ok {
				sb.WriteString(a.Name + "=" + QuoteJS(s.Value))
			} else {
				sb.WriteString(a.Name + "={" + Print(a.Value) + "}")
			}
		}
		if j.SelfClosing && len(j.Children) == 0 {
			sb.WriteString(" />")
			return sb.String()
		}
		sb.WriteString(">")
		for _, c := range j.Children {
			sb.WriteString(printJSX(c))
		}
		sb.WriteString("</" + j.Tag + ">")
		return sb.String()
	}
	return ""
}
