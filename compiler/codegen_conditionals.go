package compiler

import (
	"fmt"
	"strings"

	"github.com/flintjs/flint/parser"
)

// Conditional codegen. A dynamic conditional region gets two branch render
// functions sharing one region id and a single reactive binding that swaps
// the region's DOM content in place. Two swap forms exist: a single-element
// region replaces the element itself; every other shape replaces the
// content between its paired comment markers. The binding's first run only
// registers dependencies, since the server markup already is the initial
// render.

// emitCondTemplates declares both branch render functions, and the region
// render function when the region is nested inside another template.
func emitCondTemplates(w *jsWriter, c condPlan) {
	region := c.Region
	thenFn := "then_" + region.ID
	elseFn := "else_" + region.ID
	w.linef("const %s = () => %s;", thenFn, branchTemplateJS(region.Then))
	w.linef("const %s = () => %s;", elseFn, branchTemplateJS(region.Else))
	if c.InTemplate {
		emitRegionFn(w, region, parser.Print(region.Cond.Expr), thenFn, elseFn)
	}
}

// emitCondBindings installs the region's swap binding.
func emitCondBindings(w *jsWriter, u *unit, c condPlan) {
	if c.InTemplate {
		return
	}
	region := c.Region
	thenFn := "then_" + region.ID
	elseFn := "else_" + region.ID
	cond := parser.Print(region.Cond.Expr)
	w.note("%s: {%s ? ... : ...}", region.ID, cond)
	if elementSwapMode(region) {
		emitElementSwap(w, u, region, cond, thenFn, elseFn)
		return
	}
	first := region.ID + "_first"
	w.linef("let %s = true;", first)
	w.line("effect(() => {")
	w.in()
	w.linef("const html = %s ? %s() : %s();", cond, thenFn, elseFn)
	w.linef("if (%s) { %s = false; return; }", first, first)
	w.linef("swapRegion(scope, %q, html);", region.ID)
	w.out()
	w.line("});")
}

// emitRegionFn defines the render function used when this region is nested
// inside another region's template: it renders the whole region including
// its markers, so an outer re-render reproduces the wire format.
func emitRegionFn(w *jsWriter, region *CondRegion, cond, thenFn, elseFn string) {
	if elementSwapMode(region) {
		w.linef("const %s = () => %s ? %s() : %s();", regionFnName(region.ID), cond, thenFn, elseFn)
		return
	}
	open := "<!--" + markerName + ":" + region.ID + "-->"
	closing := "<!--/" + markerName + ":" + region.ID + "-->"
	w.linef("const %s = () => `%s${%s ? %s() : %s()}%s`;",
		regionFnName(region.ID), open, cond, thenFn, elseFn, closing)
}

// emitElementSwap replaces the region's single live element, tracking the
// current node across swaps in a local.
func emitElementSwap(w *jsWriter, u *unit, region *CondRegion, cond, thenFn, elseFn string) {
	live := region.ID + "_el"
	if p := u.Paths[region.ID]; p.Known {
		w.linef("let %s = %s;", live, p.JS("scope"))
	} else {
		w.linef("let %s = scope.querySelector('[%s~=%q]');", live, slotAttr, region.ID)
	}
	first := region.ID + "_first"
	w.linef("let %s = true;", first)
	w.line("effect(() => {")
	w.in()
	w.linef("const html = %s ? %s() : %s();", cond, thenFn, elseFn)
	w.linef("if (%s) { %s = false; return; }", first, first)
	w.line("const tpl = document.createElement(\"template\");")
	w.line("tpl.innerHTML = html;")
	w.line("const next = tpl.content.firstElementChild;")
	w.linef("%s.replaceWith(next);", live)
	w.linef("%s = next;", live)
	w.out()
	w.line("});")
}

// branchTemplateJS renders one branch as a template-literal expression. A
// nil branch is the empty region, rendered as an empty string so it can be
// swapped back in later.
func branchTemplateJS(branch *IRNode) string {
	if branch == nil {
		return `""`
	}
	var sb strings.Builder
	templateNode(&sb, branch)
	return fmt.Sprintf("`%s`", sb.String())
}
