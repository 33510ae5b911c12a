package compiler

import (
	"fmt"
	"sort"

	"github.com/cespare/xxhash/v2"
	"github.com/flintjs/flint/parser"
)

// Artifact is the compiled output of one component file, as consumed by the
// build layer.
type Artifact struct {
	// Name is the component's exported name.
	Name string
	// Path is the source file the artifact was compiled from.
	Path string
	// Markup is the initial-render markup.
	Markup string
	// Client is the hydration script; empty when the component needs no
	// client behavior.
	Client string
	// Hash is the content hash over markup and client script. Identical
	// source always yields an identical hash, so the build layer can cache
	// by it.
	Hash string
	// Filename is the hash-suffixed client script name.
	Filename string
	// HasClient reports whether a client script was generated.
	HasClient bool
	// Props is the component's declared parameter list.
	Props []PropDecl
}

func artifactOf(u *unit) *Artifact {
	return &Artifact{
		Name:      u.Source.Name,
		Path:      u.Path,
		Markup:    u.Markup,
		Client:    u.Client,
		Hash:      u.Hash,
		Filename:  u.Filename,
		HasClient: u.Client != "",
		Props:     u.Source.Props,
	}
}

// Artifacts returns every component compiled so far in this run, sorted by
// source path. Children reached through imports are included, so a build
// can write each hydration script the entry scripts import.
func (c *Compiler) Artifacts() []*Artifact {
	paths := make([]string, 0, len(c.units))
	for p, u := range c.units {
		if u.resolved {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)
	out := make([]*Artifact, 0, len(paths))
	for _, p := range paths {
		out = append(out, artifactOf(c.units[p]))
	}
	return out
}

// contentHash fingerprints a compiled component. xxhash is not
// cryptographic; the hash only keys build caches and output filenames.
func contentHash(markup, client string) string {
	h := xxhash.New()
	h.WriteString(markup)
	h.WriteString("\x00")
	h.WriteString(client)
	return fmt.Sprintf("%016x", h.Sum64())
}

func clientFilename(name, hash string) string {
	return name + "." + hash[:12] + ".js"
}

// AdapterInput is everything an output backend may inspect to produce
// target-specific server source for one component. The core never looks at
// what an adapter returns.
type AdapterInput struct {
	Name         string
	Path         string
	Props        []PropDecl
	Markup       string
	IR           *IRNode
	Signals      []SignalDecl
	Memos        []MemoDecl
	Children     []string // opaque child component names
	ModuleConsts []*parser.SVar
	Imports      []ImportDecl
}

// Adapter turns a compiled component into backend-specific server source.
type Adapter interface {
	Emit(in *AdapterInput) (string, error)
}

// AdapterInputFor assembles the adapter view of a compiled artifact's unit.
func (c *Compiler) AdapterInputFor(path string) (*AdapterInput, *Diagnostic) {
	u, err := c.compileUnit(path)
	if err != nil {
		return nil, err
	}
	var children []string
	collectChildNames(u.IR, &children)
	return &AdapterInput{
		Name:         u.Source.Name,
		Path:         u.Path,
		Props:        u.Source.Props,
		Markup:       u.Markup,
		IR:           u.IR,
		Signals:      u.Source.Signals,
		Memos:        u.Source.Memos,
		Children:     children,
		ModuleConsts: u.Source.ModuleConsts,
		Imports:      u.Source.Imports,
	}, nil
}

func collectChildNames(n *IRNode, out *[]string) {
	if n == nil {
		return
	}
	if n.Kind == IRComponent {
		*out = append(*out, n.Comp.Name)
	}
	if n.Kind == IRLoop {
		collectChildNames(n.Loop.Body, out)
	}
	if n.Kind == IRConditional {
		collectChildNames(n.Cond.Then, out)
		collectChildNames(n.Cond.Else, out)
	}
	for _, c := range n.Children {
		collectChildNames(c, out)
	}
}
