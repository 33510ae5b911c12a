package compiler

import (
	"errors"

	"github.com/flintjs/flint/parser"
)

// ReadFunc is the single I/O capability the compiler depends on. It is
// injected by the host, never performed internally, so hosts may cache or
// batch reads however they like.
type ReadFunc func(path string) (string, error)

// Options configures one compilation run.
type Options struct {
	// Read loads a source file by path. Required.
	Read ReadFunc
	// RuntimeModule is the import specifier of the reactive runtime used by
	// generated client scripts. Defaults to "@flint/runtime".
	RuntimeModule string
	// Dev keeps generated output readable: one binding per line and source
	// expressions carried through as comments where they help debugging.
	Dev bool
}

// Compiler compiles component files for one run. A run owns its caches and
// id counters, so independent runs never interfere and may execute in
// parallel on the host side. Compilation itself is single-threaded,
// synchronous, and deterministic: identical input yields byte-identical
// output.
type Compiler struct {
	opts    Options
	sources map[string]*sourceUnit
	units   map[string]*unit
	stack   []string // paths being compiled, outermost first
}

// sourceUnit is a parsed and analyzed source file, cached per run. Loading
// a source never recurses, so this cache carries no cycle state.
type sourceUnit struct {
	Source *ComponentSource
	Scope  *Scope
}

// unit is one fully compiled component file.
type unit struct {
	Path     string
	Source   *ComponentSource
	Scope    *Scope
	IR       *IRNode
	Paths    map[string]DOMPath
	Markup   string
	Client   string
	Hash     string
	Filename string
	resolved bool
}

// New creates a compiler for one run.
func New(opts Options) *Compiler {
	if opts.RuntimeModule == "" {
		opts.RuntimeModule = "@flint/runtime"
	}
	return &Compiler{
		opts:    opts,
		sources: make(map[string]*sourceUnit),
		units:   make(map[string]*unit),
	}
}

// Compile compiles one entry-point component and every component it
// reaches, returning the entry point's artifact. Reached children are
// memoized in the run cache; a second Compile call on the same run reuses
// them.
func (c *Compiler) Compile(entryPath string) (*Artifact, *Diagnostic) {
	u, err := c.compileUnit(entryPath)
	if err != nil {
		return nil, err
	}
	return artifactOf(u), nil
}

// CompileAll compiles several entry points against the shared run cache.
// The first failure stops the run.
func (c *Compiler) CompileAll(paths []string) ([]*Artifact, *Diagnostic) {
	out := make([]*Artifact, 0, len(paths))
	for _, p := range paths {
		a, err := c.Compile(p)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// loadSource reads, parses, and analyzes one file, memoized per run.
func (c *Compiler) loadSource(path string) (*sourceUnit, *Diagnostic) {
	if su, ok := c.sources[path]; ok {
		return su, nil
	}
	text, err := c.opts.Read(path)
	if err != nil {
		return nil, &Diagnostic{
			Kind:    DiagRead,
			Path:    path,
			Message: err.Error(),
			Chain:   append(append([]string{}, c.stack...), path),
		}
	}
	file, err := parser.Parse(path, text)
	if err != nil {
		var syn *parser.SyntaxError
		if errors.As(err, &syn) {
			return nil, &Diagnostic{
				Kind: DiagParse, Path: syn.Path, Line: syn.Line, Col: syn.Col,
				Message: syn.Msg,
			}
		}
		return nil, &Diagnostic{Kind: DiagParse, Path: path, Message: err.Error()}
	}
	src, diag := Analyze(file)
	if diag != nil {
		return nil, diag
	}
	su := &sourceUnit{Source: src, Scope: NewScope(src)}
	c.sources[path] = su
	return su, nil
}

// compileUnit runs the full pipeline for one file: analyze, build IR,
// resolve child components, compute DOM paths, render markup, and generate
// the client script. Re-entering a path still on the stack is a circular
// import and fails with the import chain.
func (c *Compiler) compileUnit(path string) (*unit, *Diagnostic) {
	if u, ok := c.units[path]; ok {
		if !u.resolved {
			return nil, cycleDiagnostic(append(append([]string{}, c.stack...), path))
		}
		return u, nil
	}
	su, diag := c.loadSource(path)
	if diag != nil {
		return nil, diag
	}
	u := &unit{Path: path, Source: su.Source, Scope: su.Scope}
	c.units[path] = u
	c.stack = append(c.stack, path)
	defer func() { c.stack = c.stack[:len(c.stack)-1] }()

	src := su.Source
	if len(src.Guards) > 0 {
		// Early-return guards over static conditions resolve at compile
		// time and can replace the component's markup outright. Dynamic
		// guards fail soft: the main markup renders and the guard is left
		// to the host.
		if markup, ok := evaluateGuards(src, su.Scope); ok && markup != src.Markup {
			clone := *src
			clone.Markup = markup
			src = &clone
		}
	}
	ids := newIDGen()
	ir, diag := buildIR(src, su.Scope, ids)
	if diag != nil {
		return nil, diag
	}
	ir, diag = (&resolver{c: c}).resolveTree(ir, su.Scope, ids, path)
	if diag != nil {
		return nil, diag
	}
	if diag := validateFragmentRoot(ir, path); diag != nil {
		return nil, diag
	}
	u.IR = ir
	u.Paths = resolvePaths(ir)
	u.Markup = renderMarkup(ir, su.Scope, u.Paths, su.Source.Name)
	u.Client = generateClient(u, c.opts)
	u.Hash = contentHash(u.Markup, u.Client)
	u.Filename = clientFilename(su.Source.Name, u.Hash)
	u.resolved = true
	return u, nil
}
