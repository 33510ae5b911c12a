// Command flintc compiles component files into initial-render markup and
// hydration scripts.
//
// Usage:
//
//	flintc [flags] entry.jsx [entry.jsx...]
//
// Each entry component and every component it imports is compiled once.
// The entry's markup lands in <out>/<Name>.html and every hydration script
// in <out>/<Name>.<hash>.js, where the hash fingerprints the compiled
// content.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/goforj/godump"
	"github.com/mattn/go-isatty"
	"golang.org/x/term"

	"github.com/flintjs/flint/compiler"
)

const contextSize = 2

var (
	outDir        = flag.String("out", "dist", "output directory")
	runtimeModule = flag.String("runtime", "", "import specifier of the client reactive runtime")
	dev           = flag.Bool("dev", false, "keep generated output readable for debugging")
	dumpIR        = flag.Bool("dump-ir", false, "dump each entry's intermediate representation and exit")
)

func main() {
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}
	if err := run(flag.Args()); err != nil {
		reportError(err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: flintc [flags] entry.jsx [entry.jsx...]")
	flag.PrintDefaults()
}

func run(entries []string) error {
	c := compiler.New(compiler.Options{
		Read:          readSource,
		RuntimeModule: *runtimeModule,
		Dev:           *dev,
	})

	if *dumpIR {
		for _, entry := range entries {
			in, diag := c.AdapterInputFor(entry)
			if diag != nil {
				return diag
			}
			godump.Dump(in)
		}
		return nil
	}

	arts, diag := c.CompileAll(entries)
	if diag != nil {
		return diag
	}
	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		return err
	}
	for _, art := range arts {
		name := filepath.Join(*outDir, art.Name+".html")
		if err := writeOutput(name, art.Markup); err != nil {
			return err
		}
	}
	// c.Artifacts() includes children the entries reached; their scripts
	// must exist on disk for the entry scripts to import.
	for _, art := range c.Artifacts() {
		if !art.HasClient {
			continue
		}
		name := filepath.Join(*outDir, art.Filename)
		if err := writeOutput(name, art.Client); err != nil {
			return err
		}
	}
	return nil
}

func readSource(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func writeOutput(name, content string) error {
	if err := os.WriteFile(name, []byte(content), 0o644); err != nil {
		return err
	}
	fmt.Printf("wrote %s (%s)\n", name, humanize.Bytes(uint64(len(content))))
	return nil
}

// reportError prints a compile diagnostic with source context when the
// failing file is still readable, colored when stderr is a terminal.
func reportError(err error) {
	diag, ok := err.(*compiler.Diagnostic)
	if !ok {
		fmt.Fprintln(os.Stderr, "flintc:", err)
		return
	}
	msg := diag.Error()
	if isatty.IsTerminal(os.Stderr.Fd()) {
		msg = "\x1b[31m" + msg + "\x1b[0m"
	}
	fmt.Fprintln(os.Stderr, msg)
	if src, rerr := readSource(diag.Path); rerr == nil {
		if ctx := diag.ContextLines(src, contextSize); ctx != "" {
			fmt.Fprint(os.Stderr, clipToTerminal(ctx))
		}
	}
}

// clipToTerminal trims context lines to the terminal width so long source
// lines never wrap underneath the line-number gutter.
func clipToTerminal(s string) string {
	width, _, err := term.GetSize(int(os.Stderr.Fd()))
	if err != nil || width <= 0 {
		return s
	}
	var out []byte
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == '\n' {
			line := s[start:i]
			if len(line) > width {
				line = line[:width-1] + "…"
			}
			out = append(out, line...)
			if i < len(s) {
				out = append(out, '\n')
			}
			start = i + 1
		}
	}
	return string(out)
}
