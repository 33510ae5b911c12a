package compiler

import (
	"fmt"
	"strings"
)

// DiagKind classifies a compile diagnostic.
type DiagKind int

const (
	DiagParse DiagKind = iota
	DiagRead
	DiagCycle
	DiagShape
)

func (k DiagKind) String() string {
	switch k {
	case DiagParse:
		return "parse error"
	case DiagRead:
		return "read error"
	case DiagCycle:
		return "import cycle"
	case DiagShape:
		return "unsupported shape"
	}
	return "error"
}

// Diagnostic is a structured compile problem: kind, location, message, and —
// for read failures — the import chain that reached the failing file.
// Compilation is deterministic, so there are no retries; a fatal Diagnostic
// is returned as the error of the run.
type Diagnostic struct {
	Kind    DiagKind
	Path    string
	Line    int
	Col     int
	Message string
	Chain   []string // import chain for read/cycle failures, outermost first
}

func (d *Diagnostic) Error() string {
	var sb strings.Builder
	sb.WriteString(d.Kind.String())
	if d.Path != "" {
		sb.WriteString(" in " + d.Path)
		if d.Line > 0 {
			fmt.Fprintf(&sb, ":%d", d.Line)
			if d.Col > 0 {
				fmt.Fprintf(&sb, ":%d", d.Col)
			}
		}
	}
	sb.WriteString(": " + d.Message)
	if len(d.Chain) > 0 {
		sb.WriteString("\n  import chain: " + strings.Join(d.Chain, " -> "))
	}
	return sb.String()
}

// ContextLines formats source lines around the diagnostic position, marking
// the offending line. contextSize lines are shown on each side.
func (d *Diagnostic) ContextLines(source string, contextSize int) string {
	if d.Line <= 0 {
		return ""
	}
	lines := strings.Split(source, "\n")

	startLine := d.Line - contextSize - 1
	if startLine < 0 {
		startLine = 0
	}
	endLine := d.Line + contextSize
	if endLine > len(lines) {
		endLine = len(lines)
	}

	var result strings.Builder
	result.WriteString("\n")
	for i := startLine; i < endLine; i++ {
		lineNum := i + 1
		prefix := "  "
		if lineNum == d.Line {
			prefix = "> "
		}
		fmt.Fprintf(&result, "%s%4d | %s\n", prefix, lineNum, lines[i])
	}
	return result.String()
}
