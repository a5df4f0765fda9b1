package gen

import (
	"fmt"
	"strings"
)

// pyIndent is one indentation level of emitted Python.
const pyIndent = "    "

// writer is the emission buffer shared by all emitters. It is append-only:
// lines go in, indentation is tracked, and node-scoped warnings accumulate
// alongside. Emitters never read back what was written, which keeps each one
// a pure function of the context.
type writer struct {
	buf      strings.Builder
	indent   int
	lines    int
	handlers int
	warnings []Warning
}

// P writes one indented line verbatim. Emitted Python containing '%' goes
// through here untouched; interpolated lines use Pf.
func (w *writer) P(line string) {
	for i := 0; i < w.indent; i++ {
		w.buf.WriteString(pyIndent)
	}
	w.buf.WriteString(line)
	w.buf.WriteByte('\n')
	w.lines++
}

// Pf writes one indented line, formatted.
func (w *writer) Pf(format string, args ...any) {
	w.P(fmt.Sprintf(format, args...))
}

// B writes a blank line.
func (w *writer) B() {
	w.buf.WriteByte('\n')
	w.lines++
}

// D writes a handler decorator line verbatim and counts it toward the
// handler total reported in generation metadata.
func (w *writer) D(line string) {
	w.P(line)
	w.handlers++
}

// Df writes a formatted handler decorator line.
func (w *writer) Df(format string, args ...any) {
	w.D(fmt.Sprintf(format, args...))
}

// In increases the indentation level for subsequent lines.
func (w *writer) In() { w.indent++ }

// Out decreases the indentation level.
func (w *writer) Out() {
	if w.indent > 0 {
		w.indent--
	}
}

// NodeStart emits the opening sentinel for a node block. The surrounding
// editor locates a node's generated code by these markers, so every node gets
// exactly one pair regardless of whether it produced a handler.
func (w *writer) NodeStart(id string) {
	w.Pf("# @@NODE_START:%s@@", id)
}

// NodeEnd emits the closing sentinel for a node block.
func (w *writer) NodeEnd(id string) {
	w.Pf("# @@NODE_END:%s@@", id)
}

// Warnf records a node-scoped warning without interrupting emission.
func (w *writer) Warnf(nodeID, format string, args ...any) {
	w.warnings = append(w.warnings, Warning{NodeID: nodeID, Message: fmt.Sprintf(format, args...)})
}

// String returns the emitted text.
func (w *writer) String() string { return w.buf.String() }

// Lines returns the number of emitted lines.
func (w *writer) Lines() int { return w.lines }

// Handlers returns the number of registered handlers emitted so far.
func (w *writer) Handlers() int { return w.handlers }

// pyStr renders s as a single-quoted Python string literal.
func pyStr(s string) string {
	var b strings.Builder
	b.WriteByte('\'')
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '\'':
			b.WriteString(`\'`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('\'')
	return b.String()
}

// pyBool renders a Go bool as a Python literal.
func pyBool(v bool) string {
	if v {
		return "True"
	}
	return "False"
}

// pyStrList renders a list of Python string literals.
func pyStrList(ss []string) string {
	parts := make([]string, len(ss))
	for i, s := range ss {
		parts[i] = pyStr(s)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// sanitizePyName converts an arbitrary node id into a Python identifier
// fragment. Distinctness across nodes is handled by the context, which
// appends a positional suffix on collision.
func sanitizePyName(id string) string {
	var b strings.Builder
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	name := b.String()
	if name == "" {
		name = "node"
	}
	if name[0] >= '0' && name[0] <= '9' {
		name = "n" + name
	}
	return name
}
