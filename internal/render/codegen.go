package render

import (
	"fmt"
	"strings"
)

type lineKind int

const (
	kindNone lineKind = iota
	kindStatement
	kindAnnotation
	kindOpen
	kindClose
	kindBlank
)

// CodeWriter emits brace-delimited source with consistent spacing: a blank
// line follows every closed block unless another block closes, and a blank
// line separates a statement from a block that opens after it.
type CodeWriter struct {
	buf    strings.Builder
	indent string
	depth  int
	last   lineKind
}

// NewCodeWriter returns a writer indenting with four spaces.
func NewCodeWriter() *CodeWriter {
	return &CodeWriter{indent: "    "}
}

func (w *CodeWriter) emit(kind lineKind, text string) {
	if kind != kindBlank && w.needsBlank(kind) {
		w.buf.WriteString("\n")
	}
	w.buf.WriteString(strings.Repeat(w.indent, w.depth))
	w.buf.WriteString(text)
	w.buf.WriteString("\n")
	w.last = kind
}

func (w *CodeWriter) needsBlank(next lineKind) bool {
	switch w.last {
	case kindClose:
		return next != kindClose
	case kindStatement:
		return next == kindOpen || next == kindAnnotation
	default:
		return false
	}
}

// Line writes a statement.
func (w *CodeWriter) Line(format string, args ...any) *CodeWriter {
	w.emit(kindStatement, fmt.Sprintf(format, args...))
	return w
}

// Annotation writes a line that binds to the block opened after it.
func (w *CodeWriter) Annotation(format string, args ...any) *CodeWriter {
	w.emit(kindAnnotation, fmt.Sprintf(format, args...))
	return w
}

// Open writes "header {" and indents.
func (w *CodeWriter) Open(format string, args ...any) *CodeWriter {
	w.emit(kindOpen, fmt.Sprintf(format, args...)+" {")
	w.depth++
	return w
}

// Close dedents and writes "}".
func (w *CodeWriter) Close() *CodeWriter {
	if w.depth > 0 {
		w.depth--
	}
	w.emit(kindClose, "}")
	return w
}

// Blank writes an empty line unless the previous line already separates.
func (w *CodeWriter) Blank() *CodeWriter {
	if w.last == kindNone || w.last == kindBlank || w.last == kindClose {
		return w
	}
	w.buf.WriteString("\n")
	w.last = kindBlank
	return w
}

// String returns the generated source. It fails if blocks are left open.
func (w *CodeWriter) String() (string, error) {
	if w.depth != 0 {
		return "", fmt.Errorf("code writer: %d unclosed block(s)", w.depth)
	}
	return w.buf.String(), nil
}
