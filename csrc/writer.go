// Package csrc appends C source and header text for generated builtin
// data.
package csrc

import (
	"fmt"
	"io"
	"strings"
)

// Writer accumulates C text line by line.
type Writer struct {
	sb     strings.Builder
	indent int
}

// NewWriter creates an empty writer.
func NewWriter() *Writer {
	return &Writer{}
}

// Line writes an indented line.
func (w *Writer) Line(format string, args ...any) {
	for i := 0; i < w.indent; i++ {
		w.sb.WriteString("\t")
	}
	w.sb.WriteString(fmt.Sprintf(format, args...))
	w.sb.WriteString("\n")
}

// Raw writes a line without indentation or formatting.
func (w *Writer) Raw(s string) {
	w.sb.WriteString(s)
	w.sb.WriteString("\n")
}

// Blank writes an empty line.
func (w *Writer) Blank() {
	w.sb.WriteString("\n")
}

// Indent adjusts the indentation level by delta.
func (w *Writer) Indent(delta int) {
	w.indent += delta
	if w.indent < 0 {
		w.indent = 0
	}
}

// Comment writes a C block comment.
func (w *Writer) Comment(format string, args ...any) {
	w.Line("/* %s */", fmt.Sprintf(format, args...))
}

// Define writes a #define.
func (w *Writer) Define(name string, value any) {
	w.Raw(strings.TrimRight(fmt.Sprintf("#define %-40s %v", name, value), " "))
}

// If opens a preprocessor conditional.
func (w *Writer) If(cond string) {
	w.Raw("#if " + cond)
}

// Elif continues a preprocessor conditional.
func (w *Writer) Elif(cond string) {
	w.Raw("#elif " + cond)
}

// Else switches a preprocessor conditional.
func (w *Writer) Else() {
	w.Raw("#else")
}

// Endif closes a preprocessor conditional.
func (w *Writer) Endif() {
	w.Raw("#endif")
}

// bytesPerLine is the initializer width of byte arrays.
const bytesPerLine = 16

// ByteArray writes `decl[N] = {...};` with the bytes as decimal literals.
func (w *Writer) ByteArray(decl string, data []byte) {
	w.Line("%s[%d] = {", decl, len(data))
	w.indent++
	for i := 0; i < len(data); i += bytesPerLine {
		end := min(i+bytesPerLine, len(data))
		parts := make([]string, 0, end-i)
		for _, b := range data[i:end] {
			parts = append(parts, fmt.Sprintf("%d", b))
		}
		sep := ","
		if end == len(data) {
			sep = ""
		}
		w.Line("%s%s", strings.Join(parts, ","), sep)
	}
	w.indent--
	w.Line("};")
}

// Array writes `decl[N] = {...};` with one initializer per line.
func (w *Writer) Array(decl string, items []string) {
	w.Line("%s[%d] = {", decl, len(items))
	w.indent++
	for i, it := range items {
		sep := ","
		if i == len(items)-1 {
			sep = ""
		}
		w.Line("%s%s", it, sep)
	}
	w.indent--
	w.Line("};")
}

// String returns the accumulated text.
func (w *Writer) String() string {
	return w.sb.String()
}

// Len returns the number of bytes written so far.
func (w *Writer) Len() int {
	return w.sb.Len()
}

// WriteTo implements io.WriterTo.
func (w *Writer) WriteTo(out io.Writer) (int64, error) {
	n, err := io.WriteString(out, w.sb.String())
	return int64(n), err
}
