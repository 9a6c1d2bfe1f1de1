package output

import (
	"bufio"
	"encoding/json"
	"io"
)

// JSONWriter writes rows as a single JSON array.
type JSONWriter struct {
	w      *bufio.Writer
	layout layout
	pretty bool
	indent string
	items  []orderedRow
}

// NewJSONWriter creates a JSON writer.
func NewJSONWriter(w io.Writer, l layout, pretty bool, indent string) *JSONWriter {
	return &JSONWriter{
		w:      bufio.NewWriter(w),
		layout: l,
		pretty: pretty,
		indent: indent,
		items:  make([]orderedRow, 0),
	}
}

// Write buffers a single row for JSON array output.
func (w *JSONWriter) Write(row Row) error {
	w.items = append(w.items, w.layout.order(row))
	return nil
}

// WriteAll buffers multiple rows.
func (w *JSONWriter) WriteAll(rows []Row) error {
	for _, row := range rows {
		w.items = append(w.items, w.layout.order(row))
	}
	return nil
}

// Flush writes the buffered rows as a JSON array.
func (w *JSONWriter) Flush() error {
	var output []byte
	var err error

	if w.pretty {
		output, err = json.MarshalIndent(w.items, "", w.indent)
	} else {
		output, err = json.Marshal(w.items)
	}
	if err != nil {
		return err
	}

	if _, err := w.w.Write(output); err != nil {
		return err
	}
	if _, err := w.w.WriteString("\n"); err != nil {
		return err
	}

	w.items = w.items[:0]
	return w.w.Flush()
}

// Close flushes and closes the writer.
func (w *JSONWriter) Close() error {
	return w.Flush()
}

// JSONLWriter writes newline-delimited JSON (JSONL).
type JSONLWriter struct {
	w      *bufio.Writer
	layout layout
}

// NewJSONLWriter creates a JSONL writer.
func NewJSONLWriter(w io.Writer, l layout) *JSONLWriter {
	return &JSONLWriter{
		w:      bufio.NewWriter(w),
		layout: l,
	}
}

// Write writes a single row as a JSON line.
func (w *JSONLWriter) Write(row Row) error {
	output, err := json.Marshal(w.layout.order(row))
	if err != nil {
		return err
	}

	if _, err := w.w.Write(output); err != nil {
		return err
	}
	if _, err := w.w.WriteString("\n"); err != nil {
		return err
	}

	return w.w.Flush()
}

// WriteAll writes multiple rows as JSON lines.
func (w *JSONLWriter) WriteAll(rows []Row) error {
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

// Flush flushes the buffer.
func (w *JSONLWriter) Flush() error {
	return w.w.Flush()
}

// Close flushes the writer.
func (w *JSONLWriter) Close() error {
	return w.Flush()
}
