package output

import (
	"bufio"
	"io"

	"gopkg.in/yaml.v3"
)

// YAMLWriter writes rows as a YAML sequence.
type YAMLWriter struct {
	w      *bufio.Writer
	layout layout
	items  []orderedRow
}

// NewYAMLWriter creates a YAML writer.
func NewYAMLWriter(w io.Writer, l layout) *YAMLWriter {
	return &YAMLWriter{
		w:      bufio.NewWriter(w),
		layout: l,
		items:  make([]orderedRow, 0),
	}
}

// Write buffers a single row.
func (w *YAMLWriter) Write(row Row) error {
	w.items = append(w.items, w.layout.order(row))
	return nil
}

// WriteAll buffers multiple rows.
func (w *YAMLWriter) WriteAll(rows []Row) error {
	for _, row := range rows {
		w.items = append(w.items, w.layout.order(row))
	}
	return nil
}

// Flush writes the buffered rows as YAML.
func (w *YAMLWriter) Flush() error {
	encoder := yaml.NewEncoder(w.w)
	encoder.SetIndent(2)

	if err := encoder.Encode(w.items); err != nil {
		return err
	}
	if err := encoder.Close(); err != nil {
		return err
	}

	w.items = w.items[:0]
	return w.w.Flush()
}

// Close flushes and closes the writer.
func (w *YAMLWriter) Close() error {
	return w.Flush()
}
