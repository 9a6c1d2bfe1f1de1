package output

import (
	"encoding/csv"
	"io"
)

// CSVWriter writes one header line followed by one line per row.
type CSVWriter struct {
	w           *csv.Writer
	layout      layout
	wroteHeader bool
}

// NewCSVWriter creates a CSV writer.
func NewCSVWriter(w io.Writer, l layout) *CSVWriter {
	return &CSVWriter{
		w:      csv.NewWriter(w),
		layout: l,
	}
}

func (w *CSVWriter) writeHeader() error {
	if w.wroteHeader {
		return nil
	}
	w.wroteHeader = true
	return w.w.Write(w.layout.header())
}

// Write writes a single row, preceded by the header on first use.
func (w *CSVWriter) Write(row Row) error {
	if err := w.writeHeader(); err != nil {
		return err
	}
	if err := w.w.Write(w.layout.cells(row)); err != nil {
		return err
	}
	w.w.Flush()
	return w.w.Error()
}

// WriteAll writes multiple rows.
func (w *CSVWriter) WriteAll(rows []Row) error {
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

// Flush writes the header if nothing was written yet and flushes the buffer.
func (w *CSVWriter) Flush() error {
	if err := w.writeHeader(); err != nil {
		return err
	}
	w.w.Flush()
	return w.w.Error()
}

// Close flushes the writer.
func (w *CSVWriter) Close() error {
	return w.Flush()
}
