// Package output writes extracted listing records in tabular and document formats.
package output

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/DruizrGit/CondoPricePrediction/pkg/extract"
)

// Format represents output format types.
type Format string

const (
	FormatCSV   Format = "csv"
	FormatJSON  Format = "json"
	FormatJSONL Format = "jsonl"
	FormatYAML  Format = "yaml"
)

// DefaultURLColumn names the column holding the listing URL.
const DefaultURLColumn = "URL"

// Formats lists the supported output formats.
func Formats() []Format {
	return []Format{FormatCSV, FormatJSON, FormatJSONL, FormatYAML}
}

// ParseFormat resolves a format name, case-insensitively.
func ParseFormat(name string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(name)))
	switch f {
	case FormatCSV, FormatJSON, FormatJSONL, FormatYAML:
		return f, nil
	case "yml":
		return FormatYAML, nil
	case "ndjson":
		return FormatJSONL, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", name)
	}
}

// FormatFromPath guesses the format from a file extension, falling back to def.
func FormatFromPath(path string, def Format) Format {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return def
	}
	if f, err := ParseFormat(ext); err == nil {
		return f
	}
	return def
}

// Row is one listing ready for output.
type Row struct {
	URL    string
	Record extract.Record
}

// Writer handles output serialization.
type Writer interface {
	// Write outputs a single row.
	Write(row Row) error

	// WriteAll outputs multiple rows.
	WriteAll(rows []Row) error

	// Flush ensures all data is written.
	Flush() error

	// Close releases resources.
	Close() error
}

// WriterOption configures a writer.
type WriterOption func(*writerConfig)

type writerConfig struct {
	pretty    bool
	indent    string
	urlColumn string
}

// WithPretty enables pretty-printing.
func WithPretty(enabled bool) WriterOption {
	return func(c *writerConfig) {
		c.pretty = enabled
	}
}

// WithIndent sets the indentation string.
func WithIndent(indent string) WriterOption {
	return func(c *writerConfig) {
		c.indent = indent
	}
}

// WithURLColumn sets the name of the leading URL column. An empty name omits it.
func WithURLColumn(name string) WriterOption {
	return func(c *writerConfig) {
		c.urlColumn = name
	}
}

// NewWriter creates a writer for the specified format. Columns fix the order
// of values in every row; record entries outside columns are not written.
func NewWriter(w io.Writer, format Format, columns []string, opts ...WriterOption) (Writer, error) {
	cfg := &writerConfig{
		pretty:    true,
		indent:    "  ",
		urlColumn: DefaultURLColumn,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	l := newLayout(cfg.urlColumn, columns)

	switch format {
	case FormatCSV:
		return NewCSVWriter(w, l), nil
	case FormatJSON:
		return NewJSONWriter(w, l, cfg.pretty, cfg.indent), nil
	case FormatJSONL:
		return NewJSONLWriter(w, l), nil
	case FormatYAML:
		return NewYAMLWriter(w, l), nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}
