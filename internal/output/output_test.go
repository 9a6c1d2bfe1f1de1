package output

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"reflect"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/DruizrGit/CondoPricePrediction/pkg/extract"
)

var testColumns = []string{"Address", "Price", "Storeys", "Area"}

func testRows() []Row {
	return []Row{
		{
			URL: "https://example.com/listing/1",
			Record: extract.Record{
				"Address": extract.String("1 Yonge St #1201"),
				"Price":   extract.String("$649,900"),
				"Storeys": extract.Int(2),
				"Area":    extract.Float(34.7),
			},
		},
		{
			URL: "https://example.com/listing/2",
			Record: extract.Record{
				"Address": extract.String("88 Harbour St, Toronto"),
				"Storeys": extract.Int(1),
				"Area":    extract.Missing(),
				"Ignored": extract.String("not a column"),
			},
		},
	}
}

func newTestWriter(t *testing.T, buf *bytes.Buffer, format Format, opts ...WriterOption) Writer {
	t.Helper()
	w, err := NewWriter(buf, format, testColumns, opts...)
	if err != nil {
		t.Fatalf("NewWriter() error = %v", err)
	}
	return w
}

// --- NewWriter Factory Tests ---

func TestNewWriter_Types(t *testing.T) {
	tests := []struct {
		format Format
		want   string
	}{
		{FormatCSV, "*output.CSVWriter"},
		{FormatJSON, "*output.JSONWriter"},
		{FormatJSONL, "*output.JSONLWriter"},
		{FormatYAML, "*output.YAMLWriter"},
	}

	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			w := newTestWriter(t, &bytes.Buffer{}, tt.format)
			if got := reflect.TypeOf(w).String(); got != tt.want {
				t.Errorf("NewWriter(%s) = %s, want %s", tt.format, got, tt.want)
			}
		})
	}
}

func TestNewWriter_UnsupportedFormat(t *testing.T) {
	_, err := NewWriter(&bytes.Buffer{}, Format("unsupported"), testColumns)
	if err == nil {
		t.Fatal("expected error for unsupported format")
	}
	if !strings.Contains(err.Error(), "unsupported") {
		t.Errorf("expected error containing 'unsupported', got %v", err)
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		name    string
		want    Format
		wantErr bool
	}{
		{"csv", FormatCSV, false},
		{" JSON ", FormatJSON, false},
		{"jsonl", FormatJSONL, false},
		{"ndjson", FormatJSONL, false},
		{"yml", FormatYAML, false},
		{"xlsx", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFormat(tt.name)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFormat(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, want %q", tt.name, got, tt.want)
			}
		})
	}
}

func TestFormatFromPath(t *testing.T) {
	tests := []struct {
		path string
		want Format
	}{
		{"listings.csv", FormatCSV},
		{"out/listings.yaml", FormatYAML},
		{"listings.jsonl", FormatJSONL},
		{"listings", FormatJSON},
		{"listings.txt", FormatJSON},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := FormatFromPath(tt.path, FormatJSON); got != tt.want {
				t.Errorf("FormatFromPath(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

// --- CSVWriter Tests ---

func TestCSVWriter_WriteAll(t *testing.T) {
	buf := &bytes.Buffer{}
	w := newTestWriter(t, buf, FormatCSV)

	if err := w.WriteAll(testRows()); err != nil {
		t.Fatalf("WriteAll() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	records, err := csv.NewReader(buf).ReadAll()
	if err != nil {
		t.Fatalf("failed to read csv output: %v", err)
	}

	want := [][]string{
		{"URL", "Address", "Price", "Storeys", "Area"},
		{"https://example.com/listing/1", "1 Yonge St #1201", "$649,900", "2", "34.7"},
		{"https://example.com/listing/2", "88 Harbour St, Toronto", "", "1", ""},
	}
	if !reflect.DeepEqual(records, want) {
		t.Errorf("csv output =\n%v\nwant\n%v", records, want)
	}
}

func TestCSVWriter_HeaderOnlyWhenEmpty(t *testing.T) {
	buf := &bytes.Buffer{}
	w := newTestWriter(t, buf, FormatCSV, WithURLColumn(""))

	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if got, want := buf.String(), "Address,Price,Storeys,Area\n"; got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestCSVWriter_HeaderWrittenOnce(t *testing.T) {
	buf := &bytes.Buffer{}
	w := newTestWriter(t, buf, FormatCSV)

	for _, row := range testRows() {
		if err := w.Write(row); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	if n := strings.Count(buf.String(), "URL,Address"); n != 1 {
		t.Errorf("expected one header line, got %d", n)
	}
}

// --- JSONWriter Tests ---

func TestJSONWriter_KeepsColumnOrder(t *testing.T) {
	buf := &bytes.Buffer{}
	w := newTestWriter(t, buf, FormatJSON, WithPretty(false))

	if err := w.WriteAll(testRows()); err != nil {
		t.Fatalf("WriteAll() error = %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	want := `[{"URL":"https://example.com/listing/1","Address":"1 Yonge St #1201","Price":"$649,900","Storeys":2,"Area":34.7},` +
		`{"URL":"https://example.com/listing/2","Address":"88 Harbour St, Toronto","Price":null,"Storeys":1,"Area":null}]` + "\n"
	if got := buf.String(); got != want {
		t.Errorf("output =\n%s\nwant\n%s", got, want)
	}
}

func TestJSONWriter_SingleRowIsArray(t *testing.T) {
	buf := &bytes.Buffer{}
	w := newTestWriter(t, buf, FormatJSON)

	if err := w.Write(testRows()[0]); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	var result []map[string]any
	if err := json.Unmarshal(buf.Bytes(), &result); err != nil {
		t.Fatalf("failed to unmarshal output: %v", err)
	}
	if len(result) != 1 {
		t.Fatalf("expected 1 item, got %d", len(result))
	}
	if result[0]["Price"] != "$649,900" {
		t.Errorf("Price = %v, want $649,900", result[0]["Price"])
	}
}

func TestJSONWriter_Flush_PrettyPrint(t *testing.T) {
	buf := &bytes.Buffer{}
	w := newTestWriter(t, buf, FormatJSON, WithIndent("\t"))

	if err := w.Write(testRows()[0]); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	if !strings.Contains(buf.String(), "\n\t") {
		t.Errorf("expected tab indentation, got %q", buf.String())
	}
}

func TestJSONWriter_EmptyIsEmptyArray(t *testing.T) {
	buf := &bytes.Buffer{}
	w := newTestWriter(t, buf, FormatJSON)

	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if got := buf.String(); got != "[]\n" {
		t.Errorf("output = %q, want %q", got, "[]\n")
	}
}

// --- JSONLWriter Tests ---

func TestJSONLWriter_Write_SeparateLines(t *testing.T) {
	buf := &bytes.Buffer{}
	w := newTestWriter(t, buf, FormatJSONL, WithURLColumn("url"))

	for _, row := range testRows() {
		if err := w.Write(row); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
	}

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), buf.String())
	}

	want := `{"url":"https://example.com/listing/1","Address":"1 Yonge St #1201","Price":"$649,900","Storeys":2,"Area":34.7}`
	if lines[0] != want {
		t.Errorf("line 0 = %s, want %s", lines[0], want)
	}

	var item map[string]any
	if err := json.Unmarshal([]byte(lines[1]), &item); err != nil {
		t.Fatalf("line 1 is not valid JSON: %v", err)
	}
	if v, ok := item["Area"]; !ok || v != nil {
		t.Errorf("missing Area should encode as null, got %v (present %v)", v, ok)
	}
	if _, ok := item["Ignored"]; ok {
		t.Error("values outside the columns should not be written")
	}
}

// --- YAMLWriter Tests ---

func TestYAMLWriter_WriteAll(t *testing.T) {
	buf := &bytes.Buffer{}
	w := newTestWriter(t, buf, FormatYAML)

	if err := w.WriteAll(testRows()); err != nil {
		t.Fatalf("WriteAll() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	var result []map[string]any
	if err := yaml.Unmarshal(buf.Bytes(), &result); err != nil {
		t.Fatalf("failed to unmarshal output: %v", err)
	}
	if len(result) != 2 {
		t.Fatalf("expected 2 items, got %d", len(result))
	}
	if result[0]["Storeys"] != 2 {
		t.Errorf("Storeys = %v, want 2", result[0]["Storeys"])
	}
	if result[0]["Area"] != 34.7 {
		t.Errorf("Area = %v, want 34.7", result[0]["Area"])
	}
	if v, ok := result[1]["Price"]; !ok || v != nil {
		t.Errorf("missing Price should encode as null, got %v (present %v)", v, ok)
	}
}

func TestYAMLWriter_KeepsColumnOrder(t *testing.T) {
	buf := &bytes.Buffer{}
	w := newTestWriter(t, buf, FormatYAML, WithURLColumn(""))

	if err := w.Write(testRows()[0]); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	out := buf.String()
	last := -1
	for _, col := range testColumns {
		i := strings.Index(out, col+":")
		if i < 0 {
			t.Fatalf("column %s not in output:\n%s", col, out)
		}
		if i < last {
			t.Errorf("column %s out of order:\n%s", col, out)
		}
		last = i
	}
}
