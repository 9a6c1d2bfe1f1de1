package storage

import (
	"fmt"
	"strings"
	"time"
)

// Metadata columns written ahead of the value columns.
const (
	ColumnURL       = "url"
	ColumnPage      = "page"
	ColumnFetchedAt = "fetched_at"
)

// Dialect holds the bits of SQL that differ between backends.
type Dialect struct {
	// Quote quotes an identifier.
	Quote func(string) string
	// Placeholder returns the bind parameter for the n-th argument, 1-based.
	Placeholder func(n int) string
}

// QuoteIdent quotes an identifier with double quotes, doubling embedded quotes.
func QuoteIdent(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}

// CreateTableSQL returns the DDL for a listings table with every value column as TEXT.
func (d Dialect) CreateTableSQL(table string, columns []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (", d.Quote(table))
	fmt.Fprintf(&b, "%s TEXT PRIMARY KEY, %s INTEGER, %s TEXT",
		d.Quote(ColumnURL), d.Quote(ColumnPage), d.Quote(ColumnFetchedAt))
	for _, c := range columns {
		fmt.Fprintf(&b, ", %s TEXT", d.Quote(c))
	}
	b.WriteString(")")
	return b.String()
}

// AddColumnSQL returns the statement adding one TEXT value column.
func (d Dialect) AddColumnSQL(table, column string) string {
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s TEXT", d.Quote(table), d.Quote(column))
}

// UpsertSQL returns a single-row insert that replaces every column of an
// existing row with the same URL.
func (d Dialect) UpsertSQL(table string, columns []string) string {
	all := append([]string{ColumnURL, ColumnPage, ColumnFetchedAt}, columns...)

	names := make([]string, len(all))
	binds := make([]string, len(all))
	for i, c := range all {
		names[i] = d.Quote(c)
		binds[i] = d.Placeholder(i + 1)
	}

	sets := make([]string, 0, len(all)-1)
	for _, c := range all[1:] {
		sets = append(sets, fmt.Sprintf("%s = excluded.%s", d.Quote(c), d.Quote(c)))
	}

	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO UPDATE SET %s",
		d.Quote(table),
		strings.Join(names, ", "),
		strings.Join(binds, ", "),
		d.Quote(ColumnURL),
		strings.Join(sets, ", "),
	)
}

// Args returns the bind arguments for l in UpsertSQL order. Values are stored
// as text; missing values become NULL.
func Args(l Listing, columns []string) []any {
	args := make([]any, 0, len(columns)+3)
	var fetched any
	if !l.FetchedAt.IsZero() {
		fetched = l.FetchedAt.UTC().Format(time.RFC3339Nano)
	}
	args = append(args, l.URL, l.Page, fetched)
	for _, c := range columns {
		v := l.Record.Get(c)
		if v.IsMissing() {
			args = append(args, nil)
			continue
		}
		args = append(args, v.String())
	}
	return args
}

// MissingColumns returns the entries of want not present in have, in want order.
func MissingColumns(have map[string]bool, want []string) []string {
	var out []string
	for _, c := range want {
		if !have[c] {
			out = append(out, c)
		}
	}
	return out
}

// CheckColumns rejects an empty column list, duplicates and names that
// collide with the metadata columns.
func CheckColumns(columns []string) error {
	if len(columns) == 0 {
		return ErrNoColumns
	}
	seen := map[string]bool{ColumnURL: true, ColumnPage: true, ColumnFetchedAt: true}
	for _, c := range columns {
		key := strings.ToLower(c)
		if seen[key] {
			return fmt.Errorf("storage: column %q is reserved or duplicated", c)
		}
		seen[key] = true
	}
	return nil
}
