// Package sqlite stores listings in a SQLite database through modernc.org/sqlite.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/DruizrGit/CondoPricePrediction/internal/storage"
)

var dialect = storage.Dialect{
	Quote:       storage.QuoteIdent,
	Placeholder: func(int) string { return "?" },
}

// Store implements storage.Store for SQLite.
type Store struct {
	db    *sql.DB
	table string
}

func init() {
	storage.Register("sqlite", New)
}

// New opens the database named by cfg.DSN, a file path or ":memory:".
func New(ctx context.Context, cfg storage.Config) (storage.Store, error) {
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, err
	}
	// A single connection keeps ":memory:" databases alive across calls.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	table := cfg.Table
	if table == "" {
		table = storage.DefaultTable
	}
	return &Store{db: db, table: table}, nil
}

func (s *Store) Close() { _ = s.db.Close() }

// EnsureTable creates the table and adds value columns it lacks.
func (s *Store) EnsureTable(ctx context.Context, columns []string) error {
	if err := storage.CheckColumns(columns); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, dialect.CreateTableSQL(s.table, columns)); err != nil {
		return fmt.Errorf("create table %s: %w", s.table, err)
	}

	have, err := s.columns(ctx)
	if err != nil {
		return err
	}
	for _, c := range storage.MissingColumns(have, columns) {
		if _, err := s.db.ExecContext(ctx, dialect.AddColumnSQL(s.table, c)); err != nil {
			return fmt.Errorf("add column %s.%s: %w", s.table, c, err)
		}
	}
	return nil
}

func (s *Store) columns(ctx context.Context) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name FROM pragma_table_info(?)", s.table)
	if err != nil {
		return nil, fmt.Errorf("read columns of %s: %w", s.table, err)
	}
	defer rows.Close()

	out := map[string]bool{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out[name] = true
	}
	return out, rows.Err()
}

// SaveListings upserts listings inside one transaction.
func (s *Store) SaveListings(ctx context.Context, columns []string, listings []storage.Listing) (int64, error) {
	if err := storage.CheckColumns(columns); err != nil {
		return 0, err
	}
	if len(listings) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, dialect.UpsertSQL(s.table, columns))
	if err != nil {
		return 0, fmt.Errorf("prepare upsert into %s: %w", s.table, err)
	}
	defer stmt.Close()

	var n int64
	for _, l := range listings {
		if _, err := stmt.ExecContext(ctx, storage.Args(l, columns)...); err != nil {
			return n, fmt.Errorf("upsert %s: %w", l.URL, err)
		}
		n++
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return n, nil
}
