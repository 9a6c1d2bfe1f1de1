// Package postgres stores listings in PostgreSQL through a pgx connection pool.
package postgres

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/DruizrGit/CondoPricePrediction/internal/storage"
)

var dialect = storage.Dialect{
	Quote:       func(id string) string { return pgx.Identifier{id}.Sanitize() },
	Placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
}

// Store implements storage.Store for PostgreSQL.
type Store struct {
	pool  *pgxpool.Pool
	table string
}

func init() {
	storage.Register("postgres", New)
}

// New connects a pool for cfg.DSN and verifies it with a ping.
func New(ctx context.Context, cfg storage.Config) (storage.Store, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	table := cfg.Table
	if table == "" {
		table = storage.DefaultTable
	}
	return &Store{pool: pool, table: table}, nil
}

// Close closes the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// EnsureTable creates the table and adds value columns it lacks.
func (s *Store) EnsureTable(ctx context.Context, columns []string) error {
	if err := storage.CheckColumns(columns); err != nil {
		return err
	}
	if _, err := s.pool.Exec(ctx, dialect.CreateTableSQL(s.table, columns)); err != nil {
		return fmt.Errorf("create table %s: %w", s.table, err)
	}
	for _, c := range columns {
		q := fmt.Sprintf("ALTER TABLE %s ADD COLUMN IF NOT EXISTS %s TEXT", dialect.Quote(s.table), dialect.Quote(c))
		if _, err := s.pool.Exec(ctx, q); err != nil {
			return fmt.Errorf("add column %s.%s: %w", s.table, c, err)
		}
	}
	return nil
}

// SaveListings upserts listings in one batch inside a transaction.
func (s *Store) SaveListings(ctx context.Context, columns []string, listings []storage.Listing) (int64, error) {
	if err := storage.CheckColumns(columns); err != nil {
		return 0, err
	}
	if len(listings) == 0 {
		return 0, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	q := dialect.UpsertSQL(s.table, columns)
	batch := &pgx.Batch{}
	for _, l := range listings {
		batch.Queue(q, storage.Args(l, columns)...)
	}

	br := tx.SendBatch(ctx, batch)
	var n int64
	for _, l := range listings {
		tag, err := br.Exec()
		if err != nil {
			_ = br.Close()
			return 0, fmt.Errorf("upsert %s: %w", l.URL, err)
		}
		n += tag.RowsAffected()
	}
	if err := br.Close(); err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return n, nil
}
