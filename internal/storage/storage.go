// Package storage persists extracted listings to a SQL backend chosen by kind.
package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/DruizrGit/CondoPricePrediction/pkg/extract"
)

// DefaultTable is the table listings are written to when none is configured.
const DefaultTable = "listings"

// ErrNoColumns is returned when a store is asked to write without any value columns.
var ErrNoColumns = errors.New("storage: no columns")

// Config selects and configures a backend.
//
// Kind must match a registered backend ("sqlite", "postgres"). DSN is passed
// through to the backend untouched.
type Config struct {
	Kind  string
	DSN   string
	Table string
}

// Listing is one extracted listing keyed by its URL.
type Listing struct {
	URL       string
	Page      int
	FetchedAt time.Time
	Record    extract.Record
}

// Store writes listings into a single table whose value columns are the
// output names of a schema.
type Store interface {
	// EnsureTable creates the table if needed and adds any missing value columns.
	EnsureTable(ctx context.Context, columns []string) error

	// SaveListings upserts listings by URL and returns the number written.
	// Missing values are stored as NULL.
	SaveListings(ctx context.Context, columns []string, listings []Listing) (int64, error)

	// Close releases backend resources. Call once.
	Close()
}

// Factory opens a Store for cfg.
type Factory func(ctx context.Context, cfg Config) (Store, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register makes a backend available under kind. It is meant to be called
// from a backend package's init and panics on an empty kind, a nil factory or
// a duplicate registration.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()

	if kind == "" {
		panic("storage: Register called with empty kind")
	}
	if f == nil {
		panic("storage: Register called with nil factory")
	}
	if _, exists := factories[kind]; exists {
		panic(fmt.Sprintf("storage: factory already registered for kind=%q", kind))
	}
	factories[kind] = f
}

// Kinds returns the registered backend kinds, sorted.
func Kinds() []string {
	mu.RLock()
	defer mu.RUnlock()

	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// New opens a Store using the factory registered for cfg.Kind.
func New(ctx context.Context, cfg Config) (Store, error) {
	if cfg.Kind == "" {
		return nil, fmt.Errorf("storage: missing kind")
	}
	if cfg.Table == "" {
		cfg.Table = DefaultTable
	}

	mu.RLock()
	f := factories[cfg.Kind]
	mu.RUnlock()

	if f == nil {
		return nil, fmt.Errorf("storage: unsupported kind=%s (registered: %v)", cfg.Kind, Kinds())
	}
	return f(ctx, cfg)
}
