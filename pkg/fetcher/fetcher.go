// Package fetcher retrieves search-result and listing pages.
// Implement the Fetcher interface to plug in custom transports, e.g. a
// recorded fixture set in tests.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/DruizrGit/CondoPricePrediction/internal/version"
)

// Fetcher abstracts page fetching strategies.
type Fetcher interface {
	// Fetch retrieves page content from a URL.
	Fetch(ctx context.Context, url string, opts Options) (Content, error)

	// Close releases any resources (browser instances, etc.).
	Close() error

	// Type returns a string identifying the fetcher type (e.g., "static", "dynamic").
	Type() string
}

// Options controls fetching behavior for a single request. Zero values fall
// back to the fetcher's Config.
type Options struct {
	UserAgent       string
	Timeout         time.Duration
	Headers         map[string]string
	WaitForSelector string        // CSS selector to wait for (dynamic fetchers)
	WaitDuration    time.Duration // Additional wait after load (dynamic fetchers)
}

// Content represents a fetched page.
type Content struct {
	URL         string // final URL after redirects
	HTML        string
	Title       string
	StatusCode  int
	ContentType string
	FetchedAt   time.Time
}

// Document parses the fetched HTML. The document's URL is set so relative
// links can be resolved against it.
func (c Content) Document() (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(c.HTML))
	if err != nil {
		return nil, fmt.Errorf("failed to parse content: %w", err)
	}
	if u, err := url.Parse(c.URL); err == nil {
		doc.Url = u
	}
	return doc, nil
}

// ErrStatus indicates the server answered with an error status code.
// Check with errors.Is(err, fetcher.ErrStatus).
var ErrStatus = errors.New("unexpected status code")

// Fetcher types accepted by New.
const (
	TypeStatic  = "static"
	TypeDynamic = "dynamic"
)

// Config holds the defaults shared by every fetcher type.
type Config struct {
	UserAgent  string
	Timeout    time.Duration
	ChromePath string // dynamic only; searched for when empty
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		UserAgent: version.UserAgent(),
		Timeout:   30 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.UserAgent == "" {
		c.UserAgent = d.UserAgent
	}
	if c.Timeout == 0 {
		c.Timeout = d.Timeout
	}
	return c
}

// New creates a fetcher of the given type.
func New(kind string, cfg Config) (Fetcher, error) {
	switch kind {
	case TypeStatic, "":
		return NewStatic(cfg), nil
	case TypeDynamic:
		return NewDynamic(cfg)
	default:
		return nil, fmt.Errorf("unknown fetcher type %q (use %q or %q)", kind, TypeStatic, TypeDynamic)
	}
}

// coalesce returns the first non-empty string.
func coalesce(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
