package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/DruizrGit/CondoPricePrediction/internal/crawler"
	"github.com/DruizrGit/CondoPricePrediction/internal/logger"
	"github.com/DruizrGit/CondoPricePrediction/internal/output"
	"github.com/DruizrGit/CondoPricePrediction/internal/storage"
)

// storeBatchSize is how many listings are buffered before an upsert.
const storeBatchSize = 50

// sink receives listings as the crawler extracts them and forwards each
// one to the output writer and, when configured, the listing store.
type sink struct {
	columns []string
	writer  output.Writer
	store   storage.Store

	pending []storage.Listing
	written int
	stored  int64
}

func (s *sink) add(ctx context.Context, l crawler.Listing) error {
	if s.writer != nil {
		if err := s.writer.Write(output.Row{URL: l.URL, Record: l.Record}); err != nil {
			return fmt.Errorf("write %s: %w", l.URL, err)
		}
		s.written++
	}
	if s.store == nil {
		return nil
	}
	s.pending = append(s.pending, storage.Listing{
		URL:       l.URL,
		Page:      l.Page,
		FetchedAt: l.FetchedAt,
		Record:    l.Record,
	})
	if len(s.pending) >= storeBatchSize {
		return s.flushStore(ctx)
	}
	return nil
}

func (s *sink) flushStore(ctx context.Context) error {
	if s.store == nil || len(s.pending) == 0 {
		return nil
	}
	n, err := s.store.SaveListings(ctx, s.columns, s.pending)
	if err != nil {
		return fmt.Errorf("save listings: %w", err)
	}
	logger.Debug("listings stored", "count", n)
	s.stored += n
	s.pending = s.pending[:0]
	return nil
}

// close stores what is still pending and flushes the writer. It runs even
// after a cancelled crawl, so it does not use the crawl context.
func (s *sink) close() error {
	var errs []error
	if err := s.flushStore(context.Background()); err != nil {
		errs = append(errs, err)
	}
	if s.writer != nil {
		if err := s.writer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("flush output: %w", err))
		}
	}
	return errors.Join(errs...)
}
