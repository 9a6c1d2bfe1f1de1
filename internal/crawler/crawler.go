package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/DruizrGit/CondoPricePrediction/internal/logger"
	"github.com/DruizrGit/CondoPricePrediction/pkg/extract"
	"github.com/DruizrGit/CondoPricePrediction/pkg/fetcher"
	"github.com/DruizrGit/CondoPricePrediction/pkg/schema"
)

// Placeholders understood in Config.PageURL.
const (
	SearchPlaceholder = "{search}"
	PagePlaceholder   = "{page}"
)

// Config holds crawler configuration.
type Config struct {
	// Pagination
	PageURL   string // search-result URL template with {search} and {page}
	Search    string // value substituted for {search}
	FirstPage int    // number of the first page (default 1)
	Pages     int    // pages to crawl (0 = until pagination ends)

	// Next, when set, is followed from each page to find the following
	// one instead of counting up {page}.
	Next *schema.Locator

	// Listing links
	Links       schema.Locator // elements whose href leads to a listing
	LinkPattern string         // optional regex the resolved link must match
	MaxPerPage  int            // links kept per page (0 = all)

	// Requests
	Headers   map[string]string
	Timeout   time.Duration
	UserAgent string        // overrides the fetcher's default when set
	WaitFor   string        // CSS selector a dynamic fetcher waits for
	Wait      time.Duration // extra settle time for a dynamic fetcher
}

// DefaultConfig returns sensible crawler defaults.
func DefaultConfig() Config {
	return Config{
		FirstPage: 1,
		Links:     schema.At("a", 0),
		Timeout:   5 * time.Second,
	}
}

// URLForPage renders the search-result URL for a page number.
func (c Config) URLForPage(page int) string {
	return strings.NewReplacer(
		SearchPlaceholder, url.PathEscape(c.Search),
		PagePlaceholder, strconv.Itoa(page),
	).Replace(c.PageURL)
}

// FetchOptions returns the per-request options every fetch of the crawl uses.
func (c Config) FetchOptions() fetcher.Options {
	return fetcher.Options{
		UserAgent:       c.UserAgent,
		Timeout:         c.Timeout,
		Headers:         c.Headers,
		WaitForSelector: c.WaitFor,
		WaitDuration:    c.Wait,
	}
}

// ExpectedListings is the number of listings a bounded crawl visits at
// most, or 0 when it cannot be known up front.
func (c Config) ExpectedListings() int {
	if c.Pages <= 0 || c.MaxPerPage <= 0 {
		return 0
	}
	return c.Pages * c.MaxPerPage
}

// Listing is the outcome of one listing page.
type Listing struct {
	URL         string
	Page        int
	Record      extract.Record
	Diagnostics []extract.Diagnostic
	FetchedAt   time.Time
}

// Skipped is a listing that could not be fetched.
type Skipped struct {
	URL  string
	Page int
	Err  error
}

// StopReason says why a crawl ended.
type StopReason string

const (
	StopPageLimit    StopReason = "page limit reached"
	StopPageFailed   StopReason = "page fetch failed"
	StopNoLinks      StopReason = "page has no listing links"
	StopNoNewLinks   StopReason = "page has no new listing links"
	StopNoNextPage   StopReason = "no next page link"
	StopCancelled    StopReason = "cancelled"
	StopHandlerError StopReason = "listing handler failed"
)

// Report is everything a crawl produced, in crawl order.
type Report struct {
	Listings []Listing
	Skipped  []Skipped
	Pages    int
	Stop     StopReason
	Started  time.Time
	Finished time.Time
}

// Option configures a Crawler.
type Option func(*Crawler)

// WithClock replaces time.Now, for deterministic progress estimates.
func WithClock(now func() time.Time) Option {
	return func(c *Crawler) {
		c.now = now
	}
}

// WithListingHandler registers a function called with every listing as
// soon as it is extracted. A handler error stops the crawl.
func WithListingHandler(fn func(Listing) error) Option {
	return func(c *Crawler) {
		c.onListing = fn
	}
}

// Crawler walks search-result pages and extracts every linked listing.
// It is sequential: one page and one listing at a time, in order.
type Crawler struct {
	fetcher   fetcher.Fetcher
	engine    *extract.Engine
	config    Config
	now       func() time.Time
	onListing func(Listing) error
}

// New creates a new Crawler.
func New(f fetcher.Fetcher, engine *extract.Engine, cfg Config, opts ...Option) *Crawler {
	if cfg.FirstPage == 0 {
		cfg.FirstPage = 1
	}
	c := &Crawler{
		fetcher: f,
		engine:  engine,
		config:  cfg,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run crawls until pagination ends and returns the collected listings.
// Page-level failures end the crawl normally and are reported through
// Report.Stop. The returned error is non-nil only for an invalid
// configuration, a cancelled context or a failing listing handler; the
// report then still holds what was collected.
func (c *Crawler) Run(ctx context.Context) (*Report, error) {
	links, err := NewLinkSelector(c.config.Links, c.config.LinkPattern)
	if err != nil {
		return nil, err
	}
	if c.config.PageURL == "" {
		return nil, errors.New("crawler: page URL is required")
	}

	var next *PaginationSelector
	if c.config.Next != nil {
		next = NewPaginationSelector(*c.config.Next)
	}

	report := &Report{Started: c.now()}
	defer func() { report.Finished = c.now() }()

	queue := NewURLQueue()
	progress := NewProgress(c.config.ExpectedListings(), c.now)
	opts := c.config.FetchOptions()

	logger.Info("crawl starting",
		"search", c.config.Search,
		"first_page", c.config.FirstPage,
		"pages", c.config.Pages,
		"max_per_page", c.config.MaxPerPage,
		"fetcher", c.fetcher.Type())

	pageURL := c.config.URLForPage(c.config.FirstPage)
	for page := c.config.FirstPage; ; page++ {
		if c.config.Pages > 0 && page >= c.config.FirstPage+c.config.Pages {
			report.Stop = StopPageLimit
			break
		}
		if err := ctx.Err(); err != nil {
			report.Stop = StopCancelled
			return report, err
		}

		content, err := c.fetcher.Fetch(ctx, pageURL, opts)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				report.Stop = StopCancelled
				return report, ctxErr
			}
			logger.Warn("page fetch failed, ending crawl", "page", page, "url", pageURL, "error", err)
			report.Stop = StopPageFailed
			break
		}
		doc, err := content.Document()
		if err != nil {
			logger.Warn("page parse failed, ending crawl", "page", page, "url", pageURL, "error", err)
			report.Stop = StopPageFailed
			break
		}
		report.Pages++

		found, err := links.ExtractLinks(doc.Selection, content.URL)
		if err != nil || len(found) == 0 {
			logger.Info("no listing links, ending crawl", "page", page, "url", pageURL)
			report.Stop = StopNoLinks
			break
		}
		if c.config.MaxPerPage > 0 && len(found) > c.config.MaxPerPage {
			found = found[:c.config.MaxPerPage]
		}

		added := 0
		for _, link := range found {
			if queue.Add(link, page) {
				added++
			}
		}
		logger.Info("page crawled", "page", page, "links", len(found), "new", added, "queued", queue.Len())
		if added == 0 {
			report.Stop = StopNoNewLinks
			break
		}

		for {
			listingURL, listingPage, ok := queue.Pop()
			if !ok {
				break
			}
			if err := ctx.Err(); err != nil {
				report.Stop = StopCancelled
				return report, err
			}

			listing, err := c.listing(ctx, listingURL, listingPage, opts)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					report.Stop = StopCancelled
					return report, ctxErr
				}
				logger.Warn("listing skipped", "url", listingURL, "error", err)
				report.Skipped = append(report.Skipped, Skipped{URL: listingURL, Page: listingPage, Err: err})
			} else {
				report.Listings = append(report.Listings, listing)
				if c.onListing != nil {
					if err := c.onListing(listing); err != nil {
						report.Stop = StopHandlerError
						return report, fmt.Errorf("listing handler: %w", err)
					}
				}
			}

			if est, ok := progress.Tick(); ok {
				logger.Info("progress", "status", est.String())
			}
		}

		if next != nil {
			nextURL, ok := next.FindNextPage(doc.Selection, content.URL)
			if !ok {
				report.Stop = StopNoNextPage
				break
			}
			pageURL = nextURL
		} else {
			pageURL = c.config.URLForPage(page + 1)
		}
	}

	logger.Info("crawl finished",
		"pages", report.Pages,
		"distinct_links", queue.Seen(),
		"listings", len(report.Listings),
		"skipped", len(report.Skipped),
		"reason", string(report.Stop))
	return report, nil
}

// listing fetches one listing page and extracts its record.
func (c *Crawler) listing(ctx context.Context, listingURL string, page int, opts fetcher.Options) (Listing, error) {
	content, err := c.fetcher.Fetch(ctx, listingURL, opts)
	if err != nil {
		return Listing{}, fmt.Errorf("%w: %w", extract.ErrFetch, err)
	}
	doc, err := content.Document()
	if err != nil {
		return Listing{}, fmt.Errorf("%w: %w", extract.ErrFetch, err)
	}

	res := c.engine.Extract(doc)
	for _, d := range res.Diagnostics {
		logger.Debug("extraction diagnostic", "url", listingURL, "field", d.Field, "kind", d.Kind(), "error", d.Err)
	}

	missing := 0
	for _, v := range res.Record {
		if v.IsMissing() {
			missing++
		}
	}
	logger.Debug("listing extracted", "url", listingURL, "values", len(res.Record), "missing", missing)

	return Listing{
		URL:         listingURL,
		Page:        page,
		Record:      res.Record,
		Diagnostics: res.Diagnostics,
		FetchedAt:   content.FetchedAt,
	}, nil
}
