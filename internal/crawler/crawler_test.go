package crawler

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/DruizrGit/CondoPricePrediction/pkg/extract"
	"github.com/DruizrGit/CondoPricePrediction/pkg/fetcher"
	"github.com/DruizrGit/CondoPricePrediction/pkg/schema"
)

var errNotFound = errors.New("not found")

// fakeFetcher serves pages from a map and records every requested URL.
type fakeFetcher struct {
	pages     map[string]string
	requested []string
	seenOpts  []fetcher.Options
	onFetch   func(url string)
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string, opts fetcher.Options) (fetcher.Content, error) {
	f.requested = append(f.requested, url)
	f.seenOpts = append(f.seenOpts, opts)
	if f.onFetch != nil {
		f.onFetch(url)
	}
	if err := ctx.Err(); err != nil {
		return fetcher.Content{}, err
	}
	html, ok := f.pages[url]
	if !ok {
		return fetcher.Content{URL: url, StatusCode: 404}, fmt.Errorf("%w: %s", errNotFound, url)
	}
	return fetcher.Content{URL: url, HTML: html, StatusCode: 200, FetchedAt: time.Now()}, nil
}

func (f *fakeFetcher) Close() error { return nil }
func (f *fakeFetcher) Type() string { return "fake" }

const site = "https://homes.test"

func searchPage(links ...string) string {
	html := "<html><body><a href=\"/\">Home</a><ul>"
	for _, l := range links {
		html += fmt.Sprintf(`<li><a class="listing-link" href="%s">details</a></li>`, l)
	}
	return html + "</ul></body></html>"
}

func listingPage(address string) string {
	return fmt.Sprintf(`<html><body><h2 class="address">%s</h2></body></html>`, address)
}

func testEngine() *extract.Engine {
	return extract.New(schema.Set{Fields: []schema.Field{
		{Name: "Address", Locate: schema.At("h2", 0).With("class", "address")},
		{Name: "Price", Locate: schema.At("span", 0).With("class", "price")},
	}})
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.PageURL = site + "/{search}/page/{page}/"
	cfg.Search = "Toronto"
	cfg.Links = schema.At("a", 0).With("class", "listing-link")
	cfg.Headers = map[string]string{"Accept-Language": "en-CA"}
	return cfg
}

func urls(listings []Listing) []string {
	out := make([]string, len(listings))
	for i, l := range listings {
		out[i] = l.URL
	}
	return out
}

func TestCrawler_Run(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{
		site + "/Toronto/page/1/": searchPage("/listing/a", "/listing/b", "/listing/z"),
		site + "/Toronto/page/2/": searchPage("/listing/c", "/listing/a"),
		site + "/listing/a":       listingPage("1 Yonge St"),
		site + "/listing/b":       listingPage("88 Harbour St"),
	}}
	cfg := testConfig()
	cfg.MaxPerPage = 2

	report, err := New(f, testEngine(), cfg).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	wantRequests := []string{
		site + "/Toronto/page/1/",
		site + "/listing/a",
		site + "/listing/b",
		site + "/Toronto/page/2/",
		site + "/listing/c",
		site + "/Toronto/page/3/",
	}
	if !reflect.DeepEqual(f.requested, wantRequests) {
		t.Errorf("requests =\n%v\nwant\n%v", f.requested, wantRequests)
	}

	if got := urls(report.Listings); !reflect.DeepEqual(got, []string{site + "/listing/a", site + "/listing/b"}) {
		t.Errorf("listings = %v", got)
	}
	if got, _ := report.Listings[1].Record.Get("Address").Text(); got != "88 Harbour St" {
		t.Errorf("second listing address = %q", got)
	}
	if report.Listings[0].Page != 1 {
		t.Errorf("first listing page = %d, want 1", report.Listings[0].Page)
	}
	if !report.Listings[0].Record.Get("Price").IsMissing() {
		t.Error("expected Price to be missing")
	}
	if len(report.Listings[0].Diagnostics) != 1 {
		t.Errorf("expected one diagnostic, got %v", report.Listings[0].Diagnostics)
	}

	if len(report.Skipped) != 1 || report.Skipped[0].URL != site+"/listing/c" {
		t.Fatalf("skipped = %+v", report.Skipped)
	}
	if !errors.Is(report.Skipped[0].Err, extract.ErrFetch) || !errors.Is(report.Skipped[0].Err, errNotFound) {
		t.Errorf("skipped error = %v, want ErrFetch wrapping the fetch error", report.Skipped[0].Err)
	}

	if report.Pages != 2 {
		t.Errorf("Pages = %d, want 2", report.Pages)
	}
	if report.Stop != StopPageFailed {
		t.Errorf("Stop = %q, want %q", report.Stop, StopPageFailed)
	}

	for _, opts := range f.seenOpts {
		if opts.Headers["Accept-Language"] != "en-CA" || opts.Timeout != 5*time.Second {
			t.Fatalf("fetch options = %+v, want configured headers and timeout", opts)
		}
	}
}

func TestCrawler_StopReasons(t *testing.T) {
	tests := []struct {
		name      string
		pages     map[string]string
		configure func(*Config)
		wantStop  StopReason
		wantPages int
		wantCount int
	}{
		{
			name: "page limit",
			pages: map[string]string{
				site + "/Toronto/page/1/": searchPage("/listing/a"),
				site + "/Toronto/page/2/": searchPage("/listing/b"),
				site + "/listing/a":       listingPage("A"),
				site + "/listing/b":       listingPage("B"),
			},
			configure: func(c *Config) { c.Pages = 1 },
			wantStop:  StopPageLimit,
			wantPages: 1,
			wantCount: 1,
		},
		{
			name: "first page other than one",
			pages: map[string]string{
				site + "/Toronto/page/4/": searchPage("/listing/d"),
				site + "/listing/d":       listingPage("D"),
			},
			configure: func(c *Config) { c.FirstPage = 4; c.Pages = 1 },
			wantStop:  StopPageLimit,
			wantPages: 1,
			wantCount: 1,
		},
		{
			name: "page without links",
			pages: map[string]string{
				site + "/Toronto/page/1/": searchPage("/listing/a"),
				site + "/Toronto/page/2/": searchPage(),
				site + "/listing/a":       listingPage("A"),
			},
			wantStop:  StopNoLinks,
			wantPages: 2,
			wantCount: 1,
		},
		{
			name: "page repeating earlier listings",
			pages: map[string]string{
				site + "/Toronto/page/1/": searchPage("/listing/a", "/listing/b"),
				site + "/Toronto/page/2/": searchPage("/listing/b", "/listing/a/"),
				site + "/listing/a":       listingPage("A"),
				site + "/listing/b":       listingPage("B"),
			},
			wantStop:  StopNoNewLinks,
			wantPages: 2,
			wantCount: 2,
		},
		{
			name: "next link missing",
			pages: map[string]string{
				site + "/Toronto/page/1/": searchPage("/listing/a"),
				site + "/listing/a":       listingPage("A"),
			},
			configure: func(c *Config) {
				next := schema.At("a", 0).With("rel", "next")
				c.Next = &next
			},
			wantStop:  StopNoNextPage,
			wantPages: 1,
			wantCount: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			if tt.configure != nil {
				tt.configure(&cfg)
			}

			report, err := New(&fakeFetcher{pages: tt.pages}, testEngine(), cfg).Run(context.Background())
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if report.Stop != tt.wantStop {
				t.Errorf("Stop = %q, want %q", report.Stop, tt.wantStop)
			}
			if report.Pages != tt.wantPages {
				t.Errorf("Pages = %d, want %d", report.Pages, tt.wantPages)
			}
			if len(report.Listings) != tt.wantCount {
				t.Errorf("listings = %v, want %d", urls(report.Listings), tt.wantCount)
			}
		})
	}
}

func TestCrawler_FollowsNextLink(t *testing.T) {
	page1 := `<a class="listing-link" href="/listing/a">a</a><a rel="next" href="/search?p=xyz">next</a>`
	page2 := `<a class="listing-link" href="/listing/b">b</a>`
	f := &fakeFetcher{pages: map[string]string{
		site + "/Toronto/page/1/": page1,
		site + "/search?p=xyz":    page2,
		site + "/listing/a":       listingPage("A"),
		site + "/listing/b":       listingPage("B"),
	}}
	cfg := testConfig()
	next := schema.At("a", 0).With("rel", "next")
	cfg.Next = &next

	report, err := New(f, testEngine(), cfg).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if got := urls(report.Listings); !reflect.DeepEqual(got, []string{site + "/listing/a", site + "/listing/b"}) {
		t.Errorf("listings = %v", got)
	}
	if report.Listings[1].Page != 2 {
		t.Errorf("second listing page = %d, want 2", report.Listings[1].Page)
	}
}

func TestCrawler_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	f := &fakeFetcher{
		pages: map[string]string{
			site + "/Toronto/page/1/": searchPage("/listing/a", "/listing/b"),
			site + "/listing/a":       listingPage("A"),
			site + "/listing/b":       listingPage("B"),
		},
	}
	f.onFetch = func(url string) {
		if url == site+"/listing/a" {
			cancel()
		}
	}

	report, err := New(f, testEngine(), testConfig()).Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v, want context.Canceled", err)
	}
	if report == nil || report.Stop != StopCancelled {
		t.Fatalf("report = %+v, want a cancelled report", report)
	}
	if len(report.Listings) != 0 || len(report.Skipped) != 0 {
		t.Errorf("expected the interrupted listing to be dropped, got %+v", report)
	}
}

func TestCrawler_ListingHandler(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{
		site + "/Toronto/page/1/": searchPage("/listing/a", "/listing/b"),
		site + "/listing/a":       listingPage("A"),
		site + "/listing/b":       listingPage("B"),
	}}
	cfg := testConfig()
	cfg.Pages = 1

	var handled []string
	report, err := New(f, testEngine(), cfg, WithListingHandler(func(l Listing) error {
		handled = append(handled, l.URL)
		return nil
	})).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !reflect.DeepEqual(handled, urls(report.Listings)) {
		t.Errorf("handled = %v, want %v", handled, urls(report.Listings))
	}

	boom := errors.New("disk full")
	report, err = New(f, testEngine(), cfg, WithListingHandler(func(Listing) error {
		return boom
	})).Run(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("Run() error = %v, want handler error", err)
	}
	if report.Stop != StopHandlerError || len(report.Listings) != 1 {
		t.Errorf("report = %+v", report)
	}
}

func TestCrawler_InvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.PageURL = ""
	if _, err := New(&fakeFetcher{}, testEngine(), cfg).Run(context.Background()); err == nil {
		t.Error("expected error without a page URL")
	}

	cfg = testConfig()
	cfg.LinkPattern = "("
	if _, err := New(&fakeFetcher{}, testEngine(), cfg).Run(context.Background()); err == nil {
		t.Error("expected error for an invalid link pattern")
	}
}

func TestCrawler_ReportsTimes(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{}}
	clock := &fakeClock{t: time.Date(2020, 8, 1, 0, 0, 0, 0, time.UTC), step: time.Second}

	report, err := New(f, testEngine(), testConfig(), WithClock(clock.now)).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !report.Finished.After(report.Started) {
		t.Errorf("Finished %v should be after Started %v", report.Finished, report.Started)
	}
}

func TestConfig_URLForPage(t *testing.T) {
	cfg := Config{PageURL: "https://www.royallepage.ca/en/on/{search}/condos/properties/{page}/", Search: "North York"}

	if got, want := cfg.URLForPage(3), "https://www.royallepage.ca/en/on/North%20York/condos/properties/3/"; got != want {
		t.Errorf("URLForPage(3) = %q, want %q", got, want)
	}
}

func TestConfig_ExpectedListings(t *testing.T) {
	tests := []struct {
		pages, perPage, want int
	}{
		{22, 46, 1012},
		{0, 46, 0},
		{22, 0, 0},
	}
	for _, tt := range tests {
		if got := (Config{Pages: tt.pages, MaxPerPage: tt.perPage}).ExpectedListings(); got != tt.want {
			t.Errorf("ExpectedListings(%d, %d) = %d, want %d", tt.pages, tt.perPage, got, tt.want)
		}
	}
}
