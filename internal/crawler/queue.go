// Package crawler walks the search-result pages of a site and extracts
// every listing they link to, one at a time and in page order.
package crawler

import (
	"net/url"
	"strings"
	"sync"
)

// URLQueue holds the listing links of the pages crawled so far, oldest
// first. Each listing is accepted once per crawl: a link that shows up again
// on a later page, with a fragment or a trailing slash, is dropped. Links
// are handed out exactly as they were found on the page.
type URLQueue struct {
	mu      sync.Mutex
	pending []pendingListing
	seen    map[string]struct{}
}

type pendingListing struct {
	link string
	page int
}

// NewURLQueue returns an empty queue.
func NewURLQueue() *URLQueue {
	return &URLQueue{seen: make(map[string]struct{})}
}

// Add queues a listing link found on page. It reports false for a link that
// is not absolute or whose listing was already accepted.
func (q *URLQueue) Add(link string, page int) bool {
	key := normalizeURL(link)
	if key == "" {
		return false
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if _, dup := q.seen[key]; dup {
		return false
	}
	q.seen[key] = struct{}{}
	q.pending = append(q.pending, pendingListing{link: link, page: page})
	return true
}

// Pop hands out the oldest pending link with the page it was found on.
func (q *URLQueue) Pop() (link string, page int, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return "", 0, false
	}
	next := q.pending[0]
	q.pending = q.pending[1:]
	return next.link, next.page, true
}

// Len is the number of links still waiting to be fetched.
func (q *URLQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Seen is the number of distinct listings accepted during the crawl.
func (q *URLQueue) Seen() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.seen)
}

// normalizeURL is the identity of a listing link: the absolute URL without
// fragment or trailing slash. Relative or unparsable links yield "".
func normalizeURL(link string) string {
	u, err := url.Parse(link)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return ""
	}
	u.Fragment = ""
	if u.Path != "/" {
		u.Path = strings.TrimSuffix(u.Path, "/")
	}
	return u.String()
}
