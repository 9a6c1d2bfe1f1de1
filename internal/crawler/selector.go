package crawler

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/DruizrGit/CondoPricePrediction/pkg/extract"
	"github.com/DruizrGit/CondoPricePrediction/pkg/schema"
)

// LinkSelector collects listing links from a search-result page.
type LinkSelector struct {
	Locator    schema.Locator // elements carrying the links; the index is ignored
	URLPattern *regexp.Regexp // optional filter on the resolved URL
}

// NewLinkSelector creates a link selector. An empty locator kind selects
// anchors.
func NewLinkSelector(loc schema.Locator, urlPattern string) (*LinkSelector, error) {
	if loc.Kind == "" {
		loc.Kind = "a"
	}
	ls := &LinkSelector{Locator: loc}

	if urlPattern != "" {
		pattern, err := regexp.Compile(urlPattern)
		if err != nil {
			return nil, fmt.Errorf("invalid link pattern: %w", err)
		}
		ls.URLPattern = pattern
	}

	return ls, nil
}

// ExtractLinks returns the href of every matching element below root,
// resolved against baseURL, in document order and without duplicates.
func (ls *LinkSelector) ExtractLinks(root *goquery.Selection, baseURL string) ([]string, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}

	var links []string
	seen := make(map[string]bool)

	extract.ResolveAll(root, ls.Locator).Each(func(_ int, s *goquery.Selection) {
		link, ok := resolveHref(s, base)
		if !ok {
			return
		}
		if ls.URLPattern != nil && !ls.URLPattern.MatchString(link) {
			return
		}
		if seen[link] {
			return
		}
		seen[link] = true
		links = append(links, link)
	})

	return links, nil
}

// PaginationSelector finds the next page link.
type PaginationSelector struct {
	Next schema.Locator
}

// NewPaginationSelector creates a pagination selector.
func NewPaginationSelector(next schema.Locator) *PaginationSelector {
	return &PaginationSelector{Next: next}
}

// FindNextPage resolves the next-page element and returns its link.
func (ps *PaginationSelector) FindNextPage(root *goquery.Selection, baseURL string) (string, bool) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return "", false
	}

	node, err := extract.Resolve(root, ps.Next)
	if err != nil {
		return "", false
	}
	return resolveHref(node, base)
}

// resolveHref reads the element's href and makes it absolute. Fragment-only
// and javascript links are rejected.
func resolveHref(s *goquery.Selection, base *url.URL) (string, bool) {
	href, exists := s.Attr("href")
	href = strings.TrimSpace(href)
	if !exists || href == "" {
		return "", false
	}
	if strings.HasPrefix(href, "#") || strings.HasPrefix(strings.ToLower(href), "javascript:") {
		return "", false
	}

	linkURL, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	if !linkURL.IsAbs() {
		linkURL = base.ResolveReference(linkURL)
	}
	linkURL.Fragment = ""

	return linkURL.String(), true
}
