package extract

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/DruizrGit/CondoPricePrediction/pkg/schema"
)

// ResolveAll returns every descendant of root matched by the locator's kind
// and attribute filter, in document order. The index is ignored.
func ResolveAll(root *goquery.Selection, loc schema.Locator) *goquery.Selection {
	return root.Find("*").FilterFunction(func(_ int, s *goquery.Selection) bool {
		if loc.Kind != "" && !strings.EqualFold(goquery.NodeName(s), loc.Kind) {
			return false
		}
		return loc.MatchesAttrs(s.Attr)
	})
}

// Resolve returns the element selected by loc below root. It fails with
// ErrLocatorMiss when fewer than Index+1 elements match.
func Resolve(root *goquery.Selection, loc schema.Locator) (*goquery.Selection, error) {
	matches := ResolveAll(root, loc)
	if loc.Index < 0 || loc.Index >= matches.Length() {
		return nil, fmt.Errorf("%w: %s found %d match(es)", ErrLocatorMiss, loc, matches.Length())
	}
	return matches.Eq(loc.Index), nil
}

// ReadText reads trimmed text from the first node of sel. Empty text is a
// parse failure.
func ReadText(sel *goquery.Selection, mode schema.TextMode) (string, error) {
	if sel == nil || sel.Length() == 0 {
		return "", fmt.Errorf("%w: no node to read", ErrParse)
	}

	var raw string
	switch mode {
	case schema.TextFull:
		raw = sel.First().Text()
	default:
		s, ok := ownString(sel.Get(0))
		if !ok {
			return "", fmt.Errorf("%w: <%s> has no single text string", ErrParse, goquery.NodeName(sel))
		}
		raw = s
	}

	text := strings.TrimSpace(raw)
	if text == "" {
		return "", fmt.Errorf("%w: <%s> has empty text", ErrParse, goquery.NodeName(sel))
	}
	return text, nil
}

// ownString follows single-child chains down to a text node. Any node with
// zero or several children has no own string.
func ownString(n *html.Node) (string, bool) {
	for n != nil {
		switch n.Type {
		case html.TextNode:
			return n.Data, true
		case html.ElementNode, html.DocumentNode:
			c := n.FirstChild
			if c == nil || c.NextSibling != nil {
				return "", false
			}
			n = c
		default:
			return "", false
		}
	}
	return "", false
}
