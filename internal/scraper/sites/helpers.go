package sites

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

var whitespace = regexp.MustCompile(`\s+`)

// collapse trims s and folds internal whitespace runs into single spaces.
func collapse(s string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}

// strippedText joins the trimmed, non-empty text nodes under sel with sep.
// With an empty sep adjacent inline elements run together, which keeps the
// titles of previously stored rows hashing the same.
func strippedText(sel *goquery.Selection, sep string) string {
	var parts []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				parts = append(parts, t)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}
	return strings.Join(parts, sep)
}

// resolve turns href into an absolute URL against base. Empty href gives "".
func resolve(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	b, err := url.Parse(base)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return b.ResolveReference(ref).String()
}

// origin returns scheme://host of raw, or raw itself when unparsable.
func origin(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	return u.Scheme + "://" + u.Host
}

// textAfterLabel finds the first <label> under sel whose text contains label
// and returns the next sibling text node, trimmed.
func textAfterLabel(sel *goquery.Selection, label string) string {
	var value string
	sel.Find("label").EachWithBreak(func(_ int, l *goquery.Selection) bool {
		if !strings.Contains(l.Text(), label) {
			return true
		}
		for n := l.Nodes[0].NextSibling; n != nil; n = n.NextSibling {
			if n.Type == html.TextNode && strings.TrimSpace(n.Data) != "" {
				value = strings.TrimSpace(n.Data)
				break
			}
		}
		return false
	})
	return value
}
