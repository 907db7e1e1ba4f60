// ABOUTME: Import source discovery for finding RSS/Atom feeds behind a web page URL
// ABOUTME: Supports direct feeds or YAML lists, HTML link headers, and common path probing

package discover

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/harper/amenity/internal/fetch"
	"github.com/harper/amenity/internal/parse"
)

// Common feed paths to probe when other discovery methods fail
var commonFeedPaths = []string{
	"/feed.xml",
	"/feed",
	"/rss.xml",
	"/rss",
	"/atom.xml",
	"/atom",
	"/index.xml",
	"/prayers.yaml",
}

// Errors returned by discovery functions
var (
	ErrNoFeedFound = errors.New("no RSS/Atom feed or request list found at URL")
	ErrInvalidURL  = errors.New("invalid URL")
)

// Source is an import source found during discovery, already parsed.
type Source struct {
	URL    string // Absolute URL the drafts were read from
	Title  string // Title from the page's <link> element, if any
	Drafts []parse.Draft
}

// Discover finds something importable at inputURL. It tries, in order:
//  1. the URL itself as a feed or YAML request list
//  2. <link rel="alternate"> feed links in the page's HTML
//  3. common feed paths on the same host
func Discover(ctx context.Context, inputURL string) (*Source, error) {
	parsedURL, err := url.Parse(inputURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, fmt.Errorf("%w: missing scheme or host", ErrInvalidURL)
	}

	src, page, err := tryDirect(ctx, inputURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch URL: %w", err)
	}
	if src != nil {
		return src, nil
	}

	// Links on a redirected page are relative to where it ended up.
	base := parsedURL
	if u, err := url.Parse(page.URL); err == nil {
		base = u
	}
	links, err := extractFeedLinks(page.Body, base)
	if err == nil {
		for _, candidate := range links {
			found, _, verifyErr := tryDirect(ctx, candidate.URL)
			if verifyErr == nil && found != nil {
				found.Title = candidate.Title
				return found, nil
			}
		}
	}

	if src, err := probeCommonPaths(ctx, parsedURL); err == nil {
		return src, nil
	}

	return nil, ErrNoFeedFound
}

// tryDirect fetches the URL and parses it as an import source. A page
// that does not parse is returned for HTML link extraction, not as an error.
func tryDirect(ctx context.Context, sourceURL string) (*Source, *fetch.Document, error) {
	doc, err := fetch.Fetch(ctx, sourceURL)
	if err != nil {
		return nil, nil, err
	}

	drafts, parseErr := parse.Parse(doc.Body, doc.ContentType)
	if parseErr != nil {
		return nil, doc, nil //nolint:nilerr // not a feed, try the HTML next
	}

	return &Source{URL: doc.URL, Drafts: drafts}, doc, nil
}

type feedLink struct {
	URL   string
	Title string
}

// extractFeedLinks parses HTML and returns feed URLs from <link rel="alternate"> elements
func extractFeedLinks(htmlBody []byte, baseURL *url.URL) ([]feedLink, error) {
	doc, err := html.Parse(bytes.NewReader(htmlBody))
	if err != nil {
		return nil, err
	}

	var links []feedLink
	var findLinks func(*html.Node)
	findLinks = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "link" {
			var rel, linkType, href, title string
			for _, attr := range n.Attr {
				switch attr.Key {
				case "rel":
					rel = attr.Val
				case "type":
					linkType = attr.Val
				case "href":
					href = attr.Val
				case "title":
					title = attr.Val
				}
			}

			if rel == "alternate" && isFeedContentType(linkType) && href != "" {
				if resolved, err := resolveURL(href, baseURL); err == nil {
					links = append(links, feedLink{URL: resolved, Title: title})
				}
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			findLinks(c)
		}
	}

	findLinks(doc)
	return links, nil
}

// probeCommonPaths tries common feed URL patterns against the base URL
func probeCommonPaths(ctx context.Context, baseURL *url.URL) (*Source, error) {
	probeBase := &url.URL{
		Scheme: baseURL.Scheme,
		Host:   baseURL.Host,
	}

	for _, path := range commonFeedPaths {
		src, _, err := tryDirect(ctx, probeBase.String()+path)
		if err == nil && src != nil {
			return src, nil
		}
	}

	return nil, ErrNoFeedFound
}

// resolveURL resolves a potentially relative URL against a base URL
func resolveURL(href string, baseURL *url.URL) (string, error) {
	refURL, err := url.Parse(href)
	if err != nil {
		return "", err
	}
	return baseURL.ResolveReference(refURL).String(), nil
}

// isFeedContentType checks if a <link> type names a feed or YAML list
func isFeedContentType(contentType string) bool {
	contentType = strings.ToLower(contentType)
	return strings.Contains(contentType, "rss") ||
		strings.Contains(contentType, "atom") ||
		strings.Contains(contentType, "xml") ||
		strings.Contains(contentType, "yaml")
}
