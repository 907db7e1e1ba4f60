// ABOUTME: Unit tests for import source discovery
// ABOUTME: Tests direct feeds and YAML, HTML link extraction, and common path probing

package discover

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

const testRSSFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Church Prayer List</title>
    <link>https://example.com</link>
    <description>Weekly requests</description>
    <item>
      <title>Healing for Ann</title>
      <description>&lt;p&gt;Surgery on &lt;b&gt;Tuesday&lt;/b&gt;&lt;/p&gt;</description>
      <guid>entry-1</guid>
    </item>
  </channel>
</rss>`

const testAtomFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Test Atom Feed</title>
  <link href="https://example.com"/>
  <entry>
    <title>New job for Sam</title>
    <id>entry-1</id>
  </entry>
</feed>`

const testYAMLList = `- title: Safe travels
  category: travel
- title: Exams next week
  urgency: high
`

const testHTMLWithFeedLink = `<!DOCTYPE html>
<html>
<head>
  <title>Test Site</title>
  <link rel="alternate" type="application/rss+xml" title="Prayer Feed" href="/feed.xml">
  <link rel="alternate" type="application/atom+xml" title="Atom Feed" href="/atom.xml">
</head>
<body>
  <h1>Test Site</h1>
</body>
</html>`

const testHTMLNoFeedLinks = `<!DOCTYPE html>
<html>
<head>
  <title>Test Site</title>
</head>
<body>
  <h1>No feeds here</h1>
</body>
</html>`

func serve(ct, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", ct)
		w.Write([]byte(body))
	}
}

func TestDiscover_DirectFeed(t *testing.T) {
	server := httptest.NewServer(serve("application/rss+xml", testRSSFeed))
	defer server.Close()

	src, err := Discover(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if src.URL != server.URL {
		t.Errorf("expected URL %s, got %s", server.URL, src.URL)
	}
	if len(src.Drafts) != 1 || src.Drafts[0].Title != "Healing for Ann" {
		t.Fatalf("unexpected drafts %+v", src.Drafts)
	}
	if !strings.Contains(src.Drafts[0].Description, "**Tuesday**") {
		t.Errorf("expected markdown description, got %q", src.Drafts[0].Description)
	}
}

func TestDiscover_DirectAtomFeed(t *testing.T) {
	server := httptest.NewServer(serve("application/atom+xml", testAtomFeed))
	defer server.Close()

	src, err := Discover(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if len(src.Drafts) != 1 || src.Drafts[0].Title != "New job for Sam" {
		t.Errorf("unexpected drafts %+v", src.Drafts)
	}
}

func TestDiscover_DirectYAML(t *testing.T) {
	server := httptest.NewServer(serve("application/x-yaml", testYAMLList))
	defer server.Close()

	src, err := Discover(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if len(src.Drafts) != 2 || src.Drafts[1].Urgency != "high" {
		t.Errorf("unexpected drafts %+v", src.Drafts)
	}
}

func TestDiscover_HTMLWithFeedLink(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			serve("text/html", testHTMLWithFeedLink)(w, r)
		case "/feed.xml":
			serve("application/rss+xml", testRSSFeed)(w, r)
		case "/atom.xml":
			serve("application/atom+xml", testAtomFeed)(w, r)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	src, err := Discover(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	expectedURL := server.URL + "/feed.xml"
	if src.URL != expectedURL {
		t.Errorf("expected URL %s, got %s", expectedURL, src.URL)
	}
	if src.Title != "Prayer Feed" {
		t.Errorf("expected title from link element, got %q", src.Title)
	}
}

func TestDiscover_SkipsBrokenLinks(t *testing.T) {
	page := `<!DOCTYPE html>
<html>
<head>
  <link rel="alternate" type="application/rss+xml">
  <link href="/feed.xml">
  <link rel="alternate" type="application/rss+xml" href="/missing.xml">
  <link rel="alternate" type="application/rss+xml" href="/valid-feed.xml">
</head>
<body></body>
</html>`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			serve("text/html", page)(w, r)
		case "/valid-feed.xml":
			serve("application/rss+xml", testRSSFeed)(w, r)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	src, err := Discover(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	expectedURL := server.URL + "/valid-feed.xml"
	if src.URL != expectedURL {
		t.Errorf("expected URL %s, got %s", expectedURL, src.URL)
	}
}

func TestDiscover_RelativeURLWithDotDot(t *testing.T) {
	page := `<html><head><link rel="alternate" type="application/rss+xml" href="../feed.xml"></head></html>`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/church/posts/":
			serve("text/html", page)(w, r)
		case "/church/feed.xml":
			serve("application/rss+xml", testRSSFeed)(w, r)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	src, err := Discover(context.Background(), server.URL+"/church/posts/")
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	expectedURL := server.URL + "/church/feed.xml"
	if src.URL != expectedURL {
		t.Errorf("expected URL %s, got %s", expectedURL, src.URL)
	}
}

func TestDiscover_ProbeCommonPaths(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			serve("text/html", testHTMLNoFeedLinks)(w, r)
		case "/feed.xml", "/rss.xml":
			// 200 but not a feed
			serve("text/html", "<html><body>Not a feed</body></html>")(w, r)
		case "/prayers.yaml":
			serve("text/yaml", testYAMLList)(w, r)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	src, err := Discover(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	expectedURL := server.URL + "/prayers.yaml"
	if src.URL != expectedURL {
		t.Errorf("expected URL %s, got %s", expectedURL, src.URL)
	}
}

func TestDiscover_RelativeLinkAfterRedirect(t *testing.T) {
	page := `<html><head>
  <link rel="alternate" type="application/rss+xml" title="Church Prayers" href="feed.xml">
</head><body></body></html>`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			http.Redirect(w, r, "/church/", http.StatusFound)
		case "/church/":
			serve("text/html", page)(w, r)
		case "/church/feed.xml":
			serve("application/rss+xml", testRSSFeed)(w, r)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	src, err := Discover(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if want := server.URL + "/church/feed.xml"; src.URL != want {
		t.Errorf("expected URL %s, got %s", want, src.URL)
	}
	if src.Title != "Church Prayers" {
		t.Errorf("unexpected title %q", src.Title)
	}
}

func TestDiscover_NoFeedFound(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if r.URL.Path == "/" {
			serve("text/html", testHTMLNoFeedLinks)(w, r)
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	src, err := Discover(context.Background(), server.URL)
	if !errors.Is(err, ErrNoFeedFound) {
		t.Errorf("expected ErrNoFeedFound, got: %v", err)
	}
	if src != nil {
		t.Errorf("expected nil source, got: %+v", src)
	}
	if requests != 1+len(commonFeedPaths) {
		t.Errorf("expected every common path to be probed, got %d requests", requests)
	}
}

func TestDiscover_FetchError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	if _, err := Discover(context.Background(), server.URL); err == nil || errors.Is(err, ErrNoFeedFound) {
		t.Errorf("expected fetch error, got %v", err)
	}
}

func TestDiscover_InvalidURLs(t *testing.T) {
	for _, u := range []string{"", "not-a-valid-url", "example.com/feed", "http://", "http://[invalid-host"} {
		if _, err := Discover(context.Background(), u); err == nil {
			t.Errorf("expected error for %q", u)
		}
	}
	if _, err := Discover(context.Background(), "example.com/feed"); !errors.Is(err, ErrInvalidURL) {
		t.Errorf("expected ErrInvalidURL, got %v", err)
	}
}

func TestExtractFeedLinks(t *testing.T) {
	base, _ := url.Parse("https://example.com/blog/")
	links, err := extractFeedLinks([]byte(testHTMLWithFeedLink), base)
	if err != nil {
		t.Fatalf("extractFeedLinks: %v", err)
	}
	if len(links) != 2 {
		t.Fatalf("expected 2 links, got %d", len(links))
	}
	if links[0].URL != "https://example.com/feed.xml" || links[1].Title != "Atom Feed" {
		t.Errorf("unexpected links %+v", links)
	}
}

func TestIsFeedContentType(t *testing.T) {
	tests := []struct {
		contentType string
		expected    bool
	}{
		{"application/rss+xml", true},
		{"application/atom+xml", true},
		{"application/xml", true},
		{"text/xml", true},
		{"application/x-yaml", true},
		{"text/html", false},
		{"application/json", false},
		{"", false},
	}

	for _, tc := range tests {
		result := isFeedContentType(tc.contentType)
		if result != tc.expected {
			t.Errorf("isFeedContentType(%q) = %v, expected %v", tc.contentType, result, tc.expected)
		}
	}
}
