// ABOUTME: Downloads remote import sources (RSS, Atom, or YAML request lists)
// ABOUTME: Refuses private hosts and oversized bodies and reports the URL reached after redirects

package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"
)

// MaxBodySize caps how much of an import source is read.
const MaxBodySize = 10 << 20

// UserAgent identifies the importer to remote hosts.
const UserAgent = "amenity/1.0 (prayer feed importer)"

// accept lists what import can parse, feeds first.
const accept = "application/rss+xml, application/atom+xml, application/x-yaml, text/yaml, application/xml;q=0.9, text/html;q=0.8, */*;q=0.5"

// ErrPrivateAddress rejects sources on private networks.
var ErrPrivateAddress = errors.New("import source resolves to a private address")

// ErrTooLarge rejects sources over MaxBodySize.
var ErrTooLarge = fmt.Errorf("import source exceeds %d bytes", MaxBodySize)

// StatusError is a non-200 reply from the source host.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s answered %d %s", e.URL, e.Code, http.StatusText(e.Code))
}

// Document is a downloaded import source.
type Document struct {
	URL         string // after redirects; relative links resolve against it
	ContentType string
	Body        []byte
}

var client = &http.Client{Timeout: 30 * time.Second}

// blocked reports addresses an import must not reach. Loopback stays open so
// local test servers work.
func blocked(ip net.IP) bool {
	if ip.IsLoopback() {
		return false
	}
	return ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast()
}

// Fetch downloads rawURL for import.
func Fetch(ctx context.Context, rawURL string) (*Document, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse source url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("import sources must be http or https, got %q", u.Scheme)
	}
	if ips, err := net.DefaultResolver.LookupIP(ctx, "ip", u.Hostname()); err == nil {
		for _, ip := range ips {
			if blocked(ip) {
				return nil, ErrPrivateAddress
			}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", u, err)
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", accept)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{URL: u.String(), Code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", u, err)
	}
	if len(body) > MaxBodySize {
		return nil, ErrTooLarge
	}

	return &Document{
		URL:         resp.Request.URL.String(),
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}
