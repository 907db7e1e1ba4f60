// ABOUTME: Minimal PostgREST client for a Supabase-hosted amenity database
// ABOUTME: Handles auth headers, rate limiting, count headers, and error decoding

package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Table names in the public schema.
const (
	TableRequests       = "prayer_requests"
	TablePrayers        = "prayers"
	TableEncouragements = "encouragements"
)

const maxErrorBody = 512

// APIError is a non-2xx PostgREST response.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("supabase: status %d: %s", e.Status, e.Body)
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithRateLimit caps outgoing requests per second.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst) }
}

// Client talks to the PostgREST endpoint of a Supabase project.
type Client struct {
	baseURL string
	key     string
	http    *http.Client
	limiter *rate.Limiter
}

// New creates a client for the project at baseURL using the given API key.
func New(baseURL, key string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("supabase url is required")
	}
	if key == "" {
		return nil, fmt.Errorf("supabase key is required")
	}
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid supabase url %q", baseURL)
	}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/") + "/rest/v1/",
		key:     key,
		http:    &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(20), 20),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

// do sends a request to table with query q and decodes a JSON response into out.
func (c *Client) do(ctx context.Context, method, table string, q url.Values, body any, header http.Header, out any) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	endpoint := c.baseURL + table
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode body: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("apikey", c.key)
	req.Header.Set("Authorization", "Bearer "+c.key)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, table, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return resp, &APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}

	if out != nil && method != http.MethodHead {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp, fmt.Errorf("decode %s response: %w", table, err)
		}
	}
	return resp, nil
}

// count issues a HEAD request with an exact count and parses Content-Range.
func (c *Client) count(ctx context.Context, table string, q url.Values) (int, error) {
	h := http.Header{}
	h.Set("Prefer", "count=exact")
	resp, err := c.do(ctx, http.MethodHead, table, q, nil, h, nil)
	if err != nil {
		return 0, err
	}
	return parseContentRange(resp.Header.Get("Content-Range"))
}

// parseContentRange extracts the total from "0-9/42" or "*/0".
func parseContentRange(v string) (int, error) {
	i := strings.LastIndexByte(v, '/')
	if i < 0 || i == len(v)-1 {
		return 0, fmt.Errorf("missing count in content-range %q", v)
	}
	total := v[i+1:]
	if total == "*" {
		return 0, fmt.Errorf("server did not return an exact count")
	}
	n, err := strconv.Atoi(total)
	if err != nil {
		return 0, fmt.Errorf("parse content-range %q: %w", v, err)
	}
	return n, nil
}

func eq(v string) string { return "eq." + v }

// inList renders a PostgREST in.(...) filter with quoted values.
func inList(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = `"` + strings.ReplaceAll(v, `"`, `\"`) + `"`
	}
	return "in.(" + strings.Join(quoted, ",") + ")"
}
