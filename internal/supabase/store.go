// ABOUTME: storage.Store implementation backed by Supabase PostgREST tables
// ABOUTME: Maps request, prayer, and encouragement operations onto REST filters

package supabase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/harper/amenity/internal/models"
	"github.com/harper/amenity/internal/storage"
)

var _ storage.Store = (*Client)(nil)

// uuidTemplate marks where dashes sit in a canonical UUID.
const uuidTemplate = "xxxxxxxx-xxxx-xxxx-xxxx-xxxxxxxxxxxx"

func returnMinimal() http.Header {
	h := http.Header{}
	h.Set("Prefer", "return=minimal")
	return h
}

func returnRepresentation() http.Header {
	h := http.Header{}
	h.Set("Prefer", "return=representation")
	return h
}

// CreateRequest inserts a prayer request.
func (c *Client) CreateRequest(ctx context.Context, req *models.Request) error {
	if _, err := c.do(ctx, http.MethodPost, TableRequests, nil, req, returnMinimal(), nil); err != nil {
		return fmt.Errorf("insert request: %w", err)
	}
	return nil
}

// GetRequest fetches one request by id.
func (c *Client) GetRequest(ctx context.Context, id string) (*models.Request, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("id", eq(id))
	var rows []*models.Request
	if _, err := c.do(ctx, http.MethodGet, TableRequests, q, nil, nil, &rows); err != nil {
		var apiErr *APIError
		// PostgREST rejects malformed uuids with 400.
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusBadRequest {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get request: %w", err)
	}
	if len(rows) == 0 {
		return nil, storage.ErrNotFound
	}
	return rows[0], nil
}

// GetRequestByPrefix finds a request whose id starts with prefix.
func (c *Client) GetRequestByPrefix(ctx context.Context, prefix string) (*models.Request, error) {
	if len(prefix) < storage.MinPrefixLength {
		return nil, fmt.Errorf("prefix must be at least %d characters", storage.MinPrefixLength)
	}
	lo, ok := padUUID(prefix, '0')
	if !ok {
		return nil, fmt.Errorf("no request found with prefix %s: %w", prefix, storage.ErrNotFound)
	}
	hi, _ := padUUID(prefix, 'f')

	q := url.Values{}
	q.Set("select", "*")
	q.Add("id", "gte."+lo)
	q.Add("id", "lte."+hi)
	q.Set("limit", "2")
	var rows []*models.Request
	if _, err := c.do(ctx, http.MethodGet, TableRequests, q, nil, nil, &rows); err != nil {
		return nil, fmt.Errorf("find request by prefix: %w", err)
	}
	switch len(rows) {
	case 0:
		return nil, fmt.Errorf("no request found with prefix %s: %w", prefix, storage.ErrNotFound)
	case 1:
		return rows[0], nil
	default:
		return nil, fmt.Errorf("ambiguous prefix %s matches multiple requests", prefix)
	}
}

// padUUID completes a lowercase hex prefix to a full UUID using fill.
func padUUID(prefix string, fill byte) (string, bool) {
	prefix = strings.ToLower(prefix)
	if len(prefix) > len(uuidTemplate) {
		return "", false
	}
	out := []byte(uuidTemplate)
	for i := range out {
		if i < len(prefix) {
			ch := prefix[i]
			if out[i] == '-' {
				if ch != '-' {
					return "", false
				}
				continue
			}
			if !isHex(ch) {
				return "", false
			}
			out[i] = ch
			continue
		}
		if out[i] != '-' {
			out[i] = fill
		}
	}
	return string(out), true
}

func isHex(ch byte) bool {
	return (ch >= '0' && ch <= '9') || (ch >= 'a' && ch <= 'f')
}

// ListRequests returns a page of requests, newest first.
func (c *Client) ListRequests(ctx context.Context, limit, offset int) ([]*models.Request, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("order", "created_at.desc,id.desc")
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}
	rows := []*models.Request{}
	if _, err := c.do(ctx, http.MethodGet, TableRequests, q, nil, nil, &rows); err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	return rows, nil
}

// UpdateRequestStatus sets the status of a request.
func (c *Client) UpdateRequestStatus(ctx context.Context, id string, status models.Status) error {
	q := url.Values{}
	q.Set("id", eq(id))
	var rows []*models.Request
	body := map[string]string{"status": string(status)}
	if _, err := c.do(ctx, http.MethodPatch, TableRequests, q, body, returnRepresentation(), &rows); err != nil {
		return fmt.Errorf("update request status: %w", err)
	}
	if len(rows) == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// DeleteRequest removes a request. Prayers and encouragements cascade server side.
func (c *Client) DeleteRequest(ctx context.Context, id string) error {
	q := url.Values{}
	q.Set("id", eq(id))
	var rows []*models.Request
	if _, err := c.do(ctx, http.MethodDelete, TableRequests, q, nil, returnRepresentation(), &rows); err != nil {
		return fmt.Errorf("delete request: %w", err)
	}
	if len(rows) == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// AddPrayer inserts a prayer.
func (c *Client) AddPrayer(ctx context.Context, p *models.Prayer) error {
	if _, err := c.do(ctx, http.MethodPost, TablePrayers, nil, p, returnMinimal(), nil); err != nil {
		return fmt.Errorf("insert prayer: %w", err)
	}
	return nil
}

// AddEncouragement inserts an encouragement.
func (c *Client) AddEncouragement(ctx context.Context, e *models.Encouragement) error {
	if _, err := c.do(ctx, http.MethodPost, TableEncouragements, nil, e, returnMinimal(), nil); err != nil {
		return fmt.Errorf("insert encouragement: %w", err)
	}
	return nil
}

// ListPrayers returns prayers for a request, oldest first.
func (c *Client) ListPrayers(ctx context.Context, requestID string) ([]*models.Prayer, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("prayer_request_id", eq(requestID))
	q.Set("order", "created_at.asc")
	rows := []*models.Prayer{}
	if _, err := c.do(ctx, http.MethodGet, TablePrayers, q, nil, nil, &rows); err != nil {
		return nil, fmt.Errorf("list prayers: %w", err)
	}
	return rows, nil
}

// ListEncouragements returns encouragements for a request, newest first.
func (c *Client) ListEncouragements(ctx context.Context, requestID string, limit int) ([]*models.Encouragement, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("prayer_request_id", eq(requestID))
	q.Set("order", "created_at.desc")
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	rows := []*models.Encouragement{}
	if _, err := c.do(ctx, http.MethodGet, TableEncouragements, q, nil, nil, &rows); err != nil {
		return nil, fmt.Errorf("list encouragements: %w", err)
	}
	return rows, nil
}

func tableFor(kind models.CountKind) (string, error) {
	switch kind {
	case models.KindPrayer:
		return TablePrayers, nil
	case models.KindEncouragement:
		return TableEncouragements, nil
	}
	return "", fmt.Errorf("unknown count kind %q", kind)
}

// CountAggregate returns the exact number of rows of kind for a request.
func (c *Client) CountAggregate(ctx context.Context, requestID string, kind models.CountKind) (int, error) {
	table, err := tableFor(kind)
	if err != nil {
		return 0, err
	}
	q := url.Values{}
	q.Set("select", "id")
	q.Set("prayer_request_id", eq(requestID))
	n, err := c.count(ctx, table, q)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

type requestRef struct {
	RequestID string `json:"prayer_request_id"`
}

// ErrPartialBatch means the server capped a batch response below its exact
// row count, so tallying the rows would undercount.
var ErrPartialBatch = errors.New("batch response truncated by server row limit")

// CountBatch fetches the foreign keys for every id in one request and tallies them.
// It fails with ErrPartialBatch when the rows returned fall short of the
// exact count in Content-Range.
func (c *Client) CountBatch(ctx context.Context, requestIDs []string, kind models.CountKind) (map[string]int, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int, len(requestIDs))
	if len(requestIDs) == 0 {
		return out, nil
	}
	for _, id := range requestIDs {
		out[id] = 0
	}

	q := url.Values{}
	q.Set("select", "prayer_request_id")
	q.Set("prayer_request_id", inList(requestIDs))
	h := http.Header{}
	h.Set("Prefer", "count=exact")
	var refs []requestRef
	resp, err := c.do(ctx, http.MethodGet, table, q, nil, h, &refs)
	if err != nil {
		return nil, fmt.Errorf("batch count %s: %w", table, err)
	}
	total, err := parseContentRange(resp.Header.Get("Content-Range"))
	if err != nil {
		return nil, fmt.Errorf("batch count %s: %w", table, err)
	}
	if total != len(refs) {
		return nil, fmt.Errorf("batch count %s: got %d of %d rows: %w", table, len(refs), total, ErrPartialBatch)
	}
	for _, r := range refs {
		if _, ok := out[r.RequestID]; ok {
			out[r.RequestID]++
		}
	}
	return out, nil
}

// Search matches query case-insensitively against titles and descriptions.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]*models.Request, error) {
	term := strings.NewReplacer(",", " ", "(", " ", ")", " ", "*", " ").Replace(query)
	term = strings.TrimSpace(term)
	if term == "" {
		return []*models.Request{}, nil
	}
	q := url.Values{}
	q.Set("select", "*")
	q.Set("or", fmt.Sprintf("(title.ilike.*%s*,description.ilike.*%s*)", term, term))
	q.Set("order", "created_at.desc")
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	rows := []*models.Request{}
	if _, err := c.do(ctx, http.MethodGet, TableRequests, q, nil, nil, &rows); err != nil {
		return nil, fmt.Errorf("search requests: %w", err)
	}
	return rows, nil
}

// Stats gathers totals with exact-count HEAD requests.
func (c *Client) Stats(ctx context.Context) (*storage.Stats, error) {
	st := &storage.Stats{}
	queries := []struct {
		table  string
		status models.Status
		dst    *int
	}{
		{TableRequests, "", &st.TotalRequests},
		{TableRequests, models.StatusActive, &st.Active},
		{TableRequests, models.StatusAnswered, &st.Answered},
		{TablePrayers, "", &st.Prayers},
		{TableEncouragements, "", &st.Encouragements},
	}
	for _, qq := range queries {
		q := url.Values{}
		q.Set("select", "id")
		if qq.status != "" {
			q.Set("status", eq(string(qq.status)))
		}
		n, err := c.count(ctx, qq.table, q)
		if err != nil {
			return nil, fmt.Errorf("count %s: %w", qq.table, err)
		}
		*qq.dst = n
	}
	return st, nil
}
