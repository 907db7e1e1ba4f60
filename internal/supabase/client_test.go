// ABOUTME: Tests for the Supabase PostgREST client using httptest servers
// ABOUTME: Verifies query construction, auth headers, count parsing, and error mapping

package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/harper/amenity/internal/models"
	"github.com/harper/amenity/internal/storage"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL, "test-key", WithHTTPClient(srv.Client()), WithRateLimit(1000, 1000))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return c
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Errorf("encode response: %v", err)
	}
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name, url, key string
	}{
		{"missing url", "", "k"},
		{"missing key", "https://x.supabase.co", ""},
		{"bad url", "not a url", "k"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.url, tt.key); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestListRequests(t *testing.T) {
	created := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/v1/prayer_requests" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("apikey") != "test-key" || r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("missing auth headers: %v", r.Header)
		}
		q := r.URL.Query()
		if q.Get("limit") != "3" || q.Get("offset") != "6" {
			t.Errorf("unexpected paging: limit=%s offset=%s", q.Get("limit"), q.Get("offset"))
		}
		if !strings.HasPrefix(q.Get("order"), "created_at.desc") {
			t.Errorf("unexpected order %q", q.Get("order"))
		}
		writeJSON(t, w, []map[string]any{
			{"id": "a1", "title": "Healing", "status": "active", "urgency_level": "high", "created_at": created},
			{"id": "b2", "title": "Job", "status": "answered", "urgency_level": "normal", "created_at": created, "user_id": "u1"},
		})
	})

	reqs, err := c.ListRequests(context.Background(), 3, 6)
	if err != nil {
		t.Fatalf("ListRequests failed: %v", err)
	}
	if len(reqs) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(reqs))
	}
	if reqs[0].Urgency != models.UrgencyHigh || !reqs[0].IsAnonymous() {
		t.Errorf("unexpected first request %+v", reqs[0])
	}
	if reqs[1].Status != models.StatusAnswered || reqs[1].AuthorID == nil || *reqs[1].AuthorID != "u1" {
		t.Errorf("unexpected second request %+v", reqs[1])
	}
}

func TestGetRequest_NotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("id"); got != "eq.missing" {
			t.Errorf("unexpected id filter %q", got)
		}
		writeJSON(t, w, []any{})
	})

	if _, err := c.GetRequest(context.Background(), "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestGetRequestByPrefix(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		bounds := r.URL.Query()["id"]
		want := []string{
			"gte.abcdef12-0000-0000-0000-000000000000",
			"lte.abcdef12-ffff-ffff-ffff-ffffffffffff",
		}
		if len(bounds) != 2 || bounds[0] != want[0] || bounds[1] != want[1] {
			t.Errorf("unexpected bounds %v", bounds)
		}
		writeJSON(t, w, []map[string]any{{"id": "abcdef12-3456-7890-abcd-ef1234567890", "title": "Found"}})
	})

	got, err := c.GetRequestByPrefix(context.Background(), "ABCDEF12")
	if err != nil {
		t.Fatalf("GetRequestByPrefix failed: %v", err)
	}
	if got.Title != "Found" {
		t.Errorf("unexpected request %+v", got)
	}

	if _, err := c.GetRequestByPrefix(context.Background(), "abc"); err == nil {
		t.Error("expected error for short prefix")
	}
	if _, err := c.GetRequestByPrefix(context.Background(), "zzzzzzzz"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound for non-hex prefix, got %v", err)
	}
}

func TestPadUUID(t *testing.T) {
	tests := []struct {
		prefix string
		fill   byte
		want   string
		ok     bool
	}{
		{"abcdef", '0', "abcdef00-0000-0000-0000-000000000000", true},
		{"abcdef12-34", 'f', "abcdef12-34ff-ffff-ffff-ffffffffffff", true},
		{"abcdef123", '0', "", false},
		{"xyz123", '0', "", false},
	}
	for _, tt := range tests {
		got, ok := padUUID(tt.prefix, tt.fill)
		if ok != tt.ok || got != tt.want {
			t.Errorf("padUUID(%q) = %q, %v; want %q, %v", tt.prefix, got, ok, tt.want, tt.ok)
		}
	}
}

func TestParseContentRange(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"0-9/42", 42, false},
		{"*/0", 0, false},
		{"0-9/*", 0, true},
		{"", 0, true},
		{"0-9/abc", 0, true},
	}
	for _, tt := range tests {
		got, err := parseContentRange(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("parseContentRange(%q) = %d, %v", tt.in, got, err)
		}
	}
}

func TestCountAggregate(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Errorf("expected HEAD, got %s", r.Method)
		}
		if r.URL.Path != "/rest/v1/prayers" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Prefer") != "count=exact" {
			t.Errorf("missing count preference")
		}
		if got := r.URL.Query().Get("prayer_request_id"); got != "eq.r1" {
			t.Errorf("unexpected filter %q", got)
		}
		w.Header().Set("Content-Range", "0-2/3")
	})

	n, err := c.CountAggregate(context.Background(), "r1", models.KindPrayer)
	if err != nil {
		t.Fatalf("CountAggregate failed: %v", err)
	}
	if n != 3 {
		t.Errorf("expected 3, got %d", n)
	}

	if _, err := c.CountAggregate(context.Background(), "r1", models.CountKind("likes")); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestCountBatch(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/v1/encouragements" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("prayer_request_id"); got != `in.("a","b","c")` {
			t.Errorf("unexpected in filter %q", got)
		}
		if r.Header.Get("Prefer") != "count=exact" {
			t.Errorf("missing count preference")
		}
		w.Header().Set("Content-Range", "0-3/4")
		writeJSON(t, w, []requestRef{{"a"}, {"a"}, {"c"}, {"zzz"}})
	})

	got, err := c.CountBatch(context.Background(), []string{"a", "b", "c"}, models.KindEncouragement)
	if err != nil {
		t.Fatalf("CountBatch failed: %v", err)
	}
	want := map[string]int{"a": 2, "b": 0, "c": 1}
	if len(got) != len(want) {
		t.Fatalf("expected %d entries, got %v", len(want), got)
	}
	for id, n := range want {
		if got[id] != n {
			t.Errorf("count[%s] = %d, want %d", id, got[id], n)
		}
	}
}

func TestCountBatch_TruncatedByRowLimit(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		refs := make([]requestRef, 1000)
		for i := range refs {
			refs[i] = requestRef{"a"}
		}
		w.Header().Set("Content-Range", "0-999/1500")
		writeJSON(t, w, refs)
	})

	got, err := c.CountBatch(context.Background(), []string{"a"}, models.KindPrayer)
	if !errors.Is(err, ErrPartialBatch) {
		t.Fatalf("expected ErrPartialBatch, got %v (counts %v)", err, got)
	}
	if got != nil {
		t.Errorf("expected no counts on a truncated batch, got %v", got)
	}
}

func TestCountBatch_MissingContentRange(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, []requestRef{{"a"}})
	})

	if _, err := c.CountBatch(context.Background(), []string{"a"}, models.KindPrayer); err == nil {
		t.Error("expected an error when the exact count is missing")
	}
}

func TestAPIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Invalid API key"}`))
	})

	_, err := c.ListRequests(context.Background(), 10, 0)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.Status != http.StatusUnauthorized || !strings.Contains(apiErr.Body, "Invalid API key") {
		t.Errorf("unexpected error %+v", apiErr)
	}
}

func TestCreateAndUpdate(t *testing.T) {
	var mu sync.Mutex
	var methods []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		methods = append(methods, r.Method)
		mu.Unlock()
		switch r.Method {
		case http.MethodPost:
			var body models.Request
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Errorf("decode body: %v", err)
			}
			if body.Title != "Healing" {
				t.Errorf("unexpected body %+v", body)
			}
			w.WriteHeader(http.StatusCreated)
		case http.MethodPatch:
			if r.Header.Get("Prefer") != "return=representation" {
				t.Errorf("expected representation preference")
			}
			writeJSON(t, w, []map[string]any{{"id": "r1", "status": "answered"}})
		}
	})

	ctx := context.Background()
	req := models.NewRequest("Healing", "")
	if err := c.CreateRequest(ctx, req); err != nil {
		t.Fatalf("CreateRequest failed: %v", err)
	}
	if err := c.UpdateRequestStatus(ctx, "r1", models.StatusAnswered); err != nil {
		t.Fatalf("UpdateRequestStatus failed: %v", err)
	}
	if len(methods) != 2 || methods[0] != http.MethodPost || methods[1] != http.MethodPatch {
		t.Errorf("unexpected methods %v", methods)
	}
}

func TestStats(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		total := "0"
		switch {
		case r.URL.Path == "/rest/v1/prayer_requests" && r.URL.Query().Get("status") == "eq.active":
			total = "2"
		case r.URL.Path == "/rest/v1/prayer_requests" && r.URL.Query().Get("status") == "eq.answered":
			total = "1"
		case r.URL.Path == "/rest/v1/prayer_requests":
			total = "3"
		case r.URL.Path == "/rest/v1/prayers":
			total = "7"
		}
		w.Header().Set("Content-Range", "*/"+total)
	})

	st, err := c.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if st.TotalRequests != 3 || st.Active != 2 || st.Answered != 1 || st.Prayers != 7 || st.Encouragements != 0 {
		t.Errorf("unexpected stats %+v", st)
	}
}
