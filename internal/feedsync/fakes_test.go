// ABOUTME: Test doubles for the feed synchronizer
// ABOUTME: In-memory source with call recording and gating, plus a manual clock

package feedsync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/harper/amenity/internal/models"
)

var errBoom = errors.New("boom")

type listCall struct {
	limit, offset int
}

// fakeSource serves pages from an in-memory slice, newest first.
type fakeSource struct {
	mu        sync.Mutex
	items     []*models.Request
	counts    map[string]models.Counts
	calls     []listCall
	listErr   error
	countErr  map[string]error
	countHits int

	// When gate is non-nil, ListRequests signals started and then waits on gate.
	gate    chan struct{}
	started chan struct{}

	// CountAggregate for an id in countGated signals countStarted and then
	// waits on countGate.
	countGate    chan struct{}
	countStarted chan string
	countGated   map[string]bool
}

func newFakeSource(ids ...string) *fakeSource {
	src := &fakeSource{counts: make(map[string]models.Counts), countErr: make(map[string]error)}
	src.setItems(ids...)
	return src
}

func (f *fakeSource) setItems(ids ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	f.items = make([]*models.Request, len(ids))
	for i, id := range ids {
		f.items[i] = &models.Request{
			ID:        id,
			Title:     "Request " + id,
			Status:    models.StatusActive,
			Urgency:   models.UrgencyNormal,
			Category:  models.DefaultCategory,
			CreatedAt: base.Add(-time.Duration(i) * time.Minute),
		}
	}
}

func (f *fakeSource) ListRequests(ctx context.Context, limit, offset int) ([]*models.Request, error) {
	f.mu.Lock()
	f.calls = append(f.calls, listCall{limit, offset})
	gate, started := f.gate, f.started
	f.mu.Unlock()

	if gate != nil {
		if started != nil {
			started <- struct{}{}
		}
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	if offset >= len(f.items) {
		return []*models.Request{}, nil
	}
	end := offset + limit
	if end > len(f.items) {
		end = len(f.items)
	}
	return append([]*models.Request(nil), f.items[offset:end]...), nil
}

func (f *fakeSource) CountAggregate(ctx context.Context, id string, kind models.CountKind) (int, error) {
	f.mu.Lock()
	gate, started := f.countGate, f.countStarted
	gated := f.countGated[id]
	f.mu.Unlock()

	if gate != nil && gated {
		started <- id
		select {
		case <-gate:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.countHits++
	if err := f.countErr[id]; err != nil {
		return 0, err
	}
	return f.counts[id].Get(kind), nil
}

func (f *fakeSource) setCounts(id string, prayers, encouragements int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts[id] = models.Counts{Prayers: prayers, Encouragements: encouragements}
}

// gateCounts holds count requests for ids until the returned release is called.
func (f *fakeSource) gateCounts(ids ...string) (started <-chan string, release func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.countGate = make(chan struct{})
	f.countStarted = make(chan string, 64)
	f.countGated = make(map[string]bool, len(ids))
	for _, id := range ids {
		f.countGated[id] = true
	}
	gate := f.countGate
	return f.countStarted, func() { close(gate) }
}

func (f *fakeSource) ungate(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.countGated, id)
}

func (f *fakeSource) setListErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listErr = err
}

func (f *fakeSource) listCalls() []listCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]listCall(nil), f.calls...)
}

func (f *fakeSource) countCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.countHits
}

// batchSource adds a batch endpoint to fakeSource.
type batchSource struct {
	*fakeSource
	batchCalls int
	batchErr   error
}

func (b *batchSource) CountBatch(ctx context.Context, ids []string, kind models.CountKind) (map[string]int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.batchCalls++
	if b.batchErr != nil {
		return nil, b.batchErr
	}
	out := make(map[string]int, len(ids))
	for _, id := range ids {
		out[id] = b.counts[id].Get(kind)
	}
	return out, nil
}

// fakeClock only moves when Advance is called.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves time forward and runs timers that came due.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*fakeTimer
	pending := c.timers[:0]
	for _, t := range c.timers {
		switch {
		case t.stopped:
		case !t.at.After(c.now):
			t.fired = true
			due = append(due, t)
		default:
			pending = append(pending, t)
		}
	}
	c.timers = pending
	c.mu.Unlock()

	for _, t := range due {
		t.f()
	}
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Time
	f       func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

type staticHighlight struct {
	mu sync.Mutex
	id string
}

func (h *staticHighlight) TakeHighlight() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.id
	h.id = ""
	return id
}

func letters(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("%c", 'A'+i)
	}
	return ids
}
