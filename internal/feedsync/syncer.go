// ABOUTME: Feed synchronizer that pages through prayer requests and tracks derived state
// ABOUTME: Holds the display list, aggregate counts, page window, and novelty set behind one mutex

package feedsync

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/harper/amenity/internal/models"
)

// Default tuning values.
const (
	DefaultPageSize            = 10
	DefaultNoveltyDecay        = 3000 * time.Millisecond
	DefaultStaleAfter          = 5000 * time.Millisecond
	DefaultPollInterval        = 30 * time.Second
	DefaultMaxConcurrentCounts = 8
)

// Lister fetches a page of requests ordered newest first.
type Lister interface {
	ListRequests(ctx context.Context, limit, offset int) ([]*models.Request, error)
}

// Counter fetches a single aggregate count for one request.
type Counter interface {
	CountAggregate(ctx context.Context, requestID string, kind models.CountKind) (int, error)
}

// BatchCounter fetches one aggregate kind for many requests in a single call.
// Counters that also implement it are queried once per kind per page.
type BatchCounter interface {
	CountBatch(ctx context.Context, requestIDs []string, kind models.CountKind) (map[string]int, error)
}

// Source is the remote collaborator the Syncer reads from.
// storage.Store and supabase.Client both satisfy it.
type Source interface {
	Lister
	Counter
}

// Highlighter hands over the id of a request created elsewhere, once.
type Highlighter interface {
	TakeHighlight() string
}

// Signal exposes the app-wide refresh counter.
type Signal interface {
	Counter() uint64
	Changes() <-chan uint64
}

// Options tunes a Syncer. Zero values fall back to the defaults above.
type Options struct {
	PageSize            int
	NoveltyDecay        time.Duration
	StaleAfter          time.Duration
	PollingEnabled      bool
	PollInterval        time.Duration
	MaxConcurrentCounts int

	Logger      *log.Logger
	Clock       Clock
	Highlighter Highlighter
}

func (o Options) withDefaults() Options {
	if o.PageSize <= 0 {
		o.PageSize = DefaultPageSize
	}
	if o.NoveltyDecay <= 0 {
		o.NoveltyDecay = DefaultNoveltyDecay
	}
	if o.StaleAfter <= 0 {
		o.StaleAfter = DefaultStaleAfter
	}
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.MaxConcurrentCounts <= 0 {
		o.MaxConcurrentCounts = DefaultMaxConcurrentCounts
	}
	if o.Logger == nil {
		o.Logger = log.New(io.Discard)
	}
	if o.Clock == nil {
		o.Clock = RealClock()
	}
	return o
}

// Window is the pagination cursor.
type Window struct {
	Offset  int
	Limit   int
	HasMore bool
}

// Syncer keeps a paged, count-annotated view of the feed in step with its Source.
type Syncer struct {
	src  Source
	opts Options
	log  *log.Logger

	mu             sync.Mutex
	items          []*models.Request
	index          map[string]struct{}
	counts         map[string]models.Counts
	window         Window
	loadingInitial int
	loadingMore    bool
	generation     uint64
	countsEpoch    uint64
	lastRefresh    time.Time
	lastErr        error

	detector     detector
	novel        map[string]struct{}
	noveltyTimer Timer
	noveltyToken uint64

	signalSeen bool
	lastSignal uint64

	subs map[chan struct{}]struct{}
}

// New creates a Syncer over src.
func New(src Source, opts Options) *Syncer {
	opts = opts.withDefaults()
	return &Syncer{
		src:    src,
		opts:   opts,
		log:    opts.Logger,
		index:  make(map[string]struct{}),
		counts: make(map[string]models.Counts),
		window: Window{Limit: opts.PageSize, HasMore: true},
		novel:  make(map[string]struct{}),
		subs:   make(map[chan struct{}]struct{}),
	}
}

// Options returns the effective options.
func (s *Syncer) Options() Options { return s.opts }

// Snapshot is a point-in-time copy of the Syncer's state.
type Snapshot struct {
	Items          []*models.Request
	Counts         map[string]models.Counts
	Window         Window
	Novel          map[string]struct{}
	LoadingInitial bool
	LoadingMore    bool
	LastRefresh    time.Time
	Generation     uint64
	Err            error
}

// CountsFor returns the counts for id, zero when not yet loaded.
func (s Snapshot) CountsFor(id string) models.Counts {
	return s.Counts[id]
}

// IsNovel reports whether id is currently highlighted as just arrived.
func (s Snapshot) IsNovel(id string) bool {
	_, ok := s.Novel[id]
	return ok
}

// IDs returns the displayed ids in order.
func (s Snapshot) IDs() []string {
	ids := make([]string, len(s.Items))
	for i, it := range s.Items {
		ids[i] = it.ID
	}
	return ids
}

// Snapshot copies the current state.
func (s *Syncer) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Items:          append([]*models.Request(nil), s.items...),
		Counts:         make(map[string]models.Counts, len(s.counts)),
		Window:         s.window,
		Novel:          make(map[string]struct{}, len(s.novel)),
		LoadingInitial: s.loadingInitial > 0,
		LoadingMore:    s.loadingMore,
		LastRefresh:    s.lastRefresh,
		Generation:     s.generation,
		Err:            s.lastErr,
	}
	for id, c := range s.counts {
		snap.Counts[id] = c
	}
	for id := range s.novel {
		snap.Novel[id] = struct{}{}
	}
	return snap
}

// Subscribe returns a channel that receives a value after state changes.
// Notifications coalesce. cancel unsubscribes and closes the channel.
func (s *Syncer) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	s.mu.Lock()
	s.subs[ch] = struct{}{}
	s.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, ch)
			close(ch)
			s.mu.Unlock()
		})
	}
	return ch, cancel
}

// notifyLocked wakes subscribers. Callers hold s.mu.
func (s *Syncer) notifyLocked() {
	for ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Close stops the pending novelty timer.
func (s *Syncer) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.noveltyTimer != nil {
		s.noveltyTimer.Stop()
		s.noveltyTimer = nil
	}
	s.noveltyToken++
}
