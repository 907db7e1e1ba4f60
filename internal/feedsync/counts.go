// ABOUTME: Aggregate count loading for displayed requests
// ABOUTME: Uses a batch endpoint when the source offers one and a bounded fan-out otherwise

package feedsync

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/harper/amenity/internal/models"
)

// LoadCountsFor fetches counts for items and merges them by id. Failures
// count as zero and are never returned.
func (s *Syncer) LoadCountsFor(ctx context.Context, items []*models.Request) {
	s.mu.Lock()
	epoch := s.countsEpoch
	s.mu.Unlock()
	s.loadCounts(ctx, items, epoch)
}

// loadCounts merges counts for items that are still displayed. A forced
// reload bumps the epoch and drops results fetched before it.
func (s *Syncer) loadCounts(ctx context.Context, items []*models.Request, epoch uint64) {
	ids := idsOf(items)
	if len(ids) == 0 {
		return
	}
	fresh := s.fetchCounts(ctx, ids)

	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.countsEpoch {
		s.log.Debug("discarding stale counts", "op", "load_counts", "epoch", epoch, "current", s.countsEpoch)
		return
	}
	for id, c := range fresh {
		if _, shown := s.index[id]; shown {
			s.counts[id] = c
		}
	}
	s.notifyLocked()
}

// ForceRefreshCounts recomputes counts for every displayed request and
// replaces the whole mapping. Requests that arrived while the refresh was
// running keep the counts their own page load produced.
func (s *Syncer) ForceRefreshCounts(ctx context.Context) {
	s.mu.Lock()
	s.countsEpoch++
	epoch := s.countsEpoch
	ids := idsOf(s.items)
	s.mu.Unlock()

	fresh := s.fetchCounts(ctx, ids)

	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.countsEpoch {
		s.log.Debug("discarding stale counts", "op", "force_refresh_counts", "epoch", epoch, "current", s.countsEpoch)
		return
	}
	next := make(map[string]models.Counts, len(s.items))
	for _, it := range s.items {
		if c, ok := fresh[it.ID]; ok {
			next[it.ID] = c
		} else if c, ok := s.counts[it.ID]; ok {
			next[it.ID] = c
		}
	}
	s.counts = next
	s.notifyLocked()
}

// FetchCounts returns counts for ids without touching the displayed state.
// It follows the same batch-then-fan-out rule as page loads.
func (s *Syncer) FetchCounts(ctx context.Context, ids []string) map[string]models.Counts {
	return s.fetchCounts(ctx, ids)
}

// fetchCounts returns an entry for every id. Missing or failed values are zero.
func (s *Syncer) fetchCounts(ctx context.Context, ids []string) map[string]models.Counts {
	out := make(map[string]models.Counts, len(ids))
	for _, id := range ids {
		out[id] = models.Counts{}
	}
	if len(ids) == 0 {
		return out
	}

	batcher, canBatch := s.src.(BatchCounter)
	for _, kind := range models.CountKinds {
		if canBatch {
			got, err := batcher.CountBatch(ctx, ids, kind)
			if err == nil {
				for _, id := range ids {
					out[id] = out[id].With(kind, got[id])
				}
				continue
			}
			s.log.Warn("batch count failed, falling back", "op", "count_batch", "kind", kind, "err", err)
		}
		s.fanOut(ctx, ids, kind, out)
	}
	return out
}

// fanOut issues one request per id, bounded by MaxConcurrentCounts.
func (s *Syncer) fanOut(ctx context.Context, ids []string, kind models.CountKind, out map[string]models.Counts) {
	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(s.opts.MaxConcurrentCounts)
	for _, id := range ids {
		g.Go(func() error {
			n, err := s.src.CountAggregate(ctx, id, kind)
			if err != nil {
				s.log.Debug("count failed", "op", "count_aggregate", "id", id, "kind", kind, "err", err)
				n = 0
			}
			mu.Lock()
			out[id] = out[id].With(kind, n)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
}
