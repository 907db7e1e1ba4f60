// ABOUTME: Pagination state machine for the feed: initial load, forced reload, and load-more
// ABOUTME: Generation tokens discard pages that arrive after a newer initial load started

package feedsync

import (
	"context"

	"github.com/harper/amenity/internal/models"
)

// LoadInitial fetches the first page. With force, the list, counts, window and
// novelty set are cleared before the fetch. A failed fetch keeps whatever is
// displayed.
func (s *Syncer) LoadInitial(ctx context.Context, force bool) {
	s.mu.Lock()
	if force {
		s.items = nil
		s.index = make(map[string]struct{})
		s.counts = make(map[string]models.Counts)
		s.window = Window{Limit: s.opts.PageSize, HasMore: true}
		s.clearNoveltyLocked()
		s.countsEpoch++
	}
	s.generation++
	gen := s.generation
	s.loadingInitial++
	limit := s.opts.PageSize
	s.notifyLocked()
	s.mu.Unlock()

	page, err := s.src.ListRequests(ctx, limit, 0)

	s.mu.Lock()
	s.loadingInitial--
	if gen != s.generation {
		s.log.Debug("discarding stale page", "op", "load_initial", "generation", gen, "current", s.generation)
		s.notifyLocked()
		s.mu.Unlock()
		return
	}
	if err != nil {
		s.log.Warn("list requests failed", "op", "load_initial", "offset", 0, "err", err)
		s.lastErr = err
		s.notifyLocked()
		s.mu.Unlock()
		return
	}

	s.lastErr = nil
	s.items = s.items[:0:0]
	s.index = make(map[string]struct{}, len(page))
	fresh := s.appendLocked(page)
	s.window = Window{Offset: len(page), Limit: limit, HasMore: len(page) > 0 && len(page) == limit}
	s.lastRefresh = s.opts.Clock.Now()

	highlight := ""
	if s.opts.Highlighter != nil {
		highlight = s.opts.Highlighter.TakeHighlight()
	}
	s.applyNoveltyLocked(s.detector.detect(idsOf(fresh), highlight, force))
	epoch := s.countsEpoch
	s.notifyLocked()
	s.mu.Unlock()

	if len(fresh) > 0 {
		s.loadCounts(ctx, fresh, epoch)
	}
}

// LoadMore fetches the page after the current offset. It reports whether a
// fetch was issued; it returns false while another load-more is in flight or
// once the feed is exhausted.
func (s *Syncer) LoadMore(ctx context.Context) bool {
	s.mu.Lock()
	if s.loadingMore || !s.window.HasMore {
		s.mu.Unlock()
		return false
	}
	s.loadingMore = true
	gen := s.generation
	offset := s.window.Offset
	limit := s.window.Limit
	s.notifyLocked()
	s.mu.Unlock()

	page, err := s.src.ListRequests(ctx, limit, offset)

	s.mu.Lock()
	s.loadingMore = false
	if gen != s.generation {
		s.log.Debug("discarding stale page", "op", "load_more", "offset", offset, "generation", gen, "current", s.generation)
		s.notifyLocked()
		s.mu.Unlock()
		return true
	}
	if err != nil {
		s.log.Warn("list requests failed", "op", "load_more", "offset", offset, "err", err)
		s.lastErr = err
		s.notifyLocked()
		s.mu.Unlock()
		return true
	}

	s.lastErr = nil
	var appended []*models.Request
	if len(page) == 0 {
		s.window.HasMore = false
	} else {
		appended = s.appendLocked(page)
		s.window.Offset += len(page)
		s.window.HasMore = len(page) == limit
	}
	epoch := s.countsEpoch
	s.notifyLocked()
	s.mu.Unlock()

	if len(appended) > 0 {
		s.loadCounts(ctx, appended, epoch)
	}
	return true
}

// appendLocked adds requests not already displayed and returns those added.
func (s *Syncer) appendLocked(page []*models.Request) []*models.Request {
	added := make([]*models.Request, 0, len(page))
	for _, req := range page {
		if req == nil {
			continue
		}
		if _, dup := s.index[req.ID]; dup {
			continue
		}
		s.index[req.ID] = struct{}{}
		s.items = append(s.items, req)
		added = append(added, req)
	}
	return added
}

func idsOf(reqs []*models.Request) []string {
	ids := make([]string, len(reqs))
	for i, r := range reqs {
		ids[i] = r.ID
	}
	return ids
}
