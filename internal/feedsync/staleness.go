// ABOUTME: Staleness policy deciding when focus or an external write triggers a reload
// ABOUTME: Watch dispatches refresh-counter changes and optional polling ticks

package feedsync

import (
	"context"
	"time"
)

// ShouldReload reports whether cached state should be refetched on focus.
func ShouldReload(now, lastRefresh time.Time, empty, loadingMore bool, staleAfter time.Duration) bool {
	if empty {
		return true
	}
	return now.Sub(lastRefresh) > staleAfter && !loadingMore
}

// OnFocus runs LoadInitial(false) when the list is empty or stale.
// It reports whether a reload ran.
func (s *Syncer) OnFocus(ctx context.Context) bool {
	s.mu.Lock()
	reload := ShouldReload(s.opts.Clock.Now(), s.lastRefresh, len(s.items) == 0, s.loadingMore, s.opts.StaleAfter)
	s.mu.Unlock()
	if !reload {
		return false
	}
	s.LoadInitial(ctx, false)
	return true
}

// OnRefreshSignal forces a count refresh whenever counter differs from the
// last value observed. The first value observed only sets the baseline.
func (s *Syncer) OnRefreshSignal(ctx context.Context, counter uint64) bool {
	s.mu.Lock()
	if s.signalSeen && counter == s.lastSignal {
		s.mu.Unlock()
		return false
	}
	first := !s.signalSeen
	s.signalSeen = true
	s.lastSignal = counter
	s.mu.Unlock()

	if first {
		return false
	}
	s.ForceRefreshCounts(ctx)
	return true
}

// Watch follows sig until ctx is done. With polling enabled it also runs
// OnFocus every PollInterval.
func (s *Syncer) Watch(ctx context.Context, sig Signal) {
	s.OnRefreshSignal(ctx, sig.Counter())

	var tick <-chan time.Time
	if s.opts.PollingEnabled {
		ticker := time.NewTicker(s.opts.PollInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	changes := sig.Changes()
	for {
		select {
		case <-ctx.Done():
			return
		case v, ok := <-changes:
			if !ok {
				changes = nil
				continue
			}
			s.OnRefreshSignal(ctx, v)
		case <-tick:
			s.OnFocus(ctx)
		}
	}
}
