// ABOUTME: Novelty detection for requests that arrived since the previous load
// ABOUTME: The highlight set clears itself after a decay window or on a forced reload

package feedsync

// detector remembers the ids of the previous initial load.
type detector struct {
	previous map[string]struct{}
}

// detect returns the ids to highlight and replaces the snapshot with ids.
// Without a prior snapshot only the highlight id can be flagged.
func (d *detector) detect(ids []string, highlight string, forced bool) map[string]struct{} {
	out := make(map[string]struct{})
	current := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		current[id] = struct{}{}
	}

	if highlight != "" {
		if _, ok := current[highlight]; ok {
			out[highlight] = struct{}{}
		}
	}
	if !forced && len(d.previous) > 0 {
		for _, id := range ids {
			if _, seen := d.previous[id]; !seen {
				out[id] = struct{}{}
			}
		}
	}

	d.previous = current
	return out
}

// applyNoveltyLocked installs a new highlight set and schedules its decay.
// An empty set leaves the current highlights and timer untouched.
func (s *Syncer) applyNoveltyLocked(set map[string]struct{}) {
	if len(set) == 0 {
		return
	}
	if s.noveltyTimer != nil {
		s.noveltyTimer.Stop()
	}
	s.noveltyToken++
	token := s.noveltyToken
	s.novel = set
	s.noveltyTimer = s.opts.Clock.AfterFunc(s.opts.NoveltyDecay, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if token != s.noveltyToken {
			return
		}
		s.novel = make(map[string]struct{})
		s.noveltyTimer = nil
		s.notifyLocked()
	})
}

func (s *Syncer) clearNoveltyLocked() {
	if s.noveltyTimer != nil {
		s.noveltyTimer.Stop()
		s.noveltyTimer = nil
	}
	s.noveltyToken++
	s.novel = make(map[string]struct{})
}
