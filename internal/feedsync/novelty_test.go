// ABOUTME: Tests for novelty detection and highlight decay
// ABOUTME: Uses a manual clock so the decay window elapses deterministically

package feedsync

import (
	"context"
	"reflect"
	"sort"
	"testing"
	"time"
)

func keys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func TestDetector(t *testing.T) {
	tests := []struct {
		name      string
		previous  []string
		ids       []string
		highlight string
		forced    bool
		want      []string
	}{
		{"first load flags nothing", nil, []string{"A", "B"}, "", false, []string{}},
		{"first load flags highlight", nil, []string{"A", "B"}, "B", false, []string{"B"}},
		{"new ids flagged", []string{"A", "B"}, []string{"N", "A", "B"}, "", false, []string{"N"}},
		{"highlight plus diff", []string{"A", "B"}, []string{"N", "M", "A"}, "M", false, []string{"M", "N"}},
		{"highlight absent from list", []string{"A"}, []string{"A"}, "Z", false, []string{}},
		{"forced suppresses diff", []string{"A", "B"}, []string{"N", "A"}, "", true, []string{}},
		{"forced keeps highlight", []string{"A", "B"}, []string{"N", "A"}, "N", true, []string{"N"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d detector
			if tt.previous != nil {
				d.detect(tt.previous, "", false)
			}
			got := keys(d.detect(tt.ids, tt.highlight, tt.forced))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("detect() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDetector_SnapshotIsReplaced(t *testing.T) {
	var d detector
	d.detect([]string{"A"}, "", false)
	d.detect([]string{"B"}, "", true)
	// Relative to the immediately prior load only.
	got := keys(d.detect([]string{"B", "A"}, "", false))
	if !reflect.DeepEqual(got, []string{"A"}) {
		t.Errorf("expected A to be new relative to [B], got %v", got)
	}
}

func TestNoveltyDecay(t *testing.T) {
	ctx := context.Background()
	src := newFakeSource("A", "B", "C")
	clock := newFakeClock()
	hl := &staticHighlight{id: "B"}
	s := New(src, Options{PageSize: 3, Clock: clock, Highlighter: hl})

	s.LoadInitial(ctx, false)
	if !s.Snapshot().IsNovel("B") {
		t.Fatal("expected highlight to be flagged immediately after load")
	}
	calls := len(src.listCalls())

	clock.Advance(2999 * time.Millisecond)
	if !s.Snapshot().IsNovel("B") {
		t.Error("highlight cleared before the decay window")
	}

	clock.Advance(time.Millisecond)
	if n := len(s.Snapshot().Novel); n != 0 {
		t.Errorf("expected empty novelty set after decay, got %d", n)
	}
	if got := len(src.listCalls()); got != calls {
		t.Errorf("decay should not fetch, got %d extra calls", got-calls)
	}
}

func TestNoveltyDecay_NewerSetRestartsTimer(t *testing.T) {
	ctx := context.Background()
	src := newFakeSource("A", "B")
	clock := newFakeClock()
	s := New(src, Options{PageSize: 3, Clock: clock})

	s.LoadInitial(ctx, false)
	src.setItems("N", "A", "B")
	s.LoadInitial(ctx, false)
	if !s.Snapshot().IsNovel("N") {
		t.Fatal("expected N to be flagged")
	}

	clock.Advance(2 * time.Second)
	src.setItems("M", "N", "A")
	s.LoadInitial(ctx, false)

	clock.Advance(2 * time.Second)
	if !s.Snapshot().IsNovel("M") {
		t.Error("older timer cleared the newer highlight set")
	}
	clock.Advance(time.Second)
	if s.Snapshot().IsNovel("M") {
		t.Error("expected M to decay")
	}
}

func TestForcedReloadClearsNovelty(t *testing.T) {
	ctx := context.Background()
	src := newFakeSource("A", "B")
	clock := newFakeClock()
	s := New(src, Options{PageSize: 3, Clock: clock})

	s.LoadInitial(ctx, false)
	src.setItems("N", "A", "B")
	s.LoadInitial(ctx, false)
	if !s.Snapshot().IsNovel("N") {
		t.Fatal("expected N to be flagged")
	}

	src.setItems("Q", "N", "A")
	s.LoadInitial(ctx, true)
	if n := len(s.Snapshot().Novel); n != 0 {
		t.Errorf("expected forced reload to clear highlights, got %v", keys(s.Snapshot().Novel))
	}
}
