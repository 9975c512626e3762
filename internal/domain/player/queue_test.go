package player

import "testing"

// queue_test runs inside the package so the shuffle source can be pinned.

func q(ids ...string) []Track {
	tracks := make([]Track, len(ids))
	for i, id := range ids {
		tracks[i] = Track{ID: id}
	}
	return tracks
}

func withRand(t *testing.T, fn func(n int) int) {
	t.Helper()
	orig := randIntn
	randIntn = fn
	t.Cleanup(func() { randIntn = orig })
}

func TestAdvanceNextSequential(t *testing.T) {
	got, ok := Advance(DirNext, q("a", "b", "c"), "a", false, RepeatNone)
	if !ok || got.ID != "b" {
		t.Errorf("expected b, got %v %v", got.ID, ok)
	}
}

func TestAdvanceNextWrapsAround(t *testing.T) {
	got, ok := Advance(DirNext, q("a", "b", "c"), "c", false, RepeatAll)
	if !ok || got.ID != "a" {
		t.Errorf("expected wrap to a, got %v %v", got.ID, ok)
	}
}

func TestAdvancePrevWrapsAround(t *testing.T) {
	got, ok := Advance(DirPrev, q("a", "b", "c"), "a", false, RepeatNone)
	if !ok || got.ID != "c" {
		t.Errorf("expected wrap to c, got %v %v", got.ID, ok)
	}
}

func TestAdvancePrevIgnoresShuffle(t *testing.T) {
	withRand(t, func(n int) int {
		t.Error("prev must not consult the shuffle source")
		return 0
	})

	got, ok := Advance(DirPrev, q("a", "b", "c"), "c", true, RepeatNone)
	if !ok || got.ID != "b" {
		t.Errorf("expected b, got %v %v", got.ID, ok)
	}
}

func TestAdvanceRepeatOneReturnsCurrent(t *testing.T) {
	got, ok := Advance(DirNext, q("a", "b", "c"), "b", false, RepeatOne)
	if !ok || got.ID != "b" {
		t.Errorf("expected current track b, got %v %v", got.ID, ok)
	}
}

func TestAdvanceRepeatOneWinsOverShuffle(t *testing.T) {
	withRand(t, func(n int) int {
		t.Error("repeat-one must not consult the shuffle source")
		return 0
	})

	got, ok := Advance(DirNext, q("a", "b", "c"), "b", true, RepeatOne)
	if !ok || got.ID != "b" {
		t.Errorf("expected current track b, got %v %v", got.ID, ok)
	}
}

func TestAdvanceShuffleUsesRandomIndex(t *testing.T) {
	withRand(t, func(n int) int { return 2 })

	got, ok := Advance(DirNext, q("a", "b", "c"), "a", true, RepeatNone)
	if !ok || got.ID != "c" {
		t.Errorf("expected c, got %v %v", got.ID, ok)
	}
}

func TestAdvanceShuffleSkipsCurrentIndex(t *testing.T) {
	// The random pick lands on the current track; the next index is taken.
	withRand(t, func(n int) int { return 1 })

	got, ok := Advance(DirNext, q("a", "b", "c"), "b", true, RepeatNone)
	if !ok || got.ID != "c" {
		t.Errorf("expected skip to c, got %v %v", got.ID, ok)
	}
}

func TestAdvanceShuffleSkipWrapsToStart(t *testing.T) {
	withRand(t, func(n int) int { return 2 })

	got, ok := Advance(DirNext, q("a", "b", "c"), "c", true, RepeatNone)
	if !ok || got.ID != "a" {
		t.Errorf("expected wrap to a, got %v %v", got.ID, ok)
	}
}

func TestAdvanceShuffleSingleTrackRepeats(t *testing.T) {
	withRand(t, func(n int) int { return 0 })

	got, ok := Advance(DirNext, q("only"), "only", true, RepeatNone)
	if !ok || got.ID != "only" {
		t.Errorf("expected the only track, got %v %v", got.ID, ok)
	}
}

func TestAdvanceEmptyQueue(t *testing.T) {
	if _, ok := Advance(DirNext, nil, "a", false, RepeatNone); ok {
		t.Error("expected no advancement on empty queue")
	}
}

func TestAdvanceNoCurrentTrack(t *testing.T) {
	if _, ok := Advance(DirNext, q("a"), "", false, RepeatNone); ok {
		t.Error("expected no advancement without a current track")
	}
}

func TestNextTrackSelectsNeighbor(t *testing.T) {
	s := NewStore(nil)
	s.SetPlaylist(q("a", "b", "c"))
	s.SetCurrentTrack(Track{ID: "a"})

	s.NextTrack()

	if cur := s.CurrentTrack(); cur == nil || cur.ID != "b" {
		t.Errorf("expected current track b, got %+v", cur)
	}
}

func TestNextTrackRepeatOneRestartsSameTrack(t *testing.T) {
	s := NewStore(nil)
	s.SetPlaylist(q("a", "b"))
	s.SetCurrentTrack(Track{ID: "a"})
	s.ToggleRepeat() // all
	s.ToggleRepeat() // one

	before := s.SessionID()
	s.NextTrack()

	if cur := s.CurrentTrack(); cur == nil || cur.ID != "a" {
		t.Errorf("expected current track a, got %+v", cur)
	}
	if got := s.SessionID(); got != before+1 {
		t.Errorf("repeat-one restart must bump session: %d -> %d", before, got)
	}
}

func TestNextTrackNoQueueIsNoop(t *testing.T) {
	s := NewStore(nil)
	s.SetCurrentTrack(Track{ID: "a"})

	before := s.SessionID()
	s.NextTrack()

	if got := s.SessionID(); got != before {
		t.Errorf("next with empty queue must be a no-op: %d -> %d", before, got)
	}
}

func TestPrevTrackSelectsPreviousPosition(t *testing.T) {
	s := NewStore(nil)
	s.SetPlaylist(q("a", "b", "c"))
	s.SetCurrentTrack(Track{ID: "c"})
	s.ToggleShuffle()

	s.PrevTrack()

	if cur := s.CurrentTrack(); cur == nil || cur.ID != "b" {
		t.Errorf("expected current track b, got %+v", cur)
	}
}

func TestAtQueueEnd(t *testing.T) {
	s := NewStore(nil)
	s.SetPlaylist(q("a", "b", "c"))

	s.SetCurrentTrack(Track{ID: "b"})
	if s.AtQueueEnd() {
		t.Error("b is not the last queue position")
	}

	s.SetCurrentTrack(Track{ID: "c"})
	if !s.AtQueueEnd() {
		t.Error("c is the last queue position")
	}
}
