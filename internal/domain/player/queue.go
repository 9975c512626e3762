package player

import "math/rand"

// Direction selects which neighbor Advance computes.
type Direction int

// Advancement directions.
const (
	DirNext Direction = iota
	DirPrev
)

// randIntn is swappable in tests.
var randIntn = rand.Intn

// Advance computes the track that plays after (or before) the current one.
// It is a pure lookup: it always returns a valid neighbor when one exists,
// and leaves the end-of-queue stop policy to the caller.
//
// Rules:
//   - prev: index-1 with wraparound. Shuffle deliberately has no effect on
//     prev; "back" always means the previous queue position.
//   - next under repeat-one: the current track itself, regardless of shuffle.
//   - next while shuffling: a uniformly random index; when it lands on the
//     current track and the queue has more than one entry, the following
//     index is taken instead. A weak no-immediate-repeat only, not a
//     no-repeat history.
//   - next otherwise: index+1 with wraparound.
//
// The boolean result is false when the queue is empty or no current track is
// given; callers treat that as a no-op.
func Advance(dir Direction, queue []Track, currentID string, shuffle bool, repeat RepeatMode) (Track, bool) {
	n := len(queue)
	if n == 0 || currentID == "" {
		return Track{}, false
	}

	idx := -1
	for i, t := range queue {
		if t.ID == currentID {
			idx = i
			break
		}
	}

	if dir == DirPrev {
		return queue[(idx-1+n)%n], true
	}

	if repeat == RepeatOne {
		if idx < 0 {
			return Track{}, false
		}
		return queue[idx], true
	}

	if shuffle {
		j := randIntn(n)
		if j == idx && n > 1 {
			j = (j + 1) % n
		}
		return queue[j], true
	}

	return queue[(idx+1)%n], true
}

// NextTrack advances the queue and selects the result for playback. Under
// repeat-one the current track is re-selected as-is, which still bumps the
// session so playback restarts from zero.
func (s *Store) NextTrack() {
	s.mu.RLock()
	cur := s.currentTrack
	queue := s.queue
	shuffle := s.isShuffle
	repeat := s.repeatMode
	s.mu.RUnlock()

	if cur == nil || len(queue) == 0 {
		return
	}
	if repeat == RepeatOne {
		s.SetCurrentTrack(*cur)
		return
	}
	if t, ok := Advance(DirNext, queue, cur.ID, shuffle, repeat); ok {
		s.SetCurrentTrack(t)
	}
}

// PrevTrack selects the previous queue position for playback.
func (s *Store) PrevTrack() {
	s.mu.RLock()
	cur := s.currentTrack
	queue := s.queue
	s.mu.RUnlock()

	if cur == nil || len(queue) == 0 {
		return
	}
	if t, ok := Advance(DirPrev, queue, cur.ID, false, RepeatNone); ok {
		s.SetCurrentTrack(t)
	}
}

// AtQueueEnd reports whether the current track sits at the final queue
// position. Used by the coordinator's end-of-track stop policy.
func (s *Store) AtQueueEnd() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.currentTrack == nil || len(s.queue) == 0 {
		return false
	}
	return s.queue[len(s.queue)-1].ID == s.currentTrack.ID
}

// ShuffleEnabled reports the shuffle flag.
func (s *Store) ShuffleEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isShuffle
}

// Repeat returns the repeat mode.
func (s *Store) Repeat() RepeatMode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.repeatMode
}
