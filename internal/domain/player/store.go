package player

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Store is the canonical source of truth for the playback session: current
// track, queue, shuffle/repeat options, playback status and progress, plus
// the persisted user library. All mutation goes through named action methods;
// every action is applied atomically under the lock and then published to
// listeners. It is safe for concurrent use.
type Store struct {
	mu sync.RWMutex

	currentTrack *Track
	queue        []Track

	isPlaying     bool
	status        PlaybackStatus
	volume        float64
	progress      float64
	currentTime   float64
	totalDuration float64
	seekTo        *float64
	sessionID     int64
	isShuffle     bool
	repeatMode    RepeatMode

	playlists  []Playlist
	userTracks []Track

	records   RecordStore
	listeners []func(Change)
}

// NewStore creates a store with default state. records may be nil, in which
// case the library is memory-only.
func NewStore(records RecordStore) *Store {
	return &Store{
		status:     StatusIdle,
		volume:     0.8,
		repeatMode: RepeatNone,
		records:    records,
	}
}

// OnChange registers a listener invoked after every state transition.
// Listeners run outside the store lock and may call back into the store.
func (s *Store) OnChange(fn func(Change)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *Store) notify(c Change) {
	s.mu.RLock()
	listeners := make([]func(Change), len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.RUnlock()

	for _, fn := range listeners {
		fn(c)
	}
}

// SetPlaylist replaces the playing queue wholesale. The session is untouched:
// changing what plays next never interrupts what plays now.
func (s *Store) SetPlaylist(tracks []Track) {
	s.mu.Lock()
	s.queue = append([]Track(nil), tracks...)
	session := s.sessionID
	s.mu.Unlock()

	s.notify(Change{Kind: ChangeQueue, Session: session})
}

// SetCurrentTrack selects a track for playback and bumps the session id,
// fencing out any in-flight work from the previous selection. This is the
// sole entry point that starts a new playback attempt; re-selecting the same
// track (repeat-one) restarts it from zero.
func (s *Store) SetCurrentTrack(track Track) {
	s.mu.Lock()
	t := track
	s.currentTrack = &t
	s.isPlaying = true
	s.status = StatusLoading
	s.progress = 0
	s.currentTime = 0
	s.sessionID++
	session := s.sessionID
	s.mu.Unlock()

	log.Debug().Int64("session", session).Str("track", track.ID).Msg("Track selected")
	s.notify(Change{Kind: ChangeTrack, Session: session})
}

// ClosePlayer stops playback and clears the current track. The session bump
// fences out any load still in flight for the closed session.
func (s *Store) ClosePlayer() {
	s.mu.Lock()
	s.isPlaying = false
	s.status = StatusIdle
	s.currentTrack = nil
	s.progress = 0
	s.currentTime = 0
	s.totalDuration = 0
	s.sessionID++
	session := s.sessionID
	s.mu.Unlock()

	log.Debug().Int64("session", session).Msg("Player closed")
	s.notify(Change{Kind: ChangeTrack, Session: session})
}

// TogglePlay flips the play intent. The session id is untouched; the engine
// follows the intent on the live handle.
func (s *Store) TogglePlay() {
	s.mu.Lock()
	s.isPlaying = !s.isPlaying
	session := s.sessionID
	s.mu.Unlock()

	s.notify(Change{Kind: ChangePlayIntent, Session: session})
}

// SetVolume sets the playback volume, clamped to [0,1].
func (s *Store) SetVolume(v float64) {
	if v < 0 {
		v = 0
	} else if v > 1 {
		v = 1
	}

	s.mu.Lock()
	s.volume = v
	session := s.sessionID
	s.mu.Unlock()

	s.notify(Change{Kind: ChangeVolume, Session: session})
}

// Seek requests a seek to the given fraction of the total duration.
// A no-op while the duration is unknown.
func (s *Store) Seek(fraction float64) {
	s.mu.Lock()
	if s.totalDuration <= 0 {
		s.mu.Unlock()
		return
	}
	target := fraction * s.totalDuration
	s.seekTo = &target
	session := s.sessionID
	s.mu.Unlock()

	s.notify(Change{Kind: ChangeSeek, Session: session})
}

// SeekToTime requests a seek to an absolute position in seconds,
// regardless of whether the duration is known yet.
func (s *Store) SeekToTime(seconds float64) {
	s.mu.Lock()
	target := seconds
	s.seekTo = &target
	session := s.sessionID
	s.mu.Unlock()

	s.notify(Change{Kind: ChangeSeek, Session: session})
}

// TakeSeek consumes the pending seek request, clearing it. The request is
// one-shot: a second call reports no pending seek.
func (s *Store) TakeSeek() (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.seekTo == nil {
		return 0, false
	}
	target := *s.seekTo
	s.seekTo = nil
	return target, true
}

// SetStatus records the observed engine status. Called only by the playback
// coordinator.
func (s *Store) SetStatus(status PlaybackStatus) {
	s.mu.Lock()
	s.status = status
	session := s.sessionID
	s.mu.Unlock()

	s.notify(Change{Kind: ChangeStatus, Session: session})
}

// UpdateProgress records the observed position and duration. Progress is
// always recomputed here, never stored independently.
func (s *Store) UpdateProgress(currentTime, totalDuration float64) {
	s.mu.Lock()
	s.currentTime = currentTime
	s.totalDuration = totalDuration
	if totalDuration > 0 {
		s.progress = currentTime / totalDuration
	} else {
		s.progress = 0
	}
	session := s.sessionID
	s.mu.Unlock()

	s.notify(Change{Kind: ChangeProgress, Session: session})
}

// ToggleShuffle flips shuffle mode.
func (s *Store) ToggleShuffle() {
	s.mu.Lock()
	s.isShuffle = !s.isShuffle
	session := s.sessionID
	s.mu.Unlock()

	s.notify(Change{Kind: ChangeOptions, Session: session})
}

// ToggleRepeat cycles the repeat mode none -> all -> one -> none.
func (s *Store) ToggleRepeat() {
	s.mu.Lock()
	switch s.repeatMode {
	case RepeatNone:
		s.repeatMode = RepeatAll
	case RepeatAll:
		s.repeatMode = RepeatOne
	default:
		s.repeatMode = RepeatNone
	}
	session := s.sessionID
	s.mu.Unlock()

	s.notify(Change{Kind: ChangeOptions, Session: session})
}

// StopAtQueueEnd halts playback in place after the final track of the queue
// ends: intent and status go to paused while the current track stays
// selected. No session bump, no teardown.
func (s *Store) StopAtQueueEnd() {
	s.mu.Lock()
	s.isPlaying = false
	s.status = StatusPaused
	session := s.sessionID
	s.mu.Unlock()

	s.notify(Change{Kind: ChangeStatus, Session: session})
}

// SessionID returns the live session id, the fencing token compared against
// captured ids before any asynchronous result is applied.
func (s *Store) SessionID() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessionID
}

// CurrentTrack returns a copy of the selected track, or nil.
func (s *Store) CurrentTrack() *Track {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.currentTrack == nil {
		return nil
	}
	t := *s.currentTrack
	return &t
}

// IsPlaying reports the user play intent.
func (s *Store) IsPlaying() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isPlaying
}

// Status returns the observed playback status.
func (s *Store) Status() PlaybackStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Volume returns the current volume in [0,1].
func (s *Store) Volume() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.volume
}

// Queue returns a copy of the playing queue.
func (s *Store) Queue() []Track {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Track(nil), s.queue...)
}

// Snapshot returns a copy of the session state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		Status:        s.status,
		IsPlaying:     s.isPlaying,
		Volume:        s.volume,
		Progress:      s.progress,
		CurrentTime:   s.currentTime,
		TotalDuration: s.totalDuration,
		IsShuffle:     s.isShuffle,
		RepeatMode:    s.repeatMode,
		SessionID:     s.sessionID,
	}
	if s.currentTrack != nil {
		t := *s.currentTrack
		snap.CurrentTrack = &t
	}
	return snap
}
