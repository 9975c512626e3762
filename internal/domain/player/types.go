// Package player provides the core playback domain: the canonical player
// store, the queue advancement rules, and the user library (playlists and
// imported tracks).
package player

// PlaybackStatus is the observed engine state, as opposed to the
// user-intent IsPlaying flag. The two can transiently disagree, e.g.
// IsPlaying=true while a new track is still loading.
type PlaybackStatus string

// Playback status values.
const (
	StatusIdle    PlaybackStatus = "idle"
	StatusLoading PlaybackStatus = "loading"
	StatusPlaying PlaybackStatus = "playing"
	StatusPaused  PlaybackStatus = "paused"
	StatusError   PlaybackStatus = "error"
)

// RepeatMode controls queue advancement after a track ends.
type RepeatMode string

// Repeat modes, cycled none -> all -> one -> none.
const (
	RepeatNone RepeatMode = "none"
	RepeatAll  RepeatMode = "all"
	RepeatOne  RepeatMode = "one"
)

// Track is an immutable description of a playable item. Tracks are replaced,
// never mutated in place. IDs must be unique within any queue or playlist used
// for adjacency lookups; duplicate IDs break index-based navigation.
type Track struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Artist    string `json:"artist"`
	Thumbnail string `json:"thumbnail,omitempty"` // URL or local asset reference
	Source    string `json:"source"`              // local file URI or remote URL
	Duration  string `json:"duration,omitempty"`  // display helper, not authoritative
}

// Playlist is a named, persisted, ordered collection of tracks.
type Playlist struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Tracks []Track `json:"tracks"`
}

// ChangeKind identifies which part of the store a Change touched.
type ChangeKind int

// Change kinds published to store listeners.
const (
	// ChangeTrack fires when currentTrack or the session id changed, i.e. on
	// SetCurrentTrack and ClosePlayer. It is the trigger for a new playback
	// attempt (or a teardown, when the current track is gone).
	ChangeTrack ChangeKind = iota
	ChangePlayIntent
	ChangeVolume
	ChangeSeek
	ChangeStatus
	ChangeProgress
	ChangeQueue
	ChangeOptions
	ChangeLibrary
)

// Change is delivered to store listeners after each state transition.
// Session is the session id at the time of the transition; listeners that
// drive playback compare it against the live session id to discard
// superseded work.
type Change struct {
	Kind    ChangeKind
	Session int64
}

// Snapshot is a copy of the session state, safe to hand to transports.
type Snapshot struct {
	CurrentTrack  *Track         `json:"currentTrack"`
	Status        PlaybackStatus `json:"status"`
	IsPlaying     bool           `json:"isPlaying"`
	Volume        float64        `json:"volume"`
	Progress      float64        `json:"progress"`
	CurrentTime   float64        `json:"currentTime"`
	TotalDuration float64        `json:"totalDuration"`
	IsShuffle     bool           `json:"isShuffle"`
	RepeatMode    RepeatMode     `json:"repeatMode"`
	SessionID     int64          `json:"sessionId"`
}

// RecordStore is the durable backing for the user library. Each collection is
// a single named record rewritten in full on every mutation.
type RecordStore interface {
	LoadPlaylists() ([]Playlist, error)
	SavePlaylists([]Playlist) error
	LoadUserTracks() ([]Track, error)
	SaveUserTracks([]Track) error
}
