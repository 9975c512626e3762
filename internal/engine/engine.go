// Package engine coordinates the playback session: it owns the single live
// playback handle, drives the audio backend, and fences every asynchronous
// result against the store's session id so that work from a superseded track
// selection can never touch the current one.
package engine

// Source is a playable audio source produced by the resolver. Exactly one of
// URL or Data is set: remote sources stay addressable, local files are
// materialized into memory before playback.
type Source struct {
	URL    string // directly playable address
	Data   []byte // whole-file bytes for local sources
	Format string // container hint from the filename extension, may be empty
}

// Addressable reports whether the source is reachable by address rather than
// carried as bytes.
func (s Source) Addressable() bool {
	return s.URL != ""
}

// Release drops the transient byte buffer. The coordinator owns the buffer
// for the duration of one session and releases it on teardown.
func (s *Source) Release() {
	s.Data = nil
}

// Callbacks are the lifecycle notifications a handle delivers. A handle must
// not invoke any callback before Load is called, and must deliver callbacks
// one at a time.
type Callbacks struct {
	OnLoaded    func()
	OnStarted   func()
	OnPaused    func()
	OnEnded     func()
	OnLoadError func(error)
	OnPlayError func(error)
	// OnUnlocked signals that a backend which previously refused to start
	// (OnPlayError) is now able to. Backends without such a restriction
	// never call it.
	OnUnlocked func()
}

// Config describes one playback handle. Autoplay is never implied: a handle
// stays silent until Play is called.
type Config struct {
	Source    Source
	Volume    float64 // initial volume in [0,1]
	Callbacks Callbacks
}

// Handle is one playback attempt on the backend. NewHandle only constructs;
// nothing happens, and no callback fires, until the owner calls Load. The
// split lets the coordinator record the handle before any callback can
// reference it. Operations on a handle that is already stopped or unloaded
// are no-ops.
type Handle interface {
	// Load starts fetching and decoding the source. Called exactly once.
	Load()
	Play()
	Pause()
	Stop()
	Unload()
	// Seek moves to an absolute position in seconds. Only valid once Ready.
	Seek(seconds float64) error
	SetVolume(v float64)
	// Ready reports whether the source is loaded enough to seek and play.
	Ready() bool
	// Position returns the current position in seconds.
	Position() float64
	// Duration returns the total duration in seconds, 0 while unknown.
	Duration() float64
}

// Backend constructs playback handles. Implementations decode and output
// audio; the coordinator never touches audio data itself. NewHandle must not
// start loading or invoke callbacks, that begins with Handle.Load.
type Backend interface {
	NewHandle(cfg Config) (Handle, error)
}
