package engine

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/lordxmusic/hybrid-player-backend/internal/domain/player"
)

const (
	defaultTickInterval   = 500 * time.Millisecond
	defaultSeekRetryDelay = 50 * time.Millisecond
)

type eventKind int

const (
	evTrackChange eventKind = iota
	evPlayIntent
	evVolume
	evSeek
	evResolved
	evResolveFailed
	evLoaded
	evStarted
	evPaused
	evEnded
	evLoadError
	evPlayError
	evUnlocked
	evSeekRetry
)

// event is one message into the coordinator's state machine. All store
// changes and handle callbacks arrive here, so every transition runs on a
// single goroutine and the fencing guard is one reusable check.
type event struct {
	kind    eventKind
	session int64
	handle  Handle
	source  Source
	seek    float64
	err     error
}

// Coordinator orchestrates the playback session lifecycle: tearing down the
// previous handle, resolving the new source, constructing a handle bound to
// the live session, and applying its callbacks to the store, all gated by
// the session fence. At most one handle is live at any time.
type Coordinator struct {
	store    *player.Store
	backend  Backend
	resolver *Resolver
	bridge   MediaBridge

	// TickInterval and SeekRetryDelay may be adjusted before Start.
	TickInterval   time.Duration
	SeekRetryDelay time.Duration

	events chan event
	done   chan struct{}

	// Loop-owned state; touched only by run().
	handle        Handle
	source        Source
	retryOnUnlock bool
	seekTimer     *time.Timer
}

// NewCoordinator wires a coordinator to the store. A nil bridge disables
// media session publishing.
func NewCoordinator(store *player.Store, backend Backend, resolver *Resolver, bridge MediaBridge) *Coordinator {
	if bridge == nil {
		bridge = NopBridge{}
	}
	c := &Coordinator{
		store:          store,
		backend:        backend,
		resolver:       resolver,
		bridge:         bridge,
		TickInterval:   defaultTickInterval,
		SeekRetryDelay: defaultSeekRetryDelay,
		events:         make(chan event, 256),
		done:           make(chan struct{}),
	}
	store.OnChange(c.onStoreChange)
	return c
}

// Start runs the coordinator loop until ctx is cancelled. The live handle is
// torn down on exit.
func (c *Coordinator) Start(ctx context.Context) {
	go c.run(ctx)
}

// Done is closed once the loop has exited and the live handle is released.
func (c *Coordinator) Done() <-chan struct{} {
	return c.done
}

func (c *Coordinator) onStoreChange(ch player.Change) {
	switch ch.Kind {
	case player.ChangeTrack:
		c.post(event{kind: evTrackChange, session: ch.Session})
	case player.ChangePlayIntent:
		c.post(event{kind: evPlayIntent, session: ch.Session})
	case player.ChangeVolume:
		c.post(event{kind: evVolume, session: ch.Session})
	case player.ChangeSeek:
		c.post(event{kind: evSeek, session: ch.Session})
	}
}

// post never blocks the caller: a full queue falls back to an async send.
// Every event is session-guarded at processing time, so delivery order under
// overflow does not affect correctness.
func (c *Coordinator) post(ev event) {
	select {
	case c.events <- ev:
	default:
		go func() {
			select {
			case c.events <- ev:
			case <-c.done:
			}
		}()
	}
}

func (c *Coordinator) run(ctx context.Context) {
	ticker := time.NewTicker(c.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.teardown()
			close(c.done)
			return
		case ev := <-c.events:
			c.dispatch(ev)
		case <-ticker.C:
			c.tickProgress()
		}
	}
}

func (c *Coordinator) dispatch(ev event) {
	switch ev.kind {
	case evTrackChange:
		c.handleTrackChange(ev)
	case evResolved:
		c.handleResolved(ev)
	case evResolveFailed:
		c.handleResolveFailed(ev)
	case evLoaded:
		c.handleLoaded(ev)
	case evStarted:
		c.handleStarted(ev)
	case evPaused:
		c.handlePaused(ev)
	case evEnded:
		c.handleEnded(ev)
	case evLoadError:
		c.handleLoadError(ev)
	case evPlayError:
		c.handlePlayError(ev)
	case evUnlocked:
		c.handleUnlocked(ev)
	case evSeek:
		c.handleSeek()
	case evSeekRetry:
		c.handleSeekRetry(ev)
	case evPlayIntent:
		c.handlePlayIntent()
	case evVolume:
		c.handleVolume()
	}
}

// live is the session fence: an event may only take effect if its captured
// session id matches the store's live id and, for handle callbacks, if it
// came from the live handle instance. Everything else is a ghost.
func (c *Coordinator) live(ev event) bool {
	if ev.session != c.store.SessionID() {
		log.Debug().Int64("event_session", ev.session).Int64("live_session", c.store.SessionID()).Msg("Ghost event discarded")
		return false
	}
	if ev.handle != nil && ev.handle != c.handle {
		log.Debug().Int64("session", ev.session).Msg("Stale handle event discarded")
		return false
	}
	return true
}

// handleTrackChange reacts to SetCurrentTrack and ClosePlayer. Teardown of
// the previous handle is unconditional and happens before anything new is
// constructed, so two handles are never audible at once.
func (c *Coordinator) handleTrackChange(ev event) {
	if ev.session != c.store.SessionID() {
		// A newer selection is already queued behind this one.
		return
	}

	c.teardown()

	track := c.store.CurrentTrack()
	if track == nil {
		return
	}

	session := ev.session
	log.Debug().Int64("session", session).Str("track", track.Title).Msg("Starting playback attempt")

	go func(t player.Track) {
		src, err := c.resolver.Resolve(context.Background(), t)
		if err != nil {
			c.post(event{kind: evResolveFailed, session: session, err: err})
			return
		}
		c.post(event{kind: evResolved, session: session, source: src})
	}(*track)
}

func (c *Coordinator) handleResolved(ev event) {
	if !c.live(ev) {
		src := ev.source
		src.Release()
		return
	}

	session := ev.session
	var h Handle
	cfg := Config{
		Source: ev.source,
		Volume: c.store.Volume(),
		Callbacks: Callbacks{
			OnLoaded:  func() { c.post(event{kind: evLoaded, session: session, handle: h}) },
			OnStarted: func() { c.post(event{kind: evStarted, session: session, handle: h}) },
			OnPaused:  func() { c.post(event{kind: evPaused, session: session, handle: h}) },
			OnEnded:   func() { c.post(event{kind: evEnded, session: session, handle: h}) },
			OnLoadError: func(err error) {
				c.post(event{kind: evLoadError, session: session, handle: h, err: err})
			},
			OnPlayError: func(err error) {
				c.post(event{kind: evPlayError, session: session, handle: h, err: err})
			},
			OnUnlocked: func() { c.post(event{kind: evUnlocked, session: session, handle: h}) },
		},
	}

	h, err := c.backend.NewHandle(cfg)
	if err != nil {
		log.Error().Err(err).Int64("session", session).Msg("Backend rejected source")
		ev.source.Release()
		c.store.SetStatus(player.StatusError)
		return
	}

	// Record the handle before loading starts so every callback closing over
	// h observes the assignment.
	c.handle = h
	c.source = ev.source
	h.Load()
}

func (c *Coordinator) handleResolveFailed(ev event) {
	if !c.live(ev) {
		return
	}
	log.Error().Err(ev.err).Int64("session", ev.session).Msg("Source resolution failed")
	c.store.SetStatus(player.StatusError)
}

func (c *Coordinator) handleLoaded(ev event) {
	if !c.live(ev) {
		return
	}

	if c.store.IsPlaying() {
		c.store.SetStatus(player.StatusPlaying)
		c.handle.Play()
	} else {
		c.store.SetStatus(player.StatusPaused)
	}

	if track := c.store.CurrentTrack(); track != nil {
		c.bridge.SetMetadata(Metadata{
			Title:      track.Title,
			Artist:     track.Artist,
			Album:      "LORDx Music",
			ArtworkURL: track.Thumbnail,
		})
	}

	// A seek requested while the source was still resolving is applied now.
	c.handleSeek()
}

func (c *Coordinator) handleStarted(ev event) {
	if !c.live(ev) {
		// A ghost that actually started producing audio must be silenced.
		if ev.handle != nil {
			ev.handle.Stop()
		}
		return
	}
	c.store.SetStatus(player.StatusPlaying)
	c.bridge.SetPlaybackState(true)
}

func (c *Coordinator) handlePaused(ev event) {
	if !c.live(ev) {
		return
	}
	c.store.SetStatus(player.StatusPaused)
	c.bridge.SetPlaybackState(false)
}

// handleEnded applies the end-of-track policy: stop in place at the end of
// the queue under repeat=none without shuffle, otherwise advance.
func (c *Coordinator) handleEnded(ev event) {
	if !c.live(ev) {
		return
	}

	if c.store.Repeat() == player.RepeatNone && !c.store.ShuffleEnabled() && c.store.AtQueueEnd() {
		log.Debug().Int64("session", ev.session).Msg("Queue finished, stopping")
		c.store.StopAtQueueEnd()
		return
	}
	c.store.NextTrack()
}

func (c *Coordinator) handleLoadError(ev event) {
	if !c.live(ev) {
		return
	}
	log.Error().Err(ev.err).Int64("session", ev.session).Msg("Load error")
	c.store.SetStatus(player.StatusError)
}

// handlePlayError arms exactly one deferred restart, fired when the backend
// reports it is unlocked. Covers autoplay-restriction style refusals.
func (c *Coordinator) handlePlayError(ev event) {
	if !c.live(ev) {
		return
	}
	log.Error().Err(ev.err).Int64("session", ev.session).Msg("Play error")
	c.store.SetStatus(player.StatusError)
	c.retryOnUnlock = true
}

func (c *Coordinator) handleUnlocked(ev event) {
	if !c.live(ev) || !c.retryOnUnlock {
		return
	}
	c.retryOnUnlock = false
	if c.handle != nil {
		c.handle.Play()
	}
}

// handleSeek consumes the one-shot seek request. With no handle yet the
// request stays pending in the store until the source loads (or a track
// change clears it). A handle that cannot accept the seek gets a single
// bounded retry; after that the seek is dropped silently rather than
// escalated.
func (c *Coordinator) handleSeek() {
	if c.handle == nil {
		return
	}
	target, ok := c.store.TakeSeek()
	if !ok {
		return
	}

	if c.handle.Ready() {
		if err := c.handle.Seek(target); err != nil {
			log.Warn().Err(err).Float64("target", target).Msg("Seek failed")
		}
		return
	}

	if c.seekTimer != nil {
		c.seekTimer.Stop()
	}
	session := c.store.SessionID()
	c.seekTimer = time.AfterFunc(c.SeekRetryDelay, func() {
		c.post(event{kind: evSeekRetry, session: session, seek: target})
	})
}

func (c *Coordinator) handleSeekRetry(ev event) {
	if ev.session != c.store.SessionID() || c.handle == nil {
		return
	}
	if err := c.handle.Seek(ev.seek); err != nil {
		log.Warn().Err(err).Float64("target", ev.seek).Msg("Seek retry failed")
	}
}

func (c *Coordinator) handlePlayIntent() {
	if c.handle == nil {
		return
	}
	playing := c.store.IsPlaying()
	if playing {
		c.handle.Play()
	} else {
		c.handle.Pause()
	}
	c.bridge.SetPlaybackState(playing)
}

func (c *Coordinator) handleVolume() {
	if c.handle != nil {
		c.handle.SetVolume(c.store.Volume())
	}
}

func (c *Coordinator) tickProgress() {
	if c.handle == nil || !c.store.IsPlaying() || !c.handle.Ready() {
		return
	}

	pos := c.handle.Position()
	dur := c.handle.Duration()
	c.store.UpdateProgress(pos, dur)
	if dur > 0 {
		c.bridge.SetPositionState(dur, 1, pos)
	}
}

// teardown stops and releases the previous playback attempt: handle, pending
// seek (value and timer), transient source buffer, and the armed unlock
// retry. Safe to call with nothing live.
func (c *Coordinator) teardown() {
	if c.seekTimer != nil {
		c.seekTimer.Stop()
		c.seekTimer = nil
	}
	c.store.TakeSeek()

	if c.handle != nil {
		c.handle.Stop()
		c.handle.Unload()
		c.handle = nil
	}
	c.source.Release()
	c.source = Source{}
	c.retryOnUnlock = false
}
