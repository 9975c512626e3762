package mpdengine

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/lordxmusic/hybrid-player-backend/internal/engine"
)

// Backend plays addressable sources through a music player daemon. Sources
// that exist only as in-memory buffers cannot be handed to the daemon and are
// rejected at handle construction.
type Backend struct {
	client *Client

	mu     sync.Mutex
	active *handle
}

// NewBackend creates an MPD playback backend on top of the given client.
func NewBackend(client *Client) *Backend {
	return &Backend{client: client}
}

// Start connects to the daemon and begins mirroring its player subsystem
// events into handle callbacks.
func (b *Backend) Start() error {
	if err := b.client.Connect(); err != nil {
		return err
	}

	events, err := b.client.Watch("player")
	if err != nil {
		return err
	}

	go func() {
		for range events {
			b.mu.Lock()
			h := b.active
			b.mu.Unlock()
			if h != nil {
				h.onPlayerEvent()
			}
		}
	}()

	return nil
}

// Close releases the daemon connection.
func (b *Backend) Close() error {
	return b.client.Close()
}

// NewHandle constructs a handle for an addressable source. Loading into the
// daemon's queue begins with Load; the previous handle must already be
// stopped, the daemon queue is cleared on every load.
func (b *Backend) NewHandle(cfg engine.Config) (engine.Handle, error) {
	if !cfg.Source.Addressable() {
		return nil, fmt.Errorf("mpd backend requires an addressable source")
	}

	h := &handle{backend: b, cfg: cfg}

	b.mu.Lock()
	b.active = h
	b.mu.Unlock()

	return h, nil
}

func (b *Backend) release(h *handle) {
	b.mu.Lock()
	if b.active == h {
		b.active = nil
	}
	b.mu.Unlock()
}

type handle struct {
	backend *Backend
	cfg     engine.Config

	mu        sync.Mutex
	loaded    bool
	stopped   bool
	started   bool
	lastState string
}

// Load queues the source on the daemon asynchronously. Callbacks fire from
// the loader goroutine only.
func (h *handle) Load() {
	go h.load()
}

func (h *handle) load() {
	c := h.backend.client

	if err := c.Clear(); err != nil {
		h.cfg.Callbacks.OnLoadError(err)
		return
	}
	if err := c.Add(h.cfg.Source.URL); err != nil {
		h.cfg.Callbacks.OnLoadError(fmt.Errorf("add %s: %w", h.cfg.Source.URL, err))
		return
	}
	if err := c.SetVolume(toMPDVolume(h.cfg.Volume)); err != nil {
		log.Warn().Err(err).Msg("Failed to set initial MPD volume")
	}

	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return
	}
	h.loaded = true
	h.mu.Unlock()

	log.Debug().Str("url", h.cfg.Source.URL).Msg("Source queued on MPD")
	h.cfg.Callbacks.OnLoaded()
}

// onPlayerEvent translates daemon state transitions into handle callbacks. A
// daemon that falls back to stopped after playing has drained the track.
func (h *handle) onPlayerEvent() {
	status, err := h.backend.client.Status()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to read MPD status")
		return
	}
	state := status["state"]

	h.mu.Lock()
	if h.stopped || !h.loaded || state == h.lastState {
		h.mu.Unlock()
		return
	}
	prev := h.lastState
	h.lastState = state
	h.mu.Unlock()

	switch state {
	case "play":
		h.cfg.Callbacks.OnStarted()
	case "pause":
		h.cfg.Callbacks.OnPaused()
	case "stop":
		if prev == "play" {
			h.cfg.Callbacks.OnEnded()
		}
	}
}

// Play starts or resumes daemon playback.
func (h *handle) Play() {
	h.mu.Lock()
	if !h.loaded || h.stopped {
		h.mu.Unlock()
		return
	}
	first := !h.started
	h.started = true
	h.mu.Unlock()

	var err error
	if first {
		err = h.backend.client.Play(0)
	} else {
		err = h.backend.client.Pause(false)
	}
	if err != nil {
		h.cfg.Callbacks.OnPlayError(err)
	}
}

// Pause pauses daemon playback.
func (h *handle) Pause() {
	h.mu.Lock()
	ok := h.loaded && !h.stopped
	h.mu.Unlock()
	if !ok {
		return
	}

	if err := h.backend.client.Pause(true); err != nil {
		log.Warn().Err(err).Msg("Failed to pause MPD")
	}
}

// Stop silences the handle. No callbacks fire afterwards.
func (h *handle) Stop() {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return
	}
	h.stopped = true
	h.mu.Unlock()

	h.backend.release(h)
	if err := h.backend.client.Stop(); err != nil {
		log.Warn().Err(err).Msg("Failed to stop MPD")
	}
}

// Unload clears the daemon queue left behind by this handle.
func (h *handle) Unload() {
	h.mu.Lock()
	h.stopped = true
	h.loaded = false
	h.mu.Unlock()

	h.backend.release(h)
	if err := h.backend.client.Clear(); err != nil {
		log.Warn().Err(err).Msg("Failed to clear MPD queue")
	}
}

// Seek moves to an absolute position in seconds.
func (h *handle) Seek(seconds float64) error {
	h.mu.Lock()
	ok := h.loaded && !h.stopped
	h.mu.Unlock()
	if !ok {
		return fmt.Errorf("not ready to seek")
	}
	return h.backend.client.Seek(int(seconds))
}

// SetVolume sets the daemon volume from a [0,1] fraction.
func (h *handle) SetVolume(v float64) {
	if err := h.backend.client.SetVolume(toMPDVolume(v)); err != nil {
		log.Warn().Err(err).Msg("Failed to set MPD volume")
	}
}

// Ready reports whether the source is queued on the daemon.
func (h *handle) Ready() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.loaded && !h.stopped
}

// Position returns the elapsed time in seconds.
func (h *handle) Position() float64 {
	return h.statusSeconds("elapsed")
}

// Duration returns the track duration in seconds.
func (h *handle) Duration() float64 {
	return h.statusSeconds("duration")
}

func (h *handle) statusSeconds(key string) float64 {
	if !h.Ready() {
		return 0
	}
	status, err := h.backend.client.Status()
	if err != nil {
		return 0
	}
	v, err := strconv.ParseFloat(status[key], 64)
	if err != nil {
		return 0
	}
	return v
}

func toMPDVolume(v float64) int {
	return int(v*100 + 0.5)
}
