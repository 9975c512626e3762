// Package beepengine is the in-process playback backend. It decodes
// materialized audio buffers (or fully buffered remote sources) with beep and
// plays them through the system speaker.
package beepengine

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"
	"github.com/rs/zerolog/log"

	"github.com/lordxmusic/hybrid-player-backend/internal/engine"
)

// Backend constructs beep-based playback handles. Only one handle is audible
// at a time: constructing and starting a new handle after stopping the
// previous one is the coordinator's job, the backend just clears the speaker
// on Stop.
type Backend struct {
	mu          sync.Mutex
	initialized bool
	sampleRate  beep.SampleRate
	client      *http.Client
}

// New creates a beep backend with the standard output sample rate.
func New() *Backend {
	return &Backend{
		sampleRate: beep.SampleRate(44100),
		client:     &http.Client{Timeout: 60 * time.Second},
	}
}

// NewHandle constructs an idle handle. Decoding begins with Load; the handle
// does not autoplay.
func (b *Backend) NewHandle(cfg engine.Config) (engine.Handle, error) {
	return &handle{
		backend: b,
		cfg:     cfg,
		volume:  cfg.Volume,
	}, nil
}

func (b *Backend) initSpeaker() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.initialized {
		return nil
	}
	if err := speaker.Init(b.sampleRate, b.sampleRate.N(time.Second/10)); err != nil {
		return fmt.Errorf("speaker init: %w", err)
	}
	b.initialized = true
	return nil
}

type handle struct {
	backend *Backend
	cfg     engine.Config

	mu       sync.Mutex
	ready    bool
	stopped  bool
	playing  bool // added to the speaker
	streamer beep.StreamSeekCloser
	format   beep.Format
	ctrl     *beep.Ctrl
	vol      *effects.Volume
	volume   float64
}

// Load starts the loader goroutine. Callbacks fire from that goroutine only.
func (h *handle) Load() {
	go h.load()
}

// load materializes (if needed) and decodes the source, then reports loaded
// or load-error. Remote sources are buffered in full before decoding: beep's
// decoders need a seekable stream.
func (h *handle) load() {
	data := h.cfg.Source.Data
	if data == nil {
		fetched, err := h.fetch(h.cfg.Source.URL)
		if err != nil {
			h.cfg.Callbacks.OnLoadError(err)
			return
		}
		data = fetched
	}

	streamer, format, err := decode(data, h.cfg.Source.Format)
	if err != nil {
		h.cfg.Callbacks.OnLoadError(err)
		return
	}

	if err := h.backend.initSpeaker(); err != nil {
		streamer.Close()
		h.cfg.Callbacks.OnLoadError(err)
		return
	}

	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		streamer.Close()
		return
	}
	h.streamer = streamer
	h.format = format
	h.ready = true
	h.mu.Unlock()

	log.Debug().Str("format", h.cfg.Source.Format).Int("bytes", len(data)).Msg("Source decoded")
	h.cfg.Callbacks.OnLoaded()
}

func (h *handle) fetch(url string) ([]byte, error) {
	resp, err := h.backend.client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: unexpected status %d", url, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// Play starts or resumes playback. A no-op until the source is loaded; the
// coordinator re-issues Play once the loaded callback arrives.
func (h *handle) Play() {
	h.mu.Lock()
	if !h.ready || h.stopped {
		h.mu.Unlock()
		return
	}

	if h.playing {
		resumed := false
		speaker.Lock()
		if h.ctrl.Paused {
			h.ctrl.Paused = false
			resumed = true
		}
		speaker.Unlock()
		h.mu.Unlock()
		if resumed {
			h.cfg.Callbacks.OnStarted()
		}
		return
	}

	resampled := beep.Resample(4, h.format.SampleRate, h.backend.sampleRate, h.streamer)
	h.vol = &effects.Volume{Streamer: resampled, Base: 2}
	h.applyVolumeLocked(h.volume)
	h.ctrl = &beep.Ctrl{Streamer: h.vol}
	h.playing = true
	h.mu.Unlock()

	speaker.Play(beep.Seq(h.ctrl, beep.Callback(func() {
		// Runs on the speaker goroutine; hop off it before notifying so the
		// callback can start the next track without deadlocking the mixer.
		go h.onDrained()
	})))
	h.cfg.Callbacks.OnStarted()
}

func (h *handle) onDrained() {
	h.mu.Lock()
	stopped := h.stopped
	h.mu.Unlock()

	if !stopped {
		h.cfg.Callbacks.OnEnded()
	}
}

// Pause pauses playback.
func (h *handle) Pause() {
	h.mu.Lock()
	if !h.playing || h.stopped {
		h.mu.Unlock()
		return
	}
	paused := false
	speaker.Lock()
	if !h.ctrl.Paused {
		h.ctrl.Paused = true
		paused = true
	}
	speaker.Unlock()
	h.mu.Unlock()

	if paused {
		h.cfg.Callbacks.OnPaused()
	}
}

// Stop silences and abandons the handle. No callbacks fire afterwards.
func (h *handle) Stop() {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return
	}
	h.stopped = true
	wasPlaying := h.playing
	h.mu.Unlock()

	if wasPlaying {
		speaker.Clear()
	}
}

// Unload releases the decoded stream.
func (h *handle) Unload() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.stopped = true
	h.ready = false
	if h.streamer != nil {
		h.streamer.Close()
		h.streamer = nil
	}
	h.ctrl = nil
	h.vol = nil
}

// Seek moves to an absolute position in seconds.
func (h *handle) Seek(seconds float64) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.ready || h.streamer == nil {
		return fmt.Errorf("not ready to seek")
	}

	speaker.Lock()
	defer speaker.Unlock()
	return h.streamer.Seek(h.format.SampleRate.N(time.Duration(seconds * float64(time.Second))))
}

// SetVolume sets the playback volume in [0,1].
func (h *handle) SetVolume(v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.volume = v
	if h.vol == nil {
		return
	}
	speaker.Lock()
	h.applyVolumeLocked(v)
	speaker.Unlock()
}

// applyVolumeLocked maps [0,1] onto beep's exponential volume effect.
// Must be called with h.mu held; takes the speaker lock itself only when the
// streamer is live, which callers arrange.
func (h *handle) applyVolumeLocked(v float64) {
	if h.vol == nil {
		return
	}
	if v <= 0 {
		h.vol.Silent = true
		return
	}
	h.vol.Silent = false
	h.vol.Volume = math.Log2(v)
}

// Ready reports whether the source is decoded and seekable.
func (h *handle) Ready() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.ready && !h.stopped
}

// Position returns the current position in seconds.
func (h *handle) Position() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.ready || h.streamer == nil {
		return 0
	}

	speaker.Lock()
	pos := h.streamer.Position()
	speaker.Unlock()
	return h.format.SampleRate.D(pos).Seconds()
}

// Duration returns the total duration in seconds.
func (h *handle) Duration() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.ready || h.streamer == nil {
		return 0
	}
	return h.format.SampleRate.D(h.streamer.Len()).Seconds()
}

// decode picks a decoder from the container hint, falling back to MP3 when
// the source has no recognizable extension.
func decode(data []byte, format string) (beep.StreamSeekCloser, beep.Format, error) {
	r := nopCloser{bytes.NewReader(data)}

	switch format {
	case "wav":
		return wav.Decode(r)
	case "flac":
		return flac.Decode(r)
	case "ogg", "oga":
		return vorbis.Decode(r)
	case "mp3", "":
		return mp3.Decode(r)
	default:
		// Unknown container: try MP3, the dominant import format.
		return mp3.Decode(r)
	}
}

type nopCloser struct {
	*bytes.Reader
}

func (nopCloser) Close() error { return nil }
