// Package audio tracks the audio output status: whether the output device is
// held for playback and what format is being decoded.
package audio

import (
	"strconv"
	"sync"

	"github.com/rs/zerolog/log"
)

// Format describes the audio format currently being decoded.
type Format struct {
	Container  string `json:"container"`  // Container/codec hint ("mp3", "flac", ...)
	SampleRate int    `json:"sampleRate"` // Sample rate in Hz, 0 when unknown
	Lossless   bool   `json:"lossless"`   // True for lossless containers
}

// Status represents the current audio output status.
type Status struct {
	Locked bool    `json:"locked"` // True while the device is held for playback
	Format *Format `json:"format"` // Current format (nil when nothing is loaded)
}

// Controller manages device lock state and format detection.
type Controller struct {
	mu     sync.RWMutex
	locked bool
	format *Format
}

// NewController creates a new audio controller.
func NewController() *Controller {
	return &Controller{}
}

// GetStatus returns the current audio status.
func (c *Controller) GetStatus() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return Status{
		Locked: c.locked,
		Format: c.format,
	}
}

// Update refreshes lock and format state from the playback side.
// playing reports whether audio is actively being produced; container is the
// current track's container hint (empty when nothing is loaded); sampleRate
// is the decoder's output rate in Hz, 0 when unknown.
func (c *Controller) Update(playing bool, container string, sampleRate int) (changed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	wasLocked := c.locked
	c.locked = playing

	var newFormat *Format
	if container != "" {
		newFormat = &Format{
			Container:  container,
			SampleRate: sampleRate,
			Lossless:   IsLossless(container),
		}
	}

	formatChanged := !formatEqual(c.format, newFormat)
	c.format = newFormat

	changed = (wasLocked != c.locked) || formatChanged
	if changed {
		log.Debug().
			Bool("locked", c.locked).
			Interface("format", c.format).
			Msg("Audio status changed")
	}
	return changed
}

// Clear resets the controller to the unloaded state.
func (c *Controller) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.locked = false
	c.format = nil
}

var losslessContainers = map[string]bool{
	"flac": true,
	"wav":  true,
	"aiff": true,
	"aif":  true,
	"alac": true,
}

// IsLossless reports whether a container hint denotes a lossless codec.
func IsLossless(container string) bool {
	return losslessContainers[container]
}

// FormatSampleRate returns a human-readable sample rate string.
func FormatSampleRate(sampleRate int) string {
	if sampleRate >= 1000 {
		return strconv.FormatFloat(float64(sampleRate)/1000, 'f', -1, 64) + "kHz"
	}
	return strconv.Itoa(sampleRate) + "Hz"
}

func formatEqual(a, b *Format) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return a.Container == b.Container &&
		a.SampleRate == b.SampleRate &&
		a.Lossless == b.Lossless
}
