package socketio

import (
	"github.com/lordxmusic/hybrid-player-backend/internal/engine"
)

// MediaSessionBridge publishes now-playing metadata and position state to
// clients so a platform shell (lock screen, notification area, hardware keys)
// can mirror the session. Control in the other direction arrives as the
// ordinary transport events: togglePlay, next, prev, seekForward and
// seekBackward.
type MediaSessionBridge struct {
	server *Server
}

// NewMediaSessionBridge creates a bridge that publishes through the given
// socket server.
func NewMediaSessionBridge(server *Server) *MediaSessionBridge {
	return &MediaSessionBridge{server: server}
}

// SetMetadata publishes now-playing track metadata.
func (b *MediaSessionBridge) SetMetadata(meta engine.Metadata) {
	b.server.io.Emit("mediaSessionMetadata", map[string]any{
		"title":   meta.Title,
		"artist":  meta.Artist,
		"album":   meta.Album,
		"artwork": meta.ArtworkURL,
	})
}

// SetPlaybackState publishes whether audio is actively playing.
func (b *MediaSessionBridge) SetPlaybackState(playing bool) {
	b.server.io.Emit("mediaSessionPlaybackState", map[string]any{
		"playing": playing,
	})
}

// SetPositionState publishes duration, rate and position in seconds.
func (b *MediaSessionBridge) SetPositionState(duration, rate, position float64) {
	b.server.io.Emit("mediaSessionPositionState", map[string]any{
		"duration": duration,
		"rate":     rate,
		"position": position,
	})
}
