package engine

// Metadata describes the current track for OS-level media UIs.
type Metadata struct {
	Title      string `json:"title"`
	Artist     string `json:"artist"`
	Album      string `json:"album"`
	ArtworkURL string `json:"artwork,omitempty"`
}

// MediaBridge receives playback metadata and state for display in the
// platform media session (lock screen, notification, hardware keys). Inbound
// transport commands arriving from the OS go straight to the store's action
// methods and are not part of this interface.
type MediaBridge interface {
	SetMetadata(meta Metadata)
	SetPlaybackState(playing bool)
	SetPositionState(duration, rate, position float64)
}

// NopBridge discards all media session updates.
type NopBridge struct{}

// SetMetadata implements MediaBridge.
func (NopBridge) SetMetadata(Metadata) {}

// SetPlaybackState implements MediaBridge.
func (NopBridge) SetPlaybackState(bool) {}

// SetPositionState implements MediaBridge.
func (NopBridge) SetPositionState(float64, float64, float64) {}
