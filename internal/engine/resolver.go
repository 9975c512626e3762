package engine

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/lordxmusic/hybrid-player-backend/internal/domain/player"
)

// FileBridge translates local file URIs into readable addresses and fetches
// their content. It is the platform boundary for on-device storage.
type FileBridge interface {
	// ConvertFileSrc turns a file URI into an address Fetch can read.
	ConvertFileSrc(uri string) string
	// Fetch retrieves the full content behind an address.
	Fetch(ctx context.Context, addr string) ([]byte, error)
}

// ResolutionError reports that a track's source could not be turned into a
// playable handle source. It is terminal for the session: the coordinator
// moves to status=error without retrying.
type ResolutionError struct {
	Source string
	Err    error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolve %s: %v", e.Source, e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// Resolver decides how a track's source becomes playable: local file
// references are materialized into memory in full, remote URLs pass through
// untouched. Whole-file materialization trades memory and start latency for
// guaranteed availability, since local URIs are not directly consumable by
// every playback backend.
type Resolver struct {
	bridge FileBridge
}

// NewResolver creates a resolver backed by the given file bridge.
func NewResolver(bridge FileBridge) *Resolver {
	return &Resolver{bridge: bridge}
}

// Resolve produces a playable source for the track, or a *ResolutionError.
func (r *Resolver) Resolve(ctx context.Context, track player.Track) (Source, error) {
	format := InferFormat(track.Source)

	if !IsLocalSource(track.Source) {
		return Source{URL: track.Source, Format: format}, nil
	}

	addr := r.bridge.ConvertFileSrc(track.Source)
	data, err := r.bridge.Fetch(ctx, addr)
	if err != nil {
		log.Error().Err(err).Str("source", track.Source).Msg("Failed to preload local file")
		return Source{}, &ResolutionError{Source: track.Source, Err: err}
	}

	log.Debug().Str("source", track.Source).Int("bytes", len(data)).Str("format", format).Msg("Local source materialized")
	return Source{Data: data, Format: format}, nil
}

// IsLocalSource reports whether a source denotes on-device storage: a file://
// URI or an absolute path.
func IsLocalSource(src string) bool {
	return strings.HasPrefix(src, "file://") || strings.HasPrefix(src, "/")
}

var formatPattern = regexp.MustCompile(`(?i)\.([a-z0-9]+)(?:\?.*)?$`)

// InferFormat extracts a lowercase container hint from the source's filename
// extension. An empty result leaves format detection to the backend.
func InferFormat(src string) string {
	m := formatPattern.FindStringSubmatch(src)
	if m == nil {
		return ""
	}
	return strings.ToLower(m[1])
}
