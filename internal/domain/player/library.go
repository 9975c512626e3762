package player

import (
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// LoadLibrary restores playlists and imported tracks from the record store.
// A failed or corrupt record degrades to an empty collection rather than an
// error; the library is never a reason the player cannot start.
func (s *Store) LoadLibrary() {
	if s.records == nil {
		return
	}

	playlists, err := s.records.LoadPlaylists()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load playlists, starting empty")
		playlists = nil
	}

	tracks, err := s.records.LoadUserTracks()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load user tracks, starting empty")
		tracks = nil
	}

	s.mu.Lock()
	s.playlists = playlists
	s.userTracks = tracks
	s.mu.Unlock()

	log.Info().Int("playlists", len(playlists)).Int("tracks", len(tracks)).Msg("Library loaded")
}

// CreatePlaylist creates an empty named playlist and persists the library.
func (s *Store) CreatePlaylist(name string) Playlist {
	pl := Playlist{
		ID:     uuid.NewString(),
		Name:   name,
		Tracks: []Track{},
	}

	s.mu.Lock()
	s.playlists = append(s.playlists, pl)
	session := s.sessionID
	s.mu.Unlock()

	s.savePlaylists()
	s.notify(Change{Kind: ChangeLibrary, Session: session})
	return pl
}

// AddTrackToPlaylist appends a track to a playlist. Adding a track id that is
// already present is a no-op, keeping playlist ids unique.
func (s *Store) AddTrackToPlaylist(playlistID string, track Track) {
	s.mu.Lock()
	changed := false
	for i := range s.playlists {
		if s.playlists[i].ID != playlistID {
			continue
		}
		exists := false
		for _, t := range s.playlists[i].Tracks {
			if t.ID == track.ID {
				exists = true
				break
			}
		}
		if !exists {
			s.playlists[i].Tracks = append(s.playlists[i].Tracks, track)
			changed = true
		}
		break
	}
	session := s.sessionID
	s.mu.Unlock()

	if changed {
		s.savePlaylists()
		s.notify(Change{Kind: ChangeLibrary, Session: session})
	}
}

// RemoveTrackFromPlaylist removes a track from a playlist by id.
func (s *Store) RemoveTrackFromPlaylist(playlistID, trackID string) {
	s.mu.Lock()
	changed := false
	for i := range s.playlists {
		if s.playlists[i].ID != playlistID {
			continue
		}
		kept := s.playlists[i].Tracks[:0]
		for _, t := range s.playlists[i].Tracks {
			if t.ID == trackID {
				changed = true
				continue
			}
			kept = append(kept, t)
		}
		s.playlists[i].Tracks = kept
		break
	}
	session := s.sessionID
	s.mu.Unlock()

	if changed {
		s.savePlaylists()
		s.notify(Change{Kind: ChangeLibrary, Session: session})
	}
}

// Playlists returns a copy of the user playlists.
func (s *Store) Playlists() []Playlist {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Playlist, len(s.playlists))
	for i, pl := range s.playlists {
		out[i] = pl
		out[i].Tracks = append([]Track(nil), pl.Tracks...)
	}
	return out
}

// AddUserTrack inserts an imported track at the front of the library
// (newest first) and persists it.
func (s *Store) AddUserTrack(track Track) {
	s.mu.Lock()
	s.userTracks = append([]Track{track}, s.userTracks...)
	session := s.sessionID
	s.mu.Unlock()

	s.saveUserTracks()
	s.notify(Change{Kind: ChangeLibrary, Session: session})
}

// RemoveUserTrack removes an imported track by id.
func (s *Store) RemoveUserTrack(trackID string) {
	s.mu.Lock()
	kept := s.userTracks[:0]
	for _, t := range s.userTracks {
		if t.ID != trackID {
			kept = append(kept, t)
		}
	}
	s.userTracks = kept
	session := s.sessionID
	s.mu.Unlock()

	s.saveUserTracks()
	s.notify(Change{Kind: ChangeLibrary, Session: session})
}

// UserTracks returns a copy of the imported track library.
func (s *Store) UserTracks() []Track {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Track(nil), s.userTracks...)
}

func (s *Store) savePlaylists() {
	if s.records == nil {
		return
	}
	s.mu.RLock()
	playlists := make([]Playlist, len(s.playlists))
	copy(playlists, s.playlists)
	s.mu.RUnlock()

	if err := s.records.SavePlaylists(playlists); err != nil {
		log.Error().Err(err).Msg("Failed to persist playlists")
	}
}

func (s *Store) saveUserTracks() {
	if s.records == nil {
		return
	}
	s.mu.RLock()
	tracks := make([]Track, len(s.userTracks))
	copy(tracks, s.userTracks)
	s.mu.RUnlock()

	if err := s.records.SaveUserTracks(tracks); err != nil {
		log.Error().Err(err).Msg("Failed to persist user tracks")
	}
}
