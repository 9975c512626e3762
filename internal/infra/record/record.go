// Package record provides durable named records for the user library,
// backed by SQLite. Each record is a serialized ordered list rewritten in
// full on every mutation; there is no incremental diffing.
package record

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/rs/zerolog/log"

	"github.com/lordxmusic/hybrid-player-backend/internal/domain/player"
)

// Record keys. The names predate this backend and are kept for
// compatibility with libraries migrated from the app's web storage.
const (
	keyPlaylists  = "hybrid-music-playlists"
	keyUserTracks = "hybrid-music-user-tracks"
)

// DefaultDBPath is the default path for the library database.
const DefaultDBPath = "data/library.db"

// Store is the SQLite-backed record store. It implements player.RecordStore.
type Store struct {
	mu   sync.Mutex
	db   *sql.DB
	path string
}

// NewStore creates a record store instance at the given path.
func NewStore(path string) *Store {
	if path == "" {
		path = DefaultDBPath
	}
	return &Store{path: path}
}

// Open opens the database and initializes the schema.
func (s *Store) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create record directory: %w", err)
	}

	db, err := sql.Open("sqlite3", s.path+"?_journal=WAL&_busy_timeout=5000")
	if err != nil {
		return fmt.Errorf("failed to open record database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	schema := `
	CREATE TABLE IF NOT EXISTS records (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TEXT DEFAULT CURRENT_TIMESTAMP
	);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return fmt.Errorf("failed to create schema: %w", err)
	}

	s.db = db
	log.Info().Str("path", s.path).Msg("Record database opened")
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		err := s.db.Close()
		s.db = nil
		return err
	}
	return nil
}

// LoadPlaylists restores the user playlists record. A missing or corrupt
// record yields an empty list, not an error.
func (s *Store) LoadPlaylists() ([]player.Playlist, error) {
	var playlists []player.Playlist
	if err := s.load(keyPlaylists, &playlists); err != nil {
		return nil, err
	}
	return playlists, nil
}

// SavePlaylists rewrites the user playlists record in full.
func (s *Store) SavePlaylists(playlists []player.Playlist) error {
	return s.save(keyPlaylists, playlists)
}

// LoadUserTracks restores the imported-track record. A missing or corrupt
// record yields an empty list, not an error.
func (s *Store) LoadUserTracks() ([]player.Track, error) {
	var tracks []player.Track
	if err := s.load(keyUserTracks, &tracks); err != nil {
		return nil, err
	}
	return tracks, nil
}

// SaveUserTracks rewrites the imported-track record in full.
func (s *Store) SaveUserTracks(tracks []player.Track) error {
	return s.save(keyUserTracks, tracks)
}

func (s *Store) load(key string, out interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return fmt.Errorf("record database not open")
	}

	var value string
	err := s.db.QueryRow("SELECT value FROM records WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load record %s: %w", key, err)
	}

	if err := json.Unmarshal([]byte(value), out); err != nil {
		// A corrupt record is treated as empty rather than fatal.
		log.Warn().Err(err).Str("key", key).Msg("Corrupt record, treating as empty")
		return nil
	}
	return nil
}

func (s *Store) save(key string, v interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return fmt.Errorf("record database not open")
	}

	value, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode record %s: %w", key, err)
	}

	now := time.Now().Format(time.RFC3339)
	_, err = s.db.Exec(`
		INSERT INTO records (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = ?, updated_at = ?
	`, key, string(value), now, string(value), now)
	if err != nil {
		return fmt.Errorf("save record %s: %w", key, err)
	}
	return nil
}
