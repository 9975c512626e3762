package config_test

import (
	"testing"

	"github.com/lordxmusic/hybrid-player-backend/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Port != 3000 {
		t.Errorf("expected default port 3000, got %d", cfg.Port)
	}
	if cfg.Engine != "beep" {
		t.Errorf("expected default engine beep, got %q", cfg.Engine)
	}
	if cfg.MPDHost != "localhost" || cfg.MPDPort != 6600 {
		t.Errorf("unexpected MPD defaults %s:%d", cfg.MPDHost, cfg.MPDPort)
	}
	if cfg.DBPath != "data/library.db" {
		t.Errorf("unexpected default db path %q", cfg.DBPath)
	}
	if cfg.MaxExternalClients != 4 {
		t.Errorf("expected 4 external clients, got %d", cfg.MaxExternalClients)
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("PLAYBACK_ENGINE", "mpd")
	t.Setenv("MPD_HOST", "player.local")
	t.Setenv("DB_PATH", "/var/lib/player/library.db")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Port != 8080 {
		t.Errorf("expected port 8080, got %d", cfg.Port)
	}
	if cfg.Engine != "mpd" {
		t.Errorf("expected engine mpd, got %q", cfg.Engine)
	}
	if cfg.MPDHost != "player.local" {
		t.Errorf("expected MPD host player.local, got %q", cfg.MPDHost)
	}
	if cfg.DBPath != "/var/lib/player/library.db" {
		t.Errorf("unexpected db path %q", cfg.DBPath)
	}
}

func TestInvalidIntFallsBackToDefault(t *testing.T) {
	t.Setenv("PORT", "not-a-number")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != 3000 {
		t.Errorf("expected fallback port 3000, got %d", cfg.Port)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.Config
	}{
		{"port too low", config.Config{Port: 0, Engine: "beep", MaxExternalClients: 1}},
		{"port too high", config.Config{Port: 70000, Engine: "beep", MaxExternalClients: 1}},
		{"unknown engine", config.Config{Port: 3000, Engine: "gramophone", MaxExternalClients: 1}},
		{"no external clients", config.Config{Port: 3000, Engine: "beep", MaxExternalClients: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); err == nil {
				t.Error("expected a validation error")
			}
		})
	}
}

func TestBadEngineFromEnvironmentFailsLoad(t *testing.T) {
	t.Setenv("PLAYBACK_ENGINE", "gramophone")

	if _, err := config.Load(); err == nil {
		t.Error("expected load to fail for an unknown engine")
	}
}
