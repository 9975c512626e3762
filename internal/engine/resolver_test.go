package engine_test

import (
	"context"
	"errors"
	"testing"

	"github.com/lordxmusic/hybrid-player-backend/internal/domain/player"
	"github.com/lordxmusic/hybrid-player-backend/internal/engine"
)

// mapBridge serves file content from an in-memory map.
type mapBridge struct {
	files     map[string][]byte
	converted []string
}

func (b *mapBridge) ConvertFileSrc(uri string) string {
	b.converted = append(b.converted, uri)
	if len(uri) > 7 && uri[:7] == "file://" {
		return uri[7:]
	}
	return uri
}

func (b *mapBridge) Fetch(ctx context.Context, addr string) ([]byte, error) {
	data, ok := b.files[addr]
	if !ok {
		return nil, errors.New("no such file")
	}
	return data, nil
}

func TestResolveRemotePassesThrough(t *testing.T) {
	r := engine.NewResolver(&mapBridge{})

	src, err := r.Resolve(context.Background(), player.Track{
		ID:     "t1",
		Source: "https://cdn.example.com/song.mp3",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if src.URL != "https://cdn.example.com/song.mp3" {
		t.Errorf("unexpected URL %q", src.URL)
	}
	if src.Data != nil {
		t.Error("remote source must not be materialized")
	}
	if src.Format != "mp3" {
		t.Errorf("expected format mp3, got %q", src.Format)
	}
	if !src.Addressable() {
		t.Error("remote source must be addressable")
	}
}

func TestResolveLocalMaterializesBytes(t *testing.T) {
	bridge := &mapBridge{files: map[string][]byte{
		"/music/song.flac": []byte("flac-bytes"),
	}}
	r := engine.NewResolver(bridge)

	src, err := r.Resolve(context.Background(), player.Track{
		ID:     "t1",
		Source: "file:///music/song.flac",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if string(src.Data) != "flac-bytes" {
		t.Errorf("unexpected data %q", src.Data)
	}
	if src.URL != "" {
		t.Errorf("local source must not carry a URL, got %q", src.URL)
	}
	if src.Format != "flac" {
		t.Errorf("expected format flac, got %q", src.Format)
	}
	if len(bridge.converted) != 1 || bridge.converted[0] != "file:///music/song.flac" {
		t.Errorf("expected the file URI to go through the bridge, got %v", bridge.converted)
	}
}

func TestResolveLocalFailureIsResolutionError(t *testing.T) {
	r := engine.NewResolver(&mapBridge{})

	_, err := r.Resolve(context.Background(), player.Track{
		ID:     "t1",
		Source: "file:///music/missing.mp3",
	})
	if err == nil {
		t.Fatal("expected an error for a missing local file")
	}

	var resErr *engine.ResolutionError
	if !errors.As(err, &resErr) {
		t.Fatalf("expected *ResolutionError, got %T", err)
	}
	if resErr.Source != "file:///music/missing.mp3" {
		t.Errorf("unexpected error source %q", resErr.Source)
	}
}

func TestSourceRelease(t *testing.T) {
	src := engine.Source{Data: []byte("bytes"), Format: "mp3"}
	src.Release()
	if src.Data != nil {
		t.Error("expected data dropped on release")
	}
}

func TestIsLocalSource(t *testing.T) {
	tests := []struct {
		src      string
		expected bool
	}{
		{"file:///music/song.mp3", true},
		{"/music/song.mp3", true},
		{"https://cdn.example.com/song.mp3", false},
		{"http://cdn.example.com/song.mp3", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := engine.IsLocalSource(tt.src); got != tt.expected {
			t.Errorf("IsLocalSource(%q) = %v, want %v", tt.src, got, tt.expected)
		}
	}
}

func TestInferFormat(t *testing.T) {
	tests := []struct {
		src      string
		expected string
	}{
		{"https://cdn.example.com/song.mp3", "mp3"},
		{"https://cdn.example.com/song.MP3", "mp3"},
		{"https://cdn.example.com/song.flac?token=abc", "flac"},
		{"file:///music/track.ogg", "ogg"},
		{"/music/track.wav", "wav"},
		{"https://cdn.example.com/stream", ""},
		{"", ""},
	}

	for _, tt := range tests {
		if got := engine.InferFormat(tt.src); got != tt.expected {
			t.Errorf("InferFormat(%q) = %q, want %q", tt.src, got, tt.expected)
		}
	}
}
