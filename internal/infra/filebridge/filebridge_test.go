package filebridge_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/lordxmusic/hybrid-player-backend/internal/infra/filebridge"
)

func TestConvertFileSrc(t *testing.T) {
	b := filebridge.New()

	tests := []struct {
		uri      string
		expected string
	}{
		{"file:///music/song.mp3", "/music/song.mp3"},
		{"/music/song.mp3", "/music/song.mp3"},
		{"https://cdn.example.com/song.mp3", "https://cdn.example.com/song.mp3"},
	}

	for _, tt := range tests {
		if got := b.ConvertFileSrc(tt.uri); got != tt.expected {
			t.Errorf("ConvertFileSrc(%q) = %q, want %q", tt.uri, got, tt.expected)
		}
	}
}

func TestFetchLocalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "song.mp3")
	if err := os.WriteFile(path, []byte("audio-bytes"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	b := filebridge.New()
	data, err := b.Fetch(context.Background(), path)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if string(data) != "audio-bytes" {
		t.Errorf("unexpected content %q", data)
	}
}

func TestFetchMissingFileFails(t *testing.T) {
	b := filebridge.New()

	if _, err := b.Fetch(context.Background(), "/nonexistent/song.mp3"); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestFetchHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("served-bytes"))
	}))
	defer srv.Close()

	b := filebridge.New()
	data, err := b.Fetch(context.Background(), srv.URL+"/song.mp3")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if string(data) != "served-bytes" {
		t.Errorf("unexpected content %q", data)
	}
}

func TestFetchHTTPErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	b := filebridge.New()
	if _, err := b.Fetch(context.Background(), srv.URL+"/missing.mp3"); err == nil {
		t.Error("expected an error for a non-200 response")
	}
}

func TestFetchHTTPHonorsContext(t *testing.T) {
	blocked := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-blocked
	}))
	defer srv.Close()
	defer close(blocked)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b := filebridge.New()
	if _, err := b.Fetch(ctx, srv.URL+"/song.mp3"); err == nil {
		t.Error("expected an error for a cancelled context")
	}
}
