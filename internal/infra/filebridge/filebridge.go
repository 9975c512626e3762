// Package filebridge is the platform boundary for on-device audio files: it
// translates file URIs into readable addresses and retrieves their full
// content for in-memory playback.
package filebridge

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Bridge fetches file content from local paths or bridge-served HTTP
// addresses. Chunked writes for large imports are the importer's concern;
// the bridge only ever reads whole files.
type Bridge struct {
	client *http.Client
}

// New creates a file bridge.
func New() *Bridge {
	return &Bridge{
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// ConvertFileSrc translates a file:// URI into a fetchable address. Plain
// paths and HTTP addresses pass through unchanged.
func (b *Bridge) ConvertFileSrc(uri string) string {
	if strings.HasPrefix(uri, "file://") {
		return strings.TrimPrefix(uri, "file://")
	}
	return uri
}

// Fetch retrieves the full content behind an address: HTTP for bridge-served
// addresses, direct reads for filesystem paths.
func (b *Bridge) Fetch(ctx context.Context, addr string) ([]byte, error) {
	if strings.HasPrefix(addr, "http://") || strings.HasPrefix(addr, "https://") {
		return b.fetchHTTP(ctx, addr)
	}

	data, err := os.ReadFile(addr)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", addr, err)
	}
	return data, nil
}

func (b *Bridge) fetchHTTP(ctx context.Context, addr string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr, nil)
	if err != nil {
		return nil, err
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", addr, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: unexpected status %d", addr, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", addr, err)
	}

	log.Debug().Str("addr", addr).Int("bytes", len(data)).Msg("Fetched file content")
	return data, nil
}
