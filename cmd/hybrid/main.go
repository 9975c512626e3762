// Package main is the entry point for the LORDx Music player backend.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/lordxmusic/hybrid-player-backend/internal/audio"
	"github.com/lordxmusic/hybrid-player-backend/internal/config"
	"github.com/lordxmusic/hybrid-player-backend/internal/domain/player"
	"github.com/lordxmusic/hybrid-player-backend/internal/engine"
	"github.com/lordxmusic/hybrid-player-backend/internal/infra/beepengine"
	"github.com/lordxmusic/hybrid-player-backend/internal/infra/filebridge"
	"github.com/lordxmusic/hybrid-player-backend/internal/infra/mpdengine"
	"github.com/lordxmusic/hybrid-player-backend/internal/infra/record"
	"github.com/lordxmusic/hybrid-player-backend/internal/transport/socketio"
	"github.com/lordxmusic/hybrid-player-backend/internal/version"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	// Command line flags override the environment
	port := flag.Int("port", cfg.Port, "HTTP server port")
	engineName := flag.String("engine", cfg.Engine, "Playback engine: beep (in-process) or mpd")
	mpdHost := flag.String("mpd-host", cfg.MPDHost, "MPD host (mpd engine only)")
	mpdPort := flag.Int("mpd-port", cfg.MPDPort, "MPD port (mpd engine only)")
	mpdPassword := flag.String("mpd-password", cfg.MPDPassword, "MPD password (mpd engine only)")
	dbPath := flag.String("db", cfg.DBPath, "Path to the library database")
	maxExternal := flag.Int("max-external", cfg.MaxExternalClients, "Maximum concurrent non-localhost clients")
	debug := flag.Bool("debug", cfg.LogLevel == "debug", "Enable debug logging")
	flag.Parse()

	// Setup logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	versionInfo := version.GetInfo()
	log.Info().Msg("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	log.Info().Msgf("  %s", versionInfo.String())
	log.Info().Msg("  Hybrid Music Player Backend")
	log.Info().Msg("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	log.Info().
		Int("port", *port).
		Str("engine", *engineName).
		Str("db", *dbPath).
		Msg("Configuration")

	// Durable library storage
	records := record.NewStore(*dbPath)
	if err := records.Open(); err != nil {
		log.Fatal().Err(err).Msg("Failed to open library database")
	}
	defer records.Close()

	// Core player state
	store := player.NewStore(records)
	store.LoadLibrary()

	// Playback backend
	var backend engine.Backend
	switch *engineName {
	case "mpd":
		mpdBackend := mpdengine.NewBackend(mpdengine.NewClient(*mpdHost, *mpdPort, *mpdPassword))
		if err := mpdBackend.Start(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start MPD backend")
		}
		defer mpdBackend.Close()
		backend = mpdBackend
	case "beep":
		backend = beepengine.New()
	default:
		log.Fatal().Str("engine", *engineName).Msg("Unknown playback engine")
	}

	// Audio output status, derived from store changes
	audioCtrl := audio.NewController()

	// Socket.io transport
	socketServer, err := socketio.NewServer(store, audioCtrl, *maxExternal)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Socket.io server")
	}
	defer socketServer.Close()

	store.OnChange(func(ch player.Change) {
		if ch.Kind != player.ChangeStatus && ch.Kind != player.ChangeTrack {
			return
		}
		snap := store.Snapshot()
		container := ""
		if snap.CurrentTrack != nil {
			container = engine.InferFormat(snap.CurrentTrack.Source)
		}
		if audioCtrl.Update(snap.Status == player.StatusPlaying, container, 0) {
			socketServer.BroadcastAudioStatus()
		}
	})

	// Playback coordinator
	resolver := engine.NewResolver(filebridge.New())
	bridge := socketio.NewMediaSessionBridge(socketServer)
	coordinator := engine.NewCoordinator(store, backend, resolver, bridge)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	coordinator.Start(ctx)

	// HTTP surface
	mux := http.NewServeMux()
	mux.Handle("/socket.io/", socketServer)

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	mux.HandleFunc("/api/v1/version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(version.GetInfo())
	})

	// REST fallback for clients without a socket connection
	mux.HandleFunc("/api/v1/state", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(store.Snapshot())
	})

	mux.HandleFunc("/api/v1/audio", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(audioCtrl.GetStatus())
	})

	server := &http.Server{
		Addr:         ":" + strconv.Itoa(*port),
		Handler:      corsMiddleware(mux),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		log.Info().Msg("Shutting down...")
		cancel()

		// Let the coordinator release the live playback handle first
		select {
		case <-coordinator.Done():
		case <-time.After(2 * time.Second):
			log.Warn().Msg("Coordinator did not stop in time")
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server shutdown error")
		}
	}()

	log.Info().Str("addr", server.Addr).Msg("HTTP server listening")
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("HTTP server error")
	}

	log.Info().Msg("Server stopped")
}
