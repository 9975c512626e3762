// Package socketio provides the Socket.io server for client communication.
// It is the outward surface of the player: UI clients and the media-session
// shell both speak to the store through it.
package socketio

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/zishang520/socket.io/servers/socket/v3"
	"github.com/zishang520/socket.io/v3/pkg/types"

	"github.com/lordxmusic/hybrid-player-backend/internal/audio"
	"github.com/lordxmusic/hybrid-player-backend/internal/domain/player"
)

// seekJumpSeconds is the hop applied by seekForward/seekBackward, mirroring
// the usual media-key step.
const seekJumpSeconds = 10

// broadcastWindow batches bursts of store changes into single pushes.
const broadcastWindow = 30 * time.Millisecond

// Server handles Socket.io connections and events.
type Server struct {
	io        *socket.Server
	store     *player.Store
	audio     *audio.Controller
	limiter   *ConnectionLimiter
	debouncer *BroadcastDebouncer

	mu      sync.RWMutex
	clients map[string]*socket.Socket
}

// NewServer creates a new Socket.io server on top of the player store.
// maxExternal caps concurrent non-localhost clients; audioCtrl may be nil.
func NewServer(store *player.Store, audioCtrl *audio.Controller, maxExternal int) (*Server, error) {
	opts := socket.DefaultServerOptions()
	opts.SetPingTimeout(20 * time.Second)
	opts.SetPingInterval(25 * time.Second)
	opts.SetCors(&types.Cors{
		Origin:      "*",
		Credentials: true,
	})

	server := socket.NewServer(nil, opts)

	s := &Server{
		io:      server,
		store:   store,
		audio:   audioCtrl,
		limiter: NewConnectionLimiter(maxExternal),
		clients: make(map[string]*socket.Socket),
	}
	s.debouncer = NewBroadcastDebouncer(broadcastWindow, s.BroadcastState, s.BroadcastQueue, s.BroadcastLibrary)

	store.OnChange(func(ch player.Change) {
		s.debouncer.Trigger(ch.Kind)
	})

	s.setupHandlers()

	return s, nil
}

// setupHandlers registers all Socket.io event handlers.
func (s *Server) setupHandlers() {
	s.io.On("connection", func(clients ...any) {
		client := clients[0].(*socket.Socket)
		clientID := string(client.Id())
		remoteIP := clientIP(client)

		_, evictedID := s.limiter.TryAdd(clientID, remoteIP)
		if evictedID != "" {
			s.mu.RLock()
			evicted := s.clients[evictedID]
			s.mu.RUnlock()
			if evicted != nil {
				log.Info().Str("id", evictedID).Msg("Evicting oldest external client")
				evicted.Disconnect(true)
			}
		}

		log.Info().Str("id", clientID).Str("ip", remoteIP).Msg("Client connected")

		s.mu.Lock()
		s.clients[clientID] = client
		s.mu.Unlock()

		// Send initial state after small delay
		go func() {
			time.Sleep(100 * time.Millisecond)
			s.pushState(client)
			s.pushQueue(client)
			s.pushLibrary(client)
		}()

		client.On("disconnect", func(args ...any) {
			reason := ""
			if len(args) > 0 {
				if r, ok := args[0].(string); ok {
					reason = r
				}
			}
			log.Info().Str("id", clientID).Str("reason", reason).Msg("Client disconnected")

			s.limiter.Remove(clientID)
			s.mu.Lock()
			delete(s.clients, clientID)
			s.mu.Unlock()
		})

		// Session control events
		client.On("getState", func(args ...any) {
			log.Debug().Str("id", clientID).Msg("getState")
			s.pushState(client)
		})

		client.On("playTrack", func(args ...any) {
			var payload struct {
				Track player.Track   `json:"track"`
				Queue []player.Track `json:"queue"`
			}
			if !decodeArg(args, &payload) || payload.Track.ID == "" {
				log.Warn().Str("id", clientID).Msg("playTrack with no track")
				return
			}
			log.Debug().Str("id", clientID).Str("track", payload.Track.Title).Msg("playTrack")

			if payload.Queue != nil {
				s.store.SetPlaylist(payload.Queue)
			}
			s.store.SetCurrentTrack(payload.Track)
		})

		client.On("togglePlay", func(args ...any) {
			log.Debug().Str("id", clientID).Msg("togglePlay")
			s.store.TogglePlay()
		})

		client.On("play", func(args ...any) {
			log.Debug().Str("id", clientID).Msg("play")
			if !s.store.IsPlaying() {
				s.store.TogglePlay()
			}
		})

		client.On("pause", func(args ...any) {
			log.Debug().Str("id", clientID).Msg("pause")
			if s.store.IsPlaying() {
				s.store.TogglePlay()
			}
		})

		client.On("stop", func(args ...any) {
			log.Debug().Str("id", clientID).Msg("stop")
			s.store.ClosePlayer()
		})

		client.On("next", func(args ...any) {
			log.Debug().Str("id", clientID).Msg("next")
			s.store.NextTrack()
		})

		client.On("prev", func(args ...any) {
			log.Debug().Str("id", clientID).Msg("prev")
			s.store.PrevTrack()
		})

		client.On("seek", func(args ...any) {
			if len(args) > 0 {
				if fraction, ok := args[0].(float64); ok {
					log.Debug().Str("id", clientID).Float64("fraction", fraction).Msg("seek")
					s.store.Seek(fraction)
				}
			}
		})

		client.On("seekTo", func(args ...any) {
			if len(args) > 0 {
				if seconds, ok := args[0].(float64); ok {
					log.Debug().Str("id", clientID).Float64("seconds", seconds).Msg("seekTo")
					s.store.SeekToTime(seconds)
				}
			}
		})

		client.On("seekForward", func(args ...any) {
			log.Debug().Str("id", clientID).Msg("seekForward")
			s.jumpBy(seekJumpSeconds)
		})

		client.On("seekBackward", func(args ...any) {
			log.Debug().Str("id", clientID).Msg("seekBackward")
			s.jumpBy(-seekJumpSeconds)
		})

		client.On("volume", func(args ...any) {
			if len(args) > 0 {
				if vol, ok := args[0].(float64); ok {
					log.Debug().Str("id", clientID).Float64("vol", vol).Msg("volume")
					s.store.SetVolume(vol)
				}
			}
		})

		client.On("toggleShuffle", func(args ...any) {
			log.Debug().Str("id", clientID).Msg("toggleShuffle")
			s.store.ToggleShuffle()
		})

		client.On("toggleRepeat", func(args ...any) {
			log.Debug().Str("id", clientID).Msg("toggleRepeat")
			s.store.ToggleRepeat()
		})

		// Queue events
		client.On("getQueue", func(args ...any) {
			log.Debug().Str("id", clientID).Msg("getQueue")
			s.pushQueue(client)
		})

		client.On("setQueue", func(args ...any) {
			var payload struct {
				Tracks []player.Track `json:"tracks"`
			}
			if !decodeArg(args, &payload) {
				return
			}
			log.Debug().Str("id", clientID).Int("tracks", len(payload.Tracks)).Msg("setQueue")
			s.store.SetPlaylist(payload.Tracks)
		})

		// Library events
		client.On("getPlaylists", func(args ...any) {
			log.Debug().Str("id", clientID).Msg("getPlaylists")
			client.Emit("pushPlaylists", s.store.Playlists())
		})

		client.On("createPlaylist", func(args ...any) {
			var payload struct {
				Name string `json:"name"`
			}
			if !decodeArg(args, &payload) || payload.Name == "" {
				return
			}
			log.Debug().Str("id", clientID).Str("name", payload.Name).Msg("createPlaylist")
			created := s.store.CreatePlaylist(payload.Name)
			client.Emit("playlistCreated", created)
		})

		client.On("addToPlaylist", func(args ...any) {
			var payload struct {
				PlaylistID string       `json:"playlistId"`
				Track      player.Track `json:"track"`
			}
			if !decodeArg(args, &payload) {
				return
			}
			log.Debug().Str("id", clientID).Str("playlist", payload.PlaylistID).Msg("addToPlaylist")
			s.store.AddTrackToPlaylist(payload.PlaylistID, payload.Track)
		})

		client.On("removeFromPlaylist", func(args ...any) {
			var payload struct {
				PlaylistID string `json:"playlistId"`
				TrackID    string `json:"trackId"`
			}
			if !decodeArg(args, &payload) {
				return
			}
			log.Debug().Str("id", clientID).Str("playlist", payload.PlaylistID).Msg("removeFromPlaylist")
			s.store.RemoveTrackFromPlaylist(payload.PlaylistID, payload.TrackID)
		})

		client.On("getUserTracks", func(args ...any) {
			log.Debug().Str("id", clientID).Msg("getUserTracks")
			client.Emit("pushUserTracks", s.store.UserTracks())
		})

		client.On("addUserTrack", func(args ...any) {
			var payload struct {
				Track player.Track `json:"track"`
			}
			if !decodeArg(args, &payload) || payload.Track.ID == "" {
				return
			}
			log.Debug().Str("id", clientID).Str("track", payload.Track.Title).Msg("addUserTrack")
			s.store.AddUserTrack(payload.Track)
		})

		client.On("removeUserTrack", func(args ...any) {
			var payload struct {
				TrackID string `json:"trackId"`
			}
			if !decodeArg(args, &payload) {
				return
			}
			log.Debug().Str("id", clientID).Str("track", payload.TrackID).Msg("removeUserTrack")
			s.store.RemoveUserTrack(payload.TrackID)
		})

		client.On("getAudioStatus", func(args ...any) {
			log.Debug().Str("id", clientID).Msg("getAudioStatus")
			if s.audio != nil {
				client.Emit("pushAudioStatus", s.audio.GetStatus())
			}
		})
	})
}

// jumpBy moves the playhead relative to the current position, clamped to the
// track bounds.
func (s *Server) jumpBy(deltaSeconds float64) {
	snap := s.store.Snapshot()
	if snap.TotalDuration <= 0 {
		return
	}
	target := snap.CurrentTime + deltaSeconds
	if target < 0 {
		target = 0
	}
	if target > snap.TotalDuration {
		target = snap.TotalDuration
	}
	s.store.SeekToTime(target)
}

// pushState sends current state to a client.
func (s *Server) pushState(client *socket.Socket) {
	client.Emit("pushState", s.store.Snapshot())
}

// pushQueue sends the current queue to a client.
func (s *Server) pushQueue(client *socket.Socket) {
	client.Emit("pushQueue", s.store.Queue())
}

// pushLibrary sends playlists and imported tracks to a client.
func (s *Server) pushLibrary(client *socket.Socket) {
	client.Emit("pushPlaylists", s.store.Playlists())
	client.Emit("pushUserTracks", s.store.UserTracks())
}

// BroadcastState sends state to all connected clients.
func (s *Server) BroadcastState() {
	snap := s.store.Snapshot()
	s.io.Emit("pushState", snap)

	if log.Debug().Enabled() {
		data, _ := json.Marshal(snap)
		s.mu.RLock()
		clientCount := len(s.clients)
		s.mu.RUnlock()
		log.Debug().RawJSON("state", data).Int("clients", clientCount).Msg("Broadcast state")
	}
}

// BroadcastQueue sends the queue to all connected clients.
func (s *Server) BroadcastQueue() {
	s.io.Emit("pushQueue", s.store.Queue())
}

// BroadcastLibrary sends playlists and imported tracks to all clients.
func (s *Server) BroadcastLibrary() {
	s.io.Emit("pushPlaylists", s.store.Playlists())
	s.io.Emit("pushUserTracks", s.store.UserTracks())
}

// BroadcastAudioStatus sends audio output status to all clients.
func (s *Server) BroadcastAudioStatus() {
	if s.audio != nil {
		s.io.Emit("pushAudioStatus", s.audio.GetStatus())
	}
}

// ServeHTTP implements http.Handler for the Socket.io server.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.io.ServeHandler(nil).ServeHTTP(w, r)
}

// Close shuts the Socket.io server down.
func (s *Server) Close() error {
	s.debouncer.Stop()
	s.io.Close(nil)
	return nil
}

// decodeArg maps the first event argument onto v through JSON. Socket.io
// delivers payloads as untyped maps; the round trip gives us typed structs
// without hand-written field plucking.
func decodeArg(args []any, v any) bool {
	if len(args) == 0 {
		return false
	}
	data, err := json.Marshal(args[0])
	if err != nil {
		return false
	}
	return json.Unmarshal(data, v) == nil
}

// clientIP extracts the remote address of a connected socket.
func clientIP(client *socket.Socket) string {
	if h := client.Handshake(); h != nil {
		return h.Address
	}
	return ""
}
