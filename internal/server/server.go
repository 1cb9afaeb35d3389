// ABOUTME: Browser chat surface: HTTP routes for the WebSocket, audio files and health checks
// ABOUTME: Each WebSocket connection owns one session for its lifetime
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/harper/obala/internal/models"
	"github.com/harper/obala/internal/session"
)

// Server serves the browser chat
type Server struct {
	manager  *session.Manager
	config   Config
	upgrader websocket.Upgrader
	mux      *http.ServeMux
	logger   zerolog.Logger

	mu       sync.Mutex
	clients  map[*client]struct{}
	closing  bool
	handlers sync.WaitGroup
}

// New creates a server over a session manager. Zero config fields take the defaults.
func New(manager *session.Manager, cfg Config, logger zerolog.Logger) *Server {
	defaults := DefaultConfig()
	if cfg.ReadBufferSize <= 0 {
		cfg.ReadBufferSize = defaults.ReadBufferSize
	}
	if cfg.WriteBufferSize <= 0 {
		cfg.WriteBufferSize = defaults.WriteBufferSize
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = defaults.MaxMessageSize
	}

	s := &Server{
		manager: manager,
		config:  cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  cfg.ReadBufferSize,
			WriteBufferSize: cfg.WriteBufferSize,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		mux:     http.NewServeMux(),
		clients: make(map[*client]struct{}),
		logger:  logger,
	}
	s.mux.HandleFunc("GET /ws", s.handleWS)
	s.mux.HandleFunc("GET /audio/{session}/{turn}", s.handleAudio)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	return s
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.mux
}

// ListenAndServe listens on addr and serves until ctx is cancelled
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled. On shutdown it stops accepting,
// closes every live WebSocket, waits for their handlers, then closes every
// remaining session.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	server := &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	s.logger.Info().Str("addr", ln.Addr().String()).Msg("chat server listening")
	err := server.Serve(ln)

	s.closeClients()
	s.handlers.Wait()
	s.manager.CloseAll()

	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// track registers a connected client; it refuses once shutdown has begun
func (s *Server) track(c *client) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return false
	}
	s.clients[c] = struct{}{}
	s.handlers.Add(1)
	return true
}

func (s *Server) untrack(c *client) {
	s.mu.Lock()
	delete(s.clients, c)
	s.mu.Unlock()
	s.handlers.Done()
}

// closeClients cancels in-flight work on every connection and closes its socket
func (s *Server) closeClients() {
	s.mu.Lock()
	s.closing = true
	clients := make([]*client, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
	if len(clients) > 0 {
		s.logger.Info().Int("clients", len(clients)).Msg("closed live connections")
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	conn.SetReadLimit(s.config.MaxMessageSize)

	sess := s.manager.Create()
	c := newClient(context.Background(), conn, sess, s.logger)
	if !s.track(c) {
		c.close()
		_ = s.manager.Close(sess.ID())
		return
	}
	defer s.untrack(c)
	s.logger.Info().Str("session", sess.ID()).Str("remote", conn.RemoteAddr().String()).Msg("client connected")

	c.run()

	if err := s.manager.Close(sess.ID()); err != nil {
		s.logger.Debug().Err(err).Str("session", sess.ID()).Msg("session already closed")
	}
	s.logger.Info().Str("session", sess.ID()).Msg("client disconnected")
}

// handleAudio serves a turn's audio, re-checking that the file still exists
func (s *Server) handleAudio(w http.ResponseWriter, r *http.Request) {
	sess, err := s.manager.Get(r.PathValue("session"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	turn, ok := sess.Turn(r.PathValue("turn"))
	if !ok || !sess.AudioExists(turn.AudioRef) {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, turn.AudioRef)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// audioURL is the route serving a turn's audio
func audioURL(sessionID, turnID string) string {
	return "/audio/" + url.PathEscape(sessionID) + "/" + url.PathEscape(turnID)
}

// view renders a turn, linking its audio only if the file is still there
func view(sess *session.Session, t models.Turn) TurnView {
	v := TurnView{Turn: t}
	if t.HasAudio() && sess.AudioExists(t.AudioRef) {
		v.AudioURL = audioURL(sess.ID(), t.TurnID)
	}
	// Local paths stay server-side.
	v.AudioRef = ""
	return v
}
