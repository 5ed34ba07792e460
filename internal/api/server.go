// Package api exposes the agent over HTTP: text command execution, the action
// catalog, a websocket status stream, Spotify OAuth callbacks, Prometheus
// metrics, and health probes.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/uberdiz/saint/internal/command"
	"github.com/uberdiz/saint/internal/health"
	"github.com/uberdiz/saint/internal/observe"
	"github.com/uberdiz/saint/internal/spotify"
)

// maxExecuteBody bounds the /v1/execute request body.
const maxExecuteBody = 16 << 10

// Executor dispatches one utterance. Implemented by [command.Dispatcher].
type Executor interface {
	Execute(ctx context.Context, text string) command.Result
}

// Server is the HTTP surface of the agent.
type Server struct {
	log      *slog.Logger
	addr     string
	exec     Executor
	registry *command.Registry
	spotify  *spotify.Client
	hub      *Hub
	metrics  *observe.Metrics
	checkers []health.Checker

	srv *http.Server
}

// ServerOption is a functional option for configuring a Server.
type ServerOption func(*Server)

// WithServerLogger attaches a logger. Default is slog.Default().
func WithServerLogger(log *slog.Logger) ServerOption {
	return func(s *Server) { s.log = log }
}

// WithSpotifyClient enables the /spotify OAuth routes.
func WithSpotifyClient(c *spotify.Client) ServerOption {
	return func(s *Server) { s.spotify = c }
}

// WithMetrics overrides the metrics instance. Default is
// [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) ServerOption {
	return func(s *Server) { s.metrics = m }
}

// WithHealthCheckers adds readiness checks evaluated on /readyz.
func WithHealthCheckers(checkers ...health.Checker) ServerOption {
	return func(s *Server) { s.checkers = append(s.checkers, checkers...) }
}

// NewServer constructs a Server listening on addr once Run is called.
func NewServer(addr string, exec Executor, registry *command.Registry, opts ...ServerOption) *Server {
	s := &Server{
		log:      slog.Default(),
		addr:     addr,
		exec:     exec,
		registry: registry,
	}
	for _, o := range opts {
		o(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	s.hub = NewHub(s.log)
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Hub returns the websocket event hub so the voice pipeline can broadcast
// state changes through it.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Handler returns the root handler chain without starting a listener.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// routes builds the full handler chain.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/execute", s.handleExecute)
	mux.HandleFunc("GET /v1/actions", s.handleActions)
	mux.Handle("GET /v1/events", s.hub)
	mux.Handle("GET /metrics", promhttp.Handler())

	if s.spotify != nil {
		mux.HandleFunc("GET /spotify/login", s.handleSpotifyLogin)
		mux.HandleFunc("GET /spotify/callback", s.handleSpotifyCallback)
	}

	health.New(s.checkers...).Register(mux)

	return observe.Middleware(s.metrics)(mux)
}

// executeRequest is the JSON body of POST /v1/execute.
type executeRequest struct {
	Text string `json:"text"`
}

// handleExecute runs one utterance through the dispatcher and returns the
// full [command.Result]. The result is also broadcast on the event stream.
func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	var req executeRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxExecuteBody))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	start := time.Now()
	res := s.exec.Execute(r.Context(), req.Text)
	s.metrics.DispatchDuration.Record(r.Context(), time.Since(start).Seconds())
	s.metrics.RecordAction(r.Context(), string(res.Action), string(res.Kind))

	s.hub.Broadcast(Event{Type: "result", Result: &res})

	writeJSON(w, http.StatusOK, res)
}

// handleActions returns the full action catalog, whitelisted or not.
func (s *Server) handleActions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.registry.All())
}

// handleSpotifyLogin redirects the browser to the Spotify consent page.
func (s *Server) handleSpotifyLogin(w http.ResponseWriter, r *http.Request) {
	authURL, err := s.spotify.AuthURL()
	if err != nil {
		if errors.Is(err, spotify.ErrNotConfigured) {
			writeError(w, http.StatusConflict, "spotify credentials are not configured")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	http.Redirect(w, r, authURL, http.StatusFound)
}

// handleSpotifyCallback exchanges the authorization code delivered by the
// Spotify consent redirect for a user token.
func (s *Server) handleSpotifyCallback(w http.ResponseWriter, r *http.Request) {
	if errMsg := r.URL.Query().Get("error"); errMsg != "" {
		writeError(w, http.StatusBadRequest, "spotify authorization denied: "+errMsg)
		return
	}
	code := r.URL.Query().Get("code")
	if code == "" {
		writeError(w, http.StatusBadRequest, "missing code parameter")
		return
	}

	if err := s.spotify.Authorize(r.Context(), code); err != nil {
		s.log.Error("spotify authorization failed", "error", err)
		writeError(w, http.StatusBadGateway, "token exchange failed")
		return
	}

	s.log.Info("spotify account linked")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, "<html><body><p>Spotify linked. You can close this tab.</p></body></html>")
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("api server listening", "addr", s.addr)
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.hub.Close()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("api: shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("api: serve: %w", err)
	}
}

// writeJSON encodes v as JSON with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error":"encoding failed"}`, http.StatusInternalServerError)
	}
}

// writeError writes a JSON error body.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
