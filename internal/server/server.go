package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/voyagen/darteve/internal/config"
	"github.com/voyagen/darteve/internal/player"
	"github.com/voyagen/darteve/internal/radio"
	"github.com/voyagen/darteve/internal/service"
	"github.com/voyagen/darteve/internal/tracing"
)

// Deps are the components the API serves.
type Deps struct {
	Catalog *service.Catalog
	Players *player.Manager
	Radio   *radio.Directory
	// Spec is the validated API description; nil disables /api/docs/openapi.json.
	Spec *openapi3.T
}

// Server holds dependencies for the HTTP API.
type Server struct {
	cfg     *config.Config
	catalog *service.Catalog
	players *player.Manager
	radio   *radio.Directory
	spec    *openapi3.T
	mux     *http.ServeMux
	now     func() time.Time
}

// New creates a Server and registers routes.
func New(cfg *config.Config, deps Deps) *Server {
	srv := &Server{
		cfg:     cfg,
		catalog: deps.Catalog,
		players: deps.Players,
		radio:   deps.Radio,
		spec:    deps.Spec,
		mux:     http.NewServeMux(),
		now:     time.Now,
	}
	srv.routes()
	return srv
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /api/health", s.handleHealth)
	s.mux.Handle("GET /metrics", promhttp.Handler())

	// Catalog
	s.mux.HandleFunc("GET /api/categories", s.handleListCategories)
	s.mux.HandleFunc("POST /api/categories", s.handleAddCategory)
	s.mux.HandleFunc("DELETE /api/categories/{id}", s.handleDeleteCategory)
	s.mux.HandleFunc("GET /api/categories/{id}/channels", s.handleCategoryChannels)
	s.mux.HandleFunc("GET /api/channels/search", s.handleSearchChannels)
	s.mux.HandleFunc("GET /api/channels/{id}/related", s.handleRelatedChannels)
	s.mux.HandleFunc("GET /api/matches", s.handleListMatches)
	s.mux.HandleFunc("POST /api/refresh", s.handleRefresh)

	// Library
	s.mux.HandleFunc("GET /api/favorites", s.handleListFavorites)
	s.mux.HandleFunc("POST /api/favorites", s.handleToggleFavorite)

	// Sessions
	s.mux.HandleFunc("POST /api/sessions", s.handleOpenSession)
	s.mux.HandleFunc("GET /api/sessions/{id}", s.handleGetSession)
	s.mux.HandleFunc("DELETE /api/sessions/{id}", s.handleCloseSession)
	s.mux.HandleFunc("POST /api/sessions/{id}/retry", s.handleRetrySession)
	s.mux.HandleFunc("POST /api/sessions/{id}/mirror", s.handleSelectMirror)
	s.mux.HandleFunc("POST /api/sessions/{id}/quality", s.handleSelectQuality)
	s.mux.HandleFunc("POST /api/sessions/{id}/events", s.handleSessionEvent)
	s.mux.HandleFunc("GET /api/sessions/{id}/player", s.handlePlayerPage)
	s.mux.HandleFunc("GET /api/sessions/{id}/ws", s.handleSessionWS)

	// Radio
	s.mux.HandleFunc("GET /api/radio/stations", s.handleRadioStations)

	// Docs
	s.mux.HandleFunc("GET /api/docs", handleSwaggerUI)
	s.mux.HandleFunc("GET /api/docs/openapi.yaml", handleOpenAPISpec)
	s.mux.HandleFunc("GET /api/docs/openapi.json", s.handleOpenAPIJSON)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Handler returns the server wrapped in tracing, CORS and request logging.
func (s *Server) Handler() http.Handler {
	return tracing.Handler(withCORS(withLogging(s)), "darteve-api")
}

// ListenAndServe starts the HTTP server on the configured port.
// It blocks until the server is shut down or ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := ":" + s.cfg.ServerPort
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown on context cancellation.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if s.players != nil {
			s.players.CloseAll()
		}
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("server shutdown")
		}
	}()

	log.Info().Str("addr", addr).Msg("listening")
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("ListenAndServe: %w", err)
	}
	return nil
}

// --- handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := map[string]any{"status": "ok", "sessions": s.players.Len()}
	if t := s.catalog.LoadedAt(); !t.IsZero() {
		resp["loaded_at"] = t.UTC()
	} else {
		resp["loaded_at"] = nil
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- middleware ---

// withCORS adds CORS headers to every response and handles preflight OPTIONS requests.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Hijack lets websocket upgrades through the logging wrapper.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	w.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (w *statusWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

// withLogging wraps a handler and logs each request with method, path, status, and duration.
func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		ev := log.Info()
		switch {
		case sw.status >= 500:
			ev = log.Error()
		case sw.status >= 400:
			ev = log.Warn()
		case r.URL.Path == "/metrics" || r.URL.Path == "/api/health":
			ev = log.Debug()
		}
		ev.Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("query", r.URL.RawQuery).
			Int("status", sw.status).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

// --- helpers ---

// APIError is the standard error envelope for all error responses.
type APIError struct {
	Status int    `json:"status"`
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("writeJSON")
	}
}

func writeNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

func writeErr(w http.ResponseWriter, status int, err error) {
	if status >= 500 {
		log.Error().Err(err).Int("status", status).Msg("request failed")
	}
	writeJSON(w, status, APIError{
		Status: status,
		Error:  http.StatusText(status),
		Detail: err.Error(),
	})
}

// writeServiceErr maps domain errors to HTTP statuses.
func writeServiceErr(w http.ResponseWriter, err error) {
	writeErr(w, statusFor(err), err)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrUnknownCategory),
		errors.Is(err, player.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidCategory),
		errors.Is(err, service.ErrInvalidChannel),
		errors.Is(err, player.ErrBadIndex):
		return http.StatusBadRequest
	case errors.Is(err, player.ErrSessionClosed),
		errors.Is(err, player.ErrNoStream),
		errors.Is(err, player.ErrNoPage):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return 499
	default:
		return http.StatusBadGateway
	}
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}
