// Package server provides the diagnostic HTTP dashboard for winkmouse.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/ayusman/winkmouse/internal/server/api"
	"github.com/ayusman/winkmouse/internal/store"
)

// Controller is the part of the tracker the dashboard can drive.
type Controller interface {
	IsEnabled() bool
	SetEnabled(enabled bool)
}

// Config holds the server configuration.
type Config struct {
	StaticDir string
	Store     *store.Store
	Control   Controller
	Frames    *FrameHub
	Events    *EventHub
}

// Server represents the HTTP server for the dashboard.
type Server struct {
	config Config
	router chi.Router
	start  time.Time
	http   *http.Server
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		router: chi.NewRouter(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	r := s.router
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		if s.config.Control != nil {
			r.Post("/toggle", s.handleToggle)
		}

		if s.config.Store != nil {
			api.NewHistoryHandler(s.config.Store).Register(r)
		}

		if s.config.Frames != nil {
			r.Get("/stream", NewStreamHandler(s.config.Frames).ServeHTTP)
		}

		if s.config.Events != nil {
			r.Get("/events", s.config.Events.ServeHTTP)
		}
	})

	// Serve static files if StaticDir is configured
	if s.config.StaticDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(s.config.StaticDir)))
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

type healthResponse struct {
	Status  string `json:"status"`
	Uptime  string `json:"uptime"`
	Enabled *bool  `json:"enabled,omitempty"`
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status: "ok",
		Uptime: time.Since(s.start).Round(time.Second).String(),
	}
	if s.config.Control != nil {
		enabled := s.config.Control.IsEnabled()
		resp.Enabled = &enabled
	}
	api.WriteJSON(w, http.StatusOK, resp)
}

type toggleResponse struct {
	Enabled bool `json:"enabled"`
}

// handleToggle handles POST /api/toggle and flips click evaluation.
func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	enabled := !s.config.Control.IsEnabled()
	s.config.Control.SetEnabled(enabled)
	api.WriteJSON(w, http.StatusOK, toggleResponse{Enabled: enabled})
}

// ListenAndServe starts the HTTP server on addr and blocks until ctx is
// cancelled or the listener fails.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
		// Streaming handlers end with ctx instead of holding up Shutdown.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("Dashboard listening")
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if s.config.Events != nil {
			s.config.Events.Close()
		}
		return s.http.Shutdown(shutdownCtx)
	}
}

// requestLogger logs each request through zerolog.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Msg("HTTP request")
	})
}
