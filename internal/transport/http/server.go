package http

import (
	"bufio"
	"context"
	"net"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"yearguess/internal/app"
	"yearguess/internal/config"
	"yearguess/internal/quiz"
)

// maxBodyBytes caps every request body
const maxBodyBytes = 10 << 10

// Server represents the HTTP server
type Server struct {
	server *http.Server
	hub    *app.GameHub
	quiz   *quiz.Manager
	config *config.Config
	logger zerolog.Logger
}

// NewServer creates a new HTTP server. ws serves the WebSocket endpoint.
func NewServer(cfg *config.Config, hub *app.GameHub, quizzes *quiz.Manager, ws http.Handler, logger zerolog.Logger) *Server {
	s := &Server{
		hub:    hub,
		quiz:   quizzes,
		config: cfg,
		logger: logger,
	}

	s.server = &http.Server{
		Addr:              cfg.GetAddr(),
		Handler:           s.Handler(ws),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return s
}

// Handler builds the routed handler with all middleware applied
func (s *Server) Handler(ws http.Handler) http.Handler {
	router := httprouter.New()
	s.setupRoutes(router, ws)

	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
		},
		AllowedOrigins: s.config.Server.CORSOrigins,
		AllowedHeaders: []string{"Content-Type"},
	})

	return s.middleware(c.Handler(router))
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes(router *httprouter.Router, ws http.Handler) {
	router.GET("/api/health", s.handleHealth)
	router.GET("/api/stats", s.handleStats)
	router.GET("/api/rooms/:roomCode", s.handleGetRoom)
	router.GET("/api/rooms/:roomCode/qr", s.handleRoomQR)
	router.POST("/api/quiz", s.handleCreateQuiz)
	router.GET("/api/quiz/:pin", s.handleGetQuiz)

	router.Handler(http.MethodGet, "/ws", ws)

	router.PanicHandler = func(w http.ResponseWriter, r *http.Request, v any) {
		s.logger.Error().Interface("panic", v).Str("path", r.URL.Path).Msg("handler panic")
		s.sendError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
	}
}

// middleware wraps the handler with security headers, body limits and
// request logging
func (s *Server) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		securityHeaders(w)
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		}

		// Wrap response writer to capture status code
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		event := s.logger.Debug()
		if s.config.IsDevelopment() {
			event = s.logger.Info()
		}
		event.
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", wrapped.statusCode).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

func securityHeaders(w http.ResponseWriter) {
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("X-Frame-Options", "DENY")
	w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
	w.Header().Set("Cross-Origin-Resource-Policy", "same-site")
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("server starting")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("server shutting down")
	return s.server.Shutdown(ctx)
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Hijack implements http.Hijacker for WebSocket support
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if hijacker, ok := rw.ResponseWriter.(http.Hijacker); ok {
		return hijacker.Hijack()
	}
	return nil, nil, http.ErrNotSupported
}

// Flush implements http.Flusher
func (rw *responseWriter) Flush() {
	if flusher, ok := rw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}
