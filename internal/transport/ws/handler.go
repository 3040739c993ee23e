package ws

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"yearguess/internal/app"
	"yearguess/internal/domain"
	"yearguess/internal/quiz"
	"yearguess/internal/validate"
)

// Handler upgrades HTTP requests to WebSocket connections and routes their
// commands into the hub and the quiz manager
type Handler struct {
	hub      *app.GameHub
	quiz     *quiz.Manager
	limiter  *validate.Limiter
	registry *Registry
	upgrader websocket.Upgrader
	logger   zerolog.Logger
}

// NewHandler creates a new WebSocket handler. An empty or "*" entry in
// allowedOrigins accepts any origin.
func NewHandler(hub *app.GameHub, quizzes *quiz.Manager, limiter *validate.Limiter, registry *Registry, allowedOrigins []string, logger zerolog.Logger) *Handler {
	return &Handler{
		hub:      hub,
		quiz:     quizzes,
		limiter:  limiter,
		registry: registry,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		logger: logger,
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, origin := range allowed {
		if origin == "" || origin == "*" {
			return func(*http.Request) bool { return true }
		}
		set[origin] = true
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set[origin]
	}
}

// ServeHTTP handles WebSocket upgrade requests
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	connID := uuid.New().String()
	client := NewClient(conn, h, connID, h.logger)
	h.registry.Register(client)

	h.logger.Debug().Str("connId", connID).Str("remote", r.RemoteAddr).Msg("websocket connected")

	client.sendEvent(domain.NewEvent(EventConnected, "", &ConnectedPayload{ConnID: connID}))

	client.Run()
}
