package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"

	"yearguess/internal/quiz"
	"yearguess/internal/validate"
)

// qrSize is the edge length of generated QR codes in pixels
const qrSize = 320

// ErrorResponse is the body of every failed API call
type ErrorResponse struct {
	Error ErrorInfo `json:"error"`
}

// ErrorInfo contains error details
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// GetRoomResponse is the response for getting room info
type GetRoomResponse struct {
	RoomCode    string `json:"roomCode"`
	Phase       string `json:"phase"`
	PlayerCount int    `json:"playerCount"`
	Round       int    `json:"round"`
	InviteLink  string `json:"inviteLink"`
}

// CreateQuizResponse is the response for quiz creation
type CreateQuizResponse struct {
	GamePin string `json:"gamePin"`
}

// ExistsResponse is the response for checking if a quiz exists
type ExistsResponse struct {
	Exists bool `json:"exists"`
}

// HealthResponse is the response for health check
type HealthResponse struct {
	Status string `json:"status"`
}

// StatsResponse is the response for stats endpoint
type StatsResponse struct {
	ActiveRooms   int `json:"activeRooms"`
	TotalPlayers  int `json:"totalPlayers"`
	ActiveQuizzes int `json:"activeQuizzes"`
}

// handleHealth handles GET /api/health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	s.sendJSON(w, http.StatusOK, &HealthResponse{
		Status: "ok",
	})
}

// handleStats handles GET /api/stats
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	stats := &StatsResponse{
		ActiveRooms:  s.hub.GetSessionCount(),
		TotalPlayers: s.hub.GetTotalPlayerCount(),
	}
	if s.quiz != nil {
		stats.ActiveQuizzes = s.quiz.Count()
	}
	s.sendJSON(w, http.StatusOK, stats)
}

// handleGetRoom handles GET /api/rooms/:roomCode. Looking a room up does not
// count as activity.
func (s *Server) handleGetRoom(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	roomCode, ok := s.roomCode(w, ps)
	if !ok {
		return
	}

	session, ok := s.hub.PeekSession(roomCode)
	if !ok {
		s.sendError(w, http.StatusNotFound, "ROOM_NOT_FOUND", "Room not found")
		return
	}

	info := session.Info()
	s.sendJSON(w, http.StatusOK, &GetRoomResponse{
		RoomCode:    info.RoomID,
		Phase:       string(info.Phase),
		PlayerCount: info.PlayerCount,
		Round:       info.Round,
		InviteLink:  inviteLink(r, info.RoomID),
	})
}

// handleRoomQR handles GET /api/rooms/:roomCode/qr with a PNG of the invite link
func (s *Server) handleRoomQR(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	roomCode, ok := s.roomCode(w, ps)
	if !ok {
		return
	}

	if _, ok := s.hub.PeekSession(roomCode); !ok {
		s.sendError(w, http.StatusNotFound, "ROOM_NOT_FOUND", "Room not found")
		return
	}

	png, err := qrcode.Encode(inviteLink(r, roomCode), qrcode.Medium, qrSize)
	if err != nil {
		s.logger.Error().Err(err).Str("roomId", roomCode).Msg("qr generation failed")
		s.sendError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "QR generation failed")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(png)
}

// handleCreateQuiz handles POST /api/quiz with a YAML or JSON quiz document
func (s *Server) handleCreateQuiz(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if s.quiz == nil {
		s.sendError(w, http.StatusNotFound, "NOT_FOUND", "Quiz mode is disabled")
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.sendError(w, http.StatusRequestEntityTooLarge, "INVALID_MESSAGE", "Request body too large")
			return
		}
		s.sendError(w, http.StatusBadRequest, "INVALID_MESSAGE", "Could not read request body")
		return
	}

	q, err := quiz.Parse(body)
	if err != nil {
		s.sendError(w, http.StatusBadRequest, "INVALID_QUIZ", err.Error())
		return
	}

	pin, err := s.quiz.Create(q)
	if err != nil {
		s.logger.Error().Err(err).Msg("quiz creation failed")
		s.sendError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create quiz")
		return
	}

	s.sendJSON(w, http.StatusCreated, &CreateQuizResponse{
		GamePin: pin,
	})
}

// handleGetQuiz handles GET /api/quiz/:pin
func (s *Server) handleGetQuiz(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if s.quiz == nil || !s.quiz.Exists(ps.ByName("pin")) {
		s.sendError(w, http.StatusNotFound, "ROOM_NOT_FOUND", "Game not found")
		return
	}

	s.sendJSON(w, http.StatusOK, &ExistsResponse{
		Exists: true,
	})
}

// roomCode validates the :roomCode parameter, answering 400 when malformed
func (s *Server) roomCode(w http.ResponseWriter, ps httprouter.Params) (string, bool) {
	roomCode := validate.NormalizeRoomCode(ps.ByName("roomCode"))
	if !validate.RoomCode(roomCode) {
		s.sendError(w, http.StatusBadRequest, "INVALID_ROOM_CODE", "Invalid room code")
		return "", false
	}
	return roomCode, true
}

// inviteLink builds the join URL for a room, respecting TLS and
// X-Forwarded-Proto. Only http and https are taken from the header.
func inviteLink(r *http.Request, roomCode string) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	switch proto := strings.ToLower(strings.TrimSpace(r.Header.Get("X-Forwarded-Proto"))); proto {
	case "http", "https":
		scheme = proto
	}
	return scheme + "://" + r.Host + "/join/" + roomCode
}

// sendJSON writes data as a JSON response
func (s *Server) sendJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Debug().Err(err).Msg("failed to write response")
	}
}

// sendError sends an error JSON response
func (s *Server) sendError(w http.ResponseWriter, status int, code, message string) {
	s.sendJSON(w, status, &ErrorResponse{
		Error: ErrorInfo{
			Code:    code,
			Message: message,
		},
	})
}
