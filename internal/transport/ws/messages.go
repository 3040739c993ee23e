package ws

import (
	"encoding/json"

	"yearguess/internal/domain"
)

// MessageType represents the type of an inbound WebSocket command
type MessageType string

// Client → Server message types
const (
	MsgCreateGame        MessageType = "host:create-game"
	MsgRequestPlayerList MessageType = "host:request-player-list"
	MsgJoin              MessageType = "player:join"
	MsgStartGame         MessageType = "host:start-game"
	MsgSubmitGuess       MessageType = "player:submit-guess"
	MsgSubmitAnswer      MessageType = "host:submit-answer"
	MsgNextRound         MessageType = "host:next-round"
	MsgResetGame         MessageType = "host:reset-game"
	MsgQuizHostJoin      MessageType = "quiz:host-join"
	MsgQuizPlayerJoin    MessageType = "quiz:player-join"
	MsgQuizStart         MessageType = "quiz:start"
	MsgQuizNextQuestion  MessageType = "quiz:next-question"
	MsgQuizAnswer        MessageType = "quiz:answer"
	MsgPing              MessageType = "ping"
)

// Server → Client event types that only the gateway emits
const (
	EventConnected domain.EventType = "connected"
	EventPong      domain.EventType = "pong"
)

// ClientMessage represents a message from client to server
type ClientMessage struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Client message payloads

// RoomPayload addresses a room
type RoomPayload struct {
	RoomID string `json:"roomId"`
}

// JoinPayload is the payload for player:join
type JoinPayload struct {
	RoomID     string `json:"roomId"`
	PlayerName string `json:"playerName"`
}

// StartGamePayload is the payload for host:start-game
type StartGamePayload struct {
	RoomID    string `json:"roomId"`
	StartYear int    `json:"startYear"`
}

// SubmitGuessPayload is the payload for player:submit-guess
type SubmitGuessPayload struct {
	RoomID string `json:"roomId"`
	Year   int    `json:"year"`
}

// SubmitAnswerPayload is the payload for host:submit-answer
type SubmitAnswerPayload struct {
	RoomID      string `json:"roomId"`
	CorrectYear int    `json:"correctYear"`
}

// ResetGamePayload is the payload for host:reset-game
type ResetGamePayload struct {
	RoomID      string `json:"roomId"`
	KeepPlayers bool   `json:"keepPlayers"`
}

// QuizPinPayload addresses a quiz game
type QuizPinPayload struct {
	Pin string `json:"pin"`
}

// QuizJoinPayload is the payload for quiz:player-join
type QuizJoinPayload struct {
	Pin        string `json:"pin"`
	PlayerName string `json:"playerName"`
}

// QuizAnswerPayload is the payload for quiz:answer
type QuizAnswerPayload struct {
	Pin           string  `json:"pin"`
	QuestionIndex int     `json:"questionIndex"`
	AnswerIndex   int     `json:"answerIndex"`
	TimeSpent     float64 `json:"timeSpent"`
}

// Server message payloads

// ConnectedPayload tells a client its connection identity
type ConnectedPayload struct {
	ConnID string `json:"connId"`
}

// Error codes
const (
	ErrCodeInvalidMessage  = "INVALID_MESSAGE"
	ErrCodeInvalidRoomCode = "INVALID_ROOM_CODE"
	ErrCodeInvalidYear     = "INVALID_YEAR"
	ErrCodeRoomNotFound    = "ROOM_NOT_FOUND"
	ErrCodeRoomFull        = "ROOM_FULL"
	ErrCodeGameStarted     = "GAME_STARTED"
	ErrCodeNotHost         = "NOT_HOST"
	ErrCodeInvalidAction   = "INVALID_ACTION"
	ErrCodeRateLimited     = "RATE_LIMITED"
	ErrCodeTooManyRooms    = "TOO_MANY_ROOMS"
	ErrCodeInternalError   = "INTERNAL_ERROR"
)
