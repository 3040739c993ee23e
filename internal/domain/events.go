package domain

import "time"

// EventType represents the wire name of an event sent to clients
type EventType string

const (
	EventRoomCreated    EventType = "host:game-created"
	EventPlayerList     EventType = "room:player-list"
	EventPlayerJoined   EventType = "player:joined"
	EventJoinError      EventType = "player:join-error"
	EventGameStarted    EventType = "game:started"
	EventStartGameError EventType = "host:start-game-error"
	EventGuessSubmitted EventType = "player:guess-submitted"
	EventGuessReceived  EventType = "host:guess-received"
	EventRoundResults   EventType = "game:round-results"
	EventPlayerResult   EventType = "player:round-result"
	EventNextRound      EventType = "game:next-round"
	EventGameReset      EventType = "game:reset"
	EventHostChanged    EventType = "room:host-changed"
	EventError          EventType = "error"
)

// Event is the envelope for everything the server pushes to a client
type Event struct {
	Type      EventType   `json:"type"`
	RoomID    string      `json:"roomId,omitempty"`
	Payload   interface{} `json:"payload,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// NewEvent creates a new event stamped with the current time
func NewEvent(eventType EventType, roomID string, payload interface{}) *Event {
	return NewEventAt(eventType, roomID, payload, time.Now())
}

// NewEventAt creates a new event stamped with at
func NewEventAt(eventType EventType, roomID string, payload interface{}, at time.Time) *Event {
	return &Event{
		Type:      eventType,
		RoomID:    roomID,
		Payload:   payload,
		Timestamp: at.UTC(),
	}
}

// Payload types for different events

// RoomCreatedPayload is sent to the host after create-room
type RoomCreatedPayload struct {
	RoomID string `json:"roomId"`
}

// PlayerListPayload is sent whenever membership changes
type PlayerListPayload struct {
	Players []PlayerInfo `json:"players"`
}

// JoinedPayload confirms a join to the joining player
type JoinedPayload struct {
	RoomID     string `json:"roomId"`
	PlayerName string `json:"playerName"`
}

// GameStartedPayload is broadcast when the host starts the game
type GameStartedPayload struct {
	StartYear int `json:"startYear"`
	Round     int `json:"round"`
}

// GuessSubmittedPayload acknowledges a guess to the player
type GuessSubmittedPayload struct {
	Year int `json:"year"`
}

// GuessReceivedPayload tells the host a guess came in
type GuessReceivedPayload struct {
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
	Year       int    `json:"year"`
}

// GuessResult is one player's outcome in a round
type GuessResult struct {
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
	Guess      *int   `json:"guess,omitempty"`
	IsCorrect  bool   `json:"isCorrect"`
}

// RoundResultsPayload is broadcast after the host submits the answer
type RoundResultsPayload struct {
	CorrectYear  int           `json:"correctYear"`
	Timeline     []int         `json:"timeline"`
	Eliminated   []string      `json:"eliminated"`
	Active       []string      `json:"active"`
	GameEnded    bool          `json:"gameEnded"`
	Winner       string        `json:"winner,omitempty"`
	GuessResults []GuessResult `json:"guessResults"`
}

// PlayerResultPayload is sent to each player after the host submits the answer
type PlayerResultPayload struct {
	Guess        *int `json:"guess,omitempty"`
	CorrectYear  int  `json:"correctYear"`
	IsEliminated bool `json:"isEliminated"`
	IsWinner     bool `json:"isWinner"`
}

// NextRoundPayload is broadcast when a new round opens
type NextRoundPayload struct {
	Round    int   `json:"round"`
	Timeline []int `json:"timeline"`
}

// ResetPayload is broadcast when the host resets the room
type ResetPayload struct {
	Players []PlayerInfo `json:"players"`
}

// HostChangedPayload is broadcast when host authority moves to a new connection
type HostChangedPayload struct {
	HostID string `json:"hostId"`
}

// ErrorPayload is sent when an error occurs
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
