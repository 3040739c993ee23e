package app

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"yearguess/internal/domain"
	"yearguess/internal/validate"
)

const (
	// DefaultRoomCodeLength is the default length for room codes
	DefaultRoomCodeLength = validate.RoomCodeLength

	// DefaultIdleTimeout is how long a room may go without activity
	DefaultIdleTimeout = 30 * time.Minute

	// DefaultSweepInterval is how often idle rooms are looked for
	DefaultSweepInterval = 10 * time.Minute

	maxCodeAttempts = 10
)

// RoomCodeChars are characters used for room codes
const RoomCodeChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Limits bounds room membership, ownership and lifetime
type Limits struct {
	MaxPlayersPerRoom int
	MaxRoomsPerHost   int
	IdleTimeout       time.Duration
	SweepInterval     time.Duration
}

// Options configures a GameHub and the sessions it creates
type Options struct {
	Limits    Limits
	Liveness  Liveness
	Publisher Publisher
	Clock     clockwork.Clock
}

func (o Options) withDefaults() Options {
	if o.Limits.MaxPlayersPerRoom <= 0 {
		o.Limits.MaxPlayersPerRoom = validate.MaxPlayersPerRoom
	}
	if o.Limits.MaxRoomsPerHost <= 0 {
		o.Limits.MaxRoomsPerHost = validate.MaxRoomsPerHost
	}
	if o.Limits.IdleTimeout <= 0 {
		o.Limits.IdleTimeout = DefaultIdleTimeout
	}
	if o.Limits.SweepInterval <= 0 {
		o.Limits.SweepInterval = DefaultSweepInterval
	}
	if o.Publisher == nil {
		o.Publisher = nopPublisher{}
	}
	if o.Clock == nil {
		o.Clock = clockwork.NewRealClock()
	}
	return o
}

// RoomStore owns the set of live rooms
type RoomStore interface {
	CreateRoom(host ClientConnection) (*GameSession, error)
	GetSession(roomCode string) (*GameSession, error)
	AddPlayer(roomCode string, client ClientConnection, name string) error
	RemovePlayer(roomCode, connID string)
	DeleteSession(roomCode string)
}

var _ RoomStore = (*GameHub)(nil)

// GameHub manages all active game sessions
type GameHub struct {
	sessions       map[string]*GameSession
	mu             sync.RWMutex
	roomCodeLength int
	opts           Options
	logger         zerolog.Logger
	done           chan struct{}
	closeOnce      sync.Once
}

// NewGameHub creates a new game hub and starts the idle room sweeper
func NewGameHub(opts Options, logger zerolog.Logger) *GameHub {
	hub := &GameHub{
		sessions:       make(map[string]*GameSession),
		roomCodeLength: DefaultRoomCodeLength,
		opts:           opts.withDefaults(),
		logger:         logger,
		done:           make(chan struct{}),
	}

	go hub.cleanupLoop()

	return hub
}

// CreateRoom creates a new room hosted by host
func (h *GameHub) CreateRoom(host ClientConnection) (*GameSession, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.roomsHostedByLocked(host.GetConnID()) >= h.opts.Limits.MaxRoomsPerHost {
		return nil, domain.ErrTooManyRooms
	}

	var roomCode string
	for attempts := 0; attempts < maxCodeAttempts; attempts++ {
		candidate, err := h.generateRoomCode()
		if err != nil {
			return nil, fmt.Errorf("generate room code: %w", err)
		}
		if _, exists := h.sessions[candidate]; !exists {
			roomCode = candidate
			break
		}
	}

	if roomCode == "" {
		return nil, domain.ErrRoomCodeExhausted
	}

	game := domain.NewGame(roomCode, host.GetConnID())
	session := NewGameSession(game, host, h.opts, h.logger)
	h.sessions[roomCode] = session

	h.logger.Info().Str("roomId", roomCode).Str("connId", host.GetConnID()).Msg("room created")

	return session, nil
}

// GetSession returns a game session by room code and counts as activity
func (h *GameHub) GetSession(roomCode string) (*GameSession, error) {
	h.mu.RLock()
	session, ok := h.sessions[validate.NormalizeRoomCode(roomCode)]
	h.mu.RUnlock()

	if !ok {
		return nil, domain.ErrRoomNotFound
	}

	session.touch()
	return session, nil
}

// PeekSession returns a session without counting as activity
func (h *GameHub) PeekSession(roomCode string) (*GameSession, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	session, ok := h.sessions[validate.NormalizeRoomCode(roomCode)]
	return session, ok
}

// AddPlayer joins client to a room under the given display name
func (h *GameHub) AddPlayer(roomCode string, client ClientConnection, name string) error {
	session, err := h.GetSession(roomCode)
	if err != nil {
		return err
	}
	_, err = session.Join(client, name)
	return err
}

// RemovePlayer drops a connection from a room. Unknown rooms and players are
// ignored.
func (h *GameHub) RemovePlayer(roomCode, connID string) {
	session, err := h.GetSession(roomCode)
	if err != nil {
		return
	}
	if _, err := session.Leave(connID); err != nil {
		h.logger.Debug().Err(err).Str("roomId", roomCode).Msg("remove player failed")
	}
}

// Disconnect removes connID from each of the given rooms
func (h *GameHub) Disconnect(connID string, roomCodes []string) {
	for _, roomCode := range roomCodes {
		session, ok := h.PeekSession(roomCode)
		if !ok {
			continue
		}

		wasHost, err := session.Leave(connID)
		if err != nil {
			continue
		}
		if wasHost {
			h.logger.Info().Str("roomId", roomCode).Str("connId", connID).Msg("host disconnected")
		}
	}
}

// DeleteSession removes a game session
func (h *GameHub) DeleteSession(roomCode string) {
	roomCode = validate.NormalizeRoomCode(roomCode)

	h.mu.Lock()
	defer h.mu.Unlock()

	if session, ok := h.sessions[roomCode]; ok {
		session.Close()
		delete(h.sessions, roomCode)
		h.logger.Info().Str("roomId", roomCode).Msg("room deleted")
	}
}

// RoomsHostedBy returns how many live rooms connID currently hosts
func (h *GameHub) RoomsHostedBy(connID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.roomsHostedByLocked(connID)
}

// roomsHostedByLocked counts rooms whose current host is connID. Host
// takeover moves ownership with it. Caller must hold h.mu.
func (h *GameHub) roomsHostedByLocked(connID string) int {
	count := 0
	for _, session := range h.sessions {
		if session.Info().HostID == connID {
			count++
		}
	}
	return count
}

// GetSessionCount returns the number of active sessions
func (h *GameHub) GetSessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// GetTotalPlayerCount returns the total number of players across all sessions
func (h *GameHub) GetTotalPlayerCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	total := 0
	for _, session := range h.sessions {
		total += session.GetPlayerCount()
	}
	return total
}

// Close shuts down the hub and all sessions
func (h *GameHub) Close() {
	h.closeOnce.Do(func() {
		close(h.done)
	})

	h.mu.Lock()
	defer h.mu.Unlock()

	for _, session := range h.sessions {
		session.Close()
	}
	h.sessions = make(map[string]*GameSession)
}

// generateRoomCode generates a random room code
func (h *GameHub) generateRoomCode() (string, error) {
	alphabet := big.NewInt(int64(len(RoomCodeChars)))

	code := make([]byte, h.roomCodeLength)
	for i := range code {
		n, err := rand.Int(rand.Reader, alphabet)
		if err != nil {
			return "", err
		}
		code[i] = RoomCodeChars[n.Int64()]
	}

	return string(code), nil
}

// cleanupLoop periodically removes idle rooms
func (h *GameHub) cleanupLoop() {
	ticker := h.opts.Clock.NewTicker(h.opts.Limits.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.done:
			return
		case <-ticker.Chan():
			h.Sweep()
		}
	}
}

// Sweep deletes rooms idle for longer than the idle timeout and returns how
// many were removed
func (h *GameHub) Sweep() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := h.opts.Clock.Now()
	stale := make([]string, 0)

	for roomCode, session := range h.sessions {
		if now.Sub(session.LastActivity()) > h.opts.Limits.IdleTimeout {
			stale = append(stale, roomCode)
		}
	}

	for _, roomCode := range stale {
		if session, ok := h.sessions[roomCode]; ok {
			session.Close()
			delete(h.sessions, roomCode)
			h.logger.Info().Str("roomId", roomCode).Msg("idle room cleaned up")
		}
	}

	return len(stale)
}
