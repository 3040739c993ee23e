package quiz

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"yearguess/internal/app"
	"yearguess/internal/domain"
)

const (
	// DefaultTTL is how long a quiz game lives after creation
	DefaultTTL = 24 * time.Hour

	// DefaultSweepInterval is how often expired quiz games are removed
	DefaultSweepInterval = time.Hour

	maxPinAttempts = 20
)

const (
	EventHostJoined     domain.EventType = "quiz:host-joined"
	EventPlayerJoined   domain.EventType = "quiz:player-joined"
	EventPlayerList     domain.EventType = "quiz:player-list"
	EventStarted        domain.EventType = "quiz:started"
	EventQuestion       domain.EventType = "quiz:question"
	EventAnswerResult   domain.EventType = "quiz:answer-result"
	EventLeaderboard    domain.EventType = "quiz:leaderboard"
	EventPlayerAnswered domain.EventType = "quiz:player-answered"
	EventEnded          domain.EventType = "quiz:ended"
)

// HostJoinedPayload confirms host-join to the host
type HostJoinedPayload struct {
	GamePin     string `json:"gamePin"`
	PlayerCount int    `json:"playerCount"`
}

// PlayerJoinedPayload confirms player-join to the player
type PlayerJoinedPayload struct {
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
}

// PlayerListPayload lists the players of a quiz game
type PlayerListPayload struct {
	Players []PlayerInfo `json:"players"`
}

// LeaderboardPayload carries the current standings
type LeaderboardPayload struct {
	Leaderboard []LeaderboardEntry `json:"leaderboard"`
}

// PlayerAnsweredPayload tells the host how many players have answered
type PlayerAnsweredPayload struct {
	PlayerID     string `json:"playerId"`
	TotalAnswers int    `json:"totalAnswers"`
	TotalPlayers int    `json:"totalPlayers"`
}

type entry struct {
	mu      sync.Mutex
	game    *Game
	members map[string]app.ClientConnection
}

// Manager owns all quiz games
type Manager struct {
	games map[string]*entry
	mu    sync.RWMutex

	ttl    time.Duration
	live   app.Liveness
	clock  clockwork.Clock
	logger zerolog.Logger
}

// NewManager creates a quiz manager
func NewManager(ttl time.Duration, live app.Liveness, clock clockwork.Clock, logger zerolog.Logger) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Manager{
		games:  make(map[string]*entry),
		ttl:    ttl,
		live:   live,
		clock:  clock,
		logger: logger,
	}
}

// Create registers a new game for quiz and returns its PIN
func (m *Manager) Create(quiz *Quiz) (string, error) {
	if err := quiz.Validate(); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for attempts := 0; attempts < maxPinAttempts; attempts++ {
		pin, err := generatePin()
		if err != nil {
			return "", fmt.Errorf("generate pin: %w", err)
		}
		if _, exists := m.games[pin]; exists {
			continue
		}

		m.games[pin] = &entry{
			game:    NewGame(pin, quiz, m.clock.Now()),
			members: make(map[string]app.ClientConnection),
		}
		m.logger.Info().Str("gamePin", pin).Int("questions", len(quiz.Questions)).Msg("quiz created")
		return pin, nil
	}

	return "", ErrPinExhausted
}

// Exists reports whether a game with pin is live
func (m *Manager) Exists(pin string) bool {
	_, ok := m.get(pin)
	return ok
}

// Count returns the number of live games
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.games)
}

func (m *Manager) get(pin string) (*entry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.games[pin]
	return e, ok
}

// withGame runs fn with the game locked
func (m *Manager) withGame(pin string, fn func(e *entry) error) error {
	e, ok := m.get(pin)
	if !ok {
		return ErrGameNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e)
}

// HostJoin makes conn the host of the game. It succeeds when no host is
// recorded, conn already is the host, or the recorded host is gone.
func (m *Manager) HostJoin(conn app.ClientConnection, pin string) error {
	live := m.live

	return m.withGame(pin, func(e *entry) error {
		g := e.game
		connID := conn.GetConnID()

		if g.HostID != "" && g.HostID != connID {
			if live == nil || live.IsLive(g.HostID) {
				return domain.ErrNotHost
			}
			m.logger.Info().Str("gamePin", pin).Str("previousHost", g.HostID).Str("connId", connID).Msg("quiz host reassigned")
		}

		g.HostID = connID
		e.members[connID] = conn

		send(conn, m.event(EventHostJoined, &HostJoinedPayload{
			GamePin:     pin,
			PlayerCount: g.PlayerCount(),
		}), m.logger)
		return nil
	})
}

// PlayerJoin adds conn as a player while the game is waiting
func (m *Manager) PlayerJoin(conn app.ClientConnection, pin, name string) error {
	return m.withGame(pin, func(e *entry) error {
		player, err := e.game.AddPlayer(conn.GetConnID(), name)
		if err != nil {
			return err
		}

		e.members[conn.GetConnID()] = conn

		send(conn, m.event(EventPlayerJoined, &PlayerJoinedPayload{
			PlayerID:   player.ID,
			PlayerName: player.Name,
		}), m.logger)
		e.broadcast(m.event(EventPlayerList, &PlayerListPayload{Players: e.game.Players()}), m.logger)
		return nil
	})
}

// Start opens the first question (host only)
func (m *Manager) Start(connID, pin string) error {
	return m.withGame(pin, func(e *entry) error {
		if e.game.HostID != connID {
			return domain.ErrNotHost
		}

		view, err := e.game.Start()
		if err != nil {
			return err
		}

		e.broadcast(m.event(EventStarted, &view), m.logger)
		m.logger.Info().Str("gamePin", pin).Int("players", e.game.PlayerCount()).Msg("quiz started")
		return nil
	})
}

// NextQuestion shows the next question, or ends the game with the final
// leaderboard after the last one (host only)
func (m *Manager) NextQuestion(connID, pin string) error {
	return m.withGame(pin, func(e *entry) error {
		if e.game.HostID != connID {
			return domain.ErrNotHost
		}

		view, ok, err := e.game.Next()
		if err != nil {
			return err
		}

		if ok {
			e.broadcast(m.event(EventQuestion, &view), m.logger)
			return nil
		}

		e.broadcast(m.event(EventEnded, &LeaderboardPayload{
			Leaderboard: e.game.Leaderboard(),
		}), m.logger)
		m.logger.Info().Str("gamePin", pin).Msg("quiz ended")
		return nil
	})
}

// Answer scores a player's answer and publishes the updated standings
func (m *Manager) Answer(conn app.ClientConnection, pin string, questionIndex, answerIndex int, timeSpent float64) error {
	return m.withGame(pin, func(e *entry) error {
		result, err := e.game.SubmitAnswer(conn.GetConnID(), questionIndex, answerIndex, timeSpent)
		if err != nil {
			return err
		}

		send(conn, m.event(EventAnswerResult, &result), m.logger)
		e.broadcast(m.event(EventLeaderboard, &LeaderboardPayload{
			Leaderboard: e.game.Leaderboard(),
		}), m.logger)

		if host, ok := e.members[e.game.HostID]; ok {
			send(host, m.event(EventPlayerAnswered, &PlayerAnsweredPayload{
				PlayerID:     conn.GetConnID(),
				TotalAnswers: e.game.AnswerCount(questionIndex),
				TotalPlayers: e.game.PlayerCount(),
			}), m.logger)
		}
		return nil
	})
}

// Disconnect removes connID from every quiz game it belongs to
func (m *Manager) Disconnect(connID string) {
	m.mu.RLock()
	entries := make([]*entry, 0, len(m.games))
	for _, e := range m.games {
		entries = append(entries, e)
	}
	m.mu.RUnlock()

	for _, e := range entries {
		e.mu.Lock()
		delete(e.members, connID)
		if e.game.RemovePlayer(connID) {
			e.broadcast(m.event(EventPlayerList, &PlayerListPayload{Players: e.game.Players()}), m.logger)
		}
		e.mu.Unlock()
	}
}

// Sweep removes games older than the TTL and returns how many were removed
func (m *Manager) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	removed := 0
	for pin, e := range m.games {
		if now.Sub(e.game.CreatedAt) > m.ttl {
			delete(m.games, pin)
			removed++
			m.logger.Info().Str("gamePin", pin).Msg("expired quiz cleaned up")
		}
	}
	return removed
}

// Run sweeps expired games every interval until ctx is done
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}

	ticker := m.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			m.Sweep()
		}
	}
}

// event builds a quiz event stamped from the manager clock
func (m *Manager) event(eventType domain.EventType, payload interface{}) *domain.Event {
	return domain.NewEventAt(eventType, "", payload, m.clock.Now())
}

func (e *entry) broadcast(event *domain.Event, logger zerolog.Logger) {
	for _, conn := range e.members {
		send(conn, event, logger)
	}
}

func send(conn app.ClientConnection, event *domain.Event, logger zerolog.Logger) {
	if err := conn.Send(event); err != nil {
		logger.Debug().Err(err).Str("connId", conn.GetConnID()).Msg("failed to send to client")
	}
}

// generatePin returns a random six digit PIN
func generatePin() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(pinRangeWidth))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d", minPin+n.Int64()), nil
}
