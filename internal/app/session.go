package app

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"yearguess/internal/domain"
)

// ClientConnection represents a connected client
type ClientConnection interface {
	Send(message interface{}) error
	GetConnID() string
	Close() error
}

// Publisher receives every room-wide event after it was fanned out
type Publisher interface {
	Publish(event *domain.Event)
}

type nopPublisher struct{}

func (nopPublisher) Publish(*domain.Event) {}

// RoomInfo is a point-in-time summary of a room, readable from any goroutine
type RoomInfo struct {
	RoomID      string
	HostID      string
	Phase       domain.Phase
	PlayerCount int
	Round       int
	CreatedAt   time.Time
}

type command struct {
	fn    func() error
	reply chan error
}

// GameSession owns one room. All reads and writes of the game and of the
// member list happen on the session goroutine; callers submit closures
// through do and wait for the result.
type GameSession struct {
	game       *domain.Game
	members    map[string]ClientConnection // connID -> client
	maxPlayers int

	live      Liveness
	publisher Publisher
	clock     clockwork.Clock
	logger    zerolog.Logger

	createdAt    time.Time
	lastActivity atomic.Int64
	info         atomic.Pointer[RoomInfo]

	inbox     chan command
	done      chan struct{}
	closeOnce sync.Once
}

// NewGameSession creates a session for game and starts its goroutine. The
// host connection becomes the first member.
func NewGameSession(game *domain.Game, host ClientConnection, opts Options, logger zerolog.Logger) *GameSession {
	opts = opts.withDefaults()

	s := &GameSession{
		game:       game,
		members:    make(map[string]ClientConnection),
		maxPlayers: opts.Limits.MaxPlayersPerRoom,
		live:       opts.Liveness,
		publisher:  opts.Publisher,
		clock:      opts.Clock,
		logger:     logger.With().Str("roomId", game.RoomID).Logger(),
		createdAt:  opts.Clock.Now(),
		inbox:      make(chan command),
		done:       make(chan struct{}),
	}

	if host != nil {
		s.members[host.GetConnID()] = host
	}

	s.touch()
	s.refreshInfo()

	go s.run()

	return s
}

// GetRoomCode returns the room code
func (s *GameSession) GetRoomCode() string {
	return s.game.RoomID
}

// LastActivity returns the time of the last command handled by the room
func (s *GameSession) LastActivity() time.Time {
	return time.Unix(0, s.lastActivity.Load())
}

// Info returns the latest room summary
func (s *GameSession) Info() RoomInfo {
	return *s.info.Load()
}

// GetPlayerCount returns the number of players
func (s *GameSession) GetPlayerCount() int {
	return s.Info().PlayerCount
}

// GetPhase returns the current game phase
func (s *GameSession) GetPhase() domain.Phase {
	return s.Info().Phase
}

func (s *GameSession) touch() {
	s.lastActivity.Store(s.clock.Now().UnixNano())
}

func (s *GameSession) refreshInfo() {
	s.info.Store(&RoomInfo{
		RoomID:      s.game.RoomID,
		HostID:      s.game.HostID,
		Phase:       s.game.Phase,
		PlayerCount: len(s.game.Players),
		Round:       s.game.CurrentRound,
		CreatedAt:   s.createdAt,
	})
}

func (s *GameSession) run() {
	for {
		select {
		case <-s.done:
			return
		case cmd := <-s.inbox:
			select {
			case <-s.done:
				cmd.reply <- domain.ErrRoomNotFound
				return
			default:
			}
			cmd.reply <- s.exec(cmd.fn)
		}
	}
}

// exec runs one command. A panic is contained to the command that caused it.
func (s *GameSession) exec(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().Interface("panic", r).Msg("command panicked")
			err = fmt.Errorf("%w: %v", domain.ErrInternal, r)
		}
		s.refreshInfo()
	}()

	s.touch()
	return fn()
}

// do hands fn to the session goroutine and waits for it to finish
func (s *GameSession) do(fn func() error) error {
	select {
	case <-s.done:
		return domain.ErrRoomNotFound
	default:
	}

	reply := make(chan error, 1)

	select {
	case s.inbox <- command{fn: fn, reply: reply}:
	case <-s.done:
		return domain.ErrRoomNotFound
	}

	select {
	case err := <-reply:
		return err
	case <-s.done:
		return domain.ErrRoomNotFound
	}
}

// Subscribe adds client to the room's members and sends it the player list
func (s *GameSession) Subscribe(client ClientConnection) error {
	return s.do(func() error {
		s.members[client.GetConnID()] = client
		s.sendTo(client.GetConnID(), s.playerListEvent())
		return nil
	})
}

// Join adds the client as a player and announces the new player list
func (s *GameSession) Join(client ClientConnection, name string) (*domain.PlayerInfo, error) {
	var info domain.PlayerInfo

	err := s.do(func() error {
		player, err := s.game.AddPlayer(client.GetConnID(), name, s.maxPlayers)
		if err != nil {
			return err
		}

		s.members[client.GetConnID()] = client
		info = player.ToInfo()

		s.sendTo(client.GetConnID(), domain.NewEvent(domain.EventPlayerJoined, s.game.RoomID, &domain.JoinedPayload{
			RoomID:     s.game.RoomID,
			PlayerName: player.Name,
		}))
		s.broadcast(s.playerListEvent())

		s.logger.Debug().Str("connId", player.ID).Str("name", player.Name).Msg("player joined")
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &info, nil
}

// Leave drops connID from the room. It reports whether connID was the
// recorded host.
func (s *GameSession) Leave(connID string) (wasHost bool, err error) {
	err = s.do(func() error {
		delete(s.members, connID)
		wasHost = s.game.IsHost(connID)

		if s.game.RemovePlayer(connID) {
			s.broadcast(s.playerListEvent())
			s.logger.Debug().Str("connId", connID).Msg("player left")
		}
		return nil
	})
	return wasHost, err
}

// StartGame opens round one with startYear as the first timeline entry
func (s *GameSession) StartGame(callerID string, startYear int) error {
	return s.do(func() error {
		if err := s.authorize(callerID); err != nil {
			return err
		}

		if err := s.game.Start(startYear); err != nil {
			return err
		}

		s.broadcast(domain.NewEvent(domain.EventGameStarted, s.game.RoomID, &domain.GameStartedPayload{
			StartYear: startYear,
			Round:     s.game.CurrentRound,
		}))

		s.logger.Info().Int("startYear", startYear).Int("players", len(s.game.Players)).Msg("game started")
		return nil
	})
}

// SubmitGuess records a guess. Guesses from unknown or eliminated players or
// outside the playing phase are dropped without an error.
func (s *GameSession) SubmitGuess(playerID string, year int) error {
	return s.do(func() error {
		if err := s.game.SubmitGuess(playerID, year); err != nil {
			s.logger.Debug().Err(err).Str("connId", playerID).Msg("guess ignored")
			return nil
		}

		player := s.game.Players[playerID]

		s.sendTo(playerID, domain.NewEvent(domain.EventGuessSubmitted, s.game.RoomID, &domain.GuessSubmittedPayload{
			Year: year,
		}))
		s.sendTo(s.game.HostID, domain.NewEvent(domain.EventGuessReceived, s.game.RoomID, &domain.GuessReceivedPayload{
			PlayerID:   playerID,
			PlayerName: player.Name,
			Year:       year,
		}))
		return nil
	})
}

// SubmitAnswer resolves the round with the host's correct year
func (s *GameSession) SubmitAnswer(callerID string, correctYear int) error {
	return s.do(func() error {
		if err := s.authorize(callerID); err != nil {
			return err
		}

		summary, err := s.game.SubmitAnswer(correctYear)
		if err != nil {
			return err
		}

		var winnerName string
		if summary.Winner != "" {
			if p, ok := s.game.Players[summary.Winner]; ok {
				winnerName = p.Name
			}
		}

		s.broadcast(domain.NewEvent(domain.EventRoundResults, s.game.RoomID, &domain.RoundResultsPayload{
			CorrectYear:  summary.CorrectYear,
			Timeline:     summary.Timeline,
			Eliminated:   s.game.PlayerNames(summary.Outcome.Eliminated),
			Active:       s.game.PlayerNames(summary.Outcome.Active),
			GameEnded:    summary.GameEnded,
			Winner:       winnerName,
			GuessResults: summary.Results,
		}))

		for _, result := range summary.Results {
			s.sendTo(result.PlayerID, domain.NewEvent(domain.EventPlayerResult, s.game.RoomID, &domain.PlayerResultPayload{
				Guess:        result.Guess,
				CorrectYear:  summary.CorrectYear,
				IsEliminated: summary.IsEliminated(result.PlayerID),
				IsWinner:     summary.Winner == result.PlayerID,
			}))
		}

		s.logger.Info().
			Int("round", s.game.CurrentRound).
			Int("correctYear", correctYear).
			Int("eliminated", len(summary.Outcome.Eliminated)).
			Bool("gameEnded", summary.GameEnded).
			Msg("round resolved")
		return nil
	})
}

// NextRound opens the next round
func (s *GameSession) NextRound(callerID string) error {
	return s.do(func() error {
		if err := s.authorize(callerID); err != nil {
			return err
		}

		if err := s.game.NextRound(); err != nil {
			return err
		}

		s.broadcast(domain.NewEvent(domain.EventNextRound, s.game.RoomID, &domain.NextRoundPayload{
			Round:    s.game.CurrentRound,
			Timeline: append([]int(nil), s.game.Timeline...),
		}))
		return nil
	})
}

// Reset returns the room to the lobby
func (s *GameSession) Reset(callerID string, keepPlayers bool) error {
	return s.do(func() error {
		if err := s.authorize(callerID); err != nil {
			return err
		}

		s.game.Reset(keepPlayers)

		s.broadcast(domain.NewEvent(domain.EventGameReset, s.game.RoomID, &domain.ResetPayload{
			Players: s.game.GetPlayerInfoList(),
		}))

		s.logger.Info().Bool("keepPlayers", keepPlayers).Msg("game reset")
		return nil
	})
}

// Snapshot returns a copy of the game state for read-only use
func (s *GameSession) Snapshot() (*domain.Game, error) {
	var snapshot *domain.Game

	err := s.do(func() error {
		g := *s.game
		g.Players = make(map[string]*domain.Player, len(s.game.Players))
		for id, p := range s.game.Players {
			cp := *p
			g.Players[id] = &cp
		}
		g.Timeline = append([]int(nil), s.game.Timeline...)
		g.Round = domain.NewRoundState()
		snapshot = &g
		return nil
	})

	return snapshot, err
}

// authorize checks host authority for callerID and hands it over on
// reconnection. Must run on the session goroutine.
func (s *GameSession) authorize(callerID string) error {
	_, isMember := s.members[callerID]

	ok, takeover := authorizeHost(s.game.HostID, callerID, isMember, s.live)
	if !ok {
		return domain.ErrNotHost
	}

	if takeover {
		previous := s.game.HostID
		s.game.HostID = callerID

		s.logger.Info().Str("previousHost", previous).Str("connId", callerID).Msg("host reassigned")
		s.broadcast(domain.NewEvent(domain.EventHostChanged, s.game.RoomID, &domain.HostChangedPayload{
			HostID: callerID,
		}))
	}

	return nil
}

func (s *GameSession) playerListEvent() *domain.Event {
	return domain.NewEvent(domain.EventPlayerList, s.game.RoomID, &domain.PlayerListPayload{
		Players: s.game.GetPlayerInfoList(),
	})
}

// sendTo delivers an event to a single member, if present
func (s *GameSession) sendTo(connID string, event *domain.Event) {
	client, ok := s.members[connID]
	if !ok {
		return
	}
	s.stamp(event)
	if err := client.Send(event); err != nil {
		s.logger.Debug().Err(err).Str("connId", connID).Msg("failed to send to client")
	}
}

// broadcast sends an event to every member and mirrors it to the publisher
func (s *GameSession) broadcast(event *domain.Event) {
	s.stamp(event)
	for connID, client := range s.members {
		if err := client.Send(event); err != nil {
			s.logger.Debug().Err(err).Str("connId", connID).Msg("failed to send to client")
		}
	}
	s.publisher.Publish(event)
}

// stamp sets the event time from the session clock
func (s *GameSession) stamp(event *domain.Event) {
	event.Timestamp = s.clock.Now().UTC()
}

// Close stops the session goroutine. Member connections stay open since they
// may belong to other rooms.
func (s *GameSession) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
}

// Done is closed once the session has stopped
func (s *GameSession) Done() <-chan struct{} {
	return s.done
}
