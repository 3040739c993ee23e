package ws

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"yearguess/internal/domain"
	"yearguess/internal/quiz"
	"yearguess/internal/validate"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 4096

	// Size of the send channel buffer
	sendBufferSize = 256
)

// Client represents a WebSocket client connection
type Client struct {
	conn    *websocket.Conn
	handler *Handler
	connID  string
	send    chan []byte
	done    chan struct{}
	logger  zerolog.Logger
	mu      sync.Mutex
	closed  bool

	// rooms this connection has joined, hosted or watched. Only touched by
	// the read pump.
	rooms map[string]struct{}
}

// NewClient creates a new WebSocket client
func NewClient(conn *websocket.Conn, handler *Handler, connID string, logger zerolog.Logger) *Client {
	return &Client{
		conn:    conn,
		handler: handler,
		connID:  connID,
		send:    make(chan []byte, sendBufferSize),
		done:    make(chan struct{}),
		logger:  logger.With().Str("connId", connID).Logger(),
		rooms:   make(map[string]struct{}),
	}
}

// GetConnID returns the connection identity
func (c *Client) GetConnID() string {
	return c.connID
}

// Send implements app.ClientConnection interface
func (c *Client) Send(message interface{}) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	select {
	case c.send <- data:
		return nil
	default:
		// Buffer full, message dropped
		c.logger.Warn().Msg("send buffer full, message dropped")
		return nil
	}
}

// Close implements app.ClientConnection interface
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	c.closed = true
	close(c.done)
	return c.conn.Close()
}

// Run starts the client's read and write pumps
func (c *Client) Run() {
	go c.writePump()
	c.readPump()
}

// readPump pumps messages from the WebSocket connection
func (c *Client) readPump() {
	defer c.disconnect()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Debug().Err(err).Msg("websocket read error")
			}
			break
		}

		c.handleMessage(message)
	}
}

// disconnect releases everything the connection holds. The registry goes
// first so the connection is no longer live when rooms react to it.
func (c *Client) disconnect() {
	h := c.handler

	h.registry.Unregister(c.connID)

	rooms := make([]string, 0, len(c.rooms))
	for roomID := range c.rooms {
		rooms = append(rooms, roomID)
	}
	h.hub.Disconnect(c.connID, rooms)

	if h.quiz != nil {
		h.quiz.Disconnect(c.connID)
	}
	h.limiter.Forget(c.connID)

	c.Close()
	c.logger.Debug().Int("rooms", len(rooms)).Msg("websocket disconnected")
}

// writePump pumps messages from the send channel to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			return
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage processes an incoming message from the client
func (c *Client) handleMessage(data []byte) {
	if !c.handler.limiter.Allow(c.connID) {
		c.sendError(domain.EventError, ErrCodeRateLimited, "Too many requests. Please wait.")
		return
	}

	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.sendError(domain.EventError, ErrCodeInvalidMessage, "Invalid message format")
		return
	}

	switch msg.Type {
	case MsgCreateGame:
		c.handleCreateGame()
	case MsgRequestPlayerList:
		c.handleRequestPlayerList(msg.Payload)
	case MsgJoin:
		c.handleJoin(msg.Payload)
	case MsgStartGame:
		c.handleStartGame(msg.Payload)
	case MsgSubmitGuess:
		c.handleSubmitGuess(msg.Payload)
	case MsgSubmitAnswer:
		c.handleSubmitAnswer(msg.Payload)
	case MsgNextRound:
		c.handleNextRound(msg.Payload)
	case MsgResetGame:
		c.handleResetGame(msg.Payload)
	case MsgQuizHostJoin, MsgQuizPlayerJoin, MsgQuizStart, MsgQuizNextQuestion, MsgQuizAnswer:
		c.handleQuiz(msg.Type, msg.Payload)
	case MsgPing:
		c.sendEvent(domain.NewEvent(EventPong, "", nil))
	default:
		c.sendError(domain.EventError, ErrCodeInvalidMessage, "Unknown message type")
	}
}

// decode unmarshals a payload, reporting INVALID_MESSAGE on failure
func (c *Client) decode(raw json.RawMessage, v interface{}, errEvent domain.EventType) bool {
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		c.sendError(errEvent, ErrCodeInvalidMessage, "Invalid payload")
		return false
	}
	return true
}

// roomCode normalizes and validates a room code, reporting INVALID_ROOM_CODE
func (c *Client) roomCode(raw string, errEvent domain.EventType) (string, bool) {
	code := validate.NormalizeRoomCode(raw)
	if !validate.RoomCode(code) {
		c.sendError(errEvent, ErrCodeInvalidRoomCode, "Invalid room code")
		return "", false
	}
	return code, true
}

// year validates a year field, reporting INVALID_YEAR
func (c *Client) year(year int, errEvent domain.EventType) bool {
	if !validate.Year(year) {
		c.sendError(errEvent, ErrCodeInvalidYear, "Year must be between 1900 and 2100")
		return false
	}
	return true
}

// handleCreateGame handles host:create-game
func (c *Client) handleCreateGame() {
	session, err := c.handler.hub.CreateRoom(c)
	if err != nil {
		c.sendFailure(domain.EventError, err, "create a game")
		return
	}

	c.rooms[session.GetRoomCode()] = struct{}{}
	c.sendEvent(domain.NewEvent(domain.EventRoomCreated, session.GetRoomCode(), &domain.RoomCreatedPayload{
		RoomID: session.GetRoomCode(),
	}))
}

// handleRequestPlayerList handles host:request-player-list. It also makes
// the caller a member of the room, which is how a reconnecting host gets back in.
func (c *Client) handleRequestPlayerList(raw json.RawMessage) {
	var p RoomPayload
	if !c.decode(raw, &p, domain.EventError) {
		return
	}
	code, ok := c.roomCode(p.RoomID, domain.EventError)
	if !ok {
		return
	}

	session, err := c.handler.hub.GetSession(code)
	if err != nil {
		c.sendFailure(domain.EventError, err, "view players")
		return
	}

	if err := session.Subscribe(c); err != nil {
		c.sendFailure(domain.EventError, err, "view players")
		return
	}
	c.rooms[code] = struct{}{}
}

// handleJoin handles player:join
func (c *Client) handleJoin(raw json.RawMessage) {
	var p JoinPayload
	if !c.decode(raw, &p, domain.EventJoinError) {
		return
	}
	code, ok := c.roomCode(p.RoomID, domain.EventJoinError)
	if !ok {
		return
	}

	name := validate.SanitizeName(p.PlayerName)
	if err := c.handler.hub.AddPlayer(code, c, name); err != nil {
		c.sendFailure(domain.EventJoinError, err, "join")
		return
	}
	c.rooms[code] = struct{}{}
}

// handleStartGame handles host:start-game
func (c *Client) handleStartGame(raw json.RawMessage) {
	var p StartGamePayload
	if !c.decode(raw, &p, domain.EventStartGameError) {
		return
	}
	code, ok := c.roomCode(p.RoomID, domain.EventStartGameError)
	if !ok || !c.year(p.StartYear, domain.EventStartGameError) {
		return
	}

	session, err := c.handler.hub.GetSession(code)
	if err == nil {
		err = session.StartGame(c.connID, p.StartYear)
	}
	if err != nil {
		c.sendFailure(domain.EventStartGameError, err, "start the game")
	}
}

// handleSubmitGuess handles player:submit-guess. Rejected guesses get no
// reply.
func (c *Client) handleSubmitGuess(raw json.RawMessage) {
	var p SubmitGuessPayload
	if !c.decode(raw, &p, domain.EventError) {
		return
	}
	code, ok := c.roomCode(p.RoomID, domain.EventError)
	if !ok || !c.year(p.Year, domain.EventError) {
		return
	}

	session, err := c.handler.hub.GetSession(code)
	if err == nil {
		err = session.SubmitGuess(c.connID, p.Year)
	}
	c.logDroppedGuess(code, err)
}

// logDroppedGuess notes a rejected guess at debug level. Unknown rooms are
// routine and not logged.
func (c *Client) logDroppedGuess(roomCode string, err error) {
	if err == nil || errors.Is(err, domain.ErrRoomNotFound) {
		return
	}
	c.logger.Debug().Err(err).Str("connId", c.connID).Str("roomId", roomCode).Msg("guess dropped")
}

// handleSubmitAnswer handles host:submit-answer
func (c *Client) handleSubmitAnswer(raw json.RawMessage) {
	var p SubmitAnswerPayload
	if !c.decode(raw, &p, domain.EventError) {
		return
	}
	code, ok := c.roomCode(p.RoomID, domain.EventError)
	if !ok || !c.year(p.CorrectYear, domain.EventError) {
		return
	}

	session, err := c.handler.hub.GetSession(code)
	if err == nil {
		err = session.SubmitAnswer(c.connID, p.CorrectYear)
	}
	if err != nil {
		c.sendFailure(domain.EventError, err, "submit answer")
	}
}

// handleNextRound handles host:next-round
func (c *Client) handleNextRound(raw json.RawMessage) {
	var p RoomPayload
	if !c.decode(raw, &p, domain.EventError) {
		return
	}
	code, ok := c.roomCode(p.RoomID, domain.EventError)
	if !ok {
		return
	}

	session, err := c.handler.hub.GetSession(code)
	if err == nil {
		err = session.NextRound(c.connID)
	}
	if err != nil {
		c.sendFailure(domain.EventError, err, "start next round")
	}
}

// handleResetGame handles host:reset-game
func (c *Client) handleResetGame(raw json.RawMessage) {
	var p ResetGamePayload
	if !c.decode(raw, &p, domain.EventError) {
		return
	}
	code, ok := c.roomCode(p.RoomID, domain.EventError)
	if !ok {
		return
	}

	session, err := c.handler.hub.GetSession(code)
	if err == nil {
		err = session.Reset(c.connID, p.KeepPlayers)
	}
	if err != nil {
		c.sendFailure(domain.EventError, err, "reset game")
	}
}

// handleQuiz dispatches the quiz mode commands
func (c *Client) handleQuiz(msgType MessageType, raw json.RawMessage) {
	m := c.handler.quiz
	if m == nil {
		c.sendError(domain.EventError, ErrCodeInvalidMessage, "Quiz mode is disabled")
		return
	}

	var (
		err    error
		action string
	)
	switch msgType {
	case MsgQuizHostJoin:
		action = "host this quiz"
		var p QuizPinPayload
		if !c.decode(raw, &p, domain.EventError) {
			return
		}
		err = m.HostJoin(c, p.Pin)
	case MsgQuizPlayerJoin:
		action = "join this quiz"
		var p QuizJoinPayload
		if !c.decode(raw, &p, domain.EventError) {
			return
		}
		err = m.PlayerJoin(c, p.Pin, validate.SanitizeName(p.PlayerName))
	case MsgQuizStart:
		action = "start the quiz"
		var p QuizPinPayload
		if !c.decode(raw, &p, domain.EventError) {
			return
		}
		err = m.Start(c.connID, p.Pin)
	case MsgQuizNextQuestion:
		action = "advance the quiz"
		var p QuizPinPayload
		if !c.decode(raw, &p, domain.EventError) {
			return
		}
		err = m.NextQuestion(c.connID, p.Pin)
	case MsgQuizAnswer:
		action = "answer"
		var p QuizAnswerPayload
		if !c.decode(raw, &p, domain.EventError) {
			return
		}
		err = m.Answer(c, p.Pin, p.QuestionIndex, p.AnswerIndex, p.TimeSpent)
	}

	if err != nil {
		c.sendFailure(domain.EventError, err, action)
	}
}

// sendFailure maps a command error to an error event. action names what
// the caller attempted, e.g. "submit answer".
func (c *Client) sendFailure(eventType domain.EventType, err error, action string) {
	switch {
	case errors.Is(err, domain.ErrRoomNotFound):
		c.sendError(eventType, ErrCodeRoomNotFound, "Room not found")
	case errors.Is(err, quiz.ErrGameNotFound):
		c.sendError(eventType, ErrCodeRoomNotFound, "Game not found")
	case errors.Is(err, domain.ErrNotHost):
		c.sendError(eventType, ErrCodeNotHost, "Not authorized to "+action)
	case errors.Is(err, domain.ErrRoomFull):
		c.sendError(eventType, ErrCodeRoomFull, "Room is full")
	case errors.Is(err, domain.ErrGameAlreadyStarted), errors.Is(err, quiz.ErrAlreadyStarted):
		c.sendError(eventType, ErrCodeGameStarted, "Game has already started")
	case errors.Is(err, domain.ErrTooManyRooms):
		c.sendError(eventType, ErrCodeTooManyRooms, "Too many rooms. Please close some rooms first.")
	case errors.Is(err, quiz.ErrAlreadyAnswered):
		c.sendError(eventType, ErrCodeInvalidAction, "Question already answered")
	case errors.Is(err, domain.ErrInvalidPhase),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrGameFinished),
		errors.Is(err, domain.ErrPlayerNotFound),
		errors.Is(err, quiz.ErrNotPlaying),
		errors.Is(err, quiz.ErrWrongQuestion):
		c.sendError(eventType, ErrCodeInvalidAction, "Cannot "+action+" now")
	default:
		c.logger.Error().Err(err).Str("action", action).Msg("command failed")
		c.sendError(eventType, ErrCodeInternalError, "Internal server error")
	}
}

// sendEvent sends an event to this client only
func (c *Client) sendEvent(event *domain.Event) {
	if err := c.Send(event); err != nil {
		c.logger.Debug().Err(err).Msg("failed to send event")
	}
}

// sendError sends an error event to the client
func (c *Client) sendError(eventType domain.EventType, code, message string) {
	c.sendEvent(domain.NewEvent(eventType, "", &domain.ErrorPayload{
		Code:    code,
		Message: message,
	}))
}
