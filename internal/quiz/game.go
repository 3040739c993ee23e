package quiz

import (
	"errors"
	"math"
	"sort"
	"time"

	"yearguess/internal/domain"
)

var (
	ErrGameNotFound    = errors.New("quiz game not found")
	ErrAlreadyStarted  = errors.New("quiz has already started")
	ErrNotPlaying      = errors.New("quiz is not in progress")
	ErrWrongQuestion   = errors.New("answer is not for the current question")
	ErrAlreadyAnswered = errors.New("question already answered")
	ErrPinExhausted    = errors.New("failed to generate unique game pin")
)

// Status is the lifecycle state of a quiz game
type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusPlaying  Status = "playing"
	StatusFinished Status = "finished"
)

const (
	basePoints    = 1000
	maxTimeBonus  = 500
	minPin        = 100000
	pinRangeWidth = 900000
)

// Points scores an answer. A correct answer earns the base points plus a
// bonus that shrinks linearly with the time spent.
func Points(correct bool, timeLimit int, timeSpent float64) int {
	if !correct {
		return 0
	}
	if timeLimit <= 0 {
		timeLimit = DefaultTimeLimit
	}

	limit := float64(timeLimit)
	timeSpent = ClampTimeSpent(timeSpent, timeLimit)
	bonus := math.Floor((limit - timeSpent) / limit * maxTimeBonus)

	return basePoints + int(bonus)
}

// ClampTimeSpent bounds a client-reported answer time to [0, timeLimit].
// Values that are not numbers count as the full time limit.
func ClampTimeSpent(timeSpent float64, timeLimit int) float64 {
	limit := float64(timeLimit)
	switch {
	case math.IsNaN(timeSpent), timeSpent > limit:
		return limit
	case timeSpent < 0:
		return 0
	}
	return timeSpent
}

// Answer is a player's recorded answer to one question
type Answer struct {
	AnswerIndex int     `json:"answer"`
	Correct     bool    `json:"correct"`
	Points      int     `json:"points"`
	TimeSpent   float64 `json:"timeSpent"`
}

// Player is a quiz participant
type Player struct {
	ID      string
	Name    string
	Score   int
	Answers map[int]Answer
}

// PlayerInfo is the public view of a player
type PlayerInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// LeaderboardEntry is one row of the leaderboard
type LeaderboardEntry struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// QuestionView is the question as shown to players, without the answer
type QuestionView struct {
	QuestionIndex  int      `json:"questionIndex"`
	QuestionNumber int      `json:"questionNumber"`
	TotalQuestions int      `json:"totalQuestions"`
	Question       string   `json:"question"`
	Options        []string `json:"options"`
	TimeLimit      int      `json:"timeLimit"`
}

// AnswerResult tells a player how their answer scored
type AnswerResult struct {
	Correct bool `json:"correct"`
	Points  int  `json:"points"`
}

// Game is one quiz run addressed by its PIN. It is not safe for concurrent
// use; the Manager locks around every call.
type Game struct {
	PIN             string
	Quiz            *Quiz
	Status          Status
	CurrentQuestion int
	HostID          string
	CreatedAt       time.Time

	players []*Player
}

// NewGame creates a waiting game for quiz
func NewGame(pin string, quiz *Quiz, createdAt time.Time) *Game {
	return &Game{
		PIN:             pin,
		Quiz:            quiz,
		Status:          StatusWaiting,
		CurrentQuestion: -1,
		CreatedAt:       createdAt,
		players:         make([]*Player, 0),
	}
}

func (g *Game) player(id string) *Player {
	for _, p := range g.players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// AddPlayer adds a player while the game is waiting. Joining again renames.
func (g *Game) AddPlayer(id, name string) (*Player, error) {
	if g.Status != StatusWaiting {
		return nil, ErrAlreadyStarted
	}

	if p := g.player(id); p != nil {
		p.Name = name
		return p, nil
	}

	p := &Player{ID: id, Name: name, Answers: make(map[int]Answer)}
	g.players = append(g.players, p)
	return p, nil
}

// RemovePlayer drops a player and reports whether they were present
func (g *Game) RemovePlayer(id string) bool {
	for i, p := range g.players {
		if p.ID == id {
			g.players = append(g.players[:i], g.players[i+1:]...)
			return true
		}
	}
	return false
}

// PlayerCount returns the number of players
func (g *Game) PlayerCount() int {
	return len(g.players)
}

// Players returns the public player list in join order
func (g *Game) Players() []PlayerInfo {
	infos := make([]PlayerInfo, 0, len(g.players))
	for _, p := range g.players {
		infos = append(infos, PlayerInfo{ID: p.ID, Name: p.Name})
	}
	return infos
}

// Question returns the current question, if one is open
func (g *Game) Question() (QuestionView, bool) {
	if g.CurrentQuestion < 0 || g.CurrentQuestion >= len(g.Quiz.Questions) {
		return QuestionView{}, false
	}

	q := g.Quiz.Questions[g.CurrentQuestion]
	return QuestionView{
		QuestionIndex:  g.CurrentQuestion,
		QuestionNumber: g.CurrentQuestion + 1,
		TotalQuestions: len(g.Quiz.Questions),
		Question:       q.Question,
		Options:        append([]string(nil), q.Options...),
		TimeLimit:      q.Limit(),
	}, true
}

// Start opens the first question
func (g *Game) Start() (QuestionView, error) {
	if g.Status != StatusWaiting {
		return QuestionView{}, ErrAlreadyStarted
	}

	g.Status = StatusPlaying
	g.CurrentQuestion = 0

	view, _ := g.Question()
	return view, nil
}

// Next advances to the next question. It reports false and finishes the game
// once all questions were shown.
func (g *Game) Next() (QuestionView, bool, error) {
	if g.Status != StatusPlaying {
		return QuestionView{}, false, ErrNotPlaying
	}

	g.CurrentQuestion++
	view, ok := g.Question()
	if !ok {
		g.Status = StatusFinished
	}
	return view, ok, nil
}

// SubmitAnswer scores a player's answer to the current question. A second
// answer to the same question is rejected.
func (g *Game) SubmitAnswer(playerID string, questionIndex, answerIndex int, timeSpent float64) (AnswerResult, error) {
	if g.Status != StatusPlaying {
		return AnswerResult{}, ErrNotPlaying
	}

	p := g.player(playerID)
	if p == nil {
		return AnswerResult{}, domain.ErrPlayerNotFound
	}

	if questionIndex != g.CurrentQuestion {
		return AnswerResult{}, ErrWrongQuestion
	}

	if _, answered := p.Answers[questionIndex]; answered {
		return AnswerResult{}, ErrAlreadyAnswered
	}

	q := g.Quiz.Questions[questionIndex]
	timeSpent = ClampTimeSpent(timeSpent, q.Limit())
	correct := answerIndex == q.CorrectAnswer
	points := Points(correct, q.Limit(), timeSpent)

	p.Answers[questionIndex] = Answer{
		AnswerIndex: answerIndex,
		Correct:     correct,
		Points:      points,
		TimeSpent:   timeSpent,
	}
	p.Score += points

	return AnswerResult{Correct: correct, Points: points}, nil
}

// AnswerCount returns how many players answered the given question
func (g *Game) AnswerCount(questionIndex int) int {
	count := 0
	for _, p := range g.players {
		if _, ok := p.Answers[questionIndex]; ok {
			count++
		}
	}
	return count
}

// Leaderboard returns players by score, highest first. Ties keep join order.
func (g *Game) Leaderboard() []LeaderboardEntry {
	entries := make([]LeaderboardEntry, 0, len(g.players))
	for _, p := range g.players {
		entries = append(entries, LeaderboardEntry{ID: p.ID, Name: p.Name, Score: p.Score})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Score > entries[j].Score
	})
	return entries
}
