package domain

import "sort"

// Game holds the state of one room. It is not safe for concurrent use; the
// owning session serializes all access.
type Game struct {
	RoomID       string
	HostID       string
	Players      map[string]*Player
	Phase        Phase
	StartYear    *int
	Timeline     []int
	CurrentRound int
	Round        RoundState
	Winner       string

	nextSeq int
}

// NewGame creates a new game in the lobby phase
func NewGame(roomID, hostID string) *Game {
	return &Game{
		RoomID:   roomID,
		HostID:   hostID,
		Players:  make(map[string]*Player),
		Phase:    PhaseLobby,
		Timeline: make([]int, 0),
		Round:    NewRoundState(),
	}
}

// RoundOutcome lists who was eliminated and who stayed in during a round
type RoundOutcome struct {
	Eliminated []string
	Active     []string
}

// RoundSummary is everything the session needs to report a resolved round
type RoundSummary struct {
	CorrectYear int
	Timeline    []int
	Outcome     RoundOutcome
	GameEnded   bool
	Winner      string
	Results     []GuessResult
}

// IsEliminated reports whether the player was eliminated in this round
func (s *RoundSummary) IsEliminated(playerID string) bool {
	for _, id := range s.Outcome.Eliminated {
		if id == playerID {
			return true
		}
	}
	return false
}

// transition moves the game to the target phase if allowed
func (g *Game) transition(target Phase) error {
	if !g.Phase.CanTransitionTo(target) {
		return ErrInvalidTransition
	}
	g.Phase = target
	return nil
}

// AddPlayer adds a player to the lobby. Joining again with the same ID only
// updates the name.
func (g *Game) AddPlayer(playerID, name string, maxPlayers int) (*Player, error) {
	if g.Phase != PhaseLobby {
		return nil, ErrGameAlreadyStarted
	}

	if existing, ok := g.Players[playerID]; ok {
		existing.Name = name
		return existing, nil
	}

	if maxPlayers > 0 && len(g.Players) >= maxPlayers {
		return nil, ErrRoomFull
	}

	g.nextSeq++
	player := NewPlayer(playerID, name, g.nextSeq)
	g.Players[playerID] = player

	return player, nil
}

// RemovePlayer removes a player and any guess they submitted. It reports
// whether the player was present.
func (g *Game) RemovePlayer(playerID string) bool {
	_, ok := g.Players[playerID]
	delete(g.Players, playerID)
	g.Round.DropGuess(playerID)
	return ok
}

// GetPlayer returns a player by ID
func (g *Game) GetPlayer(playerID string) (*Player, error) {
	player, ok := g.Players[playerID]
	if !ok {
		return nil, ErrPlayerNotFound
	}
	return player, nil
}

// orderedPlayers returns players in join order
func (g *Game) orderedPlayers() []*Player {
	players := make([]*Player, 0, len(g.Players))
	for _, p := range g.Players {
		players = append(players, p)
	}
	sort.Slice(players, func(i, j int) bool {
		return players[i].seq < players[j].seq
	})
	return players
}

// GetPlayerIDs returns all player IDs in join order
func (g *Game) GetPlayerIDs() []string {
	players := g.orderedPlayers()
	ids := make([]string, 0, len(players))
	for _, p := range players {
		ids = append(ids, p.ID)
	}
	return ids
}

// GetPlayerInfoList returns a snapshot of all players in join order
func (g *Game) GetPlayerInfoList() []PlayerInfo {
	players := g.orderedPlayers()
	infos := make([]PlayerInfo, 0, len(players))
	for _, p := range players {
		infos = append(infos, p.ToInfo())
	}
	return infos
}

// ActivePlayerCount returns the number of players still in the game
func (g *Game) ActivePlayerCount() int {
	count := 0
	for _, p := range g.Players {
		if p.IsActive {
			count++
		}
	}
	return count
}

// PlayerNames maps IDs to display names, skipping unknown IDs
func (g *Game) PlayerNames(ids []string) []string {
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if p, ok := g.Players[id]; ok {
			names = append(names, p.Name)
		}
	}
	return names
}

// IsHost checks if the given connection is the recorded host
func (g *Game) IsHost(connID string) bool {
	return g.HostID == connID
}

// Start opens the first round with the start year as the only timeline entry
func (g *Game) Start(startYear int) error {
	if g.Phase != PhaseLobby {
		return ErrGameAlreadyStarted
	}

	if err := g.transition(PhasePlaying); err != nil {
		return err
	}

	year := startYear
	g.StartYear = &year
	g.Timeline = []int{startYear}
	g.CurrentRound = 1
	g.Round.Clear()

	return nil
}

// SubmitGuess stores a guess for an active player. A later guess in the same
// round replaces the earlier one.
func (g *Game) SubmitGuess(playerID string, year int) error {
	player, err := g.GetPlayer(playerID)
	if err != nil {
		return err
	}

	if !player.IsActive {
		return ErrPlayerEliminated
	}

	if g.Phase != PhasePlaying {
		return ErrInvalidPhase
	}

	g.Round.SetGuess(playerID, year)
	player.SetGuess(year)

	return nil
}

// EvaluateRound eliminates every active player whose guess is missing or
// lands in the wrong slot. Players already out are skipped.
func (g *Game) EvaluateRound() RoundOutcome {
	outcome := RoundOutcome{
		Eliminated: make([]string, 0),
		Active:     make([]string, 0),
	}

	correctYear, ok := g.Round.Answer()
	if !ok {
		return outcome
	}

	for _, player := range g.orderedPlayers() {
		if !player.IsActive {
			continue
		}

		guess, submitted := g.Round.Guess(player.ID)
		if submitted && IsGuessCorrect(guess, g.Timeline, correctYear, g.StartYear) {
			outcome.Active = append(outcome.Active, player.ID)
			continue
		}

		player.Eliminate()
		outcome.Eliminated = append(outcome.Eliminated, player.ID)
	}

	return outcome
}

// CheckGameEnd finishes the game when at most one player is active. The last
// active player, if any, becomes the winner.
func (g *Game) CheckGameEnd() bool {
	if g.ActivePlayerCount() > 1 {
		return false
	}

	g.Winner = ""
	for _, p := range g.Players {
		if p.IsActive {
			g.Winner = p.ID
		}
	}
	g.Phase = PhaseFinished

	return true
}

// SubmitAnswer resolves the current round: it evaluates guesses against the
// timeline as it was during the round, inserts the correct year, checks for
// the end of the game and clears the round-scoped data.
func (g *Game) SubmitAnswer(correctYear int) (*RoundSummary, error) {
	if g.Phase != PhasePlaying {
		return nil, ErrInvalidPhase
	}

	if err := g.transition(PhaseRoundResults); err != nil {
		return nil, err
	}

	g.Round.SetAnswer(correctYear)

	outcome := g.EvaluateRound()
	g.Timeline = InsertYear(correctYear, g.Timeline)
	ended := g.CheckGameEnd()

	eliminated := make(map[string]bool, len(outcome.Eliminated))
	for _, id := range outcome.Eliminated {
		eliminated[id] = true
	}

	results := make([]GuessResult, 0, len(g.Players))
	for _, p := range g.orderedPlayers() {
		result := GuessResult{
			PlayerID:   p.ID,
			PlayerName: p.Name,
			IsCorrect:  !eliminated[p.ID] && p.IsActive,
		}
		if guess, ok := g.Round.Guess(p.ID); ok {
			result.Guess = &guess
		}
		results = append(results, result)
	}

	summary := &RoundSummary{
		CorrectYear: correctYear,
		Timeline:    append([]int(nil), g.Timeline...),
		Outcome:     outcome,
		GameEnded:   ended,
		Winner:      g.Winner,
		Results:     results,
	}

	g.Round.Clear()

	return summary, nil
}

// NextRound opens the next round after results were shown
func (g *Game) NextRound() error {
	if g.Phase == PhaseFinished {
		return ErrGameFinished
	}

	if g.Phase != PhaseRoundResults {
		return ErrInvalidPhase
	}

	if err := g.transition(PhasePlaying); err != nil {
		return err
	}

	g.CurrentRound++
	for _, p := range g.Players {
		p.ClearGuess()
	}

	return nil
}

// Reset returns the room to the lobby. With keepPlayers every player is
// reactivated, otherwise all players are removed.
func (g *Game) Reset(keepPlayers bool) {
	g.Phase = PhaseLobby
	g.Timeline = make([]int, 0)
	g.CurrentRound = 0
	g.StartYear = nil
	g.Round.Clear()
	g.Winner = ""

	if keepPlayers {
		for _, p := range g.Players {
			p.Reactivate()
		}
		return
	}

	g.Players = make(map[string]*Player)
}
