package domain

// Player represents a player in a room. The ID is the connection identity
// the player joined with.
type Player struct {
	ID           string
	Name         string
	IsActive     bool
	CurrentGuess *int

	// join order, used to keep broadcasts stable
	seq int
}

// NewPlayer creates a new active player with the given ID and name
func NewPlayer(id, name string, seq int) *Player {
	return &Player{
		ID:       id,
		Name:     name,
		IsActive: true,
		seq:      seq,
	}
}

// SetGuess records the player's guess for the current round
func (p *Player) SetGuess(year int) {
	p.CurrentGuess = &year
}

// ClearGuess forgets the player's current guess
func (p *Player) ClearGuess() {
	p.CurrentGuess = nil
}

// Eliminate marks the player as out of the game
func (p *Player) Eliminate() {
	p.IsActive = false
}

// Reactivate puts the player back in the game with no guess
func (p *Player) Reactivate() {
	p.IsActive = true
	p.CurrentGuess = nil
}

// PlayerInfo is a snapshot of player data safe to hand to other goroutines
type PlayerInfo struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	IsActive     bool   `json:"isActive"`
	CurrentGuess *int   `json:"currentGuess,omitempty"`
}

// ToInfo converts a Player to a PlayerInfo snapshot
func (p *Player) ToInfo() PlayerInfo {
	info := PlayerInfo{
		ID:       p.ID,
		Name:     p.Name,
		IsActive: p.IsActive,
	}
	if p.CurrentGuess != nil {
		guess := *p.CurrentGuess
		info.CurrentGuess = &guess
	}
	return info
}
