package domain

// RoundState holds the data that only lives for one round: the guesses
// submitted so far and the host's answer. Clear empties both once the round
// has been evaluated.
type RoundState struct {
	guesses     map[string]int
	correctYear *int
}

// NewRoundState creates an empty round state
func NewRoundState() RoundState {
	return RoundState{
		guesses: make(map[string]int),
	}
}

// SetGuess records a guess for a player, replacing any earlier one
func (r *RoundState) SetGuess(playerID string, year int) {
	if r.guesses == nil {
		r.guesses = make(map[string]int)
	}
	r.guesses[playerID] = year
}

// Guess returns the guess a player submitted this round
func (r *RoundState) Guess(playerID string) (int, bool) {
	year, ok := r.guesses[playerID]
	return year, ok
}

// DropGuess removes a player's guess, if any
func (r *RoundState) DropGuess(playerID string) {
	delete(r.guesses, playerID)
}

// GuessCount returns how many guesses have been submitted
func (r *RoundState) GuessCount() int {
	return len(r.guesses)
}

// SetAnswer records the host's correct year
func (r *RoundState) SetAnswer(year int) {
	r.correctYear = &year
}

// Answer returns the correct year if the host has submitted it
func (r *RoundState) Answer() (int, bool) {
	if r.correctYear == nil {
		return 0, false
	}
	return *r.correctYear, true
}

// Clear drops all round-scoped data
func (r *RoundState) Clear() {
	r.guesses = make(map[string]int)
	r.correctYear = nil
}

// Empty reports whether no round-scoped data is held
func (r *RoundState) Empty() bool {
	return len(r.guesses) == 0 && r.correctYear == nil
}
