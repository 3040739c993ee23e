package domain

// Phase represents the current phase of a room
type Phase string

const (
	PhaseLobby        Phase = "lobby"         // Waiting for players to join
	PhasePlaying      Phase = "playing"       // Collecting guesses for the current round
	PhaseRoundResults Phase = "round-results" // Answer revealed, eliminations applied
	PhaseFinished     Phase = "finished"      // One or zero players left
)

// String returns the string representation of the phase
func (p Phase) String() string {
	return string(p)
}

// CanTransitionTo checks if a transition from current phase to target phase is valid.
// Every phase may return to the lobby through a reset.
func (p Phase) CanTransitionTo(target Phase) bool {
	validTransitions := map[Phase][]Phase{
		PhaseLobby:        {PhasePlaying, PhaseLobby},
		PhasePlaying:      {PhaseRoundResults, PhaseLobby},
		PhaseRoundResults: {PhasePlaying, PhaseFinished, PhaseLobby},
		PhaseFinished:     {PhaseLobby},
	}

	allowed, ok := validTransitions[p]
	if !ok {
		return false
	}

	for _, phase := range allowed {
		if phase == target {
			return true
		}
	}
	return false
}
