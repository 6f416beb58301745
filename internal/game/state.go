package game

// State is the engine's phase in the round state machine.
type State string

const (
	StateSetup                State = "setup"
	StateFirstDealerSelection State = "first_dealer_selection"
	StateDealerCall           State = "dealer_call"
	StatePlayerSelection      State = "player_selection"
	StateShowdown             State = "showdown"
	StateScoring              State = "scoring"
	StateGameOver             State = "game_over"
)

// String returns the wire representation of the state.
func (s State) String() string {
	return string(s)
}
