package engine

// State is the position of a conversation in the orchestration loop.
type State int

const (
	// StateAwaitingModel waits for the inference gateway.
	StateAwaitingModel State = iota

	// StateInterpretingTurn inspects an answer for call intents.
	StateInterpretingTurn

	// StateDispatching runs the requested invocations.
	StateDispatching

	// StateFinalizing records the final assistant turn.
	StateFinalizing

	// StateCompleted is terminal: the model answered, or the backend
	// failed and an apology was recorded.
	StateCompleted

	// StateAborted is terminal: the iteration budget ran out.
	StateAborted
)

var stateNames = [...]string{
	StateAwaitingModel:    "awaiting_model",
	StateInterpretingTurn: "interpreting_turn",
	StateDispatching:      "dispatching",
	StateFinalizing:       "finalizing",
	StateCompleted:        "completed",
	StateAborted:          "aborted",
}

// String returns the snake_case name reported by the HTTP layer.
func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Terminal reports whether the loop has finished.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateAborted
}
