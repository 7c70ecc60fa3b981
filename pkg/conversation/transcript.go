package conversation

import (
	"errors"
	"fmt"
)

// ErrUnknownCall is returned when a tool result is appended for a call id
// that no preceding assistant turn declared, or whose result was already
// recorded.
var ErrUnknownCall = errors.New("tool result does not match a pending invocation")

// Transcript is the ordered turn history of one conversation. The order is
// replayed verbatim to the inference endpoint on every iteration, so turns
// are append-only; Reset is the only way to drop them.
//
// A Transcript is not safe for concurrent use. It is owned by one
// orchestration loop invocation at a time.
type Transcript struct {
	turns   []Turn
	pending map[string]int
}

// New creates a transcript holding only the system turn.
func New(systemPrompt string) *Transcript {
	return &Transcript{
		turns:   []Turn{SystemTurn{Content: systemPrompt}},
		pending: make(map[string]int),
	}
}

// SystemPrompt returns the content of the leading system turn.
func (t *Transcript) SystemPrompt() string {
	return t.turns[0].(SystemTurn).Content
}

// Turns returns a copy of the turn slice.
func (t *Transcript) Turns() []Turn {
	out := make([]Turn, len(t.turns))
	copy(out, t.turns)
	return out
}

// Len returns the number of turns, including the system turn.
func (t *Transcript) Len() int {
	return len(t.turns)
}

// Last returns the most recent turn.
func (t *Transcript) Last() Turn {
	return t.turns[len(t.turns)-1]
}

// AppendUser appends a user turn.
func (t *Transcript) AppendUser(content string) {
	t.turns = append(t.turns, UserTurn{Content: content})
}

// AppendAssistant appends an assistant turn and records its invocation
// requests as pending results. An id declared twice expects two results.
func (t *Transcript) AppendAssistant(turn AssistantTurn) {
	for _, c := range turn.Calls {
		t.pending[c.ID]++
	}
	t.turns = append(t.turns, turn)
}

// AppendToolResult appends the result for a pending invocation. It returns
// ErrUnknownCall if no earlier assistant turn declared turn.CallID.
func (t *Transcript) AppendToolResult(turn ToolResultTurn) error {
	n := t.pending[turn.CallID]
	if n == 0 {
		return fmt.Errorf("call %q: %w", turn.CallID, ErrUnknownCall)
	}
	if n == 1 {
		delete(t.pending, turn.CallID)
	} else {
		t.pending[turn.CallID] = n - 1
	}
	t.turns = append(t.turns, turn)
	return nil
}

// Pending returns the number of declared invocations still awaiting a result.
func (t *Transcript) Pending() int {
	total := 0
	for _, n := range t.pending {
		total += n
	}
	return total
}

// Reset truncates the transcript back to its system turn.
func (t *Transcript) Reset() {
	t.turns = t.turns[:1:1]
	t.pending = make(map[string]int)
}
