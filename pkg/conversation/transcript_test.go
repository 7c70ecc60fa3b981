package conversation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rhuss/funcall/pkg/tools"
)

func TestNew_StartsWithSystemTurn(t *testing.T) {
	tr := New("be helpful")

	require.Equal(t, 1, tr.Len())
	assert.Equal(t, SystemTurn{Content: "be helpful"}, tr.Last())
	assert.Equal(t, "be helpful", tr.SystemPrompt())
}

func TestTranscript_AppendOrder(t *testing.T) {
	tr := New("sys")
	tr.AppendUser("what time is it?")
	tr.AppendAssistant(AssistantTurn{Calls: []tools.ToolCall{{ID: "c1", Name: "get_current_time", Arguments: "{}"}}})
	require.NoError(t, tr.AppendToolResult(ToolResultTurn{CallID: "c1", Name: "get_current_time", Content: "12:00"}))
	tr.AppendAssistant(AssistantTurn{Content: "It is noon."})

	roles := make([]Role, 0, tr.Len())
	for _, turn := range tr.Turns() {
		roles = append(roles, turn.Role())
	}
	assert.Equal(t, []Role{RoleSystem, RoleUser, RoleAssistant, RoleTool, RoleAssistant}, roles)
	assert.Zero(t, tr.Pending())
}

func TestTranscript_ToolResultRequiresDeclaration(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*Transcript)
		id    string
	}{
		{
			name:  "no assistant turn",
			setup: func(tr *Transcript) { tr.AppendUser("hi") },
			id:    "c1",
		},
		{
			name: "different call id",
			setup: func(tr *Transcript) {
				tr.AppendAssistant(AssistantTurn{Calls: []tools.ToolCall{{ID: "c1", Name: "x"}}})
			},
			id: "c2",
		},
		{
			name: "result already recorded",
			setup: func(tr *Transcript) {
				tr.AppendAssistant(AssistantTurn{Calls: []tools.ToolCall{{ID: "c1", Name: "x"}}})
				_ = tr.AppendToolResult(ToolResultTurn{CallID: "c1", Name: "x"})
			},
			id: "c1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := New("sys")
			tt.setup(tr)
			before := tr.Len()

			err := tr.AppendToolResult(ToolResultTurn{CallID: tt.id, Name: "x", Content: "r"})
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrUnknownCall))
			assert.Equal(t, before, tr.Len(), "rejected result must not be appended")
		})
	}
}

func TestTranscript_RepeatedCallIDExpectsOneResultEach(t *testing.T) {
	tr := New("sys")
	tr.AppendAssistant(AssistantTurn{Calls: []tools.ToolCall{{ID: "call_0", Name: "a"}, {ID: "call_0", Name: "b"}}})
	assert.Equal(t, 2, tr.Pending())

	require.NoError(t, tr.AppendToolResult(ToolResultTurn{CallID: "call_0", Name: "a", Content: "1"}))
	require.NoError(t, tr.AppendToolResult(ToolResultTurn{CallID: "call_0", Name: "b", Content: "2"}))
	assert.Zero(t, tr.Pending())

	err := tr.AppendToolResult(ToolResultTurn{CallID: "call_0", Name: "c", Content: "3"})
	assert.ErrorIs(t, err, ErrUnknownCall)
}

func TestTranscript_Reset(t *testing.T) {
	tr := New("sys")
	tr.AppendUser("one")
	tr.AppendAssistant(AssistantTurn{Calls: []tools.ToolCall{{ID: "c1", Name: "x"}}})

	tr.Reset()

	require.Equal(t, 1, tr.Len())
	assert.Equal(t, SystemTurn{Content: "sys"}, tr.Turns()[0])
	assert.Zero(t, tr.Pending())

	// The transcript stays usable after a reset.
	tr.AppendUser("two")
	assert.Equal(t, 2, tr.Len())
}

func TestTranscript_TurnsReturnsCopy(t *testing.T) {
	tr := New("sys")
	tr.AppendUser("hello")

	turns := tr.Turns()
	turns[1] = UserTurn{Content: "mutated"}

	assert.Equal(t, UserTurn{Content: "hello"}, tr.Last())
}

type recordingVisitor struct {
	seen []string
}

func (v *recordingVisitor) System(SystemTurn)         { v.seen = append(v.seen, "system") }
func (v *recordingVisitor) User(UserTurn)             { v.seen = append(v.seen, "user") }
func (v *recordingVisitor) Assistant(AssistantTurn)   { v.seen = append(v.seen, "assistant") }
func (v *recordingVisitor) ToolResult(ToolResultTurn) { v.seen = append(v.seen, "tool") }

func TestVisit_DispatchesEveryVariant(t *testing.T) {
	v := &recordingVisitor{}
	for _, turn := range []Turn{SystemTurn{}, UserTurn{}, AssistantTurn{}, ToolResultTurn{}} {
		Visit(turn, v)
	}
	assert.Equal(t, []string{"system", "user", "assistant", "tool"}, v.seen)
}

func TestVisit_PanicsOnNil(t *testing.T) {
	assert.Panics(t, func() { Visit(nil, &recordingVisitor{}) })
}
