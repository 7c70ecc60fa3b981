package agent

import (
	"github.com/rhuss/funcall/pkg/api"
	"github.com/rhuss/funcall/pkg/conversation"
)

// historyRenderer turns transcript turns into client-facing messages.
type historyRenderer struct {
	messages []api.HistoryMessage
}

func (h *historyRenderer) System(t conversation.SystemTurn) {
	h.messages = append(h.messages, api.HistoryMessage{Role: string(conversation.RoleSystem), Content: t.Content})
}

func (h *historyRenderer) User(t conversation.UserTurn) {
	h.messages = append(h.messages, api.HistoryMessage{Role: string(conversation.RoleUser), Content: t.Content})
}

func (h *historyRenderer) Assistant(t conversation.AssistantTurn) {
	msg := api.HistoryMessage{Role: string(conversation.RoleAssistant), Content: t.Content}
	for _, c := range t.Calls {
		msg.ToolCalls = append(msg.ToolCalls, api.ToolCallInfo{ID: c.ID, Name: c.Name, Arguments: c.Arguments})
	}
	h.messages = append(h.messages, msg)
}

func (h *historyRenderer) ToolResult(t conversation.ToolResultTurn) {
	h.messages = append(h.messages, api.HistoryMessage{
		Role:       string(conversation.RoleTool),
		Content:    t.Content,
		ToolCallID: t.CallID,
		Name:       t.Name,
	})
}

// renderHistory renders every turn of tr in order.
func renderHistory(tr *conversation.Transcript) []api.HistoryMessage {
	h := &historyRenderer{}
	for _, turn := range tr.Turns() {
		conversation.Visit(turn, h)
	}
	return h.messages
}
