package api

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestChatRequest_Validate(t *testing.T) {
	tests := []struct {
		name      string
		req       ChatRequest
		wantErr   bool
		wantParam string
	}{
		{"valid", ChatRequest{Message: "hello"}, false, ""},
		{"empty", ChatRequest{Message: ""}, true, "message"},
		{"whitespace only", ChatRequest{Message: "  \n\t"}, true, "message"},
		{"too long", ChatRequest{Message: strings.Repeat("a", MaxMessageLength+1)}, true, "message"},
		{"with conversation", ChatRequest{Message: "hi", ConversationID: "abc", ClearHistory: true}, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil {
				return
			}
			if err.Type != ErrorTypeInvalidRequest {
				t.Errorf("Type = %q, want %q", err.Type, ErrorTypeInvalidRequest)
			}
			if err.Param != tt.wantParam {
				t.Errorf("Param = %q, want %q", err.Param, tt.wantParam)
			}
		})
	}
}

func TestChatRequest_DecodeOptionalFields(t *testing.T) {
	var req ChatRequest
	if err := json.Unmarshal([]byte(`{"message":"hi"}`), &req); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if req.ClearHistory {
		t.Error("clear_history should default to false")
	}
	if req.ConversationID != "" {
		t.Errorf("conversation_id = %q, want empty", req.ConversationID)
	}
}

func TestHistoryMessage_OmitsEmptyCallFields(t *testing.T) {
	data, err := json.Marshal(HistoryMessage{Role: "user", Content: "hi"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	for _, key := range []string{"tool_calls", "tool_call_id", "name"} {
		if _, ok := m[key]; ok {
			t.Errorf("%s should be omitted for a user turn", key)
		}
	}
}
