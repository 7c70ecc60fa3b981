package api

import (
	"strings"

	"github.com/google/uuid"
)

const callIDPrefix = "call_"

// NewCallID generates an invocation id for calls the inference endpoint
// did not identify itself: "call_" followed by a random UUID.
func NewCallID() string {
	return callIDPrefix + uuid.NewString()
}

// ValidateCallID checks whether id was produced by NewCallID.
func ValidateCallID(id string) bool {
	rest, ok := strings.CutPrefix(id, callIDPrefix)
	if !ok {
		return false
	}
	_, err := uuid.Parse(rest)
	return err == nil
}

// NewConversationID generates a conversation id for clients that did not
// supply one.
func NewConversationID() string {
	return uuid.NewString()
}
