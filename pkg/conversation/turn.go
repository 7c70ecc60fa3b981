package conversation

import (
	"fmt"

	"github.com/rhuss/funcall/pkg/tools"
)

// Role identifies the speaker of a turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Turn is one message unit in a transcript. The set of implementations is
// closed: SystemTurn, UserTurn, AssistantTurn and ToolResultTurn. Consumers
// switch over the concrete type and treat any other value as a programming
// error (see Visit).
type Turn interface {
	Role() Role
	sealed()
}

// SystemTurn carries the fixed instruction text. It is always the first
// turn of a transcript and is never mutated.
type SystemTurn struct {
	Content string
}

// UserTurn carries free text supplied by the caller.
type UserTurn struct {
	Content string
}

// AssistantTurn carries model output: free text, pending invocation
// requests, or both.
type AssistantTurn struct {
	Content string
	Calls   []tools.ToolCall
}

// ToolResultTurn carries the string-serialized outcome of one invocation,
// correlated with the declaring assistant turn by CallID.
type ToolResultTurn struct {
	CallID  string
	Name    string
	Content string
}

func (SystemTurn) Role() Role     { return RoleSystem }
func (UserTurn) Role() Role       { return RoleUser }
func (AssistantTurn) Role() Role  { return RoleAssistant }
func (ToolResultTurn) Role() Role { return RoleTool }

func (SystemTurn) sealed()     {}
func (UserTurn) sealed()       {}
func (AssistantTurn) sealed()  {}
func (ToolResultTurn) sealed() {}

// HasCalls reports whether the assistant turn requests invocations.
func (t AssistantTurn) HasCalls() bool {
	return len(t.Calls) > 0
}

// Visitor has one method per turn variant. Visit dispatches to exactly one
// of them, so adding a variant breaks every Visitor implementation at
// compile time.
type Visitor interface {
	System(SystemTurn)
	User(UserTurn)
	Assistant(AssistantTurn)
	ToolResult(ToolResultTurn)
}

// Visit dispatches t to the matching Visitor method.
func Visit(t Turn, v Visitor) {
	switch turn := t.(type) {
	case SystemTurn:
		v.System(turn)
	case UserTurn:
		v.User(turn)
	case AssistantTurn:
		v.Assistant(turn)
	case ToolResultTurn:
		v.ToolResult(turn)
	default:
		panic(fmt.Sprintf("conversation: unknown turn type %T", t))
	}
}
