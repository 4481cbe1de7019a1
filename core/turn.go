package core

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Role identifies the author of a Turn.
type Role string

const (
	// RoleUser marks a turn authored by the end user.
	RoleUser Role = "user"
	// RoleAgent marks a turn authored by the agent (model output).
	RoleAgent Role = "agent"
	// RoleTool marks a turn recording a tool invocation result.
	RoleTool Role = "tool"
	// RoleSystem marks internal bookkeeping turns that are never replayed
	// into a model context by the history window.
	RoleSystem Role = "system"
)

// ToolCall is a model-initiated request to invoke a named capability provider
// with structured (JSON encoded) arguments.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments,omitempty"`
}

// Turn is one immutable message in a session. Agent turns may carry the tool
// calls the model requested; tool turns reference the originating call via
// ToolCallID. After a Turn has been appended to a store it must be treated as
// read-only.
type Turn struct {
	ID         string     `json:"id"`
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	ToolName   string     `json:"tool_name,omitempty"`
	Timestamp  time.Time  `json:"timestamp"`
}

// NewID generates a unique identifier for turns, memory records and runs.
func NewID() string { return uuid.NewString() }

func newTurn(role Role, content string) Turn {
	return Turn{
		ID:        NewID(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
}

// NewUserTurn creates a user-authored text turn.
func NewUserTurn(content string) Turn { return newTurn(RoleUser, content) }

// NewAgentTurn creates an agent turn carrying the model's text and any tool
// calls it requested. Either may be empty, but not both.
func NewAgentTurn(content string, toolCalls []ToolCall) Turn {
	t := newTurn(RoleAgent, content)
	t.ToolCalls = toolCalls
	return t
}

// NewToolTurn records the outcome of a tool call. If err is non-nil the error
// text becomes the turn content so the model (and auditors) see the failure.
func NewToolTurn(callID, toolName string, result string, err error) Turn {
	content := result
	if err != nil {
		content = fmt.Sprintf("error: %s", err.Error())
	}
	t := newTurn(RoleTool, content)
	t.ToolCallID = callID
	t.ToolName = toolName
	return t
}

// IsConversational reports whether the turn is plain user/agent dialogue,
// i.e. content the agent should re-see through the default history window.
func (t Turn) IsConversational() bool {
	switch t.Role {
	case RoleUser:
		return true
	case RoleAgent:
		return t.Content != ""
	default:
		return false
	}
}

// HasToolCalls reports whether the turn requests tool execution.
func (t Turn) HasToolCalls() bool { return len(t.ToolCalls) > 0 }

// SessionKey identifies one conversation: an (agent, user, session) triple.
// Turn ordering and append serialization are scoped to a single key.
type SessionKey struct {
	AgentID   string `json:"agent_id"`
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
}

// String renders a stable composite key usable as a map index.
func (k SessionKey) String() string {
	return k.AgentID + "/" + k.UserID + "/" + k.SessionID
}

// Validate reports whether all three components are present.
func (k SessionKey) Validate() error {
	if k.AgentID == "" || k.UserID == "" || k.SessionID == "" {
		return Errorf(ErrInvalidArguments, "session key requires agent, user and session ids, got %q", k.String())
	}
	return nil
}
