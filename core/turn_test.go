package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewToolTurnCarriesError(t *testing.T) {
	turn := NewToolTurn("call-1", "get_price_metrics", "", errors.New("upstream 503"))

	assert.Equal(t, RoleTool, turn.Role)
	assert.Equal(t, "call-1", turn.ToolCallID)
	assert.Equal(t, "get_price_metrics", turn.ToolName)
	assert.Contains(t, turn.Content, "upstream 503")
}

func TestIsConversational(t *testing.T) {
	assert.True(t, NewUserTurn("hi").IsConversational())
	assert.True(t, NewAgentTurn("hello", nil).IsConversational())

	// A pure tool-call turn has no text the agent should re-see verbatim.
	toolCallOnly := NewAgentTurn("", []ToolCall{{ID: "c1", Name: "web_search"}})
	assert.False(t, toolCallOnly.IsConversational())
	assert.True(t, toolCallOnly.HasToolCalls())

	assert.False(t, NewToolTurn("c1", "web_search", "ok", nil).IsConversational())
}

func TestSessionKeyValidate(t *testing.T) {
	valid := SessionKey{AgentID: "finance-agent", UserID: "u1", SessionID: "s1"}
	assert.NoError(t, valid.Validate())
	assert.Equal(t, "finance-agent/u1/s1", valid.String())

	missing := SessionKey{AgentID: "finance-agent", UserID: "u1"}
	err := missing.Validate()
	assert.Error(t, err)
	assert.Equal(t, ErrInvalidArguments, KindOf(err))
}
