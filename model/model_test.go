package model

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agenthost/core"
)

func TestMockModel_ScriptedReplay(t *testing.T) {
	m := NewMockModel("scripted").
		EnqueueResponse(Response{ToolCalls: []core.ToolCall{{ID: "c1", Name: "web_search", Arguments: `{"q":"AAPL"}`}}}).
		EnqueueResponse(Response{Content: "AAPL trades at a P/E of 31.2", FinishReason: "stop"})

	first, err := m.Complete(context.Background(), Request{})
	require.NoError(t, err)
	require.Len(t, first.ToolCalls, 1)
	assert.Equal(t, "web_search", first.ToolCalls[0].Name)

	second, err := m.Complete(context.Background(), Request{})
	require.NoError(t, err)
	assert.Empty(t, second.ToolCalls)
	assert.Contains(t, second.Content, "P/E")

	assert.Len(t, m.Requests(), 2)
}

func TestMockModel_FallbackEcho(t *testing.T) {
	m := NewMockModel("echo")

	resp, err := m.Complete(context.Background(), Request{Messages: []Message{
		{Role: core.RoleUser, Content: "hello"},
	}})
	require.NoError(t, err)
	assert.Equal(t, "Mock response to: hello", resp.Content)
}

func TestMessagesFromTurns(t *testing.T) {
	turns := []core.Turn{
		core.NewUserTurn("What is AAPL's P/E?"),
		core.NewAgentTurn("", []core.ToolCall{{ID: "c1", Name: "get_price_metrics"}}),
		core.NewToolTurn("c1", "get_price_metrics", `{"pe":31.2}`, nil),
	}

	msgs := MessagesFromTurns(turns)
	require.Len(t, msgs, 3)
	assert.Equal(t, core.RoleUser, msgs[0].Role)
	assert.Len(t, msgs[1].ToolCalls, 1)
	assert.Equal(t, "c1", msgs[2].ToolCallID)
}
