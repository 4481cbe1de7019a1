package history

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agenthost/core"
	"github.com/hupe1980/agenthost/store"
)

func TestWindowFiltersToolTurns(t *testing.T) {
	turns := []core.Turn{
		core.NewUserTurn("what is AAPL at?"),
		core.NewAgentTurn("", []core.ToolCall{{ID: "c1", Name: "get_price_metrics", Arguments: "{}"}}),
		core.NewToolTurn("c1", "get_price_metrics", `{"price":231.4}`, nil),
		core.NewAgentTurn("Let me check that.", []core.ToolCall{{ID: "c2", Name: "web_search", Arguments: "{}"}}),
		core.NewAgentTurn("AAPL is at $231.40.", nil),
		core.NewUserTurn("and MSFT?"),
	}

	window := Window(turns, 0)
	require.Len(t, window, 4)
	assert.Equal(t, "what is AAPL at?", window[0].Content)
	assert.Equal(t, "Let me check that.", window[1].Content)
	assert.Equal(t, "AAPL is at $231.40.", window[2].Content)
	assert.Equal(t, "and MSFT?", window[3].Content)

	// Dangling tool-call requests never replay into context.
	assert.Empty(t, window[1].ToolCalls)
}

func TestWindowSize(t *testing.T) {
	var turns []core.Turn
	for i := 0; i < 6; i++ {
		turns = append(turns, core.NewUserTurn("q"), core.NewAgentTurn("a", nil))
	}

	window := Window(turns, 4)
	require.Len(t, window, 4)

	window = Window(turns, 100)
	assert.Len(t, window, 12)

	assert.Empty(t, Window(nil, 4))
}

func TestReadProviderReturnsFullTranscript(t *testing.T) {
	ctx := context.Background()
	sessions := store.NewInMemoryStore()
	key := core.SessionKey{AgentID: "a", UserID: "u", SessionID: "s"}

	require.NoError(t, sessions.AppendTurns(ctx, key, []core.Turn{
		core.NewUserTurn("hi"),
		core.NewAgentTurn("", []core.ToolCall{{ID: "c1", Name: "web_search", Arguments: `{"query":"news"}`}}),
		core.NewToolTurn("c1", "web_search", "results", nil),
		core.NewAgentTurn("here you go", nil),
	}))

	p := NewReadProvider(sessions, key)
	assert.Equal(t, "read_chat_history", p.Name())

	result, err := p.Invoke(ctx, nil)
	require.NoError(t, err)

	var entries []map[string]any
	require.NoError(t, json.Unmarshal([]byte(result.(string)), &entries))
	require.Len(t, entries, 4)
	assert.Equal(t, "tool", entries[2]["role"])
	assert.Equal(t, "web_search", entries[2]["tool_name"])
}

func TestReadProviderLimit(t *testing.T) {
	ctx := context.Background()
	sessions := store.NewInMemoryStore()
	key := core.SessionKey{AgentID: "a", UserID: "u", SessionID: "s"}

	for i := 0; i < 5; i++ {
		require.NoError(t, sessions.AppendTurn(ctx, key, core.NewUserTurn("msg")))
	}

	p := NewReadProvider(sessions, key)
	result, err := p.Invoke(ctx, map[string]any{"limit": float64(2)})
	require.NoError(t, err)

	var entries []map[string]any
	require.NoError(t, json.Unmarshal([]byte(result.(string)), &entries))
	assert.Len(t, entries, 2)
}

func TestReadProviderBoundToKey(t *testing.T) {
	ctx := context.Background()
	sessions := store.NewInMemoryStore()

	other := core.SessionKey{AgentID: "other-agent", UserID: "u", SessionID: "s"}
	require.NoError(t, sessions.AppendTurn(ctx, other, core.NewUserTurn("secret")))

	p := NewReadProvider(sessions, core.SessionKey{AgentID: "a", UserID: "u", SessionID: "s"})
	result, err := p.Invoke(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", result)
}
