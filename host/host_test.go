package host

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agenthost/agent"
	"github.com/hupe1980/agenthost/core"
	"github.com/hupe1980/agenthost/memory"
	"github.com/hupe1980/agenthost/model"
	"github.com/hupe1980/agenthost/store"
)

func newRuntime(t *testing.T, id string, m model.Model) *agent.Runtime {
	t.Helper()

	sessions := store.NewInMemoryStore()
	rt, err := agent.NewRuntime(agent.Definition{ID: id, Model: m}, sessions, memory.NewManager(sessions))
	require.NoError(t, err)

	return rt
}

func TestDispatch(t *testing.T) {
	mock := model.NewMockModel("test").EnqueueResponse(model.Response{Content: "hi from finance", FinishReason: "stop"})

	h, err := New([]*agent.Runtime{
		newRuntime(t, "finance-agent", mock),
		newRuntime(t, "web-agent", model.NewMockModel("test")),
	})
	require.NoError(t, err)

	result, err := h.Dispatch(context.Background(), "finance-agent", "u1", "s1", "hello")
	require.NoError(t, err)
	assert.Equal(t, "hi from finance", result.Response)
}

func TestDispatchUnknownAgent(t *testing.T) {
	h, err := New([]*agent.Runtime{newRuntime(t, "a", model.NewMockModel("test"))})
	require.NoError(t, err)

	_, err = h.Dispatch(context.Background(), "nope", "u1", "s1", "hello")
	assert.True(t, core.IsKind(err, core.ErrUnknownAgent))
}

func TestNewRejectsDuplicatesAndEmpty(t *testing.T) {
	_, err := New(nil)
	assert.True(t, core.IsKind(err, core.ErrInvalidArguments))

	_, err = New([]*agent.Runtime{
		newRuntime(t, "a", model.NewMockModel("test")),
		newRuntime(t, "a", model.NewMockModel("test")),
	})
	assert.True(t, core.IsKind(err, core.ErrInvalidArguments))
}

func TestAgentsSorted(t *testing.T) {
	h, err := New([]*agent.Runtime{
		newRuntime(t, "web-agent", model.NewMockModel("test")),
		newRuntime(t, "finance-agent", model.NewMockModel("test")),
	})
	require.NoError(t, err)

	defs := h.Agents()
	require.Len(t, defs, 2)
	assert.Equal(t, "finance-agent", defs[0].ID)
	assert.Equal(t, "web-agent", defs[1].ID)

	assert.True(t, h.Has("web-agent"))
	assert.False(t, h.Has("other"))
}
