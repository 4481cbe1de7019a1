package agenthost

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agenthost/agent"
	"github.com/hupe1980/agenthost/core"
	"github.com/hupe1980/agenthost/model"
)

func TestFacadeLifecycle(t *testing.T) {
	ctx := context.Background()

	mock := model.NewMockModel("test").
		EnqueueResponse(model.Response{Content: "first", FinishReason: "stop"}).
		EnqueueResponse(model.Response{Content: "second", FinishReason: "stop"})

	h := New()
	require.NoError(t, h.RegisterAgent(agent.Definition{ID: "assistant", Model: mock}))
	require.NoError(t, h.Start())

	result, err := h.Dispatch(ctx, "assistant", "u1", "", "hello")
	require.NoError(t, err)
	assert.Equal(t, "first", result.Response)
	require.NotEmpty(t, result.SessionID)

	// Same session continues the conversation.
	result2, err := h.Dispatch(ctx, "assistant", "u1", result.SessionID, "again")
	require.NoError(t, err)
	assert.Equal(t, "second", result2.Response)
	assert.Equal(t, result.SessionID, result2.SessionID)

	// The second request carries the first exchange as history.
	reqs := mock.Requests()
	require.Len(t, reqs, 2)
	require.Len(t, reqs[1].Messages, 3)
	assert.Equal(t, "hello", reqs[1].Messages[0].Content)
	assert.Equal(t, "first", reqs[1].Messages[1].Content)
}

func TestDispatchBeforeStart(t *testing.T) {
	h := New()
	require.NoError(t, h.RegisterAgent(agent.Definition{ID: "a", Model: model.NewMockModel("test")}))

	_, err := h.Dispatch(context.Background(), "a", "u1", "s1", "hi")
	assert.True(t, core.IsKind(err, core.ErrInvalidArguments))
}

func TestRegisterAfterStart(t *testing.T) {
	h := New()
	require.NoError(t, h.RegisterAgent(agent.Definition{ID: "a", Model: model.NewMockModel("test")}))
	require.NoError(t, h.Start())

	err := h.RegisterAgent(agent.Definition{ID: "b", Model: model.NewMockModel("test")})
	assert.True(t, core.IsKind(err, core.ErrInvalidArguments))
}

func TestStartWithoutAgents(t *testing.T) {
	h := New()
	assert.Error(t, h.Start())
}

func TestUnknownAgent(t *testing.T) {
	h := New()
	require.NoError(t, h.RegisterAgent(agent.Definition{ID: "a", Model: model.NewMockModel("test")}))
	require.NoError(t, h.Start())

	_, err := h.Dispatch(context.Background(), "other", "u1", "s1", "hi")
	assert.True(t, core.IsKind(err, core.ErrUnknownAgent))
}
