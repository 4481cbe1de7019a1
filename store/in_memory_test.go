package store

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agenthost/core"
)

// Interface compliance (compile-time assertion)
var _ SessionStore = (*InMemoryStore)(nil)

func testKey(session string) core.SessionKey {
	return core.SessionKey{AgentID: "finance-agent", UserID: "u1", SessionID: session}
}

func TestInMemoryStore_AppendAndReadOrder(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()
	key := testKey("s1")

	const n = 25
	want := make([]string, 0, n)
	for i := 0; i < n; i++ {
		turn := core.NewUserTurn(fmt.Sprintf("turn %d", i))
		want = append(want, turn.ID)
		require.NoError(t, s.AppendTurn(ctx, key, turn))
	}

	turns, err := s.ReadTurns(ctx, key, 0)
	require.NoError(t, err)
	require.Len(t, turns, n)
	for i, turn := range turns {
		assert.Equal(t, want[i], turn.ID, "turn %d out of order", i)
	}
}

func TestInMemoryStore_ReadLimitReturnsTail(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()
	key := testKey("s1")

	for i := 0; i < 10; i++ {
		require.NoError(t, s.AppendTurn(ctx, key, core.NewUserTurn(fmt.Sprintf("turn %d", i))))
	}

	turns, err := s.ReadTurns(ctx, key, 3)
	require.NoError(t, err)
	require.Len(t, turns, 3)
	assert.Equal(t, "turn 7", turns[0].Content)
	assert.Equal(t, "turn 9", turns[2].Content)

	// Fewer turns than the limit returns everything, no padding, no error.
	short, err := s.ReadTurns(ctx, testKey("s2"), 3)
	require.NoError(t, err)
	assert.Empty(t, short)
}

func TestInMemoryStore_ConcurrentDistinctKeys(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	const sessions = 8
	const perSession = 50
	var wg sync.WaitGroup
	for i := 0; i < sessions; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := testKey(fmt.Sprintf("s%d", i))
			for j := 0; j < perSession; j++ {
				_ = s.AppendTurn(ctx, key, core.NewUserTurn(fmt.Sprintf("%d/%d", i, j)))
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < sessions; i++ {
		turns, err := s.ReadTurns(ctx, testKey(fmt.Sprintf("s%d", i)), 0)
		require.NoError(t, err)
		assert.Len(t, turns, perSession, "session %d lost or gained turns", i)
	}
}

func TestInMemoryStore_ConcurrentSameKeySerialized(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()
	key := testKey("shared")

	const writers = 4
	const perWriter = 50
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < perWriter; j++ {
				// Batches must never interleave.
				batch := []core.Turn{
					core.NewUserTurn(fmt.Sprintf("w%d-first", i)),
					core.NewAgentTurn(fmt.Sprintf("w%d-second", i), nil),
				}
				_ = s.AppendTurns(ctx, key, batch)
			}
		}(i)
	}
	wg.Wait()

	turns, err := s.ReadTurns(ctx, key, 0)
	require.NoError(t, err)
	require.Len(t, turns, writers*perWriter*2)
	for i := 0; i < len(turns); i += 2 {
		assert.Equal(t, core.RoleUser, turns[i].Role)
		assert.Equal(t, core.RoleAgent, turns[i+1].Role)
		// Both halves of a batch come from the same writer.
		assert.Equal(t, turns[i].Content[:2], turns[i+1].Content[:2])
	}
}

func TestInMemoryStore_ReadIsDefensiveCopy(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()
	key := testKey("s1")
	require.NoError(t, s.AppendTurn(ctx, key, core.NewUserTurn("original")))

	turns, err := s.ReadTurns(ctx, key, 0)
	require.NoError(t, err)
	turns[0].Content = "mutated"

	again, err := s.ReadTurns(ctx, key, 0)
	require.NoError(t, err)
	assert.Equal(t, "original", again[0].Content)
}

func TestInMemoryStore_MemoryLifecycle(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	records, err := s.ReadMemory(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, records, "unknown user is empty, not an error")

	rec := core.NewMemoryRecord("u1", "user prefers dark-mode")
	require.NoError(t, s.UpsertMemory(ctx, "u1", rec))

	// Update replaces content atomically under the same id.
	rec.Content = "user prefers concise answers"
	require.NoError(t, s.UpsertMemory(ctx, "u1", rec))

	records, err = s.ReadMemory(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "user prefers concise answers", records[0].Content)

	require.NoError(t, s.DeleteMemory(ctx, "u1", rec.ID))
	err = s.DeleteMemory(ctx, "u1", rec.ID)
	require.Error(t, err)
	assert.Equal(t, core.ErrNotFound, core.KindOf(err))
}

func TestInMemoryStore_InvalidKeyRejected(t *testing.T) {
	s := NewInMemoryStore()
	err := s.AppendTurn(context.Background(), core.SessionKey{}, core.NewUserTurn("x"))
	require.Error(t, err)
	assert.Equal(t, core.ErrInvalidArguments, core.KindOf(err))
}
