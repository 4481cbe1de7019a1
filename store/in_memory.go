package store

import (
	"context"
	"sort"
	"sync"

	"github.com/hupe1980/agenthost/core"
)

// InMemoryStore is a volatile SessionStore keeping sessions and memory
// records in process-local maps. It is safe for concurrent access and best
// suited for tests or ephemeral demo servers. Reads return copies so callers
// cannot mutate stored state.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]core.Turn
	memories map[string]map[string]core.MemoryRecord // userID -> recordID -> record
}

// NewInMemoryStore constructs an empty in-memory session store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		sessions: make(map[string][]core.Turn),
		memories: make(map[string]map[string]core.MemoryRecord),
	}
}

// AppendTurn appends a single turn to the session.
func (s *InMemoryStore) AppendTurn(ctx context.Context, key core.SessionKey, turn core.Turn) error {
	return s.AppendTurns(ctx, key, []core.Turn{turn})
}

// AppendTurns appends the batch under one lock acquisition, which makes the
// write atomic and serializes concurrent appends to the same key.
func (s *InMemoryStore) AppendTurns(ctx context.Context, key core.SessionKey, turns []core.Turn) error {
	if err := key.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(turns) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	k := key.String()
	s.sessions[k] = append(s.sessions[k], turns...)
	return nil
}

// ReadTurns returns turns oldest first; limit > 0 keeps only the tail.
func (s *InMemoryStore) ReadTurns(ctx context.Context, key core.SessionKey, limit int) ([]core.Turn, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	turns := s.sessions[key.String()]
	if limit > 0 && len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	out := make([]core.Turn, len(turns))
	copy(out, turns)
	return out, nil
}

// ReadMemory returns the user's memory records ordered by creation time.
func (s *InMemoryStore) ReadMemory(ctx context.Context, userID string) ([]core.MemoryRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	records := make([]core.MemoryRecord, 0, len(s.memories[userID]))
	for _, rec := range s.memories[userID] {
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].ID < records[j].ID
		}
		return records[i].CreatedAt.Before(records[j].CreatedAt)
	})
	return records, nil
}

// UpsertMemory inserts or replaces the record whole.
func (s *InMemoryStore) UpsertMemory(ctx context.Context, userID string, record core.MemoryRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.memories[userID]; !ok {
		s.memories[userID] = make(map[string]core.MemoryRecord)
	}
	s.memories[userID][record.ID] = record
	return nil
}

// DeleteMemory removes one record by id.
func (s *InMemoryStore) DeleteMemory(ctx context.Context, userID string, recordID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	userMemories, ok := s.memories[userID]
	if !ok {
		return core.Errorf(core.ErrNotFound, "memory record %s not found for user %s", recordID, userID)
	}
	if _, ok := userMemories[recordID]; !ok {
		return core.Errorf(core.ErrNotFound, "memory record %s not found for user %s", recordID, userID)
	}
	delete(userMemories, recordID)
	return nil
}
