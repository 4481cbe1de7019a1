// Package store defines durable persistence for conversation turns and user
// memory records, plus a process-local implementation suited to tests and
// demos. The sqlite subpackage provides the durable implementation.
package store

import (
	"context"

	"github.com/hupe1980/agenthost/core"
)

// SessionStore persists session turns and per-user memory records.
//
// Guarantees every implementation must uphold:
//   - AppendTurn / AppendTurns are atomic and durable before returning;
//     concurrent appends to the same session key are serialized, so readers
//     never observe a partial or interleaved write
//   - AppendTurns commits all turns or none
//   - Reads observe committed turns only, oldest first
//   - An unknown session or user is empty, not an error
//   - Memory mutations are atomic per record; UpsertMemory replaces content
//     whole, never merging partial text
//
// Store faults surface as core.ErrStoreUnavailable; a missing memory record
// on delete surfaces as core.ErrNotFound.
type SessionStore interface {
	// AppendTurn appends a single turn to the session.
	AppendTurn(ctx context.Context, key core.SessionKey, turn core.Turn) error

	// AppendTurns appends the batch atomically: either every turn becomes
	// visible in order, or none do. This is the runtime's all-or-nothing
	// persistence primitive.
	AppendTurns(ctx context.Context, key core.SessionKey, turns []core.Turn) error

	// ReadTurns returns turns oldest first. A limit > 0 returns only the
	// most recent limit turns (still oldest first); 0 returns all.
	ReadTurns(ctx context.Context, key core.SessionKey, limit int) ([]core.Turn, error)

	// ReadMemory returns all memory records for the user, oldest first.
	ReadMemory(ctx context.Context, userID string) ([]core.MemoryRecord, error)

	// UpsertMemory inserts or atomically replaces a memory record.
	UpsertMemory(ctx context.Context, userID string, record core.MemoryRecord) error

	// DeleteMemory removes one record; core.ErrNotFound if it doesn't exist.
	DeleteMemory(ctx context.Context, userID string, recordID string) error
}
