// Package memory manages long-lived user memory records.
//
// Records are plain text facts scoped to a user and shared across that
// user's agents and sessions. Mutations arrive as directives, usually
// emitted by a model through the update_user_memory tool, and are applied
// in emission order under a per-user lock.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/agenthost/core"
	"github.com/hupe1980/agenthost/logging"
	"github.com/hupe1980/agenthost/store"
)

// Action identifies a memory mutation.
type Action string

const (
	ActionAdd    Action = "add"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Directive is one requested memory mutation. RecordID is required for
// update and delete, Content for add and update. An add may carry a
// pre-assigned RecordID so later directives in the same batch can refer
// to the record before it is durable.
type Directive struct {
	Action   Action `json:"action"`
	RecordID string `json:"id,omitempty"`
	Content  string `json:"content,omitempty"`
}

// Validate checks the directive shape before it touches the store.
func (d Directive) Validate() error {
	switch d.Action {
	case ActionAdd:
		if d.Content == "" {
			return core.NewError(core.ErrInvalidArguments, "add directive requires content")
		}
	case ActionUpdate:
		if d.RecordID == "" {
			return core.NewError(core.ErrInvalidArguments, "update directive requires a record id")
		}
		if d.Content == "" {
			return core.NewError(core.ErrInvalidArguments, "update directive requires content")
		}
	case ActionDelete:
		if d.RecordID == "" {
			return core.NewError(core.ErrInvalidArguments, "delete directive requires a record id")
		}
	default:
		return core.Errorf(core.ErrInvalidArguments, "unknown memory action %q", d.Action)
	}
	return nil
}

// Applied describes one successfully applied directive.
type Applied struct {
	Directive Directive
	RecordID  string
}

// Failed pairs a rejected directive with its error.
type Failed struct {
	Directive Directive
	Err       error
}

// Report summarizes the outcome of applying a batch of directives. Entries
// keep the emission order of the batch.
type Report struct {
	Applied []Applied
	Failed  []Failed
}

// Indexer receives memory mutations for secondary search structures. Index
// failures never fail the directive; the store remains the source of truth.
type Indexer interface {
	Upsert(ctx context.Context, record core.MemoryRecord) error
	Remove(ctx context.Context, userID, recordID string) error
}

// ManagerOptions configures a Manager.
type ManagerOptions struct {
	// Index, when set, is kept in sync with every applied directive.
	Index Indexer

	// Logger for index sync failures. Defaults to a no-op logger.
	Logger logging.Logger
}

// Manager applies memory directives against a SessionStore. Batches for the
// same user are serialized so interleaved runs cannot corrupt each other's
// read-modify-write sequences.
type Manager struct {
	store  store.SessionStore
	index  Indexer
	logger logging.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewManager creates a Manager backed by sessions.
func NewManager(sessions store.SessionStore, optFns ...func(o *ManagerOptions)) *Manager {
	opts := ManagerOptions{
		Logger: logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Manager{
		store:  sessions,
		index:  opts.Index,
		logger: opts.Logger,
		locks:  make(map[string]*sync.Mutex),
	}
}

func (m *Manager) userLock(userID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()

	lock, ok := m.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[userID] = lock
	}
	return lock
}

// Apply executes directives in order and reports per-directive outcomes. A
// failing directive is recorded and skipped; later directives still run.
func (m *Manager) Apply(ctx context.Context, userID string, directives []Directive) *Report {
	report := &Report{}
	if len(directives) == 0 {
		return report
	}

	lock := m.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	for _, d := range directives {
		recordID, err := m.apply(ctx, userID, d)
		if err != nil {
			report.Failed = append(report.Failed, Failed{Directive: d, Err: err})
			continue
		}
		report.Applied = append(report.Applied, Applied{Directive: d, RecordID: recordID})
	}

	return report
}

func (m *Manager) apply(ctx context.Context, userID string, d Directive) (string, error) {
	if err := d.Validate(); err != nil {
		return "", err
	}

	switch d.Action {
	case ActionAdd:
		record := core.NewMemoryRecord(userID, d.Content)
		if d.RecordID != "" {
			record.ID = d.RecordID
		}
		if err := m.store.UpsertMemory(ctx, userID, record); err != nil {
			return "", err
		}
		m.syncUpsert(ctx, record)
		return record.ID, nil

	case ActionUpdate:
		record, err := m.find(ctx, userID, d.RecordID)
		if err != nil {
			return "", err
		}
		record.Content = d.Content
		record.Touch()
		if err := m.store.UpsertMemory(ctx, userID, record); err != nil {
			return "", err
		}
		m.syncUpsert(ctx, record)
		return record.ID, nil

	case ActionDelete:
		if err := m.store.DeleteMemory(ctx, userID, d.RecordID); err != nil {
			return "", err
		}
		m.syncRemove(ctx, userID, d.RecordID)
		return d.RecordID, nil
	}

	return "", core.Errorf(core.ErrInvalidArguments, "unknown memory action %q", d.Action)
}

func (m *Manager) find(ctx context.Context, userID, recordID string) (core.MemoryRecord, error) {
	records, err := m.store.ReadMemory(ctx, userID)
	if err != nil {
		return core.MemoryRecord{}, err
	}
	for _, r := range records {
		if r.ID == recordID {
			return r, nil
		}
	}
	return core.MemoryRecord{}, core.Errorf(core.ErrNotFound, "memory record %s not found for user %s", recordID, userID)
}

func (m *Manager) syncUpsert(ctx context.Context, record core.MemoryRecord) {
	if m.index == nil {
		return
	}
	if err := m.index.Upsert(ctx, record); err != nil {
		m.logger.Warn("memory.index.upsert failed", "user_id", record.UserID, "record_id", record.ID, "error", err)
	}
}

func (m *Manager) syncRemove(ctx context.Context, userID, recordID string) {
	if m.index == nil {
		return
	}
	if err := m.index.Remove(ctx, userID, recordID); err != nil {
		m.logger.Warn("memory.index.remove failed", "user_id", userID, "record_id", recordID, "error", err)
	}
}

// Snapshot renders the user's current memory records as a block suitable
// for inclusion in agent instructions. Returns "" when the user has no
// records.
func Snapshot(records []core.MemoryRecord) string {
	if len(records) == 0 {
		return ""
	}

	out := "What you remember about this user:\n"
	for _, r := range records {
		out += fmt.Sprintf("- [%s] %s\n", r.ID, r.Content)
	}
	return out
}
