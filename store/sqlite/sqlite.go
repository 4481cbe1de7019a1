// Package sqlite implements store.SessionStore on SQLite via database/sql.
// Turn ordering per session key is enforced with a monotonic seq column
// assigned inside the append transaction, so concurrent appends to the same
// key serialize at the database and batches commit all-or-nothing.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hupe1980/agenthost/core"
)

// Store is a SQLite-backed SessionStore.
type Store struct {
	db *sql.DB
}

// New opens (and migrates) a SQLite database at dsn. Use ":memory:" for an
// ephemeral store in tests.
//
// Transactions are opened in immediate mode: AppendTurns reads the next seq
// and inserts under one write lock, so concurrent same-key appends queue on
// the busy timeout instead of deadlocking on a shared-to-write lock upgrade.
func New(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite3", withWriteDefaults(dsn))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	// Keep a single connection so schema and data survive across goroutines.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return s, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// withWriteDefaults appends _txlock=immediate and a busy timeout to the DSN
// unless the caller already set them.
func withWriteDefaults(dsn string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	if !strings.Contains(dsn, "_txlock=") {
		dsn += sep + "_txlock=immediate"
		sep = "&"
	}
	if !strings.Contains(dsn, "_busy_timeout=") {
		dsn += sep + "_busy_timeout=5000"
	}
	return dsn
}

func (s *Store) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS turns (
			agent_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			session_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			turn_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			tool_call_id TEXT,
			tool_name TEXT,
			tool_calls TEXT,
			created_at TIMESTAMP NOT NULL,
			PRIMARY KEY (agent_id, user_id, session_id, seq)
		)`,
		`CREATE TABLE IF NOT EXISTS memories (
			user_id TEXT NOT NULL,
			record_id TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			PRIMARY KEY (user_id, record_id)
		)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return err
		}
	}
	return nil
}

// AppendTurn appends a single turn to the session.
func (s *Store) AppendTurn(ctx context.Context, key core.SessionKey, turn core.Turn) error {
	return s.AppendTurns(ctx, key, []core.Turn{turn})
}

// AppendTurns commits the batch in one transaction. The next seq values are
// computed inside the transaction, so two concurrent batches for the same
// session key cannot interleave, and a failed batch leaves the session
// untouched.
func (s *Store) AppendTurns(ctx context.Context, key core.SessionKey, turns []core.Turn) error {
	if err := key.Validate(); err != nil {
		return err
	}
	if len(turns) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return core.WrapError(core.ErrStoreUnavailable, err, "begin append transaction")
	}
	defer tx.Rollback()

	var next int64
	row := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), -1) + 1 FROM turns WHERE agent_id = ? AND user_id = ? AND session_id = ?`,
		key.AgentID, key.UserID, key.SessionID,
	)
	if err := row.Scan(&next); err != nil {
		return core.WrapError(core.ErrStoreUnavailable, err, "read next seq")
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO turns (agent_id, user_id, session_id, seq, turn_id, role, content, tool_call_id, tool_name, tool_calls, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return core.WrapError(core.ErrStoreUnavailable, err, "prepare insert")
	}
	defer stmt.Close()

	for i, turn := range turns {
		var toolCalls sql.NullString
		if len(turn.ToolCalls) > 0 {
			data, merr := json.Marshal(turn.ToolCalls)
			if merr != nil {
				return core.WrapError(core.ErrStoreUnavailable, merr, "encode tool calls")
			}
			toolCalls = sql.NullString{String: string(data), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx,
			key.AgentID, key.UserID, key.SessionID,
			next+int64(i), turn.ID, string(turn.Role), turn.Content,
			nullable(turn.ToolCallID), nullable(turn.ToolName), toolCalls,
			turn.Timestamp.UTC(),
		); err != nil {
			return core.WrapError(core.ErrStoreUnavailable, err, "insert turn")
		}
	}

	if err := tx.Commit(); err != nil {
		return core.WrapError(core.ErrStoreUnavailable, err, "commit append")
	}
	return nil
}

// ReadTurns returns turns oldest first; limit > 0 returns only the most
// recent limit turns.
func (s *Store) ReadTurns(ctx context.Context, key core.SessionKey, limit int) ([]core.Turn, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}

	query := `SELECT turn_id, role, content, tool_call_id, tool_name, tool_calls, created_at
		FROM turns WHERE agent_id = ? AND user_id = ? AND session_id = ? ORDER BY seq`
	args := []any{key.AgentID, key.UserID, key.SessionID}
	if limit > 0 {
		// Take the tail, then restore chronological order.
		query = `SELECT turn_id, role, content, tool_call_id, tool_name, tool_calls, created_at FROM (
			SELECT seq, turn_id, role, content, tool_call_id, tool_name, tool_calls, created_at
			FROM turns WHERE agent_id = ? AND user_id = ? AND session_id = ?
			ORDER BY seq DESC LIMIT ?
		) ORDER BY seq`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, core.WrapError(core.ErrStoreUnavailable, err, "query turns")
	}
	defer rows.Close()

	var turns []core.Turn
	for rows.Next() {
		var (
			turn      core.Turn
			role      string
			toolCall  sql.NullString
			toolName  sql.NullString
			toolCalls sql.NullString
			createdAt time.Time
		)
		if err := rows.Scan(&turn.ID, &role, &turn.Content, &toolCall, &toolName, &toolCalls, &createdAt); err != nil {
			return nil, core.WrapError(core.ErrStoreUnavailable, err, "scan turn")
		}
		turn.Role = core.Role(role)
		turn.ToolCallID = toolCall.String
		turn.ToolName = toolName.String
		turn.Timestamp = createdAt.UTC()
		if toolCalls.Valid {
			if err := json.Unmarshal([]byte(toolCalls.String), &turn.ToolCalls); err != nil {
				return nil, core.WrapError(core.ErrStoreUnavailable, err, "decode tool calls")
			}
		}
		turns = append(turns, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, core.WrapError(core.ErrStoreUnavailable, err, "iterate turns")
	}

	return turns, nil
}

// ReadMemory returns the user's memory records ordered by creation time.
func (s *Store) ReadMemory(ctx context.Context, userID string) ([]core.MemoryRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT record_id, content, created_at, updated_at FROM memories
		 WHERE user_id = ? ORDER BY created_at, record_id`, userID)
	if err != nil {
		return nil, core.WrapError(core.ErrStoreUnavailable, err, "query memories")
	}
	defer rows.Close()

	var records []core.MemoryRecord
	for rows.Next() {
		rec := core.MemoryRecord{UserID: userID}
		if err := rows.Scan(&rec.ID, &rec.Content, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, core.WrapError(core.ErrStoreUnavailable, err, "scan memory record")
		}
		rec.CreatedAt = rec.CreatedAt.UTC()
		rec.UpdatedAt = rec.UpdatedAt.UTC()
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, core.WrapError(core.ErrStoreUnavailable, err, "iterate memories")
	}

	return records, nil
}

// UpsertMemory inserts or atomically replaces a record. The single statement
// guarantees no reader sees a half-written record.
func (s *Store) UpsertMemory(ctx context.Context, userID string, record core.MemoryRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO memories (user_id, record_id, content, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (user_id, record_id)
		 DO UPDATE SET content = excluded.content, updated_at = excluded.updated_at`,
		userID, record.ID, record.Content, record.CreatedAt.UTC(), record.UpdatedAt.UTC(),
	)
	if err != nil {
		return core.WrapError(core.ErrStoreUnavailable, err, "upsert memory record")
	}
	return nil
}

// DeleteMemory removes one record by id.
func (s *Store) DeleteMemory(ctx context.Context, userID string, recordID string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM memories WHERE user_id = ? AND record_id = ?`, userID, recordID)
	if err != nil {
		return core.WrapError(core.ErrStoreUnavailable, err, "delete memory record")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return core.WrapError(core.ErrStoreUnavailable, err, "delete memory record")
	}
	if affected == 0 {
		return core.Errorf(core.ErrNotFound, "memory record %s not found for user %s", recordID, userID)
	}
	return nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
