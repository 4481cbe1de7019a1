package core

import "time"

// MemoryRecord is a durable, agent-curated fact about a user. Records live
// independently of any single session and are only ever replaced whole:
// an update swaps the full content, never a partial merge. The content is
// deliberately free text; its semantic interpretation belongs to the model.
type MemoryRecord struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Touch bumps the update timestamp.
func (r *MemoryRecord) Touch() {
	r.UpdatedAt = time.Now().UTC()
}

// NewMemoryRecord creates a record with a fresh id and timestamps.
func NewMemoryRecord(userID, content string) MemoryRecord {
	now := time.Now().UTC()
	return MemoryRecord{
		ID:        NewID(),
		UserID:    userID,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
