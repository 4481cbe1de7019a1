package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/agenthost/core"
	"github.com/hupe1980/agenthost/provider"
)

// Buffer collects directives emitted during a single run. Directives are
// not applied while the run's tool loop is in flight; the runtime drains
// the buffer after the conversation turns have been persisted.
type Buffer struct {
	mu         sync.Mutex
	directives []Directive
}

// NewBuffer creates an empty buffer for one run.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// Append records a directive in emission order.
func (b *Buffer) Append(d Directive) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.directives = append(b.directives, d)
}

// Drain returns the buffered directives and resets the buffer.
func (b *Buffer) Drain() []Directive {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.directives
	b.directives = nil
	return out
}

// Len reports the number of buffered directives.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.directives)
}

// NewUpdateProvider returns the update_user_memory tool. Invocations only
// validate and buffer the directive; the acknowledgement tells the model
// the mutation is accepted, not yet durable. Adds are assigned their record
// id here so the model can update or delete the record later in the same
// run.
func NewUpdateProvider(buffer *Buffer) provider.Provider {
	return provider.NewFunctionProvider(
		"update_user_memory",
		"Record, revise or remove a long-lived fact about the current user. Use add for new facts, update to replace the content of an existing record, delete to remove one.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"action": map[string]any{
					"type":        "string",
					"enum":        []string{"add", "update", "delete"},
					"description": "The mutation to perform.",
				},
				"id": map[string]any{
					"type":        "string",
					"description": "Record id. Required for update and delete; assigned automatically for add.",
				},
				"content": map[string]any{
					"type":        "string",
					"description": "Full replacement content. Required for add and update.",
				},
			},
			"required": []string{"action"},
		},
		func(ctx context.Context, args map[string]any) (any, error) {
			d := Directive{}
			if v, ok := args["action"].(string); ok {
				d.Action = Action(v)
			}
			if v, ok := args["id"].(string); ok {
				d.RecordID = v
			}
			if v, ok := args["content"].(string); ok {
				d.Content = v
			}

			if err := d.Validate(); err != nil {
				return nil, err
			}

			if d.Action == ActionAdd && d.RecordID == "" {
				d.RecordID = core.NewID()
			}

			buffer.Append(d)

			return fmt.Sprintf("memory update accepted, record id: %s", d.RecordID), nil
		},
	)
}
