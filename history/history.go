// Package history shapes persisted conversation turns into model context.
//
// The default context window contains only conversational turns (user
// messages and non-empty agent replies); tool plumbing is excluded. The full
// transcript stays available on demand through the read_chat_history tool.
package history

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hupe1980/agenthost/core"
	"github.com/hupe1980/agenthost/provider"
	"github.com/hupe1980/agenthost/store"
)

// Window filters turns down to conversational ones and returns the most
// recent size of them, oldest first. size <= 0 returns all conversational
// turns. Tool-call requests on agent turns are stripped: their matching tool
// turns are not in the window, and a dangling request is not valid replay
// context.
func Window(turns []core.Turn, size int) []core.Turn {
	conversational := make([]core.Turn, 0, len(turns))
	for _, turn := range turns {
		if turn.IsConversational() {
			turn.ToolCalls = nil
			conversational = append(conversational, turn)
		}
	}

	if size > 0 && len(conversational) > size {
		conversational = conversational[len(conversational)-size:]
	}

	return conversational
}

// historyEntry is the wire shape of one transcript line returned by the
// read_chat_history tool.
type historyEntry struct {
	Role      string          `json:"role"`
	Content   string          `json:"content,omitempty"`
	ToolName  string          `json:"tool_name,omitempty"`
	ToolCalls []core.ToolCall `json:"tool_calls,omitempty"`
	Timestamp string          `json:"timestamp"`
}

// NewReadProvider returns the read_chat_history tool, bound to a single
// session key. The binding is what keeps an agent from reading transcripts
// of other agents or sessions; callers must construct a fresh provider per
// run.
func NewReadProvider(sessions store.SessionStore, key core.SessionKey) provider.Provider {
	return provider.NewFunctionProvider(
		"read_chat_history",
		"Read the full transcript of the current conversation, including tool activity that is not part of the normal context window.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"limit": map[string]any{
					"type":        "integer",
					"description": "Maximum number of most recent turns to return. Omit for the full transcript.",
				},
			},
		},
		func(ctx context.Context, args map[string]any) (any, error) {
			limit := 0
			if raw, ok := args["limit"]; ok {
				f, ok := raw.(float64)
				if !ok {
					return nil, core.Errorf(core.ErrInvalidArguments, "limit must be an integer, got %T", raw)
				}
				limit = int(f)
			}

			turns, err := sessions.ReadTurns(ctx, key, limit)
			if err != nil {
				return nil, err
			}

			entries := make([]historyEntry, 0, len(turns))
			for _, turn := range turns {
				entries = append(entries, historyEntry{
					Role:      string(turn.Role),
					Content:   turn.Content,
					ToolName:  turn.ToolName,
					ToolCalls: turn.ToolCalls,
					Timestamp: turn.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
				})
			}

			data, err := json.Marshal(entries)
			if err != nil {
				return nil, fmt.Errorf("failed to encode transcript: %w", err)
			}

			return string(data), nil
		},
	)
}
