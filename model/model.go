// Package model defines the vendor-neutral completion contract the agent
// runtime drives. Requests carry resolved instructions, the windowed
// conversation and tool declarations; responses carry either final text, a
// batch of tool calls, or both. Adapters for concrete providers live in
// subpackages (openai, anthropic).
package model

import (
	"context"
	"fmt"

	"github.com/hupe1980/agenthost/core"
)

// Message is one entry of the conversation handed to a model. It mirrors
// core.Turn without timestamps or ids, which providers neither need nor see.
type Message struct {
	Role       core.Role       `json:"role"`
	Content    string          `json:"content"`
	ToolCalls  []core.ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string          `json:"tool_call_id,omitempty"`
	ToolName   string          `json:"tool_name,omitempty"`
}

// ToolDefinition declaratively exposes a callable capability to the model.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"` // JSON Schema subset
}

// Request captures the normalized model input produced by the runtime.
type Request struct {
	Instructions string           `json:"instructions"`
	Messages     []Message        `json:"messages"`
	Tools        []ToolDefinition `json:"tools,omitempty"`
}

// Usage captures token accounting for a completion.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is the completed model output for one request. ToolCalls non-empty
// means the model wants capabilities executed before it can answer.
type Response struct {
	Content      string          `json:"content,omitempty"`
	ToolCalls    []core.ToolCall `json:"tool_calls,omitempty"`
	FinishReason string          `json:"finish_reason,omitempty"`
	Usage        *Usage          `json:"usage,omitempty"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"`
	SupportsTools bool   `json:"supports_tools"`
}

// Model is the completion capability required by the agent runtime. Complete
// blocks until the provider returns a full response or a tool-call request;
// there is no partial output, so persisted turns are always whole.
type Model interface {
	Complete(ctx context.Context, req Request) (*Response, error)

	// Info returns information about the model implementation.
	Info() Info
}

// MessagesFromTurns converts persisted turns into request messages.
func MessagesFromTurns(turns []core.Turn) []Message {
	msgs := make([]Message, 0, len(turns))
	for _, t := range turns {
		msgs = append(msgs, Message{
			Role:       t.Role,
			Content:    t.Content,
			ToolCalls:  t.ToolCalls,
			ToolCallID: t.ToolCallID,
			ToolName:   t.ToolName,
		})
	}
	return msgs
}

// MockModel is a lightweight in-memory Model for tests and examples. It
// replays a scripted sequence of responses and records every request it saw
// so tests can assert on assembled contexts.
type MockModel struct {
	info     Info
	scripted []Response
	errs     []error
	requests []Request
}

// NewMockModel constructs a MockModel with tool support enabled.
func NewMockModel(name string) *MockModel {
	return &MockModel{info: Info{Name: name, Provider: "mock", SupportsTools: true}}
}

// EnqueueResponse appends a scripted response replayed in FIFO order.
func (m *MockModel) EnqueueResponse(resp Response) *MockModel {
	m.scripted = append(m.scripted, resp)
	m.errs = append(m.errs, nil)
	return m
}

// EnqueueError appends a scripted failure replayed in FIFO order.
func (m *MockModel) EnqueueError(err error) *MockModel {
	m.scripted = append(m.scripted, Response{})
	m.errs = append(m.errs, err)
	return m
}

// Requests returns all requests seen so far, in call order.
func (m *MockModel) Requests() []Request { return m.requests }

// Complete implements Model by replaying the scripted queue. When the queue
// is exhausted it echoes the last user message, mirroring a trivial model.
func (m *MockModel) Complete(_ context.Context, req Request) (*Response, error) {
	m.requests = append(m.requests, req)

	if len(m.scripted) > 0 {
		resp, err := m.scripted[0], m.errs[0]
		m.scripted, m.errs = m.scripted[1:], m.errs[1:]
		if err != nil {
			return nil, err
		}
		return &resp, nil
	}

	var lastUser string
	for _, msg := range req.Messages {
		if msg.Role == core.RoleUser {
			lastUser = msg.Content
		}
	}
	return &Response{Content: fmt.Sprintf("Mock response to: %s", lastUser), FinishReason: "stop"}, nil
}

// Info implements Model.
func (m *MockModel) Info() Info { return m.info }
