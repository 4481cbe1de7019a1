// Package agent implements the conversational runtime: it assembles model
// context from persisted history and user memory, drives the tool loop, and
// persists each completed exchange as one atomic batch of turns.
package agent

import (
	"github.com/hupe1980/agenthost/core"
	"github.com/hupe1980/agenthost/model"
	"github.com/hupe1980/agenthost/provider"
)

// Definition is the static configuration of one agent. Definitions are
// immutable after the runtime is constructed; per-request state (session
// key, memory buffer, bound tools) never leaks into them.
type Definition struct {
	// ID uniquely identifies the agent within a host. Session keys embed it,
	// so renaming an agent orphans its conversations.
	ID string

	// Name is the human-readable display name.
	Name string

	// Description summarizes what the agent does.
	Description string

	// Model produces completions for this agent.
	Model model.Model

	// Instructions is the system prompt template. It may reference
	// {{.current_user_id}} and, when AddDatetimeToContext is set,
	// {{.current_datetime}}.
	Instructions string

	// Providers are the agent's domain tools. Built-in tools
	// (read_chat_history, update_user_memory, search_user_memory) are bound
	// per run and must not appear here.
	Providers []provider.Provider

	// HistoryWindow is the number of conversational turns included in model
	// context. Zero means DefaultHistoryWindow.
	HistoryWindow int

	// MaxToolDepth bounds model/tool round-trips within one run. Zero means
	// DefaultMaxToolDepth.
	MaxToolDepth int

	// MaxModelRetries bounds retries after retryable model failures. The
	// first attempt does not count. Negative disables retries.
	MaxModelRetries int

	// ReadChatHistory exposes the read_chat_history tool, giving the model
	// on-demand access to the full transcript of the current session.
	ReadChatHistory bool

	// EnableAgenticMemory exposes the update_user_memory tool, letting the
	// model curate long-lived facts about the user.
	EnableAgenticMemory bool

	// AddDatetimeToContext makes the current UTC time available to the
	// instruction template.
	AddDatetimeToContext bool
}

const (
	// DefaultHistoryWindow covers the last three user/agent exchanges.
	DefaultHistoryWindow = 6

	DefaultMaxToolDepth    = 8
	DefaultMaxModelRetries = 2
)

// Validate checks that the definition can back a runtime.
func (d Definition) Validate() error {
	if d.ID == "" {
		return core.NewError(core.ErrInvalidArguments, "agent id must not be empty")
	}
	if d.Model == nil {
		return core.Errorf(core.ErrInvalidArguments, "agent %s has no model", d.ID)
	}
	for _, p := range d.Providers {
		switch p.Name() {
		case "read_chat_history", "update_user_memory", "search_user_memory":
			return core.Errorf(core.ErrInvalidArguments, "agent %s registers reserved tool %q", d.ID, p.Name())
		}
	}
	return nil
}

func (d Definition) historyWindow() int {
	if d.HistoryWindow > 0 {
		return d.HistoryWindow
	}
	return DefaultHistoryWindow
}

func (d Definition) maxToolDepth() int {
	if d.MaxToolDepth > 0 {
		return d.MaxToolDepth
	}
	return DefaultMaxToolDepth
}

func (d Definition) maxModelRetries() int {
	if d.MaxModelRetries > 0 {
		return d.MaxModelRetries
	}
	if d.MaxModelRetries < 0 {
		return 0
	}
	return DefaultMaxModelRetries
}
