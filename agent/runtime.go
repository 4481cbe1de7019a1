package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/hupe1980/agenthost/core"
	"github.com/hupe1980/agenthost/history"
	"github.com/hupe1980/agenthost/internal/util"
	"github.com/hupe1980/agenthost/logging"
	"github.com/hupe1980/agenthost/memory"
	"github.com/hupe1980/agenthost/model"
	"github.com/hupe1980/agenthost/provider"
	"github.com/hupe1980/agenthost/store"
)

// RuntimeOptions configures a Runtime instance.
//
// Use functional options with NewRuntime to override defaults.
type RuntimeOptions struct {
	// Logger receives structured run telemetry. Defaults to a no-op logger.
	Logger logging.Logger

	// RetryBackoff is the initial delay before retrying a retryable model
	// failure; it doubles per retry.
	RetryBackoff time.Duration

	// MemorySearchProvider, when set, is called once per run to bind the
	// search_user_memory tool to the requesting user.
	MemorySearchProvider func(userID string) provider.Provider
}

// Runtime executes runs for one agent definition. A single Runtime is safe
// for concurrent use; all per-run state lives on the stack of Run.
type Runtime struct {
	def      Definition
	sessions store.SessionStore
	memories *memory.Manager
	registry *provider.Registry
	logger   logging.Logger

	retryBackoff time.Duration
	searchFn     func(userID string) provider.Provider
}

// NewRuntime wires a definition to its session store and memory manager.
func NewRuntime(def Definition, sessions store.SessionStore, memories *memory.Manager, optFns ...func(o *RuntimeOptions)) (*Runtime, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}
	if sessions == nil {
		return nil, core.Errorf(core.ErrInvalidArguments, "agent %s has no session store", def.ID)
	}
	if def.EnableAgenticMemory && memories == nil {
		return nil, core.Errorf(core.ErrInvalidArguments, "agent %s enables agentic memory without a memory manager", def.ID)
	}

	opts := RuntimeOptions{
		Logger:       logging.NoOpLogger{},
		RetryBackoff: 250 * time.Millisecond,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	registry, err := provider.NewRegistry(def.Providers...)
	if err != nil {
		return nil, err
	}

	return &Runtime{
		def:          def,
		sessions:     sessions,
		memories:     memories,
		registry:     registry,
		logger:       opts.Logger,
		retryBackoff: opts.RetryBackoff,
		searchFn:     opts.MemorySearchProvider,
	}, nil
}

// Definition returns the runtime's agent definition.
func (r *Runtime) Definition() Definition { return r.def }

// RunResult is the outcome of one completed run.
type RunResult struct {
	// Response is the agent's final conversational reply.
	Response string

	// SessionID identifies the session the run was persisted under. Equal to
	// the requested session id, or freshly generated when none was given.
	SessionID string

	// Turns are the turns this run appended, in persisted order.
	Turns []core.Turn

	// MemoryReport summarizes applied and failed memory directives. Nil when
	// the agent has agentic memory disabled.
	MemoryReport *memory.Report

	// Usage aggregates token accounting over all model calls of the run.
	Usage model.Usage
}

// Run executes one conversational exchange. The user message and every turn
// the exchange produces are persisted in a single atomic batch; when the run
// fails, the session is left exactly as it was. Buffered memory directives
// are applied only after that batch commits.
func (r *Runtime) Run(ctx context.Context, userID, sessionID, message string) (*RunResult, error) {
	if userID == "" {
		return nil, core.NewError(core.ErrInvalidArguments, "user id must not be empty")
	}
	if message == "" {
		return nil, core.NewError(core.ErrInvalidArguments, "message must not be empty")
	}
	if sessionID == "" {
		sessionID = core.NewID()
	}

	key := core.SessionKey{AgentID: r.def.ID, UserID: userID, SessionID: sessionID}

	r.logger.Info("agent.run.start", "agent_id", r.def.ID, "user_id", userID, "session_id", sessionID)

	past, err := r.sessions.ReadTurns(ctx, key, 0)
	if err != nil {
		return nil, err
	}

	records, err := r.sessions.ReadMemory(ctx, userID)
	if err != nil {
		return nil, err
	}

	instructions, err := r.renderInstructions(userID, records)
	if err != nil {
		return nil, err
	}

	buffer := memory.NewBuffer()
	registry, err := r.runRegistry(key, buffer)
	if err != nil {
		return nil, err
	}

	messages := model.MessagesFromTurns(history.Window(past, r.def.historyWindow()))
	userTurn := core.NewUserTurn(message)
	messages = append(messages, model.Message{Role: core.RoleUser, Content: message})

	newTurns := []core.Turn{userTurn}
	tools := toolDefinitions(registry)

	var (
		response string
		usage    model.Usage
	)

	maxDepth := r.def.maxToolDepth()
	for depth := 0; ; depth++ {
		resp, err := r.complete(ctx, model.Request{
			Instructions: instructions,
			Messages:     messages,
			Tools:        tools,
		})
		if err != nil {
			r.logger.Error("agent.run.model_failed", "agent_id", r.def.ID, "session_id", sessionID, "error", err)
			return nil, err
		}

		if resp.Usage != nil {
			usage.PromptTokens += resp.Usage.PromptTokens
			usage.CompletionTokens += resp.Usage.CompletionTokens
			usage.TotalTokens += resp.Usage.TotalTokens
		}

		agentTurn := core.NewAgentTurn(resp.Content, resp.ToolCalls)
		messages = append(messages, model.Message{Role: core.RoleAgent, Content: resp.Content, ToolCalls: resp.ToolCalls})

		if !agentTurn.HasToolCalls() {
			newTurns = append(newTurns, agentTurn)
			response = resp.Content
			break
		}

		// Interim commentary is worth keeping; a bare tool-call request is
		// not a conversational turn. The request itself is recorded on the
		// resulting tool turn.
		if resp.Content != "" {
			newTurns = append(newTurns, agentTurn)
		}

		if depth == maxDepth {
			r.logger.Warn("agent.run.depth_exceeded", "agent_id", r.def.ID, "session_id", sessionID, "max_depth", maxDepth)
			return nil, core.Errorf(core.ErrDepthExceeded, "agent %s exceeded tool depth %d", r.def.ID, maxDepth)
		}

		for _, call := range resp.ToolCalls {
			toolTurn := r.invokeTool(ctx, registry, call)
			// Surface cancellation as the plain context error: it is not
			// retryable and nothing from this run may be persisted.
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			newTurns = append(newTurns, toolTurn)
			messages = append(messages, model.Message{
				Role:       core.RoleTool,
				Content:    toolTurn.Content,
				ToolCallID: toolTurn.ToolCallID,
				ToolName:   toolTurn.ToolName,
			})
		}
	}

	if err := r.sessions.AppendTurns(ctx, key, newTurns); err != nil {
		r.logger.Error("agent.run.persist_failed", "agent_id", r.def.ID, "session_id", sessionID, "error", err)
		return nil, err
	}

	result := &RunResult{
		Response:  response,
		SessionID: sessionID,
		Turns:     newTurns,
		Usage:     usage,
	}

	if r.def.EnableAgenticMemory {
		report := r.memories.Apply(ctx, userID, buffer.Drain())
		result.MemoryReport = report
		for _, f := range report.Failed {
			r.logger.Warn("agent.run.memory_directive_failed", "agent_id", r.def.ID, "user_id", userID, "action", string(f.Directive.Action), "error", f.Err)
		}
	}

	r.logger.Info("agent.run.complete", "agent_id", r.def.ID, "session_id", sessionID, "turns", len(newTurns), "total_tokens", usage.TotalTokens)

	return result, nil
}

func (r *Runtime) renderInstructions(userID string, records []core.MemoryRecord) (string, error) {
	state := map[string]any{
		"current_user_id": userID,
	}
	if r.def.AddDatetimeToContext {
		state["current_datetime"] = time.Now().UTC().Format(time.RFC3339)
	}

	instructions, err := util.RenderTemplate(r.def.Instructions, state)
	if err != nil {
		return "", core.WrapError(core.ErrInvalidArguments, err, "failed to render instructions")
	}

	if snapshot := memory.Snapshot(records); snapshot != "" {
		instructions = instructions + "\n\n" + snapshot
	}

	return instructions, nil
}

// runRegistry derives the per-run tool set: static providers plus the
// built-ins bound to this run's session key and user.
func (r *Runtime) runRegistry(key core.SessionKey, buffer *memory.Buffer) (*provider.Registry, error) {
	var extras []provider.Provider

	if r.def.ReadChatHistory {
		extras = append(extras, history.NewReadProvider(r.sessions, key))
	}
	if r.def.EnableAgenticMemory {
		extras = append(extras, memory.NewUpdateProvider(buffer))
	}
	if r.searchFn != nil {
		extras = append(extras, r.searchFn(key.UserID))
	}

	if len(extras) == 0 {
		return r.registry, nil
	}
	return r.registry.WithExtra(extras...)
}

// complete calls the model, retrying transient failures with doubling
// backoff. Non-retryable failures surface immediately.
func (r *Runtime) complete(ctx context.Context, req model.Request) (*model.Response, error) {
	backoff := r.retryBackoff
	retries := r.def.maxModelRetries()

	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			r.logger.Warn("agent.run.model_retry", "agent_id", r.def.ID, "attempt", attempt, "error", lastErr)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		resp, err := r.def.Model.Complete(ctx, req)
		if err == nil {
			return resp, nil
		}
		if !core.IsRetryable(err) {
			return nil, err
		}
		lastErr = err
	}

	return nil, lastErr
}

// invokeTool executes one tool call and folds the outcome into a tool turn.
// Tool failures do not abort the run; the error text goes back to the model,
// which decides how to proceed.
func (r *Runtime) invokeTool(ctx context.Context, registry *provider.Registry, call core.ToolCall) core.Turn {
	r.logger.Debug("agent.run.tool", "agent_id", r.def.ID, "tool", call.Name, "call_id", call.ID)

	p, err := registry.Get(call.Name)
	if err != nil {
		return toolTurn(call, "", err)
	}

	var args map[string]any
	if call.Arguments != "" {
		if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
			return toolTurn(call, "", core.WrapError(core.ErrInvalidArguments, err, "malformed tool arguments"))
		}
	}

	result, err := p.Invoke(ctx, args)
	if err != nil {
		r.logger.Warn("agent.run.tool_failed", "agent_id", r.def.ID, "tool", call.Name, "error", err)
		return toolTurn(call, "", err)
	}

	return toolTurn(call, stringifyResult(result), nil)
}

// toolTurn records both the originating call and its outcome, so the
// persisted turn is a complete audit of the invocation.
func toolTurn(call core.ToolCall, result string, err error) core.Turn {
	turn := core.NewToolTurn(call.ID, call.Name, result, err)
	turn.ToolCalls = []core.ToolCall{call}
	return turn
}

func stringifyResult(result any) string {
	switch v := result.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(data)
	}
}

// toolDefinitions renders the registry as model-facing declarations, sorted
// by name so assembled requests are deterministic.
func toolDefinitions(registry *provider.Registry) []model.ToolDefinition {
	all := registry.All()
	names := make([]string, 0, len(all))
	for name := range all {
		names = append(names, name)
	}
	sort.Strings(names)

	defs := make([]model.ToolDefinition, 0, len(names))
	for _, name := range names {
		p := all[name]
		defs = append(defs, model.ToolDefinition{
			Name:        p.Name(),
			Description: p.Description(),
			Parameters:  p.Parameters(),
		})
	}
	return defs
}
