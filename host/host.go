// Package host exposes a set of agent runtimes behind a single dispatch
// surface. The agent registry is sealed at construction; requests for
// unknown agents fail fast without touching any store.
package host

import (
	"context"
	"sort"

	"github.com/hupe1980/agenthost/agent"
	"github.com/hupe1980/agenthost/core"
	"github.com/hupe1980/agenthost/logging"
)

// Options configures a Host.
type Options struct {
	// Logger receives dispatch telemetry. Defaults to a no-op logger.
	Logger logging.Logger
}

// Host routes run requests to agent runtimes by agent id.
type Host struct {
	runtimes map[string]*agent.Runtime
	logger   logging.Logger
}

// New creates a Host over the given runtimes. At least one runtime is
// required and agent ids must be unique.
func New(runtimes []*agent.Runtime, optFns ...func(o *Options)) (*Host, error) {
	if len(runtimes) == 0 {
		return nil, core.NewError(core.ErrInvalidArguments, "host requires at least one agent")
	}

	opts := Options{
		Logger: logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	byID := make(map[string]*agent.Runtime, len(runtimes))
	for _, rt := range runtimes {
		id := rt.Definition().ID
		if _, exists := byID[id]; exists {
			return nil, core.Errorf(core.ErrInvalidArguments, "duplicate agent id %q", id)
		}
		byID[id] = rt
	}

	return &Host{runtimes: byID, logger: opts.Logger}, nil
}

// Dispatch routes one run request to the named agent.
func (h *Host) Dispatch(ctx context.Context, agentID, userID, sessionID, message string) (*agent.RunResult, error) {
	rt, ok := h.runtimes[agentID]
	if !ok {
		h.logger.Warn("host.dispatch.unknown_agent", "agent_id", agentID)
		return nil, core.Errorf(core.ErrUnknownAgent, "unknown agent %q", agentID)
	}

	return rt.Run(ctx, userID, sessionID, message)
}

// Agents returns the hosted agent definitions, sorted by id.
func (h *Host) Agents() []agent.Definition {
	defs := make([]agent.Definition, 0, len(h.runtimes))
	for _, rt := range h.runtimes {
		defs = append(defs, rt.Definition())
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].ID < defs[j].ID })
	return defs
}

// Has reports whether an agent id is hosted.
func (h *Host) Has(agentID string) bool {
	_, ok := h.runtimes[agentID]
	return ok
}
