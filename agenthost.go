// Package agenthost provides a high-level façade over the agent runtime and
// its services (sessions, user memory, semantic memory search & logging) for
// hosting conversational agents. Most applications interact with this
// package by:
//  1. Creating an AgentHost via New() (optionally overriding the default in-memory store)
//  2. Registering one or more agent definitions
//  3. Sealing the registry with Start() and dispatching runs (or serving them over HTTP via host/httpapi)
//
// The façade delegates execution to agent.Runtime and routing to host.Host
// while keeping setup ergonomics concise. All defaults are safe for local
// development and testing; production deployments typically supply the
// SQLite store and a structured logger.
package agenthost

import (
	"context"

	"github.com/hupe1980/agenthost/agent"
	"github.com/hupe1980/agenthost/core"
	"github.com/hupe1980/agenthost/host"
	"github.com/hupe1980/agenthost/logging"
	"github.com/hupe1980/agenthost/memory"
	"github.com/hupe1980/agenthost/memory/index"
	"github.com/hupe1980/agenthost/provider"
	"github.com/hupe1980/agenthost/store"
)

// Options configures the AgentHost instance.
type Options struct {
	// SessionStore persists conversation turns and memory records. Defaults
	// to an in-memory implementation.
	SessionStore store.SessionStore

	// MemoryIndex, when set, keeps a semantic index of memory records in
	// sync and exposes the search_user_memory tool to every agent.
	MemoryIndex *index.Index

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// AgentHost is the high-level façade aggregating runtimes and services.
type AgentHost struct {
	opts     Options
	memories *memory.Manager
	runtimes []*agent.Runtime
	host     *host.Host
}

// New creates a new AgentHost instance with optional overrides. Any unset
// service is initialized with an in-memory implementation.
func New(optFns ...func(o *Options)) *AgentHost {
	opts := Options{
		SessionStore: store.NewInMemoryStore(),
		Logger:       logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	memories := memory.NewManager(opts.SessionStore, func(o *memory.ManagerOptions) {
		if opts.MemoryIndex != nil {
			o.Index = opts.MemoryIndex
		}
		o.Logger = opts.Logger
	})

	return &AgentHost{opts: opts, memories: memories}
}

// RegisterAgent wires a definition into the shared services and adds it to
// the host. Must be called before Start.
func (h *AgentHost) RegisterAgent(def agent.Definition) error {
	if h.host != nil {
		return core.NewError(core.ErrInvalidArguments, "host already started")
	}

	rt, err := agent.NewRuntime(def, h.opts.SessionStore, h.memories, func(o *agent.RuntimeOptions) {
		o.Logger = h.opts.Logger
		if h.opts.MemoryIndex != nil {
			o.MemorySearchProvider = func(userID string) provider.Provider {
				return index.NewSearchProvider(h.opts.MemoryIndex, userID)
			}
		}
	})
	if err != nil {
		return err
	}

	h.runtimes = append(h.runtimes, rt)
	return nil
}

// Start seals the agent registry. After Start, RegisterAgent fails and
// Dispatch becomes available.
func (h *AgentHost) Start() error {
	if h.host != nil {
		return core.NewError(core.ErrInvalidArguments, "host already started")
	}

	hostInstance, err := host.New(h.runtimes, func(o *host.Options) {
		o.Logger = h.opts.Logger
	})
	if err != nil {
		return err
	}

	h.host = hostInstance
	return nil
}

// Host returns the sealed host, or nil before Start.
func (h *AgentHost) Host() *host.Host { return h.host }

// Dispatch routes one run to the named agent. An empty sessionID starts a
// new session; its generated id is returned in the result.
func (h *AgentHost) Dispatch(ctx context.Context, agentID, userID, sessionID, message string) (*agent.RunResult, error) {
	if h.host == nil {
		return nil, core.NewError(core.ErrInvalidArguments, "host not started")
	}
	return h.host.Dispatch(ctx, agentID, userID, sessionID, message)
}
