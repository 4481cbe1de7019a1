// Package httpapi exposes a Host over HTTP using echo.
//
// Routes:
//
//	GET  /health                     liveness probe
//	GET  /agents                     list hosted agents
//	POST /agents/:agent_id/runs      execute one run
package httpapi

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/hupe1980/agenthost/core"
	"github.com/hupe1980/agenthost/host"
	"github.com/hupe1980/agenthost/logging"
)

// RunRequest is the body of POST /agents/:agent_id/runs.
type RunRequest struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id,omitempty"`
	Message   string `json:"message"`
}

// RunResponse is the success body of a run.
type RunResponse struct {
	Response  string `json:"response"`
	SessionID string `json:"session_id"`
}

// ErrorResponse is the error envelope for all failed requests.
type ErrorResponse struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// AgentInfo describes one hosted agent in GET /agents.
type AgentInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
}

// Handler serves the host API.
type Handler struct {
	host   *host.Host
	logger logging.Logger
}

// HandlerOptions configures a Handler.
type HandlerOptions struct {
	Logger logging.Logger
}

// NewHandler creates a Handler for h.
func NewHandler(h *host.Host, optFns ...func(o *HandlerOptions)) *Handler {
	opts := HandlerOptions{
		Logger: logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Handler{host: h, logger: opts.Logger}
}

// Register mounts the API routes on e.
func (h *Handler) Register(e *echo.Echo) {
	e.GET("/health", h.Health)
	e.GET("/agents", h.Agents)
	e.POST("/agents/:agent_id/runs", h.Run)
}

// NewServer returns an echo instance with the API mounted and recovery plus
// request logging middleware installed.
func NewServer(hostInstance *host.Host, optFns ...func(o *HandlerOptions)) *echo.Echo {
	opts := HandlerOptions{
		Logger: logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			opts.Logger.Info("httpapi.request",
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency.String(),
			)
			return nil
		},
	}))

	NewHandler(hostInstance, func(o *HandlerOptions) { *o = opts }).Register(e)

	return e
}

// Health responds 200 while the process is up.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// Agents lists the hosted agents.
func (h *Handler) Agents(c echo.Context) error {
	defs := h.host.Agents()
	infos := make([]AgentInfo, 0, len(defs))
	for _, d := range defs {
		infos = append(infos, AgentInfo{ID: d.ID, Name: d.Name, Description: d.Description})
	}
	return c.JSON(http.StatusOK, infos)
}

// Run executes one run against the agent named in the path.
func (h *Handler) Run(c echo.Context) error {
	agentID := c.Param("agent_id")

	var req RunRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Kind:    string(core.ErrInvalidArguments),
			Message: "malformed request body",
		})
	}

	result, err := h.host.Dispatch(c.Request().Context(), agentID, req.UserID, req.SessionID, req.Message)
	if err != nil {
		h.logger.Warn("httpapi.run.failed", "agent_id", agentID, "user_id", req.UserID, "error", err)
		return c.JSON(statusFor(err), envelope(err))
	}

	return c.JSON(http.StatusOK, RunResponse{
		Response:  result.Response,
		SessionID: result.SessionID,
	})
}

func statusFor(err error) int {
	switch core.KindOf(err) {
	case core.ErrUnknownAgent, core.ErrNotFound:
		return http.StatusNotFound
	case core.ErrInvalidArguments:
		return http.StatusBadRequest
	case core.ErrProviderRefused, core.ErrDepthExceeded:
		return http.StatusUnprocessableEntity
	case core.ErrStoreUnavailable, core.ErrProviderUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func envelope(err error) ErrorResponse {
	var coreErr *core.Error
	if errors.As(err, &coreErr) {
		return ErrorResponse{Kind: string(coreErr.Kind), Message: coreErr.Message}
	}
	return ErrorResponse{Kind: "internal", Message: err.Error()}
}
