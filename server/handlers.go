package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/prathyushnallamothu/swarmollama"
	"github.com/prathyushnallamothu/swarmollama/llm"
	"github.com/prathyushnallamothu/swarmollama/store"
)

type errorResponse struct {
	Error string `json:"error"`
}

type functionInfo struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	Parameters  map[string]interface{} `json:"parameters,omitempty"`
}

type agentInfo struct {
	Name         string         `json:"name"`
	Model        string         `json:"model"`
	Instructions string         `json:"instructions,omitempty"`
	Dynamic      bool           `json:"dynamic_instructions"`
	Functions    []functionInfo `json:"functions"`
}

func describeAgent(a *swarmollama.Agent) agentInfo {
	info := agentInfo{
		Name:         a.Name(),
		Model:        a.Model(),
		Instructions: a.Instructions().Text(),
		Dynamic:      a.Instructions().IsDynamic(),
		Functions:    make([]functionInfo, 0),
	}
	for _, fn := range a.Functions() {
		info.Functions = append(info.Functions, functionInfo{
			Name:        fn.Name,
			Description: fn.Description,
			Parameters:  fn.Parameters,
		})
	}
	return info
}

// RunRequest is the body of POST /v1/runs
type RunRequest struct {
	Agent            string                 `json:"agent" binding:"required"`
	Messages         []llm.Message          `json:"messages"`
	ContextVariables map[string]interface{} `json:"context_variables"`
	MaxTurns         int                    `json:"max_turns"`
	Model            string                 `json:"model"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "agents": len(s.registry.Agents())})
}

func (s *Server) listAgents(c *gin.Context) {
	agents := s.registry.Agents()
	out := make([]agentInfo, 0, len(agents))
	for _, a := range agents {
		out = append(out, describeAgent(a))
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) getAgent(c *gin.Context) {
	agent, err := s.registry.Lookup(c.Param("name"))
	if err != nil {
		c.JSON(http.StatusNotFound, errorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, describeAgent(agent))
}

func (s *Server) createRun(c *gin.Context) {
	var req RunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	agent, err := s.registry.Lookup(req.Agent)
	if err != nil {
		c.JSON(http.StatusNotFound, errorResponse{Error: err.Error()})
		return
	}

	ctx := c.Request.Context()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	runID := uuid.NewString()
	opts := []swarmollama.RunOption{swarmollama.WithRunID(runID), swarmollama.WithHook(s.hooks)}
	if req.MaxTurns > 0 {
		opts = append(opts, swarmollama.WithMaxTurns(req.MaxTurns))
	}
	if req.Model != "" {
		opts = append(opts, swarmollama.WithModelOverride(req.Model))
	}

	started := time.Now().UTC()
	resp, runErr := s.swarm.Run(ctx, agent, req.Messages, req.ContextVariables, opts...)
	run := store.FromResponse(runID, agent.Name(), resp, runErr, started)

	c.JSON(statusFor(runErr), run)
}

// statusFor maps the error that ended a run to an HTTP status
func statusFor(err error) int {
	var instructionErr *swarmollama.InstructionError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, llm.ErrBackendUnreachable):
		return http.StatusServiceUnavailable
	case errors.Is(err, llm.ErrModel), errors.Is(err, llm.ErrAdapter):
		return http.StatusBadGateway
	case errors.As(err, &instructionErr):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) listRuns(c *gin.Context) {
	filter := store.Filter{
		Agent:  c.Query("agent"),
		Status: c.Query("status"),
		Limit:  50,
	}
	if limit := c.Query("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, errorResponse{Error: "limit must be a non-negative integer"})
			return
		}
		filter.Limit = n
	}

	runs, err := s.store.List(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, runs)
}

func (s *Server) getRun(c *gin.Context) {
	run, err := s.store.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, errorResponse{Error: err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, run)
}
