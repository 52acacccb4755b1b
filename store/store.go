// Package store persists finished runs so they can be listed and inspected later.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/prathyushnallamothu/swarmollama/llm"
)

// ErrNotFound is returned when no run has the requested ID
var ErrNotFound = errors.New("run not found")

// Run is the persisted record of one run
type Run struct {
	ID               string                 `json:"id"`
	Agent            string                 `json:"agent"`       // agent the run started with
	FinalAgent       string                 `json:"final_agent"` // agent active when it ended
	Status           string                 `json:"status"`
	Turns            int                    `json:"turns"`
	Messages         []llm.Message          `json:"messages"`
	ContextVariables map[string]interface{} `json:"context_variables,omitempty"`
	Handoffs         []Handoff              `json:"handoffs,omitempty"`
	Errors           []string               `json:"errors,omitempty"` // recovered function errors
	Error            string                 `json:"error,omitempty"`  // error that ended the run
	CreatedAt        time.Time              `json:"created_at"`
}

// Handoff mirrors a transfer of control recorded during a run
type Handoff struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Function string `json:"function"`
	Turn     int    `json:"turn"`
}

// Filter narrows List results. Zero fields match everything.
type Filter struct {
	Agent  string // matches either the starting or the final agent
	Status string
	Limit  int
}

func (f Filter) matches(r Run) bool {
	if f.Agent != "" && r.Agent != f.Agent && r.FinalAgent != f.Agent {
		return false
	}
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	return true
}

// Store saves and retrieves runs
type Store interface {
	Save(ctx context.Context, run Run) error
	Get(ctx context.Context, id string) (Run, error)
	// List returns matching runs, newest first
	List(ctx context.Context, filter Filter) ([]Run, error)
	Close() error
}
