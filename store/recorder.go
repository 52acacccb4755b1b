package store

import (
	"context"
	"log/slog"
	"sync"
	"time"

	swarm "github.com/prathyushnallamothu/swarmollama"
)

// FromResponse builds the persisted record of a finished run
func FromResponse(id, startAgent string, resp swarm.Response, runErr error, createdAt time.Time) Run {
	run := Run{
		ID:               id,
		Agent:            startAgent,
		Status:           string(resp.Status),
		Turns:            resp.Turns,
		Messages:         resp.Messages,
		ContextVariables: resp.ContextVariables,
		CreatedAt:        createdAt,
	}
	if resp.Agent != nil {
		run.FinalAgent = resp.Agent.Name()
	}
	if run.FinalAgent == "" {
		run.FinalAgent = startAgent
	}
	for _, h := range resp.Handoffs {
		run.Handoffs = append(run.Handoffs, Handoff(h))
	}
	for _, e := range resp.Errors {
		run.Errors = append(run.Errors, e.Error())
	}
	if runErr != nil {
		run.Error = runErr.Error()
	}
	return run
}

// Recorder is a swarm.RunHook that saves every run to a Store when it ends
type Recorder struct {
	swarm.DefaultRunHook

	store  Store
	logger *slog.Logger

	mu      sync.Mutex
	pending map[string]pendingRun
}

type pendingRun struct {
	agent   string
	started time.Time
}

// NewRecorder creates a Recorder writing to s. Save failures are logged to logger.
func NewRecorder(s Store, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{store: s, logger: logger, pending: make(map[string]pendingRun)}
}

func (r *Recorder) OnRunStart(runID string, agent *swarm.Agent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending[runID] = pendingRun{agent: agent.Name(), started: time.Now().UTC()}
}

func (r *Recorder) OnRunEnd(runID string, resp swarm.Response, err error) {
	r.mu.Lock()
	p, ok := r.pending[runID]
	delete(r.pending, runID)
	r.mu.Unlock()

	if !ok {
		p.started = time.Now().UTC()
		if resp.Agent != nil {
			p.agent = resp.Agent.Name()
		}
	}

	run := FromResponse(runID, p.agent, resp, err, p.started)
	// the run's own context may already be cancelled
	if saveErr := r.store.Save(context.Background(), run); saveErr != nil {
		r.logger.Error("store.save.failed", "run_id", runID, "error", saveErr)
	}
}
