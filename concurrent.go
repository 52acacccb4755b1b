package swarmollama

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/prathyushnallamothu/swarmollama/llm"
)

// ConcurrentResult represents the result from a single agent's execution
type ConcurrentResult struct {
	Name     string
	Response Response
	Error    error
}

// RunConfig holds the configuration for a single run executed alongside others
type RunConfig struct {
	Agent            *Agent
	Messages         []llm.Message
	ContextVariables map[string]interface{}
	Options          []RunOption
}

// NamedRunConfig pairs a RunConfig with the name its result is reported under
type NamedRunConfig struct {
	Name   string
	Config RunConfig
}

// RunConcurrent executes independent runs concurrently, at most limit at a time
// (limit <= 0 means no limit). Results are returned in input order. A cancelled ctx
// stops runs that have not started; runs in flight end as cancelled.
func (s *Swarm) RunConcurrent(ctx context.Context, limit int, configs []NamedRunConfig) []ConcurrentResult {
	results := make([]ConcurrentResult, len(configs))

	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}

	var mu sync.Mutex
	for i, nc := range configs {
		g.Go(func() error {
			result := ConcurrentResult{Name: nc.Name}
			if err := gctx.Err(); err != nil {
				result.Response = Response{Agent: nc.Config.Agent, Status: StatusCancelled}
			} else {
				result.Response, result.Error = s.Run(gctx, nc.Config.Agent, nc.Config.Messages,
					nc.Config.ContextVariables, nc.Config.Options...)
			}

			mu.Lock()
			results[i] = result
			mu.Unlock()
			// one failing run must not cancel its siblings
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// RunConcurrentMap executes the runs in configs concurrently and returns results keyed
// by name
func (s *Swarm) RunConcurrentMap(ctx context.Context, configs map[string]RunConfig) map[string]ConcurrentResult {
	named := make([]NamedRunConfig, 0, len(configs))
	for name, cfg := range configs {
		named = append(named, NamedRunConfig{Name: name, Config: cfg})
	}

	out := make(map[string]ConcurrentResult, len(named))
	for _, r := range s.RunConcurrent(ctx, 0, named) {
		out[r.Name] = r
	}
	return out
}
