package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prathyushnallamothu/swarmollama"
)

// BuildRegistry constructs the configured agents and returns them in a frozen
// registry. Handoff targets are looked up in the registry when the function runs.
func (c Config) BuildRegistry() (*swarmollama.Registry, error) {
	registry, err := swarmollama.NewRegistry()
	if err != nil {
		return nil, err
	}

	for _, ac := range c.Agents {
		functions := make([]swarmollama.AgentFunction, 0, len(ac.Handoffs)+len(ac.Functions))
		for _, h := range ac.Handoffs {
			target := h.To
			description := h.Description
			if description == "" {
				description = fmt.Sprintf("Transfer the conversation to %s.", target)
			}
			functions = append(functions, swarmollama.TransferTo(h.FunctionName(), description, func() *swarmollama.Agent {
				agent, err := registry.Lookup(target)
				if err != nil {
					return nil
				}
				return agent
			}))
		}
		for _, f := range ac.Functions {
			functions = append(functions, replyFunction(f))
		}

		model := ac.Model
		if model == "" {
			model = c.Backend.Model
		}

		opts := []swarmollama.AgentOption{swarmollama.WithFunctions(functions...)}
		if ac.Instructions != "" {
			opts = append(opts, swarmollama.WithInstructionTemplate(ac.Instructions))
		}

		agent, err := swarmollama.NewAgent(ac.Name, model, opts...)
		if err != nil {
			return nil, fmt.Errorf("agent %q: %w", ac.Name, err)
		}
		if err := registry.Register(agent); err != nil {
			return nil, err
		}
	}

	registry.Freeze()
	return registry, nil
}

// replyFunction answers with the rendered reply and applies the configured updates
func replyFunction(f FunctionConfig) swarmollama.AgentFunction {
	return swarmollama.AgentFunction{
		Name:        f.Name,
		Description: f.Description,
		Function: func(ctx context.Context, args string, contextVariables map[string]interface{}) (swarmollama.Result, error) {
			vars := contextVariables
			if args != "" {
				vars["args"] = args
			}
			value, err := swarmollama.RenderTemplate(f.Reply, vars)
			if err != nil {
				return swarmollama.Result{}, err
			}
			return swarmollama.Result{Value: value, ContextVariables: f.Set}, nil
		},
	}
}

// EntryAgentFrom returns the configured entry agent, or the first declared agent
func (c Config) EntryAgentFrom(registry *swarmollama.Registry) (*swarmollama.Agent, error) {
	name := c.EntryAgent
	if name == "" {
		if len(c.Agents) == 0 {
			return nil, errors.New("no agents configured")
		}
		name = c.Agents[0].Name
	}
	return registry.Lookup(name)
}

// SwarmConfig converts the swarm and backend sections into a swarmollama.Config
func (c Config) SwarmConfig(logger *slog.Logger) *swarmollama.Config {
	sc := swarmollama.DefaultConfig()
	sc.MaxTurns = c.Swarm.MaxTurns
	sc.MaxAttempts = c.Swarm.MaxAttempts
	sc.RetryBackoff = c.Swarm.RetryBackoff
	sc.MaxBackoff = c.Swarm.MaxBackoff
	sc.AdvertiseFunctions = c.Swarm.AdvertiseFunctions
	if c.Backend.Timeout > 0 {
		sc.RequestTimeout = c.Backend.Timeout
	}
	if c.Backend.Model != "" {
		sc.DefaultModel = c.Backend.Model
	}
	sc.Logger = logger
	return sc
}
