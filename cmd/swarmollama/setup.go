package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/prathyushnallamothu/swarmollama"
	"github.com/prathyushnallamothu/swarmollama/config"
)

const defaultInstructions = "You are a helpful assistant."

// environment is everything a command needs, built from the config file and flags
type environment struct {
	cfg      config.Config
	logger   *slog.Logger
	registry *swarmollama.Registry
	entry    *swarmollama.Agent
}

func (cli *CLI) loadConfig() (config.Config, error) {
	var (
		cfg config.Config
		err error
	)
	if cli.Config != "" {
		cfg, err = config.Load(cli.Config)
		if err != nil {
			return config.Config{}, err
		}
	} else {
		cfg = config.Default()
		cfg.Agents = []config.AgentConfig{{Name: "assistant", Instructions: defaultInstructions}}
	}

	if cli.Provider != "" {
		cfg.Backend.Provider = cli.Provider
	}
	if cli.Host != "" {
		cfg.Backend.Host = cli.Host
	}
	if cli.Model != "" {
		cfg.Backend.Model = cli.Model
	}
	if cli.LogLevel != "" {
		cfg.Logging.Level = cli.LogLevel
	}
	if cli.LogFormat != "" {
		cfg.Logging.Format = cli.LogFormat
	}
	return cfg, cfg.Validate()
}

func (cli *CLI) setup() (*environment, error) {
	cfg, err := cli.loadConfig()
	if err != nil {
		return nil, err
	}

	logger, err := swarmollama.NewLogger(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	slog.SetDefault(logger)

	registry, err := cfg.BuildRegistry()
	if err != nil {
		return nil, err
	}
	entry, err := cfg.EntryAgentFrom(registry)
	if err != nil {
		return nil, err
	}

	return &environment{cfg: cfg, logger: logger, registry: registry, entry: entry}, nil
}

func (env *environment) agent(name string) (*swarmollama.Agent, error) {
	if name == "" {
		return env.entry, nil
	}
	return env.registry.Lookup(name)
}

func (env *environment) swarm(ctx context.Context) (*swarmollama.Swarm, error) {
	return swarmollama.NewSwarmWithConfig(ctx, env.cfg.Backend.Settings(), env.cfg.SwarmConfig(env.logger))
}
