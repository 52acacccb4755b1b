package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/prathyushnallamothu/swarmollama"
	"github.com/prathyushnallamothu/swarmollama/llm"
	"github.com/prathyushnallamothu/swarmollama/server"
	"github.com/prathyushnallamothu/swarmollama/store"
	"github.com/prathyushnallamothu/swarmollama/visualization"
)

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// ChatCmd starts an interactive session.
type ChatCmd struct {
	Agent  string `help:"Agent to start with (defaults to the entry agent)."`
	Stream bool   `help:"Print tokens as they arrive."`
}

func (c *ChatCmd) Run(cli *CLI) error {
	env, err := cli.setup()
	if err != nil {
		return err
	}
	agent, err := env.agent(c.Agent)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	client, err := env.swarm(ctx)
	if err != nil {
		return err
	}

	var opts []swarmollama.RunOption
	if c.Stream {
		opts = append(opts, swarmollama.WithStreamHandler(&tokenPrinter{}))
	}
	return swarmollama.RunDemoLoop(ctx, client, agent, opts...)
}

// tokenPrinter writes streamed tokens to stdout
type tokenPrinter struct {
	swarmollama.DefaultStreamHandler
}

func (p *tokenPrinter) OnStart(agent *swarmollama.Agent) {
	fmt.Printf("\033[94m%s\033[0m: ", agent.Name())
}

func (p *tokenPrinter) OnToken(token string) { fmt.Print(token) }

func (p *tokenPrinter) OnComplete(llm.Message) { fmt.Println() }

// RunCmd sends one message and prints the transcript.
type RunCmd struct {
	Message  string            `arg:"" help:"User message."`
	Agent    string            `help:"Agent to start with (defaults to the entry agent)."`
	Var      map[string]string `help:"Context variable (key=value)." placeholder:"KEY=VALUE"`
	MaxTurns int               `help:"Turn budget for the run (0 uses the configured one)."`
	JSON     bool              `name:"json" help:"Print the run as JSON."`
}

func (c *RunCmd) Run(cli *CLI) error {
	env, err := cli.setup()
	if err != nil {
		return err
	}
	agent, err := env.agent(c.Agent)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	client, err := env.swarm(ctx)
	if err != nil {
		return err
	}

	vars := make(map[string]interface{}, len(c.Var))
	for k, v := range c.Var {
		vars[k] = v
	}
	var opts []swarmollama.RunOption
	if c.MaxTurns > 0 {
		opts = append(opts, swarmollama.WithMaxTurns(c.MaxTurns))
	}

	messages := []llm.Message{{Role: llm.RoleUser, Content: c.Message}}
	started := time.Now().UTC()
	resp, runErr := client.Run(ctx, agent, messages, vars, opts...)

	if c.JSON {
		run := store.FromResponse("", agent.Name(), resp, runErr, started)
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(run); err != nil {
			return err
		}
		return runErr
	}

	if runErr != nil {
		return runErr
	}
	swarmollama.PrintMessages(os.Stdout, resp.Agent, resp.Messages[len(messages):])
	if resp.Status != swarmollama.StatusCompleted {
		fmt.Fprintf(os.Stderr, "run ended: %s\n", resp.Status)
	}
	for _, e := range resp.Errors {
		fmt.Fprintf(os.Stderr, "warning: %v\n", e)
	}
	return nil
}

// ServeCmd starts the HTTP API.
type ServeCmd struct {
	Addr       string        `help:"Address to listen on (defaults to server.addr)."`
	RunTimeout time.Duration `help:"Deadline for a single run." default:"5m"`
	NoEvents   bool          `help:"Disable the /ws event stream."`
	NoMetrics  bool          `help:"Disable /metrics."`
}

func (c *ServeCmd) Run(cli *CLI) error {
	env, err := cli.setup()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	client, err := env.swarm(ctx)
	if err != nil {
		return err
	}

	var runs store.Store
	switch env.cfg.Store.Driver {
	case "sqlite":
		runs, err = store.NewSQLiteStore(env.cfg.Store.Path)
		if err != nil {
			return err
		}
	default:
		runs = store.NewMemoryStore(env.cfg.Store.MaxRuns)
	}
	defer runs.Close()

	opts := server.Options{
		Store:      runs,
		RunTimeout: c.RunTimeout,
		Logger:     env.logger,
	}
	if !c.NoEvents {
		events := visualization.NewServer(env.logger)
		go events.Run(ctx)
		opts.Events = events
	}
	if !c.NoMetrics {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		metrics, err := swarmollama.NewMetricsHook(reg)
		if err != nil {
			return err
		}
		opts.Gatherer = reg
		opts.Hooks = append(opts.Hooks, metrics)
	}

	addr := c.Addr
	if addr == "" {
		addr = env.cfg.Server.Addr
	}
	return server.New(client, env.registry, opts).ListenAndServe(ctx, addr)
}

// AgentsCmd lists configured agents.
type AgentsCmd struct{}

func (c *AgentsCmd) Run(cli *CLI) error {
	env, err := cli.setup()
	if err != nil {
		return err
	}

	for _, a := range env.registry.Agents() {
		marker := " "
		if a == env.entry {
			marker = "*"
		}
		names := make([]string, 0)
		for _, fn := range a.Functions() {
			names = append(names, fn.Name)
		}
		fmt.Printf("%s %-20s %-20s %s\n", marker, a.Name(), a.Model(), strings.Join(names, ", "))
	}
	return nil
}
