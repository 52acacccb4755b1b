package swarmollama

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/prathyushnallamothu/swarmollama/llm"
)

// Swarm runs conversations across agents against a single model backend
type Swarm struct {
	adapter *llm.Adapter
	config  *Config
	logger  *slog.Logger
}

// Config holds configuration options for Swarm
type Config struct {
	MaxTurns       int           // Backend calls allowed per run
	MaxAttempts    int           // Attempts per turn when the backend is unreachable
	RetryBackoff   time.Duration // Delay before the second attempt, doubled afterwards
	MaxBackoff     time.Duration // Upper bound for a single retry delay
	RequestTimeout time.Duration // Deadline for one backend call
	DefaultModel   string        // Used when neither the agent nor the run names a model
	// AdvertiseFunctions appends the active agent's function catalog and the calling
	// convention to its system prompt.
	AdvertiseFunctions bool
	Logger             *slog.Logger
}

// DefaultConfig returns default configuration values
func DefaultConfig() *Config {
	return &Config{
		MaxTurns:       10,
		MaxAttempts:    3,
		RetryBackoff:   time.Second,
		MaxBackoff:     30 * time.Second,
		RequestTimeout: 60 * time.Second,
		DefaultModel:   "llama3.2:3b",
	}
}

// NewSwarm initializes a new Swarm for the backend described by settings
func NewSwarm(ctx context.Context, settings llm.Settings) (*Swarm, error) {
	return NewSwarmWithConfig(ctx, settings, DefaultConfig())
}

// NewSwarmWithConfig initializes a new Swarm with custom configuration
func NewSwarmWithConfig(ctx context.Context, settings llm.Settings, config *Config) (*Swarm, error) {
	client, err := llm.New(ctx, settings)
	if err != nil {
		return nil, err
	}
	provider := settings.Provider
	if provider == "" {
		provider = llm.Ollama
	}
	return newSwarm(client, provider, config), nil
}

// NewSwarmWithCustomProvider creates a Swarm with a custom LLM implementation
func NewSwarmWithCustomProvider(providerImpl llm.LLM, config *Config) *Swarm {
	return newSwarm(providerImpl, "custom", config)
}

func newSwarm(client llm.LLM, provider llm.LLMProvider, config *Config) *Swarm {
	if config == nil {
		config = DefaultConfig()
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Swarm{config: config, logger: logger}
	if client != nil {
		s.adapter = llm.NewAdapter(client, provider, config.RequestTimeout)
	}
	return s
}

// Config returns the swarm's configuration
func (s *Swarm) Config() Config {
	return *s.config
}

// ValidateConnection tests the backend with a minimal request
func (s *Swarm) ValidateConnection(ctx context.Context, model string) error {
	if s.adapter == nil {
		return ErrLLMClientNotReady
	}
	if model == "" {
		model = s.config.DefaultModel
	}
	_, err := s.adapter.Send(ctx, model, []llm.Message{
		{Role: llm.RoleUser, Content: "Test connection"},
	}, false, nil)
	if err != nil {
		return fmt.Errorf("connection test failed: %w", err)
	}
	return nil
}

// RunOption customizes a single run
type RunOption func(*runOptions)

type runOptions struct {
	runID         string
	maxTurns      int
	modelOverride string
	stream        StreamHandler
	hooks         MultiHook
}

// WithMaxTurns overrides Config.MaxTurns for one run
func WithMaxTurns(n int) RunOption {
	return func(o *runOptions) { o.maxTurns = n }
}

// WithModelOverride sends every request of the run to model, whatever the agent says
func WithModelOverride(model string) RunOption {
	return func(o *runOptions) { o.modelOverride = model }
}

// WithStreamHandler streams replies and forwards tokens to handler
func WithStreamHandler(handler StreamHandler) RunOption {
	return func(o *runOptions) { o.stream = handler }
}

// WithHook attaches a hook to the run
func WithHook(hook RunHook) RunOption {
	return func(o *runOptions) {
		if hook != nil {
			o.hooks = append(o.hooks, hook)
		}
	}
}

// WithRunID sets the identifier reported to hooks; a random one is used otherwise
func WithRunID(id string) RunOption {
	return func(o *runOptions) { o.runID = id }
}

// runState is a step of the orchestration loop
type runState int

const (
	stateAwaitingResponse runState = iota
	stateExtracting
	stateExecuting
	stateDone
)

func (st runState) String() string {
	switch st {
	case stateAwaitingResponse:
		return "awaiting_response"
	case stateExtracting:
		return "extracting"
	case stateExecuting:
		return "executing"
	default:
		return "done"
	}
}

// conversation is the mutable state of one run. It is never shared between runs.
type conversation struct {
	id       string
	agent    *Agent
	history  []llm.Message
	vars     map[string]interface{}
	turns    int
	status   RunStatus
	handoffs []Handoff
	errs     []error

	reply   llm.Message   // last backend reply, pending extraction
	cleaned string        // reply content with the call removed
	call    *llm.ToolCall // call pending execution
}

func (c *conversation) response() Response {
	return Response{
		Messages:         c.history,
		Agent:            c.agent,
		ContextVariables: c.vars,
		Status:           c.status,
		Turns:            c.turns,
		Handoffs:         c.handoffs,
		Errors:           c.errs,
	}
}

// Run is the main entry point for agent execution. It loops until a reply carries no
// function call, the turn budget is spent or ctx is done. Only backend and instruction
// failures are returned as errors; the Response is populated in every case.
func (s *Swarm) Run(
	ctx context.Context,
	agent *Agent,
	messages []llm.Message,
	contextVariables map[string]interface{},
	opts ...RunOption,
) (Response, error) {
	o := runOptions{maxTurns: s.config.MaxTurns}
	for _, opt := range opts {
		opt(&o)
	}
	if o.runID == "" {
		o.runID = uuid.NewString()
	}
	if o.maxTurns <= 0 {
		o.maxTurns = DefaultConfig().MaxTurns
	}

	if agent == nil {
		return Response{Status: StatusFailed}, ErrNilAgent
	}
	if s.adapter == nil {
		return Response{Agent: agent, Status: StatusFailed}, ErrLLMClientNotReady
	}

	// A leading system message is replaced by the active agent's instructions
	history := messages
	if len(history) > 0 && history[0].Role == llm.RoleSystem {
		history = history[1:]
	}
	conv := &conversation{
		id:      o.runID,
		agent:   agent,
		history: append(make([]llm.Message, 0, len(history)+2*o.maxTurns), history...),
		vars:    cloneContext(contextVariables),
	}

	logger := s.logger.With("run_id", conv.id)
	logger.Debug("swarm.run.start", "agent", agent.name, "messages", len(conv.history), "max_turns", o.maxTurns)
	o.hooks.OnRunStart(conv.id, agent)

	err := s.loop(ctx, conv, &o, logger)
	resp := conv.response()

	if err != nil {
		logger.Error("swarm.run.failed", "agent", conv.agent.name, "turns", conv.turns, "error", err)
	} else {
		logger.Debug("swarm.run.end", "agent", conv.agent.name, "turns", conv.turns, "status", conv.status)
	}
	o.hooks.OnRunEnd(conv.id, resp, err)
	return resp, err
}

func (s *Swarm) loop(ctx context.Context, conv *conversation, o *runOptions, logger *slog.Logger) error {
	state := stateAwaitingResponse
	for state != stateDone {
		logger.Debug("swarm.state", "state", state.String(), "agent", conv.agent.name, "turn", conv.turns)

		switch state {
		case stateAwaitingResponse:
			if conv.turns >= o.maxTurns {
				logger.Warn("swarm.max_turns_exceeded", "agent", conv.agent.name, "max_turns", o.maxTurns)
				conv.status = StatusMaxTurnsExceeded
				state = stateDone
				continue
			}
			if ctx.Err() != nil {
				conv.status = StatusCancelled
				state = stateDone
				continue
			}

			reply, err := s.takeTurn(ctx, conv, o, logger)
			if err != nil {
				if ctx.Err() != nil {
					conv.status = StatusCancelled
					state = stateDone
					continue
				}
				conv.status = StatusFailed
				return err
			}
			conv.reply = reply
			state = stateExtracting

		case stateExtracting:
			cleaned, call := ExtractToolCall(conv.reply.Content)
			if call == nil {
				conv.history = append(conv.history, conv.reply)
				conv.status = StatusCompleted
				state = stateDone
				continue
			}
			if o.stream != nil {
				o.stream.OnToolCall(*call)
			}
			conv.cleaned, conv.call = cleaned, call
			state = stateExecuting

		case stateExecuting:
			s.execute(ctx, conv, o, logger)
			if conv.status == StatusCompleted {
				state = stateDone
			} else {
				state = stateAwaitingResponse
			}
		}
	}
	return nil
}

// takeTurn resolves the system prompt and obtains the next reply from the backend
func (s *Swarm) takeTurn(ctx context.Context, conv *conversation, o *runOptions, logger *slog.Logger) (llm.Message, error) {
	agent := conv.agent
	prompt, err := ResolveInstructions(agent, conv.vars)
	if err != nil {
		return llm.Message{}, err
	}
	if s.config.AdvertiseFunctions {
		if guidance := FunctionGuidance(agent); guidance != "" {
			if prompt != "" {
				prompt += "\n\n"
			}
			prompt += guidance
		}
	}

	request := make([]llm.Message, 0, len(conv.history)+1)
	if prompt != "" {
		request = append(request, llm.Message{Role: llm.RoleSystem, Content: prompt})
	}
	request = append(request, conv.history...)

	model := agent.model
	if o.modelOverride != "" {
		model = o.modelOverride
	}
	if model == "" {
		model = s.config.DefaultModel
	}

	conv.turns++
	turn := conv.turns
	o.hooks.OnTurnStart(conv.id, agent, turn)
	start := time.Now()

	reply, err := s.send(ctx, conv, o, model, request, logger)
	if err != nil {
		if o.stream != nil {
			o.stream.OnError(err)
		}
		return llm.Message{}, err
	}
	if o.stream != nil {
		o.stream.OnComplete(reply)
	}

	o.hooks.OnTurnComplete(conv.id, agent, turn, time.Since(start))
	logger.Debug("swarm.turn.complete", "agent", agent.name, "turn", turn, "model", model,
		"duration_ms", time.Since(start).Milliseconds())
	return reply, nil
}

// send calls the backend, retrying only when it is unreachable
func (s *Swarm) send(ctx context.Context, conv *conversation, o *runOptions, model string, request []llm.Message, logger *slog.Logger) (llm.Message, error) {
	var onToken llm.TokenHandler
	stream := o.stream != nil
	if stream {
		onToken = o.stream.OnToken
	}

	maxAttempts := s.config.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	for attempt := 1; ; attempt++ {
		if stream {
			o.stream.OnStart(conv.agent)
		}
		reply, err := s.adapter.Send(ctx, model, request, stream, onToken)
		if err == nil {
			return reply, nil
		}
		if ctx.Err() != nil {
			return llm.Message{}, ctx.Err()
		}

		o.hooks.OnBackendError(conv.id, conv.agent, conv.turns, attempt, err)
		if !errors.Is(err, llm.ErrBackendUnreachable) {
			return llm.Message{}, err
		}
		if attempt >= maxAttempts {
			return llm.Message{}, fmt.Errorf("giving up after %d attempts: %w", attempt, err)
		}

		backoff := s.backoff(attempt)
		logger.Warn("swarm.backend.retry", "agent", conv.agent.name, "turn", conv.turns,
			"attempt", attempt, "backoff", backoff, "error", err)
		select {
		case <-ctx.Done():
			return llm.Message{}, ctx.Err()
		case <-time.After(backoff):
		}
	}
}

// backoff returns the delay after the given failed attempt
func (s *Swarm) backoff(attempt int) time.Duration {
	d := s.config.RetryBackoff * time.Duration(1<<uint(attempt-1))
	if s.config.MaxBackoff > 0 && d > s.config.MaxBackoff {
		d = s.config.MaxBackoff
	}
	return d
}

// execute runs the pending call and appends its messages
func (s *Swarm) execute(ctx context.Context, conv *conversation, o *runOptions, logger *slog.Logger) {
	agent, call := conv.agent, *conv.call
	conv.call = nil

	result := ExecuteToolCall(ctx, agent, call, conv.vars)
	o.hooks.OnToolCall(conv.id, agent, call, result)

	assistant := conv.reply
	assistant.Content = conv.cleaned

	if result.Kind == ExecutionNotFound {
		// an unconsumed call ends the run with the cleaned text
		logger.Warn("swarm.function.not_found", "agent", agent.name, "function", call.Function.Name)
		conv.history = append(conv.history, assistant)
		conv.errs = append(conv.errs, result.Err)
		conv.status = StatusCompleted
		return
	}

	assistant.ToolCalls = []llm.ToolCall{call}
	conv.history = append(conv.history, assistant, result.Message)

	if result.Err != nil {
		logger.Warn("swarm.function.failed", "agent", agent.name, "function", call.Function.Name, "error", result.Err)
		conv.errs = append(conv.errs, result.Err)
	} else {
		logger.Debug("swarm.function.executed", "agent", agent.name, "function", call.Function.Name,
			"kind", result.Kind.String(), "duration_ms", result.Duration.Milliseconds())
	}

	for k, v := range result.ContextVariables {
		conv.vars[k] = v
	}

	if result.Kind == ExecutionHandoff {
		handoff := Handoff{
			From:     agent.name,
			To:       result.Agent.name,
			Function: call.Function.Name,
			Turn:     conv.turns,
		}
		conv.handoffs = append(conv.handoffs, handoff)
		conv.agent = result.Agent
		logger.Info("swarm.handoff", "from", handoff.From, "to", handoff.To, "function", handoff.Function)
		o.hooks.OnHandoff(conv.id, handoff)
	}
}
