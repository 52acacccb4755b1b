// Package config loads swarm, backend and agent definitions from YAML files.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/prathyushnallamothu/swarmollama/llm"
)

// Config is the root of a configuration file
type Config struct {
	Backend    BackendConfig `yaml:"backend"`
	Swarm      SwarmConfig   `yaml:"swarm"`
	Logging    LoggingConfig `yaml:"logging"`
	Server     ServerConfig  `yaml:"server"`
	Store      StoreConfig   `yaml:"store"`
	EntryAgent string        `yaml:"entry_agent"`
	Agents     []AgentConfig `yaml:"agents"`
}

// BackendConfig selects the model backend
type BackendConfig struct {
	Provider string        `yaml:"provider"`
	Host     string        `yaml:"host"`
	APIKey   string        `yaml:"api_key"`
	Model    string        `yaml:"model"`
	Timeout  time.Duration `yaml:"timeout"`
}

// SwarmConfig tunes the orchestration loop
type SwarmConfig struct {
	MaxTurns           int           `yaml:"max_turns"`
	MaxAttempts        int           `yaml:"max_attempts"`
	RetryBackoff       time.Duration `yaml:"retry_backoff"`
	MaxBackoff         time.Duration `yaml:"max_backoff"`
	AdvertiseFunctions bool          `yaml:"advertise_functions"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// StoreConfig selects where finished runs are kept
type StoreConfig struct {
	Driver  string `yaml:"driver"` // memory or sqlite
	Path    string `yaml:"path"`
	MaxRuns int    `yaml:"max_runs"`
}

// AgentConfig declares one agent. Instructions may contain {var} placeholders.
type AgentConfig struct {
	Name         string           `yaml:"name"`
	Model        string           `yaml:"model"`
	Instructions string           `yaml:"instructions"`
	Handoffs     []HandoffConfig  `yaml:"handoffs"`
	Functions    []FunctionConfig `yaml:"functions"`
}

// HandoffConfig declares a function that transfers control to another agent
type HandoffConfig struct {
	To          string `yaml:"to"`
	Function    string `yaml:"function"` // defaults to transfer_to_<to>
	Description string `yaml:"description"`
}

// FunctionConfig declares a function answering with a fixed reply. The reply may
// reference context variables with {var} placeholders.
type FunctionConfig struct {
	Name        string                 `yaml:"name"`
	Description string                 `yaml:"description"`
	Reply       string                 `yaml:"reply"`
	Set         map[string]interface{} `yaml:"set"` // context variables updated by the call
}

// Default returns the configuration used for anything a file leaves out
func Default() Config {
	return Config{
		Backend: BackendConfig{
			Provider: string(llm.Ollama),
			Model:    "llama3.2:3b",
			Timeout:  60 * time.Second,
		},
		Swarm: SwarmConfig{
			MaxTurns:     10,
			MaxAttempts:  3,
			RetryBackoff: time.Second,
			MaxBackoff:   30 * time.Second,
		},
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Server:  ServerConfig{Addr: ":8080"},
		Store:   StoreConfig{Driver: "memory", MaxRuns: 1000},
	}
}

// Load reads and validates the configuration file at path
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML data over Default, expanding environment variables, and
// validates the result
func Parse(data []byte) (Config, error) {
	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Config{}, fmt.Errorf("failed to parse YAML: %w", err)
	}

	expanded, err := yaml.Marshal(ExpandEnvVarsInData(raw))
	if err != nil {
		return Config{}, fmt.Errorf("failed to expand environment variables: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(expanded, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var namePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Validate checks agent references and limits
func (c Config) Validate() error {
	var errs []error

	switch llm.LLMProvider(c.Backend.Provider) {
	case llm.Ollama, llm.OpenAI, llm.Gemini, llm.LangChain:
	default:
		errs = append(errs, fmt.Errorf("backend.provider: unsupported provider %q", c.Backend.Provider))
	}
	if c.Swarm.MaxTurns <= 0 {
		errs = append(errs, errors.New("swarm.max_turns must be positive"))
	}
	if c.Swarm.MaxAttempts <= 0 {
		errs = append(errs, errors.New("swarm.max_attempts must be positive"))
	}
	switch c.Store.Driver {
	case "memory":
	case "sqlite":
		if c.Store.Path == "" {
			errs = append(errs, errors.New("store.path is required for the sqlite driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("store.driver: unsupported driver %q", c.Store.Driver))
	}

	names := make(map[string]bool, len(c.Agents))
	for i, a := range c.Agents {
		if a.Name == "" {
			errs = append(errs, fmt.Errorf("agents[%d]: name is required", i))
			continue
		}
		if names[a.Name] {
			errs = append(errs, fmt.Errorf("agents[%d]: duplicate agent %q", i, a.Name))
		}
		names[a.Name] = true
	}

	for _, a := range c.Agents {
		functions := make(map[string]bool)
		for _, h := range a.Handoffs {
			if !names[h.To] {
				errs = append(errs, fmt.Errorf("agent %q: handoff to unknown agent %q", a.Name, h.To))
			}
			functions[h.FunctionName()] = true
		}
		for _, f := range a.Functions {
			if !namePattern.MatchString(f.Name) {
				errs = append(errs, fmt.Errorf("agent %q: invalid function name %q", a.Name, f.Name))
			}
			if functions[f.Name] {
				errs = append(errs, fmt.Errorf("agent %q: duplicate function %q", a.Name, f.Name))
			}
			functions[f.Name] = true
		}
	}

	if c.EntryAgent != "" && !names[c.EntryAgent] {
		errs = append(errs, fmt.Errorf("entry_agent: unknown agent %q", c.EntryAgent))
	}

	return errors.Join(errs...)
}

// FunctionName returns the name of the generated handoff function
func (h HandoffConfig) FunctionName() string {
	if h.Function != "" {
		return h.Function
	}
	return "transfer_to_" + h.To
}

// Settings converts the backend section into llm.Settings
func (b BackendConfig) Settings() llm.Settings {
	return llm.Settings{
		Provider:     llm.LLMProvider(b.Provider),
		Host:         b.Host,
		APIKey:       b.APIKey,
		DefaultModel: b.Model,
		Timeout:      b.Timeout,
	}
}
