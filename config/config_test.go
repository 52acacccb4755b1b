package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prathyushnallamothu/swarmollama"
	"github.com/prathyushnallamothu/swarmollama/llm"
)

const sampleConfig = `
backend:
  provider: ${TEST_PROVIDER:-ollama}
  host: ${TEST_OLLAMA_HOST}
  timeout: 30s
swarm:
  max_turns: ${TEST_MAX_TURNS:-5}
  advertise_functions: true
store:
  driver: sqlite
  path: runs.db
entry_agent: triage
agents:
  - name: triage
    instructions: Route customers of {company?}.
    handoffs:
      - to: sales
  - name: sales
    model: mistral-nemo:12b
    handoffs:
      - to: triage
        function: back_to_triage
        description: Go back.
    functions:
      - name: place_order
        description: Place an order.
        reply: "Order placed for {user}: {args}"
        set:
          ordered: true
`

func TestParse(t *testing.T) {
	t.Setenv("TEST_OLLAMA_HOST", "http://gpu-box:11434")
	t.Setenv("TEST_MAX_TURNS", "7")

	cfg, err := Parse([]byte(sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "ollama", cfg.Backend.Provider)
	assert.Equal(t, "http://gpu-box:11434", cfg.Backend.Host)
	assert.Equal(t, 30*time.Second, cfg.Backend.Timeout)
	assert.Equal(t, "llama3.2:3b", cfg.Backend.Model)
	assert.Equal(t, 7, cfg.Swarm.MaxTurns)
	assert.Equal(t, 3, cfg.Swarm.MaxAttempts)
	assert.True(t, cfg.Swarm.AdvertiseFunctions)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	require.Len(t, cfg.Agents, 2)
	assert.Equal(t, "transfer_to_sales", cfg.Agents[0].Handoffs[0].FunctionName())
	assert.Equal(t, "back_to_triage", cfg.Agents[1].Handoffs[0].FunctionName())
	assert.Equal(t, true, cfg.Agents[1].Functions[0].Set["ordered"])

	settings := cfg.Backend.Settings()
	assert.Equal(t, llm.Ollama, settings.Provider)
	assert.Equal(t, "llama3.2:3b", settings.DefaultModel)
}

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse([]byte("agents:\n  - name: assistant\n"))
	require.NoError(t, err)

	assert.Equal(t, Default().Swarm, cfg.Swarm)
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, 1000, cfg.Store.MaxRuns)
}

func TestParseInvalidYAML(t *testing.T) {
	_, err := Parse([]byte("agents: [unclosed"))
	assert.ErrorContains(t, err, "failed to parse YAML")
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Backend.Provider = "bedrock"
	cfg.Swarm.MaxTurns = 0
	cfg.Store.Driver = "sqlite"
	cfg.EntryAgent = "ghost"
	cfg.Agents = []AgentConfig{
		{Name: "a", Handoffs: []HandoffConfig{{To: "nowhere"}}},
		{Name: "a"},
		{},
		{Name: "b", Functions: []FunctionConfig{{Name: "bad-name"}, {Name: "f"}, {Name: "f"}}},
	}

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{
		`unsupported provider "bedrock"`,
		"swarm.max_turns must be positive",
		"store.path is required",
		`duplicate agent "a"`,
		"agents[2]: name is required",
		`handoff to unknown agent "nowhere"`,
		`invalid function name "bad-name"`,
		`duplicate function "f"`,
		`entry_agent: unknown agent "ghost"`,
	} {
		assert.ErrorContains(t, err, want)
	}

	assert.NoError(t, Default().Validate())
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agents.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "triage", cfg.EntryAgent)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config")
}

func TestLoadExampleConfig(t *testing.T) {
	cfg, err := Load("../examples/config/agents.yaml")
	require.NoError(t, err)

	registry, err := cfg.BuildRegistry()
	require.NoError(t, err)
	assert.Len(t, registry.Agents(), 3)
}

func TestBuildRegistry(t *testing.T) {
	cfg, err := Parse([]byte(sampleConfig))
	require.NoError(t, err)

	registry, err := cfg.BuildRegistry()
	require.NoError(t, err)
	assert.True(t, registry.Frozen())

	triage, err := cfg.EntryAgentFrom(registry)
	require.NoError(t, err)
	assert.Equal(t, "triage", triage.Name())
	assert.Equal(t, "llama3.2:3b", triage.Model())

	prompt, err := swarmollama.ResolveInstructions(triage, map[string]interface{}{"company": "Bee Inc"})
	require.NoError(t, err)
	assert.Equal(t, "Route customers of Bee Inc.", prompt)

	transfer, ok := triage.Function("transfer_to_sales")
	require.True(t, ok)
	assert.Equal(t, "Transfer the conversation to sales.", transfer.Description)
	result, err := transfer.Function(context.Background(), "{}", map[string]interface{}{})
	require.NoError(t, err)
	require.NotNil(t, result.Agent)
	assert.Equal(t, "sales", result.Agent.Name())
	assert.Equal(t, "mistral-nemo:12b", result.Agent.Model())

	order, ok := result.Agent.Function("place_order")
	require.True(t, ok)
	reply, err := order.Function(context.Background(), "2 hives", map[string]interface{}{"user": "james"})
	require.NoError(t, err)
	assert.Equal(t, "Order placed for james: 2 hives", reply.Value)
	assert.Equal(t, map[string]interface{}{"ordered": true}, reply.ContextVariables)

	_, err = order.Function(context.Background(), "2 hives", map[string]interface{}{})
	assert.ErrorContains(t, err, "missing context variables: user")
}

func TestEntryAgentFromFirstAgent(t *testing.T) {
	cfg := Default()
	cfg.Agents = []AgentConfig{{Name: "first"}, {Name: "second"}}
	registry, err := cfg.BuildRegistry()
	require.NoError(t, err)

	agent, err := cfg.EntryAgentFrom(registry)
	require.NoError(t, err)
	assert.Equal(t, "first", agent.Name())

	_, err = Default().EntryAgentFrom(registry)
	assert.Error(t, err)
}

func TestSwarmConfig(t *testing.T) {
	cfg := Default()
	cfg.Backend.Model = "qwen2.5:7b"
	cfg.Backend.Timeout = 5 * time.Second
	cfg.Swarm.MaxTurns = 4
	cfg.Swarm.AdvertiseFunctions = true

	sc := cfg.SwarmConfig(nil)

	assert.Equal(t, 4, sc.MaxTurns)
	assert.Equal(t, 3, sc.MaxAttempts)
	assert.Equal(t, 5*time.Second, sc.RequestTimeout)
	assert.Equal(t, "qwen2.5:7b", sc.DefaultModel)
	assert.True(t, sc.AdvertiseFunctions)
}

func TestExpandEnvVarsInData(t *testing.T) {
	t.Setenv("TEST_NAME", "bee")
	t.Setenv("TEST_PORT", "8081")
	t.Setenv("TEST_DEBUG", "true")

	got := ExpandEnvVarsInData(map[string]interface{}{
		"name":    "${TEST_NAME}-hive",
		"port":    "${TEST_PORT}",
		"debug":   "${TEST_DEBUG}",
		"ratio":   "${TEST_RATIO:-0.5}",
		"missing": "${TEST_UNSET_VARIABLE}",
		"literal": "plain",
		"list":    []interface{}{"${TEST_NAME}", 3},
	})

	assert.Equal(t, map[string]interface{}{
		"name":    "bee-hive",
		"port":    8081,
		"debug":   true,
		"ratio":   0.5,
		"missing": "",
		"literal": "plain",
		"list":    []interface{}{"bee", 3},
	}, got)
}

func TestLoadEnvFiles(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env.local"), []byte("TEST_ENV_LOCAL=local\nTEST_ENV_BOTH=local\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("TEST_ENV_BOTH=shared\nTEST_ENV_SHARED=shared\n"), 0o644))
	t.Setenv("TEST_ENV_LOCAL", "")
	t.Setenv("TEST_ENV_BOTH", "")
	t.Setenv("TEST_ENV_SHARED", "")
	os.Unsetenv("TEST_ENV_LOCAL")
	os.Unsetenv("TEST_ENV_BOTH")
	os.Unsetenv("TEST_ENV_SHARED")

	require.NoError(t, LoadEnvFiles())

	assert.Equal(t, "local", os.Getenv("TEST_ENV_LOCAL"))
	assert.Equal(t, "local", os.Getenv("TEST_ENV_BOTH"))
	assert.Equal(t, "shared", os.Getenv("TEST_ENV_SHARED"))
}
