package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	swarm "github.com/prathyushnallamothu/swarmollama"
	"github.com/prathyushnallamothu/swarmollama/llm"
)

var epoch = time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

func sampleRun(id, agent, final, status string, minute int) Run {
	return Run{
		ID:         id,
		Agent:      agent,
		FinalAgent: final,
		Status:     status,
		Turns:      2,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: "hi"},
			{Role: llm.RoleAssistant, Content: "", ToolCalls: []llm.ToolCall{{ID: "call_1", Type: "function", Function: llm.ToolCallFunction{Name: "transfer", Arguments: "{}"}}}},
			{Role: llm.RoleTool, Name: "transfer", ToolCallID: "call_1", Content: `{"assistant":"` + final + `"}`},
		},
		ContextVariables: map[string]interface{}{"user": "james"},
		Handoffs:         []Handoff{{From: agent, To: final, Function: "transfer", Turn: 1}},
		CreatedAt:        epoch.Add(time.Duration(minute) * time.Minute),
	}
}

// testStore exercises the behavior every Store must share
func testStore(t *testing.T, s Store) {
	ctx := context.Background()

	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	runs := []Run{
		sampleRun("r1", "triage", "sales", "completed", 1),
		sampleRun("r2", "triage", "refunds", "failed", 2),
		sampleRun("r3", "sales", "sales", "completed", 3),
	}
	runs[1].Error = "model error: boom"
	runs[1].Errors = []string{`agent "triage" has no function "x"`}
	for _, r := range runs {
		require.NoError(t, s.Save(ctx, r))
	}

	got, err := s.Get(ctx, "r2")
	require.NoError(t, err)
	assert.Equal(t, runs[1].Messages, got.Messages)
	assert.Equal(t, runs[1].Handoffs, got.Handoffs)
	assert.Equal(t, runs[1].Errors, got.Errors)
	assert.Equal(t, "model error: boom", got.Error)
	assert.Equal(t, "james", got.ContextVariables["user"])
	assert.True(t, runs[1].CreatedAt.Equal(got.CreatedAt))

	all, err := s.List(ctx, Filter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"r3", "r2", "r1"}, ids(all))

	bySales, err := s.List(ctx, Filter{Agent: "sales"})
	require.NoError(t, err)
	assert.Equal(t, []string{"r3", "r1"}, ids(bySales))

	completed, err := s.List(ctx, Filter{Status: "completed", Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"r3"}, ids(completed))

	none, err := s.List(ctx, Filter{Agent: "nobody"})
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)

	replaced := runs[0]
	replaced.Status = "cancelled"
	require.NoError(t, s.Save(ctx, replaced))
	got, err = s.Get(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "cancelled", got.Status)

	all, err = s.List(ctx, Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func ids(runs []Run) []string {
	out := make([]string, len(runs))
	for i, r := range runs {
		out[i] = r.ID
	}
	return out
}

func TestMemoryStore(t *testing.T) {
	testStore(t, NewMemoryStore(0))
}

func TestSQLiteStore(t *testing.T) {
	s, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer s.Close()

	testStore(t, s)
}

func TestSQLiteStorePersists(t *testing.T) {
	path := t.TempDir() + "/runs.db"
	ctx := context.Background()

	s, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, sampleRun("r1", "triage", "sales", "completed", 1)))
	require.NoError(t, s.Close())

	reopened, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Get(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "sales", got.FinalAgent)
}

func TestMemoryStoreEvictsOldest(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(2)
	for i := 1; i <= 3; i++ {
		require.NoError(t, s.Save(ctx, sampleRun(fmt.Sprintf("r%d", i), "a", "a", "completed", i)))
	}

	_, err := s.Get(ctx, "r1")
	assert.ErrorIs(t, err, ErrNotFound)

	all, err := s.List(ctx, Filter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"r3", "r2"}, ids(all))
}

func TestMemoryStoreSerializeAndLoad(t *testing.T) {
	ctx := context.Background()
	original := NewMemoryStore(10)
	require.NoError(t, original.Save(ctx, sampleRun("r1", "triage", "sales", "completed", 1)))
	require.NoError(t, original.Save(ctx, sampleRun("r2", "triage", "sales", "completed", 2)))

	data, err := original.Serialize()
	require.NoError(t, err)

	restored := NewMemoryStore(1)
	require.NoError(t, restored.Load(data))

	all, err := restored.List(ctx, Filter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"r2"}, ids(all))

	assert.Error(t, restored.Load([]byte("not json")))
}

func TestFromResponse(t *testing.T) {
	sales := swarm.MustNewAgent("sales", "m")
	resp := swarm.Response{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "hi"}},
		Agent:    sales,
		Status:   swarm.StatusFailed,
		Turns:    3,
		Handoffs: []swarm.Handoff{{From: "triage", To: "sales", Function: "transfer_to_sales", Turn: 1}},
		Errors:   []error{errors.New("function failed")},
	}

	run := FromResponse("id-1", "triage", resp, errors.New("backend down"), epoch)

	assert.Equal(t, "id-1", run.ID)
	assert.Equal(t, "triage", run.Agent)
	assert.Equal(t, "sales", run.FinalAgent)
	assert.Equal(t, "failed", run.Status)
	assert.Equal(t, 3, run.Turns)
	assert.Equal(t, []Handoff{{From: "triage", To: "sales", Function: "transfer_to_sales", Turn: 1}}, run.Handoffs)
	assert.Equal(t, []string{"function failed"}, run.Errors)
	assert.Equal(t, "backend down", run.Error)
	assert.Equal(t, epoch, run.CreatedAt)
}

func TestFromResponseWithoutAgent(t *testing.T) {
	run := FromResponse("id-1", "triage", swarm.Response{Status: swarm.StatusFailed}, swarm.ErrNilAgent, epoch)

	assert.Equal(t, "triage", run.FinalAgent)
	assert.Equal(t, swarm.ErrNilAgent.Error(), run.Error)
}

type failingStore struct {
	*MemoryStore
}

func (failingStore) Save(context.Context, Run) error { return errors.New("disk full") }

func TestRecorder(t *testing.T) {
	s := NewMemoryStore(0)
	rec := NewRecorder(s, nil)
	triage := swarm.MustNewAgent("triage", "m")
	sales := swarm.MustNewAgent("sales", "m")

	rec.OnRunStart("run-1", triage)
	rec.OnRunEnd("run-1", swarm.Response{Agent: sales, Status: swarm.StatusCompleted, Turns: 2}, nil)

	run, err := s.Get(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, "triage", run.Agent)
	assert.Equal(t, "sales", run.FinalAgent)
	assert.Equal(t, "completed", run.Status)
	assert.False(t, run.CreatedAt.IsZero())
}

func TestRecorderLogsSaveFailure(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	rec := NewRecorder(failingStore{NewMemoryStore(0)}, logger)

	rec.OnRunEnd("run-1", swarm.Response{Agent: swarm.MustNewAgent("a", "m"), Status: swarm.StatusCompleted}, nil)

	assert.Contains(t, buf.String(), "store.save.failed")
	assert.Contains(t, buf.String(), "disk full")
}
