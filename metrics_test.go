package swarmollama

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/prathyushnallamothu/swarmollama/llm"
)

// TestMetricsHook tests the collectors against a run with a retry, a failed function
// and a handoff
func TestMetricsHook(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics, err := NewMetricsHook(reg)
	require.NoError(t, err)

	m := new(MockLLM)
	sw := newTestSwarm(m)

	target := MustNewAgent("refunds", "test-model")
	agent := MustNewAgent("triage", "test-model", WithFunctions(
		TransferTo("transfer_to_refunds", "", func() *Agent { return target }),
		AgentFunction{Name: "lookup", Function: func(context.Context, string, map[string]interface{}) (Result, error) {
			return Result{}, errors.New("offline")
		}},
	))

	m.On("CreateChatCompletion", mock.Anything, mock.Anything).Return(llm.ChatCompletionResponse{}, connRefused()).Once()
	m.On("CreateChatCompletion", mock.Anything, mock.Anything).Return(reply("[lookup(42)]"), nil).Once()
	m.On("CreateChatCompletion", mock.Anything, mock.Anything).Return(reply("[transfer_to_refunds()]"), nil).Once()
	m.On("CreateChatCompletion", mock.Anything, mock.Anything).Return(reply("Refund done."), nil).Once()

	_, err = sw.Run(context.Background(), agent, userMessages("refund"), nil, WithHook(metrics))
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.runs.WithLabelValues("completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.backendErrors.WithLabelValues("backend_unreachable")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.toolCalls.WithLabelValues("triage", "lookup", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.toolCalls.WithLabelValues("triage", "transfer_to_refunds", "handoff")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.handoffs.WithLabelValues("triage", "refunds")))
	assert.Equal(t, 2, testutil.CollectAndCount(metrics.turnDuration))

	count, err := testutil.GatherAndCount(reg, "swarmollama_tool_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestNewMetricsHookDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewMetricsHook(reg)
	require.NoError(t, err)

	_, err = NewMetricsHook(reg)
	assert.Error(t, err)
}
