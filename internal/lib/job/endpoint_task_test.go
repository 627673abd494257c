package job

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testJobService() *JobService {
	logger := zerolog.Nop()
	return &JobService{logger: &logger}
}

func TestNewEndpointResetTask(t *testing.T) {
	task, err := NewEndpointResetTask(EndpointResetPayload{Reason: "schema change", RequestID: "req-1"})
	require.NoError(t, err)

	assert.Equal(t, TaskEndpointReset, task.Type())

	var p EndpointResetPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &p))
	assert.Equal(t, "schema change", p.Reason)
	assert.Equal(t, "req-1", p.RequestID)
}

func TestEndpointResetHandler(t *testing.T) {
	var got EndpointResetPayload
	h := endpointResetHandler(testJobService(), func(_ context.Context, p EndpointResetPayload) error {
		got = p
		return nil
	})

	task, err := NewEndpointResetTask(EndpointResetPayload{Reason: "admin request", RequestedBy: "ops"})
	require.NoError(t, err)

	require.NoError(t, h(context.Background(), task))
	assert.Equal(t, "ops", got.RequestedBy)
}

func TestEndpointResetHandler_BadPayloadSkipsRetry(t *testing.T) {
	called := false
	h := endpointResetHandler(testJobService(), func(context.Context, EndpointResetPayload) error {
		called = true
		return nil
	})

	err := h(context.Background(), asynq.NewTask(TaskEndpointReset, []byte("{")))

	assert.ErrorIs(t, err, asynq.SkipRetry)
	assert.False(t, called)
}

func TestEndpointResetHandler_PropagatesFailure(t *testing.T) {
	boom := errors.New("redis down")
	h := endpointResetHandler(testJobService(), func(context.Context, EndpointResetPayload) error {
		return boom
	})

	task, err := NewEndpointResetTask(EndpointResetPayload{})
	require.NoError(t, err)

	assert.ErrorIs(t, h(context.Background(), task), boom)
}
