package job

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// TaskEndpointReset is the job type of a full endpoint registry reset.
const TaskEndpointReset = "endpoint:reset"

// EndpointResetPayload is the JSON payload of an endpoint reset task.
type EndpointResetPayload struct {
	Reason      string `json:"reason"`
	RequestedBy string `json:"requested_by"`
	RequestID   string `json:"request_id"`
}

// NewEndpointResetTask builds a reset task. Resets requested within the same
// ten seconds collapse into one.
func NewEndpointResetTask(p EndpointResetPayload) (*asynq.Task, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(
		TaskEndpointReset,
		payload,
		asynq.MaxRetry(3),
		asynq.Queue("critical"),
		asynq.Timeout(30*time.Second),
		asynq.Unique(10*time.Second),
	), nil
}

// EnqueueEndpointReset schedules a registry reset.
func (j *JobService) EnqueueEndpointReset(ctx context.Context, p EndpointResetPayload) (*asynq.TaskInfo, error) {
	task, err := NewEndpointResetTask(p)
	if err != nil {
		return nil, fmt.Errorf("failed to build endpoint reset task: %w", err)
	}
	return j.Client.EnqueueContext(ctx, task)
}

// HandleEndpointReset registers fn as the worker for reset tasks.
func (j *JobService) HandleEndpointReset(fn func(ctx context.Context, p EndpointResetPayload) error) {
	j.Handle(TaskEndpointReset, endpointResetHandler(j, fn))
}

func endpointResetHandler(j *JobService, fn func(ctx context.Context, p EndpointResetPayload) error) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var p EndpointResetPayload
		if err := json.Unmarshal(t.Payload(), &p); err != nil {
			// A payload that cannot be decoded will never succeed.
			return fmt.Errorf("failed to unmarshal endpoint reset payload: %v: %w", err, asynq.SkipRetry)
		}

		j.logger.Info().
			Str("type", TaskEndpointReset).
			Str("reason", p.Reason).
			Str("requested_by", p.RequestedBy).
			Str("request_id", p.RequestID).
			Msg("Processing endpoint reset task")

		if err := fn(ctx, p); err != nil {
			j.logger.Error().
				Err(err).
				Str("type", TaskEndpointReset).
				Msg("Failed to reset endpoint registry")
			return err
		}

		j.logger.Info().Str("type", TaskEndpointReset).Msg("Endpoint registry reset")
		return nil
	}
}
