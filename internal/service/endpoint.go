package service

import (
	"context"

	"github.com/deppfellow/endpoint-bridge/internal/lib/job"
	"github.com/deppfellow/endpoint-bridge/internal/server"
	"github.com/hibiken/asynq"
	"github.com/pkg/errors"
)

// VersionBumper advances the registry version.
type VersionBumper interface {
	Bump(ctx context.Context) (int64, error)
}

// Resetter clears routing tables after a registry reset.
type Resetter interface {
	Reset(ctx context.Context) error
}

// EndpointService runs full endpoint registry resets.
type EndpointService struct {
	server   *server.Server
	bumper   VersionBumper
	resetter Resetter
}

// NewEndpointService creates the service. A nil bumper skips the version bump,
// for registries that are not stored in the database.
func NewEndpointService(s *server.Server, bumper VersionBumper, resetter Resetter) *EndpointService {
	return &EndpointService{
		server:   s,
		bumper:   bumper,
		resetter: resetter,
	}
}

// RequestReset queues a registry reset for the job worker.
func (s *EndpointService) RequestReset(ctx context.Context, p job.EndpointResetPayload) (*asynq.TaskInfo, error) {
	if s.server.Job == nil {
		return nil, errors.New("job service not configured")
	}
	info, err := s.server.Job.EnqueueEndpointReset(ctx, p)
	if err != nil {
		return nil, errors.Wrap(err, "failed to enqueue endpoint reset")
	}
	return info, nil
}

// Reset bumps the registry version and clears the routing tables of every
// instance. It is the worker of endpoint:reset tasks.
func (s *EndpointService) Reset(ctx context.Context, p job.EndpointResetPayload) error {
	if s.bumper != nil {
		version, err := s.bumper.Bump(ctx)
		if err != nil {
			return errors.Wrap(err, "failed to bump registry version")
		}
		s.server.Logger.Info().
			Int64("version", version).
			Str("reason", p.Reason).
			Msg("endpoint registry version bumped")
	}

	if err := s.resetter.Reset(ctx); err != nil {
		return errors.Wrap(err, "failed to reset routing tables")
	}
	return nil
}
