package service

import (
	"github.com/deppfellow/endpoint-bridge/internal/lib/job"
	"github.com/deppfellow/endpoint-bridge/internal/repository"
	"github.com/deppfellow/endpoint-bridge/internal/server"
)

type Services struct {
	Auth     *AuthService
	Endpoint *EndpointService
	Job      *job.JobService
}

// NewServices builds the services and registers the job workers they own.
// resetter clears the routing tables after a registry reset.
func NewServices(s *server.Server, repos *repository.Repositories, resetter Resetter) *Services {
	endpointService := NewEndpointService(s, repos.Endpoints, resetter)

	if s.Job != nil {
		s.Job.HandleEndpointReset(endpointService.Reset)
	}

	return &Services{
		Auth:     NewAuthService(s),
		Endpoint: endpointService,
		Job:      s.Job,
	}
}
