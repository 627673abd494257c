package repository

import (
	"github.com/deppfellow/endpoint-bridge/internal/server"
)

// Repositories is a container for all repository instances.
type Repositories struct {
	Endpoints *EndpointRepository
}

// NewRepositories constructs the repository container on the server's pool.
func NewRepositories(s *server.Server) *Repositories {
	return &Repositories{
		Endpoints: RegistryFor(s.DB.Pool, s.Logger),
	}
}
