// Package api provides the HTTP surface of the forkd service.
package api

import (
	"context"

	"github.com/forktv/forkd/internal/cleaner"
	"github.com/forktv/forkd/internal/config"
	"github.com/forktv/forkd/internal/recdb"
)

// Server handles the fork API endpoints. The store handle is injected and
// its lifecycle is owned by the caller.
type Server struct {
	cfg     config.Config
	store   *recdb.Store
	cleaner *cleaner.Cleaner

	// runCleanup allows tests to stub the background cleanup job.
	runCleanup func(ctx context.Context, folderPath string)
}

// ServerOption allows functional configuration of the Server.
type ServerOption func(*Server)

// WithCleanupRunner overrides the background cleanup job (for tests).
func WithCleanupRunner(run func(ctx context.Context, folderPath string)) ServerOption {
	return func(s *Server) {
		s.runCleanup = run
	}
}

// New builds a Server over the given store and cleaner.
func New(cfg config.Config, store *recdb.Store, cl *cleaner.Cleaner, opts ...ServerOption) *Server {
	s := &Server{
		cfg:     cfg,
		store:   store,
		cleaner: cl,
	}
	s.runCleanup = cl.Run
	for _, opt := range opts {
		opt(s)
	}
	return s
}
