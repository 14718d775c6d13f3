// Package server hosts the dashboard REST API over the benchmark engine.
package server

import (
	"context"
	"fmt"
	"net/http"

	"ecs-bench/internal/api"
	"ecs-bench/internal/archive"
	"ecs-bench/internal/bench"
	"ecs-bench/internal/config"
	"ecs-bench/internal/logging"
)

// HTTPServer serves the REST API for one benchmark engine instance.
type HTTPServer struct {
	config  *config.Config
	logger  *logging.Logger
	server  *http.Server
	handler *api.Handler
}

// NewHTTPServer creates the HTTP server. archiveStore may be nil when the
// archive is disabled.
func NewHTTPServer(cfg *config.Config, controller *bench.Controller, archiveStore *archive.Store, logger *logging.Logger) *HTTPServer {
	return &HTTPServer{
		config:  cfg,
		logger:  logger,
		handler: api.NewHandler(controller, archiveStore, logger),
	}
}

// Start starts serving. It blocks until the server stops.
func (s *HTTPServer) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)

	router := s.handler.SetupRoutes()

	s.server = &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
		IdleTimeout:  s.config.Server.IdleTimeout,
	}

	s.logger.Info("Starting HTTP server",
		"address", addr,
		"service", "http",
	)

	return s.server.ListenAndServe()
}

// Stop shuts the server down gracefully.
func (s *HTTPServer) Stop(ctx context.Context) error {
	if s.server != nil {
		s.logger.Info("Stopping HTTP server")
		return s.server.Shutdown(ctx)
	}
	return nil
}
