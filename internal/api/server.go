// Package api provides the HTTP REST API and WebSocket server for
// SceneSync.
//
// It exposes scenario activation, room shutdown, shadow-state reads and
// activation history to user interfaces (wall panels, mobile apps, web
// admin), plus a WebSocket hub for real-time transition events.
//
// The server follows the same lifecycle pattern as other infrastructure
// components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nerrad567/scenesync/internal/infrastructure/config"
	"github.com/nerrad567/scenesync/internal/infrastructure/logging"
	"github.com/nerrad567/scenesync/internal/orchestrator"
	"github.com/nerrad567/scenesync/internal/registry"
	"github.com/nerrad567/scenesync/internal/scenario"
	"github.com/nerrad567/scenesync/internal/shadow"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight
// requests to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Engine is the transition engine surface the API drives. The
// orchestrator satisfies this; tests substitute a mock.
type Engine interface {
	Activate(ctx context.Context, scenarioID string) (*orchestrator.ActivationResult, error)
	ShutdownRoom(ctx context.Context, roomID string) (*orchestrator.ActivationResult, error)
	ActiveScenario() string
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config      config.APIConfig
	WS          config.WebSocketConfig
	Security    config.SecurityConfig
	Logger      *logging.Logger
	Devices     *registry.Registry
	Scenarios   *scenario.Registry
	Engine      Engine
	Shadow      *shadow.Store
	Activations orchestrator.ActivationRepository // optional; history endpoint 503s without it
	ExternalHub *Hub                              // if set, the server uses this hub instead of creating its own
	Version     string
}

// Server is the HTTP API server for SceneSync.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg         config.APIConfig
	wsCfg       config.WebSocketConfig
	secCfg      config.SecurityConfig
	logger      *logging.Logger
	devices     *registry.Registry
	scenarios   *scenario.Registry
	engine      Engine
	shadow      *shadow.Store
	activations orchestrator.ActivationRepository
	version     string
	server      *http.Server
	hub         *Hub
	cancel      context.CancelFunc // cancels background goroutines on Close()
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Devices == nil || deps.Scenarios == nil {
		return nil, fmt.Errorf("device and scenario registries are required")
	}
	if deps.Engine == nil {
		return nil, fmt.Errorf("transition engine is required")
	}
	if deps.Shadow == nil {
		return nil, fmt.Errorf("shadow store is required")
	}

	s := &Server{
		cfg:         deps.Config,
		wsCfg:       deps.WS,
		secCfg:      deps.Security,
		logger:      deps.Logger,
		devices:     deps.Devices,
		scenarios:   deps.Scenarios,
		engine:      deps.Engine,
		shadow:      deps.Shadow,
		activations: deps.Activations,
		version:     deps.Version,
		hub:         deps.ExternalHub,
	}

	return s, nil
}

// Hub returns the server's WebSocket hub, creating it if needed. Exposed
// so the orchestrator can be given the hub as its broadcaster before the
// server starts.
func (s *Server) Hub() *Hub {
	if s.hub == nil {
		s.hub = NewHub(s.wsCfg, s.logger)
	}
	return s.hub
}

// Start begins listening for HTTP connections.
//
// It sets up the router, starts the WebSocket hub, and launches the
// HTTP listener in a background goroutine. The server can be stopped
// with Close().
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	go s.Hub().Run(srvCtx)

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", s.server.Addr,
				"cert", s.cfg.TLS.CertFile,
			)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			s.logger.Info("API server starting", "address", s.server.Addr)
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete, then
// forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}
	return nil
}
