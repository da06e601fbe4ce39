package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"todoflow/configs"
	"todoflow/pkg/todoflow"
)

// Server wraps the gin engine serving one Todoflow instance
type Server struct {
	engine     *gin.Engine
	config     configs.ServerConfig
	app        *todoflow.Todoflow
	httpServer *http.Server
	logger     *zap.Logger
}

// NewServer creates a new HTTP server for app
func NewServer(cfg configs.ServerConfig, app *todoflow.Todoflow, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	engine := gin.New()

	if err := app.RegisterRoutes(engine); err != nil {
		return nil, err
	}

	return &Server{
		engine: engine,
		config: cfg,
		app:    app,
		logger: logger,
	}, nil
}

// Handler exposes the engine, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.engine
}

// ListenAndServe starts the app and the HTTP server. It returns
// http.ErrServerClosed after Shutdown.
func (s *Server) ListenAndServe() error {
	if err := s.app.Start(); err != nil {
		return err
	}

	s.httpServer = &http.Server{
		Addr:              s.config.Address(),
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("Starting HTTP server", zap.String("address", s.config.Address()))
	return s.httpServer.ListenAndServe()
}

// Shutdown stops accepting requests, then shuts the app down
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")

	var httpErr error
	if s.httpServer != nil {
		httpErr = s.httpServer.Shutdown(ctx)
	}
	return errors.Join(httpErr, s.app.Shutdown(ctx))
}
