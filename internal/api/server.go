package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pulsemetrics/internal/config"
)

// Server represents the HTTP server with all configured routes and middleware.
type Server struct {
	app    *fiber.App
	config *config.ServerConfig
	logger *slog.Logger

	// Handlers
	pipelineHandler *PipelineHandler
	campaignHandler *CampaignHandler
}

// ServerDeps contains all dependencies required to create a new Server.
type ServerDeps struct {
	Config          *config.ServerConfig
	Logger          *slog.Logger
	PipelineHandler *PipelineHandler
	CampaignHandler *CampaignHandler
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(deps ServerDeps) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		StrictRouting:         true,
		CaseSensitive:         true,
		ReadTimeout:           deps.Config.ReadTimeout,
		WriteTimeout:          deps.Config.WriteTimeout,
		IdleTimeout:           deps.Config.IdleTimeout,
		ErrorHandler:          customErrorHandler,
	})

	s := &Server{
		app:             app,
		config:          deps.Config,
		logger:          deps.Logger,
		pipelineHandler: deps.PipelineHandler,
		campaignHandler: deps.CampaignHandler,
	}

	s.registerMiddleware()
	s.registerRoutes()

	return s
}

// registerMiddleware sets up all middleware for the server.
func (s *Server) registerMiddleware() {
	// Recovery middleware to handle panics
	s.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))

	// Request ID middleware for tracing
	s.app.Use(requestid.New())

	// Logger middleware for request logging
	s.app.Use(logger.New(logger.Config{
		Format:     "${time} | ${status} | ${latency} | ${method} | ${path} | ${error}\n",
		TimeFormat: "2006-01-02 15:04:05",
	}))
}

// registerRoutes sets up all API routes.
func (s *Server) registerRoutes() {
	// Health check endpoint (outside versioned API)
	s.app.Get("/healthz", s.healthCheck)

	// Prometheus metrics endpoint
	s.app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// API v1 routes
	v1 := s.app.Group("/v1")

	// Pipeline observability
	v1.Get("/pipeline/stats", s.pipelineHandler.Stats)
	v1.Get("/pipeline/consumer-group", s.pipelineHandler.ConsumerGroup)

	// Campaign reads
	v1.Get("/campaigns/:id/metrics", s.campaignHandler.Metrics)
	v1.Get("/campaigns/:id/alert", s.campaignHandler.Alert)
}

// healthCheck returns the health status of the service.
func (s *Server) healthCheck(c *fiber.Ctx) error {
	return Success(c, map[string]string{
		"status": "healthy",
	})
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	addr := s.config.Address()
	s.logger.Info("starting HTTP server", "address", addr)
	return s.app.Listen(addr)
}

// Test dispatches a request directly to the router without a listener.
// Used by integration tests.
func (s *Server) Test(req *http.Request) (*http.Response, error) {
	return s.app.Test(req, -1)
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.app.ShutdownWithContext(ctx)
}

// customErrorHandler handles errors returned from handlers.
func customErrorHandler(c *fiber.Ctx, err error) error {
	if e, ok := err.(*fiber.Error); ok {
		return Error(c, e.Code, ErrCodeInternalError, e.Message)
	}

	return InternalError(c, fmt.Sprintf("unexpected error: %v", err))
}
