package http

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	fiberSwagger "github.com/swaggo/fiber-swagger"
	"go.uber.org/zap"

	"github.com/urban-indicators/internal/config"
	"github.com/urban-indicators/internal/delivery/http/handler"
	"github.com/urban-indicators/internal/delivery/http/middleware"
)

// Server is the Fiber HTTP server for the pipeline status API
type Server struct {
	app    *fiber.App
	config *config.Config
	logger *zap.Logger

	// Handlers
	statsHandler       *handler.StatsHandler
	materializeHandler *handler.MaterializeHandler
}

// NewServer creates the server and registers its routes
func NewServer(
	cfg *config.Config,
	logger *zap.Logger,
	statsHandler *handler.StatsHandler,
	materializeHandler *handler.MaterializeHandler,
) *Server {
	app := fiber.New(fiber.Config{
		AppName:      "Urban Indicators",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
		ErrorHandler: customErrorHandler(logger),
	})

	s := &Server{
		app:                app,
		config:             cfg,
		logger:             logger,
		statsHandler:       statsHandler,
		materializeHandler: materializeHandler,
	}

	s.setupMiddlewares()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddlewares() {
	s.app.Use(middleware.Recovery(s.logger))
	s.app.Use(middleware.Logger(s.logger))
	s.app.Use(middleware.CORS(s.config.Server.CORSOrigins))
	s.app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))
}

func (s *Server) setupRoutes() {
	// Swagger documentation
	s.app.Get("/swagger/*", fiberSwagger.WrapHandler)

	api := s.app.Group("/api/v1")

	// Health check
	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now(),
		})
	})

	// Pipeline status
	api.Get("/status", s.statsHandler.GetStatus)
	api.Get("/areas", s.statsHandler.GetAreas)
	api.Get("/flow-sheets", s.statsHandler.GetFlowSheets)

	// Trigger
	api.Post("/materialize", s.materializeHandler.RequestRun)
}

// App exposes the underlying fiber app, used by tests
func (s *Server) App() *fiber.App {
	return s.app
}

// Start listens on the configured address
func (s *Server) Start() error {
	addr := s.config.GetServerAddr()
	s.logger.Info("Starting HTTP server", zap.String("address", addr))
	return s.app.Listen(addr)
}

// Shutdown stops accepting connections and waits for in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	return s.app.ShutdownWithContext(ctx)
}

func customErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		errCode := "INTERNAL_SERVER_ERROR"

		var fe *fiber.Error
		if stderrors.As(err, &fe) {
			code = fe.Code
			if code == fiber.StatusNotFound {
				errCode = "NOT_FOUND"
			}
		}

		logger.Error("HTTP Error",
			zap.String("path", c.Path()),
			zap.Int("status", code),
			zap.Error(err),
		)

		return c.Status(code).JSON(fiber.Map{
			"error": fiber.Map{
				"code":    errCode,
				"message": err.Error(),
			},
		})
	}
}
