// Package web serves the capture page, the JSON API and the state stream.
package web

import (
	"context"
	_ "embed"
	"log/slog"
	"net"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-palette/pkg/camera"
	"github.com/teslashibe/go-palette/pkg/hub"
	"github.com/teslashibe/go-palette/pkg/shell"
)

//go:embed static/index.html
var indexHTML []byte

// Version is reported by /health.
var Version = "dev"

// Server is the web front end for one shell.
type Server struct {
	app  *fiber.App
	port string

	shell    *shell.Shell
	stateHub *hub.Hub
	logger   *slog.Logger

	// device is the server-side camera; nil when none is attached
	device  camera.Source
	cameras *camera.Manager
}

// Option configures a Server.
type Option func(*Server)

// WithDevice enables POST /api/capture/device.
func WithDevice(src camera.Source) Option {
	return func(s *Server) { s.device = src }
}

// WithCameraManager enables the camera config API.
func WithCameraManager(m *camera.Manager) Option {
	return func(s *Server) { s.cameras = m }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// NewServer creates a server for sh listening on port.
func NewServer(port string, sh *shell.Shell, opts ...Option) *Server {
	s := &Server{
		port:   port,
		shell:  sh,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "web")
	s.stateHub = hub.New("state", s.logger)

	// Seed the hub so new clients get the current state first.
	s.stateHub.BroadcastJSON(sh.State())
	sh.OnChange(func(st shell.State) {
		if err := s.stateHub.BroadcastJSON(st); err != nil {
			s.logger.Error("encode state", "error", err)
		}
	})

	app := fiber.New(fiber.Config{
		AppName:               "go-palette",
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})

	app.Use(recover.New())
	app.Use(cors.New())
	app.Use(s.requestLogger)

	app.Get("/", s.handleIndex)
	app.Get("/health", s.handleHealth)

	api := app.Group("/api")
	api.Get("/state", s.handleState)
	api.Post("/capture", s.handleCapture)
	api.Post("/capture/device", s.handleCaptureDevice)
	api.Post("/cancel", s.handleCancel)
	api.Get("/camera", s.handleGetCamera)
	api.Put("/camera", s.handleUpdateCamera)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/state", websocket.New(s.handleStateWS))

	s.app = app
	return s
}

// App exposes the Fiber app, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start runs the hub and listens on the configured port until Shutdown.
func (s *Server) Start() error {
	go s.stateHub.Run()
	s.logger.Info("listening", "url", "http://localhost:"+s.port)
	return s.app.Listen(":" + s.port)
}

// Serve is Start on an existing listener.
func (s *Server) Serve(ln net.Listener) error {
	go s.stateHub.Run()
	s.logger.Info("listening", "addr", ln.Addr().String())
	return s.app.Listener(ln)
}

// Shutdown stops accepting requests, waits for in-flight ones and closes
// websocket clients.
func (s *Server) Shutdown(ctx context.Context) error {
	s.stateHub.Stop()
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) requestLogger(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	s.logger.Debug("http request",
		"method", c.Method(),
		"path", c.Path(),
		"status", c.Response().StatusCode(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return err
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}
	if code >= fiber.StatusInternalServerError {
		s.logger.Error("request failed", "path", c.Path(), "error", err)
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}
