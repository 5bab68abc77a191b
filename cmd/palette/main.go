// palette serves a webcam page that sends one captured frame to Gemini and
// shows the seasonal color analysis it returns.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/teslashibe/go-palette/internal/config"
	"github.com/teslashibe/go-palette/internal/log"
	"github.com/teslashibe/go-palette/pkg/analysis"
	"github.com/teslashibe/go-palette/pkg/camera"
	"github.com/teslashibe/go-palette/pkg/inference"
	"github.com/teslashibe/go-palette/pkg/shell"
	"github.com/teslashibe/go-palette/pkg/web"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "Path to a YAML config file")
	port := flag.String("port", "", "HTTP port (overrides PORT)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	noDevice := flag.Bool("no-device", false, "Disable server-side camera capture")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *port != "" {
		cfg.Server.Port = *port
	}
	if *debug {
		cfg.Log.Level = "debug"
	}

	if err := log.Init(log.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, File: cfg.Log.File}); err != nil {
		return err
	}
	defer log.Close()

	if err := cfg.Validate(); err != nil {
		if errors.Is(err, config.ErrMissingAPIKey) {
			return fmt.Errorf("%w (set it in the environment or .env.local)", err)
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := log.L()

	providerOpts := []inference.Option{
		inference.WithAPIKey(cfg.Gemini.APIKey),
		inference.WithModel(cfg.Gemini.Model),
		inference.WithMaxTokens(cfg.Gemini.MaxTokens),
		inference.WithLogger(logger),
	}
	if cfg.Gemini.BaseURL != "" {
		providerOpts = append(providerOpts, inference.WithBaseURL(cfg.Gemini.BaseURL))
	}
	if cfg.AnalysisTimeout > 0 {
		providerOpts = append(providerOpts, inference.WithTimeout(cfg.AnalysisTimeout))
	}
	provider, err := inference.NewGemini(providerOpts...)
	if err != nil {
		return fmt.Errorf("gemini: %w", err)
	}
	defer provider.Close()

	analyzer, err := analysis.NewClient(provider,
		analysis.WithModel(cfg.Gemini.Model),
		analysis.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	sh := shell.New(analyzer,
		shell.WithTimeout(cfg.AnalysisTimeout),
		shell.WithLogger(logger),
	)
	defer sh.Close()

	cameras := camera.NewManager(cfg.Camera.Config)
	serverOpts := []web.Option{
		web.WithLogger(logger),
		web.WithCameraManager(cameras),
	}
	if !*noDevice {
		device, closeDevice := openDevice(cfg, cameras, logger)
		if device != nil {
			defer closeDevice()
			serverOpts = append(serverOpts, web.WithDevice(device))
		}
	}

	server := web.NewServer(cfg.Server.Port, sh, serverOpts...)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(server.Start)
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		sh.Cancel()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	logger.Info("palette started",
		"model", cfg.Gemini.Model,
		"port", cfg.Server.Port,
		"analysis_timeout", cfg.AnalysisTimeout,
	)
	return g.Wait()
}

// openDevice prefers a real webcam and falls back to a still image.
// It returns a nil source when neither is available.
func openDevice(cfg *config.Config, cameras *camera.Manager, logger *slog.Logger) (camera.Source, func()) {
	cam, err := camera.OpenWebcam(cameras, logger)
	if err == nil {
		return cam, func() { cam.Close() }
	}
	logger.Info("webcam not available", "error", err)

	if cfg.Camera.Image == "" {
		return nil, nil
	}
	still, err := camera.OpenStill(cfg.Camera.Image, cameras)
	if err != nil {
		logger.Warn("still image not available", "path", cfg.Camera.Image, "error", err)
		return nil, nil
	}
	logger.Info("using still image as camera", "path", cfg.Camera.Image)
	return still, func() {}
}
