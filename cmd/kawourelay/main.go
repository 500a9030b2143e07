package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kawourelay/internal/config"
	"kawourelay/internal/constants"
	"kawourelay/internal/models"
	"kawourelay/internal/relay"
	"kawourelay/internal/tracing"
	"kawourelay/pkg/apiclient"
	"kawourelay/pkg/media"
	"kawourelay/pkg/whatsapp"

	"github.com/sirupsen/logrus"
)

var (
	// Version information (set at build time)
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"

	// CLI flags
	verbose    = flag.Bool("verbose", false, "Enable verbose logging (includes sensitive information)")
	configPath = flag.String("config", "config.json", "Path to configuration file")
	version    = flag.Bool("version", false, "Show version information")
)

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("kawourelay %s\nBuild Time: %s\nGit Commit: %s\n", Version, BuildTime, GitCommit)
		os.Exit(0)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		logrus.Fatalf("Application error: %v", err)
	}
}

func run(ctx context.Context) error {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	logger.WithFields(logrus.Fields{
		"version": Version,
		"build":   BuildTime,
		"commit":  GitCommit,
	}).Info("Starting kawourelay")

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := validateConfig(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	configureLogLevel(logger, cfg.LogLevel)

	tracingManager := tracing.NewTracingManager(tracing.TracingConfig{
		ServiceName:    cfg.Tracing.ServiceName,
		ServiceVersion: cfg.Tracing.ServiceVersion,
		Environment:    cfg.Tracing.Environment,
		OTLPEndpoint:   cfg.Tracing.OTLPEndpoint,
		SampleRate:     cfg.Tracing.SampleRate,
		Enabled:        cfg.Tracing.Enabled,
		UseStdout:      cfg.Tracing.UseStdout,
	}, logger)

	if err := tracingManager.Initialize(ctx); err != nil {
		logger.Warnf("Failed to initialize tracing: %v", err)
	}
	defer func() {
		if err := tracingManager.Shutdown(context.Background()); err != nil {
			logger.Warnf("Failed to shutdown tracing: %v", err)
		}
	}()

	logger.WithFields(logrus.Fields{
		"api_url":       cfg.API.BaseURL,
		"endpoint":      cfg.API.Endpoint,
		"allow_groups":  len(cfg.Relay.AllowGroups),
		"block_words":   len(cfg.Relay.BlockWords),
		"forward_media": cfg.Relay.ForwardMediaEnabled(),
		"max_media_mb":  cfg.Relay.MediaMaxBytes / (1024 * 1024),
	}).Info("Relay policy loaded")

	gatewayClient := whatsapp.NewClient(whatsapp.ClientConfig{
		BaseURL:     cfg.Gateway.APIBaseURL,
		APIKey:      cfg.Gateway.APIKey,
		SessionName: cfg.Gateway.SessionName,
		Timeout:     time.Duration(cfg.Gateway.TimeoutSec) * time.Second,
	})

	extractor := media.NewExtractor(cfg.Gateway.APIKey,
		time.Duration(cfg.Gateway.TimeoutSec)*time.Second, logger)

	sender := apiclient.NewClient(cfg.API, logger)
	normalizer := relay.NewNormalizer(cfg.Relay, gatewayClient, extractor, logger)
	pipeline := relay.New(cfg.Relay.QueueSize, normalizer, sender, logger)

	go pipeline.Run(ctx)

	errCh := make(chan error, constants.ServerErrorChannelSize)

	var server *Server
	if cfg.Gateway.EventsURL != "" {
		// Websocket event stream instead of webhook delivery.
		listener := whatsapp.NewEventListener(cfg.Gateway.EventsURL, cfg.Gateway.APIKey,
			cfg.Gateway.SessionName, logger)
		go func() {
			if err := listener.Listen(ctx, func(msg models.InboundMessage) {
				pipeline.Enqueue(msg)
			}); err != nil && ctx.Err() == nil {
				errCh <- fmt.Errorf("event stream error: %w", err)
			}
		}()
	} else {
		server = NewServer(cfg, pipeline, logger)
		go func() {
			if err := server.Start(); err != nil {
				errCh <- fmt.Errorf("server error: %w", err)
			}
		}()
	}

	select {
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
	case err := <-errCh:
		logger.Error(err)
		return err
	}

	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(),
			time.Duration(constants.DefaultShutdownSec)*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shutdown server gracefully: %w", err)
		}
	}

	logger.Info("Relay shutdown completed")
	return nil
}

func validateConfig(cfg *models.Config) error {
	if cfg.API.BaseURL == "" {
		return fmt.Errorf("API base URL is required (API_BASE_URL)")
	}
	if cfg.API.SharedSecret == "" {
		return fmt.Errorf("shared secret is required (WHATSAPP_SHARED_SECRET)")
	}
	if cfg.Gateway.APIBaseURL == "" {
		return fmt.Errorf("gateway API base URL is required (WHATSAPP_API_URL)")
	}
	return nil
}

func configureLogLevel(logger *logrus.Logger, configured string) {
	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
		logger.Info("Verbose logging enabled - sensitive information will be logged")
		return
	}

	if configured == "" {
		logger.SetLevel(logrus.InfoLevel)
		return
	}

	level, err := logrus.ParseLevel(configured)
	if err != nil {
		logger.Warnf("Invalid log level %q, defaulting to info", configured)
		logger.SetLevel(logrus.InfoLevel)
		return
	}
	logger.SetLevel(level)
}
