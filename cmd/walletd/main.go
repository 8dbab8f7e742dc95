package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/joseph-ayodele/ticket-wallet/internal/app"
	"github.com/joseph-ayodele/ticket-wallet/internal/async"
	"github.com/joseph-ayodele/ticket-wallet/internal/core"
	"github.com/joseph-ayodele/ticket-wallet/internal/ingest"
	"github.com/joseph-ayodele/ticket-wallet/internal/server"
)

func main() {
	var (
		configFile = pflag.String("config", "", "config file (yaml, json or toml); overlays environment variables")
		logLevel   = pflag.String("log-level", "info", "log level (debug, info, warn, error)")
		logFormat  = pflag.String("log-format", "json", "log format (text or json)")
		httpAddr   = pflag.String("http-addr", "", "HTTP listen address (default: HTTP_ADDR)")
		grpcAddr   = pflag.String("grpc-addr", "", "gRPC health listen address (default: GRPC_ADDR)")
		inbox      = pflag.String("inbox", "", "directory watched for new PDFs (default: INBOX_DIR)")
	)
	pflag.Parse()

	logger, err := app.NewLogger(os.Stdout, *logLevel, *logFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	slog.SetDefault(logger)

	cfg, err := app.LoadConfig(*configFile)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(2)
	}
	if *httpAddr != "" {
		cfg.Server.HTTPAddr = *httpAddr
	}
	if *grpcAddr != "" {
		cfg.Server.GRPCAddr = *grpcAddr
	}
	if *inbox != "" {
		cfg.Server.InboxDir = *inbox
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to build application", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	if err := a.DB.HealthCheck(ctx, 5*time.Second); err != nil {
		logger.Error("failed to ping database", "error", err)
		os.Exit(1)
	}

	// gRPC health
	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		logger.Error("failed to listen on address", "addr", cfg.Server.GRPCAddr, "error", err)
		os.Exit(1)
	}
	grpcServer, healthServer := server.NewGRPCServer()
	go server.WatchHealth(ctx, healthServer, func(ctx context.Context) error {
		return a.DB.HealthCheck(ctx, 3*time.Second)
	}, 15*time.Second, logger)
	go func() {
		logger.Info("grpc health listening", "addr", cfg.Server.GRPCAddr)
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("gRPC serve error", "error", err)
			stop()
		}
	}()

	// Inbox watcher
	var queue *async.ProcessorQueue
	if cfg.Server.InboxDir != "" {
		if err := os.MkdirAll(cfg.Server.InboxDir, 0o755); err != nil {
			logger.Error("failed to create inbox", "dir", cfg.Server.InboxDir, "error", err)
			os.Exit(1)
		}
		queue = async.NewProcessorQueue(a.Processor, logger,
			async.WithWorkers(cfg.Server.Workers),
			async.WithQueueSize(cfg.Server.QueueSize),
			async.WithProcessTimeout(cfg.Server.ProcessTimeout),
		)
		opts := core.ProcessOptions{Timezone: cfg.Wallet.Timezone, Enrich: cfg.LLM.Enabled()}
		go func() {
			err := ingest.NewService(queue, logger).Watch(ctx, ingest.WatchConfig{
				Roots:       []string{cfg.Server.InboxDir},
				InitialScan: true,
				Debounce:    500 * time.Millisecond,
				SkipHidden:  true,
			}, opts)
			if err != nil {
				logger.Error("inbox watcher stopped", "error", err)
			}
		}()
	}

	// HTTP API
	api := server.NewHTTPServer(a.Processor,
		server.NewRateLimiter(cfg.Server.RateLimitRequests, cfg.Server.RateLimitWindow),
		server.HTTPConfig{
			MaxUploadBytes: cfg.Server.MaxUploadBytes,
			Timezone:       cfg.Wallet.Timezone,
			Enrich:         cfg.LLM.Enabled(),
		}, logger)
	httpServer := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("walletd listening", "addr", cfg.Server.HTTPAddr, "signed", a.Packager.Signed())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http serve error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", "error", err)
	}
	if queue != nil {
		queue.Shutdown(shutdownCtx)
	}
	grpcServer.GracefulStop()
	logger.Info("stopped")
}
