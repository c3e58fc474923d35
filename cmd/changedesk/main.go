package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"goflare.io/changedesk"
	"goflare.io/changedesk/internal/config"
	"goflare.io/changedesk/internal/platform"
	"goflare.io/changedesk/internal/platform/freshservice"
	"goflare.io/changedesk/internal/server"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var configPath, addr string
	var development bool

	flagSet := pflag.NewFlagSet("changedesk", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "path to a config file (default: ./changedesk.yaml or ./config/changedesk.yaml)")
	flagSet.StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	flagSet.BoolVar(&development, "dev", false, "human readable debug logging")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	// 初始化 Logger
	logger, err := newLogger(development)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	v := config.NewViper()
	if err := config.ReadFile(v, configPath); err != nil {
		return err
	}
	if addr == "" {
		addr = v.GetString(config.KeyServerAddr)
	}

	fs := freshservice.New(
		platform.Params{
			Domain: v.GetString(config.KeyFreshserviceHost),
			APIKey: v.GetString(config.KeyFreshserviceKey),
		},
		freshservice.WithAdminWebhook(v.GetString(config.KeyAdminWebhook)),
		freshservice.WithLogger(logger),
	)
	client := platform.Compose(fs, fs, server.NewUI(logger))

	opts := append(config.Options(v), config.WithLogger(logger))
	desk, err := changedesk.New(client, opts...)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := desk.Start(ctx); err != nil {
		logger.Warn("Search data not loaded at startup", zap.Error(err))
	}

	if !development {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           server.NewRouter(desk, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		logger.Info("Starting server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
		close(errs)
	}()

	select {
	case err := <-errs:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("Server exited")
	return nil
}

func newLogger(development bool) (*zap.Logger, error) {
	if development {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
