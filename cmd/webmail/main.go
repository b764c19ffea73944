// Command webmail serves the webmail JSON API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rbaliyan/webmail"
	"github.com/rbaliyan/webmail/directory"
	"github.com/rbaliyan/webmail/internal/api"
	"github.com/rbaliyan/webmail/internal/config"
	"github.com/rbaliyan/webmail/retry"
)

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", os.Getenv(config.EnvFile), "path to a TOML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("webmail stopped", "error", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	level, _ := cfg.LogLevel()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, err := openResources(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer res.close(logger)

	dirOpts := []directory.Option{directory.WithLogger(logger)}
	if res.redis != nil {
		dirOpts = append(dirOpts, directory.WithCache(res.redis, cfg.Redis.CacheTTL.Duration))
	}
	dir := directory.New(res.store, dirOpts...)

	svcOpts := []webmail.Option{
		webmail.WithStore(res.store),
		webmail.WithDirectory(dir),
		webmail.WithLogger(logger),
		webmail.WithMaxRecipients(cfg.Mailbox.MaxRecipients),
		webmail.WithMaxSubjectLength(cfg.Mailbox.MaxSubjectLength),
		webmail.WithMaxBodySize(cfg.Mailbox.MaxBodySize),
		webmail.WithMaxConcurrentComposes(cfg.Mailbox.MaxConcurrentComposes),
		webmail.WithShutdownTimeout(cfg.Server.ShutdownTimeout.Duration),
		webmail.WithOTel(cfg.Mailbox.OTel),
	}
	if res.exporter != nil {
		svcOpts = append(svcOpts, webmail.WithExporter(res.exporter))
	}
	if res.redis != nil {
		svcOpts = append(svcOpts, webmail.WithRedisClient(res.redis))
	}
	svc, err := webmail.NewService(svcOpts...)
	if err != nil {
		return fmt.Errorf("create service: %w", err)
	}

	policy := retry.DefaultPolicy()
	policy.MaxAttempts = cfg.Store.ConnectAttempts
	policy.MaxDelay = 10 * time.Second
	policy.IsRetryable = webmail.IsRetryableError
	policy.OnRetry = func(attempt int, err error, wait time.Duration) {
		logger.Warn("connect failed, retrying", "attempt", attempt, "wait", wait, "error", err)
	}
	if err := retry.Do(ctx, policy, svc.Connect); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration)
		defer cancel()
		if err := svc.Close(closeCtx); err != nil {
			logger.Error("close service", "error", err)
		}
	}()

	handler, err := api.New(svc, dir,
		api.WithLogger(logger),
		api.WithSessionSecret(cfg.Session.Secret),
		api.WithSessionMaxAge(cfg.Session.MaxAge.Duration),
		api.WithSecureCookies(cfg.Session.Secure),
		api.WithRateLimit(cfg.RateLimit.Requests, cfg.RateLimit.Per.Duration),
		api.WithMaxBodyBytes(int64(cfg.Mailbox.MaxBodySize)+64<<10),
	)
	if err != nil {
		return err
	}
	if cfg.Session.Secret == "" {
		logger.Warn("session secret not set; sessions reset on restart")
	}

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout.Duration,
		WriteTimeout: cfg.Server.WriteTimeout.Duration,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", cfg.Server.Addr, "store", cfg.Store.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http: %w", err)
	}
	return nil
}
