package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/openlearnnitj/openlearn-dashboard/internal/app"
	"github.com/openlearnnitj/openlearn-dashboard/internal/config"
	"github.com/openlearnnitj/openlearn-dashboard/internal/dashboard"
	"github.com/openlearnnitj/openlearn-dashboard/internal/schedule"
	"github.com/openlearnnitj/openlearn-dashboard/pkg/logger"
)

const shutdownTimeout = 30 * time.Second

func main() {
	os.Exit(run(os.Args))
}

func run(args []string) (exitCode int) {
	var (
		configPath string
		port       string
		once       bool
	)

	flags := pflag.NewFlagSet("openlearn-dashboard", pflag.ContinueOnError)
	flags.StringVarP(&configPath, "config", "c", os.Getenv(config.EnvConfigFile), "Path to YAML config file")
	flags.StringVarP(&port, "port", "p", "", "HTTP listen port (overrides config)")
	flags.BoolVarP(&once, "once", "1", false, "Poll only once instead of repeatedly")

	if err := flags.Parse(args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	if err := logger.Init(); err != nil {
		fmt.Fprintln(os.Stderr, "failed to initialize logging:", err)
		return 1
	}
	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadFile(ctx, configPath)
	if err != nil {
		log.Error(ctx, "failed to load config", logger.Error(err))
		return 1
	}
	if flags.Changed("port") {
		cfg.Port = port
	}
	if once {
		cfg.RepeatedAPICall = false
	}

	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	a, err := app.New(ctx, cfg, app.WithLogger(log))
	if err != nil {
		log.Error(ctx, "failed to initialize", logger.Error(err))
		return 1
	}

	sched, err := cfg.Schedule()
	if err != nil {
		log.Error(ctx, "invalid schedule", logger.Error(err))
		return 1
	}

	var handle *schedule.Handle
	polling := "once"
	switch s := sched.(type) {
	case schedule.IntervalSchedule:
		handle = schedule.Start(ctx, a.Handler.Poll, s.Interval, cfg.RepeatedAPICall)
		if cfg.RepeatedAPICall {
			polling = "every " + s.String()
		}
	default:
		if cfg.RepeatedAPICall {
			handle = schedule.StartSchedule(ctx, a.Handler.Poll, s)
			polling = "on " + s.String()
		} else {
			handle = schedule.Start(ctx, a.Handler.Poll, 0, false)
		}
	}
	log.Info(ctx, "polling started",
		logger.String("metrics_url", cfg.MetricsAPIURL),
		logger.String("schedule", polling),
		logger.Bool("sentiment", cfg.SentimentEnabled()))

	opts := []dashboard.Option{
		dashboard.WithLogger(log.Named("http")),
		dashboard.WithMetrics(a.Metrics),
		dashboard.WithPolling(polling),
	}
	if a.Uptime != nil {
		opts = append(opts, dashboard.WithUptime(a.Uptime))
	}

	srv, err := dashboard.NewServer(a.Handler, a.History, opts...)
	if err != nil {
		log.Error(ctx, "failed to create server", logger.Error(err))
		handle.Cancel()
		return 1
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("port", cfg.Port))
		errCh <- srv.Listen(":" + cfg.Port)
	}()

	select {
	case <-ctx.Done():
		log.Info(ctx, "shutting down server...")
	case err := <-errCh:
		log.Error(ctx, "HTTP server failed", logger.Error(err))
		exitCode = 1
	}

	handle.Cancel()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(shutdownCtx, "failed to shut down server", logger.Error(err))
		exitCode = 1
	}
	handle.Wait()

	log.Info(shutdownCtx, "server stopped")
	return exitCode
}
