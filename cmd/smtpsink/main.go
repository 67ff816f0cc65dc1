package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/mailit-dev/smtpsink/internal/config"
	"github.com/mailit-dev/smtpsink/internal/observability"
	"github.com/mailit-dev/smtpsink/internal/smtp"
	"github.com/mailit-dev/smtpsink/internal/store"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "", "config file path (optional)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := setupLogger(cfg.Logging)
	slog.SetDefault(logger)
	logger.Info("starting smtpsink", "version", Version, "port", cfg.SMTP.Port)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if cfg.Tracing.Enabled {
		shutdownTracer, err := observability.InitTracer(ctx, observability.TracingConfig{
			Endpoint:    cfg.Tracing.Endpoint,
			SampleRate:  cfg.Tracing.SampleRatio,
			ServiceName: cfg.Tracing.ServiceName,
			Insecure:    cfg.Tracing.Insecure,
		})
		if err != nil {
			logger.Error("starting tracer", "error", err)
			os.Exit(1)
		}
		defer func() {
			if err := shutdownTracer(context.Background()); err != nil {
				logger.Error("shutting down tracer", "error", err)
			}
		}()
	}

	st := store.New()

	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg, func() int { return len(st.List()) })
	st.OnLag(func() { metrics.SubscriberLagTotal.Inc() })

	listenerCfg := smtp.Config{
		Hostname:      cfg.SMTP.Hostname,
		MessageSize:   cfg.SMTP.MessageSize,
		MaxLineLength: cfg.SMTP.MaxLineLength,
	}
	ln := smtp.NewListener(listenerCfg, submitCounter{st, metrics}, logger)
	ln.OnSession(func() { metrics.SessionsTotal.Inc() })
	ln.OnCommand(func(verb string) { metrics.CommandsTotal.WithLabelValues(strings.ToUpper(verb)).Inc() })
	ln.OnError(func(kind string) { metrics.ProtocolErrorsTotal.WithLabelValues(kind).Inc() })

	var metricsServer *observability.MetricsServer
	if cfg.Metrics.Enabled {
		metricsServer = observability.NewMetricsServer(cfg.Metrics.ListenAddr, reg)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting SMTP listener", "port", cfg.SMTP.Port)
		if err := ln.Serve(gctx); err != nil {
			return fmt.Errorf("smtp listener: %w", err)
		}
		return nil
	})

	if metricsServer != nil {
		g.Go(func() error {
			logger.Info("starting metrics server", "addr", cfg.Metrics.ListenAddr)
			if err := metricsServer.ListenAndServe(); err != nil {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			return metricsServer.Shutdown(context.Background())
		})
	}

	if err := g.Wait(); err != nil && gctx.Err() == nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}

	logger.Info("smtpsink stopped")
}

// submitCounter wraps store.Store to increment the stored/error metrics
// around every submission, keeping internal/store free of a metrics
// dependency.
type submitCounter struct {
	*store.Store
	metrics *observability.Metrics
}

func (s submitCounter) Submit(raw []byte) (string, error) {
	id, err := s.Store.Submit(raw)
	if err != nil {
		s.metrics.SubmitErrorsTotal.WithLabelValues(err.Error()).Inc()
		return "", err
	}
	s.metrics.MessagesStoredTotal.Inc()
	return id, nil
}

// setupLogger creates a slog.Logger based on the logging config.
func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "text":
		handler = slog.NewTextHandler(os.Stdout, opts)
	default:
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(observability.NewTracingHandler(handler))
}
