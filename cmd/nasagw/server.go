package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kalambet/nasagw/internal/api"
	"github.com/kalambet/nasagw/internal/config"
	"github.com/kalambet/nasagw/internal/enhance"
	"github.com/kalambet/nasagw/internal/nasa"
	"github.com/kalambet/nasagw/internal/proxy"
	"github.com/kalambet/nasagw/internal/upstream"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP gateway (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		slog.SetDefault(newLogger(cfg.Log, os.Stderr))

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return runServer(ctx, cfg)
	},
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the NASA feeds as MCP tools on stdin/stdout",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		// stdout carries the protocol; logs stay on stderr.
		slog.SetDefault(newLogger(cfg.Log, os.Stderr))

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		feeds := newFeeds(cfg, nil)
		stdio := server.NewStdioServer(api.NewMCPServer(feeds, version))
		slog.Info("MCP server started (stdio transport)", "version", version)
		if err := stdio.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("mcp stdio server: %w", err)
		}
		return nil
	},
}

// newLogger builds the process logger from the log settings.
func newLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// newHandler wires configuration into the gateway router.
func newHandler(cfg config.Config) http.Handler {
	var metrics *api.Metrics
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		metrics = api.NewMetrics(reg)
	}

	var observer nasa.Observer
	if metrics != nil {
		observer = metrics.ObserveUpstream
	}

	return api.NewHandler(api.Deps{
		Feeds: newFeeds(cfg, observer),
		Assistant: proxy.NewClientWithBaseURL(cfg.Assistant.APIKey, cfg.Assistant.BaseURL).
			WithTimeout(cfg.Upstream.Timeout),
		Model:          cfg.Assistant.Model,
		Enhancer:       enhance.NewRunner(cfg.Enhance.Command, cfg.Enhance.Timeout, cfg.Enhance.MaxConcurrent),
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Metrics:        metrics,
		MetricsToken:   cfg.Metrics.Token,
	})
}

// newFeeds builds the feeds over api.nasa.gov and the keyless EONET host.
func newFeeds(cfg config.Config, observer nasa.Observer) *nasa.Feeds {
	nasaClient := upstream.NewClient(cfg.NASA.BaseURL, cfg.NASA.APIKey, cfg.Upstream.Timeout)
	eonetClient := upstream.NewClient(cfg.EONET.BaseURL, "", cfg.Upstream.Timeout)
	return nasa.NewFeeds(nasaClient, observer).WithEONET(eonetClient)
}

// writeTimeout leaves room for the slowest upstream call a handler can make.
func writeTimeout(cfg config.Config) time.Duration {
	return max(cfg.Upstream.Timeout, cfg.Enhance.Timeout) + 10*time.Second
}

func runServer(ctx context.Context, cfg config.Config) error {
	slog.Info("starting nasagw",
		"version", version,
		"addr", cfg.Server.Addr(),
		"model", cfg.Assistant.Model,
		"allowed_origins", cfg.CORS.AllowedOrigins,
		"metrics", cfg.Metrics.Enabled,
	)

	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           newHandler(cfg),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      writeTimeout(cfg),
		IdleTimeout:       120 * time.Second,
		ErrorLog:          slog.NewLogLogger(slog.Default().Handler(), slog.LevelWarn),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		notice(noticeStep, "nasagw listening on %s", cfg.Server.Addr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		notice(noticeStep, "shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
