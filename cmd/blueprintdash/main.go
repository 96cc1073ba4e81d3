package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/blueprintdash/blueprintdash/internal/alerts"
	"github.com/blueprintdash/blueprintdash/internal/api"
	"github.com/blueprintdash/blueprintdash/internal/auth"
	"github.com/blueprintdash/blueprintdash/internal/certs"
	"github.com/blueprintdash/blueprintdash/internal/config"
	"github.com/blueprintdash/blueprintdash/internal/display"
	"github.com/blueprintdash/blueprintdash/internal/health"
	"github.com/blueprintdash/blueprintdash/internal/metrics"
	"github.com/blueprintdash/blueprintdash/internal/mirror"
	"github.com/blueprintdash/blueprintdash/internal/poller"
	"github.com/blueprintdash/blueprintdash/internal/store"
	"github.com/blueprintdash/blueprintdash/internal/ws"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	once := flag.Bool("once", false, "fetch the blueprints once, print them and exit")
	flag.Parse()

	var level slog.LevelVar
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: &level}))
	slog.SetDefault(logger)

	slog.Info("blueprintdash starting", "config", *configPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	level.Set(cfg.Log.SlogLevel())

	slog.Info("config loaded",
		"blueprints_url", cfg.API.BlueprintsURL,
		"interval", cfg.Timers.BlueprintsInterval(),
		"http_port", cfg.Server.HTTPPort,
		"grpc_port", cfg.Server.GRPCPort,
		"auth_mode", cfg.Server.Auth.Mode,
	)

	fetcher, err := poller.NewHTTPFetcher(cfg.API)
	if err != nil {
		slog.Error("failed to build HTTP client", "err", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	alertCenter := alerts.New(cfg.Alerts, alerts.WithSource(cfg.API.BlueprintsURL))

	if *once {
		os.Exit(runOnce(ctx, fetcher, alertCenter))
	}

	// Hot reload applies the log level; everything else needs a restart.
	go func() {
		if err := config.Watch(ctx, *configPath, func(updated *config.Config) {
			level.Set(updated.Log.SlogLevel())
			slog.Info("config hot-reloaded", "log_level", updated.Log.Level)
		}); err != nil {
			slog.Error("config watcher stopped", "err", err)
		}
	}()

	p := poller.New(fetcher, cfg.Timers.BlueprintsInterval(), poller.WithReporter(alertCenter))

	// Last-known-good collection with background TTL eviction.
	st := store.New(cfg.Server.SnapshotTTL)
	go st.Run(ctx)

	// Optional gRPC health service.
	var healthSrv *health.Server
	var setter mirror.HealthSetter
	if cfg.Server.GRPCPort > 0 {
		healthSrv = health.New(cfg.Server.Auth)
		setter = healthSrv
		lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Server.GRPCPort))
		if err != nil {
			slog.Error("failed to listen on gRPC port", "port", cfg.Server.GRPCPort, "err", err)
			os.Exit(1)
		}
		go func() {
			if err := healthSrv.Serve(lis); err != nil {
				slog.Error("gRPC server stopped", "err", err)
			}
		}()
	}

	// The mirror is a permanent subscriber feeding the store.
	go mirror.New(p, st, setter).Run(ctx)

	hub := ws.New(p, st)
	go hub.Run(ctx)

	requireKey := auth.APIKeyMiddleware(
		cfg.Server.Auth.Mode,
		cfg.Server.Auth.EffectiveHeader(),
		cfg.Server.Auth.Key(),
	)

	// Combined HTTP server: REST API, WebSocket stream and /metrics.
	// The hub stays outside the metrics middleware, which cannot hijack.
	httpMux := http.NewServeMux()
	httpMux.Handle("/api/", requireKey(api.New(st, alertCenter, p, certs.New(cfg.API))))
	httpMux.Handle("/ws/blueprints", requireKey(hub))
	httpMux.Handle("/metrics", metrics.Handler())

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:           httpMux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("HTTP server listening", "port", cfg.Server.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server stopped", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("blueprintdash shutting down")

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	httpSrv.Shutdown(shutdownCtx) //nolint:errcheck
	if healthSrv != nil {
		healthSrv.Stop()
	}
	p.Close()
	alertCenter.Wait()
}

// runOnce performs a single fetch, prints every blueprint and returns the
// process exit code.
func runOnce(ctx context.Context, f poller.Fetcher, r poller.Reporter) int {
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	bps, err := f.Fetch(ctx)
	if err != nil {
		poller.HandleError(poller.DefaultLogTag, err, r)
		return 1
	}
	for _, bp := range bps {
		if err := display.Render(os.Stdout, bp); err != nil {
			slog.Error("render failed", "err", err)
			return 1
		}
	}
	return 0
}
