package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/mvakit/mvakit/internal/api"
	"github.com/mvakit/mvakit/internal/calib"
	"github.com/mvakit/mvakit/internal/config"
	"github.com/mvakit/mvakit/internal/export"
	"github.com/mvakit/mvakit/internal/monitor"
	"github.com/mvakit/mvakit/internal/pipeline"
	"github.com/mvakit/mvakit/internal/store"
	"github.com/mvakit/mvakit/internal/ws"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	slog.Info("mvakit starting", "config", *configPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	slog.Info("config loaded",
		"http_port", cfg.Server.HTTPPort,
		"stages", len(cfg.Pipeline.Stages),
		"results_ttl", cfg.Server.Results.TTL,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Build the pipeline from the configured stages. A misconfigured
	// calibration is fatal at startup; on hot-reload the previous pipeline
	// stays active instead.
	var computer atomic.Pointer[pipeline.Computer]
	comp, err := buildComputer(cfg)
	if err != nil {
		slog.Error("failed to build pipeline", "err", err)
		os.Exit(1)
	}
	computer.Store(comp)
	for _, st := range comp.Stages() {
		slog.Info("configured stage",
			"name", st.Name, "kind", st.Kind,
			"inputs", len(st.Inputs), "outputs", len(st.Outputs))
	}
	if len(comp.Stages()) == 0 {
		slog.Warn("no stages configured — every event will score empty")
	}

	// Result store with background TTL eviction.
	st := store.New(cfg.Server.Results.TTL)
	go st.Run(ctx)

	// Monitor engine — observes every scored result.
	mon := monitor.New(cfg.Monitor)

	// Optional result exporter.
	var exp api.Enqueuer
	if cfg.Export.Endpoint != "" {
		e := export.New(cfg.Export)
		go e.Run(ctx)
		exp = e
		slog.Info("export enabled", "endpoint", cfg.Export.Endpoint)
	}

	// WebSocket hub — broadcasts live results on the stream interval.
	hub := ws.New(st, cfg.Server.StreamInterval)
	go hub.Run(ctx)

	// Watch the config file and swap the pipeline on successful reload.
	go func() {
		if err := config.Watch(ctx, *configPath, func(updated *config.Config) {
			next, err := buildComputer(updated)
			if err != nil {
				slog.Error("reload: pipeline rebuild failed — keeping previous pipeline", "err", err)
				return
			}
			computer.Store(next)
			slog.Info("pipeline hot-reloaded", "stages", len(next.Stages()))
		}); err != nil {
			slog.Error("config watcher stopped", "err", err)
		}
	}()

	httpMux := http.NewServeMux()
	httpMux.Handle("/api/", api.New(api.Deps{
		Computer: computer.Load,
		Store:    st,
		Monitor:  mon,
		Export:   exp,
		Auth:     cfg.Server.Auth,
	}))
	httpMux.Handle("/ws/stream", hub)

	httpSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler: httpMux,
	}
	go func() {
		slog.Info("HTTP server listening", "port", cfg.Server.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server stopped", "err", err)
		}
	}()

	<-ctx.Done()
	slog.Info("mvakit shutting down")
	httpSrv.Shutdown(context.Background()) //nolint:errcheck
}

// buildComputer loads every stage's calibration record and configures the
// pipeline.
func buildComputer(cfg *config.Config) (*pipeline.Computer, error) {
	specs := make([]pipeline.StageSpec, 0, len(cfg.Pipeline.Stages))
	for _, sc := range cfg.Pipeline.Stages {
		rec, err := calib.Load(sc.Calibration)
		if err != nil {
			return nil, fmt.Errorf("stage %q: %w", sc.Name, err)
		}
		if rec.Kind() != sc.Kind {
			return nil, fmt.Errorf("stage %q: calibration is %q, config says %q", sc.Name, rec.Kind(), sc.Kind)
		}
		specs = append(specs, pipeline.StageSpec{Name: sc.Name, Kind: sc.Kind, Record: rec})
	}
	return pipeline.New(specs)
}
