package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/kirillkom/project-brain/internal/adapters/http"
	"github.com/kirillkom/project-brain/internal/bootstrap"
	"github.com/kirillkom/project-brain/internal/config"
	"github.com/kirillkom/project-brain/internal/observability/logging"
	"github.com/kirillkom/project-brain/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	logging.Setup("api", cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		fatal("config_invalid", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpMetrics := metrics.NewHTTPServerMetrics("api")
	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{
		Service:       "brain-api",
		StateObserver: httpMetrics.ObserveBreaker,
	})
	if err != nil {
		fatal("bootstrap_failed", err)
	}
	defer app.Close()

	if err := app.WarmIndex(ctx); err != nil {
		fatal("index_warm_failed", err)
	}
	syncErrs := app.StartIndexSync(ctx)
	if err := app.WatchTopics(ctx); err != nil {
		slog.Warn("topic_table_watch_disabled", "error", err.Error())
	}
	go app.Cache.Run(ctx, time.Duration(cfg.CachePruneIntervalSeconds)*time.Second)

	httpMetrics.RegisterGaugeFunc("index", "chunks", "Chunks held by the in-process index.", func() float64 {
		return float64(app.Index.Len())
	})
	httpMetrics.RegisterGaugeFunc("cache", "entries", "Entries held by the answer cache.", func() float64 {
		return float64(app.Cache.Stats().TotalEntries)
	})

	router := httpadapter.NewRouter(cfg, httpadapter.Services{
		Ingest:    app.IngestUC,
		Documents: app.Documents,
		Search:    app.Retriever,
		Query:     app.QueryUC,
		Conflicts: app.ConflictUC,
		Extract:   app.ExtractUC,
		Analytics: app.History,
		IndexSize: app.Index.Len,
	}, httpMetrics).Handler()

	server := &http.Server{
		Addr:              ":" + cfg.APIPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      time.Duration(cfg.APIRequestTimeoutSeconds+30) * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		slog.Info("api_listening", "addr", server.Addr, "indexed_chunks", app.Index.Len())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal("api_server_failed", err)
		}
	}()

	exitCode := 0
	select {
	case <-ctx.Done():
	case err := <-syncErrs:
		slog.Error("subscribe_indexed_failed", "error", err.Error())
		exitCode = 1
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("api_shutdown_failed", "error", err.Error())
	}
	if exitCode != 0 {
		app.Close()
		os.Exit(exitCode)
	}
}

func fatal(event string, err error) {
	slog.Error(event, "error", err.Error())
	os.Exit(1)
}
