package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"contentgrab/internal/orchestrator"
	"contentgrab/internal/platform/config"
	"contentgrab/internal/platform/logger"
	"contentgrab/internal/platform/metrics"
	"contentgrab/internal/remote"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const shutdownTimeout = 10 * time.Second

func main() {
	_ = config.Load()

	settings, err := config.LoadSettings(config.GetEnv("CONFIG_FILE", ""))
	log := logger.New("contentgrab", settings.LogLevel, settings.LogFormat)
	if err != nil {
		log.Error("load settings", "error", err)
		os.Exit(1)
	}

	client := remote.NewClient(remote.Config{
		BaseURL:  settings.API.BaseURL,
		Timeout:  settings.API.Timeout,
		RetryMax: settings.API.RetryMax,
	}, log)
	ledger := orchestrator.NewInMemoryLedger()
	met := metrics.New()
	svc := orchestrator.NewService(client, ledger, orchestrator.Config{
		PollInterval:    settings.Poll.Interval,
		MaxPollAttempts: settings.Poll.MaxAttempts,
	}, log, met)
	h := orchestrator.NewHandler(svc, log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(logger.RequestLogger(log))
	r.Use(metrics.RequestMiddleware(met))
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		met.Handler(func() {
			met.SetActiveJobs(svc.ActiveJobs())
			met.SetHistorySize(svc.HistoryCounts().Total)
		}).ServeHTTP(w, r)
	})
	r.Route("/downloads", func(r chi.Router) {
		r.Post("/", h.Submit)
		r.Get("/", h.ListHistory)
		r.Get("/current", h.Current)
		r.Delete("/{id}", h.DeleteRecord)
		r.Post("/{id}/retry", h.Retry)
	})

	addr := ":" + settings.Port
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	log.Info("server starting",
		"port", settings.Port,
		"api_base_url", settings.API.BaseURL,
		"poll_interval", settings.Poll.Interval.String(),
		"poll_max_attempts", settings.Poll.MaxAttempts,
		"log_level", settings.LogLevel,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info("shutdown signal received, draining connections")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	// Jobs outlive requests; give in-flight ones the rest of the budget.
	if err := svc.Drain(ctx); err != nil {
		log.Warn("jobs still running at shutdown", "active_jobs", svc.ActiveJobs())
	}

	log.Info("server stopped")
}
