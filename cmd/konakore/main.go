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

	"golang.org/x/sync/errgroup"

	"github.com/CheerChen/konakore/internal/config"
	"github.com/CheerChen/konakore/internal/fetcher"
	"github.com/CheerChen/konakore/internal/job"
	"github.com/CheerChen/konakore/internal/platform/sqlite"
	postrepo "github.com/CheerChen/konakore/internal/repository/post"
	schedrepo "github.com/CheerChen/konakore/internal/repository/schedule"
	"github.com/CheerChen/konakore/internal/schedule"
	"github.com/CheerChen/konakore/internal/server"
)

func main() {
	cfg := config.Load()

	// Root context: cancelled on SIGINT/SIGTERM so in-flight ticks stop
	// promptly during graceful shutdown.
	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	// Open database
	db, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	// Repositories
	postRepo := postrepo.NewRepository(db.DB)
	scheduleRepo := schedrepo.NewRepository(db.DB)

	// Services
	scheduleSvc := schedule.NewService(scheduleRepo)
	if err := scheduleSvc.Bootstrap(rootCtx); err != nil {
		slog.Error("failed to bootstrap schedule state", "error", err)
		os.Exit(1)
	}

	syncer := fetcher.New(postRepo, fetcher.WithBaseURL(cfg.SourceURL))

	// Jobs. The backfill drives itself through the timer trigger; the
	// recurring job runs on a fixed cadence and never reschedules anything.
	timers := job.NewTimers(rootCtx)
	backfill := job.NewBackfill(scheduleRepo, syncer, timers,
		job.WithBackfillPageSize(cfg.PageSize),
	)
	timers.Register(schedule.JobBackfill, backfill.Tick)
	timers.Reschedule(schedule.JobBackfill, time.Second)

	recurring := job.NewRecurring(scheduleRepo, syncer,
		job.WithRecurringPageSize(cfg.PageSize),
	)

	g, gctx := errgroup.WithContext(rootCtx)
	g.Go(func() error {
		job.RunEvery(gctx, schedule.JobRecent, cfg.RecurringInterval, recurring.Tick)
		return nil
	})

	// HTTP server — rootCtx is used as BaseContext so every request context
	// inherits from it and is cancelled on shutdown.
	srv := server.New(rootCtx, cfg.Port, scheduleSvc)

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("server started", "port", cfg.Port)
	<-done

	// Cancel the root context first so a pending backfill timer never fires
	// mid-shutdown, then stop the timers and wait for the cadence loop.
	rootCancel()
	timers.Stop()
	_ = g.Wait()

	// Then drain connections with a deadline.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
	slog.Info("server stopped")
}
