// Command refreshd runs the indicator refresh on a cron schedule and
// exposes /metrics, /healthz and the /ws/status progress stream. Each
// scheduled run derives weekly/monthly bars, refreshes indicators for
// every configured timeframe and rebuilds the 52-week stats.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"indicator-systemv1/config"
	"indicator-systemv1/internal/gateway"
	"indicator-systemv1/internal/logger"
	"indicator-systemv1/internal/metrics"
	"indicator-systemv1/internal/model"
	"indicator-systemv1/internal/refresh"
	"indicator-systemv1/internal/resample"
	"indicator-systemv1/internal/store/redis"
	"indicator-systemv1/internal/store/sqlite"
)

type daemon struct {
	cfg    *config.Config
	log    *slog.Logger
	store  *sqlite.Store
	cache  *redis.Cache // nil when disabled or unreachable
	eng    *refresh.Engine
	gen    *resample.Generator
	hub    *gateway.Hub
	health *metrics.HealthStatus

	runMu sync.Mutex // one refresh run at a time
}

func main() {
	var (
		cfgPath    = flag.String("config", "config.yaml", "path to config file")
		runAtStart = flag.Bool("run-at-start", false, "run one refresh immediately, then follow the schedule")
	)
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	log := logger.Init("refreshd", cfg.LogLevel())

	st, err := sqlite.New(sqlite.Config{Path: cfg.Database.Path}, log)
	if err != nil {
		log.Error("sqlite open failed", "err", err)
		os.Exit(1)
	}
	defer st.Close()

	var cache *redis.Cache
	if !cfg.Redis.Disabled {
		cache, err = redis.New(redis.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, log)
		if err != nil {
			log.Warn("redis unavailable, running without cache", "err", err)
			cache = nil
		} else {
			defer cache.Close()
		}
	}

	met := metrics.NewMetrics()
	health := metrics.NewHealthStatus()
	hub := gateway.NewHub(log)
	gen := resample.NewGenerator(st, st, met, log)

	var latestCache model.LatestCache
	if cache != nil {
		latestCache = cache
	}
	eng, err := refresh.New(refresh.Config{
		Timeframes: cfg.Refresh.Timeframes,
		Lookback:   cfg.Refresh.Lookback,
	}, st, st, latestCache, hub, met, log)
	if err != nil {
		log.Error("engine init failed", "err", err)
		os.Exit(1)
	}

	d := &daemon{
		cfg:    cfg,
		log:    log,
		store:  st,
		cache:  cache,
		eng:    eng,
		gen:    gen,
		hub:    hub,
		health: health,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	srv, mux := metrics.NewServer(cfg.HTTP.Addr, health)
	mux.Handle("/ws/status", hub)
	srv.Start()

	if cache != nil {
		health.StartLivenessChecker(ctx, cache.Client(), st.DB(), 15*time.Second)
	} else {
		health.StartLivenessChecker(ctx, nil, st.DB(), 15*time.Second)
	}

	// The schedule uses a seconds field, e.g. "0 30 18 * * 1-5".
	sched := cron.New(cron.WithSeconds())
	if _, err := sched.AddFunc(cfg.Refresh.Cron, func() { d.runOnce(ctx) }); err != nil {
		log.Error("bad cron expression", "cron", cfg.Refresh.Cron, "err", err)
		os.Exit(1)
	}
	sched.Start()
	log.Info("refresh daemon started", "cron", cfg.Refresh.Cron, "http", cfg.HTTP.Addr)

	if *runAtStart {
		go d.runOnce(ctx)
	}

	<-ctx.Done()
	log.Info("shutting down")

	stopCtx := sched.Stop() // waits for a running job
	select {
	case <-stopCtx.Done():
	case <-time.After(30 * time.Second):
		log.Warn("refresh run still in progress at shutdown deadline")
	}

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutCancel()
	srv.Stop(shutCtx)
}

// runOnce executes one complete refresh cycle: derived bars, indicators,
// 52-week stats. Overlapping triggers are serialized.
func (d *daemon) runOnce(ctx context.Context) {
	d.runMu.Lock()
	defer d.runMu.Unlock()

	ctx = logger.WithRunID(ctx, logger.NewRunID("refresh", time.Now()))
	d.health.SetRunInProgress(true)
	defer d.health.SetRunInProgress(false)

	start := time.Now()
	d.log.Info("scheduled refresh starting", logger.WithRun(ctx)...)

	derived, err := d.gen.Run(ctx, model.Classes)
	if err != nil {
		d.log.Error("resample failed", "err", err)
		d.health.SetLastRun(time.Now(), err)
		return
	}
	d.log.Info("derived bars refreshed", "bars", derived)

	sum, err := d.eng.RunAll(ctx, model.Classes)
	if err != nil {
		d.log.Error("refresh failed", "err", err)
		d.health.SetLastRun(time.Now(), err)
		return
	}
	d.hub.EmitSummary(sum)

	stats, err := refresh.RefreshWeek52(ctx, d.store, model.Classes, time.Now(), d.log)
	if err != nil {
		d.log.Error("52-week stats failed", "err", err)
		d.health.SetLastRun(time.Now(), err)
		return
	}
	d.log.Info("52-week stats refreshed", "entities", stats)

	d.health.SetLastRun(time.Now(), nil)
	d.log.Info("scheduled refresh complete",
		"rows", sum.TotalRows(),
		"failed_series", sum.TotalFailed(),
		"elapsed", time.Since(start).Round(time.Millisecond))
}
