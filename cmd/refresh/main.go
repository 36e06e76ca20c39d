// Command refresh runs one indicator refresh pass and exits. It derives
// weekly and monthly bars from daily data, brings the indicator tables up
// to date for every configured timeframe and rebuilds the 52-week stats.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"indicator-systemv1/config"
	"indicator-systemv1/internal/logger"
	"indicator-systemv1/internal/model"
	"indicator-systemv1/internal/refresh"
	"indicator-systemv1/internal/resample"
	"indicator-systemv1/internal/store/redis"
	"indicator-systemv1/internal/store/sqlite"
)

func main() {
	var (
		cfgPath   = flag.String("config", "config.yaml", "path to config file")
		className = flag.String("class", "", "refresh only this class (equity or index)")
		timeframe = flag.String("timeframe", "", "refresh only this timeframe (1d, 1wk or 1mo)")
		full      = flag.Bool("full", false, "force full recompute, ignoring cursors")
		noDerived = flag.Bool("skip-resample", false, "skip weekly/monthly bar derivation")
		noStats   = flag.Bool("skip-52w", false, "skip the 52-week stats rebuild")
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

	log := logger.Init("refresh", cfg.LogLevel())

	classes := model.Classes
	if *className != "" {
		class, ok := model.ClassByName(*className)
		if !ok {
			log.Error("unknown class", "class", *className)
			os.Exit(1)
		}
		classes = []model.ClassSpec{class}
	}

	timeframes := cfg.Refresh.Timeframes
	if *timeframe != "" {
		timeframes = []string{*timeframe}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	ctx = logger.WithRunID(ctx, logger.NewRunID("refresh", time.Now()))

	st, err := sqlite.New(sqlite.Config{Path: cfg.Database.Path}, log)
	if err != nil {
		log.Error("sqlite open failed", "err", err)
		os.Exit(1)
	}
	defer st.Close()

	var cache model.LatestCache
	if !cfg.Redis.Disabled {
		rc, err := redis.New(redis.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, log)
		if err != nil {
			// The cache is derivative; a one-shot run proceeds without it.
			log.Warn("redis unavailable, continuing without cache", "err", err)
		} else {
			defer rc.Close()
			cache = rc
		}
	}

	if !*noDerived {
		gen := resample.NewGenerator(st, st, nil, log)
		n, err := gen.Run(ctx, classes)
		if err != nil {
			log.Error("resample failed", "err", err)
			os.Exit(1)
		}
		log.Info("derived bars refreshed", "bars", n)
	}

	eng, err := refresh.New(refresh.Config{
		Timeframes: timeframes,
		Lookback:   cfg.Refresh.Lookback,
		Full:       *full,
	}, st, st, cache, nil, nil, log)
	if err != nil {
		log.Error("engine init failed", "err", err)
		os.Exit(1)
	}

	sum, err := eng.RunAll(ctx, classes)
	if err != nil {
		log.Error("refresh failed", "err", err)
		os.Exit(1)
	}

	if !*noStats {
		n, err := refresh.RefreshWeek52(ctx, st, classes, time.Now(), log)
		if err != nil {
			log.Error("52-week stats failed", "err", err)
			os.Exit(1)
		}
		log.Info("52-week stats refreshed", "entities", n)
	}

	if sum.TotalFailed() > 0 {
		log.Warn("run finished with failed series", "failed", sum.TotalFailed())
		os.Exit(1)
	}
}
