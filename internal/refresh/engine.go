// Package refresh computes technical indicators over stored price bars
// and keeps the indicator tables current without recomputing full history
// on every run. The engine resumes from a per-series cursor (the newest
// indicator date already persisted) and recomputes only a trailing buffer
// plus the new bars, which is enough for every recurrence kernel to
// converge before the first date it actually writes.
package refresh

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"indicator-systemv1/internal/metrics"
	"indicator-systemv1/internal/model"
)

// Refresh modes per series.
const (
	ModeFull        = "full"
	ModeIncremental = "incremental"
)

// DefaultLookback is the incremental-mode buffer: bars recomputed behind
// the cursor so path-dependent kernels (EMA, Wilder, Supertrend) converge
// before the first new date. 300 covers the 200-bar SMA window plus a
// generous recurrence tail.
const DefaultLookback = 300

// MinLookback is the hard floor: the longest kernel window (sma_200)
// plus a convergence margin. Configs below this are rejected.
const MinLookback = 250

// Config controls one refresh run.
type Config struct {
	Timeframes []string // refresh order, e.g. ["1d", "1wk", "1mo"]
	Lookback   int      // incremental buffer size in bars
	Full       bool     // force full recompute, ignoring cursors
}

// Engine orchestrates indicator refresh across entity classes, entities
// and timeframes. Series are processed strictly sequentially and each is
// committed before the next begins, so an interrupted run leaves a clean
// prefix of refreshed series and re-running is always safe.
type Engine struct {
	cfg   Config
	bars  model.BarReader
	store model.IndicatorStore
	cache model.LatestCache
	sink  model.EventSink
	met   *metrics.Metrics
	log   *slog.Logger
}

// New creates an Engine. cache, sink and met may be nil; the engine then
// runs without the hot cache, the status stream or Prometheus.
func New(cfg Config, bars model.BarReader, store model.IndicatorStore, cache model.LatestCache, sink model.EventSink, met *metrics.Metrics, log *slog.Logger) (*Engine, error) {
	if cfg.Lookback == 0 {
		cfg.Lookback = DefaultLookback
	}
	if cfg.Lookback < MinLookback {
		return nil, fmt.Errorf("lookback %d below minimum %d (longest kernel window plus convergence margin)", cfg.Lookback, MinLookback)
	}
	if len(cfg.Timeframes) == 0 {
		return nil, fmt.Errorf("no timeframes configured")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		cfg:   cfg,
		bars:  bars,
		store: store,
		cache: cache,
		sink:  sink,
		met:   met,
		log:   log,
	}, nil
}

// RunAll refreshes every class × timeframe × entity combination and
// returns the run summary. Per-series failures are logged, counted and
// skipped; only listing entities or context cancellation aborts the run.
func (e *Engine) RunAll(ctx context.Context, classes []model.ClassSpec) (model.RunSummary, error) {
	sum := model.RunSummary{StartedAt: time.Now()}
	if e.met != nil {
		e.met.RunsTotal.Inc()
	}

	for _, class := range classes {
		ids, err := e.bars.ListEntities(ctx, class)
		if err != nil {
			if e.met != nil {
				e.met.RunFailures.Inc()
			}
			return sum, fmt.Errorf("list %s entities: %w", class.Name, err)
		}
		e.log.Info("refreshing class", "class", class.Name, "entities", len(ids))

		for _, tf := range e.cfg.Timeframes {
			ts, err := e.runTimeframe(ctx, class, tf, ids)
			sum.Timeframes = append(sum.Timeframes, ts)
			if err != nil {
				if e.met != nil {
					e.met.RunFailures.Inc()
				}
				return sum, err
			}
		}
	}

	sum.FinishedAt = time.Now()
	if e.met != nil {
		e.met.RunDur.Observe(sum.FinishedAt.Sub(sum.StartedAt).Seconds())
		e.met.LastRunUnix.SetToCurrentTime()
		e.met.LastRunRows.Set(float64(sum.TotalRows()))
		e.met.LastRunFailed.Set(float64(sum.TotalFailed()))
	}
	if e.cache != nil {
		if err := e.cache.PublishSummary(ctx, sum); err != nil {
			e.log.Warn("summary publish failed", "err", err)
		}
	}
	e.log.Info("refresh run complete",
		"rows", sum.TotalRows(),
		"failed_series", sum.TotalFailed(),
		"elapsed", sum.FinishedAt.Sub(sum.StartedAt).Round(time.Millisecond))
	return sum, nil
}

// runTimeframe refreshes one class × timeframe pass over all entities.
func (e *Engine) runTimeframe(ctx context.Context, class model.ClassSpec, tf string, ids []int64) (model.TimeframeSummary, error) {
	ts := model.TimeframeSummary{Class: class.Name, Timeframe: tf}
	start := time.Now()
	e.log.Info("timeframe pass started", "class", class.Name, "tf", tf)

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			ts.Elapsed = time.Since(start)
			return ts, err
		}

		seriesStart := time.Now()
		rows, mode, err := e.refreshSeries(ctx, class, id, tf)
		if e.met != nil {
			e.met.SeriesRefreshDur.Observe(time.Since(seriesStart).Seconds())
		}

		ev := model.RefreshEvent{
			Class:     class.Name,
			EntityID:  id,
			Timeframe: tf,
			Mode:      mode,
			Rows:      rows,
			TS:        time.Now(),
		}
		if err != nil {
			ts.Failed++
			ev.Err = err.Error()
			if e.met != nil {
				e.met.SeriesFailed.WithLabelValues(class.Name, tf).Inc()
			}
			e.log.Error("series refresh failed",
				"class", class.Name, "entity", id, "tf", tf, "err", err)
		} else {
			ts.Entities++
			ts.Rows += rows
			if e.met != nil {
				e.met.SeriesProcessed.WithLabelValues(class.Name, tf).Inc()
				e.met.RowsUpserted.WithLabelValues(class.Name, tf).Add(float64(rows))
			}
		}
		if e.sink != nil {
			e.sink.Emit(ev)
		}
	}

	ts.Elapsed = time.Since(start)
	e.log.Info("timeframe pass complete",
		"class", class.Name, "tf", tf,
		"entities", ts.Entities, "failed", ts.Failed, "rows", ts.Rows,
		"elapsed", ts.Elapsed.Round(time.Millisecond))
	return ts, nil
}

// refreshSeries brings one (entity, timeframe) series up to date and
// commits it. Incremental mode recomputes lookback bars behind the cursor
// but persists only rows strictly after it; a series with no cursor (or a
// forced run) recomputes from the first bar.
func (e *Engine) refreshSeries(ctx context.Context, class model.ClassSpec, id int64, tf string) (int64, string, error) {
	cursor, err := e.store.LatestIndicatorDate(ctx, class, id, tf)
	if err != nil {
		return 0, "", fmt.Errorf("read cursor: %w", err)
	}

	mode := ModeIncremental
	var bars []model.Bar
	if e.cfg.Full || cursor.IsZero() {
		mode = ModeFull
		bars, err = e.bars.FetchBars(ctx, class, id, tf, time.Time{})
		if err != nil {
			return 0, mode, fmt.Errorf("fetch bars: %w", err)
		}
	} else {
		fresh, err := e.bars.FetchBars(ctx, class, id, tf, cursor)
		if err != nil {
			return 0, mode, fmt.Errorf("fetch new bars: %w", err)
		}
		if len(fresh) == 0 {
			return 0, mode, nil // cursor already at the newest bar
		}
		buffer, err := e.bars.FetchLatestBars(ctx, class, id, tf, e.cfg.Lookback, cursor)
		if err != nil {
			return 0, mode, fmt.Errorf("fetch buffer bars: %w", err)
		}
		bars = mergeBars(buffer, fresh)
	}
	if len(bars) == 0 {
		return 0, mode, nil
	}

	rows := Compute(bars)
	if mode == ModeIncremental {
		rows = dropThrough(rows, cursor)
	}
	if len(rows) == 0 {
		return 0, mode, nil
	}

	upsertStart := time.Now()
	n, err := e.store.UpsertIndicatorRows(ctx, class, rows)
	if err != nil {
		return 0, mode, fmt.Errorf("upsert %d rows: %w", len(rows), err)
	}
	if e.met != nil {
		e.met.UpsertDur.Observe(time.Since(upsertStart).Seconds())
	}

	// Cache errors degrade the hot path, not the refresh.
	if e.cache != nil {
		last := rows[len(rows)-1]
		if cerr := e.cache.SetLatestRow(ctx, class, last); cerr != nil {
			e.log.Warn("latest cache write failed",
				"class", class.Name, "entity", id, "tf", tf, "err", cerr)
		}
	}
	return n, mode, nil
}

// mergeBars joins the lookback buffer with the new bars, de-duplicates by
// date (a bar present in both keeps the newer copy) and sorts ascending.
func mergeBars(buffer, fresh []model.Bar) []model.Bar {
	merged := make([]model.Bar, 0, len(buffer)+len(fresh))
	merged = append(merged, buffer...)
	merged = append(merged, fresh...)
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Date.Before(merged[j].Date)
	})

	out := merged[:0]
	for _, b := range merged {
		if len(out) > 0 && out[len(out)-1].Date.Equal(b.Date) {
			out[len(out)-1] = b
			continue
		}
		out = append(out, b)
	}
	return out
}

// dropThrough removes rows at or before the cursor; they are already
// persisted and were recomputed only to warm up the kernels.
func dropThrough(rows []model.IndicatorRow, cursor time.Time) []model.IndicatorRow {
	out := rows[:0]
	for _, r := range rows {
		if r.Date.After(cursor) {
			out = append(out, r)
		}
	}
	return out
}
