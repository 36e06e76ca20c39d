package model

import (
	"context"
	"time"
)

// ── Storage Port Interfaces ──
// These interfaces decouple the refresh engine from concrete storage
// implementations (SQLite, Redis). Each implementation satisfies one or more.

// BarReader reads price bars owned by the ingestion side.
type BarReader interface {
	// ListEntities returns every entity id registered for a class, ascending.
	ListEntities(ctx context.Context, class ClassSpec) ([]int64, error)

	// FetchBars returns bars for one series ordered by date ascending.
	// A zero from date means the full history; otherwise only bars
	// strictly after from are returned.
	FetchBars(ctx context.Context, class ClassSpec, entityID int64, timeframe string, from time.Time) ([]Bar, error)

	// FetchLatestBars returns the most recent n bars with date <= until,
	// ordered ascending.
	FetchLatestBars(ctx context.Context, class ClassSpec, entityID int64, timeframe string, n int, until time.Time) ([]Bar, error)
}

// BarWriter writes derived bars (the weekly/monthly resampler output).
type BarWriter interface {
	// UpsertBars inserts or replaces bars in one transaction.
	UpsertBars(ctx context.Context, class ClassSpec, bars []Bar) error
}

// IndicatorStore owns the indicator tables.
type IndicatorStore interface {
	// LatestIndicatorDate returns the refresh cursor for one series: the
	// max date already covered, or the zero time when none exists.
	LatestIndicatorDate(ctx context.Context, class ClassSpec, entityID int64, timeframe string) (time.Time, error)

	// UpsertIndicatorRows inserts or overwrites rows in one transaction.
	// All non-key columns are replaced wholesale on conflict.
	UpsertIndicatorRows(ctx context.Context, class ClassSpec, rows []IndicatorRow) (int64, error)
}

// StatsStore owns the 52-week stats tables.
type StatsStore interface {
	// Week52Stats computes trailing high/low per entity from daily bars
	// with date >= since.
	Week52Stats(ctx context.Context, class ClassSpec, since, asOf time.Time) ([]Week52Stat, error)

	// UpsertWeek52Stats replaces the snapshot rows for a class.
	UpsertWeek52Stats(ctx context.Context, class ClassSpec, stats []Week52Stat) error
}

// LatestCache mirrors the newest indicator row per series into a hot store
// for scanner-type consumers. The engine treats a nil LatestCache as
// "no cache" and never fails a series on cache errors.
type LatestCache interface {
	// SetLatestRow caches the newest row for a series.
	SetLatestRow(ctx context.Context, class ClassSpec, row IndicatorRow) error

	// PublishSummary announces a finished refresh run.
	PublishSummary(ctx context.Context, summary RunSummary) error
}

// EventSink receives per-series refresh progress (status stream).
type EventSink interface {
	Emit(ev RefreshEvent)
}
