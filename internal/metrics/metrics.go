package metrics

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the indicator refresh engine.
type Metrics struct {
	RunsTotal     prometheus.Counter
	RunFailures   prometheus.Counter
	LastRunUnix   prometheus.Gauge
	LastRunRows   prometheus.Gauge
	LastRunFailed prometheus.Gauge

	SeriesProcessed *prometheus.CounterVec // labels: class, timeframe
	SeriesFailed    *prometheus.CounterVec // labels: class, timeframe
	RowsUpserted    *prometheus.CounterVec // labels: class, timeframe

	SeriesRefreshDur prometheus.Histogram
	UpsertDur        prometheus.Histogram
	RunDur           prometheus.Histogram

	ResampledBars *prometheus.CounterVec // labels: class, timeframe
}

// NewMetrics registers and returns all Prometheus metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		RunsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "indrefresh_runs_total",
			Help: "Total refresh runs started",
		}),
		RunFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "indrefresh_run_failures_total",
			Help: "Refresh runs that aborted before completion",
		}),
		LastRunUnix: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "indrefresh_last_run_timestamp_seconds",
			Help: "Unix time the last refresh run finished",
		}),
		LastRunRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "indrefresh_last_run_rows",
			Help: "Indicator rows upserted by the last refresh run",
		}),
		LastRunFailed: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "indrefresh_last_run_failed_series",
			Help: "Series that failed during the last refresh run",
		}),

		SeriesProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "indrefresh_series_processed_total",
			Help: "Series refreshed successfully (by class and timeframe)",
		}, []string{"class", "tf"}),
		SeriesFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "indrefresh_series_failed_total",
			Help: "Series skipped after an error (by class and timeframe)",
		}, []string{"class", "tf"}),
		RowsUpserted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "indrefresh_rows_upserted_total",
			Help: "Indicator rows inserted or replaced (by class and timeframe)",
		}, []string{"class", "tf"}),

		SeriesRefreshDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "indrefresh_series_refresh_duration_seconds",
			Help:    "Wall time to refresh one (entity, timeframe) series",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
		}),
		UpsertDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "indrefresh_upsert_duration_seconds",
			Help:    "SQLite upsert transaction latency",
			Buckets: prometheus.DefBuckets,
		}),
		RunDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "indrefresh_run_duration_seconds",
			Help:    "Wall time for a complete refresh run",
			Buckets: []float64{1, 5, 15, 60, 300, 900, 1800, 3600},
		}),

		ResampledBars: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "indrefresh_resampled_bars_total",
			Help: "Weekly/monthly bars derived from daily data (by class and timeframe)",
		}, []string{"class", "tf"}),
	}

	prometheus.MustRegister(
		m.RunsTotal,
		m.RunFailures,
		m.LastRunUnix,
		m.LastRunRows,
		m.LastRunFailed,
		m.SeriesProcessed,
		m.SeriesFailed,
		m.RowsUpserted,
		m.SeriesRefreshDur,
		m.UpsertDur,
		m.RunDur,
		m.ResampledBars,
	)

	return m
}

// HealthStatus represents the refresh service health.
type HealthStatus struct {
	mu sync.RWMutex

	RedisConnected bool      `json:"redis_connected"`
	SQLiteOK       bool      `json:"sqlite_ok"`
	LastRunAt      time.Time `json:"last_run_at"`
	LastRunErr     string    `json:"last_run_err"`
	RunInProgress  bool      `json:"run_in_progress"`

	// Liveness probe results
	RedisLatencyMs  float64   `json:"redis_latency_ms"`
	SQLiteLatencyMs float64   `json:"sqlite_latency_ms"`
	LastCheckAt     time.Time `json:"last_check_at"`
	StartedAt       time.Time `json:"started_at"`
}

// NewHealthStatus returns a default health status.
func NewHealthStatus() *HealthStatus {
	return &HealthStatus{
		StartedAt: time.Now(),
	}
}

func (h *HealthStatus) SetRunInProgress(v bool) {
	h.mu.Lock()
	h.RunInProgress = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetLastRun(at time.Time, err error) {
	h.mu.Lock()
	h.LastRunAt = at
	if err != nil {
		h.LastRunErr = err.Error()
	} else {
		h.LastRunErr = ""
	}
	h.mu.Unlock()
}

// CheckRedis pings Redis and records latency + connectivity.
func (h *HealthStatus) CheckRedis(ctx context.Context, rdb *goredis.Client) {
	start := time.Now()
	err := rdb.Ping(ctx).Err()
	latency := time.Since(start)

	h.mu.Lock()
	h.RedisConnected = err == nil
	h.RedisLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// CheckSQLite runs a trivial query and records latency + health.
func (h *HealthStatus) CheckSQLite(ctx context.Context, db *sql.DB) {
	start := time.Now()
	err := db.PingContext(ctx)
	latency := time.Since(start)

	h.mu.Lock()
	h.SQLiteOK = err == nil
	h.SQLiteLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// StartLivenessChecker runs periodic dependency checks.
func (h *HealthStatus) StartLivenessChecker(ctx context.Context, rdb *goredis.Client, sqlDB *sql.DB, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
				if rdb != nil {
					h.CheckRedis(probeCtx, rdb)
				}
				if sqlDB != nil {
					h.CheckSQLite(probeCtx, sqlDB)
				}
				cancel()
			}
		}
	}()
}

// ServeHTTP handles the /healthz endpoint.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	// SQLite is the system of record; Redis is a cache and only degrades.
	overallStatus := "healthy"
	httpCode := http.StatusOK
	if !h.SQLiteOK {
		overallStatus = "unhealthy"
		httpCode = http.StatusServiceUnavailable
	} else if !h.RedisConnected {
		overallStatus = "degraded"
	}

	lastRun := ""
	if !h.LastRunAt.IsZero() {
		lastRun = h.LastRunAt.Format(time.RFC3339)
	}

	status := struct {
		Status          string  `json:"status"`
		Uptime          string  `json:"uptime"`
		RunInProgress   bool    `json:"run_in_progress"`
		LastRunAt       string  `json:"last_run_at"`
		LastRunErr      string  `json:"last_run_err,omitempty"`
		RedisConnected  bool    `json:"redis_connected"`
		RedisLatencyMs  float64 `json:"redis_latency_ms"`
		SQLiteOK        bool    `json:"sqlite_ok"`
		SQLiteLatencyMs float64 `json:"sqlite_latency_ms"`
		LastCheckAt     string  `json:"last_check_at"`
	}{
		Status:          overallStatus,
		Uptime:          time.Since(h.StartedAt).Round(time.Second).String(),
		RunInProgress:   h.RunInProgress,
		LastRunAt:       lastRun,
		LastRunErr:      h.LastRunErr,
		RedisConnected:  h.RedisConnected,
		RedisLatencyMs:  h.RedisLatencyMs,
		SQLiteOK:        h.SQLiteOK,
		SQLiteLatencyMs: h.SQLiteLatencyMs,
		LastCheckAt:     h.LastCheckAt.Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if httpCode != http.StatusOK {
		w.WriteHeader(httpCode)
	}
	json.NewEncoder(w).Encode(status)
}

// Server runs an HTTP server exposing /metrics and /healthz.
type Server struct {
	health *HealthStatus
	addr   string
	srv    *http.Server
}

// NewServer creates a metrics and health server. Extra handlers (the
// status websocket) can be attached to the returned mux before Start.
func NewServer(addr string, health *HealthStatus) (*Server, *http.ServeMux) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", health.ServeHTTP)

	return &Server{
		health: health,
		addr:   addr,
		srv: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
	}, mux
}

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		slog.Info("metrics server listening", "addr", s.addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error("metrics server error", "err", err)
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}
