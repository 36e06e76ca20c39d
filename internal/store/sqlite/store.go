// Package sqlite is the system of record: price bars, indicator rows and
// 52-week stats live in one SQLite file. Equities and indices use parallel
// table sets that differ only in the id column and the volume-derived
// columns, so every statement is built from the ClassSpec.
package sqlite

import (
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"indicator-systemv1/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

// Config configures the SQLite store.
type Config struct {
	Path string // path to the database file, e.g. "data/stocks.db"
}

// Store wraps the database handle. It satisfies model.BarReader,
// model.BarWriter and model.IndicatorStore.
type Store struct {
	db  *sql.DB
	log *slog.Logger
}

// New opens the database with WAL mode and ensures the schema exists.
func New(cfg Config, log *slog.Logger) (*Store, error) {
	if log == nil {
		log = slog.Default()
	}
	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	// Single writer; WAL keeps readers unblocked.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	log.Info("sqlite store opened", "path", cfg.Path)
	return &Store{db: db, log: log}, nil
}

// DB returns the underlying sql.DB for health checks.
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS equity_symbols (
			symbol_id    INTEGER PRIMARY KEY,
			symbol       TEXT NOT NULL UNIQUE,
			series       TEXT,
			exchange     TEXT,
			name         TEXT,
			sector       TEXT,
			listing_date TEXT,
			isin         TEXT
		);

		CREATE TABLE IF NOT EXISTS index_symbols (
			index_id     INTEGER PRIMARY KEY,
			index_code   TEXT NOT NULL UNIQUE,
			index_name   TEXT NOT NULL,
			exchange     TEXT NOT NULL,
			yahoo_symbol TEXT NOT NULL UNIQUE,
			category     TEXT,
			is_active    INTEGER DEFAULT 1
		);

		CREATE TABLE IF NOT EXISTS timeframes (
			timeframe   TEXT PRIMARY KEY,
			description TEXT
		);

		CREATE TABLE IF NOT EXISTS equity_price_data (
			symbol_id INTEGER NOT NULL,
			timeframe TEXT NOT NULL,
			date      TEXT NOT NULL,
			open      REAL,
			high      REAL,
			low       REAL,
			close     REAL,
			adj_close REAL,
			volume    REAL,
			delv_pct  REAL,
			is_final  BOOLEAN NOT NULL DEFAULT 1,
			PRIMARY KEY (symbol_id, timeframe, date),
			FOREIGN KEY (symbol_id) REFERENCES equity_symbols(symbol_id),
			FOREIGN KEY (timeframe) REFERENCES timeframes(timeframe)
		);

		CREATE TABLE IF NOT EXISTS index_price_data (
			index_id  INTEGER NOT NULL,
			timeframe TEXT NOT NULL,
			date      TEXT NOT NULL,
			open      REAL,
			high      REAL,
			low       REAL,
			close     REAL,
			adj_close REAL,
			PRIMARY KEY (index_id, timeframe, date),
			FOREIGN KEY (index_id) REFERENCES index_symbols(index_id),
			FOREIGN KEY (timeframe) REFERENCES timeframes(timeframe)
		);

		CREATE TABLE IF NOT EXISTS equity_indicators (
			symbol_id        INTEGER NOT NULL,
			timeframe        TEXT NOT NULL,
			date             TEXT NOT NULL,
			sma_20           REAL,
			sma_50           REAL,
			sma_200          REAL,
			rsi_3            REAL,
			rsi_9            REAL,
			rsi_14           REAL,
			macd             REAL,
			macd_signal      REAL,
			bb_upper         REAL,
			bb_middle        REAL,
			bb_lower         REAL,
			atr_14           REAL,
			supertrend       REAL,
			supertrend_dir   INTEGER,
			ema_rsi_9_3      REAL,
			wma_rsi_9_21     REAL,
			pct_price_change REAL,
			is_final         BOOLEAN NOT NULL DEFAULT 1,
			PRIMARY KEY (symbol_id, timeframe, date),
			FOREIGN KEY (symbol_id) REFERENCES equity_symbols(symbol_id),
			FOREIGN KEY (timeframe) REFERENCES timeframes(timeframe)
		);

		CREATE TABLE IF NOT EXISTS index_indicators (
			index_id         INTEGER NOT NULL,
			timeframe        TEXT NOT NULL,
			date             TEXT NOT NULL,
			sma_20           REAL,
			sma_50           REAL,
			sma_200          REAL,
			rsi_3            REAL,
			rsi_9            REAL,
			rsi_14           REAL,
			macd             REAL,
			macd_signal      REAL,
			bb_upper         REAL,
			bb_middle        REAL,
			bb_lower         REAL,
			atr_14           REAL,
			supertrend       REAL,
			supertrend_dir   INTEGER,
			ema_rsi_9_3      REAL,
			wma_rsi_9_21     REAL,
			pct_price_change REAL,
			PRIMARY KEY (index_id, timeframe, date),
			FOREIGN KEY (index_id) REFERENCES index_symbols(index_id),
			FOREIGN KEY (timeframe) REFERENCES timeframes(timeframe)
		);

		CREATE TABLE IF NOT EXISTS equity_52week_stats (
			symbol_id   INTEGER PRIMARY KEY,
			week52_high REAL,
			week52_low  REAL,
			as_of_date  TEXT,
			FOREIGN KEY (symbol_id) REFERENCES equity_symbols(symbol_id)
		);

		CREATE TABLE IF NOT EXISTS index_52week_stats (
			index_id    INTEGER PRIMARY KEY,
			week52_high REAL,
			week52_low  REAL,
			as_of_date  TEXT,
			FOREIGN KEY (index_id) REFERENCES index_symbols(index_id)
		);

		CREATE INDEX IF NOT EXISTS idx_eq_price ON equity_price_data(symbol_id, timeframe, date);
		CREATE INDEX IF NOT EXISTS idx_idx_price ON index_price_data(index_id, timeframe, date);
		CREATE INDEX IF NOT EXISTS idx_eq_ind ON equity_indicators(symbol_id, timeframe, date);
		CREATE INDEX IF NOT EXISTS idx_idx_ind ON index_indicators(index_id, timeframe, date);
	`)
	if err != nil {
		return err
	}

	// Seed the timeframe lookup table.
	for _, tf := range model.Timeframes {
		if _, err := db.Exec(
			`INSERT OR IGNORE INTO timeframes (timeframe, description) VALUES (?, ?)`,
			tf, strings.ToUpper(tf),
		); err != nil {
			return err
		}
	}
	return nil
}
