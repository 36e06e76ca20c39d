package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"indicator-systemv1/internal/model"
)

// UpsertIndicatorRows inserts or overwrites indicator rows in one
// transaction. On key conflict every non-key column is replaced
// wholesale; NaN values persist as NULL.
func (s *Store) UpsertIndicatorRows(ctx context.Context, class model.ClassSpec, rows []model.IndicatorRow) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("sqlite begin: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, indicatorUpsertSQL(class))
	if err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("sqlite prepare indicator upsert: %w", err)
	}
	defer stmt.Close()

	for _, r := range rows {
		args := []any{
			r.EntityID, r.Timeframe, r.DateKey(),
			nullF(r.SMA20), nullF(r.SMA50), nullF(r.SMA200),
			nullF(r.RSI3), nullF(r.RSI9), nullF(r.RSI14),
			nullF(r.MACD), nullF(r.MACDSignal),
			nullF(r.BBUpper), nullF(r.BBMiddle), nullF(r.BBLower),
			nullF(r.ATR14),
			nullF(r.Supertrend), nullDir(r.SupertrendDir),
			nullF(r.EMARSI93), nullF(r.WMARSI921),
			nullF(r.PctPriceChange),
		}
		if class.HasVolume {
			args = append(args, r.IsFinal)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("sqlite upsert indicator row %d/%s: %w", r.EntityID, r.DateKey(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("sqlite commit: %w", err)
	}
	return int64(len(rows)), nil
}

func indicatorUpsertSQL(class model.ClassSpec) string {
	cols := `sma_20, sma_50, sma_200, rsi_3, rsi_9, rsi_14,
		macd, macd_signal, bb_upper, bb_middle, bb_lower, atr_14,
		supertrend, supertrend_dir, ema_rsi_9_3, wma_rsi_9_21, pct_price_change`
	placeholders := "?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?"
	update := `
			sma_20 = excluded.sma_20,
			sma_50 = excluded.sma_50,
			sma_200 = excluded.sma_200,
			rsi_3 = excluded.rsi_3,
			rsi_9 = excluded.rsi_9,
			rsi_14 = excluded.rsi_14,
			macd = excluded.macd,
			macd_signal = excluded.macd_signal,
			bb_upper = excluded.bb_upper,
			bb_middle = excluded.bb_middle,
			bb_lower = excluded.bb_lower,
			atr_14 = excluded.atr_14,
			supertrend = excluded.supertrend,
			supertrend_dir = excluded.supertrend_dir,
			ema_rsi_9_3 = excluded.ema_rsi_9_3,
			wma_rsi_9_21 = excluded.wma_rsi_9_21,
			pct_price_change = excluded.pct_price_change`
	if class.HasVolume {
		cols += ", is_final"
		placeholders += ", ?"
		update += ",\n\t\t\tis_final = excluded.is_final"
	}
	return fmt.Sprintf(`
		INSERT INTO %s (%s, timeframe, date, %s)
		VALUES (?, ?, ?, %s)
		ON CONFLICT(%s, timeframe, date) DO UPDATE SET%s`,
		class.IndicatorTable, class.IDColumn, cols, placeholders, class.IDColumn, update)
}

// UpsertBars inserts or replaces derived price bars (the resampler
// output) in one transaction.
func (s *Store) UpsertBars(ctx context.Context, class model.ClassSpec, bars []model.Bar) error {
	if len(bars) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite begin: %w", err)
	}

	var q string
	if class.HasVolume {
		q = fmt.Sprintf(`
			INSERT OR REPLACE INTO %s
				(%s, timeframe, date, open, high, low, close, adj_close, volume, delv_pct, is_final)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			class.PriceTable, class.IDColumn)
	} else {
		q = fmt.Sprintf(`
			INSERT OR REPLACE INTO %s
				(%s, timeframe, date, open, high, low, close, adj_close)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			class.PriceTable, class.IDColumn)
	}

	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("sqlite prepare bar upsert: %w", err)
	}
	defer stmt.Close()

	for _, b := range bars {
		args := []any{b.EntityID, b.Timeframe, b.DateKey(), b.Open, b.High, b.Low, b.Close, b.AdjClose}
		if class.HasVolume {
			args = append(args, b.Volume, b.DelvPct, b.IsFinal)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			tx.Rollback()
			return fmt.Errorf("sqlite upsert bar %d/%s: %w", b.EntityID, b.DateKey(), err)
		}
	}
	return tx.Commit()
}

// RegisterEntity records an entity in the class symbol table so it shows
// up in ListEntities. Ingestion normally owns these tables; this exists
// for bootstrap and tests.
func (s *Store) RegisterEntity(ctx context.Context, class model.ClassSpec, id int64, symbol, name string) error {
	var (
		q    string
		args []any
	)
	if class.HasVolume {
		q = fmt.Sprintf(`INSERT OR IGNORE INTO %s (%s, symbol, name) VALUES (?, ?, ?)`,
			class.SymbolTable, class.IDColumn)
		args = []any{id, symbol, name}
	} else {
		q = fmt.Sprintf(`INSERT OR IGNORE INTO %s (%s, index_code, index_name, exchange, yahoo_symbol) VALUES (?, ?, ?, '', ?)`,
			class.SymbolTable, class.IDColumn)
		args = []any{id, symbol, name, symbol}
	}
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("sqlite register %s entity %d: %w", class.Name, id, err)
	}
	return nil
}

// Week52Stats computes the trailing high/low per entity from daily bars
// newer than since.
func (s *Store) Week52Stats(ctx context.Context, class model.ClassSpec, since, asOf time.Time) ([]model.Week52Stat, error) {
	q := fmt.Sprintf(`
		SELECT %s, MAX(high), MIN(low)
		FROM %s
		WHERE timeframe = '1d' AND date >= ?
		GROUP BY %s
		ORDER BY %s`,
		class.IDColumn, class.PriceTable, class.IDColumn, class.IDColumn)

	rows, err := s.db.QueryContext(ctx, q, since.Format(model.DateFormat))
	if err != nil {
		return nil, fmt.Errorf("sqlite 52w query for %s: %w", class.Name, err)
	}
	defer rows.Close()

	var stats []model.Week52Stat
	for rows.Next() {
		var (
			id        int64
			high, low sql.NullFloat64
		)
		if err := rows.Scan(&id, &high, &low); err != nil {
			return nil, fmt.Errorf("sqlite 52w scan: %w", err)
		}
		if !high.Valid {
			continue
		}
		stats = append(stats, model.Week52Stat{
			EntityID: id,
			High:     high.Float64,
			Low:      low.Float64,
			AsOf:     asOf,
		})
	}
	return stats, rows.Err()
}

// UpsertWeek52Stats replaces the 52-week snapshot rows for a class.
func (s *Store) UpsertWeek52Stats(ctx context.Context, class model.ClassSpec, stats []model.Week52Stat) error {
	if len(stats) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite begin: %w", err)
	}
	q := fmt.Sprintf(`
		INSERT INTO %s (%s, week52_high, week52_low, as_of_date)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(%s) DO UPDATE SET
			week52_high = excluded.week52_high,
			week52_low  = excluded.week52_low,
			as_of_date  = excluded.as_of_date`,
		class.StatsTable, class.IDColumn, class.IDColumn)

	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("sqlite prepare 52w upsert: %w", err)
	}
	defer stmt.Close()

	for _, st := range stats {
		if _, err := stmt.ExecContext(ctx, st.EntityID, st.High, st.Low, st.AsOf.Format(model.DateFormat)); err != nil {
			tx.Rollback()
			return fmt.Errorf("sqlite upsert 52w %d: %w", st.EntityID, err)
		}
	}
	return tx.Commit()
}

func nullF(v float64) any {
	if math.IsNaN(v) {
		return nil
	}
	return v
}

// nullDir maps the undefined direction (0) to NULL; ±1 persist as-is.
func nullDir(d int) any {
	if d == 0 {
		return nil
	}
	return d
}
