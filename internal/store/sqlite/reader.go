package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"indicator-systemv1/internal/model"
)

// ListEntities returns every entity id registered for a class, ascending.
func (s *Store) ListEntities(ctx context.Context, class model.ClassSpec) ([]int64, error) {
	q := fmt.Sprintf(`SELECT %s FROM %s ORDER BY %s`, class.IDColumn, class.SymbolTable, class.IDColumn)
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("sqlite list %s entities: %w", class.Name, err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("sqlite scan entity id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// FetchBars returns one series ordered by date ascending. A zero from
// means full history; otherwise only bars strictly after from.
func (s *Store) FetchBars(ctx context.Context, class model.ClassSpec, entityID int64, timeframe string, from time.Time) ([]model.Bar, error) {
	q := fmt.Sprintf(`
		SELECT date, open, high, low, close, adj_close%s
		FROM %s
		WHERE %s = ? AND timeframe = ?`,
		volumeCols(class), class.PriceTable, class.IDColumn)
	args := []any{entityID, timeframe}
	if !from.IsZero() {
		q += ` AND date > ?`
		args = append(args, from.Format(model.DateFormat))
	}
	q += ` ORDER BY date ASC`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite query %s bars: %w", class.Name, err)
	}
	defer rows.Close()
	return scanBars(rows, class, entityID, timeframe)
}

// FetchLatestBars returns the most recent n bars with date <= until,
// ordered ascending.
func (s *Store) FetchLatestBars(ctx context.Context, class model.ClassSpec, entityID int64, timeframe string, n int, until time.Time) ([]model.Bar, error) {
	q := fmt.Sprintf(`
		SELECT date, open, high, low, close, adj_close%s
		FROM %s
		WHERE %s = ? AND timeframe = ? AND date <= ?
		ORDER BY date DESC
		LIMIT ?`,
		volumeCols(class), class.PriceTable, class.IDColumn)

	rows, err := s.db.QueryContext(ctx, q, entityID, timeframe, until.Format(model.DateFormat), n)
	if err != nil {
		return nil, fmt.Errorf("sqlite query latest %s bars: %w", class.Name, err)
	}
	defer rows.Close()

	bars, err := scanBars(rows, class, entityID, timeframe)
	if err != nil {
		return nil, err
	}
	// Descending fetch, ascending contract.
	for i, j := 0, len(bars)-1; i < j; i, j = i+1, j-1 {
		bars[i], bars[j] = bars[j], bars[i]
	}
	return bars, nil
}

// LatestIndicatorDate returns the refresh cursor for one series, or the
// zero time when no indicator rows exist yet.
func (s *Store) LatestIndicatorDate(ctx context.Context, class model.ClassSpec, entityID int64, timeframe string) (time.Time, error) {
	q := fmt.Sprintf(`SELECT MAX(date) FROM %s WHERE %s = ? AND timeframe = ?`,
		class.IndicatorTable, class.IDColumn)

	var d sql.NullString
	if err := s.db.QueryRowContext(ctx, q, entityID, timeframe).Scan(&d); err != nil {
		return time.Time{}, fmt.Errorf("sqlite cursor for %s: %w", class.Name, err)
	}
	if !d.Valid {
		return time.Time{}, nil
	}
	t, err := model.ParseDate(d.String)
	if err != nil {
		return time.Time{}, fmt.Errorf("sqlite cursor parse %q: %w", d.String, err)
	}
	return t, nil
}

func volumeCols(class model.ClassSpec) string {
	if class.HasVolume {
		return ", volume, delv_pct, is_final"
	}
	return ""
}

func scanBars(rows *sql.Rows, class model.ClassSpec, entityID int64, timeframe string) ([]model.Bar, error) {
	var bars []model.Bar
	for rows.Next() {
		var (
			date                         string
			open, high, low, closeP, adj sql.NullFloat64
			volume, delv                 sql.NullFloat64
			isFinal                      sql.NullBool
		)
		dest := []any{&date, &open, &high, &low, &closeP, &adj}
		if class.HasVolume {
			dest = append(dest, &volume, &delv, &isFinal)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("sqlite scan %s bar: %w", class.Name, err)
		}
		d, err := model.ParseDate(date)
		if err != nil {
			return nil, fmt.Errorf("sqlite bar date %q: %w", date, err)
		}
		b := model.Bar{
			EntityID:  entityID,
			Timeframe: timeframe,
			Date:      d,
			Open:      open.Float64,
			High:      high.Float64,
			Low:       low.Float64,
			Close:     closeP.Float64,
			AdjClose:  adj.Float64,
			IsFinal:   true,
		}
		if class.HasVolume {
			b.Volume = volume.Float64
			b.DelvPct = delv.Float64
			b.IsFinal = isFinal.Bool
		}
		bars = append(bars, b)
	}
	return bars, rows.Err()
}
