package model

import "time"

// DateFormat is the canonical on-disk date layout for bar and indicator keys.
// Bars are civil dates (no intraday component), stored as TEXT in SQLite.
const DateFormat = "2006-01-02"

// Timeframes lists every supported bar granularity in refresh order.
// Daily comes first: the weekly/monthly bars are derived from it.
var Timeframes = []string{"1d", "1wk", "1mo"}

// Bar represents one OHLC(V) observation for an entity/timeframe/date.
// Bars are produced by the price-ingestion side and are read-only here.
// AdjClose is the split/dividend-adjusted close; moving averages and the
// percentage price change run on it, momentum and volatility kernels on
// the raw Close. AdjClose falls back to Close when the feed leaves it unset.
type Bar struct {
	EntityID  int64     `json:"entity_id"`
	Timeframe string    `json:"timeframe"` // "1d", "1wk", "1mo"
	Date      time.Time `json:"date"`      // UTC midnight
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	AdjClose  float64   `json:"adj_close"`
	Volume    float64   `json:"volume"`
	DelvPct   float64   `json:"delv_pct,omitempty"` // equities only
	IsFinal   bool      `json:"is_final"`
}

// EffAdjClose returns AdjClose, or Close when the feed did not supply one.
func (b *Bar) EffAdjClose() float64 {
	if b.AdjClose != 0 {
		return b.AdjClose
	}
	return b.Close
}

// DateKey returns the bar date formatted for storage keys.
func (b *Bar) DateKey() string {
	return b.Date.Format(DateFormat)
}

// ParseDate parses a stored YYYY-MM-DD date into UTC midnight.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateFormat, s, time.UTC)
}
