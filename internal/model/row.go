package model

import (
	"encoding/json"
	"math"
	"time"
)

// IndicatorRow holds every computed indicator value for one bar.
// Fields are NaN while the owning kernel has not accumulated enough history;
// NaN round-trips as NULL in storage so that every Bar keeps exactly one
// IndicatorRow regardless of warm-up state.
type IndicatorRow struct {
	EntityID  int64     `json:"entity_id"`
	Timeframe string    `json:"timeframe"`
	Date      time.Time `json:"date"`

	SMA20  float64 `json:"sma_20"`
	SMA50  float64 `json:"sma_50"`
	SMA200 float64 `json:"sma_200"`

	RSI3  float64 `json:"rsi_3"`
	RSI9  float64 `json:"rsi_9"`
	RSI14 float64 `json:"rsi_14"`

	EMARSI93  float64 `json:"ema_rsi_9_3"`
	WMARSI921 float64 `json:"wma_rsi_9_21"`

	BBUpper  float64 `json:"bb_upper"`
	BBMiddle float64 `json:"bb_middle"`
	BBLower  float64 `json:"bb_lower"`
	ATR14    float64 `json:"atr_14"`

	Supertrend    float64 `json:"supertrend"`
	SupertrendDir int     `json:"supertrend_dir"` // +1 up, -1 down, 0 undefined

	MACD       float64 `json:"macd"`
	MACDSignal float64 `json:"macd_signal"`

	PctPriceChange float64 `json:"pct_price_change"`

	IsFinal bool `json:"is_final"` // carried from the source bar (equities)
}

// DateKey returns the row date formatted for storage keys.
func (r *IndicatorRow) DateKey() string {
	return r.Date.Format(DateFormat)
}

// JSON encodes the row for the latest-value cache. NaN fields become null
// (encoding/json rejects NaN), matching their NULL representation in storage.
func (r *IndicatorRow) JSON() []byte {
	m := map[string]any{
		"entity_id": r.EntityID,
		"timeframe": r.Timeframe,
		"date":      r.DateKey(),
	}
	put := func(k string, v float64) {
		if math.IsNaN(v) {
			m[k] = nil
		} else {
			m[k] = v
		}
	}
	put("sma_20", r.SMA20)
	put("sma_50", r.SMA50)
	put("sma_200", r.SMA200)
	put("rsi_3", r.RSI3)
	put("rsi_9", r.RSI9)
	put("rsi_14", r.RSI14)
	put("ema_rsi_9_3", r.EMARSI93)
	put("wma_rsi_9_21", r.WMARSI921)
	put("bb_upper", r.BBUpper)
	put("bb_middle", r.BBMiddle)
	put("bb_lower", r.BBLower)
	put("atr_14", r.ATR14)
	put("supertrend", r.Supertrend)
	put("macd", r.MACD)
	put("macd_signal", r.MACDSignal)
	put("pct_price_change", r.PctPriceChange)
	if r.SupertrendDir == 0 {
		m["supertrend_dir"] = nil
	} else {
		m["supertrend_dir"] = r.SupertrendDir
	}
	b, _ := json.Marshal(m)
	return b
}
