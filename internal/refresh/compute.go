package refresh

import (
	"math"

	"indicator-systemv1/internal/indicator"
	"indicator-systemv1/internal/model"
)

// Kernel parameters are fixed: they are baked into the indicator column
// names (sma_20, rsi_14, wma_rsi_9_21, ...), so changing one silently
// changes the meaning of stored history.
const (
	smaShort, smaMid, smaLong = 20, 50, 200

	rsiFast, rsiMid, rsiSlow = 3, 9, 14
	emaRSISpan               = 3
	wmaRSIPeriod             = 21

	bbPeriod = 20
	bbMult   = 2.0
	atrPd    = 14

	stPeriod = 10
	stMult   = 3.0

	macdFast, macdSlow, macdSignal = 12, 26, 9
)

// Compute runs every kernel over one series of bars and assembles one
// IndicatorRow per bar. Bars must belong to a single (entity, timeframe)
// series and be sorted ascending by date. Trend averages and the price
// change run on the adjusted close; momentum and volatility kernels on
// the raw close, which is what the band levels are compared against.
func Compute(bars []model.Bar) []model.IndicatorRow {
	n := len(bars)
	if n == 0 {
		return nil
	}

	high := make([]float64, n)
	low := make([]float64, n)
	close := make([]float64, n)
	adj := make([]float64, n)
	for i := range bars {
		high[i] = bars[i].High
		low[i] = bars[i].Low
		close[i] = bars[i].Close
		adj[i] = bars[i].EffAdjClose()
	}

	sma20 := round2(indicator.SMA(adj, smaShort))
	sma50 := round2(indicator.SMA(adj, smaMid))
	sma200 := round2(indicator.SMA(adj, smaLong))

	rsi3 := indicator.RSI(close, rsiFast)
	rsi9 := indicator.RSI(close, rsiMid)
	rsi14 := indicator.RSI(close, rsiSlow)
	emaRSI := indicator.EMARSI(close, rsiMid, emaRSISpan)
	wmaRSI := indicator.WMARSI(close, rsiMid, wmaRSIPeriod)

	bbUpper, bbMiddle, bbLower := indicator.Bollinger(close, bbPeriod, bbMult)
	atr14 := indicator.ATR(high, low, close, atrPd)
	st, stDir := indicator.Supertrend(high, low, close, stPeriod, stMult)
	macd, macdSig := indicator.MACD(close, macdFast, macdSlow, macdSignal)

	pct := pctChange(adj)

	rows := make([]model.IndicatorRow, n)
	for i := range bars {
		rows[i] = model.IndicatorRow{
			EntityID:  bars[i].EntityID,
			Timeframe: bars[i].Timeframe,
			Date:      bars[i].Date,

			SMA20:  sma20[i],
			SMA50:  sma50[i],
			SMA200: sma200[i],

			RSI3:  rsi3[i],
			RSI9:  rsi9[i],
			RSI14: rsi14[i],

			EMARSI93:  emaRSI[i],
			WMARSI921: wmaRSI[i],

			BBUpper:  bbUpper[i],
			BBMiddle: bbMiddle[i],
			BBLower:  bbLower[i],
			ATR14:    atr14[i],

			Supertrend:    st[i],
			SupertrendDir: stDir[i],

			MACD:       macd[i],
			MACDSignal: macdSig[i],

			PctPriceChange: pct[i],

			IsFinal: bars[i].IsFinal,
		}
	}
	return rows
}

// pctChange is the bar-over-bar percentage change of the adjusted close,
// rounded to 2 decimal places. The first bar has no predecessor and a zero
// predecessor has no meaningful ratio; both yield NaN.
func pctChange(adj []float64) []float64 {
	out := make([]float64, len(adj))
	for i := range adj {
		if i == 0 || adj[i-1] == 0 || math.IsNaN(adj[i-1]) || math.IsNaN(adj[i]) {
			out[i] = indicator.NaN
			continue
		}
		out[i] = indicator.Round2((adj[i]/adj[i-1] - 1) * 100)
	}
	return out
}

func round2(xs []float64) []float64 {
	for i, x := range xs {
		xs[i] = indicator.Round2(x)
	}
	return xs
}
