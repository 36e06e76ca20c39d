package indicator

import "math"

// TrueRange returns the per-bar true range:
// max(high-low, |high-prevClose|, |low-prevClose|). The first bar has no
// previous close, so its true range is simply high-low.
func TrueRange(high, low, close []float64) []float64 {
	n := len(close)
	tr := make([]float64, n)
	for i := 0; i < n; i++ {
		hl := high[i] - low[i]
		if i == 0 {
			tr[i] = hl
			continue
		}
		hc := math.Abs(high[i] - close[i-1])
		lc := math.Abs(low[i] - close[i-1])
		tr[i] = math.Max(hl, math.Max(hc, lc))
	}
	return tr
}

// ATR computes the Average True Range: Wilder smoothing over the true
// range, rounded to 2 decimal places. Output begins at index period-1.
func ATR(high, low, close []float64, period int) []float64 {
	return round2All(Wilder(TrueRange(high, low, close), period))
}

// Bollinger computes Bollinger Bands: middle = SMA(period), upper/lower =
// middle ± mult * rolling sample standard deviation. All three series are
// rounded to 2 decimal places; wherever all are defined,
// upper >= middle >= lower holds.
func Bollinger(close []float64, period int, mult float64) (upper, middle, lower []float64) {
	mid := SMA(close, period)
	std := RollingStd(close, period)

	n := len(close)
	upper = make([]float64, n)
	lower = make([]float64, n)
	middle = make([]float64, n)
	for i := 0; i < n; i++ {
		middle[i] = Round2(mid[i])
		upper[i] = Round2(mid[i] + mult*std[i])
		lower[i] = Round2(mid[i] - mult*std[i])
	}
	return upper, middle, lower
}
