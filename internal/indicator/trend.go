package indicator

import "math"

// MACD computes the MACD line (fast EMA - slow EMA) and its signal line
// (EMA of the MACD line). Both are rounded to 4 decimal places.
func MACD(close []float64, fast, slow, signal int) (macd, signalLine []float64) {
	fastEMA := EMA(close, fast)
	slowEMA := EMA(close, slow)

	macd = make([]float64, len(close))
	for i := range macd {
		macd[i] = fastEMA[i] - slowEMA[i]
	}
	signalLine = EMA(macd, signal)
	return round4All(macd), round4All(signalLine)
}

// supertrendBands computes the ratcheted ("final") Supertrend bands.
// Basic bands are hl2 ± mult*ATR; the finals only tighten toward price,
// never loosen, unless the previous close already crossed them:
//
//	finalUpper[t] = basicUpper[t] if basicUpper[t] < finalUpper[t-1]
//	                or close[t-1] > finalUpper[t-1], else finalUpper[t-1]
//
// (mirrored for the lower band). start is the first index with a defined
// ATR; everything before it is NaN.
func supertrendBands(high, low, close []float64, period int, mult float64) (finalUpper, finalLower []float64, start int) {
	atr := Wilder(TrueRange(high, low, close), period)

	n := len(close)
	finalUpper = make([]float64, n)
	finalLower = make([]float64, n)

	start = -1
	for i := 0; i < n; i++ {
		if !math.IsNaN(atr[i]) {
			start = i
			break
		}
		finalUpper[i], finalLower[i] = NaN, NaN
	}
	if start < 0 {
		return finalUpper, finalLower, n
	}

	for i := start; i < n; i++ {
		hl2 := (high[i] + low[i]) / 2
		basicUpper := hl2 + mult*atr[i]
		basicLower := hl2 - mult*atr[i]

		if i == start {
			finalUpper[i], finalLower[i] = basicUpper, basicLower
			continue
		}
		if basicUpper < finalUpper[i-1] || close[i-1] > finalUpper[i-1] {
			finalUpper[i] = basicUpper
		} else {
			finalUpper[i] = finalUpper[i-1]
		}
		if basicLower > finalLower[i-1] || close[i-1] < finalLower[i-1] {
			finalLower[i] = basicLower
		} else {
			finalLower[i] = finalLower[i-1]
		}
	}
	return finalUpper, finalLower, start
}

// Supertrend computes the ATR-band trend overlay. The state seeds at the
// first bar with a defined ATR as trend-down with the upper band as the
// active level. From there the direction flips on a band cross: a close
// above the previous final upper band turns the trend up, a close below
// the previous final lower band turns it down, anything in between keeps
// the prior direction. The active level is the lower band in an uptrend
// and the upper band in a downtrend.
//
// Returns the level series rounded to 2 decimal places and the direction
// series (+1 up, -1 down, 0 while undefined).
func Supertrend(high, low, close []float64, period int, mult float64) (st []float64, dir []int) {
	finalUpper, finalLower, start := supertrendBands(high, low, close, period, mult)

	n := len(close)
	st = make([]float64, n)
	dir = make([]int, n)
	for i := 0; i < n && i < start; i++ {
		st[i] = NaN
	}
	if start >= n {
		return st, dir
	}

	dir[start] = -1
	st[start] = finalUpper[start]
	for i := start + 1; i < n; i++ {
		switch {
		case close[i] > finalUpper[i-1]:
			dir[i] = 1
		case close[i] < finalLower[i-1]:
			dir[i] = -1
		default:
			dir[i] = dir[i-1]
		}
		if dir[i] == 1 {
			st[i] = finalLower[i]
		} else {
			st[i] = finalUpper[i]
		}
	}
	return round2All(st), dir
}

// SupertrendPrevValue is the variant flip rule that compares the close
// against the previous supertrend value instead of the previous final
// bands. The two rules agree most of the time but diverge when the active
// level sits strictly inside the opposite band — a close can cross the
// level without crossing the band. Kept alongside Supertrend so tests pin
// down exactly where the outputs differ.
func SupertrendPrevValue(high, low, close []float64, period int, mult float64) (st []float64, dir []int) {
	finalUpper, finalLower, start := supertrendBands(high, low, close, period, mult)

	n := len(close)
	st = make([]float64, n)
	dir = make([]int, n)
	for i := 0; i < n && i < start; i++ {
		st[i] = NaN
	}
	if start >= n {
		return st, dir
	}

	dir[start] = -1
	st[start] = finalUpper[start]
	for i := start + 1; i < n; i++ {
		if close[i] > st[i-1] {
			dir[i] = 1
			st[i] = finalLower[i]
		} else {
			dir[i] = -1
			st[i] = finalUpper[i]
		}
	}
	return round2All(st), dir
}
