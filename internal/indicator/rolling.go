// Package indicator provides the numeric kernels behind the indicator
// tables: rolling primitives (SMA, EMA, Wilder, WMA), RSI, ATR, Bollinger
// Bands, MACD and Supertrend.
//
// All kernels are pure functions over float64 slices aligned to the input
// bars. NaN marks "not enough history yet"; every kernel produces exactly
// one output per input so results stay aligned with their bars. Recurrence
// kernels (EMA, Wilder, Supertrend) are path-dependent: their value at any
// position reflects the entire preceding series, which is why the refresh
// engine re-feeds a lookback buffer before trusting incremental output.
package indicator

import "math"

// NaN is the canonical undefined value used throughout the kernels.
var NaN = math.NaN()

// SMA returns the arithmetic mean over a trailing window of exactly period
// values. Output is NaN until period values are available, and for any
// window containing a NaN.
func SMA(xs []float64, period int) []float64 {
	out := make([]float64, len(xs))
	sum := 0.0
	nans := 0
	for i, x := range xs {
		if math.IsNaN(x) {
			nans++
		} else {
			sum += x
		}
		if i >= period {
			old := xs[i-period]
			if math.IsNaN(old) {
				nans--
			} else {
				sum -= old
			}
		}
		if i < period-1 || nans > 0 {
			out[i] = NaN
			continue
		}
		out[i] = sum / float64(period)
	}
	return out
}

// EMA returns the exponential moving average with alpha = 2/(span+1),
// seeded with the first non-NaN value. Leading NaNs stay NaN; an interior
// NaN carries the previous value forward.
func EMA(xs []float64, span int) []float64 {
	return expSmooth(xs, 2.0/float64(span+1), 1)
}

// Wilder returns the Wilder-smoothed average: alpha = 1/period, seeded with
// the simple mean of the first period non-NaN values. Output is NaN until
// period valid inputs have been seen; leading NaNs are skipped, not counted.
// The warm-up length matters: the refresh engine's lookback buffer is sized
// against it.
func Wilder(xs []float64, period int) []float64 {
	out := make([]float64, len(xs))
	seen := 0
	sum := 0.0
	cur := NaN
	for i, x := range xs {
		switch {
		case seen >= period:
			// Converged: (prev*(period-1) + x) / period
			if !math.IsNaN(x) {
				cur = cur + (x-cur)/float64(period)
			}
			out[i] = cur
		case math.IsNaN(x):
			out[i] = NaN
		default:
			seen++
			sum += x
			if seen == period {
				cur = sum / float64(period)
				out[i] = cur
			} else {
				out[i] = NaN
			}
		}
	}
	return out
}

// WMA returns the linear-weighted moving average: weights 1..period with
// the most recent value weighted period, normalized by period*(period+1)/2.
// NaN until period values are available, and for any window with a NaN.
func WMA(xs []float64, period int) []float64 {
	out := make([]float64, len(xs))
	norm := float64(period) * float64(period+1) / 2.0
	for i := range xs {
		if i < period-1 {
			out[i] = NaN
			continue
		}
		acc := 0.0
		ok := true
		for j := 0; j < period; j++ {
			x := xs[i-period+1+j]
			if math.IsNaN(x) {
				ok = false
				break
			}
			acc += x * float64(j+1)
		}
		if !ok {
			out[i] = NaN
			continue
		}
		out[i] = acc / norm
	}
	return out
}

// RollingStd returns the rolling sample standard deviation (ddof=1) over a
// trailing window of period values. NaN rules match SMA.
func RollingStd(xs []float64, period int) []float64 {
	out := make([]float64, len(xs))
	for i := range xs {
		if i < period-1 {
			out[i] = NaN
			continue
		}
		mean := 0.0
		ok := true
		for j := i - period + 1; j <= i; j++ {
			if math.IsNaN(xs[j]) {
				ok = false
				break
			}
			mean += xs[j]
		}
		if !ok {
			out[i] = NaN
			continue
		}
		mean /= float64(period)
		ss := 0.0
		for j := i - period + 1; j <= i; j++ {
			d := xs[j] - mean
			ss += d * d
		}
		out[i] = math.Sqrt(ss / float64(period-1))
	}
	return out
}

// expSmooth runs the shared EMA recurrence with a given alpha. minSeed is
// the number of valid points before output begins (1 for plain EMA).
func expSmooth(xs []float64, alpha float64, minSeed int) []float64 {
	out := make([]float64, len(xs))
	cur := NaN
	seen := 0
	for i, x := range xs {
		if math.IsNaN(x) {
			out[i] = cur // NaN before seeding, carry after
			continue
		}
		if seen == 0 {
			cur = x
		} else {
			cur = alpha*x + (1-alpha)*cur
		}
		seen++
		if seen < minSeed {
			out[i] = NaN
		} else {
			out[i] = cur
		}
	}
	return out
}

// Round2 rounds to 2 decimal places, passing NaN through.
func Round2(x float64) float64 {
	if math.IsNaN(x) {
		return x
	}
	return math.Round(x*100) / 100
}

// Round4 rounds to 4 decimal places, passing NaN through. MACD uses this:
// differences of near-equal EMAs lose too much at 2 decimals.
func Round4(x float64) float64 {
	if math.IsNaN(x) {
		return x
	}
	return math.Round(x*10000) / 10000
}

// round2All rounds a whole series in place and returns it.
func round2All(xs []float64) []float64 {
	for i, x := range xs {
		xs[i] = Round2(x)
	}
	return xs
}

// round4All rounds a whole series in place and returns it.
func round4All(xs []float64) []float64 {
	for i, x := range xs {
		xs[i] = Round4(x)
	}
	return xs
}
