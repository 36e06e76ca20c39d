package indicator

import "math"

// RSI computes the Relative Strength Index with Wilder's smoothing.
// The first delta exists at index 1, so output begins at index period.
// Where the smoothed loss is exactly zero (all gains in the window) the
// value is pinned to 100 as an explicit override — the division would
// otherwise produce +Inf. Values are rounded to 2 decimal places.
func RSI(close []float64, period int) []float64 {
	n := len(close)
	gains := make([]float64, n)
	losses := make([]float64, n)
	if n > 0 {
		gains[0], losses[0] = NaN, NaN
	}
	for i := 1; i < n; i++ {
		delta := close[i] - close[i-1]
		if delta > 0 {
			gains[i], losses[i] = delta, 0
		} else {
			gains[i], losses[i] = 0, -delta
		}
	}

	avgGain := Wilder(gains, period)
	avgLoss := Wilder(losses, period)

	out := make([]float64, n)
	for i := 0; i < n; i++ {
		ag, al := avgGain[i], avgLoss[i]
		switch {
		case math.IsNaN(ag) || math.IsNaN(al):
			out[i] = NaN
		case al == 0:
			out[i] = 100.0
		default:
			rs := ag / al
			out[i] = Round2(100.0 - 100.0/(1.0+rs))
		}
	}
	return out
}
