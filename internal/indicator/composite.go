package indicator

// EMARSI smooths an RSI series with an EMA, confirming momentum regime
// shifts faster than the raw oscillator. Runs on the rounded RSI output so
// stored rsi columns and their smoothings stay consistent. 2 decimal places.
func EMARSI(close []float64, rsiPeriod, emaSpan int) []float64 {
	return round2All(EMA(RSI(close, rsiPeriod), emaSpan))
}

// WMARSI applies a linear-weighted average to an RSI series, the slower
// second-order confirmation. 2 decimal places.
func WMARSI(close []float64, rsiPeriod, wmaPeriod int) []float64 {
	return round2All(WMA(RSI(close, rsiPeriod), wmaPeriod))
}
