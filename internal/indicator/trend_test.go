package indicator

import "testing"

// ────────────────────────────────────────────────────────────
// MACD
// ────────────────────────────────────────────────────────────

func TestMACD_Correctness(t *testing.T) {
	// Closes [10,11,12,11,10], fast=2 (a=2/3), slow=4 (a=0.4), signal=2.
	//
	// fast EMA: 10, 10.6667, 11.5556, 11.1852, 10.3951
	// slow EMA: 10, 10.4,    11.04,   11.024,  10.6144
	// macd:      0, 0.2667,  0.5156,  0.1612, -0.2193
	// signal (a=2/3 over the unrounded macd line):
	//            0, 0.1778,  0.4030,  0.2418, -0.0656
	macd, signal := MACD([]float64{10, 11, 12, 11, 10}, 2, 4, 2)

	wantMACD := []float64{0, 0.2667, 0.5156, 0.1612, -0.2193}
	wantSignal := []float64{0, 0.1778, 0.4030, 0.2418, -0.0656}
	for i := range wantMACD {
		assertClose(t, "MACD", macd[i], wantMACD[i], 0.0001)
		assertClose(t, "MACD signal", signal[i], wantSignal[i], 0.0001)
	}
}

func TestMACD_CrossesZeroOnReversal(t *testing.T) {
	// A long ramp up followed by a long ramp down must take the MACD line
	// from positive to negative.
	closes := make([]float64, 60)
	for i := 0; i < 30; i++ {
		closes[i] = 100 + float64(i)
	}
	for i := 30; i < 60; i++ {
		closes[i] = 130 - float64(i-29)
	}
	macd, _ := MACD(closes, 12, 26, 9)

	if macd[29] <= 0 {
		t.Errorf("MACD at ramp top: got %v, want > 0", macd[29])
	}
	if macd[59] >= 0 {
		t.Errorf("MACD after decline: got %v, want < 0", macd[59])
	}
}

// ────────────────────────────────────────────────────────────
// Supertrend
// ────────────────────────────────────────────────────────────

// stFixture builds bars with high = close+2, low = close-2, so hl2 ==
// close and TR = max(4, |delta|+2). With period=1 the ATR equals the TR,
// which keeps the band arithmetic traceable by hand.
func stFixture(closes []float64) (high, low []float64) {
	high = make([]float64, len(closes))
	low = make([]float64, len(closes))
	for i, c := range closes {
		high[i], low[i] = c+2, c-2
	}
	return high, low
}

func TestSupertrend_FlipSequence(t *testing.T) {
	// Closes: 100, 102, 101, 98, 95, 105, 110. period=1, mult=1.
	// ATR == TR = [4, 4, 4, 5, 5, 12, 7]; basic bands = close ± ATR.
	//
	// Final bands (ratcheted, released on a prior-close cross):
	//   i  close  basicU  basicL  finalU  finalL
	//   0   100     104      96     104      96   seed: dir=-1, st=104
	//   1   102     106      98     104      98
	//   2   101     105      97     104      98
	//   3    98     103      93     103      98
	//   4    95     100      90     100      98   close 95 < finalL[3]=98: down confirmed
	//   5   105     117      93     100      93   close 105 > finalU[4]=100: FLIP UP
	//   6   110     117     103     117     103   (upper released: close[5] crossed it)
	//
	// Exactly one transition, -1 -> +1 at index 5.
	closes := []float64{100, 102, 101, 98, 95, 105, 110}
	high, low := stFixture(closes)
	st, dir := Supertrend(high, low, closes, 1, 1)

	wantDir := []int{-1, -1, -1, -1, -1, 1, 1}
	wantST := []float64{104, 104, 104, 103, 100, 93, 103}
	for i := range closes {
		if dir[i] != wantDir[i] {
			t.Errorf("dir[%d]: got %d, want %d", i, dir[i], wantDir[i])
		}
		assertClose(t, "supertrend level", st[i], wantST[i], 0.0001)
	}

	flips := 0
	for i := 1; i < len(dir); i++ {
		if dir[i] != dir[i-1] {
			flips++
		}
	}
	if flips != 1 {
		t.Errorf("flip count: got %d, want 1", flips)
	}
}

func TestSupertrend_WarmUpUndefined(t *testing.T) {
	// With period=3 the ATR is undefined before index 2, so the level is
	// NaN and the direction 0 there.
	closes := []float64{100, 101, 102, 103, 104}
	high, low := stFixture(closes)
	st, dir := Supertrend(high, low, closes, 3, 2)

	for i := 0; i < 2; i++ {
		assertNaN(t, "supertrend warm-up level", st[i])
		if dir[i] != 0 {
			t.Errorf("dir[%d]: got %d, want 0 during warm-up", i, dir[i])
		}
	}
	if dir[2] == 0 {
		t.Errorf("dir[2]: still 0 after ATR is defined")
	}
}

func TestSupertrend_VariantsDiverge(t *testing.T) {
	// Same fixture as TestSupertrend_FlipSequence with one more bar at
	// close=93, which lands exactly on finalL[5]=93.
	//
	// Band rule:        93 > finalU[5]=100? no. 93 < finalL[5]=93? no.
	//                   -> direction holds at +1, level = finalL[6] = 93.
	// Prev-value rule:  93 > st[5]=93? no -> flips to -1,
	//                   level = finalU[6] = 107 (basicU = 93 + ATR 14).
	closes := []float64{100, 102, 101, 98, 95, 105, 93}
	high, low := stFixture(closes)

	stBand, dirBand := Supertrend(high, low, closes, 1, 1)
	stPrev, dirPrev := SupertrendPrevValue(high, low, closes, 1, 1)

	// Identical through index 5.
	for i := 0; i <= 5; i++ {
		if dirBand[i] != dirPrev[i] {
			t.Fatalf("dir[%d]: variants disagree before the divergence point", i)
		}
		assertClose(t, "level agreement", stBand[i], stPrev[i], 0.0001)
	}

	if dirBand[6] != 1 {
		t.Errorf("band rule dir[6]: got %d, want +1", dirBand[6])
	}
	assertClose(t, "band rule level[6]", stBand[6], 93.0, 0.0001)

	if dirPrev[6] != -1 {
		t.Errorf("prev-value rule dir[6]: got %d, want -1", dirPrev[6])
	}
	assertClose(t, "prev-value rule level[6]", stPrev[6], 107.0, 0.0001)
}
