package resample

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"indicator-systemv1/internal/model"
)

func d(y int, m time.Month, day int) time.Time {
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

func bar(day time.Time, open, high, low, close, vol float64) model.Bar {
	return model.Bar{
		EntityID:  1,
		Timeframe: "1d",
		Date:      day,
		Open:      open,
		High:      high,
		Low:       low,
		Close:     close,
		AdjClose:  close,
		Volume:    vol,
		IsFinal:   true,
	}
}

func TestLastFriday(t *testing.T) {
	cases := []struct{ in, want time.Time }{
		{d(2024, 1, 12), d(2024, 1, 12)}, // Friday maps to itself
		{d(2024, 1, 8), d(2024, 1, 5)},   // Monday
		{d(2024, 1, 7), d(2024, 1, 5)},   // Sunday
		{d(2024, 1, 11), d(2024, 1, 5)},  // Thursday
	}
	for _, c := range cases {
		if got := LastFriday(c.in); !got.Equal(c.want) {
			t.Errorf("LastFriday(%v): got %v, want %v", c.in.Format("2006-01-02"), got, c.want)
		}
	}
}

func TestMonthEnd(t *testing.T) {
	if got := MonthEnd(d(2024, 2, 10)); !got.Equal(d(2024, 2, 29)) {
		t.Errorf("leap February: got %v", got)
	}
	if got := MonthEnd(d(2024, 12, 1)); !got.Equal(d(2024, 12, 31)) {
		t.Errorf("December: got %v", got)
	}
}

func TestWeekly_CompleteWeeksOnly(t *testing.T) {
	// Week of Jan 1–5 2024 is complete; the newest bar (Mon Jan 8) makes
	// its own week incomplete, so exactly one weekly bar comes out.
	daily := []model.Bar{
		bar(d(2024, 1, 1), 10, 12, 9, 11, 100),
		bar(d(2024, 1, 2), 11, 15, 10, 14, 100),
		bar(d(2024, 1, 5), 14, 16, 13, 15, 100),
		bar(d(2024, 1, 8), 15, 17, 14, 16, 100),
	}
	weekly := Weekly(daily)

	if len(weekly) != 1 {
		t.Fatalf("got %d weekly bars, want 1", len(weekly))
	}
	w := weekly[0]
	if !w.Date.Equal(d(2024, 1, 5)) {
		t.Errorf("weekly bar dated %v, want the Friday 2024-01-05", w.Date)
	}
	if w.Timeframe != "1wk" || !w.IsFinal {
		t.Errorf("weekly bar identity: %+v", w)
	}
	if w.Open != 10 || w.High != 16 || w.Low != 9 || w.Close != 15 || w.Volume != 300 {
		t.Errorf("weekly OHLCV: %+v", w)
	}
}

func TestWeekly_FridayCloseCompletesWeek(t *testing.T) {
	daily := []model.Bar{
		bar(d(2024, 1, 1), 10, 12, 9, 11, 100),
		bar(d(2024, 1, 5), 14, 16, 13, 15, 100),
		bar(d(2024, 1, 8), 15, 17, 14, 16, 100),
		bar(d(2024, 1, 12), 16, 18, 15, 17, 100),
	}
	weekly := Weekly(daily)

	if len(weekly) != 2 {
		t.Fatalf("got %d weekly bars, want 2", len(weekly))
	}
	w := weekly[1]
	if !w.Date.Equal(d(2024, 1, 12)) || w.Open != 15 || w.Close != 17 || w.Volume != 200 {
		t.Errorf("second weekly bar: %+v", w)
	}
}

func TestWeekly_SaturdaySessionExcluded(t *testing.T) {
	// NSE runs occasional Saturday special sessions (e.g. 2024-01-20).
	// The bar must be consumed with its week but not folded into the
	// Friday-dated aggregate.
	daily := []model.Bar{
		bar(d(2024, 1, 15), 10, 12, 9, 11, 100),
		bar(d(2024, 1, 19), 14, 16, 13, 15, 100), // Friday
		bar(d(2024, 1, 20), 20, 30, 19, 25, 100), // Saturday session
		bar(d(2024, 1, 22), 15, 17, 14, 16, 100),
		bar(d(2024, 1, 26), 16, 18, 15, 17, 100), // Friday
	}

	done := make(chan []model.Bar, 1)
	go func() { done <- Weekly(daily) }()

	var weekly []model.Bar
	select {
	case weekly = <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Weekly did not terminate on a Saturday-dated bar")
	}

	if len(weekly) != 2 {
		t.Fatalf("got %d weekly bars, want 2", len(weekly))
	}
	w := weekly[0]
	if !w.Date.Equal(d(2024, 1, 19)) {
		t.Errorf("first weekly bar dated %v, want 2024-01-19", w.Date)
	}
	if w.High != 16 || w.Close != 15 || w.Volume != 200 {
		t.Errorf("Saturday bar leaked into the aggregate: %+v", w)
	}
	if w2 := weekly[1]; !w2.Date.Equal(d(2024, 1, 26)) || w2.Open != 15 {
		t.Errorf("second weekly bar: %+v", w2)
	}
}

func TestWeekly_OnlyWeekendBarsYieldNothing(t *testing.T) {
	daily := []model.Bar{
		bar(d(2024, 1, 20), 20, 30, 19, 25, 100), // Saturday
		bar(d(2024, 1, 21), 25, 26, 24, 25, 100), // Sunday
	}

	done := make(chan []model.Bar, 1)
	go func() { done <- Weekly(daily) }()

	select {
	case weekly := <-done:
		if len(weekly) != 0 {
			t.Errorf("got %d weekly bars from weekend-only input, want 0", len(weekly))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Weekly did not terminate on weekend-only input")
	}
}

func TestMonthly_CurrentMonthExcluded(t *testing.T) {
	daily := []model.Bar{
		bar(d(2024, 1, 2), 10, 12, 9, 11, 100),
		bar(d(2024, 1, 15), 11, 15, 10, 14, 100),
		bar(d(2024, 1, 31), 14, 16, 13, 15, 100),
		bar(d(2024, 2, 1), 15, 17, 14, 16, 100),
	}
	monthly := Monthly(daily)

	// February holds the newest bar, so only January is emitted.
	if len(monthly) != 1 {
		t.Fatalf("got %d monthly bars, want 1", len(monthly))
	}
	m := monthly[0]
	if !m.Date.Equal(d(2024, 1, 31)) {
		t.Errorf("monthly bar dated %v, want 2024-01-31", m.Date)
	}
	if m.Timeframe != "1mo" || m.Open != 10 || m.High != 16 || m.Low != 9 || m.Close != 15 || m.Volume != 300 {
		t.Errorf("monthly OHLCV: %+v", m)
	}
}

func TestMonthly_OnlyOneMonthYieldsNothing(t *testing.T) {
	daily := []model.Bar{
		bar(d(2024, 1, 2), 10, 12, 9, 11, 100),
		bar(d(2024, 1, 31), 14, 16, 13, 15, 100),
	}
	if monthly := Monthly(daily); len(monthly) != 0 {
		t.Fatalf("got %d monthly bars, want 0 (newest month never emits)", len(monthly))
	}
}

// ────────────────────────────────────────────────────────────
// Generator
// ────────────────────────────────────────────────────────────

type fakeBarStore struct {
	daily   map[int64][]model.Bar
	written []model.Bar
}

func (f *fakeBarStore) ListEntities(context.Context, model.ClassSpec) ([]int64, error) {
	ids := make([]int64, 0, len(f.daily))
	for id := range f.daily {
		ids = append(ids, id)
	}
	return ids, nil
}

func (f *fakeBarStore) FetchBars(_ context.Context, _ model.ClassSpec, id int64, tf string, _ time.Time) ([]model.Bar, error) {
	if tf != "1d" {
		return nil, nil
	}
	return f.daily[id], nil
}

func (f *fakeBarStore) FetchLatestBars(context.Context, model.ClassSpec, int64, string, int, time.Time) ([]model.Bar, error) {
	return nil, nil
}

func (f *fakeBarStore) UpsertBars(_ context.Context, _ model.ClassSpec, bars []model.Bar) error {
	f.written = append(f.written, bars...)
	return nil
}

func TestGenerator_Run(t *testing.T) {
	st := &fakeBarStore{daily: map[int64][]model.Bar{
		1: {
			bar(d(2024, 1, 1), 10, 12, 9, 11, 100),
			bar(d(2024, 1, 5), 14, 16, 13, 15, 100),
			bar(d(2024, 2, 5), 15, 17, 14, 16, 100),
		},
	}}

	g := NewGenerator(st, st, nil, slog.Default())
	n, err := g.Run(context.Background(), []model.ClassSpec{model.Equity})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	// Newest bar is Mon Feb 5, so the weekly cutoff is Fri Feb 2 and only
	// the Jan 1-5 week qualifies; monthly emits January only.
	if n != 2 || len(st.written) != 2 {
		t.Fatalf("derived bars: got %d (written %d), want 2", n, len(st.written))
	}
	tfs := map[string]int{}
	for _, b := range st.written {
		tfs[b.Timeframe]++
	}
	if tfs["1wk"] != 1 || tfs["1mo"] != 1 {
		t.Errorf("timeframe split: %v", tfs)
	}
}
