// Package resample derives weekly and monthly bars from daily history.
// Weekly bars cover Mon–Fri and are dated by the Friday; monthly bars are
// dated by the calendar month end. Only complete periods are emitted:
// a week whose Friday lies beyond the newest daily bar is skipped, and so
// is the month containing the newest bar, finished or not, matching how
// the ingestion side stamps period-end dates.
package resample

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"indicator-systemv1/internal/metrics"
	"indicator-systemv1/internal/model"
)

// LastFriday returns d itself when d is a Friday, else the Friday before.
func LastFriday(d time.Time) time.Time {
	wd := (int(d.Weekday()) + 6) % 7 // Monday = 0
	return d.AddDate(0, 0, -((wd - 4 + 7) % 7))
}

// MonthEnd returns the last day of the month containing d.
func MonthEnd(d time.Time) time.Time {
	return time.Date(d.Year(), d.Month()+1, 1, 0, 0, 0, 0, d.Location()).AddDate(0, 0, -1)
}

// weekMonday returns the Monday of the week containing d.
func weekMonday(d time.Time) time.Time {
	return d.AddDate(0, 0, -((int(d.Weekday()) + 6) % 7))
}

// Weekly aggregates one entity's daily bars into Friday-dated weekly
// bars. Input must be ascending. Weekend-dated bars (exchange special
// sessions) are consumed with their week but excluded from the aggregate.
func Weekly(daily []model.Bar) []model.Bar {
	if len(daily) == 0 {
		return nil
	}
	cutoff := LastFriday(daily[len(daily)-1].Date)

	var out []model.Bar
	for i := 0; i < len(daily); {
		mon := weekMonday(daily[i].Date)
		fri := mon.AddDate(0, 0, 4)
		sun := mon.AddDate(0, 0, 6)

		var agg *model.Bar
		for ; i < len(daily) && !daily[i].Date.After(sun); i++ {
			b := daily[i]
			if wd := b.Date.Weekday(); wd == time.Saturday || wd == time.Sunday {
				continue
			}
			agg = fold(agg, b, "1wk", fri)
		}
		if agg != nil && !fri.After(cutoff) {
			out = append(out, *agg)
		}
	}
	return out
}

// Monthly aggregates one entity's daily bars into month-end dated bars.
// The month containing the newest daily bar is always skipped; it only
// becomes a monthly bar once a later month has data.
func Monthly(daily []model.Bar) []model.Bar {
	if len(daily) == 0 {
		return nil
	}
	last := daily[len(daily)-1].Date
	cutoff := time.Date(last.Year(), last.Month(), 1, 0, 0, 0, 0, last.Location()).AddDate(0, 0, -1)

	var out []model.Bar
	for i := 0; i < len(daily); {
		me := MonthEnd(daily[i].Date)

		var agg *model.Bar
		for ; i < len(daily) && !daily[i].Date.After(me); i++ {
			agg = fold(agg, daily[i], "1mo", me)
		}
		if agg != nil && !me.After(cutoff) {
			out = append(out, *agg)
		}
	}
	return out
}

// fold merges one daily bar into a period aggregate.
func fold(agg *model.Bar, b model.Bar, tf string, periodEnd time.Time) *model.Bar {
	if agg == nil {
		return &model.Bar{
			EntityID:  b.EntityID,
			Timeframe: tf,
			Date:      periodEnd,
			Open:      b.Open,
			High:      b.High,
			Low:       b.Low,
			Close:     b.Close,
			AdjClose:  b.AdjClose,
			Volume:    b.Volume,
			IsFinal:   true,
		}
	}
	if b.High > agg.High {
		agg.High = b.High
	}
	if b.Low < agg.Low {
		agg.Low = b.Low
	}
	agg.Close = b.Close
	agg.AdjClose = b.AdjClose
	agg.Volume += b.Volume
	return agg
}

// Generator rebuilds the derived timeframes for every entity from daily
// data. Like the indicator engine, it isolates per-entity failures.
type Generator struct {
	bars model.BarReader
	out  model.BarWriter
	met  *metrics.Metrics
	log  *slog.Logger
}

// NewGenerator creates a Generator. met may be nil.
func NewGenerator(bars model.BarReader, out model.BarWriter, met *metrics.Metrics, log *slog.Logger) *Generator {
	if log == nil {
		log = slog.Default()
	}
	return &Generator{bars: bars, out: out, met: met, log: log}
}

// Run derives and upserts weekly and monthly bars for all entities of
// the given classes. Returns the number of bars written.
func (g *Generator) Run(ctx context.Context, classes []model.ClassSpec) (int, error) {
	total := 0
	for _, class := range classes {
		ids, err := g.bars.ListEntities(ctx, class)
		if err != nil {
			return total, fmt.Errorf("list %s entities: %w", class.Name, err)
		}
		for _, id := range ids {
			if err := ctx.Err(); err != nil {
				return total, err
			}
			n, err := g.runEntity(ctx, class, id)
			if err != nil {
				g.log.Error("resample failed", "class", class.Name, "entity", id, "err", err)
				continue
			}
			total += n
		}
		g.log.Info("resample pass complete", "class", class.Name, "entities", len(ids))
	}
	return total, nil
}

func (g *Generator) runEntity(ctx context.Context, class model.ClassSpec, id int64) (int, error) {
	daily, err := g.bars.FetchBars(ctx, class, id, "1d", time.Time{})
	if err != nil {
		return 0, fmt.Errorf("fetch daily bars: %w", err)
	}
	if len(daily) == 0 {
		return 0, nil
	}

	n := 0
	for _, derived := range [][]model.Bar{Weekly(daily), Monthly(daily)} {
		if len(derived) == 0 {
			continue
		}
		if err := g.out.UpsertBars(ctx, class, derived); err != nil {
			return n, fmt.Errorf("upsert %s bars: %w", derived[0].Timeframe, err)
		}
		if g.met != nil {
			g.met.ResampledBars.WithLabelValues(class.Name, derived[0].Timeframe).Add(float64(len(derived)))
		}
		n += len(derived)
	}
	return n, nil
}
