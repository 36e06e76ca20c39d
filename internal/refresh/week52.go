package refresh

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"indicator-systemv1/internal/model"
)

// RefreshWeek52 rebuilds the trailing 52-week high/low snapshot for every
// entity of the given classes from daily bars. A class with no daily data
// is skipped, not an error.
func RefreshWeek52(ctx context.Context, st model.StatsStore, classes []model.ClassSpec, now time.Time, log *slog.Logger) (int, error) {
	if log == nil {
		log = slog.Default()
	}
	since := now.AddDate(-1, 0, 0)

	total := 0
	for _, class := range classes {
		stats, err := st.Week52Stats(ctx, class, since, now)
		if err != nil {
			return total, fmt.Errorf("52w stats for %s: %w", class.Name, err)
		}
		if len(stats) == 0 {
			log.Warn("no daily data for 52w stats", "class", class.Name)
			continue
		}
		if err := st.UpsertWeek52Stats(ctx, class, stats); err != nil {
			return total, fmt.Errorf("52w upsert for %s: %w", class.Name, err)
		}
		log.Info("52w stats updated", "class", class.Name, "entities", len(stats))
		total += len(stats)
	}
	return total, nil
}
