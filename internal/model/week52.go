package model

import "time"

// Week52Stat is the trailing 52-week high/low snapshot for one entity,
// computed from daily bars. One row per entity, overwritten on refresh.
type Week52Stat struct {
	EntityID int64     `json:"entity_id"`
	High     float64   `json:"week52_high"`
	Low      float64   `json:"week52_low"`
	AsOf     time.Time `json:"as_of_date"`
}
