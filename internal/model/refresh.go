package model

import (
	"encoding/json"
	"time"
)

// RefreshEvent reports progress for one (class, entity, timeframe) unit.
type RefreshEvent struct {
	Class     string    `json:"class"`
	EntityID  int64     `json:"entity_id"`
	Timeframe string    `json:"timeframe"`
	Mode      string    `json:"mode"` // "full" or "incremental"
	Rows      int64     `json:"rows"`
	Err       string    `json:"err,omitempty"`
	TS        time.Time `json:"ts"`
}

// JSON returns the JSON-encoded event.
func (e *RefreshEvent) JSON() []byte {
	b, _ := json.Marshal(e)
	return b
}

// TimeframeSummary aggregates one class × timeframe pass.
type TimeframeSummary struct {
	Class     string        `json:"class"`
	Timeframe string        `json:"timeframe"`
	Entities  int           `json:"entities"`
	Failed    int           `json:"failed"`
	Rows      int64         `json:"rows"`
	Elapsed   time.Duration `json:"elapsed"`
}

// RunSummary aggregates a whole refresh run.
type RunSummary struct {
	StartedAt  time.Time          `json:"started_at"`
	FinishedAt time.Time          `json:"finished_at"`
	Timeframes []TimeframeSummary `json:"timeframes"`
}

// TotalRows sums upserted rows across all passes.
func (s *RunSummary) TotalRows() int64 {
	var n int64
	for _, tf := range s.Timeframes {
		n += tf.Rows
	}
	return n
}

// TotalFailed sums failed series across all passes.
func (s *RunSummary) TotalFailed() int {
	n := 0
	for _, tf := range s.Timeframes {
		n += tf.Failed
	}
	return n
}

// JSON returns the JSON-encoded summary.
func (s *RunSummary) JSON() []byte {
	b, _ := json.Marshal(s)
	return b
}
