package model

import (
	"encoding/json"
	"math"
	"testing"
	"time"
)

func TestIndicatorRowJSON_NaNBecomesNull(t *testing.T) {
	r := IndicatorRow{
		EntityID:  42,
		Timeframe: "1d",
		Date:      time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC),
		SMA20:     101.25,
		SMA200:    math.NaN(),
		RSI14:     math.NaN(),
		// SupertrendDir zero = undefined
	}

	var m map[string]any
	if err := json.Unmarshal(r.JSON(), &m); err != nil {
		t.Fatalf("row JSON does not parse: %v", err)
	}

	if m["sma_20"] != 101.25 {
		t.Errorf("sma_20: got %v, want 101.25", m["sma_20"])
	}
	if v, ok := m["sma_200"]; !ok || v != nil {
		t.Errorf("sma_200: got %v, want null", v)
	}
	if v := m["supertrend_dir"]; v != nil {
		t.Errorf("supertrend_dir: got %v, want null while undefined", v)
	}
	if m["date"] != "2024-03-08" {
		t.Errorf("date: got %v, want 2024-03-08", m["date"])
	}
}

func TestBar_EffAdjClose(t *testing.T) {
	b := Bar{Close: 100, AdjClose: 95}
	if got := b.EffAdjClose(); got != 95 {
		t.Errorf("with adj_close: got %v, want 95", got)
	}
	b.AdjClose = 0
	if got := b.EffAdjClose(); got != 100 {
		t.Errorf("fallback: got %v, want 100", got)
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-03-08")
	if err != nil {
		t.Fatalf("ParseDate: %v", err)
	}
	if d.Location() != time.UTC || d.Hour() != 0 {
		t.Errorf("parsed date not UTC midnight: %v", d)
	}
	if _, err := ParseDate("08/03/2024"); err == nil {
		t.Error("wrong layout accepted")
	}
}

func TestClassByName(t *testing.T) {
	if c, ok := ClassByName("equity"); !ok || c.IDColumn != "symbol_id" {
		t.Errorf("equity lookup: %+v, %v", c, ok)
	}
	if c, ok := ClassByName("index"); !ok || c.HasVolume {
		t.Errorf("index lookup: %+v, %v", c, ok)
	}
	if _, ok := ClassByName("crypto"); ok {
		t.Error("unknown class found")
	}
}
