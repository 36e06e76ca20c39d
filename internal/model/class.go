package model

// ClassSpec describes one entity class (equities or indices) so a single
// refresh pipeline can serve both table sets. The two differ only in the id
// column name and the volume-derived columns equities carry.
type ClassSpec struct {
	Name           string // "equity" or "index"
	SymbolTable    string
	PriceTable     string
	IndicatorTable string
	StatsTable     string
	IDColumn       string
	HasVolume      bool
}

// Equity is the equities class: symbol_id keyed tables with volume columns.
var Equity = ClassSpec{
	Name:           "equity",
	SymbolTable:    "equity_symbols",
	PriceTable:     "equity_price_data",
	IndicatorTable: "equity_indicators",
	StatsTable:     "equity_52week_stats",
	IDColumn:       "symbol_id",
	HasVolume:      true,
}

// Index is the indices class: index_id keyed tables, no volume columns.
var Index = ClassSpec{
	Name:           "index",
	SymbolTable:    "index_symbols",
	PriceTable:     "index_price_data",
	IndicatorTable: "index_indicators",
	StatsTable:     "index_52week_stats",
	IDColumn:       "index_id",
	HasVolume:      false,
}

// Classes lists every entity class in refresh order.
var Classes = []ClassSpec{Equity, Index}

// ClassByName returns the class with the given name, or false.
func ClassByName(name string) (ClassSpec, bool) {
	for _, c := range Classes {
		if c.Name == name {
			return c, true
		}
	}
	return ClassSpec{}, false
}
