package models

// FloatRecord is the enrichment result for a single ticker. Optional fields
// are nil when the quote provider had no usable data; a nil Float means
// "insufficient data", never zero.
type FloatRecord struct {
	Symbol    string   `json:"symbol" csv:"symbol"`
	Float     *int64   `json:"float" csv:"float"`
	ShortName *string  `json:"shortName" csv:"shortName"`
	Exchange  *string  `json:"exchange" csv:"exchange"`
	MarketCap *float64 `json:"marketCap" csv:"marketCap"`
}

// EmptyFloatRecord returns the degraded record produced when every lookup
// path for a symbol failed. The run carries on with it.
func EmptyFloatRecord(symbol string) FloatRecord {
	return FloatRecord{Symbol: symbol}
}

// HasFloat reports whether the provider returned a usable share count.
func (r FloatRecord) HasFloat() bool {
	return r.Float != nil
}

// FloatValue returns the share count, or 0 when absent. Callers filtering
// by cutoff must check HasFloat first.
func (r FloatRecord) FloatValue() int64 {
	if r.Float == nil {
		return 0
	}
	return *r.Float
}

// EligibilityResult pairs a ticker with its brokerage tradability flag.
// Supported defaults to false: a symbol is unsupported unless the lookup
// proved otherwise.
type EligibilityResult struct {
	Symbol    string `json:"symbol"`
	Supported bool   `json:"supported"`
}
