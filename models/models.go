package models

import (
	"fmt"
	"strings"
)

// Candle is one OHLCV record for a fixed time bucket of an instrument.
// (symbol, interval, timestamp) is the unique key: re-ingesting a bucket
// overwrites the existing row instead of duplicating it.
type Candle struct {
	ID        uint    `gorm:"primaryKey" json:"-"`
	Symbol    string  `gorm:"size:20;uniqueIndex:uidx_symbol_interval_ts" json:"symbol"`
	Interval  string  `gorm:"size:8;uniqueIndex:uidx_symbol_interval_ts" json:"interval"`
	Timestamp int64   `gorm:"uniqueIndex:uidx_symbol_interval_ts" json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

func (Candle) TableName() string {
	return "candles"
}

// Coverage summarizes the cached range for one (symbol, interval) pair.
type Coverage struct {
	Symbol         string `json:"symbol"`
	Interval       string `json:"interval"`
	Count          int64  `json:"count"`
	FirstTimestamp int64  `json:"first_timestamp"`
	LastTimestamp  int64  `json:"last_timestamp"`
}

// SymbolDesc is a symbol-search result as the charting widget expects it.
type SymbolDesc struct {
	Symbol      string `json:"symbol"`
	FullName    string `json:"full_name"`
	Description string `json:"description"`
	Exchange    string `json:"exchange"`
	Type        string `json:"type"`
}

var intervalSeconds = map[string]int64{
	"1m":  60,
	"5m":  300,
	"15m": 900,
	"30m": 1800,
	"1h":  3600,
	"4h":  14400,
	"1D":  86400,
	"1W":  604800,
}

var intervalAliases = map[string]string{
	"D": "1D",
	"W": "1W",
}

// NormalizeInterval resolves shorthand tags ("D", "W") to their canonical
// form and reports whether the tag belongs to the interval vocabulary.
func NormalizeInterval(tag string) (string, bool) {
	if alias, ok := intervalAliases[tag]; ok {
		tag = alias
	}
	_, ok := intervalSeconds[tag]
	return tag, ok
}

// IntervalSeconds returns the bucket duration of an interval tag in seconds.
func IntervalSeconds(tag string) (int64, error) {
	tag, ok := NormalizeInterval(tag)
	if !ok {
		return 0, fmt.Errorf("unknown interval %q", tag)
	}
	return intervalSeconds[tag], nil
}

// AlignTimestamp floors a unix timestamp to the start of its bucket.
func AlignTimestamp(ts, bucketSeconds int64) int64 {
	return ts - ts%bucketSeconds
}

// NormalizeSymbol uppercases an instrument identifier.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
