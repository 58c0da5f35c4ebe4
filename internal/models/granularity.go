package models

import (
	"fmt"
	"time"
)

// Granularity is a Coinbase Advanced Trade candle interval label.
type Granularity string

const (
	OneMinute     Granularity = "ONE_MINUTE"
	FiveMinute    Granularity = "FIVE_MINUTE"
	FifteenMinute Granularity = "FIFTEEN_MINUTE"
	OneHour       Granularity = "ONE_HOUR"
	SixHour       Granularity = "SIX_HOUR"
	OneDay        Granularity = "ONE_DAY"
)

var granularitySeconds = map[Granularity]int64{
	OneMinute:     60,
	FiveMinute:    300,
	FifteenMinute: 900,
	OneHour:       3600,
	SixHour:       21600,
	OneDay:        86400,
}

// SupportedGranularities returns all valid granularity labels in ascending
// interval order.
func SupportedGranularities() []Granularity {
	return []Granularity{OneMinute, FiveMinute, FifteenMinute, OneHour, SixHour, OneDay}
}

// ParseGranularity converts a configuration label into a Granularity.
// Unknown labels are rejected so bad configuration fails before any fetching.
func ParseGranularity(s string) (Granularity, error) {
	g := Granularity(s)
	if _, ok := granularitySeconds[g]; !ok {
		return "", fmt.Errorf("unsupported granularity %q, must be one of %v", s, SupportedGranularities())
	}
	return g, nil
}

// Seconds returns the candle interval length in seconds.
func (g Granularity) Seconds() int64 {
	return granularitySeconds[g]
}

// Duration returns the candle interval length.
func (g Granularity) Duration() time.Duration {
	return time.Duration(granularitySeconds[g]) * time.Second
}

// IsValid reports whether g is one of the supported interval labels.
func (g Granularity) IsValid() bool {
	_, ok := granularitySeconds[g]
	return ok
}

// String implements fmt.Stringer. The label doubles as the API query value.
func (g Granularity) String() string {
	return string(g)
}
