package fetcher

import (
	"time"

	"github.com/mattjh/candle-export/internal/models"
)

// MaxCandlesPerWindow caps how many candles one request may ask for. The
// Coinbase Advanced Trade candles endpoint rejects requests spanning more
// than 350 intervals; 300 leaves headroom.
const MaxCandlesPerWindow = 300

// Window is one bounded [Start, End) sub-range of the requested date range,
// sized so a single request can return every candle in it.
type Window struct {
	Start time.Time
	End   time.Time
}

// Windows partitions [start, end) into consecutive, non-overlapping windows
// of MaxCandlesPerWindow intervals each, the last truncated at end. A range
// where start >= end yields no windows.
func Windows(start, end time.Time, granularity models.Granularity) []Window {
	if !start.Before(end) {
		return nil
	}

	span := time.Duration(MaxCandlesPerWindow) * granularity.Duration()

	var windows []Window
	for current := start; current.Before(end); current = current.Add(span) {
		windowEnd := current.Add(span)
		if windowEnd.After(end) {
			windowEnd = end
		}
		windows = append(windows, Window{Start: current, End: windowEnd})
	}
	return windows
}
