// Package models provides the data structures for exported candle data:
// candles, granularities, and export jobs.
package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Candle represents OHLCV price and volume data for one product at one
// interval start. Prices are kept as decimal strings exactly as returned by
// the exchange; use the decimal accessors for arithmetic. A Candle is never
// mutated after construction.
type Candle struct {
	ProductID   string      `json:"product_id"`
	Granularity Granularity `json:"granularity"`
	StartTime   time.Time   `json:"start_time"`
	StartUnix   int64       `json:"start_unix"`
	Low         string      `json:"low"`
	High        string      `json:"high"`
	Open        string      `json:"open"`
	Close       string      `json:"close"`
	Volume      string      `json:"volume"`
}

// ValidationError reports a candle field that failed validation.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface for ValidationError.
func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error for field %s: %s", e.Field, e.Message)
}

// NewCandle builds a Candle from one exchange response row and validates it.
// startUnix is the interval start in Unix seconds; the StartTime field is
// derived from it in UTC.
func NewCandle(productID string, granularity Granularity, startUnix int64, low, high, open, close, volume string) (*Candle, error) {
	candle := &Candle{
		ProductID:   productID,
		Granularity: granularity,
		StartTime:   time.Unix(startUnix, 0).UTC(),
		StartUnix:   startUnix,
		Low:         low,
		High:        high,
		Open:        open,
		Close:       close,
		Volume:      volume,
	}

	if err := candle.Validate(); err != nil {
		return nil, fmt.Errorf("failed to create candle: %w", err)
	}

	return candle, nil
}

// Validate checks that all price fields parse as positive decimals, volume is
// non-negative, the OHLC relationships hold (high >= max(open, close),
// low <= min(open, close)), and required fields are present.
func (c *Candle) Validate() error {
	if c.StartUnix <= 0 {
		return &ValidationError{Field: "start_unix", Message: "interval start must be a positive Unix timestamp"}
	}
	if c.ProductID == "" {
		return &ValidationError{Field: "product_id", Message: "product ID cannot be empty"}
	}
	if !c.Granularity.IsValid() {
		return &ValidationError{Field: "granularity", Message: fmt.Sprintf("unknown granularity %q", c.Granularity)}
	}

	open, err := decimal.NewFromString(c.Open)
	if err != nil {
		return &ValidationError{Field: "open", Message: fmt.Sprintf("invalid open price format: %v", err)}
	}
	high, err := decimal.NewFromString(c.High)
	if err != nil {
		return &ValidationError{Field: "high", Message: fmt.Sprintf("invalid high price format: %v", err)}
	}
	low, err := decimal.NewFromString(c.Low)
	if err != nil {
		return &ValidationError{Field: "low", Message: fmt.Sprintf("invalid low price format: %v", err)}
	}
	close, err := decimal.NewFromString(c.Close)
	if err != nil {
		return &ValidationError{Field: "close", Message: fmt.Sprintf("invalid close price format: %v", err)}
	}
	volume, err := decimal.NewFromString(c.Volume)
	if err != nil {
		return &ValidationError{Field: "volume", Message: fmt.Sprintf("invalid volume format: %v", err)}
	}

	zero := decimal.Zero
	if open.LessThanOrEqual(zero) {
		return &ValidationError{Field: "open", Message: "open price must be greater than 0"}
	}
	if high.LessThanOrEqual(zero) {
		return &ValidationError{Field: "high", Message: "high price must be greater than 0"}
	}
	if low.LessThanOrEqual(zero) {
		return &ValidationError{Field: "low", Message: "low price must be greater than 0"}
	}
	if close.LessThanOrEqual(zero) {
		return &ValidationError{Field: "close", Message: "close price must be greater than 0"}
	}
	if volume.LessThan(zero) {
		return &ValidationError{Field: "volume", Message: "volume must be greater than or equal to 0"}
	}

	maxOpenClose := decimal.Max(open, close)
	if high.LessThan(maxOpenClose) {
		return &ValidationError{
			Field:   "high",
			Message: fmt.Sprintf("high price (%s) must be greater than or equal to max(open, close) (%s)", high, maxOpenClose),
		}
	}

	minOpenClose := decimal.Min(open, close)
	if low.GreaterThan(minOpenClose) {
		return &ValidationError{
			Field:   "low",
			Message: fmt.Sprintf("low price (%s) must be less than or equal to min(open, close) (%s)", low, minOpenClose),
		}
	}

	return nil
}

// GetOpenDecimal returns the open price as a decimal.Decimal.
func (c *Candle) GetOpenDecimal() (decimal.Decimal, error) {
	return decimal.NewFromString(c.Open)
}

// GetHighDecimal returns the high price as a decimal.Decimal.
func (c *Candle) GetHighDecimal() (decimal.Decimal, error) {
	return decimal.NewFromString(c.High)
}

// GetLowDecimal returns the low price as a decimal.Decimal.
func (c *Candle) GetLowDecimal() (decimal.Decimal, error) {
	return decimal.NewFromString(c.Low)
}

// GetCloseDecimal returns the close price as a decimal.Decimal.
func (c *Candle) GetCloseDecimal() (decimal.Decimal, error) {
	return decimal.NewFromString(c.Close)
}

// GetVolumeDecimal returns the volume as a decimal.Decimal.
func (c *Candle) GetVolumeDecimal() (decimal.Decimal, error) {
	return decimal.NewFromString(c.Volume)
}

// String returns a human-readable representation of the candle.
func (c *Candle) String() string {
	return fmt.Sprintf("Candle{Product: %s, Granularity: %s, Start: %s, O: %s, H: %s, L: %s, C: %s, V: %s}",
		c.ProductID, c.Granularity, c.StartTime.Format(time.RFC3339), c.Open, c.High, c.Low, c.Close, c.Volume)
}
