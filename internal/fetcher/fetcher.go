// Package fetcher implements the candle fetch loop: it partitions a job's
// date range into request-sized windows, fetches each window under a bounded
// fixed-delay retry policy, and accumulates an ordered, deduplicated candle
// sequence. A window whose retries are exhausted is skipped and counted so a
// single bad window never loses the rest of the job's data.
package fetcher

import (
	"context"
	"log/slog"
	"sort"
	"time"

	apperrors "github.com/mattjh/candle-export/internal/errors"
	"github.com/mattjh/candle-export/internal/models"
)

// CandleSource fetches the candles for one window. Implemented by
// exchange.Client; tests substitute stubs.
type CandleSource interface {
	Candles(ctx context.Context, productID string, granularity models.Granularity, start, end time.Time) ([]models.Candle, error)
}

// ProgressReporter receives a (completed, total) window update after every
// window attempt, whether it succeeded or exhausted its retries.
type ProgressReporter interface {
	Update(completed, total int)
}

// ProgressFunc adapts a function to the ProgressReporter interface.
type ProgressFunc func(completed, total int)

// Update implements ProgressReporter.
func (f ProgressFunc) Update(completed, total int) { f(completed, total) }

// Result holds the outcome of one job's fetch: candles strictly ascending in
// StartUnix with no duplicates, plus window counts for reporting. Candles may
// have gaps where windows permanently failed.
type Result struct {
	Candles       []models.Candle
	Windows       int
	FailedWindows int
}

// Fetcher produces the complete candle history for one export job.
type Fetcher struct {
	source CandleSource
	retry  apperrors.RetryPolicy
	logger *slog.Logger
}

// New creates a Fetcher. The retry policy is shared read-only across jobs.
func New(source CandleSource, retry apperrors.RetryPolicy, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{source: source, retry: retry, logger: logger}
}

// Fetch walks the job's windows in increasing time order. Each window is
// requested under the retry policy; transient failures are retried with the
// fixed delay, permanent failures and exhausted retries skip the window and
// continue. Fetch returns an error only when the context is cancelled;
// per-window failures are reported through Result.FailedWindows.
func (f *Fetcher) Fetch(ctx context.Context, job *models.ExportJob, progress ProgressReporter) (*Result, error) {
	windows := Windows(job.Start, job.End, job.Granularity)
	result := &Result{Windows: len(windows)}

	var collected []models.Candle
	for i, window := range windows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var batch []models.Candle
		err := f.retry.Execute(ctx, func() error {
			candles, err := f.source.Candles(ctx, job.ProductID, job.Granularity, window.Start, window.End)
			if err != nil {
				f.logger.Warn("candle request failed",
					"product", job.ProductID,
					"granularity", job.Granularity,
					"window_start", window.Start,
					"window_end", window.End,
					"error", err)
				return err
			}
			batch = candles
			return nil
		})

		switch {
		case err != nil && ctx.Err() != nil:
			return nil, ctx.Err()
		case err != nil:
			result.FailedWindows++
			f.logger.Error("window skipped after exhausting retries",
				"product", job.ProductID,
				"granularity", job.Granularity,
				"window_start", window.Start,
				"window_end", window.End,
				"max_attempts", f.retry.MaxAttempts,
				"error", err)
		case len(batch) == 0:
			// Legal: no candles in range, e.g. before the asset existed.
			f.logger.Debug("window returned no candles",
				"product", job.ProductID,
				"granularity", job.Granularity,
				"window_start", window.Start,
				"window_end", window.End)
		default:
			collected = append(collected, batch...)
		}

		if progress != nil {
			progress.Update(i+1, len(windows))
		}
	}

	result.Candles = normalize(collected, job.Start, job.End)
	return result, nil
}

// normalize sorts candles ascending by interval start, drops duplicate
// timestamps, and trims rows outside [start, end). The exchange returns rows
// newest first and window edges can overlap by one interval.
func normalize(candles []models.Candle, start, end time.Time) []models.Candle {
	sort.Slice(candles, func(i, j int) bool {
		return candles[i].StartUnix < candles[j].StartUnix
	})

	out := candles[:0]
	var lastUnix int64 = -1
	for _, c := range candles {
		if c.StartUnix == lastUnix {
			continue
		}
		if c.StartTime.Before(start) || !c.StartTime.Before(end) {
			continue
		}
		out = append(out, c)
		lastUnix = c.StartUnix
	}
	return out
}
