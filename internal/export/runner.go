package export

import (
	"context"
	"log/slog"
	"time"

	"github.com/mattjh/candle-export/internal/config"
	"github.com/mattjh/candle-export/internal/fetcher"
	"github.com/mattjh/candle-export/internal/models"
)

// ProgressFactory builds a progress reporter for one job. It may return nil
// for quiet runs.
type ProgressFactory func(description string, totalWindows int) fetcher.ProgressReporter

// JobSummary is the per-job outcome reported after a run.
type JobSummary struct {
	Job        *models.ExportJob
	OutputPath string
	Err        error
}

// Runner walks the configured product x granularity matrix sequentially,
// fetching and then writing one job at a time. A failure in one job is logged
// and does not prevent subsequent jobs from running.
type Runner struct {
	cfg         *config.Config
	fetcher     *fetcher.Fetcher
	writer      *Writer
	logger      *slog.Logger
	newProgress ProgressFactory
}

// NewRunner creates a Runner. newProgress may be nil to disable progress
// rendering entirely.
func NewRunner(cfg *config.Config, f *fetcher.Fetcher, w *Writer, logger *slog.Logger, newProgress ProgressFactory) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		cfg:         cfg,
		fetcher:     f,
		writer:      w,
		logger:      logger,
		newProgress: newProgress,
	}
}

// Run executes every job in configuration order and returns their summaries.
// It returns an error only when the context is cancelled; completed summaries
// up to that point are still returned.
func (r *Runner) Run(ctx context.Context) ([]JobSummary, error) {
	start := r.cfg.StartTime()
	end := r.cfg.EndTime()

	var summaries []JobSummary
	for _, productID := range r.cfg.ProductIDs {
		r.logger.Info("processing product", "product", productID)

		for _, granularity := range r.cfg.ParsedGranularities() {
			job := models.NewExportJob(productID, granularity, start, end)
			summary, err := r.runJob(ctx, job)
			summaries = append(summaries, summary)
			if err != nil {
				return summaries, err
			}
		}
	}
	return summaries, nil
}

func (r *Runner) runJob(ctx context.Context, job *models.ExportJob) (JobSummary, error) {
	jobStart := time.Now()
	job.MarkRunning()
	r.logger.Info("starting export job",
		"job_id", job.ID,
		"product", job.ProductID,
		"granularity", job.Granularity,
		"start", job.Start,
		"end", job.End)

	var reporter fetcher.ProgressReporter
	if r.newProgress != nil {
		totalWindows := len(fetcher.Windows(job.Start, job.End, job.Granularity))
		reporter = r.newProgress(job.Describe(), totalWindows)
	}

	result, err := r.fetcher.Fetch(ctx, job, reporter)
	if err != nil {
		// Only context cancellation reaches here; window failures are
		// absorbed into result.FailedWindows.
		job.MarkFailed(err)
		return JobSummary{Job: job, Err: err}, err
	}

	if len(result.Candles) == 0 {
		job.MarkCompleted(0, result.Windows, result.FailedWindows)
		r.logger.Warn("no candles returned for job, skipping file",
			"job_id", job.ID,
			"product", job.ProductID,
			"granularity", job.Granularity,
			"failed_windows", result.FailedWindows)
		return JobSummary{Job: job}, nil
	}

	path, err := r.writer.Write(job, result.Candles)
	if err != nil {
		job.MarkFailed(err)
		r.logger.Error("failed to write export file",
			"job_id", job.ID,
			"product", job.ProductID,
			"granularity", job.Granularity,
			"error", err)
		return JobSummary{Job: job, Err: err}, nil
	}

	job.MarkCompleted(len(result.Candles), result.Windows, result.FailedWindows)
	r.logger.Info("export job completed",
		"job_id", job.ID,
		"product", job.ProductID,
		"granularity", job.Granularity,
		"records", job.Records,
		"windows", job.Windows,
		"failed_windows", job.Failed,
		"output", path,
		"duration", time.Since(jobStart).Round(time.Millisecond))

	return JobSummary{Job: job, OutputPath: path}, nil
}
