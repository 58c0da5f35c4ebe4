package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the current state of an export job.
type JobStatus string

const (
	StatusPending   JobStatus = "pending"   // StatusPending indicates the job has not started yet
	StatusRunning   JobStatus = "running"   // StatusRunning indicates the job is currently fetching
	StatusCompleted JobStatus = "completed" // StatusCompleted indicates the job finished, possibly with skipped windows
	StatusFailed    JobStatus = "failed"    // StatusFailed indicates the job could not produce its output file
)

// ExportJob pairs one product with one granularity over the configured
// [Start, End) range. Jobs are independent and run sequentially; the
// orchestrator creates one per (product x granularity) combination.
type ExportJob struct {
	ID          string      `json:"id"`
	ProductID   string      `json:"product_id"`
	Granularity Granularity `json:"granularity"`
	Start       time.Time   `json:"start"`
	End         time.Time   `json:"end"`
	Status      JobStatus   `json:"status"`
	Records     int         `json:"records"`
	Windows     int         `json:"windows"`
	Failed      int         `json:"failed_windows"`
	Error       string      `json:"error,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// NewExportJob creates a pending job with a generated ID. Times should be UTC.
func NewExportJob(productID string, granularity Granularity, start, end time.Time) *ExportJob {
	now := time.Now().UTC()
	return &ExportJob{
		ID:          uuid.NewString(),
		ProductID:   productID,
		Granularity: granularity,
		Start:       start,
		End:         end,
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// OutputFilename derives the deterministic CSV filename for this job.
func (j *ExportJob) OutputFilename() string {
	return fmt.Sprintf("candle_data_%s_%s.csv", j.ProductID, j.Granularity)
}

// MarkRunning transitions the job to running.
func (j *ExportJob) MarkRunning() {
	j.Status = StatusRunning
	j.UpdatedAt = time.Now().UTC()
}

// MarkCompleted records the final record and window counts. A job with
// permanently failed windows still completes; the gaps are reported, not fatal.
func (j *ExportJob) MarkCompleted(records, windows, failedWindows int) {
	j.Status = StatusCompleted
	j.Records = records
	j.Windows = windows
	j.Failed = failedWindows
	j.UpdatedAt = time.Now().UTC()
}

// MarkFailed records a job-level failure such as a writer I/O error.
func (j *ExportJob) MarkFailed(err error) {
	j.Status = StatusFailed
	if err != nil {
		j.Error = err.Error()
	}
	j.UpdatedAt = time.Now().UTC()
}

// Describe returns the short human-readable label used in logs and the
// progress bar, e.g. "BTC-USDC ONE_DAY".
func (j *ExportJob) Describe() string {
	return fmt.Sprintf("%s %s", j.ProductID, j.Granularity)
}
