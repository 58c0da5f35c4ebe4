// Package progress renders per-job fetch progress on the terminal. It
// implements the fetcher.ProgressReporter interface so the fetch loop stays
// decoupled from any particular rendering mechanism.
package progress

import (
	"os"

	"github.com/schollz/progressbar/v3"
)

// Bar renders one terminal progress bar for a single export job.
type Bar struct {
	bar *progressbar.ProgressBar
}

// NewBar creates a progress bar labeled with the job description, tracking
// total fetch windows. Output goes to stderr so it interleaves cleanly with
// piped CSV or log output.
func NewBar(description string, total int) *Bar {
	return &Bar{
		bar: progressbar.NewOptions(total,
			progressbar.OptionSetDescription(description),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWidth(30),
			progressbar.OptionClearOnFinish(),
			progressbar.OptionSetPredictTime(false),
		),
	}
}

// Update implements fetcher.ProgressReporter.
func (b *Bar) Update(completed, total int) {
	b.bar.ChangeMax(total)
	_ = b.bar.Set(completed)
}

// Finish clears the bar once the job is done.
func (b *Bar) Finish() {
	_ = b.bar.Finish()
}

// Noop is a ProgressReporter that renders nothing, for quiet runs and tests.
type Noop struct{}

// Update implements fetcher.ProgressReporter.
func (Noop) Update(completed, total int) {}
