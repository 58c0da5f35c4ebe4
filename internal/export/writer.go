// Package export writes fetched candle sequences to CSV files and
// orchestrates the full product/granularity export matrix.
package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/mattjh/candle-export/internal/models"
)

// csvHeader is the fixed column order of every output file.
var csvHeader = []string{"ProductId", "Granularity", "StartDate", "StartUnix", "Low", "High", "Open", "Close", "Volume"}

// Writer serializes candle sequences to CSV files, one file per job.
type Writer struct {
	outputDir string
}

// NewWriter creates a Writer that places files in outputDir, creating the
// directory on first write if needed.
func NewWriter(outputDir string) *Writer {
	if outputDir == "" {
		outputDir = "."
	}
	return &Writer{outputDir: outputDir}
}

// Write serializes the candles for one job to its deterministic output file
// and returns the written path. Rows are written in the order given; the
// fetcher guarantees strictly increasing StartUnix.
func (w *Writer) Write(job *models.ExportJob, candles []models.Candle) (string, error) {
	if err := os.MkdirAll(w.outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory %s: %w", w.outputDir, err)
	}

	path := filepath.Join(w.outputDir, job.OutputFilename())
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create output file %s: %w", path, err)
	}
	defer file.Close()

	cw := csv.NewWriter(file)
	if err := cw.Write(csvHeader); err != nil {
		return "", fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, c := range candles {
		row := []string{
			c.ProductID,
			c.Granularity.String(),
			c.StartTime.Format(time.RFC3339),
			strconv.FormatInt(c.StartUnix, 10),
			c.Low,
			c.High,
			c.Open,
			c.Close,
			c.Volume,
		}
		if err := cw.Write(row); err != nil {
			return "", fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return "", fmt.Errorf("failed to flush CSV output: %w", err)
	}

	return path, nil
}
