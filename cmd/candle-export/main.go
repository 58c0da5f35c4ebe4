// Candle Export CLI
// Fetches historical candle data from the Coinbase Advanced Trade API for a
// configured list of products and granularities and writes one CSV file per
// combination.
//
// Usage:
//
//	candle-export -config config.json
//	candle-export -config config.json -output ./data -quiet
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattjh/candle-export/internal/config"
	"github.com/mattjh/candle-export/internal/errors"
	"github.com/mattjh/candle-export/internal/exchange"
	"github.com/mattjh/candle-export/internal/export"
	"github.com/mattjh/candle-export/internal/fetcher"
	"github.com/mattjh/candle-export/internal/logger"
	"github.com/mattjh/candle-export/internal/models"
	"github.com/mattjh/candle-export/internal/progress"
)

const (
	Version = "1.0.0"
	AppName = "candle-export"
)

// Exit codes following standard conventions
const (
	ExitSuccess     = 0
	ExitUsageError  = 1
	ExitConfigError = 2
	ExitDataError   = 4
	ExitInterrupt   = 130
)

func main() {
	configPath := flag.String("config", "config.json", "path to the JSON settings file")
	outputDir := flag.String("output", "", "output directory override for CSV files")
	quiet := flag.Bool("quiet", false, "disable the terminal progress bar")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s version %s\n", AppName, Version)
		os.Exit(ExitSuccess)
	}
	if flag.NArg() > 0 {
		fmt.Fprintf(os.Stderr, "Error: unexpected arguments: %v\n", flag.Args())
		flag.Usage()
		os.Exit(ExitUsageError)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitConfigError)
	}
	if *outputDir != "" {
		cfg.OutputDir = *outputDir
	}

	log, logCloser, err := logger.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to set up logging: %v\n", err)
		os.Exit(ExitConfigError)
	}
	defer logCloser.Close()

	log.Info("candle export started",
		"version", Version,
		"products", cfg.ProductIDs,
		"granularities", cfg.Granularities,
		"start", cfg.StartDate,
		"end", cfg.EndDate,
		"output_dir", cfg.OutputDir)

	client := exchange.NewClient(cfg.RequestsPerSecond, log)
	retry := errors.RetryPolicy{MaxAttempts: cfg.MaxRetryAttempts, Delay: cfg.RetryDelay()}
	f := fetcher.New(client, retry, log)
	writer := export.NewWriter(cfg.OutputDir)

	var progressFactory export.ProgressFactory
	if !*quiet {
		progressFactory = func(description string, totalWindows int) fetcher.ProgressReporter {
			return progress.NewBar(description, totalWindows)
		}
	}

	runner := export.NewRunner(cfg, f, writer, log, progressFactory)

	summaries, err := runner.Run(ctx)
	if err != nil {
		log.Error("export interrupted", "error", err)
		os.Exit(ExitInterrupt)
	}

	failedJobs := 0
	for _, s := range summaries {
		if s.Job.Status == models.StatusFailed {
			failedJobs++
		}
	}

	log.Info("candle export finished",
		"jobs", len(summaries),
		"failed_jobs", failedJobs)

	if failedJobs > 0 {
		os.Exit(ExitDataError)
	}
}
