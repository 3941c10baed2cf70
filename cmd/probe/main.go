package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/okian/dietlens/internal/probe"
	"github.com/okian/dietlens/pkg/logger"
)

// Default configuration constants.
const (
	defaultProbeTimeout = 5 * time.Minute
)

func main() {
	var (
		baseURL     = flag.String("url", probe.DefaultBaseURL, "Base URL of the service")
		workers     = flag.Int("workers", probe.DefaultWorkers, "Number of concurrent per-diet requests")
		timeout     = flag.Duration("timeout", probe.DefaultTimeout, "HTTP request timeout")
		sampleLimit = flag.Int("sample-limit", 0, "Expected scatter sample cap (default: 100)")
		format      = flag.String("log-format", logger.FormatText, "Log format: text or json")
		verbose     = flag.Bool("verbose", false, "Log every request")
	)
	flag.Parse()

	level := "info"
	if *verbose {
		level = "debug"
	}
	if err := logger.Init(logger.WithFormat(*format), logger.WithLevel(level)); err != nil {
		fmt.Fprintln(os.Stderr, "failed to setup logging:", err)
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultProbeTimeout)
	defer cancel()

	report, err := probe.Run(ctx, probe.Config{
		BaseURL:     *baseURL,
		Workers:     *workers,
		Timeout:     *timeout,
		SampleLimit: *sampleLimit,
		Verbose:     *verbose,
	})
	if report != nil {
		for _, c := range report.Failed() {
			fmt.Fprintf(os.Stderr, "FAIL %s: %s\n", c.Name, c.Detail)
		}
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "probe failed:", err)
		os.Exit(1)
	}
	fmt.Printf("ok: %d checks across %d diets in %s\n", len(report.Checks), len(report.Diets), report.Duration.Round(time.Millisecond))
}
