// Package probe exercises a running dietlens server end to end and checks
// the invariants every analysis response must satisfy.
package probe

import (
	"errors"
	"time"

	"github.com/okian/dietlens/internal/domain/nutrition"
)

// Sentinel errors for probe runs.
var (
	ErrChecksFailed = errors.New("probe checks failed")
	ErrUnexpected   = errors.New("unexpected response")
)

// Defaults for Config.
const (
	DefaultBaseURL = "http://localhost:7071"
	DefaultTimeout = 30 * time.Second
	DefaultWorkers = 4
)

// Config holds configuration for a probe run.
type Config struct {
	BaseURL     string        // Base URL of the service
	Timeout     time.Duration // HTTP request timeout
	Workers     int           // Concurrent per-diet requests
	SampleLimit int           // Expected scatter cap
	Verbose     bool          // Log every request
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.BaseURL == "" {
		out.BaseURL = DefaultBaseURL
	}
	if out.Timeout <= 0 {
		out.Timeout = DefaultTimeout
	}
	if out.Workers <= 0 {
		out.Workers = DefaultWorkers
	}
	if out.SampleLimit <= 0 {
		out.SampleLimit = nutrition.DefaultSampleLimit
	}
	return out
}

// Response mirrors the analysis envelope.
type Response struct {
	Success       bool   `json:"success"`
	ExecutionTime string `json:"executionTime"`
	nutrition.Result
}

// Failure is a non-2xx body.
type Failure struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Check is the outcome of one named assertion.
type Check struct {
	Name   string
	Passed bool
	Detail string
}

// Report summarizes a probe run.
type Report struct {
	RunID    string
	Checks   []Check
	Diets    []string
	Duration time.Duration
}

// Failed returns the checks that did not pass.
func (r *Report) Failed() []Check {
	var out []Check
	for _, c := range r.Checks {
		if !c.Passed {
			out = append(out, c)
		}
	}
	return out
}
