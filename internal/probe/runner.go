package probe

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/dietlens/internal/domain/nutrition"
	"github.com/okian/dietlens/pkg/logger"
)

// Run probes the service at cfg.BaseURL. It returns ErrChecksFailed when any
// check fails; transport errors abort the run.
func Run(ctx context.Context, cfg Config) (*Report, error) {
	cfg = cfg.withDefaults()
	start := time.Now()
	report := &Report{RunID: "probe-" + uuid.NewString()[:8]}
	c := newClient(cfg, report.RunID)
	log := logger.Get().Named("probe")

	log.Info(ctx, "probe started",
		logger.String("run_id", report.RunID),
		logger.String("base_url", cfg.BaseURL),
		logger.Int("workers", cfg.Workers),
	)

	if err := probeHealth(ctx, c, report); err != nil {
		return report, err
	}

	all, err := probeAll(ctx, c, cfg, report)
	if err != nil {
		return report, err
	}
	report.Diets = all.Distribution.DietTypes

	if err := probeDiets(ctx, c, cfg, all, report); err != nil {
		return report, err
	}
	if err := probeUnknown(ctx, c, report); err != nil {
		return report, err
	}
	if err := probePreflight(ctx, c, report); err != nil {
		return report, err
	}

	report.Duration = time.Since(start)
	failed := report.Failed()
	for _, f := range failed {
		log.Error(ctx, "check failed", logger.String("check", f.Name), logger.String("detail", f.Detail))
	}
	log.Info(ctx, "probe finished",
		logger.Int("checks", len(report.Checks)),
		logger.Int("failed", len(failed)),
		logger.Duration("took", report.Duration),
	)
	if len(failed) > 0 {
		return report, fmt.Errorf("%w: %d of %d", ErrChecksFailed, len(failed), len(report.Checks))
	}
	return report, nil
}

func probeHealth(ctx context.Context, c *client, report *Report) error {
	res, err := c.do(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return err
	}
	var body struct {
		Status string `json:"status"`
	}
	if res.status == http.StatusOK {
		if err := decode(res, &body); err != nil {
			return err
		}
	}
	report.add("health", res.status == http.StatusOK && body.Status == "healthy",
		"status=%d body=%q", res.status, body.Status)
	return nil
}

func probeAll(ctx context.Context, c *client, cfg Config, report *Report) (*Response, error) {
	res, err := c.do(ctx, http.MethodGet, analyzePath(nutrition.AllDiets), nil)
	if err != nil {
		return nil, err
	}
	if res.status != http.StatusOK {
		var f Failure
		_ = decode(res, &f)
		return nil, fmt.Errorf("%w: all: status %d: %s", ErrUnexpected, res.status, f.Error)
	}
	var all Response
	if err := decode(res, &all); err != nil {
		return nil, err
	}
	report.Checks = append(report.Checks, checkResponse(nutrition.AllDiets, &all, cfg.SampleLimit)...)
	report.add("all: cors header", res.header.Get("Access-Control-Allow-Origin") == "*",
		"origin=%q", res.header.Get("Access-Control-Allow-Origin"))
	return &all, nil
}

// probeDiets requests every diet from the unfiltered distribution through a
// worker pool and checks the counts add back up.
func probeDiets(ctx context.Context, c *client, cfg Config, all *Response, report *Report) error {
	type outcome struct {
		diet string
		resp *Response
		err  error
	}

	jobs := make(chan string)
	results := make(chan outcome)
	var wg sync.WaitGroup
	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for diet := range jobs {
				out := outcome{diet: diet}
				res, err := c.do(ctx, http.MethodGet, analyzePath(diet), nil)
				switch {
				case err != nil:
					out.err = err
				case res.status != http.StatusOK:
					out.err = fmt.Errorf("%w: %s: status %d", ErrUnexpected, diet, res.status)
				default:
					var r Response
					out.err = decode(res, &r)
					out.resp = &r
				}
				results <- out
			}
		}()
	}
	go func() {
		defer close(jobs)
		for _, diet := range all.Distribution.DietTypes {
			select {
			case jobs <- diet:
			case <-ctx.Done():
				return
			}
		}
	}()
	go func() {
		wg.Wait()
		close(results)
	}()

	counts := make(map[string]int, len(all.Distribution.DietTypes))
	var firstErr error
	for out := range results {
		if out.err != nil {
			if firstErr == nil {
				firstErr = out.err
			}
			continue
		}
		counts[out.diet] = out.resp.RecordCount
		report.Checks = append(report.Checks, checkResponse(out.diet, out.resp, cfg.SampleLimit)...)
		report.Checks = append(report.Checks, checkFiltered(out.diet, out.resp))
	}
	if firstErr != nil {
		return firstErr
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	for i, diet := range all.Distribution.DietTypes {
		want := all.Distribution.RecipeCounts[i]
		report.add(diet+": record count matches distribution", counts[diet] == want,
			"recordCount=%d distribution=%d", counts[diet], want)
	}
	return nil
}

func probeUnknown(ctx context.Context, c *client, report *Report) error {
	diet := "probe-" + strings.ReplaceAll(uuid.NewString(), "-", "")
	res, err := c.do(ctx, http.MethodGet, analyzePath(diet), nil)
	if err != nil {
		return err
	}
	var f Failure
	if res.status == http.StatusNotFound {
		if err := decode(res, &f); err != nil {
			return err
		}
	}
	want := "No data found for diet type: " + diet
	report.add("unknown diet: not found", res.status == http.StatusNotFound && !f.Success && f.Error == want,
		"status=%d error=%q", res.status, f.Error)
	return nil
}

func probePreflight(ctx context.Context, c *client, report *Report) error {
	res, err := c.do(ctx, http.MethodOptions, "/analyzenutrition", nil)
	if err != nil {
		return err
	}
	report.add("preflight", res.status == http.StatusNoContent && res.header.Get("Access-Control-Allow-Methods") != "",
		"status=%d methods=%q", res.status, res.header.Get("Access-Control-Allow-Methods"))
	return nil
}

func (r *Report) add(name string, ok bool, format string, args ...any) {
	c := Check{Name: name, Passed: ok}
	if !ok {
		c.Detail = fmt.Sprintf(format, args...)
	}
	r.Checks = append(r.Checks, c)
}
