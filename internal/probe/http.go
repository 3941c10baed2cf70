package probe

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	gojson "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/okian/dietlens/pkg/logger"
)

// client wraps http.Client and tags every request with a run-scoped id.
type client struct {
	http    *http.Client
	baseURL string
	runID   string
	verbose bool
	log     logger.Logger
}

func newClient(cfg Config, runID string) *client {
	return &client{
		http:    &http.Client{Timeout: cfg.Timeout},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		runID:   runID,
		verbose: cfg.Verbose,
		log:     logger.Get().Named("probe"),
	}
}

// result is a raw HTTP exchange.
type result struct {
	status int
	header http.Header
	body   []byte
}

func (c *client) do(ctx context.Context, method, path string, body any) (*result, error) {
	var rd io.Reader = http.NoBody
	if body != nil {
		data, err := gojson.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		rd = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Request-ID", c.runID+"-"+uuid.NewString()[:8])

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s %s: %w", method, path, err)
	}
	if c.verbose {
		c.log.Info(ctx, "probe request",
			logger.String("method", method),
			logger.String("path", path),
			logger.Int("status", resp.StatusCode),
			logger.Duration("took", time.Since(start)),
		)
	}
	return &result{status: resp.StatusCode, header: resp.Header, body: data}, nil
}

func analyzePath(diet string) string {
	return "/analyzenutrition?dietType=" + url.QueryEscape(diet)
}

func decode(r *result, v any) error {
	if err := gojson.Unmarshal(r.body, v); err != nil {
		return fmt.Errorf("%w: status %d: %w", ErrUnexpected, r.status, err)
	}
	return nil
}
