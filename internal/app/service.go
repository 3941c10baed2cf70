// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/okian/dietlens/internal/domain/nutrition"
	"github.com/okian/dietlens/pkg/logger"
	"github.com/okian/dietlens/pkg/metrics"
)

// Default dataset location.
const (
	DefaultContainer = "diets-data"
	DefaultObject    = "diets_dataset.csv"
)

var errNoSource = errors.New("no dataset source configured")

// Service loads the recipe dataset for every request and runs the analysis
// pipeline over it. Nothing is cached between requests.
type Service struct {
	mu sync.RWMutex

	source   nutrition.Source
	backend  string
	location nutrition.Location
	analyzer *nutrition.Analyzer

	started bool

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithSource sets the dataset source and the backend name used in metrics.
func WithSource(src nutrition.Source, backend string) Option {
	return func(s *Service) {
		if src != nil {
			s.source = src
			s.backend = backend
		}
	}
}

// WithLocation sets the container and object holding the dataset.
func WithLocation(container, object string) Option {
	return func(s *Service) {
		if container != "" {
			s.location.Container = container
		}
		if object != "" {
			s.location.Object = object
		}
	}
}

// WithAnalyzer sets the analyzer.
func WithAnalyzer(a *nutrition.Analyzer) Option {
	return func(s *Service) {
		if a != nil {
			s.analyzer = a
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		location: nutrition.Location{Container: DefaultContainer, Object: DefaultObject},
		analyzer: nutrition.NewAnalyzer(),
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	return s
}

// Start marks the service ready. It never contacts storage: a broken
// source surfaces on the first request.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	s.started = true
	s.logger.Info(ctx, "nutrition service started",
		logger.String("backend", s.backend),
		logger.String("location", s.location.String()),
		logger.Bool("source_configured", s.source != nil),
		logger.Int("sample_limit", s.analyzer.SampleLimit()),
	)
	return nil
}

// Stop releases the source if it holds resources.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	if closer, ok := s.source.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			s.logger.Warn(context.Background(), "close dataset source", logger.Error(err))
		}
	}
	s.started = false
	s.logger.Info(context.Background(), "nutrition service stopped")
}

// Location returns where the dataset is read from.
func (s *Service) Location() nutrition.Location {
	return s.location
}

// NormalizeFilter maps an empty filter to the "all" sentinel.
func NormalizeFilter(diet string) string {
	if strings.TrimSpace(diet) == "" {
		return nutrition.AllDiets
	}
	return diet
}

// Analyze fetches the dataset and analyzes it for diet.
func (s *Service) Analyze(ctx context.Context, diet string) (*nutrition.Result, error) {
	start := time.Now()
	diet = NormalizeFilter(diet)

	data, err := s.fetch(ctx)
	if err != nil {
		s.finish(ctx, start, diet, nil, err)
		return nil, err
	}

	res, err := s.analyze(ctx, bytes.NewReader(data), diet)
	s.finish(ctx, start, diet, res, err)
	return res, err
}

// AnalyzeReader analyzes a CSV document supplied by the caller.
func (s *Service) AnalyzeReader(ctx context.Context, r io.Reader, diet string) (*nutrition.Result, error) {
	start := time.Now()
	diet = NormalizeFilter(diet)
	res, err := s.analyze(ctx, r, diet)
	s.finish(ctx, start, diet, res, err)
	return res, err
}

func (s *Service) fetch(ctx context.Context) ([]byte, error) {
	const op = "service.fetch"
	if s.source == nil {
		return nil, nutrition.Wrap(op, nutrition.ErrConfiguration, errNoSource)
	}

	s.logger.Info(ctx, "loading dataset", logger.String("backend", s.backend), logger.String("location", s.location.String()))
	start := time.Now()
	data, err := s.source.Fetch(ctx, s.location)
	if err != nil {
		metrics.RecordDatasetFetchError(s.backend, string(nutrition.KindOf(err)))
		return nil, err
	}
	elapsed := time.Since(start)
	metrics.RecordDatasetFetch(s.backend, float64(elapsed.Microseconds())/1000, len(data))
	s.logger.Debug(ctx, "dataset fetched", logger.Int("bytes", len(data)), logger.Duration("took", elapsed))
	return data, nil
}

func (s *Service) analyze(ctx context.Context, r io.Reader, diet string) (*nutrition.Result, error) {
	table, err := nutrition.ParseCSV(r)
	if err != nil {
		return nil, err
	}
	metrics.UpdateDatasetRows(table.Len())
	s.logger.Info(ctx, "dataset loaded",
		logger.Int("rows", table.Len()),
		logger.Int("columns", len(table.Columns())),
		logger.Bool("macro_fallback", table.Macros().Fallback()),
	)

	selected, err := s.analyzer.Select(ctx, table, diet)
	if err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "rows after filter",
		logger.String("filter", diet),
		logger.Int("rows", selected.Len()),
	)

	res, err := s.analyzer.Summarize(ctx, selected, diet)
	if err != nil {
		return nil, err
	}
	metrics.RecordRowsAnalyzed(res.RecordCount)
	metrics.RecordScatterPoints(len(res.ScatterData))
	return res, nil
}

func (s *Service) finish(ctx context.Context, start time.Time, diet string, res *nutrition.Result, err error) {
	elapsed := time.Since(start)
	metrics.RecordAnalysisLatency(float64(elapsed.Microseconds()) / 1000)

	if err != nil {
		kind := nutrition.KindOf(err)
		metrics.RecordAnalysis(string(kind))
		fields := []logger.Field{
			logger.String("filter", diet),
			logger.String("kind", string(kind)),
			logger.Error(err),
		}
		if op := nutrition.Op(err); op != "" {
			fields = append(fields, logger.String("op", op))
		}
		if kind == nutrition.KindNotFound {
			s.logger.Warn(ctx, "no rows for filter", fields...)
			return
		}
		metrics.RecordErrorByComponent("service", string(kind))
		s.logger.Error(ctx, "analysis failed", fields...)
		return
	}

	metrics.RecordAnalysis("success")
	s.logger.Info(ctx, "analysis complete",
		logger.String("filter", diet),
		logger.Int("records", res.RecordCount),
		logger.Int("scatter_points", len(res.ScatterData)),
		logger.Duration("took", elapsed),
	)
}
