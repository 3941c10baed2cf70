package main

import (
	"context"
	"io"
	"path/filepath"
	"time"

	gojson "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/okian/dietlens/internal/adapters/http/api"
	"github.com/okian/dietlens/internal/adapters/storage"
	app "github.com/okian/dietlens/internal/app"
	"github.com/okian/dietlens/internal/config"
	"github.com/okian/dietlens/internal/domain/nutrition"
	"github.com/okian/dietlens/pkg/logger"
)

// stdinFile selects standard input as the dataset.
const stdinFile = "-"

type analyzeFlags struct {
	file   string
	diet   string
	seed   uint64
	indent bool
}

func newAnalyzeCmd() *cobra.Command {
	var f analyzeFlags
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze a dataset once and print the JSON response",
		Long: "Runs the analysis pipeline without the HTTP server. With --file the\n" +
			"dataset is read from a local CSV (gzip allowed); otherwise it is fetched\n" +
			"from the configured storage backend.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAnalyze(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), f)
		},
	}
	cmd.Flags().StringVarP(&f.file, "file", "f", "", "local CSV file to analyze (- for stdin)")
	cmd.Flags().StringVarP(&f.diet, "diet", "d", nutrition.AllDiets, "diet type filter")
	cmd.Flags().Uint64Var(&f.seed, "seed", 0, "seed for the scatter sample (0 = random)")
	cmd.Flags().BoolVar(&f.indent, "indent", true, "indent the JSON output")
	return cmd
}

func runAnalyze(ctx context.Context, in io.Reader, out io.Writer, f analyzeFlags) error {
	cfg, err := setup(ctx)
	if err != nil {
		return err
	}

	svc, err := analyzeService(cfg, f)
	if err != nil {
		return fail(ctx, "failed to open dataset", err)
	}

	start := time.Now()
	var res *nutrition.Result
	if f.file == stdinFile {
		res, err = svc.AnalyzeReader(ctx, in, f.diet)
	} else {
		res, err = svc.Analyze(ctx, f.diet)
	}

	var body any
	if err != nil {
		_, body = api.NewErrorResponse(err)
	} else {
		body = api.NewAnalysisResponse(res, time.Since(start))
	}

	enc := gojson.NewEncoder(out)
	if f.indent {
		enc.SetIndent("", "  ")
	}
	if encErr := enc.Encode(body); encErr != nil {
		return fail(ctx, "failed to write result", encErr)
	}
	return err
}

// analyzeService reads --file through the file backend so size limits and
// gzip handling match the server.
func analyzeService(cfg *config.Config, f analyzeFlags) (*app.Service, error) {
	opts := []nutrition.Option{nutrition.WithSampleLimit(cfg.SampleLimit)}
	if f.seed != 0 {
		opts = append(opts, nutrition.WithSeed(f.seed))
	}
	analyzer := nutrition.NewAnalyzer(opts...)
	log := logger.Named("analyze")

	switch f.file {
	case "":
		src, err := storage.Open(cfg.StorageBackend, cfg.StorageOptions()...)
		if err != nil {
			return nil, err
		}
		return app.New(
			app.WithLogger(log),
			app.WithSource(src, cfg.StorageBackend),
			app.WithLocation(cfg.Container, cfg.Blob),
			app.WithAnalyzer(analyzer),
		), nil
	case stdinFile:
		return app.New(app.WithLogger(log), app.WithAnalyzer(analyzer)), nil
	}

	abs, err := filepath.Abs(f.file)
	if err != nil {
		return nil, err
	}
	src := storage.NewFile(storage.WithDataDir(filepath.Dir(abs)), storage.WithMaxBytes(cfg.MaxDatasetBytes))
	return app.New(
		app.WithLogger(log),
		app.WithSource(src, string(storage.BackendFile)),
		app.WithLocation(".", filepath.Base(abs)),
		app.WithAnalyzer(analyzer),
	), nil
}
