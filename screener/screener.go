package screener

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/google/uuid"

	"floatflow/brokerage"
	"floatflow/config"
	"floatflow/logger"
	"floatflow/models"
	"floatflow/quotes"
	"floatflow/report"
	"floatflow/runner"
	"floatflow/universe"
	"floatflow/writer"
)

// Result summarises one completed screening run.
type Result struct {
	Symbols    int
	Candidates int
	Rows       []models.FloatRecord
	OutputPath string
}

// Screener drives the full pipeline: universe load, batched enrichment,
// float filter, optional batched eligibility check, report artifacts.
type Screener struct {
	config  *config.Config
	runID   string
	log     *logger.Log
	loader  *universe.Loader
	quotes  *quotes.Client
	broker  *brokerage.Client
	console io.Writer
}

func New(cfg *config.Config) *Screener {
	log := logger.GetLogger()

	s := &Screener{
		config:  cfg,
		runID:   uuid.New().String(),
		log:     log,
		loader:  universe.NewLoader(cfg),
		quotes:  quotes.NewClient(cfg),
		broker:  brokerage.NewClient(cfg),
		console: os.Stdout,
	}

	log.WithComponent("screener").WithFields(logger.Fields{
		"run_id":      s.runID,
		"cutoff":      cfg.Report.Cutoff,
		"workers":     cfg.Runner.MaxWorkers,
		"eligibility": cfg.Eligibility.Enabled,
	}).Info("screener initialized")

	return s
}

// SetConsole redirects the console summary, used by tests.
func (s *Screener) SetConsole(w io.Writer) {
	s.console = w
}

// RunID returns the identifier stamped on this run's logs and artifacts.
func (s *Screener) RunID() string {
	return s.runID
}

// Run executes one full screening pass. Only a symbol source failure or an
// output write failure aborts the run; every per-symbol lookup failure has
// already been absorbed by the stage clients.
func (s *Screener) Run(ctx context.Context) (*Result, error) {
	log := s.log.WithComponent("screener").WithFields(logger.Fields{"run_id": s.runID})
	start := time.Now()

	symbols, err := s.loader.LoadSymbols(ctx)
	if err != nil {
		return nil, err
	}
	if limit := s.config.Universe.Limit; limit > 0 && len(symbols) > limit {
		symbols = symbols[:limit]
	}
	logger.SetSymbolsLoaded(len(symbols))
	log.WithFields(logger.Fields{"symbols": len(symbols)}).Info("symbols to check")

	progressInterval := time.Duration(s.config.Runner.ProgressIntervalSec) * time.Second

	enrichPool := runner.NewPool(s.config.Runner.MaxWorkers, progressInterval)
	records := runner.Run(ctx, enrichPool, "enrichment", symbols, s.quotes.Fetch)

	candidates := report.Build(records, s.config.Report.Cutoff, nil)
	log.WithFields(logger.Fields{"candidates": len(candidates)}).Info("float filter applied")

	var eligibility map[string]bool
	if s.config.Eligibility.Enabled {
		eligibility = s.checkEligibility(ctx, candidates, progressInterval)
	}

	rows := report.Build(candidates, s.config.Report.Cutoff, eligibility)
	logger.SetRowsReported(len(rows))

	if err := report.WriteCSV(rows, s.config.Report.Output); err != nil {
		return nil, err
	}
	log.WithFields(logger.Fields{"output": s.config.Report.Output, "rows": len(rows)}).Info("CSV report written")

	if s.config.Report.Parquet.Enabled {
		if err := report.WriteParquet(rows, s.config.Report.Parquet.Output); err != nil {
			return nil, err
		}
		log.WithFields(logger.Fields{"output": s.config.Report.Parquet.Output}).Info("parquet report written")
	}

	report.PrintSummary(s.console, rows, s.config.Report.Cutoff, s.config.Report.ConsoleRows)

	s.uploadArtifacts(ctx)

	logger.LogPerformanceEntry(log, "screener", "run", time.Since(start), logger.Fields{
		"symbols": len(symbols),
		"rows":    len(rows),
	})
	logger.FinalReport(ctx, s.log)

	return &Result{
		Symbols:    len(symbols),
		Candidates: len(candidates),
		Rows:       rows,
		OutputPath: s.config.Report.Output,
	}, nil
}

// checkEligibility runs the brokerage lookup over the post-float-filter
// subset and folds the results into a symbol -> supported map.
func (s *Screener) checkEligibility(ctx context.Context, candidates []models.FloatRecord, progressInterval time.Duration) map[string]bool {
	symbols := make([]string, 0, len(candidates))
	for _, r := range candidates {
		symbols = append(symbols, r.Symbol)
	}

	workers := s.config.Runner.MaxWorkers
	if workers < s.config.Eligibility.MinWorkers {
		workers = s.config.Eligibility.MinWorkers
	}

	pool := runner.NewPool(workers, progressInterval)
	results := runner.Run(ctx, pool, "eligibility", symbols, func(ctx context.Context, symbol string) models.EligibilityResult {
		return models.EligibilityResult{
			Symbol:    symbol,
			Supported: s.broker.Supported(ctx, symbol),
		}
	})

	eligibility := make(map[string]bool, len(results))
	for _, r := range results {
		eligibility[r.Symbol] = r.Supported
	}
	return eligibility
}

// uploadArtifacts copies the finished report files to S3 when enabled.
// Upload failures are logged, never fatal: the local artifacts already
// exist.
func (s *Screener) uploadArtifacts(ctx context.Context) {
	if !s.config.Storage.S3.Enabled {
		return
	}

	log := s.log.WithComponent("screener").WithFields(logger.Fields{"run_id": s.runID})

	uploader, err := writer.NewArtifactUploader(s.config, s.runID)
	if err != nil {
		log.WithError(err).Warn("failed to create S3 uploader; skipping artifact upload")
		return
	}

	paths := []string{s.config.Report.Output}
	if s.config.Report.Parquet.Enabled {
		paths = append(paths, s.config.Report.Parquet.Output)
	}
	for _, path := range paths {
		if err := uploader.Upload(ctx, path); err != nil {
			log.WithError(err).WithFields(logger.Fields{"path": path}).Warn("artifact upload failed")
		}
	}
}
