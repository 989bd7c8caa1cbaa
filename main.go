package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"floatflow/config"
	"floatflow/logger"
	"floatflow/screener"
)

func main() {
	log := logger.GetLogger()

	// Load environment variables from .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Error loading .env file")
	}

	configPath := flag.String("config", "config/config.yml", "Path to configuration file")
	cutoff := flag.Int64("cutoff", 0, "Float cutoff in shares; overrides report.cutoff")
	output := flag.String("output", "", "CSV output path; overrides report.output")
	workers := flag.Int("workers", 0, "Enrichment worker count; overrides runner.max_workers")
	limit := flag.Int("limit", 0, "Process only the first N symbols (0 = all)")
	eligibility := flag.Bool("eligibility", false, "Keep only brokerage-tradable tickers")

	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}

	if *cutoff > 0 {
		cfg.Report.Cutoff = *cutoff
	}
	if *output != "" {
		cfg.Report.Output = *output
	}
	if *workers > 0 {
		cfg.Runner.MaxWorkers = *workers
	}
	if *limit > 0 {
		cfg.Universe.Limit = *limit
	}
	if *eligibility {
		cfg.Eligibility.Enabled = true
	}

	if err := log.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAge); err != nil {
		log.WithError(err).Error("Failed to configure logger")
		os.Exit(1)
	}

	log.WithFields(logger.Fields{
		"service": cfg.Floatflow.Name,
		"version": cfg.Floatflow.Version,
	}).Info("starting floatflow")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Metrics.CloudWatch {
		logger.InitCloudWatch(cfg.Storage.S3.Region, cfg.Metrics.Namespace)
	}

	if strings.ToLower(cfg.Logging.Level) == "report" {
		logger.StartReport(ctx, log, 30*time.Second)
	}

	// A run is a single pass, but interruption should still cancel in-flight
	// lookups instead of leaving goroutines mid-request.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.WithFields(logger.Fields{"signal": sig.String()}).Warn("received shutdown signal")
		cancel()
	}()

	result, err := screener.New(cfg).Run(ctx)
	if err != nil {
		log.WithError(err).Error("screening run failed")
		os.Exit(1)
	}

	log.WithFields(logger.Fields{
		"symbols": result.Symbols,
		"rows":    len(result.Rows),
		"output":  result.OutputPath,
	}).Info("floatflow finished")
}
