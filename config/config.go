package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Floatflow   FloatflowConfig   `yaml:"floatflow"`
	Universe    UniverseConfig    `yaml:"universe"`
	Enrichment  EnrichmentConfig  `yaml:"enrichment"`
	Eligibility EligibilityConfig `yaml:"eligibility"`
	Runner      RunnerConfig      `yaml:"runner"`
	Report      ReportConfig      `yaml:"report"`
	Storage     StorageConfig     `yaml:"storage"`
	Metrics     MetricsConfig     `yaml:"metrics"`
	Logging     LoggingConfig     `yaml:"logging"`
}

type FloatflowConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

// SymbolSource is one remote symbol directory resource.
type SymbolSource struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

type UniverseConfig struct {
	Sources []SymbolSource `yaml:"sources"`
	// FooterPrefix terminates parsing of a directory file; the nasdaqtrader
	// feeds end with a "File Creation Time" sentinel row.
	FooterPrefix string `yaml:"footer_prefix"`
	TimeoutSec   int    `yaml:"timeout_sec"`
	// Limit caps how many symbols are processed this run. 0 = all.
	Limit int `yaml:"limit"`
}

type EnrichmentConfig struct {
	// URL is the quote endpoint; the symbol is appended as ?symbol=<ticker>.
	URL        string `yaml:"url"`
	TimeoutSec int    `yaml:"timeout_sec"`
	// FloatFields are checked in order; the first numeric value > 0 wins.
	FloatFields []string `yaml:"float_fields"`
	// StringFields are re-parsed (thousands separators stripped) when no
	// numeric field yielded a value.
	StringFields []string `yaml:"string_fields"`
}

type EligibilityConfig struct {
	Enabled    bool   `yaml:"enabled"`
	URL        string `yaml:"url"`
	TimeoutSec int    `yaml:"timeout_sec"`
	MinWorkers int    `yaml:"min_workers"`
}

type RunnerConfig struct {
	MaxWorkers          int `yaml:"max_workers"`
	ProgressIntervalSec int `yaml:"progress_interval_sec"`
}

type ReportConfig struct {
	Cutoff      int64         `yaml:"cutoff"`
	Output      string        `yaml:"output"`
	ConsoleRows int           `yaml:"console_rows"`
	Parquet     ParquetConfig `yaml:"parquet"`
}

type ParquetConfig struct {
	Enabled bool   `yaml:"enabled"`
	Output  string `yaml:"output"`
}

type StorageConfig struct {
	S3 S3Config `yaml:"s3"`
}

type S3Config struct {
	Enabled         bool   `yaml:"enabled"`
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Prefix          string `yaml:"prefix"`
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

type MetricsConfig struct {
	CloudWatch bool   `yaml:"cloudwatch"`
	Namespace  string `yaml:"namespace"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
	MaxAge int    `yaml:"max_age"`
}

const (
	nasdaqListedURL = "https://ftp.nasdaqtrader.com/dynamic/SymDir/nasdaqlisted.txt"
	otherListedURL  = "https://ftp.nasdaqtrader.com/dynamic/SymDir/otherlisted.txt"
	quoteSummaryURL = "https://query2.finance.yahoo.com/v10/finance/quoteSummary"
	instrumentsURL  = "https://api.robinhood.com/instruments/"
)

// Default returns the configuration used when no config file is present.
// Values follow the screener defaults: 10M cutoff, 8 workers, CSV to
// low_float.csv.
func Default() *Config {
	return &Config{
		Floatflow: FloatflowConfig{Name: "floatflow", Version: "1.0"},
		Universe: UniverseConfig{
			Sources: []SymbolSource{
				{Name: "nasdaq_listed", URL: nasdaqListedURL},
				{Name: "other_listed", URL: otherListedURL},
			},
			FooterPrefix: "File Creation",
			TimeoutSec:   15,
		},
		Enrichment: EnrichmentConfig{
			URL:          quoteSummaryURL,
			TimeoutSec:   15,
			FloatFields:  []string{"floatShares", "sharesFloat", "float", "sharesOutstanding"},
			StringFields: []string{"floatShares", "sharesOutstanding"},
		},
		Eligibility: EligibilityConfig{
			URL:        instrumentsURL,
			TimeoutSec: 6,
			MinWorkers: 4,
		},
		Runner: RunnerConfig{
			MaxWorkers:          8,
			ProgressIntervalSec: 5,
		},
		Report: ReportConfig{
			Cutoff:      10_000_000,
			Output:      "low_float.csv",
			ConsoleRows: 100,
		},
		Logging: LoggingConfig{Level: "info", Format: "text", Output: "stdout"},
	}
}

// LoadConfig reads the configuration file at path, falling back to Default
// when the file does not exist in a development environment. Environment
// variables override S3 credentials.
func LoadConfig(path string) (*Config, error) {
	path = resolveEnvSpecificPath(path, defaultConfigPath, envConfigPaths)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !IsProductionLike(AppEnvironment()) {
			cfg := Default()
			if err := validateConfig(cfg); err != nil {
				return nil, fmt.Errorf("configuration validation failed: %w", err)
			}
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := *Default()
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Override S3 settings from environment variables if available
	if config.Storage.S3.Enabled {
		if v := os.Getenv("AWS_ACCESS_KEY_ID"); v != "" {
			config.Storage.S3.AccessKeyID = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_SECRET_ACCESS_KEY"); v != "" {
			config.Storage.S3.SecretAccessKey = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_REGION"); v != "" {
			config.Storage.S3.Region = strings.TrimSpace(v)
		}
		if v := os.Getenv("S3_BUCKET"); v != "" {
			config.Storage.S3.Bucket = strings.TrimSpace(v)
		}
	}

	config.Storage.S3.Bucket = strings.TrimSpace(config.Storage.S3.Bucket)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

func validateConfig(cfg *Config) error {
	if cfg.Floatflow.Name == "" {
		return fmt.Errorf("floatflow.name is required")
	}
	if cfg.Floatflow.Version == "" {
		return fmt.Errorf("floatflow.version is required")
	}

	if len(cfg.Universe.Sources) == 0 {
		return fmt.Errorf("universe.sources must list at least one symbol directory")
	}
	for i, src := range cfg.Universe.Sources {
		if src.URL == "" {
			return fmt.Errorf("universe.sources[%d].url is required", i)
		}
	}
	if cfg.Universe.TimeoutSec <= 0 {
		return fmt.Errorf("universe.timeout_sec must be greater than 0")
	}
	if cfg.Universe.Limit < 0 {
		return fmt.Errorf("universe.limit must not be negative")
	}

	if cfg.Enrichment.URL == "" {
		return fmt.Errorf("enrichment.url is required")
	}
	if cfg.Enrichment.TimeoutSec <= 0 {
		return fmt.Errorf("enrichment.timeout_sec must be greater than 0")
	}
	if len(cfg.Enrichment.FloatFields) == 0 {
		return fmt.Errorf("enrichment.float_fields must list at least one field")
	}

	if cfg.Eligibility.Enabled {
		if cfg.Eligibility.URL == "" {
			return fmt.Errorf("eligibility.url is required when eligibility is enabled")
		}
		if cfg.Eligibility.TimeoutSec <= 0 {
			return fmt.Errorf("eligibility.timeout_sec must be greater than 0")
		}
	}

	if cfg.Runner.MaxWorkers <= 0 {
		return fmt.Errorf("runner.max_workers must be greater than 0")
	}

	if cfg.Report.Cutoff <= 0 {
		return fmt.Errorf("report.cutoff must be greater than 0")
	}
	if cfg.Report.Output == "" {
		return fmt.Errorf("report.output is required")
	}
	if cfg.Report.Parquet.Enabled && cfg.Report.Parquet.Output == "" {
		return fmt.Errorf("report.parquet.output is required when parquet output is enabled")
	}

	if cfg.Storage.S3.Enabled {
		if cfg.Storage.S3.Bucket == "" {
			return fmt.Errorf("storage.s3.bucket is required when S3 is enabled")
		}
		if cfg.Storage.S3.Region == "" {
			return fmt.Errorf("storage.s3.region is required when S3 is enabled")
		}
		if !isValidS3Bucket(cfg.Storage.S3.Bucket) {
			return fmt.Errorf("storage.s3.bucket '%s' is invalid", cfg.Storage.S3.Bucket)
		}
	}

	return nil
}

var s3BucketRegexp = regexp.MustCompile(`^[a-z0-9][a-z0-9.-]{1,61}[a-z0-9]$`)

func isValidS3Bucket(name string) bool {
	if len(name) < 3 || len(name) > 63 {
		return false
	}
	if strings.Contains(name, "..") || strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".") {
		return false
	}
	return s3BucketRegexp.MatchString(name)
}
