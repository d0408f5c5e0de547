// Package config assembles the runtime configuration once at process entry.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Storage and sink backend selectors.
const (
	StateBackendLocal    = "local"
	StateBackendPostgres = "postgres"

	SinkBackendParquet = "parquet"
	SinkBackendDuckDB  = "duckdb"
)

// Config is passed explicitly to every component at construction.
type Config struct {
	// UserAgent identifies the caller to the SEC. Their fair access policy
	// requires a company name and a contact e-mail.
	UserAgent string `yaml:"user_agent"`

	SECBaseURL  string `yaml:"sec_base_url"`
	DataBaseURL string `yaml:"data_base_url"`

	RequestsPerSecond float64       `yaml:"requests_per_second"`
	RequestTimeout    time.Duration `yaml:"request_timeout"`
	MaxRetries        int           `yaml:"max_retries"`

	DataDir      string `yaml:"data_dir"`
	StateBackend string `yaml:"state_backend"`
	DatabaseURL  string `yaml:"database_url"`
	SinkBackend  string `yaml:"sink_backend"`
	DuckDBPath   string `yaml:"duckdb_path"`

	BatchSize int     `yaml:"batch_size"`
	MinRows   MinRows `yaml:"min_rows"`

	Port        string `yaml:"port"`
	LogLevel    string `yaml:"log_level"`
	Environment string `yaml:"environment"`
	RunID       string `yaml:"run_id"`
}

// MinRows holds the minimum published row count per dataset for full runs.
type MinRows struct {
	Companies int `yaml:"companies"`
	Filings   int `yaml:"filings"`
	Facts     int `yaml:"facts"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		SECBaseURL:        "https://www.sec.gov",
		DataBaseURL:       "https://data.sec.gov",
		RequestsPerSecond: 10,
		RequestTimeout:    60 * time.Second,
		MaxRetries:        3,
		DataDir:           "data",
		StateBackend:      StateBackendLocal,
		SinkBackend:       SinkBackendParquet,
		BatchSize:         500,
		MinRows: MinRows{
			Companies: 5000,
			Filings:   100000,
			Facts:     100000,
		},
		Port:        "8080",
		LogLevel:    "info",
		Environment: "development",
	}
}

// Load builds the configuration from defaults, an optional YAML file and the
// process environment, in that order of precedence.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if cfg.RunID == "" {
		cfg.RunID = uuid.NewString()
	}
	if cfg.DuckDBPath == "" {
		cfg.DuckDBPath = cfg.DataDir + "/edgar.duckdb"
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strVars := map[string]*string{
		"SEC_USER_AGENT": &c.UserAgent,
		"SEC_BASE_URL":   &c.SECBaseURL,
		"DATA_BASE_URL":  &c.DataBaseURL,
		"DATA_DIR":       &c.DataDir,
		"STATE_BACKEND":  &c.StateBackend,
		"DATABASE_URL":   &c.DatabaseURL,
		"SINK_BACKEND":   &c.SinkBackend,
		"DUCKDB_PATH":    &c.DuckDBPath,
		"PORT":           &c.Port,
		"LOG_LEVEL":      &c.LogLevel,
		"ENVIRONMENT":    &c.Environment,
		"RUN_ID":         &c.RunID,
	}
	for name, dst := range strVars {
		if v, ok := lookup(name); ok && v != "" {
			*dst = v
		}
	}

	if v, ok := lookup("BATCH_SIZE"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid BATCH_SIZE %q: %w", v, err)
		}
		c.BatchSize = n
	}
	if v, ok := lookup("REQUESTS_PER_SECOND"); ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid REQUESTS_PER_SECOND %q: %w", v, err)
		}
		c.RequestsPerSecond = f
	}
	return nil
}

// Validate checks the configuration for values no component can work with.
func (c *Config) Validate() error {
	var errs []error

	if err := ValidateUserAgent(c.UserAgent); err != nil {
		errs = append(errs, err)
	}

	switch c.StateBackend {
	case StateBackendLocal:
	case StateBackendPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres state backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown state backend %q", c.StateBackend))
	}

	switch c.SinkBackend {
	case SinkBackendParquet, SinkBackendDuckDB:
	default:
		errs = append(errs, fmt.Errorf("unknown sink backend %q", c.SinkBackend))
	}

	if c.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("batch size must be positive, got %d", c.BatchSize))
	}
	if c.RequestsPerSecond <= 0 {
		errs = append(errs, fmt.Errorf("requests per second must be positive, got %v", c.RequestsPerSecond))
	}
	if c.DataDir == "" {
		errs = append(errs, errors.New("data dir is required"))
	}

	return errors.Join(errs...)
}

// ValidateUserAgent enforces the SEC requirement of a contact e-mail in the
// User-Agent header.
func ValidateUserAgent(ua string) error {
	ua = strings.TrimSpace(ua)
	if ua == "" {
		return errors.New("SEC_USER_AGENT is required (format: CompanyName/Version (contact@example.com))")
	}
	if !strings.Contains(ua, "@") {
		return fmt.Errorf("SEC_USER_AGENT %q must contain a contact e-mail", ua)
	}
	return nil
}
