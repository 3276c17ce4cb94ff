// Package config loads backfill run configuration from YAML with
// environment-variable overrides.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML strings
// ("30s", "168h") and from environment variables.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// UnmarshalText implements encoding.TextUnmarshaler for env overrides.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config holds all settings for a backfill run.
type Config struct {
	// Input is the path to the assembly data report JSONL feed.
	Input string `yaml:"input" env:"BACKFILL_INPUT"`

	// Output is the path to the historical assemblies TSV.
	Output string `yaml:"output" env:"BACKFILL_OUTPUT"`

	// Checkpoint is the path to the checkpoint file. A ".db" extension
	// selects the SQLite store; anything else selects the JSON file store.
	Checkpoint string `yaml:"checkpoint" env:"BACKFILL_CHECKPOINT"`

	// CacheDir is the root of the on-disk caches. The discovery and
	// metadata stores live in separate subdirectories beneath it.
	CacheDir string `yaml:"cache_dir" env:"BACKFILL_CACHE_DIR"`

	// BatchSize is the number of root accessions processed between
	// checkpoint flushes.
	BatchSize int `yaml:"batch_size" env:"BACKFILL_BATCH_SIZE"`

	// FetchWorkers bounds concurrent metadata fetches within one root.
	FetchWorkers int `yaml:"fetch_workers" env:"BACKFILL_FETCH_WORKERS"`

	// RequestsPerSecond limits the aggregate rate of external calls.
	RequestsPerSecond float64 `yaml:"requests_per_second" env:"BACKFILL_REQUESTS_PER_SECOND"`

	// MaxAttempts caps retry attempts per external call.
	MaxAttempts int `yaml:"max_attempts" env:"BACKFILL_MAX_ATTEMPTS"`

	// DiscoveryTTL is how long cached version listings stay fresh.
	DiscoveryTTL Duration `yaml:"discovery_ttl" env:"BACKFILL_DISCOVERY_TTL"`

	// MetadataTTL is how long cached metadata payloads stay fresh.
	MetadataTTL Duration `yaml:"metadata_ttl" env:"BACKFILL_METADATA_TTL"`

	// DiscoveryBaseURL is the genomes directory listing endpoint.
	DiscoveryBaseURL string `yaml:"discovery_base_url" env:"BACKFILL_DISCOVERY_BASE_URL"`

	// MetadataBaseURL is the datasets report endpoint.
	MetadataBaseURL string `yaml:"metadata_base_url" env:"BACKFILL_METADATA_BASE_URL"`
}

// Default returns the standard configuration. Cache TTLs follow the
// upstream churn rates: directory listings a week, immutable superseded
// metadata a month.
func Default() Config {
	return Config{
		Checkpoint:        "tmp/backfill_checkpoint.json",
		CacheDir:          "tmp/backfill_cache",
		BatchSize:         100,
		FetchWorkers:      4,
		RequestsPerSecond: 3,
		MaxAttempts:       3,
		DiscoveryTTL:      Duration(7 * 24 * time.Hour),
		MetadataTTL:       Duration(30 * 24 * time.Hour),
		DiscoveryBaseURL:  "https://ftp.ncbi.nlm.nih.gov/genomes/all",
		MetadataBaseURL:   "https://api.ncbi.nlm.nih.gov/datasets/v2alpha",
	}
}

// Load reads configuration from a YAML file, applies environment-variable
// overrides, and validates the result. An empty path loads defaults and
// environment only.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration for values that would make a run
// misbehave silently.
func (c Config) Validate() error {
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be positive, got %d", c.BatchSize)
	}
	if c.FetchWorkers <= 0 {
		return fmt.Errorf("fetch_workers must be positive, got %d", c.FetchWorkers)
	}
	if c.RequestsPerSecond <= 0 {
		return fmt.Errorf("requests_per_second must be positive, got %g", c.RequestsPerSecond)
	}
	if c.MaxAttempts <= 0 {
		return fmt.Errorf("max_attempts must be positive, got %d", c.MaxAttempts)
	}
	if c.DiscoveryTTL <= 0 || c.MetadataTTL <= 0 {
		return fmt.Errorf("cache ttls must be positive")
	}
	return nil
}
