// Package config loads pipeline configuration from YAML, with CLI flags
// layered on top by the commands.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/marescialloNino/dex-analyzer/internal/domain"
)

// Duration wraps time.Duration for YAML decoding of strings like "10m".
type Duration time.Duration

// UnmarshalYAML decodes a duration string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML encodes the duration as a string.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config is the full pipeline configuration.
type Config struct {
	// Chain and Dex select the market to analyze.
	Chain string `yaml:"chain"`
	Dex   string `yaml:"dex"`

	// Pools pins explicit pool addresses. Empty means discover pools.
	Pools []string `yaml:"pools"`

	// ReferenceAsset is the asset betas are estimated against.
	ReferenceAsset string `yaml:"reference_asset"`

	Window   WindowConfig   `yaml:"window"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Fetch    FetchConfig    `yaml:"fetch"`
	Cache    CacheConfig    `yaml:"cache"`
	Storage  StorageConfig  `yaml:"storage"`
	Output   OutputConfig   `yaml:"output"`

	// LogLevel is a zerolog level name (debug, info, warn, error).
	LogLevel string `yaml:"log_level"`
}

// WindowConfig bounds the analysis window. Explicit start/end timestamps
// (RFC 3339) win over the relative lookback.
type WindowConfig struct {
	Start    string   `yaml:"start"`
	End      string   `yaml:"end"`
	Lookback Duration `yaml:"lookback"`
}

// Resolve computes the [start, end] window in epoch milliseconds.
func (w WindowConfig) Resolve(now time.Time) (startMs, endMs int64, err error) {
	end := now
	if w.End != "" {
		end, err = time.Parse(time.RFC3339, w.End)
		if err != nil {
			return 0, 0, fmt.Errorf("parse window end: %w", err)
		}
	}

	if w.Start != "" {
		start, err := time.Parse(time.RFC3339, w.Start)
		if err != nil {
			return 0, 0, fmt.Errorf("parse window start: %w", err)
		}
		return start.UnixMilli(), end.UnixMilli(), nil
	}

	lookback := w.Lookback.Std()
	if lookback <= 0 {
		lookback = 7 * 24 * time.Hour
	}
	return end.Add(-lookback).UnixMilli(), end.UnixMilli(), nil
}

// AnalysisConfig holds the alignment and estimation parameters.
type AnalysisConfig struct {
	Resolution       Duration `yaml:"resolution"`
	OverlapThreshold float64  `yaml:"overlap_threshold"`
	MinimumSamples   int      `yaml:"minimum_samples"`
}

// FetchConfig selects and tunes the price source.
type FetchConfig struct {
	// Provider is one of "geckoterminal", "moralis", "coingecko".
	Provider        string   `yaml:"provider"`
	MoralisAPIKey   string   `yaml:"moralis_api_key"`
	CoinGeckoAPIKey string   `yaml:"coingecko_api_key"`
	Workers         int      `yaml:"workers"`
	PoolTimeout     Duration `yaml:"pool_timeout"`

	// Discovery filters, applied when Pools is empty.
	MinTVL         float64 `yaml:"min_tvl"`
	ExcludePivots  bool    `yaml:"exclude_pivots"`
	ExcludeStables bool    `yaml:"exclude_stables"`

	// ValidateAddresses rejects malformed Solana pool ids before fetching.
	ValidateAddresses bool `yaml:"validate_addresses"`
}

// CacheConfig enables the Redis read-through series cache.
type CacheConfig struct {
	Enabled  bool     `yaml:"enabled"`
	Addr     string   `yaml:"addr"`
	Password string   `yaml:"password"`
	DB       int      `yaml:"db"`
	TTL      Duration `yaml:"ttl"`
}

// StorageConfig points at optional persistent backends. Empty DSNs fall
// back to in-memory stores.
type StorageConfig struct {
	PostgresDSN   string `yaml:"postgres_dsn"`
	ClickhouseDSN string `yaml:"clickhouse_dsn"`
}

// OutputConfig controls report rendering.
type OutputConfig struct {
	// Path is the output file; empty writes to stdout.
	Path string `yaml:"path"`
	// Format is one of "json", "csv", "markdown".
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Chain:          domain.ChainSolana.String(),
		Dex:            domain.DexRaydium.String(),
		ReferenceAsset: "SOL",
		Window: WindowConfig{
			Lookback: Duration(7 * 24 * time.Hour),
		},
		Analysis: AnalysisConfig{
			Resolution:       Duration(10 * time.Minute),
			OverlapThreshold: 0.6,
			MinimumSamples:   30,
		},
		Fetch: FetchConfig{
			Provider:    "geckoterminal",
			Workers:     4,
			PoolTimeout: Duration(60 * time.Second),
		},
		Cache: CacheConfig{
			Addr: "localhost:6379",
			TTL:  Duration(time.Hour),
		},
		Output: OutputConfig{
			Format: "json",
		},
		LogLevel: "info",
	}
}

// Load reads a YAML file over the defaults. An empty path returns defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config YAML: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	if !domain.Chain(c.Chain).IsValid() {
		return fmt.Errorf("invalid chain %q", c.Chain)
	}
	if c.ReferenceAsset == "" {
		return fmt.Errorf("reference_asset is required")
	}
	if c.Analysis.Resolution.Std() <= 0 {
		return fmt.Errorf("analysis.resolution must be positive")
	}
	if c.Analysis.OverlapThreshold < 0 || c.Analysis.OverlapThreshold > 1 {
		return fmt.Errorf("analysis.overlap_threshold must be in [0, 1]")
	}
	if c.Analysis.MinimumSamples < 2 {
		return fmt.Errorf("analysis.minimum_samples must be at least 2")
	}
	switch c.Fetch.Provider {
	case "geckoterminal", "moralis", "coingecko":
	default:
		return fmt.Errorf("unknown fetch provider %q", c.Fetch.Provider)
	}
	if c.Fetch.Provider == "moralis" && c.Fetch.MoralisAPIKey == "" {
		return fmt.Errorf("fetch.moralis_api_key is required for the moralis provider")
	}
	switch c.Output.Format {
	case "json", "csv", "markdown":
	default:
		return fmt.Errorf("unknown output format %q", c.Output.Format)
	}
	return nil
}
