// Package main provides the analysis pipeline entry point.
// Executes: pool resolution → series fetch → alignment → correlation/beta → report.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/marescialloNino/dex-analyzer/internal/analytics"
	"github.com/marescialloNino/dex-analyzer/internal/config"
	"github.com/marescialloNino/dex-analyzer/internal/domain"
	"github.com/marescialloNino/dex-analyzer/internal/fetch"
	"github.com/marescialloNino/dex-analyzer/internal/observability"
	"github.com/marescialloNino/dex-analyzer/internal/pipeline"
	"github.com/marescialloNino/dex-analyzer/internal/reporting"
	"github.com/marescialloNino/dex-analyzer/internal/storage"
	"github.com/marescialloNino/dex-analyzer/internal/storage/clickhouse"
	"github.com/marescialloNino/dex-analyzer/internal/storage/memory"
	"github.com/marescialloNino/dex-analyzer/internal/storage/migrations"
	"github.com/marescialloNino/dex-analyzer/internal/storage/postgres"
	"github.com/marescialloNino/dex-analyzer/internal/storage/rediscache"
)

var (
	flagConfig      string
	flagChain       string
	flagDex         string
	flagPools       []string
	flagReference   string
	flagResolution  time.Duration
	flagThreshold   float64
	flagMinSamples  int
	flagLookback    time.Duration
	flagStart       string
	flagEnd         string
	flagProvider    string
	flagMinTVL      float64
	flagOutput      string
	flagFormat      string
	flagLogLevel    string
	flagMetricsAddr string
)

var rootCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Correlation and beta analytics over DEX pool price histories",
	Long: `analyze fetches price histories for a set of liquidity pools, aligns
them onto a shared time grid, and reports pairwise return correlations and
per-asset betas against a reference asset.

Example usage:
  analyze --chain solana --dex raydium --reference SOL
  analyze --pools pool1,pool2 --resolution 1h --format markdown
  analyze --config config.yaml --output report.json`,
	RunE:          run,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	flags := rootCmd.Flags()
	flags.StringVar(&flagConfig, "config", "", "Path to YAML configuration file")
	flags.StringVar(&flagChain, "chain", "", "Chain to analyze (solana, eth)")
	flags.StringVar(&flagDex, "dex", "", "DEX hosting the pools (raydium, meteora, orca, uniswap_v2, uniswap_v3)")
	flags.StringSliceVar(&flagPools, "pools", nil, "Explicit pool addresses (skips discovery)")
	flags.StringVar(&flagReference, "reference", "", "Reference asset for beta estimation")
	flags.DurationVar(&flagResolution, "resolution", 0, "Alignment grid resolution (e.g. 10m, 1h)")
	flags.Float64Var(&flagThreshold, "overlap-threshold", -1, "Minimum grid coverage fraction per asset [0, 1]")
	flags.IntVar(&flagMinSamples, "min-samples", 0, "Minimum overlapping returns for beta estimation")
	flags.DurationVar(&flagLookback, "lookback", 0, "Analysis window length ending now (e.g. 168h)")
	flags.StringVar(&flagStart, "start", "", "Window start (RFC 3339), overrides lookback")
	flags.StringVar(&flagEnd, "end", "", "Window end (RFC 3339), defaults to now")
	flags.StringVar(&flagProvider, "provider", "", "Price source: geckoterminal, moralis, or coingecko")
	flags.Float64Var(&flagMinTVL, "min-tvl", -1, "Discovery filter: minimum pool TVL in USD")
	flags.StringVar(&flagOutput, "output", "", "Output file path (default stdout)")
	flags.StringVar(&flagFormat, "format", "", "Output format: json, csv, markdown")
	flags.StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error")
	flags.StringVar(&flagMetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("parse log level: %w", err)
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Warn().Str("signal", sig.String()).Msg("cancelling run")
		cancel()
	}()

	if flagMetricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			if err := http.ListenAndServe(flagMetricsAddr, mux); err != nil {
				log.Error().Err(err).Msg("metrics server stopped")
			}
		}()
	}

	runner, cleanup, err := buildRunner(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	report, err := runner.Run(ctx)
	if err != nil {
		return err
	}

	if err := writeReport(report, cfg.Output); err != nil {
		return err
	}
	observability.DefaultMetrics.ReportsGenerated.Inc()
	return nil
}

// loadConfig reads the YAML file and layers explicitly set flags on top.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return config.Config{}, err
	}

	if flagChain != "" {
		cfg.Chain = flagChain
	}
	if flagDex != "" {
		cfg.Dex = flagDex
	}
	if len(flagPools) > 0 {
		cfg.Pools = flagPools
	}
	if flagReference != "" {
		cfg.ReferenceAsset = flagReference
	}
	if flagResolution > 0 {
		cfg.Analysis.Resolution = config.Duration(flagResolution)
	}
	if flagThreshold >= 0 {
		cfg.Analysis.OverlapThreshold = flagThreshold
	}
	if flagMinSamples > 0 {
		cfg.Analysis.MinimumSamples = flagMinSamples
	}
	if flagLookback > 0 {
		cfg.Window.Lookback = config.Duration(flagLookback)
	}
	if flagStart != "" {
		cfg.Window.Start = flagStart
	}
	if flagEnd != "" {
		cfg.Window.End = flagEnd
	}
	if flagProvider != "" {
		cfg.Fetch.Provider = flagProvider
	}
	if flagMinTVL >= 0 {
		cfg.Fetch.MinTVL = flagMinTVL
	}
	if flagOutput != "" {
		cfg.Output.Path = flagOutput
	}
	if flagFormat != "" {
		cfg.Output.Format = flagFormat
	}
	if flagLogLevel != "" {
		cfg.LogLevel = flagLogLevel
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// buildRunner wires sources, stores, and the pipeline from configuration.
// The returned cleanup closes any opened connections.
func buildRunner(ctx context.Context, cfg config.Config) (*pipeline.Runner, func(), error) {
	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	gecko := fetch.NewGeckoTerminalClient()

	var source fetch.PriceSource
	switch cfg.Fetch.Provider {
	case "moralis":
		source = fetch.NewMoralisClient(cfg.Fetch.MoralisAPIKey)
	case "coingecko":
		source = fetch.NewCoinGeckoClient(cfg.Fetch.CoinGeckoAPIKey)
	default:
		source = gecko
	}

	if cfg.Cache.Enabled {
		cached, err := rediscache.New(cfg.Cache.Addr, cfg.Cache.Password, cfg.Cache.DB, cfg.Cache.TTL.Std(), source)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("redis cache: %w", err)
		}
		cleanups = append(cleanups, func() { cached.Close() })
		source = cached
	}

	var seriesStore storage.SeriesStore = memory.NewSeriesStore()
	if cfg.Storage.ClickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.Storage.ClickhouseDSN)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
		}
		cleanups = append(cleanups, func() { conn.Close() })
		seriesStore = clickhouse.NewSeriesStore(conn)
	}

	var poolStore storage.PoolStore = memory.NewPoolStore()
	if cfg.Storage.PostgresDSN != "" {
		pool, err := postgres.NewPool(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("postgres: %w", err)
		}
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			pool.Close()
			cleanup()
			return nil, nil, fmt.Errorf("postgres migrations: %w", err)
		}
		cleanups = append(cleanups, pool.Close)
		poolStore = postgres.NewPoolStore(pool)
	}

	manager := fetch.NewManager(fetch.ManagerOptions{
		Source:            source,
		Cache:             seriesStore,
		Workers:           cfg.Fetch.Workers,
		PoolTimeout:       cfg.Fetch.PoolTimeout.Std(),
		ValidateAddresses: cfg.Fetch.ValidateAddresses,
	})

	startMs, endMs, err := cfg.Window.Resolve(time.Now().UTC())
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	runner := pipeline.NewRunner(pipeline.Options{
		Manager:    manager,
		Discoverer: gecko,
		PoolStore:  poolStore,
		Chain:      domain.Chain(cfg.Chain),
		Dex:        domain.Dex(cfg.Dex),
		Pools:      cfg.Pools,
		Filter: fetch.PoolFilter{
			MinTVL:         cfg.Fetch.MinTVL,
			ExcludePivots:  cfg.Fetch.ExcludePivots,
			ExcludeStables: cfg.Fetch.ExcludeStables,
		},
		Request: fetch.Request{
			IntervalSeconds: int(cfg.Analysis.Resolution.Std().Seconds()),
			StartMs:         startMs,
			EndMs:           endMs,
		},
		AnalysisConfig: analytics.Config{
			ReferenceAsset:   cfg.ReferenceAsset,
			Resolution:       cfg.Analysis.Resolution.Std(),
			OverlapThreshold: cfg.Analysis.OverlapThreshold,
			MinimumSamples:   cfg.Analysis.MinimumSamples,
		},
	})

	return runner, cleanup, nil
}

// writeReport renders the report in the configured format.
func writeReport(report *domain.AnalysisReport, out config.OutputConfig) error {
	var rendered []byte
	switch out.Format {
	case "csv":
		rendered = []byte(reporting.RenderMatrixCSV(report) + "\n" + reporting.RenderBetaCSV(report))
	case "markdown":
		rendered = []byte(reporting.RenderMarkdown(report))
	default:
		data, err := reporting.MarshalReport(report)
		if err != nil {
			return fmt.Errorf("marshal report: %w", err)
		}
		rendered = data
	}

	if out.Path == "" {
		fmt.Println(string(rendered))
		return nil
	}
	if err := os.WriteFile(out.Path, rendered, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	log.Info().Str("path", out.Path).Msg("report written")
	return nil
}
