// Package main provides the pool discovery entry point.
// Lists liquidity pools for a chain/dex pair, with TVL and symbol filters.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/marescialloNino/dex-analyzer/internal/domain"
	"github.com/marescialloNino/dex-analyzer/internal/fetch"
	"github.com/marescialloNino/dex-analyzer/internal/storage/migrations"
	"github.com/marescialloNino/dex-analyzer/internal/storage/postgres"
)

var (
	flagChain        string
	flagDex          string
	flagMinTVL       float64
	flagNoPivots     bool
	flagNoStables    bool
	flagUtilityPairs bool
	flagFormat       string
	flagTimeout      time.Duration
	flagPostgresDSN  string
)

var rootCmd = &cobra.Command{
	Use:   "pools",
	Short: "Discover DEX liquidity pools",
	Long: `pools lists liquidity pools on a chain/dex pair via GeckoTerminal,
applying TVL and symbol filters, and optionally persists them to the pool
registry for later analysis runs.

Example usage:
  pools --chain solana --dex raydium --min-tvl 100000
  pools --chain eth --dex uniswap_v3 --no-stables --format json
  pools --chain solana --dex meteora --postgres-dsn postgres://...`,
	RunE:          run,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	flags := rootCmd.Flags()
	flags.StringVar(&flagChain, "chain", "solana", "Chain to discover on (solana, eth)")
	flags.StringVar(&flagDex, "dex", "raydium", "DEX to list pools for")
	flags.Float64Var(&flagMinTVL, "min-tvl", 0, "Minimum pool TVL in USD")
	flags.BoolVar(&flagNoPivots, "no-pivots", false, "Exclude pools containing pivot tokens")
	flags.BoolVar(&flagNoStables, "no-stables", false, "Exclude pools containing stablecoins")
	flags.BoolVar(&flagUtilityPairs, "utility-pairs", false, "Only pools where both legs are pivot tokens")
	flags.StringVar(&flagFormat, "format", "table", "Output format: table, json")
	flags.DurationVar(&flagTimeout, "timeout", 2*time.Minute, "Overall discovery timeout")
	flags.StringVar(&flagPostgresDSN, "postgres-dsn", "", "Persist discovered pools to this Postgres registry")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	chain := domain.Chain(flagChain)
	if !chain.IsValid() {
		return fmt.Errorf("invalid chain %q", flagChain)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), flagTimeout)
	defer cancel()

	client := fetch.NewGeckoTerminalClient()
	pools, err := client.DiscoverPools(ctx, fetch.PoolFilter{
		Chain:          chain,
		Dex:            domain.Dex(flagDex),
		MinTVL:         flagMinTVL,
		ExcludePivots:  flagNoPivots,
		ExcludeStables: flagNoStables,
		UtilityPairs:   flagUtilityPairs,
	})
	if err != nil {
		return err
	}
	if len(pools) == 0 {
		fmt.Println("No pools matched the filters.")
		return nil
	}

	if flagPostgresDSN != "" {
		if err := persistPools(ctx, pools); err != nil {
			return err
		}
	}

	switch flagFormat {
	case "json":
		data, err := json.MarshalIndent(pools, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal pools: %w", err)
		}
		fmt.Println(string(data))
	default:
		renderTable(pools)
	}
	return nil
}

// persistPools upserts the discovered pools into the Postgres registry.
func persistPools(ctx context.Context, pools []domain.Pool) error {
	pg, err := postgres.NewPool(ctx, flagPostgresDSN)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pg.Close()

	if err := migrations.RunPostgresMigrations(ctx, pg); err != nil {
		return fmt.Errorf("postgres migrations: %w", err)
	}

	store := postgres.NewPoolStore(pg)
	for _, p := range pools {
		if err := store.Upsert(ctx, p); err != nil {
			return fmt.Errorf("persist pool %s: %w", p.PoolID, err)
		}
	}
	log.Info().Int("pools", len(pools)).Msg("pool registry updated")
	return nil
}

func renderTable(pools []domain.Pool) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "POOL\tPAIR\tDEX\tTVL (USD)\tVOLUME 24H (USD)")
	for _, p := range pools {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.0f\t%.0f\n", p.PoolID, p.Label(), p.Dex, p.TVL, p.Volume24h)
	}
	w.Flush()
	fmt.Printf("\n%d pools\n", len(pools))
}
