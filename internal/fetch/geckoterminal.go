package fetch

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/marescialloNino/dex-analyzer/internal/domain"
	"github.com/marescialloNino/dex-analyzer/internal/observability"
)

// DefaultGeckoBaseURL is the public GeckoTerminal API v2 endpoint.
const DefaultGeckoBaseURL = "https://api.geckoterminal.com/api/v2"

const (
	// geckoRateLimit is the public API allowance of 30 calls per minute.
	geckoRateLimit = 30
	// geckoMaxPages caps discovery pagination, per the API limit.
	geckoMaxPages = 10
	// geckoOHLCVLimit is the maximum bars returned per OHLCV call.
	geckoOHLCVLimit = 1000
)

// GeckoTerminalClient fetches pools and OHLCV history from GeckoTerminal.
// Requests are rate limited client-side and guarded by a circuit breaker.
type GeckoTerminalClient struct {
	baseURL  string
	opts     clientOptions
	limiter  *rate.Limiter
	breaker  *gobreaker.CircuitBreaker
	maxPages int
	log      zerolog.Logger
}

// NewGeckoTerminalClient creates a client against the public API.
func NewGeckoTerminalClient(opts ...ClientOption) *GeckoTerminalClient {
	o := defaultClientOptions()
	for _, opt := range opts {
		opt(&o)
	}

	settings := gobreaker.Settings{
		Name:    "geckoterminal",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}

	return &GeckoTerminalClient{
		baseURL:  DefaultGeckoBaseURL,
		opts:     o,
		limiter:  rate.NewLimiter(rate.Limit(float64(geckoRateLimit)/60.0), geckoRateLimit),
		breaker:  gobreaker.NewCircuitBreaker(settings),
		maxPages: geckoMaxPages,
		log:      log.With().Str("component", "geckoterminal").Logger(),
	}
}

// WithBaseURL points the client at a different endpoint. Used in tests.
func (c *GeckoTerminalClient) WithBaseURL(baseURL string) *GeckoTerminalClient {
	c.baseURL = baseURL
	return c
}

// Compile-time interface checks.
var (
	_ PriceSource    = (*GeckoTerminalClient)(nil)
	_ PoolDiscoverer = (*GeckoTerminalClient)(nil)
)

// get performs a rate-limited GET through the circuit breaker.
func (c *GeckoTerminalClient) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	rawURL := c.baseURL + path
	if len(query) > 0 {
		rawURL += "?" + query.Encode()
	}

	start := time.Now()
	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, getJSON(ctx, c.opts, rawURL, nil, out)
	})
	observability.RecordAPICall("geckoterminal", time.Since(start).Seconds())
	return err
}

// geckoPoolsResponse mirrors the JSON:API pool listing payload.
type geckoPoolsResponse struct {
	Data []struct {
		Attributes struct {
			Address      string `json:"address"`
			Name         string `json:"name"`
			ReserveInUSD string `json:"reserve_in_usd"`
			VolumeUSD    struct {
				H24 string `json:"h24"`
			} `json:"volume_usd"`
		} `json:"attributes"`
		Relationships struct {
			BaseToken struct {
				Data struct {
					ID string `json:"id"`
				} `json:"data"`
			} `json:"base_token"`
			QuoteToken struct {
				Data struct {
					ID string `json:"id"`
				} `json:"data"`
			} `json:"quote_token"`
		} `json:"relationships"`
	} `json:"data"`
}

// DiscoverPools lists pools for the filter's chain and dex, ordered by the
// API's h24 volume sort. Pagination stops at the first empty page.
func (c *GeckoTerminalClient) DiscoverPools(ctx context.Context, filter PoolFilter) ([]domain.Pool, error) {
	if !filter.Chain.IsValid() {
		return nil, fmt.Errorf("invalid chain %q", filter.Chain)
	}

	path := fmt.Sprintf("/networks/%s/dexes/%s/pools", filter.Chain, filter.Dex)

	var pools []domain.Pool
	for page := 1; page <= c.maxPages; page++ {
		query := url.Values{
			"include": {"base_token,quote_token"},
			"sort":    {"h24_volume_usd_desc"},
			"page":    {strconv.Itoa(page)},
		}

		var resp geckoPoolsResponse
		if err := c.get(ctx, path, query, &resp); err != nil {
			return nil, fmt.Errorf("discover pools page %d: %w", page, err)
		}
		if len(resp.Data) == 0 {
			break
		}

		for _, raw := range resp.Data {
			pool := domain.Pool{
				PoolID: raw.Attributes.Address,
				Chain:  filter.Chain,
				Dex:    filter.Dex,
			}
			pool.BaseAsset, pool.QuoteAsset = splitPairName(raw.Attributes.Name)
			pool.TVL = parseFloatField(raw.Attributes.ReserveInUSD)
			pool.Volume24h = parseFloatField(raw.Attributes.VolumeUSD.H24)

			if pool.PoolID == "" || !matchesFilter(pool, filter) {
				continue
			}
			pools = append(pools, pool)
		}
	}

	observability.RecordPoolsDiscovered(len(pools))
	c.log.Debug().
		Str("chain", filter.Chain.String()).
		Str("dex", filter.Dex.String()).
		Int("pools", len(pools)).
		Msg("pool discovery complete")
	return pools, nil
}

// geckoOHLCVResponse mirrors the OHLCV payload. Each list entry is
// [timestamp_sec, open, high, low, close, volume].
type geckoOHLCVResponse struct {
	Data struct {
		Attributes struct {
			OHLCVList [][]float64 `json:"ohlcv_list"`
		} `json:"attributes"`
	} `json:"data"`
}

// geckoTimeframes maps candle intervals to the API's timeframe/aggregate pairs.
var geckoTimeframes = map[int]struct {
	timeframe string
	aggregate int
}{
	60:    {"minute", 1},
	300:   {"minute", 5},
	900:   {"minute", 15},
	3600:  {"hour", 1},
	14400: {"hour", 4},
	43200: {"hour", 12},
	86400: {"day", 1},
}

// FetchSeries returns close prices for the pool within the request window.
// The API pages backwards from before_timestamp; fetching walks back until
// the window start is covered.
func (c *GeckoTerminalClient) FetchSeries(ctx context.Context, pool domain.Pool, req Request) (domain.PriceSeries, error) {
	tf, ok := geckoTimeframes[req.IntervalSeconds]
	if !ok {
		return domain.PriceSeries{}, fmt.Errorf("interval %ds: %w", req.IntervalSeconds, ErrUnsupportedInterval)
	}

	path := fmt.Sprintf("/networks/%s/pools/%s/ohlcv/%s", pool.Chain, pool.PoolID, tf.timeframe)
	startSec := req.StartMs / 1000
	before := req.EndMs/1000 + int64(req.IntervalSeconds)

	var points []domain.PricePoint
	for page := 0; page < c.maxPages; page++ {
		query := url.Values{
			"aggregate":        {strconv.Itoa(tf.aggregate)},
			"limit":            {strconv.Itoa(geckoOHLCVLimit)},
			"currency":         {"usd"},
			"before_timestamp": {strconv.FormatInt(before, 10)},
		}

		var resp geckoOHLCVResponse
		if err := c.get(ctx, path, query, &resp); err != nil {
			return domain.PriceSeries{}, fmt.Errorf("fetch ohlcv for %s: %w", pool.PoolID, err)
		}

		bars := resp.Data.Attributes.OHLCVList
		if len(bars) == 0 {
			break
		}

		oldest := before
		for _, bar := range bars {
			if len(bar) < 5 {
				continue
			}
			tsSec := int64(bar[0])
			if tsSec < oldest {
				oldest = tsSec
			}
			tsMs := tsSec * 1000
			if tsMs < req.StartMs || tsMs > req.EndMs {
				continue
			}
			points = append(points, domain.PricePoint{
				TimestampMs: tsMs,
				Price:       bar[4], // close
			})
		}

		if oldest <= startSec || len(bars) < geckoOHLCVLimit {
			break
		}
		before = oldest
	}

	if len(points) == 0 {
		return domain.PriceSeries{}, fmt.Errorf("pool %s: %w", pool.PoolID, ErrNoData)
	}

	sort.Slice(points, func(i, j int) bool { return points[i].TimestampMs < points[j].TimestampMs })
	return domain.PriceSeries{Pool: pool, Points: points}, nil
}

// splitPairName parses a "BASE / QUOTE" pool name into its leg symbols.
func splitPairName(name string) (base, quote string) {
	parts := strings.Split(name, "/")
	var symbols []string
	for _, part := range parts {
		if s := strings.TrimSpace(part); s != "" {
			symbols = append(symbols, s)
		}
	}
	if len(symbols) < 2 {
		return "UNKNOWN", "UNKNOWN"
	}
	return symbols[0], symbols[1]
}

// parseFloatField parses numeric strings the API serves, defaulting to 0.
func parseFloatField(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}
