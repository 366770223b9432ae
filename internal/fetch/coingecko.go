package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/marescialloNino/dex-analyzer/internal/domain"
	"github.com/marescialloNino/dex-analyzer/internal/observability"
)

// DefaultCoinGeckoBaseURL is the public CoinGecko API v3 endpoint.
const DefaultCoinGeckoBaseURL = "https://api.coingecko.com/api/v3"

const msPerDay = int64(24 * time.Hour / time.Millisecond)

// coinGeckoDays are the window sizes the OHLC endpoint accepts.
var coinGeckoDays = []int{1, 2, 7, 14, 30, 90, 180, 365}

// coinGeckoIntervals maps candle intervals to the largest window the API
// still serves them at: 30-minute candles up to 2 days, 4-hour candles
// up to 30 days, 4-day candles beyond.
var coinGeckoIntervals = map[int]int{
	1800:   2,
	14400:  30,
	345600: 365,
}

// coinGeckoBuiltinMints seeds the mint→id mapping for key Solana tokens,
// used when the coin list endpoint is unavailable.
var coinGeckoBuiltinMints = map[string]string{
	"So11111111111111111111111111111111111111112":  "solana",
	"JUPyiwrYJFskUPiHa7hkeR8VUtAeFoSYbKedZNsDvCN":  "jupiter-exchange-solana",
	"J1toso1uCk3RLmjorhTtrVwY9HJ7X8V9yYac6Y7kGCPn": "jito-staked-sol",
	"mSoLzYCxHdYgdzU16g5QSh3i5K3z3KZK7ytfqcJm7So":  "marinade-staked-sol",
	"bSo13r4TkiE4KumL71LsHTPpL2euBYLFx6h9HP3piy1":  "blaze-staked-sol",
	"cbbtcf3aa214zXHbiAZQwf4122FBYbraNdFqgw4iMij":  "coinbase-wrapped-btc",
	"3NZ9JMVBmGAqocybic2c7LQCJScmgsAZ6vQqTDzcqmJh": "wrapped-btc-wormhole",
}

// CoinGeckoClient fetches token OHLC history from CoinGecko. Unlike the
// pool-addressed providers, CoinGecko is token-addressed: the pool id is
// interpreted as the token's Solana mint and resolved to a CoinGecko
// coin id via the platform coin list. The OHLC endpoint anchors windows
// at the present, so requests should end at or near now.
type CoinGeckoClient struct {
	baseURL string
	apiKey  string
	opts    clientOptions
	log     zerolog.Logger

	mu         sync.Mutex
	ids        map[string]string
	listLoaded bool
}

// NewCoinGeckoClient creates a client against the free-tier API. The key
// is optional; when set it is sent as the demo API key header.
func NewCoinGeckoClient(apiKey string, opts ...ClientOption) *CoinGeckoClient {
	o := defaultClientOptions()
	for _, opt := range opts {
		opt(&o)
	}

	ids := make(map[string]string, len(coinGeckoBuiltinMints))
	for mint, id := range coinGeckoBuiltinMints {
		ids[mint] = id
	}

	return &CoinGeckoClient{
		baseURL: DefaultCoinGeckoBaseURL,
		apiKey:  apiKey,
		opts:    o,
		ids:     ids,
		log:     log.With().Str("component", "coingecko").Logger(),
	}
}

// WithBaseURL points the client at a different endpoint. Used in tests.
func (c *CoinGeckoClient) WithBaseURL(baseURL string) *CoinGeckoClient {
	c.baseURL = baseURL
	return c
}

// Compile-time interface check.
var _ PriceSource = (*CoinGeckoClient)(nil)

func (c *CoinGeckoClient) header() http.Header {
	h := http.Header{}
	h.Set("Accept", "application/json")
	if c.apiKey != "" {
		h.Set("x-cg-demo-api-key", c.apiKey)
	}
	return h
}

// coinGeckoCoin is one coin list entry with its per-platform addresses.
type coinGeckoCoin struct {
	ID        string            `json:"id"`
	Platforms map[string]string `json:"platforms"`
}

// loadCoinList fills the mint→id mapping from the platform coin list.
// Attempted once per client; a failure keeps the builtin mapping.
func (c *CoinGeckoClient) loadCoinList(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.listLoaded {
		return
	}
	c.listLoaded = true

	rawURL := c.baseURL + "/coins/list?include_platform=true"
	start := time.Now()
	var coins []coinGeckoCoin
	err := getJSON(ctx, c.opts, rawURL, c.header(), &coins)
	observability.RecordAPICall("coingecko", time.Since(start).Seconds())
	if err != nil {
		c.log.Warn().Err(err).Msg("coin list fetch failed, keeping builtin mint mapping")
		return
	}

	for _, coin := range coins {
		if mint := coin.Platforms["solana"]; mint != "" {
			c.ids[mint] = coin.ID
		}
	}
	c.log.Debug().Int("mints", len(c.ids)).Msg("mint mapping loaded")
}

// coinID resolves a Solana mint to its CoinGecko coin id.
func (c *CoinGeckoClient) coinID(mint string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id, ok := c.ids[mint]
	return id, ok
}

// chooseDays returns the smallest accepted window covering spanDays,
// capped by the interval's granularity limit. Returns false when no
// accepted window fits.
func chooseDays(spanDays, maxDays int) (int, bool) {
	for _, d := range coinGeckoDays {
		if d > maxDays {
			break
		}
		if d >= spanDays {
			return d, true
		}
	}
	return 0, false
}

// FetchSeries returns close prices for the token within the request
// window. The OHLC payload is [[timestamp_ms, open, high, low, close]].
func (c *CoinGeckoClient) FetchSeries(ctx context.Context, pool domain.Pool, req Request) (domain.PriceSeries, error) {
	if pool.Chain != domain.ChainSolana {
		return domain.PriceSeries{}, fmt.Errorf("coingecko mint mapping covers solana only, got chain %q", pool.Chain)
	}
	maxDays, ok := coinGeckoIntervals[req.IntervalSeconds]
	if !ok {
		return domain.PriceSeries{}, fmt.Errorf("interval %ds: %w", req.IntervalSeconds, ErrUnsupportedInterval)
	}

	spanDays := int((req.EndMs - req.StartMs + msPerDay - 1) / msPerDay)
	if spanDays < 1 {
		spanDays = 1
	}
	days, ok := chooseDays(spanDays, maxDays)
	if !ok {
		return domain.PriceSeries{}, fmt.Errorf("interval %ds over a %dd window: %w", req.IntervalSeconds, spanDays, ErrUnsupportedInterval)
	}

	c.loadCoinList(ctx)
	id, ok := c.coinID(pool.PoolID)
	if !ok {
		return domain.PriceSeries{}, fmt.Errorf("no coingecko id for mint %s", pool.PoolID)
	}

	query := url.Values{
		"vs_currency": {"usd"},
		"days":        {strconv.Itoa(days)},
	}
	rawURL := fmt.Sprintf("%s/coins/%s/ohlc?%s", c.baseURL, url.PathEscape(id), query.Encode())

	start := time.Now()
	var bars [][]float64
	err := getJSON(ctx, c.opts, rawURL, c.header(), &bars)
	observability.RecordAPICall("coingecko", time.Since(start).Seconds())
	if err != nil {
		return domain.PriceSeries{}, fmt.Errorf("fetch ohlc for %s: %w", id, err)
	}

	var points []domain.PricePoint
	for _, bar := range bars {
		if len(bar) < 5 {
			continue
		}
		tsMs := int64(bar[0])
		if tsMs < req.StartMs || tsMs > req.EndMs {
			continue
		}
		points = append(points, domain.PricePoint{
			TimestampMs: tsMs,
			Price:       bar[4], // close
		})
	}

	if len(points) == 0 {
		return domain.PriceSeries{}, fmt.Errorf("mint %s: %w", pool.PoolID, ErrNoData)
	}

	sort.Slice(points, func(i, j int) bool { return points[i].TimestampMs < points[j].TimestampMs })
	return domain.PriceSeries{Pool: pool, Points: points}, nil
}
