package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/marescialloNino/dex-analyzer/internal/domain"
	"github.com/marescialloNino/dex-analyzer/internal/observability"
)

// DefaultMoralisBaseURL is the Moralis Solana gateway endpoint.
const DefaultMoralisBaseURL = "https://solana-gateway.moralis.io"

// moralisPageLimit is the bars-per-page limit used for cursor pagination.
const moralisPageLimit = 50

// moralisTimeframes maps candle intervals to the API's timeframe strings.
var moralisTimeframes = map[int]string{
	1:      "1s",
	10:     "10s",
	30:     "30s",
	60:     "1m",
	300:    "5m",
	600:    "10m",
	1800:   "30m",
	3600:   "1h",
	14400:  "4h",
	43200:  "12h",
	86400:  "1d",
	604800: "1w",
}

// MoralisClient fetches Solana pair OHLCV history from the Moralis gateway.
type MoralisClient struct {
	baseURL string
	apiKey  string
	opts    clientOptions
	log     zerolog.Logger
}

// NewMoralisClient creates a client authenticated with the given API key.
func NewMoralisClient(apiKey string, opts ...ClientOption) *MoralisClient {
	o := defaultClientOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &MoralisClient{
		baseURL: DefaultMoralisBaseURL,
		apiKey:  apiKey,
		opts:    o,
		log:     log.With().Str("component", "moralis").Logger(),
	}
}

// WithBaseURL points the client at a different endpoint. Used in tests.
func (c *MoralisClient) WithBaseURL(baseURL string) *MoralisClient {
	c.baseURL = baseURL
	return c
}

// Compile-time interface check.
var _ PriceSource = (*MoralisClient)(nil)

// moralisOHLCVResponse mirrors the paginated OHLCV payload.
type moralisOHLCVResponse struct {
	Cursor string `json:"cursor"`
	Result []struct {
		Timestamp string  `json:"timestamp"`
		Open      float64 `json:"open"`
		High      float64 `json:"high"`
		Low       float64 `json:"low"`
		Close     float64 `json:"close"`
		Volume    float64 `json:"volume"`
		Trades    int     `json:"trades"`
	} `json:"result"`
}

// FetchSeries returns close prices for a Solana pair within the request
// window, following the response cursor until the last page.
func (c *MoralisClient) FetchSeries(ctx context.Context, pool domain.Pool, req Request) (domain.PriceSeries, error) {
	if pool.Chain != domain.ChainSolana {
		return domain.PriceSeries{}, fmt.Errorf("moralis serves solana pairs only, got chain %q", pool.Chain)
	}
	timeframe, ok := moralisTimeframes[req.IntervalSeconds]
	if !ok {
		return domain.PriceSeries{}, fmt.Errorf("interval %ds: %w", req.IntervalSeconds, ErrUnsupportedInterval)
	}

	header := http.Header{}
	header.Set("X-API-Key", c.apiKey)

	var points []domain.PricePoint
	cursor := ""
	for page := 1; ; page++ {
		query := url.Values{
			"timeframe":    {timeframe},
			"baseCurrency": {"usd"},
			"fromDate":     {strconv.FormatInt(req.StartMs/1000, 10)},
			"toDate":       {strconv.FormatInt(req.EndMs/1000, 10)},
			"limit":        {strconv.Itoa(moralisPageLimit)},
		}
		if cursor != "" {
			query.Set("cursor", cursor)
		}

		rawURL := fmt.Sprintf("%s/token/mainnet/pairs/%s/ohlcv?%s", c.baseURL, pool.PoolID, query.Encode())

		start := time.Now()
		var resp moralisOHLCVResponse
		err := getJSON(ctx, c.opts, rawURL, header, &resp)
		observability.RecordAPICall("moralis", time.Since(start).Seconds())
		if err != nil {
			return domain.PriceSeries{}, fmt.Errorf("fetch ohlcv page %d for %s: %w", page, pool.PoolID, err)
		}
		if len(resp.Result) == 0 {
			break
		}

		for _, bar := range resp.Result {
			ts, err := time.Parse(time.RFC3339, bar.Timestamp)
			if err != nil {
				return domain.PriceSeries{}, fmt.Errorf("parse bar timestamp %q: %w", bar.Timestamp, err)
			}
			tsMs := ts.UnixMilli()
			if tsMs < req.StartMs || tsMs > req.EndMs {
				continue
			}
			points = append(points, domain.PricePoint{
				TimestampMs: tsMs,
				Price:       bar.Close,
			})
		}

		cursor = resp.Cursor
		if cursor == "" {
			break
		}
	}

	if len(points) == 0 {
		return domain.PriceSeries{}, fmt.Errorf("pool %s: %w", pool.PoolID, ErrNoData)
	}

	c.log.Debug().
		Str("pool", pool.PoolID).
		Int("points", len(points)).
		Msg("fetched ohlcv history")

	sort.Slice(points, func(i, j int) bool { return points[i].TimestampMs < points[j].TimestampMs })
	return domain.PriceSeries{Pool: pool, Points: points}, nil
}
