package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/marescialloNino/dex-analyzer/internal/domain"
)

const solMint = "So11111111111111111111111111111111111111112"

func TestCoinGeckoClient_FetchSeries_MapsMintViaCoinList(t *testing.T) {
	var listCalls, ohlcCalls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("x-cg-demo-api-key"); got != "demo-key" {
			t.Errorf("missing demo api key header, got %q", got)
		}
		switch r.URL.Path {
		case "/coins/list":
			listCalls++
			if got := r.URL.Query().Get("include_platform"); got != "true" {
				t.Errorf("include_platform = %q, want true", got)
			}
			fmt.Fprint(w, `[
				{"id": "wrapped-sol-custom", "platforms": {"solana": "So11111111111111111111111111111111111111112"}},
				{"id": "some-eth-token", "platforms": {"ethereum": "0xabc"}}
			]`)
		case "/coins/wrapped-sol-custom/ohlc":
			ohlcCalls++
			if got := r.URL.Query().Get("vs_currency"); got != "usd" {
				t.Errorf("vs_currency = %q, want usd", got)
			}
			if got := r.URL.Query().Get("days"); got != "1" {
				t.Errorf("days = %q, want 1", got)
			}
			// [timestamp_ms, open, high, low, close], newest outside window last
			fmt.Fprint(w, `[
				[1800000, 1.0, 1.1, 0.9, 1.05],
				[3600000, 1.05, 1.2, 1.0, 1.15],
				[7200000, 1.15, 1.3, 1.1, 1.25],
				[90000000, 9.0, 9.0, 9.0, 9.0]
			]`)
		default:
			t.Errorf("unexpected path %q", r.URL.Path)
		}
	}))
	defer srv.Close()

	client := NewCoinGeckoClient("demo-key").WithBaseURL(srv.URL)
	pool := domain.Pool{PoolID: solMint, Chain: domain.ChainSolana, BaseAsset: "SOL"}
	req := Request{IntervalSeconds: 1800, StartMs: 0, EndMs: 7_200_000}

	series, err := client.FetchSeries(context.Background(), pool, req)
	if err != nil {
		t.Fatalf("FetchSeries failed: %v", err)
	}

	if len(series.Points) != 3 {
		t.Fatalf("expected 3 in-window points, got %d: %+v", len(series.Points), series.Points)
	}
	if series.Points[0].TimestampMs != 1_800_000 || series.Points[0].Price != 1.05 {
		t.Errorf("unexpected first point: %+v", series.Points[0])
	}
	if series.Points[2].TimestampMs != 7_200_000 || series.Points[2].Price != 1.25 {
		t.Errorf("unexpected last point: %+v", series.Points[2])
	}

	// The coin list is fetched once; a second request reuses the mapping.
	if _, err := client.FetchSeries(context.Background(), pool, req); err != nil {
		t.Fatalf("second FetchSeries failed: %v", err)
	}
	if listCalls != 1 {
		t.Errorf("coin list fetched %d times, want 1", listCalls)
	}
	if ohlcCalls != 2 {
		t.Errorf("ohlc fetched %d times, want 2", ohlcCalls)
	}
}

func TestCoinGeckoClient_FetchSeries_BuiltinMappingWhenListUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/coins/list":
			http.Error(w, "rate limited", http.StatusTooManyRequests)
		case "/coins/solana/ohlc":
			fmt.Fprint(w, `[[3600000, 100, 101, 99, 100.5]]`)
		default:
			t.Errorf("unexpected path %q", r.URL.Path)
		}
	}))
	defer srv.Close()

	client := NewCoinGeckoClient("", WithMaxRetries(0)).WithBaseURL(srv.URL)
	pool := domain.Pool{PoolID: solMint, Chain: domain.ChainSolana, BaseAsset: "SOL"}

	series, err := client.FetchSeries(context.Background(), pool, Request{
		IntervalSeconds: 1800,
		StartMs:         0,
		EndMs:           7_200_000,
	})
	if err != nil {
		t.Fatalf("FetchSeries failed: %v", err)
	}
	if len(series.Points) != 1 || series.Points[0].Price != 100.5 {
		t.Fatalf("unexpected points: %+v", series.Points)
	}
}

func TestCoinGeckoClient_FetchSeries_UnknownMint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[]`)
	}))
	defer srv.Close()

	client := NewCoinGeckoClient("").WithBaseURL(srv.URL)
	pool := domain.Pool{PoolID: "UnknownMint111", Chain: domain.ChainSolana}

	_, err := client.FetchSeries(context.Background(), pool, Request{
		IntervalSeconds: 1800,
		StartMs:         0,
		EndMs:           3_600_000,
	})
	if err == nil {
		t.Fatal("expected error for unmapped mint")
	}
}

func TestCoinGeckoClient_FetchSeries_UnsupportedInterval(t *testing.T) {
	client := NewCoinGeckoClient("")
	pool := domain.Pool{PoolID: solMint, Chain: domain.ChainSolana}

	// 10 minutes is below the endpoint's finest granularity.
	_, err := client.FetchSeries(context.Background(), pool, Request{
		IntervalSeconds: 600,
		StartMs:         0,
		EndMs:           3_600_000,
	})
	if !errors.Is(err, ErrUnsupportedInterval) {
		t.Fatalf("expected ErrUnsupportedInterval, got %v", err)
	}

	// 30-minute candles are only served up to 2 days back.
	_, err = client.FetchSeries(context.Background(), pool, Request{
		IntervalSeconds: 1800,
		StartMs:         0,
		EndMs:           10 * 24 * 3_600_000,
	})
	if !errors.Is(err, ErrUnsupportedInterval) {
		t.Fatalf("expected ErrUnsupportedInterval for oversized window, got %v", err)
	}
}

func TestCoinGeckoClient_FetchSeries_NonSolanaChain(t *testing.T) {
	client := NewCoinGeckoClient("")
	pool := domain.Pool{PoolID: "0xabc", Chain: domain.ChainEthereum}

	_, err := client.FetchSeries(context.Background(), pool, Request{IntervalSeconds: 1800})
	if err == nil {
		t.Fatal("expected error for non-solana chain")
	}
}

func TestChooseDays(t *testing.T) {
	cases := []struct {
		spanDays, maxDays int
		want              int
		ok                bool
	}{
		{1, 2, 1, true},
		{2, 2, 2, true},
		{3, 2, 0, false},
		{3, 30, 7, true},
		{15, 30, 30, true},
		{31, 30, 0, false},
		{200, 365, 365, true},
		{400, 365, 0, false},
	}
	for _, tc := range cases {
		got, ok := chooseDays(tc.spanDays, tc.maxDays)
		if got != tc.want || ok != tc.ok {
			t.Errorf("chooseDays(%d, %d) = (%d, %v), want (%d, %v)",
				tc.spanDays, tc.maxDays, got, ok, tc.want, tc.ok)
		}
	}
}
