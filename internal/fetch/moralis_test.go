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

func TestMoralisClient_FetchSeries_CursorPagination(t *testing.T) {
	var pages []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-API-Key"); got != "test-key" {
			t.Errorf("missing api key header, got %q", got)
		}
		if got := r.URL.Query().Get("timeframe"); got != "10m" {
			t.Errorf("unexpected timeframe %q", got)
		}

		cursor := r.URL.Query().Get("cursor")
		pages = append(pages, cursor)
		switch cursor {
		case "":
			fmt.Fprint(w, `{
				"cursor": "next-page",
				"result": [
					{"timestamp": "1970-01-01T00:20:00Z", "open": 1.1, "high": 1.2, "low": 1.0, "close": 1.15, "volume": 900, "trades": 12},
					{"timestamp": "1970-01-01T00:10:00Z", "open": 1.0, "high": 1.1, "low": 0.9, "close": 1.05, "volume": 800, "trades": 10}
				]
			}`)
		case "next-page":
			fmt.Fprint(w, `{
				"cursor": "",
				"result": [
					{"timestamp": "1970-01-01T00:00:00Z", "open": 0.9, "high": 1.0, "low": 0.8, "close": 0.95, "volume": 700, "trades": 8}
				]
			}`)
		default:
			t.Errorf("unexpected cursor %q", cursor)
		}
	}))
	defer srv.Close()

	client := NewMoralisClient("test-key").WithBaseURL(srv.URL)
	pool := domain.Pool{PoolID: "pair-1", Chain: domain.ChainSolana, BaseAsset: "BONK"}

	series, err := client.FetchSeries(context.Background(), pool, Request{
		IntervalSeconds: 600,
		StartMs:         0,
		EndMs:           1_200_000,
	})
	if err != nil {
		t.Fatalf("FetchSeries failed: %v", err)
	}

	if len(pages) != 2 {
		t.Fatalf("expected 2 pages, got %d", len(pages))
	}
	if len(series.Points) != 3 {
		t.Fatalf("expected 3 points, got %d", len(series.Points))
	}
	// Sorted ascending across pages
	if series.Points[0].TimestampMs != 0 || series.Points[0].Price != 0.95 {
		t.Errorf("unexpected first point: %+v", series.Points[0])
	}
	if series.Points[2].TimestampMs != 1_200_000 || series.Points[2].Price != 1.15 {
		t.Errorf("unexpected last point: %+v", series.Points[2])
	}
}

func TestMoralisClient_FetchSeries_NonSolanaChain(t *testing.T) {
	client := NewMoralisClient("test-key")
	pool := domain.Pool{PoolID: "0xabc", Chain: domain.ChainEthereum}

	_, err := client.FetchSeries(context.Background(), pool, Request{IntervalSeconds: 600})
	if err == nil {
		t.Fatal("expected error for non-solana chain")
	}
}

func TestMoralisClient_FetchSeries_UnsupportedInterval(t *testing.T) {
	client := NewMoralisClient("test-key")
	pool := domain.Pool{PoolID: "pair-1", Chain: domain.ChainSolana}

	_, err := client.FetchSeries(context.Background(), pool, Request{IntervalSeconds: 7})
	if !errors.Is(err, ErrUnsupportedInterval) {
		t.Fatalf("expected ErrUnsupportedInterval, got %v", err)
	}
}

func TestMoralisClient_FetchSeries_Empty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"cursor": "", "result": []}`)
	}))
	defer srv.Close()

	client := NewMoralisClient("test-key").WithBaseURL(srv.URL)
	pool := domain.Pool{PoolID: "pair-1", Chain: domain.ChainSolana}

	_, err := client.FetchSeries(context.Background(), pool, Request{
		IntervalSeconds: 600,
		StartMs:         0,
		EndMs:           1_200_000,
	})
	if !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
}
