package fetch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/marescialloNino/dex-analyzer/internal/storage"
	"github.com/marescialloNino/dex-analyzer/internal/storage/memory"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// tradeServer upgrades one connection, verifies the subscribe frame, and
// writes the given trades.
func tradeServer(t *testing.T, wantPool string, frames []Trade) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var req wsSubscribeRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			t.Errorf("unmarshal subscribe request: %v", err)
			return
		}
		if req.Op != "subscribe" {
			t.Errorf("expected op subscribe, got %q", req.Op)
		}
		if req.PoolID != wantPool {
			t.Errorf("expected pool %q, got %q", wantPool, req.PoolID)
		}

		for _, frame := range frames {
			if err := conn.WriteJSON(frame); err != nil {
				return
			}
		}

		// Keep the connection open until the client closes
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
}

func wsEndpoint(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestWSSource_Subscribe(t *testing.T) {
	server := tradeServer(t, "pool-1", []Trade{
		{PoolID: "pool-1", TimestampMs: 1000, Price: 1.5},
		{PoolID: "pool-other", TimestampMs: 1100, Price: 9.9},
		{PoolID: "pool-1", TimestampMs: 2000, Price: 1.6},
	})
	defer server.Close()

	src := NewWSSource(wsEndpoint(server), nil)
	defer src.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	trades, err := src.Subscribe(ctx, "pool-1")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	var got []Trade
	for len(got) < 2 {
		select {
		case trade, ok := <-trades:
			if !ok {
				t.Fatalf("stream closed after %d trades", len(got))
			}
			got = append(got, trade)
		case <-ctx.Done():
			t.Fatalf("timed out after %d trades", len(got))
		}
	}

	if got[0].Price != 1.5 || got[1].Price != 1.6 {
		t.Errorf("unexpected trades %+v, frames for other pools must be dropped", got)
	}
}

func TestWSSource_MaterializeBucketsTrades(t *testing.T) {
	// Two trades in the first one-second bucket, one in the next.
	server := tradeServer(t, "pool-1", []Trade{
		{PoolID: "pool-1", TimestampMs: 1000, Price: 1.0},
		{PoolID: "pool-1", TimestampMs: 1500, Price: 1.1},
		{PoolID: "pool-1", TimestampMs: 2200, Price: 2.0},
	})
	defer server.Close()

	src := NewWSSource(wsEndpoint(server), nil)
	store := memory.NewSeriesStore()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- src.Materialize(ctx, "pool-1", 1, store)
	}()

	// Let the stream drain, then close the source to end the run.
	time.Sleep(200 * time.Millisecond)
	src.Close()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Materialize: %v", err)
		}
	case <-ctx.Done():
		t.Fatal("Materialize did not finish")
	}

	points, err := store.GetRange(context.Background(), "pool-1", 1, 0, 10_000)
	if err != nil {
		t.Fatalf("GetRange: %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("expected 2 bucket points, got %d: %+v", len(points), points)
	}
	if points[0].TimestampMs != 1000 || points[0].Price != 1.1 {
		t.Errorf("first bucket = %+v, want last price 1.1 at 1000", points[0])
	}
	if points[1].TimestampMs != 2000 || points[1].Price != 2.0 {
		t.Errorf("second bucket = %+v, want price 2.0 at 2000", points[1])
	}
}

func TestWSSource_MaterializeInvalidInterval(t *testing.T) {
	src := NewWSSource("ws://unused", nil)
	err := src.Materialize(context.Background(), "pool-1", 0, memory.NewSeriesStore())
	if err != storage.ErrInvalidInput {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
