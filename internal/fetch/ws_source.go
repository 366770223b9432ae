package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/marescialloNino/dex-analyzer/internal/domain"
	"github.com/marescialloNino/dex-analyzer/internal/storage"
)

// WSConfig configures live trade stream behavior.
type WSConfig struct {
	// ReconnectDelay is initial delay before reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
	// HandshakeTimeout bounds the websocket dial.
	HandshakeTimeout time.Duration
}

// DefaultWSConfig returns default stream configuration.
func DefaultWSConfig() WSConfig {
	return WSConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		WriteTimeout:      10 * time.Second,
		HandshakeTimeout:  10 * time.Second,
	}
}

// Trade is one live swap print from the stream.
type Trade struct {
	PoolID      string  `json:"pool_id"`
	TimestampMs int64   `json:"timestamp_ms"`
	Price       float64 `json:"price"`
}

// wsSubscribeRequest is the subscription frame sent after connecting.
type wsSubscribeRequest struct {
	Op     string `json:"op"`
	PoolID string `json:"pool_id"`
}

// WSSource streams live trades for a pool over a websocket and can
// materialize them into interval price points for later batch analysis.
type WSSource struct {
	endpoint string
	config   WSConfig

	conn   *websocket.Conn
	connMu sync.Mutex
	closed atomic.Bool

	log zerolog.Logger
}

// NewWSSource creates a trade stream source for the endpoint. The
// connection is established on Subscribe.
func NewWSSource(endpoint string, config *WSConfig) *WSSource {
	cfg := DefaultWSConfig()
	if config != nil {
		cfg = *config
	}
	return &WSSource{
		endpoint: endpoint,
		config:   cfg,
		log:      log.With().Str("component", "ws-source").Logger(),
	}
}

// connect establishes the websocket connection and sends the subscription.
func (s *WSSource) connect(ctx context.Context, poolID string) error {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: s.config.HandshakeTimeout,
	}
	conn, _, err := dialer.DialContext(ctx, s.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	sub := wsSubscribeRequest{Op: "subscribe", PoolID: poolID}
	conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
	if err := conn.WriteJSON(sub); err != nil {
		conn.Close()
		return fmt.Errorf("subscribe to %s: %w", poolID, err)
	}

	s.conn = conn
	return nil
}

// Subscribe streams trades for the pool. The channel is closed when the
// context is cancelled or Close is called. Dropped connections are redialed
// with exponential backoff.
func (s *WSSource) Subscribe(ctx context.Context, poolID string) (<-chan Trade, error) {
	if err := s.connect(ctx, poolID); err != nil {
		return nil, err
	}

	trades := make(chan Trade, 100)
	go s.readLoop(ctx, poolID, trades)
	go s.pingLoop(ctx)

	return trades, nil
}

func (s *WSSource) readLoop(ctx context.Context, poolID string, trades chan<- Trade) {
	defer close(trades)

	delay := s.config.ReconnectDelay
	for {
		if ctx.Err() != nil || s.closed.Load() {
			return
		}

		s.connMu.Lock()
		conn := s.conn
		s.connMu.Unlock()

		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || s.closed.Load() {
				return
			}
			s.log.Warn().Err(err).Msg("stream read failed, reconnecting")

			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
			delay *= 2
			if delay > s.config.MaxReconnectDelay {
				delay = s.config.MaxReconnectDelay
			}

			if err := s.connect(ctx, poolID); err != nil {
				s.log.Warn().Err(err).Msg("reconnect failed")
			}
			continue
		}
		delay = s.config.ReconnectDelay

		var trade Trade
		if err := json.Unmarshal(msg, &trade); err != nil {
			s.log.Warn().Err(err).Msg("skipping malformed trade frame")
			continue
		}
		if trade.PoolID != "" && trade.PoolID != poolID {
			continue
		}

		select {
		case trades <- trade:
		case <-ctx.Done():
			return
		}
	}
}

func (s *WSSource) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(s.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.closed.Load() {
				return
			}
			s.connMu.Lock()
			conn := s.conn
			if conn != nil {
				conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					s.log.Warn().Err(err).Msg("ping failed")
				}
			}
			s.connMu.Unlock()
		}
	}
}

// Close tears down the connection and stops the loops.
func (s *WSSource) Close() error {
	s.closed.Store(true)
	s.connMu.Lock()
	defer s.connMu.Unlock()
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

// Materialize consumes the trade stream and persists one price point per
// interval bucket, using the last trade price observed in each bucket.
// Runs until the context is cancelled or the stream closes.
func (s *WSSource) Materialize(ctx context.Context, poolID string, intervalSeconds int, store storage.SeriesStore) error {
	if intervalSeconds <= 0 {
		return storage.ErrInvalidInput
	}

	trades, err := s.Subscribe(ctx, poolID)
	if err != nil {
		return err
	}

	intervalMs := int64(intervalSeconds) * 1000
	var (
		bucketStart int64 = -1
		lastPrice   float64
	)

	flush := func() error {
		if bucketStart < 0 {
			return nil
		}
		point := domain.PricePoint{TimestampMs: bucketStart, Price: lastPrice}
		err := store.InsertPoints(ctx, poolID, intervalSeconds, []domain.PricePoint{point})
		if err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
			return fmt.Errorf("persist bucket %d: %w", bucketStart, err)
		}
		return nil
	}

	for trade := range trades {
		bucket := trade.TimestampMs / intervalMs * intervalMs
		if bucketStart >= 0 && bucket != bucketStart {
			if err := flush(); err != nil {
				return err
			}
		}
		bucketStart = bucket
		lastPrice = trade.Price
	}

	// Stream closed; persist the partial bucket with a fresh context so
	// cancellation does not lose the last trades.
	if bucketStart >= 0 {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		point := domain.PricePoint{TimestampMs: bucketStart, Price: lastPrice}
		err := store.InsertPoints(flushCtx, poolID, intervalSeconds, []domain.PricePoint{point})
		if err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
			return fmt.Errorf("persist final bucket %d: %w", bucketStart, err)
		}
	}

	return ctx.Err()
}
