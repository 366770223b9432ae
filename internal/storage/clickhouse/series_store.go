package clickhouse

import (
	"context"
	"fmt"

	"github.com/marescialloNino/dex-analyzer/internal/domain"
	"github.com/marescialloNino/dex-analyzer/internal/storage"
)

// SeriesStore implements storage.SeriesStore using ClickHouse.
// Table: price_points, ordered by (pool_id, interval_seconds, timestamp_ms).
type SeriesStore struct {
	conn *Conn
}

// NewSeriesStore creates a new SeriesStore.
func NewSeriesStore(conn *Conn) *SeriesStore {
	return &SeriesStore{conn: conn}
}

// Compile-time interface check.
var _ storage.SeriesStore = (*SeriesStore)(nil)

// InsertPoints adds price points. Fails entire batch on duplicate
// (pool_id, interval_seconds, timestamp_ms).
//
// ClickHouse MergeTree does not enforce uniqueness at insert time, so
// duplicates are checked explicitly before the batch is sent.
func (s *SeriesStore) InsertPoints(ctx context.Context, poolID string, intervalSeconds int, points []domain.PricePoint) error {
	if poolID == "" || intervalSeconds <= 0 {
		return storage.ErrInvalidInput
	}
	if len(points) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	seen := make(map[int64]struct{}, len(points))
	for _, p := range points {
		if _, exists := seen[p.TimestampMs]; exists {
			return storage.ErrDuplicateKey
		}
		seen[p.TimestampMs] = struct{}{}
	}

	// Check for duplicates against existing rows
	for _, p := range points {
		exists, err := s.exists(ctx, poolID, intervalSeconds, p.TimestampMs)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO price_points (pool_id, interval_seconds, timestamp_ms, price)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, p := range points {
		if err := batch.Append(poolID, int32(intervalSeconds), p.TimestampMs, p.Price); err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// exists checks whether a point already exists for the exact key.
func (s *SeriesStore) exists(ctx context.Context, poolID string, intervalSeconds int, timestampMs int64) (bool, error) {
	var count uint64
	err := s.conn.QueryRow(ctx, `
		SELECT count()
		FROM price_points
		WHERE pool_id = ? AND interval_seconds = ? AND timestamp_ms = ?
	`, poolID, int32(intervalSeconds), timestampMs).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetRange retrieves points within [startMs, endMs], ordered by timestamp ASC.
func (s *SeriesStore) GetRange(ctx context.Context, poolID string, intervalSeconds int, startMs, endMs int64) ([]domain.PricePoint, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT timestamp_ms, price
		FROM price_points
		WHERE pool_id = ? AND interval_seconds = ? AND timestamp_ms >= ? AND timestamp_ms <= ?
		ORDER BY timestamp_ms ASC
	`, poolID, int32(intervalSeconds), startMs, endMs)
	if err != nil {
		return nil, fmt.Errorf("query price points: %w", err)
	}
	defer rows.Close()

	var out []domain.PricePoint
	for rows.Next() {
		var p domain.PricePoint
		if err := rows.Scan(&p.TimestampMs, &p.Price); err != nil {
			return nil, fmt.Errorf("scan price point: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate price points: %w", err)
	}
	return out, nil
}
