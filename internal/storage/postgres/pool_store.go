package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/marescialloNino/dex-analyzer/internal/domain"
	"github.com/marescialloNino/dex-analyzer/internal/storage"
)

// PoolStore implements storage.PoolStore using PostgreSQL.
type PoolStore struct {
	pool *Pool
}

// NewPoolStore creates a new PoolStore.
func NewPoolStore(pool *Pool) *PoolStore {
	return &PoolStore{pool: pool}
}

// Compile-time interface check.
var _ storage.PoolStore = (*PoolStore)(nil)

// Upsert inserts or refreshes a pool. TVL and volume figures from a
// newer discovery pass replace older ones.
func (s *PoolStore) Upsert(ctx context.Context, p domain.Pool) error {
	if p.PoolID == "" || !p.Chain.IsValid() {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO pools (
			pool_id, chain, dex, base_asset, quote_asset, tvl, volume_24h
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (pool_id) DO UPDATE SET
			chain = EXCLUDED.chain,
			dex = EXCLUDED.dex,
			base_asset = EXCLUDED.base_asset,
			quote_asset = EXCLUDED.quote_asset,
			tvl = EXCLUDED.tvl,
			volume_24h = EXCLUDED.volume_24h,
			updated_at = NOW()
	`

	_, err := s.pool.Exec(ctx, query,
		p.PoolID,
		string(p.Chain),
		string(p.Dex),
		p.BaseAsset,
		p.QuoteAsset,
		p.TVL,
		p.Volume24h,
	)
	if err != nil {
		return fmt.Errorf("upsert pool: %w", err)
	}
	return nil
}

// GetByID retrieves a pool by address. Returns ErrNotFound if not exists.
func (s *PoolStore) GetByID(ctx context.Context, poolID string) (domain.Pool, error) {
	query := `
		SELECT pool_id, chain, dex, base_asset, quote_asset, tvl, volume_24h
		FROM pools
		WHERE pool_id = $1
	`

	row := s.pool.QueryRow(ctx, query, poolID)
	p, err := scanPool(row)
	if err != nil {
		if isNotFoundError(err) {
			return domain.Pool{}, storage.ErrNotFound
		}
		return domain.Pool{}, fmt.Errorf("get pool by id: %w", err)
	}
	return p, nil
}

// List retrieves pools filtered by chain and dex, ordered by TVL descending.
// Empty dex matches all dexes on the chain.
func (s *PoolStore) List(ctx context.Context, chain domain.Chain, dex domain.Dex) ([]domain.Pool, error) {
	query := `
		SELECT pool_id, chain, dex, base_asset, quote_asset, tvl, volume_24h
		FROM pools
		WHERE chain = $1 AND ($2 = '' OR dex = $2)
		ORDER BY tvl DESC, pool_id ASC
	`

	rows, err := s.pool.Query(ctx, query, string(chain), string(dex))
	if err != nil {
		return nil, fmt.Errorf("list pools: %w", err)
	}
	defer rows.Close()

	var out []domain.Pool
	for rows.Next() {
		p, err := scanPool(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pool: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pools: %w", err)
	}
	return out, nil
}

// scanPool scans a single row into a Pool.
func scanPool(row pgx.Row) (domain.Pool, error) {
	var p domain.Pool
	var chain, dex string

	err := row.Scan(
		&p.PoolID,
		&chain,
		&dex,
		&p.BaseAsset,
		&p.QuoteAsset,
		&p.TVL,
		&p.Volume24h,
	)
	if err != nil {
		return domain.Pool{}, err
	}

	p.Chain = domain.Chain(chain)
	p.Dex = domain.Dex(dex)
	return p, nil
}
