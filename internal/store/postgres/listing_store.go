package postgres

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/nftshop/internal/domain"
)

// ListingStore implements domain.ListingStore using PostgreSQL. It keeps a
// durable mirror of the engine's active listings for reporting and restart
// recovery.
type ListingStore struct {
	pool *pgxpool.Pool
}

// NewListingStore creates a new ListingStore backed by the given connection
// pool.
func NewListingStore(pool *pgxpool.Pool) *ListingStore {
	return &ListingStore{pool: pool}
}

// Upsert inserts or replaces the listing row for an asset.
func (s *ListingStore) Upsert(ctx context.Context, l domain.Listing) error {
	const query = `
		INSERT INTO auction_listings (asset_id, seller, price, listed_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (asset_id) DO UPDATE SET
			seller = EXCLUDED.seller,
			price = EXCLUDED.price,
			listed_at = EXCLUDED.listed_at,
			updated_at = NOW()`

	_, err := s.pool.Exec(ctx, query, int64(l.AssetID), l.Seller.Hex(), l.Price, l.ListedAt)
	if err != nil {
		return fmt.Errorf("postgres: upsert listing for asset %d: %w", l.AssetID, err)
	}
	return nil
}

// Delete removes the listing row for an asset. Deleting an absent row is a
// no-op.
func (s *ListingStore) Delete(ctx context.Context, id domain.AssetID) error {
	const query = `DELETE FROM auction_listings WHERE asset_id = $1`

	_, err := s.pool.Exec(ctx, query, int64(id))
	if err != nil {
		return fmt.Errorf("postgres: delete listing for asset %d: %w", id, err)
	}
	return nil
}

// List returns all active listings ordered by asset id.
func (s *ListingStore) List(ctx context.Context) ([]domain.Listing, error) {
	const query = `
		SELECT asset_id, seller, price, listed_at
		FROM auction_listings
		ORDER BY asset_id ASC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: list listings: %w", err)
	}
	defer rows.Close()

	var listings []domain.Listing
	for rows.Next() {
		var (
			l       domain.Listing
			assetID int64
			seller  string
		)
		if err := rows.Scan(&assetID, &seller, &l.Price, &l.ListedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan listing: %w", err)
		}
		l.AssetID = domain.AssetID(assetID)
		l.Seller = common.HexToAddress(seller)
		listings = append(listings, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: listing rows: %w", err)
	}
	return listings, nil
}
