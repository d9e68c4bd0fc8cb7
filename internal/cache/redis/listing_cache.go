package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/nftshop/internal/domain"
)

// ListingCache implements domain.ListingCache using Redis hashes.
// Each active listing is stored at key "listing:{assetID}" with fields
// "seller", "price", and "listed_at" (Unix nanosecond timestamp).
type ListingCache struct {
	rdb *redis.Client
}

// NewListingCache creates a ListingCache backed by the given Client.
func NewListingCache(c *Client) *ListingCache {
	return &ListingCache{rdb: c.Underlying()}
}

func listingKey(id domain.AssetID) string {
	return "listing:" + strconv.FormatUint(uint64(id), 10)
}

// Set stores or replaces the cached listing for an asset.
func (lc *ListingCache) Set(ctx context.Context, l domain.Listing) error {
	key := listingKey(l.AssetID)
	fields := map[string]interface{}{
		"seller":    l.Seller.Hex(),
		"price":     strconv.FormatUint(l.Price, 10),
		"listed_at": strconv.FormatInt(l.ListedAt.UnixNano(), 10),
	}
	if err := lc.rdb.HSet(ctx, key, fields).Err(); err != nil {
		return fmt.Errorf("redis: set listing %d: %w", l.AssetID, err)
	}
	return nil
}

// Remove evicts the cached listing for an asset. Removing an absent key is a
// no-op.
func (lc *ListingCache) Remove(ctx context.Context, id domain.AssetID) error {
	if err := lc.rdb.Del(ctx, listingKey(id)).Err(); err != nil {
		return fmt.Errorf("redis: remove listing %d: %w", id, err)
	}
	return nil
}

// Get retrieves the cached listing for an asset. It returns domain.ErrNotFound
// when the asset is not listed.
func (lc *ListingCache) Get(ctx context.Context, id domain.AssetID) (domain.Listing, error) {
	vals, err := lc.rdb.HGetAll(ctx, listingKey(id)).Result()
	if err != nil {
		return domain.Listing{}, fmt.Errorf("redis: get listing %d: %w", id, err)
	}
	if len(vals) == 0 {
		return domain.Listing{}, domain.ErrNotFound
	}

	seller, ok := vals["seller"]
	if !ok {
		return domain.Listing{}, domain.ErrNotFound
	}
	priceStr, ok := vals["price"]
	if !ok {
		return domain.Listing{}, domain.ErrNotFound
	}
	price, err := strconv.ParseUint(priceStr, 10, 64)
	if err != nil {
		return domain.Listing{}, fmt.Errorf("redis: parse listing price %d: %w", id, err)
	}

	l := domain.Listing{
		AssetID: id,
		Seller:  common.HexToAddress(seller),
		Price:   price,
	}
	if tsStr, ok := vals["listed_at"]; ok {
		tsNano, err := strconv.ParseInt(tsStr, 10, 64)
		if err != nil {
			return domain.Listing{}, fmt.Errorf("redis: parse listing ts %d: %w", id, err)
		}
		l.ListedAt = time.Unix(0, tsNano)
	}

	return l, nil
}

// Compile-time interface check.
var _ domain.ListingCache = (*ListingCache)(nil)
