package domain

import (
	"context"
	"time"
)

// ListingCache is the fast read path for listing lookups, kept in sync by
// the service event loop. It returns ErrNotFound for unlisted assets.
type ListingCache interface {
	Set(ctx context.Context, l Listing) error
	Remove(ctx context.Context, id AssetID) error
	Get(ctx context.Context, id AssetID) (Listing, error)
}

// SignalBus provides pub/sub fan-out of marketplace events to live
// consumers such as the WebSocket hub.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}

// RateLimiter provides distributed request rate limiting.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}
