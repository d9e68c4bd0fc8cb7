package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and time filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// EventStore persists the marketplace event journal.
type EventStore interface {
	Insert(ctx context.Context, evt Event) error
	List(ctx context.Context, opts ListOpts) ([]Event, error)
	ListByAsset(ctx context.Context, id AssetID, opts ListOpts) ([]Event, error)
	ListBefore(ctx context.Context, cutoff time.Time) ([]Event, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// ListingStore mirrors active auction listings for out-of-process readers.
// The in-memory engine remains authoritative.
type ListingStore interface {
	Upsert(ctx context.Context, l Listing) error
	Delete(ctx context.Context, id AssetID) error
	List(ctx context.Context) ([]Listing, error)
}

// AuditEntry is a single audit log row.
type AuditEntry struct {
	ID        int64
	Actor     string
	Event     string
	Detail    map[string]any
	CreatedAt time.Time
}

// AuditStore persists an append-only audit log of operator and client actions.
type AuditStore interface {
	Log(ctx context.Context, actor, event string, detail map[string]any) error
	List(ctx context.Context, opts ListOpts) ([]AuditEntry, error)
}
