package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/nftshop/internal/domain"
)

// EventStore implements domain.EventStore using PostgreSQL.
type EventStore struct {
	pool *pgxpool.Pool
}

// NewEventStore creates a new EventStore backed by the given connection pool.
func NewEventStore(pool *pgxpool.Pool) *EventStore {
	return &EventStore{pool: pool}
}

const eventColumns = `id, event_type, asset_id, account, amount, old_price, new_price, occurred_at`

// Insert appends one event to the journal.
func (s *EventStore) Insert(ctx context.Context, evt domain.Event) error {
	const query = `
		INSERT INTO marketplace_events
			(id, event_type, asset_id, account, amount, old_price, new_price, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := s.pool.Exec(ctx, query,
		evt.ID,
		string(evt.Type),
		int64(evt.AssetID),
		evt.Account.Hex(),
		evt.Amount,
		evt.OldPrice,
		evt.NewPrice,
		evt.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert event %s: %w", evt.Type, err)
	}
	return nil
}

// List returns events in reverse chronological order with pagination and
// optional time filtering.
func (s *EventStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM marketplace_events WHERE 1=1`
	args := []any{}
	argIdx := 1

	if opts.Since != nil {
		query += fmt.Sprintf(" AND occurred_at >= $%d", argIdx)
		args = append(args, *opts.Since)
		argIdx++
	}
	if opts.Until != nil {
		query += fmt.Sprintf(" AND occurred_at <= $%d", argIdx)
		args = append(args, *opts.Until)
		argIdx++
	}

	query += " ORDER BY occurred_at DESC, created_at DESC"

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// ListByAsset returns events for a single asset in reverse chronological
// order.
func (s *EventStore) ListByAsset(ctx context.Context, id domain.AssetID, opts domain.ListOpts) ([]domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM marketplace_events WHERE asset_id = $1`
	args := []any{int64(id)}
	argIdx := 2

	query += " ORDER BY occurred_at DESC, created_at DESC"

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list events for asset %d: %w", id, err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// ListBefore returns all events that occurred strictly before cutoff, oldest
// first, for the archiver.
func (s *EventStore) ListBefore(ctx context.Context, cutoff time.Time) ([]domain.Event, error) {
	const query = `SELECT ` + eventColumns + `
		FROM marketplace_events
		WHERE occurred_at < $1
		ORDER BY occurred_at ASC, created_at ASC`

	rows, err := s.pool.Query(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("postgres: list events before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// DeleteBefore removes all events that occurred strictly before cutoff and
// returns the number of rows deleted.
func (s *EventStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	const query = `DELETE FROM marketplace_events WHERE occurred_at < $1`

	tag, err := s.pool.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete events before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	return tag.RowsAffected(), nil
}

func scanEvents(rows pgx.Rows) ([]domain.Event, error) {
	var events []domain.Event
	for rows.Next() {
		var (
			e       domain.Event
			typ     string
			assetID int64
			account string
		)
		if err := rows.Scan(&e.ID, &typ, &assetID, &account, &e.Amount, &e.OldPrice, &e.NewPrice, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("postgres: scan event: %w", err)
		}
		e.Type = domain.EventType(typ)
		e.AssetID = domain.AssetID(assetID)
		e.Account = common.HexToAddress(account)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: event rows: %w", err)
	}
	return events, nil
}
