package s3blob

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/nftshop/internal/domain"
)

type memWriter struct {
	path        string
	contentType string
	data        []byte
	err         error
}

func (w *memWriter) Put(ctx context.Context, path string, data io.Reader, contentType string) error {
	if w.err != nil {
		return w.err
	}
	w.path = path
	w.contentType = contentType
	b, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	w.data = b
	return nil
}

type memEvents struct {
	events  []domain.Event
	deleted int64
}

func (m *memEvents) Insert(ctx context.Context, e domain.Event) error { return nil }

func (m *memEvents) List(ctx context.Context, opts domain.ListOpts) ([]domain.Event, error) {
	return m.events, nil
}

func (m *memEvents) ListByAsset(ctx context.Context, id domain.AssetID, opts domain.ListOpts) ([]domain.Event, error) {
	return nil, nil
}

func (m *memEvents) ListBefore(ctx context.Context, before time.Time) ([]domain.Event, error) {
	var out []domain.Event
	for _, e := range m.events {
		if e.Timestamp.Before(before) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memEvents) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	var kept []domain.Event
	for _, e := range m.events {
		if e.Timestamp.Before(before) {
			m.deleted++
			continue
		}
		kept = append(kept, e)
	}
	m.events = kept
	return m.deleted, nil
}

type memAudit struct {
	entries []domain.AuditEntry
}

func (m *memAudit) Log(ctx context.Context, actor, event string, detail map[string]any) error {
	m.entries = append(m.entries, domain.AuditEntry{Actor: actor, Event: event})
	return nil
}

func (m *memAudit) List(ctx context.Context, opts domain.ListOpts) ([]domain.AuditEntry, error) {
	return m.entries, nil
}

func TestArchiveEventsMovesOldRows(t *testing.T) {
	cutoff := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	buyer := common.HexToAddress("0x00000000000000000000000000000000000a11ce")

	events := &memEvents{events: []domain.Event{
		{ID: "old-1", Type: domain.EventBuyFromShop, AssetID: 1, Account: buyer, Amount: 100, Timestamp: cutoff.Add(-48 * time.Hour)},
		{ID: "old-2", Type: domain.EventSellToShop, AssetID: 1, Account: buyer, Amount: 90, Timestamp: cutoff.Add(-24 * time.Hour)},
		{ID: "new-1", Type: domain.EventAuctionAdded, AssetID: 2, Account: buyer, Amount: 200, Timestamp: cutoff.Add(time.Hour)},
	}}
	writer := &memWriter{}
	audit := &memAudit{}

	a := NewArchiver(writer, events, audit)
	archived, err := a.ArchiveEvents(context.Background(), cutoff)
	require.NoError(t, err)
	require.Equal(t, int64(2), archived)

	require.Equal(t, "archive/events/2026-08.jsonl", writer.path)
	require.Equal(t, "application/x-ndjson", writer.contentType)
	require.Equal(t, 2, bytes.Count(writer.data, []byte("\n")))
	require.Contains(t, string(writer.data), `"id":"old-1"`)
	require.NotContains(t, string(writer.data), `"id":"new-1"`)

	// Archived rows are gone from the primary store.
	remaining, err := events.ListBefore(context.Background(), cutoff.Add(365*24*time.Hour))
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	require.Equal(t, "new-1", remaining[0].ID)

	require.Len(t, audit.entries, 1)
	require.Equal(t, "system", audit.entries[0].Actor)
	require.Equal(t, "archive.events", audit.entries[0].Event)
}

func TestArchiveEventsNoRowsIsNoop(t *testing.T) {
	writer := &memWriter{}
	a := NewArchiver(writer, &memEvents{}, &memAudit{})

	archived, err := a.ArchiveEvents(context.Background(), time.Now())
	require.NoError(t, err)
	require.Zero(t, archived)
	require.Empty(t, writer.path)
}

func TestArchiveEventsUploadFailureKeepsRows(t *testing.T) {
	cutoff := time.Now().UTC()
	events := &memEvents{events: []domain.Event{
		{ID: "old-1", Type: domain.EventBuyFromShop, AssetID: 1, Timestamp: cutoff.Add(-time.Hour)},
	}}
	writer := &memWriter{err: io.ErrClosedPipe}

	a := NewArchiver(writer, events, &memAudit{})
	_, err := a.ArchiveEvents(context.Background(), cutoff)
	require.Error(t, err)

	// Nothing was deleted.
	remaining, err := events.ListBefore(context.Background(), cutoff)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
}
