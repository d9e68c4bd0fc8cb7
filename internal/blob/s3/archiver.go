package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/alanyoungcy/nftshop/internal/domain"
)

// Archiver implements domain.Archiver by moving old event-journal rows from
// the primary store to object storage. Events are serialized to JSONL and
// uploaded before the source rows are deleted, so a failed upload leaves the
// journal untouched.
type Archiver struct {
	writer domain.BlobWriter
	events domain.EventStore
	audit  domain.AuditStore
}

// NewArchiver creates a new Archiver.
func NewArchiver(writer domain.BlobWriter, events domain.EventStore, audit domain.AuditStore) *Archiver {
	return &Archiver{
		writer: writer,
		events: events,
		audit:  audit,
	}
}

// archivedEvent is the JSONL representation of one journal row in cold
// storage.
type archivedEvent struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	AssetID    uint64 `json:"asset_id,omitempty"`
	Account    string `json:"account,omitempty"`
	Amount     uint64 `json:"amount,omitempty"`
	OldPrice   uint64 `json:"old_price,omitempty"`
	NewPrice   uint64 `json:"new_price,omitempty"`
	OccurredAt string `json:"occurred_at"`
}

// ArchiveEvents uploads all events that occurred strictly before the cutoff
// to archive/events/YYYY-MM.jsonl, deletes them from the primary store, and
// records the run in the audit log. It returns the number of archived
// events.
func (a *Archiver) ArchiveEvents(ctx context.Context, before time.Time) (int64, error) {
	events, err := a.events.ListBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive events query: %w", err)
	}
	if len(events) == 0 {
		return 0, nil
	}

	buf, err := marshalEventsJSONL(events)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive events marshal: %w", err)
	}

	path := archivePath("events", before)
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: archive events upload: %w", err)
	}

	deleted, err := a.events.DeleteBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive events delete: %w", err)
	}

	if err := a.audit.Log(ctx, "system", "archive.events", map[string]any{
		"path":    path,
		"count":   len(events),
		"deleted": deleted,
		"before":  before.Format(time.RFC3339),
	}); err != nil {
		return int64(len(events)), fmt.Errorf("s3blob: archive events audit log: %w", err)
	}

	return int64(len(events)), nil
}

// archivePath builds the S3 key for an archive file, partitioned by the
// year-month of the cutoff time, e.g. archive/events/2026-08.jsonl.
func archivePath(kind string, before time.Time) string {
	return fmt.Sprintf("archive/%s/%s.jsonl", kind, before.Format("2006-01"))
}

// marshalEventsJSONL serializes events as newline-delimited JSON, one
// compact line per event.
func marshalEventsJSONL(events []domain.Event) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, evt := range events {
		rec := archivedEvent{
			ID:         evt.ID,
			Type:       string(evt.Type),
			AssetID:    uint64(evt.AssetID),
			Account:    evt.Account.Hex(),
			Amount:     evt.Amount,
			OldPrice:   evt.OldPrice,
			NewPrice:   evt.NewPrice,
			OccurredAt: evt.Timestamp.UTC().Format(time.RFC3339Nano),
		}
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

// Compile-time interface check.
var _ domain.Archiver = (*Archiver)(nil)
