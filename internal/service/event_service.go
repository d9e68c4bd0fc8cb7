package service

import (
	"context"
	"fmt"

	"github.com/alanyoungcy/nftshop/internal/domain"
)

// EventService exposes the persisted event journal and audit trail for the
// query API.
type EventService struct {
	events domain.EventStore
	audit  domain.AuditStore
}

// NewEventService creates an EventService.
func NewEventService(events domain.EventStore, audit domain.AuditStore) *EventService {
	return &EventService{events: events, audit: audit}
}

// List returns journal events, newest first.
func (s *EventService) List(ctx context.Context, opts domain.ListOpts) ([]domain.Event, error) {
	events, err := s.events.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("event_service: list: %w", err)
	}
	return events, nil
}

// ListByAsset returns journal events for one asset, newest first.
func (s *EventService) ListByAsset(ctx context.Context, id domain.AssetID, opts domain.ListOpts) ([]domain.Event, error) {
	events, err := s.events.ListByAsset(ctx, id, opts)
	if err != nil {
		return nil, fmt.Errorf("event_service: list by asset %d: %w", id, err)
	}
	return events, nil
}

// AuditTrail returns audit entries, newest first.
func (s *EventService) AuditTrail(ctx context.Context, opts domain.ListOpts) ([]domain.AuditEntry, error) {
	entries, err := s.audit.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("event_service: audit trail: %w", err)
	}
	return entries, nil
}
