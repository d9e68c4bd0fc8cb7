package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/nftshop/internal/domain"
)

// EventsChannel is the pub/sub channel marketplace events are published on.
const EventsChannel = "events"

// relayBuffer bounds the in-flight event queue between the engine and the
// persistence loop.
const relayBuffer = 256

// EventRelay receives every engine event synchronously via Sink, then
// persists and fans it out asynchronously: journal row to the event store,
// listing mirror updates to the listing store and cache, and a JSON payload
// on the signal bus. The engine never blocks on storage.
type EventRelay struct {
	events   domain.EventStore
	listings domain.ListingStore
	cache    domain.ListingCache
	bus      domain.SignalBus
	logger   *slog.Logger

	queue chan domain.Event
	done  chan struct{}
}

// NewEventRelay creates an EventRelay. The listing store, cache, and bus are
// optional; nil disables that fan-out path.
func NewEventRelay(
	events domain.EventStore,
	listings domain.ListingStore,
	cache domain.ListingCache,
	bus domain.SignalBus,
	logger *slog.Logger,
) *EventRelay {
	return &EventRelay{
		events:   events,
		listings: listings,
		cache:    cache,
		bus:      bus,
		logger:   logger,
		queue:    make(chan domain.Event, relayBuffer),
		done:     make(chan struct{}),
	}
}

// Sink is attached to the engine. It stamps an id onto the event and hands
// it to the background loop. A full queue drops the event from the async
// path with a warning; the engine's own journal still has it.
func (r *EventRelay) Sink(evt domain.Event) {
	if evt.ID == "" {
		evt.ID = uuid.NewString()
	}
	select {
	case r.queue <- evt:
	default:
		r.logger.Warn("event_relay: queue full, dropping event",
			slog.String("type", string(evt.Type)),
			slog.Uint64("asset_id", uint64(evt.AssetID)),
		)
	}
}

// Start launches the persistence loop. It runs until ctx is cancelled and
// the queue has drained.
func (r *EventRelay) Start(ctx context.Context) {
	go r.loop(ctx)
}

// Wait blocks until the persistence loop has exited.
func (r *EventRelay) Wait() {
	<-r.done
}

func (r *EventRelay) loop(ctx context.Context) {
	defer close(r.done)
	for {
		select {
		case evt := <-r.queue:
			r.handle(ctx, evt)
		case <-ctx.Done():
			// Drain whatever is already queued before exiting.
			for {
				select {
				case evt := <-r.queue:
					r.handle(context.WithoutCancel(ctx), evt)
				default:
					return
				}
			}
		}
	}
}

func (r *EventRelay) handle(ctx context.Context, evt domain.Event) {
	if err := r.events.Insert(ctx, evt); err != nil {
		r.logger.ErrorContext(ctx, "event_relay: insert event failed",
			slog.String("type", string(evt.Type)),
			slog.String("id", evt.ID),
			slog.String("error", err.Error()),
		)
	}

	r.syncListing(ctx, evt)

	if r.bus != nil {
		payload, err := json.Marshal(eventPayload(evt))
		if err == nil {
			if err := r.bus.Publish(ctx, EventsChannel, payload); err != nil {
				r.logger.WarnContext(ctx, "event_relay: publish failed",
					slog.String("type", string(evt.Type)),
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// syncListing mirrors auction lifecycle events into the listing store and
// cache.
func (r *EventRelay) syncListing(ctx context.Context, evt domain.Event) {
	switch evt.Type {
	case domain.EventAuctionAdded:
		l := domain.Listing{
			AssetID:  evt.AssetID,
			Seller:   evt.Account,
			Price:    evt.Amount,
			ListedAt: evt.Timestamp,
		}
		if r.listings != nil {
			if err := r.listings.Upsert(ctx, l); err != nil {
				r.logger.WarnContext(ctx, "event_relay: listing upsert failed",
					slog.Uint64("asset_id", uint64(evt.AssetID)),
					slog.String("error", err.Error()),
				)
			}
		}
		if r.cache != nil {
			if err := r.cache.Set(ctx, l); err != nil {
				r.logger.WarnContext(ctx, "event_relay: listing cache set failed",
					slog.Uint64("asset_id", uint64(evt.AssetID)),
					slog.String("error", err.Error()),
				)
			}
		}

	case domain.EventAuctionRemoved, domain.EventAuctionBought:
		if r.listings != nil {
			if err := r.listings.Delete(ctx, evt.AssetID); err != nil {
				r.logger.WarnContext(ctx, "event_relay: listing delete failed",
					slog.Uint64("asset_id", uint64(evt.AssetID)),
					slog.String("error", err.Error()),
				)
			}
		}
		if r.cache != nil {
			if err := r.cache.Remove(ctx, evt.AssetID); err != nil {
				r.logger.WarnContext(ctx, "event_relay: listing cache remove failed",
					slog.Uint64("asset_id", uint64(evt.AssetID)),
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// eventPayload is the wire shape published on the signal bus and relayed to
// WebSocket clients.
func eventPayload(evt domain.Event) map[string]any {
	p := map[string]any{
		"id":        evt.ID,
		"type":      string(evt.Type),
		"timestamp": evt.Timestamp.UTC().Format(time.RFC3339Nano),
	}
	switch evt.Type {
	case domain.EventBuyPriceChange, domain.EventSellPriceChange:
		p["old_price"] = evt.OldPrice
		p["new_price"] = evt.NewPrice
	default:
		p["asset_id"] = uint64(evt.AssetID)
		p["account"] = evt.Account.Hex()
		p["amount"] = evt.Amount
	}
	return p
}
