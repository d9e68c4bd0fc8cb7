package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/nftshop/internal/domain"
	"github.com/alanyoungcy/nftshop/internal/market"
)

// AuctionService exposes the peer-to-peer auction surface: listing
// management and brokered purchases.
type AuctionService struct {
	core   *Core
	cache  domain.ListingCache
	audit  domain.AuditStore
	logger *slog.Logger
}

// NewAuctionService creates an AuctionService. The cache is optional; nil
// sends every lookup to the engine.
func NewAuctionService(core *Core, cache domain.ListingCache, audit domain.AuditStore, logger *slog.Logger) *AuctionService {
	return &AuctionService{
		core:   core,
		cache:  cache,
		audit:  audit,
		logger: logger,
	}
}

// Add lists a caller-owned asset for auction at the given asking price.
func (s *AuctionService) Add(ctx context.Context, caller common.Address, id domain.AssetID, price uint64) error {
	err := s.core.tx(func(m *market.Marketplace) error {
		return m.AddToAuction(caller, id, price)
	})
	if err != nil {
		return fmt.Errorf("auction_service: add asset %d: %w", id, err)
	}

	s.auditLog(ctx, caller, "auction.add", map[string]any{
		"asset_id": uint64(id),
		"price":    price,
	})
	s.logger.InfoContext(ctx, "auction_service: asset listed",
		slog.Uint64("asset_id", uint64(id)),
		slog.String("seller", caller.Hex()),
		slog.Uint64("price", price),
	)
	return nil
}

// Remove delists a caller-owned asset.
func (s *AuctionService) Remove(ctx context.Context, caller common.Address, id domain.AssetID) error {
	err := s.core.tx(func(m *market.Marketplace) error {
		return m.RemoveFromAuction(caller, id)
	})
	if err != nil {
		return fmt.Errorf("auction_service: remove asset %d: %w", id, err)
	}

	s.auditLog(ctx, caller, "auction.remove", map[string]any{
		"asset_id": uint64(id),
	})
	s.logger.InfoContext(ctx, "auction_service: asset delisted",
		slog.Uint64("asset_id", uint64(id)),
		slog.String("caller", caller.Hex()),
	)
	return nil
}

// Buy purchases a listed asset at its asking price. value is the payment
// offered; the marketplace keeps its brokerage fee plus any surplus and pays
// the seller the remainder.
func (s *AuctionService) Buy(ctx context.Context, caller common.Address, id domain.AssetID, value uint64) error {
	err := s.core.tx(func(m *market.Marketplace) error {
		return m.BuyFromAuction(caller, id, value)
	})
	if err != nil {
		return fmt.Errorf("auction_service: buy asset %d: %w", id, err)
	}

	s.auditLog(ctx, caller, "auction.buy", map[string]any{
		"asset_id": uint64(id),
		"value":    value,
	})
	s.logger.InfoContext(ctx, "auction_service: asset bought from auction",
		slog.Uint64("asset_id", uint64(id)),
		slog.String("buyer", caller.Hex()),
		slog.Uint64("value", value),
	)
	return nil
}

// Listings returns all active listings from the engine, ordered by asset id.
func (s *AuctionService) Listings(ctx context.Context) []domain.Listing {
	var out []domain.Listing
	s.core.view(func(m *market.Marketplace) {
		out = m.Listings()
	})
	return out
}

// Get returns the listing for one asset. The cache is consulted first; a
// miss or cache error falls through to the engine. Returns
// domain.ErrNotListed for unlisted assets.
func (s *AuctionService) Get(ctx context.Context, id domain.AssetID) (domain.Listing, error) {
	if s.cache != nil {
		l, err := s.cache.Get(ctx, id)
		if err == nil {
			return l, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.WarnContext(ctx, "auction_service: listing cache get failed",
				slog.Uint64("asset_id", uint64(id)),
				slog.String("error", err.Error()),
			)
		}
	}

	var (
		found   bool
		listing domain.Listing
	)
	s.core.view(func(m *market.Marketplace) {
		for _, l := range m.Listings() {
			if l.AssetID == id {
				listing, found = l, true
				return
			}
		}
	})
	if !found {
		return domain.Listing{}, domain.ErrNotListed
	}
	return listing, nil
}

func (s *AuctionService) auditLog(ctx context.Context, actor common.Address, event string, detail map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Log(ctx, actor.Hex(), event, detail); err != nil {
		s.logger.WarnContext(ctx, "auction_service: audit log failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}
