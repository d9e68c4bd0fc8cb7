package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/nftshop/internal/domain"
	"github.com/alanyoungcy/nftshop/internal/market"
)

// Prices is a snapshot of the shop's fixed trade prices.
type Prices struct {
	BuyPrice  uint64
	SellPrice uint64
}

// ShopService exposes the fixed-price trading surface: price management and
// trades against the shop's own inventory.
type ShopService struct {
	core   *Core
	audit  domain.AuditStore
	logger *slog.Logger
}

// NewShopService creates a ShopService.
func NewShopService(core *Core, audit domain.AuditStore, logger *slog.Logger) *ShopService {
	return &ShopService{
		core:   core,
		audit:  audit,
		logger: logger,
	}
}

// Prices returns the current buy and sell prices.
func (s *ShopService) Prices(ctx context.Context) Prices {
	var p Prices
	s.core.view(func(m *market.Marketplace) {
		p = Prices{BuyPrice: m.BuyPrice(), SellPrice: m.SellPrice()}
	})
	return p
}

// SetBuyPrice updates the price purchasers pay the shop for an asset.
func (s *ShopService) SetBuyPrice(ctx context.Context, caller common.Address, price uint64) error {
	err := s.core.tx(func(m *market.Marketplace) error {
		return m.SetBuyPrice(caller, price)
	})
	if err != nil {
		return fmt.Errorf("shop_service: set buy price: %w", err)
	}

	s.auditLog(ctx, caller, "shop.set_buy_price", map[string]any{"price": price})
	s.logger.InfoContext(ctx, "shop_service: buy price updated",
		slog.Uint64("price", price),
	)
	return nil
}

// SetSellPrice updates the price the shop pays when acquiring an asset.
func (s *ShopService) SetSellPrice(ctx context.Context, caller common.Address, price uint64) error {
	err := s.core.tx(func(m *market.Marketplace) error {
		return m.SetSellPrice(caller, price)
	})
	if err != nil {
		return fmt.Errorf("shop_service: set sell price: %w", err)
	}

	s.auditLog(ctx, caller, "shop.set_sell_price", map[string]any{"price": price})
	s.logger.InfoContext(ctx, "shop_service: sell price updated",
		slog.Uint64("price", price),
	)
	return nil
}

// Buy executes a fixed-price purchase of a shop-owned asset. value is the
// payment offered; anything above the buy price is kept by the shop.
func (s *ShopService) Buy(ctx context.Context, caller common.Address, id domain.AssetID, value uint64) error {
	err := s.core.tx(func(m *market.Marketplace) error {
		return m.BuyFromShop(caller, id, value)
	})
	if err != nil {
		return fmt.Errorf("shop_service: buy asset %d: %w", id, err)
	}

	s.auditLog(ctx, caller, "shop.buy", map[string]any{
		"asset_id": uint64(id),
		"value":    value,
	})
	s.logger.InfoContext(ctx, "shop_service: asset bought from shop",
		slog.Uint64("asset_id", uint64(id)),
		slog.String("buyer", caller.Hex()),
		slog.Uint64("value", value),
	)
	return nil
}

// Sell executes a fixed-price sale of a caller-owned asset to the shop. The
// caller must have approved the shop account for the asset beforehand.
func (s *ShopService) Sell(ctx context.Context, caller common.Address, id domain.AssetID) error {
	err := s.core.tx(func(m *market.Marketplace) error {
		return m.SellToShop(caller, id)
	})
	if err != nil {
		return fmt.Errorf("shop_service: sell asset %d: %w", id, err)
	}

	s.auditLog(ctx, caller, "shop.sell", map[string]any{
		"asset_id": uint64(id),
	})
	s.logger.InfoContext(ctx, "shop_service: asset sold to shop",
		slog.Uint64("asset_id", uint64(id)),
		slog.String("seller", caller.Hex()),
	)
	return nil
}

func (s *ShopService) auditLog(ctx context.Context, actor common.Address, event string, detail map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Log(ctx, actor.Hex(), event, detail); err != nil {
		s.logger.WarnContext(ctx, "shop_service: audit log failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}
