package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/nftshop/internal/domain"
	"github.com/alanyoungcy/nftshop/internal/ledger"
	"github.com/alanyoungcy/nftshop/internal/market"
	"github.com/alanyoungcy/nftshop/internal/registry"
)

// AssetView is the read model for one asset: ownership, approval, and
// listing state.
type AssetView struct {
	ID       domain.AssetID
	Owner    common.Address
	Approved common.Address
	Listed   bool
	Price    uint64
}

// AssetService exposes the asset registry and account ledger: asset
// enumeration, transfer approvals, and account funding. It shares the
// engine's transaction lock because the registry and ledger are the same
// instances the engine mutates.
type AssetService struct {
	core     *Core
	registry *registry.Registry
	ledger   *ledger.Ledger
	audit    domain.AuditStore
	logger   *slog.Logger
}

// NewAssetService creates an AssetService.
func NewAssetService(core *Core, reg *registry.Registry, led *ledger.Ledger, audit domain.AuditStore, logger *slog.Logger) *AssetService {
	return &AssetService{
		core:     core,
		registry: reg,
		ledger:   led,
		audit:    audit,
		logger:   logger,
	}
}

// List returns the full asset inventory with listing state attached.
func (s *AssetService) List(ctx context.Context) []AssetView {
	var out []AssetView
	s.core.view(func(m *market.Marketplace) {
		assets := s.registry.All()
		out = make([]AssetView, 0, len(assets))
		for _, a := range assets {
			out = append(out, AssetView{
				ID:       a.ID,
				Owner:    a.Owner,
				Approved: a.Approved,
				Listed:   m.IsListed(a.ID),
				Price:    m.AuctionPrice(a.ID),
			})
		}
	})
	return out
}

// Get returns one asset's view. Returns domain.ErrAssetNotFound for unknown
// ids.
func (s *AssetService) Get(ctx context.Context, id domain.AssetID) (AssetView, error) {
	var (
		view AssetView
		err  error
	)
	s.core.view(func(m *market.Marketplace) {
		var owner common.Address
		owner, err = s.registry.OwnerOf(id)
		if err != nil {
			return
		}
		view = AssetView{
			ID:       id,
			Owner:    owner,
			Approved: s.registry.GetApproved(id),
			Listed:   m.IsListed(id),
			Price:    m.AuctionPrice(id),
		}
	})
	if err != nil {
		return AssetView{}, fmt.Errorf("asset_service: get asset %d: %w", id, err)
	}
	return view, nil
}

// Approve grants spender transfer rights over a caller-owned asset. The
// zero address clears any existing approval.
func (s *AssetService) Approve(ctx context.Context, caller, spender common.Address, id domain.AssetID) error {
	err := s.core.tx(func(*market.Marketplace) error {
		return s.registry.Approve(caller, spender, id)
	})
	if err != nil {
		return fmt.Errorf("asset_service: approve asset %d: %w", id, err)
	}

	if s.audit != nil {
		if auditErr := s.audit.Log(ctx, caller.Hex(), "asset.approve", map[string]any{
			"asset_id": uint64(id),
			"spender":  spender.Hex(),
		}); auditErr != nil {
			s.logger.WarnContext(ctx, "asset_service: audit log failed",
				slog.String("error", auditErr.Error()),
			)
		}
	}
	return nil
}

// BalanceOf returns an account's currency balance.
func (s *AssetService) BalanceOf(ctx context.Context, account common.Address) uint64 {
	var balance uint64
	s.core.view(func(*market.Marketplace) {
		balance = s.ledger.BalanceOf(account)
	})
	return balance
}

// Deposit credits an account with funds. Models external value entering the
// system; exposed for demo and development environments.
func (s *AssetService) Deposit(ctx context.Context, account common.Address, amount uint64) uint64 {
	var balance uint64
	_ = s.core.tx(func(*market.Marketplace) error {
		s.ledger.Deposit(account, amount)
		balance = s.ledger.BalanceOf(account)
		return nil
	})

	s.logger.InfoContext(ctx, "asset_service: account funded",
		slog.String("account", account.Hex()),
		slog.Uint64("amount", amount),
	)
	return balance
}

// AssetsOf returns the ids of all assets owned by an account, ascending.
func (s *AssetService) AssetsOf(ctx context.Context, account common.Address) []domain.AssetID {
	var ids []domain.AssetID
	s.core.view(func(*market.Marketplace) {
		ids = s.registry.AssetsOf(account)
	})
	return ids
}
