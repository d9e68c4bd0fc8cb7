package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/nftshop/internal/domain"
	"github.com/alanyoungcy/nftshop/internal/market"
)

// TreasuryService exposes the marketplace's accumulated balance and the
// owner-only withdrawal operation.
type TreasuryService struct {
	core   *Core
	audit  domain.AuditStore
	logger *slog.Logger
}

// NewTreasuryService creates a TreasuryService.
func NewTreasuryService(core *Core, audit domain.AuditStore, logger *slog.Logger) *TreasuryService {
	return &TreasuryService{
		core:   core,
		audit:  audit,
		logger: logger,
	}
}

// Balance returns the marketplace's current treasury balance.
func (s *TreasuryService) Balance(ctx context.Context) uint64 {
	var balance uint64
	s.core.view(func(m *market.Marketplace) {
		balance = m.Balance()
	})
	return balance
}

// Withdraw transfers the entire treasury balance to the owner and returns
// the amount moved. A zero balance is a safe no-op.
func (s *TreasuryService) Withdraw(ctx context.Context, caller common.Address) (uint64, error) {
	var amount uint64
	err := s.core.tx(func(m *market.Marketplace) error {
		amount = m.Balance()
		return m.WithdrawAll(caller)
	})
	if err != nil {
		return 0, fmt.Errorf("treasury_service: withdraw: %w", err)
	}

	if s.audit != nil {
		if auditErr := s.audit.Log(ctx, caller.Hex(), "treasury.withdraw", map[string]any{
			"amount": amount,
		}); auditErr != nil {
			s.logger.WarnContext(ctx, "treasury_service: audit log failed",
				slog.String("error", auditErr.Error()),
			)
		}
	}

	s.logger.InfoContext(ctx, "treasury_service: treasury withdrawn",
		slog.Uint64("amount", amount),
	)
	return amount, nil
}
