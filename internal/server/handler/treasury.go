package handler

import (
	"log/slog"
	"net/http"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/nftshop/internal/service"
)

// TreasuryHandler serves the treasury endpoints. Withdrawal requests are
// executed as the operator account and gated by the auth middleware.
type TreasuryHandler struct {
	treasury *service.TreasuryService
	owner    common.Address
	logger   *slog.Logger
}

// NewTreasuryHandler creates a TreasuryHandler.
func NewTreasuryHandler(treasury *service.TreasuryService, owner common.Address, logger *slog.Logger) *TreasuryHandler {
	return &TreasuryHandler{treasury: treasury, owner: owner, logger: logger}
}

// GetBalance returns the marketplace's accumulated balance.
// GET /api/treasury
func (h *TreasuryHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]uint64{
		"balance": h.treasury.Balance(r.Context()),
	})
}

// Withdraw transfers the entire treasury balance to the operator.
// POST /api/treasury/withdraw
func (h *TreasuryHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	amount, err := h.treasury.Withdraw(r.Context(), h.owner)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"withdrawn": amount,
		"recipient": h.owner.Hex(),
	})
}
