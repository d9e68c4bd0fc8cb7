package handler

import (
	"log/slog"
	"net/http"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/nftshop/internal/service"
)

// AssetHandler serves asset registry and account endpoints.
type AssetHandler struct {
	assets      *service.AssetService
	allowFaucet bool
	logger      *slog.Logger
}

// NewAssetHandler creates an AssetHandler. allowFaucet enables the account
// deposit endpoint, intended for demo and development environments.
func NewAssetHandler(assets *service.AssetService, allowFaucet bool, logger *slog.Logger) *AssetHandler {
	return &AssetHandler{assets: assets, allowFaucet: allowFaucet, logger: logger}
}

// assetViewJSON is the API representation of one asset.
type assetViewJSON struct {
	ID       uint64 `json:"id"`
	Owner    string `json:"owner"`
	Approved string `json:"approved,omitempty"`
	Listed   bool   `json:"listed"`
	Price    uint64 `json:"price,omitempty"`
}

func toAssetViewJSON(v service.AssetView) assetViewJSON {
	out := assetViewJSON{
		ID:     uint64(v.ID),
		Owner:  v.Owner.Hex(),
		Listed: v.Listed,
		Price:  v.Price,
	}
	if v.Approved != (common.Address{}) {
		out.Approved = v.Approved.Hex()
	}
	return out
}

// List returns the full asset inventory.
// GET /api/assets
func (h *AssetHandler) List(w http.ResponseWriter, r *http.Request) {
	views := h.assets.List(r.Context())
	out := make([]assetViewJSON, 0, len(views))
	for _, v := range views {
		out = append(out, toAssetViewJSON(v))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"assets": out,
		"count":  len(out),
	})
}

// Get returns one asset.
// GET /api/assets/{assetId}
func (h *AssetHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := assetIDParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid asset id")
		return
	}

	v, err := h.assets.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAssetViewJSON(v))
}

// Approve grants an account transfer rights over a caller-owned asset.
// POST /api/assets/{assetId}/approve
func (h *AssetHandler) Approve(w http.ResponseWriter, r *http.Request) {
	id, ok := assetIDParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid asset id")
		return
	}

	var req struct {
		Account string `json:"account"`
		Spender string `json:"spender"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	account, ok := parseAddress(req.Account)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid account address")
		return
	}
	spender, ok := parseAddress(req.Spender)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid spender address")
		return
	}

	if err := h.assets.Approve(r.Context(), account, spender, id); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"asset_id": uint64(id),
		"spender":  spender.Hex(),
	})
}

// GetAccount returns an account's balance and asset holdings.
// GET /api/accounts/{address}
func (h *AssetHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	account, ok := parseAddress(r.PathValue("address"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid account address")
		return
	}

	ctx := r.Context()
	ids := h.assets.AssetsOf(ctx, account)
	assets := make([]uint64, 0, len(ids))
	for _, id := range ids {
		assets = append(assets, uint64(id))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"account": account.Hex(),
		"balance": h.assets.BalanceOf(ctx, account),
		"assets":  assets,
	})
}

// Deposit credits an account with funds. Demo mode only.
// POST /api/accounts/{address}/deposit
func (h *AssetHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	if !h.allowFaucet {
		writeError(w, http.StatusForbidden, "deposits are disabled")
		return
	}

	account, ok := parseAddress(r.PathValue("address"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid account address")
		return
	}

	var req struct {
		Amount uint64 `json:"amount"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Amount == 0 {
		writeError(w, http.StatusBadRequest, "amount required")
		return
	}

	balance := h.assets.Deposit(r.Context(), account, req.Amount)
	writeJSON(w, http.StatusOK, map[string]any{
		"account": account.Hex(),
		"balance": balance,
	})
}
