package handler

import (
	"log/slog"
	"net/http"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/nftshop/internal/domain"
	"github.com/alanyoungcy/nftshop/internal/service"
)

// ShopHandler serves the fixed-price trading endpoints.
type ShopHandler struct {
	shop   *service.ShopService
	owner  common.Address
	logger *slog.Logger
}

// NewShopHandler creates a ShopHandler. owner is the operator account used
// for price-management requests, which are authenticated at the middleware
// layer.
func NewShopHandler(shop *service.ShopService, owner common.Address, logger *slog.Logger) *ShopHandler {
	return &ShopHandler{shop: shop, owner: owner, logger: logger}
}

// GetPrices returns the current fixed buy and sell prices.
// GET /api/prices
func (h *ShopHandler) GetPrices(w http.ResponseWriter, r *http.Request) {
	p := h.shop.Prices(r.Context())
	writeJSON(w, http.StatusOK, map[string]uint64{
		"buy_price":  p.BuyPrice,
		"sell_price": p.SellPrice,
	})
}

// UpdatePrices sets one or both fixed prices. Operator only; a zero or
// omitted field is left unchanged.
// PUT /api/prices
func (h *ShopHandler) UpdatePrices(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BuyPrice  uint64 `json:"buy_price"`
		SellPrice uint64 `json:"sell_price"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.BuyPrice == 0 && req.SellPrice == 0 {
		writeError(w, http.StatusBadRequest, "buy_price or sell_price required")
		return
	}

	ctx := r.Context()
	if req.BuyPrice != 0 {
		if err := h.shop.SetBuyPrice(ctx, h.owner, req.BuyPrice); err != nil {
			writeDomainError(w, err)
			return
		}
	}
	if req.SellPrice != 0 {
		if err := h.shop.SetSellPrice(ctx, h.owner, req.SellPrice); err != nil {
			writeDomainError(w, err)
			return
		}
	}

	p := h.shop.Prices(ctx)
	writeJSON(w, http.StatusOK, map[string]uint64{
		"buy_price":  p.BuyPrice,
		"sell_price": p.SellPrice,
	})
}

// Buy executes a fixed-price purchase of a shop-owned asset.
// POST /api/shop/buy
func (h *ShopHandler) Buy(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Account string `json:"account"`
		AssetID uint64 `json:"asset_id"`
		Value   uint64 `json:"value"`
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
	if req.AssetID == 0 {
		writeError(w, http.StatusBadRequest, "asset_id required")
		return
	}

	if err := h.shop.Buy(r.Context(), account, domain.AssetID(req.AssetID), req.Value); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"asset_id": req.AssetID,
		"owner":    account.Hex(),
	})
}

// Sell executes a fixed-price sale of a caller-owned asset to the shop.
// POST /api/shop/sell
func (h *ShopHandler) Sell(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Account string `json:"account"`
		AssetID uint64 `json:"asset_id"`
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
	if req.AssetID == 0 {
		writeError(w, http.StatusBadRequest, "asset_id required")
		return
	}

	if err := h.shop.Sell(r.Context(), account, domain.AssetID(req.AssetID)); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"asset_id": req.AssetID,
		"sold_by":  account.Hex(),
	})
}
