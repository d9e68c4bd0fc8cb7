package handler

import (
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/nftshop/internal/domain"
	"github.com/alanyoungcy/nftshop/internal/service"
)

// AuctionHandler serves the peer-to-peer auction endpoints.
type AuctionHandler struct {
	auctions *service.AuctionService
	logger   *slog.Logger
}

// NewAuctionHandler creates an AuctionHandler.
func NewAuctionHandler(auctions *service.AuctionService, logger *slog.Logger) *AuctionHandler {
	return &AuctionHandler{auctions: auctions, logger: logger}
}

// List returns all active listings.
// GET /api/auctions
func (h *AuctionHandler) List(w http.ResponseWriter, r *http.Request) {
	listings := h.auctions.Listings(r.Context())
	out := make([]listingJSON, 0, len(listings))
	for _, l := range listings {
		out = append(out, toListingJSON(l))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"listings": out,
		"count":    len(out),
	})
}

// Get returns the listing for one asset.
// GET /api/auctions/{assetId}
func (h *AuctionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := assetIDParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid asset id")
		return
	}

	l, err := h.auctions.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toListingJSON(l))
}

// Add lists a caller-owned asset for auction.
// POST /api/auctions
func (h *AuctionHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Account string `json:"account"`
		AssetID uint64 `json:"asset_id"`
		Price   uint64 `json:"price"`
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

	if err := h.auctions.Add(r.Context(), account, domain.AssetID(req.AssetID), req.Price); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"asset_id": req.AssetID,
		"seller":   account.Hex(),
		"price":    req.Price,
	})
}

// Remove delists a caller-owned asset. The caller account is supplied via
// the "account" query parameter.
// DELETE /api/auctions/{assetId}
func (h *AuctionHandler) Remove(w http.ResponseWriter, r *http.Request) {
	id, ok := assetIDParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid asset id")
		return
	}
	account, ok := parseAddress(r.URL.Query().Get("account"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid account address")
		return
	}

	if err := h.auctions.Remove(r.Context(), account, id); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Buy purchases a listed asset at its asking price.
// POST /api/auctions/{assetId}/buy
func (h *AuctionHandler) Buy(w http.ResponseWriter, r *http.Request) {
	id, ok := assetIDParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid asset id")
		return
	}

	var req struct {
		Account string `json:"account"`
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

	if err := h.auctions.Buy(r.Context(), account, id, req.Value); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"asset_id": uint64(id),
		"owner":    account.Hex(),
	})
}
