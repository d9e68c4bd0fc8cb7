// Package handler implements the HTTP API surface over the marketplace
// services.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/nftshop/internal/domain"
)

// writeJSON marshals v as JSON and writes it to the response with the given
// HTTP status code. If marshaling fails, it falls back to a plain-text 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(data)
}

// writeError sends a JSON-formatted error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDomainError maps marketplace sentinel errors onto HTTP statuses and
// writes the response. Unknown errors become 500s with a generic body so
// internals do not leak.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrUnauthorized),
		errors.Is(err, domain.ErrNotOwner),
		errors.Is(err, domain.ErrNotApproved),
		errors.Is(err, domain.ErrSelfPurchase):
		writeError(w, http.StatusForbidden, err.Error())

	case errors.Is(err, domain.ErrInvalidPrice):
		writeError(w, http.StatusBadRequest, err.Error())

	case errors.Is(err, domain.ErrInsufficientPayment),
		errors.Is(err, domain.ErrInsufficientFunds),
		errors.Is(err, domain.ErrInsufficientShopFunds):
		writeError(w, http.StatusPaymentRequired, err.Error())

	case errors.Is(err, domain.ErrAssetNotFound),
		errors.Is(err, domain.ErrNotListed),
		errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())

	case errors.Is(err, domain.ErrAlreadyListed),
		errors.Is(err, domain.ErrNotShopOwned),
		errors.Is(err, domain.ErrAlreadyExists):
		writeError(w, http.StatusConflict, err.Error())

	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// decodeBody decodes a JSON request body into dst, rejecting unknown fields.
func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// parseListOpts extracts standard pagination parameters from the query
// string. Defaults: limit=50 (max 500), offset=0.
func parseListOpts(r *http.Request) domain.ListOpts {
	q := r.URL.Query()

	limit := 50
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > 500 {
		limit = 500
	}

	offset := 0
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	return domain.ListOpts{
		Limit:  limit,
		Offset: offset,
	}
}

// parseAddress validates and parses a hex account address.
func parseAddress(s string) (common.Address, bool) {
	if !common.IsHexAddress(s) {
		return common.Address{}, false
	}
	return common.HexToAddress(s), true
}

// assetIDParam parses the {assetId} path parameter.
func assetIDParam(r *http.Request) (domain.AssetID, bool) {
	raw := r.PathValue("assetId")
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || n == 0 {
		return 0, false
	}
	return domain.AssetID(n), true
}

// eventJSON is the API representation of one journal event.
type eventJSON struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	AssetID   uint64 `json:"asset_id,omitempty"`
	Account   string `json:"account,omitempty"`
	Amount    uint64 `json:"amount,omitempty"`
	OldPrice  uint64 `json:"old_price,omitempty"`
	NewPrice  uint64 `json:"new_price,omitempty"`
	Timestamp string `json:"timestamp"`
}

func toEventJSON(evt domain.Event) eventJSON {
	return eventJSON{
		ID:        evt.ID,
		Type:      string(evt.Type),
		AssetID:   uint64(evt.AssetID),
		Account:   evt.Account.Hex(),
		Amount:    evt.Amount,
		OldPrice:  evt.OldPrice,
		NewPrice:  evt.NewPrice,
		Timestamp: evt.Timestamp.UTC().Format(time.RFC3339Nano),
	}
}

// listingJSON is the API representation of one auction listing.
type listingJSON struct {
	AssetID  uint64 `json:"asset_id"`
	Seller   string `json:"seller"`
	Price    uint64 `json:"price"`
	ListedAt string `json:"listed_at"`
}

func toListingJSON(l domain.Listing) listingJSON {
	return listingJSON{
		AssetID:  uint64(l.AssetID),
		Seller:   l.Seller.Hex(),
		Price:    l.Price,
		ListedAt: l.ListedAt.UTC().Format(time.RFC3339Nano),
	}
}
