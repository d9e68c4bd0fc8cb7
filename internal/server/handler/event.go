package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/alanyoungcy/nftshop/internal/domain"
	"github.com/alanyoungcy/nftshop/internal/service"
)

// EventHandler serves the event journal and audit trail query endpoints.
type EventHandler struct {
	events *service.EventService
	logger *slog.Logger
}

// NewEventHandler creates an EventHandler.
func NewEventHandler(events *service.EventService, logger *slog.Logger) *EventHandler {
	return &EventHandler{events: events, logger: logger}
}

// List returns journal events, newest first. An optional "asset_id" query
// parameter restricts the result to one asset's history.
// GET /api/events
func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	opts := parseListOpts(r)
	ctx := r.Context()

	var (
		events []domain.Event
		err    error
	)
	if raw := r.URL.Query().Get("asset_id"); raw != "" {
		n, parseErr := strconv.ParseUint(raw, 10, 64)
		if parseErr != nil || n == 0 {
			writeError(w, http.StatusBadRequest, "invalid asset_id")
			return
		}
		events, err = h.events.ListByAsset(ctx, domain.AssetID(n), opts)
	} else {
		events, err = h.events.List(ctx, opts)
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}

	out := make([]eventJSON, 0, len(events))
	for _, evt := range events {
		out = append(out, toEventJSON(evt))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"events": out,
		"count":  len(out),
	})
}

// AuditTrail returns audit entries, newest first.
// GET /api/audit
func (h *EventHandler) AuditTrail(w http.ResponseWriter, r *http.Request) {
	entries, err := h.events.AuditTrail(r.Context(), parseListOpts(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	type auditJSON struct {
		ID        int64          `json:"id"`
		Actor     string         `json:"actor"`
		Event     string         `json:"event"`
		Detail    map[string]any `json:"detail,omitempty"`
		CreatedAt string         `json:"created_at"`
	}

	out := make([]auditJSON, 0, len(entries))
	for _, e := range entries {
		out = append(out, auditJSON{
			ID:        e.ID,
			Actor:     e.Actor,
			Event:     e.Event,
			Detail:    e.Detail,
			CreatedAt: e.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"entries": out,
		"count":   len(out),
	})
}
