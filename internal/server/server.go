// Package server assembles the HTTP + WebSocket API for the marketplace.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/nftshop/internal/domain"
	"github.com/alanyoungcy/nftshop/internal/server/handler"
	"github.com/alanyoungcy/nftshop/internal/server/middleware"
	"github.com/alanyoungcy/nftshop/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // if empty, operator endpoints are open
}

// Handlers aggregates all HTTP handlers the server registers.
type Handlers struct {
	Health   *handler.HealthHandler
	Shop     *handler.ShopHandler
	Auctions *handler.AuctionHandler
	Treasury *handler.TreasuryHandler
	Assets   *handler.AssetHandler
	Events   *handler.EventHandler
}

// Server is the HTTP + WebSocket API server for the marketplace.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// rateLimitDefaults bound per-client request rates when a limiter is
// configured.
const (
	rateLimitRequests = 120
	rateLimitWindow   = time.Minute
)

// NewServer creates a Server with all routes registered on the ServeMux and
// the middleware chain (rate limiting, logging, CORS) applied. Operator
// endpoints additionally require the configured API key.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Operator endpoints sit behind their own auth wrapper.
	operator := middleware.Auth(cfg.APIKey)

	// Health check (no auth required).
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Fixed-price shop.
	mux.HandleFunc("GET /api/prices", handlers.Shop.GetPrices)
	mux.Handle("PUT /api/prices", operator(http.HandlerFunc(handlers.Shop.UpdatePrices)))
	mux.HandleFunc("POST /api/shop/buy", handlers.Shop.Buy)
	mux.HandleFunc("POST /api/shop/sell", handlers.Shop.Sell)

	// Auctions.
	mux.HandleFunc("GET /api/auctions", handlers.Auctions.List)
	mux.HandleFunc("POST /api/auctions", handlers.Auctions.Add)
	mux.HandleFunc("GET /api/auctions/{assetId}", handlers.Auctions.Get)
	mux.HandleFunc("DELETE /api/auctions/{assetId}", handlers.Auctions.Remove)
	mux.HandleFunc("POST /api/auctions/{assetId}/buy", handlers.Auctions.Buy)

	// Treasury.
	mux.HandleFunc("GET /api/treasury", handlers.Treasury.GetBalance)
	mux.Handle("POST /api/treasury/withdraw", operator(http.HandlerFunc(handlers.Treasury.Withdraw)))

	// Assets and accounts.
	mux.HandleFunc("GET /api/assets", handlers.Assets.List)
	mux.HandleFunc("GET /api/assets/{assetId}", handlers.Assets.Get)
	mux.HandleFunc("POST /api/assets/{assetId}/approve", handlers.Assets.Approve)
	mux.HandleFunc("GET /api/accounts/{address}", handlers.Assets.GetAccount)
	mux.HandleFunc("POST /api/accounts/{address}/deposit", handlers.Assets.Deposit)

	// Event journal and audit trail.
	mux.HandleFunc("GET /api/events", handlers.Events.List)
	mux.Handle("GET /api/audit", operator(http.HandlerFunc(handlers.Events.AuditTrail)))

	// WebSocket endpoint.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	// Build the middleware chain, innermost first.
	var h http.Handler = mux
	if limiter != nil {
		h = middleware.RateLimit(limiter, rateLimitRequests, rateLimitWindow)(h)
	}
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		mux:        mux,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
