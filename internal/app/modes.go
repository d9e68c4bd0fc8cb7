package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/nftshop/internal/config"
	"github.com/alanyoungcy/nftshop/internal/domain"
	"github.com/alanyoungcy/nftshop/internal/server"
	"github.com/alanyoungcy/nftshop/internal/server/handler"
	"github.com/alanyoungcy/nftshop/internal/server/ws"
	"github.com/alanyoungcy/nftshop/internal/service"
)

const shutdownTimeout = 10 * time.Second

// runServe starts the full HTTP + WebSocket API backed by PostgreSQL,
// Redis, and optionally the S3 event archiver.
func runServe(ctx context.Context, cfg *config.Config, deps *Dependencies, logger *slog.Logger) error {
	// The engine holds no state across restarts, so mirror rows left by a
	// previous run are stale and must go before the relay starts writing.
	if err := resetListingMirror(ctx, deps); err != nil {
		return fmt.Errorf("serve: reset listing mirror: %w", err)
	}

	core := service.NewCore(deps.Engine)
	relay := service.NewEventRelay(deps.EventStore, deps.ListingStore, deps.ListingCache, deps.SignalBus, logger)
	deps.Engine.SetSink(relay.Sink)

	shopSvc := service.NewShopService(core, deps.AuditStore, logger)
	auctionSvc := service.NewAuctionService(core, deps.ListingCache, deps.AuditStore, logger)
	treasurySvc := service.NewTreasuryService(core, deps.AuditStore, logger)
	assetSvc := service.NewAssetService(core, deps.Registry, deps.Ledger, deps.AuditStore, logger)
	eventSvc := service.NewEventService(deps.EventStore, deps.AuditStore)

	hub := ws.NewHub(deps.SignalBus, logger, ws.Config{
		Mode:      cfg.Mode,
		StartedAt: time.Now().UTC(),
	})

	checks := make(map[string]handler.Pinger, len(deps.Pingers))
	for name, ping := range deps.Pingers {
		checks[name] = ping
	}

	handlers := server.Handlers{
		Health:   handler.NewHealthHandler(checks, logger),
		Shop:     handler.NewShopHandler(shopSvc, deps.Owner, logger),
		Auctions: handler.NewAuctionHandler(auctionSvc, logger),
		Treasury: handler.NewTreasuryHandler(treasurySvc, deps.Owner, logger),
		Assets:   handler.NewAssetHandler(assetSvc, true, logger),
		Events:   handler.NewEventHandler(eventSvc, logger),
	}

	srv := server.NewServer(server.Config{
		Port:        cfg.Server.Port,
		CORSOrigins: cfg.Server.CORSOrigins,
		APIKey:      cfg.Server.APIKey,
	}, handlers, hub, deps.RateLimiter, logger)

	relay.Start(ctx)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return hub.Run(gctx)
	})

	g.Go(func() error {
		logger.InfoContext(gctx, "serve: http server listening", slog.Int("port", cfg.Server.Port))
		return srv.Start()
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if cfg.Archive.Enabled && deps.Archiver != nil {
		g.Go(func() error {
			runArchiveLoop(gctx, cfg.Archive, deps.Archiver, logger)
			return nil
		})
	}

	err := g.Wait()

	// Let the relay finish persisting whatever the engine emitted before
	// shutdown was requested.
	relay.Wait()

	return err
}

// resetListingMirror clears the auction listing mirror in PostgreSQL and
// Redis so it reflects the fresh engine state.
func resetListingMirror(ctx context.Context, deps *Dependencies) error {
	stale, err := deps.ListingStore.List(ctx)
	if err != nil {
		return err
	}
	for _, l := range stale {
		if err := deps.ListingStore.Delete(ctx, l.AssetID); err != nil {
			return err
		}
		if deps.ListingCache != nil {
			_ = deps.ListingCache.Remove(ctx, l.AssetID)
		}
	}
	return nil
}

// runArchiveLoop periodically moves events older than the retention window
// to cold storage. It runs until ctx is cancelled.
func runArchiveLoop(ctx context.Context, cfg config.ArchiveConfig, archiver domain.Archiver, logger *slog.Logger) {
	interval := cfg.Interval.Duration
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.InfoContext(ctx, "archive: loop started",
		slog.Duration("interval", interval),
		slog.Int("retention_days", cfg.RetentionDays),
	)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			before := time.Now().UTC().AddDate(0, 0, -cfg.RetentionDays)
			archived, err := archiver.ArchiveEvents(ctx, before)
			if err != nil {
				logger.ErrorContext(ctx, "archive: run failed", slog.String("error", err.Error()))
				continue
			}
			if archived > 0 {
				logger.InfoContext(ctx, "archive: run complete",
					slog.Int64("archived", archived),
					slog.Time("before", before),
				)
			}
		}
	}
}

// runDemo walks through the marketplace lifecycle entirely in memory,
// logging every step. No external services are touched.
func runDemo(ctx context.Context, cfg *config.Config, deps *Dependencies, logger *slog.Logger) error {
	eng := deps.Engine
	led := deps.Ledger

	alice := common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	bob := common.HexToAddress("0x0000000000000000000000000000000000000b0b")

	led.Deposit(alice, 500)
	led.Deposit(bob, 500)
	logger.InfoContext(ctx, "demo: accounts funded",
		slog.String("alice", alice.Hex()),
		slog.String("bob", bob.Hex()),
		slog.Uint64("balance", 500),
	)

	logger.InfoContext(ctx, "demo: shop prices",
		slog.Uint64("buy", eng.BuyPrice()),
		slog.Uint64("sell", eng.SellPrice()),
	)

	// Alice buys asset 1 from the shop at the fixed buy price.
	if err := eng.BuyFromShop(alice, 1, eng.BuyPrice()); err != nil {
		return fmt.Errorf("demo: buy from shop: %w", err)
	}
	logger.InfoContext(ctx, "demo: alice bought asset 1 from the shop",
		slog.Uint64("alice_balance", led.BalanceOf(alice)),
		slog.Uint64("shop_balance", eng.Balance()),
	)

	if err := eng.BuyFromShop(bob, 1, eng.BuyPrice()); err != nil {
		logger.InfoContext(ctx, "demo: bob cannot buy asset 1, the shop no longer owns it",
			slog.String("error", err.Error()),
		)
	}

	// Alice lists asset 1 for auction at 200 after approving the shop as broker.
	if err := deps.Registry.Approve(alice, eng.Account(), 1); err != nil {
		return fmt.Errorf("demo: approve: %w", err)
	}
	if err := eng.AddToAuction(alice, 1, 200); err != nil {
		return fmt.Errorf("demo: add to auction: %w", err)
	}
	logger.InfoContext(ctx, "demo: alice listed asset 1 for auction", slog.Uint64("price", 200))

	// Bob buys it. The shop keeps a brokerage fee and forwards the rest.
	if err := eng.BuyFromAuction(bob, 1, 200); err != nil {
		return fmt.Errorf("demo: buy from auction: %w", err)
	}
	logger.InfoContext(ctx, "demo: bob bought asset 1 at auction",
		slog.Uint64("alice_balance", led.BalanceOf(alice)),
		slog.Uint64("bob_balance", led.BalanceOf(bob)),
		slog.Uint64("shop_balance", eng.Balance()),
	)

	// Bob sells the asset back to the shop at the fixed sell price.
	if err := deps.Registry.Approve(bob, eng.Account(), 1); err != nil {
		return fmt.Errorf("demo: approve: %w", err)
	}
	if err := eng.SellToShop(bob, 1); err != nil {
		return fmt.Errorf("demo: sell to shop: %w", err)
	}
	logger.InfoContext(ctx, "demo: bob sold asset 1 back to the shop",
		slog.Uint64("bob_balance", led.BalanceOf(bob)),
		slog.Uint64("shop_balance", eng.Balance()),
	)

	// The operator drains the treasury.
	treasury := eng.Balance()
	if err := eng.WithdrawAll(deps.Owner); err != nil {
		return fmt.Errorf("demo: withdraw: %w", err)
	}
	logger.InfoContext(ctx, "demo: operator withdrew the treasury",
		slog.Uint64("amount", treasury),
		slog.Uint64("owner_balance", led.BalanceOf(deps.Owner)),
	)

	logger.InfoContext(ctx, "demo: complete",
		slog.Int("events_emitted", len(eng.Events())),
	)
	return nil
}
