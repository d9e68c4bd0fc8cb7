package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"

	s3blob "github.com/alanyoungcy/nftshop/internal/blob/s3"
	"github.com/alanyoungcy/nftshop/internal/cache/redis"
	"github.com/alanyoungcy/nftshop/internal/config"
	"github.com/alanyoungcy/nftshop/internal/domain"
	"github.com/alanyoungcy/nftshop/internal/keystore"
	"github.com/alanyoungcy/nftshop/internal/ledger"
	"github.com/alanyoungcy/nftshop/internal/market"
	"github.com/alanyoungcy/nftshop/internal/registry"
	"github.com/alanyoungcy/nftshop/internal/store/postgres"
)

// Dependencies bundles everything the application modes need. It is
// constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	// Core state
	Owner    common.Address
	Registry *registry.Registry
	Ledger   *ledger.Ledger
	Engine   *market.Marketplace

	// Stores
	EventStore   domain.EventStore
	ListingStore domain.ListingStore
	AuditStore   domain.AuditStore

	// Caches
	ListingCache domain.ListingCache
	RateLimiter  domain.RateLimiter
	SignalBus    domain.SignalBus

	// Blob storage
	BlobWriter domain.BlobWriter
	Archiver   domain.Archiver

	// Health probes, keyed by dependency name.
	Pingers map[string]func(context.Context) error
}

// needsPostgres returns true for modes that require persistence.
func needsPostgres(mode string) bool {
	return mode == "serve"
}

// needsRedis returns true for modes that require the cache and signal bus.
func needsRedis(mode string) bool {
	return mode == "serve"
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function to call on
// shutdown. Demo mode wires only the in-memory core.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	logger := slog.Default()

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{
		Pingers: make(map[string]func(context.Context) error),
	}

	// --- Operator key ---
	owner, err := keystore.Load(keystore.Config{
		RawPrivateKey:    cfg.Operator.PrivateKey,
		EncryptedKeyPath: cfg.Operator.EncryptedKeyPath,
		Password:         cfg.Operator.KeyPassword,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("wire: operator key: %w", err)
	}
	deps.Owner = owner

	// --- In-memory core: registry, ledger, engine ---
	reg := registry.New()
	led := ledger.New()
	shopAccount := common.HexToAddress(cfg.Shop.Account)

	eng := market.New(market.Config{
		Owner:     owner,
		Account:   shopAccount,
		BuyPrice:  cfg.Shop.BuyPrice,
		SellPrice: cfg.Shop.SellPrice,
	}, reg, led)

	if cfg.Shop.MintCount > 0 {
		reg.MintBatch(shopAccount, cfg.Shop.MintCount)
	}
	if cfg.Shop.InitialFunds > 0 {
		led.Deposit(shopAccount, cfg.Shop.InitialFunds)
	}

	deps.Registry = reg
	deps.Ledger = led
	deps.Engine = eng

	logger.InfoContext(ctx, "wire: marketplace initialised",
		slog.String("owner", owner.Hex()),
		slog.String("shop_account", shopAccount.Hex()),
		slog.Int("minted", cfg.Shop.MintCount),
		slog.Uint64("initial_funds", cfg.Shop.InitialFunds),
	)

	// --- PostgreSQL ---
	if needsPostgres(cfg.Mode) {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		pool := pgClient.Pool()
		deps.EventStore = postgres.NewEventStore(pool)
		deps.ListingStore = postgres.NewListingStore(pool)
		deps.AuditStore = postgres.NewAuditStore(pool)
		deps.Pingers["postgres"] = pool.Ping
	}

	// --- Redis ---
	if needsRedis(cfg.Mode) {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.ListingCache = redis.NewListingCache(redisClient)
		deps.RateLimiter = redis.NewRateLimiter(redisClient)
		deps.SignalBus = redis.NewSignalBus(redisClient)
		deps.Pingers["redis"] = redisClient.Ping
	}

	// --- S3 blob storage (only when archiving is enabled) ---
	if cfg.Archive.Enabled && needsPostgres(cfg.Mode) {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		closers = append(closers, func() { _ = s3Client.Close() })

		deps.BlobWriter = s3blob.NewWriter(s3Client)
		deps.Archiver = s3blob.NewArchiver(deps.BlobWriter, deps.EventStore, deps.AuditStore)
		deps.Pingers["s3"] = s3Client.Health
	}

	return deps, cleanup, nil
}
