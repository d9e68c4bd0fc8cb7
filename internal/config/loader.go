package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies NFTSHOP_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known NFTSHOP_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	// ── Shop ──
	setStr(&cfg.Shop.Account, "NFTSHOP_SHOP_ACCOUNT")
	setUint64(&cfg.Shop.BuyPrice, "NFTSHOP_SHOP_BUY_PRICE")
	setUint64(&cfg.Shop.SellPrice, "NFTSHOP_SHOP_SELL_PRICE")
	setInt(&cfg.Shop.MintCount, "NFTSHOP_SHOP_MINT_COUNT")
	setUint64(&cfg.Shop.InitialFunds, "NFTSHOP_SHOP_INITIAL_FUNDS")

	// ── Operator ──
	setStr(&cfg.Operator.PrivateKey, "NFTSHOP_OPERATOR_PRIVATE_KEY")
	setStr(&cfg.Operator.EncryptedKeyPath, "NFTSHOP_OPERATOR_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Operator.KeyPassword, "NFTSHOP_OPERATOR_KEY_PASSWORD")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "NFTSHOP_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "NFTSHOP_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "NFTSHOP_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "NFTSHOP_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "NFTSHOP_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "NFTSHOP_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "NFTSHOP_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "NFTSHOP_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "NFTSHOP_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "NFTSHOP_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "NFTSHOP_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "NFTSHOP_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "NFTSHOP_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "NFTSHOP_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "NFTSHOP_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "NFTSHOP_REDIS_TLS_ENABLED")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "NFTSHOP_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "NFTSHOP_S3_REGION")
	setStr(&cfg.S3.Bucket, "NFTSHOP_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "NFTSHOP_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "NFTSHOP_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "NFTSHOP_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "NFTSHOP_S3_FORCE_PATH_STYLE")

	// ── Server ──
	setInt(&cfg.Server.Port, "NFTSHOP_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "NFTSHOP_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "NFTSHOP_SERVER_API_KEY")

	// ── Archive ──
	setBool(&cfg.Archive.Enabled, "NFTSHOP_ARCHIVE_ENABLED")
	setInt(&cfg.Archive.RetentionDays, "NFTSHOP_ARCHIVE_RETENTION_DAYS")
	setDuration(&cfg.Archive.Interval, "NFTSHOP_ARCHIVE_INTERVAL")

	// ── Top-level ──
	setStr(&cfg.Mode, "NFTSHOP_MODE")
	setStr(&cfg.LogLevel, "NFTSHOP_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setUint64(dst *uint64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
