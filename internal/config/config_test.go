package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultsValidateWithKey(t *testing.T) {
	cfg := Defaults()
	cfg.Operator.PrivateKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

	require.NoError(t, cfg.Validate())
	require.Equal(t, uint64(100), cfg.Shop.BuyPrice)
	require.Equal(t, uint64(90), cfg.Shop.SellPrice)
	require.Equal(t, 10, cfg.Shop.MintCount)
}

func TestValidateCollectsErrors(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "bogus"
	cfg.Shop.BuyPrice = 0
	cfg.Redis.Addr = ""

	err := cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown mode")
	require.Contains(t, err.Error(), "buy_price")
	require.Contains(t, err.Error(), "redis: addr")
}

func TestValidateOperatorKeyRequired(t *testing.T) {
	cfg := Defaults()

	err := cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "operator")
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
mode = "demo"

[shop]
buy_price = 250
mint_count = 5

[server]
port = 9100
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, "demo", cfg.Mode)
	require.Equal(t, uint64(250), cfg.Shop.BuyPrice)
	require.Equal(t, 5, cfg.Shop.MintCount)
	// Untouched fields keep their defaults.
	require.Equal(t, uint64(90), cfg.Shop.SellPrice)
	require.Equal(t, 9100, cfg.Server.Port)
}

func TestEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(""), 0o644))

	t.Setenv("NFTSHOP_SHOP_BUY_PRICE", "300")
	t.Setenv("NFTSHOP_MODE", "demo")
	t.Setenv("NFTSHOP_SERVER_CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, uint64(300), cfg.Shop.BuyPrice)
	require.Equal(t, "demo", cfg.Mode)
	require.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
}

func TestArchiveIntervalParsing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[archive]
enabled = true
retention_days = 30
interval = "12h"
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.True(t, cfg.Archive.Enabled)
	require.Equal(t, "12h0m0s", cfg.Archive.Interval.String())
}
