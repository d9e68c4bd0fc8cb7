package app

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/nftshop/internal/config"
)

// Well-known hardhat development key, safe for tests.
const testPrivateKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

func demoConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Defaults()
	cfg.Mode = "demo"
	cfg.Operator.PrivateKey = testPrivateKey
	require.NoError(t, cfg.Validate())
	return &cfg
}

func TestWireDemoMode(t *testing.T) {
	cfg := demoConfig(t)

	deps, cleanup, err := Wire(context.Background(), cfg)
	require.NoError(t, err)
	defer cleanup()

	require.NotEqual(t, common.Address{}, deps.Owner)
	require.NotNil(t, deps.Registry)
	require.NotNil(t, deps.Ledger)
	require.NotNil(t, deps.Engine)

	// Demo mode runs entirely in memory.
	require.Nil(t, deps.EventStore)
	require.Nil(t, deps.ListingCache)
	require.Nil(t, deps.Archiver)
	require.Empty(t, deps.Pingers)

	shop := common.HexToAddress(cfg.Shop.Account)
	require.Equal(t, cfg.Shop.MintCount, deps.Registry.TotalSupply())
	require.Equal(t, cfg.Shop.InitialFunds, deps.Ledger.BalanceOf(shop))
	require.Equal(t, cfg.Shop.BuyPrice, deps.Engine.BuyPrice())
	require.Equal(t, cfg.Shop.SellPrice, deps.Engine.SellPrice())
}

func TestWireRejectsBadOperatorKey(t *testing.T) {
	cfg := demoConfig(t)
	cfg.Operator.PrivateKey = "not-a-key"

	_, _, err := Wire(context.Background(), cfg)
	require.Error(t, err)
	require.Contains(t, err.Error(), "operator key")
}

func TestRunDemoCompletesLifecycle(t *testing.T) {
	cfg := demoConfig(t)

	deps, cleanup, err := Wire(context.Background(), cfg)
	require.NoError(t, err)
	defer cleanup()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	require.NoError(t, runDemo(context.Background(), cfg, deps, logger))

	// The walkthrough ends with the shop owning asset 1 again and the
	// treasury drained to the operator.
	shop := common.HexToAddress(cfg.Shop.Account)
	owner, err := deps.Registry.OwnerOf(1)
	require.NoError(t, err)
	require.Equal(t, shop, owner)
	require.Zero(t, deps.Engine.Balance())
	require.NotZero(t, deps.Ledger.BalanceOf(deps.Owner))
	require.NotEmpty(t, deps.Engine.Events())
}
