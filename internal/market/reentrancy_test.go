package market

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/nftshop/internal/domain"
)

// hostileAccount re-enters the marketplace from inside its payment-receipt
// hook. Each inbound payment triggers the configured attack exactly once;
// the nested call's error is recorded for the test to inspect.
type hostileAccount struct {
	addr   common.Address
	attack func() error
	nested []error
	armed  bool
}

func (h *hostileAccount) ReceivePayment(from common.Address, amount uint64) {
	if !h.armed {
		return
	}
	h.armed = false
	h.nested = append(h.nested, h.attack())
}

var hacker = common.HexToAddress("0x000000000000000000000000000000000000dead")

func TestReentrantSellToShopCannotSellTwice(t *testing.T) {
	f := newFixture(t)
	f.led.Deposit(hacker, 1_000)

	require.NoError(t, f.mkt.BuyFromShop(hacker, 1, 100))
	require.NoError(t, f.reg.Approve(hacker, shop, 1))

	// Give the treasury room for two payouts so only the ordering, not the
	// funds check, can stop the double sale.
	f.led.Deposit(shop, 1_000)

	h := &hostileAccount{addr: hacker, armed: true}
	h.attack = func() error { return f.mkt.SellToShop(hacker, 1) }
	f.led.RegisterReceiver(hacker, h)

	shopBefore := f.mkt.Balance()
	hackerBefore := f.led.BalanceOf(hacker)

	require.NoError(t, f.mkt.SellToShop(hacker, 1))

	// The nested call ran, saw the asset already in shop hands, and failed.
	require.Len(t, h.nested, 1)
	require.ErrorIs(t, h.nested[0], domain.ErrNotOwner)

	// Exactly one payout left the treasury.
	require.Equal(t, shopBefore-90, f.mkt.Balance())
	require.Equal(t, hackerBefore+90, f.led.BalanceOf(hacker))

	ownerOf, err := f.reg.OwnerOf(1)
	require.NoError(t, err)
	require.Equal(t, shop, ownerOf)
}

func TestReentrantBuyFromAuctionCannotBuyTwice(t *testing.T) {
	f := newFixture(t)
	f.led.Deposit(hacker, 1_000)

	// The hostile account is the seller: it receives the proceeds payout and
	// re-enters from the hook, trying to buy its freshly sold listing back
	// for a second settlement.
	require.NoError(t, f.mkt.BuyFromShop(hacker, 1, 100))
	require.NoError(t, f.mkt.AddToAuction(hacker, 1, 200))
	require.NoError(t, f.reg.Approve(hacker, shop, 1))

	h := &hostileAccount{addr: hacker, armed: true}
	h.attack = func() error { return f.mkt.BuyFromAuction(buyer2, 1, 200) }
	f.led.RegisterReceiver(hacker, h)

	shopBefore := f.mkt.Balance()

	require.NoError(t, f.mkt.BuyFromAuction(buyer, 1, 200))

	// The listing was deleted before the payout, so the nested purchase
	// found nothing to buy.
	require.Len(t, h.nested, 1)
	require.ErrorIs(t, h.nested[0], domain.ErrNotListed)

	// One fee, one proceeds payout, one asset transfer.
	require.Equal(t, shopBefore+10, f.mkt.Balance())
	require.Equal(t, uint64(1_000-100+190), f.led.BalanceOf(hacker))
	require.Equal(t, uint64(800), f.led.BalanceOf(buyer))
	require.Equal(t, uint64(1_000), f.led.BalanceOf(buyer2))

	ownerOf, err := f.reg.OwnerOf(1)
	require.NoError(t, err)
	require.Equal(t, buyer, ownerOf)
}

func TestReentrantCallObservesCommittedState(t *testing.T) {
	f := newFixture(t)
	f.led.Deposit(hacker, 1_000)

	require.NoError(t, f.mkt.BuyFromShop(hacker, 1, 100))
	require.NoError(t, f.mkt.AddToAuction(hacker, 1, 200))
	require.NoError(t, f.reg.Approve(hacker, shop, 1))

	var listedDuringPayout bool
	var priceDuringPayout uint64
	h := &hostileAccount{addr: hacker, armed: true}
	h.attack = func() error {
		listedDuringPayout = f.mkt.IsListed(1)
		priceDuringPayout = f.mkt.AuctionPrice(1)
		return nil
	}
	f.led.RegisterReceiver(hacker, h)

	require.NoError(t, f.mkt.BuyFromAuction(buyer, 1, 200))

	// By payout time the listing is gone: reads from foreign code see the
	// post-mutation state, never an in-progress transaction.
	require.False(t, listedDuringPayout)
	require.Zero(t, priceDuringPayout)
}

func TestReentrantNestedSaleOfDifferentAssetIsConsistent(t *testing.T) {
	f := newFixture(t)
	f.led.Deposit(hacker, 1_000)

	require.NoError(t, f.mkt.BuyFromShop(hacker, 1, 100))
	require.NoError(t, f.mkt.BuyFromShop(hacker, 2, 100))
	require.NoError(t, f.reg.Approve(hacker, shop, 1))
	require.NoError(t, f.reg.Approve(hacker, shop, 2))

	// Selling a second, distinct asset from inside the hook is a legitimate
	// nested transaction and must settle exactly once.
	h := &hostileAccount{addr: hacker, armed: true}
	h.attack = func() error { return f.mkt.SellToShop(hacker, 2) }
	f.led.RegisterReceiver(hacker, h)

	require.NoError(t, f.mkt.SellToShop(hacker, 1))

	require.Len(t, h.nested, 1)
	require.NoError(t, h.nested[0])

	// Shop collected 200 across the two purchases and paid out 90 twice.
	require.Equal(t, uint64(20), f.mkt.Balance())
	require.Equal(t, uint64(1_000-200+180), f.led.BalanceOf(hacker))

	for _, id := range []domain.AssetID{1, 2} {
		ownerOf, err := f.reg.OwnerOf(id)
		require.NoError(t, err)
		require.Equal(t, shop, ownerOf)
	}
}
