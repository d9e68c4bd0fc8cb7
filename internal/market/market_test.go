package market

import (
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/nftshop/internal/domain"
	"github.com/alanyoungcy/nftshop/internal/ledger"
	"github.com/alanyoungcy/nftshop/internal/registry"
)

var (
	owner  = common.HexToAddress("0x0000000000000000000000000000000000000001")
	shop   = common.HexToAddress("0x00000000000000000000000000000000000000ff")
	buyer  = common.HexToAddress("0x00000000000000000000000000000000000000b1")
	buyer2 = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	seller = common.HexToAddress("0x00000000000000000000000000000000000000c1")
)

var blockTime = time.Unix(10_000_000_000, 0).UTC()

type fixture struct {
	reg *registry.Registry
	led *ledger.Ledger
	mkt *Marketplace
}

// newFixture mints ten assets into shop inventory and funds the trading
// accounts, mirroring a fresh deployment.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	reg := registry.New()
	led := ledger.New()
	reg.MintBatch(shop, 10)

	led.Deposit(buyer, 1_000)
	led.Deposit(buyer2, 1_000)
	led.Deposit(seller, 1_000)

	mkt := New(Config{
		Owner:   owner,
		Account: shop,
		Now:     func() time.Time { return blockTime },
	}, reg, led)

	return &fixture{reg: reg, led: led, mkt: mkt}
}

func lastEvent(t *testing.T, m *Marketplace) domain.Event {
	t.Helper()
	evts := m.Events()
	require.NotEmpty(t, evts)
	return evts[len(evts)-1]
}

func TestDefaultPrices(t *testing.T) {
	f := newFixture(t)

	require.Equal(t, uint64(100), f.mkt.BuyPrice())
	require.Equal(t, uint64(90), f.mkt.SellPrice())
}

func TestSetBuyPrice(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.mkt.SetBuyPrice(owner, 110))
	require.Equal(t, uint64(110), f.mkt.BuyPrice())

	evt := lastEvent(t, f.mkt)
	require.Equal(t, domain.EventBuyPriceChange, evt.Type)
	require.Equal(t, uint64(100), evt.OldPrice)
	require.Equal(t, uint64(110), evt.NewPrice)
	require.Equal(t, blockTime, evt.Timestamp)
}

func TestSetBuyPriceRejections(t *testing.T) {
	f := newFixture(t)

	require.ErrorIs(t, f.mkt.SetBuyPrice(buyer, 110), domain.ErrUnauthorized)
	require.ErrorIs(t, f.mkt.SetBuyPrice(owner, 0), domain.ErrInvalidPrice)
	require.Equal(t, uint64(100), f.mkt.BuyPrice())
	require.Empty(t, f.mkt.Events())
}

func TestSetSellPrice(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.mkt.SetSellPrice(owner, 80))
	require.Equal(t, uint64(80), f.mkt.SellPrice())

	evt := lastEvent(t, f.mkt)
	require.Equal(t, domain.EventSellPriceChange, evt.Type)
	require.Equal(t, uint64(90), evt.OldPrice)
	require.Equal(t, uint64(80), evt.NewPrice)
	require.Equal(t, blockTime, evt.Timestamp)
}

func TestSetSellPriceRejections(t *testing.T) {
	f := newFixture(t)

	require.ErrorIs(t, f.mkt.SetSellPrice(seller, 80), domain.ErrUnauthorized)
	require.ErrorIs(t, f.mkt.SetSellPrice(owner, 0), domain.ErrInvalidPrice)
	require.Equal(t, uint64(90), f.mkt.SellPrice())
}

func TestBuyFromShop(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.mkt.BuyFromShop(buyer, 1, 100))

	ownerOf, err := f.reg.OwnerOf(1)
	require.NoError(t, err)
	require.Equal(t, buyer, ownerOf)
	require.Equal(t, uint64(100), f.mkt.Balance())
	require.Equal(t, uint64(900), f.led.BalanceOf(buyer))

	evt := lastEvent(t, f.mkt)
	require.Equal(t, domain.EventBuyFromShop, evt.Type)
	require.Equal(t, domain.AssetID(1), evt.AssetID)
	require.Equal(t, buyer, evt.Account)
	require.Equal(t, uint64(100), evt.Amount)
	require.Equal(t, blockTime, evt.Timestamp)
}

func TestBuyFromShopRetainsSurplus(t *testing.T) {
	f := newFixture(t)

	// Overpayment is kept by the shop, not refunded.
	require.NoError(t, f.mkt.BuyFromShop(buyer, 1, 130))

	require.Equal(t, uint64(130), f.mkt.Balance())
	require.Equal(t, uint64(870), f.led.BalanceOf(buyer))
	require.Equal(t, uint64(130), lastEvent(t, f.mkt).Amount)
}

func TestBuyFromShopInsufficientPayment(t *testing.T) {
	f := newFixture(t)

	require.ErrorIs(t, f.mkt.BuyFromShop(buyer, 1, 99), domain.ErrInsufficientPayment)

	ownerOf, err := f.reg.OwnerOf(1)
	require.NoError(t, err)
	require.Equal(t, shop, ownerOf)
	require.Zero(t, f.mkt.Balance())
}

func TestBuyFromShopNotShopOwned(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.mkt.BuyFromShop(buyer, 1, 100))

	require.ErrorIs(t, f.mkt.BuyFromShop(buyer2, 1, 100), domain.ErrNotShopOwned)
	require.Equal(t, uint64(1_000), f.led.BalanceOf(buyer2))
}

func TestBuyFromShopUnknownAsset(t *testing.T) {
	f := newFixture(t)

	require.ErrorIs(t, f.mkt.BuyFromShop(buyer, 42, 100), domain.ErrAssetNotFound)
}

func TestBuyFromShopBuyerCannotCoverValue(t *testing.T) {
	f := newFixture(t)
	broke := common.HexToAddress("0x00000000000000000000000000000000000000dd")

	require.ErrorIs(t, f.mkt.BuyFromShop(broke, 1, 100), domain.ErrInsufficientFunds)
}

func TestSellToShop(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.mkt.BuyFromShop(seller, 1, 100))
	require.NoError(t, f.reg.Approve(seller, shop, 1))

	require.NoError(t, f.mkt.SellToShop(seller, 1))

	ownerOf, err := f.reg.OwnerOf(1)
	require.NoError(t, err)
	require.Equal(t, shop, ownerOf)
	// Shop paid 90 out of the 100 it collected.
	require.Equal(t, uint64(10), f.mkt.Balance())
	require.Equal(t, uint64(990), f.led.BalanceOf(seller))

	evt := lastEvent(t, f.mkt)
	require.Equal(t, domain.EventSellToShop, evt.Type)
	require.Equal(t, domain.AssetID(1), evt.AssetID)
	require.Equal(t, seller, evt.Account)
	require.Equal(t, uint64(90), evt.Amount)
	require.Equal(t, blockTime, evt.Timestamp)
}

func TestSellToShopNotOwner(t *testing.T) {
	f := newFixture(t)

	require.ErrorIs(t, f.mkt.SellToShop(seller, 1), domain.ErrNotOwner)
}

func TestSellToShopNotApproved(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.mkt.BuyFromShop(seller, 1, 100))

	require.ErrorIs(t, f.mkt.SellToShop(seller, 1), domain.ErrNotApproved)
}

func TestSellToShopInsufficientShopFunds(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.mkt.BuyFromShop(seller, 1, 100))
	require.NoError(t, f.reg.Approve(seller, shop, 1))

	// Raise the payout above the treasury balance of 100.
	require.NoError(t, f.mkt.SetSellPrice(owner, 200))

	require.ErrorIs(t, f.mkt.SellToShop(seller, 1), domain.ErrInsufficientShopFunds)

	ownerOf, err := f.reg.OwnerOf(1)
	require.NoError(t, err)
	require.Equal(t, seller, ownerOf)
}

func TestSellToShopClearsListing(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.mkt.BuyFromShop(seller, 1, 100))
	require.NoError(t, f.mkt.AddToAuction(seller, 1, 200))
	require.NoError(t, f.reg.Approve(seller, shop, 1))

	require.NoError(t, f.mkt.SellToShop(seller, 1))

	// The asset left its lister, so the listing is force-cleared.
	require.False(t, f.mkt.IsListed(1))

	evts := f.mkt.Events()
	require.Equal(t, domain.EventAuctionRemoved, evts[len(evts)-2].Type)
	require.Equal(t, domain.EventSellToShop, evts[len(evts)-1].Type)
}

func TestAddToAuction(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.mkt.BuyFromShop(seller, 1, 100))
	require.NoError(t, f.mkt.AddToAuction(seller, 1, 200))

	require.True(t, f.mkt.IsListed(1))
	require.Equal(t, uint64(200), f.mkt.AuctionPrice(1))

	listings := f.mkt.Listings()
	require.Len(t, listings, 1)
	require.Equal(t, domain.Listing{
		AssetID:  1,
		Seller:   seller,
		ListedAt: blockTime,
		Price:    200,
	}, listings[0])

	evt := lastEvent(t, f.mkt)
	require.Equal(t, domain.EventAuctionAdded, evt.Type)
	require.Equal(t, domain.AssetID(1), evt.AssetID)
	require.Equal(t, seller, evt.Account)
	require.Equal(t, uint64(200), evt.Amount)
	require.Equal(t, blockTime, evt.Timestamp)
}

func TestAddToAuctionRejections(t *testing.T) {
	f := newFixture(t)

	// Caller does not own the asset.
	require.ErrorIs(t, f.mkt.AddToAuction(seller, 1, 200), domain.ErrNotOwner)

	require.NoError(t, f.mkt.BuyFromShop(seller, 1, 100))

	// Zero price.
	require.ErrorIs(t, f.mkt.AddToAuction(seller, 1, 0), domain.ErrInvalidPrice)

	// Double listing.
	require.NoError(t, f.mkt.AddToAuction(seller, 1, 200))
	require.ErrorIs(t, f.mkt.AddToAuction(seller, 1, 200), domain.ErrAlreadyListed)
}

func TestRemoveFromAuction(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.mkt.BuyFromShop(seller, 1, 100))
	require.NoError(t, f.mkt.AddToAuction(seller, 1, 200))

	require.NoError(t, f.mkt.RemoveFromAuction(seller, 1))

	require.False(t, f.mkt.IsListed(1))
	require.Zero(t, f.mkt.AuctionPrice(1))
	require.Empty(t, f.mkt.Listings())

	evt := lastEvent(t, f.mkt)
	require.Equal(t, domain.EventAuctionRemoved, evt.Type)
	require.Equal(t, domain.AssetID(1), evt.AssetID)
	require.Equal(t, seller, evt.Account)
	require.Equal(t, blockTime, evt.Timestamp)
}

func TestRemoveFromAuctionRejections(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.mkt.BuyFromShop(seller, 1, 100))
	require.NoError(t, f.mkt.AddToAuction(seller, 1, 200))

	// Only the current owner may withdraw, regardless of who listed.
	require.ErrorIs(t, f.mkt.RemoveFromAuction(buyer, 1), domain.ErrNotOwner)
	require.True(t, f.mkt.IsListed(1))

	require.NoError(t, f.mkt.BuyFromShop(seller, 2, 100))
	require.ErrorIs(t, f.mkt.RemoveFromAuction(seller, 2), domain.ErrNotListed)
}

func TestRemoveFromAuctionPreservesOtherListings(t *testing.T) {
	f := newFixture(t)

	for _, id := range []domain.AssetID{1, 2, 3} {
		require.NoError(t, f.mkt.BuyFromShop(seller, id, 100))
		require.NoError(t, f.mkt.AddToAuction(seller, id, 200+uint64(id)))
	}

	require.NoError(t, f.mkt.RemoveFromAuction(seller, 2))

	listings := f.mkt.Listings()
	require.Len(t, listings, 2)
	require.Equal(t, domain.AssetID(1), listings[0].AssetID)
	require.Equal(t, uint64(201), listings[0].Price)
	require.Equal(t, domain.AssetID(3), listings[1].AssetID)
	require.Equal(t, uint64(203), listings[1].Price)
}

func TestBuyFromAuction(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.mkt.BuyFromShop(seller, 1, 100))
	require.NoError(t, f.mkt.AddToAuction(seller, 1, 200))
	require.NoError(t, f.reg.Approve(seller, shop, 1))

	sellerBefore := f.led.BalanceOf(seller)
	shopBefore := f.mkt.Balance()
	buyerBefore := f.led.BalanceOf(buyer)

	require.NoError(t, f.mkt.BuyFromAuction(buyer, 1, 200))

	// fee = floor(200 * 5%) = 10
	require.Equal(t, sellerBefore+190, f.led.BalanceOf(seller))
	require.Equal(t, shopBefore+10, f.mkt.Balance())
	require.Equal(t, buyerBefore-200, f.led.BalanceOf(buyer))

	ownerOf, err := f.reg.OwnerOf(1)
	require.NoError(t, err)
	require.Equal(t, buyer, ownerOf)

	require.False(t, f.mkt.IsListed(1))
	require.Zero(t, f.mkt.AuctionPrice(1))

	evt := lastEvent(t, f.mkt)
	require.Equal(t, domain.EventAuctionBought, evt.Type)
	require.Equal(t, domain.AssetID(1), evt.AssetID)
	require.Equal(t, buyer, evt.Account)
	require.Equal(t, uint64(200), evt.Amount)
	require.Equal(t, blockTime, evt.Timestamp)
}

func TestBuyFromAuctionFeeTruncation(t *testing.T) {
	cases := []struct {
		price uint64
		fee   uint64
	}{
		{200, 10},
		{199, 9},
		{101, 5},
		{19, 0},
		{21, 1},
		{777, 38},
	}

	for _, tc := range cases {
		f := newFixture(t)

		require.NoError(t, f.mkt.BuyFromShop(seller, 1, 100))
		require.NoError(t, f.mkt.AddToAuction(seller, 1, tc.price))
		require.NoError(t, f.reg.Approve(seller, shop, 1))

		sellerBefore := f.led.BalanceOf(seller)
		shopBefore := f.mkt.Balance()

		require.NoError(t, f.mkt.BuyFromAuction(buyer, 1, tc.price))

		require.Equal(t, sellerBefore+tc.price-tc.fee, f.led.BalanceOf(seller),
			"price %d", tc.price)
		require.Equal(t, shopBefore+tc.fee, f.mkt.Balance(),
			"price %d", tc.price)
	}
}

func TestBuyFromAuctionRetainsSurplus(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.mkt.BuyFromShop(seller, 1, 100))
	require.NoError(t, f.mkt.AddToAuction(seller, 1, 200))
	require.NoError(t, f.reg.Approve(seller, shop, 1))

	shopBefore := f.mkt.Balance()

	require.NoError(t, f.mkt.BuyFromAuction(buyer, 1, 250))

	// Seller gets price-fee off the asking price; the 50 surplus stays with
	// the shop alongside the fee.
	require.Equal(t, uint64(1_000-100+190), f.led.BalanceOf(seller))
	require.Equal(t, shopBefore+10+50, f.mkt.Balance())
	require.Equal(t, uint64(750), f.led.BalanceOf(buyer))
	require.Equal(t, uint64(200), lastEvent(t, f.mkt).Amount)
}

func TestBuyFromAuctionRejections(t *testing.T) {
	f := newFixture(t)

	// Not listed.
	require.ErrorIs(t, f.mkt.BuyFromAuction(buyer, 1, 200), domain.ErrNotListed)

	require.NoError(t, f.mkt.BuyFromShop(seller, 1, 100))
	require.NoError(t, f.mkt.AddToAuction(seller, 1, 200))

	// Seller buying their own listing.
	require.ErrorIs(t, f.mkt.BuyFromAuction(seller, 1, 200), domain.ErrSelfPurchase)

	// Payment below asking price.
	require.ErrorIs(t, f.mkt.BuyFromAuction(buyer, 1, 199), domain.ErrInsufficientPayment)

	// No approval granted to the shop.
	require.ErrorIs(t, f.mkt.BuyFromAuction(buyer, 1, 200), domain.ErrNotApproved)

	require.True(t, f.mkt.IsListed(1))
	require.Equal(t, uint64(1_000), f.led.BalanceOf(buyer))
}

func TestBuyFromAuctionSellerNoLongerOwner(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.mkt.BuyFromShop(seller, 1, 100))
	require.NoError(t, f.mkt.AddToAuction(seller, 1, 200))
	require.NoError(t, f.reg.Approve(seller, shop, 1))

	// The asset moves outside the marketplace after listing.
	require.NoError(t, f.reg.TransferFrom(seller, seller, buyer2, 1))

	require.ErrorIs(t, f.mkt.BuyFromAuction(buyer, 1, 200), domain.ErrNotApproved)
}

func TestIsListedLifecycle(t *testing.T) {
	f := newFixture(t)

	require.False(t, f.mkt.IsListed(1))

	require.NoError(t, f.mkt.BuyFromShop(seller, 1, 100))
	require.NoError(t, f.mkt.AddToAuction(seller, 1, 200))
	require.True(t, f.mkt.IsListed(1))

	require.NoError(t, f.mkt.RemoveFromAuction(seller, 1))
	require.False(t, f.mkt.IsListed(1))

	require.NoError(t, f.mkt.AddToAuction(seller, 1, 200))
	require.NoError(t, f.reg.Approve(seller, shop, 1))
	require.NoError(t, f.mkt.BuyFromAuction(buyer, 1, 200))
	require.False(t, f.mkt.IsListed(1))
}

func TestWithdrawAll(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.mkt.BuyFromShop(buyer, 1, 100))
	require.Equal(t, uint64(100), f.mkt.Balance())

	require.NoError(t, f.mkt.WithdrawAll(owner))

	require.Zero(t, f.mkt.Balance())
	require.Equal(t, uint64(100), f.led.BalanceOf(owner))
}

func TestWithdrawAllUnauthorized(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.mkt.BuyFromShop(buyer, 1, 100))
	require.ErrorIs(t, f.mkt.WithdrawAll(buyer), domain.ErrUnauthorized)
	require.Equal(t, uint64(100), f.mkt.Balance())
}

func TestWithdrawAllZeroBalanceNoop(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.mkt.WithdrawAll(owner))
	require.Zero(t, f.led.BalanceOf(owner))
}

func TestSinkReceivesEventsInOrder(t *testing.T) {
	f := newFixture(t)

	var got []domain.EventType
	f.mkt.SetSink(func(evt domain.Event) { got = append(got, evt.Type) })

	require.NoError(t, f.mkt.SetBuyPrice(owner, 120))
	require.NoError(t, f.mkt.BuyFromShop(buyer, 1, 120))

	require.Equal(t, []domain.EventType{
		domain.EventBuyPriceChange,
		domain.EventBuyFromShop,
	}, got)
}

// Shop purchase followed by a relist attempt by the previous holder.
func TestScenarioShopPurchase(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.mkt.BuyFromShop(buyer, 1, 100))

	ownerOf, err := f.reg.OwnerOf(1)
	require.NoError(t, err)
	require.Equal(t, buyer, ownerOf)
	require.Equal(t, uint64(100), f.mkt.Balance())

	require.ErrorIs(t, f.mkt.AddToAuction(seller, 1, 200), domain.ErrNotOwner)
}

// Full auction round trip: shop sale, listing, approval, auction purchase.
func TestScenarioAuctionRoundTrip(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.mkt.BuyFromShop(seller, 1, 100))
	require.NoError(t, f.mkt.AddToAuction(seller, 1, 200))
	require.NoError(t, f.reg.Approve(seller, shop, 1))
	require.NoError(t, f.mkt.BuyFromAuction(buyer, 1, 200))

	// Seller: -100 shop purchase, +190 auction proceeds.
	require.Equal(t, uint64(1_090), f.led.BalanceOf(seller))
	// Shop: +100 from the sale, +10 auction fee.
	require.Equal(t, uint64(110), f.mkt.Balance())

	ownerOf, err := f.reg.OwnerOf(1)
	require.NoError(t, err)
	require.Equal(t, buyer, ownerOf)
	require.False(t, f.mkt.IsListed(1))
}
