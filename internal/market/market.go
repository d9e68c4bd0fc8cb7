// Package market implements the marketplace engine: fixed-price inventory
// trade against the shop's own holdings, peer-to-peer auctions brokered for
// a percentage fee, and the treasury.
//
// The execution model is single-threaded and transactional. Each exported
// operation either completes as a whole or returns an error having changed
// nothing. The one subtlety is reentrancy: an outbound payment can run
// arbitrary code in the recipient's payment hook, which may call back into
// the engine before the original operation returns. Every operation
// therefore commits all of its own state (listing removal, asset transfer,
// balance accounting) before issuing the outbound payment, so a reentrant
// call only ever observes consistent post-mutation state.
package market

import (
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/nftshop/internal/domain"
)

// Auction sales retain feePercent of the listing price, rounded down.
const feePercent = 5

// Default prices applied when the config leaves them zero.
const (
	DefaultBuyPrice  = 100
	DefaultSellPrice = 90
)

// Config parameterises a Marketplace.
type Config struct {
	// Owner is the account allowed to change prices and withdraw the
	// treasury.
	Owner common.Address

	// Account is the marketplace's own ledger account. Payments for shop
	// purchases, auction fees, and surpluses accumulate here.
	Account common.Address

	// BuyPrice and SellPrice are the initial fixed prices. Zero values fall
	// back to the defaults.
	BuyPrice  uint64
	SellPrice uint64

	// Now supplies the block time stamped onto events and listings.
	// Defaults to time.Now.
	Now func() time.Time
}

// Sink receives every emitted event, in order, synchronously within the
// emitting transaction.
type Sink func(domain.Event)

// Marketplace is the engine. Not safe for concurrent use: the service layer
// serializes transactions, and reentrant calls from payment hooks run on
// the same goroutine as the operation that triggered them.
type Marketplace struct {
	owner     common.Address
	account   common.Address
	registry  domain.AssetRegistry
	ledger    domain.Ledger
	buyPrice  uint64
	sellPrice uint64
	listings  map[domain.AssetID]domain.Listing
	journal   []domain.Event
	sink      Sink
	now       func() time.Time
}

// New creates a Marketplace trading against the given registry and ledger.
func New(cfg Config, reg domain.AssetRegistry, led domain.Ledger) *Marketplace {
	if cfg.BuyPrice == 0 {
		cfg.BuyPrice = DefaultBuyPrice
	}
	if cfg.SellPrice == 0 {
		cfg.SellPrice = DefaultSellPrice
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Marketplace{
		owner:     cfg.Owner,
		account:   cfg.Account,
		registry:  reg,
		ledger:    led,
		buyPrice:  cfg.BuyPrice,
		sellPrice: cfg.SellPrice,
		listings:  make(map[domain.AssetID]domain.Listing),
		now:       cfg.Now,
	}
}

// SetSink attaches an event sink. The engine's internal journal is kept
// regardless.
func (m *Marketplace) SetSink(s Sink) { m.sink = s }

// Owner returns the owning account.
func (m *Marketplace) Owner() common.Address { return m.owner }

// Account returns the marketplace's own ledger account.
func (m *Marketplace) Account() common.Address { return m.account }

// BuyPrice returns the price a purchaser pays for an asset from inventory.
func (m *Marketplace) BuyPrice() uint64 { return m.buyPrice }

// SellPrice returns the price the shop pays when acquiring an asset.
func (m *Marketplace) SellPrice() uint64 { return m.sellPrice }

// Balance returns the marketplace's current currency balance.
func (m *Marketplace) Balance() uint64 { return m.ledger.BalanceOf(m.account) }

// Events returns the ordered event journal.
func (m *Marketplace) Events() []domain.Event {
	out := make([]domain.Event, len(m.journal))
	copy(out, m.journal)
	return out
}

func (m *Marketplace) emit(evt domain.Event) {
	m.journal = append(m.journal, evt)
	if m.sink != nil {
		m.sink(evt)
	}
}

// SetBuyPrice updates the fixed shop buy price. Owner only; zero is invalid.
func (m *Marketplace) SetBuyPrice(caller common.Address, price uint64) error {
	if caller != m.owner {
		return domain.ErrUnauthorized
	}
	if price == 0 {
		return domain.ErrInvalidPrice
	}

	old := m.buyPrice
	m.buyPrice = price
	m.emit(domain.Event{
		Type:      domain.EventBuyPriceChange,
		OldPrice:  old,
		NewPrice:  price,
		Timestamp: m.now(),
	})
	return nil
}

// SetSellPrice updates the fixed shop sell price. Owner only; zero is invalid.
func (m *Marketplace) SetSellPrice(caller common.Address, price uint64) error {
	if caller != m.owner {
		return domain.ErrUnauthorized
	}
	if price == 0 {
		return domain.ErrInvalidPrice
	}

	old := m.sellPrice
	m.sellPrice = price
	m.emit(domain.Event{
		Type:      domain.EventSellPriceChange,
		OldPrice:  old,
		NewPrice:  price,
		Timestamp: m.now(),
	})
	return nil
}

// BuyFromShop sells an asset out of shop inventory to the caller for value.
// Surplus beyond the buy price is retained by the shop, not refunded.
func (m *Marketplace) BuyFromShop(caller common.Address, id domain.AssetID, value uint64) error {
	if value < m.buyPrice {
		return domain.ErrInsufficientPayment
	}
	owner, err := m.registry.OwnerOf(id)
	if err != nil {
		return err
	}
	if owner != m.account {
		return domain.ErrNotShopOwned
	}
	if m.ledger.BalanceOf(caller) < value {
		return domain.ErrInsufficientFunds
	}

	// All preconditions hold; neither mutation below can fail. The payment
	// lands in the shop account, which has no hook, so no foreign code runs
	// inside this transaction.
	if err := m.ledger.Transfer(caller, m.account, value); err != nil {
		return err
	}
	if err := m.registry.TransferFrom(m.account, m.account, caller, id); err != nil {
		return err
	}

	m.emit(domain.Event{
		Type:      domain.EventBuyFromShop,
		AssetID:   id,
		Account:   caller,
		Amount:    value,
		Timestamp: m.now(),
	})
	return nil
}

// SellToShop buys the caller's asset into shop inventory at the fixed sell
// price. The asset transfer and all bookkeeping complete before the payout,
// which is the only step that can run foreign code.
func (m *Marketplace) SellToShop(caller common.Address, id domain.AssetID) error {
	owner, err := m.registry.OwnerOf(id)
	if err != nil {
		return err
	}
	if owner != caller {
		return domain.ErrNotOwner
	}
	if !m.registry.IsApprovedForTransfer(id, m.account) {
		return domain.ErrNotApproved
	}
	price := m.sellPrice
	if m.ledger.BalanceOf(m.account) < price {
		return domain.ErrInsufficientShopFunds
	}

	if err := m.registry.TransferFrom(m.account, caller, m.account, id); err != nil {
		return err
	}

	// The asset left its lister; force-clear any active listing before the
	// payout can hand control to the caller's hook.
	if l, ok := m.listings[id]; ok {
		delete(m.listings, id)
		m.emit(domain.Event{
			Type:      domain.EventAuctionRemoved,
			AssetID:   id,
			Account:   l.Seller,
			Timestamp: m.now(),
		})
	}

	if err := m.ledger.Transfer(m.account, caller, price); err != nil {
		return err
	}

	m.emit(domain.Event{
		Type:      domain.EventSellToShop,
		AssetID:   id,
		Account:   caller,
		Amount:    price,
		Timestamp: m.now(),
	})
	return nil
}

// AddToAuction lists the caller's asset at the given asking price.
func (m *Marketplace) AddToAuction(caller common.Address, id domain.AssetID, price uint64) error {
	owner, err := m.registry.OwnerOf(id)
	if err != nil {
		return err
	}
	if owner != caller {
		return domain.ErrNotOwner
	}
	if price == 0 {
		return domain.ErrInvalidPrice
	}
	if _, ok := m.listings[id]; ok {
		return domain.ErrAlreadyListed
	}

	ts := m.now()
	m.listings[id] = domain.Listing{
		AssetID:  id,
		Seller:   caller,
		ListedAt: ts,
		Price:    price,
	}
	m.emit(domain.Event{
		Type:      domain.EventAuctionAdded,
		AssetID:   id,
		Account:   caller,
		Amount:    price,
		Timestamp: ts,
	})
	return nil
}

// RemoveFromAuction withdraws a listing. The check is current ownership, not
// listing-seller identity: whoever holds the asset may withdraw it.
func (m *Marketplace) RemoveFromAuction(caller common.Address, id domain.AssetID) error {
	owner, err := m.registry.OwnerOf(id)
	if err != nil {
		return err
	}
	if owner != caller {
		return domain.ErrNotOwner
	}
	l, ok := m.listings[id]
	if !ok {
		return domain.ErrNotListed
	}

	delete(m.listings, id)
	m.emit(domain.Event{
		Type:      domain.EventAuctionRemoved,
		AssetID:   id,
		Account:   l.Seller,
		Timestamp: m.now(),
	})
	return nil
}

// BuyFromAuction purchases a listed asset for value. The shop retains
// floor(price*5%) plus any surplus beyond the asking price; the seller
// receives the remainder. The listing is deleted and the asset transferred
// before the seller payout is issued.
func (m *Marketplace) BuyFromAuction(caller common.Address, id domain.AssetID, value uint64) error {
	l, ok := m.listings[id]
	if !ok {
		return domain.ErrNotListed
	}
	if caller == l.Seller {
		return domain.ErrSelfPurchase
	}
	if value < l.Price {
		return domain.ErrInsufficientPayment
	}
	if !m.registry.IsApprovedForTransfer(id, m.account) {
		return domain.ErrNotApproved
	}
	owner, err := m.registry.OwnerOf(id)
	if err != nil {
		return err
	}
	if owner != l.Seller {
		return domain.ErrNotOwner
	}
	if m.ledger.BalanceOf(caller) < value {
		return domain.ErrInsufficientFunds
	}

	fee := l.Price * feePercent / 100
	proceeds := l.Price - fee

	// Collect the full payment into the shop account (no hook), move the
	// asset, and delete the listing. Only then pay the seller: the payout is
	// the single step that can re-enter, and by now every precondition a
	// reentrant call could exploit is already gone.
	if err := m.ledger.Transfer(caller, m.account, value); err != nil {
		return err
	}
	if err := m.registry.TransferFrom(m.account, l.Seller, caller, id); err != nil {
		return err
	}
	delete(m.listings, id)

	if err := m.ledger.Transfer(m.account, l.Seller, proceeds); err != nil {
		return err
	}

	m.emit(domain.Event{
		Type:      domain.EventAuctionBought,
		AssetID:   id,
		Account:   caller,
		Amount:    l.Price,
		Timestamp: m.now(),
	})
	return nil
}

// IsListed reports whether the asset has an active listing.
func (m *Marketplace) IsListed(id domain.AssetID) bool {
	_, ok := m.listings[id]
	return ok
}

// AuctionPrice returns the asking price of the asset's listing, or 0 when
// the asset is not listed.
func (m *Marketplace) AuctionPrice(id domain.AssetID) uint64 {
	return m.listings[id].Price
}

// Listings returns the active listings ordered by asset id. Ordering is for
// determinism only; the collection itself is unordered.
func (m *Marketplace) Listings() []domain.Listing {
	out := make([]domain.Listing, 0, len(m.listings))
	for _, l := range m.listings {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AssetID < out[j].AssetID })
	return out
}

// WithdrawAll transfers the entire treasury balance to the owner. Owner
// only; a zero balance is a safe no-op.
func (m *Marketplace) WithdrawAll(caller common.Address) error {
	if caller != m.owner {
		return domain.ErrUnauthorized
	}
	amount := m.ledger.BalanceOf(m.account)
	if amount == 0 {
		return nil
	}
	return m.ledger.Transfer(m.account, m.owner, amount)
}
