package domain

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// EventType names a marketplace state transition.
type EventType string

const (
	EventBuyPriceChange  EventType = "buy_price_change"
	EventSellPriceChange EventType = "sell_price_change"
	EventBuyFromShop     EventType = "buy_from_shop"
	EventSellToShop      EventType = "sell_to_shop"
	EventAuctionAdded    EventType = "auction_added"
	EventAuctionRemoved  EventType = "auction_removed"
	EventAuctionBought   EventType = "auction_bought"
)

// Event is one entry in the marketplace's ordered, append-only event stream.
// Exactly one event is emitted per state transition. Field usage depends on
// the type:
//
//   - price changes carry OldPrice, NewPrice
//   - shop trades carry Account (buyer/seller), AssetID, Amount
//   - auction events carry AssetID, Account (seller or buyer), Amount (price)
//
// Timestamp is the block time of the executing transaction.
type Event struct {
	ID        string
	Type      EventType
	AssetID   AssetID
	Account   common.Address
	Amount    uint64
	OldPrice  uint64
	NewPrice  uint64
	Timestamp time.Time
}
