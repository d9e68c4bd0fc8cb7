package domain

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Listing is an active auction entry: one asset offered by its owner at a
// fixed asking price, brokered by the marketplace for a percentage fee.
// At most one listing exists per asset at a time.
type Listing struct {
	AssetID  AssetID
	Seller   common.Address
	ListedAt time.Time
	Price    uint64
}
