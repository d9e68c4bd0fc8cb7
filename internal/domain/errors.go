package domain

import "errors"

// Marketplace precondition failures. Every failure is detected before any
// state mutation, so a rejected call has no effect. Clients branch on these
// sentinels, and the HTTP layer maps them to stable reason strings.
var (
	ErrUnauthorized          = errors.New("caller is not the shop owner")
	ErrInvalidPrice          = errors.New("price must be greater than zero")
	ErrInsufficientPayment   = errors.New("sent amount is below the required price")
	ErrNotShopOwned          = errors.New("shop is not the owner of this asset")
	ErrNotOwner              = errors.New("caller is not the owner of this asset")
	ErrNotApproved           = errors.New("shop has no transfer approval for this asset")
	ErrInsufficientShopFunds = errors.New("shop balance is below the required payout")
	ErrAlreadyListed         = errors.New("asset is already listed for auction")
	ErrNotListed             = errors.New("asset is not listed for auction")
	ErrSelfPurchase          = errors.New("seller cannot buy their own listing")
)

// Collaborator and infrastructure failures.
var (
	ErrAssetNotFound     = errors.New("asset does not exist")
	ErrInsufficientFunds = errors.New("account balance is below the transfer amount")
	ErrNotFound          = errors.New("not found")
	ErrAlreadyExists     = errors.New("already exists")
)
