// Package domain defines the marketplace's core types, errors, and the
// interfaces its collaborators implement.
package domain

import "github.com/ethereum/go-ethereum/common"

// AssetID identifies a unique, non-fungible asset in the registry.
type AssetID uint64

// Asset is a registry view of a single asset: its current owner and the
// account (if any) approved to transfer it.
type Asset struct {
	ID       AssetID
	Owner    common.Address
	Approved common.Address
}

// AssetRegistry is the narrow capability set the marketplace consumes from
// the external asset ledger. Ownership is never cached; every check is a
// fresh query at call time.
type AssetRegistry interface {
	// OwnerOf returns the current owner. It returns ErrAssetNotFound for
	// unknown ids.
	OwnerOf(id AssetID) (common.Address, error)

	// IsApprovedForTransfer reports whether spender may move the asset on the
	// owner's behalf.
	IsApprovedForTransfer(id AssetID, spender common.Address) bool

	// TransferFrom reassigns ownership from -> to. The spender is the account
	// executing the transfer; it must be the current owner or hold approval.
	// Any approval on the asset is cleared by a successful transfer.
	TransferFrom(spender, from, to common.Address, id AssetID) error
}
