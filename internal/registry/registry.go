// Package registry implements the in-memory non-fungible asset ledger the
// marketplace trades against. It tracks ownership and per-asset transfer
// approvals; currency never moves through it.
package registry

import (
	"sort"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/nftshop/internal/domain"
)

// Registry is a non-fungible asset ledger. It implements
// domain.AssetRegistry. Methods are not safe for concurrent use; callers
// serialize access the same way they serialize marketplace transactions.
type Registry struct {
	owners    map[domain.AssetID]common.Address
	approvals map[domain.AssetID]common.Address
	nextID    domain.AssetID
}

// New creates an empty Registry. Minted ids start at 1.
func New() *Registry {
	return &Registry{
		owners:    make(map[domain.AssetID]common.Address),
		approvals: make(map[domain.AssetID]common.Address),
		nextID:    1,
	}
}

// Mint creates a new asset owned by to and returns its id.
func (r *Registry) Mint(to common.Address) domain.AssetID {
	id := r.nextID
	r.nextID++
	r.owners[id] = to
	return id
}

// MintBatch creates count assets owned by to and returns their ids.
func (r *Registry) MintBatch(to common.Address, count int) []domain.AssetID {
	ids := make([]domain.AssetID, 0, count)
	for i := 0; i < count; i++ {
		ids = append(ids, r.Mint(to))
	}
	return ids
}

// OwnerOf returns the current owner of the asset.
func (r *Registry) OwnerOf(id domain.AssetID) (common.Address, error) {
	owner, ok := r.owners[id]
	if !ok {
		return common.Address{}, domain.ErrAssetNotFound
	}
	return owner, nil
}

// Approve grants spender the right to transfer the asset. Only the current
// owner may approve; approving the zero address clears any prior approval.
func (r *Registry) Approve(caller, spender common.Address, id domain.AssetID) error {
	owner, ok := r.owners[id]
	if !ok {
		return domain.ErrAssetNotFound
	}
	if owner != caller {
		return domain.ErrNotOwner
	}
	if spender == (common.Address{}) {
		delete(r.approvals, id)
		return nil
	}
	r.approvals[id] = spender
	return nil
}

// GetApproved returns the account approved for the asset, or the zero
// address when none is set.
func (r *Registry) GetApproved(id domain.AssetID) common.Address {
	return r.approvals[id]
}

// IsApprovedForTransfer reports whether spender may move the asset.
func (r *Registry) IsApprovedForTransfer(id domain.AssetID, spender common.Address) bool {
	return r.approvals[id] == spender
}

// TransferFrom reassigns ownership from -> to. The spender must be the
// current owner or hold approval for the asset. A successful transfer
// clears the asset's approval.
func (r *Registry) TransferFrom(spender, from, to common.Address, id domain.AssetID) error {
	owner, ok := r.owners[id]
	if !ok {
		return domain.ErrAssetNotFound
	}
	if owner != from {
		return domain.ErrNotOwner
	}
	if spender != owner && r.approvals[id] != spender {
		return domain.ErrNotApproved
	}
	r.owners[id] = to
	delete(r.approvals, id)
	return nil
}

// AssetsOf returns the ids owned by account in ascending order.
func (r *Registry) AssetsOf(account common.Address) []domain.AssetID {
	var ids []domain.AssetID
	for id, owner := range r.owners {
		if owner == account {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// All returns every asset with its owner and approval, ordered by id.
func (r *Registry) All() []domain.Asset {
	assets := make([]domain.Asset, 0, len(r.owners))
	for id, owner := range r.owners {
		assets = append(assets, domain.Asset{
			ID:       id,
			Owner:    owner,
			Approved: r.approvals[id],
		})
	}
	sort.Slice(assets, func(i, j int) bool { return assets[i].ID < assets[j].ID })
	return assets
}

// TotalSupply returns the number of minted assets.
func (r *Registry) TotalSupply() int {
	return len(r.owners)
}
