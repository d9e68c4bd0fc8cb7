// Package ledger implements the native currency ledger. Every marketplace
// settlement moves value through it in the same transaction as the asset
// transfer; there is no deferred settlement.
package ledger

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/nftshop/internal/domain"
)

// Ledger is an account -> balance map with optional payment-receipt hooks.
// It implements domain.Ledger. Methods are not safe for concurrent use;
// callers serialize access the same way they serialize marketplace
// transactions.
//
// Transfer follows a strict commit-then-notify order: both balances are
// updated before the recipient's hook runs. A hook that re-enters the
// marketplace therefore observes fully settled balances and cannot unwind
// the transfer.
type Ledger struct {
	balances  map[common.Address]uint64
	receivers map[common.Address]domain.PaymentReceiver
}

// New creates an empty Ledger.
func New() *Ledger {
	return &Ledger{
		balances:  make(map[common.Address]uint64),
		receivers: make(map[common.Address]domain.PaymentReceiver),
	}
}

// Deposit credits amount to the account. It models external value entering
// the system (a funded account, a faucet in tests).
func (l *Ledger) Deposit(account common.Address, amount uint64) {
	l.balances[account] += amount
}

// BalanceOf returns the account's balance; unknown accounts hold zero.
func (l *Ledger) BalanceOf(account common.Address) uint64 {
	return l.balances[account]
}

// RegisterReceiver attaches a payment-receipt hook to the account. Passing
// nil detaches any existing hook.
func (l *Ledger) RegisterReceiver(account common.Address, r domain.PaymentReceiver) {
	if r == nil {
		delete(l.receivers, account)
		return
	}
	l.receivers[account] = r
}

// Transfer moves amount from one account to another. Balances are committed
// before the recipient's hook is invoked.
func (l *Ledger) Transfer(from, to common.Address, amount uint64) error {
	if l.balances[from] < amount {
		return domain.ErrInsufficientFunds
	}

	l.balances[from] -= amount
	l.balances[to] += amount

	if r, ok := l.receivers[to]; ok {
		r.ReceivePayment(from, amount)
	}
	return nil
}
