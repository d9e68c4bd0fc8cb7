package domain

import "github.com/ethereum/go-ethereum/common"

// PaymentReceiver is the hook invoked when an account receives a transfer.
// The ledger commits both balances before calling the hook, so a receiver
// that calls back into the marketplace observes fully settled state. The
// hook cannot veto the transfer.
type PaymentReceiver interface {
	ReceivePayment(from common.Address, amount uint64)
}

// Ledger tracks native currency balances. Amounts are unsigned integers in
// the smallest native unit.
type Ledger interface {
	// BalanceOf returns the current balance; unknown accounts hold zero.
	BalanceOf(account common.Address) uint64

	// Transfer moves amount from one account to another. It fails with
	// ErrInsufficientFunds when the source balance is too low. On success
	// both balances are committed before the recipient's PaymentReceiver
	// hook (if registered) runs.
	Transfer(from, to common.Address, amount uint64) error
}
