package ledger

import (
	"math"
	"math/bits"

	"marketplace-ledger/internal/models"
)

// EscrowLedger tracks value held for each seller until withdrawal, plus the
// running total already paid out.
type EscrowLedger struct {
	balances    map[models.Identity]uint64
	withdrawn   uint64
	withdrawals []models.Withdrawal
}

func newEscrowLedger() *EscrowLedger {
	return &EscrowLedger{balances: make(map[models.Identity]uint64)}
}

func (e *EscrowLedger) BalanceOf(id models.Identity) uint64 {
	return e.balances[id]
}

func (e *EscrowLedger) credit(seller models.Identity, amount uint64) {
	e.balances[seller] += amount
}

// take zeroes the seller's balance and returns what it held.
func (e *EscrowLedger) take(seller models.Identity) uint64 {
	amount := e.balances[seller]
	delete(e.balances, seller)
	return amount
}

func (e *EscrowLedger) settle(seller models.Identity, amount uint64) {
	e.withdrawn += amount
	e.withdrawals = append(e.withdrawals, models.Withdrawal{Seller: seller, Amount: amount})
}

func (e *EscrowLedger) Withdrawn() uint64 {
	return e.withdrawn
}

func (e *EscrowLedger) Withdrawals() []models.Withdrawal {
	out := make([]models.Withdrawal, len(e.withdrawals))
	copy(out, e.withdrawals)
	return out
}

// Held sums all balances, saturating at math.MaxUint64.
func (e *EscrowLedger) Held() uint64 {
	var total, carry uint64
	for _, v := range e.balances {
		total, carry = bits.Add64(total, v, 0)
		if carry != 0 {
			return math.MaxUint64
		}
	}
	return total
}
