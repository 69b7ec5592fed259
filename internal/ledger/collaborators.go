package ledger

import (
	"context"

	"marketplace-ledger/internal/models"
)

// Committer durably records an entry. The ledger calls Commit after every
// check has passed and before changing any in-memory state; a Commit error
// aborts the operation with no state change.
type Committer interface {
	Commit(ctx context.Context, e models.Entry) error
}

// Payout moves value out of the ledger to a seller.
type Payout interface {
	Transfer(ctx context.Context, to models.Identity, amount uint64) error
}

type CommitterFunc func(ctx context.Context, e models.Entry) error

func (f CommitterFunc) Commit(ctx context.Context, e models.Entry) error {
	return f(ctx, e)
}

type PayoutFunc func(ctx context.Context, to models.Identity, amount uint64) error

func (f PayoutFunc) Transfer(ctx context.Context, to models.Identity, amount uint64) error {
	return f(ctx, to, amount)
}

// Discard is a Committer that keeps nothing.
var Discard Committer = CommitterFunc(func(context.Context, models.Entry) error { return nil })
