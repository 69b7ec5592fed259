package ledger_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"marketplace-ledger/internal/ledger"
	"marketplace-ledger/internal/models"
)

func ident(n int) models.Identity {
	return models.Identity(fmt.Sprintf("0x%040x", n))
}

var (
	admin      = ident(1)
	storeOwner = ident(2)
	buyer      = ident(3)
)

type journal struct {
	entries []models.Entry
	fail    error
}

func (j *journal) Commit(_ context.Context, e models.Entry) error {
	if j.fail != nil {
		return j.fail
	}
	j.entries = append(j.entries, e)
	return nil
}

type wallet struct {
	paid map[models.Identity]uint64
	fail error
}

func newWallet() *wallet {
	return &wallet{paid: make(map[models.Identity]uint64)}
}

func (w *wallet) Transfer(_ context.Context, to models.Identity, amount uint64) error {
	if w.fail != nil {
		return w.fail
	}
	w.paid[to] += amount
	return nil
}

func fixedNow() time.Time {
	return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
}

type fixture struct {
	m       *ledger.Marketplace
	journal *journal
	wallet  *wallet
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{journal: &journal{}, wallet: newWallet()}
	m, err := ledger.New(context.Background(), admin, true, ledger.Config{
		Committer: f.journal,
		Payout:    f.wallet,
		Now:       fixedNow,
	})
	require.NoError(t, err)
	f.m = m
	return f
}

// withStore promotes storeOwner and lists one product: price 5, quantity 10.
func (f *fixture) withStore(t *testing.T) uint64 {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.m.RequestAuthority(ctx, storeOwner))
	require.NoError(t, f.m.GrantAuthority(ctx, admin, storeOwner))
	id, err := f.m.ListProduct(ctx, storeOwner, "productName", "productDesc", "productImg", 5, 10)
	require.NoError(t, err)
	return id
}
