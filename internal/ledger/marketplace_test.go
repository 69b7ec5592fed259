package ledger_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace-ledger/internal/ledger"
	"marketplace-ledger/internal/models"
)

func TestNewRequiresAdmin(t *testing.T) {
	_, err := ledger.New(context.Background(), "", true, ledger.Config{})
	assert.ErrorIs(t, err, ledger.ErrInvalidArgument)
}

func TestListAndGetProduct(t *testing.T) {
	f := newFixture(t)
	id := f.withStore(t)

	assert.Equal(t, uint64(1), id)
	assert.Equal(t, uint64(1), f.m.ProductCount())

	p, err := f.m.GetProduct(id)
	require.NoError(t, err)
	assert.Equal(t, models.Product{
		ID:                1,
		Name:              "productName",
		Description:       "productDesc",
		ImageRef:          "productImg",
		Price:             5,
		RemainingQuantity: 10,
		Owner:             storeOwner,
	}, p)
}

func TestListProductFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.m.ListProduct(ctx, buyer, "n", "d", "img", 5, 10)
	assert.ErrorIs(t, err, ledger.ErrUnauthorized)

	require.NoError(t, f.m.RequestAuthority(ctx, buyer))
	_, err = f.m.ListProduct(ctx, buyer, "n", "d", "img", 5, 10)
	assert.ErrorIs(t, err, ledger.ErrUnauthorized, "requested is not enough")

	_, err = f.m.ListProduct(ctx, admin, "n", "d", "img", 0, 10)
	assert.ErrorIs(t, err, ledger.ErrInvalidArgument)
	_, err = f.m.ListProduct(ctx, admin, "n", "d", "img", 5, 0)
	assert.ErrorIs(t, err, ledger.ErrInvalidArgument)

	assert.Equal(t, uint64(0), f.m.ProductCount())

	id, err := f.m.ListProduct(ctx, admin, "n", "d", "img", 5, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), id)
}

func TestGetProductOutOfRange(t *testing.T) {
	f := newFixture(t)
	f.withStore(t)

	_, err := f.m.GetProduct(0)
	assert.ErrorIs(t, err, ledger.ErrNotFound)
	_, err = f.m.GetProduct(2)
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestProductsByOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.withStore(t)

	_, err := f.m.ListProduct(ctx, admin, "a", "", "", 1, 1)
	require.NoError(t, err)
	_, err = f.m.ListProduct(ctx, storeOwner, "b", "", "", 2, 2)
	require.NoError(t, err)

	owned := f.m.ProductsByOwner(storeOwner)
	require.Len(t, owned, 2)
	assert.Equal(t, uint64(1), owned[0].ID)
	assert.Equal(t, uint64(3), owned[1].ID)
	assert.Empty(t, f.m.ProductsByOwner(buyer))
	assert.Len(t, f.m.Products(), 3)
}

func TestBuyCreditsEscrow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pid := f.withStore(t)

	orderID, err := f.m.Buy(ctx, buyer, pid, 10, 50)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), orderID)

	p, err := f.m.GetProduct(pid)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), p.RemainingQuantity)
	assert.Equal(t, uint64(50), f.m.BalanceOf(storeOwner))

	o, err := f.m.GetOrder(orderID)
	require.NoError(t, err)
	assert.Equal(t, models.Order{ID: 1, ProductID: pid, Quantity: 10, Buyer: buyer, Total: 50}, o)

	_, err = f.m.Buy(ctx, buyer, pid, 1, 5)
	assert.ErrorIs(t, err, ledger.ErrInsufficientInventory)
	assert.Equal(t, uint64(1), f.m.OrderCount())
}

func TestBuyFailuresLeaveNoTrace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pid := f.withStore(t)
	committed := len(f.journal.entries)

	tests := []struct {
		name      string
		productID uint64
		quantity  uint64
		paid      uint64
		expected  error
	}{
		{"missing product", 9, 1, 5, ledger.ErrNotFound},
		{"zero quantity", pid, 0, 0, ledger.ErrInsufficientInventory},
		{"too many", pid, 11, 55, ledger.ErrInsufficientInventory},
		{"underpaid", pid, 2, 9, ledger.ErrInvalidPayment},
		{"overpaid", pid, 2, 11, ledger.ErrInvalidPayment},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.m.Buy(ctx, buyer, tt.productID, tt.quantity, tt.paid)
			assert.ErrorIs(t, err, tt.expected)
		})
	}

	p, err := f.m.GetProduct(pid)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), p.RemainingQuantity)
	assert.Equal(t, uint64(0), f.m.BalanceOf(storeOwner))
	assert.Equal(t, uint64(0), f.m.OrderCount())
	assert.Len(t, f.journal.entries, committed)
}

func TestBuyPriceOverflow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pid, err := f.m.ListProduct(ctx, admin, "big", "", "", math.MaxUint64/2+1, 2)
	require.NoError(t, err)

	_, err = f.m.Buy(ctx, buyer, pid, 2, 0)
	assert.ErrorIs(t, err, ledger.ErrInvalidPayment)
}

func TestBuyLedgerTotalOverflow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	small := f.withStore(t)

	big, err := f.m.ListProduct(ctx, admin, "big", "", "", math.MaxUint64, 1)
	require.NoError(t, err)
	_, err = f.m.Buy(ctx, buyer, big, 1, math.MaxUint64)
	require.NoError(t, err)

	// a second seller's sale would wrap the ledger total
	_, err = f.m.Buy(ctx, buyer, small, 1, 5)
	assert.ErrorIs(t, err, ledger.ErrInvalidPayment)
	assert.Equal(t, uint64(0), f.m.BalanceOf(storeOwner))
	assert.Equal(t, uint64(1), f.m.OrderCount())

	c, err := f.m.Audit()
	require.NoError(t, err)
	assert.Equal(t, ledger.Conservation{Held: math.MaxUint64, OrderTotal: math.MaxUint64}, c)
	assert.Equal(t, uint64(math.MaxUint64), f.m.Held())

	restored, err := ledger.Restore(f.journal.entries, ledger.Config{})
	require.NoError(t, err)
	_, err = restored.Buy(ctx, buyer, small, 1, 5)
	assert.ErrorIs(t, err, ledger.ErrInvalidPayment)
}

func TestConservationBalancedDetectsCarry(t *testing.T) {
	c := ledger.Conservation{Held: math.MaxUint64, Withdrawn: 5, OrderTotal: 4}
	assert.False(t, c.Balanced())
}

func TestBuyCommitFailure(t *testing.T) {
	f := newFixture(t)
	pid := f.withStore(t)
	f.journal.fail = errors.New("disk full")

	_, err := f.m.Buy(context.Background(), buyer, pid, 1, 5)
	require.Error(t, err)

	p, err := f.m.GetProduct(pid)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), p.RemainingQuantity)
	assert.Equal(t, uint64(0), f.m.BalanceOf(storeOwner))
	assert.Equal(t, uint64(0), f.m.OrderCount())
}

func TestWithdraw(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pid := f.withStore(t)

	_, err := f.m.Buy(ctx, buyer, pid, 10, 50)
	require.NoError(t, err)
	require.Equal(t, uint64(50), f.m.BalanceOf(storeOwner))

	amount, err := f.m.Withdraw(ctx, storeOwner)
	require.NoError(t, err)
	assert.Equal(t, uint64(50), amount)
	assert.Equal(t, uint64(0), f.m.BalanceOf(storeOwner))
	assert.Equal(t, uint64(50), f.wallet.paid[storeOwner])
	assert.Equal(t, uint64(50), f.m.TotalWithdrawn())
	assert.Equal(t, []models.Withdrawal{{Seller: storeOwner, Amount: 50}}, f.m.Withdrawals())

	amount, err = f.m.Withdraw(ctx, storeOwner)
	require.NoError(t, err, "empty balance is not an error")
	assert.Equal(t, uint64(0), amount)
	assert.Equal(t, uint64(50), f.wallet.paid[storeOwner])
}

func TestWithdrawTransferFailureRestoresBalance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pid := f.withStore(t)

	_, err := f.m.Buy(ctx, buyer, pid, 4, 20)
	require.NoError(t, err)
	committed := len(f.journal.entries)

	f.wallet.fail = errors.New("wallet offline")
	_, err = f.m.Withdraw(ctx, storeOwner)
	assert.ErrorIs(t, err, ledger.ErrTransferFailed)
	assert.Equal(t, uint64(20), f.m.BalanceOf(storeOwner))
	assert.Equal(t, uint64(0), f.m.TotalWithdrawn())
	assert.Len(t, f.journal.entries, committed)
}

func TestWithdrawCommitFailureRestoresBalance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pid := f.withStore(t)

	_, err := f.m.Buy(ctx, buyer, pid, 4, 20)
	require.NoError(t, err)

	f.journal.fail = errors.New("lost connection")
	_, err = f.m.Withdraw(ctx, storeOwner)
	require.Error(t, err)
	assert.Equal(t, uint64(20), f.m.BalanceOf(storeOwner))
	assert.Equal(t, uint64(0), f.m.TotalWithdrawn())
}

func TestWithdrawWithoutPayout(t *testing.T) {
	ctx := context.Background()
	m, err := ledger.New(ctx, admin, true, ledger.Config{})
	require.NoError(t, err)

	pid, err := m.ListProduct(ctx, admin, "n", "", "", 3, 3)
	require.NoError(t, err)
	_, err = m.Buy(ctx, buyer, pid, 1, 3)
	require.NoError(t, err)

	_, err = m.Withdraw(ctx, admin)
	assert.ErrorIs(t, err, ledger.ErrTransferFailed)
	assert.Equal(t, uint64(3), m.BalanceOf(admin))
}

func TestCircuitBreaker(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pid := f.withStore(t)

	_, err := f.m.Buy(ctx, buyer, pid, 2, 10)
	require.NoError(t, err)

	_, err = f.m.Toggle(ctx, buyer)
	assert.ErrorIs(t, err, ledger.ErrUnauthorized)
	_, err = f.m.Toggle(ctx, storeOwner)
	assert.ErrorIs(t, err, ledger.ErrUnauthorized)
	assert.True(t, f.m.IsActive())

	active, err := f.m.Toggle(ctx, admin)
	require.NoError(t, err)
	assert.False(t, active)
	assert.False(t, f.m.IsActive())

	_, err = f.m.Buy(ctx, buyer, pid, 1, 5)
	assert.ErrorIs(t, err, ledger.ErrSystemPaused)
	_, err = f.m.Withdraw(ctx, storeOwner)
	assert.ErrorIs(t, err, ledger.ErrSystemPaused)
	assert.Equal(t, uint64(10), f.m.BalanceOf(storeOwner))

	// listing and role changes are not value-moving
	_, err = f.m.ListProduct(ctx, storeOwner, "n", "", "", 1, 1)
	assert.NoError(t, err)

	active, err = f.m.Toggle(ctx, admin)
	require.NoError(t, err)
	assert.True(t, active)

	_, err = f.m.Buy(ctx, buyer, pid, 1, 5)
	assert.NoError(t, err)
}

func TestStartsHalted(t *testing.T) {
	ctx := context.Background()
	m, err := ledger.New(ctx, admin, false, ledger.Config{})
	require.NoError(t, err)
	assert.False(t, m.IsActive())

	pid, err := m.ListProduct(ctx, admin, "n", "", "", 1, 1)
	require.NoError(t, err)
	_, err = m.Buy(ctx, buyer, pid, 1, 1)
	assert.ErrorIs(t, err, ledger.ErrSystemPaused)
}

func TestValueConservation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pid := f.withStore(t)

	second := ident(40)
	require.NoError(t, f.m.RequestAuthority(ctx, second))
	require.NoError(t, f.m.GrantAuthority(ctx, admin, second))
	pid2, err := f.m.ListProduct(ctx, second, "other", "", "", 7, 100)
	require.NoError(t, err)

	steps := []func() error{
		func() error { _, err := f.m.Buy(ctx, buyer, pid, 3, 15); return err },
		func() error { _, err := f.m.Buy(ctx, buyer, pid2, 2, 14); return err },
		func() error { _, err := f.m.Withdraw(ctx, storeOwner); return err },
		func() error { _, err := f.m.Buy(ctx, ident(50), pid, 1, 5); return err },
		func() error { _, err := f.m.Buy(ctx, buyer, pid2, 1, 8); return err },
		func() error { _, err := f.m.Withdraw(ctx, second); return err },
		func() error { _, err := f.m.Buy(ctx, buyer, pid2, 10, 70); return err },
	}
	for i, step := range steps {
		_ = step()
		c, err := f.m.Audit()
		require.NoError(t, err, "step %d", i)
		assert.True(t, c.Balanced())
	}

	c, err := f.m.Audit()
	require.NoError(t, err)
	assert.Equal(t, uint64(15+14+5+70), c.OrderTotal)
	assert.Equal(t, uint64(15+14), c.Withdrawn)
	assert.Equal(t, uint64(5+70), c.Held)
}

func TestRestoreReplaysJournal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pid := f.withStore(t)

	_, err := f.m.Buy(ctx, buyer, pid, 3, 15)
	require.NoError(t, err)
	_, err = f.m.Withdraw(ctx, storeOwner)
	require.NoError(t, err)
	_, err = f.m.Buy(ctx, buyer, pid, 2, 10)
	require.NoError(t, err)
	_, err = f.m.Toggle(ctx, admin)
	require.NoError(t, err)

	restored, err := ledger.Restore(f.journal.entries, ledger.Config{})
	require.NoError(t, err)

	assert.Equal(t, f.m.Seq(), restored.Seq())
	assert.Equal(t, f.m.Products(), restored.Products())
	assert.Equal(t, f.m.ListPendingRequests(), restored.ListPendingRequests())
	assert.Equal(t, f.m.BalanceOf(storeOwner), restored.BalanceOf(storeOwner))
	assert.Equal(t, f.m.TotalWithdrawn(), restored.TotalWithdrawn())
	assert.Equal(t, f.m.OrderCount(), restored.OrderCount())
	assert.Equal(t, f.m.IsActive(), restored.IsActive())
	assert.Equal(t, models.RoleAdmin, restored.RoleOf(admin))
	assert.Equal(t, models.RoleStoreOwner, restored.RoleOf(storeOwner))

	for i := uint64(1); i <= f.m.OrderCount(); i++ {
		expected, _ := f.m.GetOrder(i)
		actual, err := restored.GetOrder(i)
		require.NoError(t, err)
		assert.Equal(t, expected, actual)
	}
}

func TestRestoreRejectsCorruptJournal(t *testing.T) {
	f := newFixture(t)
	f.withStore(t)
	entries := f.journal.entries

	_, err := ledger.Restore(nil, ledger.Config{})
	assert.ErrorIs(t, err, ledger.ErrCorruptJournal)

	_, err = ledger.Restore(entries[1:], ledger.Config{})
	assert.ErrorIs(t, err, ledger.ErrCorruptJournal, "missing genesis")

	gap := append([]models.Entry{}, entries[0], entries[2])
	_, err = ledger.Restore(gap, ledger.Config{})
	assert.ErrorIs(t, err, ledger.ErrCorruptJournal, "sequence gap")

	forged := append([]models.Entry{}, entries...)
	forged[2].Caller = buyer
	_, err = ledger.Restore(forged, ledger.Config{})
	assert.ErrorIs(t, err, ledger.ErrUnauthorized, "grant by non-admin")
}

func TestJournalEntries(t *testing.T) {
	f := newFixture(t)
	f.withStore(t)

	require.Len(t, f.journal.entries, 4)
	types := []models.EntryType{
		models.EntryGenesis,
		models.EntryRequestAuthority,
		models.EntryGrantAuthority,
		models.EntryListProduct,
	}
	for i, e := range f.journal.entries {
		assert.Equal(t, uint64(i+1), e.Seq)
		assert.Equal(t, types[i], e.Type)
		assert.Equal(t, fixedNow(), e.CommittedAt)
	}
	assert.True(t, f.journal.entries[0].Active)
	assert.Equal(t, storeOwner, f.journal.entries[2].Target)
}
