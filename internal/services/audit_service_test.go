package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace-ledger/internal/ledger"
	"marketplace-ledger/internal/models"
)

// journalWithWithdrawal records a ledger where storeOwner sold 2 units at 4
// and withdrew the 8.
func journalWithWithdrawal(t *testing.T) *sqlmock.Rows {
	t.Helper()
	ctx := context.Background()
	var entries []models.Entry
	m, err := ledger.New(ctx, admin, true, ledger.Config{
		Committer: ledger.CommitterFunc(func(_ context.Context, e models.Entry) error {
			entries = append(entries, e)
			return nil
		}),
		Payout: ledger.PayoutFunc(func(context.Context, models.Identity, uint64) error { return nil }),
	})
	require.NoError(t, err)
	require.NoError(t, m.RequestAuthority(ctx, storeOwner))
	require.NoError(t, m.GrantAuthority(ctx, admin, storeOwner))
	pid, err := m.ListProduct(ctx, storeOwner, "n", "d", "img", 4, 5)
	require.NoError(t, err)
	_, err = m.Buy(ctx, buyer, pid, 2, 8)
	require.NoError(t, err)
	_, err = m.Withdraw(ctx, storeOwner)
	require.NoError(t, err)

	rows := sqlmock.NewRows([]string{"seq", "payload"})
	for _, e := range entries {
		payload, err := json.Marshal(e)
		require.NoError(t, err)
		rows.AddRow(int64(e.Seq), payload)
	}
	return rows
}

func expectWallet(mock sqlmock.Sqlmock, id models.Identity, amount, history uint64) {
	mock.ExpectQuery("SELECT amount, last_updated_at FROM wallet_balances").
		WithArgs(string(id)).
		WillReturnRows(sqlmock.NewRows([]string{"amount", "last_updated_at"}).AddRow(amount, time.Now()))
	mock.ExpectQuery("SELECT amount, last_updated_at FROM wallet_balances").
		WithArgs(string(id)).
		WillReturnRows(sqlmock.NewRows([]string{"amount", "last_updated_at"}).AddRow(amount, time.Now()))
	mock.ExpectQuery("SELECT COALESCE").
		WithArgs(string(id)).
		WillReturnRows(sqlmock.NewRows([]string{"total"}).AddRow(history))
}

func TestAuditServiceBalanced(t *testing.T) {
	conn, mock := newMockDB(t)
	mock.ExpectQuery("SELECT seq, payload FROM ledger_journal").WillReturnRows(journalWithWithdrawal(t))
	expectWallet(mock, storeOwner, 8, 8)

	report, err := NewAuditService(conn, quietLogger()).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, uint64(6), report.Seq)
	assert.Equal(t, 6, report.Entries)
	assert.Equal(t, ledger.Conservation{Held: 0, Withdrawn: 8, OrderTotal: 8}, report.Conservation)
	require.Len(t, report.Wallets, 1)
	assert.True(t, report.Wallets[0].Consistent)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditServiceWalletMismatch(t *testing.T) {
	conn, mock := newMockDB(t)
	mock.ExpectQuery("SELECT seq, payload FROM ledger_journal").WillReturnRows(journalWithWithdrawal(t))
	expectWallet(mock, storeOwner, 3, 3)

	report, err := NewAuditService(conn, quietLogger()).Run(context.Background())
	assert.ErrorIs(t, err, ErrWalletMismatch)
	require.NotNil(t, report)
	assert.False(t, report.Wallets[0].Consistent)
	assert.Equal(t, uint64(8), report.Wallets[0].Withdrawn)
}

func TestAuditServiceEmptyJournal(t *testing.T) {
	conn, mock := newMockDB(t)
	expectEmptyJournal(mock)

	_, err := NewAuditService(conn, quietLogger()).Run(context.Background())
	assert.ErrorIs(t, err, ErrGenesisRequired)
}
