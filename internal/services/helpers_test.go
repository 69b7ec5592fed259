package services

import (
	"database/sql"
	"fmt"
	"io"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

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

func quietLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn, mock
}

func expectJournalEntry(mock sqlmock.Sqlmock, seq int, t models.EntryType, caller models.Identity) {
	mock.ExpectExec("INSERT INTO ledger_journal").
		WithArgs(seq, string(t), string(caller), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
}

// expectCommitted expects one operation that journals a single entry.
func expectCommitted(mock sqlmock.Sqlmock, seq int, t models.EntryType, caller models.Identity) {
	mock.ExpectBegin()
	expectJournalEntry(mock, seq, t, caller)
	mock.ExpectCommit()
}

func expectRejected(mock sqlmock.Sqlmock) {
	mock.ExpectBegin()
	mock.ExpectRollback()
}
