package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"marketplace-ledger/internal/models"

	"github.com/rs/zerolog"
)

var ErrNoLedgerTransaction = errors.New("wallet transfer requires a ledger transaction")

// WalletService is the payout destination for escrow withdrawals. Credits
// are written inside the SQL transaction of the withdrawing operation, so a
// failed journal commit also undoes the credit.
type WalletService struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewWalletService(db *sql.DB, logger zerolog.Logger) *WalletService {
	return &WalletService{
		db:     db,
		logger: logger,
	}
}

func (s *WalletService) Transfer(ctx context.Context, to models.Identity, amount uint64) error {
	op, ok := operationFrom(ctx)
	if !ok {
		return ErrNoLedgerTransaction
	}

	if err := s.creditInTx(op.tx, to, amount, op.seq); err != nil {
		s.logger.Error().Err(err).Str("identity", string(to)).Uint64("amount", amount).Msg("Error crediting wallet")
		return err
	}
	return nil
}

func (s *WalletService) creditInTx(tx *sql.Tx, id models.Identity, amount, seq uint64) error {
	var current uint64
	err := tx.QueryRow(
		"SELECT amount FROM wallet_balances WHERE identity = ? FOR UPDATE",
		string(id),
	).Scan(&current)

	switch {
	case err == sql.ErrNoRows:
		_, err = tx.Exec("INSERT INTO wallet_balances (identity, amount) VALUES (?, ?)", string(id), amount)
		if err != nil {
			return fmt.Errorf("failed to initialize wallet: %w", err)
		}
	case err != nil:
		return fmt.Errorf("failed to fetch wallet: %w", err)
	default:
		if current > math.MaxUint64-amount {
			return errors.New("wallet balance overflow")
		}
		_, err = tx.Exec(
			"UPDATE wallet_balances SET amount = ?, last_updated_at = NOW() WHERE identity = ?",
			current+amount, string(id),
		)
		if err != nil {
			return fmt.Errorf("failed to update wallet: %w", err)
		}
	}

	_, err = tx.Exec(
		"INSERT INTO wallet_history (identity, balance, change_amount, entry_seq) VALUES (?, ?, ?, ?)",
		string(id), current+amount, amount, seq,
	)
	if err != nil {
		return fmt.Errorf("failed to record wallet history: %w", err)
	}

	return nil
}

func (s *WalletService) GetBalance(ctx context.Context, id models.Identity) (*models.WalletBalance, error) {
	balance := models.WalletBalance{Identity: id}

	err := s.db.QueryRowContext(ctx,
		"SELECT amount, last_updated_at FROM wallet_balances WHERE identity = ?",
		string(id),
	).Scan(&balance.Amount, &balance.LastUpdatedAt)

	if err == sql.ErrNoRows {
		balance.LastUpdatedAt = time.Now().UTC()
		return &balance, nil
	}
	if err != nil {
		s.logger.Error().Err(err).Str("identity", string(id)).Msg("Error fetching wallet")
		return nil, fmt.Errorf("database error: %w", err)
	}

	return &balance, nil
}

func (s *WalletService) GetHistory(ctx context.Context, id models.Identity, limit, offset int) ([]*models.WalletHistory, error) {
	query := `
		SELECT id, identity, balance, change_amount, entry_seq, created_at
		FROM wallet_history
		WHERE identity = ?
		ORDER BY id DESC
		LIMIT ? OFFSET ?
	`

	rows, err := s.db.QueryContext(ctx, query, string(id), limit, offset)
	if err != nil {
		s.logger.Error().Err(err).Str("identity", string(id)).Msg("Error fetching wallet history")
		return nil, fmt.Errorf("database error: %w", err)
	}
	defer rows.Close()

	history := []*models.WalletHistory{}
	for rows.Next() {
		var record models.WalletHistory
		var identity string
		var entrySeq sql.NullInt64

		err := rows.Scan(
			&record.ID, &identity, &record.Balance, &record.ChangeAmount,
			&entrySeq, &record.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("error scanning wallet history: %w", err)
		}

		record.Identity = models.Identity(identity)
		if entrySeq.Valid {
			val := uint64(entrySeq.Int64)
			record.EntrySeq = &val
		}

		history = append(history, &record)
	}

	return history, rows.Err()
}

func (s *WalletService) CalculateFromHistory(ctx context.Context, id models.Identity) (uint64, error) {
	var total uint64

	err := s.db.QueryRowContext(ctx,
		"SELECT COALESCE(SUM(change_amount), 0) FROM wallet_history WHERE identity = ?",
		string(id),
	).Scan(&total)
	if err != nil {
		s.logger.Error().Err(err).Str("identity", string(id)).Msg("Error summing wallet history")
		return 0, fmt.Errorf("database error: %w", err)
	}

	return total, nil
}

// Reconcile reports whether the stored wallet balance matches the sum of
// its history.
func (s *WalletService) Reconcile(ctx context.Context, id models.Identity) (bool, error) {
	balance, err := s.GetBalance(ctx, id)
	if err != nil {
		return false, err
	}

	calculated, err := s.CalculateFromHistory(ctx, id)
	if err != nil {
		return false, err
	}

	if balance.Amount != calculated {
		s.logger.Warn().
			Str("identity", string(id)).
			Uint64("current_balance", balance.Amount).
			Uint64("calculated_balance", calculated).
			Msg("Wallet discrepancy detected")
		return false, nil
	}

	return true, nil
}
