package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"marketplace-ledger/internal/ledger"
	"marketplace-ledger/internal/models"

	"github.com/rs/zerolog"
)

var ErrWalletMismatch = errors.New("wallet does not match journal withdrawals")

type WalletAudit struct {
	Identity   models.Identity `json:"identity"`
	Withdrawn  uint64          `json:"withdrawn"`
	Wallet     uint64          `json:"wallet"`
	Consistent bool            `json:"consistent"`
}

type AuditReport struct {
	Seq          uint64              `json:"seq"`
	Entries      int                 `json:"entries"`
	Conservation ledger.Conservation `json:"conservation"`
	Wallets      []WalletAudit       `json:"wallets"`
}

type AuditService struct {
	journal *JournalStore
	wallet  *WalletService
	logger  zerolog.Logger
}

func NewAuditService(db *sql.DB, logger zerolog.Logger) *AuditService {
	return &AuditService{
		journal: NewJournalStore(db, logger),
		wallet:  NewWalletService(db, logger),
		logger:  logger,
	}
}

// Run replays the journal offline and checks value conservation, then
// compares every seller's payout wallet against its journaled withdrawals.
// The report is returned even when a check fails.
func (s *AuditService) Run(ctx context.Context) (*AuditReport, error) {
	entries, err := s.journal.Load(ctx)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, ErrGenesisRequired
	}

	m, err := ledger.Restore(entries, ledger.Config{})
	if err != nil {
		return nil, err
	}

	report := &AuditReport{Seq: m.Seq(), Entries: len(entries)}
	conservation, auditErr := m.Audit()
	report.Conservation = conservation

	withdrawn := make(map[models.Identity]uint64)
	var sellers []models.Identity
	for _, w := range m.Withdrawals() {
		if _, seen := withdrawn[w.Seller]; !seen {
			sellers = append(sellers, w.Seller)
		}
		withdrawn[w.Seller] += w.Amount
	}

	var mismatches int
	for _, seller := range sellers {
		balance, err := s.wallet.GetBalance(ctx, seller)
		if err != nil {
			return report, err
		}
		reconciled, err := s.wallet.Reconcile(ctx, seller)
		if err != nil {
			return report, err
		}

		wa := WalletAudit{
			Identity:  seller,
			Withdrawn: withdrawn[seller],
			Wallet:    balance.Amount,
		}
		wa.Consistent = reconciled && wa.Wallet == wa.Withdrawn
		if !wa.Consistent {
			mismatches++
			s.logger.Warn().
				Str("identity", string(seller)).
				Uint64("withdrawn", wa.Withdrawn).
				Uint64("wallet", wa.Wallet).
				Msg("Wallet differs from journal")
		}
		report.Wallets = append(report.Wallets, wa)
	}

	if auditErr != nil {
		return report, auditErr
	}
	if mismatches > 0 {
		return report, fmt.Errorf("%w: %d wallet(s)", ErrWalletMismatch, mismatches)
	}
	return report, nil
}
