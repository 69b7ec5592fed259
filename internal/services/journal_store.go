package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"marketplace-ledger/internal/models"

	"github.com/rs/zerolog"
)

// JournalStore persists committed ledger entries in sequence order.
type JournalStore struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewJournalStore(db *sql.DB, logger zerolog.Logger) *JournalStore {
	return &JournalStore{
		db:     db,
		logger: logger,
	}
}

func (s *JournalStore) appendInTx(tx *sql.Tx, e models.Entry) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode entry %d: %w", e.Seq, err)
	}

	_, err = tx.Exec(
		"INSERT INTO ledger_journal (seq, entry_type, caller, payload, committed_at) VALUES (?, ?, ?, ?, ?)",
		e.Seq, string(e.Type), string(e.Caller), payload, e.CommittedAt,
	)
	if err != nil {
		s.logger.Error().Err(err).Uint64("seq", e.Seq).Str("type", string(e.Type)).Msg("Error appending journal entry")
		return fmt.Errorf("failed to append journal entry: %w", err)
	}
	return nil
}

// Has reports whether the entry with seq is durable, read outside any
// operation transaction.
func (s *JournalStore) Has(ctx context.Context, seq uint64) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM ledger_journal WHERE seq = ?", int64(seq)).Scan(&n)
	if err != nil {
		s.logger.Error().Err(err).Uint64("seq", seq).Msg("Error checking journal entry")
		return false, fmt.Errorf("database error: %w", err)
	}
	return n > 0, nil
}

func (s *JournalStore) Load(ctx context.Context) ([]models.Entry, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT seq, payload FROM ledger_journal ORDER BY seq ASC")
	if err != nil {
		s.logger.Error().Err(err).Msg("Error loading journal")
		return nil, fmt.Errorf("database error: %w", err)
	}
	defer rows.Close()

	var entries []models.Entry
	for rows.Next() {
		var seq uint64
		var payload []byte
		if err := rows.Scan(&seq, &payload); err != nil {
			return nil, fmt.Errorf("error scanning journal entry: %w", err)
		}

		var e models.Entry
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, fmt.Errorf("error decoding journal entry %d: %w", seq, err)
		}
		if e.Seq != seq {
			return nil, fmt.Errorf("journal entry %d carries sequence %d", seq, e.Seq)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error reading journal: %w", err)
	}

	return entries, nil
}
