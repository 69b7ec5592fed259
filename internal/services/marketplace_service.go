package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"marketplace-ledger/internal/ledger"
	"marketplace-ledger/internal/metrics"
	"marketplace-ledger/internal/models"

	"github.com/rs/zerolog"
)

var (
	ErrGenesisRequired = errors.New("genesis admin is required to initialise an empty journal")
	ErrLedgerHalted    = errors.New("ledger halted: journal state unknown, restart to replay")
)

// MarketplaceService is the commitment boundary around the ledger. It
// applies operations one at a time, each inside its own SQL transaction,
// and the ledger commits that transaction together with the journal entry.
type MarketplaceService struct {
	db      *sql.DB
	journal *JournalStore
	ledger  *ledger.Marketplace
	logger  zerolog.Logger
	mu      sync.Mutex
	// halted is set when a commit outcome could not be determined; memory
	// may then disagree with the journal until the service replays it.
	halted error
}

// NewMarketplaceService replays the journal, or seeds an empty journal
// with a genesis entry for genesis.
func NewMarketplaceService(ctx context.Context, db *sql.DB, logger zerolog.Logger, payout ledger.Payout, genesis models.Identity, active bool) (*MarketplaceService, error) {
	s := &MarketplaceService{
		db:      db,
		journal: NewJournalStore(db, logger),
		logger:  logger,
	}
	cfg := ledger.Config{Committer: s, Payout: payout}

	entries, err := s.journal.Load(ctx)
	if err != nil {
		return nil, err
	}

	if len(entries) == 0 {
		if genesis == "" {
			return nil, ErrGenesisRequired
		}
		err = s.run(ctx, "genesis", func(ctx context.Context) error {
			m, err := ledger.New(ctx, genesis, active, cfg)
			s.ledger = m
			return err
		})
		if err != nil {
			return nil, err
		}
		s.logger.Info().Str("admin", string(genesis)).Bool("active", active).Msg("Ledger initialised")
	} else {
		m, err := ledger.Restore(entries, cfg)
		if err != nil {
			s.logger.Error().Err(err).Msg("Error replaying journal")
			return nil, err
		}
		s.ledger = m
		if genesis != "" && entries[0].Caller != genesis {
			s.logger.Warn().
				Str("configured", string(genesis)).
				Str("journal", string(entries[0].Caller)).
				Msg("Configured genesis admin differs from journal; journal wins")
		}
		s.logger.Info().Uint64("seq", m.Seq()).Int("entries", len(entries)).Msg("Ledger restored from journal")
	}

	s.refreshGauges()
	return s, nil
}

// Commit is called by the ledger with the operation's transaction in ctx.
func (s *MarketplaceService) Commit(ctx context.Context, e models.Entry) error {
	op, ok := operationFrom(ctx)
	if !ok {
		return ErrNoLedgerTransaction
	}
	if e.Seq != op.seq {
		return fmt.Errorf("entry sequence %d, transaction opened for %d", e.Seq, op.seq)
	}

	if err := s.journal.appendInTx(op.tx, e); err != nil {
		return err
	}
	if err := op.tx.Commit(); err != nil {
		s.logger.Error().Err(err).Uint64("seq", e.Seq).Msg("Error committing ledger transaction")
		return s.resolveCommit(ctx, e, err)
	}
	return nil
}

// resolveCommit decides a commit whose outcome the driver did not report.
// A durable entry counts as committed; an undeterminable one halts the
// service.
func (s *MarketplaceService) resolveCommit(ctx context.Context, e models.Entry, commitErr error) error {
	durable, err := s.journal.Has(ctx, e.Seq)
	if err != nil {
		s.halted = fmt.Errorf("%w: entry %d: %v", ErrLedgerHalted, e.Seq, commitErr)
		s.logger.Error().Err(err).Uint64("seq", e.Seq).Msg("Commit outcome unknown, halting ledger")
		return s.halted
	}
	if durable {
		s.logger.Warn().Err(commitErr).Uint64("seq", e.Seq).Msg("Commit reported failure but entry is durable")
		return nil
	}
	return fmt.Errorf("failed to commit transaction: %w", commitErr)
}

// run executes fn with a fresh SQL transaction in its context. s.mu must be
// held, except during construction.
func (s *MarketplaceService) run(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	start := time.Now()

	if s.halted != nil {
		metrics.ObserveOperation(name, start, s.halted)
		return s.halted
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error().Err(err).Str("operation", name).Msg("Error starting ledger transaction")
		metrics.ObserveOperation(name, start, err)
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	seq := uint64(1)
	if s.ledger != nil {
		seq = s.ledger.Seq() + 1
	}

	err = fn(withOperation(ctx, &operation{tx: tx, seq: seq}))
	metrics.ObserveOperation(name, start, err)
	return err
}

func (s *MarketplaceService) refreshGauges() {
	metrics.EscrowHeld.Set(float64(s.ledger.Held()))
	metrics.SetBreaker(s.ledger.IsActive())
}

func isRejection(err error) bool {
	for _, kind := range []error{
		ledger.ErrUnauthorized,
		ledger.ErrInvalidRoleTransition,
		ledger.ErrInvalidArgument,
		ledger.ErrNotFound,
		ledger.ErrInsufficientInventory,
		ledger.ErrInvalidPayment,
		ledger.ErrSystemPaused,
	} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}

func (s *MarketplaceService) logFailure(operation string, caller models.Identity, err error) {
	event := s.logger.Error()
	if isRejection(err) {
		event = s.logger.Warn()
	}
	event.Err(err).Str("operation", operation).Str("caller", string(caller)).Msg("Ledger operation failed")
}

func (s *MarketplaceService) RequestAuthority(ctx context.Context, caller models.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.run(ctx, "request_authority", func(ctx context.Context) error {
		return s.ledger.RequestAuthority(ctx, caller)
	})
	if err != nil {
		s.logFailure("request_authority", caller, err)
		return err
	}

	s.logger.Info().Str("caller", string(caller)).Msg("Authority requested")
	return nil
}

func (s *MarketplaceService) GrantAuthority(ctx context.Context, caller, target models.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.run(ctx, "grant_authority", func(ctx context.Context) error {
		return s.ledger.GrantAuthority(ctx, caller, target)
	})
	if err != nil {
		s.logFailure("grant_authority", caller, err)
		return err
	}

	s.logger.Info().Str("caller", string(caller)).Str("target", string(target)).Msg("Authority granted")
	return nil
}

func (s *MarketplaceService) ListProduct(ctx context.Context, caller models.Identity, name, description, imageRef string, price, quantity uint64) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var id uint64
	err := s.run(ctx, "list_product", func(ctx context.Context) error {
		var err error
		id, err = s.ledger.ListProduct(ctx, caller, name, description, imageRef, price, quantity)
		return err
	})
	if err != nil {
		s.logFailure("list_product", caller, err)
		return 0, err
	}

	s.logger.Info().
		Str("caller", string(caller)).
		Uint64("product_id", id).
		Uint64("price", price).
		Uint64("quantity", quantity).
		Msg("Product listed")
	return id, nil
}

func (s *MarketplaceService) Buy(ctx context.Context, caller models.Identity, productID, quantity, paidValue uint64) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var orderID uint64
	err := s.run(ctx, "buy", func(ctx context.Context) error {
		var err error
		orderID, err = s.ledger.Buy(ctx, caller, productID, quantity, paidValue)
		return err
	})
	if err != nil {
		s.logFailure("buy", caller, err)
		return 0, err
	}
	s.refreshGauges()

	s.logger.Info().
		Str("caller", string(caller)).
		Uint64("order_id", orderID).
		Uint64("product_id", productID).
		Uint64("quantity", quantity).
		Uint64("paid_value", paidValue).
		Msg("Purchase completed")
	return orderID, nil
}

func (s *MarketplaceService) Withdraw(ctx context.Context, caller models.Identity) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var amount uint64
	err := s.run(ctx, "withdraw", func(ctx context.Context) error {
		var err error
		amount, err = s.ledger.Withdraw(ctx, caller)
		return err
	})
	if err != nil {
		s.logFailure("withdraw", caller, err)
		return 0, err
	}
	s.refreshGauges()
	metrics.Withdrawn.Add(float64(amount))

	s.logger.Info().Str("caller", string(caller)).Uint64("amount", amount).Msg("Escrow withdrawn")
	return amount, nil
}

func (s *MarketplaceService) Toggle(ctx context.Context, caller models.Identity) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var active bool
	err := s.run(ctx, "toggle_breaker", func(ctx context.Context) error {
		var err error
		active, err = s.ledger.Toggle(ctx, caller)
		return err
	})
	if err != nil {
		s.logFailure("toggle_breaker", caller, err)
		return s.ledger.IsActive(), err
	}
	s.refreshGauges()

	s.logger.Warn().Str("caller", string(caller)).Bool("active", active).Msg("Circuit breaker toggled")
	return active, nil
}

func (s *MarketplaceService) RoleOf(id models.Identity) models.Role {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.RoleOf(id)
}

func (s *MarketplaceService) ListPendingRequests() []models.RequestRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.ListPendingRequests()
}

func (s *MarketplaceService) GetRequest(index uint64) (models.RequestRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.GetRequest(index)
}

func (s *MarketplaceService) ListStoreOwners() []models.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.ListStoreOwners()
}

func (s *MarketplaceService) GetProduct(id uint64) (models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.GetProduct(id)
}

func (s *MarketplaceService) ProductCount() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.ProductCount()
}

func (s *MarketplaceService) Products() []models.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Products()
}

func (s *MarketplaceService) ProductsByOwner(owner models.Identity) []models.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.ProductsByOwner(owner)
}

func (s *MarketplaceService) GetOrder(id uint64) (models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.GetOrder(id)
}

func (s *MarketplaceService) OrderCount() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.OrderCount()
}

func (s *MarketplaceService) BalanceOf(id models.Identity) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.BalanceOf(id)
}

func (s *MarketplaceService) IsActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.IsActive()
}

func (s *MarketplaceService) Audit() (ledger.Conservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Audit()
}
