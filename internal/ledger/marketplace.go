// Package ledger implements the role-gated marketplace ledger: authority
// grants, the product catalog, the purchase-to-escrow pipeline, withdrawal
// and the circuit breaker.
//
// A Marketplace is a sequential state machine. It holds no locks; callers
// must submit operations one at a time. Every operation checks all of its
// preconditions, then hands the resulting entry to the Committer, and only
// after a successful commit changes in-memory state. A failed operation
// leaves no trace.
package ledger

import (
	"context"
	"fmt"
	"math"
	"math/bits"
	"time"

	"marketplace-ledger/internal/models"
)

type Config struct {
	Committer Committer
	Payout    Payout
	Now       func() time.Time
}

type Marketplace struct {
	authority *AuthorityRegistry
	catalog   *ProductCatalog
	escrow    *EscrowLedger
	breaker   *CircuitBreaker
	orders    []models.Order
	// paid is the sum of all order totals. Escrow held plus withdrawn never
	// exceeds it, so bounding it bounds every value total in the ledger.
	paid uint64

	seq       uint64
	committer Committer
	payout    Payout
	now       func() time.Time
}

func newMarketplace(cfg Config) *Marketplace {
	m := &Marketplace{
		authority: newAuthorityRegistry(),
		catalog:   newProductCatalog(),
		escrow:    newEscrowLedger(),
		breaker:   &CircuitBreaker{},
		committer: cfg.Committer,
		payout:    cfg.Payout,
		now:       cfg.Now,
	}
	if m.committer == nil {
		m.committer = Discard
	}
	if m.now == nil {
		m.now = func() time.Time { return time.Now().UTC() }
	}
	return m
}

// New creates a ledger whose only Admin is admin and commits its genesis entry.
func New(ctx context.Context, admin models.Identity, active bool, cfg Config) (*Marketplace, error) {
	if admin == "" {
		return nil, fmt.Errorf("%w: genesis admin is required", ErrInvalidArgument)
	}
	m := newMarketplace(cfg)
	e := m.entry(models.EntryGenesis, admin)
	e.Active = active
	if err := m.commit(ctx, e); err != nil {
		return nil, err
	}
	return m, nil
}

// Restore rebuilds a ledger by replaying committed entries in order. The
// first entry must be the genesis entry.
func Restore(entries []models.Entry, cfg Config) (*Marketplace, error) {
	if len(entries) == 0 || entries[0].Type != models.EntryGenesis {
		return nil, fmt.Errorf("%w: journal does not start with genesis", ErrCorruptJournal)
	}
	m := newMarketplace(cfg)
	for _, e := range entries {
		if e.Seq != m.seq+1 {
			return nil, fmt.Errorf("%w: entry %d follows %d", ErrCorruptJournal, e.Seq, m.seq)
		}
		if err := m.apply(e); err != nil {
			return nil, fmt.Errorf("replaying entry %d (%s): %w", e.Seq, e.Type, err)
		}
		m.seq = e.Seq
	}
	return m, nil
}

func (m *Marketplace) entry(t models.EntryType, caller models.Identity) models.Entry {
	return models.Entry{
		Seq:         m.seq + 1,
		Type:        t,
		Caller:      caller,
		CommittedAt: m.now(),
	}
}

func (m *Marketplace) commit(ctx context.Context, e models.Entry) error {
	if err := m.committer.Commit(ctx, e); err != nil {
		return fmt.Errorf("failed to commit %s: %w", e.Type, err)
	}
	if err := m.apply(e); err != nil {
		return fmt.Errorf("applying committed entry %d: %w", e.Seq, err)
	}
	m.seq = e.Seq
	return nil
}

// apply checks e against the current state and performs its mutation.
func (m *Marketplace) apply(e models.Entry) error {
	switch e.Type {
	case models.EntryGenesis:
		if m.seq != 0 {
			return fmt.Errorf("%w: genesis at entry %d", ErrCorruptJournal, e.Seq)
		}
		m.authority.setAdmin(e.Caller)
		m.breaker.active = e.Active
		return nil

	case models.EntryRequestAuthority:
		return m.authority.request(e.Caller)

	case models.EntryGrantAuthority:
		return m.authority.grant(e.Caller, e.Target)

	case models.EntryListProduct:
		if err := checkListing(m.authority.RoleOf(e.Caller), e.Amount, e.Quantity); err != nil {
			return err
		}
		return m.catalog.add(models.Product{
			ID:                e.ProductID,
			Name:              e.Name,
			Description:       e.Description,
			ImageRef:          e.ImageRef,
			Price:             e.Amount,
			RemainingQuantity: e.Quantity,
			Owner:             e.Caller,
		})

	case models.EntryBuy:
		p, err := m.checkBuy(e.ProductID, e.Quantity, e.Amount)
		if err != nil {
			return err
		}
		if e.OrderID != uint64(len(m.orders))+1 {
			return fmt.Errorf("%w: order id %d, expected %d", ErrCorruptJournal, e.OrderID, len(m.orders)+1)
		}
		if err := m.catalog.decrementQuantity(p.ID, e.Quantity); err != nil {
			return err
		}
		m.escrow.credit(p.Owner, e.Amount)
		m.paid += e.Amount
		m.orders = append(m.orders, models.Order{
			ID:        e.OrderID,
			ProductID: p.ID,
			Quantity:  e.Quantity,
			Buyer:     e.Caller,
			Total:     e.Amount,
		})
		return nil

	case models.EntryWithdraw:
		if err := m.breaker.check(); err != nil {
			return err
		}
		if held := m.escrow.BalanceOf(e.Caller); held != e.Amount {
			return fmt.Errorf("%w: withdrawal of %d, balance is %d", ErrCorruptJournal, e.Amount, held)
		}
		m.escrow.settle(e.Caller, m.escrow.take(e.Caller))
		return nil

	case models.EntryToggleBreaker:
		if err := checkToggle(m.authority.RoleOf(e.Caller)); err != nil {
			return err
		}
		if m.breaker.toggle() != e.Active {
			return fmt.Errorf("%w: breaker state mismatch", ErrCorruptJournal)
		}
		return nil

	default:
		return fmt.Errorf("%w: unknown entry type %q", ErrCorruptJournal, e.Type)
	}
}

func (m *Marketplace) RoleOf(id models.Identity) models.Role {
	return m.authority.RoleOf(id)
}

func (m *Marketplace) RequestAuthority(ctx context.Context, caller models.Identity) error {
	if err := m.authority.checkRequest(caller); err != nil {
		return err
	}
	return m.commit(ctx, m.entry(models.EntryRequestAuthority, caller))
}

func (m *Marketplace) GrantAuthority(ctx context.Context, caller, target models.Identity) error {
	if err := m.authority.checkGrant(caller, target); err != nil {
		return err
	}
	e := m.entry(models.EntryGrantAuthority, caller)
	e.Target = target
	return m.commit(ctx, e)
}

// ListPendingRequests returns every request log entry, in request order,
// paired with the requester's current role.
func (m *Marketplace) ListPendingRequests() []models.RequestRecord {
	return m.authority.Requests()
}

func (m *Marketplace) RequestCount() uint64 {
	return m.authority.RequestCount()
}

func (m *Marketplace) GetRequest(index uint64) (models.RequestRecord, error) {
	return m.authority.Request(index)
}

func (m *Marketplace) ListStoreOwners() []models.Identity {
	return m.authority.StoreOwners()
}

// ListProduct returns the id of the new product.
func (m *Marketplace) ListProduct(ctx context.Context, caller models.Identity, name, description, imageRef string, price, quantity uint64) (uint64, error) {
	if err := checkListing(m.authority.RoleOf(caller), price, quantity); err != nil {
		return 0, err
	}
	e := m.entry(models.EntryListProduct, caller)
	e.ProductID = m.catalog.nextID()
	e.Name = name
	e.Description = description
	e.ImageRef = imageRef
	e.Amount = price
	e.Quantity = quantity
	if err := m.commit(ctx, e); err != nil {
		return 0, err
	}
	return e.ProductID, nil
}

func (m *Marketplace) GetProduct(id uint64) (models.Product, error) {
	return m.catalog.Get(id)
}

func (m *Marketplace) ProductCount() uint64 {
	return m.catalog.Count()
}

func (m *Marketplace) Products() []models.Product {
	return m.catalog.All()
}

func (m *Marketplace) ProductsByOwner(owner models.Identity) []models.Product {
	return m.catalog.ByOwner(owner)
}

func (m *Marketplace) checkBuy(productID, quantity, paidValue uint64) (models.Product, error) {
	if err := m.breaker.check(); err != nil {
		return models.Product{}, err
	}
	p, err := m.catalog.Get(productID)
	if err != nil {
		return models.Product{}, err
	}
	if quantity == 0 || quantity > p.RemainingQuantity {
		return models.Product{}, fmt.Errorf("%w: product %d has %d left, %d requested",
			ErrInsufficientInventory, p.ID, p.RemainingQuantity, quantity)
	}
	hi, required := bits.Mul64(p.Price, quantity)
	if hi != 0 {
		return models.Product{}, fmt.Errorf("%w: total price overflows", ErrInvalidPayment)
	}
	if paidValue != required {
		return models.Product{}, fmt.Errorf("%w: paid %d, required %d", ErrInvalidPayment, paidValue, required)
	}
	if paidValue > math.MaxUint64-m.paid {
		return models.Product{}, fmt.Errorf("%w: ledger value total would overflow", ErrInvalidPayment)
	}
	return p, nil
}

// Buy purchases quantity units of a product for exactly price*quantity and
// credits the payment to the seller's escrow balance. It returns the order id.
func (m *Marketplace) Buy(ctx context.Context, caller models.Identity, productID, quantity, paidValue uint64) (uint64, error) {
	if _, err := m.checkBuy(productID, quantity, paidValue); err != nil {
		return 0, err
	}
	e := m.entry(models.EntryBuy, caller)
	e.ProductID = productID
	e.Quantity = quantity
	e.Amount = paidValue
	e.OrderID = uint64(len(m.orders)) + 1
	if err := m.commit(ctx, e); err != nil {
		return 0, err
	}
	return e.OrderID, nil
}

func (m *Marketplace) GetOrder(id uint64) (models.Order, error) {
	if id == 0 || id > uint64(len(m.orders)) {
		return models.Order{}, fmt.Errorf("%w: order %d", ErrNotFound, id)
	}
	return m.orders[id-1], nil
}

func (m *Marketplace) OrderCount() uint64 {
	return uint64(len(m.orders))
}

func (m *Marketplace) BalanceOf(id models.Identity) uint64 {
	return m.escrow.BalanceOf(id)
}

// Withdraw pays the caller's whole escrow balance out through the Payout
// and returns the amount. An empty balance is a successful no-op. The
// balance is zeroed before the transfer and restored if the transfer or
// the commit fails.
func (m *Marketplace) Withdraw(ctx context.Context, caller models.Identity) (uint64, error) {
	if err := m.breaker.check(); err != nil {
		return 0, err
	}
	if m.escrow.BalanceOf(caller) == 0 {
		return 0, nil
	}

	amount := m.escrow.take(caller)
	restore := func() { m.escrow.credit(caller, amount) }

	if m.payout == nil {
		restore()
		return 0, fmt.Errorf("%w: no payout configured", ErrTransferFailed)
	}
	if err := m.payout.Transfer(ctx, caller, amount); err != nil {
		restore()
		return 0, fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}

	e := m.entry(models.EntryWithdraw, caller)
	e.Amount = amount
	if err := m.committer.Commit(ctx, e); err != nil {
		restore()
		return 0, fmt.Errorf("failed to commit %s: %w", e.Type, err)
	}
	m.escrow.settle(caller, amount)
	m.seq = e.Seq
	return amount, nil
}

// Held is the value currently in escrow across all sellers.
func (m *Marketplace) Held() uint64 {
	return m.escrow.Held()
}

func (m *Marketplace) TotalWithdrawn() uint64 {
	return m.escrow.Withdrawn()
}

func (m *Marketplace) Withdrawals() []models.Withdrawal {
	return m.escrow.Withdrawals()
}

func (m *Marketplace) IsActive() bool {
	return m.breaker.IsActive()
}

// Toggle flips the circuit breaker and returns the new state.
func (m *Marketplace) Toggle(ctx context.Context, caller models.Identity) (bool, error) {
	if err := checkToggle(m.authority.RoleOf(caller)); err != nil {
		return m.breaker.IsActive(), err
	}
	e := m.entry(models.EntryToggleBreaker, caller)
	e.Active = !m.breaker.IsActive()
	if err := m.commit(ctx, e); err != nil {
		return m.breaker.IsActive(), err
	}
	return m.breaker.IsActive(), nil
}

// Seq is the sequence number of the last committed entry.
func (m *Marketplace) Seq() uint64 {
	return m.seq
}

type Conservation struct {
	Held       uint64 `json:"held"`
	Withdrawn  uint64 `json:"withdrawn"`
	OrderTotal uint64 `json:"order_total"`
}

func (c Conservation) Balanced() bool {
	sum, carry := bits.Add64(c.Held, c.Withdrawn, 0)
	return carry == 0 && sum == c.OrderTotal
}

// Audit checks that escrow plus withdrawn value equals the total paid for
// all orders.
func (m *Marketplace) Audit() (Conservation, error) {
	c := Conservation{
		Held:      m.escrow.Held(),
		Withdrawn: m.escrow.Withdrawn(),
	}
	var overflow bool
	for _, o := range m.orders {
		var carry uint64
		c.OrderTotal, carry = bits.Add64(c.OrderTotal, o.Total, 0)
		overflow = overflow || carry != 0
	}
	if overflow || c.OrderTotal != m.paid {
		return c, fmt.Errorf("%w: order totals do not sum to %d", ErrValueNotConserved, m.paid)
	}
	if !c.Balanced() {
		return c, fmt.Errorf("%w: held %d + withdrawn %d != orders %d",
			ErrValueNotConserved, c.Held, c.Withdrawn, c.OrderTotal)
	}
	return c, nil
}
