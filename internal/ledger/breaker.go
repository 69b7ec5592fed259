package ledger

import (
	"fmt"

	"marketplace-ledger/internal/models"
)

// CircuitBreaker gates value-moving operations. Active means not halted.
type CircuitBreaker struct {
	active bool
}

func (b *CircuitBreaker) IsActive() bool {
	return b.active
}

func (b *CircuitBreaker) check() error {
	if !b.active {
		return ErrSystemPaused
	}
	return nil
}

func checkToggle(role models.Role) error {
	switch role {
	case models.RoleAdmin:
		return nil
	case models.RoleUser, models.RoleRequested, models.RoleStoreOwner:
		return fmt.Errorf("%w: %s may not toggle the circuit breaker", ErrUnauthorized, role)
	default:
		return fmt.Errorf("%w: unknown role %s", ErrUnauthorized, role)
	}
}

func (b *CircuitBreaker) toggle() bool {
	b.active = !b.active
	return b.active
}
