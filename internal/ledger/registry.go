package ledger

import (
	"fmt"

	"marketplace-ledger/internal/models"
)

// AuthorityRegistry holds the role of every identity and the append-only
// log of authority requests.
type AuthorityRegistry struct {
	roles    map[models.Identity]models.Role
	requests []models.Identity
}

func newAuthorityRegistry() *AuthorityRegistry {
	return &AuthorityRegistry{roles: make(map[models.Identity]models.Role)}
}

// RoleOf defaults to RoleUser for identities never seen.
func (a *AuthorityRegistry) RoleOf(id models.Identity) models.Role {
	if r, ok := a.roles[id]; ok {
		return r
	}
	return models.RoleUser
}

func (a *AuthorityRegistry) setAdmin(id models.Identity) {
	a.roles[id] = models.RoleAdmin
}

func (a *AuthorityRegistry) checkRequest(caller models.Identity) error {
	switch r := a.RoleOf(caller); r {
	case models.RoleUser:
		return nil
	case models.RoleRequested, models.RoleStoreOwner, models.RoleAdmin:
		return fmt.Errorf("%w: %s is already %s", ErrInvalidRoleTransition, caller, r)
	default:
		return fmt.Errorf("%w: unknown role %s", ErrInvalidRoleTransition, r)
	}
}

func (a *AuthorityRegistry) request(caller models.Identity) error {
	if err := a.checkRequest(caller); err != nil {
		return err
	}
	a.roles[caller] = models.RoleRequested
	a.requests = append(a.requests, caller)
	return nil
}

func (a *AuthorityRegistry) checkGrant(caller, target models.Identity) error {
	switch r := a.RoleOf(caller); r {
	case models.RoleAdmin:
	case models.RoleUser, models.RoleRequested, models.RoleStoreOwner:
		return fmt.Errorf("%w: %s may not grant authority", ErrUnauthorized, r)
	default:
		return fmt.Errorf("%w: unknown role %s", ErrUnauthorized, r)
	}

	switch r := a.RoleOf(target); r {
	case models.RoleRequested:
		return nil
	case models.RoleUser:
		return fmt.Errorf("%w: %s never requested authority", ErrInvalidRoleTransition, target)
	case models.RoleStoreOwner, models.RoleAdmin:
		return fmt.Errorf("%w: %s is already %s", ErrInvalidRoleTransition, target, r)
	default:
		return fmt.Errorf("%w: unknown role %s", ErrInvalidRoleTransition, r)
	}
}

func (a *AuthorityRegistry) grant(caller, target models.Identity) error {
	if err := a.checkGrant(caller, target); err != nil {
		return err
	}
	a.roles[target] = models.RoleStoreOwner
	return nil
}

func (a *AuthorityRegistry) RequestCount() uint64 {
	return uint64(len(a.requests))
}

// Request returns the 1-based request log entry with the identity's current role.
func (a *AuthorityRegistry) Request(index uint64) (models.RequestRecord, error) {
	if index == 0 || index > uint64(len(a.requests)) {
		return models.RequestRecord{}, fmt.Errorf("%w: request %d", ErrNotFound, index)
	}
	id := a.requests[index-1]
	return models.RequestRecord{Index: index, Identity: id, Role: a.RoleOf(id)}, nil
}

// Requests enumerates the whole request log in request order. The slice is
// rebuilt on every call.
func (a *AuthorityRegistry) Requests() []models.RequestRecord {
	records := make([]models.RequestRecord, 0, len(a.requests))
	for i, id := range a.requests {
		records = append(records, models.RequestRecord{
			Index:    uint64(i + 1),
			Identity: id,
			Role:     a.RoleOf(id),
		})
	}
	return records
}

func (a *AuthorityRegistry) StoreOwners() []models.Identity {
	var owners []models.Identity
	for _, id := range a.requests {
		if a.RoleOf(id) == models.RoleStoreOwner {
			owners = append(owners, id)
		}
	}
	return owners
}
