package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"marketplace-ledger/internal/ledger"
	"marketplace-ledger/internal/models"
	"marketplace-ledger/internal/services"

	"github.com/gorilla/mux"
)

// Marketplace is the ledger operation surface the handlers drive.
type Marketplace interface {
	RoleOf(id models.Identity) models.Role
	RequestAuthority(ctx context.Context, caller models.Identity) error
	GrantAuthority(ctx context.Context, caller, target models.Identity) error
	ListPendingRequests() []models.RequestRecord
	GetRequest(index uint64) (models.RequestRecord, error)
	ListStoreOwners() []models.Identity

	ListProduct(ctx context.Context, caller models.Identity, name, description, imageRef string, price, quantity uint64) (uint64, error)
	GetProduct(id uint64) (models.Product, error)
	ProductCount() uint64
	Products() []models.Product
	ProductsByOwner(owner models.Identity) []models.Product

	Buy(ctx context.Context, caller models.Identity, productID, quantity, paidValue uint64) (uint64, error)
	GetOrder(id uint64) (models.Order, error)

	BalanceOf(id models.Identity) uint64
	Withdraw(ctx context.Context, caller models.Identity) (uint64, error)

	IsActive() bool
	Toggle(ctx context.Context, caller models.Identity) (bool, error)
}

var ledgerErrors = []struct {
	kind   error
	status int
	code   string
}{
	{ledger.ErrUnauthorized, http.StatusForbidden, "unauthorized"},
	{ledger.ErrInvalidRoleTransition, http.StatusConflict, "invalid_role_transition"},
	{ledger.ErrInvalidArgument, http.StatusBadRequest, "invalid_argument"},
	{ledger.ErrNotFound, http.StatusNotFound, "not_found"},
	{ledger.ErrInsufficientInventory, http.StatusConflict, "insufficient_inventory"},
	{ledger.ErrInvalidPayment, http.StatusPaymentRequired, "invalid_payment"},
	{ledger.ErrSystemPaused, http.StatusServiceUnavailable, "system_paused"},
	{ledger.ErrTransferFailed, http.StatusBadGateway, "transfer_failed"},
	{services.ErrLedgerHalted, http.StatusServiceUnavailable, "ledger_halted"},
}

// respondWithLedgerError reports ledger failures verbatim; anything else is
// an internal error whose detail stays in the logs.
func respondWithLedgerError(w http.ResponseWriter, err error) {
	for _, e := range ledgerErrors {
		if errors.Is(err, e.kind) {
			respondWithError(w, e.status, e.code, err.Error())
			return
		}
	}
	respondWithError(w, http.StatusInternalServerError, "internal_error", "An internal error occurred")
}

func respondWithError(w http.ResponseWriter, code int, errorCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{
		"error":   errorCode,
		"message": message,
	})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}

func pathUint(r *http.Request, name string) (uint64, bool) {
	v, err := strconv.ParseUint(mux.Vars(r)[name], 10, 64)
	return v, err == nil
}

func pathIdentity(r *http.Request, name string) (models.Identity, bool) {
	id, err := models.ParseIdentity(mux.Vars(r)[name])
	return id, err == nil
}

func queryInt(r *http.Request, name string, fallback int) int {
	if v, err := strconv.Atoi(r.URL.Query().Get(name)); err == nil && v >= 0 {
		return v
	}
	return fallback
}
