package handlers

import (
	"net/http"

	"marketplace-ledger/internal/middleware"
	"marketplace-ledger/internal/models"

	"github.com/rs/zerolog"
)

type EscrowHandler struct {
	marketplace Marketplace
	logger      zerolog.Logger
}

func NewEscrowHandler(marketplace Marketplace, logger zerolog.Logger) *EscrowHandler {
	return &EscrowHandler{
		marketplace: marketplace,
		logger:      logger,
	}
}

// GetBalance reports the caller's escrow balance. An Admin may ask for any
// identity with ?identity=.
func (h *EscrowHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.GetCaller(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized", "Caller not authenticated")
		return
	}

	id := caller
	if q := r.URL.Query().Get("identity"); q != "" {
		if h.marketplace.RoleOf(caller) != models.RoleAdmin {
			h.logger.Warn().
				Str("request_id", middleware.GetRequestID(r)).
				Str("caller", string(caller)).
				Str("identity", q).
				Msg("Balance lookup for another identity denied")
			respondWithError(w, http.StatusForbidden, "forbidden", "Only the admin can view other balances")
			return
		}
		parsed, err := models.ParseIdentity(q)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "invalid_identity", "Invalid identity")
			return
		}
		id = parsed
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"identity": id,
		"balance":  h.marketplace.BalanceOf(id),
	})
}

func (h *EscrowHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.GetCaller(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized", "Caller not authenticated")
		return
	}

	amount, err := h.marketplace.Withdraw(r.Context(), caller)
	if err != nil {
		respondWithLedgerError(w, err)
		return
	}

	h.logger.Info().
		Str("request_id", middleware.GetRequestID(r)).
		Str("seller", string(caller)).
		Uint64("amount", amount).
		Msg("Withdrawal paid out")

	respondWithJSON(w, http.StatusOK, models.Withdrawal{Seller: caller, Amount: amount})
}
