package handlers

import (
	"net/http"

	"marketplace-ledger/internal/middleware"

	"github.com/rs/zerolog"
)

type BreakerHandler struct {
	marketplace Marketplace
	logger      zerolog.Logger
}

func NewBreakerHandler(marketplace Marketplace, logger zerolog.Logger) *BreakerHandler {
	return &BreakerHandler{
		marketplace: marketplace,
		logger:      logger,
	}
}

func (h *BreakerHandler) Status(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]bool{"active": h.marketplace.IsActive()})
}

func (h *BreakerHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.GetCaller(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized", "Caller not authenticated")
		return
	}

	active, err := h.marketplace.Toggle(r.Context(), caller)
	if err != nil {
		respondWithLedgerError(w, err)
		return
	}

	h.logger.Info().
		Str("request_id", middleware.GetRequestID(r)).
		Str("caller", string(caller)).
		Bool("active", active).
		Msg("Circuit breaker toggled")

	respondWithJSON(w, http.StatusOK, map[string]bool{"active": active})
}
