package handlers

import (
	"encoding/json"
	"net/http"

	"marketplace-ledger/internal/middleware"
	"marketplace-ledger/internal/models"

	"github.com/rs/zerolog"
)

type OrderHandler struct {
	marketplace Marketplace
	logger      zerolog.Logger
}

func NewOrderHandler(marketplace Marketplace, logger zerolog.Logger) *OrderHandler {
	return &OrderHandler{
		marketplace: marketplace,
		logger:      logger,
	}
}

func (h *OrderHandler) Buy(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.GetCaller(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized", "Caller not authenticated")
		return
	}

	var req models.BuyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn().Err(err).Str("request_id", middleware.GetRequestID(r)).Msg("Invalid order body")
		respondWithError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	orderID, err := h.marketplace.Buy(r.Context(), caller, req.ProductID, req.Quantity, req.PaidValue)
	if err != nil {
		respondWithLedgerError(w, err)
		return
	}

	order, err := h.marketplace.GetOrder(orderID)
	if err != nil {
		respondWithLedgerError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, order)
}

func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUint(r, "id")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "invalid_order_id", "Invalid order ID")
		return
	}

	order, err := h.marketplace.GetOrder(id)
	if err != nil {
		respondWithLedgerError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, order)
}
