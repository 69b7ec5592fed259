package handlers

import (
	"encoding/json"
	"net/http"

	"marketplace-ledger/internal/middleware"
	"marketplace-ledger/internal/models"

	"github.com/rs/zerolog"
)

type ProductHandler struct {
	marketplace Marketplace
	logger      zerolog.Logger
}

func NewProductHandler(marketplace Marketplace, logger zerolog.Logger) *ProductHandler {
	return &ProductHandler{
		marketplace: marketplace,
		logger:      logger,
	}
}

func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.GetCaller(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized", "Caller not authenticated")
		return
	}

	var req models.ListProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn().Err(err).Str("request_id", middleware.GetRequestID(r)).Msg("Invalid product listing body")
		respondWithError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	id, err := h.marketplace.ListProduct(r.Context(), caller, req.Name, req.Description, req.ImageRef, req.Price, req.Quantity)
	if err != nil {
		respondWithLedgerError(w, err)
		return
	}

	product, err := h.marketplace.GetProduct(id)
	if err != nil {
		respondWithLedgerError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, product)
}

func (h *ProductHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"count":    h.marketplace.ProductCount(),
		"products": h.marketplace.Products(),
	})
}

func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUint(r, "id")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "invalid_product_id", "Invalid product ID")
		return
	}

	product, err := h.marketplace.GetProduct(id)
	if err != nil {
		respondWithLedgerError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, product)
}

func (h *ProductHandler) GetByOwner(w http.ResponseWriter, r *http.Request) {
	owner, ok := pathIdentity(r, "identity")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "invalid_identity", "Invalid identity")
		return
	}

	products := h.marketplace.ProductsByOwner(owner)
	if products == nil {
		products = []models.Product{}
	}
	respondWithJSON(w, http.StatusOK, products)
}
