package handlers

import (
	"encoding/json"
	"net/http"

	"marketplace-ledger/internal/middleware"
	"marketplace-ledger/internal/models"

	"github.com/rs/zerolog"
)

type AuthorityHandler struct {
	marketplace Marketplace
	logger      zerolog.Logger
}

func NewAuthorityHandler(marketplace Marketplace, logger zerolog.Logger) *AuthorityHandler {
	return &AuthorityHandler{
		marketplace: marketplace,
		logger:      logger,
	}
}

func (h *AuthorityHandler) Request(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.GetCaller(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized", "Caller not authenticated")
		return
	}

	if err := h.marketplace.RequestAuthority(r.Context(), caller); err != nil {
		respondWithLedgerError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, map[string]interface{}{
		"identity": caller,
		"role":     h.marketplace.RoleOf(caller),
	})
}

func (h *AuthorityHandler) Grant(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.GetCaller(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized", "Caller not authenticated")
		return
	}

	var req models.GrantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn().Err(err).Str("request_id", middleware.GetRequestID(r)).Msg("Invalid grant request body")
		respondWithError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	target, err := models.ParseIdentity(req.Target)
	if err != nil {
		h.logger.Warn().Err(err).Str("request_id", middleware.GetRequestID(r)).Msg("Invalid grant target")
		respondWithError(w, http.StatusBadRequest, "invalid_identity", "Invalid target identity")
		return
	}

	if err := h.marketplace.GrantAuthority(r.Context(), caller, target); err != nil {
		respondWithLedgerError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"identity": target,
		"role":     h.marketplace.RoleOf(target),
	})
}

func (h *AuthorityHandler) ListRequests(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.marketplace.ListPendingRequests())
}

func (h *AuthorityHandler) GetRequest(w http.ResponseWriter, r *http.Request) {
	index, ok := pathUint(r, "index")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "invalid_index", "Invalid request index")
		return
	}

	record, err := h.marketplace.GetRequest(index)
	if err != nil {
		respondWithLedgerError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, record)
}

func (h *AuthorityHandler) GetRole(w http.ResponseWriter, r *http.Request) {
	id, ok := pathIdentity(r, "identity")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "invalid_identity", "Invalid identity")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"identity": id,
		"role":     h.marketplace.RoleOf(id),
	})
}

func (h *AuthorityHandler) ListStores(w http.ResponseWriter, r *http.Request) {
	owners := h.marketplace.ListStoreOwners()
	if owners == nil {
		owners = []models.Identity{}
	}
	respondWithJSON(w, http.StatusOK, owners)
}
