package handlers

import (
	"encoding/json"
	"net/http"

	"marketplace-ledger/internal/models"

	"github.com/rs/zerolog"
)

type Authenticator interface {
	VerifyLogin(req *models.LoginRequest) (models.Identity, error)
	GenerateToken(id models.Identity, role models.Role) (string, error)
}

type AuthHandler struct {
	auth        Authenticator
	marketplace Marketplace
	logger      zerolog.Logger
}

func NewAuthHandler(auth Authenticator, marketplace Marketplace, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		auth:        auth,
		marketplace: marketplace,
		logger:      logger,
	}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	id, err := h.auth.VerifyLogin(&req)
	if err != nil {
		h.logger.Warn().Err(err).Msg("Login failed")
		respondWithError(w, http.StatusUnauthorized, "authentication_failed", "Invalid login signature")
		return
	}

	role := h.marketplace.RoleOf(id)
	token, err := h.auth.GenerateToken(id, role)
	if err != nil {
		h.logger.Error().Err(err).Msg("Token generation failed")
		respondWithError(w, http.StatusInternalServerError, "token_generation_failed", "Failed to generate token")
		return
	}

	respondWithJSON(w, http.StatusOK, models.AuthResponse{
		Identity: id,
		Role:     role,
		Token:    token,
	})
}
