package handlers

import (
	"context"
	"net/http"

	"marketplace-ledger/internal/middleware"
	"marketplace-ledger/internal/models"

	"github.com/rs/zerolog"
)

type Wallet interface {
	GetBalance(ctx context.Context, id models.Identity) (*models.WalletBalance, error)
	GetHistory(ctx context.Context, id models.Identity, limit, offset int) ([]*models.WalletHistory, error)
}

type WalletHandler struct {
	wallet Wallet
	logger zerolog.Logger
}

func NewWalletHandler(wallet Wallet, logger zerolog.Logger) *WalletHandler {
	return &WalletHandler{
		wallet: wallet,
		logger: logger,
	}
}

func (h *WalletHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.GetCaller(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized", "Caller not authenticated")
		return
	}

	balance, err := h.wallet.GetBalance(r.Context(), caller)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to fetch wallet")
		respondWithError(w, http.StatusInternalServerError, "fetch_failed", "Failed to fetch wallet")
		return
	}

	respondWithJSON(w, http.StatusOK, balance)
}

func (h *WalletHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.GetCaller(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized", "Caller not authenticated")
		return
	}

	limit := queryInt(r, "limit", 50)
	if limit == 0 {
		limit = 50
	}
	offset := queryInt(r, "offset", 0)

	history, err := h.wallet.GetHistory(r.Context(), caller, limit, offset)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to fetch wallet history")
		respondWithError(w, http.StatusInternalServerError, "fetch_failed", "Failed to fetch wallet history")
		return
	}

	respondWithJSON(w, http.StatusOK, history)
}
