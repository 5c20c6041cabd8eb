package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/erazemk/trznica/internal/store"
)

// WalletHandler handles wallet endpoints.
type WalletHandler struct {
	DB *sql.DB
}

type creditWalletRequest struct {
	Amount uint64 `json:"amount"`
}

// Get handles GET /api/wallet, returning the caller's own wallet.
func (h *WalletHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	wallet, err := store.GetWallet(r.Context(), h.DB, claims.UserID)
	if err != nil {
		slog.Error("failed to get wallet", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get wallet")
		return
	}
	jsonResponse(w, http.StatusOK, wallet)
}

// Credit handles POST /api/users/{id}/wallet (admin only). This is the
// only way value enters the marketplace.
func (h *WalletHandler) Credit(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	var req creditWalletRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Amount == 0 {
		jsonError(w, http.StatusBadRequest, "amount must be positive")
		return
	}

	user, err := store.GetUser(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if user == nil {
		jsonError(w, http.StatusNotFound, "user not found")
		return
	}

	wallet, err := store.CreditWallet(r.Context(), h.DB, id, req.Amount)
	if err != nil {
		slog.Error("failed to credit wallet", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to credit wallet")
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("wallet credited", "user", claims.Username, "target_user", user.Username, "amount", req.Amount)
	jsonResponse(w, http.StatusOK, wallet)
}
