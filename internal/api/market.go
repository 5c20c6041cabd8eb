package api

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/erazemk/trznica/internal/events"
	"github.com/erazemk/trznica/internal/market"
	"github.com/erazemk/trznica/internal/model"
	"github.com/erazemk/trznica/internal/store"
)

// MarketHandler handles the purchase and claim endpoints.
type MarketHandler struct {
	DB   *sql.DB
	Sink events.Sink
}

type purchaseRequest struct {
	Payment uint64 `json:"payment"`
	// At optionally fixes the pricing time; zero means "now".
	At uint64 `json:"at,omitempty"`
}

type purchaseResponse struct {
	ItemID uuid.UUID `json:"item_id"`
	Price  uint64    `json:"price"`
	Change uint64    `json:"change"`
}

type claimRequest struct {
	Cap string `json:"cap"`
}

type claimResponse struct {
	ItemID   uuid.UUID `json:"item_id"`
	Proceeds uint64    `json:"proceeds"`
}

// Purchase handles POST /api/items/{id}/purchase. The caller is the buyer;
// the payment is taken from their wallet and the change returned to it.
func (h *MarketHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	var req purchaseRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	at := req.At
	if at == 0 {
		at = uint64(time.Now().Unix())
	}

	claims := GetClaims(r.Context())
	change, err := market.PurchaseItem(r.Context(), h.DB, h.Sink, id, claims.UserID, req.Payment, at)
	if err != nil {
		marketError(w, err)
		return
	}

	slog.Info("item purchased", "item", id, "buyer", claims.Username, "paid", req.Payment-change)
	jsonResponse(w, http.StatusOK, purchaseResponse{
		ItemID: id,
		Price:  req.Payment - change,
		Change: change,
	})
}

// Claim handles POST /api/items/{id}/claim. Whoever presents the matching
// capability receives the item's full balance; item and capability are
// destroyed.
func (h *MarketHandler) Claim(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	var req claimRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	capID, err := uuid.Parse(req.Cap)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid capability")
		return
	}

	claims := GetClaims(r.Context())
	proceeds, err := market.ClaimEarnings(r.Context(), h.DB, h.Sink, id, capID, claims.UserID)
	if err != nil {
		marketError(w, err)
		return
	}

	slog.Info("earnings claimed", "item", id, "claimant", claims.Username, "proceeds", proceeds)
	jsonResponse(w, http.StatusOK, claimResponse{ItemID: id, Proceeds: proceeds})
}

// ListPurchases handles GET /api/purchases, optionally filtered by item or
// buyer.
func (h *MarketHandler) ListPurchases(w http.ResponseWriter, r *http.Request) {
	itemID := uuid.Nil
	if i := r.URL.Query().Get("item"); i != "" {
		var err error
		itemID, err = uuid.Parse(i)
		if err != nil {
			jsonError(w, http.StatusBadRequest, "invalid item id")
			return
		}
	}

	var buyerID int64
	if b := r.URL.Query().Get("buyer"); b != "" {
		var err error
		buyerID, err = strconv.ParseInt(b, 10, 64)
		if err != nil {
			jsonError(w, http.StatusBadRequest, "invalid buyer id")
			return
		}
	}

	purchases, err := store.ListPurchases(r.Context(), h.DB, itemID, buyerID)
	if err != nil {
		slog.Error("failed to list purchases", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list purchases")
		return
	}
	if purchases == nil {
		purchases = []model.Purchase{}
	}
	jsonResponse(w, http.StatusOK, purchases)
}

// timestampParam reads the optional `at` query parameter, defaulting to the
// server's current time. Reports false if the parameter is malformed (a
// response has been written already).
func timestampParam(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	at := r.URL.Query().Get("at")
	if at == "" {
		return uint64(time.Now().Unix()), true
	}

	parsed, err := strconv.ParseUint(at, 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid timestamp")
		return 0, false
	}
	return parsed, true
}

// marketError maps core marketplace errors to HTTP status codes.
func marketError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, market.ErrItemNotFound):
		jsonError(w, http.StatusNotFound, "item not found")
	case errors.Is(err, market.ErrItemNotAvailable):
		jsonError(w, http.StatusConflict, "item not available")
	case errors.Is(err, market.ErrListingExpired):
		jsonError(w, http.StatusGone, "listing expired")
	case errors.Is(err, market.ErrInsufficientPayment):
		jsonError(w, http.StatusPaymentRequired, "payment below price")
	case errors.Is(err, market.ErrInsufficientFunds):
		jsonError(w, http.StatusPaymentRequired, "insufficient wallet balance")
	case errors.Is(err, market.ErrInvalidCap), errors.Is(err, market.ErrCapMismatch):
		jsonError(w, http.StatusForbidden, "capability does not authorize this item")
	default:
		slog.Error("market operation failed", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
	}
}
