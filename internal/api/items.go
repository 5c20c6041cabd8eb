package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/erazemk/trznica/internal/events"
	"github.com/erazemk/trznica/internal/imaging"
	"github.com/erazemk/trznica/internal/market"
	"github.com/erazemk/trznica/internal/model"
	"github.com/erazemk/trznica/internal/store"
)

// ItemsHandler handles listing endpoints.
type ItemsHandler struct {
	DB   *sql.DB
	Sink events.Sink
}

type createItemRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	BasePrice   uint64 `json:"base_price"`
	ExpiresAt   uint64 `json:"expires_at"`
}

// createItemResponse carries the provider capability exactly once; it is
// never readable again through the API.
type createItemResponse struct {
	Item *model.Item        `json:"item"`
	Cap  *model.ProviderCap `json:"cap"`
}

// List handles GET /api/items.
func (h *ItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	var providerID int64
	if p := r.URL.Query().Get("provider"); p != "" {
		var err error
		providerID, err = strconv.ParseInt(p, 10, 64)
		if err != nil {
			jsonError(w, http.StatusBadRequest, "invalid provider id")
			return
		}
	}

	items, err := store.ListItems(r.Context(), h.DB, providerID)
	if err != nil {
		slog.Error("failed to list items", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list items")
		return
	}
	if items == nil {
		items = []model.Item{}
	}
	jsonResponse(w, http.StatusOK, items)
}

// Create handles POST /api/items: it lists a new item on behalf of the
// caller and returns the item together with its provider capability.
func (h *ItemsHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	var req createItemRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Name == "" {
		jsonError(w, http.StatusBadRequest, "name required")
		return
	}
	// Deliberately no validation of base_price or expires_at: a free item
	// or one listed already expired is a valid listing.

	item, capability, err := market.ListItem(r.Context(), h.DB, h.Sink,
		claims.UserID, req.Name, req.Description, req.BasePrice, req.ExpiresAt)
	if err != nil {
		slog.Error("failed to list item", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list item")
		return
	}

	jsonResponse(w, http.StatusCreated, createItemResponse{Item: item, Cap: capability})
}

// Get handles GET /api/items/{id}.
func (h *ItemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	item, err := store.GetItem(r.Context(), h.DB, id)
	if err != nil {
		slog.Error("failed to get item", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get item")
		return
	}
	if item == nil {
		jsonError(w, http.StatusNotFound, "item not found")
		return
	}

	jsonResponse(w, http.StatusOK, item)
}

// Price handles GET /api/items/{id}/price. The effective price is computed
// at the explicit `at` timestamp if given, otherwise at the server's
// current time.
func (h *ItemsHandler) Price(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	at, ok := timestampParam(w, r)
	if !ok {
		return
	}

	item, err := store.GetItem(r.Context(), h.DB, id)
	if err != nil {
		slog.Error("failed to get item", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get item")
		return
	}
	if item == nil {
		jsonError(w, http.StatusNotFound, "item not found")
		return
	}

	price, err := market.Price(item.BasePrice, item.ExpiresAt, at)
	if err != nil {
		marketError(w, err)
		return
	}

	jsonResponse(w, http.StatusOK, map[string]uint64{
		"price": price,
		"at":    at,
	})
}

// UploadImage handles PUT /api/items/{id}/image. Only the item's provider
// may upload.
func (h *ItemsHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	item, err := store.GetItem(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to get item")
		return
	}
	if item == nil {
		jsonError(w, http.StatusNotFound, "item not found")
		return
	}

	claims := GetClaims(r.Context())
	if claims.UserID != item.ProviderID {
		jsonError(w, http.StatusForbidden, "only the provider may upload an image")
		return
	}

	// Limit to 5 MB.
	r.Body = http.MaxBytesReader(w, r.Body, 5<<20)

	if err := r.ParseMultipartForm(5 << 20); err != nil {
		jsonError(w, http.StatusBadRequest, "file too large or invalid multipart form")
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "image file required")
		return
	}
	defer file.Close()

	processed, err := imaging.Process(file)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := store.SetItemImage(r.Context(), h.DB, id, processed.Data, processed.MIME); err != nil {
		slog.Error("failed to save item image", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to save image")
		return
	}

	jsonResponse(w, http.StatusOK, map[string]string{"message": "image uploaded"})
}

// GetImage handles GET /api/items/{id}/image.
func (h *ItemsHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	data, mime, err := store.GetItemImage(r.Context(), h.DB, id)
	if err != nil {
		slog.Error("failed to get item image", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get image")
		return
	}
	if data == nil {
		jsonError(w, http.StatusNotFound, "no image")
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Write(data)
}

// GetHistory handles GET /api/items/{id}/history.
func (h *ItemsHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	history, err := store.GetItemHistory(r.Context(), h.DB, id)
	if err != nil {
		slog.Error("failed to get item history", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get item history")
		return
	}
	if history == nil {
		history = []model.Purchase{}
	}
	jsonResponse(w, http.StatusOK, history)
}
