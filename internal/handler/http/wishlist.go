package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/delali3/era-store-sub002/internal/wishlist"
	apperrors "github.com/delali3/era-store-sub002/pkg/errors"
	"github.com/delali3/era-store-sub002/pkg/httputil"
	"github.com/delali3/era-store-sub002/pkg/middleware"
)

// WishlistHandler handles HTTP requests for wishlist and recently-viewed
// endpoints.
type WishlistHandler struct {
	service *wishlist.Service
	logger  *slog.Logger
}

// NewWishlistHandler creates a new wishlist HTTP handler.
func NewWishlistHandler(svc *wishlist.Service, logger *slog.Logger) *WishlistHandler {
	return &WishlistHandler{
		service: svc,
		logger:  logger,
	}
}

// ProductRequest is the JSON request body naming a single product.
type ProductRequest struct {
	ProductID int64 `json:"product_id"`
}

// ToggleResponse reports the wishlist after a toggle and whether the
// product ended up saved.
type ToggleResponse struct {
	Saved      bool    `json:"saved"`
	ProductIDs []int64 `json:"product_ids"`
}

// Get handles GET /api/v1/wishlist
func (h *WishlistHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	wl, err := h.service.GetWishlist(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: wl})
}

// Toggle handles POST /api/v1/wishlist/toggle
func (h *WishlistHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	var req ProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("invalid request body"), h.logger)
		return
	}

	wl, saved, err := h.service.Toggle(r.Context(), userID, req.ProductID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: ToggleResponse{Saved: saved, ProductIDs: wl.ProductIDs},
	})
}

// Remove handles DELETE /api/v1/wishlist/items/{productID}
func (h *WishlistHandler) Remove(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	productID, err := productIDParam(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	wl, err := h.service.Remove(r.Context(), userID, productID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: wl})
}

// RecentlyViewed handles GET /api/v1/recently-viewed
func (h *WishlistHandler) RecentlyViewed(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	v, err := h.service.GetRecentlyViewed(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: v})
}

// RecordView handles POST /api/v1/recently-viewed
func (h *WishlistHandler) RecordView(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	var req ProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("invalid request body"), h.logger)
		return
	}

	v, err := h.service.RecordView(r.Context(), userID, req.ProductID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: v})
}
