package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/delali3/era-store-sub002/internal/address"
	apperrors "github.com/delali3/era-store-sub002/pkg/errors"
	"github.com/delali3/era-store-sub002/pkg/httputil"
	"github.com/delali3/era-store-sub002/pkg/middleware"
	"github.com/delali3/era-store-sub002/pkg/validator"
)

// AddressHandler handles HTTP requests for address book endpoints.
type AddressHandler struct {
	selector *address.Selector
	logger   *slog.Logger
}

// NewAddressHandler creates a new address HTTP handler.
func NewAddressHandler(selector *address.Selector, logger *slog.Logger) *AddressHandler {
	return &AddressHandler{
		selector: selector,
		logger:   logger,
	}
}

// AddAddressRequest wraps the address form with the default flag.
type AddAddressRequest struct {
	address.Input
	MakeDefault bool `json:"make_default"`
}

// Snapshot handles GET /api/v1/addresses
func (h *AddressHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: h.selector.Snapshot(userID)})
}

// Load handles POST /api/v1/addresses/load
func (h *AddressHandler) Load(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	snap, err := h.selector.Load(r.Context(), userID)
	if err != nil {
		// The snapshot carries the error state and remaining attempts, so
		// the client still gets a body it can render.
		status := apperrors.HTTPStatus(err)
		httputil.WriteJSON(w, status, httputil.Response{
			Data:  snap,
			Error: &httputil.ErrorResponse{Code: "ADDRESS_LOAD_FAILED", Message: "could not load addresses"},
		})
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: snap})
}

// Add handles POST /api/v1/addresses
func (h *AddressHandler) Add(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	var req AddAddressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("invalid request body"), h.logger)
		return
	}

	snap, err := h.selector.Add(r.Context(), userID, &req.Input, req.MakeDefault)
	if err != nil {
		h.writeSelectorError(w, r, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: snap})
}

// Update handles PUT /api/v1/addresses/{addressID}
func (h *AddressHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	addressID := chi.URLParam(r, "addressID")

	var input address.Input
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("invalid request body"), h.logger)
		return
	}

	snap, err := h.selector.Update(r.Context(), userID, addressID, &input)
	if err != nil {
		h.writeSelectorError(w, r, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: snap})
}

// Delete handles DELETE /api/v1/addresses/{addressID}
func (h *AddressHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	addressID := chi.URLParam(r, "addressID")

	snap, err := h.selector.Delete(r.Context(), userID, addressID)
	if err != nil {
		h.writeSelectorError(w, r, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: snap})
}

// SetDefault handles POST /api/v1/addresses/{addressID}/default
func (h *AddressHandler) SetDefault(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	addressID := chi.URLParam(r, "addressID")

	snap, err := h.selector.SetDefault(r.Context(), userID, addressID)
	if err != nil {
		h.writeSelectorError(w, r, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: snap})
}

// Select handles POST /api/v1/addresses/{addressID}/select
func (h *AddressHandler) Select(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	addressID := chi.URLParam(r, "addressID")

	snap, err := h.selector.Select(userID, addressID)
	if err != nil {
		h.writeSelectorError(w, r, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: snap})
}

func (h *AddressHandler) writeSelectorError(w http.ResponseWriter, r *http.Request, err error) {
	var valErr *validator.ValidationError
	if errors.As(err, &valErr) {
		httputil.WriteValidationError(w, err)
		return
	}
	httputil.WriteError(w, r, err, h.logger)
}
