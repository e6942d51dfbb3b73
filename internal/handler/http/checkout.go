package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/delali3/era-store-sub002/internal/checkout"
	"github.com/delali3/era-store-sub002/internal/payment"
	apperrors "github.com/delali3/era-store-sub002/pkg/errors"
	"github.com/delali3/era-store-sub002/pkg/httputil"
	"github.com/delali3/era-store-sub002/pkg/middleware"
	"github.com/delali3/era-store-sub002/pkg/validator"
)

// CheckoutHandler handles HTTP requests for the checkout wizard.
type CheckoutHandler struct {
	orchestrator *checkout.Orchestrator
	logger       *slog.Logger
}

// NewCheckoutHandler creates a new checkout HTTP handler.
func NewCheckoutHandler(orchestrator *checkout.Orchestrator, logger *slog.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		orchestrator: orchestrator,
		logger:       logger,
	}
}

// Start handles POST /api/v1/checkout
func (h *CheckoutHandler) Start(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	sess, err := h.orchestrator.Start(r.Context(), userID)
	if err != nil {
		h.writeCheckoutError(w, r, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: sess})
}

// Session handles GET /api/v1/checkout
func (h *CheckoutHandler) Session(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	sess, err := h.orchestrator.Session(userID)
	if err != nil {
		h.writeCheckoutError(w, r, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: sess})
}

// ShippingMethods handles GET /api/v1/checkout/shipping-methods
func (h *CheckoutHandler) ShippingMethods(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: h.orchestrator.ShippingMethods()})
}

// SubmitShipping handles POST /api/v1/checkout/shipping
func (h *CheckoutHandler) SubmitShipping(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	var input checkout.ShippingInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("invalid request body"), h.logger)
		return
	}

	sess, err := h.orchestrator.SubmitShipping(r.Context(), userID, &input)
	if err != nil {
		h.writeCheckoutError(w, r, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: sess})
}

// SubmitPayment handles POST /api/v1/checkout/payment
func (h *CheckoutHandler) SubmitPayment(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	var input checkout.PaymentInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("invalid request body"), h.logger)
		return
	}

	sess, err := h.orchestrator.SubmitPayment(r.Context(), userID, &input)
	if err != nil {
		h.writeCheckoutError(w, r, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: sess})
}

// Back handles POST /api/v1/checkout/back
func (h *CheckoutHandler) Back(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	sess, err := h.orchestrator.Back(userID)
	if err != nil {
		h.writeCheckoutError(w, r, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: sess})
}

// Cancel handles DELETE /api/v1/checkout
func (h *CheckoutHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	h.orchestrator.Cancel(userID)
	w.WriteHeader(http.StatusNoContent)
}

// PlaceOrder handles POST /api/v1/checkout/place
func (h *CheckoutHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	result, err := h.orchestrator.PlaceOrder(r.Context(), userID)
	if err != nil {
		h.writeCheckoutError(w, r, err)
		return
	}

	status := http.StatusOK
	if result.Outcome == checkout.OutcomePending {
		status = http.StatusAccepted
	}
	httputil.WriteJSON(w, status, httputil.Response{Data: result})
}

// Result handles GET /api/v1/checkout/result. It returns the outcome of an
// asynchronous placement once the payment provider has called back, or 204
// while the placement is still in flight.
func (h *CheckoutHandler) Result(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	result := h.orchestrator.Result(userID)
	if result == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: result})
}

func (h *CheckoutHandler) writeCheckoutError(w http.ResponseWriter, r *http.Request, err error) {
	var valErr *validator.ValidationError
	if errors.As(err, &valErr) {
		httputil.WriteValidationError(w, err)
		return
	}
	httputil.WriteError(w, r, err, h.logger)
}

// PaymentWebhookHandler receives callbacks from the hosted payment provider.
type PaymentWebhookHandler struct {
	gateway *payment.HostedGateway
	logger  *slog.Logger
}

// NewPaymentWebhookHandler creates a new payment webhook handler.
func NewPaymentWebhookHandler(gateway *payment.HostedGateway, logger *slog.Logger) *PaymentWebhookHandler {
	return &PaymentWebhookHandler{
		gateway: gateway,
		logger:  logger,
	}
}

// Handle handles POST /webhooks/payment. Unknown or replayed events are
// acknowledged so the provider stops retrying them.
func (h *PaymentWebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	var event payment.WebhookEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("invalid webhook payload"), h.logger)
		return
	}

	if !h.gateway.HandleWebhook(r.Context(), &event) {
		h.logger.WarnContext(r.Context(), "dropped webhook for unknown payment",
			slog.String("payment_id", event.PaymentID),
			slog.String("status", event.Status),
		)
	}
	w.WriteHeader(http.StatusOK)
}
