package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"

	apperrors "github.com/delali3/era-store-sub002/pkg/errors"
)

// HTTPDoer is the interface for executing HTTP requests. Both
// httpclient.Client and httpclient.CircuitBreakerClient satisfy this.
type HTTPDoer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// Webhook status values reported by the provider.
const (
	WebhookStatusSucceeded = "succeeded"
	WebhookStatusCanceled  = "canceled"
	WebhookStatusFailed    = "failed"
)

// WebhookEvent is the provider's asynchronous notification for a payment.
type WebhookEvent struct {
	PaymentID     string `json:"payment_id"`
	Status        string `json:"status"`
	Reference     string `json:"reference"`
	FailureReason string `json:"failure_reason,omitempty"`
}

// HostedGateway implements Gateway against the provider's hosted-session
// API. Initiate creates a provider session and registers the callbacks;
// the provider later reports the outcome via webhook, and HandleWebhook
// resolves the pending attempt. A webhook for an unknown or already
// resolved payment id is acknowledged and dropped.
type HostedGateway struct {
	client  HTTPDoer
	baseURL string
	logger  *slog.Logger

	mu      sync.Mutex
	pending map[string]*resolver
}

// NewHostedGateway creates a gateway against the provider at baseURL.
func NewHostedGateway(client HTTPDoer, baseURL string, logger *slog.Logger) *HostedGateway {
	return &HostedGateway{
		client:  client,
		baseURL: baseURL,
		logger:  logger,
		pending: make(map[string]*resolver),
	}
}

type createSessionResponse struct {
	Data struct {
		PaymentID   string `json:"payment_id"`
		RedirectURL string `json:"redirect_url"`
	} `json:"data"`
}

// Initiate creates a hosted payment session and registers the callbacks for
// later webhook resolution.
func (g *HostedGateway) Initiate(ctx context.Context, req *InitiateRequest, cb Callbacks) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal payment session request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/api/v1/sessions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build payment session request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(ctx, httpReq)
	if err != nil {
		return "", apperrors.Gateway("payment", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		g.logger.ErrorContext(ctx, "payment session create failed",
			slog.Int("status", resp.StatusCode),
			slog.String("body", string(payload)),
		)
		return "", apperrors.Gateway("payment", fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var out createSessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", apperrors.Gateway("payment", fmt.Errorf("decode session response: %w", err))
	}
	if out.Data.PaymentID == "" {
		return "", apperrors.Gateway("payment", fmt.Errorf("provider returned no payment id"))
	}

	g.mu.Lock()
	g.pending[out.Data.PaymentID] = newResolver(cb)
	g.mu.Unlock()

	g.logger.InfoContext(ctx, "payment session created",
		slog.String("payment_id", out.Data.PaymentID),
		slog.Int64("amount", req.Amount),
		slog.String("currency", req.Currency),
	)

	return out.Data.PaymentID, nil
}

// HandleWebhook resolves the pending attempt for the event's payment id.
// Returns false when no attempt was pending, which the caller should
// acknowledge without error so the provider stops retrying.
func (g *HostedGateway) HandleWebhook(ctx context.Context, event *WebhookEvent) bool {
	g.mu.Lock()
	r, ok := g.pending[event.PaymentID]
	if ok {
		delete(g.pending, event.PaymentID)
	}
	g.mu.Unlock()

	if !ok {
		g.logger.WarnContext(ctx, "webhook for unknown payment",
			slog.String("payment_id", event.PaymentID),
			slog.String("status", event.Status),
		)
		return false
	}

	switch event.Status {
	case WebhookStatusSucceeded:
		ref := event.Reference
		if ref == "" {
			ref = event.PaymentID
		}
		r.success(ref)
	case WebhookStatusCanceled:
		r.cancel()
	default:
		reason := event.FailureReason
		if reason == "" {
			reason = "payment failed"
		}
		r.fail(reason)
	}

	return true
}

// Abandon resolves a still-pending attempt as canceled, for when the
// customer navigates away before the provider reports anything.
func (g *HostedGateway) Abandon(paymentID string) {
	g.mu.Lock()
	r, ok := g.pending[paymentID]
	if ok {
		delete(g.pending, paymentID)
	}
	g.mu.Unlock()

	if ok {
		r.cancel()
	}
}
