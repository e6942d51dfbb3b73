package payment

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type plainDoer struct{}

func (plainDoer) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	return http.DefaultClient.Do(req)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type outcomeRecorder struct {
	mu        sync.Mutex
	successes []string
	cancels   int
	errs      []string
}

func (o *outcomeRecorder) callbacks() Callbacks {
	return Callbacks{
		OnSuccess: func(ref string) {
			o.mu.Lock()
			defer o.mu.Unlock()
			o.successes = append(o.successes, ref)
		},
		OnCancel: func() {
			o.mu.Lock()
			defer o.mu.Unlock()
			o.cancels++
		},
		OnError: func(reason string) {
			o.mu.Lock()
			defer o.mu.Unlock()
			o.errs = append(o.errs, reason)
		},
	}
}

func (o *outcomeRecorder) total() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.successes) + o.cancels + len(o.errs)
}

func TestSandboxGateway_Outcomes(t *testing.T) {
	tests := []struct {
		name    string
		outcome Outcome
		reason  string
		check   func(t *testing.T, rec *outcomeRecorder)
	}{
		{
			name:    "success",
			outcome: OutcomeSuccess,
			check: func(t *testing.T, rec *outcomeRecorder) {
				require.Len(t, rec.successes, 1)
				assert.NotEmpty(t, rec.successes[0])
			},
		},
		{
			name:    "cancel",
			outcome: OutcomeCancel,
			check: func(t *testing.T, rec *outcomeRecorder) {
				assert.Equal(t, 1, rec.cancels)
			},
		},
		{
			name:    "error",
			outcome: OutcomeError,
			reason:  "card declined",
			check: func(t *testing.T, rec *outcomeRecorder) {
				require.Len(t, rec.errs, 1)
				assert.Equal(t, "card declined", rec.errs[0])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &outcomeRecorder{}
			gw := NewSandboxGateway(tt.outcome, tt.reason)

			id, err := gw.Initiate(context.Background(), &InitiateRequest{Amount: 2327, Currency: "USD"}, rec.callbacks())
			require.NoError(t, err)
			assert.NotEmpty(t, id)
			assert.Equal(t, 1, rec.total())
			tt.check(t, rec)
		})
	}
}

func newHostedFixture(t *testing.T) (*HostedGateway, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/sessions", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"payment_id":"pay-123","redirect_url":"https://pay.example.com/s/pay-123"}}`))
	}))
	t.Cleanup(srv.Close)
	return NewHostedGateway(plainDoer{}, srv.URL, discardLogger()), srv
}

func TestHostedGateway_WebhookResolvesSuccess(t *testing.T) {
	gw, _ := newHostedFixture(t)
	rec := &outcomeRecorder{}

	id, err := gw.Initiate(context.Background(), &InitiateRequest{Amount: 2327, Currency: "USD"}, rec.callbacks())
	require.NoError(t, err)
	assert.Equal(t, "pay-123", id)
	assert.Equal(t, 0, rec.total())

	handled := gw.HandleWebhook(context.Background(), &WebhookEvent{PaymentID: id, Status: WebhookStatusSucceeded, Reference: "ref-9"})
	assert.True(t, handled)
	require.Len(t, rec.successes, 1)
	assert.Equal(t, "ref-9", rec.successes[0])
}

func TestHostedGateway_DuplicateWebhookFiresOnce(t *testing.T) {
	gw, _ := newHostedFixture(t)
	rec := &outcomeRecorder{}

	id, err := gw.Initiate(context.Background(), &InitiateRequest{Amount: 100, Currency: "USD"}, rec.callbacks())
	require.NoError(t, err)

	assert.True(t, gw.HandleWebhook(context.Background(), &WebhookEvent{PaymentID: id, Status: WebhookStatusCanceled}))
	assert.False(t, gw.HandleWebhook(context.Background(), &WebhookEvent{PaymentID: id, Status: WebhookStatusSucceeded, Reference: "late"}))

	assert.Equal(t, 1, rec.cancels)
	assert.Empty(t, rec.successes)
	assert.Equal(t, 1, rec.total())
}

func TestHostedGateway_FailureWebhookCarriesReason(t *testing.T) {
	gw, _ := newHostedFixture(t)
	rec := &outcomeRecorder{}

	id, err := gw.Initiate(context.Background(), &InitiateRequest{Amount: 100, Currency: "USD"}, rec.callbacks())
	require.NoError(t, err)

	gw.HandleWebhook(context.Background(), &WebhookEvent{PaymentID: id, Status: WebhookStatusFailed, FailureReason: "insufficient funds"})
	require.Len(t, rec.errs, 1)
	assert.Equal(t, "insufficient funds", rec.errs[0])
}

func TestHostedGateway_UnknownWebhookIsDropped(t *testing.T) {
	gw, _ := newHostedFixture(t)

	handled := gw.HandleWebhook(context.Background(), &WebhookEvent{PaymentID: "ghost", Status: WebhookStatusSucceeded})
	assert.False(t, handled)
}

func TestHostedGateway_AbandonCancelsPending(t *testing.T) {
	gw, _ := newHostedFixture(t)
	rec := &outcomeRecorder{}

	id, err := gw.Initiate(context.Background(), &InitiateRequest{Amount: 100, Currency: "USD"}, rec.callbacks())
	require.NoError(t, err)

	gw.Abandon(id)
	assert.Equal(t, 1, rec.cancels)

	// The late webhook is a no-op.
	assert.False(t, gw.HandleWebhook(context.Background(), &WebhookEvent{PaymentID: id, Status: WebhookStatusSucceeded}))
	assert.Equal(t, 1, rec.total())
}

func TestWebhookEvent_JSONShape(t *testing.T) {
	raw := `{"payment_id":"pay-1","status":"failed","failure_reason":"expired card"}`
	var ev WebhookEvent
	require.NoError(t, json.Unmarshal([]byte(raw), &ev))
	assert.Equal(t, "pay-1", ev.PaymentID)
	assert.Equal(t, WebhookStatusFailed, ev.Status)
	assert.Equal(t, "expired card", ev.FailureReason)
}
