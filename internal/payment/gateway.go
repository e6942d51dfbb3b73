// Package payment integrates the hosted payment provider. A payment attempt
// always resolves through exactly one of three callbacks: success, cancel,
// or error.
package payment

import (
	"context"
	"sync"
)

// Customer identifies the paying customer to the provider.
type Customer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// InitiateRequest holds the parameters for starting a payment attempt.
// Amount is in minor currency units.
type InitiateRequest struct {
	Amount    int64    `json:"amount"`
	Currency  string   `json:"currency"`
	Customer  Customer `json:"customer"`
	Reference string   `json:"reference"`
}

// Callbacks receives the terminal outcome of a payment attempt. For any
// single attempt exactly one of the three fires, exactly once; the gateway
// enforces this even if the provider reports the outcome more than once.
type Callbacks struct {
	// OnSuccess receives the provider's payment reference.
	OnSuccess func(providerRef string)

	// OnCancel fires when the customer abandons the payment.
	OnCancel func()

	// OnError receives a human-readable failure reason.
	OnError func(reason string)
}

// Gateway starts payment attempts with the provider.
type Gateway interface {
	// Initiate begins a payment attempt and returns the provider's payment
	// id. The callbacks fire later, when the attempt resolves; with a
	// synchronous provider they may fire before Initiate returns.
	Initiate(ctx context.Context, req *InitiateRequest, cb Callbacks) (string, error)
}

// resolver guards a Callbacks set so only the first outcome wins.
type resolver struct {
	once sync.Once
	cb   Callbacks
}

func newResolver(cb Callbacks) *resolver {
	return &resolver{cb: cb}
}

func (r *resolver) success(providerRef string) {
	r.once.Do(func() {
		if r.cb.OnSuccess != nil {
			r.cb.OnSuccess(providerRef)
		}
	})
}

func (r *resolver) cancel() {
	r.once.Do(func() {
		if r.cb.OnCancel != nil {
			r.cb.OnCancel()
		}
	})
}

func (r *resolver) fail(reason string) {
	r.once.Do(func() {
		if r.cb.OnError != nil {
			r.cb.OnError(reason)
		}
	})
}
