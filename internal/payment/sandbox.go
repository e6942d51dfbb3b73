package payment

import (
	"context"

	"github.com/google/uuid"
)

// Outcome selects how the sandbox gateway resolves every attempt.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeCancel  Outcome = "cancel"
	OutcomeError   Outcome = "error"
)

// SandboxGateway resolves every payment attempt synchronously with a fixed
// outcome. It is intended for development and testing.
type SandboxGateway struct {
	outcome Outcome
	reason  string
}

// NewSandboxGateway creates a sandbox gateway resolving with the given
// outcome. reason is only used for OutcomeError.
func NewSandboxGateway(outcome Outcome, reason string) *SandboxGateway {
	return &SandboxGateway{outcome: outcome, reason: reason}
}

// Initiate resolves the attempt immediately, before returning.
func (g *SandboxGateway) Initiate(_ context.Context, _ *InitiateRequest, cb Callbacks) (string, error) {
	paymentID := "sandbox_pay_" + uuid.New().String()

	r := newResolver(cb)
	switch g.outcome {
	case OutcomeCancel:
		r.cancel()
	case OutcomeError:
		r.fail(g.reason)
	default:
		r.success(paymentID)
	}

	return paymentID, nil
}
