// Package payment defines the narrow gateway capability the order lifecycle
// depends on. Two interchangeable providers implement it; the lifecycle never
// sees which one is wired.
package payment

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrVerificationFailed is returned by callers when a provider reports an
// invalid payment signature. Verification returning false is not a provider
// error; it means the payment must not be trusted.
var ErrVerificationFailed = errors.New("payment verification failed")

// ProviderError wraps a gateway-side failure during intent creation.
type ProviderError struct {
	Provider string
	Op       string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("payment provider %s: %s: %v", e.Provider, e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// RefundError wraps a gateway rejection of a refund request, carrying the
// provider's message for the admin.
type RefundError struct {
	Provider string
	Message  string
	Err      error
}

func (e *RefundError) Error() string {
	return fmt.Sprintf("refund via %s failed: %s", e.Provider, e.Message)
}

func (e *RefundError) Unwrap() error { return e.Err }

// Intent is a provider-side payment order awaiting capture by the client.
type Intent struct {
	ProviderOrderID string
	Amount          decimal.Decimal
	Currency        string
}

// RefundResult is the provider's acknowledgement of an issued refund.
type RefundResult struct {
	ProviderRefundID string
	Amount           decimal.Decimal
}

// Provider is the three-operation gateway contract. Implementations own
// their retry/backoff and timeout policy; callers treat any returned error
// as terminal for the current flow.
type Provider interface {
	// CreateIntent registers a payment order with the gateway for the
	// given amount and ISO currency code.
	CreateIntent(ctx context.Context, amount decimal.Decimal, currency string) (*Intent, error)
	// VerifySignature deterministically checks the capture signature for a
	// provider order/payment pair using a constant-time comparison. A false
	// result means the payment must be rejected, not retried.
	VerifySignature(providerOrderID, providerPaymentID, signature string) bool
	// Refund issues a refund against the provider transaction that captured
	// the original payment. reference correlates the refund to our order.
	Refund(ctx context.Context, providerTransactionID string, amount decimal.Decimal, reference string) (*RefundResult, error)
}
