// Package razorpay implements the payment.Provider contract against the
// Razorpay REST API. Signatures are HMAC-SHA256 over "orderID|paymentID"
// keyed with the account secret.
package razorpay

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/craftline/storefront/internal/domain/payment"
)

const defaultBaseURL = "https://api.razorpay.com/v1"

var paise = decimal.NewFromInt(100)

// Config holds the gateway credentials and transport settings.
type Config struct {
	KeyID     string
	KeySecret string
	// BaseURL overrides the API endpoint, used by tests.
	BaseURL string
	Timeout time.Duration
}

// Provider talks to Razorpay. Compile-time check against the domain contract.
type Provider struct {
	cfg    Config
	client *http.Client
	lg     *zap.Logger
}

var _ payment.Provider = (*Provider)(nil)

// New creates a Provider from explicit configuration.
func New(cfg Config, lg *zap.Logger) *Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Provider{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		lg:     lg,
	}
}

type orderRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

type orderResponse struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
}

// CreateIntent registers a gateway order. Razorpay expects amounts in the
// currency's smallest unit (paise for INR).
func (p *Provider) CreateIntent(ctx context.Context, amount decimal.Decimal, currency string) (*payment.Intent, error) {
	body := orderRequest{
		Amount:   amount.Mul(paise).IntPart(),
		Currency: currency,
		Receipt:  fmt.Sprintf("receipt_%d", time.Now().UnixMilli()),
	}

	var resp orderResponse
	if err := p.post(ctx, "/orders", body, &resp); err != nil {
		return nil, &payment.ProviderError{Provider: "razorpay", Op: "create order", Err: err}
	}

	p.lg.Info("Razorpay order created", zap.String("provider_order_id", resp.ID))
	return &payment.Intent{
		ProviderOrderID: resp.ID,
		Amount:          amount,
		Currency:        currency,
	}, nil
}

// VerifySignature recomputes the capture signature and compares it in
// constant time. Deterministic: no network access.
func (p *Provider) VerifySignature(providerOrderID, providerPaymentID, signature string) bool {
	mac := hmac.New(sha256.New, []byte(p.cfg.KeySecret))
	mac.Write([]byte(providerOrderID + "|" + providerPaymentID))
	expected := hex.EncodeToString(mac.Sum(nil))

	ok := subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) == 1
	if !ok {
		p.lg.Warn("Payment verification failed", zap.String("provider_order_id", providerOrderID))
	}
	return ok
}

type refundRequest struct {
	Amount int64             `json:"amount"`
	Notes  map[string]string `json:"notes,omitempty"`
}

type refundResponse struct {
	ID     string `json:"id"`
	Amount int64  `json:"amount"`
	Status string `json:"status"`
}

// Refund issues a refund against the captured payment id.
func (p *Provider) Refund(ctx context.Context, providerTransactionID string, amount decimal.Decimal, reference string) (*payment.RefundResult, error) {
	if providerTransactionID == "" {
		return nil, &payment.RefundError{
			Provider: "razorpay",
			Message:  "missing provider transaction id",
			Err:      errors.New("empty transaction id"),
		}
	}

	body := refundRequest{
		Amount: amount.Mul(paise).IntPart(),
		Notes:  map[string]string{"reference": reference},
	}

	var resp refundResponse
	path := fmt.Sprintf("/payments/%s/refund", providerTransactionID)
	if err := p.post(ctx, path, body, &resp); err != nil {
		return nil, &payment.RefundError{Provider: "razorpay", Message: err.Error(), Err: err}
	}

	p.lg.Info("Refund processed",
		zap.String("provider_refund_id", resp.ID),
		zap.String("provider_payment_id", providerTransactionID),
	)
	return &payment.RefundResult{ProviderRefundID: resp.ID, Amount: amount}, nil
}

// post sends an authenticated JSON request and decodes the response,
// treating any non-2xx status as an error carrying the response body.
func (p *Provider) post(ctx context.Context, path string, body, out any) error {
	payloadBytes, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(err, "marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+path, bytes.NewReader(payloadBytes))
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.SetBasicAuth(p.cfg.KeyID, p.cfg.KeySecret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "send request")
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return errors.Wrap(err, "read response")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.Errorf("status %d: %s", resp.StatusCode, respBody)
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return errors.Wrap(err, "decode response")
	}
	return nil
}
