// Package phonepe implements the payment.Provider contract against the
// PhonePe PG API. Requests carry a base64 payload plus an X-VERIFY checksum
// of SHA256(payload + path + saltKey) suffixed with "###<saltIndex>";
// callback signatures use the same scheme without a path component.
package phonepe

import (
	"bytes"
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/craftline/storefront/internal/domain/payment"
)

const (
	defaultBaseURL = "https://api.phonepe.com/apis/hermes"
	payPath        = "/pg/v1/pay"
	refundPath     = "/pg/v1/refund"
)

var paise = decimal.NewFromInt(100)

// Config holds merchant credentials and transport settings.
type Config struct {
	MerchantID string
	SaltKey    string
	SaltIndex  string
	BaseURL    string
	Timeout    time.Duration
}

// Provider talks to PhonePe.
type Provider struct {
	cfg    Config
	client *http.Client
	lg     *zap.Logger
	now    func() time.Time
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
	if cfg.SaltIndex == "" {
		cfg.SaltIndex = "1"
	}
	return &Provider{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		lg:     lg,
		now:    time.Now,
	}
}

type payRequest struct {
	MerchantID            string `json:"merchantId"`
	MerchantTransactionID string `json:"merchantTransactionId"`
	Amount                int64  `json:"amount"`
	PaymentInstrument     struct {
		Type string `json:"type"`
	} `json:"paymentInstrument"`
}

type apiResponse struct {
	Success bool            `json:"success"`
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type payData struct {
	MerchantTransactionID string `json:"merchantTransactionId"`
	TransactionID         string `json:"transactionId"`
}

type refundData struct {
	MerchantRefundID string `json:"merchantTransactionId"`
	TransactionID    string `json:"transactionId"`
}

// CreateIntent registers a payment request. The merchant transaction id we
// generate doubles as the provider order id the client completes against.
func (p *Provider) CreateIntent(ctx context.Context, amount decimal.Decimal, currency string) (*payment.Intent, error) {
	req := payRequest{
		MerchantID:            p.cfg.MerchantID,
		MerchantTransactionID: newTransactionID(p.now()),
		Amount:                amount.Mul(paise).IntPart(),
	}
	req.PaymentInstrument.Type = "PAY_PAGE"

	var data payData
	if err := p.call(ctx, payPath, req, &data); err != nil {
		return nil, &payment.ProviderError{Provider: "phonepe", Op: "create payment", Err: err}
	}

	id := data.MerchantTransactionID
	if id == "" {
		id = req.MerchantTransactionID
	}
	p.lg.Info("PhonePe payment initiated", zap.String("merchant_transaction_id", id))
	return &payment.Intent{ProviderOrderID: id, Amount: amount, Currency: currency}, nil
}

// VerifySignature checks the callback checksum for the given transaction.
// providerPaymentID carries the base64 callback payload and signature the
// received X-VERIFY header. Constant-time comparison, no network access.
func (p *Provider) VerifySignature(providerOrderID, providerPaymentID, signature string) bool {
	expected := p.checksum(providerPaymentID, "")
	ok := subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) == 1
	if !ok {
		p.lg.Warn("Callback checksum mismatch", zap.String("merchant_transaction_id", providerOrderID))
	}
	return ok
}

type refundRequest struct {
	MerchantID            string `json:"merchantId"`
	MerchantTransactionID string `json:"merchantTransactionId"`
	OriginalTransactionID string `json:"originalTransactionId"`
	Amount                int64  `json:"amount"`
}

// Refund issues a refund against the original provider transaction.
func (p *Provider) Refund(ctx context.Context, providerTransactionID string, amount decimal.Decimal, reference string) (*payment.RefundResult, error) {
	if providerTransactionID == "" {
		return nil, &payment.RefundError{
			Provider: "phonepe",
			Message:  "missing provider transaction id",
			Err:      errors.New("empty transaction id"),
		}
	}

	req := refundRequest{
		MerchantID:            p.cfg.MerchantID,
		MerchantTransactionID: reference,
		OriginalTransactionID: providerTransactionID,
		Amount:                amount.Mul(paise).IntPart(),
	}

	var data refundData
	if err := p.call(ctx, refundPath, req, &data); err != nil {
		return nil, &payment.RefundError{Provider: "phonepe", Message: err.Error(), Err: err}
	}

	p.lg.Info("PhonePe refund processed",
		zap.String("merchant_refund_id", data.MerchantRefundID),
		zap.String("original_transaction_id", providerTransactionID),
	)
	return &payment.RefundResult{ProviderRefundID: data.MerchantRefundID, Amount: amount}, nil
}

// call wraps the body in PhonePe's base64 envelope, signs it, and decodes
// the data portion of a successful response.
func (p *Provider) call(ctx context.Context, path string, body, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(err, "marshal request")
	}
	encoded := base64.StdEncoding.EncodeToString(raw)

	envelope, err := json.Marshal(map[string]string{"request": encoded})
	if err != nil {
		return errors.Wrap(err, "marshal envelope")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+path, bytes.NewReader(envelope))
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-VERIFY", p.checksum(encoded, path))

	resp, err := p.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "send request")
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return errors.Wrap(err, "read response")
	}

	var api apiResponse
	if err := json.Unmarshal(respBody, &api); err != nil {
		return errors.Errorf("status %d: undecodable response: %s", resp.StatusCode, respBody)
	}
	if !api.Success {
		if api.Message != "" {
			return errors.Errorf("%s: %s", api.Code, api.Message)
		}
		return errors.Errorf("provider rejected request: %s", api.Code)
	}
	if out != nil && len(api.Data) > 0 {
		if err := json.Unmarshal(api.Data, out); err != nil {
			return errors.Wrap(err, "decode data")
		}
	}
	return nil
}

// checksum computes SHA256(payload + path + saltKey) + "###" + saltIndex.
func (p *Provider) checksum(payload, path string) string {
	sum := sha256.Sum256([]byte(payload + path + p.cfg.SaltKey))
	return hex.EncodeToString(sum[:]) + "###" + p.cfg.SaltIndex
}

// newTransactionID builds a merchant transaction id unique enough for
// correlation; the provider enforces uniqueness on its side.
func newTransactionID(now time.Time) string {
	return "MT" + now.Format("20060102150405000000")
}
