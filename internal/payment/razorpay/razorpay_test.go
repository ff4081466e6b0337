package razorpay

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/craftline/storefront/internal/domain/payment"
)

func sign(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature(t *testing.T) {
	p := New(Config{KeyID: "key", KeySecret: "secret"}, zaptest.NewLogger(t))

	good := sign("secret", "order_1", "pay_1")
	assert.True(t, p.VerifySignature("order_1", "pay_1", good))
	assert.False(t, p.VerifySignature("order_1", "pay_1", "deadbeef"))
	assert.False(t, p.VerifySignature("order_2", "pay_1", good), "signature bound to order id")
	assert.False(t, p.VerifySignature("order_1", "pay_1", ""))
}

func TestVerifySignature_Deterministic(t *testing.T) {
	p := New(Config{KeySecret: "secret"}, zaptest.NewLogger(t))
	good := sign("secret", "o", "pay")

	for range 3 {
		assert.True(t, p.VerifySignature("o", "pay", good))
	}
}

func TestCreateIntent(t *testing.T) {
	var gotAmount int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/orders", r.URL.Path)
		user, _, ok := r.BasicAuth()
		require.True(t, ok)
		require.Equal(t, "key", user)

		var req orderRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotAmount = req.Amount

		_ = json.NewEncoder(w).Encode(orderResponse{ID: "order_abc", Amount: req.Amount, Currency: req.Currency, Status: "created"})
	}))
	defer srv.Close()

	p := New(Config{KeyID: "key", KeySecret: "secret", BaseURL: srv.URL}, zaptest.NewLogger(t))

	intent, err := p.CreateIntent(context.Background(), decimal.RequireFromString("499.50"), "INR")
	require.NoError(t, err)
	assert.Equal(t, "order_abc", intent.ProviderOrderID)
	assert.Equal(t, int64(49950), gotAmount, "amount sent in paise")
}

func TestCreateIntent_ProviderFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"BAD_REQUEST"}`, http.StatusBadGateway)
	}))
	defer srv.Close()

	p := New(Config{BaseURL: srv.URL}, zaptest.NewLogger(t))

	_, err := p.CreateIntent(context.Background(), decimal.NewFromInt(100), "INR")
	var pErr *payment.ProviderError
	require.ErrorAs(t, err, &pErr)
	assert.Equal(t, "razorpay", pErr.Provider)
}

func TestRefund(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/payments/pay_123/refund", r.URL.Path)
		_ = json.NewEncoder(w).Encode(refundResponse{ID: "rfnd_9", Status: "processed"})
	}))
	defer srv.Close()

	p := New(Config{BaseURL: srv.URL}, zaptest.NewLogger(t))

	res, err := p.Refund(context.Background(), "pay_123", decimal.NewFromInt(250), "REFUND_o1")
	require.NoError(t, err)
	assert.Equal(t, "rfnd_9", res.ProviderRefundID)
}

func TestRefund_MissingTransactionID(t *testing.T) {
	p := New(Config{}, zaptest.NewLogger(t))

	_, err := p.Refund(context.Background(), "", decimal.NewFromInt(10), "REFUND_x")
	var rErr *payment.RefundError
	require.ErrorAs(t, err, &rErr)
	assert.Contains(t, rErr.Message, "missing provider transaction id")
}

func TestRefund_ProviderRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":{"description":"refund already processed"}}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	p := New(Config{BaseURL: srv.URL}, zaptest.NewLogger(t))

	_, err := p.Refund(context.Background(), "pay_1", decimal.NewFromInt(10), "REFUND_x")
	var rErr *payment.RefundError
	require.ErrorAs(t, err, &rErr)
	assert.Contains(t, rErr.Message, "refund already processed")
}
