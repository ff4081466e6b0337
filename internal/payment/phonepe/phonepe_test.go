package phonepe

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
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

func checksumFor(payload, path, saltKey, saltIndex string) string {
	sum := sha256.Sum256([]byte(payload + path + saltKey))
	return hex.EncodeToString(sum[:]) + "###" + saltIndex
}

func TestVerifySignature(t *testing.T) {
	p := New(Config{MerchantID: "M1", SaltKey: "salt", SaltIndex: "2"}, zaptest.NewLogger(t))

	payload := base64.StdEncoding.EncodeToString([]byte(`{"code":"PAYMENT_SUCCESS"}`))
	good := checksumFor(payload, "", "salt", "2")

	assert.True(t, p.VerifySignature("MT1", payload, good))
	assert.False(t, p.VerifySignature("MT1", payload, "bogus###2"))
	assert.False(t, p.VerifySignature("MT1", payload+"x", good), "checksum bound to payload")
	assert.False(t, p.VerifySignature("MT1", payload, ""))
}

func TestVerifySignature_SaltIndexMismatch(t *testing.T) {
	p := New(Config{SaltKey: "salt", SaltIndex: "1"}, zaptest.NewLogger(t))

	payload := base64.StdEncoding.EncodeToString([]byte(`{}`))
	other := checksumFor(payload, "", "salt", "2")
	assert.False(t, p.VerifySignature("MT1", payload, other))
}

func decodeEnvelope(t *testing.T, r *http.Request, out any) string {
	t.Helper()
	var envelope struct {
		Request string `json:"request"`
	}
	require.NoError(t, json.NewDecoder(r.Body).Decode(&envelope))
	raw, err := base64.StdEncoding.DecodeString(envelope.Request)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, out))
	return envelope.Request
}

func TestCreateIntent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, payPath, r.URL.Path)

		var req payRequest
		encoded := decodeEnvelope(t, r, &req)
		assert.Equal(t, "M1", req.MerchantID)
		assert.Equal(t, int64(49950), req.Amount, "amount sent in paise")
		assert.Equal(t, checksumFor(encoded, payPath, "salt", "1"), r.Header.Get("X-VERIFY"))

		_ = json.NewEncoder(w).Encode(apiResponse{
			Success: true,
			Code:    "PAYMENT_INITIATED",
			Data:    json.RawMessage(`{"merchantTransactionId":"` + req.MerchantTransactionID + `"}`),
		})
	}))
	defer srv.Close()

	p := New(Config{MerchantID: "M1", SaltKey: "salt", BaseURL: srv.URL}, zaptest.NewLogger(t))

	intent, err := p.CreateIntent(context.Background(), decimal.RequireFromString("499.50"), "INR")
	require.NoError(t, err)
	assert.NotEmpty(t, intent.ProviderOrderID)
	assert.True(t, decimal.RequireFromString("499.50").Equal(intent.Amount))
}

func TestCreateIntent_ProviderFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(apiResponse{Success: false, Code: "BAD_REQUEST", Message: "merchant not found"})
	}))
	defer srv.Close()

	p := New(Config{BaseURL: srv.URL}, zaptest.NewLogger(t))

	_, err := p.CreateIntent(context.Background(), decimal.NewFromInt(100), "INR")
	var pErr *payment.ProviderError
	require.ErrorAs(t, err, &pErr)
	assert.Equal(t, "phonepe", pErr.Provider)
	assert.Contains(t, err.Error(), "merchant not found")
}

func TestRefund(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, refundPath, r.URL.Path)

		var req refundRequest
		decodeEnvelope(t, r, &req)
		assert.Equal(t, "T123", req.OriginalTransactionID)
		assert.Equal(t, "REFUND_o1", req.MerchantTransactionID)
		assert.Equal(t, int64(25000), req.Amount)

		_ = json.NewEncoder(w).Encode(apiResponse{
			Success: true,
			Code:    "PAYMENT_PENDING",
			Data:    json.RawMessage(`{"merchantTransactionId":"REFUND_o1","transactionId":"T999"}`),
		})
	}))
	defer srv.Close()

	p := New(Config{MerchantID: "M1", SaltKey: "salt", BaseURL: srv.URL}, zaptest.NewLogger(t))

	res, err := p.Refund(context.Background(), "T123", decimal.NewFromInt(250), "REFUND_o1")
	require.NoError(t, err)
	assert.Equal(t, "REFUND_o1", res.ProviderRefundID)
	assert.True(t, decimal.NewFromInt(250).Equal(res.Amount))
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
		_ = json.NewEncoder(w).Encode(apiResponse{Success: false, Code: "EXCESS_REFUND_AMOUNT", Message: "refund exceeds captured amount"})
	}))
	defer srv.Close()

	p := New(Config{BaseURL: srv.URL}, zaptest.NewLogger(t))

	_, err := p.Refund(context.Background(), "T1", decimal.NewFromInt(10), "REFUND_x")
	var rErr *payment.RefundError
	require.ErrorAs(t, err, &rErr)
	assert.Contains(t, rErr.Message, "refund exceeds captured amount")
}
