package coupon

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validCoupon(now time.Time) Coupon {
	return Coupon{
		ID:             "c1",
		Code:           "SAVE10",
		DiscountType:   DiscountPercentage,
		DiscountValue:  decimal.NewFromInt(10),
		MinOrderAmount: decimal.Zero,
		ValidFrom:      now.Add(-time.Hour),
		ValidUntil:     now.Add(time.Hour),
		Active:         true,
	}
}

func TestCompute_Percentage(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	c := validCoupon(now)

	amount, err := c.Compute(decimal.NewFromInt(1000), now)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(100).Equal(amount))
}

func TestCompute_PercentageCappedAtMaxDiscount(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	c := validCoupon(now)
	c.MaxDiscount = decimal.NewNullDecimal(decimal.NewFromInt(50))

	amount, err := c.Compute(decimal.NewFromInt(1000), now)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(50).Equal(amount), "10%% of 1000 must cap at 50, got %s", amount)
}

func TestCompute_Fixed(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	c := validCoupon(now)
	c.DiscountType = DiscountFixed
	c.DiscountValue = decimal.RequireFromString("75.50")

	amount, err := c.Compute(decimal.NewFromInt(500), now)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("75.50").Equal(amount))
}

func TestCompute_Preconditions(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	limit := 5

	tests := []struct {
		name     string
		mutate   func(*Coupon)
		subtotal decimal.Decimal
		wantErr  error
	}{
		{
			name:     "inactive",
			mutate:   func(c *Coupon) { c.Active = false },
			subtotal: decimal.NewFromInt(100),
			wantErr:  ErrInactive,
		},
		{
			name:     "not yet valid",
			mutate:   func(c *Coupon) { c.ValidFrom = now.Add(time.Hour) },
			subtotal: decimal.NewFromInt(100),
			wantErr:  ErrNotStarted,
		},
		{
			name:     "expired",
			mutate:   func(c *Coupon) { c.ValidUntil = now.Add(-time.Minute) },
			subtotal: decimal.NewFromInt(100),
			wantErr:  ErrExpired,
		},
		{
			name: "usage limit exhausted",
			mutate: func(c *Coupon) {
				c.UsageLimit = &limit
				c.UsedCount = 5
			},
			subtotal: decimal.NewFromInt(100),
			wantErr:  ErrUsageLimitReached,
		},
		{
			name:     "below minimum order amount",
			mutate:   func(c *Coupon) { c.MinOrderAmount = decimal.NewFromInt(500) },
			subtotal: decimal.NewFromInt(100),
			wantErr:  ErrBelowMinimum,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validCoupon(now)
			tt.mutate(&c)

			_, err := c.Compute(tt.subtotal, now)
			require.ErrorIs(t, err, tt.wantErr)
			assert.True(t, IsPrecondition(err))
		})
	}
}

func TestCompute_UsageLimitBoundary(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	limit := 3

	c := validCoupon(now)
	c.UsageLimit = &limit
	c.UsedCount = 2

	_, err := c.Compute(decimal.NewFromInt(100), now)
	require.NoError(t, err, "usedCount below limit must still apply")

	c.UsedCount = 3
	_, err = c.Compute(decimal.NewFromInt(100), now)
	require.ErrorIs(t, err, ErrUsageLimitReached)
}

func TestIsPrecondition_OtherErrors(t *testing.T) {
	assert.False(t, IsPrecondition(assert.AnError))
	assert.False(t, IsPrecondition(nil))
}
