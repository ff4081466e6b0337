// Package coupon defines coupon records and discount computation.
package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// DiscountType enumerates the supported coupon discount strategies.
type DiscountType string

const (
	// DiscountPercentage applies a percentage discount to the subtotal,
	// optionally capped by MaxDiscount.
	DiscountPercentage DiscountType = "PERCENTAGE"
	// DiscountFixed applies a flat monetary discount.
	DiscountFixed DiscountType = "FIXED"
)

// Precondition failures. The pricing engine treats all of these as "coupon
// absent" rather than surfacing them to the caller; only storage failures
// propagate.
var (
	// ErrNotFound is returned when no coupon matches the given code.
	ErrNotFound = errors.New("coupon not found")
	// ErrInactive is returned when the coupon exists but is disabled.
	ErrInactive = errors.New("coupon is not active")
	// ErrNotStarted is returned before the coupon's validity window opens.
	ErrNotStarted = errors.New("coupon is not yet valid")
	// ErrExpired is returned after the coupon's validity window closes.
	ErrExpired = errors.New("coupon expired")
	// ErrUsageLimitReached is returned when the coupon has exhausted its uses.
	ErrUsageLimitReached = errors.New("coupon usage limit reached")
	// ErrBelowMinimum is returned when the subtotal does not meet the
	// coupon's minimum order amount.
	ErrBelowMinimum = errors.New("order subtotal below coupon minimum")
)

var hundred = decimal.NewFromInt(100)

// Coupon is a discount code with validity and usage constraints.
type Coupon struct {
	ID             string
	Code           string
	DiscountType   DiscountType
	DiscountValue  decimal.Decimal
	MinOrderAmount decimal.Decimal
	// MaxDiscount caps percentage discounts when valid.
	MaxDiscount decimal.NullDecimal
	ValidFrom   time.Time
	ValidUntil  time.Time
	// UsageLimit is nil for unlimited coupons.
	UsageLimit *int
	UsedCount  int
	Active     bool
}

// Compute checks every applicability precondition against the subtotal at the
// given time and returns the discount amount rounded to 2 decimal places.
// A failed precondition is reported via one of the sentinel errors above.
func (c *Coupon) Compute(subtotal decimal.Decimal, now time.Time) (decimal.Decimal, error) {
	if !c.Active {
		return decimal.Zero, ErrInactive
	}
	if now.Before(c.ValidFrom) {
		return decimal.Zero, ErrNotStarted
	}
	if now.After(c.ValidUntil) {
		return decimal.Zero, ErrExpired
	}
	if c.UsageLimit != nil && c.UsedCount >= *c.UsageLimit {
		return decimal.Zero, ErrUsageLimitReached
	}
	if subtotal.LessThan(c.MinOrderAmount) {
		return decimal.Zero, ErrBelowMinimum
	}

	var amount decimal.Decimal
	switch c.DiscountType {
	case DiscountPercentage:
		amount = subtotal.Mul(c.DiscountValue).Div(hundred)
		if c.MaxDiscount.Valid && amount.GreaterThan(c.MaxDiscount.Decimal) {
			amount = c.MaxDiscount.Decimal
		}
	case DiscountFixed:
		amount = c.DiscountValue
	default:
		return decimal.Zero, errors.Errorf("unsupported discount type: %q", c.DiscountType)
	}

	if amount.IsNegative() {
		amount = decimal.Zero
	}
	return amount.Round(2), nil
}

// IsPrecondition reports whether err is one of the applicability sentinels
// that quote-time resolution silently ignores.
func IsPrecondition(err error) bool {
	for _, sentinel := range []error{
		ErrNotFound, ErrInactive, ErrNotStarted, ErrExpired,
		ErrUsageLimitReached, ErrBelowMinimum,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

// Repository provides coupon lookups. Usage increments happen inside the
// order-creation transaction, not here.
type Repository interface {
	FindByCode(ctx context.Context, code string) (*Coupon, error)
}
