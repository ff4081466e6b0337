package pricing

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/craftline/storefront/internal/domain/catalog"
	"github.com/craftline/storefront/internal/domain/coupon"
)

// Structural validation errors. These fail a quote hard; catalog and coupon
// preconditions are reported through their own types.
var (
	// ErrEmptyItems is returned when a quote is requested with no items.
	ErrEmptyItems = errors.New("order items are required")
)

// InvalidItemError indicates a line item missing a product id or carrying a
// non-positive quantity.
type InvalidItemError struct {
	Index     int
	ProductID string
	Quantity  int
}

func (e *InvalidItemError) Error() string {
	return fmt.Sprintf("invalid order item %d: productId and a positive quantity are required (productId=%q quantity=%d)",
		e.Index, e.ProductID, e.Quantity)
}

// Item is a quote request line.
type Item struct {
	ProductID string
	VariantID string
	Quantity  int
}

// ItemBreakdown pairs a request line with its resolved catalog state and
// quantity pricing.
type ItemBreakdown struct {
	Item
	Product   *catalog.Product
	Variant   *catalog.Variant
	BasePrice decimal.Decimal
	Quote     ItemQuote
}

// OrderQuote is the aggregate pricing result for a prospective order.
type OrderQuote struct {
	Subtotal       decimal.Decimal
	QuantitySaving decimal.Decimal
	CouponDiscount decimal.Decimal
	ShippingCost   decimal.Decimal
	TotalAmount    decimal.Decimal
	// AppliedCoupon is non-nil only when the coupon passed every
	// precondition and contributed CouponDiscount.
	AppliedCoupon *coupon.Coupon
	Items         []ItemBreakdown
}

// HasQuantityDiscounts reports whether any line item received a quantity
// discount.
func (q *OrderQuote) HasQuantityDiscounts() bool {
	return q.QuantitySaving.IsPositive()
}

// Engine resolves catalog and coupon state to price orders.
type Engine struct {
	catalog catalog.Repository
	coupons coupon.Repository
	now     func() time.Time
}

// NewEngine creates a pricing Engine.
func NewEngine(cat catalog.Repository, coupons coupon.Repository) *Engine {
	return &Engine{catalog: cat, coupons: coupons, now: time.Now}
}

// QuoteOrder prices the given items and applies couponCode when eligible.
//
// Hard failures: structurally invalid input, unknown product/variant, an
// inactive product, or a variant with insufficient stock. A coupon that fails
// any applicability precondition is silently treated as absent. Shipping is
// free under current policy. All monetary outputs are rounded to 2 decimals.
func (e *Engine) QuoteOrder(ctx context.Context, items []Item, couponCode string) (*OrderQuote, error) {
	if len(items) == 0 {
		return nil, ErrEmptyItems
	}

	subtotal := decimal.Zero
	quantitySaving := decimal.Zero
	breakdown := make([]ItemBreakdown, 0, len(items))

	for i, item := range items {
		if item.ProductID == "" || item.Quantity <= 0 {
			return nil, &InvalidItemError{Index: i, ProductID: item.ProductID, Quantity: item.Quantity}
		}

		product, err := e.catalog.GetProduct(ctx, item.ProductID)
		if err != nil {
			return nil, errors.Wrapf(err, "get product %s", item.ProductID)
		}
		if product.Status != catalog.ProductActive {
			return nil, &catalog.ProductUnavailableError{ProductID: product.ID, Status: product.Status}
		}

		var variant *catalog.Variant
		if item.VariantID != "" {
			variant, err = e.catalog.GetVariant(ctx, item.VariantID)
			if err != nil {
				return nil, errors.Wrapf(err, "get variant %s", item.VariantID)
			}
			if variant.Stock < item.Quantity {
				return nil, &catalog.InsufficientStockError{
					VariantID: variant.ID,
					Available: variant.Stock,
					Requested: item.Quantity,
				}
			}
		}

		basePrice := product.BasePrice()
		quote := ItemQuote{
			OriginalPrice: basePrice.Mul(decimal.NewFromInt(int64(item.Quantity))),
			FinalPrice:    basePrice.Mul(decimal.NewFromInt(int64(item.Quantity))),
			PricePerItem:  basePrice,
			TotalSavings:  decimal.Zero,
		}
		if product.SubcategoryID != "" {
			rules, err := e.catalog.ActiveQuantityRules(ctx, product.SubcategoryID, item.Quantity)
			if err != nil {
				return nil, errors.Wrapf(err, "quantity rules for subcategory %s", product.SubcategoryID)
			}
			quote = QuoteItem(basePrice, item.Quantity, rules)
		}

		subtotal = subtotal.Add(quote.FinalPrice)
		quantitySaving = quantitySaving.Add(quote.TotalSavings)

		breakdown = append(breakdown, ItemBreakdown{
			Item:      item,
			Product:   product,
			Variant:   variant,
			BasePrice: basePrice,
			Quote:     quote,
		})
	}

	couponDiscount := decimal.Zero
	var applied *coupon.Coupon
	if couponCode != "" {
		c, err := e.coupons.FindByCode(ctx, couponCode)
		switch {
		case err == nil:
			amount, cerr := c.Compute(subtotal, e.now())
			if cerr == nil {
				couponDiscount = amount
				applied = c
			} else if !coupon.IsPrecondition(cerr) {
				return nil, errors.Wrapf(cerr, "apply coupon %s", couponCode)
			}
		case coupon.IsPrecondition(err):
			// Unknown code: quote proceeds without a coupon.
		default:
			return nil, errors.Wrapf(err, "find coupon %s", couponCode)
		}
	}

	shipping := decimal.Zero
	total := subtotal.Sub(couponDiscount).Add(shipping)

	return &OrderQuote{
		Subtotal:       subtotal.Round(2),
		QuantitySaving: quantitySaving.Round(2),
		CouponDiscount: couponDiscount.Round(2),
		ShippingCost:   shipping.Round(2),
		TotalAmount:    total.Round(2),
		AppliedCoupon:  applied,
		Items:          breakdown,
	}, nil
}
