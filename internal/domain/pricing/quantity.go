// Package pricing computes per-item quantity-discount prices and aggregates
// order totals including coupon application. Quoting is side-effect free:
// stock and coupon usage are only mutated when an order is persisted.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/craftline/storefront/internal/domain/catalog"
)

// ItemQuote is the priced result for a single line item.
type ItemQuote struct {
	OriginalPrice decimal.Decimal
	FinalPrice    decimal.Decimal
	TotalSavings  decimal.Decimal
	PricePerItem  decimal.Decimal
	HasDiscount   bool
	// AppliedRule is the winning quantity-price rule, nil when none applied.
	AppliedRule *catalog.QuantityPriceRule
}

// QuoteItem prices quantity units at basePrice under the given quantity-price
// rules. Rules must arrive ordered by threshold descending; among eligible
// rules the one yielding the lowest line total wins, with ties kept by the
// first evaluated (highest threshold) since only a strictly lower candidate
// replaces the current best.
func QuoteItem(basePrice decimal.Decimal, quantity int, rules []catalog.QuantityPriceRule) ItemQuote {
	qty := decimal.NewFromInt(int64(quantity))
	original := basePrice.Mul(qty)

	best := original
	var applied *catalog.QuantityPriceRule

	for i := range rules {
		rule := rules[i]
		if !rule.Active || quantity < rule.Quantity {
			continue
		}

		var candidate decimal.Decimal
		switch rule.Kind {
		case catalog.RulePercentage:
			candidate = original.Mul(decimal.NewFromInt(100).Sub(rule.Value)).Div(decimal.NewFromInt(100))
		case catalog.RuleFixed:
			// Flat total for the whole line, not per unit.
			candidate = rule.Value
		default:
			continue
		}

		if candidate.LessThan(best) {
			best = candidate
			applied = &rules[i]
		}
	}

	return ItemQuote{
		OriginalPrice: original,
		FinalPrice:    best,
		TotalSavings:  original.Sub(best),
		PricePerItem:  best.DivRound(qty, 6),
		HasDiscount:   applied != nil,
		AppliedRule:   applied,
	}
}
