package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/craftline/storefront/internal/domain/catalog"
)

func pctRule(threshold int, value string) catalog.QuantityPriceRule {
	return catalog.QuantityPriceRule{
		Quantity: threshold,
		Kind:     catalog.RulePercentage,
		Value:    decimal.RequireFromString(value),
		Active:   true,
	}
}

func fixedRule(threshold int, value string) catalog.QuantityPriceRule {
	return catalog.QuantityPriceRule{
		Quantity: threshold,
		Kind:     catalog.RuleFixed,
		Value:    decimal.RequireFromString(value),
		Active:   true,
	}
}

func TestQuoteItem_NoRules(t *testing.T) {
	q := QuoteItem(decimal.NewFromInt(100), 3, nil)

	assert.True(t, decimal.NewFromInt(300).Equal(q.OriginalPrice))
	assert.True(t, decimal.NewFromInt(300).Equal(q.FinalPrice))
	assert.True(t, q.TotalSavings.IsZero())
	assert.True(t, decimal.NewFromInt(100).Equal(q.PricePerItem))
	assert.False(t, q.HasDiscount)
	assert.Nil(t, q.AppliedRule)
}

func TestQuoteItem_PercentageRule(t *testing.T) {
	// basePrice=100, quantity=12, rule {quantity:10, PERCENTAGE, 20}
	// -> finalPrice=960, totalSavings=240.
	q := QuoteItem(decimal.NewFromInt(100), 12, []catalog.QuantityPriceRule{pctRule(10, "20")})

	require.True(t, q.HasDiscount)
	assert.True(t, decimal.NewFromInt(1200).Equal(q.OriginalPrice))
	assert.True(t, decimal.NewFromInt(960).Equal(q.FinalPrice), "got %s", q.FinalPrice)
	assert.True(t, decimal.NewFromInt(240).Equal(q.TotalSavings))
	assert.True(t, decimal.NewFromInt(80).Equal(q.PricePerItem))
}

func TestQuoteItem_FixedRuleIsFlatTotal(t *testing.T) {
	q := QuoteItem(decimal.NewFromInt(50), 10, []catalog.QuantityPriceRule{fixedRule(10, "400")})

	require.True(t, q.HasDiscount)
	assert.True(t, decimal.NewFromInt(400).Equal(q.FinalPrice))
	assert.True(t, decimal.NewFromInt(100).Equal(q.TotalSavings))
	assert.True(t, decimal.NewFromInt(40).Equal(q.PricePerItem))
}

func TestQuoteItem_ThresholdNotMet(t *testing.T) {
	q := QuoteItem(decimal.NewFromInt(100), 5, []catalog.QuantityPriceRule{pctRule(10, "20")})

	assert.False(t, q.HasDiscount)
	assert.True(t, q.FinalPrice.Equal(q.OriginalPrice))
}

func TestQuoteItem_InactiveRuleIgnored(t *testing.T) {
	rule := pctRule(2, "50")
	rule.Active = false

	q := QuoteItem(decimal.NewFromInt(100), 5, []catalog.QuantityPriceRule{rule})
	assert.False(t, q.HasDiscount)
}

func TestQuoteItem_LowestTotalWins(t *testing.T) {
	// 10 units at 100: 15% off -> 850, flat 800 -> 800 wins.
	rules := []catalog.QuantityPriceRule{
		fixedRule(10, "800"),
		pctRule(5, "15"),
	}

	q := QuoteItem(decimal.NewFromInt(100), 10, rules)
	require.True(t, q.HasDiscount)
	assert.True(t, decimal.NewFromInt(800).Equal(q.FinalPrice))
	assert.Equal(t, catalog.RuleFixed, q.AppliedRule.Kind)
}

func TestQuoteItem_TieKeepsHighestThresholdRule(t *testing.T) {
	// Both rules produce 900 for 10 units at 100. Rules are ordered by
	// threshold descending; the first evaluated must win the tie.
	rules := []catalog.QuantityPriceRule{
		pctRule(10, "10"),
		fixedRule(5, "900"),
	}

	q := QuoteItem(decimal.NewFromInt(100), 10, rules)
	require.True(t, q.HasDiscount)
	assert.True(t, decimal.NewFromInt(900).Equal(q.FinalPrice))
	assert.Equal(t, 10, q.AppliedRule.Quantity)
	assert.Equal(t, catalog.RulePercentage, q.AppliedRule.Kind)
}

func TestQuoteItem_NeverExceedsOriginal(t *testing.T) {
	// A pathological flat rule above the original total must never apply.
	q := QuoteItem(decimal.NewFromInt(10), 3, []catalog.QuantityPriceRule{fixedRule(2, "500")})

	assert.False(t, q.HasDiscount)
	assert.True(t, q.FinalPrice.Equal(q.OriginalPrice))
	assert.False(t, q.FinalPrice.GreaterThan(q.OriginalPrice))
}

func TestQuoteItem_Deterministic(t *testing.T) {
	rules := []catalog.QuantityPriceRule{pctRule(10, "20"), fixedRule(5, "450")}

	first := QuoteItem(decimal.RequireFromString("99.99"), 11, rules)
	second := QuoteItem(decimal.RequireFromString("99.99"), 11, rules)

	assert.True(t, first.FinalPrice.Equal(second.FinalPrice))
	assert.True(t, first.TotalSavings.Equal(second.TotalSavings))
}
