package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCartLine_EffectiveUnitPrice(t *testing.T) {
	tests := []struct {
		name string
		line CartLine
		want int64
	}{
		{"no discount", CartLine{UnitPrice: 1000}, 1000},
		{"20 percent off", CartLine{UnitPrice: 1000, DiscountPercent: 20}, 800},
		{"rounds down", CartLine{UnitPrice: 999, DiscountPercent: 15}, 849},
		{"full discount", CartLine{UnitPrice: 1000, DiscountPercent: 100}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.line.EffectiveUnitPrice())
		})
	}
}

func TestCart_DerivedReads(t *testing.T) {
	cart := &Cart{
		UserID: "u-1",
		Lines: []CartLine{
			{ProductID: 7, Quantity: 2, UnitPrice: 1000, DiscountPercent: 20},
			{ProductID: 9, Quantity: 1, UnitPrice: 450},
		},
	}

	assert.Equal(t, 3, cart.ItemCount())
	assert.Equal(t, int64(1600+450), cart.Subtotal())
	assert.Equal(t, 0, cart.FindLineIndex(7))
	assert.Equal(t, 1, cart.FindLineIndex(9))
	assert.Equal(t, -1, cart.FindLineIndex(42))
}

func TestComputeTotals_SpecScenario(t *testing.T) {
	// One line: product 7, qty 2, priced 10.00 with a 20% discount.
	// Tax 8%, shipping 5.99 -> subtotal 16.00, tax 1.28, total 23.27.
	lines := []CartLine{{ProductID: 7, Quantity: 2, UnitPrice: 1000, DiscountPercent: 20}}
	method := ShippingMethod{ID: "standard", Price: 599}
	rules := PricingRules{TaxRateBps: 800}

	totals := ComputeTotals(lines, method, 0, rules)

	assert.Equal(t, int64(1600), totals.Subtotal)
	assert.Equal(t, int64(128), totals.Tax)
	assert.Equal(t, int64(599), totals.Shipping)
	assert.Equal(t, int64(0), totals.PromoDiscount)
	assert.Equal(t, int64(2327), totals.Total)
}

func TestComputeTotals_FreeShippingAboveThreshold(t *testing.T) {
	lines := []CartLine{{ProductID: 1, Quantity: 1, UnitPrice: 10_000}}
	method := ShippingMethod{ID: "standard", Price: 599}
	rules := PricingRules{TaxRateBps: 800, FreeShippingThreshold: 5_000}

	totals := ComputeTotals(lines, method, 0, rules)

	assert.Equal(t, int64(0), totals.Shipping)
}

func TestComputeTotals_ExpressShippingNeverFree(t *testing.T) {
	lines := []CartLine{{ProductID: 1, Quantity: 1, UnitPrice: 10_000}}
	method := ShippingMethod{ID: "express", Price: 1499}
	rules := PricingRules{TaxRateBps: 800, FreeShippingThreshold: 5_000}

	totals := ComputeTotals(lines, method, 0, rules)

	assert.Equal(t, int64(1499), totals.Shipping)
}

func TestComputeTotals_PromoDiscount(t *testing.T) {
	lines := []CartLine{{ProductID: 1, Quantity: 1, UnitPrice: 2000}}
	method := ShippingMethod{ID: "express", Price: 1499}
	rules := PricingRules{TaxRateBps: 800}

	totals := ComputeTotals(lines, method, 10, rules)

	assert.Equal(t, int64(200), totals.PromoDiscount)
	assert.Equal(t, int64(2000+160+1499-200), totals.Total)
}

func TestComputeTotals_EmptyCart(t *testing.T) {
	totals := ComputeTotals(nil, ShippingMethod{Price: 599}, 50, PricingRules{TaxRateBps: 800})

	assert.Equal(t, int64(0), totals.Subtotal)
	assert.Equal(t, int64(0), totals.PromoDiscount)
	assert.Equal(t, int64(599), totals.Total)
}
