package domain

// ShippingMethodStandard identifies the catalog entry eligible for the
// free-shipping promotion. Premium methods keep their price regardless of
// the subtotal.
const ShippingMethodStandard = "standard"

// ShippingMethod is one entry of the configured shipping catalog.
type ShippingMethod struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Price int64  `json:"price"`
	Days  string `json:"days,omitempty"`
}

// PricingRules holds the storefront-wide monetary policy.
type PricingRules struct {
	// TaxRateBps is the tax rate in basis points (800 = 8%).
	TaxRateBps int64
	// FreeShippingThreshold is the subtotal in cents above which standard
	// shipping is free. Zero disables the promotion.
	FreeShippingThreshold int64
}

// Totals is the derived monetary breakdown of a cart at checkout. All values
// are in minor currency units. Never stored; recomputed from inputs that are
// all non-negative, so no component can go below zero.
type Totals struct {
	Subtotal      int64 `json:"subtotal"`
	Tax           int64 `json:"tax"`
	Shipping      int64 `json:"shipping"`
	PromoDiscount int64 `json:"promo_discount"`
	Total         int64 `json:"total"`
}

// ComputeTotals derives the full monetary breakdown for the given lines,
// shipping method, and promo percentage.
func ComputeTotals(lines []CartLine, method ShippingMethod, promoPercent int, rules PricingRules) Totals {
	var subtotal int64
	for _, l := range lines {
		subtotal += l.LineSubtotal()
	}

	tax := subtotal * rules.TaxRateBps / 10_000

	shipping := method.Price
	if method.ID == ShippingMethodStandard &&
		rules.FreeShippingThreshold > 0 && subtotal >= rules.FreeShippingThreshold {
		shipping = 0
	}

	var promo int64
	if promoPercent > 0 {
		promo = subtotal * int64(promoPercent) / 100
	}

	return Totals{
		Subtotal:      subtotal,
		Tax:           tax,
		Shipping:      shipping,
		PromoDiscount: promo,
		Total:         subtotal + tax + shipping - promo,
	}
}
