package domain

import "time"

// Cart holds a user's in-progress cart lines.
type Cart struct {
	UserID    string     `json:"user_id"`
	Lines     []CartLine `json:"lines"`
	Currency  string     `json:"currency"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// CartLine is one product-id/quantity pair in the cart. Unit price, discount,
// and name are snapshots of the product data fetched from the inventory
// gateway when the line was last touched; derived totals use these snapshots
// rather than re-validating on every read.
type CartLine struct {
	ProductID       int64  `json:"product_id"`
	Name            string `json:"name,omitempty"`
	Quantity        int    `json:"quantity"`
	UnitPrice       int64  `json:"unit_price"`
	DiscountPercent int    `json:"discount_percent,omitempty"`
}

// EffectiveUnitPrice returns the unit price in cents after applying the
// discount percentage.
func (l CartLine) EffectiveUnitPrice() int64 {
	if l.DiscountPercent <= 0 {
		return l.UnitPrice
	}
	return l.UnitPrice * int64(100-l.DiscountPercent) / 100
}

// LineSubtotal returns effective unit price times quantity.
func (l CartLine) LineSubtotal() int64 {
	return l.EffectiveUnitPrice() * int64(l.Quantity)
}

// ItemCount returns the total number of units across all lines.
func (c *Cart) ItemCount() int {
	var count int
	for _, l := range c.Lines {
		count += l.Quantity
	}
	return count
}

// Subtotal returns the sum of all line subtotals in cents.
func (c *Cart) Subtotal() int64 {
	var total int64
	for _, l := range c.Lines {
		total += l.LineSubtotal()
	}
	return total
}

// FindLineIndex returns the index of the line for the given product, or -1.
func (c *Cart) FindLineIndex(productID int64) int {
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID {
			return i
		}
	}
	return -1
}
