package domain

import "time"

// Order status constants. Orders are created in StatusProcessing; later
// fulfilment transitions are outside this core's scope.
const (
	StatusProcessing = "Processing"
)

// Order is the write-once record produced by a confirmed checkout. The
// shipping address is embedded as a snapshot so the order stays accurate if
// the address book entry is later edited or deleted.
type Order struct {
	ID               string      `json:"id"`
	UserID           string      `json:"user_id"`
	OrderNumber      string      `json:"order_number"`
	Status           string      `json:"status"`
	SubtotalAmount   int64       `json:"subtotal_amount"`
	TaxAmount        int64       `json:"tax_amount"`
	ShippingAmount   int64       `json:"shipping_amount"`
	DiscountAmount   int64       `json:"discount_amount"`
	TotalAmount      int64       `json:"total_amount"`
	Currency         string      `json:"currency"`
	ShippingAddress  Address     `json:"shipping_address"`
	PaymentMethod    string      `json:"payment_method"`
	PaymentReference string      `json:"payment_reference,omitempty"`
	Lines            []OrderLine `json:"lines"`
	CreatedAt        time.Time   `json:"created_at"`
}

// OrderLine is one product line of a committed order, priced from the same
// cart snapshot that produced the displayed total.
type OrderLine struct {
	ID           string `json:"id"`
	OrderID      string `json:"order_id"`
	ProductID    int64  `json:"product_id"`
	Quantity     int    `json:"quantity"`
	PricePerUnit int64  `json:"price_per_unit"`
	Subtotal     int64  `json:"subtotal"`
}

// LinesSubtotal returns the sum of all line subtotals.
func (o *Order) LinesSubtotal() int64 {
	var total int64
	for _, l := range o.Lines {
		total += l.Subtotal
	}
	return total
}
