package domain

import "time"

// Checkout wizard steps. The wizard is linear with backward navigation:
// shipping -> payment -> review.
const (
	StepShipping = "shipping"
	StepPayment  = "payment"
	StepReview   = "review"
)

// Payment method constants.
const (
	PaymentMethodCard     = "card"
	PaymentMethodGateway  = "gateway"
	PaymentMethodDeferred = "deferred"
)

// ShippingInfo is the shipping form state collected in the first wizard step.
type ShippingInfo struct {
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	AddressLine1 string `json:"address_line1"`
	AddressLine2 string `json:"address_line2,omitempty"`
	City         string `json:"city"`
	State        string `json:"state"`
	PostalCode   string `json:"postal_code"`
	Country      string `json:"country"`
}

// AsAddress converts the form state into an address record (without identity).
func (s ShippingInfo) AsAddress(userID string) *Address {
	return &Address{
		UserID:       userID,
		FirstName:    s.FirstName,
		LastName:     s.LastName,
		AddressLine1: s.AddressLine1,
		AddressLine2: s.AddressLine2,
		City:         s.City,
		State:        s.State,
		PostalCode:   s.PostalCode,
		Country:      s.Country,
		Phone:        s.Phone,
		Email:        s.Email,
	}
}

// ReviewSnapshot freezes the cart lines and computed totals when the wizard
// reaches the review step. The order commit uses exactly this snapshot so the
// committed amounts cannot drift from what was displayed.
type ReviewSnapshot struct {
	Lines    []CartLine `json:"lines"`
	Totals   Totals     `json:"totals"`
	Currency string     `json:"currency"`
	TakenAt  time.Time  `json:"taken_at"`
}

// CheckoutSession is the in-memory state of one checkout wizard run. It lives
// only for the lifetime of the wizard and is destroyed on completion or
// abandonment. Epoch increments on every navigation; asynchronous results
// carrying a stale epoch are discarded.
type CheckoutSession struct {
	ID                string          `json:"id"`
	UserID            string          `json:"user_id"`
	Step              string          `json:"step"`
	Epoch             int             `json:"-"`
	Shipping          *ShippingInfo   `json:"shipping,omitempty"`
	SaveAddress       bool            `json:"save_address"`
	SelectedAddressID string          `json:"selected_address_id,omitempty"`
	PaymentMethod     string          `json:"payment_method,omitempty"`
	CardLast4         string          `json:"card_last4,omitempty"`
	ShippingMethodID  string          `json:"shipping_method_id,omitempty"`
	PromoCode         string          `json:"promo_code,omitempty"`
	Review            *ReviewSnapshot `json:"review,omitempty"`
	PaymentError      string          `json:"payment_error,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// Confirmation is the terminal state handed to the presentation layer after a
// successful order commit.
type Confirmation struct {
	OrderID     string `json:"order_id"`
	OrderNumber string `json:"order_number"`
	TotalAmount int64  `json:"total_amount"`
	Currency    string `json:"currency"`
}
