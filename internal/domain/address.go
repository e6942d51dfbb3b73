package domain

import (
	"strings"
	"time"
)

// Address is a shipping address in a user's address book. AddressLine1 is the
// canonical field name; any alternate storage shapes are mapped to it at the
// repository boundary.
type Address struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	AddressLine1 string    `json:"address_line1"`
	AddressLine2 string    `json:"address_line2,omitempty"`
	City         string    `json:"city"`
	State        string    `json:"state"`
	PostalCode   string    `json:"postal_code"`
	Country      string    `json:"country"`
	Phone        string    `json:"phone"`
	Email        string    `json:"email,omitempty"`
	IsDefault    bool      `json:"is_default"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ContentEquals reports whether two addresses describe the same physical
// destination, ignoring identity, default flag, and timestamps. Used to
// dedup saved addresses and to avoid overwriting an unchanged checkout form.
func (a *Address) ContentEquals(other *Address) bool {
	if other == nil {
		return false
	}
	eq := func(x, y string) bool {
		return strings.EqualFold(strings.TrimSpace(x), strings.TrimSpace(y))
	}
	return eq(a.FirstName, other.FirstName) &&
		eq(a.LastName, other.LastName) &&
		eq(a.AddressLine1, other.AddressLine1) &&
		eq(a.AddressLine2, other.AddressLine2) &&
		eq(a.City, other.City) &&
		eq(a.State, other.State) &&
		eq(a.PostalCode, other.PostalCode) &&
		eq(a.Country, other.Country)
}
