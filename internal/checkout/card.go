package checkout

import (
	"strconv"
	"strings"
	"time"
	"unicode"

	apperrors "github.com/delali3/era-store-sub002/pkg/errors"
)

// CardInput holds the card fields collected in the payment step. The number
// may contain spaces; Expiry is MM/YY.
type CardInput struct {
	Name   string `json:"name"`
	Number string `json:"number"`
	Expiry string `json:"expiry"`
	CVV    string `json:"cvv"`
}

// minCardDigits is the shortest accepted card number, counted over digits
// only.
const minCardDigits = 15

// Last4 returns the last four digits of the card number.
func (c *CardInput) Last4() string {
	digits := digitsOf(c.Number)
	if len(digits) < 4 {
		return digits
	}
	return digits[len(digits)-4:]
}

// Validate checks the card fields and returns a field-keyed validation
// error listing every problem at once.
func (c *CardInput) Validate(now time.Time) error {
	fields := make(map[string]string)

	if strings.TrimSpace(c.Name) == "" {
		fields["name"] = "is required"
	}

	digits := digitsOf(c.Number)
	if len(digits) < minCardDigits || len(digits) != len(strings.ReplaceAll(c.Number, " ", "")) {
		fields["number"] = "must be a valid card number"
	}

	if !validExpiry(c.Expiry, now) {
		fields["expiry"] = "must be a future date in MM/YY format"
	}

	cvv := strings.TrimSpace(c.CVV)
	if len(cvv) < 3 || len(cvv) > 4 || digitsOf(cvv) != cvv {
		fields["cvv"] = "must be 3 or 4 digits"
	}

	if len(fields) > 0 {
		return apperrors.Validation(fields)
	}
	return nil
}

// digitsOf returns only the digit runes of s.
func digitsOf(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// validExpiry parses MM/YY and reports whether the card is valid through
// the end of that month.
func validExpiry(expiry string, now time.Time) bool {
	parts := strings.Split(strings.TrimSpace(expiry), "/")
	if len(parts) != 2 || len(parts[0]) != 2 || len(parts[1]) != 2 {
		return false
	}

	month, err := strconv.Atoi(parts[0])
	if err != nil || month < 1 || month > 12 {
		return false
	}
	year, err := strconv.Atoi(parts[1])
	if err != nil {
		return false
	}
	year += 2000

	// The card expires at the end of its month.
	expiresAt := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	return now.Before(expiresAt)
}
