package checkout

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/delali3/era-store-sub002/pkg/errors"
)

func TestCardInput_Validate(t *testing.T) {
	now := time.Date(2026, time.August, 30, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		card      CardInput
		badFields []string
	}{
		{
			name: "valid card",
			card: CardInput{Name: "Ada Lovelace", Number: "4242 4242 4242 4242", Expiry: "12/27", CVV: "123"},
		},
		{
			name: "valid 15 digit card with 4 digit cvv",
			card: CardInput{Name: "Ada Lovelace", Number: "3782 822463 10005", Expiry: "01/28", CVV: "1234"},
		},
		{
			name:      "missing cardholder name",
			card:      CardInput{Number: "4242 4242 4242 4242", Expiry: "12/27", CVV: "123"},
			badFields: []string{"name"},
		},
		{
			name:      "whitespace-only cardholder name",
			card:      CardInput{Name: "   ", Number: "4242 4242 4242 4242", Expiry: "12/27", CVV: "123"},
			badFields: []string{"name"},
		},
		{
			name:      "too few digits",
			card:      CardInput{Name: "Ada Lovelace", Number: "4242 4242 4242", Expiry: "12/27", CVV: "123"},
			badFields: []string{"number"},
		},
		{
			name:      "letters in number",
			card:      CardInput{Name: "Ada Lovelace", Number: "4242 4242 4242 424x", Expiry: "12/27", CVV: "123"},
			badFields: []string{"number"},
		},
		{
			name:      "expired card",
			card:      CardInput{Name: "Ada Lovelace", Number: "4242 4242 4242 4242", Expiry: "07/26", CVV: "123"},
			badFields: []string{"expiry"},
		},
		{
			name: "expires this month is still valid",
			card: CardInput{Name: "Ada Lovelace", Number: "4242 4242 4242 4242", Expiry: "08/26", CVV: "123"},
		},
		{
			name:      "malformed expiry",
			card:      CardInput{Name: "Ada Lovelace", Number: "4242 4242 4242 4242", Expiry: "2027-12", CVV: "123"},
			badFields: []string{"expiry"},
		},
		{
			name:      "month out of range",
			card:      CardInput{Name: "Ada Lovelace", Number: "4242 4242 4242 4242", Expiry: "13/27", CVV: "123"},
			badFields: []string{"expiry"},
		},
		{
			name:      "cvv too short",
			card:      CardInput{Name: "Ada Lovelace", Number: "4242 4242 4242 4242", Expiry: "12/27", CVV: "12"},
			badFields: []string{"cvv"},
		},
		{
			name:      "cvv too long",
			card:      CardInput{Name: "Ada Lovelace", Number: "4242 4242 4242 4242", Expiry: "12/27", CVV: "12345"},
			badFields: []string{"cvv"},
		},
		{
			name:      "cvv not numeric",
			card:      CardInput{Name: "Ada Lovelace", Number: "4242 4242 4242 4242", Expiry: "12/27", CVV: "12a"},
			badFields: []string{"cvv"},
		},
		{
			name:      "everything wrong reports every field",
			card:      CardInput{Number: "1", Expiry: "nope", CVV: ""},
			badFields: []string{"name", "number", "expiry", "cvv"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.card.Validate(now)
			if len(tt.badFields) == 0 {
				assert.NoError(t, err)
				return
			}

			var appErr *apperrors.AppError
			require.True(t, errors.As(err, &appErr))
			assert.Len(t, appErr.Fields, len(tt.badFields))
			for _, f := range tt.badFields {
				assert.Contains(t, appErr.Fields, f)
			}
		})
	}
}

func TestCardInput_Last4(t *testing.T) {
	c := CardInput{Number: "4242 4242 4242 4242"}
	assert.Equal(t, "4242", c.Last4())
}
