package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutOfStock(t *testing.T) {
	err := OutOfStock(7, 3)

	assert.Equal(t, "OUT_OF_STOCK", err.Code)
	assert.Equal(t, http.StatusConflict, err.Status)
	assert.Contains(t, err.Message, "only 3 unit(s) available")
	assert.ErrorIs(t, err, ErrOutOfStock)
}

func TestPartialCommit_WrapsBothSentinelAndCause(t *testing.T) {
	cause := errors.New("insert order line: connection reset")
	err := PartialCommit("ord-1", cause)

	assert.ErrorIs(t, err, ErrPartialCommit)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Message, "ord-1")
}

func TestGateway_PreservesCause(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := Gateway("inventory", cause)

	assert.ErrorIs(t, err, ErrGateway)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, http.StatusBadGateway, err.Status)
}

func TestValidation_CarriesFields(t *testing.T) {
	err := Validation(map[string]string{"email": "must be a valid email address"})

	require.NotNil(t, err.Fields)
	assert.Equal(t, "must be a valid email address", err.Fields["email"])
	assert.Equal(t, http.StatusBadRequest, err.Status)
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"app error", NotFound("order", "x"), http.StatusNotFound},
		{"wrapped app error", fmt.Errorf("place order: %w", OutOfStock(1, 0)), http.StatusConflict},
		{"sentinel", ErrUnauthorized, http.StatusUnauthorized},
		{"wrapped sentinel", fmt.Errorf("op: %w", ErrGateway), http.StatusBadGateway},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}
