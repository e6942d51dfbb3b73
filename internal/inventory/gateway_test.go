package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/delali3/era-store-sub002/pkg/errors"
)

type plainDoer struct{}

func (plainDoer) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	return http.DefaultClient.Do(req)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHTTPGateway_Lookup_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/products/lookup", r.URL.Path)

		var req lookupRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []int64{42, 7}, req.ProductIDs)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(lookupResponse{Data: []Product{
			{ID: 42, Name: "Widget", Price: 1000, DiscountPercent: 20, InventoryCount: 5},
			{ID: 7, Name: "Gadget", Price: 599, InventoryCount: 0},
		}})
	}))
	defer srv.Close()

	gw := NewHTTPGateway(plainDoer{}, srv.URL, discardLogger())

	products, err := gw.Lookup(context.Background(), []int64{42, 7})
	require.NoError(t, err)
	require.Len(t, products, 2)

	byID := IndexByID(products)
	assert.Equal(t, int64(1000), byID[42].Price)
	assert.Equal(t, 0, byID[7].InventoryCount)
}

func TestHTTPGateway_Lookup_EmptyInputSkipsNetwork(t *testing.T) {
	gw := NewHTTPGateway(nil, "http://unused", discardLogger())

	products, err := gw.Lookup(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, products)
}

func TestHTTPGateway_Lookup_Non200IsGatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	gw := NewHTTPGateway(plainDoer{}, srv.URL, discardLogger())

	_, err := gw.Lookup(context.Background(), []int64{1})
	assert.True(t, errors.Is(err, apperrors.ErrGateway))
}
