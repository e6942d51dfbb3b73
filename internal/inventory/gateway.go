// Package inventory provides the client for the product inventory service,
// the source of truth for live price, discount, and stock figures.
package inventory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	apperrors "github.com/delali3/era-store-sub002/pkg/errors"
)

// Product is the inventory service's view of a sellable product. Prices are
// minor currency units; DiscountPercent is a whole-number percentage.
type Product struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	Price           int64  `json:"price"`
	DiscountPercent int    `json:"discount_percent"`
	InventoryCount  int    `json:"inventory_count"`
}

// Gateway looks up live product data. Cart mutations consult it before
// admitting a quantity so the persisted cart never exceeds available stock.
type Gateway interface {
	// Lookup returns product records for the given ids. Unknown ids are
	// simply absent from the result.
	Lookup(ctx context.Context, productIDs []int64) ([]Product, error)
}

// HTTPDoer is the interface for executing HTTP requests. Both
// httpclient.Client and httpclient.CircuitBreakerClient satisfy this.
type HTTPDoer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// HTTPGateway implements Gateway over the inventory service's HTTP API.
type HTTPGateway struct {
	client  HTTPDoer
	baseURL string
	logger  *slog.Logger
}

// NewHTTPGateway creates a gateway that talks to the inventory service at baseURL.
func NewHTTPGateway(client HTTPDoer, baseURL string, logger *slog.Logger) *HTTPGateway {
	return &HTTPGateway{
		client:  client,
		baseURL: baseURL,
		logger:  logger,
	}
}

type lookupRequest struct {
	ProductIDs []int64 `json:"product_ids"`
}

type lookupResponse struct {
	Data []Product `json:"data"`
}

// Lookup fetches live product records from the inventory service.
func (g *HTTPGateway) Lookup(ctx context.Context, productIDs []int64) ([]Product, error) {
	if len(productIDs) == 0 {
		return []Product{}, nil
	}

	body, err := json.Marshal(lookupRequest{ProductIDs: productIDs})
	if err != nil {
		return nil, fmt.Errorf("marshal lookup request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/api/v1/products/lookup", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build lookup request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(ctx, req)
	if err != nil {
		return nil, apperrors.Gateway("inventory", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		g.logger.ErrorContext(ctx, "inventory lookup failed",
			slog.Int("status", resp.StatusCode),
			slog.String("body", string(payload)),
		)
		return nil, apperrors.Gateway("inventory", fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var out lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, apperrors.Gateway("inventory", fmt.Errorf("decode lookup response: %w", err))
	}

	return out.Data, nil
}

// IndexByID returns the products keyed by product id.
func IndexByID(products []Product) map[int64]Product {
	m := make(map[int64]Product, len(products))
	for _, p := range products {
		m[p.ID] = p
	}
	return m
}
