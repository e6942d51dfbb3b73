package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/delali3/era-store-sub002/internal/cart"
	"github.com/delali3/era-store-sub002/internal/domain"
	"github.com/delali3/era-store-sub002/internal/event"
	"github.com/delali3/era-store-sub002/internal/inventory"
	apperrors "github.com/delali3/era-store-sub002/pkg/errors"
	pkgkafka "github.com/delali3/era-store-sub002/pkg/kafka"
	"github.com/delali3/era-store-sub002/pkg/middleware"
)

type mockCartRepository struct {
	mock.Mock
}

func (m *mockCartRepository) Get(ctx context.Context, userID string) (*domain.Cart, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Cart), args.Error(1)
}

func (m *mockCartRepository) Save(ctx context.Context, c *domain.Cart) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *mockCartRepository) Delete(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

type mockInventoryGateway struct {
	mock.Mock
}

func (m *mockInventoryGateway) Lookup(ctx context.Context, productIDs []int64) ([]inventory.Product, error) {
	args := m.Called(ctx, productIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]inventory.Product), args.Error(1)
}

// testUserID injects a fixed authenticated identity, standing in for the
// Auth middleware.
func testUserID(userID string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(middleware.ContextWithUserID(r.Context(), userID)))
		})
	}
}

// setupCartRouter creates a chi router matching the production route layout
// for the cart endpoints.
func setupCartRouter(handler *CartHandler) *chi.Mux {
	r := chi.NewRouter()
	r.Route("/api/v1/cart", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(testUserID("user-1"))

		r.Get("/", handler.Get)
		r.Delete("/", handler.Clear)

		r.Post("/items", handler.AddItem)
		r.Put("/items/{productID}", handler.UpdateQuantity)
		r.Delete("/items/{productID}", handler.RemoveItem)
	})
	return r
}

func newCartTestHandler(repo *mockCartRepository, inv *mockInventoryGateway) *CartHandler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	kafkaProducer := pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig([]string{"localhost:9092"}), logger)
	svc := cart.NewService(repo, inv, event.NewProducer(kafkaProducer, logger), logger, "USD")
	return NewCartHandler(svc, logger)
}

type cartEnvelope struct {
	Data  *domain.Cart `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decodeCartEnvelope(t *testing.T, body io.Reader) cartEnvelope {
	t.Helper()
	var env cartEnvelope
	require.NoError(t, json.NewDecoder(body).Decode(&env))
	return env
}

func TestCartHandler_Get(t *testing.T) {
	repo := new(mockCartRepository)
	handler := newCartTestHandler(repo, new(mockInventoryGateway))
	router := setupCartRouter(handler)

	repo.On("Get", mock.Anything, "user-1").Return(&domain.Cart{
		UserID:   "user-1",
		Currency: "USD",
		Lines: []domain.CartLine{
			{ProductID: 42, Name: "Widget", Quantity: 2, UnitPrice: 1000, DiscountPercent: 20},
		},
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	env := decodeCartEnvelope(t, rec.Body)
	require.NotNil(t, env.Data)
	assert.Equal(t, "user-1", env.Data.UserID)
	require.Len(t, env.Data.Lines, 1)
	assert.Equal(t, int64(1600), env.Data.Subtotal())
}

func TestCartHandler_GetEmptyWhenAbsent(t *testing.T) {
	repo := new(mockCartRepository)
	handler := newCartTestHandler(repo, new(mockInventoryGateway))
	router := setupCartRouter(handler)

	repo.On("Get", mock.Anything, "user-1").Return(nil, apperrors.NotFound("cart", "user-1"))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	env := decodeCartEnvelope(t, rec.Body)
	require.NotNil(t, env.Data)
	assert.Empty(t, env.Data.Lines)
}

func TestCartHandler_AddItem(t *testing.T) {
	repo := new(mockCartRepository)
	inv := new(mockInventoryGateway)
	handler := newCartTestHandler(repo, inv)
	router := setupCartRouter(handler)

	repo.On("Get", mock.Anything, "user-1").Return(nil, apperrors.NotFound("cart", "user-1"))
	inv.On("Lookup", mock.Anything, []int64{42}).Return([]inventory.Product{
		{ID: 42, Name: "Widget", Price: 1000, InventoryCount: 5},
	}, nil)
	repo.On("Save", mock.Anything, mock.Anything).Return(nil)

	body, _ := json.Marshal(AddItemRequest{ProductID: 42, Quantity: 2})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	env := decodeCartEnvelope(t, rec.Body)
	require.NotNil(t, env.Data)
	require.Len(t, env.Data.Lines, 1)
	assert.Equal(t, 2, env.Data.Lines[0].Quantity)
}

func TestCartHandler_AddItemInsufficientStock(t *testing.T) {
	repo := new(mockCartRepository)
	inv := new(mockInventoryGateway)
	handler := newCartTestHandler(repo, inv)
	router := setupCartRouter(handler)

	repo.On("Get", mock.Anything, "user-1").Return(nil, apperrors.NotFound("cart", "user-1"))
	inv.On("Lookup", mock.Anything, []int64{42}).Return([]inventory.Product{
		{ID: 42, Name: "Widget", Price: 1000, InventoryCount: 1},
	}, nil)

	body, _ := json.Marshal(AddItemRequest{ProductID: 42, Quantity: 3})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
	env := decodeCartEnvelope(t, rec.Body)
	require.NotNil(t, env.Error)
	assert.Equal(t, "OUT_OF_STOCK", env.Error.Code)
	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestCartHandler_UpdateQuantityClampReturnsCartAndError(t *testing.T) {
	repo := new(mockCartRepository)
	inv := new(mockInventoryGateway)
	handler := newCartTestHandler(repo, inv)
	router := setupCartRouter(handler)

	repo.On("Get", mock.Anything, "user-1").Return(&domain.Cart{
		UserID:   "user-1",
		Currency: "USD",
		Lines:    []domain.CartLine{{ProductID: 42, Quantity: 2, UnitPrice: 1000}},
	}, nil)
	inv.On("Lookup", mock.Anything, []int64{42}).Return([]inventory.Product{
		{ID: 42, Name: "Widget", Price: 1000, InventoryCount: 4},
	}, nil)
	repo.On("Save", mock.Anything, mock.Anything).Return(nil)

	body, _ := json.Marshal(UpdateQuantityRequest{Quantity: 9})
	req := httptest.NewRequest(http.MethodPut, "/api/v1/cart/items/42", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	// Clamp-and-report: the adjusted cart and the stock error ride in the
	// same envelope.
	assert.Equal(t, http.StatusConflict, rec.Code)
	env := decodeCartEnvelope(t, rec.Body)
	require.NotNil(t, env.Data)
	assert.Equal(t, 4, env.Data.Lines[0].Quantity)
	require.NotNil(t, env.Error)
	assert.Equal(t, "OUT_OF_STOCK", env.Error.Code)
}

func TestCartHandler_UpdateQuantityBadProductID(t *testing.T) {
	repo := new(mockCartRepository)
	handler := newCartTestHandler(repo, new(mockInventoryGateway))
	router := setupCartRouter(handler)

	body, _ := json.Marshal(UpdateQuantityRequest{Quantity: 1})
	req := httptest.NewRequest(http.MethodPut, "/api/v1/cart/items/not-a-number", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	repo.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}

func TestCartHandler_RemoveItem(t *testing.T) {
	repo := new(mockCartRepository)
	handler := newCartTestHandler(repo, new(mockInventoryGateway))
	router := setupCartRouter(handler)

	repo.On("Get", mock.Anything, "user-1").Return(&domain.Cart{
		UserID:   "user-1",
		Currency: "USD",
		Lines:    []domain.CartLine{{ProductID: 42, Quantity: 2, UnitPrice: 1000}},
	}, nil)
	repo.On("Save", mock.Anything, mock.Anything).Return(nil)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/cart/items/42", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	env := decodeCartEnvelope(t, rec.Body)
	require.NotNil(t, env.Data)
	assert.Empty(t, env.Data.Lines)
}

func TestCartHandler_Clear(t *testing.T) {
	repo := new(mockCartRepository)
	handler := newCartTestHandler(repo, new(mockInventoryGateway))
	router := setupCartRouter(handler)

	repo.On("Delete", mock.Anything, "user-1").Return(nil)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/cart", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	repo.AssertExpectations(t)
}

func TestCartHandler_RejectsWrongContentType(t *testing.T) {
	repo := new(mockCartRepository)
	handler := newCartTestHandler(repo, new(mockInventoryGateway))
	router := setupCartRouter(handler)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", bytes.NewReader([]byte("product_id=42")))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}
