package cart

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/delali3/era-store-sub002/internal/domain"
	"github.com/delali3/era-store-sub002/internal/event"
	"github.com/delali3/era-store-sub002/internal/inventory"
	apperrors "github.com/delali3/era-store-sub002/pkg/errors"
	pkgkafka "github.com/delali3/era-store-sub002/pkg/kafka"
)

// --- Mock Repository ---

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

func (m *mockCartRepository) Save(ctx context.Context, cart *domain.Cart) error {
	args := m.Called(ctx, cart)
	return args.Error(0)
}

func (m *mockCartRepository) Delete(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

// --- Mock Inventory Gateway ---

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

// --- Test Helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestService(repo *mockCartRepository, inv *mockInventoryGateway) *Service {
	logger := newTestLogger()
	// A producer with no reachable broker fails silently in tests.
	kafkaProducer := pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig([]string{"localhost:9092"}), logger)
	producer := event.NewProducer(kafkaProducer, logger)
	return NewService(repo, inv, producer, logger, "USD")
}

func widgetInStock(stock int) []inventory.Product {
	return []inventory.Product{
		{ID: 42, Name: "Widget", Price: 1000, DiscountPercent: 20, InventoryCount: stock},
	}
}

func cartWithWidget(qty int) *domain.Cart {
	return &domain.Cart{
		UserID:   "user-1",
		Currency: "USD",
		Lines: []domain.CartLine{
			{ProductID: 42, Name: "Widget", Quantity: qty, UnitPrice: 1000, DiscountPercent: 20},
		},
	}
}

// --- Tests ---

func TestGet_AbsentCartIsEmpty(t *testing.T) {
	repo := new(mockCartRepository)
	svc := newTestService(repo, new(mockInventoryGateway))
	ctx := context.Background()

	repo.On("Get", ctx, "user-1").Return(nil, apperrors.NotFound("cart", "user-1"))

	cart, err := svc.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", cart.UserID)
	assert.Empty(t, cart.Lines)
	repo.AssertExpectations(t)
}

func TestAddItem_NewLine(t *testing.T) {
	repo := new(mockCartRepository)
	inv := new(mockInventoryGateway)
	svc := newTestService(repo, inv)
	ctx := context.Background()

	inv.On("Lookup", ctx, []int64{42}).Return(widgetInStock(5), nil)
	repo.On("Get", ctx, "user-1").Return(nil, apperrors.NotFound("cart", "user-1"))
	repo.On("Save", ctx, mock.AnythingOfType("*domain.Cart")).Return(nil)

	cart, err := svc.AddItem(ctx, "user-1", 42, 2)
	require.NoError(t, err)
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, 2, cart.Lines[0].Quantity)
	assert.Equal(t, int64(800), cart.Lines[0].EffectiveUnitPrice())
	repo.AssertExpectations(t)
	inv.AssertExpectations(t)
}

func TestAddItem_MergesWithExistingLine(t *testing.T) {
	repo := new(mockCartRepository)
	inv := new(mockInventoryGateway)
	svc := newTestService(repo, inv)
	ctx := context.Background()

	inv.On("Lookup", ctx, []int64{42}).Return(widgetInStock(10), nil)
	repo.On("Get", ctx, "user-1").Return(cartWithWidget(2), nil)
	repo.On("Save", ctx, mock.AnythingOfType("*domain.Cart")).Return(nil)

	cart, err := svc.AddItem(ctx, "user-1", 42, 3)
	require.NoError(t, err)
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, 5, cart.Lines[0].Quantity)
	repo.AssertExpectations(t)
}

func TestAddItem_InsufficientStockLeavesCartUntouched(t *testing.T) {
	repo := new(mockCartRepository)
	inv := new(mockInventoryGateway)
	svc := newTestService(repo, inv)
	ctx := context.Background()

	// 2 in cart + 3 requested > 4 available.
	inv.On("Lookup", ctx, []int64{42}).Return(widgetInStock(4), nil)
	repo.On("Get", ctx, "user-1").Return(cartWithWidget(2), nil)

	cart, err := svc.AddItem(ctx, "user-1", 42, 3)
	assert.Nil(t, cart)
	assert.True(t, errors.Is(err, apperrors.ErrOutOfStock))

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Contains(t, appErr.Message, "4")

	// Save was never called.
	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestAddItem_UnknownProduct(t *testing.T) {
	repo := new(mockCartRepository)
	inv := new(mockInventoryGateway)
	svc := newTestService(repo, inv)
	ctx := context.Background()

	inv.On("Lookup", ctx, []int64{99}).Return([]inventory.Product{}, nil)

	_, err := svc.AddItem(ctx, "user-1", 99, 1)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestAddItem_InvalidInput(t *testing.T) {
	svc := newTestService(new(mockCartRepository), new(mockInventoryGateway))
	ctx := context.Background()

	tests := []struct {
		name      string
		userID    string
		productID int64
		quantity  int
	}{
		{"missing user", "", 42, 1},
		{"missing product", "user-1", 0, 1},
		{"zero quantity", "user-1", 42, 0},
		{"negative quantity", "user-1", 42, -1},
		{"excessive quantity", "user-1", 42, MaxQuantityPerLine + 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.AddItem(ctx, tt.userID, tt.productID, tt.quantity)
			assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
		})
	}
}

func TestUpdateQuantity_SetsNewQuantity(t *testing.T) {
	repo := new(mockCartRepository)
	inv := new(mockInventoryGateway)
	svc := newTestService(repo, inv)
	ctx := context.Background()

	repo.On("Get", ctx, "user-1").Return(cartWithWidget(2), nil)
	inv.On("Lookup", ctx, []int64{42}).Return(widgetInStock(10), nil)
	repo.On("Save", ctx, mock.AnythingOfType("*domain.Cart")).Return(nil)

	cart, err := svc.UpdateQuantity(ctx, "user-1", 42, 7)
	require.NoError(t, err)
	assert.Equal(t, 7, cart.Lines[0].Quantity)
}

func TestUpdateQuantity_ClampsToStockAndReportsIt(t *testing.T) {
	repo := new(mockCartRepository)
	inv := new(mockInventoryGateway)
	svc := newTestService(repo, inv)
	ctx := context.Background()

	repo.On("Get", ctx, "user-1").Return(cartWithWidget(2), nil)
	inv.On("Lookup", ctx, []int64{42}).Return(widgetInStock(3), nil)
	repo.On("Save", ctx, mock.AnythingOfType("*domain.Cart")).Return(nil)

	cart, err := svc.UpdateQuantity(ctx, "user-1", 42, 9)
	assert.True(t, errors.Is(err, apperrors.ErrOutOfStock))
	require.NotNil(t, cart)
	assert.Equal(t, 3, cart.Lines[0].Quantity)
	repo.AssertExpectations(t)
}

func TestUpdateQuantity_ZeroRemovesLine(t *testing.T) {
	repo := new(mockCartRepository)
	inv := new(mockInventoryGateway)
	svc := newTestService(repo, inv)
	ctx := context.Background()

	repo.On("Get", ctx, "user-1").Return(cartWithWidget(2), nil)
	repo.On("Save", ctx, mock.AnythingOfType("*domain.Cart")).Return(nil)

	cart, err := svc.UpdateQuantity(ctx, "user-1", 42, 0)
	require.NoError(t, err)
	assert.Empty(t, cart.Lines)
	// No inventory call needed for a removal.
	inv.AssertNotCalled(t, "Lookup", mock.Anything, mock.Anything)
}

func TestUpdateQuantity_UnknownLine(t *testing.T) {
	repo := new(mockCartRepository)
	inv := new(mockInventoryGateway)
	svc := newTestService(repo, inv)
	ctx := context.Background()

	repo.On("Get", ctx, "user-1").Return(cartWithWidget(2), nil)

	_, err := svc.UpdateQuantity(ctx, "user-1", 77, 1)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestRemoveItem_Idempotent(t *testing.T) {
	repo := new(mockCartRepository)
	svc := newTestService(repo, new(mockInventoryGateway))
	ctx := context.Background()

	repo.On("Get", ctx, "user-1").Return(cartWithWidget(2), nil)

	// Product 77 is not in the cart; no save, no error.
	cart, err := svc.RemoveItem(ctx, "user-1", 77)
	require.NoError(t, err)
	assert.Len(t, cart.Lines, 1)
	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestRemoveItem_RemovesLine(t *testing.T) {
	repo := new(mockCartRepository)
	svc := newTestService(repo, new(mockInventoryGateway))
	ctx := context.Background()

	repo.On("Get", ctx, "user-1").Return(cartWithWidget(2), nil)
	repo.On("Save", ctx, mock.AnythingOfType("*domain.Cart")).Return(nil)

	cart, err := svc.RemoveItem(ctx, "user-1", 42)
	require.NoError(t, err)
	assert.Empty(t, cart.Lines)
	repo.AssertExpectations(t)
}

func TestClear(t *testing.T) {
	repo := new(mockCartRepository)
	svc := newTestService(repo, new(mockInventoryGateway))
	ctx := context.Background()

	repo.On("Delete", ctx, "user-1").Return(nil)

	assert.NoError(t, svc.Clear(ctx, "user-1"))
	repo.AssertExpectations(t)
}
