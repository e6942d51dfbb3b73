// Package cart implements the shopping cart. Mutations validate against
// live inventory before they commit, and every successful mutation persists
// the whole cart snapshot.
package cart

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/delali3/era-store-sub002/internal/domain"
	"github.com/delali3/era-store-sub002/internal/event"
	"github.com/delali3/era-store-sub002/internal/inventory"
	"github.com/delali3/era-store-sub002/internal/repository"
	apperrors "github.com/delali3/era-store-sub002/pkg/errors"
)

// MaxQuantityPerLine is the upper bound for a single cart line, independent
// of stock.
const MaxQuantityPerLine = 100

// Service implements the business logic for cart operations.
type Service struct {
	repo      repository.CartRepository
	inventory inventory.Gateway
	producer  *event.Producer
	logger    *slog.Logger
	currency  string
}

// NewService creates a new cart service.
func NewService(repo repository.CartRepository, inv inventory.Gateway, producer *event.Producer, logger *slog.Logger, currency string) *Service {
	return &Service{
		repo:      repo,
		inventory: inv,
		producer:  producer,
		logger:    logger,
		currency:  currency,
	}
}

// Get retrieves the cart for a user. If no cart exists, returns an empty cart.
func (s *Service) Get(ctx context.Context, userID string) (*domain.Cart, error) {
	if userID == "" {
		return nil, apperrors.InvalidInput("user id is required")
	}

	cart, err := s.repo.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return s.emptyCart(userID), nil
		}
		return nil, fmt.Errorf("get cart: %w", err)
	}

	return cart, nil
}

// AddItem adds quantity units of a product to the user's cart, merging with
// an existing line for the same product. The merged quantity is validated
// against live stock; on insufficient stock the cart is left untouched and
// the error reports how many units are available.
func (s *Service) AddItem(ctx context.Context, userID string, productID int64, quantity int) (*domain.Cart, error) {
	if userID == "" {
		return nil, apperrors.InvalidInput("user id is required")
	}
	if productID <= 0 {
		return nil, apperrors.InvalidInput("product id is required")
	}
	if quantity <= 0 {
		return nil, apperrors.InvalidInput("quantity must be greater than 0")
	}
	if quantity > MaxQuantityPerLine {
		return nil, apperrors.InvalidInput(fmt.Sprintf("quantity must not exceed %d", MaxQuantityPerLine))
	}

	product, err := s.lookupProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	cart, err := s.getOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	requested := quantity
	if i := cart.FindLineIndex(productID); i >= 0 {
		requested += cart.Lines[i].Quantity
	}
	if requested > product.InventoryCount {
		return nil, apperrors.OutOfStock(productID, product.InventoryCount)
	}
	if requested > MaxQuantityPerLine {
		return nil, apperrors.InvalidInput(fmt.Sprintf("combined quantity must not exceed %d", MaxQuantityPerLine))
	}

	if i := cart.FindLineIndex(productID); i >= 0 {
		cart.Lines[i].Quantity = requested
		// Refresh the price fields in case they changed.
		cart.Lines[i].Name = product.Name
		cart.Lines[i].UnitPrice = product.Price
		cart.Lines[i].DiscountPercent = product.DiscountPercent
	} else {
		cart.Lines = append(cart.Lines, domain.CartLine{
			ProductID:       productID,
			Name:            product.Name,
			Quantity:        quantity,
			UnitPrice:       product.Price,
			DiscountPercent: product.DiscountPercent,
		})
	}

	if err := s.save(ctx, cart); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "item added to cart",
		slog.String("user_id", userID),
		slog.Int64("product_id", productID),
		slog.Int("quantity", quantity),
	)

	return cart, nil
}

// UpdateQuantity sets the quantity of an existing cart line. A quantity of
// zero or less removes the line. A quantity above available stock is clamped
// to the stock level, persisted, and reported via an out-of-stock error
// alongside the adjusted cart.
func (s *Service) UpdateQuantity(ctx context.Context, userID string, productID int64, quantity int) (*domain.Cart, error) {
	if userID == "" {
		return nil, apperrors.InvalidInput("user id is required")
	}
	if productID <= 0 {
		return nil, apperrors.InvalidInput("product id is required")
	}
	if quantity > MaxQuantityPerLine {
		return nil, apperrors.InvalidInput(fmt.Sprintf("quantity must not exceed %d", MaxQuantityPerLine))
	}

	if quantity <= 0 {
		return s.RemoveItem(ctx, userID, productID)
	}

	cart, err := s.repo.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("cart line", fmt.Sprintf("%d", productID))
		}
		return nil, fmt.Errorf("get cart for update: %w", err)
	}

	i := cart.FindLineIndex(productID)
	if i < 0 {
		return nil, apperrors.NotFound("cart line", fmt.Sprintf("%d", productID))
	}

	product, err := s.lookupProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	var stockErr error
	if quantity > product.InventoryCount {
		stockErr = apperrors.OutOfStock(productID, product.InventoryCount)
		quantity = product.InventoryCount
	}

	if quantity == 0 {
		cart.Lines = append(cart.Lines[:i], cart.Lines[i+1:]...)
	} else {
		cart.Lines[i].Quantity = quantity
	}

	if err := s.save(ctx, cart); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "cart line quantity updated",
		slog.String("user_id", userID),
		slog.Int64("product_id", productID),
		slog.Int("quantity", quantity),
	)

	return cart, stockErr
}

// RemoveItem removes a product line from the cart. Removing a line that is
// not in the cart is a no-op, not an error.
func (s *Service) RemoveItem(ctx context.Context, userID string, productID int64) (*domain.Cart, error) {
	if userID == "" {
		return nil, apperrors.InvalidInput("user id is required")
	}
	if productID <= 0 {
		return nil, apperrors.InvalidInput("product id is required")
	}

	cart, err := s.repo.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return s.emptyCart(userID), nil
		}
		return nil, fmt.Errorf("get cart for remove: %w", err)
	}

	i := cart.FindLineIndex(productID)
	if i < 0 {
		return cart, nil
	}

	cart.Lines = append(cart.Lines[:i], cart.Lines[i+1:]...)

	if err := s.save(ctx, cart); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "item removed from cart",
		slog.String("user_id", userID),
		slog.Int64("product_id", productID),
	)

	return cart, nil
}

// Clear removes all lines from the user's cart.
func (s *Service) Clear(ctx context.Context, userID string) error {
	if userID == "" {
		return apperrors.InvalidInput("user id is required")
	}

	if err := s.repo.Delete(ctx, userID); err != nil {
		return fmt.Errorf("delete cart: %w", err)
	}

	if err := s.producer.PublishCartCleared(ctx, userID); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish cart.cleared event",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "cart cleared", slog.String("user_id", userID))

	return nil
}

func (s *Service) lookupProduct(ctx context.Context, productID int64) (*inventory.Product, error) {
	products, err := s.inventory.Lookup(ctx, []int64{productID})
	if err != nil {
		return nil, fmt.Errorf("lookup product %d: %w", productID, err)
	}
	for i := range products {
		if products[i].ID == productID {
			return &products[i], nil
		}
	}
	return nil, apperrors.NotFound("product", fmt.Sprintf("%d", productID))
}

func (s *Service) getOrCreate(ctx context.Context, userID string) (*domain.Cart, error) {
	cart, err := s.repo.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return s.emptyCart(userID), nil
		}
		return nil, fmt.Errorf("get cart: %w", err)
	}
	return cart, nil
}

func (s *Service) emptyCart(userID string) *domain.Cart {
	return &domain.Cart{
		UserID:    userID,
		Lines:     []domain.CartLine{},
		Currency:  s.currency,
		UpdatedAt: time.Now().UTC(),
	}
}

func (s *Service) save(ctx context.Context, cart *domain.Cart) error {
	cart.UpdatedAt = time.Now().UTC()

	if err := s.repo.Save(ctx, cart); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}

	if err := s.producer.PublishCartUpdated(ctx, cart); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish cart.updated event",
			slog.String("user_id", cart.UserID),
			slog.String("error", err.Error()),
		)
	}

	return nil
}
