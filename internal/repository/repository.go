package repository

import (
	"context"

	"github.com/delali3/era-store-sub002/internal/domain"
)

// AddressRepository defines the interface for address book persistence.
type AddressRepository interface {
	// Create inserts a new address into the store.
	Create(ctx context.Context, address *domain.Address) error

	// GetByID retrieves an address by its unique identifier.
	GetByID(ctx context.Context, id string) (*domain.Address, error)

	// ListByUserID returns all addresses for the given user, default first.
	ListByUserID(ctx context.Context, userID string) ([]domain.Address, error)

	// Update modifies an existing address in the store.
	Update(ctx context.Context, address *domain.Address) error

	// Delete removes an address from the store by its identifier.
	Delete(ctx context.Context, id string) error

	// SetDefault marks the specified address as the default for the user,
	// unsetting any previous default atomically.
	SetDefault(ctx context.Context, userID, addressID string) error

	// CountByUserID returns the number of addresses the user has saved.
	CountByUserID(ctx context.Context, userID string) (int, error)
}

// OrderRepository defines the interface for order persistence. CreateOrder
// and CreateLines are deliberately separate calls: the order header must
// survive even when line persistence fails afterwards.
type OrderRepository interface {
	// CreateOrder inserts the order header row.
	CreateOrder(ctx context.Context, order *domain.Order) error

	// CreateLines inserts the order's line rows.
	CreateLines(ctx context.Context, orderID string, lines []domain.OrderLine) error

	// GetByID retrieves an order with its lines.
	GetByID(ctx context.Context, id string) (*domain.Order, error)

	// ListByUserID returns the user's orders, newest first, without lines.
	ListByUserID(ctx context.Context, userID string) ([]domain.Order, error)
}

// CartRepository defines the interface for cart snapshot persistence. The
// whole cart is written on every mutation so a reload always sees the last
// committed state.
type CartRepository interface {
	// Get retrieves the user's cart, or domain.ErrNotFound-wrapped error
	// when the user has no saved cart.
	Get(ctx context.Context, userID string) (*domain.Cart, error)

	// Save overwrites the user's cart snapshot.
	Save(ctx context.Context, cart *domain.Cart) error

	// Delete removes the user's cart snapshot.
	Delete(ctx context.Context, userID string) error
}

// WishlistRepository defines the interface for wishlist and recently-viewed
// persistence. Both collections are stored whole, one key per user.
type WishlistRepository interface {
	// GetWishlist retrieves the user's wishlist, empty when absent.
	GetWishlist(ctx context.Context, userID string) (*domain.Wishlist, error)

	// SaveWishlist overwrites the user's wishlist.
	SaveWishlist(ctx context.Context, wishlist *domain.Wishlist) error

	// GetRecentlyViewed retrieves the user's recently viewed list, empty
	// when absent.
	GetRecentlyViewed(ctx context.Context, userID string) (*domain.RecentlyViewed, error)

	// SaveRecentlyViewed overwrites the user's recently viewed list.
	SaveRecentlyViewed(ctx context.Context, viewed *domain.RecentlyViewed) error
}
