package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/delali3/era-store-sub002/internal/domain"
)

const (
	wishlistKeyPrefix = "wishlist:"
	recentKeyPrefix   = "recent:"
)

// WishlistRepository implements repository.WishlistRepository using Redis.
// Wishlist and recently-viewed collections each live under their own key and
// are overwritten whole. A missing key reads back as an empty collection
// rather than an error, since every user implicitly has both lists.
type WishlistRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewWishlistRepository creates a new Redis-backed wishlist repository.
func NewWishlistRepository(client *redis.Client, ttl time.Duration) *WishlistRepository {
	return &WishlistRepository{
		client: client,
		ttl:    ttl,
	}
}

// GetWishlist retrieves the user's wishlist, empty when absent.
func (r *WishlistRepository) GetWishlist(ctx context.Context, userID string) (*domain.Wishlist, error) {
	data, err := r.client.Get(ctx, wishlistKeyPrefix+userID).Bytes()
	if err != nil {
		if err == redis.Nil {
			return &domain.Wishlist{UserID: userID, ProductIDs: []int64{}}, nil
		}
		return nil, fmt.Errorf("redis get wishlist: %w", err)
	}

	var w domain.Wishlist
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("unmarshal wishlist: %w", err)
	}

	return &w, nil
}

// SaveWishlist overwrites the user's wishlist.
func (r *WishlistRepository) SaveWishlist(ctx context.Context, w *domain.Wishlist) error {
	data, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("marshal wishlist: %w", err)
	}

	if err := r.client.Set(ctx, wishlistKeyPrefix+w.UserID, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set wishlist: %w", err)
	}

	return nil
}

// GetRecentlyViewed retrieves the user's recently viewed list, empty when absent.
func (r *WishlistRepository) GetRecentlyViewed(ctx context.Context, userID string) (*domain.RecentlyViewed, error) {
	data, err := r.client.Get(ctx, recentKeyPrefix+userID).Bytes()
	if err != nil {
		if err == redis.Nil {
			return &domain.RecentlyViewed{UserID: userID, ProductIDs: []int64{}}, nil
		}
		return nil, fmt.Errorf("redis get recently viewed: %w", err)
	}

	var v domain.RecentlyViewed
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("unmarshal recently viewed: %w", err)
	}

	return &v, nil
}

// SaveRecentlyViewed overwrites the user's recently viewed list.
func (r *WishlistRepository) SaveRecentlyViewed(ctx context.Context, v *domain.RecentlyViewed) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal recently viewed: %w", err)
	}

	if err := r.client.Set(ctx, recentKeyPrefix+v.UserID, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set recently viewed: %w", err)
	}

	return nil
}
