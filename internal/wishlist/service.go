// Package wishlist tracks the products a user has saved for later and the
// products they viewed most recently.
package wishlist

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/delali3/era-store-sub002/internal/domain"
	"github.com/delali3/era-store-sub002/internal/event"
	"github.com/delali3/era-store-sub002/internal/repository"
	apperrors "github.com/delali3/era-store-sub002/pkg/errors"
)

// Service implements the business logic for wishlist and recently-viewed
// operations.
type Service struct {
	repo     repository.WishlistRepository
	producer *event.Producer
	logger   *slog.Logger
}

// NewService creates a new wishlist service.
func NewService(repo repository.WishlistRepository, producer *event.Producer, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		producer: producer,
		logger:   logger,
	}
}

// GetWishlist returns the user's wishlist.
func (s *Service) GetWishlist(ctx context.Context, userID string) (*domain.Wishlist, error) {
	if userID == "" {
		return nil, apperrors.InvalidInput("user id is required")
	}

	w, err := s.repo.GetWishlist(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get wishlist: %w", err)
	}

	return w, nil
}

// Toggle adds the product to the wishlist if absent, removes it if present,
// and returns the updated wishlist along with whether the product is now
// saved.
func (s *Service) Toggle(ctx context.Context, userID string, productID int64) (*domain.Wishlist, bool, error) {
	if userID == "" {
		return nil, false, apperrors.InvalidInput("user id is required")
	}
	if productID <= 0 {
		return nil, false, apperrors.InvalidInput("product id is required")
	}

	w, err := s.repo.GetWishlist(ctx, userID)
	if err != nil {
		return nil, false, fmt.Errorf("get wishlist: %w", err)
	}

	saved := w.Add(productID)
	if !saved {
		w.Remove(productID)
	}

	if err := s.repo.SaveWishlist(ctx, w); err != nil {
		return nil, false, fmt.Errorf("save wishlist: %w", err)
	}

	s.logger.InfoContext(ctx, "wishlist toggled",
		slog.String("user_id", userID),
		slog.Int64("product_id", productID),
		slog.Bool("saved", saved),
	)

	return w, saved, nil
}

// Remove deletes the product from the wishlist. Removing an absent product
// is a no-op.
func (s *Service) Remove(ctx context.Context, userID string, productID int64) (*domain.Wishlist, error) {
	if userID == "" {
		return nil, apperrors.InvalidInput("user id is required")
	}
	if productID <= 0 {
		return nil, apperrors.InvalidInput("product id is required")
	}

	w, err := s.repo.GetWishlist(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get wishlist: %w", err)
	}

	if !w.Remove(productID) {
		return w, nil
	}

	if err := s.repo.SaveWishlist(ctx, w); err != nil {
		return nil, fmt.Errorf("save wishlist: %w", err)
	}

	return w, nil
}

// GetRecentlyViewed returns the user's recently viewed products, most
// recent first.
func (s *Service) GetRecentlyViewed(ctx context.Context, userID string) (*domain.RecentlyViewed, error) {
	if userID == "" {
		return nil, apperrors.InvalidInput("user id is required")
	}

	v, err := s.repo.GetRecentlyViewed(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get recently viewed: %w", err)
	}

	return v, nil
}

// RecordView records a product view. A re-viewed product moves to the front
// of the list; the list holds at most domain.RecentlyViewedCap entries.
func (s *Service) RecordView(ctx context.Context, userID string, productID int64) (*domain.RecentlyViewed, error) {
	if userID == "" {
		return nil, apperrors.InvalidInput("user id is required")
	}
	if productID <= 0 {
		return nil, apperrors.InvalidInput("product id is required")
	}

	v, err := s.repo.GetRecentlyViewed(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get recently viewed: %w", err)
	}

	v.View(productID)

	if err := s.repo.SaveRecentlyViewed(ctx, v); err != nil {
		return nil, fmt.Errorf("save recently viewed: %w", err)
	}

	if err := s.producer.PublishProductViewed(ctx, userID, productID); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish product.viewed event",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}

	return v, nil
}
