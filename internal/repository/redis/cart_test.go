package redis

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/delali3/era-store-sub002/internal/domain"
	apperrors "github.com/delali3/era-store-sub002/pkg/errors"
)

func setupCartRepo(t *testing.T) (*CartRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	repo := NewCartRepository(client, 24*time.Hour)
	return repo, mr
}

func sampleCart() *domain.Cart {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &domain.Cart{
		UserID: "user-001",
		Lines: []domain.CartLine{
			{ProductID: 42, Name: "Widget", Quantity: 2, UnitPrice: 1000, DiscountPercent: 20},
		},
		Currency:  "USD",
		UpdatedAt: now,
	}
}

func TestCartRepository_Get_Success(t *testing.T) {
	repo, mr := setupCartRepo(t)

	cart := sampleCart()
	data, err := json.Marshal(cart)
	require.NoError(t, err)

	require.NoError(t, mr.Set("cart:"+cart.UserID, string(data)))

	got, err := repo.Get(context.Background(), cart.UserID)
	require.NoError(t, err)
	assert.Equal(t, cart.UserID, got.UserID)
	assert.Equal(t, "USD", got.Currency)
	require.Len(t, got.Lines, 1)
	assert.Equal(t, int64(42), got.Lines[0].ProductID)
	assert.Equal(t, int64(800), got.Lines[0].EffectiveUnitPrice())
}

func TestCartRepository_Get_NotFound(t *testing.T) {
	repo, _ := setupCartRepo(t)

	got, err := repo.Get(context.Background(), "nobody")
	assert.Nil(t, got)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestCartRepository_Save_OverwritesWholeSnapshot(t *testing.T) {
	repo, mr := setupCartRepo(t)

	cart := sampleCart()
	require.NoError(t, repo.Save(context.Background(), cart))

	cart.Lines = append(cart.Lines, domain.CartLine{ProductID: 7, Name: "Gadget", Quantity: 1, UnitPrice: 599})
	require.NoError(t, repo.Save(context.Background(), cart))

	raw, err := mr.Get("cart:" + cart.UserID)
	require.NoError(t, err)

	var got domain.Cart
	require.NoError(t, json.Unmarshal([]byte(raw), &got))
	assert.Len(t, got.Lines, 2)
	assert.True(t, mr.TTL("cart:"+cart.UserID) > 0)
}

func TestCartRepository_Delete(t *testing.T) {
	repo, mr := setupCartRepo(t)

	cart := sampleCart()
	require.NoError(t, repo.Save(context.Background(), cart))
	require.NoError(t, repo.Delete(context.Background(), cart.UserID))

	assert.False(t, mr.Exists("cart:"+cart.UserID))

	// Deleting an absent cart is fine.
	assert.NoError(t, repo.Delete(context.Background(), cart.UserID))
}
