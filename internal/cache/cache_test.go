package cache

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"khushin_back_end/internal/models"
)

type fakeSource struct {
	products map[int64]models.Product
	users    map[int64]models.User
	calls    int
}

var errMissing = errors.New("missing")

func (f *fakeSource) GetProduct(_ context.Context, id int64) (*models.Product, error) {
	f.calls++
	p, ok := f.products[id]
	if !ok {
		return nil, errMissing
	}
	return &p, nil
}

func (f *fakeSource) ListProducts(context.Context) ([]models.Product, error) {
	f.calls++
	out := []models.Product{}
	for _, p := range f.products {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeSource) GetUser(_ context.Context, id int64) (*models.User, error) {
	f.calls++
	u, ok := f.users[id]
	if !ok {
		return nil, errMissing
	}
	return &u, nil
}

func setup(t *testing.T) (*redis.Client, *miniredis.Miniredis, *fakeSource) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	src := &fakeSource{
		products: map[int64]models.Product{1: {ID: 1, Name: "Pashmina Shawl", Price: 1899900}},
		users:    map[int64]models.User{7: {ID: 7, Username: "asha", Password: "hash.salt"}},
	}
	return client, mr, src
}

func TestProductReadThrough(t *testing.T) {
	client, mr, src := setup(t)
	products := NewProducts(client, src)
	ctx := context.Background()

	p, err := products.GetProduct(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Pashmina Shawl", p.Name)
	assert.True(t, mr.Exists("product:1"))

	p, err = products.GetProduct(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1899900), p.Price)
	assert.Equal(t, 1, src.calls)

	products.Invalidate(ctx, 1)
	assert.False(t, mr.Exists("product:1"))
	_, err = products.GetProduct(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, src.calls)
}

func TestProductMissIsNotCached(t *testing.T) {
	client, mr, src := setup(t)
	_, err := NewProducts(client, src).GetProduct(context.Background(), 99)
	assert.ErrorIs(t, err, errMissing)
	assert.False(t, mr.Exists("product:99"))
}

func TestListProductsCached(t *testing.T) {
	client, _, src := setup(t)
	products := NewProducts(client, src)
	for i := 0; i < 3; i++ {
		list, err := products.ListProducts(context.Background())
		require.NoError(t, err)
		assert.Len(t, list, 1)
	}
	assert.Equal(t, 1, src.calls)
}

func TestUserCacheOmitsPassword(t *testing.T) {
	client, mr, src := setup(t)
	users := NewUsers(client, src)

	_, err := users.GetUser(context.Background(), 7)
	require.NoError(t, err)
	raw, err := mr.Get("user:7")
	require.NoError(t, err)
	assert.NotContains(t, raw, "hash.salt")

	cached, err := users.GetUser(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "asha", cached.Username)
	assert.Equal(t, 1, src.calls)
}

func TestCacheDownFallsThrough(t *testing.T) {
	client, mr, src := setup(t)
	mr.Close()
	p, err := NewProducts(client, src).GetProduct(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Pashmina Shawl", p.Name)
}
