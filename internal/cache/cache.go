// Package cache keeps read-through copies of hot rows in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"khushin_back_end/internal/models"
)

const (
	UserCacheTTL    = 5 * time.Minute
	ProductCacheTTL = 10 * time.Minute

	productListKey = "products:all"
)

type ProductSource interface {
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
	ListProducts(ctx context.Context) ([]models.Product, error)
}

type UserSource interface {
	GetUser(ctx context.Context, id int64) (*models.User, error)
}

// Products caches catalogue reads. Redis errors fall through to the source.
type Products struct {
	client *redis.Client
	src    ProductSource
}

func NewProducts(client *redis.Client, src ProductSource) *Products {
	return &Products{client: client, src: src}
}

func productKey(id int64) string { return "product:" + strconv.FormatInt(id, 10) }

func (p *Products) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	if get(ctx, p.client, productKey(id), &product) {
		return &product, nil
	}
	fresh, err := p.src.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	set(ctx, p.client, productKey(id), fresh, ProductCacheTTL)
	return fresh, nil
}

func (p *Products) ListProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	if get(ctx, p.client, productListKey, &products) {
		return products, nil
	}
	fresh, err := p.src.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	set(ctx, p.client, productListKey, fresh, ProductCacheTTL)
	return fresh, nil
}

// Invalidate drops the listed products and the catalogue list.
func (p *Products) Invalidate(ctx context.Context, ids ...int64) {
	keys := []string{productListKey}
	for _, id := range ids {
		keys = append(keys, productKey(id))
	}
	p.client.Del(ctx, keys...)
}

// Users caches the public profile. The password hash is never cached, so callers
// that verify credentials must read from storage.
type Users struct {
	client *redis.Client
	src    UserSource
}

func NewUsers(client *redis.Client, src UserSource) *Users {
	return &Users{client: client, src: src}
}

func userKey(id int64) string { return "user:" + strconv.FormatInt(id, 10) }

func (u *Users) GetUser(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	if get(ctx, u.client, userKey(id), &user) {
		return &user, nil
	}
	fresh, err := u.src.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	set(ctx, u.client, userKey(id), fresh, UserCacheTTL)
	return fresh, nil
}

func (u *Users) Invalidate(ctx context.Context, id int64) {
	u.client.Del(ctx, userKey(id))
}

func get(ctx context.Context, client *redis.Client, key string, dest interface{}) bool {
	data, err := client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.WithError(err).WithField("key", key).Warn("⚠️  Cache read failed")
		}
		return false
	}
	return json.Unmarshal(data, dest) == nil
}

func set(ctx context.Context, client *redis.Client, key string, v interface{}, ttl time.Duration) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := client.Set(ctx, key, data, ttl).Err(); err != nil {
		log.WithError(err).WithField("key", key).Warn("⚠️  Cache write failed")
	}
}
