package storage

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"khushin_back_end/internal/models"
)

const productColumns = `id, name, description, price, images, customizable, features, category, created_at`

func (s *Storage) ListProducts(ctx context.Context) ([]models.Product, error) {
	products := []models.Product{}
	if err := s.db.SelectContext(ctx, &products, `SELECT `+productColumns+` FROM products ORDER BY id`); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

func (s *Storage) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	var p models.Product
	if err := s.db.GetContext(ctx, &p, `SELECT `+productColumns+` FROM products WHERE id = $1`, id); err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

// GetProductsByIDs returns the products keyed by id. Missing ids are absent from the map.
func (s *Storage) GetProductsByIDs(ctx context.Context, ids []int64) (map[int64]models.Product, error) {
	out := make(map[int64]models.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	query, args, err := sqlx.In(`SELECT `+productColumns+` FROM products WHERE id IN (?)`, ids)
	if err != nil {
		return nil, err
	}
	var products []models.Product
	if err := s.db.SelectContext(ctx, &products, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("get products: %w", err)
	}
	for _, p := range products {
		out[p.ID] = p
	}
	return out, nil
}

// SearchProducts is the SQL fallback used when no search index is configured.
func (s *Storage) SearchProducts(ctx context.Context, q string) ([]models.Product, error) {
	products := []models.Product{}
	pattern := "%" + q + "%"
	err := s.db.SelectContext(ctx, &products, `
		SELECT `+productColumns+` FROM products
		WHERE name ILIKE $1 OR description ILIKE $1 OR category ILIKE $1
		ORDER BY id`, pattern)
	if err != nil {
		return nil, fmt.Errorf("search products: %w", err)
	}
	return products, nil
}
