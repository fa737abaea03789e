package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"khushin_back_end/internal/models"
)

const cartLineSelect = `
	SELECT c.id, c.user_id, c.product_id, c.quantity, c.is_gift, c.gift_message, c.created_at, c.updated_at,
	       p.id AS "product.id", p.name AS "product.name", p.description AS "product.description",
	       p.price AS "product.price", p.images AS "product.images", p.customizable AS "product.customizable",
	       p.features AS "product.features", p.category AS "product.category", p.created_at AS "product.created_at"
	FROM cart_items c
	JOIN products p ON p.id = c.product_id`

const cartItemColumns = `id, user_id, product_id, quantity, is_gift, gift_message, created_at, updated_at`

// GetCart returns the user's cart lines joined with their products, oldest first.
func (s *Storage) GetCart(ctx context.Context, userID int64) ([]models.CartLine, error) {
	lines := []models.CartLine{}
	if err := s.db.SelectContext(ctx, &lines, cartLineSelect+` WHERE c.user_id = $1 ORDER BY c.id`, userID); err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}
	return lines, nil
}

// AddCartItem inserts a line or merges the quantity into the existing one.
// The merge is refused with ErrQuantityLimit when it would exceed the line maximum.
func (s *Storage) AddCartItem(ctx context.Context, item models.CartItem) (*models.CartItem, error) {
	var out models.CartItem
	err := s.db.GetContext(ctx, &out, `
		INSERT INTO cart_items (user_id, product_id, quantity, is_gift, gift_message)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, product_id) DO UPDATE
		SET quantity = cart_items.quantity + EXCLUDED.quantity,
		    is_gift = cart_items.is_gift OR EXCLUDED.is_gift,
		    gift_message = COALESCE(EXCLUDED.gift_message, cart_items.gift_message),
		    updated_at = NOW()
		WHERE cart_items.quantity + EXCLUDED.quantity <= $6
		RETURNING `+cartItemColumns,
		item.UserID, item.ProductID, item.Quantity, item.IsGift, item.GiftMessage, models.MaxLineQuantity)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrQuantityLimit
	}
	if err != nil {
		return nil, fmt.Errorf("add cart item: %w", translate(err))
	}
	return &out, nil
}

func (s *Storage) UpdateCartQuantity(ctx context.Context, userID, productID int64, quantity int) (*models.CartItem, error) {
	var out models.CartItem
	err := s.db.GetContext(ctx, &out, `
		UPDATE cart_items SET quantity = $3, updated_at = NOW()
		WHERE user_id = $1 AND product_id = $2
		RETURNING `+cartItemColumns,
		userID, productID, quantity)
	if err != nil {
		return nil, translate(err)
	}
	return &out, nil
}

func (s *Storage) UpdateCartGift(ctx context.Context, userID, productID int64, isGift bool, message *string) (*models.CartItem, error) {
	if !isGift {
		message = nil
	}
	var out models.CartItem
	err := s.db.GetContext(ctx, &out, `
		UPDATE cart_items SET is_gift = $3, gift_message = $4, updated_at = NOW()
		WHERE user_id = $1 AND product_id = $2
		RETURNING `+cartItemColumns,
		userID, productID, isGift, message)
	if err != nil {
		return nil, translate(err)
	}
	return &out, nil
}

func (s *Storage) RemoveCartItem(ctx context.Context, userID, productID int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = $1 AND product_id = $2`, userID, productID)
	if err != nil {
		return fmt.Errorf("remove cart item: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Storage) ClearCart(ctx context.Context, userID int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}
