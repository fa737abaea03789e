package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"khushin_back_end/internal/models"
	"khushin_back_end/internal/order"
)

const orderColumns = `id, order_ref, user_id, status, items, shipping, subtotal, shipping_cost, total,
	payment_method, tracking_number, carrier, estimated_delivery, idempotency_key, created_at, updated_at`

// Estimated transit time stamped on an order once it is paid.
const deliveryWindow = 7 * 24 * time.Hour

// CreateOrder stores a pending order and empties the owner's cart in one transaction.
// When the idempotency key was already used the existing order is returned, created
// is false and the cart is left alone.
func (s *Storage) CreateOrder(ctx context.Context, o models.Order) (*models.Order, bool, error) {
	var out models.Order
	created := true
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		err := tx.GetContext(ctx, &out, `
			INSERT INTO orders (order_ref, user_id, status, items, shipping, subtotal, shipping_cost, total, idempotency_key)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (idempotency_key) DO NOTHING
			RETURNING `+orderColumns,
			o.OrderRef, o.UserID, o.Status, o.Items, o.Shipping, o.Subtotal, o.ShippingCost, o.Total, o.IdempotencyKey)
		if errors.Is(err, sql.ErrNoRows) && o.IdempotencyKey != nil {
			created = false
			return translate(tx.GetContext(ctx, &out, `SELECT `+orderColumns+` FROM orders WHERE idempotency_key = $1`, *o.IdempotencyKey))
		}
		if err != nil {
			return fmt.Errorf("create order: %w", translate(err))
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = $1`, o.UserID); err != nil {
			return fmt.Errorf("clear cart: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return &out, created, nil
}

func (s *Storage) GetOrderByRef(ctx context.Context, ref string) (*models.Order, error) {
	var o models.Order
	if err := s.db.GetContext(ctx, &o, `SELECT `+orderColumns+` FROM orders WHERE order_ref = $1`, ref); err != nil {
		return nil, translate(err)
	}
	return &o, nil
}

func (s *Storage) GetOrderByIdempotencyKey(ctx context.Context, key string) (*models.Order, error) {
	var o models.Order
	if err := s.db.GetContext(ctx, &o, `SELECT `+orderColumns+` FROM orders WHERE idempotency_key = $1`, key); err != nil {
		return nil, translate(err)
	}
	return &o, nil
}

// ListOrders returns the user's orders, newest first.
func (s *Storage) ListOrders(ctx context.Context, userID int64) ([]models.Order, error) {
	orders := []models.Order{}
	err := s.db.SelectContext(ctx, &orders, `SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

// FinalizePayment moves a pending order to its terminal status. A completed payment also
// credits loyalty points inside the same transaction.
// ErrConflict is returned when the order is no longer pending.
func (s *Storage) FinalizePayment(ctx context.Context, ref string, status models.OrderStatus, method string) (*models.Order, error) {
	if !order.IsTerminal(status) {
		return nil, order.ErrInvalidTransition
	}
	var methodArg *string
	if method != "" {
		methodArg = &method
	}

	var out models.Order
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		var estimated *time.Time
		if status == models.OrderCompleted {
			t := time.Now().Add(deliveryWindow)
			estimated = &t
		}
		err := tx.GetContext(ctx, &out, `
			UPDATE orders
			SET status = $2, payment_method = COALESCE($3, payment_method), estimated_delivery = $4, updated_at = NOW()
			WHERE order_ref = $1 AND status = 'pending'
			RETURNING `+orderColumns,
			ref, status, methodArg, estimated)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrConflict
		}
		if err != nil {
			return fmt.Errorf("update order status: %w", err)
		}
		if status != models.OrderCompleted {
			return nil
		}
		points := order.LoyaltyPoints(out.Total)
		if points == 0 {
			return nil
		}
		return creditPoints(ctx, tx, out.UserID, points, out.OrderRef, "purchase")
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}
