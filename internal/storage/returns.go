package storage

import (
	"context"
	"fmt"

	"khushin_back_end/internal/models"
)

const returnColumns = `id, order_ref, user_id, reason, items, status, created_at, updated_at`

// CreateReturn stores a pending return request. A second open request for the same
// order violates a partial unique index and yields ErrConflict.
func (s *Storage) CreateReturn(ctx context.Context, r models.ReturnRequest) (*models.ReturnRequest, error) {
	var out models.ReturnRequest
	err := s.db.GetContext(ctx, &out, `
		INSERT INTO return_requests (order_ref, user_id, reason, items, status)
		VALUES ($1, $2, $3, $4, 'pending')
		RETURNING `+returnColumns,
		r.OrderRef, r.UserID, r.Reason, r.Items)
	if err != nil {
		return nil, fmt.Errorf("create return: %w", translate(err))
	}
	return &out, nil
}

func (s *Storage) ListReturns(ctx context.Context, userID int64) ([]models.ReturnRequest, error) {
	returns := []models.ReturnRequest{}
	err := s.db.SelectContext(ctx, &returns, `SELECT `+returnColumns+` FROM return_requests WHERE user_id = $1 ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list returns: %w", err)
	}
	return returns, nil
}

func (s *Storage) HasOpenReturn(ctx context.Context, orderRef string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM return_requests WHERE order_ref = $1 AND status = 'pending')`, orderRef)
	if err != nil {
		return false, fmt.Errorf("check open return: %w", err)
	}
	return exists, nil
}
