package storage

import (
	"context"
	"fmt"
	"time"

	"khushin_back_end/internal/models"
)

const userColumns = `id, username, password, email, first_name, last_name, is_guest, guest_expires_at, created_at`

func (s *Storage) CreateUser(ctx context.Context, u models.User) (*models.User, error) {
	var created models.User
	err := s.db.GetContext(ctx, &created, `
		INSERT INTO users (username, password, email, first_name, last_name, is_guest, guest_expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+userColumns,
		u.Username, u.Password, u.Email, u.FirstName, u.LastName, u.IsGuest, u.GuestExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", translate(err))
	}
	return &created, nil
}

func (s *Storage) GetUser(ctx context.Context, id int64) (*models.User, error) {
	var u models.User
	if err := s.db.GetContext(ctx, &u, `SELECT `+userColumns+` FROM users WHERE id = $1`, id); err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *Storage) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	if err := s.db.GetContext(ctx, &u, `SELECT `+userColumns+` FROM users WHERE username = $1`, username); err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

// ConvertGuest turns a guest account into a permanent one.
func (s *Storage) ConvertGuest(ctx context.Context, id int64, username, passwordHash, email string) (*models.User, error) {
	var u models.User
	err := s.db.GetContext(ctx, &u, `
		UPDATE users
		SET username = $2, password = $3, email = $4, is_guest = FALSE, guest_expires_at = NULL
		WHERE id = $1 AND is_guest
		RETURNING `+userColumns,
		id, username, passwordHash, email)
	if err != nil {
		return nil, fmt.Errorf("convert guest: %w", translate(err))
	}
	return &u, nil
}

// ClearExpiredGuestCarts empties the carts of guests whose account expired.
// Guest rows themselves are kept.
func (s *Storage) ClearExpiredGuestCarts(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM cart_items
		WHERE user_id IN (
			SELECT id FROM users WHERE is_guest AND guest_expires_at < $1
		)`, now)
	if err != nil {
		return 0, fmt.Errorf("clear expired guest carts: %w", err)
	}
	return res.RowsAffected()
}
