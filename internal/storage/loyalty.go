package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"khushin_back_end/internal/models"
	"khushin_back_end/internal/order"
)

// ReferralBonus is credited to both sides of a redeemed referral.
const ReferralBonus int64 = 250

var (
	ErrSelfReferral    = errors.New("cannot redeem your own referral code")
	ErrAlreadyReferred = errors.New("account already redeemed a referral")
)

// GetLoyaltyAccount returns the user's balance. Users without an account have zero points.
func (s *Storage) GetLoyaltyAccount(ctx context.Context, userID int64) (*models.LoyaltyAccount, error) {
	var acct models.LoyaltyAccount
	err := s.db.GetContext(ctx, &acct, `SELECT user_id, points, updated_at FROM loyalty_accounts WHERE user_id = $1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		acct = models.LoyaltyAccount{UserID: userID}
	} else if err != nil {
		return nil, fmt.Errorf("get loyalty account: %w", err)
	}
	acct.Tier = order.LoyaltyTier(acct.Points)
	return &acct, nil
}

func creditPoints(ctx context.Context, tx *sqlx.Tx, userID, points int64, orderRef, reason string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO loyalty_accounts (user_id, points, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id) DO UPDATE
		SET points = loyalty_accounts.points + EXCLUDED.points, updated_at = NOW()`,
		userID, points)
	if err != nil {
		return fmt.Errorf("credit loyalty points: %w", err)
	}
	var ref *string
	if orderRef != "" {
		ref = &orderRef
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO loyalty_transactions (user_id, order_ref, points, reason)
		VALUES ($1, $2, $3, $4)`,
		userID, ref, points, reason)
	if err != nil {
		return fmt.Errorf("record loyalty transaction: %w", err)
	}
	return nil
}

const referralColumns = `id, referrer_id, code, referred_user_id, created_at, redeemed_at`

// GetOrCreateReferral returns the user's open referral code, issuing one if needed.
// Codes are single use so a fresh one is issued after each redemption.
func (s *Storage) GetOrCreateReferral(ctx context.Context, userID int64) (*models.Referral, error) {
	var ref models.Referral
	err := s.db.GetContext(ctx, &ref, `
		SELECT `+referralColumns+` FROM referrals
		WHERE referrer_id = $1 AND redeemed_at IS NULL
		ORDER BY id DESC LIMIT 1`, userID)
	if err == nil {
		return &ref, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get referral: %w", err)
	}
	err = s.db.GetContext(ctx, &ref, `
		INSERT INTO referrals (referrer_id, code) VALUES ($1, $2)
		RETURNING `+referralColumns,
		userID, order.NewReferralCode())
	if err != nil {
		return nil, fmt.Errorf("create referral: %w", translate(err))
	}
	return &ref, nil
}

// RedeemReferral marks the code as used by userID and credits both accounts.
func (s *Storage) RedeemReferral(ctx context.Context, code string, userID int64) (*models.Referral, error) {
	var out models.Referral
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		var already bool
		if err := tx.GetContext(ctx, &already, `SELECT EXISTS (SELECT 1 FROM referrals WHERE referred_user_id = $1)`, userID); err != nil {
			return fmt.Errorf("check referral: %w", err)
		}
		if already {
			return ErrAlreadyReferred
		}
		if err := tx.GetContext(ctx, &out, `SELECT `+referralColumns+` FROM referrals WHERE code = $1 FOR UPDATE`, code); err != nil {
			return translate(err)
		}
		if out.ReferrerID == userID {
			return ErrSelfReferral
		}
		if out.RedeemedAt != nil {
			return ErrConflict
		}
		err := tx.GetContext(ctx, &out, `
			UPDATE referrals SET referred_user_id = $2, redeemed_at = NOW()
			WHERE id = $1
			RETURNING `+referralColumns, out.ID, userID)
		if err != nil {
			return fmt.Errorf("redeem referral: %w", err)
		}
		if err := creditPoints(ctx, tx, out.ReferrerID, ReferralBonus, "", "referral"); err != nil {
			return err
		}
		return creditPoints(ctx, tx, userID, ReferralBonus, "", "referral_welcome")
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}
