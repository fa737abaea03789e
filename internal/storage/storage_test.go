package storage

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"khushin_back_end/internal/models"
)

func newMock(t *testing.T) (*Storage, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(sqlx.NewDb(db, "postgres")), mock
}

var cartItemCols = []string{"id", "user_id", "product_id", "quantity", "is_gift", "gift_message", "created_at", "updated_at"}

var orderCols = []string{"id", "order_ref", "user_id", "status", "items", "shipping", "subtotal", "shipping_cost", "total",
	"payment_method", "tracking_number", "carrier", "estimated_delivery", "idempotency_key", "created_at", "updated_at"}

func orderRow(status string, total int64) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(orderCols).AddRow(
		int64(1), "ORD-ABC-XYZ234", int64(7), status,
		[]byte(`[{"productId":1,"quantity":1,"price":25000,"name":"Silk Scarf"}]`),
		[]byte(`{"fullName":"Asha Rao","email":"asha@example.com","phone":"9999999999","address":"1 MG Road","city":"Pune","state":"MH","postalCode":"411001"}`),
		total, int64(0), total, nil, nil, nil, nil, "key-1", now, now,
	)
}

func TestAddCartItemInsertsOrMerges(t *testing.T) {
	s, mock := newMock(t)
	now := time.Now()
	mock.ExpectQuery("INSERT INTO cart_items").
		WithArgs(int64(7), int64(3), 2, false, nil, models.MaxLineQuantity).
		WillReturnRows(sqlmock.NewRows(cartItemCols).AddRow(int64(1), int64(7), int64(3), 5, false, nil, now, now))

	item, err := s.AddCartItem(context.Background(), models.CartItem{UserID: 7, ProductID: 3, Quantity: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, item.Quantity)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddCartItemRefusesMergePastLimit(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery("INSERT INTO cart_items").WillReturnRows(sqlmock.NewRows(cartItemCols))

	_, err := s.AddCartItem(context.Background(), models.CartItem{UserID: 7, ProductID: 3, Quantity: 9})
	assert.ErrorIs(t, err, ErrQuantityLimit)
}

func TestAddCartItemUnknownProduct(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery("INSERT INTO cart_items").
		WillReturnError(&pq.Error{Code: "23503", Constraint: "cart_items_product_id_fkey"})

	_, err := s.AddCartItem(context.Background(), models.CartItem{UserID: 7, ProductID: 999, Quantity: 1})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetCartJoinsProducts(t *testing.T) {
	s, mock := newMock(t)
	now := time.Now()
	cols := append(append([]string{}, cartItemCols...),
		"product.id", "product.name", "product.description", "product.price", "product.images",
		"product.customizable", "product.features", "product.category", "product.created_at")
	mock.ExpectQuery("FROM cart_items c").WithArgs(int64(7)).WillReturnRows(
		sqlmock.NewRows(cols).
			AddRow(int64(1), int64(7), int64(3), 2, true, "Happy birthday", now, now,
				int64(3), "Silk Scarf", "Hand woven", int64(12500), []byte(`{/img/scarf.jpg}`),
				true, []byte(`{"material":"silk"}`), "accessories", now))

	lines, err := s.GetCart(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, "Silk Scarf", lines[0].Product.Name)
	assert.Equal(t, []string{"/img/scarf.jpg"}, []string(lines[0].Product.Images))
	require.NotNil(t, lines[0].GiftMessage)
	assert.Equal(t, "Happy birthday", *lines[0].GiftMessage)
	assert.Equal(t, int64(25000), models.CartTotal(lines))
}

func TestRemoveCartItemMissing(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectExec("DELETE FROM cart_items").WithArgs(int64(7), int64(3)).WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, s.RemoveCartItem(context.Background(), 7, 3), ErrNotFound)
}

func TestCreateUserDuplicateUsername(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery("INSERT INTO users").WillReturnError(&pq.Error{Code: "23505", Constraint: "users_username_key"})

	_, err := s.CreateUser(context.Background(), models.User{Username: "asha", Password: "x"})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestCreateOrderClearsCart(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO orders").WillReturnRows(orderRow("pending", 25000))
	mock.ExpectExec("DELETE FROM cart_items").WithArgs(int64(7)).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	key := "key-1"
	o, created, err := s.CreateOrder(context.Background(), models.Order{
		OrderRef: "ORD-ABC-XYZ234", UserID: 7, Status: models.OrderPending, IdempotencyKey: &key,
	})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, models.OrderPending, o.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOrderRollsBackWhenCartClearFails(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO orders").WillReturnRows(orderRow("pending", 25000))
	mock.ExpectExec("DELETE FROM cart_items").WillReturnError(assert.AnError)
	mock.ExpectRollback()

	_, _, err := s.CreateOrder(context.Background(), models.Order{OrderRef: "ORD-ABC-XYZ234", UserID: 7, Status: models.OrderPending})
	assert.ErrorIs(t, err, assert.AnError)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOrderReplaysIdempotencyKey(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO orders").WillReturnRows(sqlmock.NewRows(orderCols))
	mock.ExpectQuery("WHERE idempotency_key").WithArgs("key-1").WillReturnRows(orderRow("pending", 25000))
	mock.ExpectCommit()

	key := "key-1"
	o, created, err := s.CreateOrder(context.Background(), models.Order{
		OrderRef: "ORD-NEW-AAAAAA", UserID: 7, Status: models.OrderPending, IdempotencyKey: &key,
	})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "ORD-ABC-XYZ234", o.OrderRef)
	assert.Equal(t, "Asha Rao", o.Shipping.FullName)
	require.Len(t, o.Items, 1)
	assert.Equal(t, int64(25000), o.Items[0].Price)
}

func TestFinalizePaymentCompletedCreditsPoints(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE orders").WillReturnRows(orderRow("completed", 250000))
	mock.ExpectExec("INSERT INTO loyalty_accounts").WithArgs(int64(7), int64(25)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO loyalty_transactions").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	o, err := s.FinalizePayment(context.Background(), "ORD-ABC-XYZ234", models.OrderCompleted, "upi")
	require.NoError(t, err)
	assert.Equal(t, models.OrderCompleted, o.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFinalizePaymentFailedCreditsNothing(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE orders").WillReturnRows(orderRow("failed", 25000))
	mock.ExpectCommit()

	o, err := s.FinalizePayment(context.Background(), "ORD-ABC-XYZ234", models.OrderFailed, "")
	require.NoError(t, err)
	assert.Equal(t, models.OrderFailed, o.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFinalizePaymentNotPending(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE orders").WillReturnRows(sqlmock.NewRows(orderCols))
	mock.ExpectRollback()

	_, err := s.FinalizePayment(context.Background(), "ORD-ABC-XYZ234", models.OrderCompleted, "upi")
	assert.ErrorIs(t, err, ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFinalizePaymentRejectsPendingTarget(t *testing.T) {
	s, _ := newMock(t)
	_, err := s.FinalizePayment(context.Background(), "ORD-ABC-XYZ234", models.OrderPending, "")
	assert.Error(t, err)
}

func TestGetLoyaltyAccountDefaultsToZero(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery("FROM loyalty_accounts").WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "points", "updated_at"}))

	acct, err := s.GetLoyaltyAccount(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(0), acct.Points)
	assert.Equal(t, "silver", acct.Tier)
}

func TestRedeemReferralRejectsOwnCode(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery("referred_user_id = \\$1").WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery("FOR UPDATE").WithArgs("KHABCDEFGH").
		WillReturnRows(sqlmock.NewRows([]string{"id", "referrer_id", "code", "referred_user_id", "created_at", "redeemed_at"}).
			AddRow(int64(1), int64(7), "KHABCDEFGH", nil, time.Now(), nil))
	mock.ExpectRollback()

	_, err := s.RedeemReferral(context.Background(), "KHABCDEFGH", 7)
	assert.ErrorIs(t, err, ErrSelfReferral)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClearExpiredGuestCarts(t *testing.T) {
	s, mock := newMock(t)
	now := time.Now()
	mock.ExpectExec("DELETE FROM cart_items").WithArgs(now).WillReturnResult(sqlmock.NewResult(0, 4))

	n, err := s.ClearExpiredGuestCarts(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
}
