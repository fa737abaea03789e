package order

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"khushin_back_end/internal/models"
)

func TestTransitions(t *testing.T) {
	all := []models.OrderStatus{models.OrderPending, models.OrderCompleted, models.OrderFailed}

	for _, from := range all {
		for _, to := range all {
			allowed := from == models.OrderPending && to != models.OrderPending
			assert.Equal(t, allowed, CanTransition(from, to), "%s -> %s", from, to)
		}
	}

	next, err := Transition(models.OrderPending, models.OrderCompleted)
	require.NoError(t, err)
	assert.Equal(t, models.OrderCompleted, next)

	_, err = Transition(models.OrderCompleted, models.OrderPending)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = Transition(models.OrderFailed, models.OrderCompleted)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestIsTerminal(t *testing.T) {
	assert.False(t, IsTerminal(models.OrderPending))
	assert.True(t, IsTerminal(models.OrderCompleted))
	assert.True(t, IsTerminal(models.OrderFailed))
}

func TestParseStatus(t *testing.T) {
	st, err := ParseStatus("failed")
	require.NoError(t, err)
	assert.Equal(t, models.OrderFailed, st)

	_, err = ParseStatus("refunded")
	assert.Error(t, err)
}

func TestShippingCost(t *testing.T) {
	assert.Equal(t, int64(599), ShippingCost(0))
	assert.Equal(t, int64(599), ShippingCost(4999))
	assert.Equal(t, int64(0), ShippingCost(5000))
	assert.Equal(t, int64(0), ShippingCost(25000))
}

func TestQuoteScenario(t *testing.T) {
	items := []models.OrderItem{
		{ProductID: 1, Name: "A", Price: 10000, Quantity: 2},
		{ProductID: 2, Name: "B", Price: 5000, Quantity: 1},
	}

	q := QuoteItems(items)
	assert.Equal(t, int64(25000), q.Subtotal)
	assert.Equal(t, int64(0), q.Shipping)
	assert.Equal(t, int64(25000), q.Total)
	assert.True(t, q.IsFree)
	assert.Equal(t, "₹250.00", FormatINR(q.Subtotal))
	assert.Equal(t, "₹250.00", FormatINR(q.Total))
}

func TestQuoteBelowThreshold(t *testing.T) {
	q := QuoteSubtotal(1200)
	assert.Equal(t, int64(599), q.Shipping)
	assert.Equal(t, int64(1799), q.Total)
	assert.False(t, q.IsFree)
}

func TestFormatINR(t *testing.T) {
	assert.Equal(t, "₹0.00", FormatINR(0))
	assert.Equal(t, "₹5.99", FormatINR(599))
	assert.Equal(t, "₹1234.05", FormatINR(123405))
}

func TestLoyalty(t *testing.T) {
	assert.Equal(t, int64(0), LoyaltyPoints(9999))
	assert.Equal(t, int64(2), LoyaltyPoints(25000))
	assert.Equal(t, "silver", LoyaltyTier(10))
	assert.Equal(t, "gold", LoyaltyTier(1000))
	assert.Equal(t, "platinum", LoyaltyTier(7000))
}

func TestRefs(t *testing.T) {
	ref := NewOrderRef()
	assert.Regexp(t, regexp.MustCompile(`^ORD-[0-9A-Z]+-[A-Z2-9]{6}$`), ref)
	assert.NotEqual(t, ref, NewOrderRef())
	assert.Regexp(t, regexp.MustCompile(`^KH[A-Z2-9]{8}$`), NewReferralCode())
}
