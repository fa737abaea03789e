package order

import (
	"github.com/shopspring/decimal"

	"khushin_back_end/internal/models"
)

// Shipping rules. The threshold is compared against the cart subtotal in the
// same units the subtotal is stored in.
const (
	FreeShippingThreshold int64 = 5000
	FlatShippingCost      int64 = 599
)

// PointsPerUnit is the spend (in paise) that earns one loyalty point: ₹100.
const PointsPerUnit int64 = 10000

// Quote is the price breakdown of an order.
type Quote struct {
	Subtotal int64 `json:"subtotal"`
	Shipping int64 `json:"shipping"`
	Total    int64 `json:"total"`
	IsFree   bool  `json:"isFree"`
}

// ShippingCost returns the shipping fee for a subtotal.
func ShippingCost(subtotal int64) int64 {
	if subtotal >= FreeShippingThreshold {
		return 0
	}
	return FlatShippingCost
}

// QuoteSubtotal builds a quote from a subtotal.
func QuoteSubtotal(subtotal int64) Quote {
	shipping := ShippingCost(subtotal)
	return Quote{
		Subtotal: subtotal,
		Shipping: shipping,
		Total:    subtotal + shipping,
		IsFree:   shipping == 0,
	}
}

// QuoteItems prices an order snapshot.
func QuoteItems(items []models.OrderItem) Quote {
	var subtotal int64
	for _, it := range items {
		subtotal += it.Price * int64(it.Quantity)
	}
	return QuoteSubtotal(subtotal)
}

// FormatINR renders paise as rupees, e.g. 25000 -> "₹250.00".
func FormatINR(paise int64) string {
	return "₹" + decimal.New(paise, -2).StringFixed(2)
}

// LoyaltyPoints returns the points earned for an order total.
func LoyaltyPoints(total int64) int64 {
	if total <= 0 {
		return 0
	}
	return total / PointsPerUnit
}

// LoyaltyTier maps a points balance to a tier name.
func LoyaltyTier(points int64) string {
	switch {
	case points >= 5000:
		return "platinum"
	case points >= 1000:
		return "gold"
	default:
		return "silver"
	}
}
