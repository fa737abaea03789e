package models

import "time"

// Cart line bounds enforced by the API.
const (
	MinLineQuantity = 1
	MaxLineQuantity = 10
)

type CartItem struct {
	ID          int64     `json:"id" db:"id"`
	UserID      int64     `json:"userId" db:"user_id"`
	ProductID   int64     `json:"productId" db:"product_id"`
	Quantity    int       `json:"quantity" db:"quantity"`
	IsGift      bool      `json:"isGift" db:"is_gift"`
	GiftMessage *string   `json:"giftMessage,omitempty" db:"gift_message"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}

// CartLine is a cart item joined with its product.
type CartLine struct {
	CartItem
	Product Product `json:"product" db:"product"`
}

// CartTotal sums price × quantity over the lines.
func CartTotal(lines []CartLine) int64 {
	var total int64
	for _, l := range lines {
		total += l.Product.Price * int64(l.Quantity)
	}
	return total
}
