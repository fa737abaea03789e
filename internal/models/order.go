package models

import (
	"database/sql/driver"
	"time"
)

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderCompleted OrderStatus = "completed"
	OrderFailed    OrderStatus = "failed"
)

// OrderItem is a point-in-time copy of a purchased product.
type OrderItem struct {
	ProductID int64  `json:"productId"`
	Quantity  int    `json:"quantity"`
	Price     int64  `json:"price"`
	Name      string `json:"name"`
	Image     string `json:"image,omitempty"`
	IsGift    bool   `json:"isGift,omitempty"`
}

type OrderItems []OrderItem

func (o *OrderItems) Scan(src interface{}) error { return scanJSON(src, o) }
func (o OrderItems) Value() (driver.Value, error) { return valueJSON(o) }

// ShippingDetails is the address snapshot stored on the order.
type ShippingDetails struct {
	FullName     string `json:"fullName" binding:"required,max=120"`
	Email        string `json:"email" binding:"required,email"`
	Phone        string `json:"phone" binding:"required,min=7,max=20"`
	Address      string `json:"address" binding:"required,max=300"`
	City         string `json:"city" binding:"required,max=80"`
	State        string `json:"state" binding:"required,max=80"`
	PostalCode   string `json:"postalCode" binding:"required,max=12"`
	Country      string `json:"country" binding:"omitempty,max=80"`
	DeliveryDate string `json:"deliveryDate,omitempty" binding:"omitempty,datetime=2006-01-02"`
}

func (s *ShippingDetails) Scan(src interface{}) error { return scanJSON(src, s) }
func (s ShippingDetails) Value() (driver.Value, error) { return valueJSON(s) }

type Order struct {
	ID                int64           `json:"id" db:"id"`
	OrderRef          string          `json:"orderRef" db:"order_ref"`
	UserID            int64           `json:"userId" db:"user_id"`
	Status            OrderStatus     `json:"status" db:"status"`
	Items             OrderItems      `json:"items" db:"items"`
	Shipping          ShippingDetails `json:"shipping" db:"shipping"`
	Subtotal          int64           `json:"subtotal" db:"subtotal"`
	ShippingCost      int64           `json:"shippingCost" db:"shipping_cost"`
	Total             int64           `json:"total" db:"total"`
	PaymentMethod     *string         `json:"paymentMethod,omitempty" db:"payment_method"`
	TrackingNumber    *string         `json:"trackingNumber,omitempty" db:"tracking_number"`
	Carrier           *string         `json:"carrier,omitempty" db:"carrier"`
	EstimatedDelivery *time.Time      `json:"estimatedDelivery,omitempty" db:"estimated_delivery"`
	IdempotencyKey    *string         `json:"-" db:"idempotency_key"`
	CreatedAt         time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt         time.Time       `json:"updatedAt" db:"updated_at"`
}
