package models

// Request payloads bound by the handlers. Validation runs through gin's binding tags.

type RegisterRequest struct {
	Username  string  `json:"username" binding:"required,min=3,max=50"`
	Password  string  `json:"password" binding:"required,min=6,max=128"`
	Email     *string `json:"email" binding:"omitempty,email"`
	FirstName *string `json:"firstName" binding:"omitempty,max=80"`
	LastName  *string `json:"lastName" binding:"omitempty,max=80"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type ConvertGuestRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	Password string `json:"password" binding:"required,min=6,max=128"`
	Email    string `json:"email" binding:"required,email"`
}

type AddToCartRequest struct {
	ProductID   int64   `json:"productId" binding:"required,gt=0"`
	Quantity    int     `json:"quantity" binding:"omitempty,min=1,max=10"`
	IsGift      bool    `json:"isGift"`
	GiftMessage *string `json:"giftMessage" binding:"omitempty,max=250"`
}

type UpdateQuantityRequest struct {
	Quantity int `json:"quantity" binding:"required,min=1,max=10"`
}

type UpdateGiftRequest struct {
	IsGift      *bool   `json:"isGift" binding:"required"`
	GiftMessage *string `json:"giftMessage" binding:"omitempty,max=250"`
}

type CheckoutItem struct {
	ProductID int64 `json:"productId" binding:"required,gt=0"`
	Quantity  int   `json:"quantity" binding:"required,min=1,max=10"`
}

type CheckoutRequest struct {
	Shipping ShippingDetails `json:"shipping"`
	Items    []CheckoutItem  `json:"items" binding:"required,min=1,dive"`
	Total    int64           `json:"total" binding:"required,gt=0"`
}

type PaymentStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=completed failed"`
	Method string `json:"method" binding:"omitempty,max=40"`
}

type CreateReturnRequest struct {
	Reason string       `json:"reason" binding:"required,min=5,max=500"`
	Items  []ReturnItem `json:"items" binding:"required,min=1,dive"`
}

type RedeemReferralRequest struct {
	Code string `json:"code" binding:"required,min=4,max=32"`
}
