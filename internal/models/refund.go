package models

import (
	"database/sql/driver"
	"time"
)

type ReturnStatus string

const (
	ReturnPending  ReturnStatus = "pending"
	ReturnApproved ReturnStatus = "approved"
	ReturnRejected ReturnStatus = "rejected"
)

type ReturnItem struct {
	ProductID int64  `json:"productId" binding:"required,gt=0"`
	Quantity  int    `json:"quantity" binding:"required,min=1"`
	Reason    string `json:"reason" binding:"required,min=3,max=300"`
}

type ReturnItems []ReturnItem

func (r *ReturnItems) Scan(src interface{}) error { return scanJSON(src, r) }
func (r ReturnItems) Value() (driver.Value, error) { return valueJSON(r) }

// ReturnRequest is raised by a customer against a completed order.
type ReturnRequest struct {
	ID        int64        `json:"id" db:"id"`
	OrderRef  string       `json:"orderRef" db:"order_ref"`
	UserID    int64        `json:"userId" db:"user_id"`
	Reason    string       `json:"reason" db:"reason"`
	Items     ReturnItems  `json:"items" db:"items"`
	Status    ReturnStatus `json:"status" db:"status"`
	CreatedAt time.Time    `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time    `json:"updatedAt" db:"updated_at"`
}
