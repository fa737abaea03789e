package models

import (
	"time"

	"github.com/lib/pq"
)

// Product prices are integer paise.
type Product struct {
	ID           int64          `json:"id" db:"id"`
	Name         string         `json:"name" db:"name"`
	Description  string         `json:"description" db:"description"`
	Price        int64          `json:"price" db:"price"`
	Images       pq.StringArray `json:"images" db:"images"`
	Customizable bool           `json:"customizable" db:"customizable"`
	Features     RawJSON        `json:"features" db:"features"`
	Category     string         `json:"category" db:"category"`
	CreatedAt    time.Time      `json:"createdAt" db:"created_at"`
}
