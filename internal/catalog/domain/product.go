package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID        int64
	Name      string
	Price     decimal.Decimal
	Stock     int64
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
