package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Sale is the persisted header. Total is provisional at insert time and
// recomputed from the persisted lines before the transaction commits.
type Sale struct {
	ID         int64
	MemberID   int64
	MemberName string
	OccurredAt time.Time
	Total      decimal.Decimal
	Lines      []SaleLine
}

type SaleLine struct {
	ProductID   int64
	ProductName string
	Quantity    int64
	UnitPrice   decimal.Decimal
	Subtotal    decimal.Decimal
}

// SaleFromCart builds the sale a commit will persist. The total carried
// here is the cart's provisional one; storage recomputes the
// authoritative value from the inserted lines.
func SaleFromCart(c Cart, memberID int64, at time.Time) Sale {
	lines := make([]SaleLine, 0, len(c.Lines))
	for _, l := range c.Lines {
		lines = append(lines, SaleLine{
			ProductID:   l.ProductID,
			ProductName: l.Name,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			Subtotal:    l.Subtotal,
		})
	}
	return Sale{
		MemberID:   memberID,
		OccurredAt: at,
		Total:      c.Total(),
		Lines:      lines,
	}
}
