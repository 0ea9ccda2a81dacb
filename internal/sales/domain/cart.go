package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductSnapshot is the product as read at selection time. Price and
// stock can go stale before commit; the transaction engine is the
// authority, the cart check only rejects obviously invalid input.
type ProductSnapshot struct {
	ID    int64
	Name  string
	Price decimal.Decimal
	Stock int64
}

// CartLine stages one product before commit. Subtotal is rounded to
// 2 decimals exactly once, when the line is (re)computed.
type CartLine struct {
	ProductID int64
	Name      string
	UnitPrice decimal.Decimal
	Quantity  int64
	Subtotal  decimal.Decimal
}

// Cart is the session-owned staging list. It is a value: operations
// return the updated cart and never touch storage. One line per
// product; adding the same product again merges quantities.
type Cart struct {
	ID        string
	CreatedAt time.Time
	Lines     []CartLine
}

func NewCart() Cart {
	return Cart{
		ID:        uuid.NewString(),
		CreatedAt: time.Now(),
	}
}

func lineSubtotal(price decimal.Decimal, qty int64) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(qty)).Round(2)
}

// AddOrMerge appends a line for the product, or merges quantities if it
// is already staged. The merged quantity is checked against the
// snapshot's stock; exceeding it fails with InsufficientStockError and
// leaves the cart unchanged.
func (c Cart) AddOrMerge(p ProductSnapshot, qty int64) (Cart, error) {
	if qty <= 0 {
		return c, ErrInvalidQuantity
	}

	lines := make([]CartLine, len(c.Lines))
	copy(lines, c.Lines)

	for i, l := range lines {
		if l.ProductID != p.ID {
			continue
		}
		merged := l.Quantity + qty
		if merged > p.Stock {
			return c, &InsufficientStockError{
				ProductID: p.ID,
				Name:      p.Name,
				Requested: merged,
				Available: p.Stock,
			}
		}
		lines[i].Quantity = merged
		lines[i].Subtotal = lineSubtotal(l.UnitPrice, merged)
		c.Lines = lines
		return c, nil
	}

	if qty > p.Stock {
		return c, &InsufficientStockError{
			ProductID: p.ID,
			Name:      p.Name,
			Requested: qty,
			Available: p.Stock,
		}
	}

	c.Lines = append(lines, CartLine{
		ProductID: p.ID,
		Name:      p.Name,
		UnitPrice: p.Price,
		Quantity:  qty,
		Subtotal:  lineSubtotal(p.Price, qty),
	})
	return c, nil
}

// Remove drops one line by position.
func (c Cart) Remove(i int) (Cart, error) {
	if i < 0 || i >= len(c.Lines) {
		return c, ErrLineIndexOutOfRange
	}
	lines := make([]CartLine, 0, len(c.Lines)-1)
	lines = append(lines, c.Lines[:i]...)
	lines = append(lines, c.Lines[i+1:]...)
	c.Lines = lines
	return c, nil
}

// Clear empties the cart unconditionally.
func (c Cart) Clear() Cart {
	c.Lines = nil
	return c
}

// Total sums the already-rounded line subtotals; they are never
// re-rounded.
func (c Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.Lines {
		total = total.Add(l.Subtotal)
	}
	return total
}
