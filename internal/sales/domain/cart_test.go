package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snap(id int64, name, price string, stock int64) ProductSnapshot {
	return ProductSnapshot{
		ID:    id,
		Name:  name,
		Price: decimal.RequireFromString(price),
		Stock: stock,
	}
}

func TestCart_AddThenMerge(t *testing.T) {
	water := snap(1, "Water 500ml", "2.50", 10)

	cart, err := NewCart().AddOrMerge(water, 2)
	require.NoError(t, err)
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, "5.00", cart.Lines[0].Subtotal.StringFixed(2))

	cart, err = cart.AddOrMerge(water, 3)
	require.NoError(t, err)
	require.Len(t, cart.Lines, 1, "same product must merge, not append")
	assert.EqualValues(t, 5, cart.Lines[0].Quantity)
	assert.Equal(t, "12.50", cart.Total().StringFixed(2))
}

func TestCart_MergeRejectsOverSnapshotStock(t *testing.T) {
	p := snap(7, "Protein Bar", "10.00", 5)

	cart, err := NewCart().AddOrMerge(p, 3)
	require.NoError(t, err)
	assert.Equal(t, "30.00", cart.Total().StringFixed(2))

	// 3 staged + 3 more = 6 > snapshot stock of 5.
	after, err := cart.AddOrMerge(p, 3)
	ise, ok := IsInsufficientStock(err)
	require.True(t, ok)
	assert.EqualValues(t, 7, ise.ProductID)
	assert.EqualValues(t, 6, ise.Requested)
	assert.EqualValues(t, 5, ise.Available)

	// Failed merge leaves the cart untouched.
	require.Len(t, after.Lines, 1)
	assert.EqualValues(t, 3, after.Lines[0].Quantity)
	assert.Equal(t, "30.00", after.Total().StringFixed(2))
}

func TestCart_AddRejectsOverSnapshotStock(t *testing.T) {
	p := snap(2, "Shaker", "18.00", 1)

	_, err := NewCart().AddOrMerge(p, 2)
	ise, ok := IsInsufficientStock(err)
	require.True(t, ok)
	assert.EqualValues(t, 2, ise.Requested)
	assert.EqualValues(t, 1, ise.Available)
}

func TestCart_AddRejectsNonPositiveQuantity(t *testing.T) {
	p := snap(3, "Towel", "12.00", 4)

	_, err := NewCart().AddOrMerge(p, 0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = NewCart().AddOrMerge(p, -1)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestCart_SubtotalRoundedOncePerLine(t *testing.T) {
	// 0.335 * 3 = 1.005 -> 1.01 (rounded once, per line).
	a := snap(1, "A", "0.335", 100)
	b := snap(2, "B", "0.335", 100)

	cart, err := NewCart().AddOrMerge(a, 3)
	require.NoError(t, err)
	cart, err = cart.AddOrMerge(b, 3)
	require.NoError(t, err)

	assert.Equal(t, "1.01", cart.Lines[0].Subtotal.StringFixed(2))
	// The total is the exact sum of rounded subtotals, never re-rounded.
	assert.Equal(t, "2.02", cart.Total().StringFixed(2))
}

func TestCart_Remove(t *testing.T) {
	cart, _ := NewCart().AddOrMerge(snap(1, "A", "1.00", 10), 1)
	cart, _ = cart.AddOrMerge(snap(2, "B", "2.00", 10), 1)

	cart, err := cart.Remove(0)
	require.NoError(t, err)
	require.Len(t, cart.Lines, 1)
	assert.EqualValues(t, 2, cart.Lines[0].ProductID)

	_, err = cart.Remove(5)
	assert.ErrorIs(t, err, ErrLineIndexOutOfRange)
	_, err = cart.Remove(-1)
	assert.ErrorIs(t, err, ErrLineIndexOutOfRange)
}

func TestCart_ClearAndEmptyTotal(t *testing.T) {
	cart, _ := NewCart().AddOrMerge(snap(1, "A", "9.99", 10), 3)
	cart = cart.Clear()
	assert.Empty(t, cart.Lines)
	assert.True(t, cart.Total().IsZero())
	assert.True(t, NewCart().Total().IsZero())
}

func TestSaleFromCart_CarriesProvisionalTotal(t *testing.T) {
	cart, _ := NewCart().AddOrMerge(snap(1, "A", "5.00", 10), 2)
	cart, _ = cart.AddOrMerge(snap(2, "B", "7.50", 10), 1)

	sale := SaleFromCart(cart, 42, cart.CreatedAt)
	require.Len(t, sale.Lines, 2)
	assert.EqualValues(t, 42, sale.MemberID)
	assert.Equal(t, "17.50", sale.Total.StringFixed(2))
	assert.Equal(t, "10.00", sale.Lines[0].Subtotal.StringFixed(2))
	assert.Equal(t, "7.50", sale.Lines[1].Subtotal.StringFixed(2))
}
