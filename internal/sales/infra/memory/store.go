package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	catalogmem "github.com/gymops/backoffice/internal/catalog/infra/memory"
	"github.com/gymops/backoffice/internal/sales/app"
	"github.com/gymops/backoffice/internal/sales/domain"
)

// Store keeps sales in memory on top of the catalog memory store. It
// honors the same contract as the Postgres repo: per-line conditional
// stock decrement, all-or-nothing commit, restitution on void. A failed
// line compensates the decrements already applied in the same attempt,
// which is the in-memory equivalent of a rollback.
type Store struct {
	mu       sync.Mutex
	nextID   int64
	sales    map[int64]domain.Sale
	products *catalogmem.Store
}

func NewStore(products *catalogmem.Store) *Store {
	return &Store{
		nextID:   1,
		sales:    make(map[int64]domain.Sale),
		products: products,
	}
}

func (s *Store) CreateSale(ctx context.Context, sale domain.Sale) (domain.Sale, error) {
	type applied struct {
		productID int64
		qty       int64
	}
	var done []applied

	rollback := func() {
		for _, a := range done {
			_ = s.products.IncrementStock(ctx, a.productID, a.qty)
		}
	}

	lines := make([]domain.SaleLine, 0, len(sale.Lines))
	total := decimal.Zero

	for _, l := range sale.Lines {
		ok, available, err := s.products.TryDecrementStock(ctx, l.ProductID, l.Quantity)
		if err != nil {
			rollback()
			return domain.Sale{}, fmt.Errorf("product %d: %w", l.ProductID, domain.ErrNotFound)
		}
		if !ok {
			rollback()
			return domain.Sale{}, &domain.InsufficientStockError{
				ProductID: l.ProductID,
				Name:      l.ProductName,
				Requested: l.Quantity,
				Available: available,
			}
		}
		done = append(done, applied{l.ProductID, l.Quantity})

		// Same arithmetic the SQL path applies on insert.
		l.Subtotal = l.UnitPrice.Mul(decimal.NewFromInt(l.Quantity)).Round(2)
		lines = append(lines, l)
		total = total.Add(l.Subtotal)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sale.ID = s.nextID
	s.nextID++
	sale.Lines = lines
	sale.Total = total // recomputed from persisted lines, not the provisional value
	s.sales[sale.ID] = sale
	return sale, nil
}

func (s *Store) VoidSale(ctx context.Context, saleID int64) error {
	s.mu.Lock()
	sale, ok := s.sales[saleID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("sale %d: %w", saleID, domain.ErrNotFound)
	}
	delete(s.sales, saleID)
	s.mu.Unlock()

	for _, l := range sale.Lines {
		if err := s.products.IncrementStock(ctx, l.ProductID, l.Quantity); err != nil {
			return fmt.Errorf("restore stock for product %d: %w", l.ProductID, err)
		}
	}
	return nil
}

func (s *Store) Get(_ context.Context, saleID int64) (domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sale, ok := s.sales[saleID]
	if !ok {
		return domain.Sale{}, fmt.Errorf("sale %d: %w", saleID, domain.ErrNotFound)
	}
	return sale, nil
}

func (s *Store) List(_ context.Context, f app.SaleFilter) ([]domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.Sale
	for _, sale := range s.sales {
		if !f.From.IsZero() && sale.OccurredAt.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && !sale.OccurredAt.Before(f.To) {
			continue
		}
		out = append(out, sale)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].OccurredAt.Equal(out[j].OccurredAt) {
			return out[i].OccurredAt.After(out[j].OccurredAt)
		}
		return out[i].ID > out[j].ID
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}
