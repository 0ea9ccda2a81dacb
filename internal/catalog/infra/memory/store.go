package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gymops/backoffice/internal/catalog/app"
	"github.com/gymops/backoffice/internal/catalog/domain"
)

// Store is a mutex-guarded product store for tests and database-less
// runs. The stock mutators mirror the conditional guard the Postgres
// repo expresses in SQL: each call is atomic under the store lock.
type Store struct {
	mu       sync.Mutex
	nextID   int64
	products map[int64]domain.Product
}

func NewStore() *Store {
	return &Store{
		nextID:   1,
		products: make(map[int64]domain.Product),
	}
}

func (s *Store) Create(_ context.Context, p domain.Product) (domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p.ID = s.nextID
	s.nextID++
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	s.products[p.ID] = p
	return p, nil
}

func (s *Store) Get(_ context.Context, id int64) (domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return domain.Product{}, app.ErrNotFound
	}
	return p, nil
}

func (s *Store) Update(_ context.Context, p domain.Product) (domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.products[p.ID]
	if !ok {
		return domain.Product{}, app.ErrNotFound
	}
	p.CreatedAt = cur.CreatedAt
	p.UpdatedAt = time.Now()
	s.products[p.ID] = p
	return p, nil
}

func (s *Store) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[id]; !ok {
		return app.ErrNotFound
	}
	delete(s.products, id)
	return nil
}

func (s *Store) List(_ context.Context, f app.ListFilter) ([]domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.Product
	for _, p := range s.products {
		if f.ActiveOnly && !p.Active {
			continue
		}
		if f.Query != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(f.Query)) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

// TryDecrementStock decrements stock by qty only when qty fits. It
// reports the stock on hand at decision time either way.
func (s *Store) TryDecrementStock(_ context.Context, id, qty int64) (bool, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return false, 0, app.ErrNotFound
	}
	if p.Stock < qty {
		return false, p.Stock, nil
	}
	p.Stock -= qty
	s.products[id] = p
	return true, p.Stock, nil
}

func (s *Store) IncrementStock(_ context.Context, id, qty int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return app.ErrNotFound
	}
	p.Stock += qty
	s.products[id] = p
	return nil
}
