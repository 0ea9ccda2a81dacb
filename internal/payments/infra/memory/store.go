package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gymops/backoffice/internal/payments/app"
	"github.com/gymops/backoffice/internal/payments/domain"
)

type Store struct {
	mu       sync.Mutex
	nextID   int64
	payments map[int64]domain.Payment
}

func NewStore() *Store {
	return &Store{
		nextID:   1,
		payments: make(map[int64]domain.Payment),
	}
}

func (s *Store) Create(_ context.Context, p domain.Payment) (domain.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p.ID = s.nextID
	s.nextID++
	s.payments[p.ID] = p
	return p, nil
}

func (s *Store) Get(_ context.Context, id int64) (domain.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.payments[id]
	if !ok {
		return domain.Payment{}, fmt.Errorf("payment %d: %w", id, domain.ErrNotFound)
	}
	return p, nil
}

func (s *Store) Reverse(_ context.Context, id int64, reason string) (domain.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	orig, ok := s.payments[id]
	if !ok {
		return domain.Payment{}, fmt.Errorf("payment %d: %w", id, domain.ErrNotFound)
	}
	if orig.Method == domain.MethodReversal {
		return domain.Payment{}, fmt.Errorf("payment %d: %w", id, domain.ErrInvalidReversal)
	}

	if reason == "" {
		reason = orig.Concept
	}

	rev := domain.Payment{
		ID:          s.nextID,
		MemberID:    orig.MemberID,
		MemberName:  orig.MemberName,
		Concept:     fmt.Sprintf("REVERSAL #%d: %s", id, reason),
		Amount:      orig.Amount.Neg(),
		Method:      domain.MethodReversal,
		ExternalRef: fmt.Sprintf("reversal of #%d", id),
		OccurredAt:  time.Now(),
		ReversalOf:  id,
	}
	s.nextID++
	s.payments[rev.ID] = rev
	return rev, nil
}

func (s *Store) List(_ context.Context, f app.ListFilter) ([]domain.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	contains := func(s, sub string) bool {
		return sub == "" || strings.Contains(strings.ToLower(s), strings.ToLower(sub))
	}

	var out []domain.Payment
	for _, p := range s.payments {
		if !f.From.IsZero() && p.OccurredAt.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && !p.OccurredAt.Before(f.To) {
			continue
		}
		if !contains(p.MemberName, f.MemberQuery) || !contains(p.Concept, f.ConceptQuery) {
			continue
		}
		if f.Method != "" && p.Method != f.Method {
			continue
		}
		out = append(out, p)
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
