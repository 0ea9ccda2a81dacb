package app

import (
	"context"
	"time"

	"github.com/gymops/backoffice/internal/payments/domain"
)

type ListFilter struct {
	From         time.Time
	To           time.Time
	MemberQuery  string
	ConceptQuery string
	Method       string
	Limit        int
}

type PaymentRepo interface {
	Create(ctx context.Context, p domain.Payment) (domain.Payment, error)
	Get(ctx context.Context, id int64) (domain.Payment, error)

	// Reverse books the compensating entry for the given payment in one
	// transaction and returns it. The original row is never modified.
	Reverse(ctx context.Context, id int64, reason string) (domain.Payment, error)

	List(ctx context.Context, f ListFilter) ([]domain.Payment, error)
}
