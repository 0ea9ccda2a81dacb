package app

import (
	"context"

	"github.com/gymops/backoffice/internal/catalog/domain"
)

type ListFilter struct {
	Query      string
	ActiveOnly bool
	Limit      int
}

type ProductRepo interface {
	Create(ctx context.Context, p domain.Product) (domain.Product, error)
	Get(ctx context.Context, id int64) (domain.Product, error)
	Update(ctx context.Context, p domain.Product) (domain.Product, error)
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, f ListFilter) ([]domain.Product, error)
}
