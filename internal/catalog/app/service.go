package app

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/gymops/backoffice/internal/auth"
	"github.com/gymops/backoffice/internal/catalog/domain"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
)

type Service struct {
	repo ProductRepo
}

func NewService(repo ProductRepo) *Service {
	return &Service{
		repo: repo,
	}
}

func (s *Service) CreateProduct(ctx context.Context, name string, price decimal.Decimal, stock int64) (domain.Product, error) {
	if err := auth.Require(ctx, auth.PermProductsManage); err != nil {
		return domain.Product{}, err
	}

	name = strings.TrimSpace(name)
	if name == "" || !price.IsPositive() || stock < 0 {
		return domain.Product{}, ErrInvalidInput
	}

	p := domain.Product{
		Name:   name,
		Price:  price.Round(2),
		Stock:  stock,
		Active: true,
	}

	return s.repo.Create(ctx, p)
}

func (s *Service) GetProduct(ctx context.Context, id int64) (domain.Product, error) {
	if id <= 0 {
		return domain.Product{}, ErrInvalidInput
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) UpdateProduct(ctx context.Context, p domain.Product) (domain.Product, error) {
	if err := auth.Require(ctx, auth.PermProductsManage); err != nil {
		return domain.Product{}, err
	}

	p.Name = strings.TrimSpace(p.Name)
	if p.ID <= 0 || p.Name == "" || !p.Price.IsPositive() || p.Stock < 0 {
		return domain.Product{}, ErrInvalidInput
	}
	p.Price = p.Price.Round(2)

	return s.repo.Update(ctx, p)
}

func (s *Service) DeleteProduct(ctx context.Context, id int64) error {
	if err := auth.Require(ctx, auth.PermProductsManage); err != nil {
		return err
	}
	if id <= 0 {
		return ErrInvalidInput
	}
	return s.repo.Delete(ctx, id)
}

func (s *Service) ListProducts(ctx context.Context, f ListFilter) ([]domain.Product, error) {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	if f.Limit > 500 {
		f.Limit = 500
	}
	f.Query = strings.TrimSpace(f.Query)
	return s.repo.List(ctx, f)
}
