package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/gymops/backoffice/internal/catalog/app"
	"github.com/gymops/backoffice/internal/catalog/domain"
)

type ProductRepo struct {
	db *sql.DB
}

func NewProductRepo(db *sql.DB) *ProductRepo {
	return &ProductRepo{db: db}
}

const productCols = "id, name, price, stock, active, created_at, updated_at"

func scanProduct(row interface{ Scan(...any) error }) (domain.Product, error) {
	var p domain.Product
	err := row.Scan(&p.ID, &p.Name, &p.Price, &p.Stock, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *ProductRepo) Create(ctx context.Context, p domain.Product) (domain.Product, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO product (name, price, stock, active)
		VALUES ($1, $2, $3, $4)
		RETURNING `+productCols,
		p.Name, p.Price, p.Stock, p.Active)

	created, err := scanProduct(row)
	if err != nil {
		return domain.Product{}, fmt.Errorf("create product: %w", err)
	}
	return created, nil
}

func (r *ProductRepo) Get(ctx context.Context, id int64) (domain.Product, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+productCols+` FROM product WHERE id = $1`, id)

	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Product{}, app.ErrNotFound
	}
	if err != nil {
		return domain.Product{}, fmt.Errorf("get product %d: %w", id, err)
	}
	return p, nil
}

func (r *ProductRepo) Update(ctx context.Context, p domain.Product) (domain.Product, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE product
		SET name = $2, price = $3, stock = $4, active = $5, updated_at = now()
		WHERE id = $1
		RETURNING `+productCols,
		p.ID, p.Name, p.Price, p.Stock, p.Active)

	updated, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Product{}, app.ErrNotFound
	}
	if err != nil {
		return domain.Product{}, fmt.Errorf("update product %d: %w", p.ID, err)
	}
	return updated, nil
}

func (r *ProductRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM product WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return app.ErrNotFound
	}
	return nil
}

func (r *ProductRepo) List(ctx context.Context, f app.ListFilter) ([]domain.Product, error) {
	query := `SELECT ` + productCols + ` FROM product WHERE 1=1`
	args := []any{}

	if f.Query != "" {
		args = append(args, "%"+f.Query+"%")
		query += fmt.Sprintf(" AND name ILIKE $%d", len(args))
	}
	if f.ActiveOnly {
		query += " AND active"
	}
	args = append(args, f.Limit)
	query += fmt.Sprintf(" ORDER BY name LIMIT $%d", len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var out []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
