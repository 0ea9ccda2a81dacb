package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/gymops/backoffice/internal/sales/app"
	"github.com/gymops/backoffice/internal/sales/domain"
)

type SaleRepo struct {
	db *sql.DB
}

func NewSaleRepo(db *sql.DB) *SaleRepo {
	return &SaleRepo{db: db}
}

func (r *SaleRepo) execTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("tx err: %w; rollback err: %v", err, rbErr)
		}
		return err
	}

	return tx.Commit()
}

// guardedLineInsert decrements stock and inserts the sale line as one
// statement. The INSERT selects from the conditional UPDATE, so it
// produces a row only when the decrement found enough stock; two
// concurrent commits can never both take the last units.
const guardedLineInsert = `
WITH upd AS (
    UPDATE product
    SET stock = stock - $3
    WHERE id = $2 AND stock >= $3
    RETURNING id
)
INSERT INTO sale_item (sale_id, product_id, quantity, unit_price, subtotal)
SELECT $1, $2, $3, $4::numeric(12,2), ROUND($4::numeric * $3::numeric, 2)
FROM upd
RETURNING id`

// CreateSale runs the whole commit protocol in one transaction: header
// insert, guarded per-line decrement-and-insert, authoritative total
// recompute. Any failed guard aborts everything.
func (r *SaleRepo) CreateSale(ctx context.Context, sale domain.Sale) (domain.Sale, error) {
	var saleID int64

	err := r.execTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			INSERT INTO sale (member_id, occurred_at, total)
			VALUES ($1, $2, $3)
			RETURNING id`,
			sale.MemberID, sale.OccurredAt, sale.Total).Scan(&saleID)
		if err != nil {
			return fmt.Errorf("insert sale header: %w", err)
		}

		for _, l := range sale.Lines {
			var lineID int64
			err := tx.QueryRowContext(ctx, guardedLineInsert,
				saleID, l.ProductID, l.Quantity, l.UnitPrice).Scan(&lineID)
			if errors.Is(err, sql.ErrNoRows) {
				return r.insufficientStock(ctx, tx, l)
			}
			if err != nil {
				return fmt.Errorf("insert sale line (product %d): %w", l.ProductID, err)
			}
		}

		// The header total is recomputed from what was actually
		// persisted; the provisional cart total is never trusted.
		_, err = tx.ExecContext(ctx, `
			UPDATE sale
			SET total = COALESCE((SELECT SUM(subtotal) FROM sale_item WHERE sale_id = $1), 0)
			WHERE id = $1`,
			saleID)
		if err != nil {
			return fmt.Errorf("recompute sale total: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.Sale{}, err
	}

	return r.Get(ctx, saleID)
}

// insufficientStock builds the commit-time error with the stock the
// guard actually saw. Still inside the doomed transaction; it is rolled
// back right after.
func (r *SaleRepo) insufficientStock(ctx context.Context, tx *sql.Tx, l domain.SaleLine) error {
	var (
		available int64
		name      = l.ProductName
	)
	err := tx.QueryRowContext(ctx,
		`SELECT stock, name FROM product WHERE id = $1`, l.ProductID).
		Scan(&available, &name)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("product %d: %w", l.ProductID, domain.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("read stock for product %d: %w", l.ProductID, err)
	}

	return &domain.InsufficientStockError{
		ProductID: l.ProductID,
		Name:      name,
		Requested: l.Quantity,
		Available: available,
	}
}

// VoidSale restores stock for every line of the sale, then deletes the
// lines and the header. Restitution and deletion share one transaction;
// a missing sale fails with ErrNotFound and changes nothing.
func (r *SaleRepo) VoidSale(ctx context.Context, saleID int64) error {
	return r.execTx(ctx, func(tx *sql.Tx) error {
		var id int64
		err := tx.QueryRowContext(ctx,
			`SELECT id FROM sale WHERE id = $1 FOR UPDATE`, saleID).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("sale %d: %w", saleID, domain.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("lock sale %d: %w", saleID, err)
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE product p
			SET stock = p.stock + i.quantity
			FROM sale_item i
			WHERE i.sale_id = $1 AND p.id = i.product_id`,
			saleID)
		if err != nil {
			return fmt.Errorf("restore stock for sale %d: %w", saleID, err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM sale_item WHERE sale_id = $1`, saleID); err != nil {
			return fmt.Errorf("delete sale items %d: %w", saleID, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM sale WHERE id = $1`, saleID); err != nil {
			return fmt.Errorf("delete sale %d: %w", saleID, err)
		}
		return nil
	})
}

func (r *SaleRepo) Get(ctx context.Context, saleID int64) (domain.Sale, error) {
	var s domain.Sale
	err := r.db.QueryRowContext(ctx, `
		SELECT v.id, v.member_id, m.name, v.occurred_at, v.total
		FROM sale v
		JOIN member m ON m.id = v.member_id
		WHERE v.id = $1`,
		saleID).
		Scan(&s.ID, &s.MemberID, &s.MemberName, &s.OccurredAt, &s.Total)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Sale{}, fmt.Errorf("sale %d: %w", saleID, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Sale{}, fmt.Errorf("get sale %d: %w", saleID, err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT i.product_id, p.name, i.quantity, i.unit_price, i.subtotal
		FROM sale_item i
		JOIN product p ON p.id = i.product_id
		WHERE i.sale_id = $1
		ORDER BY i.id`,
		saleID)
	if err != nil {
		return domain.Sale{}, fmt.Errorf("get sale items %d: %w", saleID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var l domain.SaleLine
		if err := rows.Scan(&l.ProductID, &l.ProductName, &l.Quantity, &l.UnitPrice, &l.Subtotal); err != nil {
			return domain.Sale{}, err
		}
		s.Lines = append(s.Lines, l)
	}
	return s, rows.Err()
}

func (r *SaleRepo) List(ctx context.Context, f app.SaleFilter) ([]domain.Sale, error) {
	query := `
		SELECT v.id, v.member_id, m.name, v.occurred_at, v.total
		FROM sale v
		JOIN member m ON m.id = v.member_id
		WHERE 1=1`
	args := []any{}

	if !f.From.IsZero() {
		args = append(args, f.From)
		query += fmt.Sprintf(" AND v.occurred_at >= $%d", len(args))
	}
	if !f.To.IsZero() {
		args = append(args, f.To)
		query += fmt.Sprintf(" AND v.occurred_at < $%d", len(args))
	}
	args = append(args, f.Limit)
	query += fmt.Sprintf(" ORDER BY v.occurred_at DESC, v.id DESC LIMIT $%d", len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}
	defer rows.Close()

	var out []domain.Sale
	for rows.Next() {
		var s domain.Sale
		if err := rows.Scan(&s.ID, &s.MemberID, &s.MemberName, &s.OccurredAt, &s.Total); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
