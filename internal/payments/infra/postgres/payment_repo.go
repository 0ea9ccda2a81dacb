package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/gymops/backoffice/internal/payments/app"
	"github.com/gymops/backoffice/internal/payments/domain"
)

type PaymentRepo struct {
	db *sql.DB
}

func NewPaymentRepo(db *sql.DB) *PaymentRepo {
	return &PaymentRepo{db: db}
}

func (r *PaymentRepo) execTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
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

const paymentSelect = `
	SELECT p.id, p.member_id, m.name, p.concept, p.amount, p.method,
	       COALESCE(p.external_ref, ''), p.occurred_at, COALESCE(p.reversal_of, 0)
	FROM payment p
	JOIN member m ON m.id = p.member_id`

func scanPayment(row interface{ Scan(...any) error }) (domain.Payment, error) {
	var p domain.Payment
	err := row.Scan(&p.ID, &p.MemberID, &p.MemberName, &p.Concept, &p.Amount,
		&p.Method, &p.ExternalRef, &p.OccurredAt, &p.ReversalOf)
	return p, err
}

func (r *PaymentRepo) Create(ctx context.Context, p domain.Payment) (domain.Payment, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO payment (member_id, concept, amount, method, external_ref, occurred_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6)
		RETURNING id`,
		p.MemberID, p.Concept, p.Amount, p.Method, p.ExternalRef, p.OccurredAt).Scan(&id)
	if err != nil {
		return domain.Payment{}, fmt.Errorf("insert payment: %w", err)
	}
	return r.Get(ctx, id)
}

func (r *PaymentRepo) Get(ctx context.Context, id int64) (domain.Payment, error) {
	p, err := scanPayment(r.db.QueryRowContext(ctx, paymentSelect+` WHERE p.id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Payment{}, fmt.Errorf("payment %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Payment{}, fmt.Errorf("get payment %d: %w", id, err)
	}
	return p, nil
}

// Reverse inserts the mirrored negative entry. The amount negation and
// the member reference come from the original row inside the same
// transaction, so the compensation is exact even if the caller's view
// of the payment was stale.
func (r *PaymentRepo) Reverse(ctx context.Context, id int64, reason string) (domain.Payment, error) {
	var reversalID int64

	err := r.execTx(ctx, func(tx *sql.Tx) error {
		var (
			origConcept string
			origMethod  string
		)
		err := tx.QueryRowContext(ctx,
			`SELECT concept, method FROM payment WHERE id = $1 FOR UPDATE`, id).
			Scan(&origConcept, &origMethod)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("payment %d: %w", id, domain.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("lock payment %d: %w", id, err)
		}
		if origMethod == domain.MethodReversal {
			return fmt.Errorf("payment %d: %w", id, domain.ErrInvalidReversal)
		}

		if reason == "" {
			reason = origConcept
		}

		err = tx.QueryRowContext(ctx, `
			INSERT INTO payment (member_id, concept, amount, method, external_ref, occurred_at, reversal_of)
			VALUES (
				(SELECT member_id FROM payment WHERE id = $1),
				$2,
				-(SELECT amount FROM payment WHERE id = $1),
				$3,
				$4,
				now(),
				$1
			)
			RETURNING id`,
			id,
			fmt.Sprintf("REVERSAL #%d: %s", id, reason),
			domain.MethodReversal,
			fmt.Sprintf("reversal of #%d", id)).
			Scan(&reversalID)
		if err != nil {
			return fmt.Errorf("insert reversal for payment %d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return domain.Payment{}, err
	}

	return r.Get(ctx, reversalID)
}

func (r *PaymentRepo) List(ctx context.Context, f app.ListFilter) ([]domain.Payment, error) {
	query := paymentSelect + ` WHERE 1=1`
	args := []any{}

	if !f.From.IsZero() {
		args = append(args, f.From)
		query += fmt.Sprintf(" AND p.occurred_at >= $%d", len(args))
	}
	if !f.To.IsZero() {
		args = append(args, f.To)
		query += fmt.Sprintf(" AND p.occurred_at < $%d", len(args))
	}
	if f.MemberQuery != "" {
		args = append(args, "%"+f.MemberQuery+"%")
		query += fmt.Sprintf(" AND m.name ILIKE $%d", len(args))
	}
	if f.ConceptQuery != "" {
		args = append(args, "%"+f.ConceptQuery+"%")
		query += fmt.Sprintf(" AND p.concept ILIKE $%d", len(args))
	}
	if f.Method != "" {
		args = append(args, f.Method)
		query += fmt.Sprintf(" AND p.method = $%d", len(args))
	}
	args = append(args, f.Limit)
	query += fmt.Sprintf(" ORDER BY p.occurred_at DESC, p.id DESC LIMIT $%d", len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	var out []domain.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
