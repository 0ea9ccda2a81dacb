package app

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/gymops/backoffice/internal/audit"
	"github.com/gymops/backoffice/internal/auth"
	"github.com/gymops/backoffice/internal/payments/domain"
	"github.com/gymops/backoffice/pkg/metrics"
)

var ErrInvalidInput = errors.New("invalid input")

type Service struct {
	repo    PaymentRepo
	auditor audit.Recorder
	metrics *metrics.SalesMetrics
}

func NewService(repo PaymentRepo, auditor audit.Recorder, m *metrics.SalesMetrics) *Service {
	if auditor == nil {
		auditor = audit.Nop{}
	}
	if m == nil {
		m = metrics.NewSalesMetrics(nil)
	}
	return &Service{repo: repo, auditor: auditor, metrics: m}
}

func (s *Service) CreatePayment(ctx context.Context, p domain.Payment) (domain.Payment, error) {
	if err := auth.Require(ctx, auth.PermPaymentsCreate); err != nil {
		return domain.Payment{}, err
	}

	p.Concept = strings.TrimSpace(p.Concept)
	if p.MemberID <= 0 || p.Concept == "" || !p.Amount.IsPositive() || !domain.ValidMethod(p.Method) {
		return domain.Payment{}, ErrInvalidInput
	}
	p.Amount = p.Amount.Round(2)
	if p.OccurredAt.IsZero() {
		p.OccurredAt = time.Now()
	}
	p.ReversalOf = 0

	created, err := s.repo.Create(ctx, p)
	if err != nil {
		return domain.Payment{}, err
	}

	s.metrics.PaymentsCreated.Inc()
	s.auditor.Record(ctx, audit.Entry{
		Action:   "payment_create",
		Entity:   "payment",
		EntityID: created.ID,
		Detail: map[string]any{
			"member_id": created.MemberID,
			"amount":    created.Amount.StringFixed(2),
			"method":    created.Method,
		},
	})
	return created, nil
}

// ReversePayment books the compensating negative entry. Audit history
// stays intact: the original row is untouched and the new row carries a
// reference back to it.
func (s *Service) ReversePayment(ctx context.Context, paymentID int64, reason string) (domain.Payment, error) {
	if err := auth.Require(ctx, auth.PermPaymentsRefund); err != nil {
		return domain.Payment{}, err
	}
	if paymentID <= 0 {
		return domain.Payment{}, ErrInvalidInput
	}

	reversal, err := s.repo.Reverse(ctx, paymentID, strings.TrimSpace(reason))
	if err != nil {
		return domain.Payment{}, err
	}

	s.metrics.PaymentsReversed.Inc()
	s.auditor.Record(ctx, audit.Entry{
		Action:   "payment_reversal",
		Entity:   "payment",
		EntityID: reversal.ID,
		Detail:   map[string]any{"reversal_of": paymentID},
	})
	return reversal, nil
}

func (s *Service) GetPayment(ctx context.Context, id int64) (domain.Payment, error) {
	if err := auth.Require(ctx, auth.PermPaymentsRead); err != nil {
		return domain.Payment{}, err
	}
	if id <= 0 {
		return domain.Payment{}, ErrInvalidInput
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) ListPayments(ctx context.Context, f ListFilter) ([]domain.Payment, error) {
	if err := auth.Require(ctx, auth.PermPaymentsRead); err != nil {
		return nil, err
	}
	if f.Limit <= 0 {
		f.Limit = 200
	}
	if f.Limit > 1000 {
		f.Limit = 1000
	}
	f.MemberQuery = strings.TrimSpace(f.MemberQuery)
	f.ConceptQuery = strings.TrimSpace(f.ConceptQuery)
	return s.repo.List(ctx, f)
}

// PeriodTotal sums the listed rows; reversals carry negative amounts,
// so a reversed payment nets to zero.
func PeriodTotal(payments []domain.Payment) decimal.Decimal {
	total := decimal.Zero
	for _, p := range payments {
		total = total.Add(p.Amount)
	}
	return total
}

var csvHeader = []string{"id", "date", "member", "concept", "method", "amount", "external_ref"}

// WriteCSV renders the listing for download.
func WriteCSV(w io.Writer, payments []domain.Payment) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, p := range payments {
		rec := []string{
			strconv.FormatInt(p.ID, 10),
			p.OccurredAt.Format(time.RFC3339),
			p.MemberName,
			p.Concept,
			p.Method,
			p.Amount.StringFixed(2),
			p.ExternalRef,
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
