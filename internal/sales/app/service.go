package app

import (
	"context"
	"errors"
	"time"

	"github.com/gymops/backoffice/internal/audit"
	"github.com/gymops/backoffice/internal/auth"
	"github.com/gymops/backoffice/internal/sales/domain"
	"github.com/gymops/backoffice/pkg/metrics"
)

var ErrInvalidInput = errors.New("invalid input")

type Service struct {
	repo    SaleRepo
	auditor audit.Recorder
	metrics *metrics.SalesMetrics
}

func NewService(repo SaleRepo, auditor audit.Recorder, m *metrics.SalesMetrics) *Service {
	if auditor == nil {
		auditor = audit.Nop{}
	}
	if m == nil {
		m = metrics.NewSalesMetrics(nil)
	}
	return &Service{repo: repo, auditor: auditor, metrics: m}
}

// CommitSale converts the staged cart into a persisted sale. The whole
// commit is one storage transaction; an insufficient-stock guard on any
// line rolls everything back and surfaces which product fell short.
// There is no automatic retry: the caller re-stages and resubmits.
func (s *Service) CommitSale(ctx context.Context, cart domain.Cart, memberID int64, at time.Time) (domain.Sale, error) {
	if err := auth.Require(ctx, auth.PermSalesCreate); err != nil {
		return domain.Sale{}, err
	}
	if memberID <= 0 {
		return domain.Sale{}, ErrInvalidInput
	}
	if len(cart.Lines) == 0 {
		return domain.Sale{}, domain.ErrEmptyCart
	}
	if at.IsZero() {
		at = time.Now()
	}

	start := time.Now()
	created, err := s.repo.CreateSale(ctx, domain.SaleFromCart(cart, memberID, at))
	if err != nil {
		if _, ok := domain.IsInsufficientStock(err); ok {
			s.metrics.SalesFailed.WithLabelValues("insufficient_stock").Inc()
		} else {
			s.metrics.SalesFailed.WithLabelValues("storage").Inc()
		}
		return domain.Sale{}, err
	}

	s.metrics.SalesCommitted.Inc()
	s.metrics.CommitDurationMS.Observe(float64(time.Since(start).Milliseconds()))

	s.auditor.Record(ctx, audit.Entry{
		Action:   "sale_commit",
		Entity:   "sale",
		EntityID: created.ID,
		Detail: map[string]any{
			"member_id": created.MemberID,
			"total":     created.Total.StringFixed(2),
			"lines":     len(created.Lines),
		},
	})

	return created, nil
}

// VoidSale is the destructive reversal for inventory movement: stock is
// restored first, then the sale and its lines are deleted, all in one
// transaction. Requires the elevated refund capability.
func (s *Service) VoidSale(ctx context.Context, saleID int64) error {
	if err := auth.Require(ctx, auth.PermSalesRefund); err != nil {
		return err
	}
	if saleID <= 0 {
		return ErrInvalidInput
	}

	if err := s.repo.VoidSale(ctx, saleID); err != nil {
		return err
	}

	s.metrics.SalesVoided.Inc()
	s.auditor.Record(ctx, audit.Entry{
		Action:   "sale_void",
		Entity:   "sale",
		EntityID: saleID,
	})
	return nil
}

// GetSale reloads a persisted sale with its lines for receipt rendering.
func (s *Service) GetSale(ctx context.Context, saleID int64) (domain.Sale, error) {
	if err := auth.Require(ctx, auth.PermSalesRead); err != nil {
		return domain.Sale{}, err
	}
	if saleID <= 0 {
		return domain.Sale{}, ErrInvalidInput
	}
	return s.repo.Get(ctx, saleID)
}

func (s *Service) ListSales(ctx context.Context, f SaleFilter) ([]domain.Sale, error) {
	if err := auth.Require(ctx, auth.PermSalesRead); err != nil {
		return nil, err
	}
	if f.Limit <= 0 {
		f.Limit = 200
	}
	if f.Limit > 1000 {
		f.Limit = 1000
	}
	return s.repo.List(ctx, f)
}
