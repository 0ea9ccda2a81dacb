package app

import (
	"context"
	"time"

	"github.com/gymops/backoffice/internal/sales/domain"
)

type SaleFilter struct {
	From  time.Time
	To    time.Time
	Limit int
}

// SaleRepo is the transactional storage port. CreateSale and VoidSale
// are single all-or-nothing units of work: on error nothing of the
// attempt is visible afterwards.
type SaleRepo interface {
	// CreateSale persists the header and, per line, runs the guarded
	// decrement-and-insert. It returns the sale as persisted, with the
	// total recomputed from the stored lines.
	CreateSale(ctx context.Context, sale domain.Sale) (domain.Sale, error)

	// VoidSale restores stock for every line, then deletes the lines
	// and the header.
	VoidSale(ctx context.Context, saleID int64) error

	Get(ctx context.Context, saleID int64) (domain.Sale, error)
	List(ctx context.Context, f SaleFilter) ([]domain.Sale, error)
}
