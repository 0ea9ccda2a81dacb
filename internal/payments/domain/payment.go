package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound        = errors.New("payment not found")
	ErrInvalidReversal = errors.New("cannot reverse a reversal entry")
)

// Payment methods accepted at the front desk. MethodReversal marks
// compensating entries and is never accepted as caller input.
const (
	MethodCash     = "cash"
	MethodCard     = "card"
	MethodTransfer = "transfer"
	MethodYape     = "yape"
	MethodPlin     = "plin"
	MethodPOS      = "pos"
	MethodOther    = "other"
	MethodReversal = "reversal"
)

var methods = map[string]struct{}{
	MethodCash: {}, MethodCard: {}, MethodTransfer: {}, MethodYape: {},
	MethodPlin: {}, MethodPOS: {}, MethodOther: {},
}

func ValidMethod(m string) bool {
	_, ok := methods[m]
	return ok
}

// Payment is one ledger row. Money movement is never deleted: undo is a
// new row with the negated amount and ReversalOf pointing back at the
// original.
type Payment struct {
	ID          int64
	MemberID    int64
	MemberName  string
	Concept     string
	Amount      decimal.Decimal
	Method      string
	ExternalRef string
	OccurredAt  time.Time
	ReversalOf  int64 // 0 for original entries
}

func (p Payment) IsReversal() bool {
	return p.ReversalOf != 0
}
