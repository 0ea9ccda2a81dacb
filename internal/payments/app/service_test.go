package app_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gymops/backoffice/internal/auth"
	"github.com/gymops/backoffice/internal/payments/app"
	"github.com/gymops/backoffice/internal/payments/domain"
	paymem "github.com/gymops/backoffice/internal/payments/infra/memory"
)

func setup() *app.Service {
	return app.NewService(paymem.NewStore(), nil, nil)
}

func payCtx() context.Context {
	return auth.WithPermissions(context.Background(), auth.NewPermissions(
		auth.PermPaymentsCreate, auth.PermPaymentsRead, auth.PermPaymentsRefund,
	))
}

func monthly(member int64, amount string) domain.Payment {
	return domain.Payment{
		MemberID:   member,
		MemberName: "Ana Torres",
		Concept:    "Monthly fee september",
		Amount:     decimal.RequireFromString(amount),
		Method:     domain.MethodCash,
	}
}

func TestCreatePayment(t *testing.T) {
	svc := setup()

	p, err := svc.CreatePayment(payCtx(), monthly(1, "50.00"))
	require.NoError(t, err)
	assert.NotZero(t, p.ID)
	assert.False(t, p.IsReversal())
	assert.False(t, p.OccurredAt.IsZero())
}

func TestCreatePayment_Validation(t *testing.T) {
	svc := setup()
	ctx := payCtx()

	bad := monthly(1, "50.00")
	bad.Amount = decimal.Zero
	_, err := svc.CreatePayment(ctx, bad)
	assert.ErrorIs(t, err, app.ErrInvalidInput)

	bad = monthly(1, "50.00")
	bad.Concept = "   "
	_, err = svc.CreatePayment(ctx, bad)
	assert.ErrorIs(t, err, app.ErrInvalidInput)

	bad = monthly(1, "50.00")
	bad.Method = "iou"
	_, err = svc.CreatePayment(ctx, bad)
	assert.ErrorIs(t, err, app.ErrInvalidInput)

	// Callers cannot forge reversal entries.
	forged := monthly(1, "50.00")
	forged.Method = domain.MethodReversal
	_, err = svc.CreatePayment(ctx, forged)
	assert.ErrorIs(t, err, app.ErrInvalidInput)
}

func TestCreatePayment_RequiresPermission(t *testing.T) {
	svc := setup()
	ctx := auth.WithPermissions(context.Background(), auth.NewPermissions(auth.PermPaymentsRead))
	_, err := svc.CreatePayment(ctx, monthly(1, "50.00"))
	assert.ErrorIs(t, err, auth.ErrPermissionDenied)
}

func TestReversePayment_ExactNegationOriginalUntouched(t *testing.T) {
	svc := setup()
	ctx := payCtx()

	orig, err := svc.CreatePayment(ctx, monthly(1, "129.90"))
	require.NoError(t, err)

	rev, err := svc.ReversePayment(ctx, orig.ID, "charged twice")
	require.NoError(t, err)

	assert.True(t, rev.IsReversal())
	assert.Equal(t, orig.ID, rev.ReversalOf)
	assert.Equal(t, domain.MethodReversal, rev.Method)
	assert.True(t, rev.Amount.Equal(orig.Amount.Neg()), "amount must be the exact negation")
	assert.Contains(t, rev.Concept, "charged twice")

	// The original row is still there, byte for byte.
	after, err := svc.GetPayment(ctx, orig.ID)
	require.NoError(t, err)
	assert.Equal(t, orig, after)

	// Reversed payment nets to zero in the period total.
	rows, err := svc.ListPayments(ctx, app.ListFilter{})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.True(t, app.PeriodTotal(rows).IsZero())
}

func TestReversePayment_NotFound(t *testing.T) {
	svc := setup()
	_, err := svc.ReversePayment(payCtx(), 4040, "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestReversePayment_RejectsReversingAReversal(t *testing.T) {
	svc := setup()
	ctx := payCtx()

	orig, _ := svc.CreatePayment(ctx, monthly(1, "80.00"))
	rev, err := svc.ReversePayment(ctx, orig.ID, "")
	require.NoError(t, err)

	_, err = svc.ReversePayment(ctx, rev.ID, "undo the undo")
	assert.ErrorIs(t, err, domain.ErrInvalidReversal)
}

func TestReversePayment_RequiresPermission(t *testing.T) {
	svc := setup()
	orig, _ := svc.CreatePayment(payCtx(), monthly(1, "50.00"))

	ctx := auth.WithPermissions(context.Background(),
		auth.NewPermissions(auth.PermPaymentsCreate, auth.PermPaymentsRead))
	_, err := svc.ReversePayment(ctx, orig.ID, "")
	assert.ErrorIs(t, err, auth.ErrPermissionDenied)
}

func TestListPayments_Filters(t *testing.T) {
	svc := setup()
	ctx := payCtx()

	cash := monthly(1, "50.00")
	card := domain.Payment{
		MemberID:   2,
		MemberName: "Bruno Díaz",
		Concept:    "Enrollment",
		Amount:     decimal.RequireFromString("120.00"),
		Method:     domain.MethodCard,
	}
	_, err := svc.CreatePayment(ctx, cash)
	require.NoError(t, err)
	_, err = svc.CreatePayment(ctx, card)
	require.NoError(t, err)

	rows, err := svc.ListPayments(ctx, app.ListFilter{Method: domain.MethodCard})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Enrollment", rows[0].Concept)

	rows, err = svc.ListPayments(ctx, app.ListFilter{MemberQuery: "ana"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Ana Torres", rows[0].MemberName)

	rows, err = svc.ListPayments(ctx, app.ListFilter{ConceptQuery: "monthly"})
	require.NoError(t, err)
	require.Len(t, rows, 1)

	assert.Equal(t, "170.00", app.PeriodTotal(mustList(t, svc, ctx)).StringFixed(2))
}

func mustList(t *testing.T, svc *app.Service, ctx context.Context) []domain.Payment {
	t.Helper()
	rows, err := svc.ListPayments(ctx, app.ListFilter{})
	require.NoError(t, err)
	return rows
}

func TestWriteCSV(t *testing.T) {
	svc := setup()
	ctx := payCtx()

	p, err := svc.CreatePayment(ctx, monthly(1, "50.00"))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, app.WriteCSV(&buf, []domain.Payment{p}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "id,date,member,concept,method,amount,external_ref", lines[0])
	assert.Contains(t, lines[1], "Ana Torres")
	assert.Contains(t, lines[1], "50.00")
}
