package auth

import (
	"context"
	"errors"
	"fmt"
)

// Capability names understood by the back office. Page handlers attach
// the caller's set to the request context; services gate on it.
const (
	PermProductsManage = "products_manage"
	PermSalesCreate    = "sales_create"
	PermSalesRead      = "sales_read"
	PermSalesRefund    = "sales_refund"
	PermPaymentsCreate = "payments_create"
	PermPaymentsRead   = "payments_read"
	PermPaymentsRefund = "payments_refund"
)

var ErrPermissionDenied = errors.New("permission denied")

type Permissions map[string]struct{}

func NewPermissions(names ...string) Permissions {
	p := make(Permissions, len(names))
	for _, n := range names {
		p[n] = struct{}{}
	}
	return p
}

func (p Permissions) Has(name string) bool {
	_, ok := p[name]
	return ok
}

type ctxKey struct{}

func WithPermissions(ctx context.Context, p Permissions) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

func FromContext(ctx context.Context) Permissions {
	p, _ := ctx.Value(ctxKey{}).(Permissions)
	return p
}

// Require fails with ErrPermissionDenied unless the context carries the
// named capability.
func Require(ctx context.Context, name string) error {
	if !FromContext(ctx).Has(name) {
		return fmt.Errorf("%w: %s", ErrPermissionDenied, name)
	}
	return nil
}
