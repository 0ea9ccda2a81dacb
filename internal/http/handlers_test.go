package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gymops/backoffice/internal/auth"
	catalogapp "github.com/gymops/backoffice/internal/catalog/app"
	catalogmem "github.com/gymops/backoffice/internal/catalog/infra/memory"
	payapp "github.com/gymops/backoffice/internal/payments/app"
	paymem "github.com/gymops/backoffice/internal/payments/infra/memory"
	salesapp "github.com/gymops/backoffice/internal/sales/app"
	salesdomain "github.com/gymops/backoffice/internal/sales/domain"
	salesmem "github.com/gymops/backoffice/internal/sales/infra/memory"
)

func TestErrorBody(t *testing.T) {
	t.Run("insufficient stock -> 409 with context", func(t *testing.T) {
		err := fmt.Errorf("commit: %w", &salesdomain.InsufficientStockError{
			ProductID: 7, Name: "Bar", Requested: 3, Available: 2,
		})
		status, body := errorBody(err)
		assert.Equal(t, http.StatusConflict, status)
		assert.EqualValues(t, 7, body["product_id"])
		assert.EqualValues(t, 3, body["requested"])
		assert.EqualValues(t, 2, body["available"])
	})

	t.Run("permission denied -> 403", func(t *testing.T) {
		status, _ := errorBody(fmt.Errorf("%w: sales_create", auth.ErrPermissionDenied))
		assert.Equal(t, http.StatusForbidden, status)
	})

	t.Run("not found -> 404", func(t *testing.T) {
		status, _ := errorBody(fmt.Errorf("sale 9: %w", salesdomain.ErrNotFound))
		assert.Equal(t, http.StatusNotFound, status)
	})

	t.Run("empty cart -> 400", func(t *testing.T) {
		status, _ := errorBody(salesdomain.ErrEmptyCart)
		assert.Equal(t, http.StatusBadRequest, status)
	})

	t.Run("unknown -> 500", func(t *testing.T) {
		status, body := errorBody(errors.New("boom"))
		assert.Equal(t, http.StatusInternalServerError, status)
		assert.Equal(t, "internal error", body["error"])
	})
}

func newTestServer() *Server {
	gin.SetMode(gin.TestMode)
	products := catalogmem.NewStore()
	return NewServer(
		catalogapp.NewService(products),
		salesapp.NewService(salesmem.NewStore(products), nil, nil),
		payapp.NewService(paymem.NewStore(), nil, nil),
	)
}

func do(t *testing.T, s *Server, method, path, body, perms string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if perms != "" {
		req.Header.Set("X-Permissions", perms)
	}
	w := httptest.NewRecorder()
	s.Engine().ServeHTTP(w, req)
	return w
}

const allPerms = "products_manage,sales_create,sales_read,sales_refund,payments_create,payments_read,payments_refund"

func TestSalesFlow(t *testing.T) {
	s := newTestServer()

	w := do(t, s, http.MethodPost, "/api/v1/products",
		`{"name":"Gloves","price":"10.00","stock":5}`, allPerms)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	// Commit 3 of 5.
	w = do(t, s, http.MethodPost, "/api/v1/sales",
		`{"member_id":1,"lines":[{"product_id":1,"quantity":3}]}`, allPerms)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"total":"30.00"`)

	// A second commit of 3 must fail against the 2 remaining.
	w = do(t, s, http.MethodPost, "/api/v1/sales",
		`{"member_id":1,"lines":[{"product_id":1,"quantity":3}]}`, allPerms)
	require.Equal(t, http.StatusConflict, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"available":2`)

	w = do(t, s, http.MethodGet, "/api/v1/products/1", "", allPerms)
	assert.Contains(t, w.Body.String(), `"stock":2`)

	// Void restores stock.
	w = do(t, s, http.MethodPost, "/api/v1/sales/1/void", "", allPerms)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, s, http.MethodGet, "/api/v1/products/1", "", allPerms)
	assert.Contains(t, w.Body.String(), `"stock":5`)
}

func TestSalesFlow_DuplicateLinesMerge(t *testing.T) {
	s := newTestServer()

	do(t, s, http.MethodPost, "/api/v1/products",
		`{"name":"Water","price":"2.50","stock":10}`, allPerms)

	w := do(t, s, http.MethodPost, "/api/v1/sales",
		`{"member_id":1,"lines":[{"product_id":1,"quantity":2},{"product_id":1,"quantity":3}]}`, allPerms)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"quantity":5`)
	assert.Contains(t, w.Body.String(), `"total":"12.50"`)
}

func TestSales_PermissionDenied(t *testing.T) {
	s := newTestServer()

	do(t, s, http.MethodPost, "/api/v1/products",
		`{"name":"Water","price":"2.50","stock":10}`, allPerms)

	w := do(t, s, http.MethodPost, "/api/v1/sales",
		`{"member_id":1,"lines":[{"product_id":1,"quantity":1}]}`, "sales_read")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestPaymentsFlow(t *testing.T) {
	s := newTestServer()

	w := do(t, s, http.MethodPost, "/api/v1/payments",
		`{"member_id":1,"concept":"Monthly fee","amount":"50.00","method":"cash"}`, allPerms)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = do(t, s, http.MethodPost, "/api/v1/payments/1/reverse",
		`{"reason":"charged twice"}`, allPerms)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"amount":"-50.00"`)
	assert.Contains(t, w.Body.String(), `"reversal_of":1`)

	// Reversed payment nets out of the period total.
	w = do(t, s, http.MethodGet, "/api/v1/payments", "", allPerms)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"period_total":"0.00"`)

	w = do(t, s, http.MethodGet, "/api/v1/payments?format=csv", "", allPerms)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(w.Body.String(), "id,date,member,concept,method,amount,external_ref"))
}

func TestPayments_ReverseMissing(t *testing.T) {
	s := newTestServer()
	w := do(t, s, http.MethodPost, "/api/v1/payments/99/reverse", "", allPerms)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
