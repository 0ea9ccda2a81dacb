package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gymops/backoffice/internal/auth"
	catalogapp "github.com/gymops/backoffice/internal/catalog/app"
	payapp "github.com/gymops/backoffice/internal/payments/app"
	paydomain "github.com/gymops/backoffice/internal/payments/domain"
	salesapp "github.com/gymops/backoffice/internal/sales/app"
	salesdomain "github.com/gymops/backoffice/internal/sales/domain"
)

// errorBody maps a service error onto an HTTP status and a JSON payload.
// InsufficientStock carries enough context for the UI to tell the user
// what to remove or reduce.
func errorBody(err error) (int, gin.H) {
	if ise, ok := salesdomain.IsInsufficientStock(err); ok {
		return http.StatusConflict, gin.H{
			"error":      "insufficient stock",
			"product_id": ise.ProductID,
			"product":    ise.Name,
			"requested":  ise.Requested,
			"available":  ise.Available,
		}
	}

	switch {
	case errors.Is(err, auth.ErrPermissionDenied):
		return http.StatusForbidden, gin.H{"error": err.Error()}
	case errors.Is(err, catalogapp.ErrNotFound),
		errors.Is(err, salesdomain.ErrNotFound),
		errors.Is(err, paydomain.ErrNotFound):
		return http.StatusNotFound, gin.H{"error": err.Error()}
	case errors.Is(err, catalogapp.ErrInvalidInput),
		errors.Is(err, salesapp.ErrInvalidInput),
		errors.Is(err, payapp.ErrInvalidInput),
		errors.Is(err, salesdomain.ErrEmptyCart),
		errors.Is(err, salesdomain.ErrInvalidQuantity),
		errors.Is(err, salesdomain.ErrLineIndexOutOfRange),
		errors.Is(err, paydomain.ErrInvalidReversal):
		return http.StatusBadRequest, gin.H{"error": err.Error()}
	default:
		return http.StatusInternalServerError, gin.H{"error": "internal error"}
	}
}

func respondError(c *gin.Context, err error) {
	status, body := errorBody(err)
	c.JSON(status, body)
}
