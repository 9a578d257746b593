package rest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apierrors "github.com/feral-file/varus-ledger/internal/api/shared/errors"
	"github.com/feral-file/varus-ledger/internal/domain"
	"github.com/feral-file/varus-ledger/internal/logger"
)

// respondBadRequest responds with a bad request error
func respondBadRequest(c *gin.Context, message string, details ...string) {
	c.JSON(http.StatusBadRequest, apierrors.NewBadRequestError(message, details...))
}

// respondNotFound responds with a not found error
func respondNotFound(c *gin.Context, message string, details ...string) {
	c.JSON(http.StatusNotFound, apierrors.NewNotFoundError(message, details...))
}

// respondValidationError responds with a validation error
func respondValidationError(c *gin.Context, message string) {
	c.JSON(http.StatusUnprocessableEntity, apierrors.NewValidationError(message))
}

// respondInternalError responds with an internal server error and logs the cause
func respondInternalError(c *gin.Context, err error, message string) {
	logger.Error(err, zap.String("path", c.Request.URL.Path))
	c.JSON(http.StatusInternalServerError, apierrors.NewInternalError(message))
}

// respondLedgerError maps ledger errors onto HTTP statuses. Anything that is
// not a known ledger error is reported as an internal error.
func respondLedgerError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrTokenNotFound):
		respondNotFound(c, "Token not found", err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		c.JSON(http.StatusForbidden, apierrors.NewForbiddenError("Caller is not authorized for this token", err.Error()))
	case errors.Is(err, domain.ErrStaleApproval):
		c.JSON(http.StatusConflict, apierrors.NewConflictError("Approval id is stale", err.Error()))
	case errors.Is(err, domain.ErrNothingToCure):
		c.JSON(http.StatusConflict, apierrors.NewConflictError("Caller holds no tokens to cure", err.Error()))
	case errors.Is(err, domain.ErrNoOpTransfer):
		respondBadRequest(c, "Transfer would not change ownership", err.Error())
	case errors.Is(err, domain.ErrTokenAlreadyExists):
		c.JSON(http.StatusConflict, apierrors.NewConflictError("Token already exists", err.Error()))
	default:
		respondInternalError(c, err, "Ledger operation failed")
	}
}
