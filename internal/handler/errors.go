package handler

import (
	"errors"
	"net/http"

	"factorymes/internal/domain"
	"factorymes/pkg/response"

	"github.com/gin-gonic/gin"
)

// writeError maps domain errors to HTTP statuses and a structured body.
// Anything unrecognized is treated as an internal persistence failure so that
// storage details never leak into the API surface.
func writeError(c *gin.Context, err error) {
	var (
		validationErr  *domain.ValidationError
		stockErr       *domain.InsufficientStockError
		transitionErr  *domain.InvalidTransitionError
		stateErr       *domain.InvalidStateError
		mismatchErr    *domain.QuantityMismatchError
		overReceiptErr *domain.OverReceiptError
		incompleteErr  *domain.IncompleteReceiptError
		notFoundErr    *domain.NotFoundError
	)

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, response.ErrorWithCode(http.StatusBadRequest, "VALIDATION_ERROR", err.Error()))
	case errors.As(err, &mismatchErr):
		c.JSON(http.StatusBadRequest, response.ErrorWithCode(http.StatusBadRequest, "QUANTITY_MISMATCH", err.Error()))
	case errors.Is(err, domain.ErrEmptyOrder):
		c.JSON(http.StatusBadRequest, response.ErrorWithCode(http.StatusBadRequest, "EMPTY_ORDER", err.Error()))
	case errors.As(err, &notFoundErr):
		c.JSON(http.StatusNotFound, response.ErrorWithCode(http.StatusNotFound, "NOT_FOUND", err.Error()))
	case errors.As(err, &stockErr):
		c.JSON(http.StatusConflict, response.ErrorWithCode(http.StatusConflict, "INSUFFICIENT_STOCK", err.Error()))
	case errors.As(err, &transitionErr):
		c.JSON(http.StatusConflict, response.ErrorWithCode(http.StatusConflict, "INVALID_TRANSITION", err.Error()))
	case errors.As(err, &stateErr):
		c.JSON(http.StatusConflict, response.ErrorWithCode(http.StatusConflict, "INVALID_STATE", err.Error()))
	case errors.As(err, &overReceiptErr):
		c.JSON(http.StatusConflict, response.ErrorWithCode(http.StatusConflict, "OVER_RECEIPT", err.Error()))
	case errors.As(err, &incompleteErr):
		c.JSON(http.StatusConflict, response.ErrorWithCode(http.StatusConflict, "INCOMPLETE_RECEIPT", err.Error()))
	case errors.Is(err, domain.ErrResourceBusy):
		c.JSON(http.StatusConflict, response.ErrorWithCode(http.StatusConflict, "RESOURCE_BUSY", "resource is locked by another operation, retry shortly"))
	default:
		c.JSON(http.StatusInternalServerError, response.ErrorWithCode(http.StatusInternalServerError, "PERSISTENCE_ERROR", "internal error"))
	}
}

// actorID returns the authenticated user id stored by the auth middleware.
func actorID(c *gin.Context) string {
	if v, ok := c.Get("userID"); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
