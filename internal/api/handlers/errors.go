package handlers

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/izerwaren/b2bportal/internal/service"
	"github.com/izerwaren/b2bportal/pkg/errors"
)

// respondError maps the error taxonomy onto HTTP status codes
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	var (
		notFound     *errors.ErrNotFound
		unauthorized *errors.ErrUnauthorized
		forbidden    *errors.ErrForbidden
		invalidInput *errors.ErrInvalidInput
		conflict     *errors.ErrConflict
		transition   *errors.ErrInvalidStateTransition
		capacity     *errors.ErrCapacityExceeded
		price        *errors.ErrInvalidPrice
		tier         *errors.ErrUnknownTier
		quantity     *errors.ErrInvalidQuantity
		incomplete   *errors.ErrIncompleteQuote
		validation   *errors.ErrValidationFailed
	)

	switch {
	case stderrors.As(err, &notFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case stderrors.As(err, &unauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case stderrors.As(err, &forbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case stderrors.As(err, &invalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "field": invalidInput.Field})
	case stderrors.As(err, &conflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "code": "conflict"})
	case stderrors.As(err, &transition):
		c.JSON(http.StatusConflict, gin.H{
			"error": err.Error(),
			"code":  "invalid_state_transition",
			"from":  transition.From,
			"to":    transition.To,
		})
	case stderrors.As(err, &capacity):
		c.JSON(http.StatusConflict, gin.H{
			"error":    err.Error(),
			"code":     "capacity_exceeded",
			"repId":    capacity.RepID,
			"capacity": capacity.Capacity,
			"assigned": capacity.Assigned,
		})
	case stderrors.As(err, &price):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "code": "invalid_price", "sku": price.SKU})
	case stderrors.As(err, &tier):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "code": "unknown_tier"})
	case stderrors.As(err, &quantity):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "code": "invalid_quantity", "itemId": quantity.ItemID})
	case stderrors.As(err, &incomplete):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "code": "incomplete_quote", "itemIds": incomplete.ItemIDs})
	case stderrors.As(err, &validation):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "code": "validation_failed", "results": validation.Results})
	case stderrors.Is(err, service.ErrCheckoutUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		logger.Error("Request failed", zap.Error(err), zap.String("path", c.Request.URL.Path))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// bindError reports a request body that failed gin binding
func bindError(c *gin.Context, err error) {
	c.JSON(http.StatusUnprocessableEntity, gin.H{
		"error":   "validation failed",
		"details": err.Error(),
	})
}

func pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return uuid.Nil, false
	}
	return id, true
}
