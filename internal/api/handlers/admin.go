package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/izerwaren/b2bportal/internal/repository"
	"github.com/izerwaren/b2bportal/internal/service"
)

// BulkAssignRequest assigns a set of RFQs to one rep
type BulkAssignRequest struct {
	RfqIDs        []uuid.UUID `json:"rfqIds" binding:"required,min=1"`
	AssignedRepID uuid.UUID   `json:"assignedRepId" binding:"required"`
}

// AutoAssignRequest lists the RFQs to auto-assign; empty means the whole PENDING queue
type AutoAssignRequest struct {
	RfqIDs []uuid.UUID `json:"rfqIds"`
}

// HandleBulkAssign handles POST /api/admin/rfq/bulk-assign
func HandleBulkAssign(services *service.Services, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		admin, ok := currentPrincipal(c)
		if !ok {
			return
		}
		var req BulkAssignRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}

		result, err := services.Assignment.BulkAssign(c.Request.Context(), admin, req.RfqIDs, req.AssignedRepID)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

// HandleAutoAssign handles POST /api/admin/rfq/auto-assign
func HandleAutoAssign(services *service.Services, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		admin, ok := currentPrincipal(c)
		if !ok {
			return
		}
		var req AutoAssignRequest
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				bindError(c, err)
				return
			}
		}

		result, err := services.Assignment.AutoAssign(c.Request.Context(), admin, req.RfqIDs)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

// HandleAdminListRFQs handles GET /api/admin/rfq
func HandleAdminListRFQs(services *service.Services, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		status, ok := statusQuery(c)
		if !ok {
			return
		}
		limit, offset := pageQuery(c)
		filter := repository.RFQFilter{Status: status, Limit: limit, Offset: offset}

		if raw := c.Query("repId"); raw != "" {
			repID, err := uuid.Parse(raw)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid repId"})
				return
			}
			filter.AssignedRepID = &repID
		}
		if raw := c.Query("customerId"); raw != "" {
			customerID, err := uuid.Parse(raw)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid customerId"})
				return
			}
			filter.CustomerID = &customerID
		}

		requests, err := services.RFQs.List(c.Request.Context(), filter)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"rfqs":   requests,
			"limit":  limit,
			"offset": offset,
		})
	}
}

// HandleRFQEvents handles GET /api/admin/rfq/:id/events
func HandleRFQEvents(services *service.Services, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		events, err := services.RFQs.Events(c.Request.Context(), id)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"events": events})
	}
}

// HandleExpireOverdue handles POST /api/admin/rfq/expire-overdue
func HandleExpireOverdue(services *service.Services, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		expired, err := services.RFQs.ExpireOverdue(c.Request.Context())
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"expired": expired})
	}
}
