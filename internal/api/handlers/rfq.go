package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/izerwaren/b2bportal/internal/domain"
	"github.com/izerwaren/b2bportal/internal/service"
)

// RespondRequest carries a customer's decision on a quote
type RespondRequest struct {
	Decision domain.RfqStatus `json:"decision" binding:"required"`
}

// HandleSubmitRFQ handles POST /api/rfq
func HandleSubmitRFQ(services *service.Services, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		customer, ok := currentPrincipal(c)
		if !ok {
			return
		}
		var req service.SubmitRFQInput
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}

		request, err := services.RFQs.Submit(c.Request.Context(), customer, req)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusCreated, request)
	}
}

// HandleListMyRFQs handles GET /api/rfq
func HandleListMyRFQs(services *service.Services, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		customer, ok := currentPrincipal(c)
		if !ok {
			return
		}
		status, ok := statusQuery(c)
		if !ok {
			return
		}
		requests, err := services.RFQs.ListForCustomer(c.Request.Context(), customer, status)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"rfqs": requests})
	}
}

// HandleGetRFQ handles GET /api/rfq/:id and GET /api/rep/rfq/:id
func HandleGetRFQ(services *service.Services, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := currentPrincipal(c)
		if !ok {
			return
		}
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		request, err := services.RFQs.Get(c.Request.Context(), caller, id)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, request)
	}
}

// HandleRespondRFQ handles POST /api/rfq/:id/respond
func HandleRespondRFQ(services *service.Services, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		customer, ok := currentPrincipal(c)
		if !ok {
			return
		}
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		var req RespondRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}

		request, err := services.RFQs.Respond(c.Request.Context(), customer, id, req.Decision)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, request)
	}
}

func statusQuery(c *gin.Context) (*domain.RfqStatus, bool) {
	raw := c.Query("status")
	if raw == "" {
		return nil, true
	}
	status := domain.RfqStatus(raw)
	if !status.IsValid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
		return nil, false
	}
	return &status, true
}

func pageQuery(c *gin.Context) (limit, offset int) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 1 || limit > 100 {
		limit = 50
	}
	offset, err = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return limit, offset
}
