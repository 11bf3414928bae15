package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/izerwaren/b2bportal/internal/domain"
	"github.com/izerwaren/b2bportal/internal/repository"
	"github.com/izerwaren/b2bportal/internal/service"
)

// UpdateStatusRequest represents PATCH /api/rep/rfq/:id/status
type UpdateStatusRequest struct {
	Status domain.RfqStatus `json:"status" binding:"required"`
}

// QuoteRequest represents POST /api/rep/rfq/:id/quote
type QuoteRequest struct {
	Items       []QuoteItemRequest `json:"items" binding:"required,min=1,dive"`
	QuotedTotal *decimal.Decimal   `json:"quotedTotal"`
	ValidUntil  *time.Time         `json:"validUntil"`
	ValidDays   int                `json:"validDays"`
	AdminNotes  string             `json:"adminNotes"`
}

type QuoteItemRequest struct {
	ItemID    uuid.UUID       `json:"itemId" binding:"required"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Notes     *string         `json:"notes,omitempty"`
}

// HandleRepListRFQs handles GET /api/rep/rfq. queue=pending lists the unassigned queue,
// otherwise the RFQs assigned to the calling rep.
func HandleRepListRFQs(services *service.Services, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := currentPrincipal(c)
		if !ok {
			return
		}
		status, ok := statusQuery(c)
		if !ok {
			return
		}

		var (
			requests []*domain.RfqRequest
			err      error
		)
		switch {
		case c.Query("queue") == "pending":
			pending := domain.RfqStatusPending
			limit, offset := pageQuery(c)
			requests, err = services.RFQs.List(c.Request.Context(), repository.RFQFilter{Status: &pending, Limit: limit, Offset: offset})
		case caller.RepID != nil:
			requests, err = services.RFQs.ListForRep(c.Request.Context(), *caller.RepID, status)
		default:
			requests = []*domain.RfqRequest{}
		}
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"rfqs": requests})
	}
}

// HandleUpdateRFQStatus handles PATCH /api/rep/rfq/:id/status
func HandleUpdateRFQStatus(services *service.Services, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := currentPrincipal(c)
		if !ok {
			return
		}
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		var req UpdateStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}

		request, err := services.UpdateRFQStatus(c.Request.Context(), caller, id, req.Status)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, request)
	}
}

// HandleBuildQuote handles POST /api/rep/rfq/:id/quote
func HandleBuildQuote(services *service.Services, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := currentPrincipal(c)
		if !ok {
			return
		}
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		var req QuoteRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}

		input := service.QuoteInput{
			ValidDays:   req.ValidDays,
			ValidUntil:  req.ValidUntil,
			QuotedTotal: req.QuotedTotal,
			AdminNotes:  req.AdminNotes,
		}
		for _, item := range req.Items {
			input.Lines = append(input.Lines, service.QuoteLineInput{
				ItemID:    item.ItemID,
				UnitPrice: item.UnitPrice,
				Notes:     item.Notes,
			})
		}

		request, err := services.Quotes.BuildQuote(c.Request.Context(), caller, id, input)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, request)
	}
}
