package handlers

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/izerwaren/b2bportal/internal/api/middleware"
	"github.com/izerwaren/b2bportal/internal/domain"
	"github.com/izerwaren/b2bportal/internal/export"
	"github.com/izerwaren/b2bportal/internal/service"
)

// CreateCartRequest represents the cart creation payload
type CreateCartRequest struct {
	Name string `json:"name"`
}

// AddItemRequest adds a catalog variant to a cart
type AddItemRequest struct {
	ProductID string `json:"productId" binding:"required"`
	VariantID string `json:"variantId" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required"`
}

// UpdateItemRequest sets a line quantity; zero removes the line
type UpdateItemRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

func currentPrincipal(c *gin.Context) (*domain.Principal, bool) {
	principal, ok := middleware.GetPrincipalFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return nil, false
	}
	return principal, true
}

// HandleCreateCart handles POST /api/carts
func HandleCreateCart(services *service.Services, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		customer, ok := currentPrincipal(c)
		if !ok {
			return
		}
		var req CreateCartRequest
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				bindError(c, err)
				return
			}
		}

		view, err := services.Carts.CreateCart(c.Request.Context(), customer, req.Name)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusCreated, view)
	}
}

// HandleListCarts handles GET /api/carts
func HandleListCarts(services *service.Services, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		customer, ok := currentPrincipal(c)
		if !ok {
			return
		}
		views, err := services.Carts.ListCarts(c.Request.Context(), customer)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"carts": views})
	}
}

// HandleGetCart handles GET /api/carts/:id
func HandleGetCart(services *service.Services, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		customer, ok := currentPrincipal(c)
		if !ok {
			return
		}
		cartID, ok := pathID(c, "id")
		if !ok {
			return
		}
		view, err := services.Carts.GetCart(c.Request.Context(), customer, cartID)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, view)
	}
}

// HandleDeleteCart handles DELETE /api/carts/:id
func HandleDeleteCart(services *service.Services, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		customer, ok := currentPrincipal(c)
		if !ok {
			return
		}
		cartID, ok := pathID(c, "id")
		if !ok {
			return
		}
		if err := services.Carts.DeleteCart(c.Request.Context(), customer, cartID); err != nil {
			respondError(c, logger, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// HandleAddCartItem handles POST /api/carts/:id/items
func HandleAddCartItem(services *service.Services, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		customer, ok := currentPrincipal(c)
		if !ok {
			return
		}
		cartID, ok := pathID(c, "id")
		if !ok {
			return
		}
		var req AddItemRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}

		view, err := services.Carts.AddItem(c.Request.Context(), customer, cartID, req.ProductID, req.VariantID, req.Quantity)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, view)
	}
}

// HandleUpdateCartItem handles PATCH /api/carts/:id/items/:itemId
func HandleUpdateCartItem(services *service.Services, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		customer, ok := currentPrincipal(c)
		if !ok {
			return
		}
		cartID, ok := pathID(c, "id")
		if !ok {
			return
		}
		itemID, ok := pathID(c, "itemId")
		if !ok {
			return
		}
		var req UpdateItemRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}

		view, err := services.Carts.UpdateQuantity(c.Request.Context(), customer, cartID, itemID, *req.Quantity)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, view)
	}
}

// HandleRemoveCartItem handles DELETE /api/carts/:id/items/:itemId
func HandleRemoveCartItem(services *service.Services, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		customer, ok := currentPrincipal(c)
		if !ok {
			return
		}
		cartID, ok := pathID(c, "id")
		if !ok {
			return
		}
		itemID, ok := pathID(c, "itemId")
		if !ok {
			return
		}
		view, err := services.Carts.RemoveItem(c.Request.Context(), customer, cartID, itemID)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, view)
	}
}

// HandleClearCart handles DELETE /api/carts/:id/items
func HandleClearCart(services *service.Services, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		customer, ok := currentPrincipal(c)
		if !ok {
			return
		}
		cartID, ok := pathID(c, "id")
		if !ok {
			return
		}
		view, err := services.Carts.Clear(c.Request.Context(), customer, cartID)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, view)
	}
}

// HandleValidateCart handles POST /api/carts/:id/validate
func HandleValidateCart(services *service.Services, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		customer, ok := currentPrincipal(c)
		if !ok {
			return
		}
		cartID, ok := pathID(c, "id")
		if !ok {
			return
		}
		report, err := services.Carts.Validate(c.Request.Context(), customer, cartID)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, report)
	}
}

// HandleCheckoutCart handles POST /api/carts/:id/checkout
func HandleCheckoutCart(services *service.Services, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		customer, ok := currentPrincipal(c)
		if !ok {
			return
		}
		cartID, ok := pathID(c, "id")
		if !ok {
			return
		}
		result, err := services.Checkout.Checkout(c.Request.Context(), customer, cartID)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusCreated, result)
	}
}

// HandleExportCart handles GET /api/carts/:id/export.csv
func HandleExportCart(services *service.Services, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		customer, ok := currentPrincipal(c)
		if !ok {
			return
		}
		cartID, ok := pathID(c, "id")
		if !ok {
			return
		}
		record, err := services.Carts.Record(c.Request.Context(), customer, cartID)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		view, err := services.Carts.GetCart(c.Request.Context(), customer, cartID)
		if err != nil {
			respondError(c, logger, err)
			return
		}

		var buf bytes.Buffer
		if err := export.WriteCartCSV(&buf, view.Summary); err != nil {
			respondError(c, logger, err)
			return
		}
		c.Header("Content-Disposition", `attachment; filename="`+export.CartFilename(record)+`"`)
		c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
	}
}
