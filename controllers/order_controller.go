package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/petconnect/petconnect-api/services"
	"github.com/shopspring/decimal"
)

// OrderItemRequest is one line of a checkout
type OrderItemRequest struct {
	Name     string          `json:"name" binding:"required"`
	Quantity int             `json:"quantity" binding:"required,gt=0"`
	Price    decimal.Decimal `json:"price"`
}

// CreateOrderRequest represents the request body for placing an order
type CreateOrderRequest struct {
	PartnerID uint               `json:"partner_id" binding:"required"`
	Items     []OrderItemRequest `json:"items" binding:"required,min=1,dive"`
}

// CreateOrder handles POST /api/v1/orders - places an order (customers only)
func CreateOrder(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request data", err.Error())
		return
	}

	items := make([]services.LineItem, len(req.Items))
	for i, item := range req.Items {
		items[i] = services.LineItem{Name: item.Name, Quantity: item.Quantity, Price: item.Price}
	}

	order, err := orderService().Checkout(c.Request.Context(), user, req.PartnerID, items)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    order,
	})
}

// ListOrders handles GET /api/v1/orders - a partner's orders or a customer's own
// Query parameters: tab (pending, processing, completed, cancelled), page, limit
func ListOrders(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	orders, err := orderService().List(c.Request.Context(), user, c.Query("tab"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	paginated(c, orders)
}

// GetOrderCounts handles GET /api/v1/orders/counts - order count per tab (partners only)
func GetOrderCounts(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	counts, err := orderService().Counts(c.Request.Context(), user)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    counts,
	})
}

// GetOrder handles GET /api/v1/orders/:id
func GetOrder(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	order, err := orderService().Get(c.Request.Context(), user, id)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    order,
	})
}

// UpdateOrderStatus handles PATCH /api/v1/orders/:id/status (partners only)
func UpdateOrderStatus(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request data", err.Error())
		return
	}

	result, err := orderService().Transition(c.Request.Context(), user, id, req.Status, req.Version)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    result.Order,
		"notice":  result.Notice,
		"changed": result.Changed,
	})
}
