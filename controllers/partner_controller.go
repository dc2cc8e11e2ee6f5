package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/petconnect/petconnect-api/services"
	"github.com/shopspring/decimal"
)

// RegisterPartnerRequest represents the request body for registering a business
type RegisterPartnerRequest struct {
	Name           string           `json:"name" binding:"required"`
	Category       string           `json:"category" binding:"required"`
	Phone          string           `json:"phone"`
	Address        string           `json:"address"`
	CommissionRate *decimal.Decimal `json:"commission_rate"`
}

// RegisterPartner handles POST /api/v1/partners - registers the caller's business (partners only)
func RegisterPartner(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req RegisterPartnerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request data", err.Error())
		return
	}

	partner, err := partnerService().Register(c.Request.Context(), user, services.NewPartner{
		Name:           req.Name,
		Category:       req.Category,
		Phone:          req.Phone,
		Address:        req.Address,
		CommissionRate: req.CommissionRate,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    partner,
	})
}

// GetMyPartner handles GET /api/v1/partners/me - the business owned by the caller
func GetMyPartner(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	partner, err := partnerService().MyPartner(c.Request.Context(), user)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    partner,
	})
}

// GetPartnerAnalytics handles GET /api/v1/partners/me/analytics - sales and booking totals
func GetPartnerAnalytics(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	analytics, err := orderService().Analytics(c.Request.Context(), user)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    analytics,
	})
}
