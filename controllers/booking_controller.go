package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/petconnect/petconnect-api/services"
	"github.com/shopspring/decimal"
)

// CreateBookingRequest represents the request body for booking a service
type CreateBookingRequest struct {
	PartnerID   uint            `json:"partner_id" binding:"required"`
	PetID       *uint           `json:"pet_id"`
	ServiceName string          `json:"service_name" binding:"required"`
	ScheduledAt time.Time       `json:"scheduled_at" binding:"required"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Notes       *string         `json:"notes"`
}

// UpdateStatusRequest represents the request body for a status change.
// Version, when sent, must match the version the client last read.
type UpdateStatusRequest struct {
	Status  string `json:"status" binding:"required"`
	Version *int   `json:"version"`
}

// CreateBooking handles POST /api/v1/bookings - books a service (customers only)
func CreateBooking(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request data", err.Error())
		return
	}

	booking, err := bookingService().Create(c.Request.Context(), user, services.NewBooking{
		PartnerID:   req.PartnerID,
		PetID:       req.PetID,
		ServiceName: req.ServiceName,
		ScheduledAt: req.ScheduledAt,
		TotalAmount: req.TotalAmount,
		Notes:       req.Notes,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    booking,
	})
}

// ListBookings handles GET /api/v1/bookings - a partner's bookings or a customer's own
// Query parameters: status, page, limit
func ListBookings(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	bookings, err := bookingService().List(c.Request.Context(), user, c.Query("status"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	paginated(c, bookings)
}

// GetBooking handles GET /api/v1/bookings/:id
func GetBooking(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	booking, err := bookingService().Get(c.Request.Context(), user, id)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    booking,
	})
}

// UpdateBookingStatus handles PATCH /api/v1/bookings/:id/status (partners only)
func UpdateBookingStatus(c *gin.Context) {
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

	result, err := bookingService().Transition(c.Request.Context(), user, id, req.Status, req.Version)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    result.Booking,
		"notice":  result.Notice,
		"changed": result.Changed,
	})
}
