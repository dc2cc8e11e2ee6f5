package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/petconnect/petconnect-api/services"
	"github.com/petconnect/petconnect-api/utils"
)

// CreateHealthRecordRequest represents the request body for a health record
type CreateHealthRecordRequest struct {
	Type        string     `json:"type" binding:"required"`
	Name        string     `json:"name" binding:"required"`
	AppliedAt   *time.Time `json:"applied_at"`
	NextDueDate *time.Time `json:"next_due_date"`
	WeightKg    *float64   `json:"weight_kg" binding:"omitempty,gt=0"`
	Notes       *string    `json:"notes"`
}

// ResolveAlertRequest represents the request body for completing or dismissing an alert
type ResolveAlertRequest struct {
	Status string `json:"status" binding:"required"`
	Index  *int   `json:"index" binding:"omitempty,gte=0"` // client's position in its pending queue
}

// CreateHealthRecord handles POST /api/v1/pets/:id/health-records
// Vaccine and deworming records with a next due date also schedule a reminder.
func CreateHealthRecord(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	petID, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req CreateHealthRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request data", err.Error())
		return
	}

	record, err := healthService().SaveRecord(c.Request.Context(), user, petID, services.NewHealthRecord{
		Type:        req.Type,
		Name:        req.Name,
		AppliedAt:   req.AppliedAt,
		NextDueDate: req.NextDueDate,
		WeightKg:    req.WeightKg,
		Notes:       req.Notes,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    record,
	})
}

// ListHealthRecords handles GET /api/v1/pets/:id/health-records
// Query parameters: type
func ListHealthRecords(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	petID, ok := idParam(c, "id")
	if !ok {
		return
	}

	records, err := healthService().Records(c.Request.Context(), user, petID, c.Query("type"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    records,
	})
}

// UploadHealthDocument handles POST /api/v1/health-records/:id/document
// Accepts multipart form data with a "document" image file.
func UploadHealthDocument(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	recordID, ok := idParam(c, "id")
	if !ok {
		return
	}

	file, err := c.FormFile("document")
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "VALIDATION_ERROR", "A document file is required", err.Error())
		return
	}

	record, err := healthService().AttachDocument(c.Request.Context(), user, recordID, file)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    record,
	})
}

// ScanHealthDocument handles POST /api/v1/pets/:id/health-records/scan
// Reads a vaccination card or dewormer box and returns a draft record for
// the owner to confirm. Nothing is saved.
func ScanHealthDocument(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	petID, ok := idParam(c, "id")
	if !ok {
		return
	}

	if _, err := healthService().Pet(c.Request.Context(), user, petID); err != nil {
		respondServiceError(c, err)
		return
	}

	file, err := c.FormFile("document")
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "VALIDATION_ERROR", "A document file is required", err.Error())
		return
	}
	content, err := utils.ReadUploadedFile(file)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	result, err := visionService().Scan(c.Request.Context(), content, c.DefaultPostForm("type", "vaccine"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    result,
	})
}

// ListAlerts handles GET /api/v1/pets/:id/alerts
// Query parameters: status (pending, completed, dismissed)
func ListAlerts(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	petID, ok := idParam(c, "id")
	if !ok {
		return
	}

	alerts, err := healthService().Alerts(c.Request.Context(), user, petID, c.Query("status"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    alerts,
	})
}

// GetNextAlert handles GET /api/v1/pets/:id/alerts/next?index=N
// Returns the pending alert at the client's position in the queue.
func GetNextAlert(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	petID, ok := idParam(c, "id")
	if !ok {
		return
	}

	index := 0
	if raw := c.Query("index"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			errorResponse(c, http.StatusBadRequest, "VALIDATION_ERROR", "index must be a number", nil)
			return
		}
		index = parsed
	}

	cursor, err := healthService().NextAlert(c.Request.Context(), user, petID, index)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    cursor,
	})
}

// ResolveAlert handles PATCH /api/v1/alerts/:id - marks an alert completed or dismissed.
// With an index in the body the response also carries the advanced queue.
func ResolveAlert(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	alertID, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req ResolveAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request data", err.Error())
		return
	}

	if req.Index == nil {
		alert, err := healthService().ResolveAlert(c.Request.Context(), user, alertID, req.Status)
		if err != nil {
			respondServiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"data":    alert,
		})
		return
	}

	alert, queue, err := healthService().ResolveInQueue(c.Request.Context(), user, alertID, req.Status, *req.Index)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    alert,
		"queue":   queue,
	})
}
