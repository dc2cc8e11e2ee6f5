package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/petconnect/petconnect-api/config"
	"github.com/petconnect/petconnect-api/lifecycle"
	"github.com/petconnect/petconnect-api/logger"
	"github.com/petconnect/petconnect-api/middleware"
	"github.com/petconnect/petconnect-api/models"
	"github.com/petconnect/petconnect-api/services"
	"github.com/petconnect/petconnect-api/utils"
	"github.com/shopspring/decimal"
)

// errorResponse writes the standard failure envelope
func errorResponse(c *gin.Context, status int, code, message string, details interface{}) {
	body := gin.H{
		"code":    code,
		"message": message,
	}
	if details != nil {
		body["details"] = details
	}
	c.JSON(status, gin.H{
		"success": false,
		"error":   body,
	})
}

// currentUser loads the profile behind the token. It writes the error
// response itself and returns false when there is none.
func currentUser(c *gin.Context) (*models.User, bool) {
	auth0ID, err := middleware.GetUserID(c)
	if err != nil {
		errorResponse(c, http.StatusUnauthorized, "UNAUTHORIZED", "Could not extract user information", nil)
		return nil, false
	}

	var user models.User
	if err := config.GetDB().Where("auth0_id = ?", auth0ID).First(&user).Error; err != nil {
		errorResponse(c, http.StatusNotFound, "USER_NOT_FOUND", "User profile not found. Please create a profile first.", nil)
		return nil, false
	}
	return &user, true
}

// idParam parses a numeric path parameter
func idParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		errorResponse(c, http.StatusBadRequest, "INVALID_ID", "Invalid "+name, nil)
		return 0, false
	}
	return uint(id), true
}

// respondServiceError maps service errors onto the failure envelope
func respondServiceError(c *gin.Context, err error) {
	var (
		transitionErr *lifecycle.TransitionError
		statusErr     *lifecycle.StatusError
		validationErr *services.ValidationError
		parseErr      *services.ParseError
		upstreamErr   *services.UpstreamError
		fileErr       *utils.FileUploadError
	)

	switch {
	case errors.As(err, &transitionErr):
		errorResponse(c, http.StatusUnprocessableEntity, "INVALID_TRANSITION", transitionErr.Error(), gin.H{
			"current_status":   transitionErr.From,
			"requested_status": transitionErr.To,
			"allowed_statuses": transitionErr.Allowed,
		})
	case errors.As(err, &statusErr):
		errorResponse(c, http.StatusBadRequest, "INVALID_STATUS", statusErr.Error(), nil)
	case errors.As(err, &validationErr):
		errorResponse(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request data", validationErr.Error())
	case errors.As(err, &fileErr):
		errorResponse(c, http.StatusBadRequest, fileErr.Code, fileErr.Message, nil)
	case errors.Is(err, services.ErrNotFound):
		errorResponse(c, http.StatusNotFound, "NOT_FOUND", "Resource not found", nil)
	case errors.Is(err, services.ErrForbidden):
		errorResponse(c, http.StatusForbidden, "FORBIDDEN", "You do not have access to this resource", nil)
	case errors.Is(err, services.ErrStaleVersion):
		errorResponse(c, http.StatusConflict, "STALE_VERSION", "The record was changed by someone else. Reload and try again.", nil)
	case errors.Is(err, services.ErrAlreadyResolved):
		errorResponse(c, http.StatusConflict, "ALREADY_RESOLVED", "This alert was already resolved", nil)
	case errors.Is(err, services.ErrNotConfigured):
		errorResponse(c, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "This feature is not configured", nil)
	case errors.As(err, &parseErr):
		logger.Log.Warn("[api] unreadable upstream response", "path", c.FullPath(), "error", err)
		code := "UPSTREAM_PARSE_ERROR"
		if parseErr.Service == "recommendations" {
			code = "RECOMMENDATION_PARSE_ERROR"
		}
		errorResponse(c, http.StatusBadGateway, code, "Could not read the response from "+parseErr.Service, nil)
	case errors.As(err, &upstreamErr):
		logger.Log.Warn("[api] upstream call failed", "path", c.FullPath(), "error", err)
		errorResponse(c, http.StatusBadGateway, "UPSTREAM_ERROR", "The "+upstreamErr.Service+" service is unavailable", nil)
	default:
		logger.Log.Error("[api] request failed", "path", c.FullPath(), "error", err)
		errorResponse(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to process request", nil)
	}
}

// pagination reads ?page= and ?limit= with the defaults 1 and 10
func pagination(c *gin.Context) (page, limit int) {
	page, limit = 1, 10
	if p, err := strconv.Atoi(c.Query("page")); err == nil && p > 0 {
		page = p
	}
	if l, err := strconv.Atoi(c.Query("limit")); err == nil && l > 0 && l <= 100 {
		limit = l
	}
	return page, limit
}

// paginated writes one page of items with the pagination block
func paginated[T any](c *gin.Context, items []T) {
	page, limit := pagination(c)
	total := len(items)

	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    items[start:end],
		"pagination": gin.H{
			"page":       page,
			"limit":      limit,
			"total":      total,
			"totalPages": (total + limit - 1) / limit,
		},
	})
}

// Service constructors read the globals set up in main.

func bookingService() *services.BookingService {
	return services.NewBookingService(config.GetDB(), services.GetDispatcher())
}

func orderService() *services.OrderService {
	rate := decimal.RequireFromString(config.DefaultCommissionRate)
	if cfg := config.GetConfig(); cfg != nil {
		rate = cfg.DefaultCommissionRate
	}
	return services.NewOrderService(config.GetDB(), services.GetDispatcher(), rate)
}

func partnerService() *services.PartnerService {
	return services.NewPartnerService(config.GetDB())
}

func healthService() *services.HealthService {
	return services.NewHealthService(config.GetDB(), services.GetDispatcher(), services.GetDocumentService())
}

func recommendationService() *services.RecommendationService {
	url, ttl := "", 7*24*time.Hour
	if cfg := config.GetConfig(); cfg != nil {
		url, ttl = cfg.RecommendationsURL, cfg.RecommendationsTTL
	}
	return services.NewRecommendationService(config.GetDB(), url, ttl)
}

func visionService() *services.VisionService {
	url := ""
	if cfg := config.GetConfig(); cfg != nil {
		url = cfg.VisionURL
	}
	return services.NewVisionService(url)
}
