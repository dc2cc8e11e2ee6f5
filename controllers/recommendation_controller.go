package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/petconnect/petconnect-api/services"
)

// GetRecommendations handles GET /api/v1/recommendations/:kind
// Query parameters: pet_id, or species, breed, age_months and weight_kg.
// Answers are cached per pet profile.
func GetRecommendations(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	kind := c.Param("kind")

	var profile services.PetProfile
	if raw := c.Query("pet_id"); raw != "" {
		petID, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			errorResponse(c, http.StatusBadRequest, "VALIDATION_ERROR", "pet_id must be a number", nil)
			return
		}
		pet, err := healthService().Pet(c.Request.Context(), user, uint(petID))
		if err != nil {
			respondServiceError(c, err)
			return
		}
		profile = services.ProfileOf(pet, time.Now())
	} else {
		profile.Species = c.Query("species")
		profile.Breed = c.Query("breed")
		if raw := c.Query("age_months"); raw != "" {
			age, err := strconv.Atoi(raw)
			if err != nil || age < 0 {
				errorResponse(c, http.StatusBadRequest, "VALIDATION_ERROR", "age_months must be a non-negative number", nil)
				return
			}
			profile.AgeMonths = age
		}
		if raw := c.Query("weight_kg"); raw != "" {
			weight, err := strconv.ParseFloat(raw, 64)
			if err != nil || weight < 0 {
				errorResponse(c, http.StatusBadRequest, "VALIDATION_ERROR", "weight_kg must be a non-negative number", nil)
				return
			}
			profile.WeightKg = weight
		}
	}

	result, err := recommendationService().Recommend(c.Request.Context(), kind, profile)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    result,
	})
}
