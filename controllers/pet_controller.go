package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/petconnect/petconnect-api/services"
)

// CreatePetRequest represents the request body for registering a pet
type CreatePetRequest struct {
	Name      string     `json:"name" binding:"required"`
	Species   string     `json:"species" binding:"required"`
	Breed     string     `json:"breed"`
	BirthDate *time.Time `json:"birth_date"`
	WeightKg  *float64   `json:"weight_kg" binding:"omitempty,gt=0"`
}

// CreatePet handles POST /api/v1/pets - registers a pet (customers only)
func CreatePet(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req CreatePetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request data", err.Error())
		return
	}

	pet, err := partnerService().AddPet(c.Request.Context(), user, services.NewPet{
		Name:      req.Name,
		Species:   req.Species,
		Breed:     req.Breed,
		BirthDate: req.BirthDate,
		WeightKg:  req.WeightKg,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    pet,
	})
}

// ListPets handles GET /api/v1/pets - the caller's pets
func ListPets(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	pets, err := partnerService().Pets(c.Request.Context(), user)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    pets,
	})
}
