package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/petconnect/petconnect-api/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PartnerService registers partner businesses and customer pets
type PartnerService struct {
	db *gorm.DB
}

// NewPartnerService creates a partner service
func NewPartnerService(db *gorm.DB) *PartnerService {
	return &PartnerService{db: db}
}

// NewPartner is the input for Register
type NewPartner struct {
	Name           string
	Category       string
	Phone          string
	Address        string
	CommissionRate *decimal.Decimal
}

// Register creates the business owned by a partner profile. A profile owns
// at most one business.
func (s *PartnerService) Register(ctx context.Context, owner *models.User, in NewPartner) (*models.Partner, error) {
	if !owner.IsPartner() {
		return nil, ErrForbidden
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, &ValidationError{Field: "name", Message: "is required"}
	}
	if !models.IsValidCategory(in.Category) {
		return nil, &ValidationError{Field: "category", Message: "unknown category " + in.Category}
	}

	partner := models.Partner{
		OwnerID:  owner.ID,
		Name:     strings.TrimSpace(in.Name),
		Category: in.Category,
		Phone:    in.Phone,
		Address:  in.Address,
	}
	if in.CommissionRate != nil {
		if in.CommissionRate.IsNegative() || in.CommissionRate.GreaterThan(decimal.NewFromInt(1)) {
			return nil, &ValidationError{Field: "commission_rate", Message: "must be between 0 and 1"}
		}
		partner.CommissionRate = decimal.NewNullDecimal(*in.CommissionRate)
	}

	var existing int64
	if err := s.db.WithContext(ctx).Model(&models.Partner{}).Where("owner_id = ?", owner.ID).Count(&existing).Error; err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, &ValidationError{Field: "owner_id", Message: "profile already owns a partner business"}
	}

	if err := s.db.WithContext(ctx).Create(&partner).Error; err != nil {
		return nil, fmt.Errorf("create partner: %w", err)
	}
	return &partner, nil
}

// MyPartner returns the business owned by a partner profile
func (s *PartnerService) MyPartner(ctx context.Context, owner *models.User) (*models.Partner, error) {
	partner, err := partnerOf(ctx, s.db, owner)
	if err == ErrForbidden && owner.IsPartner() {
		return nil, ErrNotFound
	}
	return partner, err
}

// NewPet is the input for AddPet
type NewPet struct {
	Name      string
	Species   string
	Breed     string
	BirthDate *time.Time
	WeightKg  *float64
}

// AddPet registers a pet for a customer
func (s *PartnerService) AddPet(ctx context.Context, owner *models.User, in NewPet) (*models.Pet, error) {
	if owner.Role != models.RoleCustomer {
		return nil, ErrForbidden
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, &ValidationError{Field: "name", Message: "is required"}
	}
	if strings.TrimSpace(in.Species) == "" {
		return nil, &ValidationError{Field: "species", Message: "is required"}
	}

	pet := models.Pet{
		OwnerID:   owner.ID,
		Name:      strings.TrimSpace(in.Name),
		Species:   strings.ToLower(strings.TrimSpace(in.Species)),
		Breed:     strings.TrimSpace(in.Breed),
		BirthDate: in.BirthDate,
		WeightKg:  in.WeightKg,
	}
	if err := s.db.WithContext(ctx).Create(&pet).Error; err != nil {
		return nil, fmt.Errorf("create pet: %w", err)
	}
	return &pet, nil
}

// Pets lists a customer's pets
func (s *PartnerService) Pets(ctx context.Context, owner *models.User) ([]models.Pet, error) {
	pets := []models.Pet{}
	if err := s.db.WithContext(ctx).Where("owner_id = ?", owner.ID).Order("name ASC").Find(&pets).Error; err != nil {
		return nil, err
	}
	return pets, nil
}
