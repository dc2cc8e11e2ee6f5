package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Partner categories
const (
	CategoryVeterinary = "veterinary"
	CategoryGrooming   = "grooming"
	CategoryBoarding   = "boarding"
	CategoryShelter    = "shelter"
	CategoryShop       = "shop"
)

// Partner is a service-provider business owned by a partner profile
type Partner struct {
	ID             uint                `gorm:"primaryKey" json:"id"`
	OwnerID        uint                `gorm:"not null;uniqueIndex" json:"owner_id"`
	Owner          User                `gorm:"foreignKey:OwnerID" json:"-"`
	Name           string              `gorm:"not null" json:"name"`
	Category       string              `gorm:"not null;index" json:"category"`
	Phone          string              `json:"phone,omitempty"`
	Address        string              `json:"address,omitempty"`
	CommissionRate decimal.NullDecimal `gorm:"type:decimal(5,4)" json:"commission_rate"` // null uses the platform default
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
	DeletedAt      gorm.DeletedAt      `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Partner model
func (Partner) TableName() string {
	return "partners"
}

// IsValidCategory reports whether category is a known partner category
func IsValidCategory(category string) bool {
	switch category {
	case CategoryVeterinary, CategoryGrooming, CategoryBoarding, CategoryShelter, CategoryShop:
		return true
	}
	return false
}
