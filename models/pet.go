package models

import (
	"time"

	"gorm.io/gorm"
)

// Pet belongs to a customer profile
type Pet struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	OwnerID   uint           `gorm:"not null;index" json:"owner_id"`
	Owner     User           `gorm:"foreignKey:OwnerID" json:"-"`
	Name      string         `gorm:"not null" json:"name"`
	Species   string         `gorm:"not null" json:"species"` // dog, cat, ...
	Breed     string         `json:"breed"`
	BirthDate *time.Time     `json:"birth_date"`
	WeightKg  *float64       `json:"weight_kg"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Pet model
func (Pet) TableName() string {
	return "pets"
}

// AgeInMonths returns the pet's age at now, or 0 when the birth date is unknown
func (p Pet) AgeInMonths(now time.Time) int {
	if p.BirthDate == nil || p.BirthDate.After(now) {
		return 0
	}
	years, months, _ := now.Date()
	byear, bmonth, _ := p.BirthDate.Date()
	age := (years-byear)*12 + int(months-bmonth)
	if now.Day() < p.BirthDate.Day() {
		age--
	}
	if age < 0 {
		return 0
	}
	return age
}
