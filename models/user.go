package models

import (
	"time"

	"gorm.io/gorm"
)

// Roles a profile can hold
const (
	RoleCustomer = "customer"
	RolePartner  = "partner"
)

// User represents a profile in the system (pet owner or partner staff)
type User struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Auth0ID   string         `gorm:"uniqueIndex;not null" json:"auth0_id"` // Auth0 user ID (from 'sub' claim)
	Name      string         `gorm:"not null" json:"name"`
	Email     string         `gorm:"uniqueIndex;not null" json:"email"`
	Role      string         `gorm:"not null;default:'customer'" json:"role"` // "customer" or "partner"
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the User model
func (User) TableName() string {
	return "profiles"
}

// IsPartner reports whether the profile belongs to partner staff
func (u User) IsPartner() bool {
	return u.Role == RolePartner
}
