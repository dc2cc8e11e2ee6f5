package models

import (
	"time"

	"github.com/petconnect/petconnect-api/lifecycle"
	"github.com/shopspring/decimal"
)

// Booking represents a scheduled service appointment with a partner
type Booking struct {
	ID          uint                    `gorm:"primaryKey" json:"id"`
	PartnerID   uint                    `gorm:"not null;index" json:"partner_id"`
	Partner     Partner                 `gorm:"foreignKey:PartnerID" json:"-"`
	CustomerID  uint                    `gorm:"not null;index" json:"customer_id"`
	Customer    User                    `gorm:"foreignKey:CustomerID" json:"customer"`
	PetID       *uint                   `gorm:"index" json:"pet_id,omitempty"`
	ServiceName string                  `gorm:"not null" json:"service_name"`
	ScheduledAt time.Time               `gorm:"not null;index" json:"scheduled_at"`
	TotalAmount decimal.Decimal         `gorm:"type:decimal(12,2);not null" json:"total_amount"`
	Status      lifecycle.BookingStatus `gorm:"not null;default:'pending';index" json:"status"`
	Notes       *string                 `gorm:"type:text" json:"notes"`
	Version     int                     `gorm:"not null;default:1" json:"version"` // bumped on every status write
	CreatedAt   time.Time               `json:"created_at"`
	UpdatedAt   time.Time               `json:"updated_at"`
}

// TableName specifies the table name for the Booking model
func (Booking) TableName() string {
	return "bookings"
}
