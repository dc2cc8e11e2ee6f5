package models

import (
	"time"

	"github.com/petconnect/petconnect-api/lifecycle"
)

// MedicalAlert is a reminder for an upcoming vaccine or deworming dose
type MedicalAlert struct {
	ID             uint                    `gorm:"primaryKey" json:"id"`
	PetID          uint                    `gorm:"not null;index" json:"pet_id"`
	HealthRecordID *uint                   `gorm:"index" json:"health_record_id"` // lookup only, the record does not own the alert
	Type           lifecycle.AlertType     `gorm:"not null" json:"alert_type"`
	Title          string                  `gorm:"not null" json:"title"`
	Description    string                  `gorm:"type:text" json:"description"`
	DueDate        time.Time               `gorm:"not null;index" json:"due_date"`
	Priority       lifecycle.AlertPriority `gorm:"not null;default:'medium'" json:"priority"`
	Status         lifecycle.AlertStatus   `gorm:"not null;default:'pending';index" json:"status"`
	CompletedAt    *time.Time              `json:"completed_at"`
	CreatedAt      time.Time               `json:"created_at"`
	UpdatedAt      time.Time               `json:"updated_at"`
}

// TableName specifies the table name for the MedicalAlert model
func (MedicalAlert) TableName() string {
	return "medical_alerts"
}
