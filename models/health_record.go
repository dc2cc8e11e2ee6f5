package models

import (
	"time"

	"github.com/petconnect/petconnect-api/lifecycle"
)

// Health record types
const (
	RecordVaccine   = "vaccine"
	RecordIllness   = "illness"
	RecordAllergy   = "allergy"
	RecordDeworming = "deworming"
	RecordWeight    = "weight"
)

// HealthRecord is a stored entry in a pet's medical history
type HealthRecord struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	PetID         uint       `gorm:"not null;index" json:"pet_id"`
	Pet           Pet        `gorm:"foreignKey:PetID" json:"-"`
	Type          string     `gorm:"not null;index" json:"type"` // vaccine, illness, allergy, deworming, weight
	Name          string     `gorm:"not null" json:"name"`
	AppliedAt     *time.Time `json:"applied_at"`
	NextDueDate   *time.Time `json:"next_due_date"`
	WeightKg      *float64   `json:"weight_kg,omitempty"`
	Notes         *string    `gorm:"type:text" json:"notes"`
	DocumentS3Key *string    `json:"document_s3_key,omitempty"`
	DocumentURL   *string    `gorm:"-" json:"document_url,omitempty"` // computed field, presigned URL for the document
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// TableName specifies the table name for the HealthRecord model
func (HealthRecord) TableName() string {
	return "pet_health"
}

// IsValidRecordType reports whether t is a known health record type
func IsValidRecordType(t string) bool {
	switch t {
	case RecordVaccine, RecordIllness, RecordAllergy, RecordDeworming, RecordWeight:
		return true
	}
	return false
}

// AlertType returns the reminder type a record can spawn, if any
func (r HealthRecord) AlertType() (lifecycle.AlertType, bool) {
	if r.NextDueDate == nil {
		return "", false
	}
	switch r.Type {
	case RecordVaccine:
		return lifecycle.AlertVaccine, true
	case RecordDeworming:
		return lifecycle.AlertDeworming, true
	}
	return "", false
}
