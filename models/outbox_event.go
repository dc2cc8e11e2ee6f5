package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Outbox event states
const (
	OutboxPending   = "pending"
	OutboxDone      = "done"
	OutboxAbandoned = "abandoned"
)

// OutboxEvent is a side effect recorded in the same transaction as the write
// that caused it, delivered afterwards by the dispatcher
type OutboxEvent struct {
	ID            string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	Kind          string     `gorm:"not null;index" json:"kind"` // booking.status_changed, order.status_changed, medical_alert.schedule
	AggregateType string     `gorm:"not null" json:"aggregate_type"`
	AggregateID   uint       `gorm:"not null;index" json:"aggregate_id"`
	Payload       string     `gorm:"type:text;not null" json:"payload"`
	Status        string     `gorm:"not null;default:'pending';index" json:"status"`
	Attempts      int        `gorm:"not null;default:0" json:"attempts"`
	LastError     string     `gorm:"type:text" json:"last_error,omitempty"`
	NextAttemptAt time.Time  `gorm:"index" json:"next_attempt_at"`
	ProcessedAt   *time.Time `json:"processed_at"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// TableName specifies the table name for the OutboxEvent model
func (OutboxEvent) TableName() string {
	return "outbox_events"
}

// BeforeCreate assigns the event ID
func (e *OutboxEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.NextAttemptAt.IsZero() {
		e.NextAttemptAt = time.Now()
	}
	return nil
}
