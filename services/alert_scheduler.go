package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/petconnect/petconnect-api/lifecycle"
	"github.com/petconnect/petconnect-api/logger"
	"github.com/petconnect/petconnect-api/models"
	"gorm.io/gorm"
)

// AlertSchedulePayload is the outbox payload for medical_alert.schedule
type AlertSchedulePayload struct {
	HealthRecordID uint `json:"health_record_id"`
	PetID          uint `json:"pet_id"`
}

// AlertScheduler derives medical alerts from vaccine and deworming records
type AlertScheduler struct {
	db  *gorm.DB
	now func() time.Time
}

// NewAlertScheduler creates a scheduler using the wall clock
func NewAlertScheduler(db *gorm.DB) *AlertScheduler {
	return &AlertScheduler{db: db, now: time.Now}
}

// SetClock replaces the time source (primarily for testing)
func (s *AlertScheduler) SetClock(now func() time.Time) {
	s.now = now
}

// ScheduleForRecord creates the pending alert for a record's next dose. It
// returns nil without error when the record needs no alert, when the
// reminder date has already passed, or when the alert already exists.
func (s *AlertScheduler) ScheduleForRecord(ctx context.Context, recordID uint) (*models.MedicalAlert, error) {
	db := s.db.WithContext(ctx)

	var record models.HealthRecord
	if err := db.First(&record, recordID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	kind, ok := record.AlertType()
	if !ok {
		return nil, nil
	}
	nextDue := *record.NextDueDate
	if !lifecycle.ShouldScheduleAlert(nextDue, s.now()) {
		logger.Log.Debug("[alert-scheduler] reminder date already passed", "health_record_id", record.ID)
		return nil, nil
	}

	// One pending alert per record keeps outbox retries from duplicating it.
	var existing int64
	if err := db.Model(&models.MedicalAlert{}).
		Where("health_record_id = ? AND status = ?", record.ID, lifecycle.AlertPending).
		Count(&existing).Error; err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, nil
	}

	recordID = record.ID
	alert := &models.MedicalAlert{
		PetID:          record.PetID,
		HealthRecordID: &recordID,
		Type:           kind,
		Title:          lifecycle.AlertTitle(kind, record.Name),
		Description:    lifecycle.AlertDescription(record.Name, nextDue),
		DueDate:        lifecycle.AlertDueDate(nextDue),
		Priority:       lifecycle.AlertPriorityFor(kind, record.Name),
		Status:         lifecycle.AlertPending,
	}
	if err := db.Create(alert).Error; err != nil {
		return nil, fmt.Errorf("create medical alert: %w", err)
	}

	logger.Log.Info("[alert-scheduler] alert scheduled",
		"alert_id", alert.ID, "pet_id", alert.PetID, "due_date", alert.DueDate.Format("2006-01-02"), "priority", alert.Priority)
	return alert, nil
}

// HandleOutboxEvent is the outbox handler for medical_alert.schedule
func (s *AlertScheduler) HandleOutboxEvent(ctx context.Context, event *models.OutboxEvent) error {
	var payload AlertSchedulePayload
	if err := json.Unmarshal([]byte(event.Payload), &payload); err != nil {
		return fmt.Errorf("decode alert payload: %w", err)
	}
	_, err := s.ScheduleForRecord(ctx, payload.HealthRecordID)
	return err
}
