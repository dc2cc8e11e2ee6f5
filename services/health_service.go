package services

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"strings"
	"time"

	"github.com/petconnect/petconnect-api/lifecycle"
	"github.com/petconnect/petconnect-api/logger"
	"github.com/petconnect/petconnect-api/models"
	"gorm.io/gorm"
)

// HealthService stores pet health records and manages their medical alerts
type HealthService struct {
	db         *gorm.DB
	dispatcher *Dispatcher
	documents  *DocumentService
	now        func() time.Time
}

// NewHealthService creates a health service. documents may be nil when
// document uploads are not configured.
func NewHealthService(db *gorm.DB, dispatcher *Dispatcher, documents *DocumentService) *HealthService {
	return &HealthService{
		db:         db,
		dispatcher: dispatcher,
		documents:  documents,
		now:        time.Now,
	}
}

// SetClock replaces the time source (primarily for testing)
func (s *HealthService) SetClock(now func() time.Time) {
	s.now = now
}

// NewHealthRecord is the input for SaveRecord
type NewHealthRecord struct {
	Type        string
	Name        string
	AppliedAt   *time.Time
	NextDueDate *time.Time
	WeightKg    *float64
	Notes       *string
}

// AlertCursor is one step of the pending alert queue
type AlertCursor struct {
	Alert *models.MedicalAlert `json:"alert"`
	Index int                  `json:"index"`
	Total int                  `json:"total"`
}

// SaveRecord stores a health record. Vaccine and deworming records with a
// next due date also enqueue their alert in the same transaction; creating
// the alert is best-effort and never fails the save.
func (s *HealthService) SaveRecord(ctx context.Context, owner *models.User, petID uint, in NewHealthRecord) (*models.HealthRecord, error) {
	pet, err := s.ownedPet(ctx, owner, petID)
	if err != nil {
		return nil, err
	}
	if !models.IsValidRecordType(in.Type) {
		return nil, &ValidationError{Field: "type", Message: "unknown record type " + in.Type}
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, &ValidationError{Field: "name", Message: "is required"}
	}
	if in.AppliedAt != nil && in.NextDueDate != nil && in.NextDueDate.Before(*in.AppliedAt) {
		return nil, &ValidationError{Field: "next_due_date", Message: "must not be before applied_at"}
	}

	record := models.HealthRecord{
		PetID:       pet.ID,
		Type:        in.Type,
		Name:        strings.TrimSpace(in.Name),
		AppliedAt:   in.AppliedAt,
		NextDueDate: in.NextDueDate,
		WeightKg:    in.WeightKg,
		Notes:       in.Notes,
	}

	var alertEvent *models.OutboxEvent
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&record).Error; err != nil {
			return fmt.Errorf("create health record: %w", err)
		}
		if _, ok := record.AlertType(); !ok {
			return nil
		}
		var err error
		alertEvent, err = Enqueue(tx, KindAlertSchedule, "health_record", record.ID, AlertSchedulePayload{
			HealthRecordID: record.ID,
			PetID:          pet.ID,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.Log.Info("[health-service] record saved", "record_id", record.ID, "pet_id", pet.ID, "type", record.Type)
	s.dispatcher.DispatchAfterCommit(ctx, alertEvent)
	return &record, nil
}

// Records lists a pet's health records, most recent first
func (s *HealthService) Records(ctx context.Context, owner *models.User, petID uint, recordType string) ([]models.HealthRecord, error) {
	if _, err := s.ownedPet(ctx, owner, petID); err != nil {
		return nil, err
	}
	query := s.db.WithContext(ctx).Where("pet_id = ?", petID)
	if recordType != "" {
		query = query.Where("type = ?", recordType)
	}
	records := []models.HealthRecord{}
	if err := query.Order("created_at DESC").Order("id DESC").Find(&records).Error; err != nil {
		return nil, err
	}
	for i := range records {
		s.attachURL(ctx, &records[i])
	}
	return records, nil
}

// Alerts lists a pet's alerts by due date, optionally filtered by status
func (s *HealthService) Alerts(ctx context.Context, owner *models.User, petID uint, status string) ([]models.MedicalAlert, error) {
	if _, err := s.ownedPet(ctx, owner, petID); err != nil {
		return nil, err
	}
	query := s.db.WithContext(ctx).Where("pet_id = ?", petID)
	if status != "" {
		parsed, err := lifecycle.ParseAlertStatus(status)
		if err != nil {
			return nil, err
		}
		query = query.Where("status = ?", string(parsed))
	}
	alerts := []models.MedicalAlert{}
	if err := query.Order("due_date ASC").Order("id ASC").Find(&alerts).Error; err != nil {
		return nil, err
	}
	return alerts, nil
}

// NextAlert returns the pending alert at the client's queue index. An index
// past the end of the queue starts over from the first alert.
func (s *HealthService) NextAlert(ctx context.Context, owner *models.User, petID uint, index int) (*AlertCursor, error) {
	pending, err := s.Alerts(ctx, owner, petID, string(lifecycle.AlertPending))
	if err != nil {
		return nil, err
	}

	queue := lifecycle.NewAlertQueue[models.MedicalAlert](index)
	queue.Load(pending)

	cursor := &AlertCursor{Index: queue.Index(), Total: queue.Len()}
	if alert, ok := queue.Current(); ok {
		cursor.Alert = &alert
	}
	return cursor, nil
}

// ResolveAlert marks an alert completed or dismissed and stamps the time
func (s *HealthService) ResolveAlert(ctx context.Context, owner *models.User, alertID uint, status string) (*models.MedicalAlert, error) {
	resolution, err := lifecycle.ParseAlertResolution(status)
	if err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	var alert models.MedicalAlert
	if err := db.First(&alert, alertID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if _, err := s.ownedPet(ctx, owner, alert.PetID); err != nil {
		return nil, err
	}
	if alert.Status != lifecycle.AlertPending {
		return nil, ErrAlreadyResolved
	}

	completedAt := s.now()
	result := db.Model(&models.MedicalAlert{}).
		Where("id = ? AND status = ?", alert.ID, string(lifecycle.AlertPending)).
		Updates(map[string]interface{}{
			"status":       string(resolution),
			"completed_at": &completedAt,
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrAlreadyResolved
	}

	if err := db.First(&alert, alert.ID).Error; err != nil {
		return nil, err
	}
	return &alert, nil
}

// ResolveInQueue resolves the alert the client is showing at index of its
// pending queue and returns the queue advanced to the following alert. The
// queue is the pending list as it stood before the resolution; an index that
// runs past the end is reset by the next NextAlert call.
func (s *HealthService) ResolveInQueue(ctx context.Context, owner *models.User, alertID uint, status string, index int) (*models.MedicalAlert, *AlertCursor, error) {
	var target models.MedicalAlert
	if err := s.db.WithContext(ctx).First(&target, alertID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, err
	}
	pending, err := s.Alerts(ctx, owner, target.PetID, string(lifecycle.AlertPending))
	if err != nil {
		return nil, nil, err
	}

	alert, err := s.ResolveAlert(ctx, owner, alertID, status)
	if err != nil {
		return nil, nil, err
	}

	queue := lifecycle.NewAlertQueue[models.MedicalAlert](index)
	queue.Load(pending)
	queue.Advance()

	cursor := &AlertCursor{Index: queue.Index(), Total: queue.Len()}
	if next, ok := queue.Current(); ok {
		cursor.Alert = &next
	}
	return alert, cursor, nil
}

// AttachDocument uploads a scanned document for a record and returns the
// record with a presigned URL. A replaced document is deleted.
func (s *HealthService) AttachDocument(ctx context.Context, owner *models.User, recordID uint, file *multipart.FileHeader) (*models.HealthRecord, error) {
	if s.documents == nil {
		return nil, ErrNotConfigured
	}

	db := s.db.WithContext(ctx)
	var record models.HealthRecord
	if err := db.First(&record, recordID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if _, err := s.ownedPet(ctx, owner, record.PetID); err != nil {
		return nil, err
	}

	key, err := s.documents.Upload(ctx, record.PetID, file)
	if err != nil {
		return nil, err
	}

	previous := record.DocumentS3Key
	if err := db.Model(&record).Update("document_s3_key", key).Error; err != nil {
		return nil, fmt.Errorf("store document key: %w", err)
	}
	record.DocumentS3Key = &key

	if previous != nil && *previous != key {
		if err := s.documents.Delete(ctx, *previous); err != nil {
			logger.Log.Warn("[health-service] failed to delete replaced document", "key", *previous, "error", err)
		}
	}

	s.attachURL(ctx, &record)
	return &record, nil
}

func (s *HealthService) attachURL(ctx context.Context, record *models.HealthRecord) {
	if s.documents == nil || record.DocumentS3Key == nil {
		return
	}
	url, err := s.documents.URL(ctx, *record.DocumentS3Key)
	if err != nil {
		logger.Log.Warn("[health-service] failed to presign document", "record_id", record.ID, "error", err)
		return
	}
	record.DocumentURL = &url
}

// Pet returns one of the owner's pets
func (s *HealthService) Pet(ctx context.Context, owner *models.User, petID uint) (*models.Pet, error) {
	return s.ownedPet(ctx, owner, petID)
}

// ownedPet loads a pet and checks that owner may see it
func (s *HealthService) ownedPet(ctx context.Context, owner *models.User, petID uint) (*models.Pet, error) {
	var pet models.Pet
	if err := s.db.WithContext(ctx).First(&pet, petID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if pet.OwnerID != owner.ID {
		return nil, ErrForbidden
	}
	return &pet, nil
}
