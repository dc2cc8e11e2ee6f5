package services

import (
	"context"
	"time"

	"github.com/petconnect/petconnect-api/models"
	"gorm.io/gorm"
)

// StatusChange is the payload published when a booking or order moves
type StatusChange struct {
	ID         uint      `json:"id"`
	PartnerID  uint      `json:"partner_id"`
	CustomerID uint      `json:"customer_id"`
	From       string    `json:"from"`
	To         string    `json:"to"`
	Event      string    `json:"event"`
	Version    int       `json:"version"` // subscribers drop notifications older than what they hold
	Notice     string    `json:"notice"`
	OccurredAt time.Time `json:"occurred_at"`
}

// writeStatus moves a record to a new status only if it still has the version
// the caller read, and records the change event in the same transaction.
func writeStatus(ctx context.Context, db *gorm.DB, model interface{}, kind, aggregateType string, change StatusChange, readVersion int) (*models.OutboxEvent, error) {
	var event *models.OutboxEvent
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(model).
			Where("id = ? AND version = ?", change.ID, readVersion).
			Updates(map[string]interface{}{
				"status":  change.To,
				"version": gorm.Expr("version + 1"),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrStaleVersion
		}

		var err error
		event, err = Enqueue(tx, kind, aggregateType, change.ID, change)
		return err
	})
	if err != nil {
		return nil, err
	}
	return event, nil
}
