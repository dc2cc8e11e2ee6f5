package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/petconnect/petconnect-api/logger"
	"github.com/petconnect/petconnect-api/models"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// Outbox event kinds
const (
	KindBookingStatusChanged = "booking.status_changed"
	KindOrderStatusChanged   = "order.status_changed"
	KindAlertSchedule        = "medical_alert.schedule"
)

// OutboxHandler performs the side effect recorded by an event
type OutboxHandler func(ctx context.Context, event *models.OutboxEvent) error

// Dispatcher delivers outbox events. Every attempt claims the event by
// bumping its attempt counter, so the immediate post-commit dispatch and the
// relay never run the same attempt twice.
type Dispatcher struct {
	db          *gorm.DB
	handlers    map[string]OutboxHandler
	maxAttempts int
	backoff     time.Duration
	lease       time.Duration
	batchSize   int
	now         func() time.Time
}

// NewDispatcher creates a dispatcher that abandons events after maxAttempts
func NewDispatcher(db *gorm.DB, maxAttempts int) *Dispatcher {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Dispatcher{
		db:          db,
		handlers:    make(map[string]OutboxHandler),
		maxAttempts: maxAttempts,
		backoff:     30 * time.Second,
		lease:       2 * time.Minute,
		batchSize:   100,
		now:         time.Now,
	}
}

// Handle registers the handler for an event kind
func (d *Dispatcher) Handle(kind string, h OutboxHandler) {
	d.handlers[kind] = h
}

// SetBackoff changes the delay unit between attempts
func (d *Dispatcher) SetBackoff(backoff time.Duration) {
	d.backoff = backoff
}

// SetClock replaces the time source (primarily for testing)
func (d *Dispatcher) SetClock(now func() time.Time) {
	d.now = now
}

// Enqueue records an event inside tx. The event becomes visible only if tx commits.
func Enqueue(tx *gorm.DB, kind, aggregateType string, aggregateID uint, payload interface{}) (*models.OutboxEvent, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", kind, err)
	}
	event := &models.OutboxEvent{
		Kind:          kind,
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		Payload:       string(body),
		Status:        models.OutboxPending,
	}
	if err := tx.Create(event).Error; err != nil {
		return nil, fmt.Errorf("enqueue %s: %w", kind, err)
	}
	return event, nil
}

// Dispatch runs one attempt for the event. It returns the handler error, if
// any, after recording it on the event.
func (d *Dispatcher) Dispatch(ctx context.Context, id string) error {
	db := d.db.WithContext(ctx)

	var event models.OutboxEvent
	if err := db.First(&event, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	if event.Status != models.OutboxPending {
		return nil
	}

	now := d.now()
	claim := db.Model(&models.OutboxEvent{}).
		Where("id = ? AND status = ? AND attempts = ?", event.ID, models.OutboxPending, event.Attempts).
		Updates(map[string]interface{}{
			"attempts":        event.Attempts + 1,
			"next_attempt_at": now.Add(d.lease),
		})
	if claim.Error != nil {
		return claim.Error
	}
	if claim.RowsAffected == 0 {
		// another dispatcher holds this attempt
		return nil
	}
	event.Attempts++

	handler, ok := d.handlers[event.Kind]
	var runErr error
	if !ok {
		runErr = fmt.Errorf("no handler for %s", event.Kind)
	} else {
		runErr = handler(ctx, &event)
	}

	if runErr == nil {
		processed := d.now()
		if err := db.Model(&models.OutboxEvent{}).Where("id = ?", event.ID).Updates(map[string]interface{}{
			"status":       models.OutboxDone,
			"processed_at": &processed,
			"last_error":   "",
		}).Error; err != nil {
			return err
		}
		logger.Log.Debug("[outbox] delivered", "event_id", event.ID, "kind", event.Kind, "attempt", event.Attempts)
		return nil
	}

	updates := map[string]interface{}{
		"last_error":      runErr.Error(),
		"next_attempt_at": now.Add(d.backoff * time.Duration(event.Attempts)),
	}
	if event.Attempts >= d.maxAttempts {
		updates["status"] = models.OutboxAbandoned
		logger.Log.Error("[outbox] abandoned after final attempt",
			"event_id", event.ID, "kind", event.Kind, "attempts", event.Attempts, "error", runErr)
	} else {
		logger.Log.Warn("[outbox] attempt failed, will retry",
			"event_id", event.ID, "kind", event.Kind, "attempts", event.Attempts, "error", runErr)
	}
	if err := db.Model(&models.OutboxEvent{}).Where("id = ?", event.ID).Updates(updates).Error; err != nil {
		return err
	}
	return runErr
}

// DispatchAfterCommit makes the best-effort immediate attempt that follows a
// committed write. Failures stay in the outbox for the relay.
func (d *Dispatcher) DispatchAfterCommit(ctx context.Context, event *models.OutboxEvent) {
	if d == nil || event == nil {
		return
	}
	if err := d.Dispatch(ctx, event.ID); err != nil {
		logger.Log.Warn("[outbox] immediate delivery failed", "event_id", event.ID, "kind", event.Kind, "error", err)
	}
}

// DispatchPending attempts every pending event that is due. It returns the
// number of events delivered.
func (d *Dispatcher) DispatchPending(ctx context.Context) (int, error) {
	var due []models.OutboxEvent
	if err := d.db.WithContext(ctx).
		Where("status = ? AND next_attempt_at <= ?", models.OutboxPending, d.now()).
		Order("created_at ASC").
		Limit(d.batchSize).
		Find(&due).Error; err != nil {
		return 0, err
	}

	delivered := 0
	for _, event := range due {
		if err := d.Dispatch(ctx, event.ID); err == nil {
			delivered++
		}
	}
	return delivered, nil
}

// PublishHandler forwards an event payload to the publisher
func PublishHandler(pub Publisher) OutboxHandler {
	return func(ctx context.Context, event *models.OutboxEvent) error {
		return pub.Publish(ctx, event.Kind, event.ID, []byte(event.Payload))
	}
}

// RegisterHandlers wires the standard event kinds
func RegisterHandlers(d *Dispatcher, pub Publisher, scheduler *AlertScheduler) {
	d.Handle(KindBookingStatusChanged, PublishHandler(pub))
	d.Handle(KindOrderStatusChanged, PublishHandler(pub))
	d.Handle(KindAlertSchedule, scheduler.HandleOutboxEvent)
}

// OutboxRelay retries pending events on a cron schedule
type OutboxRelay struct {
	cron *cron.Cron
}

// StartOutboxRelay starts the relay with a cron spec such as "@every 1m"
func StartOutboxRelay(d *Dispatcher, spec string) (*OutboxRelay, error) {
	c := cron.New()
	if _, err := c.AddFunc(spec, func() {
		delivered, err := d.DispatchPending(context.Background())
		if err != nil {
			logger.Log.Error("[outbox-relay] failed to load pending events", "error", err)
			return
		}
		if delivered > 0 {
			logger.Log.Info("[outbox-relay] delivered pending events", "count", delivered)
		}
	}); err != nil {
		return nil, fmt.Errorf("invalid outbox schedule %q: %w", spec, err)
	}

	c.Start()
	logger.Log.Info("[outbox-relay] started", "schedule", spec)
	return &OutboxRelay{cron: c}, nil
}

// Stop stops scheduling and waits for a running pass to finish
func (r *OutboxRelay) Stop() {
	<-r.cron.Stop().Done()
}

var dispatcherInstance *Dispatcher

// SetDispatcher sets the dispatcher used by request handlers
func SetDispatcher(d *Dispatcher) {
	dispatcherInstance = d
}

// GetDispatcher returns the dispatcher used by request handlers
func GetDispatcher() *Dispatcher {
	return dispatcherInstance
}
