package lifecycle

import (
	"fmt"
	"strings"
	"time"
)

// AlertType is what the reminder is about.
type AlertType string

const (
	AlertVaccine   AlertType = "vaccine"
	AlertDeworming AlertType = "deworming"
	AlertCheckup   AlertType = "checkup"
)

// AlertPriority orders reminders for display.
type AlertPriority string

const (
	PriorityUrgent AlertPriority = "urgent"
	PriorityHigh   AlertPriority = "high"
	PriorityMedium AlertPriority = "medium"
	PriorityLow    AlertPriority = "low"
)

// AlertStatus tracks whether the owner acted on a reminder.
type AlertStatus string

const (
	AlertPending   AlertStatus = "pending"
	AlertCompleted AlertStatus = "completed"
	AlertDismissed AlertStatus = "dismissed"
)

// AlertLeadDays is how many days before the next dose the reminder falls due.
const AlertLeadDays = 7

// highPriorityVaccines are matched case-insensitively against the vaccine name.
var highPriorityVaccines = []string{"dhpp", "rabia"}

// AlertDueDate is the day the owner should be reminded of nextDue.
func AlertDueDate(nextDue time.Time) time.Time {
	return nextDue.AddDate(0, 0, -AlertLeadDays)
}

// ShouldScheduleAlert reports whether a reminder for nextDue still lies in
// the future at now.
func ShouldScheduleAlert(nextDue, now time.Time) bool {
	return AlertDueDate(nextDue).After(now)
}

// AlertPriorityFor picks the priority of a reminder for the named product.
func AlertPriorityFor(kind AlertType, name string) AlertPriority {
	if kind != AlertVaccine {
		return PriorityMedium
	}
	lower := strings.ToLower(name)
	for _, keyword := range highPriorityVaccines {
		if strings.Contains(lower, keyword) {
			return PriorityHigh
		}
	}
	return PriorityMedium
}

// AlertTitle and AlertDescription are the texts stored on a new reminder.
func AlertTitle(kind AlertType, name string) string {
	switch kind {
	case AlertDeworming:
		return fmt.Sprintf("Próxima desparasitación: %s", name)
	case AlertCheckup:
		return fmt.Sprintf("Próximo control: %s", name)
	default:
		return fmt.Sprintf("Próxima vacuna: %s", name)
	}
}

func AlertDescription(name string, nextDue time.Time) string {
	return fmt.Sprintf("La próxima dosis de %s vence el %s", name, nextDue.Format("02/01/2006"))
}

// ParseAlertStatus validates a status filter.
func ParseAlertStatus(s string) (AlertStatus, error) {
	switch status := AlertStatus(s); status {
	case AlertPending, AlertCompleted, AlertDismissed:
		return status, nil
	}
	return "", &StatusError{Kind: "alert", Value: s}
}

// ParseAlertResolution accepts the statuses an owner may set on a reminder.
func ParseAlertResolution(s string) (AlertStatus, error) {
	switch status := AlertStatus(s); status {
	case AlertCompleted, AlertDismissed:
		return status, nil
	}
	return "", &StatusError{Kind: "alert", Value: s}
}

// AlertQueue presents pending reminders one at a time. Dismissing the
// current reminder advances the index; once the index runs past the end
// the next Load starts again from the first reminder.
type AlertQueue[T any] struct {
	items []T
	index int
}

// NewAlertQueue starts a queue at a client-supplied index.
func NewAlertQueue[T any](index int) *AlertQueue[T] {
	if index < 0 {
		index = 0
	}
	return &AlertQueue[T]{index: index}
}

// Load replaces the queue contents with a fresh fetch.
func (q *AlertQueue[T]) Load(items []T) {
	q.items = items
	if q.index >= len(items) {
		q.index = 0
	}
}

// Current returns the reminder at the index, if any.
func (q *AlertQueue[T]) Current() (T, bool) {
	var zero T
	if q.index >= len(q.items) {
		return zero, false
	}
	return q.items[q.index], true
}

// Advance moves past the current reminder after it was resolved.
func (q *AlertQueue[T]) Advance() {
	q.index++
}

// Index is the position the client should send back on its next fetch.
func (q *AlertQueue[T]) Index() int {
	return q.index
}

// Len is the number of reminders loaded.
func (q *AlertQueue[T]) Len() int {
	return len(q.items)
}
