package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/petconnect/petconnect-api/lifecycle"
	"github.com/petconnect/petconnect-api/logger"
	"github.com/petconnect/petconnect-api/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// BookingService manages service appointments and their status machine
type BookingService struct {
	db         *gorm.DB
	dispatcher *Dispatcher
	machine    *lifecycle.Machine[lifecycle.BookingStatus]
	now        func() time.Time
}

// NewBookingService creates a booking service. dispatcher may be nil, in
// which case change events wait in the outbox for the relay.
func NewBookingService(db *gorm.DB, dispatcher *Dispatcher) *BookingService {
	return &BookingService{
		db:         db,
		dispatcher: dispatcher,
		machine:    lifecycle.BookingMachine(),
		now:        time.Now,
	}
}

// NewBooking is the input for Create
type NewBooking struct {
	PartnerID   uint
	PetID       *uint
	ServiceName string
	ScheduledAt time.Time
	TotalAmount decimal.Decimal
	Notes       *string
}

// BookingTransition is the outcome of a status change request
type BookingTransition struct {
	Booking *models.Booking
	Notice  string
	Changed bool // false when the booking already had the requested status
}

// Create books an appointment for a customer. New bookings start pending.
func (s *BookingService) Create(ctx context.Context, customer *models.User, in NewBooking) (*models.Booking, error) {
	if customer.Role != models.RoleCustomer {
		return nil, ErrForbidden
	}
	if strings.TrimSpace(in.ServiceName) == "" {
		return nil, &ValidationError{Field: "service_name", Message: "is required"}
	}
	if in.TotalAmount.IsNegative() {
		return nil, &ValidationError{Field: "total_amount", Message: "must not be negative"}
	}
	if !in.ScheduledAt.After(s.now()) {
		return nil, &ValidationError{Field: "scheduled_at", Message: "must be in the future"}
	}

	db := s.db.WithContext(ctx)
	var partner models.Partner
	if err := db.First(&partner, in.PartnerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &ValidationError{Field: "partner_id", Message: "partner not found"}
		}
		return nil, err
	}
	if in.PetID != nil {
		var pet models.Pet
		if err := db.Where("id = ? AND owner_id = ?", *in.PetID, customer.ID).First(&pet).Error; err != nil {
			return nil, &ValidationError{Field: "pet_id", Message: "pet not found"}
		}
	}

	booking := models.Booking{
		PartnerID:   partner.ID,
		CustomerID:  customer.ID,
		PetID:       in.PetID,
		ServiceName: strings.TrimSpace(in.ServiceName),
		ScheduledAt: in.ScheduledAt,
		TotalAmount: in.TotalAmount,
		Status:      lifecycle.BookingPending,
		Notes:       in.Notes,
		Version:     1,
	}
	if err := db.Create(&booking).Error; err != nil {
		return nil, fmt.Errorf("create booking: %w", err)
	}

	logger.Log.Info("[booking-service] booking created", "booking_id", booking.ID, "partner_id", partner.ID)
	return s.Get(ctx, customer, booking.ID)
}

// Get returns a booking visible to the user: its customer or the owning partner
func (s *BookingService) Get(ctx context.Context, user *models.User, id uint) (*models.Booking, error) {
	var booking models.Booking
	if err := s.db.WithContext(ctx).Preload("Customer").First(&booking, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := s.authorize(ctx, user, &booking); err != nil {
		return nil, err
	}
	return &booking, nil
}

// List returns the partner's bookings, or the customer's own, newest first.
// status narrows the list to one tab when set.
func (s *BookingService) List(ctx context.Context, user *models.User, status string) ([]models.Booking, error) {
	query := s.db.WithContext(ctx).Model(&models.Booking{}).Preload("Customer")

	if user.IsPartner() {
		partner, err := partnerOf(ctx, s.db, user)
		if err != nil {
			return nil, err
		}
		query = query.Where("partner_id = ?", partner.ID)
	} else {
		query = query.Where("customer_id = ?", user.ID)
	}

	if status != "" {
		parsed, err := lifecycle.ParseBookingStatus(status)
		if err != nil {
			return nil, err
		}
		query = query.Where("status = ?", string(parsed))
	}

	bookings := []models.Booking{}
	if err := query.Order("scheduled_at DESC").Find(&bookings).Error; err != nil {
		return nil, err
	}
	return bookings, nil
}

// Transition moves a booking to target on behalf of its partner. When
// expectedVersion is set it must match the stored version.
func (s *BookingService) Transition(ctx context.Context, user *models.User, id uint, target string, expectedVersion *int) (*BookingTransition, error) {
	to, err := lifecycle.ParseBookingStatus(target)
	if err != nil {
		return nil, err
	}
	if !user.IsPartner() {
		return nil, ErrForbidden
	}

	booking, err := s.Get(ctx, user, id)
	if err != nil {
		return nil, err
	}
	if expectedVersion != nil && *expectedVersion != booking.Version {
		return nil, ErrStaleVersion
	}

	event, err := s.machine.Resolve(booking.Status, to)
	if err != nil {
		return nil, err
	}
	if event == lifecycle.NoopEvent {
		return &BookingTransition{Booking: booking, Notice: s.machine.Notice(to), Changed: false}, nil
	}

	change := StatusChange{
		ID:         booking.ID,
		PartnerID:  booking.PartnerID,
		CustomerID: booking.CustomerID,
		From:       string(booking.Status),
		To:         string(to),
		Event:      string(event),
		Version:    booking.Version + 1,
		Notice:     s.machine.Notice(to),
		OccurredAt: s.now().UTC(),
	}
	outboxEvent, err := writeStatus(ctx, s.db, &models.Booking{}, KindBookingStatusChanged, "booking", change, booking.Version)
	if err != nil {
		return nil, err
	}
	logger.Log.Info("[booking-service] status changed",
		"booking_id", booking.ID, "from", change.From, "to", change.To, "version", change.Version)

	s.dispatcher.DispatchAfterCommit(ctx, outboxEvent)

	// Reload so the caller sees exactly what was stored.
	refreshed, err := s.Get(ctx, user, id)
	if err != nil {
		return nil, err
	}
	return &BookingTransition{Booking: refreshed, Notice: change.Notice, Changed: true}, nil
}

func (s *BookingService) authorize(ctx context.Context, user *models.User, booking *models.Booking) error {
	if user.IsPartner() {
		partner, err := partnerOf(ctx, s.db, user)
		if err != nil {
			return err
		}
		if partner.ID != booking.PartnerID {
			return ErrForbidden
		}
		return nil
	}
	if booking.CustomerID != user.ID {
		return ErrForbidden
	}
	return nil
}

// partnerOf finds the business owned by a partner profile
func partnerOf(ctx context.Context, db *gorm.DB, user *models.User) (*models.Partner, error) {
	if !user.IsPartner() {
		return nil, ErrForbidden
	}
	var partner models.Partner
	if err := db.WithContext(ctx).Where("owner_id = ?", user.ID).First(&partner).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrForbidden
		}
		return nil, err
	}
	return &partner, nil
}
