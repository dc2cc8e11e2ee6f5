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

// OrderService manages merchandise orders and their status machine
type OrderService struct {
	db                    *gorm.DB
	dispatcher            *Dispatcher
	machine               *lifecycle.Machine[lifecycle.OrderStatus]
	defaultCommissionRate decimal.Decimal
	now                   func() time.Time
}

// NewOrderService creates an order service
func NewOrderService(db *gorm.DB, dispatcher *Dispatcher, defaultCommissionRate decimal.Decimal) *OrderService {
	return &OrderService{
		db:                    db,
		dispatcher:            dispatcher,
		machine:               lifecycle.OrderMachine(),
		defaultCommissionRate: defaultCommissionRate,
		now:                   time.Now,
	}
}

// LineItem is one requested product in a checkout
type LineItem struct {
	Name     string
	Quantity int
	Price    decimal.Decimal
}

// OrderTransition is the outcome of a status change request
type OrderTransition struct {
	Order   *models.Order
	Notice  string
	Changed bool
}

// TabCounts is the number of orders listed under each partner tab
type TabCounts struct {
	Pending    int64 `json:"pending"`
	Processing int64 `json:"processing"`
	Completed  int64 `json:"completed"`
	Cancelled  int64 `json:"cancelled"`
}

// PartnerAnalytics aggregates a partner's sales
type PartnerAnalytics struct {
	Orders            TabCounts        `json:"orders"`
	DeliveredRevenue  decimal.Decimal  `json:"delivered_revenue"`
	CommissionTotal   decimal.Decimal  `json:"commission_total"`
	PayoutTotal       decimal.Decimal  `json:"payout_total"`
	BookingsByStatus  map[string]int64 `json:"bookings_by_status"`
	CompletedBookings decimal.Decimal  `json:"completed_bookings_revenue"`
}

// Checkout places an order for a customer. Totals are computed from the line
// items and the partner's commission rate.
func (s *OrderService) Checkout(ctx context.Context, customer *models.User, partnerID uint, items []LineItem) (*models.Order, error) {
	if customer.Role != models.RoleCustomer {
		return nil, ErrForbidden
	}
	if len(items) == 0 {
		return nil, &ValidationError{Field: "items", Message: "at least one item is required"}
	}

	db := s.db.WithContext(ctx)
	var partner models.Partner
	if err := db.First(&partner, partnerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &ValidationError{Field: "partner_id", Message: "partner not found"}
		}
		return nil, err
	}

	order := models.Order{
		PartnerID:  partner.ID,
		CustomerID: customer.ID,
		Status:     lifecycle.OrderPending,
		Version:    1,
	}
	for i, item := range items {
		if strings.TrimSpace(item.Name) == "" {
			return nil, &ValidationError{Field: fmt.Sprintf("items[%d].name", i), Message: "is required"}
		}
		if item.Quantity <= 0 {
			return nil, &ValidationError{Field: fmt.Sprintf("items[%d].quantity", i), Message: "must be greater than zero"}
		}
		if item.Price.IsNegative() {
			return nil, &ValidationError{Field: fmt.Sprintf("items[%d].price", i), Message: "must not be negative"}
		}
		order.Items = append(order.Items, models.OrderItem{
			Name:     strings.TrimSpace(item.Name),
			Quantity: item.Quantity,
			Price:    item.Price,
		})
	}

	rate := s.defaultCommissionRate
	if partner.CommissionRate.Valid {
		rate = partner.CommissionRate.Decimal
	}
	order.ApplyCommission(rate)

	if err := db.Create(&order).Error; err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	logger.Log.Info("[order-service] order placed", "order_id", order.ID, "partner_id", partner.ID, "total", order.TotalAmount.String())
	return s.Get(ctx, customer, order.ID)
}

// Get returns an order visible to the user
func (s *OrderService) Get(ctx context.Context, user *models.User, id uint) (*models.Order, error) {
	var order models.Order
	if err := s.db.WithContext(ctx).Preload("Items").Preload("Customer").First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if user.IsPartner() {
		partner, err := partnerOf(ctx, s.db, user)
		if err != nil {
			return nil, err
		}
		if partner.ID != order.PartnerID {
			return nil, ErrForbidden
		}
	} else if order.CustomerID != user.ID {
		return nil, ErrForbidden
	}
	return &order, nil
}

// List returns the partner's orders, or the customer's own, newest first.
// tab narrows the list to one partner tab when set.
func (s *OrderService) List(ctx context.Context, user *models.User, tab string) ([]models.Order, error) {
	query := s.db.WithContext(ctx).Model(&models.Order{}).Preload("Items").Preload("Customer")

	if user.IsPartner() {
		partner, err := partnerOf(ctx, s.db, user)
		if err != nil {
			return nil, err
		}
		query = query.Where("partner_id = ?", partner.ID)
	} else {
		query = query.Where("customer_id = ?", user.ID)
	}

	if tab != "" {
		statuses := lifecycle.TabStatuses(tab)
		if statuses == nil {
			return nil, &ValidationError{Field: "tab", Message: "unknown tab " + tab}
		}
		names := make([]string, len(statuses))
		for i, st := range statuses {
			names[i] = string(st)
		}
		query = query.Where("status IN ?", names)
	}

	orders := []models.Order{}
	if err := query.Order("created_at DESC").Order("id DESC").Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// Counts returns the partner's order count per tab
func (s *OrderService) Counts(ctx context.Context, user *models.User) (*TabCounts, error) {
	partner, err := partnerOf(ctx, s.db, user)
	if err != nil {
		return nil, err
	}
	return s.tabCounts(ctx, partner.ID)
}

func (s *OrderService) tabCounts(ctx context.Context, partnerID uint) (*TabCounts, error) {
	var rows []struct {
		Status string
		Total  int64
	}
	if err := s.db.WithContext(ctx).Model(&models.Order{}).
		Select("status, COUNT(*) AS total").
		Where("partner_id = ?", partnerID).
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := &TabCounts{}
	for _, row := range rows {
		switch lifecycle.OrderTab(lifecycle.OrderStatus(row.Status)) {
		case lifecycle.TabPending:
			counts.Pending += row.Total
		case lifecycle.TabProcessing:
			counts.Processing += row.Total
		case lifecycle.TabCompleted:
			counts.Completed += row.Total
		case lifecycle.TabCancelled:
			counts.Cancelled += row.Total
		}
	}
	return counts, nil
}

// Transition moves an order to target on behalf of its partner
func (s *OrderService) Transition(ctx context.Context, user *models.User, id uint, target string, expectedVersion *int) (*OrderTransition, error) {
	to, err := lifecycle.ParseOrderStatus(target)
	if err != nil {
		return nil, err
	}
	if !user.IsPartner() {
		return nil, ErrForbidden
	}

	order, err := s.Get(ctx, user, id)
	if err != nil {
		return nil, err
	}
	if expectedVersion != nil && *expectedVersion != order.Version {
		return nil, ErrStaleVersion
	}

	event, err := s.machine.Resolve(order.Status, to)
	if err != nil {
		return nil, err
	}
	if event == lifecycle.NoopEvent {
		return &OrderTransition{Order: order, Notice: s.machine.Notice(to), Changed: false}, nil
	}

	change := StatusChange{
		ID:         order.ID,
		PartnerID:  order.PartnerID,
		CustomerID: order.CustomerID,
		From:       string(order.Status),
		To:         string(to),
		Event:      string(event),
		Version:    order.Version + 1,
		Notice:     s.machine.Notice(to),
		OccurredAt: s.now().UTC(),
	}
	outboxEvent, err := writeStatus(ctx, s.db, &models.Order{}, KindOrderStatusChanged, "order", change, order.Version)
	if err != nil {
		return nil, err
	}
	logger.Log.Info("[order-service] status changed",
		"order_id", order.ID, "from", change.From, "to", change.To, "version", change.Version)

	s.dispatcher.DispatchAfterCommit(ctx, outboxEvent)

	refreshed, err := s.Get(ctx, user, id)
	if err != nil {
		return nil, err
	}
	return &OrderTransition{Order: refreshed, Notice: change.Notice, Changed: true}, nil
}

// Analytics aggregates the partner's orders and bookings
func (s *OrderService) Analytics(ctx context.Context, user *models.User) (*PartnerAnalytics, error) {
	partner, err := partnerOf(ctx, s.db, user)
	if err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)

	counts, err := s.tabCounts(ctx, partner.ID)
	if err != nil {
		return nil, err
	}

	var sums struct {
		Revenue    decimal.NullDecimal
		Commission decimal.NullDecimal
		Payout     decimal.NullDecimal
	}
	if err := db.Model(&models.Order{}).
		Select("SUM(total_amount) AS revenue, SUM(commission_amount) AS commission, SUM(partner_payout) AS payout").
		Where("partner_id = ? AND status = ?", partner.ID, string(lifecycle.OrderDelivered)).
		Scan(&sums).Error; err != nil {
		return nil, err
	}

	var bookingRows []struct {
		Status string
		Total  int64
	}
	if err := db.Model(&models.Booking{}).
		Select("status, COUNT(*) AS total").
		Where("partner_id = ?", partner.ID).
		Group("status").
		Scan(&bookingRows).Error; err != nil {
		return nil, err
	}
	byStatus := map[string]int64{}
	for _, row := range bookingRows {
		byStatus[row.Status] = row.Total
	}

	var bookingRevenue struct {
		Revenue decimal.NullDecimal
	}
	if err := db.Model(&models.Booking{}).
		Select("SUM(total_amount) AS revenue").
		Where("partner_id = ? AND status = ?", partner.ID, string(lifecycle.BookingCompleted)).
		Scan(&bookingRevenue).Error; err != nil {
		return nil, err
	}

	return &PartnerAnalytics{
		Orders:            *counts,
		DeliveredRevenue:  orZero(sums.Revenue),
		CommissionTotal:   orZero(sums.Commission),
		PayoutTotal:       orZero(sums.Payout),
		BookingsByStatus:  byStatus,
		CompletedBookings: orZero(bookingRevenue.Revenue),
	}, nil
}

func orZero(d decimal.NullDecimal) decimal.Decimal {
	if d.Valid {
		return d.Decimal
	}
	return decimal.Zero
}
