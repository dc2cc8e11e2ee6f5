package services

import (
	"context"
	"errors"
	"testing"

	"github.com/petconnect/petconnect-api/lifecycle"
	"github.com/petconnect/petconnect-api/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func checkoutTestOrder(t *testing.T, f *testFixture, svc *OrderService) *models.Order {
	order, err := svc.Checkout(context.Background(), &f.customer, f.partner.ID, []LineItem{
		{Name: "Pienso adulto 3kg", Quantity: 2, Price: dec("12.50")},
		{Name: "Collar antipulgas", Quantity: 1, Price: dec("5.00")},
	})
	require.NoError(t, err)
	return order
}

func TestOrderCheckoutTotals(t *testing.T) {
	f := newTestFixture(t)
	svc := NewOrderService(f.db, nil, dec("0.10"))

	order := checkoutTestOrder(t, f, svc)
	assert.Equal(t, lifecycle.OrderPending, order.Status)
	assert.Len(t, order.Items, 2)
	assert.True(t, order.TotalAmount.Equal(dec("30")), order.TotalAmount.String())
	assert.True(t, order.CommissionAmount.Equal(dec("3")), order.CommissionAmount.String())
	assert.True(t, order.PartnerPayout.Equal(dec("27")), order.PartnerPayout.String())
}

func TestOrderCheckoutUsesPartnerRate(t *testing.T) {
	f := newTestFixture(t)
	require.NoError(t, f.db.Model(&f.partner).Update("commission_rate", "0.15").Error)
	svc := NewOrderService(f.db, nil, dec("0.10"))

	order, err := svc.Checkout(context.Background(), &f.customer, f.partner.ID, []LineItem{
		{Name: "Champú", Quantity: 3, Price: dec("3.33")},
	})
	require.NoError(t, err)

	// 9.99 * 0.15 = 1.4985, rounded to cents
	assert.True(t, order.CommissionAmount.Equal(dec("1.5")), order.CommissionAmount.String())
	assert.True(t, order.PartnerPayout.Equal(dec("8.49")), order.PartnerPayout.String())
}

func TestOrderCheckoutValidation(t *testing.T) {
	f := newTestFixture(t)
	svc := NewOrderService(f.db, nil, dec("0.10"))
	ctx := context.Background()

	_, err := svc.Checkout(ctx, &f.partnerUser, f.partner.ID, []LineItem{{Name: "x", Quantity: 1, Price: dec("1")}})
	assert.ErrorIs(t, err, ErrForbidden)

	tests := []struct {
		name  string
		items []LineItem
		field string
	}{
		{"no items", nil, "items"},
		{"blank name", []LineItem{{Name: " ", Quantity: 1, Price: dec("1")}}, "items[0].name"},
		{"zero quantity", []LineItem{{Name: "x", Quantity: 1, Price: dec("1")}, {Name: "y", Quantity: 0, Price: dec("1")}}, "items[1].quantity"},
		{"negative price", []LineItem{{Name: "x", Quantity: 1, Price: dec("-0.01")}}, "items[0].price"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Checkout(ctx, &f.customer, f.partner.ID, tt.items)
			var ve *ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tt.field, ve.Field)
		})
	}

	var count int64
	f.db.Model(&models.Order{}).Count(&count)
	assert.Zero(t, count)
}

func TestOrderLifecycleAndTabCounts(t *testing.T) {
	f := newTestFixture(t)
	dispatcher, pub := newTestDispatcher(f.db, 5)
	svc := NewOrderService(f.db, dispatcher, dec("0.10"))
	ctx := context.Background()

	order := checkoutTestOrder(t, f, svc)
	checkoutTestOrder(t, f, svc)

	counts, err := svc.Counts(ctx, &f.partnerUser)
	require.NoError(t, err)
	assert.Equal(t, TabCounts{Pending: 2}, *counts)

	for _, step := range []struct {
		target string
		notice string
		counts TabCounts
	}{
		{"processing", "Pedido en preparación", TabCounts{Pending: 1, Processing: 1}},
		{"shipped", "Pedido enviado", TabCounts{Pending: 1, Processing: 1}},
		{"delivered", "Pedido entregado", TabCounts{Pending: 1, Completed: 1}},
	} {
		result, err := svc.Transition(ctx, &f.partnerUser, order.ID, step.target, nil)
		require.NoError(t, err, step.target)
		assert.True(t, result.Changed)
		assert.Equal(t, step.notice, result.Notice)

		counts, err := svc.Counts(ctx, &f.partnerUser)
		require.NoError(t, err)
		assert.Equal(t, step.counts, *counts, step.target)
	}

	shippedTab, err := svc.List(ctx, &f.partnerUser, lifecycle.TabCompleted)
	require.NoError(t, err)
	require.Len(t, shippedTab, 1)
	assert.Equal(t, order.ID, shippedTab[0].ID)
	assert.Equal(t, 4, shippedTab[0].Version)

	_, err = svc.List(ctx, &f.partnerUser, "archived")
	var ve *ValidationError
	assert.True(t, errors.As(err, &ve))

	assert.Len(t, pub.Messages(), 3)
	for _, m := range pub.Messages() {
		assert.Equal(t, KindOrderStatusChanged, m.RoutingKey)
	}
}

func TestOrderHasNoReverseMoves(t *testing.T) {
	f := newTestFixture(t)
	svc := NewOrderService(f.db, nil, dec("0.10"))
	ctx := context.Background()

	order := checkoutTestOrder(t, f, svc)
	_, err := svc.Transition(ctx, &f.partnerUser, order.ID, "cancelled", nil)
	require.NoError(t, err)

	// bookings can be restored from cancelled, orders cannot
	_, err = svc.Transition(ctx, &f.partnerUser, order.ID, "pending", nil)
	var te *lifecycle.TransitionError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "order", te.Machine)
	assert.Equal(t, []string{}, te.Allowed)

	other := checkoutTestOrder(t, f, svc)
	_, err = svc.Transition(ctx, &f.partnerUser, other.ID, "shipped", nil)
	require.True(t, errors.As(err, &te))
	assert.Equal(t, []string{"cancelled", "processing"}, te.Allowed)
}

func TestOrderTransitionAccess(t *testing.T) {
	f := newTestFixture(t)
	svc := NewOrderService(f.db, nil, dec("0.10"))
	ctx := context.Background()
	order := checkoutTestOrder(t, f, svc)

	_, err := svc.Transition(ctx, &f.customer, order.ID, "processing", nil)
	assert.ErrorIs(t, err, ErrForbidden)

	groomer, _ := f.secondPartner(t)
	_, err = svc.Transition(ctx, &groomer, order.ID, "processing", nil)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.Get(ctx, &f.other, order.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.Counts(ctx, &f.customer)
	assert.ErrorIs(t, err, ErrForbidden)

	stale := 0
	_, err = svc.Transition(ctx, &f.partnerUser, order.ID, "processing", &stale)
	assert.ErrorIs(t, err, ErrStaleVersion)

	result, err := svc.Transition(ctx, &f.partnerUser, order.ID, "pending", nil)
	require.NoError(t, err)
	assert.False(t, result.Changed)
	assert.Equal(t, "Pedido pendiente", result.Notice)
}

func TestPartnerAnalytics(t *testing.T) {
	f := newTestFixture(t)
	orders := NewOrderService(f.db, nil, dec("0.10"))
	bookings := NewBookingService(f.db, nil)
	ctx := context.Background()

	delivered := checkoutTestOrder(t, f, orders)
	for _, target := range []string{"processing", "shipped", "delivered"} {
		_, err := orders.Transition(ctx, &f.partnerUser, delivered.ID, target, nil)
		require.NoError(t, err)
	}
	checkoutTestOrder(t, f, orders)

	done := createTestBooking(t, f, bookings)
	for _, target := range []string{"confirmed", "completed"} {
		_, err := bookings.Transition(ctx, &f.partnerUser, done.ID, target, nil)
		require.NoError(t, err)
	}
	createTestBooking(t, f, bookings)

	analytics, err := orders.Analytics(ctx, &f.partnerUser)
	require.NoError(t, err)

	assert.Equal(t, TabCounts{Pending: 1, Completed: 1}, analytics.Orders)
	assert.True(t, analytics.DeliveredRevenue.Equal(dec("30")), analytics.DeliveredRevenue.String())
	assert.True(t, analytics.CommissionTotal.Equal(dec("3")), analytics.CommissionTotal.String())
	assert.True(t, analytics.PayoutTotal.Equal(dec("27")), analytics.PayoutTotal.String())
	assert.Equal(t, map[string]int64{"completed": 1, "pending": 1}, analytics.BookingsByStatus)
	assert.True(t, analytics.CompletedBookings.Equal(dec("35")), analytics.CompletedBookings.String())
}

func TestPartnerAnalyticsEmpty(t *testing.T) {
	f := newTestFixture(t)
	svc := NewOrderService(f.db, nil, dec("0.10"))

	analytics, err := svc.Analytics(context.Background(), &f.partnerUser)
	require.NoError(t, err)
	assert.True(t, analytics.DeliveredRevenue.Equal(decimal.Zero))
	assert.Empty(t, analytics.BookingsByStatus)
}
