package models

import (
	"testing"

	"github.com/petconnect/petconnect-api/lifecycle"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupModelTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	if err := db.AutoMigrate(All()...); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	return db
}

func sampleOrder() Order {
	return Order{
		PartnerID:  1,
		CustomerID: 2,
		Status:     lifecycle.OrderPending,
		Items: []OrderItem{
			{Name: "Pienso adulto 3kg", Quantity: 2, Price: decimal.RequireFromString("18.50")},
			{Name: "Collar antipulgas", Quantity: 1, Price: decimal.RequireFromString("12.00")},
		},
	}
}

func TestOrderApplyCommission(t *testing.T) {
	order := sampleOrder()
	order.ApplyCommission(decimal.RequireFromString("0.10"))

	assert.True(t, decimal.RequireFromString("49.00").Equal(order.TotalAmount), "total = 2*18.50 + 12.00")
	assert.True(t, decimal.RequireFromString("4.90").Equal(order.CommissionAmount))
	assert.True(t, decimal.RequireFromString("44.10").Equal(order.PartnerPayout))
}

func TestOrderCommissionRoundsToCents(t *testing.T) {
	order := Order{Items: []OrderItem{{Name: "Juguete", Quantity: 1, Price: decimal.RequireFromString("9.99")}}}
	order.ApplyCommission(decimal.RequireFromString("0.125"))

	assert.True(t, decimal.RequireFromString("1.25").Equal(order.CommissionAmount))
	assert.True(t, order.CommissionAmount.Add(order.PartnerPayout).Equal(order.TotalAmount))
}

func TestOrderBeforeCreate(t *testing.T) {
	db := setupModelTestDB(t)

	t.Run("consistent totals are stored", func(t *testing.T) {
		order := sampleOrder()
		order.ApplyCommission(decimal.RequireFromString("0.10"))
		require.NoError(t, db.Create(&order).Error)

		var stored Order
		require.NoError(t, db.Preload("Items").First(&stored, order.ID).Error)
		assert.Len(t, stored.Items, 2)
		assert.True(t, decimal.RequireFromString("49").Equal(stored.TotalAmount))
		assert.Equal(t, 1, stored.Version)
	})

	t.Run("total not matching items is rejected", func(t *testing.T) {
		order := sampleOrder()
		order.ApplyCommission(decimal.RequireFromString("0.10"))
		order.TotalAmount = decimal.NewFromInt(500)
		assert.Error(t, db.Create(&order).Error)
	})

	t.Run("commission and payout must add up", func(t *testing.T) {
		order := sampleOrder()
		order.ApplyCommission(decimal.RequireFromString("0.10"))
		order.PartnerPayout = order.TotalAmount
		assert.Error(t, db.Create(&order).Error)
	})
}
