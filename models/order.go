package models

import (
	"fmt"
	"time"

	"github.com/petconnect/petconnect-api/lifecycle"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Order represents a merchandise purchase from a partner's catalog
type Order struct {
	ID               uint                  `gorm:"primaryKey" json:"id"`
	PartnerID        uint                  `gorm:"not null;index" json:"partner_id"`
	Partner          Partner               `gorm:"foreignKey:PartnerID" json:"-"`
	CustomerID       uint                  `gorm:"not null;index" json:"customer_id"`
	Customer         User                  `gorm:"foreignKey:CustomerID" json:"customer"`
	Items            []OrderItem           `gorm:"foreignKey:OrderID" json:"items"`
	TotalAmount      decimal.Decimal       `gorm:"type:decimal(12,2);not null" json:"total_amount"`
	CommissionAmount decimal.Decimal       `gorm:"type:decimal(12,2);not null" json:"commission_amount"`
	PartnerPayout    decimal.Decimal       `gorm:"type:decimal(12,2);not null" json:"partner_payout"`
	Status           lifecycle.OrderStatus `gorm:"not null;default:'pending';index" json:"status"`
	Version          int                   `gorm:"not null;default:1" json:"version"` // bumped on every status write
	CreatedAt        time.Time             `json:"created_at"`
	UpdatedAt        time.Time             `json:"updated_at"`
}

// OrderItem is a single line of an order
type OrderItem struct {
	ID       uint            `gorm:"primaryKey" json:"id"`
	OrderID  uint            `gorm:"not null;index" json:"order_id"`
	Name     string          `gorm:"not null" json:"name"`
	Quantity int             `gorm:"not null;check:quantity > 0" json:"quantity"`
	Price    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
}

// TableName specifies the table name for the Order model
func (Order) TableName() string {
	return "orders"
}

// TableName specifies the table name for the OrderItem model
func (OrderItem) TableName() string {
	return "order_items"
}

// Subtotal is quantity times unit price
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// ItemsTotal sums the line items
func (o *Order) ItemsTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// ApplyCommission fills the totals from the line items and a commission rate.
// The commission is rounded to cents and the payout takes the remainder.
func (o *Order) ApplyCommission(rate decimal.Decimal) {
	o.TotalAmount = o.ItemsTotal()
	o.CommissionAmount = o.TotalAmount.Mul(rate).Round(2)
	o.PartnerPayout = o.TotalAmount.Sub(o.CommissionAmount)
}

// BeforeCreate rejects orders whose stored totals disagree with their items
func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if !o.TotalAmount.Equal(o.ItemsTotal()) {
		return fmt.Errorf("order total %s does not match line items %s", o.TotalAmount, o.ItemsTotal())
	}
	if !o.CommissionAmount.Add(o.PartnerPayout).Equal(o.TotalAmount) {
		return fmt.Errorf("commission %s and payout %s do not add up to total %s",
			o.CommissionAmount, o.PartnerPayout, o.TotalAmount)
	}
	return nil
}
