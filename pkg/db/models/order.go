package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nextcart/storefront-backend/pkg/enums"
)

// Order is the record produced by a successful checkout. Monetary fields are
// denormalized at placement time so later price edits never rewrite history.
type Order struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	UserID          uuid.UUID           `gorm:"column:user_id;type:uuid;not null;index:idx_orders_user_created,priority:1"`
	Status          enums.OrderStatus   `gorm:"column:status;type:text;not null;default:'PENDING'"`
	PaymentStatus   enums.PaymentStatus `gorm:"column:payment_status;type:text;not null;default:'PAID'"`
	Subtotal        decimal.Decimal     `gorm:"column:subtotal;type:numeric(12,2);not null"`
	Total           decimal.Decimal     `gorm:"column:total;type:numeric(12,2);not null"`
	ShippingAddress string              `gorm:"column:shipping_address;not null"`
	Items           []OrderItem         `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime;index:idx_orders_user_created,priority:2"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
