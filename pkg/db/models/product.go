package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product represents a storefront catalog listing. Inventory is the live
// on-hand count decremented by checkout; IsActive gates visibility and
// purchasability.
type Product struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Name        string          `gorm:"column:name;not null"`
	Description string          `gorm:"column:description;not null;default:''"`
	SKU         *string         `gorm:"column:sku"`
	Category    string          `gorm:"column:category;not null;default:''"`
	ImageURL    *string         `gorm:"column:image_url"`
	Price       decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	Inventory   int             `gorm:"column:inventory;not null;default:0"`
	IsActive    bool            `gorm:"column:is_active;not null"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
