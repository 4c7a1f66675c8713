package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nextcart/storefront-backend/pkg/db/models"
)

// ProductDTO represents the catalog product payload returned to clients.
type ProductDTO struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	SKU         *string         `json:"sku,omitempty"`
	Category    string          `json:"category"`
	ImageURL    *string         `json:"image_url,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Inventory   int             `json:"inventory"`
	IsActive    bool            `json:"is_active"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// ProductSummary is the trimmed row shape used by list endpoints.
type ProductSummary struct {
	ID        uuid.UUID       `json:"id"`
	Name      string          `json:"name"`
	SKU       *string         `json:"sku,omitempty"`
	Category  string          `json:"category"`
	ImageURL  *string         `json:"image_url,omitempty"`
	Price     decimal.Decimal `json:"price"`
	Inventory int             `json:"inventory"`
	CreatedAt time.Time       `json:"created_at"`
}

// ProductListResult bundles a page of summaries with the follow-up cursor.
type ProductListResult struct {
	Products   []ProductSummary `json:"products"`
	NextCursor string           `json:"next_cursor,omitempty"`
}

// NewProductDTO builds a DTO from the persisted model.
func NewProductDTO(product *models.Product) *ProductDTO {
	if product == nil {
		return nil
	}
	return &ProductDTO{
		ID:          product.ID,
		Name:        product.Name,
		Description: product.Description,
		SKU:         product.SKU,
		Category:    product.Category,
		ImageURL:    product.ImageURL,
		Price:       product.Price,
		Inventory:   product.Inventory,
		IsActive:    product.IsActive,
		CreatedAt:   product.CreatedAt,
		UpdatedAt:   product.UpdatedAt,
	}
}

func newSummary(product models.Product) ProductSummary {
	return ProductSummary{
		ID:        product.ID,
		Name:      product.Name,
		SKU:       product.SKU,
		Category:  product.Category,
		ImageURL:  product.ImageURL,
		Price:     product.Price,
		Inventory: product.Inventory,
		CreatedAt: product.CreatedAt,
	}
}
