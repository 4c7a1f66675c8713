package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nextcart/storefront-backend/pkg/db/models"
	"github.com/nextcart/storefront-backend/pkg/enums"
)

// OrderItemDTO is a line-item snapshot taken at checkout time. ProductID is
// nil when the product has since been deleted from the catalog.
type OrderItemDTO struct {
	ID        uuid.UUID       `json:"id"`
	ProductID *uuid.UUID      `json:"product_id,omitempty"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// OrderDTO is the full order representation returned to the buyer.
type OrderDTO struct {
	ID              uuid.UUID           `json:"id"`
	UserID          uuid.UUID           `json:"user_id"`
	Status          enums.OrderStatus   `json:"status"`
	PaymentStatus   enums.PaymentStatus `json:"payment_status"`
	Subtotal        decimal.Decimal     `json:"subtotal"`
	Total           decimal.Decimal     `json:"total"`
	ShippingAddress string              `json:"shipping_address"`
	Items           []OrderItemDTO      `json:"items"`
	CreatedAt       time.Time           `json:"created_at"`
}

// OrderSummary is the list-view shape for order history pages.
type OrderSummary struct {
	ID            uuid.UUID           `json:"id"`
	Status        enums.OrderStatus   `json:"status"`
	PaymentStatus enums.PaymentStatus `json:"payment_status"`
	Total         decimal.Decimal     `json:"total"`
	ItemCount     int                 `json:"item_count"`
	CreatedAt     time.Time           `json:"created_at"`
}

// OrderList is a cursor page of order summaries. NextCursor is empty when
// there are no further pages.
type OrderList struct {
	Orders     []OrderSummary `json:"orders"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

// ListFilters narrows an order history query.
type ListFilters struct {
	Status *enums.OrderStatus
}

// NewOrderDTO maps a persisted order (with items preloaded) to its DTO.
func NewOrderDTO(order *models.Order) *OrderDTO {
	items := make([]OrderItemDTO, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, OrderItemDTO{
			ID:        item.ID,
			ProductID: item.ProductID,
			Name:      item.Name,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
			LineTotal: item.LineTotal,
		})
	}

	return &OrderDTO{
		ID:              order.ID,
		UserID:          order.UserID,
		Status:          order.Status,
		PaymentStatus:   order.PaymentStatus,
		Subtotal:        order.Subtotal,
		Total:           order.Total,
		ShippingAddress: order.ShippingAddress,
		Items:           items,
		CreatedAt:       order.CreatedAt,
	}
}

func newSummary(order *models.Order) OrderSummary {
	count := 0
	for _, item := range order.Items {
		count += item.Quantity
	}

	return OrderSummary{
		ID:            order.ID,
		Status:        order.Status,
		PaymentStatus: order.PaymentStatus,
		Total:         order.Total,
		ItemCount:     count,
		CreatedAt:     order.CreatedAt,
	}
}
