package catalog

import (
	"github.com/shopspring/decimal"

	"github.com/nextcart/storefront-backend/pkg/pagination"
)

// ProductListFilters describe the supported filter knobs for the browse endpoint.
type ProductListFilters struct {
	Category *string          `json:"category,omitempty"`
	PriceMin *decimal.Decimal `json:"price_min,omitempty"`
	PriceMax *decimal.Decimal `json:"price_max,omitempty"`
	Query    string           `json:"q,omitempty"`
}

// ListProductsInput captures the inputs needed to paginate/filter the catalog.
// IncludeInactive is reserved for staff tooling; shopper reads leave it false.
type ListProductsInput struct {
	Filters         ProductListFilters
	Pagination      pagination.Params
	IncludeInactive bool
}
