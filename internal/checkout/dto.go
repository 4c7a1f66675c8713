package checkout

import (
	"github.com/google/uuid"
)

// ItemInput is one requested cart line. Duplicate product ids across lines
// are merged by summing their quantities before validation.
type ItemInput struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,min=1"`
}

// Input is a checkout request. UserID comes from the session, never the body.
// ShippingAddress may be empty; digital-only carts ship nothing.
type Input struct {
	UserID          *uuid.UUID  `json:"-"`
	Items           []ItemInput `json:"items" validate:"required,min=1,dive"`
	ShippingAddress string      `json:"shipping_address,omitempty"`
}
