package checkout

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentAuthorization is the outcome of a payment attempt. Reference is the
// processor's id for an approved charge; DeclineReason is set when not approved.
type PaymentAuthorization struct {
	Approved      bool
	Reference     string
	DeclineReason string
}

// PaymentAuthorizer charges the buyer for an order total. Implementations
// run inside the checkout transaction, so a returned error or a decline
// rolls the whole order back.
type PaymentAuthorizer interface {
	Authorize(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (*PaymentAuthorization, error)
}

// AutoApproveAuthorizer approves every charge. It stands in until a real
// payment processor is wired up.
type AutoApproveAuthorizer struct{}

func (AutoApproveAuthorizer) Authorize(_ context.Context, _ uuid.UUID, _ decimal.Decimal) (*PaymentAuthorization, error) {
	return &PaymentAuthorization{
		Approved:  true,
		Reference: fmt.Sprintf("auto-%s", uuid.New().String()),
	}, nil
}
