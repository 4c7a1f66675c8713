package checkout

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/nextcart/storefront-backend/internal/catalog"
	"github.com/nextcart/storefront-backend/internal/orders"
	"github.com/nextcart/storefront-backend/pkg/config"
	"github.com/nextcart/storefront-backend/pkg/db/models"
	"github.com/nextcart/storefront-backend/pkg/enums"
	pkgerrors "github.com/nextcart/storefront-backend/pkg/errors"
	"github.com/nextcart/storefront-backend/pkg/logger"
	"github.com/nextcart/storefront-backend/pkg/metrics"
)

// Service places orders. Execute runs the whole checkout inside one database
// transaction: stock validation, payment authorization, guarded inventory
// decrements and order persistence either all succeed or none do.
type Service interface {
	Execute(ctx context.Context, input Input) (*orders.OrderDTO, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	runner     txRunner
	authorizer PaymentAuthorizer
	cfg        config.CheckoutConfig
	metrics    *metrics.CheckoutMetrics
	logg       *logger.Logger
}

// ServiceParams carries the dependencies for NewService.
type ServiceParams struct {
	Runner     txRunner
	Authorizer PaymentAuthorizer
	Config     config.CheckoutConfig
	Metrics    *metrics.CheckoutMetrics
	Logger     *logger.Logger
}

// NewService builds the checkout service. Metrics may be nil.
func NewService(params ServiceParams) (Service, error) {
	if params.Runner == nil {
		return nil, fmt.Errorf("checkout service requires a transaction runner")
	}
	if params.Authorizer == nil {
		return nil, fmt.Errorf("checkout service requires a payment authorizer")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("checkout service requires a logger")
	}
	return &service{
		runner:     params.Runner,
		authorizer: params.Authorizer,
		cfg:        params.Config,
		metrics:    params.Metrics,
		logg:       params.Logger,
	}, nil
}

// mergedLine is a cart line after duplicate product ids are collapsed.
type mergedLine struct {
	ProductID uuid.UUID
	Quantity  int
}

func (s *service) Execute(ctx context.Context, input Input) (*orders.OrderDTO, error) {
	start := time.Now()

	order, err := s.execute(ctx, input)
	if err != nil {
		s.metrics.ObserveDuration("rejected", time.Since(start))
		if typed := pkgerrors.As(err); typed != nil {
			s.metrics.IncRejected(string(typed.Code()))
		} else {
			s.metrics.IncRejected(string(pkgerrors.CodeInternal))
		}
		return nil, err
	}

	s.metrics.ObserveDuration("placed", time.Since(start))
	s.metrics.IncPlaced()
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"order_id": order.ID.String(),
		"total":    order.Total.String(),
	}), "order placed")

	return order, nil
}

func (s *service) execute(ctx context.Context, input Input) (*orders.OrderDTO, error) {
	if input.UserID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "checkout requires authentication")
	}
	userID := *input.UserID

	lines, err := s.validateInput(input)
	if err != nil {
		return nil, err
	}
	shipping := strings.TrimSpace(input.ShippingAddress)

	var placed *orders.OrderDTO
	err = s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		products, err := s.loadProducts(ctx, tx, lines)
		if err != nil {
			return err
		}

		items, subtotal, err := buildLineItems(lines, products)
		if err != nil {
			return err
		}
		total := subtotal

		authorization, err := s.authorizer.Authorize(ctx, userID, total)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "authorize payment")
		}
		if !authorization.Approved {
			return pkgerrors.New(pkgerrors.CodeConflict, "payment declined").
				WithDetails(map[string]string{"reason": authorization.DeclineReason})
		}

		for _, line := range lines {
			ok, err := DecrementInventory(ctx, tx, line.ProductID, line.Quantity)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decrement inventory")
			}
			if !ok {
				name := products[line.ProductID].Name
				return pkgerrors.New(pkgerrors.CodeValidation,
					fmt.Sprintf("insufficient inventory for %s", name))
			}
		}

		order := &models.Order{
			ID:              uuid.New(),
			UserID:          userID,
			Status:          enums.OrderStatusPending,
			PaymentStatus:   enums.PaymentStatusPaid,
			Subtotal:        subtotal,
			Total:           total,
			ShippingAddress: shipping,
		}

		repo := orders.NewRepositoryWithDB(tx)
		if err := repo.CreateOrder(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create order")
		}
		for i := range items {
			items[i].ID = uuid.New()
			items[i].OrderID = order.ID
		}
		if err := repo.CreateOrderItems(ctx, items); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create order items")
		}

		order.Items = items
		placed = orders.NewOrderDTO(order)
		return nil
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "checkout transaction")
	}

	return placed, nil
}

// validateInput checks request shape before any database work and collapses
// duplicate product ids, preserving first-seen order.
func (s *service) validateInput(input Input) ([]mergedLine, error) {
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one item is required")
	}

	shipping := strings.TrimSpace(input.ShippingAddress)
	if s.cfg.ShippingMaxLen > 0 && len(shipping) > s.cfg.ShippingMaxLen {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("shipping address exceeds %d characters", s.cfg.ShippingMaxLen))
	}

	index := map[uuid.UUID]int{}
	var lines []mergedLine
	for _, item := range input.Items {
		if item.ProductID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
		}
		if item.Quantity < 1 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
		}
		if pos, ok := index[item.ProductID]; ok {
			lines[pos].Quantity += item.Quantity
			continue
		}
		index[item.ProductID] = len(lines)
		lines = append(lines, mergedLine{ProductID: item.ProductID, Quantity: item.Quantity})
	}

	if s.cfg.MaxItems > 0 && len(lines) > s.cfg.MaxItems {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("cart exceeds %d distinct items", s.cfg.MaxItems))
	}
	for _, line := range lines {
		if s.cfg.MaxQtyPerItem > 0 && line.Quantity > s.cfg.MaxQtyPerItem {
			return nil, pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("quantity exceeds %d per item", s.cfg.MaxQtyPerItem))
		}
	}

	return lines, nil
}

// loadProducts re-reads every requested product inside the transaction so
// pricing and stock reflect committed state, not whatever the client saw.
func (s *service) loadProducts(ctx context.Context, tx *gorm.DB, lines []mergedLine) (map[uuid.UUID]models.Product, error) {
	ids := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.ProductID)
	}

	rows, err := catalog.NewRepository(tx).FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load products")
	}
	if len(rows) != len(ids) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "one or more products are unavailable")
	}

	products := make(map[uuid.UUID]models.Product, len(rows))
	for _, row := range rows {
		products[row.ID] = row
	}
	return products, nil
}

func buildLineItems(lines []mergedLine, products map[uuid.UUID]models.Product) ([]models.OrderItem, decimal.Decimal, error) {
	items := make([]models.OrderItem, 0, len(lines))
	subtotal := decimal.Zero

	for _, line := range lines {
		product := products[line.ProductID]

		if product.Inventory < line.Quantity {
			return nil, decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("insufficient inventory for %s", product.Name))
		}
		if !product.Price.IsPositive() {
			return nil, decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("invalid price for %s", product.Name))
		}

		lineTotal := product.Price.Mul(decimal.NewFromInt(int64(line.Quantity)))
		subtotal = subtotal.Add(lineTotal)

		productID := product.ID
		items = append(items, models.OrderItem{
			ProductID: &productID,
			Name:      product.Name,
			UnitPrice: product.Price,
			Quantity:  line.Quantity,
			LineTotal: lineTotal,
		})
	}

	return items, subtotal, nil
}
