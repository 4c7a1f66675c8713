package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/nextcart/storefront-backend/pkg/db/models"
	"github.com/nextcart/storefront-backend/pkg/enums"
	pkgerrors "github.com/nextcart/storefront-backend/pkg/errors"
	"github.com/nextcart/storefront-backend/pkg/pagination"
)

type stubOrderRepo struct {
	orders  map[uuid.UUID]*models.Order
	listErr error
}

func newStubOrderRepo() *stubOrderRepo {
	return &stubOrderRepo{orders: map[uuid.UUID]*models.Order{}}
}

func (s *stubOrderRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubOrderRepo) CreateOrder(ctx context.Context, order *models.Order) error {
	s.orders[order.ID] = order
	return nil
}

func (s *stubOrderRepo) CreateOrderItems(ctx context.Context, items []models.OrderItem) error {
	return nil
}

func (s *stubOrderRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, ok := s.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return order, nil
}

func (s *stubOrderRepo) ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params, filters ListFilters) ([]models.Order, string, error) {
	if s.listErr != nil {
		return nil, "", s.listErr
	}
	var rows []models.Order
	for _, order := range s.orders {
		if order.UserID == userID {
			rows = append(rows, *order)
		}
	}
	return rows, "", nil
}

func newTestOrder(userID uuid.UUID) *models.Order {
	return &models.Order{
		ID:              uuid.New(),
		UserID:          userID,
		Status:          enums.OrderStatusPending,
		PaymentStatus:   enums.PaymentStatusPaid,
		Subtotal:        decimal.NewFromFloat(30),
		Total:           decimal.NewFromFloat(30),
		ShippingAddress: "1 Test Lane",
		Items: []models.OrderItem{
			{ID: uuid.New(), Name: "Canvas Tote", UnitPrice: decimal.NewFromFloat(15), Quantity: 2, LineTotal: decimal.NewFromFloat(30)},
		},
		CreatedAt: time.Now().UTC(),
	}
}

func TestListMineAnonymousGetsEmptyPage(t *testing.T) {
	svc, err := NewService(ServiceParams{Repo: newStubOrderRepo()})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	list, err := svc.ListMine(context.Background(), nil, pagination.Params{}, ListFilters{})
	if err != nil {
		t.Fatalf("ListMine: %v", err)
	}
	if list.Orders == nil || len(list.Orders) != 0 {
		t.Fatalf("expected empty non-nil page, got %#v", list.Orders)
	}
	if list.NextCursor != "" {
		t.Fatalf("expected empty cursor, got %q", list.NextCursor)
	}
}

func TestListMineReturnsSummaries(t *testing.T) {
	repo := newStubOrderRepo()
	userID := uuid.New()
	order := newTestOrder(userID)
	repo.orders[order.ID] = order

	svc, err := NewService(ServiceParams{Repo: repo})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	list, err := svc.ListMine(context.Background(), &userID, pagination.Params{}, ListFilters{})
	if err != nil {
		t.Fatalf("ListMine: %v", err)
	}
	if len(list.Orders) != 1 {
		t.Fatalf("expected 1 summary, got %d", len(list.Orders))
	}
	summary := list.Orders[0]
	if summary.ID != order.ID {
		t.Fatalf("unexpected order id")
	}
	if summary.ItemCount != 2 {
		t.Fatalf("expected item count 2, got %d", summary.ItemCount)
	}
	if !summary.Total.Equal(decimal.NewFromFloat(30)) {
		t.Fatalf("unexpected total %s", summary.Total)
	}
}

func TestListMineSurfacesQueryErrors(t *testing.T) {
	repo := newStubOrderRepo()
	repo.listErr = pkgerrors.New(pkgerrors.CodeValidation, "invalid cursor")

	svc, err := NewService(ServiceParams{Repo: repo})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	userID := uuid.New()
	_, err = svc.ListMine(context.Background(), &userID, pagination.Params{Cursor: "junk"}, ListFilters{})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestGetMineReturnsOwnOrder(t *testing.T) {
	repo := newStubOrderRepo()
	userID := uuid.New()
	order := newTestOrder(userID)
	repo.orders[order.ID] = order

	svc, err := NewService(ServiceParams{Repo: repo})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	dto, err := svc.GetMine(context.Background(), userID, order.ID)
	if err != nil {
		t.Fatalf("GetMine: %v", err)
	}
	if dto.ID != order.ID || len(dto.Items) != 1 {
		t.Fatalf("unexpected order payload")
	}
}

func TestGetMineRejectsOtherUsersOrder(t *testing.T) {
	repo := newStubOrderRepo()
	owner := uuid.New()
	order := newTestOrder(owner)
	repo.orders[order.ID] = order

	svc, err := NewService(ServiceParams{Repo: repo})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	_, err = svc.GetMine(context.Background(), uuid.New(), order.ID)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden error, got %v", err)
	}
}

func TestGetMineNotFound(t *testing.T) {
	svc, err := NewService(ServiceParams{Repo: newStubOrderRepo()})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	_, err = svc.GetMine(context.Background(), uuid.New(), uuid.New())
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found error, got %v", err)
	}
}
