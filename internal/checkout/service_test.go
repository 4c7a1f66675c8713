package checkout

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/nextcart/storefront-backend/internal/orders"
	"github.com/nextcart/storefront-backend/pkg/config"
	"github.com/nextcart/storefront-backend/pkg/db/models"
	"github.com/nextcart/storefront-backend/pkg/enums"
	pkgerrors "github.com/nextcart/storefront-backend/pkg/errors"
	"github.com/nextcart/storefront-backend/pkg/logger"
)

// gormTxRunner adapts a test database to the service's transaction runner.
type gormTxRunner struct {
	db *gorm.DB
}

func (r *gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

type recordingAuthorizer struct {
	amount   decimal.Decimal
	userID   uuid.UUID
	approved bool
	reason   string
	err      error
}

func (a *recordingAuthorizer) Authorize(_ context.Context, userID uuid.UUID, amount decimal.Decimal) (*PaymentAuthorization, error) {
	a.userID = userID
	a.amount = amount
	if a.err != nil {
		return nil, a.err
	}
	return &PaymentAuthorization{Approved: a.approved, Reference: "ref-1", DeclineReason: a.reason}, nil
}

func testCheckoutConfig() config.CheckoutConfig {
	return config.CheckoutConfig{MaxItems: 50, MaxQtyPerItem: 999, ShippingMaxLen: 500}
}

func newTestService(t *testing.T, gdb *gorm.DB, authorizer PaymentAuthorizer) Service {
	t.Helper()

	svc, err := NewService(ServiceParams{
		Runner:     &gormTxRunner{db: gdb},
		Authorizer: authorizer,
		Config:     testCheckoutConfig(),
		Logger:     logger.New(logger.Options{ServiceName: "checkout-test", Output: io.Discard}),
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func countOrders(t *testing.T, gdb *gorm.DB) int64 {
	t.Helper()

	var count int64
	if err := gdb.Model(&models.Order{}).Count(&count).Error; err != nil {
		t.Fatalf("count orders: %v", err)
	}
	return count
}

func TestExecutePlacesOrder(t *testing.T) {
	gdb := newTestDB(t)
	lamp := mustCreateProduct(t, gdb, "Desk Lamp", 12.50, 5)
	mug := mustCreateProduct(t, gdb, "Coffee Mug", 5.25, 10)

	authorizer := &recordingAuthorizer{approved: true}
	svc := newTestService(t, gdb, authorizer)
	userID := uuid.New()

	// The duplicate lamp line must be merged into a single quantity-2 item.
	order, err := svc.Execute(context.Background(), Input{
		UserID: &userID,
		Items: []ItemInput{
			{ProductID: lamp.ID, Quantity: 1},
			{ProductID: mug.ID, Quantity: 1},
			{ProductID: lamp.ID, Quantity: 1},
		},
		ShippingAddress: "1 Test Lane",
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	expectedTotal := decimal.NewFromFloat(30.25)
	if !order.Total.Equal(expectedTotal) {
		t.Fatalf("expected total %s, got %s", expectedTotal, order.Total)
	}
	if !order.Subtotal.Equal(expectedTotal) {
		t.Fatalf("expected subtotal %s, got %s", expectedTotal, order.Subtotal)
	}
	if order.Status != enums.OrderStatusPending {
		t.Fatalf("expected PENDING status, got %s", order.Status)
	}
	if order.PaymentStatus != enums.PaymentStatusPaid {
		t.Fatalf("expected PAID payment status, got %s", order.PaymentStatus)
	}
	if len(order.Items) != 2 {
		t.Fatalf("expected 2 merged items, got %d", len(order.Items))
	}
	if order.Items[0].Quantity != 2 || order.Items[0].Name != "Desk Lamp" {
		t.Fatalf("expected merged lamp line first, got %+v", order.Items[0])
	}
	if !authorizer.amount.Equal(expectedTotal) {
		t.Fatalf("authorizer charged %s, want %s", authorizer.amount, expectedTotal)
	}
	if authorizer.userID != userID {
		t.Fatalf("authorizer saw wrong user")
	}

	if got := reloadProduct(t, gdb, lamp.ID).Inventory; got != 3 {
		t.Fatalf("expected lamp inventory 3, got %d", got)
	}
	if got := reloadProduct(t, gdb, mug.ID).Inventory; got != 9 {
		t.Fatalf("expected mug inventory 9, got %d", got)
	}

	persisted, err := orders.NewRepositoryWithDB(gdb).FindByID(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("reload order: %v", err)
	}
	if len(persisted.Items) != 2 {
		t.Fatalf("expected 2 persisted items, got %d", len(persisted.Items))
	}
	if !persisted.Items[0].UnitPrice.Equal(lamp.Price) && !persisted.Items[1].UnitPrice.Equal(lamp.Price) {
		t.Fatal("expected snapshot of the lamp unit price")
	}
}

func TestExecuteRequiresAuthentication(t *testing.T) {
	gdb := newTestDB(t)
	svc := newTestService(t, gdb, &recordingAuthorizer{approved: true})

	_, err := svc.Execute(context.Background(), Input{
		Items:           []ItemInput{{ProductID: uuid.New(), Quantity: 1}},
		ShippingAddress: "1 Test Lane",
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized error, got %v", err)
	}
}

func TestExecuteInputValidation(t *testing.T) {
	gdb := newTestDB(t)
	product := mustCreateProduct(t, gdb, "Desk Lamp", 12.50, 5)
	svc := newTestService(t, gdb, &recordingAuthorizer{approved: true})
	userID := uuid.New()

	longAddress := make([]byte, 501)
	for i := range longAddress {
		longAddress[i] = 'a'
	}

	cases := []struct {
		name  string
		input Input
	}{
		{
			name:  "empty items",
			input: Input{UserID: &userID, ShippingAddress: "1 Test Lane"},
		},
		{
			name: "zero quantity",
			input: Input{
				UserID:          &userID,
				Items:           []ItemInput{{ProductID: product.ID, Quantity: 0}},
				ShippingAddress: "1 Test Lane",
			},
		},
		{
			name: "missing product id",
			input: Input{
				UserID:          &userID,
				Items:           []ItemInput{{Quantity: 1}},
				ShippingAddress: "1 Test Lane",
			},
		},
		{
			name: "shipping address too long",
			input: Input{
				UserID:          &userID,
				Items:           []ItemInput{{ProductID: product.ID, Quantity: 1}},
				ShippingAddress: string(longAddress),
			},
		},
		{
			name: "quantity over per-item cap",
			input: Input{
				UserID:          &userID,
				Items:           []ItemInput{{ProductID: product.ID, Quantity: 1000}},
				ShippingAddress: "1 Test Lane",
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Execute(context.Background(), tc.input)
			typed := pkgerrors.As(err)
			if typed == nil || typed.Code() != pkgerrors.CodeValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}

	if got := countOrders(t, gdb); got != 0 {
		t.Fatalf("expected no orders, found %d", got)
	}
}

func TestExecuteAllowsMissingShippingAddress(t *testing.T) {
	gdb := newTestDB(t)
	lamp := mustCreateProduct(t, gdb, "Desk Lamp", 12.50, 5)
	svc := newTestService(t, gdb, &recordingAuthorizer{approved: true})
	userID := uuid.New()

	order, err := svc.Execute(context.Background(), Input{
		UserID: &userID,
		Items:  []ItemInput{{ProductID: lamp.ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("Execute without shipping address: %v", err)
	}
	if order.ShippingAddress != "" {
		t.Fatalf("expected empty shipping address, got %q", order.ShippingAddress)
	}
	if got := reloadProduct(t, gdb, lamp.ID).Inventory; got != 4 {
		t.Fatalf("expected inventory 4, got %d", got)
	}
}

func TestExecuteRejectsUnknownProducts(t *testing.T) {
	gdb := newTestDB(t)
	svc := newTestService(t, gdb, &recordingAuthorizer{approved: true})
	userID := uuid.New()

	_, err := svc.Execute(context.Background(), Input{
		UserID:          &userID,
		Items:           []ItemInput{{ProductID: uuid.New(), Quantity: 1}},
		ShippingAddress: "1 Test Lane",
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}

	if got := countOrders(t, gdb); got != 0 {
		t.Fatalf("expected no orders, found %d", got)
	}
}

func TestExecuteNamesSoldOutProduct(t *testing.T) {
	gdb := newTestDB(t)
	lamp := mustCreateProduct(t, gdb, "Desk Lamp", 12.50, 1)
	svc := newTestService(t, gdb, &recordingAuthorizer{approved: true})
	userID := uuid.New()

	// First checkout takes the last unit and auto-deactivates the product.
	if _, err := svc.Execute(context.Background(), Input{
		UserID:          &userID,
		Items:           []ItemInput{{ProductID: lamp.ID, Quantity: 1}},
		ShippingAddress: "1 Test Lane",
	}); err != nil {
		t.Fatalf("first checkout: %v", err)
	}
	if got := reloadProduct(t, gdb, lamp.ID); got.Inventory != 0 || got.IsActive {
		t.Fatalf("expected sold-out deactivated product, got %+v", got)
	}

	// A second attempt must still name the product, not treat it as missing.
	_, err := svc.Execute(context.Background(), Input{
		UserID:          &userID,
		Items:           []ItemInput{{ProductID: lamp.ID, Quantity: 1}},
		ShippingAddress: "1 Test Lane",
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if typed.Message() != "insufficient inventory for Desk Lamp" {
		t.Fatalf("expected the sold-out product named, got %q", typed.Message())
	}

	if got := countOrders(t, gdb); got != 1 {
		t.Fatalf("expected only the first order, found %d", got)
	}
}

// newFileTestDB opens a file-backed database so two connections contend
// through real sqlite locking. Immediate transactions plus a busy timeout
// make the loser wait for the winner's commit instead of erroring out.
func newFileTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?_busy_timeout=10000&_txlock=immediate",
		filepath.Join(t.TempDir(), "checkout.db"))
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := gdb.AutoMigrate(&models.Product{}, &models.Order{}, &models.OrderItem{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return gdb
}

func TestExecuteConcurrentCheckoutsLastUnit(t *testing.T) {
	gdb := newFileTestDB(t)
	lamp := mustCreateProduct(t, gdb, "Desk Lamp", 12.50, 1)
	svc := newTestService(t, gdb, &recordingAuthorizer{approved: true})

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			userID := uuid.New()
			_, errs[i] = svc.Execute(context.Background(), Input{
				UserID:          &userID,
				Items:           []ItemInput{{ProductID: lamp.ID, Quantity: 1}},
				ShippingAddress: "1 Test Lane",
			})
		}(i)
	}
	wg.Wait()

	var won, lost int
	for _, err := range errs {
		if err == nil {
			won++
			continue
		}
		lost++
		typed := pkgerrors.As(err)
		if typed == nil || typed.Code() != pkgerrors.CodeValidation {
			t.Fatalf("loser must see a validation error, got %v", err)
		}
		if typed.Message() != "insufficient inventory for Desk Lamp" {
			t.Fatalf("loser must see the product named, got %q", typed.Message())
		}
	}
	if won != 1 || lost != 1 {
		t.Fatalf("expected exactly one winner, got %d winners and %d losers", won, lost)
	}

	final := reloadProduct(t, gdb, lamp.ID)
	if final.Inventory != 0 {
		t.Fatalf("inventory must never go negative, got %d", final.Inventory)
	}
	if final.IsActive {
		t.Fatal("sold-out product must be deactivated")
	}
	if got := countOrders(t, gdb); got != 1 {
		t.Fatalf("expected a single order, found %d", got)
	}
}

func TestExecuteRejectsInsufficientInventory(t *testing.T) {
	gdb := newTestDB(t)
	lamp := mustCreateProduct(t, gdb, "Desk Lamp", 12.50, 2)
	svc := newTestService(t, gdb, &recordingAuthorizer{approved: true})
	userID := uuid.New()

	_, err := svc.Execute(context.Background(), Input{
		UserID:          &userID,
		Items:           []ItemInput{{ProductID: lamp.ID, Quantity: 3}},
		ShippingAddress: "1 Test Lane",
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}

	if got := reloadProduct(t, gdb, lamp.ID).Inventory; got != 2 {
		t.Fatalf("inventory must be untouched, got %d", got)
	}
	if got := countOrders(t, gdb); got != 0 {
		t.Fatalf("expected no orders, found %d", got)
	}
}

func TestExecuteDeclinedPaymentRollsBack(t *testing.T) {
	gdb := newTestDB(t)
	lamp := mustCreateProduct(t, gdb, "Desk Lamp", 12.50, 5)
	svc := newTestService(t, gdb, &recordingAuthorizer{approved: false, reason: "card_declined"})
	userID := uuid.New()

	_, err := svc.Execute(context.Background(), Input{
		UserID:          &userID,
		Items:           []ItemInput{{ProductID: lamp.ID, Quantity: 1}},
		ShippingAddress: "1 Test Lane",
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict error, got %v", err)
	}

	if got := reloadProduct(t, gdb, lamp.ID).Inventory; got != 5 {
		t.Fatalf("inventory must be untouched, got %d", got)
	}
	if got := countOrders(t, gdb); got != 0 {
		t.Fatalf("expected no orders, found %d", got)
	}
}

func TestExecuteAuthorizerFailureRollsBack(t *testing.T) {
	gdb := newTestDB(t)
	lamp := mustCreateProduct(t, gdb, "Desk Lamp", 12.50, 5)
	svc := newTestService(t, gdb, &recordingAuthorizer{err: errors.New("processor timeout")})
	userID := uuid.New()

	_, err := svc.Execute(context.Background(), Input{
		UserID:          &userID,
		Items:           []ItemInput{{ProductID: lamp.ID, Quantity: 1}},
		ShippingAddress: "1 Test Lane",
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}

	if got := reloadProduct(t, gdb, lamp.ID).Inventory; got != 5 {
		t.Fatalf("inventory must be untouched, got %d", got)
	}
	if got := countOrders(t, gdb); got != 0 {
		t.Fatalf("expected no orders, found %d", got)
	}
}

func TestExecuteRollsBackAfterPartialWrites(t *testing.T) {
	gdb := newTestDB(t)
	lamp := mustCreateProduct(t, gdb, "Desk Lamp", 12.50, 5)
	svc := newTestService(t, gdb, &recordingAuthorizer{approved: true})
	userID := uuid.New()

	// Force the item insert to fail after the inventory decrement and the
	// order insert have already run inside the transaction.
	if err := gdb.Migrator().DropTable(&models.OrderItem{}); err != nil {
		t.Fatalf("drop order_items: %v", err)
	}

	_, err := svc.Execute(context.Background(), Input{
		UserID:          &userID,
		Items:           []ItemInput{{ProductID: lamp.ID, Quantity: 2}},
		ShippingAddress: "1 Test Lane",
	})
	if err == nil {
		t.Fatal("expected checkout to fail")
	}

	if got := reloadProduct(t, gdb, lamp.ID).Inventory; got != 5 {
		t.Fatalf("inventory decrement must be rolled back, got %d", got)
	}
	if got := countOrders(t, gdb); got != 0 {
		t.Fatalf("order insert must be rolled back, found %d", got)
	}
}
