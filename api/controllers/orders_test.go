package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nextcart/storefront-backend/api/middleware"
	"github.com/nextcart/storefront-backend/internal/orders"
	"github.com/nextcart/storefront-backend/pkg/enums"
	"github.com/nextcart/storefront-backend/pkg/pagination"
)

type stubOrdersService struct {
	list       *orders.OrderList
	order      *orders.OrderDTO
	err        error
	gotUserID  *uuid.UUID
	gotFilters orders.ListFilters
}

func (s *stubOrdersService) ListMine(_ context.Context, userID *uuid.UUID, _ pagination.Params, filters orders.ListFilters) (*orders.OrderList, error) {
	s.gotUserID = userID
	s.gotFilters = filters
	if s.err != nil {
		return nil, s.err
	}
	return s.list, nil
}

func (s *stubOrdersService) GetMine(_ context.Context, userID uuid.UUID, _ uuid.UUID) (*orders.OrderDTO, error) {
	s.gotUserID = &userID
	if s.err != nil {
		return nil, s.err
	}
	return s.order, nil
}

func TestListMyOrdersAnonymous(t *testing.T) {
	svc := &stubOrdersService{list: &orders.OrderList{Orders: []orders.OrderSummary{}}}
	handler := ListMyOrders(svc, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.gotUserID != nil {
		t.Fatal("anonymous request must pass a nil user id")
	}

	var envelope struct {
		Data orders.OrderList `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Orders == nil || len(envelope.Data.Orders) != 0 {
		t.Fatalf("expected empty order page, got %+v", envelope.Data.Orders)
	}
}

func TestListMyOrdersStatusFilter(t *testing.T) {
	uid := uuid.New()
	svc := &stubOrdersService{list: &orders.OrderList{Orders: []orders.OrderSummary{{
		ID:     uuid.New(),
		Status: enums.OrderStatusShipped,
		Total:  decimal.RequireFromString("42.50"),
	}}}}
	handler := ListMyOrders(svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders?status=SHIPPED", nil)
	req = req.WithContext(middleware.WithUserID(req.Context(), uid.String()))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.gotUserID == nil || *svc.gotUserID != uid {
		t.Fatalf("expected user id %s, got %v", uid, svc.gotUserID)
	}
	if svc.gotFilters.Status == nil || *svc.gotFilters.Status != enums.OrderStatusShipped {
		t.Fatalf("expected shipped filter, got %v", svc.gotFilters.Status)
	}
}

func TestListMyOrdersRejectsBadStatus(t *testing.T) {
	svc := &stubOrdersService{list: &orders.OrderList{Orders: []orders.OrderSummary{}}}
	handler := ListMyOrders(svc, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/orders?status=TELEPORTED", nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestGetMyOrderRequiresAuthentication(t *testing.T) {
	svc := &stubOrdersService{}
	handler := GetMyOrder(svc, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/orders/"+uuid.NewString(), nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if svc.gotUserID != nil {
		t.Fatal("service must not be called without authentication")
	}
}
