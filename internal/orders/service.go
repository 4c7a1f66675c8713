package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgerrors "github.com/nextcart/storefront-backend/pkg/errors"
	"github.com/nextcart/storefront-backend/pkg/pagination"
)

// Service exposes buyer-facing order history reads.
type Service interface {
	// ListMine returns the caller's order history, newest first. Anonymous
	// callers (nil userID) get an empty page rather than an error so the
	// endpoint can render for signed-out sessions.
	ListMine(ctx context.Context, userID *uuid.UUID, params pagination.Params, filters ListFilters) (*OrderList, error)
	// GetMine returns one of the caller's orders with its line items.
	GetMine(ctx context.Context, userID uuid.UUID, orderID uuid.UUID) (*OrderDTO, error)
}

type service struct {
	repo Repository
}

// ServiceParams carries the dependencies for NewService.
type ServiceParams struct {
	Repo Repository
}

// NewService builds the order history service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders service requires a repository")
	}
	return &service{repo: params.Repo}, nil
}

func (s *service) ListMine(ctx context.Context, userID *uuid.UUID, params pagination.Params, filters ListFilters) (*OrderList, error) {
	if userID == nil {
		return &OrderList{Orders: []OrderSummary{}}, nil
	}

	rows, nextCursor, err := s.repo.ListByUser(ctx, *userID, params, filters)
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}

	summaries := make([]OrderSummary, 0, len(rows))
	for i := range rows {
		summaries = append(summaries, newSummary(&rows[i]))
	}

	return &OrderList{Orders: summaries, NextCursor: nextCursor}, nil
}

func (s *service) GetMine(ctx context.Context, userID uuid.UUID, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}

	if order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another user")
	}

	return NewOrderDTO(order), nil
}
