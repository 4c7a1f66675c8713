package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/nextcart/storefront-backend/pkg/db/models"
	"github.com/nextcart/storefront-backend/pkg/enums"
	pkgerrors "github.com/nextcart/storefront-backend/pkg/errors"
)

// Service exposes catalog browse and management operations.
type Service interface {
	ListProducts(ctx context.Context, input ListProductsInput) (*ProductListResult, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*ProductDTO, error)
	ListFeatured(ctx context.Context, limit int) ([]ProductSummary, error)
	SearchProducts(ctx context.Context, query string, limit int) ([]ProductSummary, error)
	CreateProduct(ctx context.Context, role enums.UserRole, input CreateProductInput) (*ProductDTO, error)
	UpdateProduct(ctx context.Context, role enums.UserRole, id uuid.UUID, input UpdateProductInput) (*ProductDTO, error)
	DeleteProduct(ctx context.Context, role enums.UserRole, id uuid.UUID) error
}

// CreateProductInput holds the validated payload to create a product.
type CreateProductInput struct {
	Name        string
	Description string
	SKU         *string
	Category    string
	ImageURL    *string
	Price       decimal.Decimal
	Inventory   int
	IsActive    bool
}

// UpdateProductInput holds optional mutation values for a product.
type UpdateProductInput struct {
	Name        *string
	Description *string
	SKU         *string
	Category    *string
	ImageURL    *string
	Price       *decimal.Decimal
	Inventory   *int
	IsActive    *bool
}

type repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	CreateProduct(ctx context.Context, product *models.Product) (*models.Product, error)
	UpdateProduct(ctx context.Context, product *models.Product) (*models.Product, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error
	ListFeatured(ctx context.Context, limit int) ([]models.Product, error)
	SearchActive(ctx context.Context, query string, limit int) ([]models.Product, error)
	ListSummaries(ctx context.Context, input ListProductsInput) (*ProductListResult, error)
}

type service struct {
	repo repository
}

// NewService constructs a catalog service instance.
func NewService(repo repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) ListProducts(ctx context.Context, input ListProductsInput) (*ProductListResult, error) {
	result, err := s.repo.ListSummaries(ctx, input)
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list products")
	}
	return result, nil
}

func (s *service) GetProduct(ctx context.Context, id uuid.UUID) (*ProductDTO, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}
	if !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return NewProductDTO(product), nil
}

func (s *service) ListFeatured(ctx context.Context, limit int) ([]ProductSummary, error) {
	rows, err := s.repo.ListFeatured(ctx, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list featured products")
	}
	summaries := make([]ProductSummary, 0, len(rows))
	for _, row := range rows {
		summaries = append(summaries, newSummary(row))
	}
	return summaries, nil
}

const searchMaxLimit = 20

func (s *service) SearchProducts(ctx context.Context, query string, limit int) ([]ProductSummary, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "search query is required")
	}
	if limit < 1 || limit > searchMaxLimit {
		limit = searchMaxLimit
	}

	rows, err := s.repo.SearchActive(ctx, query, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "search products")
	}
	summaries := make([]ProductSummary, 0, len(rows))
	for _, row := range rows {
		summaries = append(summaries, newSummary(row))
	}
	return summaries, nil
}

func (s *service) CreateProduct(ctx context.Context, role enums.UserRole, input CreateProductInput) (*ProductDTO, error) {
	if err := ensureCatalogManager(role); err != nil {
		return nil, err
	}
	if err := validateProductFields(input.Name, input.Price, input.Inventory); err != nil {
		return nil, err
	}

	product := &models.Product{
		Name:        strings.TrimSpace(input.Name),
		Description: input.Description,
		SKU:         input.SKU,
		Category:    strings.TrimSpace(input.Category),
		ImageURL:    input.ImageURL,
		Price:       input.Price,
		Inventory:   input.Inventory,
		IsActive:    input.IsActive,
	}

	created, err := s.repo.CreateProduct(ctx, product)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert product")
	}
	return NewProductDTO(created), nil
}

func (s *service) UpdateProduct(ctx context.Context, role enums.UserRole, id uuid.UUID, input UpdateProductInput) (*ProductDTO, error) {
	if err := ensureCatalogManager(role); err != nil {
		return nil, err
	}

	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}

	if input.Name != nil {
		product.Name = strings.TrimSpace(*input.Name)
	}
	if input.Description != nil {
		product.Description = *input.Description
	}
	if input.SKU != nil {
		product.SKU = input.SKU
	}
	if input.Category != nil {
		product.Category = strings.TrimSpace(*input.Category)
	}
	if input.ImageURL != nil {
		product.ImageURL = input.ImageURL
	}
	if input.Price != nil {
		product.Price = *input.Price
	}
	if input.Inventory != nil {
		product.Inventory = *input.Inventory
	}
	if input.IsActive != nil {
		product.IsActive = *input.IsActive
	}

	if err := validateProductFields(product.Name, product.Price, product.Inventory); err != nil {
		return nil, err
	}

	updated, err := s.repo.UpdateProduct(ctx, product)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update product")
	}
	return NewProductDTO(updated), nil
}

func (s *service) DeleteProduct(ctx context.Context, role enums.UserRole, id uuid.UUID) error {
	if err := ensureCatalogManager(role); err != nil {
		return err
	}
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}
	if err := s.repo.DeleteProduct(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete product")
	}
	return nil
}

func ensureCatalogManager(role enums.UserRole) error {
	if !role.CanManageCatalog() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "catalog management requires staff access")
	}
	return nil
}

func validateProductFields(name string, price decimal.Decimal, inventory int) error {
	if strings.TrimSpace(name) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if price.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
	}
	if inventory < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "inventory cannot be negative")
	}
	return nil
}
