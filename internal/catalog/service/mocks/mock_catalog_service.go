package mocks

import (
	"context"

	"github.com/ridloal/inventory-pos/internal/catalog/domain"
	"github.com/stretchr/testify/mock"
)

type MockCatalogService struct {
	mock.Mock
}

func (m *MockCatalogService) ListProducts(ctx context.Context, category string) ([]domain.Product, error) {
	args := m.Called(ctx, category)
	if res := args.Get(0); res != nil {
		return res.([]domain.Product), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCatalogService) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	args := m.Called(ctx, id)
	if res := args.Get(0); res != nil {
		return res.(*domain.Product), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCatalogService) SearchProducts(ctx context.Context, query string) ([]domain.Product, error) {
	args := m.Called(ctx, query)
	if res := args.Get(0); res != nil {
		return res.([]domain.Product), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCatalogService) LowStockReport(ctx context.Context, threshold int) ([]domain.Product, error) {
	args := m.Called(ctx, threshold)
	if res := args.Get(0); res != nil {
		return res.([]domain.Product), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCatalogService) CreateProduct(ctx context.Context, req domain.CreateProductRequest, img *domain.Image) (*domain.Product, error) {
	args := m.Called(ctx, req, img)
	if res := args.Get(0); res != nil {
		return res.(*domain.Product), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCatalogService) UpdateProduct(ctx context.Context, id int64, req domain.UpdateProductRequest) (*domain.Product, error) {
	args := m.Called(ctx, id, req)
	if res := args.Get(0); res != nil {
		return res.(*domain.Product), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCatalogService) DeleteProduct(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockCatalogService) UpdateProductImage(ctx context.Context, id int64, img *domain.Image) ([]string, error) {
	args := m.Called(ctx, id, img)
	if res := args.Get(0); res != nil {
		return res.([]string), args.Error(1)
	}
	return nil, args.Error(1)
}
