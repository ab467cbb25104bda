package mocks

import (
	"context"

	"github.com/ridloal/inventory-pos/internal/catalog/domain"
	"github.com/ridloal/inventory-pos/internal/platform/database"
	"github.com/stretchr/testify/mock"
)

type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) ListProducts(ctx context.Context, category string) ([]domain.Product, error) {
	args := m.Called(ctx, category)
	if res := args.Get(0); res != nil {
		return res.([]domain.Product), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockProductRepository) GetProductByID(ctx context.Context, id int64) (*domain.Product, error) {
	args := m.Called(ctx, id)
	if res := args.Get(0); res != nil {
		return res.(*domain.Product), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockProductRepository) SearchProducts(ctx context.Context, term string) ([]domain.Product, error) {
	args := m.Called(ctx, term)
	if res := args.Get(0); res != nil {
		return res.([]domain.Product), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockProductRepository) LowStockProducts(ctx context.Context, threshold int) ([]domain.Product, error) {
	args := m.Called(ctx, threshold)
	if res := args.Get(0); res != nil {
		return res.([]domain.Product), args.Error(1)
	}
	return nil, args.Error(1)
}

// CreateProduct assigns ID 7 on success so callers can observe the id
// flowing into the stock and metadata writes.
func (m *MockProductRepository) CreateProduct(ctx context.Context, dbops database.DBTX, p *domain.Product) error {
	args := m.Called(ctx, dbops, p)
	if p != nil && args.Error(0) == nil {
		p.ID = 7
	}
	return args.Error(0)
}

func (m *MockProductRepository) UpdateProduct(ctx context.Context, dbops database.DBTX, p *domain.Product) error {
	args := m.Called(ctx, dbops, p)
	return args.Error(0)
}

func (m *MockProductRepository) DeleteProduct(ctx context.Context, dbops database.DBTX, id int64) error {
	args := m.Called(ctx, dbops, id)
	return args.Error(0)
}

func (m *MockProductRepository) BeginTx(ctx context.Context) (database.DBTX, error) {
	args := m.Called(ctx)
	if tx := args.Get(0); tx != nil {
		return tx.(database.DBTX), args.Error(1)
	}
	return nil, args.Error(1)
}
