package mocks

import (
	"context"

	"github.com/ridloal/inventory-pos/internal/catalog/domain"
	"github.com/stretchr/testify/mock"
)

type MockMetadataRepository struct {
	mock.Mock
}

func (m *MockMetadataRepository) Upsert(ctx context.Context, md *domain.Metadata) error {
	args := m.Called(ctx, md)
	return args.Error(0)
}

func (m *MockMetadataRepository) FindByProductIDs(ctx context.Context, ids []int64) (map[int64]domain.Metadata, error) {
	args := m.Called(ctx, ids)
	if res := args.Get(0); res != nil {
		return res.(map[int64]domain.Metadata), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockMetadataRepository) SetImages(ctx context.Context, productID int64, images []string) error {
	args := m.Called(ctx, productID, images)
	return args.Error(0)
}

func (m *MockMetadataRepository) Delete(ctx context.Context, productID int64) error {
	args := m.Called(ctx, productID)
	return args.Error(0)
}
