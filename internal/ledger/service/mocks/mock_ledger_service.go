package mocks

import (
	"context"

	"github.com/ridloal/inventory-pos/internal/ledger/domain"
	"github.com/stretchr/testify/mock"
)

type MockLedgerService struct {
	mock.Mock
}

func (m *MockLedgerService) GetStock(ctx context.Context, productID int64) (*domain.StockRecord, error) {
	args := m.Called(ctx, productID)
	if rec := args.Get(0); rec != nil {
		return rec.(*domain.StockRecord), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLedgerService) AdjustStock(ctx context.Context, productID int64, delta int) (*domain.StockRecord, error) {
	args := m.Called(ctx, productID, delta)
	if rec := args.Get(0); rec != nil {
		return rec.(*domain.StockRecord), args.Error(1)
	}
	return nil, args.Error(1)
}
