package mocks

import (
	"context"

	"github.com/ridloal/inventory-pos/internal/ledger/domain"
	"github.com/ridloal/inventory-pos/internal/platform/database"
	"github.com/stretchr/testify/mock"
)

type MockLedgerRepository struct {
	mock.Mock
}

func (m *MockLedgerRepository) GetStock(ctx context.Context, productID int64) (*domain.StockRecord, error) {
	args := m.Called(ctx, productID)
	if s := args.Get(0); s != nil {
		return s.(*domain.StockRecord), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLedgerRepository) ListStockLevels(ctx context.Context) ([]domain.StockLevel, error) {
	args := m.Called(ctx)
	if l := args.Get(0); l != nil {
		return l.([]domain.StockLevel), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLedgerRepository) DailySaleTotals(ctx context.Context) ([]domain.DailySales, error) {
	args := m.Called(ctx)
	if d := args.Get(0); d != nil {
		return d.([]domain.DailySales), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLedgerRepository) LockStockForUpdate(ctx context.Context, dbops database.DBTX, productID int64) (*domain.StockRecord, error) {
	args := m.Called(ctx, dbops, productID)
	if s := args.Get(0); s != nil {
		return s.(*domain.StockRecord), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLedgerRepository) ApplyDelta(ctx context.Context, dbops database.DBTX, productID int64, delta int) (int, error) {
	args := m.Called(ctx, dbops, productID, delta)
	return args.Int(0), args.Error(1)
}

func (m *MockLedgerRepository) SetStock(ctx context.Context, dbops database.DBTX, productID int64, quantity int) error {
	args := m.Called(ctx, dbops, productID, quantity)
	return args.Error(0)
}

func (m *MockLedgerRepository) RecordSale(ctx context.Context, dbops database.DBTX, sale *domain.Sale) error {
	args := m.Called(ctx, dbops, sale)
	if sale != nil && args.Error(0) == nil {
		sale.ID = 42
		for i := range sale.Lines {
			sale.Lines[i].SaleID = sale.ID
			sale.Lines[i].ID = int64(i + 1)
		}
	}
	return args.Error(0)
}

func (m *MockLedgerRepository) PurgeProductHistory(ctx context.Context, dbops database.DBTX, productID int64) error {
	args := m.Called(ctx, dbops, productID)
	return args.Error(0)
}

func (m *MockLedgerRepository) BeginTx(ctx context.Context) (database.DBTX, error) {
	args := m.Called(ctx)
	if tx := args.Get(0); tx != nil {
		return tx.(database.DBTX), args.Error(1)
	}
	return nil, args.Error(1)
}
