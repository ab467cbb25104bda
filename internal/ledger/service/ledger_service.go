package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ridloal/inventory-pos/internal/ledger/domain"
	"github.com/ridloal/inventory-pos/internal/ledger/repository"
	"github.com/ridloal/inventory-pos/internal/platform/cache"
	"github.com/ridloal/inventory-pos/internal/platform/logger"
	"go.uber.org/zap"
)

var ErrZeroDelta = errors.New("delta must not be zero")

type LedgerService interface {
	GetStock(ctx context.Context, productID int64) (*domain.StockRecord, error)
	// AdjustStock applies a signed delta in its own transaction (restock or write-off).
	AdjustStock(ctx context.Context, productID int64, delta int) (*domain.StockRecord, error)
}

type ledgerServiceImpl struct {
	repo  repository.LedgerRepository
	cache cache.Cache
}

// NewLedgerService returns the ledger surface. c may be nil; when set, stock
// adjustments invalidate cached catalog listings.
func NewLedgerService(repo repository.LedgerRepository, c cache.Cache) LedgerService {
	if c == nil {
		c = cache.Noop{}
	}
	return &ledgerServiceImpl{repo: repo, cache: c}
}

func (s *ledgerServiceImpl) GetStock(ctx context.Context, productID int64) (*domain.StockRecord, error) {
	rec, err := s.repo.GetStock(ctx, productID)
	if err != nil {
		return nil, TranslateError(productID, err)
	}
	return rec, nil
}

func (s *ledgerServiceImpl) AdjustStock(ctx context.Context, productID int64, delta int) (*domain.StockRecord, error) {
	if delta == 0 {
		return nil, ErrZeroDelta
	}

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		logger.Error("AdjustStock: failed to begin transaction", err)
		return nil, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	defer tx.Rollback()

	if _, err := s.repo.LockStockForUpdate(ctx, tx, productID); err != nil {
		return nil, TranslateError(productID, err)
	}
	newQty, err := s.repo.ApplyDelta(ctx, tx, productID, delta)
	if err != nil {
		return nil, TranslateError(productID, err)
	}
	if err := tx.Commit(); err != nil {
		logger.Error("AdjustStock: failed to commit transaction", err, zap.Int64("product_id", productID))
		return nil, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	s.cache.Invalidate(ctx)

	logger.Info("Stock adjusted", zap.Int64("product_id", productID), zap.Int("delta", delta), zap.Int("quantity", newQty))
	return &domain.StockRecord{ProductID: productID, Quantity: newQty, UpdatedAt: time.Now()}, nil
}

// TranslateError maps repository errors for productID onto the domain taxonomy.
func TranslateError(productID int64, err error) error {
	switch {
	case errors.Is(err, repository.ErrStockNotFound):
		return &domain.NotFoundError{ProductID: productID}
	case errors.Is(err, repository.ErrInsufficientStock), errors.Is(err, repository.ErrStockOutOfBounds):
		return &domain.InsufficientStockError{ProductID: productID}
	default:
		return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
}
