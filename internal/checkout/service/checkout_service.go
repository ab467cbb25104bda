package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/ridloal/inventory-pos/internal/checkout/domain"
	ledgerDomain "github.com/ridloal/inventory-pos/internal/ledger/domain"
	ledgerRepo "github.com/ridloal/inventory-pos/internal/ledger/repository"
	ledgerService "github.com/ridloal/inventory-pos/internal/ledger/service"
	"github.com/ridloal/inventory-pos/internal/platform/cache"
	"github.com/ridloal/inventory-pos/internal/platform/logger"
	"github.com/ridloal/inventory-pos/internal/platform/metrics"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type CheckoutService interface {
	Checkout(ctx context.Context, userID string, items []domain.CartItem) (*domain.CheckoutResult, error)
}

type checkoutServiceImpl struct {
	ledger  ledgerRepo.LedgerRepository
	cache   cache.Cache
	metrics *metrics.Metrics
}

// NewCheckoutService wires the coordinator. c and m may be nil.
func NewCheckoutService(ledger ledgerRepo.LedgerRepository, c cache.Cache, m *metrics.Metrics) CheckoutService {
	if c == nil {
		c = cache.Noop{}
	}
	return &checkoutServiceImpl{ledger: ledger, cache: c, metrics: m}
}

// Checkout debits every line and records the sale in one transaction. Either
// all of it commits or nothing does.
func (s *checkoutServiceImpl) Checkout(ctx context.Context, userID string, items []domain.CartItem) (*domain.CheckoutResult, error) {
	if len(items) == 0 {
		s.observe("empty_cart")
		return nil, domain.ErrEmptyCart
	}
	total, err := validateCart(items)
	if err != nil {
		s.observe("invalid")
		return nil, err
	}

	// Debits run in ascending product order so that concurrent carts lock rows
	// in the same order.
	debits := make([]domain.CartItem, len(items))
	copy(debits, items)
	sort.SliceStable(debits, func(i, j int) bool { return debits[i].ProductID < debits[j].ProductID })

	tx, err := s.ledger.BeginTx(ctx)
	if err != nil {
		logger.Error("Checkout: failed to begin transaction", err, zap.String("user_id", userID))
		s.observe("error")
		return nil, fmt.Errorf("%w: %v", ledgerDomain.ErrPersistence, err)
	}
	defer tx.Rollback()

	for i, line := range debits {
		if i > 0 && debits[i-1].ProductID == line.ProductID {
			continue
		}
		if _, err := s.ledger.LockStockForUpdate(ctx, tx, line.ProductID); err != nil {
			return nil, s.fail(userID, line.ProductID, err)
		}
	}

	for _, line := range debits {
		if _, err := s.ledger.ApplyDelta(ctx, tx, line.ProductID, -line.Quantity); err != nil {
			return nil, s.fail(userID, line.ProductID, err)
		}
	}

	sale := &ledgerDomain.Sale{
		UserID:      userID,
		TotalAmount: total,
		Lines:       make([]ledgerDomain.SaleLine, 0, len(items)),
	}
	for _, item := range items {
		sale.Lines = append(sale.Lines, ledgerDomain.SaleLine{
			ProductID:    item.ProductID,
			QuantitySold: item.Quantity,
			UnitPrice:    item.Price,
		})
	}
	if err := s.ledger.RecordSale(ctx, tx, sale); err != nil {
		if errors.Is(err, ledgerRepo.ErrUnknownSaleProduct) {
			s.observe("not_found")
			return nil, fmt.Errorf("%w: %v", ledgerDomain.ErrProductNotFound, err)
		}
		logger.Error("Checkout: failed to record sale", err, zap.String("user_id", userID))
		s.observe("error")
		return nil, fmt.Errorf("%w: %v", ledgerDomain.ErrPersistence, err)
	}

	if err := tx.Commit(); err != nil {
		logger.Error("Checkout: failed to commit transaction", err, zap.String("user_id", userID))
		s.observe("error")
		return nil, fmt.Errorf("%w: %v", ledgerDomain.ErrPersistence, err)
	}

	s.cache.Invalidate(ctx)
	s.observe("success")
	logger.Info("Checkout completed",
		zap.Int64("sale_id", sale.ID),
		zap.String("user_id", userID),
		zap.Int("lines", len(sale.Lines)),
		zap.String("total", total.StringFixed(2)),
	)
	return &domain.CheckoutResult{
		SaleID:      sale.ID,
		TotalAmount: total,
		Status:      domain.StatusCompleted,
	}, nil
}

// fail translates a ledger error for productID. The deferred rollback runs
// after it returns.
func (s *checkoutServiceImpl) fail(userID string, productID int64, err error) error {
	translated := ledgerService.TranslateError(productID, err)

	var insufficient *ledgerDomain.InsufficientStockError
	switch {
	case errors.As(translated, &insufficient):
		s.observe("insufficient_stock")
	case errors.Is(translated, ledgerDomain.ErrProductNotFound):
		s.observe("not_found")
	default:
		logger.Error("Checkout: ledger operation failed", err, zap.String("user_id", userID), zap.Int64("product_id", productID))
		s.observe("error")
	}
	return translated
}

func (s *checkoutServiceImpl) observe(outcome string) {
	if s.metrics != nil {
		s.metrics.Checkouts.WithLabelValues(outcome).Inc()
	}
}

func validateCart(items []domain.CartItem) (decimal.Decimal, error) {
	total := decimal.Zero
	for i, item := range items {
		switch {
		case item.ProductID <= 0:
			return decimal.Zero, &domain.LineError{Index: i, Reason: "product_id must be positive"}
		case item.Quantity <= 0:
			return decimal.Zero, &domain.LineError{Index: i, Reason: "quantity must be positive"}
		case item.Quantity > math.MaxInt32:
			return decimal.Zero, &domain.LineError{Index: i, Reason: "quantity is too large"}
		case item.Price.IsNegative():
			return decimal.Zero, &domain.LineError{Index: i, Reason: "price must not be negative"}
		}
		total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total, nil
}
