package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ridloal/inventory-pos/internal/ledger/domain"
	"github.com/ridloal/inventory-pos/internal/platform/database"
	"github.com/ridloal/inventory-pos/internal/platform/logger"
	"go.uber.org/zap"
)

var (
	ErrStockNotFound      = errors.New("stock record not found")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrStockOutOfBounds   = errors.New("stock update violates quantity constraint")
	ErrUnknownSaleProduct = errors.New("sale line references a product that does not exist")
)

type LedgerRepository interface {
	GetStock(ctx context.Context, productID int64) (*domain.StockRecord, error)
	ListStockLevels(ctx context.Context) ([]domain.StockLevel, error)
	DailySaleTotals(ctx context.Context) ([]domain.DailySales, error)

	// Transactional methods. dbops is the caller's transaction.
	LockStockForUpdate(ctx context.Context, dbops database.DBTX, productID int64) (*domain.StockRecord, error)
	ApplyDelta(ctx context.Context, dbops database.DBTX, productID int64, delta int) (int, error)
	SetStock(ctx context.Context, dbops database.DBTX, productID int64, quantity int) error
	RecordSale(ctx context.Context, dbops database.DBTX, sale *domain.Sale) error
	PurgeProductHistory(ctx context.Context, dbops database.DBTX, productID int64) error

	BeginTx(ctx context.Context) (database.DBTX, error)
}

type postgresLedgerRepository struct {
	db *sql.DB
}

func NewPostgresLedgerRepository(db *sql.DB) LedgerRepository {
	return &postgresLedgerRepository{db: db}
}

func (r *postgresLedgerRepository) BeginTx(ctx context.Context) (database.DBTX, error) {
	return r.db.BeginTx(ctx, nil)
}

func (r *postgresLedgerRepository) GetStock(ctx context.Context, productID int64) (*domain.StockRecord, error) {
	query := `SELECT product_id, quantity, updated_at FROM inventory WHERE product_id = $1`
	var s domain.StockRecord
	err := r.db.QueryRowContext(ctx, query, productID).Scan(&s.ProductID, &s.Quantity, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrStockNotFound
		}
		logger.Error("GetStock: query failed", err, zap.Int64("product_id", productID))
		return nil, err
	}
	return &s, nil
}

func (r *postgresLedgerRepository) ListStockLevels(ctx context.Context) ([]domain.StockLevel, error) {
	query := `SELECT p.id, p.name, i.quantity
              FROM products p JOIN inventory i ON i.product_id = p.id
              ORDER BY p.id ASC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		logger.Error("ListStockLevels: query failed", err)
		return nil, err
	}
	defer rows.Close()

	levels := []domain.StockLevel{}
	for rows.Next() {
		var l domain.StockLevel
		if err := rows.Scan(&l.ProductID, &l.Name, &l.Quantity); err != nil {
			logger.Error("ListStockLevels: scan failed", err)
			return nil, err
		}
		levels = append(levels, l)
	}
	return levels, rows.Err()
}

// DailySaleTotals returns units sold per product per calendar day, oldest day
// first within each product.
func (r *postgresLedgerRepository) DailySaleTotals(ctx context.Context) ([]domain.DailySales, error) {
	query := `
        SELECT si.product_id, DATE(s.created_at) AS sale_day, SUM(si.quantity_sold)
        FROM sale_items si
        JOIN sales s ON s.id = si.sale_id
        GROUP BY si.product_id, sale_day
        ORDER BY si.product_id ASC, sale_day ASC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		logger.Error("DailySaleTotals: query failed", err)
		return nil, err
	}
	defer rows.Close()

	totals := []domain.DailySales{}
	for rows.Next() {
		var d domain.DailySales
		if err := rows.Scan(&d.ProductID, &d.Day, &d.Quantity); err != nil {
			logger.Error("DailySaleTotals: scan failed", err)
			return nil, err
		}
		totals = append(totals, d)
	}
	return totals, rows.Err()
}

// --- Transactional Stock Methods ---

func (r *postgresLedgerRepository) LockStockForUpdate(ctx context.Context, dbops database.DBTX, productID int64) (*domain.StockRecord, error) {
	query := `SELECT product_id, quantity, updated_at FROM inventory WHERE product_id = $1 FOR UPDATE`
	var s domain.StockRecord
	err := dbops.QueryRowContext(ctx, query, productID).Scan(&s.ProductID, &s.Quantity, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrStockNotFound
		}
		logger.Error("LockStockForUpdate: query failed", err, zap.Int64("product_id", productID))
		return nil, err
	}
	return &s, nil
}

// ApplyDelta adds delta to the stock of productID in a single conditional
// statement: the row is only written when the result stays non-negative.
// Returns the new quantity.
func (r *postgresLedgerRepository) ApplyDelta(ctx context.Context, dbops database.DBTX, productID int64, delta int) (int, error) {
	query := `UPDATE inventory SET quantity = quantity + $1, updated_at = NOW()
              WHERE product_id = $2 AND quantity + $1 >= 0
              RETURNING quantity`
	var newQuantity int
	err := dbops.QueryRowContext(ctx, query, delta, productID).Scan(&newQuantity)
	if err == nil {
		return newQuantity, nil
	}
	if database.IsCheckViolation(err) {
		logger.Error("ApplyDelta: check violation", err, zap.Int64("product_id", productID))
		return 0, ErrStockOutOfBounds
	}
	if !errors.Is(err, sql.ErrNoRows) {
		logger.Error("ApplyDelta: update failed", err, zap.Int64("product_id", productID))
		return 0, err
	}

	// No row matched: either the product has no stock record or the guard failed.
	var exists bool
	existsQuery := `SELECT EXISTS (SELECT 1 FROM inventory WHERE product_id = $1)`
	if err := dbops.QueryRowContext(ctx, existsQuery, productID).Scan(&exists); err != nil {
		logger.Error("ApplyDelta: existence check failed", err, zap.Int64("product_id", productID))
		return 0, err
	}
	if !exists {
		return 0, ErrStockNotFound
	}
	return 0, ErrInsufficientStock
}

// SetStock overwrites the quantity, creating the stock record when missing.
func (r *postgresLedgerRepository) SetStock(ctx context.Context, dbops database.DBTX, productID int64, quantity int) error {
	query := `
        INSERT INTO inventory (product_id, quantity, updated_at)
        VALUES ($1, $2, NOW())
        ON CONFLICT (product_id) DO UPDATE SET
        quantity = EXCLUDED.quantity,
        updated_at = EXCLUDED.updated_at`
	_, err := dbops.ExecContext(ctx, query, productID, quantity)
	if err != nil {
		switch {
		case database.IsForeignKeyViolation(err):
			return ErrStockNotFound
		case database.IsCheckViolation(err):
			return ErrStockOutOfBounds
		}
		logger.Error("SetStock: upsert failed", err, zap.Int64("product_id", productID))
		return err
	}
	return nil
}

// RecordSale inserts the sale header and every line. sale.ID, sale.CreatedAt
// and the line ids are filled in.
func (r *postgresLedgerRepository) RecordSale(ctx context.Context, dbops database.DBTX, sale *domain.Sale) error {
	saleQuery := `INSERT INTO sales (user_id, total_amount, created_at)
                  VALUES ($1, $2, NOW()) RETURNING id, created_at`
	err := dbops.QueryRowContext(ctx, saleQuery, sale.UserID, sale.TotalAmount).Scan(&sale.ID, &sale.CreatedAt)
	if err != nil {
		logger.Error("RecordSale: failed to insert sale", err, zap.String("user_id", sale.UserID))
		return err
	}

	lineQuery := `INSERT INTO sale_items (sale_id, product_id, quantity_sold, price_per_item)
                  VALUES ($1, $2, $3, $4) RETURNING id`
	stmt, err := dbops.PrepareContext(ctx, lineQuery)
	if err != nil {
		logger.Error("RecordSale: failed to prepare line statement", err)
		return err
	}
	defer stmt.Close()

	for i := range sale.Lines {
		line := &sale.Lines[i]
		line.SaleID = sale.ID
		err := stmt.QueryRowContext(ctx, line.SaleID, line.ProductID, line.QuantitySold, line.UnitPrice).Scan(&line.ID)
		if err != nil {
			if database.IsForeignKeyViolation(err) {
				return fmt.Errorf("%w: product %d", ErrUnknownSaleProduct, line.ProductID)
			}
			logger.Error("RecordSale: failed to insert sale line", err, zap.Int64("sale_id", sale.ID), zap.Int64("product_id", line.ProductID))
			return err
		}
	}
	return nil
}

func (r *postgresLedgerRepository) PurgeProductHistory(ctx context.Context, dbops database.DBTX, productID int64) error {
	_, err := dbops.ExecContext(ctx, `DELETE FROM sale_items WHERE product_id = $1`, productID)
	if err != nil {
		logger.Error("PurgeProductHistory: delete failed", err, zap.Int64("product_id", productID))
		return err
	}
	return nil
}
