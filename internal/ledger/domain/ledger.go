package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrPersistence     = errors.New("persistence failure")
)

// InsufficientStockError names the product whose stock could not cover a debit.
type InsufficientStockError struct {
	ProductID int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d", e.ProductID)
}

// NotFoundError is a missing product referenced by id. It matches
// ErrProductNotFound under errors.Is.
type NotFoundError struct {
	ProductID int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("product %d not found", e.ProductID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrProductNotFound
}

type StockRecord struct {
	ProductID int64     `json:"product_id"`
	Quantity  int       `json:"quantity"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StockLevel is a stock record joined with the product name, for reports.
type StockLevel struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
}

type Sale struct {
	ID          int64           `json:"id"`
	UserID      string          `json:"user_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Lines       []SaleLine      `json:"lines"`
	CreatedAt   time.Time       `json:"created_at"`
}

type SaleLine struct {
	ID           int64           `json:"id"`
	SaleID       int64           `json:"sale_id"`
	ProductID    int64           `json:"product_id"`
	QuantitySold int             `json:"quantity_sold"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
}

// DailySales is the quantity of one product sold on one calendar day.
type DailySales struct {
	ProductID int64     `json:"product_id"`
	Day       time.Time `json:"day"`
	Quantity  int       `json:"quantity"`
}

type AdjustStockRequest struct {
	Delta int `json:"delta" binding:"required"`
}
