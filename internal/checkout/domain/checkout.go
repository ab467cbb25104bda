package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrEmptyCart   = errors.New("cart is empty")
	ErrInvalidCart = errors.New("invalid cart")
)

// LineError is a ValidationError for one cart line. It matches ErrInvalidCart.
type LineError struct {
	Index  int
	Reason string
}

func (e *LineError) Error() string {
	return fmt.Sprintf("invalid cart line %d: %s", e.Index, e.Reason)
}

func (e *LineError) Is(target error) bool {
	return target == ErrInvalidCart
}

// CartItem is one requested product. Price is the unit price shown to the
// shopper; it is billed and captured on the sale line.
type CartItem struct {
	ProductID int64           `json:"product_id" binding:"required,gt=0"`
	Quantity  int             `json:"quantity" binding:"required,gt=0"`
	Price     decimal.Decimal `json:"price"`
}

type CheckoutRequest struct {
	Items []CartItem `json:"items" binding:"dive"`
}

type CheckoutResult struct {
	SaleID      int64           `json:"sale_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Status      string          `json:"status"`
}

const StatusCompleted = "completed"
