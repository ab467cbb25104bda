package mocks

import (
	"context"

	"github.com/ridloal/inventory-pos/internal/checkout/domain"
	"github.com/stretchr/testify/mock"
)

type MockCheckoutService struct {
	mock.Mock
}

func (m *MockCheckoutService) Checkout(ctx context.Context, userID string, items []domain.CartItem) (*domain.CheckoutResult, error) {
	args := m.Called(ctx, userID, items)
	if res := args.Get(0); res != nil {
		return res.(*domain.CheckoutResult), args.Error(1)
	}
	return nil, args.Error(1)
}
