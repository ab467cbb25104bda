package mocks

import (
	"context"

	"github.com/ridloal/inventory-pos/internal/forecast/domain"
	"github.com/stretchr/testify/mock"
)

type MockAdvisor struct {
	mock.Mock
}

func (m *MockAdvisor) ReorderSuggestions(ctx context.Context) ([]domain.Suggestion, error) {
	args := m.Called(ctx)
	if res := args.Get(0); res != nil {
		return res.([]domain.Suggestion), args.Error(1)
	}
	return nil, args.Error(1)
}
