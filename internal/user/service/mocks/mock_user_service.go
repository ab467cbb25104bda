package mocks

import (
	"context"

	"github.com/ridloal/inventory-pos/internal/user/domain"
	"github.com/stretchr/testify/mock"
)

type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) Register(ctx context.Context, req domain.RegisterRequest) (*domain.User, error) {
	args := m.Called(ctx, req)
	if u := args.Get(0); u != nil {
		return u.(*domain.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserService) Login(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error) {
	args := m.Called(ctx, req)
	if r := args.Get(0); r != nil {
		return r.(*domain.LoginResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserService) Profile(ctx context.Context, userID string) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if u := args.Get(0); u != nil {
		return u.(*domain.User), args.Error(1)
	}
	return nil, args.Error(1)
}
