package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ridloal/inventory-pos/internal/platform/auth"
	"github.com/ridloal/inventory-pos/internal/platform/config"
	"github.com/ridloal/inventory-pos/internal/user/domain"
	"github.com/ridloal/inventory-pos/internal/user/repository"
	"github.com/ridloal/inventory-pos/internal/user/repository/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var testAuth = config.AuthConfig{JWTSecret: []byte("test-secret"), TokenTTL: time.Hour}

func TestUserService_Register(t *testing.T) {
	mockRepo := new(mocks.MockUserRepository)
	userServiceInstance := NewUserService(mockRepo, testAuth)

	ctx := context.TODO()
	registerReq := domain.RegisterRequest{
		Username: "cashier1",
		Email:    "Cashier@Example.com ",
		Password: "secret1",
	}

	t.Run("Successful registration", func(t *testing.T) {
		mockRepo.On("CreateUser", ctx, mock.MatchedBy(func(u *domain.User) bool {
			return u.Role == auth.RoleViewer &&
				u.Email == "cashier@example.com" &&
				bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("secret1")) == nil
		})).Return(nil).Once()

		user, err := userServiceInstance.Register(ctx, registerReq)

		assert.NoError(t, err)
		require.NotNil(t, user)
		assert.Equal(t, "cashier1", user.Username)
		assert.Equal(t, auth.RoleViewer, user.Role)
		assert.NotEmpty(t, user.ID)
		assert.Empty(t, user.PasswordHash)
		mockRepo.AssertExpectations(t)
	})

	t.Run("User already exists", func(t *testing.T) {
		mockRepo.On("CreateUser", ctx, mock.AnythingOfType("*domain.User")).Return(repository.ErrUserConflict).Once()

		user, err := userServiceInstance.Register(ctx, registerReq)

		assert.Nil(t, user)
		assert.ErrorIs(t, err, ErrUserAlreadyExists)
		mockRepo.AssertExpectations(t)
	})

	t.Run("Repository error on CreateUser", func(t *testing.T) {
		mockRepo.On("CreateUser", ctx, mock.AnythingOfType("*domain.User")).Return(errors.New("database error")).Once()

		user, err := userServiceInstance.Register(ctx, registerReq)

		assert.Error(t, err)
		assert.Nil(t, user)
		assert.Contains(t, err.Error(), "could not save user")
		mockRepo.AssertExpectations(t)
	})
}

func TestUserService_Login(t *testing.T) {
	mockRepo := new(mocks.MockUserRepository)
	userServiceInstance := NewUserService(mockRepo, testAuth)
	ctx := context.TODO()

	hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("secret1"), bcrypt.MinCost)
	newUser := func() *domain.User {
		return &domain.User{
			ID:           "4b3c9a52-1d5e-4d6f-9a43-0c1f2e3d4b5a",
			Username:     "Admin",
			Role:         auth.RoleAdmin,
			PasswordHash: string(hashedPassword),
		}
	}
	loginReq := domain.LoginRequest{Username: "admin", Password: "secret1"}

	t.Run("Successful login", func(t *testing.T) {
		mockRepo.On("GetUserByUsername", ctx, "admin").Return(newUser(), nil).Once()

		resp, err := userServiceInstance.Login(ctx, loginReq)

		require.NoError(t, err)
		assert.Empty(t, resp.User.PasswordHash)
		claims, err := auth.ParseToken(testAuth.JWTSecret, resp.Token)
		require.NoError(t, err)
		assert.Equal(t, "4b3c9a52-1d5e-4d6f-9a43-0c1f2e3d4b5a", claims.UserID)
		assert.Equal(t, auth.RoleAdmin, claims.Role)
		assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, time.Minute)
		mockRepo.AssertExpectations(t)
	})

	t.Run("User not found", func(t *testing.T) {
		mockRepo.On("GetUserByUsername", ctx, "admin").Return(nil, repository.ErrUserNotFound).Once()

		resp, err := userServiceInstance.Login(ctx, loginReq)

		assert.Nil(t, resp)
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("Incorrect password", func(t *testing.T) {
		mockRepo.On("GetUserByUsername", ctx, "admin").Return(newUser(), nil).Once()

		resp, err := userServiceInstance.Login(ctx, domain.LoginRequest{Username: "admin", Password: "wrong"})

		assert.Nil(t, resp)
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("Repository error", func(t *testing.T) {
		mockRepo.On("GetUserByUsername", ctx, "admin").Return(nil, errors.New("some db error")).Once()

		resp, err := userServiceInstance.Login(ctx, loginReq)

		assert.Nil(t, resp)
		assert.Error(t, err)
		assert.NotErrorIs(t, err, ErrInvalidCredentials)
	})
}
