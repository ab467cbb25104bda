package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ridloal/inventory-pos/internal/platform/auth"
	"github.com/ridloal/inventory-pos/internal/platform/config"
	"github.com/ridloal/inventory-pos/internal/platform/logger"
	"github.com/ridloal/inventory-pos/internal/user/domain"
	"github.com/ridloal/inventory-pos/internal/user/repository"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUserAlreadyExists  = errors.New("user with this username or email already exists")
)

type UserService interface {
	Register(ctx context.Context, req domain.RegisterRequest) (*domain.User, error)
	Login(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error)
	Profile(ctx context.Context, userID string) (*domain.User, error)
}

type userService struct {
	repo repository.UserRepository
	auth config.AuthConfig
}

func NewUserService(repo repository.UserRepository, authCfg config.AuthConfig) UserService {
	return &userService{repo: repo, auth: authCfg}
}

func (s *userService) Register(ctx context.Context, req domain.RegisterRequest) (*domain.User, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		logger.Error("Register: failed to hash password", err)
		return nil, fmt.Errorf("could not process registration: %w", err)
	}

	user := &domain.User{
		Username:     req.Username,
		Email:        req.Email,
		Role:         auth.RoleViewer,
		PasswordHash: string(hashedPassword),
	}

	err = s.repo.CreateUser(ctx, user)
	if err != nil {
		if errors.Is(err, repository.ErrUserConflict) {
			return nil, ErrUserAlreadyExists
		}
		logger.Error("Register: failed to create user in repo", err)
		return nil, fmt.Errorf("could not save user: %w", err)
	}

	logger.Info("User registered", zap.String("user_id", user.ID), zap.String("username", user.Username))
	user.PasswordHash = ""
	return user, nil
}

func (s *userService) Login(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error) {
	user, err := s.repo.GetUserByUsername(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		logger.Error("Login: failed to get user by username", err)
		return nil, fmt.Errorf("could not load user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := auth.IssueToken(s.auth.JWTSecret, user.ID, user.Role, s.auth.TokenTTL)
	if err != nil {
		logger.Error("Login: failed to sign token", err)
		return nil, err
	}

	user.PasswordHash = ""
	return &domain.LoginResponse{
		User:  *user,
		Token: token,
	}, nil
}

func (s *userService) Profile(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = ""
	return user, nil
}
