package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ridloal/inventory-pos/internal/platform/database"
	"github.com/ridloal/inventory-pos/internal/platform/logger"
	"github.com/ridloal/inventory-pos/internal/user/domain"
)

var ErrUserNotFound = errors.New("user not found")
var ErrUserConflict = errors.New("user with this username or email already exists")

type UserRepository interface {
	CreateUser(ctx context.Context, user *domain.User) error
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
}

type postgresUserRepository struct {
	db *sql.DB
}

func NewPostgresUserRepository(db *sql.DB) UserRepository {
	return &postgresUserRepository{db: db}
}

func (r *postgresUserRepository) CreateUser(ctx context.Context, user *domain.User) error {
	query := `INSERT INTO users (id, username, email, password_hash, role, created_at, updated_at)
              VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING created_at, updated_at`

	user.ID = uuid.NewString()
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt

	err := r.db.QueryRowContext(ctx, query, user.ID, user.Username, user.Email, user.PasswordHash, user.Role, user.CreatedAt, user.UpdatedAt).
		Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		// 23505 covers both the email constraint and the lower(username) index
		if database.IsUniqueViolation(err) {
			logger.Warn("CreateUser: unique violation")
			return ErrUserConflict
		}
		logger.Error("CreateUser: failed to insert user", err)
		return err
	}
	return nil
}

func (r *postgresUserRepository) getUserBy(ctx context.Context, where, value string) (*domain.User, error) {
	query := `SELECT id, username, email, password_hash, role, created_at, updated_at FROM users WHERE ` + where
	user := &domain.User{}

	err := r.db.QueryRowContext(ctx, query, value).Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.Role, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		logger.Error("GetUserBy: query failed", err)
		return nil, err
	}
	return user, nil
}

func (r *postgresUserRepository) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrUserNotFound
	}
	return r.getUserBy(ctx, "id = $1", id)
}

// GetUserByUsername matches case-insensitively, backed by the lower(username)
// unique index.
func (r *postgresUserRepository) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.getUserBy(ctx, "LOWER(username) = LOWER($1)", strings.TrimSpace(username))
}
