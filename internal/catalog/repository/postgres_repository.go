package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/ridloal/inventory-pos/internal/catalog/domain"
	"github.com/ridloal/inventory-pos/internal/platform/database"
	"github.com/ridloal/inventory-pos/internal/platform/logger"
	"go.uber.org/zap"
)

var ErrProductNotFound = errors.New("product not found")

type ProductRepository interface {
	ListProducts(ctx context.Context, category string) ([]domain.Product, error)
	GetProductByID(ctx context.Context, id int64) (*domain.Product, error)
	SearchProducts(ctx context.Context, term string) ([]domain.Product, error)
	LowStockProducts(ctx context.Context, threshold int) ([]domain.Product, error)

	// Writes take the caller's transaction so the stock record can be written
	// in the same unit.
	CreateProduct(ctx context.Context, dbops database.DBTX, p *domain.Product) error
	UpdateProduct(ctx context.Context, dbops database.DBTX, p *domain.Product) error
	DeleteProduct(ctx context.Context, dbops database.DBTX, id int64) error

	BeginTx(ctx context.Context) (database.DBTX, error)
}

type postgresProductRepository struct {
	db *sql.DB
}

func NewPostgresProductRepository(db *sql.DB) ProductRepository {
	return &postgresProductRepository{db: db}
}

const productColumns = `p.id, p.name, p.category, p.price, COALESCE(i.quantity, 0), p.created_at, p.updated_at`

func scanProduct(row interface{ Scan(...interface{}) error }) (domain.Product, error) {
	var p domain.Product
	err := row.Scan(&p.ID, &p.Name, &p.Category, &p.Price, &p.Quantity, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *postgresProductRepository) queryProducts(ctx context.Context, op, query string, args ...interface{}) ([]domain.Product, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		logger.Error(op+": query failed", err)
		return nil, err
	}
	defer rows.Close()

	products := []domain.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			logger.Error(op+": scan failed", err)
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		logger.Error(op+": rows iteration error", err)
		return nil, err
	}
	return products, nil
}

func (r *postgresProductRepository) ListProducts(ctx context.Context, category string) ([]domain.Product, error) {
	if category == "" {
		query := `SELECT ` + productColumns + `
                  FROM products p LEFT JOIN inventory i ON i.product_id = p.id
                  ORDER BY p.name ASC`
		return r.queryProducts(ctx, "ListProducts", query)
	}
	query := `SELECT ` + productColumns + `
              FROM products p LEFT JOIN inventory i ON i.product_id = p.id
              WHERE p.category = $1
              ORDER BY p.name ASC`
	return r.queryProducts(ctx, "ListProducts", query, category)
}

func (r *postgresProductRepository) SearchProducts(ctx context.Context, term string) ([]domain.Product, error) {
	query := `SELECT ` + productColumns + `
              FROM products p LEFT JOIN inventory i ON i.product_id = p.id
              WHERE p.name ILIKE '%' || $1 || '%'
              ORDER BY p.name ASC`
	return r.queryProducts(ctx, "SearchProducts", query, term)
}

func (r *postgresProductRepository) LowStockProducts(ctx context.Context, threshold int) ([]domain.Product, error) {
	query := `SELECT ` + productColumns + `
              FROM products p JOIN inventory i ON i.product_id = p.id
              WHERE i.quantity <= $1
              ORDER BY i.quantity ASC, p.name ASC`
	return r.queryProducts(ctx, "LowStockProducts", query, threshold)
}

func (r *postgresProductRepository) GetProductByID(ctx context.Context, id int64) (*domain.Product, error) {
	query := `SELECT ` + productColumns + `
              FROM products p LEFT JOIN inventory i ON i.product_id = p.id
              WHERE p.id = $1`
	p, err := scanProduct(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		logger.Error("GetProductByID: query failed", err, zap.Int64("product_id", id))
		return nil, err
	}
	return &p, nil
}

func (r *postgresProductRepository) BeginTx(ctx context.Context) (database.DBTX, error) {
	return r.db.BeginTx(ctx, nil)
}

func (r *postgresProductRepository) CreateProduct(ctx context.Context, dbops database.DBTX, p *domain.Product) error {
	query := `INSERT INTO products (name, category, price, created_at, updated_at)
              VALUES ($1, $2, $3, NOW(), NOW()) RETURNING id, created_at, updated_at`
	err := dbops.QueryRowContext(ctx, query, p.Name, p.Category, p.Price).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		logger.Error("CreateProduct: failed to insert product", err)
		return err
	}
	return nil
}

func (r *postgresProductRepository) UpdateProduct(ctx context.Context, dbops database.DBTX, p *domain.Product) error {
	query := `UPDATE products SET name = $1, category = $2, price = $3, updated_at = NOW()
              WHERE id = $4 RETURNING created_at, updated_at`
	err := dbops.QueryRowContext(ctx, query, p.Name, p.Category, p.Price, p.ID).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrProductNotFound
		}
		logger.Error("UpdateProduct: update failed", err, zap.Int64("product_id", p.ID))
		return err
	}
	return nil
}

// DeleteProduct removes the product row; its stock record cascades. Sale
// lines must be purged first or the foreign key rejects the delete.
func (r *postgresProductRepository) DeleteProduct(ctx context.Context, dbops database.DBTX, id int64) error {
	res, err := dbops.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		logger.Error("DeleteProduct: delete failed", err, zap.Int64("product_id", id))
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrProductNotFound
	}
	return nil
}
