package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ridloal/inventory-pos/internal/catalog/domain"
	"github.com/ridloal/inventory-pos/internal/catalog/repository"
	ledgerRepo "github.com/ridloal/inventory-pos/internal/ledger/repository"
	"github.com/ridloal/inventory-pos/internal/platform/cache"
	"github.com/ridloal/inventory-pos/internal/platform/logger"
	"github.com/ridloal/inventory-pos/internal/platform/storage"
	"go.uber.org/zap"
)

var (
	ErrEmptyQuery      = errors.New("search query is required")
	ErrInvalidPrice    = errors.New("price must be greater than zero")
	ErrInvalidQuantity = errors.New("quantity must not be negative")
	ErrMissingImage    = errors.New("image file is required")
)

type CatalogService interface {
	ListProducts(ctx context.Context, category string) ([]domain.Product, error)
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	SearchProducts(ctx context.Context, query string) ([]domain.Product, error)
	LowStockReport(ctx context.Context, threshold int) ([]domain.Product, error)
	CreateProduct(ctx context.Context, req domain.CreateProductRequest, img *domain.Image) (*domain.Product, error)
	UpdateProduct(ctx context.Context, id int64, req domain.UpdateProductRequest) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id int64) error
	UpdateProductImage(ctx context.Context, id int64, img *domain.Image) ([]string, error)
}

type catalogServiceImpl struct {
	products repository.ProductRepository
	ledger   ledgerRepo.LedgerRepository
	metadata repository.MetadataRepository
	cache    cache.Cache
	images   storage.ImageStore
}

// NewCatalogService wires the catalog. metadata may be nil when no document
// store is configured; c may be nil to disable caching.
func NewCatalogService(
	products repository.ProductRepository,
	ledger ledgerRepo.LedgerRepository,
	metadata repository.MetadataRepository,
	c cache.Cache,
	images storage.ImageStore,
) CatalogService {
	if c == nil {
		c = cache.Noop{}
	}
	if images == nil {
		images = storage.NewInlineStore()
	}
	return &catalogServiceImpl{
		products: products,
		ledger:   ledger,
		metadata: metadata,
		cache:    c,
		images:   images,
	}
}

func (s *catalogServiceImpl) ListProducts(ctx context.Context, category string) ([]domain.Product, error) {
	cacheKey := "products:all"
	if category != "" {
		cacheKey = "products:category:" + strings.ToLower(category)
	}

	var cached []domain.Product
	version, hit := s.cache.Get(ctx, cacheKey, &cached)
	if hit {
		return cached, nil
	}

	products, err := s.products.ListProducts(ctx, category)
	if err != nil {
		return nil, err
	}
	s.attachMetadata(ctx, products)
	s.cache.Set(ctx, version, cacheKey, products)
	return products, nil
}

func (s *catalogServiceImpl) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	p, err := s.products.GetProductByID(ctx, id)
	if err != nil {
		return nil, err
	}
	one := []domain.Product{*p}
	s.attachMetadata(ctx, one)
	return &one[0], nil
}

func (s *catalogServiceImpl) SearchProducts(ctx context.Context, query string) ([]domain.Product, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	products, err := s.products.SearchProducts(ctx, query)
	if err != nil {
		return nil, err
	}
	s.attachMetadata(ctx, products)
	return products, nil
}

func (s *catalogServiceImpl) LowStockReport(ctx context.Context, threshold int) ([]domain.Product, error) {
	if threshold < 0 {
		threshold = domain.DefaultLowStockThreshold
	}
	return s.products.LowStockProducts(ctx, threshold)
}

func (s *catalogServiceImpl) CreateProduct(ctx context.Context, req domain.CreateProductRequest, img *domain.Image) (*domain.Product, error) {
	if !req.Price.IsPositive() {
		return nil, ErrInvalidPrice
	}
	if req.Quantity == nil || *req.Quantity < 0 {
		return nil, ErrInvalidQuantity
	}

	p := &domain.Product{
		Name:     strings.TrimSpace(req.Name),
		Category: strings.TrimSpace(req.Category),
		Price:    req.Price,
		Quantity: *req.Quantity,
	}

	tx, err := s.products.BeginTx(ctx)
	if err != nil {
		logger.Error("CreateProduct: failed to begin transaction", err)
		return nil, err
	}
	defer tx.Rollback()

	if err := s.products.CreateProduct(ctx, tx, p); err != nil {
		return nil, err
	}
	if err := s.ledger.SetStock(ctx, tx, p.ID, p.Quantity); err != nil {
		logger.Error("CreateProduct: failed to create stock record", err, zap.Int64("product_id", p.ID))
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		logger.Error("CreateProduct: failed to commit transaction", err)
		return nil, err
	}
	s.cache.Invalidate(ctx)

	p.Metadata = domain.Metadata{
		ProductID:   p.ID,
		Description: req.Description,
		Tags:        domain.ParseTags(req.Tags),
		Images:      []string{},
	}
	if img != nil && len(img.Data) > 0 {
		ref, err := s.images.Put(ctx, p.ID, img.ContentType, img.Data)
		if err != nil {
			logger.Warn("CreateProduct: image not stored", zap.Int64("product_id", p.ID), zap.Error(err))
		} else {
			p.Metadata.Images = append(p.Metadata.Images, ref)
		}
	}
	if s.metadata != nil {
		if err := s.metadata.Upsert(ctx, &p.Metadata); err != nil {
			logger.Warn("CreateProduct: metadata not saved", zap.Int64("product_id", p.ID), zap.Error(err))
		}
	}

	logger.Info("Product created", zap.Int64("product_id", p.ID), zap.String("name", p.Name))
	return p, nil
}

func (s *catalogServiceImpl) UpdateProduct(ctx context.Context, id int64, req domain.UpdateProductRequest) (*domain.Product, error) {
	if !req.Price.IsPositive() {
		return nil, ErrInvalidPrice
	}
	if req.Quantity == nil || *req.Quantity < 0 {
		return nil, ErrInvalidQuantity
	}

	p := &domain.Product{
		ID:       id,
		Name:     strings.TrimSpace(req.Name),
		Category: strings.TrimSpace(req.Category),
		Price:    req.Price,
		Quantity: *req.Quantity,
	}

	tx, err := s.products.BeginTx(ctx)
	if err != nil {
		logger.Error("UpdateProduct: failed to begin transaction", err)
		return nil, err
	}
	defer tx.Rollback()

	if err := s.products.UpdateProduct(ctx, tx, p); err != nil {
		return nil, err
	}
	if err := s.ledger.SetStock(ctx, tx, id, p.Quantity); err != nil {
		logger.Error("UpdateProduct: failed to set stock", err, zap.Int64("product_id", id))
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		logger.Error("UpdateProduct: failed to commit transaction", err)
		return nil, err
	}
	s.cache.Invalidate(ctx)

	one := []domain.Product{*p}
	s.attachMetadata(ctx, one)
	return &one[0], nil
}

func (s *catalogServiceImpl) DeleteProduct(ctx context.Context, id int64) error {
	tx, err := s.products.BeginTx(ctx)
	if err != nil {
		logger.Error("DeleteProduct: failed to begin transaction", err)
		return err
	}
	defer tx.Rollback()

	if err := s.ledger.PurgeProductHistory(ctx, tx, id); err != nil {
		logger.Error("DeleteProduct: failed to purge sale lines", err, zap.Int64("product_id", id))
		return err
	}
	if err := s.products.DeleteProduct(ctx, tx, id); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		logger.Error("DeleteProduct: failed to commit transaction", err)
		return err
	}
	s.cache.Invalidate(ctx)

	if s.metadata != nil {
		if err := s.metadata.Delete(ctx, id); err != nil {
			logger.Warn("DeleteProduct: metadata cleanup failed", zap.Int64("product_id", id), zap.Error(err))
		}
	}
	logger.Info("Product deleted", zap.Int64("product_id", id))
	return nil
}

func (s *catalogServiceImpl) UpdateProductImage(ctx context.Context, id int64, img *domain.Image) ([]string, error) {
	if img == nil || len(img.Data) == 0 {
		return nil, ErrMissingImage
	}
	if s.metadata == nil {
		return nil, repository.ErrMetadataNotFound
	}

	ref, err := s.images.Put(ctx, id, img.ContentType, img.Data)
	if err != nil {
		logger.Error("UpdateProductImage: failed to store image", err, zap.Int64("product_id", id))
		return nil, fmt.Errorf("store image: %w", err)
	}
	images := []string{ref}
	if err := s.metadata.SetImages(ctx, id, images); err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx)
	return images, nil
}

// attachMetadata merges metadata documents into products in place. Failures
// are logged and leave the products without metadata.
func (s *catalogServiceImpl) attachMetadata(ctx context.Context, products []domain.Product) {
	for i := range products {
		products[i].Metadata = domain.Metadata{ProductID: products[i].ID, Tags: []string{}, Images: []string{}}
	}
	if s.metadata == nil || len(products) == 0 {
		return
	}

	ids := make([]int64, len(products))
	for i, p := range products {
		ids[i] = p.ID
	}
	docs, err := s.metadata.FindByProductIDs(ctx, ids)
	if err != nil {
		logger.Warn("Product metadata unavailable", zap.Error(err))
		return
	}
	for i := range products {
		if md, ok := docs[products[i].ID]; ok {
			if md.Tags == nil {
				md.Tags = []string{}
			}
			if md.Images == nil {
				md.Images = []string{}
			}
			products[i].Metadata = md
		}
	}
}
