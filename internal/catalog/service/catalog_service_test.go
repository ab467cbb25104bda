package service

import (
	"context"
	"errors"
	"testing"

	"github.com/ridloal/inventory-pos/internal/catalog/domain"
	"github.com/ridloal/inventory-pos/internal/catalog/repository"
	"github.com/ridloal/inventory-pos/internal/catalog/repository/mocks"
	ledgerMocks "github.com/ridloal/inventory-pos/internal/ledger/repository/mocks"
	"github.com/ridloal/inventory-pos/internal/platform/cache"
	dbmocks "github.com/ridloal/inventory-pos/internal/platform/database/mocks"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// mapCache keeps values in memory and counts invalidations. Writes tagged
// with a stale version are dropped, as they would be orphaned in Redis.
type mapCache struct {
	values        map[string][]domain.Product
	version       cache.Version
	invalidations int
}

func newMapCache() *mapCache {
	return &mapCache{values: map[string][]domain.Product{}}
}

func (c *mapCache) Get(_ context.Context, key string, dest interface{}) (cache.Version, bool) {
	v, ok := c.values[key]
	if ok {
		*dest.(*[]domain.Product) = v
	}
	return c.version, ok
}

func (c *mapCache) Set(_ context.Context, version cache.Version, key string, value interface{}) {
	if version != c.version {
		return
	}
	c.values[key] = value.([]domain.Product)
}

func (c *mapCache) Invalidate(context.Context) {
	c.invalidations++
	c.version++
	c.values = map[string][]domain.Product{}
}

type fakeImages struct {
	ref string
	err error
}

func (f *fakeImages) Put(context.Context, int64, string, []byte) (string, error) {
	return f.ref, f.err
}

type fixture struct {
	products *mocks.MockProductRepository
	metadata *mocks.MockMetadataRepository
	ledger   *ledgerMocks.MockLedgerRepository
	tx       *dbmocks.MockDBTX
	cache    *mapCache
	images   *fakeImages
	service  CatalogService
}

func newFixture() *fixture {
	f := &fixture{
		products: new(mocks.MockProductRepository),
		metadata: new(mocks.MockMetadataRepository),
		ledger:   new(ledgerMocks.MockLedgerRepository),
		tx:       new(dbmocks.MockDBTX),
		cache:    newMapCache(),
		images:   &fakeImages{ref: "https://cdn.example/products/7.png"},
	}
	f.service = NewCatalogService(f.products, f.ledger, f.metadata, f.cache, f.images)
	return f
}

func qty(n int) *int { return &n }

func TestCatalogService_ListProducts(t *testing.T) {
	ctx := context.TODO()

	t.Run("Merges metadata and caches the result", func(t *testing.T) {
		f := newFixture()
		rows := []domain.Product{
			{ID: 1, Name: "Apple", Category: "Fruit", Price: decimal.NewFromInt(2), Quantity: 4},
			{ID: 2, Name: "Banana", Category: "Fruit", Price: decimal.NewFromInt(1), Quantity: 0},
		}
		f.products.On("ListProducts", ctx, "Fruit").Return(rows, nil).Once()
		f.metadata.On("FindByProductIDs", ctx, []int64{1, 2}).Return(map[int64]domain.Metadata{
			1: {ProductID: 1, Description: "Crisp", Images: []string{"img-1"}},
		}, nil).Once()

		products, err := f.service.ListProducts(ctx, "Fruit")
		require.NoError(t, err)
		require.Len(t, products, 2)
		assert.Equal(t, "Crisp", products[0].Metadata.Description)
		assert.Equal(t, []string{"img-1"}, products[0].Metadata.Images)
		assert.Equal(t, []string{}, products[0].Metadata.Tags)
		assert.Equal(t, []string{}, products[1].Metadata.Images)

		again, err := f.service.ListProducts(ctx, "Fruit")
		require.NoError(t, err)
		assert.Equal(t, products, again)
		f.products.AssertExpectations(t)
		f.metadata.AssertExpectations(t)
	})

	t.Run("Metadata failure still lists products", func(t *testing.T) {
		f := newFixture()
		f.products.On("ListProducts", ctx, "").Return([]domain.Product{{ID: 3, Name: "Cable"}}, nil).Once()
		f.metadata.On("FindByProductIDs", ctx, []int64{3}).Return(nil, errors.New("mongo down")).Once()

		products, err := f.service.ListProducts(ctx, "")
		require.NoError(t, err)
		assert.Equal(t, []string{}, products[0].Metadata.Images)
	})

	t.Run("Invalidation during read is not cached", func(t *testing.T) {
		f := newFixture()
		f.products.On("ListProducts", ctx, "").Return([]domain.Product{{ID: 3, Name: "Cable", Quantity: 5}}, nil).
			Run(func(mock.Arguments) { f.cache.Invalidate(ctx) }).Once()
		f.products.On("ListProducts", ctx, "").Return([]domain.Product{{ID: 3, Name: "Cable", Quantity: 2}}, nil).Once()
		f.metadata.On("FindByProductIDs", ctx, []int64{3}).Return(map[int64]domain.Metadata{}, nil).Twice()

		first, err := f.service.ListProducts(ctx, "")
		require.NoError(t, err)
		assert.Equal(t, 5, first[0].Quantity)
		assert.Empty(t, f.cache.values)

		second, err := f.service.ListProducts(ctx, "")
		require.NoError(t, err)
		assert.Equal(t, 2, second[0].Quantity)
		f.products.AssertExpectations(t)
	})

	t.Run("Repository error", func(t *testing.T) {
		f := newFixture()
		f.products.On("ListProducts", ctx, "").Return(nil, errors.New("db error")).Once()

		products, err := f.service.ListProducts(ctx, "")
		assert.Error(t, err)
		assert.Nil(t, products)
		assert.Empty(t, f.cache.values)
	})
}

func TestCatalogService_GetProduct(t *testing.T) {
	ctx := context.TODO()

	t.Run("Not found", func(t *testing.T) {
		f := newFixture()
		f.products.On("GetProductByID", ctx, int64(9)).Return(nil, repository.ErrProductNotFound).Once()

		_, err := f.service.GetProduct(ctx, 9)
		assert.ErrorIs(t, err, repository.ErrProductNotFound)
		f.metadata.AssertNotCalled(t, "FindByProductIDs", mock.Anything, mock.Anything)
	})

	t.Run("Found without metadata store", func(t *testing.T) {
		products := new(mocks.MockProductRepository)
		svc := NewCatalogService(products, new(ledgerMocks.MockLedgerRepository), nil, nil, nil)
		products.On("GetProductByID", ctx, int64(1)).Return(&domain.Product{ID: 1, Name: "Apple"}, nil).Once()

		p, err := svc.GetProduct(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, int64(1), p.Metadata.ProductID)
		assert.Equal(t, []string{}, p.Metadata.Images)
	})
}

func TestCatalogService_SearchProducts(t *testing.T) {
	ctx := context.TODO()

	t.Run("Blank query", func(t *testing.T) {
		f := newFixture()
		_, err := f.service.SearchProducts(ctx, "   ")
		assert.ErrorIs(t, err, ErrEmptyQuery)
		f.products.AssertNotCalled(t, "SearchProducts", mock.Anything, mock.Anything)
	})

	t.Run("Trims the term", func(t *testing.T) {
		f := newFixture()
		f.products.On("SearchProducts", ctx, "app").Return([]domain.Product{{ID: 1, Name: "Apple"}}, nil).Once()
		f.metadata.On("FindByProductIDs", ctx, []int64{1}).Return(map[int64]domain.Metadata{}, nil).Once()

		products, err := f.service.SearchProducts(ctx, " app ")
		require.NoError(t, err)
		assert.Len(t, products, 1)
	})
}

func TestCatalogService_LowStockReport(t *testing.T) {
	ctx := context.TODO()
	f := newFixture()
	f.products.On("LowStockProducts", ctx, domain.DefaultLowStockThreshold).Return([]domain.Product{}, nil).Once()

	_, err := f.service.LowStockReport(ctx, -1)
	assert.NoError(t, err)
	f.products.AssertExpectations(t)
}

func TestCatalogService_CreateProduct(t *testing.T) {
	ctx := context.TODO()
	req := domain.CreateProductRequest{
		Name:        "Widget",
		Category:    "Tools",
		Price:       decimal.RequireFromString("9.99"),
		Quantity:    qty(5),
		Description: "A widget",
		Tags:        "metal, small,",
	}

	t.Run("Creates product, stock and metadata", func(t *testing.T) {
		f := newFixture()
		f.products.On("BeginTx", ctx).Return(f.tx, nil).Once()
		f.products.On("CreateProduct", ctx, f.tx, mock.AnythingOfType("*domain.Product")).Return(nil).Once()
		f.ledger.On("SetStock", ctx, f.tx, int64(7), 5).Return(nil).Once()
		f.tx.On("Commit").Return(nil).Once()
		f.tx.On("Rollback").Return(nil).Maybe()
		f.metadata.On("Upsert", ctx, mock.MatchedBy(func(md *domain.Metadata) bool {
			return md.ProductID == 7 &&
				md.Description == "A widget" &&
				assert.ObjectsAreEqual([]string{"metal", "small"}, md.Tags) &&
				assert.ObjectsAreEqual([]string{"https://cdn.example/products/7.png"}, md.Images)
		})).Return(nil).Once()

		p, err := f.service.CreateProduct(ctx, req, &domain.Image{ContentType: "image/png", Data: []byte{1, 2, 3}})
		require.NoError(t, err)
		assert.Equal(t, int64(7), p.ID)
		assert.Equal(t, 5, p.Quantity)
		assert.Equal(t, 1, f.cache.invalidations)
		f.products.AssertExpectations(t)
		f.ledger.AssertExpectations(t)
		f.metadata.AssertExpectations(t)
		f.tx.AssertExpectations(t)
	})

	t.Run("Rejects non-positive price before any write", func(t *testing.T) {
		f := newFixture()
		bad := req
		bad.Price = decimal.Zero

		_, err := f.service.CreateProduct(ctx, bad, nil)
		assert.ErrorIs(t, err, ErrInvalidPrice)
		f.products.AssertNotCalled(t, "BeginTx", mock.Anything)
	})

	t.Run("Stock failure rolls back", func(t *testing.T) {
		f := newFixture()
		f.products.On("BeginTx", ctx).Return(f.tx, nil).Once()
		f.products.On("CreateProduct", ctx, f.tx, mock.Anything).Return(nil).Once()
		f.ledger.On("SetStock", ctx, f.tx, int64(7), 5).Return(errors.New("constraint")).Once()
		f.tx.On("Rollback").Return(nil).Once()

		_, err := f.service.CreateProduct(ctx, req, nil)
		assert.Error(t, err)
		f.tx.AssertNotCalled(t, "Commit")
		f.metadata.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
		assert.Equal(t, 0, f.cache.invalidations)
	})

	t.Run("Metadata failure does not fail the create", func(t *testing.T) {
		f := newFixture()
		f.products.On("BeginTx", ctx).Return(f.tx, nil).Once()
		f.products.On("CreateProduct", ctx, f.tx, mock.Anything).Return(nil).Once()
		f.ledger.On("SetStock", ctx, f.tx, int64(7), 5).Return(nil).Once()
		f.tx.On("Commit").Return(nil).Once()
		f.tx.On("Rollback").Return(nil).Maybe()
		f.metadata.On("Upsert", ctx, mock.Anything).Return(errors.New("mongo down")).Once()

		p, err := f.service.CreateProduct(ctx, req, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{}, p.Metadata.Images)
	})
}

func TestCatalogService_UpdateProduct(t *testing.T) {
	ctx := context.TODO()
	req := domain.UpdateProductRequest{Name: "Widget", Category: "Tools", Price: decimal.NewFromInt(3), Quantity: qty(0)}

	t.Run("Updates product and sets absolute stock", func(t *testing.T) {
		f := newFixture()
		f.products.On("BeginTx", ctx).Return(f.tx, nil).Once()
		f.products.On("UpdateProduct", ctx, f.tx, mock.MatchedBy(func(p *domain.Product) bool {
			return p.ID == 4 && p.Name == "Widget"
		})).Return(nil).Once()
		f.ledger.On("SetStock", ctx, f.tx, int64(4), 0).Return(nil).Once()
		f.tx.On("Commit").Return(nil).Once()
		f.tx.On("Rollback").Return(nil).Maybe()
		f.metadata.On("FindByProductIDs", ctx, []int64{4}).Return(map[int64]domain.Metadata{}, nil).Once()

		p, err := f.service.UpdateProduct(ctx, 4, req)
		require.NoError(t, err)
		assert.Equal(t, 0, p.Quantity)
		assert.Equal(t, 1, f.cache.invalidations)
	})

	t.Run("Unknown product", func(t *testing.T) {
		f := newFixture()
		f.products.On("BeginTx", ctx).Return(f.tx, nil).Once()
		f.products.On("UpdateProduct", ctx, f.tx, mock.Anything).Return(repository.ErrProductNotFound).Once()
		f.tx.On("Rollback").Return(nil).Once()

		_, err := f.service.UpdateProduct(ctx, 4, req)
		assert.ErrorIs(t, err, repository.ErrProductNotFound)
		f.ledger.AssertNotCalled(t, "SetStock", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestCatalogService_DeleteProduct(t *testing.T) {
	ctx := context.TODO()

	t.Run("Purges history before deleting", func(t *testing.T) {
		f := newFixture()
		var order []string
		f.products.On("BeginTx", ctx).Return(f.tx, nil).Once()
		f.ledger.On("PurgeProductHistory", ctx, f.tx, int64(5)).Return(nil).Once().
			Run(func(mock.Arguments) { order = append(order, "purge") })
		f.products.On("DeleteProduct", ctx, f.tx, int64(5)).Return(nil).Once().
			Run(func(mock.Arguments) { order = append(order, "delete") })
		f.tx.On("Commit").Return(nil).Once()
		f.tx.On("Rollback").Return(nil).Maybe()
		f.metadata.On("Delete", ctx, int64(5)).Return(errors.New("mongo down")).Once()

		err := f.service.DeleteProduct(ctx, 5)
		require.NoError(t, err)
		assert.Equal(t, []string{"purge", "delete"}, order)
		assert.Equal(t, 1, f.cache.invalidations)
		f.metadata.AssertExpectations(t)
	})

	t.Run("Unknown product rolls back", func(t *testing.T) {
		f := newFixture()
		f.products.On("BeginTx", ctx).Return(f.tx, nil).Once()
		f.ledger.On("PurgeProductHistory", ctx, f.tx, int64(6)).Return(nil).Once()
		f.products.On("DeleteProduct", ctx, f.tx, int64(6)).Return(repository.ErrProductNotFound).Once()
		f.tx.On("Rollback").Return(nil).Once()

		err := f.service.DeleteProduct(ctx, 6)
		assert.ErrorIs(t, err, repository.ErrProductNotFound)
		f.tx.AssertNotCalled(t, "Commit")
		f.metadata.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})
}

func TestCatalogService_UpdateProductImage(t *testing.T) {
	ctx := context.TODO()
	img := &domain.Image{ContentType: "image/png", Data: []byte{0x89, 0x50}}

	t.Run("Missing file", func(t *testing.T) {
		f := newFixture()
		_, err := f.service.UpdateProductImage(ctx, 1, &domain.Image{})
		assert.ErrorIs(t, err, ErrMissingImage)
	})

	t.Run("Replaces images", func(t *testing.T) {
		f := newFixture()
		f.metadata.On("SetImages", ctx, int64(7), []string{"https://cdn.example/products/7.png"}).Return(nil).Once()

		images, err := f.service.UpdateProductImage(ctx, 7, img)
		require.NoError(t, err)
		assert.Equal(t, []string{"https://cdn.example/products/7.png"}, images)
		assert.Equal(t, 1, f.cache.invalidations)
	})

	t.Run("Unknown metadata", func(t *testing.T) {
		f := newFixture()
		f.metadata.On("SetImages", ctx, int64(8), mock.Anything).Return(repository.ErrMetadataNotFound).Once()

		_, err := f.service.UpdateProductImage(ctx, 8, img)
		assert.ErrorIs(t, err, repository.ErrMetadataNotFound)
	})

	t.Run("Image store failure", func(t *testing.T) {
		f := newFixture()
		f.images.err = errors.New("s3 unavailable")

		_, err := f.service.UpdateProductImage(ctx, 7, img)
		assert.Error(t, err)
		f.metadata.AssertNotCalled(t, "SetImages", mock.Anything, mock.Anything, mock.Anything)
	})
}
