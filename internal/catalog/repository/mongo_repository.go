package repository

import (
	"context"
	"errors"

	"github.com/ridloal/inventory-pos/internal/catalog/domain"
	"github.com/ridloal/inventory-pos/internal/platform/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

var ErrMetadataNotFound = errors.New("product metadata not found")

type MetadataRepository interface {
	Upsert(ctx context.Context, md *domain.Metadata) error
	FindByProductIDs(ctx context.Context, ids []int64) (map[int64]domain.Metadata, error)
	SetImages(ctx context.Context, productID int64, images []string) error
	Delete(ctx context.Context, productID int64) error
}

type mongoMetadataRepository struct {
	coll *mongo.Collection
}

func NewMongoMetadataRepository(coll *mongo.Collection) MetadataRepository {
	return &mongoMetadataRepository{coll: coll}
}

// EnsureIndexes creates the unique productId index.
func EnsureIndexes(ctx context.Context, coll *mongo.Collection) error {
	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "productId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func (r *mongoMetadataRepository) Upsert(ctx context.Context, md *domain.Metadata) error {
	if md.Tags == nil {
		md.Tags = []string{}
	}
	if md.Images == nil {
		md.Images = []string{}
	}
	_, err := r.coll.ReplaceOne(ctx,
		bson.M{"productId": md.ProductID},
		md,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		logger.Error("UpsertMetadata: replace failed", err, zap.Int64("product_id", md.ProductID))
		return err
	}
	return nil
}

func (r *mongoMetadataRepository) FindByProductIDs(ctx context.Context, ids []int64) (map[int64]domain.Metadata, error) {
	result := make(map[int64]domain.Metadata, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	cursor, err := r.coll.Find(ctx, bson.M{"productId": bson.M{"$in": ids}})
	if err != nil {
		logger.Error("FindMetadata: find failed", err)
		return nil, err
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var md domain.Metadata
		if err := cursor.Decode(&md); err != nil {
			logger.Error("FindMetadata: decode failed", err)
			return nil, err
		}
		result[md.ProductID] = md
	}
	return result, cursor.Err()
}

func (r *mongoMetadataRepository) SetImages(ctx context.Context, productID int64, images []string) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"productId": productID},
		bson.M{"$set": bson.M{"images": images}},
	)
	if err != nil {
		logger.Error("SetImages: update failed", err, zap.Int64("product_id", productID))
		return err
	}
	if res.MatchedCount == 0 {
		return ErrMetadataNotFound
	}
	return nil
}

func (r *mongoMetadataRepository) Delete(ctx context.Context, productID int64) error {
	_, err := r.coll.DeleteOne(ctx, bson.M{"productId": productID})
	return err
}
