package mongodb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sp3dr4/tern/internal/domain"
)

// mappingDocument keeps the field names of the existing url_mappings collection.
type mappingDocument struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	ShortCode string             `bson:"ShortCode"`
	LongURL   string             `bson:"LongUrl"`
	CreatedAt time.Time          `bson:"CreatedAt"`
}

func (d mappingDocument) toDomain() *domain.Mapping {
	return &domain.Mapping{
		ID:        d.ID.Hex(),
		ShortCode: d.ShortCode,
		LongURL:   d.LongURL,
		CreatedAt: d.CreatedAt.UTC(),
	}
}

type MappingRepository struct {
	client     *mongo.Client
	collection *mongo.Collection
	logger     *slog.Logger
}

// Connect dials MongoDB and ensures the unique short code index exists.
func Connect(ctx context.Context, uri, database, collection string, logger *slog.Logger) (*MappingRepository, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	repo := NewMappingRepository(client, client.Database(database).Collection(collection), logger)
	if err := repo.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return repo, nil
}

func NewMappingRepository(client *mongo.Client, collection *mongo.Collection, logger *slog.Logger) *MappingRepository {
	return &MappingRepository{client: client, collection: collection, logger: logger}
}

func (r *MappingRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "ShortCode", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("ShortCode_unique"),
	})
	if err != nil {
		return fmt.Errorf("failed to create short code index: %w", err)
	}
	return nil
}

func (r *MappingRepository) Insert(ctx context.Context, mapping *domain.Mapping) (*domain.Mapping, error) {
	doc := mappingDocument{
		ID:        primitive.NewObjectID(),
		ShortCode: mapping.ShortCode,
		LongURL:   mapping.LongURL,
		CreatedAt: mapping.CreatedAt.UTC().Truncate(time.Millisecond),
	}

	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrDuplicateKey
		}
		r.logger.Error("MongoDB insert failed", "short_code", mapping.ShortCode, "error", err)
		return nil, fmt.Errorf("insert mapping: %w", err)
	}

	return doc.toDomain(), nil
}

func (r *MappingRepository) FindByShortCode(ctx context.Context, shortCode string) (*domain.Mapping, error) {
	return r.findOne(ctx, bson.M{"ShortCode": shortCode})
}

func (r *MappingRepository) FindByID(ctx context.Context, id string) (*domain.Mapping, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *MappingRepository) findOne(ctx context.Context, filter bson.M) (*domain.Mapping, error) {
	var doc mappingDocument
	if err := r.collection.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find mapping: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *MappingRepository) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrNotFound
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete mapping: %w", err)
	}
	if result.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *MappingRepository) List(ctx context.Context, limit, offset int) ([]*domain.Mapping, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "CreatedAt", Value: 1}, {Key: "ShortCode", Value: 1}}).
		SetSkip(int64(offset))
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list mappings: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []mappingDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode mappings: %w", err)
	}

	mappings := make([]*domain.Mapping, 0, len(docs))
	for _, doc := range docs {
		mappings = append(mappings, doc.toDomain())
	}
	return mappings, nil
}

func (r *MappingRepository) Close() error {
	if r.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return r.client.Disconnect(ctx)
}

func (r *MappingRepository) HealthCheck(ctx context.Context) error {
	if r.client == nil {
		return errors.New("mongo client is nil")
	}
	return r.client.Ping(ctx, nil)
}
