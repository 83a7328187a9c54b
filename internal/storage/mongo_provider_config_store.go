package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/FluidspaceWeb/development-server/internal/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const integrationConfigsCollection = "integration_configs"

type MongoProviderConfigStoreDependencies struct {
	// Database is the module_library database holding integration_configs.
	Database *mongo.Database
}

// MongoProviderConfigStore reads per-integration auth provider configs.
// The engine never writes here; configs are managed by the embedding
// application.
type MongoProviderConfigStore struct {
	db *mongo.Database
}

func NewMongoProviderConfigStore(deps MongoProviderConfigStoreDependencies) *MongoProviderConfigStore {
	return &MongoProviderConfigStore{db: deps.Database}
}

type integrationConfigDocument struct {
	Auths map[string]domain.ProviderConfig `bson:"auths"`
}

func (s *MongoProviderConfigStore) GetProviderConfig(ctx context.Context, integrationID, providerName string) (domain.ProviderConfig, error) {
	integrationOID, err := primitive.ObjectIDFromHex(integrationID)
	if err != nil {
		return domain.ProviderConfig{}, fmt.Errorf("invalid integration id: %w", err)
	}

	opts := options.FindOne().SetProjection(bson.M{
		"_id":                   0,
		"auths." + providerName: 1,
	})

	var doc integrationConfigDocument
	err = s.db.Collection(integrationConfigsCollection).FindOne(ctx, bson.M{"_id": integrationOID}, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.ProviderConfig{}, domain.ErrProviderConfigNotFound
		}
		return domain.ProviderConfig{}, fmt.Errorf("failed to read integration config: %w", err)
	}

	cfg, ok := doc.Auths[providerName]
	if !ok {
		return domain.ProviderConfig{}, domain.ErrProviderConfigNotFound
	}

	return cfg, nil
}
