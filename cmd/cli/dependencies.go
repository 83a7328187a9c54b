package cli

import (
	"context"
	"fmt"

	"github.com/FluidspaceWeb/development-server/internal/config"
	"github.com/FluidspaceWeb/development-server/internal/controllers"
	"github.com/FluidspaceWeb/development-server/internal/domain"
	"github.com/FluidspaceWeb/development-server/internal/managers"
	"github.com/FluidspaceWeb/development-server/internal/storage"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ServerDependencies contains everything the HTTP server needs.
type ServerDependencies struct {
	IntegrationController *controllers.IntegrationController
	IDCodec               domain.IDCodec
	MongoClient           *mongo.Client
	RedisClient           *redis.Client
}

// BuildServerDependencies creates and wires up the credential engine.
func BuildServerDependencies(ctx context.Context, cfg *config.Config) (*ServerDependencies, error) {
	log.Info().Msg("Building server dependencies")

	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := mongoClient.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddress,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	if err := redisClient.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	cipher, err := managers.NewTokenCipher(cfg.TokenCryptoKey)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token cipher: %w", err)
	}

	idCodec, err := managers.NewIDCodec(cfg.IDCodecKey)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize id codec: %w", err)
	}

	providerConfigs := storage.NewMongoProviderConfigStore(storage.MongoProviderConfigStoreDependencies{
		Database: mongoClient.Database(cfg.MongoModuleLibraryDB),
	})

	accounts := storage.NewMongoAccountStore(storage.MongoAccountStoreDependencies{
		Database: mongoClient.Database(cfg.MongoEnvironmentDB),
	})

	sessions := storage.NewRedisSessionStore(storage.RedisSessionStoreDependencies{
		Client: redisClient,
		TTL:    cfg.SessionTTL(),
	})

	flow := managers.NewOAuth2Flow(managers.OAuth2FlowDependencies{
		Cipher:       cipher,
		TokenDecoder: managers.NewUnverifiedTokenDecoder(),
		RedirectURL:  cfg.OAuth2RedirectURL,
	})

	authManager := managers.NewIntegrationAuthManager(managers.IntegrationAuthManagerDependencies{
		ProviderConfigs: providerConfigs,
		Accounts:        accounts,
		Sessions:        sessions,
		Flow:            flow,
		Executor:        managers.NewRequestExecutor(),
		AccountLimit:    cfg.AccountLimit,
	})

	integrationController := controllers.NewIntegrationController(controllers.IntegrationControllerDependencies{
		AuthManager: authManager,
		OwnerID:     cfg.DevUserID,
	})

	log.Info().Msg("Server dependencies built successfully")

	return &ServerDependencies{
		IntegrationController: integrationController,
		IDCodec:               idCodec,
		MongoClient:           mongoClient,
		RedisClient:           redisClient,
	}, nil
}
