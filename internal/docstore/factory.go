package docstore

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/TaffyWrinkle/TeamCloud/internal/config"
)

// New creates the Store selected by cfg.StoreDriver:
//
//   - "memory" (default): in-process store, no external dependencies
//   - "cosmos": Azure Cosmos DB (COSMOS_ENDPOINT, COSMOS_KEY, COSMOS_DATABASE)
//   - "postgres": JSONB document table (POSTGRES_URL, environment table prefix)
//   - "mongo": MongoDB (MONGO_URI, MONGO_DATABASE)
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Store, error) {
	switch cfg.StoreDriver {
	case "memory", "":
		return NewMemoryStore(MemoryConfig{PageSize: cfg.QueryPageSize}, logger), nil

	case "cosmos":
		return NewCosmosStore(CosmosConfig{
			Endpoint: cfg.CosmosEndpoint,
			Key:      cfg.CosmosKey,
			Database: cfg.CosmosDatabase,
			PageSize: cfg.QueryPageSize,
		}, logger)

	case "postgres":
		return NewPostgresStore(ctx, PostgresConfig{
			URL:         cfg.PostgresURL,
			TablePrefix: cfg.TablePrefix,
			PageSize:    cfg.QueryPageSize,
		}, logger)

	case "mongo":
		return NewMongoStore(ctx, MongoConfig{
			URI:      cfg.MongoURI,
			Database: cfg.MongoDatabase,
			PageSize: cfg.QueryPageSize,
		}, logger)

	default:
		return nil, fmt.Errorf("unsupported store driver: %s (supported: memory, cosmos, postgres, mongo)", cfg.StoreDriver)
	}
}
