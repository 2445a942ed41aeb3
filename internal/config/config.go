package config

import (
	"os"
	"strconv"
)

type Config struct {
	Environment string
	Tenant      string // partition value for every document in this deployment
	StoreDriver string // memory | cosmos | postgres | mongo
	// Cosmos DB
	CosmosEndpoint string
	CosmosKey      string
	CosmosDatabase string
	// Postgres (JSONB document table)
	PostgresURL string
	TablePrefix string
	// MongoDB
	MongoURI      string
	MongoDatabase string
	// Query tuning
	QueryPageSize int
	// Debug flags
	Debug bool
}

func Load() *Config {
	env := getEnv("ENVIRONMENT", "dev")

	return &Config{
		Environment: env,
		Tenant:      getEnv("TENANT_NAME", "teamcloud"),
		StoreDriver: getEnv("STORE_DRIVER", "memory"),
		// Cosmos DB
		CosmosEndpoint: getEnv("COSMOS_ENDPOINT", ""),
		CosmosKey:      getEnv("COSMOS_KEY", ""),
		CosmosDatabase: getEnv("COSMOS_DATABASE", "teamcloud"),
		// Postgres
		PostgresURL: getEnv("POSTGRES_URL", ""),
		TablePrefix: getTablePrefix(env),
		// MongoDB
		MongoURI:      getEnv("MONGO_URI", ""),
		MongoDatabase: getEnv("MONGO_DATABASE", "teamcloud"),
		// Query tuning
		QueryPageSize: getEnvInt("QUERY_PAGE_SIZE", 100),
		// Debug flags - default to true in dev/test, false in production
		Debug: getEnv("DEBUG", getDefaultDebug(env)) == "true",
	}
}

// getDefaultDebug returns the default debug setting based on environment
func getDefaultDebug(env string) string {
	if env == "prod" {
		return "false"
	}
	return "true" // Enable DEBUG in dev/test by default
}

// getTablePrefix returns the Postgres table prefix based on environment
func getTablePrefix(env string) string {
	// Allow manual override via TABLE_PREFIX env var
	if prefix := os.Getenv("TABLE_PREFIX"); prefix != "" {
		return prefix
	}

	// Auto-generate based on environment
	switch env {
	case "prod":
		return "prod_"
	case "test":
		return "test_"
	case "dev":
		return "dev_"
	default:
		return "dev_"
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		return defaultValue
	}
	return n
}
