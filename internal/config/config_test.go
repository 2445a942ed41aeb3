package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func clearStoreEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"ENVIRONMENT", "TENANT_NAME", "STORE_DRIVER",
		"COSMOS_ENDPOINT", "COSMOS_KEY", "COSMOS_DATABASE",
		"POSTGRES_URL", "TABLE_PREFIX",
		"MONGO_URI", "MONGO_DATABASE",
		"QUERY_PAGE_SIZE", "DEBUG",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearStoreEnv(t)

	cfg := Load()

	assert.Equal(t, "dev", cfg.Environment)
	assert.Equal(t, "teamcloud", cfg.Tenant)
	assert.Equal(t, "memory", cfg.StoreDriver)
	assert.Equal(t, "teamcloud", cfg.CosmosDatabase)
	assert.Equal(t, "dev_", cfg.TablePrefix)
	assert.Equal(t, 100, cfg.QueryPageSize)
	assert.True(t, cfg.Debug)
}

func TestLoadFromEnvironment(t *testing.T) {
	clearStoreEnv(t)
	t.Setenv("ENVIRONMENT", "prod")
	t.Setenv("TENANT_NAME", "contoso")
	t.Setenv("STORE_DRIVER", "cosmos")
	t.Setenv("COSMOS_ENDPOINT", "https://contoso.documents.azure.com:443/")
	t.Setenv("QUERY_PAGE_SIZE", "25")

	cfg := Load()

	assert.Equal(t, "contoso", cfg.Tenant)
	assert.Equal(t, "cosmos", cfg.StoreDriver)
	assert.Equal(t, "https://contoso.documents.azure.com:443/", cfg.CosmosEndpoint)
	assert.Equal(t, "prod_", cfg.TablePrefix)
	assert.Equal(t, 25, cfg.QueryPageSize)
	assert.False(t, cfg.Debug, "debug defaults off in prod")
}

func TestTablePrefix(t *testing.T) {
	tests := []struct {
		name     string
		env      string
		override string
		want     string
	}{
		{name: "dev environment", env: "dev", want: "dev_"},
		{name: "test environment", env: "test", want: "test_"},
		{name: "prod environment", env: "prod", want: "prod_"},
		{name: "unknown environment falls back to dev", env: "staging", want: "dev_"},
		{name: "explicit override wins", env: "prod", override: "custom_", want: "custom_"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TABLE_PREFIX", tt.override)
			assert.Equal(t, tt.want, getTablePrefix(tt.env))
		})
	}
}

func TestQueryPageSizeFallsBackOnBadValues(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  int
	}{
		{name: "not a number", value: "lots", want: 100},
		{name: "zero", value: "0", want: 100},
		{name: "negative", value: "-5", want: 100},
		{name: "valid", value: "250", want: 250},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearStoreEnv(t)
			t.Setenv("QUERY_PAGE_SIZE", tt.value)
			assert.Equal(t, tt.want, Load().QueryPageSize)
		})
	}
}

func TestDebugFlag(t *testing.T) {
	clearStoreEnv(t)
	t.Setenv("ENVIRONMENT", "prod")
	t.Setenv("DEBUG", "true")
	assert.True(t, Load().Debug, "explicit DEBUG overrides the prod default")

	t.Setenv("ENVIRONMENT", "dev")
	t.Setenv("DEBUG", "false")
	assert.False(t, Load().Debug)
}
