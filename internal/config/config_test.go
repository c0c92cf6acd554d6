package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadAppliesDefaults(testContext *testing.T) {
	cfg, err := Load(NewViper())
	if err != nil {
		testContext.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTPAddress != defaultHTTPAddress {
		testContext.Fatalf("unexpected http address %q", cfg.HTTPAddress)
	}
	if cfg.Database.Driver != DatabaseDriverSQLite || cfg.Database.Path != defaultDatabasePath {
		testContext.Fatalf("unexpected database config %+v", cfg.Database)
	}
	if cfg.Database.CheckoutWarning != 5*time.Second {
		testContext.Fatalf("expected 5s checkout warning, got %s", cfg.Database.CheckoutWarning)
	}
	if cfg.Blob.Driver != BlobDriverMemory {
		testContext.Fatalf("expected memory blob driver, got %q", cfg.Blob.Driver)
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "*" {
		testContext.Fatalf("unexpected allowed origins %v", cfg.AllowedOrigins)
	}
}

func TestLoadReadsEnvironmentOverrides(testContext *testing.T) {
	testContext.Setenv("BUILDINGS_BLOB_DRIVER", "redis")
	testContext.Setenv("BUILDINGS_BLOB_REDIS_ADDRESS", "localhost:6379")
	testContext.Setenv("BUILDINGS_HTTP_ALLOWED_ORIGINS", "http://localhost:8080,https://buildings.example.com")
	testContext.Setenv("BUILDINGS_DATABASE_CHECKOUT_WARNING", "250ms")

	cfg, err := Load(NewViper())
	if err != nil {
		testContext.Fatalf("unexpected error: %v", err)
	}
	if cfg.Blob.Driver != BlobDriverRedis || cfg.Blob.Redis.Address != "localhost:6379" {
		testContext.Fatalf("unexpected blob config %+v", cfg.Blob)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://buildings.example.com" {
		testContext.Fatalf("unexpected allowed origins %v", cfg.AllowedOrigins)
	}
	if cfg.Database.CheckoutWarning != 250*time.Millisecond {
		testContext.Fatalf("unexpected checkout warning %s", cfg.Database.CheckoutWarning)
	}
}

func TestLoadValidationFailures(testContext *testing.T) {
	testCases := []struct {
		name  string
		key   string
		value string
	}{
		{name: "unknown-database-driver", key: "database.driver", value: "oracle"},
		{name: "mysql-without-dsn", key: "database.driver", value: DatabaseDriverMySQL},
		{name: "unknown-blob-driver", key: "blob.driver", value: "ftp"},
		{name: "redis-without-address", key: "blob.driver", value: BlobDriverRedis},
		{name: "minio-without-endpoint", key: "blob.driver", value: BlobDriverMinIO},
		{name: "empty-sqlite-path", key: "database.path", value: " "},
	}

	for _, testCase := range testCases {
		testContext.Run(testCase.name, func(testContext *testing.T) {
			configViper := NewViper()
			configViper.Set(testCase.key, testCase.value)
			if _, err := Load(configViper); err == nil {
				testContext.Fatalf("expected validation error for %s=%q", testCase.key, testCase.value)
			}
		})
	}
}

func TestLoadEnvFileIgnoresMissingFile(testContext *testing.T) {
	if err := LoadEnvFile(filepath.Join(testContext.TempDir(), "missing.env")); err != nil {
		testContext.Fatalf("expected missing env file to be ignored, got %v", err)
	}
}

func TestLoadEnvFilePopulatesEnvironment(testContext *testing.T) {
	path := filepath.Join(testContext.TempDir(), EnvFile)
	if err := os.WriteFile(path, []byte("BUILDINGS_LOG_LEVEL=debug\n"), 0o600); err != nil {
		testContext.Fatalf("failed to write env file: %v", err)
	}
	testContext.Setenv("BUILDINGS_LOG_LEVEL", "")
	os.Unsetenv("BUILDINGS_LOG_LEVEL")

	if err := LoadEnvFile(path); err != nil {
		testContext.Fatalf("unexpected error: %v", err)
	}
	cfg, err := Load(NewViper())
	if err != nil {
		testContext.Fatalf("unexpected error: %v", err)
	}
	if cfg.LogLevel != "debug" {
		testContext.Fatalf("expected log level from env file, got %q", cfg.LogLevel)
	}
}
