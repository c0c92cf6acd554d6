package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	envPrefix              = "BUILDINGS"
	defaultHTTPAddress     = "0.0.0.0:3000"
	defaultDatabaseDriver  = DatabaseDriverSQLite
	defaultDatabasePath    = "buildings.db"
	defaultMaxOpenConns    = 10
	defaultCheckoutWarning = 5 * time.Second
	defaultLogLevel        = "info"
	defaultBlobDriver      = BlobDriverMemory
	defaultRedisPrefix     = "buildings:image:"
	defaultBucket          = "buildings-images"
	defaultS3Region        = "eu-central-1"
	defaultUploadMaxBytes  = 8 << 20
	defaultUploadRate      = 2.0
	defaultUploadBurst     = 10

	// EnvFile is the dotenv file read before environment variables are bound.
	EnvFile = ".env.local"
)

// Supported database drivers.
const (
	DatabaseDriverSQLite = "sqlite"
	DatabaseDriverMySQL  = "mysql"
)

// Supported blob store drivers.
const (
	BlobDriverMemory = "memory"
	BlobDriverRedis  = "redis"
	BlobDriverMinIO  = "minio"
	BlobDriverS3     = "s3"
)

// AppConfig captures runtime configuration for the API server.
type AppConfig struct {
	HTTPAddress    string
	AllowedOrigins []string
	LogLevel       string
	Database       DatabaseConfig
	Blob           BlobConfig
	Upload         UploadConfig
}

// DatabaseConfig selects and tunes the relational store.
type DatabaseConfig struct {
	Driver          string
	Path            string
	DSN             string
	MaxOpenConns    int
	CheckoutWarning time.Duration
}

// BlobConfig selects the image blob store backend.
type BlobConfig struct {
	Driver string
	Redis  RedisConfig
	MinIO  MinIOConfig
	S3     S3Config
}

type RedisConfig struct {
	Address  string
	Password string
	DB       int
	Prefix   string
}

type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
}

type S3Config struct {
	Bucket   string
	Region   string
	Endpoint string
	Prefix   string
}

// UploadConfig bounds the image upload endpoint.
type UploadConfig struct {
	MaxBytes      int64
	RatePerSecond float64
	Burst         int
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("http.allowed_origins", []string{"*"})
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("database.driver", defaultDatabaseDriver)
	configViper.SetDefault("database.path", defaultDatabasePath)
	configViper.SetDefault("database.dsn", "")
	configViper.SetDefault("database.max_open_conns", defaultMaxOpenConns)
	configViper.SetDefault("database.checkout_warning", defaultCheckoutWarning)
	configViper.SetDefault("blob.driver", defaultBlobDriver)
	configViper.SetDefault("blob.redis.address", "")
	configViper.SetDefault("blob.redis.password", "")
	configViper.SetDefault("blob.redis.db", 0)
	configViper.SetDefault("blob.redis.prefix", defaultRedisPrefix)
	configViper.SetDefault("blob.minio.endpoint", "")
	configViper.SetDefault("blob.minio.access_key", "")
	configViper.SetDefault("blob.minio.secret_key", "")
	configViper.SetDefault("blob.minio.use_ssl", false)
	configViper.SetDefault("blob.minio.bucket", defaultBucket)
	configViper.SetDefault("blob.s3.bucket", defaultBucket)
	configViper.SetDefault("blob.s3.region", defaultS3Region)
	configViper.SetDefault("blob.s3.endpoint", "")
	configViper.SetDefault("blob.s3.prefix", "")
	configViper.SetDefault("upload.max_bytes", defaultUploadMaxBytes)
	configViper.SetDefault("upload.rate_per_second", defaultUploadRate)
	configViper.SetDefault("upload.burst", defaultUploadBurst)
}

// LoadEnvFile loads dotenv variables from path. A missing file is not an error.
// Variables already present in the environment win.
func LoadEnvFile(path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:    configViper.GetString("http.address"),
		AllowedOrigins: splitList(configViper.GetStringSlice("http.allowed_origins")),
		LogLevel:       configViper.GetString("log.level"),
		Database: DatabaseConfig{
			Driver:          strings.ToLower(strings.TrimSpace(configViper.GetString("database.driver"))),
			Path:            configViper.GetString("database.path"),
			DSN:             configViper.GetString("database.dsn"),
			MaxOpenConns:    configViper.GetInt("database.max_open_conns"),
			CheckoutWarning: configViper.GetDuration("database.checkout_warning"),
		},
		Blob: BlobConfig{
			Driver: strings.ToLower(strings.TrimSpace(configViper.GetString("blob.driver"))),
			Redis: RedisConfig{
				Address:  configViper.GetString("blob.redis.address"),
				Password: configViper.GetString("blob.redis.password"),
				DB:       configViper.GetInt("blob.redis.db"),
				Prefix:   configViper.GetString("blob.redis.prefix"),
			},
			MinIO: MinIOConfig{
				Endpoint:  configViper.GetString("blob.minio.endpoint"),
				AccessKey: configViper.GetString("blob.minio.access_key"),
				SecretKey: configViper.GetString("blob.minio.secret_key"),
				UseSSL:    configViper.GetBool("blob.minio.use_ssl"),
				Bucket:    configViper.GetString("blob.minio.bucket"),
			},
			S3: S3Config{
				Bucket:   configViper.GetString("blob.s3.bucket"),
				Region:   configViper.GetString("blob.s3.region"),
				Endpoint: configViper.GetString("blob.s3.endpoint"),
				Prefix:   configViper.GetString("blob.s3.prefix"),
			},
		},
		Upload: UploadConfig{
			MaxBytes:      configViper.GetInt64("upload.max_bytes"),
			RatePerSecond: configViper.GetFloat64("upload.rate_per_second"),
			Burst:         configViper.GetInt("upload.burst"),
		},
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

func (c AppConfig) validate() error {
	if strings.TrimSpace(c.HTTPAddress) == "" {
		return fmt.Errorf("http.address is required")
	}
	switch c.Database.Driver {
	case DatabaseDriverSQLite:
		if strings.TrimSpace(c.Database.Path) == "" {
			return fmt.Errorf("database.path is required for the sqlite driver")
		}
	case DatabaseDriverMySQL:
		if strings.TrimSpace(c.Database.DSN) == "" {
			return fmt.Errorf("database.dsn is required for the mysql driver")
		}
	default:
		return fmt.Errorf("database.driver %q is not supported", c.Database.Driver)
	}
	switch c.Blob.Driver {
	case BlobDriverMemory:
	case BlobDriverRedis:
		if strings.TrimSpace(c.Blob.Redis.Address) == "" {
			return fmt.Errorf("blob.redis.address is required for the redis driver")
		}
	case BlobDriverMinIO:
		if strings.TrimSpace(c.Blob.MinIO.Endpoint) == "" {
			return fmt.Errorf("blob.minio.endpoint is required for the minio driver")
		}
		if strings.TrimSpace(c.Blob.MinIO.Bucket) == "" {
			return fmt.Errorf("blob.minio.bucket is required for the minio driver")
		}
	case BlobDriverS3:
		if strings.TrimSpace(c.Blob.S3.Bucket) == "" {
			return fmt.Errorf("blob.s3.bucket is required for the s3 driver")
		}
	default:
		return fmt.Errorf("blob.driver %q is not supported", c.Blob.Driver)
	}
	if c.Upload.MaxBytes <= 0 {
		return fmt.Errorf("upload.max_bytes must be positive")
	}
	return nil
}

// splitList accepts both list values and a single comma separated env value.
func splitList(values []string) []string {
	result := make([]string, 0, len(values))
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			trimmed := strings.TrimSpace(part)
			if trimmed != "" {
				result = append(result, trimmed)
			}
		}
	}
	return result
}
