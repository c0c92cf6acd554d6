package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MarcoPoloResearchLab/buildings/backend/internal/buildings"
	"github.com/MarcoPoloResearchLab/buildings/backend/internal/config"
	"github.com/MarcoPoloResearchLab/buildings/backend/internal/database"
	"github.com/MarcoPoloResearchLab/buildings/backend/internal/images"
	"github.com/MarcoPoloResearchLab/buildings/backend/internal/impressions"
	"github.com/MarcoPoloResearchLab/buildings/backend/internal/logging"
	"github.com/MarcoPoloResearchLab/buildings/backend/internal/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const shutdownTimeout = 10 * time.Second

var (
	cfgFile string
	envFile string
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "buildings-api",
		Short: "Buildings gallery backend service",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}
	rootCmd.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrations()
		},
	})
	rootCmd.AddCommand(newAttachImagesCommand())

	setupFlags(rootCmd)
	return rootCmd
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	flags := cmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "Path to configuration file")
	flags.StringVar(&envFile, "env-file", config.EnvFile, "Path to a dotenv file loaded before the environment")
	flags.String("http-address", defaults.GetString("http.address"), "HTTP listen address")
	flags.StringSlice("allowed-origins", defaults.GetStringSlice("http.allowed_origins"), "CORS allowed origins")
	flags.String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	flags.String("database-driver", defaults.GetString("database.driver"), "Database driver (sqlite, mysql)")
	flags.String("database-path", defaults.GetString("database.path"), "SQLite database path")
	flags.String("database-dsn", defaults.GetString("database.dsn"), "MySQL data source name")
	flags.String("blob-driver", defaults.GetString("blob.driver"), "Image store driver (memory, redis, minio, s3)")
	flags.Int64("upload-max-bytes", defaults.GetInt64("upload.max_bytes"), "Largest accepted image payload in bytes")

	bindFlag(cmd, "http.address", "http-address")
	bindFlag(cmd, "http.allowed_origins", "allowed-origins")
	bindFlag(cmd, "log.level", "log-level")
	bindFlag(cmd, "database.driver", "database-driver")
	bindFlag(cmd, "database.path", "database-path")
	bindFlag(cmd, "database.dsn", "database-dsn")
	bindFlag(cmd, "blob.driver", "blob-driver")
	bindFlag(cmd, "upload.max_bytes", "upload-max-bytes")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if err := config.LoadEnvFile(envFile); err != nil {
		return err
	}

	return readConfig(viper.GetViper(), cfgFile)
}

// readConfig loads an explicitly named config file. Without a name the
// flags, environment and defaults are enough.
func readConfig(configViper *viper.Viper, path string) error {
	if path == "" {
		return nil
	}
	configViper.SetConfigFile(path)
	if err := configViper.ReadInConfig(); err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	return nil
}

func runMigrations() error {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	db, err := database.Open(appConfig.Database, logger)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	logger.Info("migrations applied")
	return nil
}

func runServer(ctx context.Context) error {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	db, err := database.Open(appConfig.Database, logger)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	blobStore, err := images.OpenStore(ctx, appConfig.Blob)
	if err != nil {
		return err
	}

	handler, err := newHandler(appConfig, db, blobStore, logger)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              appConfig.HTTPAddress,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.String("address", appConfig.HTTPAddress),
			zap.String("database_driver", appConfig.Database.Driver),
			zap.String("blob_driver", appConfig.Blob.Driver),
		)
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-signalCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info("server shutting down")
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func newHandler(appConfig config.AppConfig, db *gorm.DB, blobStore images.BlobStore, logger *zap.Logger) (http.Handler, error) {
	buildingService, err := buildings.NewService(buildings.ServiceConfig{
		Database:        db,
		Clock:           time.Now,
		Logger:          logger,
		CheckoutWarning: appConfig.Database.CheckoutWarning,
	})
	if err != nil {
		return nil, err
	}

	impressionService, err := impressions.NewService(impressions.ServiceConfig{
		Database:        db,
		Clock:           time.Now,
		Logger:          logger,
		CheckoutWarning: appConfig.Database.CheckoutWarning,
	})
	if err != nil {
		return nil, err
	}

	imageService, err := images.NewService(images.ServiceConfig{
		Store:    blobStore,
		MaxBytes: appConfig.Upload.MaxBytes,
		Logger:   logger,
	})
	if err != nil {
		return nil, err
	}

	return server.NewHTTPHandler(server.Dependencies{
		Buildings:      buildingService,
		Impressions:    impressionService,
		Images:         imageService,
		Logger:         logger,
		Realtime:       server.NewRealtimeDispatcher(),
		Metrics:        server.NewMetrics(),
		AllowedOrigins: appConfig.AllowedOrigins,
		Upload: server.UploadLimits{
			MaxBytes:      appConfig.Upload.MaxBytes,
			RatePerSecond: appConfig.Upload.RatePerSecond,
			Burst:         appConfig.Upload.Burst,
		},
		HealthCheck: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	})
}
