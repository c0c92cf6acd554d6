package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/MarcoPoloResearchLab/buildings/backend/internal/buildings"
	"github.com/MarcoPoloResearchLab/buildings/backend/internal/impressions"
	"github.com/MarcoPoloResearchLab/buildings/backend/internal/logging"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	defaultHeartbeatInterval = 25 * time.Second
	// uploadEnvelopeBytes covers the JSON wrapper around the data URL.
	uploadEnvelopeBytes = 1024
)

var (
	errMissingBuildingsService   = errors.New("buildings service dependency required")
	errMissingImpressionsService = errors.New("impressions service dependency required")
	errMissingImagesService      = errors.New("images service dependency required")
)

type BuildingsService interface {
	List(ctx context.Context) ([]buildings.Building, error)
	Get(ctx context.Context, id string) (buildings.Building, error)
	Create(ctx context.Context, request buildings.CreateRequest) (buildings.Building, error)
	UpdateCoordinates(ctx context.Context, id string, position buildings.Coordinates) (buildings.Building, error)
	AppendImages(ctx context.Context, id string, filenames []string) (buildings.Building, error)
	ListDesigners(ctx context.Context) ([]string, error)
}

type ImpressionsService interface {
	ListForBuilding(ctx context.Context, buildingID string) ([]impressions.Impression, error)
	Create(ctx context.Context, request impressions.CreateRequest) (impressions.Impression, error)
}

type ImagesService interface {
	Upload(ctx context.Context, payload string) (string, error)
	Fetch(ctx context.Context, filename string) ([]byte, error)
	Delete(ctx context.Context, filename string) error
}

// UploadLimits bounds the image upload endpoint.
type UploadLimits struct {
	MaxBytes      int64
	RatePerSecond float64
	Burst         int
}

type Dependencies struct {
	Buildings         BuildingsService
	Impressions       ImpressionsService
	Images            ImagesService
	Logger            *zap.Logger
	Realtime          *RealtimeDispatcher
	Metrics           *Metrics
	AllowedOrigins    []string
	Upload            UploadLimits
	HealthCheck       func(ctx context.Context) error
	HeartbeatInterval time.Duration
}

func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.Buildings == nil {
		return nil, errMissingBuildingsService
	}
	if deps.Impressions == nil {
		return nil, errMissingImpressionsService
	}
	if deps.Images == nil {
		return nil, errMissingImagesService
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	heartbeat := deps.HeartbeatInterval
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeatInterval
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(logging.RequestLogger(logger))
	router.Use(deps.Metrics.middleware())
	router.Use(corsMiddleware(deps.AllowedOrigins))

	handler := &httpHandler{
		buildings:         deps.Buildings,
		impressions:       deps.Impressions,
		images:            deps.Images,
		logger:            logger,
		realtime:          deps.Realtime,
		metrics:           deps.Metrics,
		uploadMaxBytes:    deps.Upload.MaxBytes,
		healthCheck:       deps.HealthCheck,
		heartbeatInterval: heartbeat,
	}
	uploadLimiter := newClientRateLimiter(deps.Upload.RatePerSecond, deps.Upload.Burst)

	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	api := router.Group("/api")
	api.GET("/healthz", handler.handleHealth)
	api.GET("/events", handler.handleEvents)

	api.GET("/buildings", handler.handleListBuildings)
	api.POST("/buildings", handler.handleCreateBuilding)
	api.GET("/buildings/:id", handler.handleGetBuilding)
	api.PUT("/buildings/:id", handler.handleUpdateCoordinates)
	api.PATCH("/buildings/:id", handler.handleAppendImages)

	api.GET("/buildings/:id/impressions", handler.handleListImpressions)
	api.POST("/buildings/:id/impressions", handler.handleCreateImpression)

	api.GET("/designers", handler.handleListDesigners)

	api.POST("/upload/image", uploadLimiter.middleware(deps.Metrics), handler.handleUploadImage)
	api.GET("/image/:filename", handler.handleGetImage)
	api.DELETE("/delete/image", handler.handleDeleteImage)

	return router, nil
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowHeaders: []string{"Content-Type", "Last-Event-ID"},
		MaxAge:       12 * time.Hour,
	}
	allowAll := len(allowedOrigins) == 0
	for _, origin := range allowedOrigins {
		if origin == "*" {
			allowAll = true
		}
	}
	if allowAll {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = allowedOrigins
	}
	return cors.New(cfg)
}

type httpHandler struct {
	buildings         BuildingsService
	impressions       ImpressionsService
	images            ImagesService
	logger            *zap.Logger
	realtime          *RealtimeDispatcher
	metrics           *Metrics
	uploadMaxBytes    int64
	healthCheck       func(ctx context.Context) error
	heartbeatInterval time.Duration
}

func (h *httpHandler) handleHealth(c *gin.Context) {
	if h.healthCheck != nil {
		if err := h.healthCheck(c.Request.Context()); err != nil {
			h.logger.Warn("health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *httpHandler) publish(eventType, buildingID, impressionID string) {
	h.realtime.Publish(RealtimeMessage{
		EventType:    eventType,
		BuildingID:   buildingID,
		ImpressionID: impressionID,
		Timestamp:    time.Now().UTC(),
	})
}
