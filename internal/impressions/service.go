package impressions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MarcoPoloResearchLab/buildings/backend/internal/buildings"
	"github.com/MarcoPoloResearchLab/buildings/backend/internal/database/checkout"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	errMissingDatabase = errors.New("database handle is required")
	noOpLogger         = zap.NewNop()
)

type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

func (e *ServiceError) Code() string {
	return e.code
}

const (
	opServiceNew        = "impressions.service.new"
	opListForBuilding   = "impressions.list_for_building"
	opCreate            = "impressions.create"
	reasonMissingDB     = "missing_database"
	reasonInvalidInput  = "invalid_input"
	reasonBuildingGone  = "building_not_found"
	reasonConflict      = "conflict"
	reasonQueryFailed   = "query_failed"
	reasonInsertFailed  = "insert_failed"
	stepCountBuilding   = "count parent building"
	stepCountImpression = "count impression by id"
	stepInsert          = "insert impression"
)

func newServiceError(operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, err: cause}
}

type ServiceConfig struct {
	Database        *gorm.DB
	Clock           func() time.Time
	Logger          *zap.Logger
	CheckoutWarning time.Duration
}

// Service persists impressions attached to existing buildings.
type Service struct {
	db              *gorm.DB
	clock           func() time.Time
	logger          *zap.Logger
	checkoutWarning time.Duration
}

func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, newServiceError(opServiceNew, reasonMissingDB, errMissingDatabase)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}

	return &Service{
		db:              cfg.Database,
		clock:           clock,
		logger:          logger,
		checkoutWarning: cfg.CheckoutWarning,
	}, nil
}

// ListForBuilding returns the impressions of one building, newest first.
// An unknown building yields an empty list.
func (s *Service) ListForBuilding(ctx context.Context, buildingID string) ([]Impression, error) {
	if s.db == nil {
		s.logError(opListForBuilding, reasonMissingDB, errMissingDatabase)
		return nil, newServiceError(opListForBuilding, reasonMissingDB, errMissingDatabase)
	}
	trimmed := strings.TrimSpace(buildingID)
	if trimmed == "" {
		return nil, newServiceError(opListForBuilding, reasonInvalidInput,
			fmt.Errorf("%w: missing buildingId", ErrInvalidInput))
	}

	records := []Impression{}
	if err := s.db.WithContext(ctx).
		Where("building_id = ?", trimmed).
		Order("created_at DESC").
		Find(&records).Error; err != nil {
		s.logError(opListForBuilding, reasonQueryFailed, err, zap.String("building_id", trimmed))
		return nil, newServiceError(opListForBuilding, reasonQueryFailed, err)
	}
	for index := range records {
		records[index].ensureArrays()
	}
	return records, nil
}

// Create validates and inserts an impression. The parent building is looked
// up on the same connection immediately before the insert.
func (s *Service) Create(ctx context.Context, request CreateRequest) (Impression, error) {
	if s.db == nil {
		s.logError(opCreate, reasonMissingDB, errMissingDatabase)
		return Impression{}, newServiceError(opCreate, reasonMissingDB, errMissingDatabase)
	}
	impression, err := request.validate()
	if err != nil {
		return Impression{}, newServiceError(opCreate, reasonInvalidInput, err)
	}
	impression.CreatedAt = s.clock().UTC()

	err = checkout.Run(ctx, s.db, checkout.Options{
		Operation: opCreate,
		Threshold: s.checkoutWarning,
		Logger:    s.loggerOrDefault(),
	}, func(session *checkout.Session) error {
		var parents int64
		if err := session.Step(stepCountBuilding).
			Model(&buildings.Building{}).
			Where("id = ?", impression.BuildingID).
			Count(&parents).Error; err != nil {
			s.logError(opCreate, reasonQueryFailed, err, zap.String("building_id", impression.BuildingID))
			return newServiceError(opCreate, reasonQueryFailed, err)
		}
		if parents == 0 {
			return newServiceError(opCreate, reasonBuildingGone, ErrBuildingNotFound)
		}

		var existing int64
		if err := session.Step(stepCountImpression).
			Model(&Impression{}).
			Where("id = ?", impression.ID).
			Count(&existing).Error; err != nil {
			s.logError(opCreate, reasonQueryFailed, err, zap.String("impression_id", impression.ID))
			return newServiceError(opCreate, reasonQueryFailed, err)
		}
		if existing > 0 {
			return newServiceError(opCreate, reasonConflict, ErrConflict)
		}

		if err := session.Step(stepInsert).Create(&impression).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return newServiceError(opCreate, reasonConflict, ErrConflict)
			}
			s.logError(opCreate, reasonInsertFailed, err,
				zap.String("impression_id", impression.ID),
				zap.String("building_id", impression.BuildingID))
			return newServiceError(opCreate, reasonInsertFailed, err)
		}
		return nil
	})
	if err != nil {
		return Impression{}, err
	}
	return impression, nil
}

func (i *Impression) ensureArrays() {
	if i.Moods == nil {
		i.Moods = []string{}
	}
	if i.Photos == nil {
		i.Photos = []string{}
	}
	if i.Hyperlinks == nil {
		i.Hyperlinks = []string{}
	}
}

func (s *Service) loggerOrDefault() *zap.Logger {
	if s == nil {
		return noOpLogger
	}
	if s.logger == nil {
		return noOpLogger
	}
	return s.logger
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.loggerOrDefault().Error("impressions service error", attrs...)
}
