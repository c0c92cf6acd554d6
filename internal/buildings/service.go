package buildings

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/MarcoPoloResearchLab/buildings/backend/internal/database/checkout"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	errMissingDatabase = errors.New("database handle is required")
	errRevisionMoved   = errors.New("images revision moved")
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
	opServiceNew         = "buildings.service.new"
	opList               = "buildings.list"
	opGet                = "buildings.get"
	opCreate             = "buildings.create"
	opUpdateCoordinates  = "buildings.update_coordinates"
	opAppendImages       = "buildings.append_images"
	opListDesigners      = "buildings.list_designers"
	reasonMissingDB      = "missing_database"
	reasonInvalidInput   = "invalid_input"
	reasonNotFound       = "not_found"
	reasonConflict       = "conflict"
	reasonQueryFailed    = "query_failed"
	reasonInsertFailed   = "insert_failed"
	reasonUpdateFailed   = "update_failed"
	reasonRetryExhausted = "retry_exhausted"
	maxAppendAttempts    = 5
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

// Service persists buildings and answers the designers projection.
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

// List returns every building, newest first.
func (s *Service) List(ctx context.Context) ([]Building, error) {
	if s.db == nil {
		s.logError(opList, reasonMissingDB, errMissingDatabase)
		return nil, newServiceError(opList, reasonMissingDB, errMissingDatabase)
	}

	records := []Building{}
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&records).Error; err != nil {
		s.logError(opList, reasonQueryFailed, err)
		return nil, newServiceError(opList, reasonQueryFailed, err)
	}
	if records == nil {
		records = []Building{}
	}
	return records, nil
}

// Get returns a single building.
func (s *Service) Get(ctx context.Context, rawID string) (Building, error) {
	if s.db == nil {
		s.logError(opGet, reasonMissingDB, errMissingDatabase)
		return Building{}, newServiceError(opGet, reasonMissingDB, errMissingDatabase)
	}
	id, err := NewBuildingID(rawID)
	if err != nil {
		return Building{}, newServiceError(opGet, reasonInvalidInput, err)
	}

	var building Building
	err = s.db.WithContext(ctx).Where("id = ?", id.String()).Take(&building).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Building{}, newServiceError(opGet, reasonNotFound, ErrNotFound)
	}
	if err != nil {
		s.logError(opGet, reasonQueryFailed, err, zap.String("building_id", id.String()))
		return Building{}, newServiceError(opGet, reasonQueryFailed, err)
	}
	return building, nil
}

// Create validates and inserts a building. Absent images are stored as an empty list.
func (s *Service) Create(ctx context.Context, request CreateRequest) (Building, error) {
	if s.db == nil {
		s.logError(opCreate, reasonMissingDB, errMissingDatabase)
		return Building{}, newServiceError(opCreate, reasonMissingDB, errMissingDatabase)
	}
	building, err := request.validate()
	if err != nil {
		return Building{}, newServiceError(opCreate, reasonInvalidInput, err)
	}
	building.CreatedAt = s.clock().UTC()

	err = s.withCheckout(ctx, opCreate, func(session *checkout.Session) error {
		var existing int64
		if err := session.Step("count building by id").
			Model(&Building{}).
			Where("id = ?", building.ID).
			Count(&existing).Error; err != nil {
			s.logError(opCreate, reasonQueryFailed, err, zap.String("building_id", building.ID))
			return newServiceError(opCreate, reasonQueryFailed, err)
		}
		if existing > 0 {
			return newServiceError(opCreate, reasonConflict, ErrConflict)
		}
		if err := session.Step("insert building").Create(&building).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return newServiceError(opCreate, reasonConflict, ErrConflict)
			}
			s.logError(opCreate, reasonInsertFailed, err, zap.String("building_id", building.ID))
			return newServiceError(opCreate, reasonInsertFailed, err)
		}
		return nil
	})
	if err != nil {
		return Building{}, err
	}
	return building, nil
}

// UpdateCoordinates moves a building without touching any other field.
func (s *Service) UpdateCoordinates(ctx context.Context, rawID string, position Coordinates) (Building, error) {
	if s.db == nil {
		s.logError(opUpdateCoordinates, reasonMissingDB, errMissingDatabase)
		return Building{}, newServiceError(opUpdateCoordinates, reasonMissingDB, errMissingDatabase)
	}
	id, err := NewBuildingID(rawID)
	if err != nil {
		return Building{}, newServiceError(opUpdateCoordinates, reasonInvalidInput, err)
	}

	var building Building
	err = s.withCheckout(ctx, opUpdateCoordinates, func(session *checkout.Session) error {
		lookupErr := session.Step("select building").Where("id = ?", id.String()).Take(&building).Error
		if errors.Is(lookupErr, gorm.ErrRecordNotFound) {
			return newServiceError(opUpdateCoordinates, reasonNotFound, ErrNotFound)
		}
		if lookupErr != nil {
			s.logError(opUpdateCoordinates, reasonQueryFailed, lookupErr, zap.String("building_id", id.String()))
			return newServiceError(opUpdateCoordinates, reasonQueryFailed, lookupErr)
		}
		if err := session.Step("update coordinates").
			Model(&Building{}).
			Where("id = ?", id.String()).
			Updates(map[string]any{"xcoordinate": position.X, "ycoordinate": position.Y}).Error; err != nil {
			s.logError(opUpdateCoordinates, reasonUpdateFailed, err, zap.String("building_id", id.String()))
			return newServiceError(opUpdateCoordinates, reasonUpdateFailed, err)
		}
		return nil
	})
	if err != nil {
		return Building{}, err
	}
	building.XCoordinate = position.X
	building.YCoordinate = position.Y
	return building, nil
}

// AppendImages adds filenames to the end of a building's image list. Names
// already present are skipped. The write is conditional on the revision read,
// so concurrent appends retry instead of overwriting each other.
func (s *Service) AppendImages(ctx context.Context, rawID string, filenames []string) (Building, error) {
	if s.db == nil {
		s.logError(opAppendImages, reasonMissingDB, errMissingDatabase)
		return Building{}, newServiceError(opAppendImages, reasonMissingDB, errMissingDatabase)
	}
	id, err := NewBuildingID(rawID)
	if err != nil {
		return Building{}, newServiceError(opAppendImages, reasonInvalidInput, err)
	}
	if len(mergeImages(nil, filenames)) == 0 {
		return Building{}, newServiceError(opAppendImages, reasonInvalidInput,
			fmt.Errorf("%w: no image filenames supplied", ErrInvalidInput))
	}

	for attempt := 1; attempt <= maxAppendAttempts; attempt++ {
		building, err := s.appendImagesOnce(ctx, id, filenames)
		if errors.Is(err, errRevisionMoved) {
			s.loggerOrDefault().Debug("images revision moved, retrying append",
				zap.String("building_id", id.String()),
				zap.Int("attempt", attempt))
			continue
		}
		return building, err
	}

	s.logError(opAppendImages, reasonRetryExhausted, ErrConcurrentUpdate, zap.String("building_id", id.String()))
	return Building{}, newServiceError(opAppendImages, reasonRetryExhausted, ErrConcurrentUpdate)
}

func (s *Service) appendImagesOnce(ctx context.Context, id BuildingID, filenames []string) (Building, error) {
	var building Building
	err := s.withCheckout(ctx, opAppendImages, func(session *checkout.Session) error {
		lookupErr := session.Step("select building").Where("id = ?", id.String()).Take(&building).Error
		if errors.Is(lookupErr, gorm.ErrRecordNotFound) {
			return newServiceError(opAppendImages, reasonNotFound, ErrNotFound)
		}
		if lookupErr != nil {
			s.logError(opAppendImages, reasonQueryFailed, lookupErr, zap.String("building_id", id.String()))
			return newServiceError(opAppendImages, reasonQueryFailed, lookupErr)
		}

		merged := mergeImages(building.Images, filenames)
		if len(merged) == len(building.Images) {
			return nil
		}

		applied, err := writeImages(session, building.ID, building.ImagesRevision, merged)
		if err != nil {
			s.logError(opAppendImages, reasonUpdateFailed, err, zap.String("building_id", id.String()))
			return newServiceError(opAppendImages, reasonUpdateFailed, err)
		}
		if !applied {
			return errRevisionMoved
		}
		building.Images = merged
		building.ImagesRevision++
		return nil
	})
	if err != nil {
		return Building{}, err
	}
	return building, nil
}

// writeImages stores images only if the revision still matches the one read.
func writeImages(session *checkout.Session, id string, revision int64, images ImageList) (bool, error) {
	result := session.Step("conditional images update").
		Model(&Building{}).
		Where("id = ? AND images_revision = ?", id, revision).
		Updates(map[string]any{
			"images":          images,
			"images_revision": revision + 1,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ListDesigners returns the distinct lower-cased designer names, sorted ascending.
// Folding happens in Go, not SQL.
func (s *Service) ListDesigners(ctx context.Context) ([]string, error) {
	if s.db == nil {
		s.logError(opListDesigners, reasonMissingDB, errMissingDatabase)
		return nil, newServiceError(opListDesigners, reasonMissingDB, errMissingDatabase)
	}

	var raw []string
	if err := s.db.WithContext(ctx).Model(&Building{}).Distinct("designer").Pluck("designer", &raw).Error; err != nil {
		s.logError(opListDesigners, reasonQueryFailed, err)
		return nil, newServiceError(opListDesigners, reasonQueryFailed, err)
	}

	return foldDesigners(raw), nil
}

func foldDesigners(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	designers := make([]string, 0, len(raw))
	for _, name := range raw {
		folded := strings.ToLower(strings.TrimSpace(name))
		if folded == "" {
			continue
		}
		if _, ok := seen[folded]; ok {
			continue
		}
		seen[folded] = struct{}{}
		designers = append(designers, folded)
	}
	sort.Strings(designers)
	return designers
}

func (s *Service) withCheckout(ctx context.Context, operation string, fn func(*checkout.Session) error) error {
	return checkout.Run(ctx, s.db, checkout.Options{
		Operation: operation,
		Threshold: s.checkoutWarning,
		Logger:    s.loggerOrDefault(),
	}, fn)
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
	s.loggerOrDefault().Error("buildings service error", attrs...)
}
