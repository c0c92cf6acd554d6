// Package gallery holds the state behind the buildings map view: markers,
// marker popups, the designer filter, the shared drawer and the forms it
// shows. Rendering is left to the caller.
package gallery

import (
	"context"
	"errors"

	"github.com/MarcoPoloResearchLab/buildings/backend/internal/client"
)

var (
	// ErrUnknownBuilding indicates that no marker exists for the building id.
	ErrUnknownBuilding = errors.New("gallery: unknown building")
	// ErrInvalidInput indicates that a form is missing a required value.
	ErrInvalidInput = errors.New("gallery: invalid input")
	// ErrImageLimit indicates that the form already holds the maximum number of images.
	ErrImageLimit = errors.New("gallery: image limit reached")
	// ErrImageTooLarge indicates that a selected image exceeds the size limit.
	ErrImageTooLarge = errors.New("gallery: image too large")
	// ErrUploadInProgress indicates that the form cannot be submitted while uploads are pending.
	ErrUploadInProgress = errors.New("gallery: upload in progress")
	// ErrDrawerState indicates that the drawer is not showing what the action expects.
	ErrDrawerState = errors.New("gallery: unexpected drawer state")
)

// API is the part of the REST client the view drives.
type API interface {
	ListBuildings(ctx context.Context) ([]client.Building, error)
	ListDesigners(ctx context.Context) ([]string, error)
	CreateBuilding(ctx context.Context, building client.NewBuilding) (client.Building, error)
	UpdateCoordinates(ctx context.Context, id string, x, y float64) (client.Building, error)
	ListImpressions(ctx context.Context, buildingID string) ([]client.Impression, error)
	CreateImpression(ctx context.Context, buildingID string, impression client.NewImpression) (client.Impression, error)
	UploadImage(ctx context.Context, dataURL string) (string, error)
	FetchImage(ctx context.Context, filename string) ([]byte, error)
	DeleteImage(ctx context.Context, filename string) error
}

var _ API = (*client.Client)(nil)
