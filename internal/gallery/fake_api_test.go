package gallery

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/MarcoPoloResearchLab/buildings/backend/internal/client"
)

var errFakeUnavailable = errors.New("fake api unavailable")

type coordinateUpdate struct {
	id   string
	x, y float64
}

type fakeAPI struct {
	mu          sync.Mutex
	buildings   []client.Building
	impressions map[string][]client.Impression
	blobs       map[string]string
	uploads     int
	coordinates []coordinateUpdate
	deleted     []string

	failCoordinates bool
	failUpload      bool
	failDelete      map[string]bool
	failFetch       map[string]bool
	uploadGate      chan struct{}
	fetchGate       chan struct{}
}

func newFakeAPI(buildings ...client.Building) *fakeAPI {
	return &fakeAPI{
		buildings:   buildings,
		impressions: make(map[string][]client.Impression),
		blobs:       make(map[string]string),
		failDelete:  make(map[string]bool),
		failFetch:   make(map[string]bool),
	}
}

func (f *fakeAPI) ListBuildings(context.Context) ([]client.Building, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.buildings), nil
}

func (f *fakeAPI) ListDesigners(context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var designers []string
	for _, building := range f.buildings {
		name := strings.ToLower(building.Designer)
		if !slices.Contains(designers, name) {
			designers = append(designers, name)
		}
	}
	slices.Sort(designers)
	return designers, nil
}

func (f *fakeAPI) CreateBuilding(_ context.Context, request client.NewBuilding) (client.Building, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := request.ID
	if id == "" {
		id = fmt.Sprintf("building-%d", len(f.buildings)+1)
	}
	building := client.Building{
		ID:            id,
		Title:         request.Title,
		Designer:      request.Designer,
		Year:          request.Year,
		Neighbourhood: request.Neighbourhood,
		Era:           request.Era,
		XCoordinate:   request.XCoordinate,
		YCoordinate:   request.YCoordinate,
		CreatedAt:     time.Now().UTC(),
		Images:        slices.Clone(request.Images),
	}
	f.buildings = append(f.buildings, building)
	return building, nil
}

func (f *fakeAPI) UpdateCoordinates(_ context.Context, id string, x, y float64) (client.Building, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.coordinates = append(f.coordinates, coordinateUpdate{id: id, x: x, y: y})
	if f.failCoordinates {
		return client.Building{}, errFakeUnavailable
	}
	for index := range f.buildings {
		if f.buildings[index].ID == id {
			f.buildings[index].XCoordinate = x
			f.buildings[index].YCoordinate = y
			return f.buildings[index], nil
		}
	}
	return client.Building{}, &client.APIError{StatusCode: 404, Message: "Building not found"}
}

func (f *fakeAPI) ListImpressions(_ context.Context, buildingID string) ([]client.Impression, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.impressions[buildingID]), nil
}

func (f *fakeAPI) CreateImpression(_ context.Context, buildingID string, request client.NewImpression) (client.Impression, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	impression := client.Impression{
		ID:         fmt.Sprintf("impression-%d", len(f.impressions[buildingID])+1),
		BuildingID: buildingID,
		Content:    request.Content,
		Moods:      request.Moods,
		Photos:     request.Photos,
		Hyperlinks: request.Hyperlinks,
		CreatedAt:  time.Now().UTC(),
	}
	f.impressions[buildingID] = append([]client.Impression{impression}, f.impressions[buildingID]...)
	return impression, nil
}

func (f *fakeAPI) UploadImage(_ context.Context, dataURL string) (string, error) {
	if f.uploadGate != nil {
		<-f.uploadGate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failUpload {
		return "", errFakeUnavailable
	}
	f.uploads++
	filename := fmt.Sprintf("image-%d", f.uploads)
	f.blobs[filename] = dataURL
	return filename, nil
}

func (f *fakeAPI) FetchImage(ctx context.Context, filename string) ([]byte, error) {
	if f.fetchGate != nil {
		select {
		case <-f.fetchGate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFetch[filename] {
		return nil, errFakeUnavailable
	}
	payload, ok := f.blobs[filename]
	if !ok {
		return nil, &client.APIError{StatusCode: 404, Message: "Image not found"}
	}
	return []byte(payload), nil
}

func (f *fakeAPI) DeleteImage(_ context.Context, filename string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failDelete[filename] {
		return errFakeUnavailable
	}
	delete(f.blobs, filename)
	f.deleted = append(f.deleted, filename)
	return nil
}

func (f *fakeAPI) blobCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.blobs)
}

func (f *fakeAPI) coordinateUpdates() []coordinateUpdate {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.coordinates)
}

func galleryBuilding(id, designer string, x, y float64) client.Building {
	return client.Building{
		ID:            id,
		Title:         "Haus " + id,
		Designer:      designer,
		Year:          "1927",
		Neighbourhood: "mitte",
		Era:           "bauhaus",
		XCoordinate:   x,
		YCoordinate:   y,
	}
}

func pngImage(name string) SelectedImage {
	return SelectedImage{Name: name, Size: 128, DataURL: "data:image/png;base64,iVBORw0KGgo="}
}
