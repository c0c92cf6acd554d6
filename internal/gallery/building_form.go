package gallery

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/MarcoPoloResearchLab/buildings/backend/internal/client"
	"go.uber.org/zap"
)

// ImageInputState is what the image picker of a building form shows.
type ImageInputState int

const (
	ImageInputNormal ImageInputState = iota
	ImageInputDisabled
	ImageInputLoading
)

func (s ImageInputState) String() string {
	switch s {
	case ImageInputDisabled:
		return "disabled"
	case ImageInputLoading:
		return "loading"
	default:
		return "normal"
	}
}

// BuildingDetails are the text fields of the add-building form.
// Neighbourhood and Era hold option values, i.e. lower-cased labels.
type BuildingDetails struct {
	Title         string
	Designer      string
	Year          string
	Neighbourhood string
	Era           string
}

// SelectedImage is a file picked in the image input, already encoded as a data URL.
type SelectedImage struct {
	Name    string
	Size    int64
	DataURL string
}

// BuildingForm is the add-building form. Images are uploaded as soon as
// they are selected and tracked until the building is submitted or the form
// is cancelled.
type BuildingForm struct {
	api      API
	logger   *zap.Logger
	position Point

	Details BuildingDetails

	mu       sync.Mutex
	uploaded []string
	pending  int
}

// NewBuildingForm returns an empty form for a building at position.
func NewBuildingForm(api API, logger *zap.Logger, position Point) *BuildingForm {
	return &BuildingForm{api: api, logger: loggerOrDefault(logger), position: position}
}

func (f *BuildingForm) Position() Point {
	return f.position
}

// AddImage checks and uploads one selected image and returns its stored filename.
func (f *BuildingForm) AddImage(ctx context.Context, image SelectedImage) (string, error) {
	size := image.Size
	if size <= 0 {
		size = int64(len(image.DataURL))
	}
	if size > MaxImageBytes {
		return "", fmt.Errorf("%w: %s is %d bytes", ErrImageTooLarge, image.Name, size)
	}

	f.mu.Lock()
	if len(f.uploaded)+f.pending >= MaxImages {
		f.mu.Unlock()
		return "", fmt.Errorf("%w: at most %d images", ErrImageLimit, MaxImages)
	}
	f.pending++
	f.mu.Unlock()

	filename, err := f.api.UploadImage(ctx, image.DataURL)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending--
	if err != nil {
		f.logger.Error("image upload failed", zap.String("image", image.Name), zap.Error(err))
		return "", err
	}
	f.uploaded = append(f.uploaded, filename)
	return filename, nil
}

// RemoveImage deletes an uploaded image. The filename stays tracked when the delete fails.
func (f *BuildingForm) RemoveImage(ctx context.Context, filename string) error {
	f.mu.Lock()
	tracked := slices.Contains(f.uploaded, filename)
	f.mu.Unlock()
	if !tracked {
		return fmt.Errorf("%w: image %s is not part of this form", ErrInvalidInput, filename)
	}

	if err := f.api.DeleteImage(ctx, filename); err != nil {
		f.logger.Error("image delete failed", zap.String("filename", filename), zap.Error(err))
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploaded = slices.DeleteFunc(f.uploaded, func(candidate string) bool {
		return candidate == filename
	})
	return nil
}

// Images returns the uploaded filenames in selection order.
func (f *BuildingForm) Images() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.uploaded)
}

// ImageInputState reports whether the picker is usable, full or busy.
func (f *BuildingForm) ImageInputState() ImageInputState {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch {
	case f.pending > 0:
		return ImageInputLoading
	case len(f.uploaded) >= MaxImages:
		return ImageInputDisabled
	default:
		return ImageInputNormal
	}
}

// Submission validates the form and builds the create request.
func (f *BuildingForm) Submission() (client.NewBuilding, error) {
	f.mu.Lock()
	pending := f.pending
	uploaded := slices.Clone(f.uploaded)
	f.mu.Unlock()
	if pending > 0 {
		return client.NewBuilding{}, ErrUploadInProgress
	}

	details := BuildingDetails{
		Title:         strings.TrimSpace(f.Details.Title),
		Designer:      strings.TrimSpace(f.Details.Designer),
		Year:          strings.TrimSpace(f.Details.Year),
		Neighbourhood: strings.TrimSpace(f.Details.Neighbourhood),
		Era:           strings.TrimSpace(f.Details.Era),
	}
	var missing []string
	if details.Title == "" {
		missing = append(missing, "title")
	}
	if details.Designer == "" {
		missing = append(missing, "designer")
	}
	if details.Year == "" {
		missing = append(missing, "year")
	}
	if details.Neighbourhood == "" {
		missing = append(missing, "neighbourhood")
	}
	if details.Era == "" {
		missing = append(missing, "era")
	}
	if len(missing) > 0 {
		return client.NewBuilding{}, fmt.Errorf("%w: missing %s", ErrInvalidInput, strings.Join(missing, ", "))
	}
	if !isOption(Neighbourhoods, details.Neighbourhood) {
		return client.NewBuilding{}, fmt.Errorf("%w: unknown neighbourhood %q", ErrInvalidInput, details.Neighbourhood)
	}
	if !isOption(Eras, details.Era) {
		return client.NewBuilding{}, fmt.Errorf("%w: unknown era %q", ErrInvalidInput, details.Era)
	}

	return client.NewBuilding{
		Title:         details.Title,
		Designer:      details.Designer,
		Year:          details.Year,
		Neighbourhood: details.Neighbourhood,
		Era:           details.Era,
		XCoordinate:   f.position.X,
		YCoordinate:   f.position.Y,
		Images:        uploaded,
	}, nil
}

// Discard deletes every uploaded image so an abandoned form leaves no blobs behind.
// Images whose delete fails stay tracked and are reported in the joined error.
func (f *BuildingForm) Discard(ctx context.Context) error {
	var failures []error
	for _, filename := range f.Images() {
		if err := f.RemoveImage(ctx, filename); err != nil {
			failures = append(failures, fmt.Errorf("delete %s: %w", filename, err))
		}
	}
	return errors.Join(failures...)
}

// forget drops tracked filenames once they belong to a submitted building.
func (f *BuildingForm) forget() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploaded = nil
}

func loggerOrDefault(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}
