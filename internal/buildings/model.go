package buildings

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

const maxIdentifierLength = 190

var (
	// ErrNotFound indicates that no building carries the requested identifier.
	ErrNotFound = errors.New("buildings: building not found")
	// ErrInvalidInput indicates a missing or malformed field.
	ErrInvalidInput = errors.New("buildings: invalid input")
	// ErrConflict indicates that a building with the same identifier already exists.
	ErrConflict = errors.New("buildings: building already exists")
	// ErrConcurrentUpdate indicates that the images list kept changing under the append.
	ErrConcurrentUpdate = errors.New("buildings: images changed concurrently")
)

// BuildingID represents a validated building identifier.
type BuildingID string

// NewBuildingID validates raw input and returns a BuildingID.
func NewBuildingID(rawInput string) (BuildingID, error) {
	trimmed := strings.TrimSpace(rawInput)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty id", ErrInvalidInput)
	}
	if len(trimmed) > maxIdentifierLength {
		return "", fmt.Errorf("%w: id exceeds %d characters", ErrInvalidInput, maxIdentifierLength)
	}
	return BuildingID(trimmed), nil
}

// String returns the underlying string identifier.
func (id BuildingID) String() string {
	return string(id)
}

// ImageList is the ordered list of blob-store filenames attached to a building.
// It is persisted as a JSON array; an absent list is stored as [].
type ImageList []string

// Value implements driver.Valuer.
func (l ImageList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	encoded, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(encoded), nil
}

// Scan implements sql.Scanner.
func (l *ImageList) Scan(src any) error {
	var raw []byte
	switch value := src.(type) {
	case nil:
		*l = ImageList{}
		return nil
	case []byte:
		raw = value
	case string:
		raw = []byte(value)
	default:
		return fmt.Errorf("buildings: cannot scan %T into ImageList", src)
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		*l = ImageList{}
		return nil
	}
	var decoded []string
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return fmt.Errorf("buildings: decode images: %w", err)
	}
	if decoded == nil {
		decoded = []string{}
	}
	*l = ImageList(decoded)
	return nil
}

// MarshalJSON renders a nil list as [] so clients always see an array.
func (l ImageList) MarshalJSON() ([]byte, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(l))
}

// GormDataType pins the column type across dialects.
func (ImageList) GormDataType() string {
	return "text"
}

// Building is a user-created point of interest with architectural metadata and map coordinates.
type Building struct {
	ID             string    `gorm:"column:id;primaryKey;size:190;not null" json:"id"`
	Title          string    `gorm:"column:title;size:512;not null" json:"title"`
	Designer       string    `gorm:"column:designer;size:190;not null;index:idx_buildings_designer" json:"designer"`
	Year           string    `gorm:"column:year;size:64;not null" json:"year"`
	Neighbourhood  string    `gorm:"column:neighbourhood;size:190;not null" json:"neighbourhood"`
	Era            string    `gorm:"column:era;size:190;not null" json:"era"`
	XCoordinate    float64   `gorm:"column:xcoordinate;not null" json:"xcoordinate"`
	YCoordinate    float64   `gorm:"column:ycoordinate;not null" json:"ycoordinate"`
	CreatedAt      time.Time `gorm:"column:created_at;not null;index:idx_buildings_created" json:"createdAt"`
	Images         ImageList `gorm:"column:images;type:text;not null" json:"images"`
	ImagesRevision int64     `gorm:"column:images_revision;not null;default:0" json:"-"`
}

// TableName provides the explicit table binding for GORM.
func (Building) TableName() string {
	return "buildings"
}

// Coordinates carries a marker position: pixel offsets or lng/lat depending on the canvas.
type Coordinates struct {
	X float64
	Y float64
}

// CreateRequest describes a building submitted by a client. Coordinates are
// pointers so that an omitted value can be told apart from zero.
type CreateRequest struct {
	ID            string
	Title         string
	Designer      string
	Year          string
	Neighbourhood string
	Era           string
	XCoordinate   *float64
	YCoordinate   *float64
	Images        []string
}

func (r CreateRequest) validate() (Building, error) {
	var missing []string
	required := []struct {
		name  string
		value string
	}{
		{"id", r.ID},
		{"title", r.Title},
		{"designer", r.Designer},
		{"year", r.Year},
		{"neighbourhood", r.Neighbourhood},
		{"era", r.Era},
	}
	for _, field := range required {
		if strings.TrimSpace(field.value) == "" {
			missing = append(missing, field.name)
		}
	}
	if r.XCoordinate == nil {
		missing = append(missing, "xcoordinate")
	}
	if r.YCoordinate == nil {
		missing = append(missing, "ycoordinate")
	}
	if len(missing) > 0 {
		return Building{}, fmt.Errorf("%w: missing %s", ErrInvalidInput, strings.Join(missing, ", "))
	}

	id, err := NewBuildingID(r.ID)
	if err != nil {
		return Building{}, err
	}

	return Building{
		ID:            id.String(),
		Title:         strings.TrimSpace(r.Title),
		Designer:      strings.TrimSpace(r.Designer),
		Year:          strings.TrimSpace(r.Year),
		Neighbourhood: strings.TrimSpace(r.Neighbourhood),
		Era:           strings.TrimSpace(r.Era),
		XCoordinate:   *r.XCoordinate,
		YCoordinate:   *r.YCoordinate,
		Images:        mergeImages(nil, r.Images),
	}, nil
}

// mergeImages appends incoming names to existing ones, keeping order and skipping
// blanks and names already present.
func mergeImages(existing []string, incoming []string) ImageList {
	merged := make(ImageList, 0, len(existing)+len(incoming))
	seen := make(map[string]struct{}, len(existing)+len(incoming))
	for _, name := range existing {
		seen[name] = struct{}{}
		merged = append(merged, name)
	}
	for _, name := range incoming {
		trimmed := strings.TrimSpace(name)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		merged = append(merged, trimmed)
	}
	return merged
}
