package impressions

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MarcoPoloResearchLab/buildings/backend/internal/moods"
	"github.com/lib/pq"
)

const maxIdentifierLength = 190

var (
	// ErrBuildingNotFound indicates that the parent building does not exist.
	ErrBuildingNotFound = errors.New("impressions: building not found")
	// ErrInvalidInput indicates a missing or malformed field.
	ErrInvalidInput = errors.New("impressions: invalid input")
	// ErrConflict indicates that an impression with the same identifier already exists.
	ErrConflict = errors.New("impressions: impression already exists")
	// ErrMissingContent indicates an empty impression text. It wraps ErrInvalidInput.
	ErrMissingContent = fmt.Errorf("%w: content is required", ErrInvalidInput)
	// ErrInvalidMoods indicates an unknown mood or too many moods. It wraps ErrInvalidInput.
	ErrInvalidMoods = fmt.Errorf("%w: invalid moods", ErrInvalidInput)
)

// Impression is a short text note left on a building.
type Impression struct {
	ID         string         `gorm:"column:id;primaryKey;size:190;not null" json:"id"`
	BuildingID string         `gorm:"column:building_id;size:190;not null;index:idx_impressions_building_created,priority:1" json:"buildingId"`
	Content    string         `gorm:"column:content;type:text;not null" json:"content"`
	Moods      pq.StringArray `gorm:"column:moods;type:text;not null" json:"moods"`
	Photos     pq.StringArray `gorm:"column:photos;type:text;not null" json:"photos"`
	Hyperlinks pq.StringArray `gorm:"column:hyperlinks;type:text;not null" json:"hyperlinks"`
	CreatedAt  time.Time      `gorm:"column:created_at;not null;index:idx_impressions_building_created,priority:2" json:"createdAt"`
}

// TableName provides the explicit table binding for GORM.
func (Impression) TableName() string {
	return "impressions"
}

// CreateRequest describes an impression submitted for a building.
// A nil Moods slice means the field was omitted.
type CreateRequest struct {
	ID         string
	BuildingID string
	Content    string
	Moods      []string
	Photos     []string
	Hyperlinks []string
}

func (r CreateRequest) validate() (Impression, error) {
	var missing []string
	if strings.TrimSpace(r.ID) == "" {
		missing = append(missing, "id")
	}
	if strings.TrimSpace(r.BuildingID) == "" {
		missing = append(missing, "buildingId")
	}
	if strings.TrimSpace(r.Content) == "" {
		missing = append(missing, "content")
	}
	if r.Moods == nil {
		missing = append(missing, "moods")
	}
	if len(missing) > 0 {
		sentinel := ErrInvalidInput
		if strings.TrimSpace(r.Content) == "" {
			sentinel = ErrMissingContent
		}
		return Impression{}, fmt.Errorf("%w: missing %s", sentinel, strings.Join(missing, ", "))
	}

	id := strings.TrimSpace(r.ID)
	buildingID := strings.TrimSpace(r.BuildingID)
	if len(id) > maxIdentifierLength || len(buildingID) > maxIdentifierLength {
		return Impression{}, fmt.Errorf("%w: identifier exceeds %d characters", ErrInvalidInput, maxIdentifierLength)
	}

	normalized, err := moods.Normalize(r.Moods)
	if err != nil {
		return Impression{}, fmt.Errorf("%w: %v", ErrInvalidMoods, err)
	}
	if len(normalized) > moods.MaxPerImpression {
		return Impression{}, fmt.Errorf("%w: at most %d allowed", ErrInvalidMoods, moods.MaxPerImpression)
	}
	moodNames := make(pq.StringArray, 0, len(normalized))
	for _, mood := range normalized {
		moodNames = append(moodNames, mood.String())
	}

	return Impression{
		ID:         id,
		BuildingID: buildingID,
		Content:    r.Content,
		Moods:      moodNames,
		Photos:     compact(r.Photos),
		Hyperlinks: compact(r.Hyperlinks),
	}, nil
}

// compact drops blank entries and never returns nil, so the column always
// holds an array literal.
func compact(values []string) pq.StringArray {
	result := make(pq.StringArray, 0, len(values))
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		result = append(result, trimmed)
	}
	return result
}
