package gallery

import (
	"fmt"
	"slices"
	"strings"

	"github.com/MarcoPoloResearchLab/buildings/backend/internal/client"
	"github.com/MarcoPoloResearchLab/buildings/backend/internal/moods"
)

// ImpressionForm is the add-impression form for one building.
type ImpressionForm struct {
	buildingID string
	content    string
	selected   []moods.Mood
	links      []string
}

// NewImpressionForm returns an empty form with one blank link field.
func NewImpressionForm(buildingID string) *ImpressionForm {
	form := &ImpressionForm{buildingID: buildingID}
	form.Reset()
	return form
}

func (f *ImpressionForm) BuildingID() string {
	return f.buildingID
}

func (f *ImpressionForm) SetContent(content string) {
	f.content = content
}

// ToggleMood deselects a selected mood or selects a new one, and reports
// whether the mood is selected afterwards. Selecting past the cap is a no-op.
func (f *ImpressionForm) ToggleMood(mood moods.Mood) bool {
	if index := slices.Index(f.selected, mood); index >= 0 {
		f.selected = slices.Delete(f.selected, index, index+1)
		return false
	}
	if len(f.selected) >= moods.MaxPerImpression {
		return false
	}
	f.selected = append(f.selected, mood)
	return true
}

func (f *ImpressionForm) IsSelected(mood moods.Mood) bool {
	return slices.Contains(f.selected, mood)
}

// SelectedMoods returns the selection in the order it was made.
func (f *ImpressionForm) SelectedMoods() []moods.Mood {
	return slices.Clone(f.selected)
}

// AddLink appends a blank link field and returns its index.
func (f *ImpressionForm) AddLink() int {
	f.links = append(f.links, "")
	return len(f.links) - 1
}

func (f *ImpressionForm) SetLink(index int, value string) error {
	if index < 0 || index >= len(f.links) {
		return fmt.Errorf("%w: no link field %d", ErrInvalidInput, index)
	}
	f.links[index] = value
	return nil
}

func (f *ImpressionForm) RemoveLink(index int) error {
	if index < 0 || index >= len(f.links) {
		return fmt.Errorf("%w: no link field %d", ErrInvalidInput, index)
	}
	f.links = slices.Delete(f.links, index, index+1)
	return nil
}

// Links returns the raw link fields, blanks included.
func (f *ImpressionForm) Links() []string {
	return slices.Clone(f.links)
}

// Submission builds the create request. Content is required and blank links are dropped.
func (f *ImpressionForm) Submission() (client.NewImpression, error) {
	content := strings.TrimSpace(f.content)
	if content == "" {
		return client.NewImpression{}, fmt.Errorf("%w: content is required", ErrInvalidInput)
	}

	selected := make([]string, 0, len(f.selected))
	for _, mood := range f.selected {
		selected = append(selected, mood.String())
	}
	hyperlinks := make([]string, 0, len(f.links))
	for _, link := range f.links {
		if trimmed := strings.TrimSpace(link); trimmed != "" {
			hyperlinks = append(hyperlinks, trimmed)
		}
	}

	return client.NewImpression{
		Content:    content,
		Moods:      selected,
		Photos:     []string{},
		Hyperlinks: hyperlinks,
	}, nil
}

// Reset clears the form back to one blank link field.
func (f *ImpressionForm) Reset() {
	f.content = ""
	f.selected = nil
	f.links = []string{""}
}
