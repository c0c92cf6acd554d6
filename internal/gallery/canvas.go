package gallery

import (
	"fmt"

	"github.com/MarcoPoloResearchLab/buildings/backend/internal/client"
)

// Variant selects how marker positions are interpreted.
type Variant int

const (
	// PixelVariant positions markers by pixel offset inside a fixed container.
	PixelVariant Variant = iota
	// GeographicVariant positions markers by longitude (x) and latitude (y).
	GeographicVariant
)

// Berlin is where a geographic canvas centres by default.
var Berlin = Point{X: 13.405, Y: 52.52}

// Point is a marker position: pixels for PixelVariant, lng/lat for GeographicVariant.
type Point struct {
	X float64
	Y float64
}

// Bounds is the size of a pixel container.
type Bounds struct {
	Width  float64
	Height float64
}

// Marker is a building pin and whether the designer filter shows it.
type Marker struct {
	Building client.Building
	Visible  bool
}

// Position returns the marker's current coordinates.
func (m Marker) Position() Point {
	return Point{X: m.Building.XCoordinate, Y: m.Building.YCoordinate}
}

// Canvas keeps one marker per building plus at most one temporary marker
// for a building that has not been submitted yet.
type Canvas struct {
	variant   Variant
	bounds    Bounds
	markers   map[string]*Marker
	order     []string
	temporary *Point
}

// NewPixelCanvas returns a canvas that clamps positions to bounds.
func NewPixelCanvas(bounds Bounds) *Canvas {
	return &Canvas{variant: PixelVariant, bounds: bounds, markers: make(map[string]*Marker)}
}

// NewGeographicCanvas returns a canvas that keeps positions as reported.
func NewGeographicCanvas() *Canvas {
	return &Canvas{variant: GeographicVariant, markers: make(map[string]*Marker)}
}

func (c *Canvas) Variant() Variant {
	return c.variant
}

// Center is the default position for a building added without a double-click.
func (c *Canvas) Center() Point {
	if c.variant == GeographicVariant {
		return Berlin
	}
	return Point{X: float64(int(c.bounds.Width / 2)), Y: float64(int(c.bounds.Height / 2))}
}

// Reset replaces every marker with one per building, all visible.
func (c *Canvas) Reset(buildings []client.Building) {
	c.markers = make(map[string]*Marker, len(buildings))
	c.order = c.order[:0]
	for _, building := range buildings {
		c.Place(building)
	}
}

// Place adds a marker for building, or refreshes the existing one in place.
func (c *Canvas) Place(building client.Building) {
	if existing, ok := c.markers[building.ID]; ok {
		existing.Building = building
		return
	}
	c.markers[building.ID] = &Marker{Building: building, Visible: true}
	c.order = append(c.order, building.ID)
}

// Marker returns a copy of the marker for id.
func (c *Canvas) Marker(id string) (Marker, bool) {
	marker, ok := c.markers[id]
	if !ok {
		return Marker{}, false
	}
	return *marker, true
}

// Markers returns copies of every marker in placement order.
func (c *Canvas) Markers() []Marker {
	result := make([]Marker, 0, len(c.order))
	for _, id := range c.order {
		result = append(result, *c.markers[id])
	}
	return result
}

// VisibleMarkers returns the markers the filter currently shows.
func (c *Canvas) VisibleMarkers() []Marker {
	result := make([]Marker, 0, len(c.order))
	for _, id := range c.order {
		if marker := c.markers[id]; marker.Visible {
			result = append(result, *marker)
		}
	}
	return result
}

// ApplyFilter shows or hides every marker according to filter.
func (c *Canvas) ApplyFilter(filter *DesignerFilter) {
	for _, marker := range c.markers {
		marker.Visible = filter.Shows(marker.Building.Designer)
	}
}

// Move relocates a marker after a drag and returns the stored position.
func (c *Canvas) Move(id string, position Point) (Point, error) {
	marker, ok := c.markers[id]
	if !ok {
		return Point{}, fmt.Errorf("%w: %s", ErrUnknownBuilding, id)
	}
	position = c.clamp(position)
	marker.Building.XCoordinate = position.X
	marker.Building.YCoordinate = position.Y
	return position, nil
}

// DropTemporary places the temporary marker, replacing any previous one.
func (c *Canvas) DropTemporary(position Point) Point {
	position = c.clamp(position)
	c.temporary = &position
	return position
}

func (c *Canvas) Temporary() (Point, bool) {
	if c.temporary == nil {
		return Point{}, false
	}
	return *c.temporary, true
}

func (c *Canvas) ClearTemporary() {
	c.temporary = nil
}

func (c *Canvas) clamp(position Point) Point {
	if c.variant != PixelVariant {
		return position
	}
	return Point{
		X: clampAxis(position.X, c.bounds.Width-MarkerSize),
		Y: clampAxis(position.Y, c.bounds.Height-MarkerSize),
	}
}

func clampAxis(value, upper float64) float64 {
	if upper < 0 {
		upper = 0
	}
	return min(max(value, 0), upper)
}
