package gallery

import (
	"slices"
	"strings"
)

// AllDesigners is the mobile select value that clears the filter.
const AllDesigners = "all"

// DesignerFilter is the set of designers whose markers are shown.
// An empty set shows every marker.
type DesignerFilter struct {
	selected map[string]struct{}
}

// NewDesignerFilter returns an empty filter.
func NewDesignerFilter() *DesignerFilter {
	return &DesignerFilter{selected: make(map[string]struct{})}
}

// Toggle flips a designer button and reports whether it is now active.
func (f *DesignerFilter) Toggle(designer string) bool {
	key := designerKey(designer)
	if key == "" {
		return false
	}
	if _, ok := f.selected[key]; ok {
		delete(f.selected, key)
		return false
	}
	f.selected[key] = struct{}{}
	return true
}

// Select applies the mobile dropdown: a single designer, or every designer for AllDesigners.
func (f *DesignerFilter) Select(value string) {
	clear(f.selected)
	key := designerKey(value)
	if key == "" || key == AllDesigners {
		return
	}
	f.selected[key] = struct{}{}
}

func (f *DesignerFilter) Clear() {
	clear(f.selected)
}

// Shows reports whether a building by designer passes the filter.
func (f *DesignerFilter) Shows(designer string) bool {
	if len(f.selected) == 0 {
		return true
	}
	_, ok := f.selected[designerKey(designer)]
	return ok
}

func (f *DesignerFilter) IsActive(designer string) bool {
	_, ok := f.selected[designerKey(designer)]
	return ok
}

// Selected returns the active designers in ascending order.
func (f *DesignerFilter) Selected() []string {
	keys := make([]string, 0, len(f.selected))
	for key := range f.selected {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}

func designerKey(designer string) string {
	return strings.ToLower(strings.TrimSpace(designer))
}
