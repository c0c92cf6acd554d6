package gallery

import "fmt"

// DrawerState names what the shared drawer is showing.
type DrawerState int

const (
	DrawerClosed DrawerState = iota
	DrawerImpressions
	DrawerAddBuilding
	DrawerAddImpression
)

func (s DrawerState) String() string {
	switch s {
	case DrawerClosed:
		return "closed"
	case DrawerImpressions:
		return "open-list"
	case DrawerAddBuilding:
		return "open-add-building"
	case DrawerAddImpression:
		return "open-add-impression"
	default:
		return fmt.Sprintf("drawer-state(%d)", int(s))
	}
}

// Drawer is the single slide-in panel shared by the impressions list and both forms.
type Drawer struct {
	state   DrawerState
	title   string
	content any
}

// Open shows content under title, replacing whatever the drawer held.
func (d *Drawer) Open(state DrawerState, title string, content any) error {
	if state == DrawerClosed {
		return fmt.Errorf("%w: cannot open into %s", ErrDrawerState, state)
	}
	d.state = state
	d.title = title
	d.content = content
	return nil
}

// SetTitle replaces the title. It reports false and does nothing while closed.
func (d *Drawer) SetTitle(title string) bool {
	if !d.IsOpen() {
		return false
	}
	d.title = title
	return true
}

// SetContent swaps the content and the state it represents. It reports false
// and does nothing while closed.
func (d *Drawer) SetContent(state DrawerState, content any) bool {
	if !d.IsOpen() || state == DrawerClosed {
		return false
	}
	d.state = state
	d.content = content
	return true
}

// Close hides the drawer and drops its content. The last title is kept.
func (d *Drawer) Close() {
	d.state = DrawerClosed
	d.content = nil
}

func (d *Drawer) IsOpen() bool {
	return d.state != DrawerClosed
}

func (d *Drawer) State() DrawerState {
	return d.state
}

func (d *Drawer) Title() string {
	return d.title
}

func (d *Drawer) Content() any {
	return d.content
}
