package gallery

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/MarcoPoloResearchLab/buildings/backend/internal/client"
	"go.uber.org/zap"
)

const (
	titleAddBuilding         = "Add New Building"
	impressionsTitlePrefix   = "Impressions: "
	addImpressionTitlePrefix = "Add Impression: "
)

// ImpressionList is the drawer content for a building's impressions.
type ImpressionList struct {
	Building    client.Building
	Impressions []client.Impression
}

// ViewConfig wires a View.
type ViewConfig struct {
	API    API
	Canvas *Canvas
	Logger *zap.Logger
}

// View is the state of one open gallery: markers, designer filter, drawer and
// whichever form the drawer is showing. Views share nothing, so several can
// run side by side.
type View struct {
	api    API
	logger *zap.Logger
	canvas *Canvas
	filter *DesignerFilter
	drawer *Drawer

	designers      []string
	popup          *Popup
	list           *ImpressionList
	buildingForm   *BuildingForm
	impressionForm *ImpressionForm
}

// NewView constructs a View around an API client.
func NewView(cfg ViewConfig) (*View, error) {
	if cfg.API == nil {
		return nil, errors.New("gallery: api is required")
	}
	canvas := cfg.Canvas
	if canvas == nil {
		canvas = NewGeographicCanvas()
	}
	return &View{
		api:    cfg.API,
		logger: loggerOrDefault(cfg.Logger),
		canvas: canvas,
		filter: NewDesignerFilter(),
		drawer: &Drawer{},
	}, nil
}

func (v *View) Canvas() *Canvas {
	return v.canvas
}

func (v *View) Filter() *DesignerFilter {
	return v.filter
}

func (v *View) Drawer() *Drawer {
	return v.drawer
}

// Designers returns the designer buttons in display order.
func (v *View) Designers() []string {
	return slices.Clone(v.designers)
}

// Load fetches buildings and designers and rebuilds every marker.
func (v *View) Load(ctx context.Context) error {
	buildings, err := v.api.ListBuildings(ctx)
	if err != nil {
		v.logger.Error("failed to load buildings", zap.Error(err))
		return err
	}
	designers, err := v.api.ListDesigners(ctx)
	if err != nil {
		v.logger.Error("failed to load designers", zap.Error(err))
		return err
	}
	v.canvas.Reset(buildings)
	v.designers = designers
	v.canvas.ApplyFilter(v.filter)
	return nil
}

// ToggleDesigner flips a designer button and re-filters the markers.
func (v *View) ToggleDesigner(designer string) bool {
	active := v.filter.Toggle(designer)
	v.canvas.ApplyFilter(v.filter)
	return active
}

// SelectDesigner applies the mobile designer dropdown and re-filters the markers.
func (v *View) SelectDesigner(value string) {
	v.filter.Select(value)
	v.canvas.ApplyFilter(v.filter)
}

// DragEnd stores a dragged marker's position locally and on the server.
// A failed server update is logged and the local position is kept.
func (v *View) DragEnd(ctx context.Context, buildingID string, position Point) (Point, error) {
	stored, err := v.canvas.Move(buildingID, position)
	if err != nil {
		return Point{}, err
	}
	if _, err := v.api.UpdateCoordinates(ctx, buildingID, stored.X, stored.Y); err != nil {
		v.logger.Error("failed to update building position",
			zap.String("building_id", buildingID),
			zap.Float64("x", stored.X),
			zap.Float64("y", stored.Y),
			zap.Error(err),
		)
	}
	return stored, nil
}

// DoubleClick drops a temporary marker and opens the add-building form at its position.
func (v *View) DoubleClick(ctx context.Context, position Point) *BuildingForm {
	v.abandonBuildingForm(ctx)
	stored := v.canvas.DropTemporary(position)
	return v.openBuildingForm(stored)
}

// OpenAddBuilding opens the add-building form at the canvas centre.
func (v *View) OpenAddBuilding(ctx context.Context) *BuildingForm {
	v.abandonBuildingForm(ctx)
	v.canvas.ClearTemporary()
	return v.openBuildingForm(v.canvas.Center())
}

func (v *View) openBuildingForm(position Point) *BuildingForm {
	form := NewBuildingForm(v.api, v.logger, position)
	v.buildingForm = form
	v.impressionForm = nil
	v.list = nil
	_ = v.drawer.Open(DrawerAddBuilding, titleAddBuilding, form)
	return form
}

// SubmitBuilding creates the building from the open form, places its marker and closes the drawer.
func (v *View) SubmitBuilding(ctx context.Context) (client.Building, error) {
	form, err := v.openForm()
	if err != nil {
		return client.Building{}, err
	}
	request, err := form.Submission()
	if err != nil {
		return client.Building{}, err
	}
	created, err := v.api.CreateBuilding(ctx, request)
	if err != nil {
		v.logger.Error("failed to create building", zap.String("title", request.Title), zap.Error(err))
		return client.Building{}, err
	}

	form.forget()
	v.canvas.Place(created)
	v.canvas.ApplyFilter(v.filter)
	v.canvas.ClearTemporary()
	v.addDesigner(created.Designer)
	v.buildingForm = nil
	v.drawer.Close()
	return created, nil
}

// CancelBuilding discards the open form, deleting its uploaded images, and closes the drawer.
func (v *View) CancelBuilding(ctx context.Context) error {
	form, err := v.openForm()
	if err != nil {
		return err
	}
	discardErr := form.Discard(ctx)
	if discardErr != nil {
		v.logger.Warn("uploaded images left behind by cancelled building", zap.Error(discardErr))
	}
	v.buildingForm = nil
	v.canvas.ClearTemporary()
	v.drawer.Close()
	return discardErr
}

func (v *View) openForm() (*BuildingForm, error) {
	if v.drawer.State() != DrawerAddBuilding || v.buildingForm == nil {
		return nil, fmt.Errorf("%w: add-building form is not open", ErrDrawerState)
	}
	return v.buildingForm, nil
}

func (v *View) abandonBuildingForm(ctx context.Context) {
	if v.buildingForm == nil {
		return
	}
	if err := v.buildingForm.Discard(ctx); err != nil {
		v.logger.Warn("uploaded images left behind by replaced building form", zap.Error(err))
	}
	v.buildingForm = nil
}

// OpenPopup is the marker click. It shows the building's details at once
// and fetches each of its images in the background. Opening another popup
// cancels the fetches of the previous one.
func (v *View) OpenPopup(ctx context.Context, buildingID string) (*Popup, error) {
	marker, ok := v.canvas.Marker(buildingID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownBuilding, buildingID)
	}
	v.ClosePopup()
	v.popup = openPopup(ctx, v.api, v.logger, marker.Building)
	return v.popup, nil
}

// Popup returns the open popup, or nil.
func (v *View) Popup() *Popup {
	return v.popup
}

func (v *View) ClosePopup() {
	if v.popup == nil {
		return
	}
	v.popup.close()
	v.popup = nil
}

// OpenImpressions is the popup's "view impressions" action: it loads a
// building's impressions into the drawer.
func (v *View) OpenImpressions(ctx context.Context, buildingID string) (ImpressionList, error) {
	marker, ok := v.canvas.Marker(buildingID)
	if !ok {
		return ImpressionList{}, fmt.Errorf("%w: %s", ErrUnknownBuilding, buildingID)
	}
	impressions, err := v.api.ListImpressions(ctx, buildingID)
	if err != nil {
		v.logger.Error("failed to load impressions", zap.String("building_id", buildingID), zap.Error(err))
		return ImpressionList{}, err
	}

	v.abandonBuildingForm(ctx)
	v.canvas.ClearTemporary()
	v.impressionForm = nil
	v.list = &ImpressionList{Building: marker.Building, Impressions: impressions}
	_ = v.drawer.Open(DrawerImpressions, impressionsTitlePrefix+marker.Building.Title, *v.list)
	return *v.list, nil
}

// ShowImpressionForm swaps the impressions list for the add-impression form.
func (v *View) ShowImpressionForm() (*ImpressionForm, error) {
	if v.drawer.State() != DrawerImpressions || v.list == nil {
		return nil, fmt.Errorf("%w: impressions list is not open", ErrDrawerState)
	}
	form := NewImpressionForm(v.list.Building.ID)
	v.impressionForm = form
	v.drawer.SetTitle(addImpressionTitlePrefix + v.list.Building.Title)
	v.drawer.SetContent(DrawerAddImpression, form)
	return form, nil
}

// SubmitImpression creates the impression and returns the drawer to the refreshed list.
func (v *View) SubmitImpression(ctx context.Context) (client.Impression, error) {
	if v.drawer.State() != DrawerAddImpression || v.impressionForm == nil || v.list == nil {
		return client.Impression{}, fmt.Errorf("%w: add-impression form is not open", ErrDrawerState)
	}
	request, err := v.impressionForm.Submission()
	if err != nil {
		return client.Impression{}, err
	}
	created, err := v.api.CreateImpression(ctx, v.list.Building.ID, request)
	if err != nil {
		v.logger.Error("failed to create impression", zap.String("building_id", v.list.Building.ID), zap.Error(err))
		return client.Impression{}, err
	}

	v.list.Impressions = append([]client.Impression{created}, v.list.Impressions...)
	v.showList()
	return created, nil
}

// CancelImpression returns the drawer to the impressions list.
func (v *View) CancelImpression() error {
	if v.drawer.State() != DrawerAddImpression || v.list == nil {
		return fmt.Errorf("%w: add-impression form is not open", ErrDrawerState)
	}
	v.showList()
	return nil
}

func (v *View) showList() {
	v.impressionForm = nil
	v.drawer.SetTitle(impressionsTitlePrefix + v.list.Building.Title)
	v.drawer.SetContent(DrawerImpressions, *v.list)
}

// CloseDrawer closes the drawer. An open building form is discarded first.
func (v *View) CloseDrawer(ctx context.Context) {
	v.abandonBuildingForm(ctx)
	v.canvas.ClearTemporary()
	v.impressionForm = nil
	v.list = nil
	v.drawer.Close()
}

func (v *View) addDesigner(designer string) {
	key := designerKey(designer)
	if key == "" {
		return
	}
	index, found := slices.BinarySearchFunc(v.designers, key, func(existing, target string) int {
		return strings.Compare(strings.ToLower(existing), target)
	})
	if found {
		return
	}
	v.designers = slices.Insert(v.designers, index, key)
}
