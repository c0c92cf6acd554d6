package server

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/MarcoPoloResearchLab/buildings/backend/internal/buildings"
	"github.com/gin-gonic/gin"
)

var (
	getBuildingMessages = failureMessages{
		notFound: "Building not found",
		invalid:  "Invalid building id",
		failed:   "Failed to fetch building",
	}
	createBuildingMessages = failureMessages{
		invalid:  "Missing required fields",
		conflict: "Building already exists",
		failed:   "Failed to create building",
	}
	updateCoordinatesMessages = failureMessages{
		notFound: "Building not found",
		invalid:  "Missing coordinates",
		failed:   "Failed to update building",
	}
	appendImagesMessages = failureMessages{
		notFound: "Building not found",
		invalid:  "Missing images",
		conflict: "Images changed concurrently, retry",
		failed:   "Failed to update building images",
	}
)

// flexibleString accepts a JSON string or number; the year field arrives as either.
type flexibleString string

func (s *flexibleString) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		*s = ""
		return nil
	}
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var value string
		if err := json.Unmarshal(trimmed, &value); err != nil {
			return err
		}
		*s = flexibleString(value)
		return nil
	}
	var number json.Number
	if err := json.Unmarshal(trimmed, &number); err != nil {
		return err
	}
	*s = flexibleString(number.String())
	return nil
}

type createBuildingPayload struct {
	ID            string         `json:"id"`
	Title         string         `json:"title"`
	Designer      string         `json:"designer"`
	Year          flexibleString `json:"year"`
	Neighbourhood string         `json:"neighbourhood"`
	Era           string         `json:"era"`
	XCoordinate   *float64       `json:"xcoordinate"`
	YCoordinate   *float64       `json:"ycoordinate"`
	Images        []string       `json:"images"`
}

type coordinatesPayload struct {
	XCoordinate *float64 `json:"xcoordinate"`
	YCoordinate *float64 `json:"ycoordinate"`
}

// imagesPayload accepts {"images": "name"} as well as {"images": ["a", "b"]}.
type imagesPayload struct {
	Images json.RawMessage `json:"images"`
}

func (p imagesPayload) filenames() ([]string, error) {
	trimmed := bytes.TrimSpace(p.Images)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	if trimmed[0] == '[' {
		var names []string
		if err := json.Unmarshal(trimmed, &names); err != nil {
			return nil, err
		}
		return names, nil
	}
	var name string
	if err := json.Unmarshal(trimmed, &name); err != nil {
		return nil, err
	}
	return []string{name}, nil
}

func (h *httpHandler) handleListBuildings(c *gin.Context) {
	records, err := h.buildings.List(c.Request.Context())
	if err != nil {
		h.respondError(c, err, failureMessages{failed: "Failed to fetch buildings"})
		return
	}
	c.JSON(http.StatusOK, records)
}

func (h *httpHandler) handleGetBuilding(c *gin.Context) {
	building, err := h.buildings.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err, getBuildingMessages)
		return
	}
	c.JSON(http.StatusOK, building)
}

func (h *httpHandler) handleCreateBuilding(c *gin.Context) {
	var payload createBuildingPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	building, err := h.buildings.Create(c.Request.Context(), buildings.CreateRequest{
		ID:            payload.ID,
		Title:         payload.Title,
		Designer:      payload.Designer,
		Year:          string(payload.Year),
		Neighbourhood: payload.Neighbourhood,
		Era:           payload.Era,
		XCoordinate:   payload.XCoordinate,
		YCoordinate:   payload.YCoordinate,
		Images:        payload.Images,
	})
	if err != nil {
		h.respondError(c, err, createBuildingMessages)
		return
	}

	h.publish(RealtimeEventBuildingCreated, building.ID, "")
	c.JSON(http.StatusCreated, building)
}

func (h *httpHandler) handleUpdateCoordinates(c *gin.Context) {
	var payload coordinatesPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	if payload.XCoordinate == nil || payload.YCoordinate == nil {
		badRequest(c, updateCoordinatesMessages.invalid)
		return
	}

	building, err := h.buildings.UpdateCoordinates(c.Request.Context(), c.Param("id"), buildings.Coordinates{
		X: *payload.XCoordinate,
		Y: *payload.YCoordinate,
	})
	if err != nil {
		h.respondError(c, err, updateCoordinatesMessages)
		return
	}

	h.publish(RealtimeEventBuildingMoved, building.ID, "")
	c.JSON(http.StatusOK, building)
}

func (h *httpHandler) handleAppendImages(c *gin.Context) {
	var payload imagesPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	filenames, err := payload.filenames()
	if err != nil {
		badRequest(c, "Images must be a filename or a list of filenames")
		return
	}

	building, err := h.buildings.AppendImages(c.Request.Context(), c.Param("id"), filenames)
	if err != nil {
		h.respondError(c, err, appendImagesMessages)
		return
	}

	h.publish(RealtimeEventBuildingImages, building.ID, "")
	c.JSON(http.StatusOK, building)
}

func (h *httpHandler) handleListDesigners(c *gin.Context) {
	designers, err := h.buildings.ListDesigners(c.Request.Context())
	if err != nil {
		h.respondError(c, err, failureMessages{failed: "Failed to fetch designers"})
		return
	}
	c.JSON(http.StatusOK, designers)
}

